// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs, or a
// local Coqui server) and presents a uniform batch interface: one utterance
// in, one audio payload out. Helm confirmations are short single sentences,
// so the pipeline favours the simplicity of request/response synthesis over
// streaming.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// VoiceProfile describes a synthesis voice configuration.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which TTS backend this voice belongs to.
	Provider string

	// Rate adjusts speaking rate (0.5–2.0, 1.0 = default). Zero means default.
	Rate float64

	// Pitch adjusts pitch (-10 to +10, 0 = default).
	Pitch float64

	// Volume adjusts output gain (0.0–1.0, 1.0 = default). Zero means default.
	Volume float64

	// Metadata holds provider-specific voice attributes (gender, accent,
	// quality tier, language, etc.).
	Metadata map[string]string
}

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Synthesize renders text as a single audio payload in the provider's
	// native format (PCM or WAV; consult the implementation). An empty
	// payload with a nil error must be treated as a failure by callers.
	//
	// Returns an error on network failure, provider rejection, or when ctx is
	// cancelled before synthesis completes.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error)

	// ListVoices returns all voice profiles available from this provider. The
	// list reflects the provider's current catalogue and may change between
	// calls.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}
