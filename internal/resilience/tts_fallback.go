package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/helmsman/pkg/provider/tts"
)

// errEmptyPayload marks a synthesis that "succeeded" with zero audio bytes.
// The [tts.Provider] contract treats that as a failure, so it must trip the
// breaker and advance to the next entry like any other error.
var errEmptyPayload = errors.New("provider returned empty audio payload")

// TTSFallback implements [tts.Provider] with automatic failover across
// multiple TTS backends. Each backend has its own circuit breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred
// backend.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional TTS provider as a fallback.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Synthesize renders text with the first healthy provider. An empty payload
// from a provider counts as a failure and advances to the next entry, per
// the [tts.Provider] contract.
func (f *TTSFallback) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	return ExecuteWithResult(ctx, f.group, func(p tts.Provider) ([]byte, error) {
		audio, err := p.Synthesize(ctx, text, voice)
		if err != nil {
			return nil, err
		}
		if len(audio) == 0 {
			return nil, errEmptyPayload
		}
		return audio, nil
	})
}

// ListVoices returns available voices from the first healthy provider.
func (f *TTSFallback) ListVoices(ctx context.Context) ([]tts.VoiceProfile, error) {
	return ExecuteWithResult(ctx, f.group, func(p tts.Provider) ([]tts.VoiceProfile, error) {
		return p.ListVoices(ctx)
	})
}
