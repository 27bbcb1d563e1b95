// Package stt defines the Provider interface for the speech-capture
// collaborator.
//
// An STT provider wraps a real-time transcription service and exposes a
// push-style streaming interface: once a session is open it accepts raw PCM
// audio frames and emits two streams of Transcript values — low-latency
// partials for responsiveness and authoritative finals that feed the helm
// command pipeline.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"time"
)

// Transcript represents a speech-to-text result. Both partial (interim) and
// final transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or partial
	// (interim) transcript. Only finals are submitted as helm commands.
	IsFinal bool

	// Confidence is the overall confidence score (0.0–1.0). May be zero if
	// the provider does not report confidence.
	Confidence float64

	// Timestamp marks when the utterance started, relative to session start.
	Timestamp time.Duration

	// Duration is the length of the transcribed utterance. Zero if the
	// provider does not report it.
	Duration time.Duration
}

// StreamConfig describes the audio format and recognition hints for a new
// capture session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. Common value: 16000.
	SampleRate int

	// Channels is the number of audio channels. 1 = mono, required by most
	// STT providers.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// Empty lets the provider auto-detect, if supported.
	Language string

	// Keywords is a list of vocabulary hints that raise recognition
	// probability for domain terms ("rudder", "amidships", "astern", ...).
	Keywords []string
}

// SessionHandle represents an open capture session. Callers must call Close
// when the session is no longer needed; failing to do so may leak goroutines
// and network connections inside the provider.
//
// All methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio bytes for transcription.
	// The chunk must match the format agreed in StreamConfig. Calling
	// SendAudio after Close returns an error.
	SendAudio(chunk []byte) error

	// Partials returns a read-only channel emitting low-latency interim
	// transcripts. Suitable for UI indicators only; never submitted as
	// commands. Closed when the session ends.
	Partials() <-chan Transcript

	// Finals returns a read-only channel emitting authoritative transcripts
	// once the provider has committed to a recognition result. Closed when
	// the session ends.
	Finals() <-chan Transcript

	// Close terminates the session, flushes pending audio, and releases all
	// resources. Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// StartStream opens a new streaming capture session. The returned handle
	// is ready to accept audio immediately. The caller owns the handle and
	// must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
