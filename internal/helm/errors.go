package helm

import "errors"

// Failure taxonomy for the command pipeline. All are caught at the pipeline
// or HTTP boundary, logged, and surfaced to the caller; none crash the
// session.
var (
	// ErrCaptureUnavailable means speech capture is not configured or not
	// supported. Fatal for the session's voice path only; the HTTP command
	// boundary keeps serving.
	ErrCaptureUnavailable = errors.New("helm: speech capture unavailable")

	// ErrCorrectionUnavailable means the correction collaborator failed or
	// returned no usable content. The command is aborted; the raw transcript
	// is never silently used in its place.
	ErrCorrectionUnavailable = errors.New("helm: correction unavailable")

	// ErrInvalidInterpretation covers interpreter response parse failures,
	// missing required fields, and out-of-range values. Out-of-range values
	// are rejected rather than clamped: on a control surface they signal a
	// misunderstood command.
	ErrInvalidInterpretation = errors.New("helm: invalid interpretation")

	// ErrAudioPlaybackFailed means both the primary and the fallback speech
	// channel failed. State changes already applied are not rolled back;
	// audio is feedback, not transactional with state.
	ErrAudioPlaybackFailed = errors.New("helm: audio playback failed")

	// ErrMissingCredential means a collaborator is not configured. Raised at
	// construction time, before any network call.
	ErrMissingCredential = errors.New("helm: missing credential")

	// ErrCommandInFlight means a command is already being processed. The new
	// transcript is dropped, not queued: replaying stale helm orders late is
	// worse than losing them.
	ErrCommandInFlight = errors.New("helm: command already in flight")

	// ErrEmptyTranscript means the transcript was empty or whitespace-only
	// and was rejected before reaching the corrector.
	ErrEmptyTranscript = errors.New("helm: empty transcript")
)
