package helm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/helmsman/internal/helm/phonetic"
	"github.com/MrWong99/helmsman/internal/observe"
)

// Default per-stage timeouts. Each stage gets its own deadline carved out of
// the caller's context so one slow provider cannot consume the whole command
// budget.
const (
	defaultCorrectionTimeout     = 10 * time.Second
	defaultInterpretationTimeout = 10 * time.Second
	defaultSpeechTimeout         = 15 * time.Second
)

// Corrector rewrites a raw transcript into a clean helm command.
// Implementations must be safe for concurrent use.
type Corrector interface {
	// Correct returns the cleaned-up command text for transcript. A failure
	// to produce usable text is an error wrapping [ErrCorrectionUnavailable];
	// the raw transcript must never be returned as a substitute.
	Correct(ctx context.Context, transcript string) (string, error)
}

// Interpretation is the structured outcome of interpreting one command.
type Interpretation struct {
	// Delta holds the requested state changes. A zero delta with a non-empty
	// confirmation is valid: acknowledgements and refusals change nothing.
	Delta StateDelta

	// Confirmation is the readback text to speak and log.
	Confirmation string
}

// Interpreter turns a corrected command and the current state into an
// [Interpretation]. Implementations must be safe for concurrent use.
type Interpreter interface {
	// Interpret returns a non-nil Interpretation on success. Unparseable or
	// out-of-range model output is an error wrapping
	// [ErrInvalidInterpretation]; values are never clamped into range.
	Interpret(ctx context.Context, command string, current ShipState) (*Interpretation, error)
}

// Speaker voices a confirmation back to the conning officer.
// Implementations must be safe for concurrent use.
type Speaker interface {
	// Speak synthesizes and plays text. When every channel fails, the error
	// wraps [ErrAudioPlaybackFailed].
	Speak(ctx context.Context, text string) error
}

// Normalizer rewrites misheard vocabulary in a transcript before the
// corrector sees it.
type Normalizer interface {
	Normalize(text string) (string, []phonetic.Substitution)
}

// Auditor records applied commands on durable storage. Audit failures are
// logged and never fail the command.
type Auditor interface {
	Audit(result Result) error
}

// Result is the outcome of one successfully applied command.
type Result struct {
	// Raw is the transcript as submitted.
	Raw string

	// Corrected is the cleaned-up command text the interpreter received.
	Corrected string

	// Delta is the state change the interpreter requested.
	Delta StateDelta

	// State is the ship state after the delta was merged.
	State ShipState

	// Confirmation is the readback text.
	Confirmation string

	// SpeechErr is non-nil when the state change was applied but the spoken
	// confirmation failed. Audio is feedback, not transactional with state,
	// so this does not fail the command.
	SpeechErr error
}

// PipelineOption is a functional option for configuring a [Pipeline].
type PipelineOption func(*Pipeline)

// WithNormalizer attaches a phonetic vocabulary [Normalizer] that runs
// before the corrector. When nil (the default), the stage is skipped.
func WithNormalizer(n Normalizer) PipelineOption {
	return func(p *Pipeline) {
		p.normalizer = n
	}
}

// WithSpeaker attaches a [Speaker] for voiced confirmations. When nil (the
// default), confirmations are logged but not spoken.
func WithSpeaker(s Speaker) PipelineOption {
	return func(p *Pipeline) {
		p.speaker = s
	}
}

// WithMetrics overrides the metrics instance. Default:
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithAuditor attaches an [Auditor] that records every applied command.
func WithAuditor(a Auditor) PipelineOption {
	return func(p *Pipeline) {
		p.auditor = a
	}
}

// WithStageTimeouts overrides the per-stage deadlines. Non-positive values
// keep the corresponding default.
func WithStageTimeouts(correction, interpretation, speech time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if correction > 0 {
			p.correctionTimeout = correction
		}
		if interpretation > 0 {
			p.interpretationTimeout = interpretation
		}
		if speech > 0 {
			p.speechTimeout = speech
		}
	}
}

// Pipeline runs one helm command at a time through normalize, correct,
// interpret, merge, and confirm. It is safe for concurrent use: concurrent
// submissions are rejected with [ErrCommandInFlight] rather than queued,
// because a helm order replayed after the situation moved on is worse than
// one that has to be repeated.
type Pipeline struct {
	store       *StateStore
	log         *CommandLog
	corrector   Corrector
	interpreter Interpreter
	speaker     Speaker
	auditor     Auditor
	metrics     *observe.Metrics

	normMu     sync.RWMutex
	normalizer Normalizer

	inFlight atomic.Bool

	correctionTimeout     time.Duration
	interpretationTimeout time.Duration
	speechTimeout         time.Duration
}

// NewPipeline constructs a [Pipeline] over the given store and command log.
// corrector and interpreter are required; the normalizer and speaker stages
// are attached via options.
func NewPipeline(store *StateStore, log *CommandLog, corrector Corrector, interpreter Interpreter, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:                 store,
		log:                   log,
		corrector:             corrector,
		interpreter:           interpreter,
		correctionTimeout:     defaultCorrectionTimeout,
		interpretationTimeout: defaultInterpretationTimeout,
		speechTimeout:         defaultSpeechTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// SetNormalizer replaces the vocabulary normalizer. A nil value disables
// the stage. Safe to call while commands are in flight; the change applies
// to the next submission.
func (p *Pipeline) SetNormalizer(n Normalizer) {
	p.normMu.Lock()
	p.normalizer = n
	p.normMu.Unlock()
}

// Submit runs raw through the full pipeline. source labels the submission
// origin for telemetry ("voice", "http").
//
// On success the returned Result reflects the applied state change; check
// [Result.SpeechErr] for a failed confirmation. On error the ship state and
// the command log are untouched.
func (p *Pipeline) Submit(ctx context.Context, source, raw string) (*Result, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyTranscript
	}

	if !p.inFlight.CompareAndSwap(false, true) {
		p.count(ctx, source, "dropped")
		return nil, ErrCommandInFlight
	}
	defer p.inFlight.Store(false)

	p.metrics.CommandsInFlight.Add(ctx, 1)
	defer p.metrics.CommandsInFlight.Add(ctx, -1)

	ctx, span := observe.StartSpan(ctx, "helm.command",
		trace.WithAttributes(attribute.String("source", source)),
	)
	defer span.End()

	start := time.Now()
	logger := observe.Logger(ctx)

	// --- Stage 0: phonetic vocabulary normalisation ---
	text := raw
	p.normMu.RLock()
	normalizer := p.normalizer
	p.normMu.RUnlock()
	if normalizer != nil {
		normalized, subs := normalizer.Normalize(raw)
		if len(subs) > 0 {
			p.metrics.VocabularySubstitutions.Add(ctx, int64(len(subs)))
			logger.Debug("vocabulary normalized",
				"substitutions", len(subs),
				"text", normalized,
			)
		}
		text = normalized
	}

	// --- Stage 1: transcript correction ---
	corrected, err := p.correct(ctx, text)
	if err != nil {
		p.count(ctx, source, "failed")
		logger.Error("correction failed", "err", err, "transcript", raw)
		return nil, err
	}

	// --- Stage 2: interpretation ---
	interp, err := p.interpret(ctx, corrected)
	if err != nil {
		status := "failed"
		if errors.Is(err, ErrInvalidInterpretation) {
			status = "rejected"
		}
		p.count(ctx, source, status)
		logger.Error("interpretation failed", "err", err, "command", corrected)
		return nil, err
	}

	// --- Stage 3: merge ---
	state := p.store.Apply(interp.Delta)
	p.log.Add(LogEntry{
		Corrected:    corrected,
		Confirmation: interp.Confirmation,
		At:           time.Now(),
	})

	result := &Result{
		Raw:          raw,
		Corrected:    corrected,
		Delta:        interp.Delta,
		State:        state,
		Confirmation: interp.Confirmation,
	}

	logger.Info("command applied",
		"command", corrected,
		"confirmation", interp.Confirmation,
		"rudder", state.RudderAngle,
		"course", state.Course,
		"speed", state.Speed,
	)

	if p.auditor != nil {
		if err := p.auditor.Audit(*result); err != nil {
			logger.Warn("audit record failed", "err", err)
		}
	}

	// --- Stage 4: spoken confirmation ---
	if p.speaker != nil && interp.Confirmation != "" {
		if err := p.speak(ctx, interp.Confirmation); err != nil {
			result.SpeechErr = fmt.Errorf("confirmation for %q: %w", corrected, err)
			logger.Warn("confirmation playback failed", "err", err)
		}
	}

	p.count(ctx, source, "applied")
	p.metrics.CommandDuration.Record(ctx, time.Since(start).Seconds())

	return result, nil
}

// State returns the current ship state snapshot.
func (p *Pipeline) State() ShipState {
	return p.store.Current()
}

// Log returns the recent command history, most recent first.
func (p *Pipeline) Log() []LogEntry {
	return p.log.Entries()
}

// Reset returns the ship state to all-zero values and clears the command
// history.
func (p *Pipeline) Reset() {
	p.store.Reset()
	p.log.Clear()
}

func (p *Pipeline) correct(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.correctionTimeout)
	defer cancel()

	ctx, span := observe.StartSpan(ctx, "helm.correct")
	defer span.End()

	start := time.Now()
	corrected, err := p.corrector.Correct(ctx, text)
	p.metrics.CorrectionDuration.Record(ctx, time.Since(start).Seconds())
	return corrected, err
}

func (p *Pipeline) interpret(ctx context.Context, command string) (*Interpretation, error) {
	ctx, cancel := context.WithTimeout(ctx, p.interpretationTimeout)
	defer cancel()

	ctx, span := observe.StartSpan(ctx, "helm.interpret")
	defer span.End()

	start := time.Now()
	interp, err := p.interpreter.Interpret(ctx, command, p.store.Current())
	p.metrics.InterpretationDuration.Record(ctx, time.Since(start).Seconds())
	return interp, err
}

func (p *Pipeline) speak(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, p.speechTimeout)
	defer cancel()

	ctx, span := observe.StartSpan(ctx, "helm.speak")
	defer span.End()

	start := time.Now()
	err := p.speaker.Speak(ctx, text)
	p.metrics.SpeechDuration.Record(ctx, time.Since(start).Seconds())
	return err
}

func (p *Pipeline) count(ctx context.Context, source, status string) {
	p.metrics.Commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	))
}
