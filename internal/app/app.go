// Package app wires all Helmsman subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the HTTP server and the voice capture loop, and
// Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithCorrector,
// WithInterpreter, WithSpeaker, etc.). When an option is not provided, New
// creates real implementations from the config and providers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/helmsman/internal/config"
	"github.com/MrWong99/helmsman/internal/feedback"
	"github.com/MrWong99/helmsman/internal/health"
	"github.com/MrWong99/helmsman/internal/helm"
	"github.com/MrWong99/helmsman/internal/helm/correct"
	"github.com/MrWong99/helmsman/internal/helm/interpret"
	"github.com/MrWong99/helmsman/internal/helm/phonetic"
	"github.com/MrWong99/helmsman/internal/observe"
	"github.com/MrWong99/helmsman/internal/resilience"
	"github.com/MrWong99/helmsman/internal/server"
	"github.com/MrWong99/helmsman/pkg/provider/llm"
	"github.com/MrWong99/helmsman/pkg/provider/stt"
	"github.com/MrWong99/helmsman/pkg/provider/tts"
)

// NamedLLM pairs an LLM provider with its configured name, used for circuit
// breaker identification in fallback chains.
type NamedLLM struct {
	Name     string
	Provider llm.Provider
}

// NamedTTS pairs a TTS provider with its configured name.
type NamedTTS struct {
	Name     string
	Provider tts.Provider
}

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	Correction llm.Provider

	Interpretation          llm.Provider
	InterpretationName      string
	InterpretationFallbacks []NamedLLM

	STT stt.Provider

	TTS          tts.Provider
	TTSName      string
	TTSFallbacks []NamedTTS
}

// App owns all subsystem lifetimes and orchestrates the helm command pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	store      *helm.StateStore
	cmdLog     *helm.CommandLog
	corrector  helm.Corrector
	interp     helm.Interpreter
	speaker    helm.Speaker
	auditor    helm.Auditor
	normalizer helm.Normalizer
	dispatcher *feedback.Dispatcher
	player     feedback.Player
	pipeline   *helm.Pipeline
	httpSrv    *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithCorrector injects a transcript corrector instead of building one from
// the correction provider.
func WithCorrector(c helm.Corrector) Option {
	return func(a *App) { a.corrector = c }
}

// WithInterpreter injects a command interpreter instead of building one from
// the interpretation provider.
func WithInterpreter(i helm.Interpreter) Option {
	return func(a *App) { a.interp = i }
}

// WithSpeaker injects a confirmation speaker instead of building the
// feedback dispatcher from the TTS provider.
func WithSpeaker(s helm.Speaker) Option {
	return func(a *App) { a.speaker = s }
}

// WithAuditor injects an audit sink instead of opening the configured
// audit log file.
func WithAuditor(aud helm.Auditor) Option {
	return func(a *App) { a.auditor = aud }
}

// WithPlayer sets the audio output for spoken confirmations. The default
// discards audio; main typically wires a pipe to an external player.
func WithPlayer(p feedback.Player) Option {
	return func(a *App) { a.player = p }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option functions
// to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	a.store = helm.NewStateStore()
	a.cmdLog = helm.NewCommandLog(cfg.Helm.CommandLogSize)

	if err := a.initCorrector(); err != nil {
		return nil, fmt.Errorf("app: init corrector: %w", err)
	}
	if err := a.initInterpreter(); err != nil {
		return nil, fmt.Errorf("app: init interpreter: %w", err)
	}
	a.initSpeaker()
	a.initAuditor()
	a.initNormalizer()
	a.initPipeline()
	a.initHTTP()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initCorrector() error {
	if a.corrector != nil {
		return nil
	}
	if a.providers.Correction == nil {
		// Raw transcripts must never reach the interpreter uncorrected.
		return errors.New("a correction LLM provider is required")
	}
	a.corrector = correct.New(a.providers.Correction)
	return nil
}

func (a *App) initInterpreter() error {
	if a.interp != nil {
		return nil
	}
	if a.providers.Interpretation == nil {
		return errors.New("an interpretation LLM provider is required")
	}

	provider := a.providers.Interpretation
	if len(a.providers.InterpretationFallbacks) > 0 {
		name := a.providers.InterpretationName
		if name == "" {
			name = "primary"
		}
		fb := resilience.NewLLMFallback(provider, name, resilience.FallbackConfig{Kind: "interpretation"})
		for _, entry := range a.providers.InterpretationFallbacks {
			fb.AddFallback(entry.Name, entry.Provider)
			slog.Info("interpretation fallback registered", "name", entry.Name)
		}
		provider = fb
	}

	a.interp = interpret.New(provider)
	return nil
}

func (a *App) initSpeaker() {
	if a.speaker != nil {
		return
	}
	if a.providers.TTS == nil {
		return // muted-by-absence: commands still apply, nothing is spoken
	}

	synth := a.providers.TTS
	if len(a.providers.TTSFallbacks) > 0 {
		name := a.providers.TTSName
		if name == "" {
			name = "primary"
		}
		fb := resilience.NewTTSFallback(synth, name, resilience.FallbackConfig{Kind: "tts"})
		for _, entry := range a.providers.TTSFallbacks {
			fb.AddFallback(entry.Name, entry.Provider)
			slog.Info("tts fallback registered", "name", entry.Name)
		}
		synth = fb
	}

	player := a.player
	if player == nil {
		player = feedback.NewWriterPlayer(io.Discard)
	}
	if c, ok := player.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}

	dispatchOpts := []feedback.Option{
		feedback.WithMuted(a.cfg.Helm.Muted),
	}
	voice := a.cfg.Helm.Voice
	switch {
	case voice.ID != "" || voice.Rate != 0 || voice.Pitch != 0:
		dispatchOpts = append(dispatchOpts, feedback.WithVoice(tts.VoiceProfile{
			ID:    voice.ID,
			Name:  voice.Name,
			Rate:  voice.Rate,
			Pitch: voice.Pitch,
		}))
	case voice.Name != "":
		dispatchOpts = append(dispatchOpts, feedback.WithVoiceName(voice.Name))
	}

	a.dispatcher = feedback.New(synth, player, dispatchOpts...)
	a.speaker = a.dispatcher
}

func (a *App) initAuditor() {
	if a.auditor != nil {
		return
	}
	if a.cfg.Helm.AuditLog == "" {
		return
	}
	a.auditor = feedback.NewFileStore(a.cfg.Helm.AuditLog)
	slog.Info("audit log enabled", "path", a.cfg.Helm.AuditLog)
}

func (a *App) initNormalizer() {
	if a.normalizer != nil {
		return
	}
	var opts []phonetic.Option
	if t := a.cfg.Helm.PhoneticThreshold; t != 0 {
		opts = append(opts, phonetic.WithPhoneticThreshold(t))
	}
	if t := a.cfg.Helm.FuzzyThreshold; t != 0 {
		opts = append(opts, phonetic.WithFuzzyThreshold(t))
	}
	if len(a.cfg.Helm.ExtraTerms) > 0 {
		opts = append(opts, phonetic.WithExtraTerms(a.cfg.Helm.ExtraTerms))
	}
	a.normalizer = phonetic.New(opts...)
}

func (a *App) initPipeline() {
	pipeOpts := []helm.PipelineOption{
		helm.WithNormalizer(a.normalizer),
	}
	if a.speaker != nil {
		pipeOpts = append(pipeOpts, helm.WithSpeaker(a.speaker))
	}
	if a.auditor != nil {
		pipeOpts = append(pipeOpts, helm.WithAuditor(a.auditor))
	}
	if t := a.cfg.Helm.Timeouts; t.Correction != 0 || t.Interpretation != 0 || t.Speech != 0 {
		pipeOpts = append(pipeOpts, helm.WithStageTimeouts(t.Correction.Std(), t.Interpretation.Std(), t.Speech.Std()))
	}

	a.pipeline = helm.NewPipeline(a.store, a.cmdLog, a.corrector, a.interp, pipeOpts...)
}

func (a *App) initHTTP() {
	checkers := []health.Checker{
		{Name: "interpreter", Check: func(context.Context) error {
			if a.interp == nil {
				return errors.New("not configured")
			}
			return nil
		}},
	}
	if a.providers.STT != nil {
		checkers = append(checkers, health.Checker{Name: "voice", Check: func(context.Context) error {
			return nil
		}})
	}

	srvOpts := []server.Option{
		server.WithHealth(health.New(checkers...)),
	}
	if a.dispatcher != nil {
		srvOpts = append(srvOpts, server.WithMuteControl(a.dispatcher))
	}

	httpHandler := server.New(a.pipeline, srvOpts...).Handler()

	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	a.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Pipeline exposes the command pipeline, mainly for tests.
func (a *App) Pipeline() *helm.Pipeline {
	return a.pipeline
}

// ApplyDiff applies a hot-reloadable config change produced by the config
// watcher. Provider and server changes are ignored; they need a restart.
// Log level changes are applied by the caller, which owns the logger.
func (a *App) ApplyDiff(d config.ConfigDiff) {
	if d.MutedChanged && a.dispatcher != nil {
		a.dispatcher.Mute(d.NewMuted)
		slog.Info("confirmation audio toggled via config reload", "muted", d.NewMuted)
	}

	if d.VoiceChanged && a.dispatcher != nil {
		voice := d.NewVoice
		if voice.ID != "" || voice.Rate != 0 || voice.Pitch != 0 {
			a.dispatcher.SetVoice(tts.VoiceProfile{
				ID:    voice.ID,
				Name:  voice.Name,
				Rate:  voice.Rate,
				Pitch: voice.Pitch,
			})
		} else {
			a.dispatcher.SetVoiceName(voice.Name)
		}
		slog.Info("confirmation voice changed via config reload", "voice", voice.Name, "id", voice.ID)
	}

	if d.ThresholdsChanged {
		var opts []phonetic.Option
		if t := d.NewPhoneticThreshold; t != 0 {
			opts = append(opts, phonetic.WithPhoneticThreshold(t))
		}
		if t := d.NewFuzzyThreshold; t != 0 {
			opts = append(opts, phonetic.WithFuzzyThreshold(t))
		}
		if len(a.cfg.Helm.ExtraTerms) > 0 {
			opts = append(opts, phonetic.WithExtraTerms(a.cfg.Helm.ExtraTerms))
		}
		a.normalizer = phonetic.New(opts...)
		a.pipeline.SetNormalizer(a.normalizer)
		slog.Info("phonetic thresholds changed via config reload",
			"phonetic", d.NewPhoneticThreshold, "fuzzy", d.NewFuzzyThreshold)
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the HTTP server and, when an STT provider is configured, the
// voice capture loop. It blocks until ctx is cancelled or a subsystem fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", a.httpSrv.Addr)
		var err error
		if tlsCfg := a.cfg.Server.TLS; tlsCfg != nil {
			err = a.httpSrv.ListenAndServeTLS(tlsCfg.CertFile, tlsCfg.KeyFile)
		} else {
			err = a.httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpSrv.Shutdown(shutdownCtx)
	})

	if a.providers.STT != nil {
		// Voice trouble disables the voice path only; the HTTP command
		// boundary keeps serving. Returning the error here would cancel
		// the group and take the server down with it.
		g.Go(func() error {
			if err := a.runVoiceLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("voice path disabled", "err", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// transcriptLag derives how long the transcription service took to deliver a
// final transcript after the utterance ended. Live capture runs in real time,
// so the session clock and the transcript's stream position share a timeline.
// Returns false when the provider reports no utterance timing or the clocks
// disagree.
func transcriptLag(elapsed time.Duration, t stt.Transcript) (time.Duration, bool) {
	if t.Duration <= 0 {
		return 0, false
	}
	lag := elapsed - (t.Timestamp + t.Duration)
	if lag <= 0 {
		return 0, false
	}
	return lag, true
}

// runVoiceLoop opens an STT capture session and submits every final
// transcript as a helm command. A dropped command (one arriving while another
// is mid-flight) is logged and discarded, never queued.
func (a *App) runVoiceLoop(ctx context.Context) error {
	metrics := observe.DefaultMetrics()

	session, err := a.providers.STT.StartStream(ctx, stt.StreamConfig{
		SampleRate: 16000,
		Channels:   1,
		Language:   "en-US",
		Keywords:   phonetic.DefaultTerms(),
	})
	if err != nil {
		return fmt.Errorf("%w: start capture session: %v", helm.ErrCaptureUnavailable, err)
	}
	defer session.Close()

	metrics.ActiveVoiceSessions.Add(ctx, 1)
	defer metrics.ActiveVoiceSessions.Add(ctx, -1)

	sessionStart := time.Now()
	slog.Info("voice capture session started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-session.Finals():
			if !ok {
				return errors.New("voice capture session closed unexpectedly")
			}
			if t.Text == "" {
				continue
			}
			if lag, ok := transcriptLag(time.Since(sessionStart), t); ok {
				metrics.STTDuration.Record(ctx, lag.Seconds())
			}

			result, err := a.pipeline.Submit(ctx, "voice", t.Text)
			switch {
			case errors.Is(err, helm.ErrCommandInFlight):
				slog.Debug("command dropped, another is in flight", "text", t.Text)
			case err != nil:
				slog.Warn("voice command not applied", "text", t.Text, "err", err)
			default:
				slog.Debug("voice command applied",
					"command", result.Corrected,
					"confirmation", result.Confirmation,
				)
			}
		}
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
