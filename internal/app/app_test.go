package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/helmsman/internal/app"
	"github.com/MrWong99/helmsman/internal/config"
	"github.com/MrWong99/helmsman/internal/helm"
	"github.com/MrWong99/helmsman/pkg/provider/llm"
	llmmock "github.com/MrWong99/helmsman/pkg/provider/llm/mock"
	sttmock "github.com/MrWong99/helmsman/pkg/provider/stt/mock"
	ttsmock "github.com/MrWong99/helmsman/pkg/provider/tts/mock"
)

// testConfig returns a minimal config binding an ephemeral port for tests.
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: "127.0.0.1:0",
			LogLevel:   config.LogInfo,
		},
	}
}

func testProviders() *app.Providers {
	// Correction echoes the transcript back, as a well-behaved model would
	// for already-clean commands.
	echo := &llmmock.Provider{
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: req.Messages[len(req.Messages)-1].Content}, nil
		},
	}
	return &app.Providers{
		Correction:     echo,
		Interpretation: &llmmock.Provider{},
		TTS:            &ttsmock.Provider{Audio: []byte("pcm")},
	}
}

// rudderInterpreter answers every command with a fixed rudder order.
type rudderInterpreter struct {
	angle int
}

func (r *rudderInterpreter) Interpret(_ context.Context, _ string, _ helm.ShipState) (*helm.Interpretation, error) {
	angle := r.angle
	return &helm.Interpretation{
		Delta:        helm.StateDelta{RudderAngle: &angle},
		Confirmation: "rudder order, aye",
	}, nil
}

func TestNew_WithMocks(t *testing.T) {
	t.Parallel()

	application, err := app.New(context.Background(), testConfig(), testProviders())
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if application == nil {
		t.Fatal("New() returned nil app")
	}
	if application.Pipeline() == nil {
		t.Fatal("Pipeline() returned nil")
	}
}

func TestNew_RequiresInterpretationProvider(t *testing.T) {
	t.Parallel()

	providers := testProviders()
	providers.Interpretation = nil

	_, err := app.New(context.Background(), testConfig(), providers)
	if err == nil {
		t.Fatal("New() should fail without an interpretation provider")
	}
}

func TestNew_RequiresCorrectionProvider(t *testing.T) {
	t.Parallel()

	providers := testProviders()
	providers.Correction = nil

	_, err := app.New(context.Background(), testConfig(), providers)
	if err == nil {
		t.Fatal("New() should fail without a correction provider")
	}
}

func TestNew_InjectedInterpreterReplacesProvider(t *testing.T) {
	t.Parallel()

	providers := testProviders()
	providers.Interpretation = nil

	application, err := app.New(context.Background(), testConfig(), providers,
		app.WithInterpreter(&rudderInterpreter{angle: 10}),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	result, err := application.Pipeline().Submit(context.Background(), "http", "right ten degrees rudder")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if result.State.RudderAngle != 10 {
		t.Errorf("rudder angle = %d, want 10", result.State.RudderAngle)
	}
}

func TestVoiceCommand_AppliedThroughPipeline(t *testing.T) {
	t.Parallel()

	session := sttmock.NewSession()
	providers := testProviders()
	providers.STT = &sttmock.Provider{Session: session}

	application, err := app.New(context.Background(), testConfig(), providers,
		app.WithInterpreter(&rudderInterpreter{angle: -10}),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	session.EmitFinal("left ten degrees rudder")

	deadline := time.After(5 * time.Second)
	for application.Pipeline().State().RudderAngle != -10 {
		select {
		case <-deadline:
			t.Fatal("voice command was not applied within 5s")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// The vocabulary should have been passed as recognition hints.
	sttProvider := providers.STT.(*sttmock.Provider)
	if len(sttProvider.StartCalls) != 1 {
		t.Fatalf("StartStream calls = %d, want 1", len(sttProvider.StartCalls))
	}
	if len(sttProvider.StartCalls[0].Keywords) == 0 {
		t.Error("StreamConfig.Keywords should carry the helm vocabulary")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}
}

func TestVoiceCaptureFailure_DoesNotStopCommandBoundary(t *testing.T) {
	t.Parallel()

	providers := testProviders()
	providers.STT = &sttmock.Provider{StartErr: errors.New("connection refused")}

	application, err := app.New(context.Background(), testConfig(), providers,
		app.WithInterpreter(&rudderInterpreter{angle: 15}),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	// The voice path fails immediately; the app must keep running.
	select {
	case err := <-errCh:
		t.Fatalf("Run() returned %v, want it to keep serving after a capture failure", err)
	case <-time.After(200 * time.Millisecond):
	}

	// Commands still go through.
	result, err := application.Pipeline().Submit(context.Background(), "http", "right fifteen degrees rudder")
	if err != nil {
		t.Fatalf("Submit() error after capture failure: %v", err)
	}
	if result.State.RudderAngle != 15 {
		t.Errorf("rudder angle = %d, want 15", result.State.RudderAngle)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}
}

func TestApplyDiff_TogglesMute(t *testing.T) {
	t.Parallel()

	ttsProvider := &ttsmock.Provider{Audio: []byte("pcm")}
	providers := testProviders()
	providers.TTS = ttsProvider

	application, err := app.New(context.Background(), testConfig(), providers,
		app.WithInterpreter(&rudderInterpreter{angle: 5}),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	application.ApplyDiff(config.ConfigDiff{MutedChanged: true, NewMuted: true})

	if _, err := application.Pipeline().Submit(context.Background(), "http", "right five degrees rudder"); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if got := len(ttsProvider.SynthesizeCalls); got != 0 {
		t.Errorf("Synthesize calls = %d, want 0 while muted", got)
	}
}

func TestApp_RunAndShutdown(t *testing.T) {
	t.Parallel()

	application, err := app.New(context.Background(), testConfig(), testProviders())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	// Give Run a moment to set up goroutines.
	time.Sleep(50 * time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}
