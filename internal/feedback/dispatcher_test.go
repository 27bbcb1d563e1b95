package feedback_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrWong99/helmsman/internal/feedback"
	"github.com/MrWong99/helmsman/internal/helm"
	"github.com/MrWong99/helmsman/pkg/provider/tts"
	ttsmock "github.com/MrWong99/helmsman/pkg/provider/tts/mock"
)

// fakePlayer records played payloads.
type fakePlayer struct {
	err error

	mu     sync.Mutex
	played [][]byte
}

func (f *fakePlayer) Play(ctx context.Context, audio []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, audio)
	return f.err
}

func TestDispatcher_SpeaksConfirmation(t *testing.T) {
	t.Parallel()

	synth := &ttsmock.Provider{Audio: []byte("pcm")}
	player := &fakePlayer{}
	d := feedback.New(synth, player, feedback.WithVoice(tts.VoiceProfile{ID: "v1"}))

	if err := d.Speak(context.Background(), "all ahead full, aye"); err != nil {
		t.Fatalf("Speak: unexpected error: %v", err)
	}

	calls := synth.Calls()
	if len(calls) != 1 || calls[0].Text != "all ahead full, aye" {
		t.Errorf("Synthesize calls = %+v, want one with the confirmation text", calls)
	}
	if calls[0].Voice.ID != "v1" {
		t.Errorf("Synthesize voice = %q, want configured v1", calls[0].Voice.ID)
	}

	player.mu.Lock()
	defer player.mu.Unlock()
	if len(player.played) != 1 || string(player.played[0]) != "pcm" {
		t.Errorf("played = %v, want the synthesized payload", player.played)
	}
}

func TestDispatcher_MuteIsNoOp(t *testing.T) {
	t.Parallel()

	synth := &ttsmock.Provider{Audio: []byte("pcm")}
	player := &fakePlayer{}
	d := feedback.New(synth, player, feedback.WithMuted(true))

	if err := d.Speak(context.Background(), "rudder amidships"); err != nil {
		t.Fatalf("Speak while muted: unexpected error: %v", err)
	}
	if len(synth.Calls()) != 0 {
		t.Errorf("Synthesize called %d times while muted, want 0", len(synth.Calls()))
	}

	// Unmute and confirm synthesis resumes.
	d.Mute(false)
	if d.Muted() {
		t.Fatal("Muted() = true after Mute(false)")
	}
	if err := d.Speak(context.Background(), "rudder amidships"); err != nil {
		t.Fatalf("Speak after unmute: unexpected error: %v", err)
	}
	if len(synth.Calls()) != 1 {
		t.Errorf("Synthesize called %d times after unmute, want 1", len(synth.Calls()))
	}
}

func TestDispatcher_SynthesisFailure(t *testing.T) {
	t.Parallel()

	synth := &ttsmock.Provider{SynthesizeErr: errors.New("backend down")}
	d := feedback.New(synth, &fakePlayer{}, feedback.WithVoice(tts.VoiceProfile{}))

	err := d.Speak(context.Background(), "all stop")
	if !errors.Is(err, helm.ErrAudioPlaybackFailed) {
		t.Errorf("Speak error = %v, want ErrAudioPlaybackFailed", err)
	}
}

func TestDispatcher_EmptyPayloadIsFailure(t *testing.T) {
	t.Parallel()

	synth := &ttsmock.Provider{} // nil audio, nil error
	player := &fakePlayer{}
	d := feedback.New(synth, player, feedback.WithVoice(tts.VoiceProfile{}))

	err := d.Speak(context.Background(), "all stop")
	if !errors.Is(err, helm.ErrAudioPlaybackFailed) {
		t.Errorf("Speak error = %v, want ErrAudioPlaybackFailed", err)
	}

	player.mu.Lock()
	defer player.mu.Unlock()
	if len(player.played) != 0 {
		t.Errorf("player received %d payloads for empty synthesis, want 0", len(player.played))
	}
}

func TestDispatcher_PlaybackFailure(t *testing.T) {
	t.Parallel()

	synth := &ttsmock.Provider{Audio: []byte("pcm")}
	player := &fakePlayer{err: errors.New("device busy")}
	d := feedback.New(synth, player, feedback.WithVoice(tts.VoiceProfile{}))

	err := d.Speak(context.Background(), "all stop")
	if !errors.Is(err, helm.ErrAudioPlaybackFailed) {
		t.Errorf("Speak error = %v, want ErrAudioPlaybackFailed", err)
	}
}

func TestDispatcher_AutoSelectsPreferredVoice(t *testing.T) {
	t.Parallel()

	synth := &ttsmock.Provider{
		Audio: []byte("pcm"),
		Voices: []tts.VoiceProfile{
			{ID: "a", Name: "Alice"},
			{ID: "b", Name: "Boatswain"},
		},
	}
	d := feedback.New(synth, &fakePlayer{}, feedback.WithVoiceName("Boatswain"))

	if err := d.Speak(context.Background(), "aye"); err != nil {
		t.Fatalf("Speak: unexpected error: %v", err)
	}
	if err := d.Speak(context.Background(), "aye again"); err != nil {
		t.Fatalf("Speak: unexpected error: %v", err)
	}

	// Catalogue consulted once, selection cached.
	if synth.ListVoicesCallCount != 1 {
		t.Errorf("ListVoices called %d times, want 1", synth.ListVoicesCallCount)
	}
	calls := synth.Calls()
	for _, c := range calls {
		if c.Voice.ID != "b" {
			t.Errorf("Synthesize voice = %q, want preferred b", c.Voice.ID)
		}
	}
}

func TestDispatcher_EmptyCatalogueUsesDefaultVoice(t *testing.T) {
	t.Parallel()

	synth := &ttsmock.Provider{Audio: []byte("pcm")}
	d := feedback.New(synth, &fakePlayer{})

	if err := d.Speak(context.Background(), "aye"); err != nil {
		t.Fatalf("Speak: unexpected error: %v", err)
	}
	calls := synth.Calls()
	if len(calls) != 1 || calls[0].Voice.ID != "" || calls[0].Voice.Name != "" {
		t.Errorf("Synthesize voice = %+v, want zero profile", calls[0].Voice)
	}
}
