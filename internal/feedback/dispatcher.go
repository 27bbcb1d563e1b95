// Package feedback voices helm confirmations back to the bridge.
//
// The [Dispatcher] implements the pipeline's Speaker contract on top of a
// [tts.Provider] (typically a resilience.TTSFallback wrapping a primary and
// a fallback backend) and a [Player] that puts the rendered audio on an
// output device. A mute switch turns Speak into a logged no-op so night
// watch can silence the station without tearing down providers.
package feedback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/MrWong99/helmsman/internal/helm"
	"github.com/MrWong99/helmsman/internal/observe"
	"github.com/MrWong99/helmsman/pkg/provider/tts"
)

// Option is a functional option for configuring a [Dispatcher].
type Option func(*Dispatcher)

// WithVoice fixes the synthesis voice. Without it, the dispatcher picks a
// voice from the provider catalogue on first use.
func WithVoice(voice tts.VoiceProfile) Option {
	return func(d *Dispatcher) {
		d.voice = voice
		d.voiceSet = true
	}
}

// WithVoiceName prefers the named catalogue voice when auto-selecting.
func WithVoiceName(name string) Option {
	return func(d *Dispatcher) {
		d.preferredName = name
	}
}

// WithMuted sets the initial mute state.
func WithMuted(muted bool) Option {
	return func(d *Dispatcher) {
		d.muted.Store(muted)
	}
}

// Dispatcher synthesizes and plays confirmation audio. It is safe for
// concurrent use; voice auto-selection happens at most once. Speech
// latency is measured by the pipeline, which wraps Speak in a timed
// stage.
type Dispatcher struct {
	synth  tts.Provider
	player Player

	preferredName string

	voiceMu     sync.Mutex
	voiceSet    bool
	voicePicked bool
	voice       tts.VoiceProfile

	muted atomic.Bool
}

var _ helm.Speaker = (*Dispatcher)(nil)

// New returns a [Dispatcher] over the given synthesis provider and player.
func New(synth tts.Provider, player Player, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		synth:  synth,
		player: player,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Speak renders text and plays it. When muted, Speak logs the skipped
// confirmation and returns nil. Synthesis and playback failures are errors
// wrapping [helm.ErrAudioPlaybackFailed].
func (d *Dispatcher) Speak(ctx context.Context, text string) error {
	logger := observe.Logger(ctx)

	if d.muted.Load() {
		logger.Debug("confirmation muted", "text", text)
		return nil
	}

	voice, err := d.currentVoice(ctx)
	if err != nil {
		return fmt.Errorf("%w: voice selection: %v", helm.ErrAudioPlaybackFailed, err)
	}

	audio, err := d.synth.Synthesize(ctx, text, voice)
	if err != nil {
		return fmt.Errorf("%w: synthesize: %v", helm.ErrAudioPlaybackFailed, err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("%w: synthesize returned empty payload", helm.ErrAudioPlaybackFailed)
	}

	if err := d.player.Play(ctx, audio); err != nil {
		return fmt.Errorf("%w: play: %v", helm.ErrAudioPlaybackFailed, err)
	}

	logger.Debug("confirmation spoken", "text", text, "voice", voice.ID, "bytes", len(audio))
	return nil
}

// Mute sets the mute state.
func (d *Dispatcher) Mute(muted bool) {
	d.muted.Store(muted)
}

// SetVoice fixes the synthesis voice, replacing any configured or
// auto-selected one. Takes effect on the next confirmation.
func (d *Dispatcher) SetVoice(voice tts.VoiceProfile) {
	d.voiceMu.Lock()
	defer d.voiceMu.Unlock()
	d.voice = voice
	d.voiceSet = true
	d.voicePicked = false
}

// SetVoiceName changes the preferred catalogue voice and clears any cached
// selection, so the next confirmation reselects from the catalogue.
func (d *Dispatcher) SetVoiceName(name string) {
	d.voiceMu.Lock()
	defer d.voiceMu.Unlock()
	d.preferredName = name
	d.voiceSet = false
	d.voicePicked = false
}

// Muted reports the current mute state.
func (d *Dispatcher) Muted() bool {
	return d.muted.Load()
}

// currentVoice returns the configured voice, selecting one from the
// provider catalogue on first use when none was configured. A failed
// selection is not cached, so the next confirmation retries.
func (d *Dispatcher) currentVoice(ctx context.Context) (tts.VoiceProfile, error) {
	d.voiceMu.Lock()
	defer d.voiceMu.Unlock()

	if d.voiceSet || d.voicePicked {
		return d.voice, nil
	}

	voice, err := d.selectVoice(ctx)
	if err != nil {
		return tts.VoiceProfile{}, err
	}
	d.voice = voice
	d.voicePicked = true
	return voice, nil
}

// selectVoice picks a voice from the catalogue: the preferred name when it
// matches (case-sensitively on Name or ID), otherwise the first entry. An
// empty catalogue falls back to the provider default (zero profile).
func (d *Dispatcher) selectVoice(ctx context.Context) (tts.VoiceProfile, error) {
	voices, err := d.synth.ListVoices(ctx)
	if err != nil {
		return tts.VoiceProfile{}, err
	}
	if len(voices) == 0 {
		return tts.VoiceProfile{}, nil
	}
	if d.preferredName != "" {
		for _, v := range voices {
			if v.Name == d.preferredName || v.ID == d.preferredName {
				return v, nil
			}
		}
	}
	return voices[0], nil
}
