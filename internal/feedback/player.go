package feedback

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Player puts a rendered audio payload on an output device.
//
// Implementations must be safe for concurrent use. The dispatcher plays one
// confirmation at a time, but mute toggles and health probes may race with
// playback.
type Player interface {
	// Play blocks until the payload has been handed to the output device or
	// ctx is cancelled.
	Play(ctx context.Context, audio []byte) error
}

// WriterPlayer writes audio payloads to an [io.Writer] — typically a pipe
// into an external playback process or an audio device file. Writes are
// serialised so interleaved confirmations cannot corrupt the stream.
type WriterPlayer struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Player = (*WriterPlayer)(nil)

// NewWriterPlayer returns a [WriterPlayer] over w.
func NewWriterPlayer(w io.Writer) *WriterPlayer {
	return &WriterPlayer{w: w}
}

// Play writes the payload to the underlying writer.
func (p *WriterPlayer) Play(ctx context.Context, audio []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.w.Write(audio); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return nil
}
