// Package mock provides test doubles for the stt.Provider and
// stt.SessionHandle interfaces.
//
// Tests push canned transcripts through Session.EmitFinal to simulate live
// speech capture without a network connection.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/MrWong99/helmsman/pkg/provider/stt"
)

// Session is a mock stt.SessionHandle. Use EmitPartial and EmitFinal to feed
// transcripts to the consumer under test.
type Session struct {
	mu     sync.Mutex
	closed bool

	partials chan stt.Transcript
	finals   chan stt.Transcript

	// AudioChunks records every chunk passed to SendAudio.
	AudioChunks [][]byte
}

// Compile-time interface assertions.
var (
	_ stt.SessionHandle = (*Session)(nil)
	_ stt.Provider      = (*Provider)(nil)
)

// NewSession creates an open mock session.
func NewSession() *Session {
	return &Session{
		partials: make(chan stt.Transcript, 16),
		finals:   make(chan stt.Transcript, 16),
	}
}

// EmitPartial delivers an interim transcript to the consumer.
func (s *Session) EmitPartial(text string) {
	s.partials <- stt.Transcript{Text: text}
}

// EmitFinal delivers a final transcript to the consumer.
func (s *Session) EmitFinal(text string) {
	s.finals <- stt.Transcript{Text: text, IsFinal: true, Confidence: 1}
}

// SendAudio implements stt.SessionHandle.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("mock: session is closed")
	}
	s.AudioChunks = append(s.AudioChunks, chunk)
	return nil
}

// Partials implements stt.SessionHandle.
func (s *Session) Partials() <-chan stt.Transcript { return s.partials }

// Finals implements stt.SessionHandle.
func (s *Session) Finals() <-chan stt.Transcript { return s.finals }

// Close implements stt.SessionHandle.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.partials)
		close(s.finals)
	}
	return nil
}

// Provider is a mock stt.Provider returning a pre-built Session.
type Provider struct {
	// Session is returned by StartStream. When nil, a fresh one is created.
	Session *Session

	// StartErr, if non-nil, is returned as the error from StartStream.
	StartErr error

	// StartCalls records every StreamConfig passed to StartStream.
	StartCalls []stt.StreamConfig
}

// StartStream implements stt.Provider.
func (p *Provider) StartStream(_ context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	p.StartCalls = append(p.StartCalls, cfg)
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	if p.Session == nil {
		p.Session = NewSession()
	}
	return p.Session, nil
}
