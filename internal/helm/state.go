// Package helm owns the authoritative ship-control state and the command
// pipeline that mutates it: raw transcript in, corrected command, structured
// state delta, merged state, and spoken confirmation out.
//
// The package defines the pipeline's collaborator interfaces (Corrector,
// Interpreter, Speaker) and accepts any implementation; production wiring
// lives in internal/app.
package helm

import "sync"

// Ship-control field ranges. Interpreter output outside these bounds is
// rejected, never clamped.
const (
	MinRudderAngle = -35
	MaxRudderAngle = 35

	MinSpeed = -100
	MaxSpeed = 110

	MaxCourse = 360 // exclusive
)

// ShipState is the authoritative ship-control record. All fields are always
// in range; the only mutator is the merge operation.
type ShipState struct {
	// RudderAngle is the rudder deflection in degrees, negative = left.
	RudderAngle int `json:"rudderAngleDegrees"`

	// Course is the ordered compass course in degrees, [0, 360).
	Course float64 `json:"courseDegrees"`

	// Speed is the engine-order telegraph percentage, [-100, 110],
	// negative = astern.
	Speed int `json:"speedPercent"`
}

// StateDelta is a partial state update produced by the interpreter. A nil
// field means "no change requested" — zero is a valid explicit value
// (amidships, all stop) and must stay distinguishable from "unspecified".
type StateDelta struct {
	RudderAngle *int     `json:"rudderAngleDegrees"`
	Course      *float64 `json:"courseDegrees"`
	Speed       *int     `json:"speedPercent"`
}

// IsZero reports whether the delta requests no change in any field.
func (d StateDelta) IsZero() bool {
	return d.RudderAngle == nil && d.Course == nil && d.Speed == nil
}

// Merge applies delta to state: each present field replaces, each absent
// field carries over. Merge is pure; atomicity comes from the single-flight
// gate, which guarantees no two merges ever interleave.
func Merge(state ShipState, delta StateDelta) ShipState {
	if delta.RudderAngle != nil {
		state.RudderAngle = *delta.RudderAngle
	}
	if delta.Course != nil {
		state.Course = *delta.Course
	}
	if delta.Speed != nil {
		state.Speed = *delta.Speed
	}
	return state
}

// StateStore holds the session's ShipState. Reads may come from the HTTP
// boundary at any time, so access is guarded even though merges themselves
// are serialized by the pipeline gate.
type StateStore struct {
	mu    sync.RWMutex
	state ShipState
}

// NewStateStore returns a store holding the all-zero starting state.
func NewStateStore() *StateStore {
	return &StateStore{}
}

// Current returns a snapshot of the state.
func (s *StateStore) Current() ShipState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply merges delta into the stored state and returns the result.
func (s *StateStore) Apply(delta StateDelta) ShipState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Merge(s.state, delta)
	return s.state
}

// Reset returns the state to all-zero values.
func (s *StateStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ShipState{}
}
