package helm

import (
	"sync"
	"time"
)

// defaultLogSize bounds the command log; older entries are evicted silently.
const defaultLogSize = 5

// LogEntry is one successfully interpreted command in the session log.
type LogEntry struct {
	// Corrected is the canonical command text after correction.
	Corrected string `json:"correctedCommandText"`

	// Confirmation is the spoken-back confirmation. May be empty when the
	// command produced no confirmation text.
	Confirmation string `json:"confirmationText,omitempty"`

	// At records when the command completed.
	At time.Time `json:"at"`
}

// CommandLog is a bounded most-recent-first log of interpreted commands.
// All methods are safe for concurrent use.
type CommandLog struct {
	mu      sync.RWMutex
	entries []LogEntry
	maxSize int
}

// NewCommandLog creates a log that retains at most maxSize entries.
// A maxSize of zero or less uses the default bound of 5.
func NewCommandLog(maxSize int) *CommandLog {
	if maxSize <= 0 {
		maxSize = defaultLogSize
	}
	return &CommandLog{
		entries: make([]LogEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add prepends an entry, evicting the oldest entry beyond the bound.
func (l *CommandLog) Add(entry LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]LogEntry{entry}, l.entries...)
	if len(l.entries) > l.maxSize {
		l.entries = l.entries[:l.maxSize]
	}
}

// Entries returns a snapshot of the log, most recent first.
func (l *CommandLog) Entries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clear discards all retained entries.
func (l *CommandLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}

// Len returns the number of retained entries.
func (l *CommandLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
