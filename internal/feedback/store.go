package feedback

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/MrWong99/helmsman/internal/helm"
)

// Compile-time interface check.
var _ helm.Auditor = (*FileStore)(nil)

// Record is a single applied command written to the audit file.
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	Raw          string    `json:"raw"`
	Corrected    string    `json:"corrected"`
	Confirmation string    `json:"confirmation,omitempty"`
	Rudder       int       `json:"rudderAngleDegrees"`
	Course       float64   `json:"courseDegrees"`
	Speed        int       `json:"speedPercent"`
}

// FileStore persists an append-only JSON-lines audit trail of applied helm
// commands, one record per line. The in-memory command log is bounded and
// resettable; the file is neither, so a watch officer can reconstruct what
// was ordered after the fact.
//
// Thread-safe for concurrent use. Suitable for a single station; a fleet
// deployment would want a database behind the same interface.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore that writes to the given path.
// The file is created on first write if it does not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Audit appends the result of an applied command to the file.
func (fs *FileStore) Audit(result helm.Result) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	record := Record{
		Timestamp:    time.Now().UTC(),
		Raw:          result.Raw,
		Corrected:    result.Corrected,
		Confirmation: result.Confirmation,
		Rudder:       result.State.RudderAngle,
		Course:       result.State.Course,
		Speed:        result.State.Speed,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("audit: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("audit: write: %w", err)
	}
	return nil
}
