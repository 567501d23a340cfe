package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DeadLetter appends permanently failed jobs to a JSON-lines file so an
// operator can inspect or replay them. Safe for concurrent use.
type DeadLetter struct {
	mu   sync.Mutex
	path string
}

// deadLetterEntry is one line of the dead-letter file.
type deadLetterEntry struct {
	RejectedAt time.Time `json:"rejectedAt"`
	Reason     string    `json:"reason"`
	Job        SaveJob   `json:"job"`
}

// NewDeadLetter creates a dead-letter log writing to path. Parent directories
// are created on first write.
func NewDeadLetter(path string) *DeadLetter {
	return &DeadLetter{path: path}
}

// Record appends job with the given rejection reason.
func (dl *DeadLetter) Record(job SaveJob, reason string) error {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(dl.path), 0o755); err != nil {
		return fmt.Errorf("queue: dead-letter mkdir: %w", err)
	}

	f, err := os.OpenFile(dl.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("queue: open dead-letter file: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(deadLetterEntry{
		RejectedAt: time.Now().UTC(),
		Reason:     reason,
		Job:        job,
	})
	if err != nil {
		return fmt.Errorf("queue: encode dead-letter entry: %w", err)
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("queue: write dead-letter entry: %w", err)
	}
	return nil
}

// Entries reads back every recorded entry. Intended for tests and operator
// tooling, not the hot path.
func (dl *DeadLetter) Entries() ([]SaveJob, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	data, err := os.ReadFile(dl.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: read dead-letter file: %w", err)
	}

	var jobs []SaveJob
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var entry deadLetterEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("queue: decode dead-letter entry: %w", err)
		}
		jobs = append(jobs, entry.Job)
	}
	return jobs, nil
}
