// Package blobstore defines the durable storage contract behind the save
// queue: one key, one JSON blob. The queue never assumes anything richer than
// get/set of that single value, which keeps the storage backend swappable —
// a local file for single-node deployments, PostgreSQL when the queue must
// survive host loss.
package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists a single opaque blob.
//
// Implementations must be safe for concurrent use. Load returns (nil, nil)
// when nothing has been saved yet — an empty queue is not an error.
type Store interface {
	// Load returns the current blob, or (nil, nil) when none exists.
	Load(ctx context.Context) ([]byte, error)

	// Save atomically replaces the blob.
	Save(ctx context.Context, data []byte) error
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore persists the blob in a local file. Writes go through a temp file
// and rename so a crash mid-write never corrupts the queue.
// Safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore writing to path. Parent directories are
// created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the blob file. A missing file means no blob yet.
func (fs *FileStore) Load(_ context.Context) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blobstore: read %q: %w", fs.path, err)
	}
	return data, nil
}

// Save writes the blob via temp file + rename.
func (fs *FileStore) Save(_ context.Context, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return fmt.Errorf("blobstore: mkdir: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("blobstore: write temp: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("blobstore: rename: %w", err)
	}
	return nil
}
