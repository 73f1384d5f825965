// Package file implements the blob store on the local filesystem: one
// JSON file per key under a data directory.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/schnitzelapp/schnitzel/internal/storage"
)

// keyPattern restricts keys to names that are safe as file names.
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Store persists each key as <dir>/<key>.json. Writes go through a
// temp file and rename so a crash mid-write cannot leave a truncated
// blob behind.
type Store struct {
	dir string
}

// New creates the data directory if needed and returns a Store over it.
//
// Precondition: dir must be a writable path.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid store key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Get returns the blob stored at key, or storage.ErrNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("key %q: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return data, nil
}

// Put stores value at key atomically.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %q: %w", path, err)
	}
	return nil
}

// Delete removes the blob at key. Absent keys are a no-op.
func (s *Store) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %q: %w", path, err)
	}
	return nil
}

// Close is a no-op; the Store holds no open handles between calls.
func (s *Store) Close() error { return nil }
