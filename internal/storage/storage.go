// Package storage defines the keyed blob store the application persists
// its state through. Values are JSON documents; backends do not
// interpret them.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Well-known store keys.
const (
	// KeyPlayers holds the known-player roster.
	KeyPlayers = "players"
	// KeyHistory holds finished-game records, newest first.
	KeyHistory = "history"
	// KeySaved holds the paused-game snapshot.
	KeySaved = "saved"
)

// ErrNotFound is returned by Get for keys with no stored value.
var ErrNotFound = errors.New("key not found")

// Store is a keyed JSON-blob store.
type Store interface {
	// Get returns the blob stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value at key, replacing any previous blob.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes the blob at key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// GetJSON decodes the blob at key into v. Returns (false, nil) when the
// key is absent, leaving v untouched.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %q: %w", key, err)
	}
	return true, nil
}

// PutJSON encodes v and stores it at key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	return s.Put(ctx, key, data)
}
