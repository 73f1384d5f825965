package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schnitzelapp/schnitzel/internal/config"
	"github.com/schnitzelapp/schnitzel/internal/storage"
)

// Store is the blob store backed by the app_state table: one jsonb row
// per key.
type Store struct {
	db *pgxpool.Pool
	// closePool releases the owning pool on Close when the Store was
	// opened through OpenStore.
	closePool func()
}

// NewStore creates a Store over an existing pool. The caller retains
// ownership of the pool.
//
// Precondition: db must be a valid, open connection pool with the
// app_state schema migrated.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// OpenStore connects a pool from cfg and returns a Store that owns it:
// Close releases the pool too.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: pool.DB(), closePool: pool.Close}, nil
}

// Get returns the blob stored at key, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx,
		`SELECT value FROM app_state WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("key %q: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", key, err)
	}
	return value, nil
}

// Put stores value at key, replacing any previous blob.
//
// Precondition: value must be valid JSON; the column is jsonb.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO app_state (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE
		 SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storing %q: %w", key, err)
	}
	return nil
}

// Delete removes the blob at key. Absent keys are a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM app_state WHERE key = $1`, key,
	); err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

// Close releases the pool when the Store owns it.
func (s *Store) Close() error {
	if s.closePool != nil {
		s.closePool()
	}
	return nil
}
