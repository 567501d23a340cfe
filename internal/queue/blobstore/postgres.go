package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// blobSchema creates the single-key blob table. Idempotent.
const blobSchema = `
CREATE TABLE IF NOT EXISTS scribeline_blobs (
    key        TEXT PRIMARY KEY,
    data       BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists the blob in a one-row PostgreSQL table, keyed by a
// deployment-chosen name so several scribeline instances can share a
// database. Safe for concurrent use — pgxpool handles connection
// synchronisation and each operation is a single statement.
type PostgresStore struct {
	pool *pgxpool.Pool
	key  string
}

// NewPostgresStore connects to the database at dsn, ensures the blob table
// exists, and returns a store bound to key.
func NewPostgresStore(ctx context.Context, dsn, key string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("blobstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("blobstore: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, blobSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("blobstore: migrate: %w", err)
	}
	return &PostgresStore{pool: pool, key: key}, nil
}

// Load fetches the blob row. A missing row means no blob yet.
func (s *PostgresStore) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM scribeline_blobs WHERE key = $1`, s.key,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blobstore: load %q: %w", s.key, err)
	}
	return data, nil
}

// Save upserts the blob row.
func (s *PostgresStore) Save(ctx context.Context, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scribeline_blobs (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		s.key, data,
	)
	if err != nil {
		return fmt.Errorf("blobstore: save %q: %w", s.key, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping probes database connectivity. Used by the readiness handler.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
