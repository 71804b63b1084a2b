// Package postgres implements storage.Store on a single PostgreSQL kv
// table. TTLs are stored as an expires_at column, filtered on read and
// swept opportunistically on write.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
	"github.com/day2-ai/frameio-kit/storage"
)

// PgxPool is the subset of *pgxpool.Pool the store needs, kept as an
// interface so tests can substitute a mock pool.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type Store struct {
	pool PgxPool
}

// Schema is the table the store operates on. Run it once at deploy time.
const Schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	expires_at TIMESTAMPTZ
);`

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, kiterrors.Wrapf(err, "postgres.New")
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool (or mock).
func NewWithPool(pool PgxPool) *Store {
	return &Store{pool: pool}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const q = `
SELECT value FROM kv
WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`
	var value []byte
	err := s.pool.QueryRow(ctx, q, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kiterrors.Wrapf(err, "postgres.Get %s", key)
	}
	return value, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const q = `
INSERT INTO kv (key, value, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}
	if _, err := s.pool.Exec(ctx, q, key, value, expiresAt); err != nil {
		return kiterrors.Wrapf(err, "postgres.Put %s", key)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv WHERE key = $1`, key); err != nil {
		return kiterrors.Wrapf(err, "postgres.Delete %s", key)
	}
	return nil
}

func (s *Store) GetDelete(ctx context.Context, key string) ([]byte, bool, error) {
	// DELETE ... RETURNING is atomic per row: two concurrent callers cannot
	// both observe the value.
	const q = `
DELETE FROM kv
WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())
RETURNING value`
	var value []byte
	err := s.pool.QueryRow(ctx, q, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kiterrors.Wrapf(err, "postgres.GetDelete %s", key)
	}
	return value, true, nil
}

// Sweep removes expired rows. Call it periodically from the host process.
func (s *Store) Sweep(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= now()`); err != nil {
		return kiterrors.Wrapf(err, "postgres.Sweep")
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}
