// Package file implements storage.Store on the local filesystem, one file
// per key under a data folder. Intended for single-process deployments.
package file

import (
	"context"
	"encoding/base32"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
	"github.com/day2-ai/frameio-kit/storage"
)

// Store persists values as JSON envelopes. TTL is recorded in the envelope
// and enforced lazily on read.
type Store struct {
	dir string
	mu  sync.Mutex
}

type envelope struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, kiterrors.Wrapf(err, "file.New mkdir %s", dir)
	}
	return &Store{dir: dir}, nil
}

var _ storage.Store = (*Store)(nil)

// path maps a key to a filename. Keys contain ":" separators, so they are
// base32-encoded to stay filesystem-safe.
func (s *Store) path(key string) string {
	name := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(key))
	return filepath.Join(s.dir, name+".json")
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(key, false)
}

func (s *Store) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env := envelope{Value: value}
	if ttl > 0 {
		env.ExpiresAt = time.Now().Add(ttl)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return kiterrors.Wrapf(err, "file.Put marshal %s", key)
	}

	// Write-then-rename so a crash mid-write never leaves a torn record.
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return kiterrors.Wrapf(err, "file.Put write %s", key)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return kiterrors.Wrapf(err, "file.Put rename %s", key)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return kiterrors.Wrapf(err, "file.Delete %s", key)
	}
	return nil
}

func (s *Store) GetDelete(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(key, true)
}

func (s *Store) read(key string, remove bool) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kiterrors.Wrapf(err, "file read %s", key)
	}

	if remove {
		if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
			return nil, false, kiterrors.Wrapf(err, "file remove %s", key)
		}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, kiterrors.Wrapf(err, "file unmarshal %s", key)
	}
	if !env.ExpiresAt.IsZero() && !time.Now().Before(env.ExpiresAt) {
		if !remove {
			_ = os.Remove(s.path(key))
		}
		return nil, false, nil
	}
	return env.Value, true, nil
}
