// Package kvstore persists JSON values with optional expiry on top of a pluggable backend.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrNotFound is returned by backends when a key has no value.
var ErrNotFound = errors.New("kvstore: not found")

// Backend stores raw bytes by key. ttl is a hint; expiry is enforced by Store on read.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type entry struct {
	Value   json.RawMessage `json:"value"`
	Expiry  int64           `json:"expiry,omitempty"`
	Version int             `json:"version"`
}

// Options configures a Store.
type Options struct {
	// Namespace is prepended to every key.
	Namespace string
	// Version is the schema version written into entries; other versions read as misses.
	Version int
	Clock   clockwork.Clock
}

// Store is the persistent key-value cache.
type Store struct {
	backend   Backend
	namespace string
	version   int
	clock     clockwork.Clock
	logger    *zap.Logger
}

// New builds a Store over backend.
func New(backend Backend, opts Options, logger *zap.Logger) *Store {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Version <= 0 {
		opts.Version = 1
	}
	return &Store{
		backend:   backend,
		namespace: opts.Namespace,
		version:   opts.Version,
		clock:     opts.Clock,
		logger:    logger.Named("kvstore"),
	}
}

func (s *Store) key(key string) string {
	return s.namespace + key
}

// Set stores value under key. ttl <= 0 means no expiry.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := entry{Value: raw, Version: s.version}
	if ttl > 0 {
		e.Expiry = s.clock.Now().Add(ttl).UnixMilli()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.backend.Write(ctx, s.key(key), data, ttl)
}

// Get decodes the value stored under key into dst and reports whether it was found.
// On a miss dst is left untouched, so callers pre-fill it with their default.
// Corrupt, expired and version-mismatched entries are misses; the last two are evicted.
func (s *Store) Get(ctx context.Context, key string, dst interface{}) bool {
	data, err := s.backend.Read(ctx, s.key(key))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		s.logger.Warn("corrupt cache entry", zap.String("key", key), zap.Error(err))
		return false
	}

	if e.Version != s.version {
		s.evict(ctx, key, "version mismatch")
		return false
	}
	if e.Expiry > 0 && s.clock.Now().UnixMilli() > e.Expiry {
		s.evict(ctx, key, "expired")
		return false
	}

	if err := json.Unmarshal(e.Value, dst); err != nil {
		s.logger.Warn("corrupt cache value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Remove deletes key unconditionally.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, s.key(key))
}

func (s *Store) evict(ctx context.Context, key, reason string) {
	s.logger.Debug("evicting cache entry", zap.String("key", key), zap.String("reason", reason))
	if err := s.backend.Delete(ctx, s.key(key)); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn("cache evict failed", zap.String("key", key), zap.Error(err))
	}
}

// GetOr returns the value under key, or def on any miss.
func GetOr[T any](ctx context.Context, s *Store, key string, def T) T {
	var value T
	if !s.Get(ctx, key, &value) {
		return def
	}
	return value
}
