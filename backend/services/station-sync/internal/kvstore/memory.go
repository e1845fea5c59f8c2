package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/bluele/gcache"
)

const defaultMemoryEntries = 1024

// MemoryBackend keeps entries in an LRU cache. Contents are lost on restart.
type MemoryBackend struct {
	cache gcache.Cache
}

// NewMemoryBackend returns an LRU backend holding up to size entries.
func NewMemoryBackend(size int) *MemoryBackend {
	if size <= 0 {
		size = defaultMemoryEntries
	}
	return &MemoryBackend{cache: gcache.New(size).LRU().Build()}
}

// Read implements Backend.
func (m *MemoryBackend) Read(_ context.Context, key string) ([]byte, error) {
	value, err := m.cache.Get(key)
	if err != nil {
		if errors.Is(err, gcache.KeyNotFoundError) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	data, ok := value.([]byte)
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

// Write implements Backend. Expiry is left to Store so lazy eviction stays observable.
func (m *MemoryBackend) Write(_ context.Context, key string, data []byte, _ time.Duration) error {
	copied := make([]byte, len(data))
	copy(copied, data)
	return m.cache.Set(key, copied)
}

// Delete implements Backend.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.cache.Remove(key)
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryBackend) Len() int {
	return m.cache.Len(false)
}
