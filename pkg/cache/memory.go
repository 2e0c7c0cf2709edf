package cache

import (
	"context"
	"errors"
	"sync"
)

// ErrMiss indicates the requested key was not found or has expired.
var ErrMiss = errors.New("cache miss")

// Store is one backing tier of the cache service.
type Store interface {
	// Name identifies the tier in logs and metrics.
	Name() string

	// Get retrieves an entry. Returns ErrMiss if absent or expired.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores an entry for the entry's TTL.
	Set(ctx context.Context, key string, entry *Entry) error
}

// MemoryStore is the process-local tier. It is always available and acts as
// the fallback when no networked tier is configured. Expiry is enforced
// explicitly on read since a plain map has no eviction of its own.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*Entry
}

// NewMemoryStore creates an empty in-process tier.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*Entry),
	}
}

// Name implements Store.
func (s *MemoryStore) Name() string { return "memory" }

// Get implements Store. Expired entries are removed and reported as a miss.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if entry.Expired() {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return nil, ErrMiss
	}
	return entry, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry
	return nil
}

// Len returns the number of stored entries, including not-yet-collected
// expired ones.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
