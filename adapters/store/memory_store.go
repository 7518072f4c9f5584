package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/layer-3/barong-iam/core"
	"github.com/layer-3/barong-iam/ports"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the Store interface.
// Entries expire lazily when they are next touched.
type MemoryStore struct {
	data map[string]memoryEntry
	mu   sync.RWMutex
	now  func() time.Time
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock replaces the wall clock used for expiry
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.Store = (*MemoryStore)(nil)

// Set stores a key with a value and expiration time. A non-positive ttl
// stores the key without expiry, matching Redis SET semantics.
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = s.entry(value, ttl)
	return nil
}

// SetNX stores the key only if it is absent or expired
func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.data[key]; ok && !s.expired(e) {
		return false, nil
	}
	s.data[key] = s.entry(value, ttl)
	return true, nil
}

// Get retrieves a value by key
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return "", core.ErrNotFound
	}
	if s.expired(e) {
		s.evict(key, e)
		return "", core.ErrNotFound
	}
	return e.value, nil
}

// Delete removes a key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Exists checks whether a key is present and not expired
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Len returns the number of live entries
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.data {
		if !s.expired(e) {
			n++
		}
	}
	return n
}

// Clear removes all data from the store
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]memoryEntry)
}

func (s *MemoryStore) entry(value string, ttl time.Duration) memoryEntry {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return e
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

// evict deletes key only if it still holds the expired entry we saw
func (s *MemoryStore) evict(key string, seen memoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.data[key]; ok && cur == seen {
		delete(s.data, key)
	}
}
