package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps entries in a map under one RWMutex. Expiry is checked at
// read time by wall-clock comparison; expired entries are purged
// opportunistically when the store grows past its bound, so no background
// sweeper runs.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	clock      func() time.Time
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// NewMemoryStore creates an empty store bounded to maxEntries (0 means 4096).
// A nil clock defaults to time.Now.
func NewMemoryStore(maxEntries int, clock func() time.Time) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		clock:      clock,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	now := s.clock()

	s.mu.RLock()
	stored, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return Entry{}, false, nil
	}
	if !stored.expiresAt.After(now) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if current, still := s.entries[key]; still && !current.expiresAt.After(now) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return Entry{}, false, nil
	}
	return stored.entry, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, entry Entry, ttl time.Duration) error {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxEntries {
		s.purgeLocked(now)
	}
	s.entries[key] = memoryEntry{entry: entry, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) InvalidatePrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Name() string { return "memory" }

// Len reports the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// purgeLocked drops expired entries first; if the store is still full it
// evicts the entries closest to expiry to make room.
func (s *MemoryStore) purgeLocked(now time.Time) {
	for key, stored := range s.entries {
		if !stored.expiresAt.After(now) {
			delete(s.entries, key)
		}
	}

	for len(s.entries) >= s.maxEntries {
		var (
			oldestKey string
			oldestAt  time.Time
			found     bool
		)
		for key, stored := range s.entries {
			if !found || stored.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt, found = key, stored.expiresAt, true
			}
		}
		if !found {
			return
		}
		delete(s.entries, oldestKey)
	}
}
