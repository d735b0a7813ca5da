// Package cache provides the in-memory CacheStore backend, used in
// tests and single-node runs where survival across restarts does not
// matter. The postgres backend in internal/storage/postgres implements
// the same contract.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"tender_watch/internal/domain"
)

// ErrNoEntry is returned by Get when a key has never been put or was
// invalidated.
var ErrNoEntry = errors.New("cache: no entry")

// Memory is a mutex-guarded per-key store. Payloads are copied on both
// put and get, so a reader can never observe a half-written or
// later-mutated slice.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]domain.CacheEntry),
		now:     time.Now,
	}
}

// Get returns the entry for key, whatever its freshness. Validity is
// the caller's call via CacheEntry.Valid.
func (m *Memory) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrNoEntry
	}

	out := entry
	out.Payload = make([]domain.Listing, len(entry.Payload))
	copy(out.Payload, entry.Payload)
	return &out, nil
}

// Put replaces the whole entry for key and stamps it with the current
// time.
func (m *Memory) Put(ctx context.Context, key string, payload []domain.Listing, ttl time.Duration) error {
	stored := make([]domain.Listing, len(payload))
	copy(stored, payload)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = domain.CacheEntry{
		Key:         key,
		Payload:     stored,
		LastUpdated: m.now(),
		TTL:         ttl,
		RecordCount: len(stored),
	}
	return nil
}

// Invalidate removes the entry for key. Removing an absent key is not
// an error.
func (m *Memory) Invalidate(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}
