// Package livecache provides a concurrency-safe keyed store for the most
// recent value of a frequently updated attribute, with TTL-based eviction.
// It holds last-known rider positions for O(1) live reads.
//
// Reads and writes are short and non-blocking under an RWMutex. A value
// older than the TTL is still readable until evicted; staleness decisions
// belong to the caller, eviction is housekeeping. The store is purely
// in-process: horizontal scaling across processes would need it backed by a
// shared external cache instead.
package livecache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Store is a mutex-protected map of the latest value per key.
type Store[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry[V]
}

// New creates a Store whose entries are evictable once older than ttl.
func New[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
	}
}

// Set overwrites the live value for key.
func (s *Store[V]) Set(key string, value V, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{value: value, storedAt: now}
}

// Get returns the live value and when it was stored. Expired entries are
// still returned until Evict removes them.
func (s *Store[V]) Get(key string) (V, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, time.Time{}, false
	}
	return e.value, e.storedAt, true
}

// Delete removes the entry for key, if present.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Evict removes entries stored more than the TTL before now and returns
// the number removed.
func (s *Store[V]) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for key, e := range s.entries {
		if now.Sub(e.storedAt) > s.ttl {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
