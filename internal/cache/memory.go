package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryStore keeps entries in process with optional expiry and size bound.
type memoryStore struct {
	mu         sync.Mutex
	items      *gocache.Cache
	maxEntries int
	seq        uint64
}

// entry carries its write sequence so eviction can find the oldest write.
type entry struct {
	value string
	seq   uint64
}

func newMemoryStore(ttl time.Duration, maxEntries int) *memoryStore {
	expiration := ttl
	cleanup := ttl
	if ttl <= 0 {
		expiration = gocache.NoExpiration
		cleanup = 0
	}
	return &memoryStore{
		items:      gocache.New(expiration, cleanup),
		maxEntries: maxEntries,
	}
}

// Get implements Store.
func (s *memoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return "", false, nil
	}
	e, ok := v.(entry)
	return e.value, ok, nil
}

// Put implements Store.
func (s *memoryStore) Put(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxEntries > 0 {
		if _, exists := s.items.Get(key); !exists {
			s.items.DeleteExpired()
			for s.items.ItemCount() >= s.maxEntries {
				if !s.evictOldest() {
					break
				}
			}
		}
	}

	s.seq++
	s.items.SetDefault(key, entry{value: value, seq: s.seq})
	return nil
}

// evictOldest drops the least recently written entry and reports whether
// one was found.
func (s *memoryStore) evictOldest() bool {
	var (
		oldestKey string
		oldestSeq uint64
		found     bool
	)
	for k, item := range s.items.Items() {
		e, ok := item.Object.(entry)
		if !ok {
			continue
		}
		if !found || e.seq < oldestSeq {
			oldestKey, oldestSeq, found = k, e.seq, true
		}
	}
	if !found {
		// Only expired entries were counted; nothing left to evict.
		s.items.Flush()
		return false
	}
	s.items.Delete(oldestKey)
	return true
}

// Len implements Store.
func (s *memoryStore) Len(ctx context.Context) int {
	return len(s.items.Items())
}

// Close implements Store.
func (s *memoryStore) Close() error {
	s.items.Flush()
	return nil
}
