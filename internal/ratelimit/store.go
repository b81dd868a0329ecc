package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/reviewinn/backend/internal/cache"
)

// CacheStore persists buckets in the shared cache. Load failures read as
// absent, so an unreachable cache degrades to fresh full buckets rather
// than rejecting traffic.
type CacheStore struct {
	cache *cache.Store
}

// NewCacheStore wraps the cache adapter as a bucket store.
func NewCacheStore(c *cache.Store) *CacheStore {
	return &CacheStore{cache: c}
}

func (s *CacheStore) GetBucket(ctx context.Context, key string) (*Bucket, bool) {
	var b Bucket
	if !s.cache.GetJSON(ctx, key, &b) {
		return nil, false
	}
	return &b, true
}

func (s *CacheStore) PutBucket(ctx context.Context, key string, b *Bucket, ttl time.Duration) {
	s.cache.Set(ctx, key, b, ttl)
}

// MemoryStore is a process-local bucket store, used when no cache is
// configured and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]memoryEntry
}

type memoryEntry struct {
	bucket    Bucket
	expiresAt time.Time
}

// NewMemoryStore builds an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]memoryEntry)}
}

func (s *MemoryStore) GetBucket(ctx context.Context, key string) (*Bucket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.buckets[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.buckets, key)
		return nil, false
	}
	b := entry.bucket
	return &b, true
}

func (s *MemoryStore) PutBucket(ctx context.Context, key string, b *Bucket, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[key] = memoryEntry{bucket: *b, expiresAt: time.Now().Add(ttl)}
}
