package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Ash-333/nepse-data/models"
)

// ErrCacheMiss is returned when no usable entry exists for a key
var ErrCacheMiss = errors.New("cache miss")

// CacheStore persists cached upstream payloads. Get returns (nil, nil) on
// a miss. Upsert replaces the entry wholesale.
type CacheStore interface {
	Get(ctx context.Context, key string) (*models.CacheEntry, error)
	Upsert(ctx context.Context, key string, payload json.RawMessage, fetchedAt time.Time) error
}

// JSONFetcher fetches a JSON payload from an upstream URL
type JSONFetcher interface {
	FetchJSON(ctx context.Context, url string) (json.RawMessage, error)
}

// CacheService is the fetch-or-cache layer shared by the scheduled jobs and
// the request handlers. Values are wholesale snapshots, so a concurrent
// last-writer-wins upsert on the same key is harmless.
type CacheService struct {
	store   CacheStore
	fetcher JSONFetcher
	clock   Clock
}

// NewCacheService wires a cache store, a fetcher and a clock
func NewCacheService(store CacheStore, fetcher JSONFetcher, clock Clock) *CacheService {
	return &CacheService{
		store:   store,
		fetcher: fetcher,
		clock:   clock,
	}
}

// GetOrFetch returns the cached payload for key if it is younger than ttl,
// otherwise fetches url, stores the fresh payload and returns it. On fetch
// failure the existing entry is left untouched and the error is returned;
// whether to fall back to the stale value is the caller's decision.
func (s *CacheService) GetOrFetch(ctx context.Context, key, url string, ttl time.Duration) (json.RawMessage, error) {
	now := s.clock.Now()

	entry, err := s.store.Get(ctx, key)
	if err != nil {
		// A broken store read degrades to a fetch, not a failure
		log.Printf("Cache read failed for %s: %v", key, err)
	} else if entry != nil && now.Sub(entry.FetchedAt) < ttl {
		return entry.Payload, nil
	}

	payload, err := s.fetcher.FetchJSON(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := s.store.Upsert(ctx, key, payload, now); err != nil {
		// The fresh payload is still good even if persisting it failed
		log.Printf("Cache upsert failed for %s: %v", key, err)
	}
	return payload, nil
}

// GetCached returns the cached payload for key without touching the
// network. maxAge <= 0 accepts an entry of any age (stale serving);
// otherwise entries older than maxAge count as a miss.
func (s *CacheService) GetCached(ctx context.Context, key string, maxAge time.Duration) (json.RawMessage, error) {
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrCacheMiss
	}
	if maxAge > 0 && s.clock.Now().Sub(entry.FetchedAt) >= maxAge {
		return nil, ErrCacheMiss
	}
	return entry.Payload, nil
}

// MemoryCacheStore is an in-process CacheStore. Used when neither MongoDB
// nor a local cache database is configured, and by tests.
type MemoryCacheStore struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
}

// NewMemoryCacheStore creates an empty in-memory store
func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{
		entries: make(map[string]models.CacheEntry),
	}
}

func (m *MemoryCacheStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (m *MemoryCacheStore) Upsert(ctx context.Context, key string, payload json.RawMessage, fetchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = models.CacheEntry{
		Key:       key,
		Payload:   append(json.RawMessage(nil), payload...),
		FetchedAt: fetchedAt,
	}
	return nil
}
