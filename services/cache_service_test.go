package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu       sync.Mutex
	payloads map[string]json.RawMessage
	errs     map[string]error
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		payloads: make(map[string]json.RawMessage),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeFetcher) FetchJSON(ctx context.Context, url string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if payload, ok := f.payloads[url]; ok {
		return payload, nil
	}
	return nil, fmt.Errorf("no payload configured for %s", url)
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func TestGetOrFetchServesFreshEntryWithoutFetching(t *testing.T) {
	clock := &FixedClock{Current: time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)}
	fetcher := newFakeFetcher()
	fetcher.payloads["http://feed"] = json.RawMessage(`{"v":1}`)
	svc := NewCacheService(NewMemoryCacheStore(), fetcher, clock)

	ttl := 5 * time.Minute
	first, err := svc.GetOrFetch(context.Background(), "k", "http://feed", ttl)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(first))
	assert.Equal(t, 1, fetcher.callCount("http://feed"))

	// Upstream changes, but the cached value stays until the TTL passes
	fetcher.payloads["http://feed"] = json.RawMessage(`{"v":2}`)

	clock.Advance(ttl - time.Second)
	second, err := svc.GetOrFetch(context.Background(), "k", "http://feed", ttl)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(second))
	assert.Equal(t, 1, fetcher.callCount("http://feed"))
}

func TestGetOrFetchRefetchesExactlyAtTTL(t *testing.T) {
	clock := &FixedClock{Current: time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)}
	fetcher := newFakeFetcher()
	fetcher.payloads["http://feed"] = json.RawMessage(`{"v":1}`)
	svc := NewCacheService(NewMemoryCacheStore(), fetcher, clock)

	ttl := 5 * time.Minute
	_, err := svc.GetOrFetch(context.Background(), "k", "http://feed", ttl)
	require.NoError(t, err)

	fetcher.payloads["http://feed"] = json.RawMessage(`{"v":2}`)

	// Age == TTL is no longer fresh
	clock.Advance(ttl)
	payload, err := svc.GetOrFetch(context.Background(), "k", "http://feed", ttl)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(payload))
	assert.Equal(t, 2, fetcher.callCount("http://feed"))
}

func TestGetOrFetchKeepsStaleEntryOnFetchFailure(t *testing.T) {
	clock := &FixedClock{Current: time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)}
	fetcher := newFakeFetcher()
	fetcher.payloads["http://feed"] = json.RawMessage(`{"v":1}`)
	store := NewMemoryCacheStore()
	svc := NewCacheService(store, fetcher, clock)

	ttl := 5 * time.Minute
	_, err := svc.GetOrFetch(context.Background(), "k", "http://feed", ttl)
	require.NoError(t, err)

	fetcher.errs["http://feed"] = fmt.Errorf("upstream down")
	clock.Advance(ttl + time.Minute)

	_, err = svc.GetOrFetch(context.Background(), "k", "http://feed", ttl)
	require.Error(t, err)

	// The last good value is still available for stale serving
	stale, err := svc.GetCached(context.Background(), "k", 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(stale))
}

func TestGetCachedMissAndMaxAge(t *testing.T) {
	clock := &FixedClock{Current: time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)}
	store := NewMemoryCacheStore()
	svc := NewCacheService(store, newFakeFetcher(), clock)

	_, err := svc.GetCached(context.Background(), "missing", 0)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, store.Upsert(context.Background(), "k", json.RawMessage(`{}`), clock.Now()))
	clock.Advance(10 * time.Minute)

	_, err = svc.GetCached(context.Background(), "k", 5*time.Minute)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	payload, err := svc.GetCached(context.Background(), "k", 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(payload))
}

func TestMemoryCacheStoreCopiesPayload(t *testing.T) {
	store := NewMemoryCacheStore()
	payload := []byte(`{"a":1}`)
	require.NoError(t, store.Upsert(context.Background(), "k", payload, time.Now()))

	payload[2] = 'b'

	entry, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.JSONEq(t, `{"a":1}`, string(entry.Payload))
}
