package utils

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// swapInMemoryCache points the cache seams at a plain map for the duration
// of a test.
func swapInMemoryCache(t *testing.T) map[string][]byte {
	t.Helper()
	store := map[string][]byte{}

	origGet, origSet, origRemove := cacheGet, cacheSet, cacheRemove
	t.Cleanup(func() { cacheGet, cacheSet, cacheRemove = origGet, origSet, origRemove })

	cacheGet = func(key string, dest interface{}) (bool, error) {
		raw, ok := store[key]
		if !ok {
			return false, nil
		}
		if err := json.Unmarshal(raw, dest); err != nil {
			return false, err
		}
		return true, nil
	}
	cacheSet = func(key string, obj interface{}, exp time.Duration) error {
		raw, err := json.Marshal(obj)
		if err != nil {
			return err
		}
		store[key] = raw
		return nil
	}
	cacheRemove = func(keys ...string) error {
		for _, k := range keys {
			delete(store, k)
		}
		return nil
	}
	return store
}

func TestProposalCacheKey(t *testing.T) {
	if got := ProposalCacheKey(42); got != "ProposalView:42" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestGetCacheLifespan(t *testing.T) {
	t.Setenv("CACHE_LIFESPAN_SECONDS", "")
	if got := GetCacheLifespan(); got != 30*time.Second {
		t.Fatalf("default lifespan: got %v, want 30s", got)
	}

	t.Setenv("CACHE_LIFESPAN_SECONDS", "5")
	if got := GetCacheLifespan(); got != 5*time.Second {
		t.Fatalf("lifespan: got %v, want 5s", got)
	}

	t.Setenv("CACHE_LIFESPAN_SECONDS", "-1")
	if got := GetCacheLifespan(); got != 30*time.Second {
		t.Fatalf("negative lifespan must fall back to default, got %v", got)
	}
}

// Without a Redis connection the cache degrades to compute-every-time; it
// must never serve a stale or fabricated value.
func TestGetOrCompute_DegradesWithoutRedis(t *testing.T) {
	var calls int
	compute := func() (*int, error) {
		calls++
		v := calls
		return &v, nil
	}

	for want := 1; want <= 2; want++ {
		got, err := GetOrCompute("test:key", time.Second, compute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *got != want {
			t.Fatalf("expected computed value %d, got %d", want, *got)
		}
	}
	if calls != 2 {
		t.Fatalf("expected compute on every call without redis, got %d", calls)
	}
}

func TestGetOrCompute_PropagatesComputeError(t *testing.T) {
	boom := errors.New("boom")
	_, err := GetOrCompute("test:key", time.Second, func() (*int, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
}

func TestInvalidateProposalCache_NoRedisIsNoop(t *testing.T) {
	if err := InvalidateProposalCache(42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// Cache correctness: hits are served without recomputing, and after an
// invalidation the next read recomputes instead of serving the stale value.
func TestGetOrCompute_ServesCacheUntilInvalidated(t *testing.T) {
	store := swapInMemoryCache(t)
	key := ProposalCacheKey(7)

	var calls int
	compute := func() (*int, error) {
		calls++
		v := 100 + calls
		return &v, nil
	}

	first, err := GetOrCompute(key, time.Minute, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *first != 101 || calls != 1 {
		t.Fatalf("first read: got %d after %d calls", *first, calls)
	}
	if _, ok := store[key]; !ok {
		t.Fatal("computed value was not stored")
	}

	second, err := GetOrCompute(key, time.Minute, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *second != 101 || calls != 1 {
		t.Fatalf("hit must not recompute: got %d after %d calls", *second, calls)
	}

	if err := InvalidateProposalCache(7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store[key]; ok {
		t.Fatal("invalidation left the key behind")
	}

	third, err := GetOrCompute(key, time.Minute, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *third != 102 || calls != 2 {
		t.Fatalf("post-invalidation read must recompute: got %d after %d calls", *third, calls)
	}
}
