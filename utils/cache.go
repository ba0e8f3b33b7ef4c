package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mmdatafocus/proposals_backend/config"
)

// Seams over the Redis helpers so the cache contract is testable without a
// running Redis.
var (
	cacheGet    = config.GetRedisObject
	cacheSet    = config.SetRedisObject
	cacheRemove = config.RemoveRedisKey
)

// ProposalCacheKey is the single cache key per proposal. Every write path
// that touches the proposal (either store) must remove this key before
// returning; staleness beyond one write cycle is a defect here, not a
// trade-off.
func ProposalCacheKey(proposalId int) string {
	return "ProposalView:" + fmt.Sprint(proposalId)
}

// GetCacheLifespan is a short TTL (seconds); reconciliation results are only
// worth caching across a burst of hot reads.
func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN_SECONDS"))
	if err != nil || lifespan <= 0 {
		lifespan = 30
	}
	return time.Duration(lifespan) * time.Second
}

// GetOrCompute returns the cached value for key when present, otherwise
// calls compute, stores the result with the given TTL and returns it.
// Redis being down degrades to compute-every-time; it never blocks reads.
func GetOrCompute[T any](key string, ttl time.Duration, compute func() (*T, error)) (*T, error) {
	var cached *T
	exists, err := cacheGet(key, &cached)
	if err == nil && exists && cached != nil {
		return cached, nil
	}
	if err != nil {
		config.GetLogger().WithField("key", key).Warnf("cache read failed, recomputing: %v", err)
	}

	result, err := compute()
	if err != nil {
		return nil, err
	}
	if err := cacheSet(key, result, ttl); err != nil {
		config.GetLogger().WithField("key", key).Warnf("cache write failed: %v", err)
	}
	return result, nil
}

// InvalidateProposalCache removes the proposal's cached view.
func InvalidateProposalCache(proposalId int) error {
	return cacheRemove(ProposalCacheKey(proposalId))
}
