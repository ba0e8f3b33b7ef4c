package consistency

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/proposals_backend/config"
)

const (
	proposalLockTTL   = 30 * time.Second
	proposalLockRetry = 100 * time.Millisecond
)

// WithProposalLock runs fn under a per-proposal advisory lock. The engine
// itself never serializes same-id calls; callers that need mutual exclusion
// (the audit worker does) wrap their sync in this.
func WithProposalLock(ctx context.Context, proposalId int, fn func(ctx context.Context) error) error {
	locker := config.GetRedisLock()
	if locker == nil {
		// Redis down: degraded mode, run unlocked rather than blocking
		// relational-side work.
		config.GetLogger().WithField("proposalId", proposalId).
			Warn("redis lock unavailable; running sync without advisory lock")
		return fn(ctx)
	}

	key := fmt.Sprintf("proposal-sync:%d", proposalId)
	lock, err := locker.Obtain(ctx, key, proposalLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(proposalLockRetry), 50),
	})
	if err != nil {
		return fmt.Errorf("could not acquire sync lock for proposal %d: %w", proposalId, err)
	}
	defer lock.Release(ctx)

	return fn(ctx)
}
