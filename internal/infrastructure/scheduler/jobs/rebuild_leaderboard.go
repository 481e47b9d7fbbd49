package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildLeaderboardJob refreshes the cached leaderboard top from the
// session store. The read path already repopulates the cache on a miss;
// this job keeps the cache warm so the first reader after expiry does not
// pay the query.
type RebuildLeaderboardJob struct {
	sessions ranked.SessionRepository
	cache    ranked.LeaderboardCache
	limit    int
	ttl      time.Duration
	logger   *logger.Logger
}

// NewRebuildLeaderboardJob creates a new RebuildLeaderboardJob.
func NewRebuildLeaderboardJob(
	sessions ranked.SessionRepository,
	cache ranked.LeaderboardCache,
	limit int,
	ttl time.Duration,
	log *logger.Logger,
) *RebuildLeaderboardJob {
	if limit <= 0 {
		limit = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &RebuildLeaderboardJob{
		sessions: sessions,
		cache:    cache,
		limit:    limit,
		ttl:      ttl,
		logger:   log,
	}
}

// Name implements scheduler.Job.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild-leaderboard"
}

// Description implements scheduler.Job.
func (j *RebuildLeaderboardJob) Description() string {
	return "refreshes the cached leaderboard top from completed sessions"
}

// Run implements scheduler.Job.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	entries, err := j.sessions.ListCompletedEligible(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("list eligible sessions: %w", err)
	}

	if err := j.cache.SetTop(ctx, entries, j.ttl); err != nil {
		return fmt.Errorf("cache leaderboard top: %w", err)
	}

	j.logger.Debug("leaderboard cache rebuilt", logger.Int("entries", len(entries)))
	return nil
}
