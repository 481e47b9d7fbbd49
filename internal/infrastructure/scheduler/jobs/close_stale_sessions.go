// Package jobs contains the scheduled jobs of the progression engine.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/clock"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLOSE STALE SESSIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// DefaultMaxIdle is how long a ranked session may sit without an attempt
// before the sweeper closes it as abandoned.
const DefaultMaxIdle = 30 * time.Minute

// CloseStaleSessionsJob marks idle active sessions as abandoned. Abandoned
// sessions keep their attempts and score on record but never reach the
// leaderboard.
type CloseStaleSessionsJob struct {
	sessions  ranked.SessionRepository
	publisher shared.EventPublisher
	clock     *clock.Policy
	maxIdle   time.Duration
	logger    *logger.Logger
}

// NewCloseStaleSessionsJob creates a new CloseStaleSessionsJob.
func NewCloseStaleSessionsJob(
	sessions ranked.SessionRepository,
	publisher shared.EventPublisher,
	clk *clock.Policy,
	maxIdle time.Duration,
	log *logger.Logger,
) *CloseStaleSessionsJob {
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}

	return &CloseStaleSessionsJob{
		sessions:  sessions,
		publisher: publisher,
		clock:     clk,
		maxIdle:   maxIdle,
		logger:    log,
	}
}

// Name implements scheduler.Job.
func (j *CloseStaleSessionsJob) Name() string {
	return "close-stale-sessions"
}

// Description implements scheduler.Job.
func (j *CloseStaleSessionsJob) Description() string {
	return "marks ranked sessions idle beyond the threshold as abandoned"
}

// Run implements scheduler.Job.
func (j *CloseStaleSessionsJob) Run(ctx context.Context) error {
	now := j.clock.Now()

	closed, err := j.sessions.CloseStale(ctx, now, j.maxIdle)
	if err != nil {
		return fmt.Errorf("close stale sessions: %w", err)
	}

	if len(closed) == 0 {
		return nil
	}

	for _, s := range closed {
		event := shared.NewSessionEndedEvent(s.ID, s.UserID, s.TotalScore, s.QuestionsAnswered, true)
		if err := j.publisher.Publish(event); err != nil {
			j.logger.Warn("failed to publish session ended event",
				logger.SessionID(s.ID),
				logger.Err(err),
			)
		}
	}

	j.logger.Info("stale sessions closed",
		logger.Int("count", len(closed)),
		logger.Duration("max_idle", j.maxIdle),
	)

	return nil
}
