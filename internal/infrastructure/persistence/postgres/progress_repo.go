package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/progression"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progression.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

const progressColumns = `
	user_id, xp, streak_days, longest_streak,
	last_active_date, current_streak_start_date,
	last_streak_milestone_days, last_xp_milestone,
	xp_boost_multiplier, xp_boost_expiry,
	daily_quest_date, daily_quest_correct, daily_quest_completed_date,
	version, created_at, updated_at
`

// Get returns the progress record for a user.
func (r *ProgressRepository) Get(ctx context.Context, userID string) (*progression.UserProgress, error) {
	var p progression.UserProgress

	err := r.conn.QueryRow(ctx, `
		SELECT `+progressColumns+`
		FROM user_progress
		WHERE user_id = $1
	`, userID).Scan(
		&p.UserID,
		&p.XP,
		&p.StreakDays,
		&p.LongestStreak,
		&p.LastActiveDate,
		&p.CurrentStreakStartDate,
		&p.LastStreakMilestoneDays,
		&p.LastXPMilestone,
		&p.XPBoostMultiplier,
		&p.XPBoostExpiry,
		&p.DailyQuestDate,
		&p.DailyQuestCorrect,
		&p.DailyQuestCompletedDate,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}

	return &p, nil
}

// Create inserts a new progress record.
func (r *ProgressRepository) Create(ctx context.Context, p *progression.UserProgress) error {
	now := time.Now().UTC()

	_, err := r.conn.Exec(ctx, `
		INSERT INTO user_progress (`+progressColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		p.UserID,
		p.XP,
		p.StreakDays,
		p.LongestStreak,
		p.LastActiveDate,
		p.CurrentStreakStartDate,
		p.LastStreakMilestoneDays,
		p.LastXPMilestone,
		p.XPBoostMultiplier,
		p.XPBoostExpiry,
		p.DailyQuestDate,
		p.DailyQuestCorrect,
		p.DailyQuestCompletedDate,
		p.Version,
		now,
		now,
	)

	if IsUniqueViolation(err) {
		return shared.ErrProgressAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create user progress: %w", err)
	}

	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// UpdateVersioned applies changes only if the stored version still matches
// the version the caller read. Zero rows affected means another writer got
// there first; the caller re-reads and retries.
func (r *ProgressRepository) UpdateVersioned(ctx context.Context, p *progression.UserProgress) error {
	now := time.Now().UTC()

	tag, err := r.conn.Exec(ctx, `
		UPDATE user_progress SET
			xp = $1,
			streak_days = $2,
			longest_streak = $3,
			last_active_date = $4,
			current_streak_start_date = $5,
			last_streak_milestone_days = $6,
			last_xp_milestone = $7,
			xp_boost_multiplier = $8,
			xp_boost_expiry = $9,
			daily_quest_date = $10,
			daily_quest_correct = $11,
			daily_quest_completed_date = $12,
			version = version + 1,
			updated_at = $13
		WHERE user_id = $14 AND version = $15
	`,
		p.XP,
		p.StreakDays,
		p.LongestStreak,
		p.LastActiveDate,
		p.CurrentStreakStartDate,
		p.LastStreakMilestoneDays,
		p.LastXPMilestone,
		p.XPBoostMultiplier,
		p.XPBoostExpiry,
		p.DailyQuestDate,
		p.DailyQuestCorrect,
		p.DailyQuestCompletedDate,
		now,
		p.UserID,
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update user progress: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return shared.ErrConcurrentModification
	}

	p.Version++
	p.UpdatedAt = now
	return nil
}
