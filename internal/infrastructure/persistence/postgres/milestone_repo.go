package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/progression"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT LEDGER IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementLedger implements progression.AchievementLedger for PostgreSQL.
type AchievementLedger struct {
	conn *Connection
}

// NewAchievementLedger creates a new AchievementLedger.
func NewAchievementLedger(conn *Connection) *AchievementLedger {
	return &AchievementLedger{conn: conn}
}

// Insert appends a reward record. The unique constraint on
// (user_id, milestone_id) decides who wins between concurrent grants;
// the loser gets shared.ErrMilestoneAlreadyGranted.
func (l *AchievementLedger) Insert(ctx context.Context, a progression.Achievement) error {
	tag, err := l.conn.Exec(ctx, `
		INSERT INTO user_milestone_achievements
			(id, user_id, milestone_id, milestone_type, achieved_at,
			 granted_multiplier, granted_hints, boost_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, milestone_id) DO NOTHING
	`,
		a.ID,
		a.UserID,
		a.MilestoneID,
		string(a.Type),
		a.AchievedAt,
		a.GrantedMultiplier,
		a.GrantedHints,
		a.BoostExpiry,
	)
	if err != nil {
		return fmt.Errorf("failed to insert achievement: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return shared.ErrMilestoneAlreadyGranted
	}

	return nil
}

// ListByUser returns all rewards granted to a user, newest first.
func (l *AchievementLedger) ListByUser(ctx context.Context, userID string) ([]progression.Achievement, error) {
	rows, err := l.conn.Query(ctx, `
		SELECT id, user_id, milestone_id, milestone_type, achieved_at,
		       granted_multiplier, granted_hints, boost_expiry
		FROM user_milestone_achievements
		WHERE user_id = $1
		ORDER BY achieved_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var achievements []progression.Achievement
	for rows.Next() {
		var a progression.Achievement
		var milestoneType string

		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.MilestoneID,
			&milestoneType,
			&a.AchievedAt,
			&a.GrantedMultiplier,
			&a.GrantedHints,
			&a.BoostExpiry,
		); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}

		a.Type = progression.MilestoneType(milestoneType)
		achievements = append(achievements, a)
	}

	return achievements, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// MILESTONE CONFIG SOURCE
// ══════════════════════════════════════════════════════════════════════════════

// MilestoneConfigSource implements progression.ConfigSource for PostgreSQL.
// If the config tables are empty it seeds them with the built-in defaults,
// so a fresh database is usable without an extra provisioning step.
type MilestoneConfigSource struct {
	conn *Connection
}

// NewMilestoneConfigSource creates a new MilestoneConfigSource.
func NewMilestoneConfigSource(conn *Connection) *MilestoneConfigSource {
	return &MilestoneConfigSource{conn: conn}
}

// Load returns the milestone configuration, seeding defaults on first run.
func (s *MilestoneConfigSource) Load(ctx context.Context) (progression.Config, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return progression.Config{}, err
	}

	if cfg.Version == 0 {
		if err := s.seed(ctx, progression.DefaultConfig()); err != nil {
			return progression.Config{}, err
		}
		cfg, err = s.load(ctx)
		if err != nil {
			return progression.Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return progression.Config{}, fmt.Errorf("stored milestone config is invalid: %w", err)
	}

	return cfg, nil
}

func (s *MilestoneConfigSource) load(ctx context.Context) (progression.Config, error) {
	var cfg progression.Config

	err := s.conn.QueryRow(ctx, `SELECT version FROM milestone_config WHERE id = 1`).Scan(&cfg.Version)
	if IsNoRows(err) {
		return progression.Config{}, nil
	}
	if err != nil {
		return progression.Config{}, fmt.Errorf("failed to load config version: %w", err)
	}

	rows, err := s.conn.Query(ctx, `
		SELECT id, days_required, xp_boost_multiplier, boost_duration_hours, reward_text
		FROM streak_milestones
		ORDER BY days_required
	`)
	if err != nil {
		return progression.Config{}, fmt.Errorf("failed to load streak milestones: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m progression.StreakMilestone
		if err := rows.Scan(&m.ID, &m.DaysRequired, &m.XPBoostMultiplier, &m.BoostDurationHrs, &m.RewardText); err != nil {
			return progression.Config{}, fmt.Errorf("failed to scan streak milestone: %w", err)
		}
		cfg.Streak = append(cfg.Streak, m)
	}
	if err := rows.Err(); err != nil {
		return progression.Config{}, err
	}

	xpRows, err := s.conn.Query(ctx, `
		SELECT id, xp_required, free_hints, reward_text
		FROM xp_milestones
		ORDER BY xp_required
	`)
	if err != nil {
		return progression.Config{}, fmt.Errorf("failed to load xp milestones: %w", err)
	}
	defer xpRows.Close()

	for xpRows.Next() {
		var m progression.XPMilestone
		if err := xpRows.Scan(&m.ID, &m.XPRequired, &m.FreeHints, &m.RewardText); err != nil {
			return progression.Config{}, fmt.Errorf("failed to scan xp milestone: %w", err)
		}
		cfg.XP = append(cfg.XP, m)
	}

	return cfg, xpRows.Err()
}

func (s *MilestoneConfigSource) seed(ctx context.Context, cfg progression.Config) error {
	return s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO milestone_config (id, version) VALUES (1, $1)
			ON CONFLICT (id) DO NOTHING
		`, cfg.Version)
		if err != nil {
			return fmt.Errorf("failed to seed config version: %w", err)
		}

		for _, m := range cfg.Streak {
			_, err := tx.Exec(ctx, `
				INSERT INTO streak_milestones
					(id, days_required, xp_boost_multiplier, boost_duration_hours, reward_text)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO NOTHING
			`, m.ID, m.DaysRequired, m.XPBoostMultiplier, m.BoostDurationHrs, m.RewardText)
			if err != nil {
				return fmt.Errorf("failed to seed streak milestone %q: %w", m.ID, err)
			}
		}

		for _, m := range cfg.XP {
			_, err := tx.Exec(ctx, `
				INSERT INTO xp_milestones (id, xp_required, free_hints, reward_text)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO NOTHING
			`, m.ID, m.XPRequired, m.FreeHints, m.RewardText)
			if err != nil {
				return fmt.Errorf("failed to seed xp milestone %q: %w", m.ID, err)
			}
		}

		return nil
	})
}
