package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements ranked.SessionRepository for PostgreSQL.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

// Create saves a new active session.
func (r *SessionRepository) Create(ctx context.Context, s *ranked.Session) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO ranked_sessions
			(id, user_id, status, total_score, questions_answered, correct_answers,
			 total_time_ms, started_at, ended_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		s.ID,
		s.UserID,
		string(s.Status),
		s.TotalScore,
		s.QuestionsAnswered,
		s.CorrectAnswers,
		s.TotalTimeMs,
		s.StartedAt,
		s.EndedAt,
		s.LastActivityAt,
	)

	if IsUniqueViolation(err) {
		return shared.ErrSessionAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByID returns a session by its identifier.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*ranked.Session, error) {
	var s ranked.Session
	var status string

	err := r.conn.QueryRow(ctx, `
		SELECT id, user_id, status, total_score, questions_answered, correct_answers,
		       total_time_ms, started_at, ended_at, last_activity_at
		FROM ranked_sessions
		WHERE id = $1
	`, id).Scan(
		&s.ID,
		&s.UserID,
		&status,
		&s.TotalScore,
		&s.QuestionsAnswered,
		&s.CorrectAnswers,
		&s.TotalTimeMs,
		&s.StartedAt,
		&s.EndedAt,
		&s.LastActivityAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.Status = ranked.SessionStatus(status)
	return &s, nil
}

// RecordAttempt writes the attempt and the updated session aggregates in one
// transaction. The aggregates are incremented from the attempt itself, not
// written as absolutes: two concurrent submits to the same session (two tabs,
// a rapid resubmit) must both land, and an absolute write computed from a
// pre-transaction read would lose one of them. The status guard in the UPDATE
// rejects writes that raced with a session close.
func (r *SessionRepository) RecordAttempt(ctx context.Context, s *ranked.Session, a ranked.Attempt) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO ranked_attempts
				(id, session_id, question_id, answer, is_correct, time_ms, used_hints, score, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			a.ID,
			a.SessionID,
			a.QuestionID,
			a.Answer,
			a.IsCorrect,
			a.TimeMs,
			a.UsedHints,
			a.Score,
			a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert attempt: %w", err)
		}

		correct := 0
		if a.IsCorrect {
			correct = 1
		}

		tag, err := tx.Exec(ctx, `
			UPDATE ranked_sessions SET
				total_score = total_score + $1,
				questions_answered = questions_answered + 1,
				correct_answers = correct_answers + $2,
				total_time_ms = total_time_ms + $3,
				last_activity_at = $4
			WHERE id = $5 AND status = 'active'
		`,
			a.Score,
			correct,
			a.TimeMs,
			a.CreatedAt,
			a.SessionID,
		)
		if err != nil {
			return fmt.Errorf("failed to update session aggregates: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrSessionInactive
		}

		return nil
	})
}

// End moves the session into its terminal status. Only an active session can
// be moved: once the stale-session sweeper or a concurrent request has closed
// it, the stored status wins and the caller gets shared.ErrSessionInactive.
func (r *SessionRepository) End(ctx context.Context, s *ranked.Session) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE ranked_sessions SET status = $1, ended_at = $2
		WHERE id = $3 AND status = 'active'
	`, string(s.Status), s.EndedAt, s.ID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return shared.ErrSessionInactive
	}

	return nil
}

// ListCompletedEligible returns leaderboard rows for completed sessions with
// enough answered questions, ordered by score then by average time per
// question, ranked from 1.
func (r *SessionRepository) ListCompletedEligible(ctx context.Context, limit int) ([]ranked.Entry, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, user_id, total_score, questions_answered, correct_answers,
		       total_time_ms, ended_at
		FROM ranked_sessions
		WHERE status = 'completed' AND questions_answered >= $1
		ORDER BY total_score DESC, total_time_ms / questions_answered ASC
		LIMIT $2
	`, ranked.MinLeaderboardQuestions, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible sessions: %w", err)
	}
	defer rows.Close()

	var entries []ranked.Entry
	for rows.Next() {
		var e ranked.Entry
		var totalTimeMs int64

		if err := rows.Scan(
			&e.SessionID,
			&e.UserID,
			&e.TotalScore,
			&e.QuestionsAnswered,
			&e.CorrectAnswers,
			&totalTimeMs,
			&e.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}

		e.Accuracy = float64(e.CorrectAnswers) / float64(e.QuestionsAnswered)
		e.AverageTimeMs = totalTimeMs / int64(e.QuestionsAnswered)
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// CloseStale marks active sessions idle for longer than maxIdle as abandoned
// and returns them so the caller can publish events.
func (r *SessionRepository) CloseStale(ctx context.Context, now time.Time, maxIdle time.Duration) ([]*ranked.Session, error) {
	cutoff := now.Add(-maxIdle)

	rows, err := r.conn.Query(ctx, `
		UPDATE ranked_sessions SET status = 'abandoned', ended_at = $1
		WHERE status = 'active' AND last_activity_at < $2
		RETURNING id, user_id, status, total_score, questions_answered, correct_answers,
		          total_time_ms, started_at, ended_at, last_activity_at
	`, now, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to close stale sessions: %w", err)
	}
	defer rows.Close()

	var closed []*ranked.Session
	for rows.Next() {
		var s ranked.Session
		var status string

		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&status,
			&s.TotalScore,
			&s.QuestionsAnswered,
			&s.CorrectAnswers,
			&s.TotalTimeMs,
			&s.StartedAt,
			&s.EndedAt,
			&s.LastActivityAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan closed session: %w", err)
		}

		s.Status = ranked.SessionStatus(status)
		closed = append(closed, &s)
	}

	return closed, rows.Err()
}
