package postgres

import (
	"context"
	"fmt"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/quiz"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// QuestionRepository implements quiz.Repository for PostgreSQL.
// Read-only: rows are managed by the content pipeline, not by this service.
type QuestionRepository struct {
	conn *Connection
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(conn *Connection) *QuestionRepository {
	return &QuestionRepository{conn: conn}
}

// GetByID returns a question by its identifier.
func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*quiz.Question, error) {
	var q quiz.Question
	var questionType string

	err := r.conn.QueryRow(ctx, `
		SELECT id, topic, difficulty, question_type, correct_answer, hints
		FROM questions
		WHERE id = $1
	`, id).Scan(
		&q.ID,
		&q.Topic,
		&q.Difficulty,
		&questionType,
		&q.CorrectAnswer,
		&q.Hints,
	)

	if IsNoRows(err) {
		return nil, shared.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	q.Type = quiz.QuestionType(questionType)
	return &q, nil
}
