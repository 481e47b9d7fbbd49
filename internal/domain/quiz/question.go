// Package quiz содержит типы банка вопросов. Банк вопросов - внешний
// коллаборатор: движок прогресса читает вопросы, но никогда их не меняет.
package quiz

import (
	"context"
	"strings"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
)

// QuestionType - тип вопроса.
type QuestionType string

const (
	// TypeMultipleChoice - вопрос с вариантами ответа.
	TypeMultipleChoice QuestionType = "mc"
	// TypeTrueFalse - вопрос верно/неверно.
	TypeTrueFalse QuestionType = "tf"
)

// Difficulty bounds for questions.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Question - один вопрос банка. Read-only для движка.
type Question struct {
	ID            string
	Topic         string
	Difficulty    int // 1..5
	Type          QuestionType
	CorrectAnswer string
	Hints         []string
}

// Validate проверяет корректность вопроса.
func (q Question) Validate() error {
	if q.ID == "" {
		return shared.NewDomainError("quiz", "Validate", shared.ErrInvalidID, "question ID is required")
	}
	if q.Difficulty < MinDifficulty || q.Difficulty > MaxDifficulty {
		return shared.NewDomainError("quiz", "Validate", shared.ErrValueOutOfRange, "difficulty must be between 1 and 5")
	}
	if q.Type != TypeMultipleChoice && q.Type != TypeTrueFalse {
		return shared.ErrInvalidQuestion
	}
	if q.CorrectAnswer == "" {
		return shared.ErrInvalidQuestion
	}
	return nil
}

// CheckAnswer проверяет ответ пользователя. Отсутствующий ответ (таймаут на
// клиенте) всегда неверен. Для true/false сравнение без учёта регистра, для
// multiple choice - точное совпадение ключа варианта.
func (q Question) CheckAnswer(answer *string) bool {
	if answer == nil || *answer == "" {
		return false
	}

	if q.Type == TypeTrueFalse {
		return strings.EqualFold(strings.TrimSpace(*answer), q.CorrectAnswer)
	}

	return strings.TrimSpace(*answer) == q.CorrectAnswer
}

// Repository - доступ к банку вопросов (read-only).
type Repository interface {
	// GetByID возвращает вопрос по идентификатору.
	// Возвращает shared.ErrQuestionNotFound, если вопроса нет.
	GetByID(ctx context.Context, id string) (*Question, error)
}
