package ranked

import (
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
)

// SessionStatus - статус рейтинговой сессии.
type SessionStatus string

const (
	// StatusActive - сессия принимает попытки.
	StatusActive SessionStatus = "active"
	// StatusCompleted - сессия завершена пользователем.
	StatusCompleted SessionStatus = "completed"
	// StatusAbandoned - сессия закрыта фоновой чисткой по неактивности.
	StatusAbandoned SessionStatus = "abandoned"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKED SESSION
// ══════════════════════════════════════════════════════════════════════════════

// Session - одна рейтинговая сессия пользователя. Агрегаты (TotalScore,
// QuestionsAnswered и т.д.) денормализованы и обновляются атомарно вместе
// с записью попытки.
type Session struct {
	ID                string
	UserID            string
	Status            SessionStatus
	TotalScore        int
	QuestionsAnswered int
	CorrectAnswers    int
	TotalTimeMs       int64
	StartedAt         time.Time
	EndedAt           *time.Time
	LastActivityAt    time.Time
}

// Attempt - одна оценённая попытка внутри сессии. Записи попыток
// append-only: итог попытки фиксируется один раз и не пересматривается.
type Attempt struct {
	ID         string
	SessionID  string
	QuestionID string
	Answer     *string
	IsCorrect  bool
	TimeMs     int64
	UsedHints  int
	Score      int
	CreatedAt  time.Time
}

// NewSession создаёт активную сессию для пользователя.
func NewSession(id, userID string, now time.Time) *Session {
	return &Session{
		ID:             id,
		UserID:         userID,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}
}

// CanAccept проверяет, что сессия принадлежит пользователю и активна.
func (s *Session) CanAccept(userID string) error {
	if s.UserID != userID {
		return shared.ErrSessionForeign
	}
	if s.Status != StatusActive {
		return shared.ErrSessionInactive
	}
	return nil
}

// Apply применяет оценённую попытку к агрегатам сессии.
func (s *Session) Apply(a Attempt, now time.Time) {
	s.TotalScore += a.Score
	s.QuestionsAnswered++
	if a.IsCorrect {
		s.CorrectAnswers++
	}
	s.TotalTimeMs += a.TimeMs
	s.LastActivityAt = now
}

// End завершает сессию. Повторное завершение - идемпотентный no-op:
// клиент может прислать запрос дважды (ретрай, две вкладки).
// Возвращает true, если переход состоялся именно сейчас.
func (s *Session) End(now time.Time, abandoned bool) bool {
	if s.Status != StatusActive {
		return false
	}

	if abandoned {
		s.Status = StatusAbandoned
	} else {
		s.Status = StatusCompleted
	}
	ended := now
	s.EndedAt = &ended
	return true
}

// Accuracy возвращает долю верных ответов, 0 при пустой сессии.
func (s *Session) Accuracy() float64 {
	if s.QuestionsAnswered == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.QuestionsAnswered)
}

// AverageTimeMs возвращает среднее время на вопрос, 0 при пустой сессии.
func (s *Session) AverageTimeMs() int64 {
	if s.QuestionsAnswered == 0 {
		return 0
	}
	return s.TotalTimeMs / int64(s.QuestionsAnswered)
}

// Eligible возвращает true, если сессия проходит в таблицу лидеров.
func (s *Session) Eligible() bool {
	return s.QuestionsAnswered >= MinLeaderboardQuestions
}
