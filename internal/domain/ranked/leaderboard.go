package ranked

import (
	"sort"
	"time"
)

// MinLeaderboardQuestions - минимум отвеченных вопросов, чтобы сессия
// попала в таблицу лидеров. Отсекает сессии "ответил на один вопрос и вышел".
const MinLeaderboardQuestions = 5

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

// Entry - строка таблицы лидеров: одна завершённая подходящая сессия.
// Производные поля (Accuracy, AverageTimeMs) считаются при чтении из
// агрегатов сессии и нигде не хранятся отдельно.
type Entry struct {
	Rank              int       `json:"rank"`
	SessionID         string    `json:"session_id"`
	UserID            string    `json:"user_id"`
	TotalScore        int       `json:"total_score"`
	QuestionsAnswered int       `json:"questions_answered"`
	CorrectAnswers    int       `json:"correct_answers"`
	Accuracy          float64   `json:"accuracy"`
	AverageTimeMs     int64     `json:"average_time_ms"`
	EndedAt           time.Time `json:"ended_at"`
}

// NewEntry строит строку таблицы из завершённой сессии.
func NewEntry(s *Session) Entry {
	e := Entry{
		SessionID:         s.ID,
		UserID:            s.UserID,
		TotalScore:        s.TotalScore,
		QuestionsAnswered: s.QuestionsAnswered,
		CorrectAnswers:    s.CorrectAnswers,
		Accuracy:          s.Accuracy(),
		AverageTimeMs:     s.AverageTimeMs(),
	}
	if s.EndedAt != nil {
		e.EndedAt = *s.EndedAt
	}
	return e
}

// SortEntries упорядочивает строки: больший суммарный счёт выше; при равном
// счёте выше та сессия, где среднее время на вопрос меньше. Присваивает Rank
// начиная с 1.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].AverageTimeMs < entries[j].AverageTimeMs
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
