// Package ranked содержит модель рейтингового режима: оценку попыток,
// сессии и таблицу лидеров. Очки за попытку и XP - разные валюты: очки
// принадлежат сессии и не зависят от бустов, XP начисляется прогрессу и
// может умножаться активным бустом.
package ranked

import (
	"math"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/quiz"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
)

// QuestionTimeLimitMs - лимит времени на вопрос. Время сверх лимита не
// штрафуется дополнительно: заявленное клиентом время усекается до лимита
// до расчёта очков.
const QuestionTimeLimitMs = 20000

// Scoring coefficients.
const (
	difficultyScoreWeight = 100
	speedBonusDivisor     = 200
	hintPenalty           = 25
	incorrectPenalty      = 50
	xpPerDifficulty       = 10
)

// Score вычисляет очки за одну попытку.
//
// Верный ответ: round(difficulty*100 + max(0, limit-timeMs)/200 - usedHints*25).
// Неверный ответ (или таймаут): -difficulty*50; время и подсказки не влияют.
//
// Очки за верный ответ НЕ прижимаются к нулю: достаточно медленный ответ с
// подсказками на лёгком вопросе может стоить меньше нуля.
func Score(difficulty int, isCorrect bool, timeMs int64, usedHints int) (int, error) {
	if difficulty < quiz.MinDifficulty || difficulty > quiz.MaxDifficulty {
		return 0, shared.ErrInvalidDifficulty
	}
	if timeMs < 0 {
		return 0, shared.NewDomainError("ranked", "Score", shared.ErrNegativeValue, "time cannot be negative")
	}
	if usedHints < 0 {
		return 0, shared.NewDomainError("ranked", "Score", shared.ErrNegativeValue, "used hints cannot be negative")
	}

	if !isCorrect {
		return -difficulty * incorrectPenalty, nil
	}

	if timeMs > QuestionTimeLimitMs {
		timeMs = QuestionTimeLimitMs
	}

	speedBonus := float64(QuestionTimeLimitMs-timeMs) / speedBonusDivisor
	raw := float64(difficulty*difficultyScoreWeight) + speedBonus - float64(usedHints*hintPenalty)
	return int(math.Round(raw)), nil
}

// AttemptXP возвращает базовый XP за попытку: difficulty*10 за верный ответ,
// 0 за неверный. Буст применяется выше, в прогрессе пользователя.
func AttemptXP(difficulty int, isCorrect bool) int {
	if !isCorrect {
		return 0
	}
	return difficulty * xpPerDifficulty
}
