// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/progression"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/clock"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Возвращает полный снимок прогресса пользователя: XP, серию, счётчик
// ежедневного квеста и активный буст.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery содержит параметры запроса прогресса.
type GetProgressQuery struct {
	// UserID - идентификатор пользователя.
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q GetProgressQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// GetProgressResult содержит снимок прогресса.
type GetProgressResult struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// XP - накопленный опыт.
	XP int `json:"xp"`

	// StreakDays - текущая серия дней.
	StreakDays int `json:"streak_days"`

	// LongestStreak - лучшая серия за всё время.
	LongestStreak int `json:"longest_streak"`

	// LastActiveDate - дата последней засчитанной активности.
	LastActiveDate *string `json:"last_active_date,omitempty"`

	// DailyQuestProgress - правильных ответов сегодня.
	DailyQuestProgress int `json:"daily_quest_progress"`

	// DailyQuestTarget - сколько нужно для выполнения квеста.
	DailyQuestTarget int `json:"daily_quest_target"`

	// DailyQuestCompleted - выполнен ли квест сегодня.
	DailyQuestCompleted bool `json:"daily_quest_completed"`

	// BoostMultiplier - действующий множитель XP.
	BoostMultiplier float64 `json:"boost_multiplier"`

	// BoostExpiry - когда истекает буст (nil = буст не активен).
	BoostExpiry *time.Time `json:"boost_expiry,omitempty"`
}

// GetProgressHandler обрабатывает запрос прогресса.
type GetProgressHandler struct {
	progressRepo progression.Repository
	clk          *clock.Policy
}

// NewGetProgressHandler создаёт новый обработчик.
func NewGetProgressHandler(progressRepo progression.Repository, clk *clock.Policy) *GetProgressHandler {
	return &GetProgressHandler{progressRepo: progressRepo, clk: clk}
}

// Handle выполняет запрос. Для пользователя без записи возвращается пустой
// прогресс, а не ошибка: с точки зрения UI новый пользователь просто ещё
// ничего не сделал.
func (h *GetProgressHandler) Handle(ctx context.Context, query GetProgressQuery) (*GetProgressResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetProgress", shared.ErrValidation, err.Error(), err)
	}

	now := h.clk.Now()
	today := clock.StartOfDay(now)

	p, err := h.progressRepo.Get(ctx, query.UserID)
	if err != nil {
		if shared.IsNotFound(err) {
			p = progression.NewUserProgress(query.UserID)
		} else {
			return nil, shared.WrapError("query", "GetProgress", shared.ErrNotFound, "failed to get progress", err)
		}
	}

	result := &GetProgressResult{
		UserID:              p.UserID,
		XP:                  p.XP,
		StreakDays:          p.StreakDays,
		LongestStreak:       p.LongestStreak,
		DailyQuestProgress:  p.DailyQuestProgress(today),
		DailyQuestTarget:    progression.DailyQuestTarget,
		DailyQuestCompleted: p.DailyQuestCompleted(today),
		BoostMultiplier:     p.EffectiveMultiplier(now),
	}
	if p.LastActiveDate != nil {
		s := clock.FormatDateStr(*p.LastActiveDate)
		result.LastActiveDate = &s
	}
	if p.BoostActive(now) {
		result.BoostExpiry = p.XPBoostExpiry
	}

	return result, nil
}
