package query

import (
	"context"
	"errors"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/progression"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET NEXT MILESTONE QUERY
// Показывает ближайшие недостигнутые вехи и расстояние до них - топливо
// для мотивационного UI ("ещё 2 дня до буста").
// ══════════════════════════════════════════════════════════════════════════════

// GetNextMilestoneQuery содержит параметры запроса.
type GetNextMilestoneQuery struct {
	// UserID - идентификатор пользователя.
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q GetNextMilestoneQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// NextStreakMilestoneDTO - ближайшая streak-веха.
type NextStreakMilestoneDTO struct {
	MilestoneID       string  `json:"milestone_id"`
	DaysRequired      int     `json:"days_required"`
	DaysRemaining     int     `json:"days_remaining"`
	XPBoostMultiplier float64 `json:"xp_boost_multiplier"`
	BoostDurationHrs  int     `json:"boost_duration_hrs"`
	RewardText        string  `json:"reward_text"`
}

// NextXPMilestoneDTO - ближайшая XP-веха.
type NextXPMilestoneDTO struct {
	MilestoneID string `json:"milestone_id"`
	XPRequired  int    `json:"xp_required"`
	XPRemaining int    `json:"xp_remaining"`
	FreeHints   int    `json:"free_hints"`
	RewardText  string `json:"reward_text"`
}

// GetNextMilestoneResult содержит ближайшие вехи (nil = все достигнуты).
type GetNextMilestoneResult struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// ConfigVersion - версия списка вех, по которому дан ответ.
	ConfigVersion int `json:"config_version"`

	// StreakDays - текущая серия.
	StreakDays int `json:"streak_days"`

	// XP - текущий опыт.
	XP int `json:"xp"`

	// NextStreak - ближайшая streak-веха.
	NextStreak *NextStreakMilestoneDTO `json:"next_streak,omitempty"`

	// NextXP - ближайшая XP-веха.
	NextXP *NextXPMilestoneDTO `json:"next_xp,omitempty"`
}

// GetNextMilestoneHandler обрабатывает запрос ближайших вех.
type GetNextMilestoneHandler struct {
	progressRepo progression.Repository
	milestones   progression.Config
}

// NewGetNextMilestoneHandler создаёт новый обработчик.
func NewGetNextMilestoneHandler(progressRepo progression.Repository, milestones progression.Config) *GetNextMilestoneHandler {
	return &GetNextMilestoneHandler{progressRepo: progressRepo, milestones: milestones}
}

// Handle выполняет запрос.
func (h *GetNextMilestoneHandler) Handle(ctx context.Context, query GetNextMilestoneQuery) (*GetNextMilestoneResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetNextMilestone", shared.ErrValidation, err.Error(), err)
	}

	p, err := h.progressRepo.Get(ctx, query.UserID)
	if err != nil {
		if shared.IsNotFound(err) {
			p = progression.NewUserProgress(query.UserID)
		} else {
			return nil, shared.WrapError("query", "GetNextMilestone", shared.ErrNotFound, "failed to get progress", err)
		}
	}

	result := &GetNextMilestoneResult{
		UserID:        query.UserID,
		ConfigVersion: h.milestones.Version,
		StreakDays:    p.StreakDays,
		XP:            p.XP,
	}

	if next := h.milestones.NextStreak(p.StreakDays); next != nil {
		result.NextStreak = &NextStreakMilestoneDTO{
			MilestoneID:       next.ID,
			DaysRequired:      next.DaysRequired,
			DaysRemaining:     next.DaysRequired - p.StreakDays,
			XPBoostMultiplier: next.XPBoostMultiplier,
			BoostDurationHrs:  next.BoostDurationHrs,
			RewardText:        next.RewardText,
		}
	}

	if next := h.milestones.NextXP(p.XP); next != nil {
		result.NextXP = &NextXPMilestoneDTO{
			MilestoneID: next.ID,
			XPRequired:  next.XPRequired,
			XPRemaining: next.XPRequired - p.XP,
			FreeHints:   next.FreeHints,
			RewardText:  next.RewardText,
		}
	}

	return result, nil
}
