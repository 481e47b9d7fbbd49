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
// GET ACTIVE BOOST QUERY
// Возвращает действующий множитель XP. Истечение буста вычисляется на
// чтении: никакой фоновый процесс не "выключает" буст.
// ══════════════════════════════════════════════════════════════════════════════

// GetActiveBoostQuery содержит параметры запроса буста.
type GetActiveBoostQuery struct {
	// UserID - идентификатор пользователя.
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q GetActiveBoostQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// GetActiveBoostResult содержит состояние буста.
type GetActiveBoostResult struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// Active - действует ли буст сейчас.
	Active bool `json:"active"`

	// Multiplier - действующий множитель (1.0 без буста).
	Multiplier float64 `json:"multiplier"`

	// ExpiresAt - когда буст истекает (nil без буста).
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// RemainingSeconds - секунд до истечения (0 без буста).
	RemainingSeconds int64 `json:"remaining_seconds"`
}

// GetActiveBoostHandler обрабатывает запрос активного буста.
type GetActiveBoostHandler struct {
	progressRepo progression.Repository
	clk          *clock.Policy
}

// NewGetActiveBoostHandler создаёт новый обработчик.
func NewGetActiveBoostHandler(progressRepo progression.Repository, clk *clock.Policy) *GetActiveBoostHandler {
	return &GetActiveBoostHandler{progressRepo: progressRepo, clk: clk}
}

// Handle выполняет запрос.
func (h *GetActiveBoostHandler) Handle(ctx context.Context, query GetActiveBoostQuery) (*GetActiveBoostResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetActiveBoost", shared.ErrValidation, err.Error(), err)
	}

	now := h.clk.Now()

	result := &GetActiveBoostResult{
		UserID:     query.UserID,
		Multiplier: 1.0,
	}

	p, err := h.progressRepo.Get(ctx, query.UserID)
	if err != nil {
		if shared.IsNotFound(err) {
			return result, nil
		}
		return nil, shared.WrapError("query", "GetActiveBoost", shared.ErrNotFound, "failed to get progress", err)
	}

	if p.BoostActive(now) {
		result.Active = true
		result.Multiplier = p.XPBoostMultiplier
		result.ExpiresAt = p.XPBoostExpiry
		result.RemainingSeconds = int64(p.XPBoostExpiry.Sub(now).Seconds())
	}

	return result, nil
}
