package query

import (
	"context"
	"errors"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Возвращает топ завершённых рейтинговых сессий. Кеш - это ускорение,
// не источник правды: промах или сбой кеша прозрачно уводит в хранилище.
// ══════════════════════════════════════════════════════════════════════════════

// Leaderboard query defaults.
const (
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
)

// GetLeaderboardQuery содержит параметры запроса таблицы лидеров.
type GetLeaderboardQuery struct {
	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = DefaultLeaderboardLimit
	}
	if q.Limit > MaxLeaderboardLimit {
		q.Limit = MaxLeaderboardLimit
	}
	return nil
}

// GetLeaderboardResult содержит результат запроса таблицы лидеров.
type GetLeaderboardResult struct {
	// Entries - строки таблицы, уже отсортированные и с рангами.
	Entries []ranked.Entry `json:"entries"`

	// MinQuestions - порог входа в таблицу.
	MinQuestions int `json:"min_questions"`

	// FromCache - данные взяты из кеша.
	FromCache bool `json:"from_cache"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetLeaderboardHandler обрабатывает запросы таблицы лидеров.
type GetLeaderboardHandler struct {
	sessionRepo ranked.SessionRepository
	cache       ranked.LeaderboardCache
	cacheTTL    time.Duration
	log         *logger.Logger
}

// NewGetLeaderboardHandler создаёт новый обработчик.
func NewGetLeaderboardHandler(
	sessionRepo ranked.SessionRepository,
	cache ranked.LeaderboardCache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *GetLeaderboardHandler {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &GetLeaderboardHandler{
		sessionRepo: sessionRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		log:         log.With(logger.Component("get_leaderboard")),
	}
}

// Handle выполняет запрос таблицы лидеров.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, err.Error(), err)
	}

	if entries, ok := h.tryCache(ctx, query.Limit); ok {
		return &GetLeaderboardResult{
			Entries:      entries,
			MinQuestions: ranked.MinLeaderboardQuestions,
			FromCache:    true,
			GeneratedAt:  time.Now().UTC(),
		}, nil
	}

	entries, err := h.sessionRepo.ListCompletedEligible(ctx, query.Limit)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrNotFound, "failed to list sessions", err)
	}
	if entries == nil {
		entries = []ranked.Entry{}
	}

	if h.cache != nil {
		if err := h.cache.SetTop(ctx, entries, h.cacheTTL); err != nil {
			h.log.Warn("failed to cache leaderboard", logger.Err(err))
		}
	}

	return &GetLeaderboardResult{
		Entries:      entries,
		MinQuestions: ranked.MinLeaderboardQuestions,
		FromCache:    false,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

// tryCache пытается отдать таблицу из кеша.
func (h *GetLeaderboardHandler) tryCache(ctx context.Context, limit int) ([]ranked.Entry, bool) {
	if h.cache == nil {
		return nil, false
	}

	entries, err := h.cache.GetTop(ctx, limit)
	if err != nil {
		if !shared.IsNotFound(err) {
			h.log.Warn("leaderboard cache read failed", logger.Err(err))
		}
		return nil, false
	}
	// Блоб, записанный для меньшего limit, не должен обрезать больший запрос.
	if len(entries) < limit {
		return nil, false
	}
	return entries, true
}
