package query

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

type stubSessionRepo struct {
	entries []ranked.Entry
	err     error
	calls   int
}

func (r *stubSessionRepo) Create(ctx context.Context, s *ranked.Session) error { return nil }
func (r *stubSessionRepo) GetByID(ctx context.Context, id string) (*ranked.Session, error) {
	return nil, shared.ErrSessionNotFound
}
func (r *stubSessionRepo) RecordAttempt(ctx context.Context, s *ranked.Session, a ranked.Attempt) error {
	return nil
}
func (r *stubSessionRepo) End(ctx context.Context, s *ranked.Session) error { return nil }
func (r *stubSessionRepo) ListCompletedEligible(ctx context.Context, limit int) ([]ranked.Entry, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if len(r.entries) > limit {
		return r.entries[:limit], nil
	}
	return r.entries, nil
}
func (r *stubSessionRepo) CloseStale(ctx context.Context, now time.Time, maxIdle time.Duration) ([]*ranked.Session, error) {
	return nil, nil
}

type stubCache struct {
	entries []ranked.Entry
	sets    int
}

func (c *stubCache) GetTop(ctx context.Context, limit int) ([]ranked.Entry, error) {
	if c.entries == nil {
		return nil, shared.ErrNotFound
	}
	if len(c.entries) > limit {
		return c.entries[:limit], nil
	}
	return c.entries, nil
}

func (c *stubCache) SetTop(ctx context.Context, entries []ranked.Entry, ttl time.Duration) error {
	c.entries = entries
	c.sets++
	return nil
}

func (c *stubCache) Invalidate(ctx context.Context) error {
	c.entries = nil
	return nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

func sampleEntries() []ranked.Entry {
	entries := []ranked.Entry{
		{SessionID: "s1", UserID: "u1", TotalScore: 900, QuestionsAnswered: 8, AverageTimeMs: 6000},
		{SessionID: "s2", UserID: "u2", TotalScore: 700, QuestionsAnswered: 6, AverageTimeMs: 5000},
	}
	ranked.SortEntries(entries)
	return entries
}

func TestGetLeaderboard_CacheMissFallsBackToStore(t *testing.T) {
	repo := &stubSessionRepo{entries: sampleEntries()}
	cache := &stubCache{}
	handler := NewGetLeaderboardHandler(repo, cache, time.Minute, quietLogger())

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	assert.False(t, result.FromCache)
	assert.Len(t, result.Entries, 2)
	assert.Equal(t, 1, result.Entries[0].Rank)
	assert.Equal(t, "s1", result.Entries[0].SessionID)
	assert.Equal(t, ranked.MinLeaderboardQuestions, result.MinQuestions)
	assert.Equal(t, 1, cache.sets, "store result is cached")
}

func TestGetLeaderboard_CacheHitSkipsStore(t *testing.T) {
	repo := &stubSessionRepo{entries: sampleEntries()}
	cache := &stubCache{entries: sampleEntries()}
	handler := NewGetLeaderboardHandler(repo, cache, time.Minute, quietLogger())

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Limit: 2})
	require.NoError(t, err)

	assert.True(t, result.FromCache)
	assert.Equal(t, 0, repo.calls)
}

func TestGetLeaderboard_ShortCachedBlobFallsBackToStore(t *testing.T) {
	repo := &stubSessionRepo{entries: sampleEntries()}
	// The cache holds a blob written for a smaller limit.
	cache := &stubCache{entries: sampleEntries()[:1]}
	handler := NewGetLeaderboardHandler(repo, cache, time.Minute, quietLogger())

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Limit: 2})
	require.NoError(t, err)

	assert.False(t, result.FromCache)
	assert.Len(t, result.Entries, 2)
	assert.Equal(t, 1, repo.calls)
}

func TestGetLeaderboard_LimitClamped(t *testing.T) {
	repo := &stubSessionRepo{entries: sampleEntries()}
	handler := NewGetLeaderboardHandler(repo, nil, time.Minute, quietLogger())

	q := GetLeaderboardQuery{Limit: 100000}
	_, err := handler.Handle(context.Background(), q)
	require.NoError(t, err)

	_, err = handler.Handle(context.Background(), GetLeaderboardQuery{Limit: -1})
	assert.Error(t, err)
}

func TestGetLeaderboard_StoreError(t *testing.T) {
	repo := &stubSessionRepo{err: errors.New("db down")}
	handler := NewGetLeaderboardHandler(repo, nil, time.Minute, quietLogger())

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	assert.Error(t, err)
}
