package redis

import (
	"context"
	"errors"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
)

// keyLeaderboardTop holds the serialized top of the leaderboard. A single
// JSON blob is enough here: the cached top is small and always written as
// a whole, so a sorted set would only add moving parts.
const keyLeaderboardTop = "leaderboard:top"

// TTLLeaderboard is the default TTL for the cached leaderboard top.
const TTLLeaderboard = 5 * time.Minute

// LeaderboardCache implements ranked.LeaderboardCache on top of Redis.
type LeaderboardCache struct {
	cache *Cache
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// GetTop returns the cached leaderboard rows, at most limit.
// Returns shared.ErrNotFound on a cache miss.
func (l *LeaderboardCache) GetTop(ctx context.Context, limit int) ([]ranked.Entry, error) {
	var entries []ranked.Entry

	err := l.cache.Get(ctx, keyLeaderboardTop, &entries)
	if errors.Is(err, ErrCacheMiss) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// SetTop caches the leaderboard rows with the given TTL.
func (l *LeaderboardCache) SetTop(ctx context.Context, entries []ranked.Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = TTLLeaderboard
	}

	return l.cache.Set(ctx, keyLeaderboardTop, entries, ttl)
}

// Invalidate drops the cached leaderboard top.
func (l *LeaderboardCache) Invalidate(ctx context.Context) error {
	return l.cache.Delete(ctx, keyLeaderboardTop)
}
