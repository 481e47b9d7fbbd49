package messaging

import (
	"context"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

// invalidateTimeout bounds the cache call made from an event handler.
const invalidateTimeout = 5 * time.Second

// RegisterLeaderboardInvalidator subscribes a handler that drops the cached
// leaderboard top whenever an eligible session closes. The next read rebuilds
// the cache from the session store, so losing this invalidation only delays
// freshness until the TTL.
func RegisterLeaderboardInvalidator(bus *InMemoryEventBus, cache ranked.LeaderboardCache, log *logger.Logger) error {
	return bus.Subscribe(shared.EventSessionEnded, func(event shared.Event) error {
		ended, ok := event.(shared.SessionEndedEvent)
		if !ok {
			return nil
		}

		if ended.QuestionsAnswered < ranked.MinLeaderboardQuestions || ended.Abandoned {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
		defer cancel()

		if err := cache.Invalidate(ctx); err != nil {
			log.Warn("leaderboard cache invalidation failed",
				logger.SessionID(ended.SessionID),
				logger.Err(err),
			)
			return err
		}

		log.Debug("leaderboard cache invalidated", logger.SessionID(ended.SessionID))
		return nil
	})
}
