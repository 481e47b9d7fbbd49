package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/clock"
)

func TestStartAndEndSession(t *testing.T) {
	sessions := newFakeSessionRepo()
	publisher := &fakePublisher{}
	clk := clock.NewPolicy(clock.NewFixedClock(clock.Date(2026, 3, 15).Add(9 * time.Hour)))
	log := testLogger()

	start := NewStartSessionHandler(sessions, publisher, clk, log)
	end := NewEndSessionHandler(sessions, publisher, clk, log)

	started, err := start.Handle(context.Background(), StartSessionCommand{UserID: "user1"})
	require.NoError(t, err)
	assert.NotEmpty(t, started.SessionID)
	assert.Len(t, publisher.byType(shared.EventSessionStarted), 1)

	ended, err := end.Handle(context.Background(), EndSessionCommand{
		SessionID: started.SessionID, UserID: "user1",
	})
	require.NoError(t, err)
	assert.Equal(t, ranked.StatusCompleted, ended.Status)
	assert.False(t, ended.LeaderboardReady, "empty session is not eligible")
	assert.Len(t, publisher.byType(shared.EventSessionEnded), 1)

	// Repeated end is idempotent: same final state, no second event.
	again, err := end.Handle(context.Background(), EndSessionCommand{
		SessionID: started.SessionID, UserID: "user1",
	})
	require.NoError(t, err)
	assert.Equal(t, ended.EndedAt, again.EndedAt)
	assert.Len(t, publisher.byType(shared.EventSessionEnded), 1)
}

func TestEndSession_RaceWithSweeperKeepsAbandonedStatus(t *testing.T) {
	sessions := newFakeSessionRepo()
	publisher := &fakePublisher{}
	clk := clock.NewPolicy(clock.NewFixedClock(clock.Date(2026, 3, 15).Add(10 * time.Hour)))
	end := NewEndSessionHandler(sessions, publisher, clk, testLogger())

	s := ranked.NewSession("sess1", "user1", clk.Now().Add(-time.Hour))
	require.NoError(t, sessions.Create(context.Background(), s))

	// The stale-session sweeper abandons the session between the handler's
	// read and its write. The stored terminal status must win.
	sessions.beforeEnd = func() {
		_, err := sessions.CloseStale(context.Background(), clk.Now(), 30*time.Minute)
		require.NoError(t, err)
	}

	result, err := end.Handle(context.Background(), EndSessionCommand{SessionID: "sess1", UserID: "user1"})
	require.NoError(t, err)

	assert.Equal(t, ranked.StatusAbandoned, result.Status)
	assert.False(t, result.LeaderboardReady)
	assert.Empty(t, publisher.byType(shared.EventSessionEnded))
}

func TestEndSession_ForeignUser(t *testing.T) {
	sessions := newFakeSessionRepo()
	publisher := &fakePublisher{}
	clk := clock.NewPolicy(clock.NewFixedClock(clock.Date(2026, 3, 15)))
	end := NewEndSessionHandler(sessions, publisher, clk, testLogger())

	s := ranked.NewSession("sess1", "user1", clk.Now())
	require.NoError(t, sessions.Create(context.Background(), s))

	_, err := end.Handle(context.Background(), EndSessionCommand{SessionID: "sess1", UserID: "intruder"})
	assert.ErrorIs(t, err, shared.ErrSessionForeign)
}
