package command

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/progression"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/clock"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

type questEnv struct {
	handler   *RecordDailyQuestHandler
	progress  *fakeProgressRepo
	ledger    *fakeLedger
	publisher *fakePublisher
	clk       *clock.FixedClock
}

func newQuestEnv(t *testing.T) *questEnv {
	t.Helper()
	env := &questEnv{
		progress:  newFakeProgressRepo(),
		ledger:    newFakeLedger(),
		publisher: &fakePublisher{},
		clk:       clock.NewFixedClock(clock.Date(2026, 3, 15).Add(18 * time.Hour)),
	}
	env.handler = NewRecordDailyQuestHandler(
		env.progress, env.ledger, progression.DefaultConfig(),
		env.publisher, clock.NewPolicy(env.clk), testLogger(),
	)
	return env
}

func (e *questEnv) complete(t *testing.T, userID string) *RecordDailyQuestResult {
	t.Helper()
	result, err := e.handler.Handle(context.Background(), RecordDailyQuestCommand{UserID: userID})
	require.NoError(t, err)
	return result
}

func TestRecordDailyQuest_FirstDay(t *testing.T) {
	env := newQuestEnv(t)

	result := env.complete(t, "user1")

	assert.Equal(t, 1, result.StreakDays)
	assert.Equal(t, 1, result.LongestStreak)
	assert.Empty(t, result.UnlockedMilestones)
	assert.Len(t, env.publisher.byType(shared.EventDailyQuestCompleted), 1)
}

func TestRecordDailyQuest_StreakGrowsAndMilestonesUnlock(t *testing.T) {
	env := newQuestEnv(t)

	var last *RecordDailyQuestResult
	for day := 0; day < 5; day++ {
		last = env.complete(t, "user1")
		env.clk.AdvanceDays(1)
	}

	require.Equal(t, 5, last.StreakDays)
	// Day 5 crosses the 5-day milestone with its 1.30x boost.
	require.Len(t, last.UnlockedMilestones, 1)
	assert.Equal(t, "streak-5", last.UnlockedMilestones[0].ID)
	assert.Equal(t, 1.30, last.BoostMultiplier)
	require.NotNil(t, last.BoostExpiry)

	// Both day-3 and day-5 milestones are in the ledger.
	achievements, err := env.ledger.ListByUser(context.Background(), "user1")
	require.NoError(t, err)
	assert.Len(t, achievements, 2)
}

func TestRecordDailyQuest_GapResetsStreak(t *testing.T) {
	env := newQuestEnv(t)

	env.complete(t, "user1")
	env.clk.AdvanceDays(1)
	env.complete(t, "user1")

	env.clk.AdvanceDays(3)
	result := env.complete(t, "user1")

	assert.Equal(t, 1, result.StreakDays)
	assert.True(t, result.StreakWasReset)
	assert.Equal(t, 2, result.PreviousStreak)
	assert.Equal(t, 2, result.LongestStreak)
	assert.Len(t, env.publisher.byType(shared.EventStreakReset), 1)
}

func TestRecordDailyQuest_MilestoneNotRegrantedAfterReset(t *testing.T) {
	env := newQuestEnv(t)

	// Build a 3-day streak, unlocking streak-3.
	for day := 0; day < 3; day++ {
		env.complete(t, "user1")
		env.clk.AdvanceDays(1)
	}

	// Break the streak, rebuild to 3 days again.
	env.clk.AdvanceDays(2)
	for day := 0; day < 3; day++ {
		result := env.complete(t, "user1")
		for _, m := range result.UnlockedMilestones {
			assert.NotEqual(t, "streak-3", m.ID, "milestone granted twice")
		}
		env.clk.AdvanceDays(1)
	}

	achievements, err := env.ledger.ListByUser(context.Background(), "user1")
	require.NoError(t, err)
	assert.Len(t, achievements, 1)
}

func TestRecordDailyQuest_DuplicateGrantStillMergesBoost(t *testing.T) {
	env := newQuestEnv(t)

	// Another request already won the streak-3 ledger insert but its
	// progress update was lost.
	env.complete(t, "user1")
	env.clk.AdvanceDays(1)
	env.complete(t, "user1")
	env.clk.AdvanceDays(1)
	cfg := progression.DefaultConfig()
	preGranted := progression.NewStreakAchievement("pre", "user1", cfg.Streak[0],
		env.clk.Now(), env.clk.Now().Add(24*time.Hour))
	require.NoError(t, env.ledger.Insert(context.Background(), preGranted))

	result := env.complete(t, "user1")

	assert.Equal(t, 3, result.StreakDays)
	// No new unlock reported, but the boost lands anyway.
	assert.Empty(t, result.UnlockedMilestones)
	assert.Equal(t, 1.10, result.BoostMultiplier)
	assert.Empty(t, env.publisher.byType(shared.EventMilestoneUnlocked))
}

func TestRecordDailyQuest_RetriesOnVersionConflict(t *testing.T) {
	env := newQuestEnv(t)
	env.complete(t, "user1")
	env.clk.AdvanceDays(1)

	env.progress.failNext = 2

	result := env.complete(t, "user1")
	assert.Equal(t, 2, result.StreakDays)
}

func TestRecordDailyQuest_ValidationFails(t *testing.T) {
	env := newQuestEnv(t)

	_, err := env.handler.Handle(context.Background(), RecordDailyQuestCommand{})
	assert.Error(t, err)
}
