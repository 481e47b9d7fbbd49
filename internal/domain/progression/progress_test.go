package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nurseprep-hub/nurseprep-progression/pkg/clock"
)

func TestRecordActivity_FirstDay(t *testing.T) {
	p := NewUserProgress("user1")

	p.RecordActivity(clock.Date(2026, 3, 15))

	assert.Equal(t, 1, p.StreakDays)
	assert.Equal(t, 1, p.LongestStreak)
	assert.Equal(t, clock.Date(2026, 3, 15), *p.LastActiveDate)
	assert.Equal(t, clock.Date(2026, 3, 15), *p.CurrentStreakStartDate)
}

func TestRecordActivity_ConsecutiveDays(t *testing.T) {
	p := NewUserProgress("user1")

	for day := 15; day <= 19; day++ {
		p.RecordActivity(clock.Date(2026, 3, day))
	}

	assert.Equal(t, 5, p.StreakDays)
	assert.Equal(t, 5, p.LongestStreak)
	assert.Equal(t, clock.Date(2026, 3, 15), *p.CurrentStreakStartDate)
}

func TestRecordActivity_SameDayIsNoop(t *testing.T) {
	p := NewUserProgress("user1")

	p.RecordActivity(clock.Date(2026, 3, 15))
	p.RecordActivity(clock.Date(2026, 3, 15))
	p.RecordActivity(clock.Date(2026, 3, 15))

	assert.Equal(t, 1, p.StreakDays)
}

func TestRecordActivity_GapResetsToOne(t *testing.T) {
	p := NewUserProgress("user1")

	p.RecordActivity(clock.Date(2026, 3, 15))
	p.RecordActivity(clock.Date(2026, 3, 16))
	p.RecordActivity(clock.Date(2026, 3, 19))

	assert.Equal(t, 1, p.StreakDays)
	assert.Equal(t, 2, p.LongestStreak)
	assert.Equal(t, clock.Date(2026, 3, 19), *p.CurrentStreakStartDate)
}

func TestExpireIfStale(t *testing.T) {
	p := NewUserProgress("user1")
	p.RecordActivity(clock.Date(2026, 3, 15))
	p.RecordActivity(clock.Date(2026, 3, 16))

	// Yesterday's activity is not stale.
	assert.False(t, p.ExpireIfStale(clock.Date(2026, 3, 17)))
	assert.Equal(t, 2, p.StreakDays)

	// Two-day gap kills the streak but not the record.
	assert.True(t, p.ExpireIfStale(clock.Date(2026, 3, 18)))
	assert.Equal(t, 0, p.StreakDays)
	assert.Equal(t, 2, p.LongestStreak)
	assert.Nil(t, p.CurrentStreakStartDate)
}

func TestExpireIfStale_ThenRecordStartsAtOne(t *testing.T) {
	p := NewUserProgress("user1")
	p.RecordActivity(clock.Date(2026, 3, 15))
	p.RecordActivity(clock.Date(2026, 3, 16))

	today := clock.Date(2026, 3, 20)
	p.ExpireIfStale(today)
	p.RecordActivity(today)

	assert.Equal(t, 1, p.StreakDays)
	assert.Equal(t, 2, p.LongestStreak)
}

func TestLongestStreakNeverDecreases(t *testing.T) {
	p := NewUserProgress("user1")

	for day := 1; day <= 7; day++ {
		p.RecordActivity(clock.Date(2026, 3, day))
	}
	assert.Equal(t, 7, p.LongestStreak)

	p.ExpireIfStale(clock.Date(2026, 3, 20))
	p.RecordActivity(clock.Date(2026, 3, 20))
	p.RecordActivity(clock.Date(2026, 3, 21))

	assert.Equal(t, 2, p.StreakDays)
	assert.Equal(t, 7, p.LongestStreak)
	assert.NoError(t, p.Validate())
}

func TestRecordCorrectAnswer_CompletesAtTarget(t *testing.T) {
	p := NewUserProgress("user1")
	day := clock.Date(2026, 3, 15)

	for i := 1; i < DailyQuestTarget; i++ {
		assert.False(t, p.RecordCorrectAnswer(day))
		assert.Equal(t, i, p.DailyQuestProgress(day))
	}

	assert.True(t, p.RecordCorrectAnswer(day))
	assert.True(t, p.DailyQuestCompleted(day))
}

func TestRecordCorrectAnswer_OnlyOncePerDay(t *testing.T) {
	p := NewUserProgress("user1")
	day := clock.Date(2026, 3, 15)

	completions := 0
	for i := 0; i < DailyQuestTarget*3; i++ {
		if p.RecordCorrectAnswer(day) {
			completions++
		}
	}

	assert.Equal(t, 1, completions)
	assert.Equal(t, DailyQuestTarget, p.DailyQuestProgress(day))
}

func TestRecordCorrectAnswer_CounterResetsNextDay(t *testing.T) {
	p := NewUserProgress("user1")

	day1 := clock.Date(2026, 3, 15)
	for i := 0; i < DailyQuestTarget; i++ {
		p.RecordCorrectAnswer(day1)
	}
	assert.True(t, p.DailyQuestCompleted(day1))

	day2 := clock.Date(2026, 3, 16)
	assert.Equal(t, 0, p.DailyQuestProgress(day2))
	assert.False(t, p.DailyQuestCompleted(day2))
	assert.False(t, p.RecordCorrectAnswer(day2))
	assert.Equal(t, 1, p.DailyQuestProgress(day2))
}

func TestValidate(t *testing.T) {
	p := NewUserProgress("user1")
	assert.NoError(t, p.Validate())

	p.LongestStreak = 3
	p.StreakDays = 5
	assert.Error(t, p.Validate())

	p = NewUserProgress("")
	assert.Error(t, p.Validate())

	p = NewUserProgress("user1")
	p.XPBoostMultiplier = 0.5
	assert.Error(t, p.Validate())
}

func TestMergeBoost_UpgradeOnly(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	p := NewUserProgress("user1")

	// First boost always lands.
	assert.True(t, p.MergeBoost(1.10, now.Add(24*time.Hour), now))
	assert.Equal(t, 1.10, p.XPBoostMultiplier)

	// Smaller multiplier while active: rejected, expiry untouched.
	firstExpiry := *p.XPBoostExpiry
	assert.False(t, p.MergeBoost(1.05, now.Add(48*time.Hour), now))
	assert.Equal(t, 1.10, p.XPBoostMultiplier)
	assert.Equal(t, firstExpiry, *p.XPBoostExpiry)

	// Bigger multiplier replaces.
	assert.True(t, p.MergeBoost(1.50, now.Add(48*time.Hour), now))
	assert.Equal(t, 1.50, p.XPBoostMultiplier)
}

func TestMergeBoost_ExpiredBoostIsReplaced(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	p := NewUserProgress("user1")
	p.MergeBoost(2.00, now.Add(time.Hour), now)

	later := now.Add(2 * time.Hour)
	assert.True(t, p.MergeBoost(1.10, later.Add(24*time.Hour), later))
	assert.Equal(t, 1.10, p.XPBoostMultiplier)
}

func TestApplyBoost(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	p := NewUserProgress("user1")

	// No boost: base XP unchanged.
	assert.Equal(t, 30, p.ApplyBoost(30, now))

	p.MergeBoost(1.30, now.Add(24*time.Hour), now)
	assert.Equal(t, 39, p.ApplyBoost(30, now))
	// Fractional result floors.
	assert.Equal(t, 32, p.ApplyBoost(25, now))

	// Expired boost no longer applies.
	afterExpiry := now.Add(25 * time.Hour)
	assert.Equal(t, 30, p.ApplyBoost(30, afterExpiry))
	assert.Equal(t, 1.0, p.EffectiveMultiplier(afterExpiry))
}
