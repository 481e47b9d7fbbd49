package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Version)
}

func TestDetect_StreakWindow(t *testing.T) {
	cfg := DefaultConfig()

	// Crossing day 3 from day 2.
	detected := Detect(cfg.Streak, 3, 2)
	require.Len(t, detected, 1)
	assert.Equal(t, "streak-3", detected[0].ID)

	// Nothing new between milestones.
	assert.Empty(t, Detect(cfg.Streak, 4, 3))

	// A jump past several thresholds yields all of them, ascending.
	detected = Detect(cfg.Streak, 14, 3)
	require.Len(t, detected, 3)
	assert.Equal(t, "streak-5", detected[0].ID)
	assert.Equal(t, "streak-7", detected[1].ID)
	assert.Equal(t, "streak-14", detected[2].ID)
}

func TestDetect_AlreadyAchievedNotRepeated(t *testing.T) {
	cfg := DefaultConfig()

	// Streak rebuilt after a reset: day 3 reached again, but the milestone
	// was already granted at threshold 7.
	assert.Empty(t, Detect(cfg.Streak, 3, 7))
}

func TestDetect_XPWindow(t *testing.T) {
	cfg := DefaultConfig()

	detected := Detect(cfg.XP, 520, 90)
	require.Len(t, detected, 2)
	assert.Equal(t, "xp-100", detected[0].ID)
	assert.Equal(t, "xp-500", detected[1].ID)
}

func TestConfigValidate_RejectsBadConfigs(t *testing.T) {
	cfg := Config{Streak: []StreakMilestone{
		{ID: "a", DaysRequired: 5, XPBoostMultiplier: 1.1, BoostDurationHrs: 24},
		{ID: "b", DaysRequired: 5, XPBoostMultiplier: 1.2, BoostDurationHrs: 24},
	}}
	assert.Error(t, cfg.Validate(), "duplicate thresholds")

	cfg = Config{Streak: []StreakMilestone{
		{ID: "a", DaysRequired: 3, XPBoostMultiplier: 0.9, BoostDurationHrs: 24},
	}}
	assert.Error(t, cfg.Validate(), "multiplier below 1.0")

	cfg = Config{XP: []XPMilestone{
		{ID: "a", XPRequired: 100, FreeHints: -1},
	}}
	assert.Error(t, cfg.Validate(), "negative hints")
}

func TestNextMilestones(t *testing.T) {
	cfg := DefaultConfig()

	next := cfg.NextStreak(5)
	require.NotNil(t, next)
	assert.Equal(t, "streak-7", next.ID)

	assert.Nil(t, cfg.NextStreak(100))

	nextXP := cfg.NextXP(0)
	require.NotNil(t, nextXP)
	assert.Equal(t, "xp-100", nextXP.ID)

	assert.Nil(t, cfg.NextXP(10000))
}

func TestFiveDayMilestone(t *testing.T) {
	cfg := DefaultConfig()

	detected := Detect(cfg.Streak, 5, 3)
	require.Len(t, detected, 1)
	assert.Equal(t, 1.30, detected[0].XPBoostMultiplier)
	assert.Equal(t, 24, detected[0].BoostDurationHrs)
}
