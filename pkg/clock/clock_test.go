package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDay(t *testing.T) {
	ts := time.Date(2026, 3, 15, 23, 59, 59, 999, time.UTC)
	assert.Equal(t, Date(2026, 3, 15), StartOfDay(ts))
}

func TestIsSameDay(t *testing.T) {
	morning := time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 16, 0, 0, 1, 0, time.UTC)

	assert.True(t, IsSameDay(morning, evening))
	assert.False(t, IsSameDay(evening, nextDay))
}

func TestIsConsecutive(t *testing.T) {
	assert.True(t, IsConsecutive(Date(2026, 3, 15), Date(2026, 3, 16)))
	assert.False(t, IsConsecutive(Date(2026, 3, 15), Date(2026, 3, 17)))
	assert.False(t, IsConsecutive(Date(2026, 3, 15), Date(2026, 3, 15)))
	assert.False(t, IsConsecutive(Date(2026, 3, 16), Date(2026, 3, 15)))

	// Month and year boundaries.
	assert.True(t, IsConsecutive(Date(2026, 2, 28), Date(2026, 3, 1)))
	assert.True(t, IsConsecutive(Date(2025, 12, 31), Date(2026, 1, 1)))
	// Leap year: Feb 28 -> Feb 29, not Mar 1.
	assert.True(t, IsConsecutive(Date(2028, 2, 28), Date(2028, 2, 29)))
	assert.False(t, IsConsecutive(Date(2028, 2, 28), Date(2028, 3, 1)))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(Date(2026, 3, 15), Date(2026, 3, 15)))
	assert.Equal(t, 1, DaysBetween(Date(2026, 3, 15), Date(2026, 3, 16)))
	assert.Equal(t, 31, DaysBetween(Date(2026, 3, 1), Date(2026, 4, 1)))
	assert.Equal(t, -1, DaysBetween(Date(2026, 3, 16), Date(2026, 3, 15)))
	assert.Equal(t, 365, DaysBetween(Date(2027, 1, 1), Date(2028, 1, 1)))
	// 2028 is a leap year.
	assert.Equal(t, 366, DaysBetween(Date(2028, 1, 1), Date(2029, 1, 1)))
}

func TestFixedClock(t *testing.T) {
	fc := NewFixedClock(Date(2026, 3, 15))

	assert.Equal(t, Date(2026, 3, 15), fc.Now())

	fc.Advance(25 * time.Hour)
	assert.Equal(t, Date(2026, 3, 16).Add(time.Hour), fc.Now())

	fc.AdvanceDays(2)
	assert.Equal(t, Date(2026, 3, 18).Add(time.Hour), fc.Now())
}

func TestPolicyToday(t *testing.T) {
	fc := NewFixedClock(time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC))
	p := NewPolicy(fc)

	assert.Equal(t, Date(2026, 3, 15), p.Today())
}
