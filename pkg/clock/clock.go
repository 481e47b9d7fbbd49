// Package clock provides the calendar policy for streak and daily-quest logic.
// Every "today"/"yesterday" decision in the engine is made on calendar dates in
// one fixed reference timezone, never on raw timestamps and never in the
// client's local time. The reference timezone is UTC: the platform serves
// students across timezones and UTC is the only choice that gives every user
// the same, DST-free day boundary.
// No external dependencies - uses only standard library.
package clock

import "time"

// ReferenceTZ is the fixed timezone for all calendar-date math.
var ReferenceTZ = time.UTC

// ══════════════════════════════════════════════════════════════════════════════
// CLOCK ABSTRACTION
// ══════════════════════════════════════════════════════════════════════════════

// Clock supplies the current time. Production code uses SystemClock; tests
// inject a FixedClock so date-rollover behavior is deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real wall clock.
type SystemClock struct{}

// Now returns the current time in the reference timezone.
func (SystemClock) Now() time.Time {
	return time.Now().In(ReferenceTZ)
}

// FixedClock is a controllable clock for tests.
type FixedClock struct {
	current time.Time
}

// NewFixedClock creates a FixedClock pinned to t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{current: t.In(ReferenceTZ)}
}

// Now returns the pinned time.
func (c *FixedClock) Now() time.Time {
	return c.current
}

// Set pins the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.current = t.In(ReferenceTZ)
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

// AdvanceDays moves the clock forward by whole calendar days.
func (c *FixedClock) AdvanceDays(days int) {
	c.current = c.current.AddDate(0, 0, days)
}

// ══════════════════════════════════════════════════════════════════════════════
// POLICY
// ══════════════════════════════════════════════════════════════════════════════

// Policy answers "what day is it" questions against an injected Clock.
type Policy struct {
	clock Clock
}

// NewPolicy creates a Policy over the given clock.
func NewPolicy(c Clock) *Policy {
	return &Policy{clock: c}
}

// SystemPolicy returns a Policy over the real wall clock.
func SystemPolicy() *Policy {
	return NewPolicy(SystemClock{})
}

// Now returns the current time in the reference timezone.
func (p *Policy) Now() time.Time {
	return p.clock.Now().In(ReferenceTZ)
}

// Today returns the start of the current calendar day.
func (p *Policy) Today() time.Time {
	return StartOfDay(p.Now())
}

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR MATH
// ══════════════════════════════════════════════════════════════════════════════

// Date creates the start of the given calendar day in the reference timezone.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, ReferenceTZ)
}

// StartOfDay truncates t to the start of its calendar day.
func StartOfDay(t time.Time) time.Time {
	r := t.In(ReferenceTZ)
	return time.Date(r.Year(), r.Month(), r.Day(), 0, 0, 0, 0, ReferenceTZ)
}

// IsSameDay reports whether a and b fall on the same calendar day.
func IsSameDay(a, b time.Time) bool {
	ra, rb := a.In(ReferenceTZ), b.In(ReferenceTZ)
	return ra.Year() == rb.Year() && ra.YearDay() == rb.YearDay()
}

// IsConsecutive reports whether cur is exactly the calendar day after prev.
func IsConsecutive(prev, cur time.Time) bool {
	return IsSameDay(StartOfDay(prev).AddDate(0, 0, 1), cur)
}

// DaysBetween returns the number of calendar days from a to b.
// The result is negative when b is before a. Computed with AddDate rather
// than hour division so a change of day is always exactly one day.
func DaysBetween(a, b time.Time) int {
	start := StartOfDay(a)
	end := StartOfDay(b)

	if start.Equal(end) {
		return 0
	}

	sign := 1
	if end.Before(start) {
		start, end = end, start
		sign = -1
	}

	days := 0
	for start.Before(end) {
		start = start.AddDate(0, 0, 1)
		days++
	}
	return days * sign
}

// FormatDate is the canonical date format (YYYY-MM-DD) used in logs and keys.
const FormatDate = "2006-01-02"

// FormatDateStr formats t as a date string in the reference timezone.
func FormatDateStr(t time.Time) string {
	return t.In(ReferenceTZ).Format(FormatDate)
}
