package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestSameDay(t *testing.T) {
	assert.True(t, SameDay(date(2024, 8, 12, 3), date(2024, 8, 12, 23)))
	assert.False(t, SameDay(date(2024, 8, 12, 23), date(2024, 8, 13, 0)))
}

func TestDaysBetweenIgnoresClockTime(t *testing.T) {
	a := date(2024, 8, 12, 23)
	b := date(2024, 8, 15, 1)
	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, -3, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, date(2024, 8, 12, 0)))
}

func TestIsStrictlyAfterDay(t *testing.T) {
	assert.True(t, IsStrictlyAfterDay(date(2024, 8, 13, 0), date(2024, 8, 12, 23)))
	assert.False(t, IsStrictlyAfterDay(date(2024, 8, 12, 23), date(2024, 8, 12, 1)))
	assert.False(t, IsStrictlyAfterDay(date(2024, 8, 11, 23), date(2024, 8, 12, 1)))
}

func TestAddDaysCrossesMonthBoundary(t *testing.T) {
	assert.Equal(t, date(2024, 9, 2, 10), AddDays(date(2024, 8, 31, 10), 2))
}

func TestWeekBounds(t *testing.T) {
	// 2024-08-14 is a Wednesday
	wed := date(2024, 8, 14, 15)

	assert.Equal(t, date(2024, 8, 12, 0), StartOfWeek(wed, time.Monday))
	assert.Equal(t, date(2024, 8, 18, 0), EndOfWeek(wed, time.Monday))

	assert.Equal(t, date(2024, 8, 11, 0), StartOfWeek(wed, time.Sunday))
	assert.Equal(t, date(2024, 8, 17, 0), EndOfWeek(wed, time.Sunday))

	// a day equal to the week start maps to itself
	assert.Equal(t, date(2024, 8, 12, 0), StartOfWeek(date(2024, 8, 12, 8), time.Monday))
}

func TestMonthBounds(t *testing.T) {
	assert.Equal(t, date(2024, 2, 1, 0), StartOfMonth(date(2024, 2, 14, 9)))
	assert.Equal(t, date(2024, 2, 29, 0), EndOfMonth(date(2024, 2, 14, 9)))
	assert.Equal(t, date(2024, 4, 30, 0), EndOfMonth(date(2024, 4, 1, 0)))
}

func TestStartAndEndOfDay(t *testing.T) {
	ts := date(2024, 8, 12, 17)
	assert.Equal(t, date(2024, 8, 12, 0), StartOfDay(ts))
	assert.True(t, EndOfDay(ts).Before(date(2024, 8, 13, 0)))
	assert.True(t, SameDay(ts, EndOfDay(ts)))
}
