package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsSameDay(t *testing.T) {
	morning := time.Date(2026, 3, 1, 8, 0, 0, 0, AlmatyTZ)
	evening := time.Date(2026, 3, 1, 23, 59, 0, 0, AlmatyTZ)
	nextDay := time.Date(2026, 3, 2, 0, 1, 0, 0, AlmatyTZ)

	assert.True(t, IsSameDay(morning, evening))
	assert.False(t, IsSameDay(evening, nextDay))
}

func TestIsSameDay_AcrossTimezones(t *testing.T) {
	// 22:00 UTC 1 марта = 03:00 2 марта в Алматы.
	utc := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	almaty := time.Date(2026, 3, 2, 1, 0, 0, 0, AlmatyTZ)

	assert.True(t, IsSameDay(utc, almaty))
}

func TestIsConsecutiveDay(t *testing.T) {
	d1 := Date(2026, 3, 1)
	d2 := Date(2026, 3, 2)
	d3 := Date(2026, 3, 3)

	assert.True(t, IsConsecutiveDay(d1, d2))
	assert.False(t, IsConsecutiveDay(d1, d3))
	assert.False(t, IsConsecutiveDay(d2, d1))
	assert.False(t, IsConsecutiveDay(d1, d1))
}

func TestIsConsecutiveDay_MonthBoundary(t *testing.T) {
	assert.True(t, IsConsecutiveDay(Date(2026, 2, 28), Date(2026, 3, 1)))
	assert.True(t, IsConsecutiveDay(Date(2026, 12, 31), Date(2027, 1, 1)))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(Date(2026, 3, 1), Date(2026, 3, 1)))
	assert.Equal(t, 1, DaysBetween(Date(2026, 3, 1), Date(2026, 3, 2)))
	assert.Equal(t, 5, DaysBetween(Date(2026, 3, 1), Date(2026, 3, 6)))
	assert.Equal(t, 5, DaysBetween(Date(2026, 3, 6), Date(2026, 3, 1)))
}

func TestStartOfDay(t *testing.T) {
	ts := time.Date(2026, 3, 1, 17, 42, 13, 500, AlmatyTZ)
	start := StartOfDay(ts)

	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 0, start.Minute())
	assert.True(t, IsSameDay(ts, start))
}

func TestFormatAndParseDate(t *testing.T) {
	d := Date(2026, 3, 1)
	assert.Equal(t, "2026-03-01", FormatDateStr(d))

	parsed, err := ParseDateAlmaty("2026-03-01")
	assert.NoError(t, err)
	assert.True(t, IsSameDay(d, parsed))
}

func TestPluralDaysRu(t *testing.T) {
	cases := map[int]string{
		1:   "1 день",
		2:   "2 дня",
		4:   "4 дня",
		5:   "5 дней",
		11:  "11 дней",
		12:  "12 дней",
		14:  "14 дней",
		21:  "21 день",
		22:  "22 дня",
		25:  "25 дней",
		100: "100 дней",
		101: "101 день",
		111: "111 дней",
	}
	for n, want := range cases {
		assert.Equal(t, want, PluralDaysRu(n), "n=%d", n)
	}
}
