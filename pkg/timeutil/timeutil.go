// Package timeutil provides timezone utilities for Almaty timezone (UTC+5).
// Learning streaks are counted in calendar days of the user's home timezone,
// so all day-boundary arithmetic in the service goes through this package.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// AlmatyTZ is the Almaty timezone (UTC+5, no DST).
// Kazakhstan abolished DST in 2005, so this is constant year-round.
var AlmatyTZ = time.FixedZone("Asia/Almaty", 5*60*60)

// Now returns the current time in Almaty timezone.
func Now() time.Time {
	return time.Now().In(AlmatyTZ)
}

// ToAlmaty converts a time to Almaty timezone.
func ToAlmaty(t time.Time) time.Time {
	return t.In(AlmatyTZ)
}

// Date creates a time in Almaty timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, AlmatyTZ)
}

// StartOfDay returns the start of the day (00:00:00) in Almaty timezone.
func StartOfDay(t time.Time) time.Time {
	almaty := ToAlmaty(t)
	return time.Date(almaty.Year(), almaty.Month(), almaty.Day(), 0, 0, 0, 0, AlmatyTZ)
}

// IsToday checks if the given time is today in Almaty timezone.
func IsToday(t time.Time) bool {
	return IsSameDay(t, Now())
}

// IsYesterday checks if the given time is yesterday in Almaty timezone.
func IsYesterday(t time.Time) bool {
	return IsSameDay(t, Now().AddDate(0, 0, -1))
}

// Streak day arithmetic. A streak day is a calendar date, never a 24-hour
// window: activity at 23:59 and 00:01 counts as two consecutive days.

// IsSameDay checks if two times are on the same day in Almaty timezone.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := ToAlmaty(t1), ToAlmaty(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// IsConsecutiveDay checks if t2 is the day after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	a1, a2 := ToAlmaty(t1), ToAlmaty(t2)
	nextDay := a1.AddDate(0, 0, 1)
	return IsSameDay(nextDay, a2)
}

// DaysBetween calculates the number of days between two times.
func DaysBetween(t1, t2 time.Time) int {
	a1 := StartOfDay(t1)
	a2 := StartOfDay(t2)
	duration := a2.Sub(a1)
	days := int(duration.Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatRussianDate is the Russian date format (DD.MM.YYYY).
	FormatRussianDate = "02.01.2006"
)

// FormatAlmaty formats a time in Almaty timezone with the given layout.
func FormatAlmaty(t time.Time, layout string) string {
	return ToAlmaty(t).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in Almaty timezone.
func FormatDateStr(t time.Time) string {
	return FormatAlmaty(t, FormatDate)
}

// ParseAlmaty parses a time string in Almaty timezone.
func ParseAlmaty(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, AlmatyTZ)
}

// ParseDateAlmaty parses a date string (YYYY-MM-DD) in Almaty timezone.
func ParseDateAlmaty(value string) (time.Time, error) {
	return ParseAlmaty(FormatDate, value)
}

// Notification timing helpers.

// IsSafeNotificationTime checks if it's appropriate to send notifications (9:00-22:00).
func IsSafeNotificationTime(t time.Time) bool {
	almaty := ToAlmaty(t)
	hour := almaty.Hour()
	return hour >= 9 && hour < 22
}

// WeekdayNameRu returns the Russian name for a weekday.
func WeekdayNameRu(t time.Time) string {
	almaty := ToAlmaty(t)
	switch almaty.Weekday() {
	case time.Monday:
		return "Понедельник"
	case time.Tuesday:
		return "Вторник"
	case time.Wednesday:
		return "Среда"
	case time.Thursday:
		return "Четверг"
	case time.Friday:
		return "Пятница"
	case time.Saturday:
		return "Суббота"
	case time.Sunday:
		return "Воскресенье"
	default:
		return ""
	}
}

// PluralDaysRu returns the correct Russian plural form for n days:
// 1 день, 2 дня, 5 дней.
func PluralDaysRu(n int) string {
	if n < 0 {
		n = -n
	}
	switch {
	case n%100 >= 11 && n%100 <= 14:
		return fmt.Sprintf("%d дней", n)
	case n%10 == 1:
		return fmt.Sprintf("%d день", n)
	case n%10 >= 2 && n%10 <= 4:
		return fmt.Sprintf("%d дня", n)
	default:
		return fmt.Sprintf("%d дней", n)
	}
}
