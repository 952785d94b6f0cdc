package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alem-hub/learning-streak/pkg/timeutil"
)

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(5 * time.Minute)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(5*time.Minute), s.Next(base))
	assert.Equal(t, "@every 5m0s", s.String())
}

func TestDailyAtSchedule_BeforeFireTime(t *testing.T) {
	s := NewDailyAtSchedule(20, 0, timeutil.AlmatyTZ)

	// В 15:00 по Алматы следующий запуск сегодня в 20:00.
	at := time.Date(2026, 3, 1, 15, 0, 0, 0, timeutil.AlmatyTZ)
	next := s.Next(at)

	assert.Equal(t, time.Date(2026, 3, 1, 20, 0, 0, 0, timeutil.AlmatyTZ), next)
}

func TestDailyAtSchedule_AfterFireTimeRollsToTomorrow(t *testing.T) {
	s := NewDailyAtSchedule(20, 0, timeutil.AlmatyTZ)

	at := time.Date(2026, 3, 1, 21, 30, 0, 0, timeutil.AlmatyTZ)
	next := s.Next(at)

	assert.Equal(t, time.Date(2026, 3, 2, 20, 0, 0, 0, timeutil.AlmatyTZ), next)
}

func TestDailyAtSchedule_ExactFireTimeRollsToTomorrow(t *testing.T) {
	s := NewDailyAtSchedule(20, 0, timeutil.AlmatyTZ)

	at := time.Date(2026, 3, 1, 20, 0, 0, 0, timeutil.AlmatyTZ)
	next := s.Next(at)

	assert.Equal(t, time.Date(2026, 3, 2, 20, 0, 0, 0, timeutil.AlmatyTZ), next,
		"строго после t, чтобы не сработать дважды в одну минуту")
}

func TestDailyAtSchedule_ConvertsFromOtherZones(t *testing.T) {
	s := NewDailyAtSchedule(20, 0, timeutil.AlmatyTZ)

	// 10:00 UTC == 15:00 по Алматы; запуск сегодня в 20:00 по Алматы.
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	next := s.Next(at)

	assert.True(t, next.Equal(time.Date(2026, 3, 1, 20, 0, 0, 0, timeutil.AlmatyTZ)))
}
