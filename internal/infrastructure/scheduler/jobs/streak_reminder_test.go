package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/pkg/timeutil"
)

type fakeRepo struct {
	atRisk  []*streak.Record
	listErr error
}

func (f *fakeRepo) Load(context.Context, string) (*streak.Record, error) { return nil, nil }
func (f *fakeRepo) Save(context.Context, *streak.Record) error           { return nil }
func (f *fakeRepo) Delete(context.Context, string) error                 { return nil }
func (f *fakeRepo) ListAtRisk(context.Context, time.Time) ([]*streak.Record, error) {
	return f.atRisk, f.listErr
}

type fakeNotifier struct {
	sent   []string
	levels []streak.NotificationLevel
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, userID string, _ string, level streak.NotificationLevel) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, userID)
	f.levels = append(f.levels, level)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func recordWithStreak(userID string, days int) *streak.Record {
	rec := streak.NewRecord(userID)
	start := timeutil.Date(2026, 3, 1)
	for d := 0; d < days; d++ {
		rec.Evaluate(start.AddDate(0, 0, d))
	}
	return rec
}

func TestRun_SendsRemindersToAtRiskUsers(t *testing.T) {
	repo := &fakeRepo{atRisk: []*streak.Record{
		recordWithStreak("u-1", 5),
		recordWithStreak("u-2", 12),
	}}
	notifier := &fakeNotifier{}

	job := NewStreakReminderJob(repo, notifier, quietLogger(), DefaultReminderConfig())
	require.NoError(t, job.Run(context.Background()))

	assert.ElementsMatch(t, []string{"u-1", "u-2"}, notifier.sent)
	for _, lvl := range notifier.levels {
		assert.Equal(t, streak.LevelReminder, lvl)
	}

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.AtRiskFound)
	assert.Equal(t, 2, stats.RemindersSent)
}

func TestRun_SkipsShortStreaks(t *testing.T) {
	repo := &fakeRepo{atRisk: []*streak.Record{
		recordWithStreak("u-1", 1),
		recordWithStreak("u-2", 3),
	}}
	notifier := &fakeNotifier{}

	job := NewStreakReminderJob(repo, notifier, quietLogger(), DefaultReminderConfig())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"u-2"}, notifier.sent, "однодневная серия не беспокоит пользователя")
	assert.Equal(t, 1, job.LastRunStats().Skipped)
}

func TestRun_ListFailurePropagates(t *testing.T) {
	repo := &fakeRepo{listErr: errors.New("pg down")}

	job := NewStreakReminderJob(repo, &fakeNotifier{}, quietLogger(), DefaultReminderConfig())
	assert.Error(t, job.Run(context.Background()))
}

func TestRun_DeliveryFailuresAreCollectedNotFatal(t *testing.T) {
	repo := &fakeRepo{atRisk: []*streak.Record{recordWithStreak("u-1", 5)}}
	notifier := &fakeNotifier{err: errors.New("telegram down")}

	job := NewStreakReminderJob(repo, notifier, quietLogger(), DefaultReminderConfig())
	require.NoError(t, job.Run(context.Background()))

	stats := job.LastRunStats()
	assert.Equal(t, 0, stats.RemindersSent)
	assert.Len(t, stats.Errors, 1)
}

func TestReminderMessage_UsesRussianPlural(t *testing.T) {
	msg := reminderMessage(recordWithStreak("u-1", 5))
	assert.Contains(t, msg, "5 дней")

	msg = reminderMessage(recordWithStreak("u-1", 21))
	assert.Contains(t, msg, "21 день")
}
