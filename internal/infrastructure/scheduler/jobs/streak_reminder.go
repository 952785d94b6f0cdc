// Package jobs contains implementations of scheduled jobs for the learning
// streak service.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REMINDER JOB
// ══════════════════════════════════════════════════════════════════════════════

// StreakReminderJob finds users whose streak breaks at midnight without
// activity today and sends them an evening reminder.
//
// A streak is at risk when the last credited activity was exactly yesterday:
// one more idle day and the counter resets. Users who already learned today
// and users whose streak is already broken are both left alone.
type StreakReminderJob struct {
	repo     streak.Repository
	notifier streak.Notifier
	logger   *slog.Logger

	config ReminderConfig

	lastRunStats atomic.Value // *ReminderStats
}

// ReminderConfig contains configuration for the reminder job.
type ReminderConfig struct {
	// MinStreakLength skips reminders for streaks shorter than this.
	// A one-day streak is not yet a habit worth interrupting an evening for.
	MinStreakLength int

	// Timeout is the maximum duration for a single run.
	Timeout time.Duration
}

// DefaultReminderConfig returns sensible defaults.
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		MinStreakLength: 2,
		Timeout:         2 * time.Minute,
	}
}

// ReminderStats contains statistics from a reminder run.
type ReminderStats struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	AtRiskFound   int
	RemindersSent int
	Skipped       int
	Errors        []error
}

// NewStreakReminderJob creates a new streak reminder job.
func NewStreakReminderJob(
	repo streak.Repository,
	notifier streak.Notifier,
	logger *slog.Logger,
	config ReminderConfig,
) *StreakReminderJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &StreakReminderJob{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		config:   config,
	}
}

// Name returns the job name.
func (j *StreakReminderJob) Name() string {
	return "streak_reminder"
}

// Description returns a human-readable description.
func (j *StreakReminderJob) Description() string {
	return "Reminds users whose learning streak breaks at midnight without activity"
}

// Run executes the reminder job.
func (j *StreakReminderJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &ReminderStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	today := timeutil.Now()
	atRisk, err := j.repo.ListAtRisk(ctx, today)
	if err != nil {
		return fmt.Errorf("list at-risk streaks: %w", err)
	}

	stats.AtRiskFound = len(atRisk)

	for _, rec := range atRisk {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if rec.CurrentStreak < j.config.MinStreakLength {
			stats.Skipped++
			continue
		}

		msg := reminderMessage(rec)
		if err := j.notifier.Notify(ctx, rec.UserID, msg, streak.LevelReminder); err != nil {
			stats.Errors = append(stats.Errors, err)
			j.logger.Warn("failed to send streak reminder",
				"user_id", rec.UserID,
				"error", err,
			)
			continue
		}

		stats.RemindersSent++
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("streak_reminder job completed",
		"duration", stats.Duration.String(),
		"at_risk", stats.AtRiskFound,
		"sent", stats.RemindersSent,
		"skipped", stats.Skipped,
		"errors", len(stats.Errors),
	)

	return nil
}

// reminderMessage builds the evening nudge for an at-risk streak.
func reminderMessage(rec *streak.Record) string {
	return fmt.Sprintf(
		"🔥 Твоя серия в %s под угрозой!\n\n"+
			"Сегодня ещё не было активности. Один короткий урок до полуночи — "+
			"и серия продолжится. Не дай ей сгореть!",
		timeutil.PluralDaysRu(rec.CurrentStreak),
	)
}

// LastRunStats returns statistics from the last reminder run.
func (j *StreakReminderJob) LastRunStats() *ReminderStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*ReminderStats)
}
