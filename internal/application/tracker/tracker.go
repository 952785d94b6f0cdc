// Package tracker contains the application service for streak tracking:
// a session-scoped Tracker that drives the domain state machine against the
// persistence store and notification sink, and a Manager that owns one
// Tracker per user and serializes access to it.
//
// Persistence failures never propagate out of the tracker: the in-memory
// record stays usable for the session and the store catches up on the next
// successful save.
package tracker

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/alem-hub/learning-streak/internal/domain/shared"
	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/pkg/logger"
)

// Tracker drives streak evaluation for one user session.
//
// A Tracker is not safe for concurrent use; the Manager serializes calls
// per session. Operations before a successful Init return shared.ErrNoSession
// and mutate nothing.
type Tracker struct {
	repo     streak.Repository
	notifier streak.Notifier
	log      *logger.Logger
	rng      *rand.Rand

	userID string
	rec    *streak.Record

	// Зеркала состояния, синхронизируются после каждой мутации.
	currentStreak    int
	longestStreak    int
	lastActivityDate time.Time
}

// New creates an unbound tracker. Call Init to start a session.
func New(repo streak.Repository, notifier streak.Notifier, log *logger.Logger, rng *rand.Rand) *Tracker {
	return &Tracker{
		repo:     repo,
		notifier: notifier,
		log:      log.With(logger.Component("tracker")),
		rng:      rng,
	}
}

// Init starts a tracking session: loads the stored record (or initializes a
// fresh one when none exists or loading fails) and runs one evaluation
// against today's date, persisting the result if the state changed.
func (t *Tracker) Init(ctx context.Context, userID string, today time.Time) error {
	if userID == "" {
		return shared.ErrInvalidUserID
	}

	rec, err := t.repo.Load(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			t.log.Warn("failed to load streak record, starting fresh",
				logger.UserID(userID), logger.Err(err))
		}
		rec = streak.NewRecord(userID)
	}

	t.userID = userID
	t.rec = rec

	tr := t.rec.Evaluate(today)
	if tr.Credits() {
		t.persist(ctx)
		t.maybeNotify(ctx, tr)
	}
	t.syncMirrors()

	t.log.Info("tracking session started",
		logger.UserID(userID),
		logger.StreakLength(t.currentStreak),
		logger.String("transition", tr.String()),
	)

	return nil
}

// RecordActivity credits today (idempotent within a day) and accumulates the
// activity volume into today's history entry. Persistence failures are
// swallowed; the in-memory state is always updated.
func (t *Tracker) RecordActivity(ctx context.Context, today time.Time, durationMinutes, lessonsCompleted int) error {
	if t.rec == nil {
		return shared.ErrNoSession
	}
	if durationMinutes < 0 || lessonsCompleted < 0 {
		return shared.ErrInvalidDuration
	}

	tr := t.rec.RecordActivity(today, durationMinutes, lessonsCompleted)
	t.persist(ctx)
	t.syncMirrors()
	t.maybeNotify(ctx, tr)

	return nil
}

// GetStreakStats returns the streak summary relative to today.
func (t *Tracker) GetStreakStats(today time.Time) (streak.Stats, error) {
	if t.rec == nil {
		return streak.Stats{}, shared.ErrNoSession
	}
	return t.rec.Stats(today), nil
}

// GetMotivationalMessage returns the motivational message for the current streak.
func (t *Tracker) GetMotivationalMessage() (string, error) {
	if t.rec == nil {
		return "", shared.ErrNoSession
	}
	return streak.MessageFor(t.rec.CurrentStreak, t.rng), nil
}

// GetWeeklyPattern returns the 7-day activity pattern ending today.
func (t *Tracker) GetWeeklyPattern(today time.Time) ([]streak.WeekDay, error) {
	if t.rec == nil {
		return nil, shared.ErrNoSession
	}
	return t.rec.WeeklyPattern(today), nil
}

// ResetStreak reinitializes the record to the empty state and removes the
// persisted copies. Irreversible; intended for explicit user action.
func (t *Tracker) ResetStreak(ctx context.Context) error {
	if t.rec == nil {
		return shared.ErrNoSession
	}

	t.rec.Reset()
	t.syncMirrors()

	if err := t.repo.Delete(ctx, t.userID); err != nil && !errors.Is(err, shared.ErrNotFound) {
		t.log.Warn("failed to delete persisted streak on reset",
			logger.UserID(t.userID), logger.Err(err))
	}

	t.log.Info("streak reset", logger.UserID(t.userID))
	return nil
}

// CurrentStreak returns the mirrored current streak length.
func (t *Tracker) CurrentStreak() int { return t.currentStreak }

// LongestStreak returns the mirrored longest streak length.
func (t *Tracker) LongestStreak() int { return t.longestStreak }

// LastActivityDate returns the mirrored date of the last credited activity.
func (t *Tracker) LastActivityDate() time.Time { return t.lastActivityDate }

// UserID returns the session's user ID, empty before Init.
func (t *Tracker) UserID() string { return t.userID }

func (t *Tracker) persist(ctx context.Context) {
	if err := t.repo.Save(ctx, t.rec); err != nil {
		t.log.Warn("failed to persist streak record, continuing in memory",
			logger.UserID(t.userID), logger.Err(err))
	}
}

func (t *Tracker) syncMirrors() {
	t.currentStreak = t.rec.CurrentStreak
	t.longestStreak = t.rec.LongestStreak
	t.lastActivityDate = t.rec.LastActivityDate
}

// maybeNotify emits a motivational notification after a crediting evaluation
// once the streak is longer than one day. Best-effort: failures are logged
// and never affect streak state.
func (t *Tracker) maybeNotify(ctx context.Context, tr streak.Transition) {
	if t.notifier == nil || !tr.Credits() || t.rec.CurrentStreak <= 1 {
		return
	}

	level := streak.LevelInfo
	if streak.IsMilestone(t.rec.CurrentStreak) {
		level = streak.LevelMilestone
	}

	msg := streak.MessageFor(t.rec.CurrentStreak, t.rng)
	if err := t.notifier.Notify(ctx, t.userID, msg, level); err != nil {
		t.log.Warn("failed to send motivational notification",
			logger.UserID(t.userID), logger.Err(err))
	}
}
