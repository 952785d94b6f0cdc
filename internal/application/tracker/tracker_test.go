package tracker

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-streak/internal/domain/shared"
	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/pkg/logger"
	"github.com/alem-hub/learning-streak/pkg/timeutil"
)

// memRepo is an in-memory streak.Repository with injectable failures.
type memRepo struct {
	records map[string]*streak.Record
	loadErr error
	saveErr error
	saves   int
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]*streak.Record)}
}

func (m *memRepo) Load(_ context.Context, userID string) (*streak.Record, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	rec, ok := m.records[userID]
	if !ok {
		return nil, shared.ErrStreakNotFound
	}
	return rec, nil
}

func (m *memRepo) Save(_ context.Context, rec *streak.Record) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[rec.UserID] = rec
	return nil
}

func (m *memRepo) Delete(_ context.Context, userID string) error {
	if _, ok := m.records[userID]; !ok {
		return shared.ErrStreakNotFound
	}
	delete(m.records, userID)
	return nil
}

func (m *memRepo) ListAtRisk(_ context.Context, asOf time.Time) ([]*streak.Record, error) {
	var out []*streak.Record
	for _, rec := range m.records {
		if rec.AtRisk(asOf) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// memNotifier records notifications.
type memNotifier struct {
	messages []string
	levels   []streak.NotificationLevel
	err      error
}

func (n *memNotifier) Notify(_ context.Context, _ string, message string, level streak.NotificationLevel) error {
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, message)
	n.levels = append(n.levels, level)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal})
}

func newTestTracker(repo *memRepo, notifier *memNotifier) *Tracker {
	return New(repo, notifier, testLogger(), rand.New(rand.NewSource(1)))
}

func day(yyyy, mm, dd int) time.Time {
	return timeutil.Date(yyyy, mm, dd)
}

func TestInit_FreshUserStartsStreak(t *testing.T) {
	repo := newMemRepo()
	tr := newTestTracker(repo, &memNotifier{})

	err := tr.Init(context.Background(), "u-1", day(2026, 3, 1))
	require.NoError(t, err)

	assert.Equal(t, 1, tr.CurrentStreak())
	assert.Equal(t, 1, tr.LongestStreak())
	assert.Contains(t, repo.records, "u-1", "новая запись сохранена")
}

func TestInit_ContinuesStoredStreakOnNextDay(t *testing.T) {
	repo := newMemRepo()
	stored := streak.NewRecord("u-1")
	for d := 1; d <= 5; d++ {
		stored.Evaluate(day(2026, 3, d))
	}
	repo.records["u-1"] = stored

	tr := newTestTracker(repo, &memNotifier{})
	require.NoError(t, tr.Init(context.Background(), "u-1", day(2026, 3, 6)))

	assert.Equal(t, 6, tr.CurrentStreak())
	assert.Equal(t, 6, tr.LongestStreak())
}

func TestInit_GapAtSessionStartResets(t *testing.T) {
	repo := newMemRepo()
	stored := streak.NewRecord("u-1")
	for d := 1; d <= 5; d++ {
		stored.Evaluate(day(2026, 3, d))
	}
	repo.records["u-1"] = stored

	tr := newTestTracker(repo, &memNotifier{})
	require.NoError(t, tr.Init(context.Background(), "u-1", day(2026, 3, 10)))

	assert.Equal(t, 1, tr.CurrentStreak())
	assert.Equal(t, 5, tr.LongestStreak())
}

func TestInit_LoadFailureFallsBackToFreshRecord(t *testing.T) {
	repo := newMemRepo()
	repo.loadErr = errors.New("backend down")

	tr := newTestTracker(repo, &memNotifier{})
	err := tr.Init(context.Background(), "u-1", day(2026, 3, 1))

	require.NoError(t, err, "сбой загрузки не должен ломать сессию")
	assert.Equal(t, 1, tr.CurrentStreak())
}

func TestInit_EmptyUserIDRejected(t *testing.T) {
	tr := newTestTracker(newMemRepo(), &memNotifier{})
	err := tr.Init(context.Background(), "", day(2026, 3, 1))
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestOperationsWithoutSessionReturnNoSession(t *testing.T) {
	tr := newTestTracker(newMemRepo(), &memNotifier{})
	ctx := context.Background()

	assert.ErrorIs(t, tr.RecordActivity(ctx, day(2026, 3, 1), 10, 1), shared.ErrNoSession)
	_, err := tr.GetStreakStats(day(2026, 3, 1))
	assert.ErrorIs(t, err, shared.ErrNoSession)
	_, err = tr.GetMotivationalMessage()
	assert.ErrorIs(t, err, shared.ErrNoSession)
	_, err = tr.GetWeeklyPattern(day(2026, 3, 1))
	assert.ErrorIs(t, err, shared.ErrNoSession)
	assert.ErrorIs(t, tr.ResetStreak(ctx), shared.ErrNoSession)
}

func TestRecordActivity_AccumulatesAndPersists(t *testing.T) {
	repo := newMemRepo()
	tr := newTestTracker(repo, &memNotifier{})
	ctx := context.Background()
	require.NoError(t, tr.Init(ctx, "u-1", day(2026, 3, 1)))

	require.NoError(t, tr.RecordActivity(ctx, day(2026, 3, 1), 10, 1))
	require.NoError(t, tr.RecordActivity(ctx, day(2026, 3, 1), 10, 1))

	stats, err := tr.GetStreakStats(day(2026, 3, 1))
	require.NoError(t, err)
	require.Equal(t, 1, len(stats.History))
	assert.Equal(t, 20, stats.History[0].Duration)
	assert.Equal(t, 2, stats.History[0].LessonsCompleted)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestRecordActivity_PersistenceFailureIsSwallowed(t *testing.T) {
	repo := newMemRepo()
	tr := newTestTracker(repo, &memNotifier{})
	ctx := context.Background()
	require.NoError(t, tr.Init(ctx, "u-1", day(2026, 3, 1)))

	repo.saveErr = errors.New("backend down")

	err := tr.RecordActivity(ctx, day(2026, 3, 2), 15, 1)
	require.NoError(t, err, "сбой сохранения не доходит до вызывающего")
	assert.Equal(t, 2, tr.CurrentStreak(), "состояние в памяти обновлено")
}

func TestRecordActivity_NegativeInputRejected(t *testing.T) {
	tr := newTestTracker(newMemRepo(), &memNotifier{})
	ctx := context.Background()
	require.NoError(t, tr.Init(ctx, "u-1", day(2026, 3, 1)))

	assert.ErrorIs(t, tr.RecordActivity(ctx, day(2026, 3, 1), -5, 1), shared.ErrNegativeValue)
	assert.ErrorIs(t, tr.RecordActivity(ctx, day(2026, 3, 1), 5, -1), shared.ErrNegativeValue)
}

func TestNotification_SentOnContinuationNotOnFirstDay(t *testing.T) {
	notifier := &memNotifier{}
	tr := newTestTracker(newMemRepo(), notifier)
	ctx := context.Background()

	require.NoError(t, tr.Init(ctx, "u-1", day(2026, 3, 1)))
	assert.Empty(t, notifier.messages, "первый день - без уведомления")

	require.NoError(t, tr.RecordActivity(ctx, day(2026, 3, 2), 10, 1))
	require.Equal(t, 1, len(notifier.messages))
	assert.Equal(t, streak.LevelInfo, notifier.levels[0])
}

func TestNotification_MilestoneLevel(t *testing.T) {
	notifier := &memNotifier{}
	tr := newTestTracker(newMemRepo(), notifier)
	ctx := context.Background()
	require.NoError(t, tr.Init(ctx, "u-1", day(2026, 3, 1)))

	for d := 2; d <= 7; d++ {
		require.NoError(t, tr.RecordActivity(ctx, day(2026, 3, d), 10, 1))
	}

	require.NotEmpty(t, notifier.levels)
	assert.Equal(t, streak.LevelMilestone, notifier.levels[len(notifier.levels)-1])
}

func TestNotification_FailureDoesNotAffectState(t *testing.T) {
	notifier := &memNotifier{err: errors.New("telegram down")}
	tr := newTestTracker(newMemRepo(), notifier)
	ctx := context.Background()
	require.NoError(t, tr.Init(ctx, "u-1", day(2026, 3, 1)))

	require.NoError(t, tr.RecordActivity(ctx, day(2026, 3, 2), 10, 1))
	assert.Equal(t, 2, tr.CurrentStreak())
}

func TestGetMotivationalMessage_ReflectsCurrentStreak(t *testing.T) {
	tr := newTestTracker(newMemRepo(), &memNotifier{})
	ctx := context.Background()
	require.NoError(t, tr.Init(ctx, "u-1", day(2026, 3, 1)))

	msg, err := tr.GetMotivationalMessage()
	require.NoError(t, err)
	assert.Equal(t, streak.MessageFor(1, nil), msg)
}

func TestResetStreak_ClearsStateAndPersistedCopy(t *testing.T) {
	repo := newMemRepo()
	tr := newTestTracker(repo, &memNotifier{})
	ctx := context.Background()
	require.NoError(t, tr.Init(ctx, "u-1", day(2026, 3, 1)))
	require.NoError(t, tr.RecordActivity(ctx, day(2026, 3, 2), 10, 1))

	require.NoError(t, tr.ResetStreak(ctx))

	assert.Equal(t, 0, tr.CurrentStreak())
	assert.Equal(t, 0, tr.LongestStreak())
	assert.True(t, tr.LastActivityDate().IsZero())
	assert.NotContains(t, repo.records, "u-1")

	stats, err := tr.GetStreakStats(day(2026, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalLearningDays)
}

func TestManager_ReusesSessionAndSurvivesEndSession(t *testing.T) {
	repo := newMemRepo()
	m := NewManager(repo, &memNotifier{}, testLogger())
	ctx := context.Background()

	err := m.WithSession(ctx, "u-1", day(2026, 3, 1), func(tr *Tracker) error {
		return tr.RecordActivity(ctx, day(2026, 3, 1), 10, 1)
	})
	require.NoError(t, err)

	// Та же сессия: серия не пересоздаётся.
	err = m.WithSession(ctx, "u-1", day(2026, 3, 1), func(tr *Tracker) error {
		assert.Equal(t, 1, tr.CurrentStreak())
		return nil
	})
	require.NoError(t, err)

	m.EndSession("u-1")

	// Новая сессия поднимает состояние из хранилища.
	err = m.WithSession(ctx, "u-1", day(2026, 3, 2), func(tr *Tracker) error {
		assert.Equal(t, 2, tr.CurrentStreak(), "Init продолжил серию на следующий день")
		return nil
	})
	require.NoError(t, err)
}

func TestManager_SweepIdleEvictsOnlyStaleSessions(t *testing.T) {
	repo := newMemRepo()
	m := NewManager(repo, &memNotifier{}, testLogger())
	ctx := context.Background()

	require.NoError(t, m.WithSession(ctx, "u-1", day(2026, 3, 1), func(tr *Tracker) error {
		return tr.RecordActivity(ctx, day(2026, 3, 1), 10, 1)
	}))
	require.NoError(t, m.WithSession(ctx, "u-2", day(2026, 3, 1), func(*Tracker) error {
		return nil
	}))
	require.Equal(t, 2, m.SessionCount())

	// Обе сессии только что использовались - живут.
	assert.Equal(t, 0, m.SweepIdle(time.Hour))
	assert.Equal(t, 2, m.SessionCount())

	// Нулевой порог делает любую сессию устаревшей.
	assert.Equal(t, 2, m.SweepIdle(-time.Second))
	assert.Equal(t, 0, m.SessionCount())

	// Состояние пережило выселение: следующая сессия читает хранилище.
	err := m.WithSession(ctx, "u-1", day(2026, 3, 1), func(tr *Tracker) error {
		assert.Equal(t, 1, tr.CurrentStreak())
		return nil
	})
	require.NoError(t, err)
}
