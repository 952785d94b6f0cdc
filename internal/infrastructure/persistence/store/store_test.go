package store

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-streak/internal/domain/shared"
	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/pkg/logger"
	"github.com/alem-hub/learning-streak/pkg/timeutil"
)

// fakeRepo is an in-memory streak.Repository with injectable failures.
type fakeRepo struct {
	records map[string]*streak.Record
	err     error
	saves   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*streak.Record)}
}

func (f *fakeRepo) Load(_ context.Context, userID string) (*streak.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[userID]
	if !ok {
		return nil, shared.ErrStreakNotFound
	}
	return rec, nil
}

func (f *fakeRepo) Save(_ context.Context, rec *streak.Record) error {
	f.saves++
	if f.err != nil {
		return f.err
	}
	f.records[rec.UserID] = rec
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.records[userID]; !ok {
		return shared.ErrStreakNotFound
	}
	delete(f.records, userID)
	return nil
}

func (f *fakeRepo) ListAtRisk(_ context.Context, asOf time.Time) ([]*streak.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*streak.Record
	for _, rec := range f.records {
		if rec.AtRisk(asOf) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fakeCache is an in-memory streak.Cache with injectable failures.
type fakeCache struct {
	records map[string]*streak.Record
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{records: make(map[string]*streak.Record)}
}

func (f *fakeCache) Get(_ context.Context, userID string) (*streak.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[userID]
	if !ok {
		return nil, shared.ErrStreakNotFound
	}
	return rec, nil
}

func (f *fakeCache) Set(_ context.Context, rec *streak.Record) error {
	if f.err != nil {
		return f.err
	}
	f.records[rec.UserID] = rec
	return nil
}

func (f *fakeCache) Delete(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.records, userID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal})
}

func sampleRecord(userID string) *streak.Record {
	rec := streak.NewRecord(userID)
	rec.RecordActivity(timeutil.Date(2026, 3, 1), 30, 2)
	rec.RecordActivity(timeutil.Date(2026, 3, 2), 20, 1)
	return rec
}

func TestLoad_PrefersPrimaryAndRefreshesCache(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	repo.records["u-1"] = sampleRecord("u-1")

	s := New(repo, cache, testLogger())

	rec, err := s.Load(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.CurrentStreak)

	// Кэш освежён успешной загрузкой из основного хранилища.
	cached, err := cache.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, cached.CurrentStreak)
}

func TestLoad_FallsBackToCacheWhenPrimaryFails(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	repo.err = errors.New("connection refused")
	cache.records["u-1"] = sampleRecord("u-1")

	s := New(repo, cache, testLogger())

	rec, err := s.Load(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.CurrentStreak)
}

func TestLoad_TotalMissReturnsNotFound(t *testing.T) {
	s := New(newFakeRepo(), newFakeCache(), testLogger())

	_, err := s.Load(context.Background(), "u-404")
	assert.ErrorIs(t, err, shared.ErrStreakNotFound)
}

func TestLoad_PrimaryMissFallsBackToCache(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	cache.records["u-1"] = sampleRecord("u-1")

	s := New(repo, cache, testLogger())

	rec, err := s.Load(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", rec.UserID)
}

func TestSave_WritesBothBackends(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	s := New(repo, cache, testLogger())

	err := s.Save(context.Background(), sampleRecord("u-1"))
	require.NoError(t, err)

	assert.Contains(t, repo.records, "u-1")
	assert.Contains(t, cache.records, "u-1")
}

func TestSave_PrimaryFailureIsSwallowed(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	repo.err = errors.New("connection refused")

	s := New(repo, cache, testLogger())

	err := s.Save(context.Background(), sampleRecord("u-1"))
	assert.NoError(t, err, "успешной записи в кэш достаточно")
	assert.Contains(t, cache.records, "u-1")
}

func TestSave_PrimaryWriteIsRetried(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	repo.err = errors.New("transient")

	s := New(repo, cache, testLogger())
	_ = s.Save(context.Background(), sampleRecord("u-1"))

	assert.Equal(t, 3, repo.saves)
}

func TestSave_TotalFailureReturnsPersistenceError(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	repo.err = errors.New("pg down")
	cache.err = errors.New("redis down")

	s := New(repo, cache, testLogger())

	err := s.Save(context.Background(), sampleRecord("u-1"))
	assert.ErrorIs(t, err, shared.ErrPersistence)
}

func TestDelete_RemovesBothAndToleratesMissingPrimaryRow(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	cache.records["u-1"] = sampleRecord("u-1")

	s := New(repo, cache, testLogger())

	err := s.Delete(context.Background(), "u-1")
	require.NoError(t, err)
	assert.NotContains(t, cache.records, "u-1")
}

func TestListAtRisk_DelegatesToPrimary(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()

	atRisk := streak.NewRecord("u-1")
	atRisk.Evaluate(timeutil.Date(2026, 3, 10))
	safe := streak.NewRecord("u-2")
	safe.Evaluate(timeutil.Date(2026, 3, 11))

	repo.records["u-1"] = atRisk
	repo.records["u-2"] = safe

	s := New(repo, cache, testLogger())

	records, err := s.ListAtRisk(context.Background(), timeutil.Date(2026, 3, 11))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "u-1", records[0].UserID)
}

func TestLoad_CircuitOpensAfterRepeatedPrimaryFailures(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	repo.err = errors.New("connection refused")
	cache.records["u-1"] = sampleRecord("u-1")

	s := New(repo, cache, testLogger())

	// Три подряд отказа открывают breaker; загрузки продолжают работать через кэш.
	for i := 0; i < 5; i++ {
		rec, err := s.Load(context.Background(), "u-1")
		require.NoError(t, err)
		assert.Equal(t, "u-1", rec.UserID)
	}
}
