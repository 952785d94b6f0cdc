// Package store composes the primary PostgreSQL repository and the local
// Redis cache into a single streak.Repository with degradation semantics:
//
//   - Load: primary first (behind a circuit breaker), local cache as
//     fallback; a miss everywhere is shared.ErrStreakNotFound, which callers
//     treat as "start fresh", not as a failure.
//   - Save: the local cache write is the one that matters for session
//     continuity; the primary write is best-effort with retries, and its
//     failure is logged and swallowed.
//
// There are no cross-backend transactions. The backends may briefly diverge;
// the primary catches up on the next successful save.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/alem-hub/learning-streak/internal/domain/shared"
	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/pkg/circuitbreaker"
	"github.com/alem-hub/learning-streak/pkg/logger"
	"github.com/alem-hub/learning-streak/pkg/retry"
)

// Store is the composite dual-backend streak repository.
type Store struct {
	primary streak.Repository
	cache   streak.Cache
	breaker *circuitbreaker.CircuitBreaker
	retrier *retry.Retrier
	log     *logger.Logger
}

// Compile-time interface check.
var _ streak.Repository = (*Store)(nil)

// New creates a composite store over the primary repository and local cache.
func New(primary streak.Repository, cache streak.Cache, log *logger.Logger) *Store {
	s := &Store{
		primary: primary,
		cache:   cache,
		log:     log.With(logger.Component("streak-store")),
	}

	s.breaker = circuitbreaker.New(
		"streak-primary",
		circuitbreaker.WithFailureThreshold(3),
		circuitbreaker.WithSuccessThreshold(1),
		circuitbreaker.WithTimeout(10*time.Second),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			s.log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
		// A missing record is an answer, not a backend failure.
		circuitbreaker.WithIsFailure(func(err error) bool {
			return !errors.Is(err, shared.ErrNotFound)
		}),
	)

	s.retrier = retry.New(
		retry.WithMaxAttempts(3),
		retry.WithInitialDelay(50*time.Millisecond),
		retry.WithMaxDelay(1*time.Second),
		retry.WithRetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}),
	)

	return s
}

// Load loads the streak record, preferring the primary backend.
func (s *Store) Load(ctx context.Context, userID string) (*streak.Record, error) {
	var rec *streak.Record

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var loadErr error
		rec, loadErr = s.primary.Load(ctx, userID)
		return loadErr
	})
	if err == nil {
		// Освежаем локальную копию, ошибка кэша не критична.
		if cacheErr := s.cache.Set(ctx, rec); cacheErr != nil {
			s.log.Warn("failed to refresh cache after primary load",
				logger.UserID(userID), logger.Err(cacheErr))
		}
		return rec, nil
	}

	if !errors.Is(err, shared.ErrNotFound) {
		s.log.Warn("primary load failed, falling back to cache",
			logger.UserID(userID), logger.Backend("postgres"), logger.Err(err))
	}

	rec, cacheErr := s.cache.Get(ctx, userID)
	if cacheErr == nil {
		return rec, nil
	}

	if !errors.Is(cacheErr, shared.ErrNotFound) {
		s.log.Warn("cache load failed",
			logger.UserID(userID), logger.Backend("redis"), logger.Err(cacheErr))
	}

	return nil, shared.ErrStreakNotFound
}

// Save persists the streak record to both backends.
// Either backend succeeding is enough; only a total failure is an error.
func (s *Store) Save(ctx context.Context, rec *streak.Record) error {
	cacheErr := s.cache.Set(ctx, rec)
	if cacheErr != nil {
		s.log.Warn("cache save failed",
			logger.UserID(rec.UserID), logger.Backend("redis"), logger.Err(cacheErr))
	}

	primaryErr := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.retrier.Do(ctx, func(ctx context.Context) error {
			return s.primary.Save(ctx, rec)
		})
	})
	if primaryErr != nil {
		s.log.Warn("primary save failed, cache copy is authoritative until next save",
			logger.UserID(rec.UserID), logger.Backend("postgres"), logger.Err(primaryErr))
	}

	if cacheErr != nil && primaryErr != nil {
		return shared.WrapError("streak", "Save", shared.ErrPersistence,
			"both backends rejected the record", primaryErr)
	}

	return nil
}

// Delete removes the streak record from both backends.
// A record missing in the primary is not an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	cacheErr := s.cache.Delete(ctx, userID)
	if cacheErr != nil {
		s.log.Warn("cache delete failed",
			logger.UserID(userID), logger.Backend("redis"), logger.Err(cacheErr))
	}

	primaryErr := s.breaker.Execute(ctx, func(ctx context.Context) error {
		err := s.primary.Delete(ctx, userID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	})
	if primaryErr != nil {
		s.log.Warn("primary delete failed",
			logger.UserID(userID), logger.Backend("postgres"), logger.Err(primaryErr))
	}

	if cacheErr != nil && primaryErr != nil {
		return shared.WrapError("streak", "Delete", shared.ErrPersistence,
			"both backends rejected the delete", primaryErr)
	}

	return nil
}

// ListAtRisk delegates to the primary backend; the local cache has no
// cross-user index to answer this query.
func (s *Store) ListAtRisk(ctx context.Context, asOf time.Time) ([]*streak.Record, error) {
	var records []*streak.Record

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var listErr error
		records, listErr = s.primary.ListAtRisk(ctx, asOf)
		return listErr
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}
