package redis

import (
	"context"
	"errors"
	"time"

	"github.com/alem-hub/learning-streak/internal/domain/shared"
	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/pkg/timeutil"
)

// streakDTO is the cached wire format of a streak record. The shape is a
// contract: records written by older builds must keep decoding, so fields are
// only ever added, never renamed.
type streakDTO struct {
	CurrentStreak     int            `json:"currentStreak"`
	LongestStreak     int            `json:"longestStreak"`
	LastLearningDate  string         `json:"lastLearningDate"`
	LearningHistory   []dayRecordDTO `json:"learningHistory"`
	TotalLearningDays int            `json:"totalLearningDays"`
	StreakStartDate   string         `json:"streakStartDate"`
}

// dayRecordDTO is the wire format of one history day.
type dayRecordDTO struct {
	Date             string `json:"date"`
	Duration         int    `json:"duration"`
	LessonsCompleted int    `json:"lessonsCompleted"`
}

// StreakCache is a typed wrapper over Cache implementing streak.Cache.
type StreakCache struct {
	cache *Cache
	ttl   time.Duration
}

// Compile-time interface check.
var _ streak.Cache = (*StreakCache)(nil)

// NewStreakCache creates a streak cache with the default record TTL.
func NewStreakCache(cache *Cache) *StreakCache {
	return &StreakCache{
		cache: cache,
		ttl:   TTLStreakRecord,
	}
}

// NewStreakCacheWithTTL creates a streak cache with a custom record TTL.
func NewStreakCacheWithTTL(cache *Cache, ttl time.Duration) *StreakCache {
	return &StreakCache{
		cache: cache,
		ttl:   ttl,
	}
}

// Get returns the cached streak record for a user.
// Returns shared.ErrStreakNotFound on a cache miss.
func (sc *StreakCache) Get(ctx context.Context, userID string) (*streak.Record, error) {
	if userID == "" {
		return nil, shared.ErrInvalidUserID
	}

	var dto streakDTO
	err := sc.cache.Get(ctx, StreakKey(userID), &dto)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrStreakNotFound
		}
		if errors.Is(err, ErrCacheSerialization) {
			return nil, shared.WrapError("streak", "Get", shared.ErrInvalidFormat, "corrupted cached record", err)
		}
		return nil, err
	}

	return dtoToRecord(userID, dto)
}

// Set stores the streak record in the cache.
func (sc *StreakCache) Set(ctx context.Context, rec *streak.Record) error {
	if rec == nil || rec.UserID == "" {
		return shared.ErrInvalidUserID
	}

	return sc.cache.Set(ctx, StreakKey(rec.UserID), recordToDTO(rec), sc.ttl)
}

// Delete invalidates the cached record for a user.
func (sc *StreakCache) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return shared.ErrInvalidUserID
	}

	return sc.cache.Delete(ctx, StreakKey(userID))
}

// ══════════════════════════════════════════════════════════════════════════════
// MAPPING
// ══════════════════════════════════════════════════════════════════════════════

func recordToDTO(rec *streak.Record) streakDTO {
	history := make([]dayRecordDTO, 0, len(rec.History))
	for _, d := range rec.History {
		history = append(history, dayRecordDTO{
			Date:             timeutil.FormatDateStr(d.Date),
			Duration:         d.Duration,
			LessonsCompleted: d.LessonsCompleted,
		})
	}

	dto := streakDTO{
		CurrentStreak:     rec.CurrentStreak,
		LongestStreak:     rec.LongestStreak,
		LearningHistory:   history,
		TotalLearningDays: rec.TotalLearningDays(),
	}
	if !rec.LastActivityDate.IsZero() {
		dto.LastLearningDate = timeutil.FormatDateStr(rec.LastActivityDate)
	}
	if !rec.StreakStartDate.IsZero() {
		dto.StreakStartDate = timeutil.FormatDateStr(rec.StreakStartDate)
	}

	return dto
}

func dtoToRecord(userID string, dto streakDTO) (*streak.Record, error) {
	rec := &streak.Record{
		UserID:        userID,
		CurrentStreak: dto.CurrentStreak,
		LongestStreak: dto.LongestStreak,
		History:       make([]streak.DayRecord, 0, len(dto.LearningHistory)),
	}

	if dto.LastLearningDate != "" {
		d, err := timeutil.ParseDateAlmaty(dto.LastLearningDate)
		if err != nil {
			return nil, shared.WrapError("streak", "Get", shared.ErrInvalidFormat, "bad lastLearningDate", err)
		}
		rec.LastActivityDate = d
	}
	if dto.StreakStartDate != "" {
		d, err := timeutil.ParseDateAlmaty(dto.StreakStartDate)
		if err != nil {
			return nil, shared.WrapError("streak", "Get", shared.ErrInvalidFormat, "bad streakStartDate", err)
		}
		rec.StreakStartDate = d
	}

	for _, e := range dto.LearningHistory {
		d, err := timeutil.ParseDateAlmaty(e.Date)
		if err != nil {
			return nil, shared.WrapError("streak", "Get", shared.ErrInvalidFormat, "bad history date", err)
		}
		rec.History = append(rec.History, streak.DayRecord{
			Date:             d,
			Duration:         e.Duration,
			LessonsCompleted: e.LessonsCompleted,
		})
	}

	return rec, nil
}
