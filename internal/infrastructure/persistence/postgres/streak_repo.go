package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alem-hub/learning-streak/internal/domain/shared"
	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/pkg/timeutil"
)

// StreakRepository implements streak.Repository backed by PostgreSQL.
type StreakRepository struct {
	conn *Connection
}

// Compile-time interface check.
var _ streak.Repository = (*StreakRepository)(nil)

// NewStreakRepository creates a new PostgreSQL streak repository.
func NewStreakRepository(conn *Connection) *StreakRepository {
	return &StreakRepository{conn: conn}
}

// historyEntry is the JSONB shape of one history day. The field names are the
// wire contract shared with the Redis cache: a record written by one backend
// must decode identically from the other.
type historyEntry struct {
	Date             string `json:"date"`
	Duration         int    `json:"duration"`
	LessonsCompleted int    `json:"lessonsCompleted"`
}

// Load loads the streak record for a user.
// Returns shared.ErrStreakNotFound if no record exists.
func (r *StreakRepository) Load(ctx context.Context, userID string) (*streak.Record, error) {
	if userID == "" {
		return nil, shared.ErrInvalidUserID
	}

	query := `
		SELECT current_streak, longest_streak, last_activity_date, streak_start_date, history
		FROM streaks
		WHERE user_id = $1
	`

	var (
		currentStreak int
		longestStreak int
		lastActivity  *time.Time
		streakStart   *time.Time
		historyJSON   []byte
	)

	err := r.conn.QueryRow(ctx, query, userID).Scan(
		&currentStreak,
		&longestStreak,
		&lastActivity,
		&streakStart,
		&historyJSON,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStreakNotFound
		}
		return nil, fmt.Errorf("postgres: load streak for %s: %w", userID, err)
	}

	history, err := unmarshalHistory(historyJSON)
	if err != nil {
		return nil, shared.WrapError("streak", "Load", shared.ErrInvalidFormat, "corrupted history column", err)
	}

	rec := &streak.Record{
		UserID:        userID,
		CurrentStreak: currentStreak,
		LongestStreak: longestStreak,
		History:       history,
	}
	if lastActivity != nil {
		rec.LastActivityDate = dateInAlmaty(*lastActivity)
	}
	if streakStart != nil {
		rec.StreakStartDate = dateInAlmaty(*streakStart)
	}

	return rec, nil
}

// Save upserts the streak record for a user.
func (r *StreakRepository) Save(ctx context.Context, rec *streak.Record) error {
	if rec == nil || rec.UserID == "" {
		return shared.ErrInvalidUserID
	}

	historyJSON, err := marshalHistory(rec.History)
	if err != nil {
		return shared.WrapError("streak", "Save", shared.ErrInvalidFormat, "failed to encode history", err)
	}

	query := `
		INSERT INTO streaks (user_id, current_streak, longest_streak, last_activity_date, streak_start_date, history, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			current_streak     = EXCLUDED.current_streak,
			longest_streak     = EXCLUDED.longest_streak,
			last_activity_date = EXCLUDED.last_activity_date,
			streak_start_date  = EXCLUDED.streak_start_date,
			history            = EXCLUDED.history,
			updated_at         = NOW()
	`

	_, err = r.conn.Exec(ctx, query,
		rec.UserID,
		rec.CurrentStreak,
		rec.LongestStreak,
		nullableDate(rec.LastActivityDate),
		nullableDate(rec.StreakStartDate),
		historyJSON,
	)
	if err != nil {
		return fmt.Errorf("postgres: save streak for %s: %w", rec.UserID, err)
	}

	return nil
}

// Delete removes the streak record for a user.
// Returns shared.ErrStreakNotFound if there was nothing to delete.
func (r *StreakRepository) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return shared.ErrInvalidUserID
	}

	tag, err := r.conn.Exec(ctx, `DELETE FROM streaks WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("postgres: delete streak for %s: %w", userID, err)
	}

	if tag.RowsAffected() == 0 {
		return shared.ErrStreakNotFound
	}

	return nil
}

// ListAtRisk returns records whose streak breaks without activity on asOf:
// the last activity was exactly the day before asOf.
func (r *StreakRepository) ListAtRisk(ctx context.Context, asOf time.Time) ([]*streak.Record, error) {
	yesterday := timeutil.StartOfDay(asOf).AddDate(0, 0, -1)

	query := `
		SELECT user_id, current_streak, longest_streak, last_activity_date, streak_start_date, history
		FROM streaks
		WHERE current_streak > 0 AND last_activity_date = $1
		ORDER BY user_id
	`

	rows, err := r.conn.Query(ctx, query, yesterday)
	if err != nil {
		return nil, fmt.Errorf("postgres: list at-risk streaks: %w", err)
	}
	defer rows.Close()

	var records []*streak.Record
	for rows.Next() {
		var (
			userID        string
			currentStreak int
			longestStreak int
			lastActivity  *time.Time
			streakStart   *time.Time
			historyJSON   []byte
		)

		if err := rows.Scan(&userID, &currentStreak, &longestStreak, &lastActivity, &streakStart, &historyJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan at-risk streak: %w", err)
		}

		history, err := unmarshalHistory(historyJSON)
		if err != nil {
			// Одна битая запись не должна ронять весь обход.
			continue
		}

		rec := &streak.Record{
			UserID:        userID,
			CurrentStreak: currentStreak,
			LongestStreak: longestStreak,
			History:       history,
		}
		if lastActivity != nil {
			rec.LastActivityDate = dateInAlmaty(*lastActivity)
		}
		if streakStart != nil {
			rec.StreakStartDate = dateInAlmaty(*streakStart)
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// MAPPING HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func marshalHistory(history []streak.DayRecord) ([]byte, error) {
	entries := make([]historyEntry, 0, len(history))
	for _, d := range history {
		entries = append(entries, historyEntry{
			Date:             timeutil.FormatDateStr(d.Date),
			Duration:         d.Duration,
			LessonsCompleted: d.LessonsCompleted,
		})
	}
	return json.Marshal(entries)
}

func unmarshalHistory(data []byte) ([]streak.DayRecord, error) {
	if len(data) == 0 {
		return []streak.DayRecord{}, nil
	}

	var entries []historyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	history := make([]streak.DayRecord, 0, len(entries))
	for _, e := range entries {
		date, err := timeutil.ParseDateAlmaty(e.Date)
		if err != nil {
			return nil, err
		}
		history = append(history, streak.DayRecord{
			Date:             date,
			Duration:         e.Duration,
			LessonsCompleted: e.LessonsCompleted,
		})
	}

	return history, nil
}

// dateInAlmaty rebuilds a DATE column value as a day start in Almaty time.
// pgx scans DATE into UTC midnight; taking the calendar components keeps the
// day stable regardless of the scan location.
func dateInAlmaty(t time.Time) time.Time {
	return timeutil.Date(t.Year(), int(t.Month()), t.Day())
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := timeutil.StartOfDay(t)
	return &d
}
