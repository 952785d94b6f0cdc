package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_streaks",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
	}
}

// Streak state is stored one row per user. The bounded activity history
// lives in a JSONB column: it is always read and written as a whole,
// so a separate table would only add joins.
const migration001Up = `
CREATE TABLE IF NOT EXISTS streaks (
    user_id            TEXT PRIMARY KEY,
    current_streak     INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    longest_streak     INTEGER NOT NULL DEFAULT 0 CHECK (longest_streak >= current_streak),
    last_activity_date DATE,
    streak_start_date  DATE,
    history            JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at         TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_streaks_last_activity_date
    ON streaks (last_activity_date)
    WHERE current_streak > 0;
`

const migration001Down = `
DROP INDEX IF EXISTS idx_streaks_last_activity_date;
DROP TABLE IF EXISTS streaks;
`
