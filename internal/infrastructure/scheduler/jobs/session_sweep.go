package jobs

import (
	"context"
	"log/slog"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION SWEEP JOB
// ══════════════════════════════════════════════════════════════════════════════

// SessionSweeper drops idle in-memory tracking sessions.
type SessionSweeper interface {
	SweepIdle(maxIdle time.Duration) int
}

// SessionSweepJob periodically evicts tracking sessions that nobody touched
// for a while. State always lives in the store, so eviction only frees memory.
type SessionSweepJob struct {
	sweeper SessionSweeper
	logger  *slog.Logger
	maxIdle time.Duration
}

// DefaultSessionMaxIdle is how long a session may stay unused before eviction.
const DefaultSessionMaxIdle = 1 * time.Hour

// NewSessionSweepJob creates a sweep job over the given sweeper.
func NewSessionSweepJob(sweeper SessionSweeper, logger *slog.Logger, maxIdle time.Duration) *SessionSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	if maxIdle <= 0 {
		maxIdle = DefaultSessionMaxIdle
	}

	return &SessionSweepJob{
		sweeper: sweeper,
		logger:  logger,
		maxIdle: maxIdle,
	}
}

// Name returns the job name.
func (j *SessionSweepJob) Name() string {
	return "session_sweep"
}

// Description returns a human-readable description.
func (j *SessionSweepJob) Description() string {
	return "Evicts in-memory tracking sessions idle beyond the configured threshold"
}

// Run executes one sweep.
func (j *SessionSweepJob) Run(_ context.Context) error {
	removed := j.sweeper.SweepIdle(j.maxIdle)
	if removed > 0 {
		j.logger.Info("idle sessions evicted", "removed", removed, "max_idle", j.maxIdle.String())
	}
	return nil
}
