package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	removed int
	maxIdle time.Duration
}

func (f *fakeSweeper) SweepIdle(maxIdle time.Duration) int {
	f.maxIdle = maxIdle
	return f.removed
}

func TestSessionSweepJob_PassesThresholdToSweeper(t *testing.T) {
	sweeper := &fakeSweeper{removed: 3}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	job := NewSessionSweepJob(sweeper, log, 30*time.Minute)
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 30*time.Minute, sweeper.maxIdle)
}

func TestSessionSweepJob_DefaultsMaxIdle(t *testing.T) {
	sweeper := &fakeSweeper{}
	job := NewSessionSweepJob(sweeper, nil, 0)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, DefaultSessionMaxIdle, sweeper.maxIdle)
}
