package streak

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageFor_ExactMilestones(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 7, 14, 21, 30, 50, 100} {
		msg := MessageFor(n, nil)
		assert.Equal(t, milestoneMessages[n], msg, "streak %d", n)
	}
}

func TestMessageFor_ZeroStreak(t *testing.T) {
	assert.Equal(t, startMessage, MessageFor(0, nil))
	assert.Equal(t, startMessage, MessageFor(-1, nil))
}

func TestMessageFor_CountdownToNextMilestone(t *testing.T) {
	// 4 дня: следующая цель 7, осталось 3 дня.
	assert.Equal(t, "До цели в 7 дней осталось 3 дня! 🔥", MessageFor(4, nil))
	// 25 дней: следующая цель 30, осталось 5 дней.
	assert.Equal(t, "До цели в 30 дней осталось 5 дней! 🔥", MessageFor(25, nil))
	// 20 дней: следующая цель 21, остался 1 день.
	assert.Equal(t, "До цели в 21 день остался 1 день! 🔥", MessageFor(20, nil))
}

func TestMessageFor_BeyondLastMilestone(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	msg := MessageFor(150, rng)
	assert.Contains(t, genericMessages, msg)

	// Детерминированность при одинаковом seed.
	rng2 := rand.New(rand.NewSource(42))
	assert.Equal(t, msg, MessageFor(150, rng2))

	// nil rng не паникует.
	assert.Equal(t, genericMessages[0], MessageFor(150, nil))
}

func TestNextMilestone(t *testing.T) {
	next, ok := NextMilestone(0)
	assert.True(t, ok)
	assert.Equal(t, 7, next)

	next, ok = NextMilestone(7)
	assert.True(t, ok)
	assert.Equal(t, 14, next)

	next, ok = NextMilestone(99)
	assert.True(t, ok)
	assert.Equal(t, 100, next)

	_, ok = NextMilestone(100)
	assert.False(t, ok)
}

func TestIsMilestone(t *testing.T) {
	for _, m := range Milestones {
		assert.True(t, IsMilestone(m))
	}
	assert.False(t, IsMilestone(1))
	assert.False(t, IsMilestone(8))
	assert.False(t, IsMilestone(0))
}
