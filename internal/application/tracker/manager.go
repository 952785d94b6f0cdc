package tracker

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/pkg/logger"
)

// Manager owns one tracking session per user and serializes access to it.
// The domain engine has no internal locking; callers must not overlap
// evaluate/record calls for the same user, and the Manager enforces that
// at the application boundary.
type Manager struct {
	repo     streak.Repository
	notifier streak.Notifier
	log      *logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu      sync.Mutex
	tracker *Tracker

	// lastUsed is guarded by Manager.mu, not session.mu.
	lastUsed time.Time
}

// NewManager creates a session manager over the given store and notifier.
func NewManager(repo streak.Repository, notifier streak.Notifier, log *logger.Logger) *Manager {
	return &Manager{
		repo:     repo,
		notifier: notifier,
		log:      log,
		sessions: make(map[string]*session),
	}
}

// WithSession runs fn against the user's tracker, creating and initializing
// the session on first use. Calls for the same user run strictly one at a
// time; calls for different users are independent.
func (m *Manager) WithSession(ctx context.Context, userID string, today time.Time, fn func(*Tracker) error) error {
	s := m.session(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracker == nil {
		t := New(m.repo, m.notifier, m.log, newRNG())
		if err := t.Init(ctx, userID, today); err != nil {
			return err
		}
		s.tracker = t
	}

	return fn(s.tracker)
}

// EndSession drops the user's in-memory session. Persisted state is untouched;
// the next call recreates the session from the store.
func (m *Manager) EndSession(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// SweepIdle drops sessions that have not been touched for maxIdle and returns
// how many were removed. Every operation persists through the store, so a
// swept session loses nothing; the next call reloads it. An in-flight call
// keeps its own session pointer and finishes normally.
func (m *Manager) SweepIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for userID, s := range m.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(m.sessions, userID)
			removed++
		}
	}
	return removed
}

// SessionCount returns the number of live in-memory sessions.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) session(userID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		s = &session{}
		m.sessions[userID] = s
	}
	s.lastUsed = time.Now()
	return s
}

var (
	seedMu  sync.Mutex
	seedSeq int64
)

// newRNG returns a per-session random source for message selection.
// Sessions get distinct seeds even when created in the same nanosecond.
func newRNG() *rand.Rand {
	seedMu.Lock()
	seedSeq++
	seed := time.Now().UnixNano() + seedSeq
	seedMu.Unlock()
	return rand.New(rand.NewSource(seed))
}
