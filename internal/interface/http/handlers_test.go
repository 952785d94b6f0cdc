package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-streak/internal/application/tracker"
	"github.com/alem-hub/learning-streak/internal/domain/shared"
	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/pkg/logger"
)

type memRepo struct {
	records map[string]*streak.Record
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]*streak.Record)}
}

func (m *memRepo) Load(_ context.Context, userID string) (*streak.Record, error) {
	rec, ok := m.records[userID]
	if !ok {
		return nil, shared.ErrStreakNotFound
	}
	return rec, nil
}

func (m *memRepo) Save(_ context.Context, rec *streak.Record) error {
	m.records[rec.UserID] = rec
	return nil
}

func (m *memRepo) Delete(_ context.Context, userID string) error {
	delete(m.records, userID)
	return nil
}

func (m *memRepo) ListAtRisk(context.Context, time.Time) ([]*streak.Record, error) {
	return nil, nil
}

type stubChecker struct {
	name string
	err  error
}

func (c stubChecker) Name() string                { return c.name }
func (c stubChecker) Check(context.Context) error { return c.err }

func newTestServer(t *testing.T, checkers ...HealthChecker) *Server {
	t.Helper()

	log := logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal})
	manager := tracker.NewManager(newMemRepo(), nil, log)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0

	return NewServer(cfg, Dependencies{
		Manager:        manager,
		Logger:         log,
		HealthCheckers: checkers,
	})
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var resp struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func TestRecordActivity_StartsStreak(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/users/42/activity", `{"duration": 30}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, float64(1), data["currentStreak"])
	assert.Equal(t, true, data["learnedToday"])

	history := data["learningHistory"].([]interface{})
	require.Len(t, history, 1)
	day := history[0].(map[string]interface{})
	assert.Equal(t, float64(30), day["duration"])
	assert.Equal(t, float64(1), day["lessonsCompleted"], "lessons_completed по умолчанию 1")
}

func TestRecordActivity_SameDayAccumulates(t *testing.T) {
	s := newTestServer(t)

	doRequest(s, http.MethodPost, "/api/v1/users/42/activity", `{"duration": 30, "lessons_completed": 2}`)
	rec := doRequest(s, http.MethodPost, "/api/v1/users/42/activity", `{"duration": 15}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, float64(1), data["currentStreak"], "серия не растёт в пределах дня")

	history := data["learningHistory"].([]interface{})
	day := history[0].(map[string]interface{})
	assert.Equal(t, float64(45), day["duration"])
	assert.Equal(t, float64(3), day["lessonsCompleted"])
}

func TestRecordActivity_RejectsNegativeDuration(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/users/42/activity", `{"duration": -10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordActivity_RejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/users/42/activity", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStreak_FreshUserStartsSession(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/users/42/streak", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	// Первый контакт с сервисом засчитывает день (оценка при старте сессии).
	assert.Equal(t, float64(1), data["currentStreak"])
}

func TestGetMessage_ReturnsMotivation(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/users/42/streak/message", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.NotEmpty(t, data["message"])
	assert.Equal(t, float64(1), data["currentStreak"])
}

func TestGetWeekly_ReturnsSevenDays(t *testing.T) {
	s := newTestServer(t)
	doRequest(s, http.MethodPost, "/api/v1/users/42/activity", `{"duration": 30}`)

	rec := doRequest(s, http.MethodGet, "/api/v1/users/42/streak/weekly", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 7)

	// Последний элемент - сегодня, активность засчитана.
	today := resp.Data[6]
	assert.Equal(t, true, today["learned"])
}

func TestResetStreak_ClearsState(t *testing.T) {
	s := newTestServer(t)
	doRequest(s, http.MethodPost, "/api/v1/users/42/activity", `{"duration": 30}`)

	rec := doRequest(s, http.MethodDelete, "/api/v1/users/42/streak", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/users/42/streak", "")
	data := decodeData(t, rec)
	assert.Equal(t, float64(0), data["currentStreak"])
	assert.Equal(t, float64(0), data["totalLearningDays"])
}

func TestHealth_ReportsComponents(t *testing.T) {
	s := newTestServer(t,
		stubChecker{name: "postgres"},
		stubChecker{name: "redis", err: errors.New("connection refused")},
	)

	rec := doRequest(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "degraded", data["status"])

	components := data["components"].(map[string]interface{})
	assert.Equal(t, "ok", components["postgres"])
	assert.Contains(t, components["redis"], "connection refused")
}

func TestReady_FailsWhenComponentDown(t *testing.T) {
	s := newTestServer(t, stubChecker{name: "postgres", err: errors.New("down")})

	rec := doRequest(s, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLive_AlwaysOK(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID_EchoedAndGenerated(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))

	rec = doRequest(s, http.MethodGet, "/live", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRateLimit_Returns429(t *testing.T) {
	log := logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal})
	manager := tracker.NewManager(newMemRepo(), nil, log)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2

	s := NewServer(cfg, Dependencies{Manager: manager, Logger: log})

	doRequest(s, http.MethodGet, "/live", "")
	doRequest(s, http.MethodGet, "/live", "")
	rec := doRequest(s, http.MethodGet, "/live", "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_StopTerminatesCleanup(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	rl.Stop()

	select {
	case <-rl.done:
	default:
		t.Fatal("фоновая очистка должна завершаться после Stop")
	}
}
