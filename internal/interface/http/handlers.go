package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/alem-hub/learning-streak/internal/application/tracker"
	"github.com/alem-hub/learning-streak/internal/domain/shared"
	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// recordActivityRequest is the body of POST /api/v1/users/{id}/activity.
type recordActivityRequest struct {
	// Duration is the learning time in minutes.
	Duration int `json:"duration"`

	// LessonsCompleted defaults to 1 when omitted.
	LessonsCompleted *int `json:"lessons_completed,omitempty"`
}

// streakResponse mirrors the persisted streak shape plus derived fields.
type streakResponse struct {
	CurrentStreak     int           `json:"currentStreak"`
	LongestStreak     int           `json:"longestStreak"`
	LastLearningDate  string        `json:"lastLearningDate,omitempty"`
	TotalLearningDays int           `json:"totalLearningDays"`
	StreakStartDate   string        `json:"streakStartDate,omitempty"`
	LearnedToday      bool          `json:"learnedToday"`
	LearningHistory   []dayResponse `json:"learningHistory"`
}

type dayResponse struct {
	Date             string `json:"date"`
	Duration         int    `json:"duration"`
	LessonsCompleted int    `json:"lessonsCompleted"`
}

type weekDayResponse struct {
	Date             string `json:"date"`
	Learned          bool   `json:"learned"`
	Duration         int    `json:"duration"`
	LessonsCompleted int    `json:"lessonsCompleted"`
}

type messageResponse struct {
	CurrentStreak int    `json:"currentStreak"`
	Message       string `json:"message"`
}

// handleRecordActivity credits today's learning activity for the user.
func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	var req recordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	lessons := 1
	if req.LessonsCompleted != nil {
		lessons = *req.LessonsCompleted
	}

	today := timeutil.Now()
	var stats streak.Stats
	err := s.deps.Manager.WithSession(r.Context(), userID, today, func(tr *tracker.Tracker) error {
		if err := tr.RecordActivity(r.Context(), today, req.Duration, lessons); err != nil {
			return err
		}
		var statsErr error
		stats, statsErr = tr.GetStreakStats(today)
		return statsErr
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, r, http.StatusOK, statsToResponse(stats))
}

// handleGetStreak returns the streak summary for the user.
func (s *Server) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	today := timeutil.Now()
	var stats streak.Stats
	err := s.deps.Manager.WithSession(r.Context(), userID, today, func(tr *tracker.Tracker) error {
		var statsErr error
		stats, statsErr = tr.GetStreakStats(today)
		return statsErr
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, r, http.StatusOK, statsToResponse(stats))
}

// handleGetMessage returns the motivational message for the current streak.
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	today := timeutil.Now()
	var resp messageResponse
	err := s.deps.Manager.WithSession(r.Context(), userID, today, func(tr *tracker.Tracker) error {
		msg, msgErr := tr.GetMotivationalMessage()
		if msgErr != nil {
			return msgErr
		}
		resp = messageResponse{
			CurrentStreak: tr.CurrentStreak(),
			Message:       msg,
		}
		return nil
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// handleGetWeekly returns the 7-day activity pattern ending today.
func (s *Server) handleGetWeekly(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	today := timeutil.Now()
	var pattern []streak.WeekDay
	err := s.deps.Manager.WithSession(r.Context(), userID, today, func(tr *tracker.Tracker) error {
		var patErr error
		pattern, patErr = tr.GetWeeklyPattern(today)
		return patErr
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	days := make([]weekDayResponse, 0, len(pattern))
	for _, wd := range pattern {
		days = append(days, weekDayResponse{
			Date:             timeutil.FormatDateStr(wd.Date),
			Learned:          wd.Learned,
			Duration:         wd.Duration,
			LessonsCompleted: wd.LessonsCompleted,
		})
	}

	writeJSON(w, r, http.StatusOK, days)
}

// handleResetStreak irreversibly clears the user's streak.
func (s *Server) handleResetStreak(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	today := timeutil.Now()
	err := s.deps.Manager.WithSession(r.Context(), userID, today, func(tr *tracker.Tracker) error {
		return tr.ResetStreak(r.Context())
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "reset"})
}

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidID), errors.Is(err, shared.ErrNegativeValue):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		writeJSONError(w, http.StatusConflict, "no_session", err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Something went wrong")
	}
}

func statsToResponse(stats streak.Stats) streakResponse {
	history := make([]dayResponse, 0, len(stats.History))
	for _, d := range stats.History {
		history = append(history, dayResponse{
			Date:             timeutil.FormatDateStr(d.Date),
			Duration:         d.Duration,
			LessonsCompleted: d.LessonsCompleted,
		})
	}

	resp := streakResponse{
		CurrentStreak:     stats.CurrentStreak,
		LongestStreak:     stats.LongestStreak,
		TotalLearningDays: stats.TotalLearningDays,
		LearnedToday:      stats.LearnedToday,
		LearningHistory:   history,
	}
	if !stats.LastActivityDate.IsZero() {
		resp.LastLearningDate = timeutil.FormatDateStr(stats.LastActivityDate)
	}
	if !stats.StreakStartDate.IsZero() {
		resp.StreakStartDate = timeutil.FormatDateStr(stats.StreakStartDate)
	}
	return resp
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// handleHealth reports overall service health with per-component detail.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:     "healthy",
		Components: make(map[string]string, len(s.deps.HealthCheckers)),
		Uptime:     s.Uptime().String(),
	}

	status := http.StatusOK
	for _, hc := range s.deps.HealthCheckers {
		if err := hc.Check(ctx); err != nil {
			resp.Components[hc.Name()] = err.Error()
			// The store degrades to the cache, so a failing component is not a 503 here.
			resp.Status = "degraded"
		} else {
			resp.Components[hc.Name()] = "ok"
		}
	}

	writeJSON(w, r, status, resp)
}

// handleReady reports readiness: all components must answer.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	for _, hc := range s.deps.HealthCheckers {
		if err := hc.Check(ctx); err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", hc.Name()+": "+err.Error())
			return
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive reports liveness: the process is serving requests.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// handleRoot describes the service.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"service": "learning-streak",
		"version": "v1",
	})
}
