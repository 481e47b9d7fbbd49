package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/application/command"
	"github.com/nurseprep-hub/nurseprep-progression/internal/application/query"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/clock"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "NursePrep Progression API",
		"version":     "v1",
		"description": "Ranked scoring, streaks and milestone rewards for NursePrep quizzes",
		"endpoints": map[string]string{
			"health":      "/health",
			"sessions":    "/api/v1/sessions",
			"progress":    "/api/v1/users/{id}/progress",
			"leaderboard": "/api/v1/leaderboard",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// startSessionRequest is the body of POST /api/v1/sessions.
type startSessionRequest struct {
	UserID string `json:"user_id"`
}

// handleStartSession handles POST /api/v1/sessions
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.StartSessionHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Session handler not configured")
		return
	}

	var req startSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.StartSessionCommand{
		UserID:        req.UserID,
		CorrelationID: getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	result, err := s.deps.StartSessionHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": result.SessionID,
		"user_id":    result.UserID,
		"started_at": result.StartedAt,
	})
}

// submitAttemptRequest is the body of POST /api/v1/sessions/{id}/attempts.
// A null answer means the client-side timer expired without an answer.
type submitAttemptRequest struct {
	UserID     string  `json:"user_id"`
	QuestionID string  `json:"question_id"`
	Answer     *string `json:"answer"`
	TimeMs     int64   `json:"time_ms"`
	UsedHints  int     `json:"used_hints"`
}

// handleSubmitAttempt handles POST /api/v1/sessions/{id}/attempts
func (s *Server) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	if s.deps.SubmitAttemptHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Attempt handler not configured")
		return
	}

	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Session ID is required")
		return
	}

	var req submitAttemptRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.SubmitAttemptCommand{
		SessionID:     sessionID,
		UserID:        req.UserID,
		QuestionID:    req.QuestionID,
		Answer:        req.Answer,
		TimeMs:        req.TimeMs,
		UsedHints:     req.UsedHints,
		CorrelationID: getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	result, err := s.deps.SubmitAttemptHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":            result.SessionID,
		"question_id":           result.QuestionID,
		"is_correct":            result.IsCorrect,
		"score":                 result.Score,
		"total_score":           result.TotalScore,
		"questions_answered":    result.QuestionsAnswered,
		"xp_awarded":            result.XPAwarded,
		"boosted":               result.Boosted,
		"daily_quest_progress":  result.DailyQuestProgress,
		"daily_quest_completed": result.DailyQuestCompleted,
		"streak_days":           result.StreakDays,
		"unlocked_milestones":   result.UnlockedMilestones,
		"progression_deferred":  result.ProgressionDeferred,
	})
}

// endSessionRequest is the body of POST /api/v1/sessions/{id}/end.
type endSessionRequest struct {
	UserID string `json:"user_id"`
}

// handleEndSession handles POST /api/v1/sessions/{id}/end
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.EndSessionHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Session handler not configured")
		return
	}

	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Session ID is required")
		return
	}

	var req endSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.EndSessionCommand{
		SessionID:     sessionID,
		UserID:        req.UserID,
		CorrelationID: getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	result, err := s.deps.EndSessionHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":         result.SessionID,
		"user_id":            result.UserID,
		"status":             result.Status,
		"total_score":        result.TotalScore,
		"questions_answered": result.QuestionsAnswered,
		"correct_answers":    result.CorrectAnswers,
		"accuracy":           result.Accuracy,
		"average_time_ms":    result.AverageTimeMs,
		"leaderboard_ready":  result.LeaderboardReady,
		"ended_at":           result.EndedAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// recordDailyQuestRequest is the body of POST /api/v1/users/{id}/daily-quest.
// An empty body records the quest for today.
type recordDailyQuestRequest struct {
	Date string `json:"date"`
}

// handleRecordDailyQuest handles POST /api/v1/users/{id}/daily-quest
func (s *Server) handleRecordDailyQuest(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordDailyQuestHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Daily quest handler not configured")
		return
	}

	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	var req recordDailyQuestRequest
	if r.ContentLength != 0 && !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.RecordDailyQuestCommand{
		UserID:        userID,
		CorrelationID: getRequestID(r.Context()),
	}
	if req.Date != "" {
		date, err := time.Parse(clock.FormatDate, req.Date)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Date must be formatted as YYYY-MM-DD")
			return
		}
		cmd.Date = date
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	result, err := s.deps.RecordDailyQuestHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	milestones := make([]string, 0, len(result.UnlockedMilestones))
	for _, m := range result.UnlockedMilestones {
		milestones = append(milestones, m.ID)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":             result.UserID,
		"streak_days":         result.StreakDays,
		"longest_streak":      result.LongestStreak,
		"streak_was_reset":    result.StreakWasReset,
		"unlocked_milestones": milestones,
		"boost_multiplier":    result.BoostMultiplier,
		"boost_expiry":        result.BoostExpiry,
	})
}

// handleGetProgress handles GET /api/v1/users/{id}/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.GetProgressHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Progress handler not configured")
		return
	}

	result, err := s.deps.GetProgressHandler.Handle(r.Context(), query.GetProgressQuery{UserID: userID})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetActiveBoost handles GET /api/v1/users/{id}/boost
func (s *Server) handleGetActiveBoost(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.GetActiveBoostHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Boost handler not configured")
		return
	}

	result, err := s.deps.GetActiveBoostHandler.Handle(r.Context(), query.GetActiveBoostQuery{UserID: userID})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetNextMilestone handles GET /api/v1/users/{id}/next-milestone
func (s *Server) handleGetNextMilestone(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.GetNextMilestoneHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Milestone handler not configured")
		return
	}

	result, err := s.deps.GetNextMilestoneHandler.Handle(r.Context(), query.GetNextMilestoneQuery{UserID: userID})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLeaderboardHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Leaderboard handler not configured")
		return
	}

	q := query.GetLeaderboardQuery{
		Limit: getQueryParamInt(r, "limit", 0),
	}

	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body into dst, writing a 400 response and
// returning false on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	maxBytes := s.config.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 64 << 10
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}
