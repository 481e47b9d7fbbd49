package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/clock"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// START SESSION COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// StartSessionCommand contains the data to start a ranked session.
type StartSessionCommand struct {
	// UserID is the ID of the user starting the session.
	UserID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c StartSessionCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("start_session: user_id is required")
	}
	return nil
}

// StartSessionResult contains the result of starting a session.
type StartSessionResult struct {
	SessionID string
	UserID    string
	StartedAt time.Time
}

// StartSessionHandler handles the StartSessionCommand.
type StartSessionHandler struct {
	sessionRepo    ranked.SessionRepository
	eventPublisher shared.EventPublisher
	clk            *clock.Policy
	log            *logger.Logger
}

// NewStartSessionHandler creates a new StartSessionHandler.
func NewStartSessionHandler(
	sessionRepo ranked.SessionRepository,
	eventPublisher shared.EventPublisher,
	clk *clock.Policy,
	log *logger.Logger,
) *StartSessionHandler {
	return &StartSessionHandler{
		sessionRepo:    sessionRepo,
		eventPublisher: eventPublisher,
		clk:            clk,
		log:            log.With(logger.Component("start_session")),
	}
}

// Handle executes the start session command.
func (h *StartSessionHandler) Handle(ctx context.Context, cmd StartSessionCommand) (*StartSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("start_session: validation failed: %w", err)
	}

	now := h.clk.Now()
	session := ranked.NewSession(uuid.NewString(), cmd.UserID, now)

	if err := h.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("start_session: failed to create session: %w", err)
	}

	event := shared.NewSessionStartedEvent(session.ID, cmd.UserID)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	if err := h.eventPublisher.Publish(event); err != nil {
		h.log.Warn("failed to publish event", logger.SessionID(session.ID), logger.Err(err))
	}

	h.log.Info("ranked session started", logger.UserID(cmd.UserID), logger.SessionID(session.ID))

	return &StartSessionResult{
		SessionID: session.ID,
		UserID:    cmd.UserID,
		StartedAt: session.StartedAt,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// END SESSION COMMAND
// Ending is idempotent: a repeated end request returns the final state of
// the session without error.
// ══════════════════════════════════════════════════════════════════════════════

// EndSessionCommand contains the data to end a ranked session.
type EndSessionCommand struct {
	// SessionID is the ID of the session to end.
	SessionID string

	// UserID is the ID of the requesting user.
	UserID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EndSessionCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("end_session: session_id is required")
	}
	if c.UserID == "" {
		return errors.New("end_session: user_id is required")
	}
	return nil
}

// EndSessionResult contains the final state of the session.
type EndSessionResult struct {
	SessionID         string
	UserID            string
	Status            ranked.SessionStatus
	TotalScore        int
	QuestionsAnswered int
	CorrectAnswers    int
	Accuracy          float64
	AverageTimeMs     int64
	LeaderboardReady  bool
	EndedAt           *time.Time
}

// EndSessionHandler handles the EndSessionCommand.
type EndSessionHandler struct {
	sessionRepo    ranked.SessionRepository
	eventPublisher shared.EventPublisher
	clk            *clock.Policy
	log            *logger.Logger
}

// NewEndSessionHandler creates a new EndSessionHandler.
func NewEndSessionHandler(
	sessionRepo ranked.SessionRepository,
	eventPublisher shared.EventPublisher,
	clk *clock.Policy,
	log *logger.Logger,
) *EndSessionHandler {
	return &EndSessionHandler{
		sessionRepo:    sessionRepo,
		eventPublisher: eventPublisher,
		clk:            clk,
		log:            log.With(logger.Component("end_session")),
	}
}

// Handle executes the end session command.
func (h *EndSessionHandler) Handle(ctx context.Context, cmd EndSessionCommand) (*EndSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("end_session: validation failed: %w", err)
	}

	session, err := h.sessionRepo.GetByID(ctx, cmd.SessionID)
	if err != nil {
		return nil, fmt.Errorf("end_session: %w", err)
	}
	if session.UserID != cmd.UserID {
		return nil, shared.ErrSessionForeign
	}

	if session.End(h.clk.Now(), false) {
		switch err := h.sessionRepo.End(ctx, session); {
		case errors.Is(err, shared.ErrSessionInactive):
			// Lost the race with a concurrent close (another request or the
			// stale-session sweeper). The stored terminal status wins; return
			// it without publishing a second event.
			session, err = h.sessionRepo.GetByID(ctx, cmd.SessionID)
			if err != nil {
				return nil, fmt.Errorf("end_session: %w", err)
			}

		case err != nil:
			return nil, fmt.Errorf("end_session: failed to persist: %w", err)

		default:
			event := shared.NewSessionEndedEvent(session.ID, session.UserID,
				session.TotalScore, session.QuestionsAnswered, false)
			if cmd.CorrelationID != "" {
				event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
			}
			if err := h.eventPublisher.Publish(event); err != nil {
				h.log.Warn("failed to publish event", logger.SessionID(session.ID), logger.Err(err))
			}

			h.log.Info("ranked session ended",
				logger.UserID(cmd.UserID),
				logger.SessionID(session.ID),
				logger.Score(session.TotalScore),
				logger.Int("questions_answered", session.QuestionsAnswered))
		}
	}

	return &EndSessionResult{
		SessionID:         session.ID,
		UserID:            session.UserID,
		Status:            session.Status,
		TotalScore:        session.TotalScore,
		QuestionsAnswered: session.QuestionsAnswered,
		CorrectAnswers:    session.CorrectAnswers,
		Accuracy:          session.Accuracy(),
		AverageTimeMs:     session.AverageTimeMs(),
		LeaderboardReady:  session.Status == ranked.StatusCompleted && session.Eligible(),
		EndedAt:           session.EndedAt,
	}, nil
}
