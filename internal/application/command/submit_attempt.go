package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/progression"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/quiz"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/clock"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT ATTEMPT COMMAND
// The hot path of the engine: scores one answer inside a ranked session,
// persists it atomically, then applies XP, milestones and the daily quest
// tick to the user's progress. The scored attempt is the source of truth:
// a failure anywhere in the progression side never unwinds the score.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitAttemptCommand contains the data for one answer submission.
type SubmitAttemptCommand struct {
	// SessionID is the ID of the active ranked session.
	SessionID string

	// UserID is the ID of the submitting user.
	UserID string

	// QuestionID is the ID of the answered question.
	QuestionID string

	// Answer is the submitted answer. Nil means the client-side timer
	// expired without an answer; that counts as incorrect.
	Answer *string

	// TimeMs is the client-reported answer time in milliseconds.
	TimeMs int64

	// UsedHints is the number of hints consumed on this question.
	UsedHints int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SubmitAttemptCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("submit_attempt: session_id is required")
	}
	if c.UserID == "" {
		return errors.New("submit_attempt: user_id is required")
	}
	if c.QuestionID == "" {
		return errors.New("submit_attempt: question_id is required")
	}
	if c.TimeMs < 0 {
		return errors.New("submit_attempt: time_ms cannot be negative")
	}
	if c.UsedHints < 0 {
		return errors.New("submit_attempt: used_hints cannot be negative")
	}
	return nil
}

// SubmitAttemptResult contains the outcome of a scored attempt.
type SubmitAttemptResult struct {
	SessionID         string
	QuestionID        string
	IsCorrect         bool
	Score             int
	TotalScore        int
	QuestionsAnswered int

	// XPAwarded is the XP credited to the user (after boost), 0 on a miss
	// or when the progression update failed.
	XPAwarded int

	// Boosted indicates the awarded XP was multiplied by an active boost.
	Boosted bool

	// DailyQuestProgress is the quest counter after this attempt.
	DailyQuestProgress int

	// DailyQuestCompleted indicates this attempt completed today's quest.
	DailyQuestCompleted bool

	// StreakDays is the current streak (populated when the quest completed).
	StreakDays int

	// UnlockedMilestones lists milestone IDs granted by this attempt.
	UnlockedMilestones []string

	// ProgressionDeferred indicates the progression update failed and was
	// logged; the score above is still final.
	ProgressionDeferred bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SubmitAttemptHandler handles the SubmitAttemptCommand.
type SubmitAttemptHandler struct {
	sessionRepo    ranked.SessionRepository
	questionRepo   quiz.Repository
	progressRepo   progression.Repository
	ledger         progression.AchievementLedger
	wallet         progression.HintWallet
	milestones     progression.Config
	dailyQuest     *RecordDailyQuestHandler
	eventPublisher shared.EventPublisher
	clk            *clock.Policy
	log            *logger.Logger
	retrier        *retry.Retrier
}

// NewSubmitAttemptHandler creates a new SubmitAttemptHandler.
func NewSubmitAttemptHandler(
	sessionRepo ranked.SessionRepository,
	questionRepo quiz.Repository,
	progressRepo progression.Repository,
	ledger progression.AchievementLedger,
	wallet progression.HintWallet,
	milestones progression.Config,
	dailyQuest *RecordDailyQuestHandler,
	eventPublisher shared.EventPublisher,
	clk *clock.Policy,
	log *logger.Logger,
) *SubmitAttemptHandler {
	return &SubmitAttemptHandler{
		sessionRepo:    sessionRepo,
		questionRepo:   questionRepo,
		progressRepo:   progressRepo,
		ledger:         ledger,
		wallet:         wallet,
		milestones:     milestones,
		dailyQuest:     dailyQuest,
		eventPublisher: eventPublisher,
		clk:            clk,
		log:            log.With(logger.Component("submit_attempt")),
		retrier:        retry.ConflictRetrier(),
	}
}

// Handle executes the submit attempt command.
func (h *SubmitAttemptHandler) Handle(ctx context.Context, cmd SubmitAttemptCommand) (*SubmitAttemptResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("submit_attempt: validation failed: %w", err)
	}

	session, err := h.sessionRepo.GetByID(ctx, cmd.SessionID)
	if err != nil {
		return nil, fmt.Errorf("submit_attempt: %w", err)
	}
	if err := session.CanAccept(cmd.UserID); err != nil {
		return nil, err
	}

	question, err := h.questionRepo.GetByID(ctx, cmd.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("submit_attempt: %w", err)
	}

	now := h.clk.Now()
	isCorrect := question.CheckAnswer(cmd.Answer)

	score, err := ranked.Score(question.Difficulty, isCorrect, cmd.TimeMs, cmd.UsedHints)
	if err != nil {
		return nil, err
	}

	attempt := ranked.Attempt{
		ID:         uuid.NewString(),
		SessionID:  session.ID,
		QuestionID: question.ID,
		Answer:     cmd.Answer,
		IsCorrect:  isCorrect,
		TimeMs:     cmd.TimeMs,
		UsedHints:  cmd.UsedHints,
		Score:      score,
		CreatedAt:  now,
	}

	session.Apply(attempt, now)
	if err := h.sessionRepo.RecordAttempt(ctx, session, attempt); err != nil {
		return nil, fmt.Errorf("submit_attempt: failed to record attempt: %w", err)
	}

	event := shared.NewAttemptScoredEvent(session.ID, cmd.UserID, question.ID,
		isCorrect, score, session.TotalScore)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	if err := h.eventPublisher.Publish(event); err != nil {
		h.log.Warn("failed to publish event", logger.SessionID(session.ID), logger.Err(err))
	}

	result := &SubmitAttemptResult{
		SessionID:         session.ID,
		QuestionID:        question.ID,
		IsCorrect:         isCorrect,
		Score:             score,
		TotalScore:        session.TotalScore,
		QuestionsAnswered: session.QuestionsAnswered,
	}

	// The attempt is persisted and final from here on. Progression is
	// best-effort: log and keep the scored result on any failure.
	if err := h.applyProgression(ctx, cmd, question, isCorrect, now, result); err != nil {
		result.ProgressionDeferred = true
		h.log.Warn("progression update failed, attempt already scored",
			logger.UserID(cmd.UserID),
			logger.SessionID(session.ID),
			logger.QuestionID(question.ID),
			logger.Err(err))
	}

	return result, nil
}

// applyProgression credits XP (with boost), grants crossed XP milestones and
// ticks the daily quest counter, all inside one optimistic-concurrency cycle.
func (h *SubmitAttemptHandler) applyProgression(
	ctx context.Context,
	cmd SubmitAttemptCommand,
	question *quiz.Question,
	isCorrect bool,
	now time.Time,
	result *SubmitAttemptResult,
) error {
	baseXP := ranked.AttemptXP(question.Difficulty, isCorrect)
	today := clock.StartOfDay(now)

	var (
		questCompleted bool
		events         []shared.Event
	)
	// Survives version-conflict replays: a milestone inserted into the ledger
	// by an earlier iteration must still be reported by this request.
	grantedNow := make(map[string]bool)

	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		events = events[:0]
		questCompleted = false

		p, err := h.getOrCreate(ctx, cmd.UserID)
		if err != nil {
			return err
		}

		if baseXP > 0 {
			awarded := p.ApplyBoost(baseXP, now)
			boosted := awarded != baseXP
			p.XP += awarded
			result.XPAwarded = awarded
			result.Boosted = boosted
			events = append(events, shared.NewXPGainedEvent(cmd.UserID, awarded, p.XP, boosted))

			granted, grantEvents, err := h.grantXPMilestones(ctx, cmd.UserID, p, now, grantedNow)
			if err != nil {
				return err
			}
			result.UnlockedMilestones = granted
			events = append(events, grantEvents...)
		}

		if isCorrect {
			questCompleted = p.RecordCorrectAnswer(today)
		}
		result.DailyQuestProgress = p.DailyQuestProgress(today)

		if err := h.progressRepo.UpdateVersioned(ctx, p); err != nil {
			if shared.IsConflict(err) {
				return retry.Retryable(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := h.eventPublisher.Publish(event); err != nil {
			h.log.Warn("failed to publish event",
				logger.String("event_type", string(event.EventType())), logger.Err(err))
		}
	}

	// The quest completion drives the streak in its own command so that
	// streak milestones share one code path with every other trigger.
	if questCompleted {
		result.DailyQuestCompleted = true

		questResult, err := h.dailyQuest.Handle(ctx, RecordDailyQuestCommand{
			UserID:        cmd.UserID,
			Date:          today,
			CorrelationID: cmd.CorrelationID,
		})
		if err != nil {
			return err
		}
		result.StreakDays = questResult.StreakDays
		for _, m := range questResult.UnlockedMilestones {
			result.UnlockedMilestones = append(result.UnlockedMilestones, m.ID)
		}
	}

	return nil
}

// grantXPMilestones grants newly crossed XP milestones. Hint credits go to
// the external wallet; a wallet failure is logged and swallowed because the
// ledger entry already guarantees the milestone is never granted twice.
// grantedNow carries grants made by earlier iterations of the same request's
// conflict-retry cycle: a replay reports them again but never re-credits.
func (h *SubmitAttemptHandler) grantXPMilestones(
	ctx context.Context,
	userID string,
	p *progression.UserProgress,
	now time.Time,
	grantedNow map[string]bool,
) ([]string, []shared.Event, error) {
	detected := progression.Detect(h.milestones.XP, p.XP, p.LastXPMilestone)
	if len(detected) == 0 {
		return nil, nil, nil
	}

	var (
		granted []string
		events  []shared.Event
	)

	for _, m := range detected {
		achievement := progression.NewXPAchievement(uuid.NewString(), userID, m, now)

		err := h.ledger.Insert(ctx, achievement)
		switch {
		case errors.Is(err, shared.ErrMilestoneAlreadyGranted):
			if grantedNow[m.ID] {
				granted = append(granted, m.ID)
				events = append(events, shared.NewMilestoneUnlockedEvent(
					userID, m.ID, string(progression.MilestoneTypeXP), m.XPRequired, m.RewardText))
			} else {
				h.log.Debug("xp milestone already granted",
					logger.UserID(userID), logger.MilestoneID(m.ID))
			}

		case err != nil:
			return nil, nil, err

		default:
			grantedNow[m.ID] = true
			granted = append(granted, m.ID)
			events = append(events, shared.NewMilestoneUnlockedEvent(
				userID, m.ID, string(progression.MilestoneTypeXP), m.XPRequired, m.RewardText))

			if m.FreeHints > 0 {
				if werr := h.wallet.AddHints(ctx, userID, m.FreeHints); werr != nil {
					h.log.Warn("hint wallet credit failed",
						logger.UserID(userID),
						logger.MilestoneID(m.ID),
						logger.Int("free_hints", m.FreeHints),
						logger.Err(werr))
				}
			}
		}

		if m.XPRequired > p.LastXPMilestone {
			p.LastXPMilestone = m.XPRequired
		}
	}

	return granted, events, nil
}

// getOrCreate loads the user's progress, creating an empty record on first use.
func (h *SubmitAttemptHandler) getOrCreate(ctx context.Context, userID string) (*progression.UserProgress, error) {
	p, err := h.progressRepo.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	p = progression.NewUserProgress(userID)
	if err := h.progressRepo.Create(ctx, p); err != nil {
		if shared.IsAlreadyExists(err) {
			return h.progressRepo.Get(ctx, userID)
		}
		return nil, err
	}
	return p, nil
}
