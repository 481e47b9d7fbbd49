// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/progression"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/clock"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD DAILY QUEST COMMAND
// Records a completed daily quest: extends or resets the streak, detects
// newly crossed streak milestones and grants their boosts at most once.
// ══════════════════════════════════════════════════════════════════════════════

// RecordDailyQuestCommand contains the data to record a daily quest completion.
type RecordDailyQuestCommand struct {
	// UserID is the ID of the user whose quest completed.
	UserID string

	// Date is the calendar day of the completion (defaults to today if zero).
	Date time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordDailyQuestCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("record_daily_quest: user_id is required")
	}
	return nil
}

// RecordDailyQuestResult contains the result of recording a quest completion.
type RecordDailyQuestResult struct {
	// UserID is the ID of the user.
	UserID string

	// StreakDays is the streak after the update.
	StreakDays int

	// LongestStreak is the all-time best streak.
	LongestStreak int

	// StreakWasReset indicates a stale streak was dropped before extending.
	StreakWasReset bool

	// PreviousStreak is the streak before a reset (if any).
	PreviousStreak int

	// UnlockedMilestones are the streak milestones granted by this update.
	UnlockedMilestones []progression.StreakMilestone

	// BoostMultiplier is the active multiplier after the update.
	BoostMultiplier float64

	// BoostExpiry is when the active boost expires (nil if none).
	BoostExpiry *time.Time

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordDailyQuestHandler handles the RecordDailyQuestCommand.
type RecordDailyQuestHandler struct {
	progressRepo   progression.Repository
	ledger         progression.AchievementLedger
	milestones     progression.Config
	eventPublisher shared.EventPublisher
	clk            *clock.Policy
	log            *logger.Logger
	retrier        *retry.Retrier
}

// NewRecordDailyQuestHandler creates a new RecordDailyQuestHandler.
func NewRecordDailyQuestHandler(
	progressRepo progression.Repository,
	ledger progression.AchievementLedger,
	milestones progression.Config,
	eventPublisher shared.EventPublisher,
	clk *clock.Policy,
	log *logger.Logger,
) *RecordDailyQuestHandler {
	return &RecordDailyQuestHandler{
		progressRepo:   progressRepo,
		ledger:         ledger,
		milestones:     milestones,
		eventPublisher: eventPublisher,
		clk:            clk,
		log:            log.With(logger.Component("record_daily_quest")),
		retrier:        retry.ConflictRetrier(),
	}
}

// Handle executes the record daily quest command. The whole read-modify-write
// cycle runs under optimistic concurrency: a version conflict re-reads the
// progress and replays the update.
func (h *RecordDailyQuestHandler) Handle(ctx context.Context, cmd RecordDailyQuestCommand) (*RecordDailyQuestResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_daily_quest: validation failed: %w", err)
	}

	date := cmd.Date
	if date.IsZero() {
		date = h.clk.Today()
	}
	date = clock.StartOfDay(date)

	var result *RecordDailyQuestResult

	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		r, err := h.apply(ctx, cmd, date)
		if err != nil {
			if shared.IsConflict(err) {
				return retry.Retryable(err)
			}
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record_daily_quest: %w", err)
	}

	for _, event := range result.Events {
		if err := h.eventPublisher.Publish(event); err != nil {
			h.log.Warn("failed to publish event",
				logger.String("event_type", string(event.EventType())), logger.Err(err))
		}
	}

	return result, nil
}

// apply performs one attempt of the read-modify-write cycle.
func (h *RecordDailyQuestHandler) apply(ctx context.Context, cmd RecordDailyQuestCommand, date time.Time) (*RecordDailyQuestResult, error) {
	p, err := h.getOrCreate(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	result := &RecordDailyQuestResult{
		UserID: cmd.UserID,
		Events: make([]shared.Event, 0, 4),
	}

	// Expire a stale streak before extending. The order matters: a streak
	// with a gap must restart at 1, never silently continue.
	previousStreak := p.StreakDays
	if p.ExpireIfStale(date) {
		result.StreakWasReset = true
		result.PreviousStreak = previousStreak
		result.Events = append(result.Events,
			h.withCorrelation(shared.NewStreakResetEvent(cmd.UserID, previousStreak, 0), cmd.CorrelationID))
	}

	p.RecordActivity(date)

	result.Events = append(result.Events,
		h.withCorrelation(shared.NewDailyQuestCompletedEvent(cmd.UserID, clock.FormatDateStr(date), p.StreakDays), cmd.CorrelationID))
	if p.StreakDays > previousStreak || result.StreakWasReset {
		result.Events = append(result.Events,
			h.withCorrelation(shared.NewStreakExtendedEvent(cmd.UserID, p.StreakDays, p.LongestStreak), cmd.CorrelationID))
	}

	if err := h.grantMilestones(ctx, cmd, p, result); err != nil {
		return nil, err
	}

	if err := h.progressRepo.UpdateVersioned(ctx, p); err != nil {
		return nil, err
	}

	result.StreakDays = p.StreakDays
	result.LongestStreak = p.LongestStreak
	result.BoostMultiplier = p.XPBoostMultiplier
	result.BoostExpiry = p.XPBoostExpiry

	return result, nil
}

// grantMilestones detects newly crossed streak milestones and grants each
// at most once via the achievement ledger's unique constraint.
func (h *RecordDailyQuestHandler) grantMilestones(
	ctx context.Context,
	cmd RecordDailyQuestCommand,
	p *progression.UserProgress,
	result *RecordDailyQuestResult,
) error {
	detected := progression.Detect(h.milestones.Streak, p.StreakDays, p.LastStreakMilestoneDays)
	now := h.clk.Now()

	for _, m := range detected {
		expiry := now.Add(m.BoostDuration())
		achievement := progression.NewStreakAchievement(uuid.NewString(), cmd.UserID, m, now, expiry)

		err := h.ledger.Insert(ctx, achievement)
		alreadyGranted := errors.Is(err, shared.ErrMilestoneAlreadyGranted)
		if err != nil && !alreadyGranted {
			return err
		}

		// Merge the boost even when the ledger says "already granted": a
		// concurrent request may have won the insert but lost its progress
		// update, and MergeBoost is idempotent for equal multipliers.
		if p.MergeBoost(m.XPBoostMultiplier, expiry, now) && !alreadyGranted {
			result.Events = append(result.Events,
				h.withCorrelation(shared.NewBoostActivatedEvent(cmd.UserID, m.XPBoostMultiplier, expiry), cmd.CorrelationID))
		}

		if alreadyGranted {
			h.log.Debug("streak milestone already granted",
				logger.UserID(cmd.UserID), logger.MilestoneID(m.ID))
		} else {
			result.UnlockedMilestones = append(result.UnlockedMilestones, m)
			result.Events = append(result.Events,
				h.withCorrelation(shared.NewMilestoneUnlockedEvent(
					cmd.UserID, m.ID, string(progression.MilestoneTypeStreak), m.DaysRequired, m.RewardText), cmd.CorrelationID))
		}

		if m.DaysRequired > p.LastStreakMilestoneDays {
			p.LastStreakMilestoneDays = m.DaysRequired
		}
	}

	return nil
}

// getOrCreate loads the user's progress, creating an empty record on first use.
func (h *RecordDailyQuestHandler) getOrCreate(ctx context.Context, userID string) (*progression.UserProgress, error) {
	p, err := h.progressRepo.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	p = progression.NewUserProgress(userID)
	if err := h.progressRepo.Create(ctx, p); err != nil {
		// Lost the create race: another request made the record first.
		if shared.IsAlreadyExists(err) {
			return h.progressRepo.Get(ctx, userID)
		}
		return nil, err
	}
	return p, nil
}

func (h *RecordDailyQuestHandler) withCorrelation(event shared.Event, correlationID string) shared.Event {
	if correlationID == "" {
		return event
	}
	switch e := event.(type) {
	case shared.DailyQuestCompletedEvent:
		e.BaseEvent = e.BaseEvent.WithCorrelationID(correlationID)
		return e
	case shared.StreakExtendedEvent:
		e.BaseEvent = e.BaseEvent.WithCorrelationID(correlationID)
		return e
	case shared.StreakResetEvent:
		e.BaseEvent = e.BaseEvent.WithCorrelationID(correlationID)
		return e
	case shared.MilestoneUnlockedEvent:
		e.BaseEvent = e.BaseEvent.WithCorrelationID(correlationID)
		return e
	case shared.BoostActivatedEvent:
		e.BaseEvent = e.BaseEvent.WithCorrelationID(correlationID)
		return e
	default:
		return event
	}
}
