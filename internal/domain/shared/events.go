package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the engine: progression state transitions, reward grants,
// and ranked-session lifecycle changes.
const (
	// Progression events
	EventDailyQuestCompleted EventType = "progression.daily_quest_completed"
	EventStreakExtended      EventType = "progression.streak_extended"
	EventStreakReset         EventType = "progression.streak_reset"
	EventXPGained            EventType = "progression.xp_gained"
	EventMilestoneUnlocked   EventType = "progression.milestone_unlocked"
	EventBoostActivated      EventType = "progression.boost_activated"

	// Ranked events
	EventSessionStarted EventType = "ranked.session_started"
	EventAttemptScored  EventType = "ranked.attempt_scored"
	EventSessionEnded   EventType = "ranked.session_ended"

	// Leaderboard events
	EventLeaderboardInvalidated EventType = "leaderboard.invalidated"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventPublisher publishes domain events to interested subscribers.
type EventPublisher interface {
	Publish(event Event) error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// DailyQuestCompletedEvent is emitted when a user reaches the daily quest
// target of correct answers for the first time on a calendar day.
type DailyQuestCompletedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	Date       string `json:"date"`
	StreakDays int    `json:"streak_days"`
}

// Payload implements Event interface.
func (e DailyQuestCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"date":        e.Date,
		"streak_days": e.StreakDays,
	}
}

// NewDailyQuestCompletedEvent creates a new DailyQuestCompletedEvent.
func NewDailyQuestCompletedEvent(userID, date string, streakDays int) DailyQuestCompletedEvent {
	return DailyQuestCompletedEvent{
		BaseEvent:  NewBaseEvent(EventDailyQuestCompleted, userID),
		UserID:     userID,
		Date:       date,
		StreakDays: streakDays,
	}
}

// StreakExtendedEvent is emitted when a user's consecutive-day streak grows.
type StreakExtendedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	StreakDays    int    `json:"streak_days"`
	LongestStreak int    `json:"longest_streak"`
}

// Payload implements Event interface.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"streak_days":    e.StreakDays,
		"longest_streak": e.LongestStreak,
	}
}

// NewStreakExtendedEvent creates a new StreakExtendedEvent.
func NewStreakExtendedEvent(userID string, streakDays, longestStreak int) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent:     NewBaseEvent(EventStreakExtended, userID),
		UserID:        userID,
		StreakDays:    streakDays,
		LongestStreak: longestStreak,
	}
}

// StreakResetEvent is emitted when a gap in activity resets a streak.
type StreakResetEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
	NewStreak      int    `json:"new_streak"`
}

// Payload implements Event interface.
func (e StreakResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
		"new_streak":      e.NewStreak,
	}
}

// NewStreakResetEvent creates a new StreakResetEvent.
func NewStreakResetEvent(userID string, previousStreak, newStreak int) StreakResetEvent {
	return StreakResetEvent{
		BaseEvent:      NewBaseEvent(EventStreakReset, userID),
		UserID:         userID,
		PreviousStreak: previousStreak,
		NewStreak:      newStreak,
	}
}

// XPGainedEvent is emitted when a user earns XP from a scored attempt.
type XPGainedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Boosted  bool   `json:"boosted"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"boosted":   e.Boosted,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, amount, newTotal int, boosted bool) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID),
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Boosted:   boosted,
	}
}

// MilestoneUnlockedEvent is emitted when a milestone reward is granted.
// The grant is at-most-once: this event fires only for the request that won
// the achievement-ledger insert.
type MilestoneUnlockedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	MilestoneID   string `json:"milestone_id"`
	MilestoneType string `json:"milestone_type"`
	Threshold     int    `json:"threshold"`
	RewardText    string `json:"reward_text"`
}

// Payload implements Event interface.
func (e MilestoneUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"milestone_id":   e.MilestoneID,
		"milestone_type": e.MilestoneType,
		"threshold":      e.Threshold,
		"reward_text":    e.RewardText,
	}
}

// NewMilestoneUnlockedEvent creates a new MilestoneUnlockedEvent.
func NewMilestoneUnlockedEvent(userID, milestoneID, milestoneType string, threshold int, rewardText string) MilestoneUnlockedEvent {
	return MilestoneUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventMilestoneUnlocked, userID),
		UserID:        userID,
		MilestoneID:   milestoneID,
		MilestoneType: milestoneType,
		Threshold:     threshold,
		RewardText:    rewardText,
	}
}

// BoostActivatedEvent is emitted when a milestone boost replaces or upgrades
// the user's active XP multiplier.
type BoostActivatedEvent struct {
	BaseEvent
	UserID     string    `json:"user_id"`
	Multiplier float64   `json:"multiplier"`
	Expiry     time.Time `json:"expiry"`
}

// Payload implements Event interface.
func (e BoostActivatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"multiplier": e.Multiplier,
		"expiry":     e.Expiry,
	}
}

// NewBoostActivatedEvent creates a new BoostActivatedEvent.
func NewBoostActivatedEvent(userID string, multiplier float64, expiry time.Time) BoostActivatedEvent {
	return BoostActivatedEvent{
		BaseEvent:  NewBaseEvent(EventBoostActivated, userID),
		UserID:     userID,
		Multiplier: multiplier,
		Expiry:     expiry,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Ranked Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionStartedEvent is emitted when a ranked session begins.
type SessionStartedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// Payload implements Event interface.
func (e SessionStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id": e.SessionID,
		"user_id":    e.UserID,
	}
}

// NewSessionStartedEvent creates a new SessionStartedEvent.
func NewSessionStartedEvent(sessionID, userID string) SessionStartedEvent {
	return SessionStartedEvent{
		BaseEvent: NewBaseEvent(EventSessionStarted, sessionID),
		SessionID: sessionID,
		UserID:    userID,
	}
}

// AttemptScoredEvent is emitted after a ranked attempt is scored and persisted.
type AttemptScoredEvent struct {
	BaseEvent
	SessionID  string `json:"session_id"`
	UserID     string `json:"user_id"`
	QuestionID string `json:"question_id"`
	IsCorrect  bool   `json:"is_correct"`
	Score      int    `json:"score"`
	TotalScore int    `json:"total_score"`
}

// Payload implements Event interface.
func (e AttemptScoredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":  e.SessionID,
		"user_id":     e.UserID,
		"question_id": e.QuestionID,
		"is_correct":  e.IsCorrect,
		"score":       e.Score,
		"total_score": e.TotalScore,
	}
}

// NewAttemptScoredEvent creates a new AttemptScoredEvent.
func NewAttemptScoredEvent(sessionID, userID, questionID string, isCorrect bool, score, totalScore int) AttemptScoredEvent {
	return AttemptScoredEvent{
		BaseEvent:  NewBaseEvent(EventAttemptScored, sessionID),
		SessionID:  sessionID,
		UserID:     userID,
		QuestionID: questionID,
		IsCorrect:  isCorrect,
		Score:      score,
		TotalScore: totalScore,
	}
}

// SessionEndedEvent is emitted when a ranked session is closed, either
// explicitly or by the abandonment sweeper.
type SessionEndedEvent struct {
	BaseEvent
	SessionID         string `json:"session_id"`
	UserID            string `json:"user_id"`
	TotalScore        int    `json:"total_score"`
	QuestionsAnswered int    `json:"questions_answered"`
	Abandoned         bool   `json:"abandoned"`
}

// Payload implements Event interface.
func (e SessionEndedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":         e.SessionID,
		"user_id":            e.UserID,
		"total_score":        e.TotalScore,
		"questions_answered": e.QuestionsAnswered,
		"abandoned":          e.Abandoned,
	}
}

// NewSessionEndedEvent creates a new SessionEndedEvent.
func NewSessionEndedEvent(sessionID, userID string, totalScore, questionsAnswered int, abandoned bool) SessionEndedEvent {
	return SessionEndedEvent{
		BaseEvent:         NewBaseEvent(EventSessionEnded, sessionID),
		SessionID:         sessionID,
		UserID:            userID,
		TotalScore:        totalScore,
		QuestionsAnswered: questionsAnswered,
		Abandoned:         abandoned,
	}
}
