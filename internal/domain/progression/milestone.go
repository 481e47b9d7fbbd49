package progression

import (
	"fmt"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MILESTONES
// ══════════════════════════════════════════════════════════════════════════════

// MilestoneType различает вехи по серии дней и по накопленному XP.
type MilestoneType string

const (
	// MilestoneTypeStreak - веха за серию дней.
	MilestoneTypeStreak MilestoneType = "streak"
	// MilestoneTypeXP - веха за накопленный XP.
	MilestoneTypeXP MilestoneType = "xp"
)

// Milestone - общий интерфейс вехи для обобщённого детектора.
type Milestone interface {
	// Threshold возвращает порог вехи (дни серии или XP).
	Threshold() int
}

// StreakMilestone - веха за серию дней. Награда: временный множитель XP.
type StreakMilestone struct {
	ID                string
	DaysRequired      int
	XPBoostMultiplier float64
	BoostDurationHrs  int
	RewardText        string
}

// Threshold implements Milestone.
func (m StreakMilestone) Threshold() int { return m.DaysRequired }

// BoostDuration возвращает длительность буста как time.Duration.
func (m StreakMilestone) BoostDuration() time.Duration {
	return time.Duration(m.BoostDurationHrs) * time.Hour
}

// XPMilestone - веха за накопленный XP. Награда: бесплатные подсказки.
type XPMilestone struct {
	ID         string
	XPRequired int
	FreeHints  int
	RewardText string
}

// Threshold implements Milestone.
func (m XPMilestone) Threshold() int { return m.XPRequired }

// Detect возвращает все вехи, чей порог впервые пересечён: строго больше
// lastAchieved и не больше current, по возрастанию порога. Список вех обязан
// быть отсортирован по возрастанию (см. Config.Validate).
func Detect[M Milestone](milestones []M, current, lastAchieved int) []M {
	var detected []M
	for _, m := range milestones {
		if m.Threshold() > lastAchieved && m.Threshold() <= current {
			detected = append(detected, m)
		}
	}
	return detected
}

// ══════════════════════════════════════════════════════════════════════════════
// MILESTONE CONFIG
// ══════════════════════════════════════════════════════════════════════════════

// Config - единственный авторитетный список вех. Загружается один раз при
// старте и неизменяем во время работы; версия нужна, чтобы UI и сервер
// гарантированно говорили об одном и том же списке.
type Config struct {
	Version int
	Streak  []StreakMilestone
	XP      []XPMilestone
}

// DefaultConfig возвращает встроенный список вех.
func DefaultConfig() Config {
	return Config{
		Version: 1,
		Streak: []StreakMilestone{
			{ID: "streak-3", DaysRequired: 3, XPBoostMultiplier: 1.10, BoostDurationHrs: 24, RewardText: "3 дня подряд: +10% XP на сутки"},
			{ID: "streak-5", DaysRequired: 5, XPBoostMultiplier: 1.30, BoostDurationHrs: 24, RewardText: "5 дней подряд: +30% XP на сутки"},
			{ID: "streak-7", DaysRequired: 7, XPBoostMultiplier: 1.50, BoostDurationHrs: 48, RewardText: "Неделя огня: +50% XP на двое суток"},
			{ID: "streak-14", DaysRequired: 14, XPBoostMultiplier: 1.75, BoostDurationHrs: 48, RewardText: "Две недели: +75% XP на двое суток"},
			{ID: "streak-30", DaysRequired: 30, XPBoostMultiplier: 2.00, BoostDurationHrs: 72, RewardText: "Железная воля: двойной XP на трое суток"},
			{ID: "streak-100", DaysRequired: 100, XPBoostMultiplier: 2.50, BoostDurationHrs: 168, RewardText: "Сто дней: x2.5 XP на неделю"},
		},
		XP: []XPMilestone{
			{ID: "xp-100", XPRequired: 100, FreeHints: 1, RewardText: "Первая сотня XP: бесплатная подсказка"},
			{ID: "xp-500", XPRequired: 500, FreeHints: 3, RewardText: "500 XP: три подсказки"},
			{ID: "xp-1000", XPRequired: 1000, FreeHints: 5, RewardText: "1000 XP: пять подсказок"},
			{ID: "xp-5000", XPRequired: 5000, FreeHints: 10, RewardText: "5000 XP: десять подсказок"},
			{ID: "xp-10000", XPRequired: 10000, FreeHints: 20, RewardText: "10000 XP: двадцать подсказок"},
		},
	}
}

// Validate проверяет, что пороги уникальны, положительны и возрастают.
func (c Config) Validate() error {
	prev := 0
	for _, m := range c.Streak {
		if m.DaysRequired <= prev {
			return shared.WrapError("progression", "LoadConfig", shared.ErrInvalidEntity,
				"streak milestones must be strictly ascending",
				fmt.Errorf("milestone %q: %d days after %d", m.ID, m.DaysRequired, prev))
		}
		if m.XPBoostMultiplier < 1.0 {
			return shared.ErrInvalidBoostMultiplier
		}
		if m.BoostDurationHrs <= 0 {
			return shared.NewDomainError("progression", "LoadConfig", shared.ErrValueOutOfRange,
				fmt.Sprintf("milestone %q: boost duration must be positive", m.ID))
		}
		prev = m.DaysRequired
	}

	prev = 0
	for _, m := range c.XP {
		if m.XPRequired <= prev {
			return shared.WrapError("progression", "LoadConfig", shared.ErrInvalidEntity,
				"xp milestones must be strictly ascending",
				fmt.Errorf("milestone %q: %d xp after %d", m.ID, m.XPRequired, prev))
		}
		if m.FreeHints < 0 {
			return shared.NewDomainError("progression", "LoadConfig", shared.ErrNegativeValue,
				fmt.Sprintf("milestone %q: free hints cannot be negative", m.ID))
		}
		prev = m.XPRequired
	}

	return nil
}

// NextStreak возвращает ближайшую недостигнутую streak-веху, либо nil.
func (c Config) NextStreak(streakDays int) *StreakMilestone {
	for i := range c.Streak {
		if c.Streak[i].DaysRequired > streakDays {
			m := c.Streak[i]
			return &m
		}
	}
	return nil
}

// NextXP возвращает ближайшую недостигнутую XP-веху, либо nil.
func (c Config) NextXP(xp int) *XPMilestone {
	for i := range c.XP {
		if c.XP[i].XPRequired > xp {
			m := c.XP[i]
			return &m
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT LEDGER ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Achievement - запись о единожды выданной награде. Журнал append-only:
// запись создаётся ровно один раз при первом пересечении порога, никогда не
// обновляется и не удаляется. Уникальность пары (UserID, MilestoneID) - это
// и есть гарантия at-most-once.
type Achievement struct {
	ID                string
	UserID            string
	MilestoneID       string
	Type              MilestoneType
	AchievedAt        time.Time
	GrantedMultiplier float64
	GrantedHints      int
	BoostExpiry       *time.Time
}

// NewStreakAchievement создаёт запись журнала для streak-вехи.
func NewStreakAchievement(id, userID string, m StreakMilestone, achievedAt, boostExpiry time.Time) Achievement {
	return Achievement{
		ID:                id,
		UserID:            userID,
		MilestoneID:       m.ID,
		Type:              MilestoneTypeStreak,
		AchievedAt:        achievedAt,
		GrantedMultiplier: m.XPBoostMultiplier,
		BoostExpiry:       &boostExpiry,
	}
}

// NewXPAchievement создаёт запись журнала для XP-вехи.
func NewXPAchievement(id, userID string, m XPMilestone, achievedAt time.Time) Achievement {
	return Achievement{
		ID:           id,
		UserID:       userID,
		MilestoneID:  m.ID,
		Type:         MilestoneTypeXP,
		AchievedAt:   achievedAt,
		GrantedHints: m.FreeHints,
	}
}
