// Package progression содержит доменную модель прогресса пользователя:
// серии активных дней (streak), ежедневный квест, XP с временными бустами
// и вехи (milestones) с одноразовыми наградами.
// Философия: прогресс должен мотивировать заниматься каждый день, а не
// наказывать за пропуски сильнее, чем необходимо.
package progression

import (
	"fmt"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/clock"
)

// DailyQuestTarget is the number of correct answers within one calendar day
// that completes the daily quest and qualifies the day for the streak.
const DailyQuestTarget = 5

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// UserProgress представляет полное состояние прогресса одного пользователя.
// Это единственная изменяемая запись на пользователя; все мутации проходят
// через optimistic concurrency (поле Version).
type UserProgress struct {
	// UserID - идентификатор пользователя.
	UserID string

	// XP - накопленный опыт.
	XP int

	// StreakDays - текущая серия дней с выполненным ежедневным квестом.
	StreakDays int

	// LongestStreak - лучшая серия за всё время. Инвариант: >= StreakDays.
	LongestStreak int

	// LastActiveDate - дата последней засчитанной активности (только дата).
	LastActiveDate *time.Time

	// CurrentStreakStartDate - дата начала текущей серии.
	CurrentStreakStartDate *time.Time

	// LastStreakMilestoneDays - порог последней выданной streak-вехи.
	// Оптимизация сканирования; корректность держится на уникальном
	// индексе журнала достижений, не на этом поле.
	LastStreakMilestoneDays int

	// LastXPMilestone - порог последней выданной XP-вехи.
	LastXPMilestone int

	// XPBoostMultiplier - активный множитель XP. Инвариант: >= 1.0.
	XPBoostMultiplier float64

	// XPBoostExpiry - абсолютное время истечения буста.
	XPBoostExpiry *time.Time

	// DailyQuestDate - день, к которому относится счётчик квеста.
	DailyQuestDate *time.Time

	// DailyQuestCorrect - правильных ответов за DailyQuestDate.
	DailyQuestCorrect int

	// DailyQuestCompletedDate - день, когда квест был завершён.
	// Гарантирует не более одного streak-обновления в день.
	DailyQuestCompletedDate *time.Time

	// Version - счётчик версий для optimistic concurrency.
	Version int

	// CreatedAt, UpdatedAt - служебные отметки времени.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserProgress создаёт пустой прогресс для нового пользователя.
func NewUserProgress(userID string) *UserProgress {
	now := time.Now().UTC()
	return &UserProgress{
		UserID:            userID,
		XP:                0,
		StreakDays:        0,
		LongestStreak:     0,
		XPBoostMultiplier: 1.0,
		Version:           0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Validate проверяет инварианты прогресса.
func (p *UserProgress) Validate() error {
	if p.UserID == "" {
		return shared.NewDomainError("progression", "Validate", shared.ErrInvalidID, "user ID is required")
	}
	if p.StreakDays < 0 {
		return shared.NewDomainError("progression", "Validate", shared.ErrNegativeValue, "streak days cannot be negative")
	}
	if p.LongestStreak < p.StreakDays {
		return shared.NewDomainError("progression", "Validate", shared.ErrInvalidEntity,
			fmt.Sprintf("longest streak %d is less than current streak %d", p.LongestStreak, p.StreakDays))
	}
	if p.XP < 0 {
		return shared.NewDomainError("progression", "Validate", shared.ErrNegativeValue, "xp cannot be negative")
	}
	if p.XPBoostMultiplier < 1.0 {
		return shared.ErrInvalidBoostMultiplier
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK TRACKER
// ══════════════════════════════════════════════════════════════════════════════

// ExpireIfStale сбрасывает серию в 0, если последняя активность была раньше,
// чем вчера. LongestStreak не трогается. Возвращает true при сбросе.
//
// Должен вызываться ДО RecordActivity в рамках одного логического хода:
// устаревшая серия никогда не продлевается молча.
func (p *UserProgress) ExpireIfStale(today time.Time) bool {
	if p.LastActiveDate == nil || p.StreakDays == 0 {
		return false
	}

	if clock.DaysBetween(*p.LastActiveDate, today) > 1 {
		p.StreakDays = 0
		p.CurrentStreakStartDate = nil
		return true
	}

	return false
}

// RecordActivity засчитывает квалифицирующую активность за указанную дату.
//
//   - тот же день, что LastActiveDate: без изменений (уже засчитано);
//   - следующий день: серия +1;
//   - первая активность или разрыв: серия = 1, новая дата старта.
//
// LongestStreak подтягивается, LastActiveDate обновляется всегда.
func (p *UserProgress) RecordActivity(activityDate time.Time) {
	date := clock.StartOfDay(activityDate)

	switch {
	case p.LastActiveDate != nil && clock.IsSameDay(*p.LastActiveDate, date):
		return
	case p.LastActiveDate != nil && p.StreakDays > 0 && clock.IsConsecutive(*p.LastActiveDate, date):
		p.StreakDays++
	default:
		p.StreakDays = 1
		p.CurrentStreakStartDate = &date
	}

	if p.StreakDays > p.LongestStreak {
		p.LongestStreak = p.StreakDays
	}
	p.LastActiveDate = &date
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY QUEST
// ══════════════════════════════════════════════════════════════════════════════

// RecordCorrectAnswer учитывает один правильный ответ в счётчике ежедневного
// квеста. Счётчик начинается заново в новый календарный день. Возвращает true
// ровно один раз за день - в момент достижения DailyQuestTarget; повторные
// достижения порога в тот же день (replay, несколько вкладок) игнорируются
// благодаря DailyQuestCompletedDate.
func (p *UserProgress) RecordCorrectAnswer(answerDate time.Time) bool {
	date := clock.StartOfDay(answerDate)

	if p.DailyQuestDate == nil || !clock.IsSameDay(*p.DailyQuestDate, date) {
		p.DailyQuestDate = &date
		p.DailyQuestCorrect = 0
	}

	if p.DailyQuestCorrect < DailyQuestTarget {
		p.DailyQuestCorrect++
	}

	if p.DailyQuestCorrect < DailyQuestTarget {
		return false
	}

	if p.DailyQuestCompletedDate != nil && clock.IsSameDay(*p.DailyQuestCompletedDate, date) {
		return false
	}

	p.DailyQuestCompletedDate = &date
	return true
}

// DailyQuestProgress возвращает счётчик квеста за указанный день.
func (p *UserProgress) DailyQuestProgress(today time.Time) int {
	if p.DailyQuestDate == nil || !clock.IsSameDay(*p.DailyQuestDate, today) {
		return 0
	}
	return p.DailyQuestCorrect
}

// DailyQuestCompleted возвращает true, если квест за указанный день выполнен.
func (p *UserProgress) DailyQuestCompleted(today time.Time) bool {
	return p.DailyQuestCompletedDate != nil && clock.IsSameDay(*p.DailyQuestCompletedDate, today)
}
