package progression

import (
	"context"
)

// Repository - хранилище UserProgress. Одна запись на пользователя.
type Repository interface {
	// Get возвращает прогресс пользователя.
	// Возвращает shared.ErrProgressNotFound, если записи нет.
	Get(ctx context.Context, userID string) (*UserProgress, error)

	// Create создаёт новую запись прогресса.
	// Возвращает shared.ErrProgressAlreadyExists при дубликате.
	Create(ctx context.Context, p *UserProgress) error

	// UpdateVersioned применяет изменения атомарно по условию совпадения
	// версии (optimistic concurrency). При несовпадении возвращает
	// shared.ErrConcurrentModification; вызывающий перечитывает и повторяет.
	// Last-writer-wins здесь недопустим: параллельные запросы могут молча
	// потерять инкремент серии или апгрейд буста.
	UpdateVersioned(ctx context.Context, p *UserProgress) error
}

// AchievementLedger - append-only журнал выданных наград.
type AchievementLedger interface {
	// Insert добавляет запись под уникальным ограничением (userID, milestoneID)
	// на уровне хранилища. Дубликат возвращает shared.ErrMilestoneAlreadyGranted -
	// это сигнал идемпотентности, а не ошибка: предварительный SELECT здесь
	// не годится, потому что два параллельных запроса оба его пройдут.
	Insert(ctx context.Context, a Achievement) error

	// ListByUser возвращает все награды пользователя.
	ListByUser(ctx context.Context, userID string) ([]Achievement, error)
}

// ConfigSource загружает авторитетный список вех.
type ConfigSource interface {
	// Load возвращает конфигурацию вех. Вызывается один раз при старте.
	Load(ctx context.Context) (Config, error)
}

// HintWallet - внешний кошелёк подсказок. Начисление за XP-вехи для журнала
// наград является fire-and-forget: если кошелёк недоступен, запись о награде
// всё равно остаётся (чтобы не выдать повторно), а сбой поднимается наверх
// как предупреждение.
type HintWallet interface {
	AddHints(ctx context.Context, userID string, hints int) error
}
