package ranked

import (
	"context"
	"time"
)

// SessionRepository - хранилище рейтинговых сессий и попыток.
type SessionRepository interface {
	// Create сохраняет новую активную сессию.
	Create(ctx context.Context, s *Session) error

	// GetByID возвращает сессию по идентификатору.
	// Возвращает shared.ErrSessionNotFound, если сессии нет.
	GetByID(ctx context.Context, id string) (*Session, error)

	// RecordAttempt атомарно записывает попытку и обновляет агрегаты
	// сессии в одной транзакции. Агрегаты наращиваются инкрементами из
	// самой попытки, а не перезаписываются абсолютными значениями:
	// параллельные отправки в одну сессию не должны терять друг друга.
	// Частичная запись (попытка без агрегатов или наоборот) недопустима.
	RecordAttempt(ctx context.Context, s *Session, a Attempt) error

	// End переводит активную сессию в терминальный статус. Возвращает
	// shared.ErrSessionInactive, если сессию уже закрыл параллельный
	// запрос или фоновая чистка.
	End(ctx context.Context, s *Session) error

	// ListCompletedEligible возвращает завершённые сессии, подходящие для
	// таблицы лидеров, отсортированные по правилу таблицы, не более limit.
	ListCompletedEligible(ctx context.Context, limit int) ([]Entry, error)

	// CloseStale помечает заброшенными активные сессии без активности
	// дольше maxIdle. Возвращает закрытые сессии для публикации событий.
	CloseStale(ctx context.Context, now time.Time, maxIdle time.Duration) ([]*Session, error)
}

// LeaderboardCache - кеш верхушки таблицы лидеров. Промах кеша не является
// ошибкой чтения: таблица всегда восстановима из хранилища сессий.
type LeaderboardCache interface {
	// GetTop возвращает закешированные строки, не более limit.
	// Возвращает shared.ErrNotFound при промахе.
	GetTop(ctx context.Context, limit int) ([]Entry, error)

	// SetTop кеширует строки с временем жизни ttl.
	SetTop(ctx context.Context, entries []Entry, ttl time.Duration) error

	// Invalidate сбрасывает кеш после завершения подходящей сессии.
	Invalidate(ctx context.Context) error
}
