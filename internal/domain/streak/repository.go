package streak

import (
	"context"
	"time"
)

// Repository определяет контракт хранилища состояний серии.
// Реализации живут в internal/infrastructure/persistence.
type Repository interface {
	// Load загружает состояние серии пользователя.
	// Возвращает shared.ErrStreakNotFound, если записи нет —
	// для вызывающего это не ошибка, а сигнал начать с пустого состояния.
	Load(ctx context.Context, userID string) (*Record, error)

	// Save сохраняет состояние серии целиком (upsert).
	Save(ctx context.Context, record *Record) error

	// Delete удаляет состояние серии пользователя.
	Delete(ctx context.Context, userID string) error

	// ListAtRisk возвращает записи, чья серия сломается без активности
	// в день asOf (последняя активность — ровно накануне asOf).
	ListAtRisk(ctx context.Context, asOf time.Time) ([]*Record, error)
}

// Cache определяет контракт локального кэша состояний серии.
// Кэш — быстрый слой с TTL; его успешная запись достаточна
// для продолжения сессии при недоступности основного хранилища.
type Cache interface {
	// Get возвращает закэшированное состояние.
	// Возвращает shared.ErrStreakNotFound при промахе.
	Get(ctx context.Context, userID string) (*Record, error)

	// Set кладёт состояние в кэш.
	Set(ctx context.Context, record *Record) error

	// Delete инвалидирует кэш пользователя.
	Delete(ctx context.Context, userID string) error
}

// NotificationLevel классифицирует исходящие уведомления.
type NotificationLevel string

const (
	// LevelMilestone - достигнута веха серии.
	LevelMilestone NotificationLevel = "milestone"
	// LevelReminder - напоминание о риске потерять серию.
	LevelReminder NotificationLevel = "reminder"
	// LevelInfo - прочие информационные сообщения.
	LevelInfo NotificationLevel = "info"
)

// Notifier определяет контракт отправки уведомлений пользователю.
// Отправка — fire-and-forget: ошибка никогда не откатывает состояние серии.
type Notifier interface {
	Notify(ctx context.Context, userID, message string, level NotificationLevel) error
}
