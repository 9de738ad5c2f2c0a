package port

import (
	"context"

	"lid-inspector/internal/domain/entity"
)

// Journal журнал терминальных записей (только для аудита)
type Journal interface {
	// Append сохраняет запись
	Append(ctx context.Context, entry entity.JournalEntry) error

	// Recent возвращает последние записи, новые первыми
	Recent(ctx context.Context, limit int) ([]entity.JournalEntry, error)
}
