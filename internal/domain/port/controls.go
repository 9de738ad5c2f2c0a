package port

import (
	"context"

	"lid-inspector/internal/domain/entity"
)

// Controls операторские входы, допускающие вызов параллельно с работой конвейера
type Controls interface {
	// SetStrictness задаёт уровень строгости 1..5
	SetStrictness(level int) error

	// SetNoBrandMode включает режим без оценки брендирования
	SetNoBrandMode(on bool)

	// Reset очищает очередь, набор обработанных файлов, счётчики и сигналы
	Reset(ctx context.Context)

	// Status возвращает снимок состояния
	Status() entity.Status
}
