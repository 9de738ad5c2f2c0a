package port

import (
	"context"

	"lid-inspector/internal/domain/entity"
)

// Preprocessor готовит изображение к отправке классификатору
type Preprocessor interface {
	// Prepare читает файл и возвращает полезную нагрузку.
	// Ошибки помечаются entity.ErrPreprocessing.
	Prepare(ctx context.Context, path string) (entity.ImagePayload, error)
}
