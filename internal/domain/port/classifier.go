package port

import (
	"context"

	"lid-inspector/internal/domain/entity"
)

// Classifier внешний сервис классификации изображений
type Classifier interface {
	// Classify возвращает текстовый ответ вида "ACCEPT - причина (Confidence: XX%)".
	// Временные сбои помечаются entity.ErrTransientClassification.
	Classify(ctx context.Context, image entity.ImagePayload, settings entity.Settings) (string, error)
}
