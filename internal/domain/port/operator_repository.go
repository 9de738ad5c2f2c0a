package port

import (
	"context"

	"lid-inspector/internal/domain/entity"
)

// OperatorRepository интерфейс хранилища операторов.
// Возвращаемые операторы — копии, изменения вносятся только через хранилище.
type OperatorRepository interface {
	// Get возвращает оператора по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.Operator, error)

	// Save сохраняет оператора
	Save(ctx context.Context, operator *entity.Operator) error

	// SetSubscribed атомарно меняет подписку, создавая оператора при необходимости
	SetSubscribed(ctx context.Context, userID, chatID int64, on bool) (*entity.Operator, error)

	// Subscribed возвращает операторов, подписанных на уведомления
	Subscribed(ctx context.Context) ([]*entity.Operator, error)
}
