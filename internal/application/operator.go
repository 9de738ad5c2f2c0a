package app

import (
	"context"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

type OperatorService struct {
	repo port.OperatorRepository
}

func NewOperatorService(repo port.OperatorRepository) *OperatorService {
	return &OperatorService{repo: repo}
}

func (s *OperatorService) Get(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.repo.Get(ctx, userID, chatID)
}

// SetSubscribed меняет подписку; изменение выполняет хранилище под своей блокировкой.
func (s *OperatorService) SetSubscribed(ctx context.Context, userID, chatID int64, on bool) (*entity.Operator, error) {
	return s.repo.SetSubscribed(ctx, userID, chatID, on)
}

func (s *OperatorService) Subscribe(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.SetSubscribed(ctx, userID, chatID, true)
}

func (s *OperatorService) Unsubscribe(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.SetSubscribed(ctx, userID, chatID, false)
}

// SubscribedChats возвращает чаты для рассылки вердиктов.
func (s *OperatorService) SubscribedChats(ctx context.Context) ([]int64, error) {
	operators, err := s.repo.Subscribed(ctx)
	if err != nil {
		return nil, err
	}
	chats := make([]int64, 0, len(operators))
	for _, o := range operators {
		chats = append(chats, o.ChatID)
	}
	return chats, nil
}
