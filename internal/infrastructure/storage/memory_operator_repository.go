package storage

import (
	"context"
	"sort"
	"sync"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

// MemoryOperatorRepository in-memory хранилище операторов.
// Наружу отдаются только копии, поэтому читатели не гоняются с писателями.
type MemoryOperatorRepository struct {
	mu        sync.RWMutex
	operators map[int64]*entity.Operator
}

// NewMemoryOperatorRepository создаёт новое in-memory хранилище
func NewMemoryOperatorRepository() *MemoryOperatorRepository {
	return &MemoryOperatorRepository{
		operators: make(map[int64]*entity.Operator),
	}
}

// Get возвращает оператора по ID, создаёт нового если не найден
func (r *MemoryOperatorRepository) Get(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	r.mu.RLock()
	operator, exists := r.operators[userID]
	if exists {
		cp := *operator
		r.mu.RUnlock()
		return &cp, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.lookup(userID, chatID)
	return &cp, nil
}

// Save сохраняет копию оператора
func (r *MemoryOperatorRepository) Save(ctx context.Context, operator *entity.Operator) error {
	cp := *operator
	r.mu.Lock()
	r.operators[cp.ID] = &cp
	r.mu.Unlock()

	return nil
}

// SetSubscribed меняет подписку под блокировкой хранилища
func (r *MemoryOperatorRepository) SetSubscribed(ctx context.Context, userID, chatID int64, on bool) (*entity.Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	operator := r.lookup(userID, chatID)
	operator.ChatID = chatID
	operator.SetSubscribed(on)
	cp := *operator
	return &cp, nil
}

// Subscribed возвращает копии подписанных операторов в порядке ID
func (r *MemoryOperatorRepository) Subscribed(ctx context.Context) ([]*entity.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.Operator, 0, len(r.operators))
	for _, o := range r.operators {
		if o.Subscribed {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// lookup вызывается под r.mu на запись.
func (r *MemoryOperatorRepository) lookup(userID, chatID int64) *entity.Operator {
	operator, exists := r.operators[userID]
	if !exists {
		operator = entity.NewOperator(userID, chatID)
		r.operators[userID] = operator
	}
	return operator
}

// Проверка реализации интерфейса
var _ port.OperatorRepository = (*MemoryOperatorRepository)(nil)
