package app

import (
	"context"
	"sync"

	"lid-inspector/internal/domain/entity"
)

// WorkQueue FIFO между наблюдателем и единственным обработчиком.
// Очередь владеет эпохой: DrainAndReset увеличивает её атомарно с очисткой,
// а Pop штампует запись эпохой на момент извлечения.
type WorkQueue struct {
	mu     sync.Mutex
	items  []*entity.ImageRecord
	queued map[string]struct{}
	epoch  uint64
	ready  chan struct{}
}

func NewWorkQueue() *WorkQueue {
	return &WorkQueue{
		queued: make(map[string]struct{}),
		ready:  make(chan struct{}, 1),
	}
}

// Push добавляет запись в конец очереди. Повтор имени, уже ждущего в очереди, отбрасывается.
func (q *WorkQueue) Push(record *entity.ImageRecord) bool {
	q.mu.Lock()
	if _, dup := q.queued[record.Name]; dup {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, record)
	q.queued[record.Name] = struct{}{}
	q.mu.Unlock()

	q.notify()
	return true
}

// Pop блокируется до появления записи или отмены контекста.
func (q *WorkQueue) Pop(ctx context.Context) (*entity.ImageRecord, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			record := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			delete(q.queued, record.Name)
			record.Epoch = q.epoch
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				q.notify()
			}
			return record, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.ready:
		}
	}
}

// DrainAndReset очищает очередь и начинает новую эпоху.
// Возвращает снятые записи и номер новой эпохи.
func (q *WorkQueue) DrainAndReset() ([]*entity.ImageRecord, uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.items
	q.items = nil
	q.queued = make(map[string]struct{})
	q.epoch++
	return drained, q.epoch
}

// Epoch текущая эпоха.
func (q *WorkQueue) Epoch() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.epoch
}

func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *WorkQueue) notify() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
