package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

const defaultEventBuffer = 64

type eventKind int

const (
	eventDiscovered eventKind = iota
	eventDecided
	eventCounters
)

func (k eventKind) String() string {
	switch k {
	case eventDiscovered:
		return "discovered"
	case eventDecided:
		return "decided"
	case eventCounters:
		return "counters"
	default:
		return "unknown"
	}
}

type event struct {
	kind     eventKind
	record   entity.ImageRecord
	counters entity.Counters
}

// Bridge доставляет уведомления презентерам. У каждого презентера своя
// очередь и своя горутина, поэтому медленный презентер не задерживает остальных.
// Публикация никогда не блокирует: при переполнении очереди событие теряется.
// Исключение: port.DurablePresenter получает все терминальные записи.
type Bridge struct {
	buffer int
	logger *slog.Logger

	mu      sync.Mutex
	subs    []*subscription
	running context.Context
	wg      sync.WaitGroup

	dropped atomic.Uint64
}

// NewBridge создаёт мост с очередью на buffer событий для каждого презентера.
func NewBridge(buffer int, logger *slog.Logger, presenters ...port.Presenter) *Bridge {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	b := &Bridge{
		buffer: buffer,
		logger: loggerOr(logger),
	}
	for _, p := range presenters {
		b.Attach(p)
	}
	return b
}

// Attach подключает ещё один презентер. Подключённый во время Run
// презентер сразу получает свою горутину.
func (b *Bridge) Attach(p port.Presenter) {
	if p == nil {
		return
	}
	sub := newSubscription(p, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	if b.running != nil {
		b.start(b.running, sub)
	}
}

func (b *Bridge) OnDiscovered(record entity.ImageRecord) {
	b.publish(event{kind: eventDiscovered, record: record})
}

func (b *Bridge) OnDecided(record entity.ImageRecord) {
	b.publish(event{kind: eventDecided, record: record})
}

func (b *Bridge) OnCountersChanged(counters entity.Counters) {
	b.publish(event{kind: eventCounters, counters: counters})
}

// Dropped число потерянных событий по всем презентерам.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// Run доставляет события до отмены контекста и ждёт горутины презентеров.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	b.running = ctx
	for _, sub := range b.subs {
		b.start(ctx, sub)
	}
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	b.running = nil
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}

// start вызывается под b.mu.
func (b *Bridge) start(ctx context.Context, sub *subscription) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.serve(ctx, sub)
	}()
}

func (b *Bridge) serve(ctx context.Context, sub *subscription) {
	for {
		select {
		case <-ctx.Done():
			// Недоставленные терминальные записи гарантированного презентера.
			for _, ev := range sub.take() {
				if sub.durable && ev.kind == eventDecided {
					b.deliverOne(sub.presenter, ev)
				}
			}
			return
		case <-sub.wake:
			for _, ev := range sub.take() {
				b.deliverOne(sub.presenter, ev)
			}
		}
	}
}

func (b *Bridge) publish(ev event) {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()

	for _, sub := range subs {
		if sub.push(ev) {
			continue
		}
		n := b.dropped.Add(1)
		b.logger.Warn("presentation event dropped",
			"kind", ev.kind,
			"file", ev.record.Name,
			"presenter", fmt.Sprintf("%T", sub.presenter),
			"dropped_total", n,
		)
	}
}

func (b *Bridge) deliverOne(p port.Presenter, ev event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("presenter panicked", "kind", ev.kind, "panic", r)
		}
	}()
	switch ev.kind {
	case eventDiscovered:
		p.OnDiscovered(ev.record)
	case eventDecided:
		p.OnDecided(ev.record)
	case eventCounters:
		p.OnCountersChanged(ev.counters)
	}
}

// subscription очередь событий одного презентера.
type subscription struct {
	presenter port.Presenter
	durable   bool
	limit     int

	mu      sync.Mutex
	pending []event
	wake    chan struct{}
}

func newSubscription(p port.Presenter, limit int) *subscription {
	sub := &subscription{
		presenter: p,
		limit:     limit,
		wake:      make(chan struct{}, 1),
	}
	if d, ok := p.(port.DurablePresenter); ok {
		sub.durable = d.Durable()
	}
	return sub
}

// push ставит событие в очередь; false — событие потеряно.
func (s *subscription) push(ev event) bool {
	s.mu.Lock()
	if len(s.pending) >= s.limit && !(s.durable && ev.kind == eventDecided) {
		s.mu.Unlock()
		return false
	}
	s.pending = append(s.pending, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *subscription) take() []event {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.pending
	s.pending = nil
	return batch
}

type nopPresenter struct{}

func (nopPresenter) OnDiscovered(entity.ImageRecord)   {}
func (nopPresenter) OnDecided(entity.ImageRecord)      {}
func (nopPresenter) OnCountersChanged(entity.Counters) {}
