package app

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lid-inspector/internal/domain/entity"
)

type panickingPresenter struct{ nopPresenter }

func (panickingPresenter) OnDecided(entity.ImageRecord) { panic("display gone") }

func TestBridge_DeliversInOrder(t *testing.T) {
	presenter := &recordingPresenter{}
	b := NewBridge(8, nil, panickingPresenter{}, presenter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()

	b.OnDiscovered(entity.ImageRecord{Name: "1.jpg"})
	b.OnDecided(entity.ImageRecord{Name: "1.jpg"})
	b.OnDecided(entity.ImageRecord{Name: "2.jpg"})
	b.OnCountersChanged(entity.Counters{Accepted: 2})

	require.Eventually(t, func() bool {
		presenter.mu.Lock()
		defer presenter.mu.Unlock()
		return len(presenter.counters) == 1
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, []string{"1.jpg"}, presenter.discovered)
	require.Equal(t, []string{"1.jpg", "2.jpg"}, presenter.decidedNames())
	require.Zero(t, b.Dropped())
}

func TestBridge_PublishNeverBlocks(t *testing.T) {
	b := NewBridge(2, nil, &recordingPresenter{})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.OnCountersChanged(entity.Counters{Accepted: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked without a consumer")
	}
	require.Equal(t, uint64(8), b.Dropped())
}

// stalledPresenter блокирует первое уведомление о вердикте до закрытия release.
type stalledPresenter struct {
	recordingPresenter
	durable bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newStalledPresenter(durable bool) *stalledPresenter {
	return &stalledPresenter{
		durable: durable,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (p *stalledPresenter) OnDecided(r entity.ImageRecord) {
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	p.recordingPresenter.OnDecided(r)
}

func (p *stalledPresenter) Durable() bool { return p.durable }

func TestBridge_SlowPresenterDoesNotStallOthers(t *testing.T) {
	slow := newStalledPresenter(false)
	fast := &recordingPresenter{}
	b := NewBridge(16, nil, slow, fast)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	for _, name := range []string{"1.jpg", "2.jpg", "3.jpg"} {
		b.OnDecided(entity.ImageRecord{Name: name, State: entity.StateDecided})
	}
	<-slow.entered

	require.Eventually(t, func() bool {
		return len(fast.decidedNames()) == 3
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, slow.decidedNames())

	close(slow.release)
	require.Eventually(t, func() bool {
		return len(slow.decidedNames()) == 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.Zero(t, b.Dropped())
}

func TestBridge_DurablePresenterKeepsTerminalRecords(t *testing.T) {
	journal := newStalledPresenter(true)
	b := NewBridge(1, nil, journal)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	b.OnDecided(entity.ImageRecord{Name: "1.jpg", State: entity.StateDecided})
	<-journal.entered

	names := []string{"1.jpg"}
	for i := 2; i <= 6; i++ {
		name := strconv.Itoa(i) + ".jpg"
		names = append(names, name)
		b.OnDecided(entity.ImageRecord{Name: name, State: entity.StateFailed})
	}
	b.OnCountersChanged(entity.Counters{Accepted: 1})
	b.OnDiscovered(entity.ImageRecord{Name: "7.jpg"})
	require.Equal(t, uint64(2), b.Dropped())

	close(journal.release)
	require.Eventually(t, func() bool {
		return len(journal.decidedNames()) == len(names)
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, names, journal.decidedNames())

	cancel()
	require.NoError(t, <-done)
}

func TestBridge_FlushesDurableRecordsOnShutdown(t *testing.T) {
	journal := &durableRecorder{}
	b := NewBridge(4, nil, journal)

	b.OnDecided(entity.ImageRecord{Name: "1.jpg", State: entity.StateDecided})
	b.OnCountersChanged(entity.Counters{Accepted: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, b.Run(ctx))
	require.Equal(t, []string{"1.jpg"}, journal.decidedNames())
}

type durableRecorder struct{ recordingPresenter }

func (*durableRecorder) Durable() bool { return true }
