package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

// PipelineConfig параметры конвейера инспекции.
type PipelineConfig struct {
	Dir          string
	PollInterval time.Duration
	Settle       time.Duration
	Trigger      <-chan struct{}
	Retry        RetryPolicy
	Settings     entity.Settings
	EventBuffer  int
}

// Pipeline координирует наблюдателя, обработчика и диспетчер и
// служит операторским интерфейсом (port.Controls).
type Pipeline struct {
	session    *SessionState
	queue      *WorkQueue
	watcher    *Watcher
	worker     *Worker
	dispatcher *Dispatcher
	bridge     *Bridge
	logger     *slog.Logger
}

// NewPipeline собирает конвейер. sink может быть nil (сигналы не выводятся).
func NewPipeline(cfg PipelineConfig, preprocessor port.Preprocessor, classifier port.Classifier, sink port.SignalSink, logger *slog.Logger, presenters ...port.Presenter) (*Pipeline, error) {
	logger = loggerOr(logger)

	session, err := NewSessionState(cfg.Settings)
	if err != nil {
		return nil, err
	}

	queue := NewWorkQueue()
	bridge := NewBridge(cfg.EventBuffer, logger.With("component", "bridge"), presenters...)
	dispatcher := NewDispatcher(sink, session, queue, bridge, logger.With("component", "dispatcher"))
	watcher := NewWatcher(WatcherConfig{
		Dir:      cfg.Dir,
		Interval: cfg.PollInterval,
		Trigger:  cfg.Trigger,
	}, NewStabilityGate(cfg.Settle), queue, bridge, logger.With("component", "watcher"))
	worker := NewWorker(queue, session, preprocessor, classifier, dispatcher, cfg.Retry, logger.With("component", "worker"))

	return &Pipeline{
		session:    session,
		queue:      queue,
		watcher:    watcher,
		worker:     worker,
		dispatcher: dispatcher,
		bridge:     bridge,
		logger:     logger,
	}, nil
}

// Attach подключает презентер (до Run).
func (p *Pipeline) Attach(presenter port.Presenter) {
	p.bridge.Attach(presenter)
}

// Run запускает мост, наблюдателя и обработчика и ждёт отмены контекста.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.dispatcher.release()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.bridge.Run(ctx) })
	g.Go(func() error { return p.watcher.Run(ctx) })
	g.Go(func() error { return p.worker.Run(ctx) })
	return g.Wait()
}

// SetStrictness меняет строгость для следующих записей.
func (p *Pipeline) SetStrictness(level int) error {
	if err := p.session.SetStrictness(level); err != nil {
		return err
	}
	p.logger.Info("strictness changed", "strictness", level)
	return nil
}

// SetNoBrandMode переключает режим без брендирования.
func (p *Pipeline) SetNoBrandMode(on bool) {
	p.session.SetNoBrandMode(on)
	p.logger.Info("no-brand mode changed", "no_brand", on)
}

// Reset очищает сессию. Результат, находящийся в работе, будет отброшен.
func (p *Pipeline) Reset(ctx context.Context) {
	epoch := p.dispatcher.reset(p.watcher.reset)
	p.logger.InfoContext(ctx, "session reset", "epoch", epoch)
}

// Status снимок состояния конвейера.
func (p *Pipeline) Status() entity.Status {
	return entity.Status{
		Settings:  p.session.Snapshot(),
		Counters:  p.session.Counters(),
		Signal:    p.dispatcher.Signal(),
		Epoch:     p.queue.Epoch(),
		Queued:    p.queue.Len(),
		Processed: p.watcher.Processed(),
		Last:      p.dispatcher.Last(),
	}
}

var _ port.Controls = (*Pipeline)(nil)
