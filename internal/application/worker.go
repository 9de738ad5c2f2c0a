package app

import (
	"context"
	"log/slog"
	"time"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 8 * time.Second
)

// RetryPolicy ограниченные повторы с экспоненциальной задержкой.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy: 3 попытки, 1s, 2s, не более 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultRetryAttempts,
		BaseDelay:   defaultRetryBaseDelay,
		MaxDelay:    defaultRetryMaxDelay,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Delay задержка после неудачной попытки attempt (с единицы):
// 1 -> base, 2 -> base*2, 3 -> base*4, ... с потолком MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if p.MaxDelay > 0 && delay > p.MaxDelay/2 {
			delay = p.MaxDelay
			break
		}
		delay *= 2
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Worker единственный потребитель очереди: подготовка, классификация, вердикт.
type Worker struct {
	queue      *WorkQueue
	session    *SessionState
	analyzer   *Analyzer
	dispatcher *Dispatcher
	logger     *slog.Logger

	now func() time.Time
}

// NewWorker создаёт обработчик.
func NewWorker(queue *WorkQueue, session *SessionState, preprocessor port.Preprocessor, classifier port.Classifier, dispatcher *Dispatcher, retry RetryPolicy, logger *slog.Logger) *Worker {
	logger = loggerOr(logger)
	return &Worker{
		queue:      queue,
		session:    session,
		analyzer:   NewAnalyzer(preprocessor, classifier, retry, logger),
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Run обрабатывает записи по одной до отмены контекста.
func (w *Worker) Run(ctx context.Context) error {
	for {
		record, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		w.Process(ctx, record)
	}
}

// Process доводит одну запись до терминального состояния и передаёт диспетчеру.
func (w *Worker) Process(ctx context.Context, record *entity.ImageRecord) {
	record.State = entity.StateAnalyzing
	record.Settings = w.session.Snapshot()

	if !w.dispatcher.BeginAnalysis(record) {
		w.logger.Debug("skipping record from previous epoch", "file", record.Name, "epoch", record.Epoch)
		return
	}

	w.logger.Info("analyzing image",
		"file", record.Name,
		"strictness", record.Settings.Strictness,
		"no_brand", record.Settings.NoBrandMode,
	)

	result, err := w.analyzer.Analyze(ctx, record)
	if ctx.Err() != nil {
		w.logger.Info("analysis interrupted by shutdown", "file", record.Name)
		return
	}
	if err != nil {
		record.Fail(err, w.now())
		w.logger.Debug("image failed", "file", record.Name, "attempts", record.Attempts)
	} else {
		record.Decide(result, w.now())
		w.logger.Debug("image decided", "file", record.Name, "verdict", record.Verdict)
	}
	w.dispatcher.Apply(record)
}
