package app

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

// WatcherConfig параметры опроса каталога.
type WatcherConfig struct {
	Dir      string
	Interval time.Duration
	// Trigger необязательный канал подсказок (fsnotify): внеочередной проход.
	Trigger <-chan struct{}
}

// Watcher периодически читает каталог и ставит стабильные новые файлы в очередь.
// Он единственный владелец ProcessedSet.
type Watcher struct {
	cfg       WatcherConfig
	gate      *StabilityGate
	queue     *WorkQueue
	processed *ProcessedSet
	presenter port.Presenter
	logger    *slog.Logger

	readDir func(string) ([]fs.DirEntry, error)
	now     func() time.Time

	// mu делает атомарными «добавить в набор + в очередь» и сброс.
	mu sync.Mutex
}

// NewWatcher создаёт наблюдателя каталога.
func NewWatcher(cfg WatcherConfig, gate *StabilityGate, queue *WorkQueue, presenter port.Presenter, logger *slog.Logger) *Watcher {
	if presenter == nil {
		presenter = nopPresenter{}
	}
	return &Watcher{
		cfg:       cfg,
		gate:      gate,
		queue:     queue,
		processed: NewProcessedSet(),
		presenter: presenter,
		logger:    loggerOr(logger),
		readDir:   os.ReadDir,
		now:       time.Now,
	}
}

// Run сканирует сразу и далее по таймеру; ошибки цикла не фатальны.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching directory", "dir", w.cfg.Dir, "interval", w.cfg.Interval)
	w.scanLogged(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.scanLogged(ctx)
		case <-w.cfg.Trigger:
			w.scanLogged(ctx)
		}
	}
}

func (w *Watcher) scanLogged(ctx context.Context) {
	queued, err := w.Scan(ctx)
	if err != nil {
		w.logger.Error("scan failed, retrying next cycle", "dir", w.cfg.Dir, "error", err)
		return
	}
	if queued > 0 {
		w.logger.Debug("scan queued images", "count", queued)
	}
}

// Scan выполняет один проход и возвращает число поставленных в очередь файлов.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	entries, err := w.readDir(w.cfg.Dir)
	if err != nil {
		return 0, entity.Wrap(entity.ErrDiscoveryIO, "list "+w.cfg.Dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !entity.IsImageName(e.Name()) || w.processed.Contains(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return 0, nil
	}
	names = Sequence(names)

	records := make([]*entity.ImageRecord, 0, len(names))
	paths := make([]string, 0, len(names))
	for _, name := range names {
		record := entity.NewImageRecord(w.cfg.Dir, name, w.now())
		record.State = entity.StateStabilizing
		records = append(records, record)
		paths = append(paths, record.Path)
	}

	stable := make(map[string]struct{}, len(paths))
	for _, path := range w.gate.Filter(ctx, paths) {
		stable[path] = struct{}{}
	}
	if ctx.Err() != nil {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	queued := 0
	for _, record := range records {
		if _, ok := stable[record.Path]; !ok {
			w.logger.Debug("file not stable yet", "file", record.Name)
			continue
		}
		if !w.processed.Add(record.Name) {
			continue
		}
		record.State = entity.StateQueued
		snapshot := *record
		if w.queue.Push(record) {
			queued++
			w.presenter.OnDiscovered(snapshot)
		}
	}
	return queued, nil
}

// reset очищает набор обработанных и очередь, возвращая новую эпоху.
func (w *Watcher) reset() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.processed.Reset()
	drained, epoch := w.queue.DrainAndReset()
	if len(drained) > 0 {
		w.logger.Info("dropped queued images on reset", "count", len(drained))
	}
	return epoch
}

// Processed число файлов в текущей сессии.
func (w *Watcher) Processed() int {
	return w.processed.Len()
}
