package fswatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Notifier превращает события файловой системы в подсказки для наблюдателя.
// Подсказки схлопываются: в канале не бывает больше одной ожидающей.
// Опрос каталога остаётся основным механизмом, Notifier лишь сокращает задержку.
type Notifier struct {
	dir     string
	watcher *fsnotify.Watcher
	hints   chan struct{}
	logger  *slog.Logger
}

// NewNotifier подписывается на изменения каталога.
func NewNotifier(dir string, logger *slog.Logger) (*Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Notifier{
		dir:     dir,
		watcher: w,
		hints:   make(chan struct{}, 1),
		logger:  logger,
	}, nil
}

// Hints канал подсказок для WatcherConfig.Trigger.
func (n *Notifier) Hints() <-chan struct{} {
	return n.hints
}

// Run пересылает события до отмены контекста и закрывает watcher.
func (n *Notifier) Run(ctx context.Context) error {
	defer n.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-n.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) {
				n.hint()
			}
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return nil
			}
			// Ошибка уведомлений не фатальна: опрос продолжит работу.
			n.logger.Warn("fsnotify error", "dir", n.dir, "error", err)
		}
	}
}

// Close прекращает наблюдение; повторный вызов безопасен.
func (n *Notifier) Close() error {
	return n.watcher.Close()
}

func (n *Notifier) hint() {
	select {
	case n.hints <- struct{}{}:
	default:
	}
}
