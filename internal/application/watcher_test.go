package app

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lid-inspector/internal/domain/entity"
)

func newTestWatcher(t *testing.T, dir string) (*Watcher, *WorkQueue, *recordingPresenter) {
	t.Helper()
	gate := NewStabilityGate(30 * time.Minute)
	gate.sleep = noSleep
	queue := NewWorkQueue()
	presenter := &recordingPresenter{}
	w := NewWatcher(WatcherConfig{Dir: dir, Interval: time.Hour}, gate, queue, presenter, nil)
	return w, queue, presenter
}

func popNames(t *testing.T, q *WorkQueue) []string {
	t.Helper()
	var names []string
	for q.Len() > 0 {
		r, err := q.Pop(context.Background())
		require.NoError(t, err)
		names = append(names, r.Name)
	}
	return names
}

func TestWatcher_QueuesInNumericOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"3.jpg", "10.png", "1.jpg", "2.JPEG", "notes.txt"} {
		writeImage(t, dir, name)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "4.jpg"), 0o755))

	w, queue, presenter := newTestWatcher(t, dir)
	n, err := w.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []string{"1.jpg", "2.JPEG", "3.jpg", "10.png"}, presenter.discovered)
	require.Equal(t, []string{"1.jpg", "2.JPEG", "3.jpg", "10.png"}, popNames(t, queue))
	require.Equal(t, 4, w.Processed())
}

func TestWatcher_DoesNotRequeueProcessed(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "1.jpg")
	w, queue, _ := newTestWatcher(t, dir)

	n, err := w.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	popNames(t, queue)

	n, err = w.Scan(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, queue.Len())
}

func TestWatcher_ReconsidersUnstableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.jpg")
	require.NoError(t, os.WriteFile(path, []byte("partial"), 0o644))

	w, queue, _ := newTestWatcher(t, dir)
	n, err := w.Scan(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, w.Processed())

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	n, err = w.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"1.jpg"}, popNames(t, queue))
}

func TestWatcher_ListErrorIsDiscoveryIO(t *testing.T) {
	w, _, _ := newTestWatcher(t, t.TempDir())
	w.readDir = func(string) ([]fs.DirEntry, error) {
		return nil, errors.New("stale nfs handle")
	}

	_, err := w.Scan(context.Background())
	require.ErrorIs(t, err, entity.ErrDiscoveryIO)
}

func TestWatcher_ResetAllowsRescan(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "1.jpg")
	writeImage(t, dir, "2.jpg")
	w, queue, _ := newTestWatcher(t, dir)

	_, err := w.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, queue.Len())

	epoch := w.reset()
	require.Equal(t, uint64(1), epoch)
	require.Zero(t, queue.Len())
	require.Zero(t, w.Processed())

	n, err := w.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestWatcher_RunScansOnTrigger(t *testing.T) {
	dir := t.TempDir()
	gate := NewStabilityGate(30 * time.Minute)
	gate.sleep = noSleep
	queue := NewWorkQueue()
	trigger := make(chan struct{}, 1)
	w := NewWatcher(WatcherConfig{Dir: dir, Interval: time.Hour, Trigger: trigger}, gate, queue, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeImage(t, dir, "1.jpg")
	trigger <- struct{}{}

	require.Eventually(t, func() bool { return queue.Len() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
