package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lid-inspector/internal/domain/entity"
)

type classifierFunc func(ctx context.Context, image entity.ImagePayload, settings entity.Settings) (string, error)

func (f classifierFunc) Classify(ctx context.Context, image entity.ImagePayload, settings entity.Settings) (string, error) {
	return f(ctx, image, settings)
}

type preprocessorFunc func(ctx context.Context, path string) (entity.ImagePayload, error)

func (f preprocessorFunc) Prepare(ctx context.Context, path string) (entity.ImagePayload, error) {
	return f(ctx, path)
}

// readFilePreprocessor отдаёт содержимое файла как есть.
var readFilePreprocessor = preprocessorFunc(func(_ context.Context, path string) (entity.ImagePayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.ImagePayload{}, err
	}
	return entity.ImagePayload{Data: data, MediaType: "image/jpeg"}, nil
})

// recordingSink запоминает состояния линий и ловит одновременный подъём обеих.
type recordingSink struct {
	mu         sync.Mutex
	accept     bool
	reject     bool
	calls      int
	violations int
}

func (s *recordingSink) SetAccept(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accept = on
	s.check()
	return nil
}

func (s *recordingSink) SetReject(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = on
	s.check()
	return nil
}

func (s *recordingSink) check() {
	s.calls++
	if s.accept && s.reject {
		s.violations++
	}
}

func (s *recordingSink) state() entity.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entity.Signal{Accept: s.accept, Reject: s.reject}
}

func (s *recordingSink) violationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violations
}

type recordingPresenter struct {
	mu         sync.Mutex
	discovered []string
	decided    []entity.ImageRecord
	counters   []entity.Counters
}

func (p *recordingPresenter) OnDiscovered(r entity.ImageRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discovered = append(p.discovered, r.Name)
}

func (p *recordingPresenter) OnDecided(r entity.ImageRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decided = append(p.decided, r)
}

func (p *recordingPresenter) OnCountersChanged(c entity.Counters) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counters = append(p.counters, c)
}

func (p *recordingPresenter) decidedNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.decided))
	for _, r := range p.decided {
		names = append(names, r.Name)
	}
	return names
}

// writeImage создаёт файл с mtime в прошлом, чтобы он сразу считался стабильным.
func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes-"+name), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	return path
}

func noSleep(context.Context, time.Duration) error { return nil }
