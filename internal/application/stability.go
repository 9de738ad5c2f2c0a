package app

import (
	"context"
	"io/fs"
	"os"
	"time"
)

// StabilityGate отсеивает файлы, которые ещё дописываются камерой или FTP.
type StabilityGate struct {
	settle time.Duration

	stat  func(string) (fs.FileInfo, error)
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewStabilityGate создаёт фильтр с заданным интервалом успокоения.
func NewStabilityGate(settle time.Duration) *StabilityGate {
	return &StabilityGate{
		settle: settle,
		stat:   os.Stat,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// IsStable сообщает, записан ли файл полностью.
// Исчезнувший файл — не ошибка, просто false.
func (g *StabilityGate) IsStable(ctx context.Context, path string) bool {
	return len(g.Filter(ctx, []string{path})) == 1
}

// Filter возвращает стабильные пути, сохраняя исходный порядок.
// Все кандидаты замеряются до и после одного общего сна, поэтому пачка
// после перезапуска проверяется за один интервал, а не за N.
func (g *StabilityGate) Filter(ctx context.Context, paths []string) []string {
	sizes := make(map[string]int64, len(paths))
	for _, path := range paths {
		info, err := g.stat(path)
		if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
			continue
		}
		sizes[path] = info.Size()
	}
	if len(sizes) == 0 {
		return nil
	}

	if err := g.sleep(ctx, g.settle); err != nil {
		return nil
	}

	now := g.now()
	stable := make([]string, 0, len(sizes))
	for _, path := range paths {
		size, ok := sizes[path]
		if !ok {
			continue
		}
		info, err := g.stat(path)
		if err != nil {
			continue
		}
		// Писатель мог замереть на границе блока: размер совпал, но mtime свежий.
		if info.Size() != size || now.Sub(info.ModTime()) < g.settle {
			continue
		}
		stable = append(stable, path)
	}
	return stable
}
