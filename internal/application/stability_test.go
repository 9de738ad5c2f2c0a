package app

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeInfo struct {
	size    int64
	modTime time.Time
}

func (f fakeInfo) Name() string       { return "x.jpg" }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() fs.FileMode  { return 0o644 }
func (f fakeInfo) ModTime() time.Time { return f.modTime }
func (f fakeInfo) IsDir() bool        { return false }
func (f fakeInfo) Sys() any           { return nil }

func newTestGate(settle time.Duration) *StabilityGate {
	g := NewStabilityGate(settle)
	g.sleep = noSleep
	return g
}

func TestStabilityGate_StableFile(t *testing.T) {
	path := writeImage(t, t.TempDir(), "1.jpg")
	require.True(t, newTestGate(time.Second).IsStable(context.Background(), path))
}

func TestStabilityGate_FreshMtimeNotStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.jpg")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	require.False(t, newTestGate(time.Hour).IsStable(context.Background(), path))
}

func TestStabilityGate_GrowingFileNotStable(t *testing.T) {
	g := newTestGate(time.Second)
	old := time.Now().Add(-time.Hour)
	calls := 0
	g.stat = func(string) (fs.FileInfo, error) {
		calls++
		return fakeInfo{size: int64(100 * calls), modTime: old}, nil
	}
	require.False(t, g.IsStable(context.Background(), "/in/1.jpg"))
	require.Equal(t, 2, calls)
}

func TestStabilityGate_VanishedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "1.jpg")
	g := newTestGate(time.Second)
	g.sleep = func(context.Context, time.Duration) error {
		return os.Remove(path)
	}
	require.False(t, g.IsStable(context.Background(), path))
	require.False(t, g.IsStable(context.Background(), filepath.Join(dir, "missing.jpg")))
}

func TestStabilityGate_EmptyFileNotStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.jpg")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	require.False(t, newTestGate(time.Second).IsStable(context.Background(), path))
}

func TestStabilityGate_FilterKeepsOrderAndSleepsOnce(t *testing.T) {
	dir := t.TempDir()
	a := writeImage(t, dir, "2.jpg")
	b := writeImage(t, dir, "1.jpg")
	g := newTestGate(time.Second)
	sleeps := 0
	g.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}
	require.Equal(t, []string{a, b}, g.Filter(context.Background(), []string{a, filepath.Join(dir, "nope.jpg"), b}))
	require.Equal(t, 1, sleeps)
}

func TestStabilityGate_CanceledContext(t *testing.T) {
	path := writeImage(t, t.TempDir(), "1.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, NewStabilityGate(time.Second).IsStable(ctx, path))
}
