package container

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lid-inspector/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Watch.Dir = t.TempDir()
	cfg.Storage.StateDir = t.TempDir()
	cfg.Classifier.APIKey = "sk-test"
	cfg.Modbus.Enabled = false
	return &cfg
}

func TestNew_WiresPipeline(t *testing.T) {
	cfg := testConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NotNil(t, c.Pipeline)
	require.NotNil(t, c.Journal)
	require.NotNil(t, c.Notifier)
	require.Nil(t, c.Modbus)
	require.Nil(t, c.Bot)
	require.Equal(t, 3, c.Pipeline.Status().Settings.Strictness)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Run(ctx))
}

func TestNew_FailsWithoutAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Classifier.APIKey = ""
	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
