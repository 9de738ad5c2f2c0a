package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"lid-inspector/internal/container"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Запустить наблюдение за каталогом и инспекцию",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireClassifier(); err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another inspector is already running (lock %s)", cfg.LockPath())
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn("failed to release lock", "error", err)
				}
			}()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			c, err := container.New(signalCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					logger.Warn("close resources", "error", err)
				}
			}()

			logger.Info("lid inspector started",
				"dir", cfg.Watch.Dir,
				"strictness", cfg.Session.Strictness,
				"no_brand", cfg.Session.NoBrandMode,
				"modbus", cfg.Modbus.Enabled,
				"gpio", cfg.GPIO.Enabled,
				"telegram", cfg.Telegram.Enabled,
			)
			err = c.Run(signalCtx)
			logger.Info("lid inspector stopped")
			if err != nil && signalCtx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
