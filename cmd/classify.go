package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	app "lid-inspector/internal/application"
	"lid-inspector/internal/container"
	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var strictness int
	var noBrand bool

	cmd := &cobra.Command{
		Use:   "classify <image>",
		Short: "Проверить один снимок без запуска наблюдения",
		Args:  cobra.ExactArgs(1),
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
			if !cmd.Flags().Changed("strictness") {
				strictness = cfg.Session.Strictness
			}
			if !cmd.Flags().Changed("no-brand") {
				noBrand = cfg.Session.NoBrandMode
			}
			if err := entity.ValidateStrictness(strictness); err != nil {
				return err
			}

			cls, err := container.NewClassifier(cfg, logger)
			if err != nil {
				return err
			}
			base, ceiling := cfg.RetryDelays()
			retry := app.RetryPolicy{MaxAttempts: cfg.Retry.MaxAttempts, BaseDelay: base, MaxDelay: ceiling}

			settings := entity.Settings{Strictness: strictness, NoBrandMode: noBrand}
			result, attempts, err := classifyOnce(cmd.Context(), args[0], settings, retry, cls, logger)
			printClassification(cmd.OutOrStdout(), args[0], result, attempts, err)
			return err
		},
	}

	cmd.Flags().IntVarP(&strictness, "strictness", "s", entity.DefaultStrictness, "Strictness level 1..5")
	cmd.Flags().BoolVar(&noBrand, "no-brand", false, "Inspect lids without brand markings")
	return cmd
}

// classifyOnce проверяет один файл тем же анализатором, что и конвейер.
func classifyOnce(ctx context.Context, path string, settings entity.Settings, retry app.RetryPolicy, cls port.Classifier, logger *slog.Logger) (entity.Classification, int, error) {
	record := entity.NewImageRecord(filepath.Dir(path), filepath.Base(path), time.Now())
	record.Settings = settings

	analyzer := app.NewAnalyzer(container.NewPreprocessor(), cls, retry, logger)
	result, err := analyzer.Analyze(ctx, record)
	return result, record.Attempts, err
}

func printClassification(w io.Writer, path string, result entity.Classification, attempts int, err error) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if err != nil {
		fmt.Fprintf(w, "%s %s: %v\n", yellow("FAILED"), path, err)
		return
	}
	verdict := string(result.Verdict)
	switch result.Verdict {
	case entity.VerdictAccept:
		verdict = green(verdict)
	case entity.VerdictReject:
		verdict = red(verdict)
	}
	fmt.Fprintf(w, "%s %s (confidence %d%%, attempts %d)\n", verdict, path, result.Confidence, attempts)
	if result.Reason != "" {
		fmt.Fprintf(w, "  %s\n", result.Reason)
	}
}
