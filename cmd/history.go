package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/infrastructure/storage"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Показать последние вердикты из журнала",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if limit <= 0 {
				return fmt.Errorf("limit must be positive, got %d", limit)
			}
			journal, err := storage.OpenJournal(cmd.Context(), cfg.Storage.StateDir)
			if err != nil {
				return err
			}
			defer journal.Close()

			entries, err := journal.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Journal is empty")
				return nil
			}
			fmt.Fprintln(out, renderHistory(entries))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func renderHistory(entries []entity.JournalEntry) string {
	headers := []string{"Time", "File", "Verdict", "Conf", "Level", "Attempts", "Epoch", "Reason"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		verdict := string(e.Verdict)
		if e.State == entity.StateFailed {
			verdict = "FAILED"
		}
		level := strconv.Itoa(e.Strictness)
		if e.NoBrand {
			level += " nb"
		}
		rows = append(rows, []string{
			e.DecidedAt.Local().Format(time.DateTime),
			e.File,
			verdict,
			strconv.Itoa(e.Confidence),
			level,
			strconv.Itoa(e.Attempts),
			strconv.FormatUint(e.Epoch, 10),
			truncate(e.Reason, 60),
		})
	}
	return renderTable(headers, rows, aligns)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
