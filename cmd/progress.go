package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kokou-stm/kalanso/internal/mastery"
	"github.com/kokou-stm/kalanso/internal/store"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show unit progress and retry countdowns",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		watch, _ := cmd.Flags().GetBool("watch")

		e, err := setup(cmd, !watch)
		if err != nil {
			return err
		}
		defer e.Close()

		repo := e.store.ProgressRepo()
		out := cmd.OutOrStdout()
		if !watch {
			return printProgress(ctx, out, repo, e.cfg.Learner, time.Now())
		}

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			// Clear the terminal and redraw from the top.
			fmt.Fprint(out, "\033[H\033[2J")
			if err := printProgress(ctx, out, repo, e.cfg.Learner, time.Now()); err != nil {
				return err
			}
			fmt.Fprintln(out, "\nRefreshing every second. Ctrl+C to stop.")
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func printProgress(ctx context.Context, out io.Writer, repo store.ProgressRepo, learner string, now time.Time) error {
	records, err := repo.List(ctx, learner)
	if err != nil {
		return fmt.Errorf("list progress: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "No progress recorded for %s yet.\n", learner)
		return nil
	}

	fmt.Fprintf(out, "Progress for %s\n", learner)
	fmt.Fprintln(out, strings.Repeat("─", 84))
	fmt.Fprintf(out, "%-16s  %-16s  %-9s  %6s  %6s  %8s  %s\n",
		"Unit", "Assessment", "Status", "Last", "Best", "Attempts", "Retry")
	fmt.Fprintln(out, strings.Repeat("─", 84))
	for _, p := range records {
		fmt.Fprintf(out, "%-16s  %-16s  %-9s  %5.1f%%  %5.1f%%  %8d  %s\n",
			truncate(p.UnitID, 16), truncate(p.AssessmentID, 16), p.Status,
			p.MasteryScore, p.BestScore, p.Attempts, retryLabel(p, now))
	}
	return nil
}

func retryLabel(p store.Progress, now time.Time) string {
	if mastery.Status(p.Status) == mastery.StatusMastered {
		return "-"
	}
	if p.RetryAvailableAt == nil || !now.Before(*p.RetryAvailableAt) {
		return "available"
	}
	return "in " + mastery.FormatCountdown(p.RetryAvailableAt.Sub(now))
}

func init() {
	progressCmd.Flags().BoolP("watch", "w", false, "Keep refreshing the retry countdown")
}
