package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kokou-stm/kalanso/internal/llm"
	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work with responses waiting for coach review",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending review items",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")
		all, _ := cmd.Flags().GetBool("all")

		e, err := setup(cmd, true)
		if err != nil {
			return err
		}
		defer e.Close()

		learner := e.cfg.Learner
		if all {
			learner = ""
		}
		repo := e.store.ReviewRepo()
		items, err := repo.Pending(ctx, learner, limit)
		if err != nil {
			return fmt.Errorf("list review items: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "No responses awaiting review.")
			return nil
		}

		fmt.Fprintf(out, "%-36s  %-10s  %-16s  %-10s  %-13s  %6s  %s\n",
			"ID", "Learner", "Assessment", "Question", "Type", "Max", "Draft")
		fmt.Fprintln(out, strings.Repeat("─", 110))
		for _, it := range items {
			drafts, err := repo.Drafts(ctx, it.ID)
			if err != nil {
				return fmt.Errorf("load drafts for %s: %w", it.ID, err)
			}
			draft := "-"
			if len(drafts) > 0 {
				draft = fmt.Sprintf("%g pts (%s)", drafts[0].SuggestedPoints, drafts[0].Model)
			}
			fmt.Fprintf(out, "%-36s  %-10s  %-16s  %-10s  %-13s  %6g  %s\n",
				it.ID, truncate(it.LearnerID, 10), truncate(it.AssessmentID, 16),
				truncate(it.QuestionID, 10), it.QuestionType, it.MaxPoints, draft)
		}
		return nil
	},
}

var reviewDraftCmd = &cobra.Command{
	Use:   "draft <id>",
	Short: "Ask the configured LLM for an advisory review note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var def *question.Assessment
		if path, _ := cmd.Flags().GetString("assessment"); path != "" {
			var err error
			if def, err = question.Load(path); err != nil {
				return err
			}
		}

		e, err := setup(cmd, true)
		if err != nil {
			return err
		}
		defer e.Close()

		provider, err := llm.NewProvider(ctx, e.cfg.LLM, e.store.EventRepo(), e.log)
		if err != nil {
			return fmt.Errorf("LLM provider: %w", err)
		}
		svc := review.NewService(provider, e.store.ReviewRepo(), review.Options{
			ProviderName: e.cfg.LLM.Provider,
			Timeout:      e.cfg.LLM.Timeout,
			Logger:       e.log,
		})
		defer svc.Close()

		d, err := svc.DraftByID(ctx, args[0], review.LookupIn(def))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Draft %s (%s, %s)\n", d.ID, d.Provider, d.Model)
		fmt.Fprintln(out, strings.Repeat("─", 60))
		fmt.Fprintln(out, d.Summary)
		fmt.Fprintf(out, "\nSuggested points: %g\n", d.SuggestedPoints)

		var rubric []review.RubricCheck
		if err := json.Unmarshal(d.Rubric, &rubric); err == nil && len(rubric) > 0 {
			fmt.Fprintln(out, "\nRubric")
			for _, r := range rubric {
				mark := "✗"
				if r.Met {
					mark = "✓"
				}
				fmt.Fprintf(out, "  %s %s", mark, r.Criterion)
				if r.Note != "" {
					fmt.Fprintf(out, ": %s", r.Note)
				}
				fmt.Fprintln(out)
			}
		}
		fmt.Fprintln(out, "\nDrafts are advisory; the response score is unchanged.")
		return nil
	},
}

func init() {
	reviewListCmd.Flags().IntP("limit", "n", 50, "Number of items to show")
	reviewListCmd.Flags().Bool("all", false, "Show items for every learner")
	reviewDraftCmd.Flags().StringP("assessment", "a", "", "Assessment file the item came from (adds the prompt and rubric)")

	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewDraftCmd)
}
