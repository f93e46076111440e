package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kokou-stm/kalanso/internal/answer"
	"github.com/kokou-stm/kalanso/internal/assessment"
	"github.com/kokou-stm/kalanso/internal/mastery"
	"github.com/kokou-stm/kalanso/internal/progress"
	"github.com/kokou-stm/kalanso/internal/question"
)

type gradeReport struct {
	Result           *assessment.Result `json:"result"`
	RetryAvailableAt *time.Time         `json:"retryAvailableAt,omitempty"`
	Status           mastery.Status     `json:"status"`
	AttemptID        string             `json:"attemptId,omitempty"`
	PendingReviewIDs []string           `json:"pendingReviewIds,omitempty"`
	NextUnit         string             `json:"nextUnit,omitempty"`
}

var gradeCmd = &cobra.Command{
	Use:   "grade <assessment> <answers>",
	Short: "Grade a scripted answers file without the TUI",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		asJSON, _ := cmd.Flags().GetBool("json")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		def, err := question.Load(args[0])
		if err != nil {
			return err
		}
		script, err := answer.LoadScript(args[1])
		if err != nil {
			return err
		}

		e, err := setup(cmd, true)
		if err != nil {
			return err
		}
		defer e.Close()

		m, err := assessment.New(def, assessment.Options{
			Gate:                    e.cfg.Gate(),
			DefaultMasteryThreshold: e.cfg.MasteryThreshold,
			Logger:                  e.log,
		})
		if err != nil {
			return err
		}
		if err := assessment.Replay(m, script, time.Now()); err != nil {
			return err
		}

		res, d := m.Result(), m.Decision()
		report := gradeReport{Result: res, RetryAvailableAt: d.RetryAvailableAt, Status: mastery.StatusFor(*d)}

		if !dryRun {
			rec := progress.NewRecorder(progress.ReposFrom(e.store), progress.Options{
				LearnerID: e.cfg.Learner,
				Logger:    e.log,
			})
			saved, err := rec.Save(ctx, assessment.Completion{Assessment: def, Result: *res, Decision: *d})
			rec.Close()
			if err != nil {
				// Grading stands even when the attempt cannot be stored.
				e.log.Error("persist completion", zap.Error(err))
				fmt.Fprintln(os.Stderr, "warning: attempt not saved:", err)
			} else {
				report.AttemptID = saved.Attempt.ID
				report.Status = mastery.Status(saved.Progress.Status)
				for _, it := range saved.ReviewItems {
					report.PendingReviewIDs = append(report.PendingReviewIDs, it.ID)
				}
				if saved.NextUnit != nil {
					report.NextUnit = saved.NextUnit.Title
				}
			}
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printReport(cmd, def, report)
		return nil
	},
}

func printReport(cmd *cobra.Command, def *question.Assessment, r gradeReport) {
	out := cmd.OutOrStdout()
	res := r.Result

	fmt.Fprintf(out, "%s (%s)\n", def.Title, def.ID)
	fmt.Fprintln(out, strings.Repeat("─", 64))
	fmt.Fprintf(out, "%-16s  %-24s  %8s  %s\n", "Question", "Type", "Points", "Result")
	fmt.Fprintln(out, strings.Repeat("─", 64))
	for _, resp := range res.Responses {
		b := resp.Common()
		mark := "✗"
		switch {
		case b.Pending():
			mark = "review"
		case b.IsCorrect:
			mark = "✓"
		case b.PointsEarned > 0:
			mark = "partial"
		}
		fmt.Fprintf(out, "%-16s  %-24s  %8s  %s\n",
			truncate(b.QuestionID, 16), b.QuestionType,
			fmt.Sprintf("%g/%g", b.PointsEarned, b.MaxPoints), mark)
	}
	fmt.Fprintln(out, strings.Repeat("─", 64))

	fmt.Fprintf(out, "Score:     %.1f%% (%g of %g points, mastery at %g%%)\n",
		res.Score, res.EarnedPoints, res.TotalPoints, res.MasteryThreshold)
	fmt.Fprintf(out, "Correct:   %d of %d\n", res.CorrectAnswers, res.TotalQuestions)
	fmt.Fprintf(out, "Passed:    %v\n", res.Passed)
	fmt.Fprintf(out, "Mastered:  %v\n", res.Mastered)
	fmt.Fprintf(out, "Status:    %s\n", r.Status)
	if r.RetryAvailableAt != nil {
		fmt.Fprintf(out, "Retry at:  %s\n", r.RetryAvailableAt.Local().Format("2006-01-02 15:04:05"))
	}
	if n := len(r.PendingReviewIDs); n > 0 {
		fmt.Fprintf(out, "Review:    %d response(s) queued for a coach\n", n)
	}
	if r.NextUnit != "" {
		fmt.Fprintf(out, "Next unit: %s\n", r.NextUnit)
	}
}

func init() {
	gradeCmd.Flags().Bool("json", false, "Print the result as JSON")
	gradeCmd.Flags().Bool("dry-run", false, "Do not store the attempt")
}
