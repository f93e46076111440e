package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kokou-stm/kalanso/internal/answer"
	"github.com/kokou-stm/kalanso/internal/app"
	"github.com/kokou-stm/kalanso/internal/assessment"
	"github.com/kokou-stm/kalanso/internal/llm"
	"github.com/kokou-stm/kalanso/internal/mastery"
	"github.com/kokou-stm/kalanso/internal/progress"
	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/review"
	"github.com/kokou-stm/kalanso/internal/screens/take"
	"github.com/kokou-stm/kalanso/internal/store"
)

var takeCmd = &cobra.Command{
	Use:   "take <assessment>",
	Short: "Take an assessment in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		def, err := question.Load(args[0])
		if err != nil {
			return err
		}

		e, err := setup(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		if force, _ := cmd.Flags().GetBool("force"); !force {
			now := time.Now()
			until, err := progress.RetryLockedUntil(ctx, e.store.ProgressRepo(), e.cfg.Learner, def.Unit.ID, now)
			if err != nil {
				return fmt.Errorf("read progress: %w", err)
			}
			if until != nil {
				return fmt.Errorf("%w: next attempt in %s (use --force to override)",
					assessment.ErrRetryLocked, mastery.FormatCountdown(until.Sub(now)))
			}
		}

		// Review drafts are optional; the assessment works without an LLM.
		var drafts *review.Service
		provider, err := llm.NewProvider(ctx, e.cfg.LLM, e.store.EventRepo(), e.log)
		switch {
		case err == nil:
			drafts = review.NewService(provider, e.store.ReviewRepo(), review.Options{
				ProviderName: e.cfg.LLM.Provider,
				Timeout:      e.cfg.LLM.Timeout,
				Logger:       e.log,
			})
		case errors.Is(err, llm.ErrNotConfigured):
			e.log.Debug("review drafts disabled: no LLM provider")
		default:
			e.log.Warn("review drafts disabled", zap.Error(err))
		}

		nextUnit := make(chan *store.Unit, 1)
		recOpts := progress.Options{
			LearnerID: e.cfg.Learner,
			QueueSize: e.cfg.PersistQueue,
			Logger:    e.log,
			OnNextUnit: func(u *store.Unit) {
				select {
				case nextUnit <- u:
				default:
				}
			},
		}
		if drafts != nil {
			lookup := review.LookupIn(def)
			recOpts.OnPendingReview = func(items []store.ReviewItem) {
				drafts.Enqueue(items, lookup, nil)
			}
		}
		rec := progress.NewRecorder(progress.ReposFrom(e.store), recOpts)

		m, err := assessment.New(def, assessment.Options{
			Gate:                    e.cfg.Gate(),
			DefaultMasteryThreshold: e.cfg.MasteryThreshold,
			Sink:                    rec,
			Shuffle:                 answer.RandomShuffle,
			Logger:                  e.log,
		})
		if err != nil {
			rec.Close()
			return err
		}

		runErr := app.Run(take.New(m, take.Options{NextUnit: nextUnit, Logger: e.log}))

		// The recorder feeds the review queue, so it drains first.
		rec.Close()
		if drafts != nil {
			drafts.Close()
		}
		return runErr
	},
}

func init() {
	takeCmd.Flags().Bool("force", false, "Start even while the retry cooldown is active")
}
