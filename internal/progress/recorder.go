// Package progress persists completed assessment attempts in the background.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kokou-stm/kalanso/internal/assessment"
	"github.com/kokou-stm/kalanso/internal/mastery"
	"github.com/kokou-stm/kalanso/internal/scoring"
	"github.com/kokou-stm/kalanso/internal/store"
)

// DefaultQueueSize bounds the number of completions waiting to be persisted.
const DefaultQueueSize = 32

// Repos groups the repositories the recorder writes to.
type Repos struct {
	Progress store.ProgressRepo
	Attempts store.AttemptRepo
	Units    store.UnitRepo
	Reviews  store.ReviewRepo

	// InTx, when set, runs fn with repositories bound to one transaction.
	// Without it each write commits on its own.
	InTx func(ctx context.Context, fn func(Repos) error) error
}

// ReposFrom returns the repositories backed by s. Saves run in a single
// transaction.
func ReposFrom(s *store.Store) Repos {
	return Repos{
		Progress: s.ProgressRepo(),
		Attempts: s.AttemptRepo(),
		Units:    s.UnitRepo(),
		Reviews:  s.ReviewRepo(),
		InTx: func(ctx context.Context, fn func(Repos) error) error {
			return s.InTx(ctx, func(tx *store.Tx) error {
				return fn(Repos{
					Progress: tx.ProgressRepo(),
					Attempts: tx.AttemptRepo(),
					Units:    tx.UnitRepo(),
					Reviews:  tx.ReviewRepo(),
				})
			})
		},
	}
}

func (r Repos) run(ctx context.Context, fn func(Repos) error) error {
	if r.InTx == nil {
		return fn(r)
	}
	return r.InTx(ctx, fn)
}

// Options configures a Recorder.
type Options struct {
	LearnerID string
	QueueSize int
	Logger    *zap.Logger

	// OnNextUnit is called from the worker goroutine after a mastered
	// attempt, with the following unit or nil when the sequence is done.
	OnNextUnit func(*store.Unit)

	// OnPendingReview is called from the worker goroutine with the review
	// items created for an attempt.
	OnPendingReview func([]store.ReviewItem)
}

// Saved describes what one completion wrote.
type Saved struct {
	Progress    store.Progress
	Attempt     store.Attempt
	Transition  *mastery.StateTransition
	ReviewItems []store.ReviewItem
	NextUnit    *store.Unit
}

// Recorder is an assessment.Sink that stores completions on a worker
// goroutine. Failures are logged and dropped.
type Recorder struct {
	repos  Repos
	opts   Options
	logger *zap.Logger

	mu      sync.RWMutex
	closed  bool
	pending chan assessment.Completion
	done    chan struct{}
}

var _ assessment.Sink = (*Recorder)(nil)

// NewRecorder starts the worker. Call Close to drain the queue.
func NewRecorder(repos Repos, opts Options) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.LearnerID == "" {
		opts.LearnerID = "local"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		repos:   repos,
		opts:    opts,
		logger:  logger.Named("progress"),
		pending: make(chan assessment.Completion, opts.QueueSize),
		done:    make(chan struct{}),
	}
	go r.processLoop()
	return r
}

// Record queues c without blocking. When the queue is full or the
// recorder is closed the completion is dropped.
func (r *Recorder) Record(c assessment.Completion) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("completion dropped: recorder closed", zap.String("assessment", c.Result.AssessmentID))
		return
	}
	select {
	case r.pending <- c:
	default:
		r.logger.Warn("completion dropped: queue full", zap.String("assessment", c.Result.AssessmentID))
	}
}

// Close stops accepting completions and waits for queued ones to finish.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.pending)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) processLoop() {
	defer close(r.done)
	for c := range r.pending {
		saved, err := r.Save(context.Background(), c)
		if err != nil {
			r.logger.Error("persist completion",
				zap.String("assessment", c.Result.AssessmentID),
				zap.String("unit", c.Result.UnitID),
				zap.Error(err))
			continue
		}
		if len(saved.ReviewItems) > 0 && r.opts.OnPendingReview != nil {
			r.opts.OnPendingReview(saved.ReviewItems)
		}
		if c.Decision.Mastered && r.opts.OnNextUnit != nil {
			r.opts.OnNextUnit(saved.NextUnit)
		}
	}
}

// Save persists c synchronously: unit, progress record, attempt, review
// items and, when mastered, the next-unit lookup. Nothing is kept when any
// write fails.
func (r *Recorder) Save(ctx context.Context, c assessment.Completion) (*Saved, error) {
	var saved *Saved
	err := r.repos.run(ctx, func(repos Repos) error {
		var err error
		saved, err = r.save(ctx, repos, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	if saved.Transition != nil {
		tr := saved.Transition
		r.logger.Info("unit status changed",
			zap.String("unit", tr.UnitID),
			zap.String("from", string(tr.From)),
			zap.String("to", string(tr.To)),
			zap.String("trigger", tr.Trigger))
	}
	a := saved.Attempt
	r.logger.Debug("attempt stored",
		zap.String("attempt", a.ID),
		zap.Int64("sequence", a.Sequence),
		zap.Int("number", a.AttemptNumber),
		zap.Float64("score", a.Score),
		zap.Int("pendingReview", len(saved.ReviewItems)))
	return saved, nil
}

func (r *Recorder) save(ctx context.Context, repos Repos, c assessment.Completion) (*Saved, error) {
	res, d := c.Result, c.Decision
	learner := r.opts.LearnerID

	if c.Assessment != nil {
		u := c.Assessment.Unit
		if err := repos.Units.Upsert(ctx, store.Unit{ID: u.ID, Title: u.Title, Sequence: u.Sequence}); err != nil {
			return nil, err
		}
	}

	prev, err := repos.Progress.Get(ctx, learner, res.UnitID)
	if err != nil {
		return nil, err
	}
	p := nextProgress(learner, prev, res, d)

	var prevStatus mastery.Status
	if prev != nil {
		prevStatus = mastery.Status(prev.Status)
	}
	tr := mastery.Transition(res.UnitID, prevStatus, d)
	if tr != nil && string(tr.To) != p.Status {
		tr = nil
	}
	if err := repos.Progress.Save(ctx, &p); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(res.Responses)
	if err != nil {
		return nil, fmt.Errorf("encode responses: %w", err)
	}
	a := store.Attempt{
		ID:             uuid.NewString(),
		LearnerID:      learner,
		AssessmentID:   res.AssessmentID,
		UnitID:         res.UnitID,
		AttemptNumber:  p.Attempts,
		Score:          res.Score,
		EarnedPoints:   res.EarnedPoints,
		TotalPoints:    res.TotalPoints,
		CorrectAnswers: res.CorrectAnswers,
		TotalQuestions: res.TotalQuestions,
		Passed:         res.Passed,
		Mastered:       res.Mastered,
		TimeTaken:      res.TimeTaken,
		StartedAt:      res.StartedAt,
		CompletedAt:    res.CompletedAt,
		Responses:      payload,
	}
	if err := repos.Attempts.Append(ctx, &a); err != nil {
		return nil, err
	}

	items, err := reviewItems(learner, a, res.Responses)
	if err != nil {
		return nil, err
	}
	if err := repos.Reviews.AddItems(ctx, items); err != nil {
		return nil, err
	}

	saved := &Saved{Progress: p, Attempt: a, Transition: tr, ReviewItems: items}
	if d.Mastered && c.Assessment != nil {
		next, err := repos.Units.Next(ctx, c.Assessment.Unit.Sequence)
		if err != nil {
			return nil, err
		}
		saved.NextUnit = next
	}

	return saved, nil
}

// nextProgress folds one result into the stored record. The status never
// regresses; completed_at is set once and kept.
func nextProgress(learner string, prev *store.Progress, res assessment.Result, d mastery.Decision) store.Progress {
	p := store.Progress{
		LearnerID:        learner,
		UnitID:           res.UnitID,
		AssessmentID:     res.AssessmentID,
		Status:           string(mastery.StatusFor(d)),
		MasteryScore:     res.Score,
		BestScore:        res.Score,
		Attempts:         1,
		LastAttemptAt:    res.CompletedAt,
		RetryAvailableAt: d.RetryAvailableAt,
	}
	if prev != nil {
		p.Attempts = prev.Attempts + 1
		p.BestScore = max(prev.BestScore, res.Score)
		p.CompletedAt = prev.CompletedAt
		if mastery.Status(prev.Status).Rank() > mastery.Status(p.Status).Rank() {
			p.Status = prev.Status
		}
	}
	if p.CompletedAt == nil && mastery.Status(p.Status) != mastery.StatusCurrent {
		at := res.CompletedAt
		p.CompletedAt = &at
	}
	return p
}

func reviewItems(learner string, a store.Attempt, responses []scoring.Response) ([]store.ReviewItem, error) {
	var items []store.ReviewItem
	for _, resp := range responses {
		b := resp.Common()
		if !b.Pending() {
			continue
		}
		payload, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("encode response %s: %w", b.QuestionID, err)
		}
		items = append(items, store.ReviewItem{
			ID:           uuid.NewString(),
			AttemptID:    a.ID,
			LearnerID:    learner,
			AssessmentID: a.AssessmentID,
			QuestionID:   b.QuestionID,
			QuestionType: string(b.QuestionType),
			MaxPoints:    b.MaxPoints,
			Payload:      payload,
			Status:       string(scoring.StatusPendingReview),
			CreatedAt:    a.CompletedAt,
		})
	}
	return items, nil
}

// RetryLockedUntil returns the stored retry time for the learner's unit when
// it is still in the future at now, or nil.
func RetryLockedUntil(ctx context.Context, repo store.ProgressRepo, learnerID, unitID string, now time.Time) (*time.Time, error) {
	p, err := repo.Get(ctx, learnerID, unitID)
	if err != nil || p == nil || p.RetryAvailableAt == nil {
		return nil, err
	}
	if !now.Before(*p.RetryAvailableAt) {
		return nil, nil
	}
	return p.RetryAvailableAt, nil
}
