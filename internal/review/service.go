package review

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kokou-stm/kalanso/internal/llm"
	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/store"
)

// Lookup resolves a question definition by id; it may return nil.
type Lookup func(questionID string) question.Question

// Service drafts notes for review items and stores them. Queued drafting
// runs on one worker goroutine; failures are logged and dropped.
type Service struct {
	drafter  *Drafter
	provider llm.Provider
	reviews  store.ReviewRepo
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time
	provName string

	mu      sync.RWMutex
	closed  bool
	pending chan draftJob
	done    chan struct{}
}

type draftJob struct {
	item   store.ReviewItem
	lookup Lookup
	cb     func(*store.ReviewDraft)
}

// Options configures a Service.
type Options struct {
	ProviderName string
	Timeout      time.Duration
	QueueSize    int
	Logger       *zap.Logger
	Drafter      DrafterConfig
}

// NewService starts the drafting worker. Call Close when done.
func NewService(provider llm.Provider, reviews store.ReviewRepo, opts Options) *Service {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.Drafter.MaxTokens == 0 {
		opts.Drafter = DefaultDrafterConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		drafter:  NewDrafter(provider, opts.Drafter),
		provider: provider,
		reviews:  reviews,
		logger:   logger.Named("review"),
		timeout:  opts.Timeout,
		now:      time.Now,
		provName: opts.ProviderName,
		pending:  make(chan draftJob, opts.QueueSize),
		done:     make(chan struct{}),
	}
	go s.processLoop()
	return s
}

// Enqueue schedules drafts for items without blocking. Items that do not
// fit in the queue are dropped. cb, if set, runs on the worker for every
// stored draft.
func (s *Service) Enqueue(items []store.ReviewItem, lookup Lookup, cb func(*store.ReviewDraft)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	for _, it := range items {
		select {
		case s.pending <- draftJob{item: it, lookup: lookup, cb: cb}:
		default:
			s.logger.Warn("review draft dropped: queue full", zap.String("item", it.ID))
		}
	}
}

// Close stops accepting work and waits for queued drafts.
func (s *Service) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.pending)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *Service) processLoop() {
	defer close(s.done)
	for job := range s.pending {
		var q question.Question
		if job.lookup != nil {
			q = job.lookup(job.item.QuestionID)
		}
		d, err := s.DraftItem(context.Background(), job.item, q)
		if err != nil {
			s.logger.Warn("review draft failed", zap.String("item", job.item.ID), zap.Error(err))
			continue
		}
		if job.cb != nil {
			job.cb(d)
		}
	}
}

// DraftItem drafts and stores a note for item synchronously.
func (s *Service) DraftItem(ctx context.Context, item store.ReviewItem, q question.Question) (*store.ReviewDraft, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	draft, err := s.drafter.Draft(ctx, item, q)
	if err != nil {
		return nil, err
	}
	rubric, err := json.Marshal(draft.Rubric)
	if err != nil {
		return nil, fmt.Errorf("encode rubric: %w", err)
	}
	rec := &store.ReviewDraft{
		ID:              uuid.NewString(),
		ReviewItemID:    item.ID,
		Provider:        s.provName,
		Model:           s.provider.ModelID(),
		Summary:         draft.Summary,
		SuggestedPoints: draft.SuggestedPoints,
		Rubric:          rubric,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.reviews.SaveDraft(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("review draft stored",
		zap.String("item", item.ID),
		zap.String("question", item.QuestionID),
		zap.Float64("suggestedPoints", rec.SuggestedPoints))
	return rec, nil
}

// DraftByID loads the item and drafts a note for it.
func (s *Service) DraftByID(ctx context.Context, itemID string, lookup Lookup) (*store.ReviewDraft, error) {
	item, err := s.reviews.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("review item %q not found", itemID)
	}
	var q question.Question
	if lookup != nil {
		q = lookup(item.QuestionID)
	}
	return s.DraftItem(ctx, *item, q)
}

// LookupIn returns a Lookup over def's questions.
func LookupIn(def *question.Assessment) Lookup {
	return func(id string) question.Question {
		if def == nil {
			return nil
		}
		q, _ := def.Question(id)
		return q
	}
}
