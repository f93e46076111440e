package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int    // max results (0 = unlimited)
	After   int64  // sequence > After
	Purpose string // exact purpose match (empty = any)
}

// Unit is a learning unit in sequence order.
type Unit struct {
	ID       string `db:"id"`
	Title    string `db:"title"`
	Sequence int    `db:"sequence"`
}

// Progress is the per-learner, per-unit session-progress record.
type Progress struct {
	LearnerID        string
	UnitID           string
	AssessmentID     string
	Status           string // "mastered", "completed" or "current"
	MasteryScore     float64
	BestScore        float64
	Attempts         int
	LastAttemptAt    time.Time
	CompletedAt      *time.Time
	RetryAvailableAt *time.Time
}

// Attempt is one completed assessment attempt.
type Attempt struct {
	ID             string
	Sequence       int64
	LearnerID      string
	AssessmentID   string
	UnitID         string
	AttemptNumber  int
	Score          float64
	EarnedPoints   float64
	TotalPoints    float64
	CorrectAnswers int
	TotalQuestions int
	Passed         bool
	Mastered       bool
	TimeTaken      int // seconds
	StartedAt      time.Time
	CompletedAt    time.Time
	Responses      []byte // JSON array of responses
}

// ReviewItem is a response waiting for a human reviewer.
type ReviewItem struct {
	ID           string
	AttemptID    string
	LearnerID    string
	AssessmentID string
	QuestionID   string
	QuestionType string
	MaxPoints    float64
	Payload      []byte // JSON response
	Status       string
	CreatedAt    time.Time
}

// ReviewDraft is an advisory, machine-drafted note for a review item.
type ReviewDraft struct {
	ID              string
	ReviewItemID    string
	Provider        string
	Model           string
	Summary         string
	SuggestedPoints float64
	Rubric          []byte // JSON array
	CreatedAt       time.Time
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	LLMRequestEventData
	Sequence  int64
	Timestamp time.Time
}

// ProgressRepo stores session-progress records.
type ProgressRepo interface {
	// Get returns the record, or nil if the learner has none for the unit.
	Get(ctx context.Context, learnerID, unitID string) (*Progress, error)

	// Save inserts or replaces the record.
	Save(ctx context.Context, p *Progress) error

	// List returns every record for the learner, most recent attempt first.
	List(ctx context.Context, learnerID string) ([]Progress, error)
}

// AttemptRepo stores attempt history.
type AttemptRepo interface {
	// Append stores a new attempt, assigning its sequence number.
	Append(ctx context.Context, a *Attempt) error

	// List returns attempts for a learner and unit, newest first.
	List(ctx context.Context, learnerID, unitID string, limit int) ([]Attempt, error)
}

// UnitRepo stores the unit sequence used for next-unit lookup.
type UnitRepo interface {
	Upsert(ctx context.Context, u Unit) error

	// Next returns the unit with the smallest sequence greater than after,
	// or nil if there is none.
	Next(ctx context.Context, after int) (*Unit, error)
}

// ReviewRepo stores pending-review items and their drafts.
type ReviewRepo interface {
	AddItems(ctx context.Context, items []ReviewItem) error

	// Get returns the item, or nil if it does not exist.
	Get(ctx context.Context, id string) (*ReviewItem, error)

	// Pending returns items awaiting review, oldest first. An empty
	// learnerID matches every learner.
	Pending(ctx context.Context, learnerID string, limit int) ([]ReviewItem, error)

	SaveDraft(ctx context.Context, d *ReviewDraft) error

	// Drafts returns the drafts for an item, newest first.
	Drafts(ctx context.Context, itemID string) ([]ReviewDraft, error)
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func toNullMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromNullMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}
