package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var reviewItemColumns = []string{
	"id", "attempt_id", "learner_id", "assessment_id", "question_id", "question_type",
	"max_points", "payload", "status", "created_at",
}

var reviewDraftColumns = []string{
	"id", "review_item_id", "provider", "model", "summary", "suggested_points", "rubric", "created_at",
}

type reviewItemRow struct {
	ID           string  `db:"id"`
	AttemptID    string  `db:"attempt_id"`
	LearnerID    string  `db:"learner_id"`
	AssessmentID string  `db:"assessment_id"`
	QuestionID   string  `db:"question_id"`
	QuestionType string  `db:"question_type"`
	MaxPoints    float64 `db:"max_points"`
	Payload      string  `db:"payload"`
	Status       string  `db:"status"`
	CreatedAt    int64   `db:"created_at"`
}

func (r reviewItemRow) item() ReviewItem {
	return ReviewItem{
		ID:           r.ID,
		AttemptID:    r.AttemptID,
		LearnerID:    r.LearnerID,
		AssessmentID: r.AssessmentID,
		QuestionID:   r.QuestionID,
		QuestionType: r.QuestionType,
		MaxPoints:    r.MaxPoints,
		Payload:      []byte(r.Payload),
		Status:       r.Status,
		CreatedAt:    fromMillis(r.CreatedAt),
	}
}

type reviewDraftRow struct {
	ID              string  `db:"id"`
	ReviewItemID    string  `db:"review_item_id"`
	Provider        string  `db:"provider"`
	Model           string  `db:"model"`
	Summary         string  `db:"summary"`
	SuggestedPoints float64 `db:"suggested_points"`
	Rubric          string  `db:"rubric"`
	CreatedAt       int64   `db:"created_at"`
}

type reviewRepo struct {
	db      dbtx
	dialect string
}

func (r *reviewRepo) AddItems(ctx context.Context, items []ReviewItem) error {
	if len(items) == 0 {
		return nil
	}
	ins := entsql.Dialect(r.dialect).Insert("review_items").Columns(reviewItemColumns...)
	for _, it := range items {
		ins.Values(
			it.ID, it.AttemptID, it.LearnerID, it.AssessmentID, it.QuestionID, it.QuestionType,
			it.MaxPoints, string(it.Payload), it.Status, toMillis(it.CreatedAt),
		)
	}
	query, args := ins.Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save review items: %w", err)
	}
	return nil
}

func (r *reviewRepo) Get(ctx context.Context, id string) (*ReviewItem, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(reviewItemColumns...).
		From(entsql.Table("review_items")).
		Where(entsql.EQ("id", id)).
		Query()

	var row reviewItemRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review item: %w", err)
	}
	it := row.item()
	return &it, nil
}

func (r *reviewRepo) Pending(ctx context.Context, learnerID string, limit int) ([]ReviewItem, error) {
	where := entsql.EQ("status", "pending_review")
	if learnerID != "" {
		where = entsql.And(where, entsql.EQ("learner_id", learnerID))
	}
	sel := entsql.Dialect(r.dialect).
		Select(reviewItemColumns...).
		From(entsql.Table("review_items")).
		Where(where).
		OrderBy("created_at", "id")
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	var rows []reviewItemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list pending reviews: %w", err)
	}
	out := make([]ReviewItem, len(rows))
	for i, row := range rows {
		out[i] = row.item()
	}
	return out, nil
}

func (r *reviewRepo) SaveDraft(ctx context.Context, d *ReviewDraft) error {
	query, args := entsql.Dialect(r.dialect).
		Insert("review_drafts").
		Columns(reviewDraftColumns...).
		Values(d.ID, d.ReviewItemID, d.Provider, d.Model, d.Summary, d.SuggestedPoints,
			string(d.Rubric), toMillis(d.CreatedAt)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save review draft: %w", err)
	}
	return nil
}

func (r *reviewRepo) Drafts(ctx context.Context, itemID string) ([]ReviewDraft, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(reviewDraftColumns...).
		From(entsql.Table("review_drafts")).
		Where(entsql.EQ("review_item_id", itemID)).
		OrderBy(entsql.Desc("created_at")).
		Query()

	var rows []reviewDraftRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list review drafts: %w", err)
	}
	out := make([]ReviewDraft, len(rows))
	for i, row := range rows {
		out[i] = ReviewDraft{
			ID:              row.ID,
			ReviewItemID:    row.ReviewItemID,
			Provider:        row.Provider,
			Model:           row.Model,
			Summary:         row.Summary,
			SuggestedPoints: row.SuggestedPoints,
			Rubric:          []byte(row.Rubric),
			CreatedAt:       fromMillis(row.CreatedAt),
		}
	}
	return out, nil
}
