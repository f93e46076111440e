package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var progressColumns = []string{
	"learner_id", "unit_id", "assessment_id", "status", "mastery_score", "best_score",
	"attempts", "last_attempt_at", "completed_at", "retry_available_at",
}

type progressRow struct {
	LearnerID        string  `db:"learner_id"`
	UnitID           string  `db:"unit_id"`
	AssessmentID     string  `db:"assessment_id"`
	Status           string  `db:"status"`
	MasteryScore     float64 `db:"mastery_score"`
	BestScore        float64 `db:"best_score"`
	Attempts         int     `db:"attempts"`
	LastAttemptAt    int64   `db:"last_attempt_at"`
	CompletedAt      *int64  `db:"completed_at"`
	RetryAvailableAt *int64  `db:"retry_available_at"`
}

func (r progressRow) progress() Progress {
	return Progress{
		LearnerID:        r.LearnerID,
		UnitID:           r.UnitID,
		AssessmentID:     r.AssessmentID,
		Status:           r.Status,
		MasteryScore:     r.MasteryScore,
		BestScore:        r.BestScore,
		Attempts:         r.Attempts,
		LastAttemptAt:    fromMillis(r.LastAttemptAt),
		CompletedAt:      fromNullMillis(r.CompletedAt),
		RetryAvailableAt: fromNullMillis(r.RetryAvailableAt),
	}
}

type progressRepo struct {
	db      dbtx
	dialect string
}

func (r *progressRepo) Get(ctx context.Context, learnerID, unitID string) (*Progress, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(progressColumns...).
		From(entsql.Table("session_progress")).
		Where(entsql.And(entsql.EQ("learner_id", learnerID), entsql.EQ("unit_id", unitID))).
		Query()

	var row progressRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	p := row.progress()
	return &p, nil
}

func (r *progressRepo) Save(ctx context.Context, p *Progress) error {
	query, args := entsql.Dialect(r.dialect).
		Insert("session_progress").
		Columns(progressColumns...).
		Values(
			p.LearnerID, p.UnitID, p.AssessmentID, p.Status, p.MasteryScore, p.BestScore,
			p.Attempts, toMillis(p.LastAttemptAt), toNullMillis(p.CompletedAt), toNullMillis(p.RetryAvailableAt),
		).
		OnConflict(
			entsql.ConflictColumns("learner_id", "unit_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (r *progressRepo) List(ctx context.Context, learnerID string) ([]Progress, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(progressColumns...).
		From(entsql.Table("session_progress")).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy(entsql.Desc("last_attempt_at")).
		Query()

	var rows []progressRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	out := make([]Progress, len(rows))
	for i, row := range rows {
		out[i] = row.progress()
	}
	return out, nil
}
