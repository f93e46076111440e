package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var attemptColumns = []string{
	"id", "sequence", "learner_id", "assessment_id", "unit_id", "attempt_number",
	"score", "earned_points", "total_points", "correct_answers", "total_questions",
	"passed", "mastered", "time_taken", "started_at", "completed_at", "responses",
}

type attemptRow struct {
	ID             string  `db:"id"`
	Sequence       int64   `db:"sequence"`
	LearnerID      string  `db:"learner_id"`
	AssessmentID   string  `db:"assessment_id"`
	UnitID         string  `db:"unit_id"`
	AttemptNumber  int     `db:"attempt_number"`
	Score          float64 `db:"score"`
	EarnedPoints   float64 `db:"earned_points"`
	TotalPoints    float64 `db:"total_points"`
	CorrectAnswers int     `db:"correct_answers"`
	TotalQuestions int     `db:"total_questions"`
	Passed         bool    `db:"passed"`
	Mastered       bool    `db:"mastered"`
	TimeTaken      int     `db:"time_taken"`
	StartedAt      int64   `db:"started_at"`
	CompletedAt    int64   `db:"completed_at"`
	Responses      string  `db:"responses"`
}

type attemptRepo struct {
	db      dbtx
	dialect string
	seq     *sequenceCounter
}

func (r *attemptRepo) Append(ctx context.Context, a *Attempt) error {
	seqNum, err := r.seq.nextOn(ctx, r.db)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	a.Sequence = seqNum

	query, args := entsql.Dialect(r.dialect).
		Insert("attempts").
		Columns(attemptColumns...).
		Values(
			a.ID, a.Sequence, a.LearnerID, a.AssessmentID, a.UnitID, a.AttemptNumber,
			a.Score, a.EarnedPoints, a.TotalPoints, a.CorrectAnswers, a.TotalQuestions,
			a.Passed, a.Mastered, a.TimeTaken, toMillis(a.StartedAt), toMillis(a.CompletedAt),
			string(a.Responses),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (r *attemptRepo) List(ctx context.Context, learnerID, unitID string, limit int) ([]Attempt, error) {
	sel := entsql.Dialect(r.dialect).
		Select(attemptColumns...).
		From(entsql.Table("attempts")).
		Where(entsql.And(entsql.EQ("learner_id", learnerID), entsql.EQ("unit_id", unitID))).
		OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	var rows []attemptRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]Attempt, len(rows))
	for i, row := range rows {
		out[i] = Attempt{
			ID:             row.ID,
			Sequence:       row.Sequence,
			LearnerID:      row.LearnerID,
			AssessmentID:   row.AssessmentID,
			UnitID:         row.UnitID,
			AttemptNumber:  row.AttemptNumber,
			Score:          row.Score,
			EarnedPoints:   row.EarnedPoints,
			TotalPoints:    row.TotalPoints,
			CorrectAnswers: row.CorrectAnswers,
			TotalQuestions: row.TotalQuestions,
			Passed:         row.Passed,
			Mastered:       row.Mastered,
			TimeTaken:      row.TimeTaken,
			StartedAt:      fromMillis(row.StartedAt),
			CompletedAt:    fromMillis(row.CompletedAt),
			Responses:      []byte(row.Responses),
		}
	}
	return out, nil
}
