package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

type unitRepo struct {
	db      dbtx
	dialect string
}

func (r *unitRepo) Upsert(ctx context.Context, u Unit) error {
	query, args := entsql.Dialect(r.dialect).
		Insert("units").
		Columns("id", "title", "sequence").
		Values(u.ID, u.Title, u.Sequence).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert unit: %w", err)
	}
	return nil
}

func (r *unitRepo) Next(ctx context.Context, after int) (*Unit, error) {
	query, args := entsql.Dialect(r.dialect).
		Select("id", "title", "sequence").
		From(entsql.Table("units")).
		Where(entsql.GT("sequence", after)).
		OrderBy("sequence", "id").
		Limit(1).
		Query()

	var u Unit
	if err := r.db.GetContext(ctx, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("next unit: %w", err)
	}
	return &u, nil
}
