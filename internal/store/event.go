package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"
)

// sequenceCounter manages the global monotonic sequence shared by attempts
// and LLM events, so rows in different tables can be ordered against each
// other. The UPDATE ... RETURNING makes each increment atomic, including
// inside a caller's transaction.
type sequenceCounter struct {
	db      *sqlx.DB
	dialect string
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sqlx.DB, d string) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val BIGINT NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	query, args := sql.Dialect(d).
		Insert("global_sequence").
		Columns("id", "next_val").
		Values(1, 1).
		OnConflict(sql.ConflictColumns("id"), sql.DoNothing()).
		Query()
	if _, err := db.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db, dialect: d}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	return sc.nextOn(ctx, sc.db)
}

// nextOn increments the counter through q. Inside a transaction q must be
// the transaction: SQLite runs on a single connection.
func (sc *sequenceCounter) nextOn(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	query, args := sql.Dialect(sc.dialect).
		Update("global_sequence").
		Add("next_val", 1).
		Where(sql.EQ("id", 1)).
		Returning("next_val").
		Query()

	var next int64
	if err := q.QueryRowxContext(ctx, query, args...).Scan(&next); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return next - 1, nil
}
