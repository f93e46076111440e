package store

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	"github.com/jmoiron/sqlx"
)

// Timestamps are stored as unix milliseconds so both dialects scan them the
// same way. BOOLEAN has numeric affinity in SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		sequence INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS units_sequence ON units (sequence)`,
	`CREATE TABLE IF NOT EXISTS session_progress (
		learner_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		assessment_id TEXT NOT NULL,
		status TEXT NOT NULL,
		mastery_score {{REAL}} NOT NULL DEFAULT 0,
		best_score {{REAL}} NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_attempt_at BIGINT NOT NULL,
		completed_at BIGINT,
		retry_available_at BIGINT,
		PRIMARY KEY (learner_id, unit_id)
	)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		sequence BIGINT NOT NULL,
		learner_id TEXT NOT NULL,
		assessment_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		attempt_number INTEGER NOT NULL,
		score {{REAL}} NOT NULL,
		earned_points {{REAL}} NOT NULL,
		total_points {{REAL}} NOT NULL,
		correct_answers INTEGER NOT NULL,
		total_questions INTEGER NOT NULL,
		passed BOOLEAN NOT NULL,
		mastered BOOLEAN NOT NULL,
		time_taken INTEGER NOT NULL,
		started_at BIGINT NOT NULL,
		completed_at BIGINT NOT NULL,
		responses TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS attempts_learner_unit ON attempts (learner_id, unit_id, sequence)`,
	`CREATE TABLE IF NOT EXISTS review_items (
		id TEXT PRIMARY KEY,
		attempt_id TEXT NOT NULL,
		learner_id TEXT NOT NULL,
		assessment_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		question_type TEXT NOT NULL,
		max_points {{REAL}} NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS review_items_status ON review_items (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS review_drafts (
		id TEXT PRIMARY KEY,
		review_item_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		summary TEXT NOT NULL,
		suggested_points {{REAL}} NOT NULL,
		rubric TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS llm_events (
		sequence BIGINT PRIMARY KEY,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		latency_ms BIGINT NOT NULL,
		success BOOLEAN NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
}

// migrate creates missing tables and indexes for the dialect.
func migrate(ctx context.Context, db *sqlx.DB, d string) error {
	realType := "REAL"
	if d == dialect.Postgres {
		realType = "DOUBLE PRECISION"
	}
	for _, stmt := range schema {
		stmt = strings.ReplaceAll(stmt, "{{REAL}}", realType)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
