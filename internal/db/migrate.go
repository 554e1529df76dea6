package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Timestamps are INTEGER unix milliseconds so keyset comparisons stay exact
// regardless of text formatting.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		company TEXT NOT NULL,
		category TEXT NOT NULL,
		location TEXT,
		description TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_feed ON jobs(created_at, id);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_category ON jobs(category, created_at, id);`,
	`CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		author_id INTEGER NOT NULL,
		body TEXT NOT NULL,
		like_count INTEGER NOT NULL DEFAULT 0,
		comment_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_posts_feed ON posts(created_at, id);`,
	`CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id, created_at);`,
}

// Migrate ensures the required tables exist. Runs against the primary; the
// replica follows through replication.
func Migrate(ctx context.Context, pool *sql.DB) error {
	if pool == nil {
		return errors.New("database pool is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := pool.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
	}
	return nil
}
