package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/loopboard/loopboard/internal/pagination"
)

// queryer is the subset of *sql.DB the feed queries need.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Job is one row of the jobs feed.
type Job struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Category    string    `json:"category"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// feedSortColumns allow-lists the ORDER BY columns; anything else falls back
// to created_at. Raw param values never reach the SQL text.
var feedSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"id":         "id",
}

// Feed runs the paginated jobs listing against the router's read side and
// writes against the primary.
type Feed struct {
	router *Router
	clock  func() time.Time
}

// NewFeed wires the feed queries to a router.
func NewFeed(router *Router) *Feed {
	return &Feed{router: router, clock: time.Now}
}

// ListJobs fetches one page of jobs, optionally filtered by category.
// includeTotal attaches a COUNT(*) in offset mode; cursor mode never counts.
func (f *Feed) ListJobs(ctx context.Context, category string, params pagination.Params, includeTotal bool) (pagination.Page[Job], error) {
	pool := f.router.Read(ctx)
	column := feedSortColumns[params.OrderBy]
	if column == "" {
		column = "created_at"
	}

	var (
		where []string
		args  []interface{}
	)
	if category != "" {
		where = append(where, "category = ?")
		args = append(args, category)
	}

	if params.Mode == pagination.ModeCursor && params.Cursor != nil {
		clause, clauseArgs := pagination.KeysetClause(column, params.OrderDir, params.Direction, cursorSortValue(column, *params.Cursor), params.Cursor.ID)
		where = append(where, clause)
		args = append(args, clauseArgs...)
	}

	var b strings.Builder
	b.WriteString("SELECT id, title, company, category, location, description, created_at, updated_at FROM jobs")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY %s LIMIT ?", pagination.OrderByClause(column, params.OrderDir, params.Direction))
	args = append(args, params.Limit+1)

	if params.Mode == pagination.ModeOffset {
		b.WriteString(" OFFSET ?")
		args = append(args, params.Skip)
	}

	rows, err := pool.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return pagination.Page[Job]{}, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var jobs []Job
	for rows.Next() {
		var (
			job                  Job
			location, desc       *string
			createdMs, updatedMs int64
		)
		if err := rows.Scan(&job.ID, &job.Title, &job.Company, &job.Category, &location, &desc, &createdMs, &updatedMs); err != nil {
			return pagination.Page[Job]{}, fmt.Errorf("scan job: %w", err)
		}
		if location != nil {
			job.Location = *location
		}
		if desc != nil {
			job.Description = *desc
		}
		job.CreatedAt = time.UnixMilli(createdMs).UTC()
		job.UpdatedAt = time.UnixMilli(updatedMs).UTC()
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[Job]{}, fmt.Errorf("list jobs: %w", err)
	}

	if params.Mode == pagination.ModeOffset {
		var total *int64
		if includeTotal {
			count, err := f.countJobs(ctx, pool, category)
			if err != nil {
				return pagination.Page[Job]{}, err
			}
			total = &count
		}
		return pagination.BuildOffsetPage(jobs, params.Limit, total), nil
	}

	return pagination.BuildCursorPage(jobs, params.Limit, params.Direction, func(job Job) pagination.Cursor {
		return jobCursor(column, job)
	}), nil
}

// InsertJob writes a job through the primary and returns its id.
func (f *Feed) InsertJob(ctx context.Context, job Job) (int64, error) {
	now := f.clock()
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := job.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	result, err := f.router.Write().ExecContext(ctx,
		`INSERT INTO jobs (title, company, category, location, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.Title, job.Company, job.Category, job.Location, job.Description,
		createdAt.UnixMilli(), updatedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert job id: %w", err)
	}
	return id, nil
}

func (f *Feed) countJobs(ctx context.Context, pool queryer, category string) (int64, error) {
	query := "SELECT COUNT(*) FROM jobs"
	var args []interface{}
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}

	var total int64
	if err := pool.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return total, nil
}

// cursorSortValue converts the cursor's sort value into storage form for the
// keyset predicate; nil selects the id-only comparison.
func cursorSortValue(column string, cursor pagination.Cursor) interface{} {
	if column == "id" || cursor.TS == nil {
		return nil
	}
	return cursor.TS.UnixMilli()
}

// jobCursor mints the cursor for a row under the active sort column.
func jobCursor(column string, job Job) pagination.Cursor {
	cursor := pagination.Cursor{ID: job.ID}
	switch column {
	case "created_at":
		ts := job.CreatedAt
		cursor.TS = &ts
	case "updated_at":
		ts := job.UpdatedAt
		cursor.TS = &ts
	}
	return cursor
}
