package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Card is a full card row, scheduling state included.
type Card struct {
	ID         string
	Front      string
	Back       string
	Tags       []string
	Grade      int
	Easiness   float64
	AcqReps    int
	RetReps    int
	Lapses     int
	LastRep    int64
	NextRep    int64
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// SyncRun is one committed sync batch.
type SyncRun struct {
	ID          int64
	CommittedAt time.Time
	Inserted    int
	Updated     int
}

// CardCount returns the number of cards in the store.
func (db *DB) CardCount() (int, error) {
	return db.CardCountContext(context.Background())
}

// CardCountContext returns the number of cards with context support.
func (db *DB) CardCountContext(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get card count: %w", err)
	}
	return count, nil
}

// CardByFront returns the first card with the given front.
// Returns ErrCardNotFound if there is none.
func (db *DB) CardByFront(ctx context.Context, front string) (*Card, error) {
	row := db.conn.QueryRowContext(ctx, `
	SELECT id, front, back, tags, grade, easiness, acq_reps, ret_reps, lapses,
	       last_rep, next_rep, created_at, modified_at
	FROM cards
	WHERE front = ?
	ORDER BY rowid
	LIMIT 1
	`, front)

	var card Card
	var tagsJSON, createdAt, modifiedAt string
	err := row.Scan(
		&card.ID,
		&card.Front,
		&card.Back,
		&tagsJSON,
		&card.Grade,
		&card.Easiness,
		&card.AcqReps,
		&card.RetReps,
		&card.Lapses,
		&card.LastRep,
		&card.NextRep,
		&createdAt,
		&modifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrCardNotFound, front)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query card %q: %w", front, err)
	}

	tags, err := decodeTags(tagsJSON)
	if err != nil {
		return nil, err
	}
	card.Tags = tags
	card.CreatedAt = parseTime(createdAt)
	card.ModifiedAt = parseTime(modifiedAt)

	return &card, nil
}

// LastRun returns the most recent sync run, or nil if nothing was committed yet.
func (db *DB) LastRun(ctx context.Context) (*SyncRun, error) {
	runs, err := db.ListRuns(ctx, RunFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// RunFilter configures ListRuns.
type RunFilter struct {
	// Since keeps runs committed at or after this time (zero = all)
	Since time.Time
	// Limit restricts the number of results (0 = no limit)
	Limit int
}

// ListRuns returns committed sync runs, newest first.
func (db *DB) ListRuns(ctx context.Context, filter RunFilter) ([]*SyncRun, error) {
	var conditions []string
	var args []interface{}

	if !filter.Since.IsZero() {
		conditions = append(conditions, "committed_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeFormat))
	}

	query := `SELECT id, committed_at, inserted, updated FROM sync_runs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*SyncRun
	for rows.Next() {
		var run SyncRun
		var committedAt string
		if err := rows.Scan(&run.ID, &committedAt, &run.Inserted, &run.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		run.CommittedAt = parseTime(committedAt)
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}

	return runs, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
