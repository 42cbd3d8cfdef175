package store

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/mnemosync/mnemosync/internal/reconcile"
)

// setupTestDB opens a fresh database in a temporary directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(PathFor(t.TempDir()), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenCreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"cards", "sync_runs"} {
		var count int
		query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
		if err := db.conn.QueryRow(query, table).Scan(&count); err != nil {
			t.Fatalf("Failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", table)
		}
	}

	if err := db.InitSchema(); err != nil {
		t.Errorf("Second InitSchema() failed: %v", err)
	}
}

func TestOpenConnectionError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write blocker: %v", err)
	}

	_, err := Open(filepath.Join(blocker, DefaultFilename), log.New(io.Discard, "", 0))
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
}

func TestInsertAndList(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.ApplyInsert(ctx, "foo", "bar", reconcile.NewTags("t1")); err != nil {
		t.Fatalf("ApplyInsert failed: %v", err)
	}
	if err := db.ApplyInsert(ctx, "baz", "qux", nil); err != nil {
		t.Fatalf("ApplyInsert failed: %v", err)
	}

	records, err := db.ListRecords(ctx)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if records[0].Front != "foo" || records[0].Back != "bar" || !records[0].Tags.Equal(reconcile.Tags{"t1"}) {
		t.Errorf("unexpected first record %+v", records[0])
	}
	if records[1].Front != "baz" || len(records[1].Tags) != 0 {
		t.Errorf("unexpected second record %+v", records[1])
	}
	if records[0].ID.IsZero() || records[0].ID == records[1].ID {
		t.Errorf("expected distinct handles, got %v and %v", records[0].ID, records[1].ID)
	}

	card, err := db.CardByFront(ctx, "foo")
	if err != nil {
		t.Fatalf("CardByFront failed: %v", err)
	}
	if card.Grade != UnseenGrade || card.Easiness != InitialEasiness {
		t.Errorf("expected unseen scheduling defaults, got grade=%d easiness=%v", card.Grade, card.Easiness)
	}
	if card.CreatedAt.IsZero() || card.ModifiedAt.IsZero() {
		t.Errorf("expected timestamps, got %+v", card)
	}
}

func TestApplyUpdatePreservesScheduling(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.ApplyInsert(ctx, "hi", "hello", nil); err != nil {
		t.Fatalf("ApplyInsert failed: %v", err)
	}
	// Simulate a few reviews.
	_, err := db.conn.Exec(`UPDATE cards SET grade = 4, easiness = 2.8, acq_reps = 2,
		ret_reps = 5, lapses = 1, last_rep = 1700000000, next_rep = 1700500000 WHERE front = 'hi'`)
	if err != nil {
		t.Fatalf("failed to set scheduling: %v", err)
	}

	records, err := db.ListRecords(ctx)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if err := db.ApplyUpdate(ctx, records[0].ID, "hello world", reconcile.NewTags("greeting")); err != nil {
		t.Fatalf("ApplyUpdate failed: %v", err)
	}

	card, err := db.CardByFront(ctx, "hi")
	if err != nil {
		t.Fatalf("CardByFront failed: %v", err)
	}
	if card.Back != "hello world" || !reflect.DeepEqual(card.Tags, []string{"greeting"}) {
		t.Errorf("content not updated: %+v", card)
	}
	if card.Grade != 4 || card.Easiness != 2.8 || card.AcqReps != 2 || card.RetReps != 5 ||
		card.Lapses != 1 || card.LastRep != 1700000000 || card.NextRep != 1700500000 {
		t.Errorf("scheduling state changed: %+v", card)
	}
}

func TestApplyUpdateMissingCard(t *testing.T) {
	db := setupTestDB(t)

	err := db.ApplyUpdate(context.Background(), reconcile.NewHandle("gone"), "x", nil)
	if !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestCommitRecordsRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if run, err := db.LastRun(ctx); err != nil || run != nil {
		t.Fatalf("expected no runs, got %+v, %v", run, err)
	}

	_ = db.ApplyInsert(ctx, "a", "1", nil)
	_ = db.ApplyInsert(ctx, "b", "2", nil)
	records, _ := db.ListRecords(ctx)
	if err := db.ApplyUpdate(ctx, records[0].ID, "1b", nil); err != nil {
		t.Fatalf("ApplyUpdate failed: %v", err)
	}
	if err := db.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	run, err := db.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if run == nil || run.Inserted != 2 || run.Updated != 1 {
		t.Fatalf("unexpected run %+v", run)
	}

	// Counters reset after a commit.
	if err := db.Commit(ctx); err != nil {
		t.Fatalf("second Commit failed: %v", err)
	}
	runs, err := db.ListRuns(ctx, RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Inserted != 0 || runs[0].Updated != 0 {
		t.Errorf("expected empty newest run, got %+v", runs[0])
	}
	if runs[0].ID <= runs[1].ID {
		t.Errorf("expected newest first, got ids %d, %d", runs[0].ID, runs[1].ID)
	}

	future, err := db.ListRuns(ctx, RunFilter{Since: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(future) != 0 {
		t.Errorf("expected no runs after the future cutoff, got %d", len(future))
	}

	limited, err := db.ListRuns(ctx, RunFilter{Since: time.Now().Add(-time.Hour), Limit: 1})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 run with limit, got %d", len(limited))
	}
}

func TestCardCount(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, front := range []string{"a", "b", "c"} {
		if err := db.ApplyInsert(ctx, front, "x", nil); err != nil {
			t.Fatalf("ApplyInsert failed: %v", err)
		}
	}

	count, err := db.CardCount()
	if err != nil {
		t.Fatalf("CardCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 cards, got %d", count)
	}
}
