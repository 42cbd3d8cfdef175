package store

import (
	"bytes"
	"context"
	"io"
	"log"
	"reflect"
	"testing"

	"github.com/mnemosync/mnemosync/internal/reconcile"
)

func newReconciler(db *DB, out io.Writer) *reconcile.Reconciler {
	return reconcile.New(db, reconcile.Config{Out: out, Logger: log.New(io.Discard, "", 0)})
}

func TestReconcileAgainstSQLite(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_ = db.ApplyInsert(ctx, "hi", "hello", nil)
	_ = db.ApplyInsert(ctx, "orphan", "untouched", reconcile.NewTags("manual"))
	_ = db.ApplyInsert(ctx, "tagged", "old", reconcile.NewTags("A", "B"))
	if err := db.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	records := []reconcile.SourceRecord{
		{Front: "hi", Back: "hello world", Tags: reconcile.NewTags("greeting")},
		{Front: "tagged", Back: "new", Tags: reconcile.NewTags("C")},
		{Front: "foo", Back: "bar", Tags: reconcile.NewTags("t1")},
	}

	var out bytes.Buffer
	result, err := newReconciler(db, &out).Run(ctx, records, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Inserted() != 1 || result.Updated() != 2 {
		t.Errorf("unexpected counts: inserted=%d updated=%d", result.Inserted(), result.Updated())
	}
	if want := "Updating hi\nUpdating tagged\nInserting foo\n"; out.String() != want {
		t.Errorf("audit output = %q, want %q", out.String(), want)
	}

	hi, err := db.CardByFront(ctx, "hi")
	if err != nil {
		t.Fatalf("CardByFront failed: %v", err)
	}
	if hi.Back != "hello world" || !reflect.DeepEqual(hi.Tags, []string{"greeting"}) {
		t.Errorf("unexpected hi card %+v", hi)
	}

	tagged, _ := db.CardByFront(ctx, "tagged")
	if !reflect.DeepEqual(tagged.Tags, []string{"A", "B", "C"}) {
		t.Errorf("expected merged tags [A B C], got %v", tagged.Tags)
	}

	orphan, _ := db.CardByFront(ctx, "orphan")
	if orphan.Back != "untouched" || !reflect.DeepEqual(orphan.Tags, []string{"manual"}) {
		t.Errorf("orphan card was modified: %+v", orphan)
	}

	run, err := db.LastRun(ctx)
	if err != nil || run == nil || run.Inserted != 1 || run.Updated != 2 {
		t.Errorf("unexpected last run %+v (%v)", run, err)
	}

	// A second run has nothing left to do.
	out.Reset()
	second, err := newReconciler(db, &out).Run(ctx, records, false)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if len(second.Changes()) != 0 || out.Len() != 0 {
		t.Errorf("expected idempotent second run, got %+v / %q", second.Changes(), out.String())
	}
}

func TestReconcileDryRunAgainstSQLite(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_ = db.ApplyInsert(ctx, "hi", "hello", nil)
	if err := db.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	before, err := db.ListRecords(ctx)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}

	var out bytes.Buffer
	result, err := newReconciler(db, &out).Run(ctx, []reconcile.SourceRecord{
		{Front: "hi", Back: "changed"},
		{Front: "new", Back: "card"},
	}, true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Changes()) != 2 {
		t.Errorf("expected 2 planned mutations, got %d", len(result.Changes()))
	}
	if want := "Updating hi\nInserting new\n"; out.String() != want {
		t.Errorf("audit output = %q, want %q", out.String(), want)
	}

	after, err := db.ListRecords(ctx)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("dry run changed the store:\nbefore %+v\nafter  %+v", before, after)
	}

	runs, _ := db.ListRuns(ctx, RunFilter{})
	if len(runs) != 1 {
		t.Errorf("dry run must not commit, got %d runs", len(runs))
	}
}
