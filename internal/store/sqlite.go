// Package store provides the SQLite card store that mnemosync syncs into.
//
// The database lives in a single file inside the data directory
// (<data-dir>/mnemosync.db) and runs in WAL mode with a busy timeout so that
// a review session and a sync can share it.
//
// Schema:
//   - cards: one row per card; front/back/tags plus scheduling state
//     (grade, easiness, repetition counters, last/next review)
//   - sync_runs: one row per committed sync batch
//
// Scheduling columns are written once when a card is inserted and never by
// ApplyUpdate, so review history survives content changes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/mnemosync/mnemosync/internal/reconcile"
)

// DefaultFilename is the database file created inside the data directory.
const DefaultFilename = "mnemosync.db"

// Scheduling defaults for a card that has never been reviewed.
const (
	UnseenGrade     = -1
	InitialEasiness = 2.5
)

// PathFor returns the database path inside dataDir.
func PathFor(dataDir string) string {
	return filepath.Join(dataDir, DefaultFilename)
}

// DB wraps the SQLite connection and implements reconcile.Store.
type DB struct {
	conn   *sql.DB
	path   string
	logger *log.Logger

	// mutations applied since the last Commit
	mu      sync.Mutex
	inserts int
	updates int
}

var _ reconcile.Store = (*DB)(nil)

// Open opens (creating if needed) the database at path and initializes the
// schema. Every failure wraps ErrConnection.
//
// The caller MUST call Close() when done so the WAL is checkpointed.
//
// Example:
//
//	db, err := store.Open(store.PathFor("./data"), nil)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func Open(path string, logger *log.Logger) (*DB, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create data directory: %w", ErrConnection, err)
	}

	connStr := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrConnection, err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", ErrConnection, err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn:   conn,
		path:   path,
		logger: logger,
	}

	// WAL is persistent on the file, so once is enough
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrConnection, err)
	}

	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		db.logger.Printf("Warning: failed to checkpoint WAL: %v", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the tables if they don't exist. Safe to call repeatedly.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the tables with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		front TEXT NOT NULL,
		back TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',  -- JSON array

		-- Scheduling state, owned by the review side
		grade INTEGER NOT NULL DEFAULT -1,
		easiness REAL NOT NULL DEFAULT 2.5,
		acq_reps INTEGER NOT NULL DEFAULT 0,
		ret_reps INTEGER NOT NULL DEFAULT 0,
		lapses INTEGER NOT NULL DEFAULT 0,
		last_rep INTEGER NOT NULL DEFAULT -1,
		next_rep INTEGER NOT NULL DEFAULT -1,

		created_at TEXT NOT NULL,
		modified_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cards_front ON cards(front);

	CREATE TABLE IF NOT EXISTS sync_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		committed_at TEXT NOT NULL,
		inserted INTEGER NOT NULL,
		updated INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sync_runs_committed ON sync_runs(committed_at);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ListRecords implements reconcile.Store. Cards come back in insertion order.
func (db *DB) ListRecords(ctx context.Context) ([]reconcile.StoreRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, front, back, tags FROM cards ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var records []reconcile.StoreRecord
	for rows.Next() {
		var id, front, back, tagsJSON string
		if err := rows.Scan(&id, &front, &back, &tagsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}

		tags, err := decodeTags(tagsJSON)
		if err != nil {
			return nil, fmt.Errorf("card %s: %w", id, err)
		}

		records = append(records, reconcile.StoreRecord{
			ID:    reconcile.NewHandle(id),
			Front: front,
			Back:  back,
			Tags:  tags,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	return records, nil
}

// ApplyUpdate implements reconcile.Store. Only back, tags and modified_at
// change; scheduling columns are left as they are.
func (db *DB) ApplyUpdate(ctx context.Context, id reconcile.Handle, newBack string, mergedTags reconcile.Tags) error {
	tagsJSON, err := encodeTags(mergedTags)
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE cards SET back = ?, tags = ?, modified_at = ? WHERE id = ?`,
		newBack, tagsJSON, now(), id.Key())
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", id.Key(), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", id.Key(), err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrCardNotFound, id.Key())
	}

	db.mu.Lock()
	db.updates++
	db.mu.Unlock()
	return nil
}

// ApplyInsert implements reconcile.Store. The new card gets a random UUID and
// unseen scheduling state.
func (db *DB) ApplyInsert(ctx context.Context, front, back string, tags reconcile.Tags) error {
	tagsJSON, err := encodeTags(tags)
	if err != nil {
		return err
	}

	ts := now()
	_, err = db.conn.ExecContext(ctx, `
	INSERT INTO cards (id, front, back, tags, grade, easiness, created_at, modified_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), front, back, tagsJSON, UnseenGrade, InitialEasiness, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to insert card %q: %w", front, err)
	}

	db.mu.Lock()
	db.inserts++
	db.mu.Unlock()
	return nil
}

// Commit implements reconcile.Store. It records a sync run for the mutations
// applied since the previous Commit and checkpoints the WAL.
func (db *DB) Commit(ctx context.Context) error {
	db.mu.Lock()
	inserted, updated := db.inserts, db.updates
	db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sync_runs (committed_at, inserted, updated) VALUES (?, ?, ?)`,
		now(), inserted, updated)
	if err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}

	db.mu.Lock()
	db.inserts -= inserted
	db.updates -= updated
	db.mu.Unlock()

	if _, err := db.conn.ExecContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	db.logger.Printf("Committed sync run: inserted=%d updated=%d", inserted, updated)
	return nil
}

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func now() string {
	return time.Now().UTC().Format(timeFormat)
}

func encodeTags(tags reconcile.Tags) (string, error) {
	if tags == nil {
		tags = reconcile.Tags{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}
	return string(data), nil
}

func decodeTags(raw string) (reconcile.Tags, error) {
	if raw == "" || raw == "null" {
		return reconcile.Tags{}, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	return reconcile.NewTags(names...), nil
}
