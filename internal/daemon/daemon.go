// Package daemon re-runs a sync whenever the source table changes on disk.
//
// The daemon:
//  1. Performs an initial sync
//  2. Watches the directory holding the table (editors often save by
//     rename, which a watch on the file itself would lose)
//  3. Debounces bursts of events into a single sync
//  4. Stops when the context is cancelled
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SyncFunc performs one sync pass. Errors are logged and the daemon keeps
// watching, so a half-edited table does not end the session.
type SyncFunc func(ctx context.Context) error

// Config holds configuration for the daemon.
type Config struct {
	// Debounce is how long the table must be quiet before a sync runs.
	Debounce time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Debounce: 500 * time.Millisecond,
		Logger:   log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Daemon watches a single table file and syncs it on change.
type Daemon struct {
	path   string
	syncFn SyncFunc
	config *Config

	watcher *fsnotify.Watcher

	mu        sync.Mutex
	lastEvent time.Time // zero when nothing is pending
	syncs     int
}

// New creates a Daemon for the table at path. Use Run to start it.
func New(path string, fn SyncFunc, config *Config) (*Daemon, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	if fn == nil {
		return nil, fmt.Errorf("sync func cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Daemon{
		path:    abs,
		syncFn:  fn,
		config:  config,
		watcher: watcher,
	}, nil
}

// Run performs an initial sync, then watches until ctx is cancelled.
// It returns nil on cancellation and an error only if watching cannot start.
func (d *Daemon) Run(ctx context.Context) error {
	defer func() {
		if err := d.watcher.Close(); err != nil {
			d.config.Logger.Printf("Error closing watcher: %v", err)
		}
	}()

	dir := filepath.Dir(d.path)
	if err := d.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	d.config.Logger.Printf("Watching %s (debounce %s)", d.path, d.config.Debounce)

	d.runSync(ctx)

	ticker := time.NewTicker(d.config.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.config.Logger.Println("Stopping watcher")
			return nil

		case event, ok := <-d.watcher.Events:
			if !ok {
				return nil
			}
			if d.relevant(event) {
				d.queue()
			}

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return nil
			}
			d.config.Logger.Printf("Watcher error: %v", err)

		case <-ticker.C:
			if d.due() {
				d.runSync(ctx)
			}
		}
	}
}

// Syncs returns how many sync passes have run, the initial one included.
func (d *Daemon) Syncs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.syncs
}

// relevant reports whether event touches the watched table.
func (d *Daemon) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return abs == d.path
}

func (d *Daemon) queue() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastEvent = time.Now()
}

// due reports whether a queued change has been quiet for the debounce
// interval, clearing it if so.
func (d *Daemon) due() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastEvent.IsZero() || time.Since(d.lastEvent) < d.config.Debounce {
		return false
	}
	d.lastEvent = time.Time{}
	return true
}

func (d *Daemon) runSync(ctx context.Context) {
	d.mu.Lock()
	d.syncs++
	d.mu.Unlock()

	if err := d.syncFn(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		d.config.Logger.Printf("Sync failed: %v", err)
	}
}
