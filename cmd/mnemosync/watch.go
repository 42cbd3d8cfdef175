package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mnemosync/mnemosync/internal/config"
	"github.com/mnemosync/mnemosync/internal/daemon"
	"github.com/mnemosync/mnemosync/internal/dashboard"
	"github.com/mnemosync/mnemosync/internal/reconcile"
	"github.com/mnemosync/mnemosync/internal/source"
	"github.com/mnemosync/mnemosync/internal/store"
	"github.com/mnemosync/mnemosync/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "sync",
	Short:   "Re-sync whenever the source table changes",
	Long: `Run a sync, then watch the source table and sync again after every
change. Bursts of writes are collapsed using --debounce.

A table that fails to load is reported and skipped; the watcher keeps
running until interrupted. Watch never prompts: with --dry-run=false every
change is applied as soon as it is saved.

With --dashboard-port, a WebSocket dashboard streams card_update and
sync_complete messages:
  ws://127.0.0.1:<port>/ws`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := runWatch(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			cancel()
			os.Exit(1)
		}
	},
}

func init() {
	addSourceFlags(watchCmd)
	watchCmd.Flags().Duration(config.KeyDebounce, config.DefaultDebounce, "Quiet period before a change is synced")
	watchCmd.Flags().Int(config.KeyDashboardPort, 0, "Serve the WebSocket dashboard on this port (0 disables)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context) error {
	ws := &watchSync{
		dbPath: store.PathFor(cfg.DataDir),
		opts:   source.Options{TagSeparator: cfg.TagSeparator},
		rcfg: reconcile.Config{
			Out:    logs.Audit(os.Stdout),
			Logger: logs.Logger("sync"),
		},
	}
	defer ws.close()

	if cfg.DashboardPort > 0 {
		server := dashboard.NewServer(&dashboard.Config{
			Port:   cfg.DashboardPort,
			Logger: logs.Logger("dashboard"),
		})
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}
		defer func() {
			if err := server.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "Error during dashboard shutdown: %v\n", err)
			}
		}()
		ws.rcfg.Observer = dashboard.NewHandler(server)
		fmt.Printf("Dashboard: http://%s\n", server.Addr())
	}

	d, err := daemon.New(cfg.TSV, ws.sync, &daemon.Config{
		Debounce: cfg.Debounce,
		Logger:   logs.Logger("watch"),
	})
	if err != nil {
		return err
	}

	if cfg.DryRun {
		fmt.Fprintf(os.Stderr, "%s Dry run: nothing will be written (pass --dry-run=false to apply)\n", ui.RenderWarn("⚠"))
	}
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to stop...")

	return d.Run(ctx)
}

// watchSync is the daemon's sync pass. Like sync, it loads the table before
// the store is touched; the store is opened on the first table that loads
// and kept open for the rest of the session.
type watchSync struct {
	dbPath string
	opts   source.Options
	rcfg   reconcile.Config

	db *store.DB
	r  *reconcile.Reconciler
}

func (w *watchSync) sync(ctx context.Context) error {
	records, err := source.Load(cfg.TSV, w.opts)
	if err != nil {
		return err
	}

	if w.db == nil {
		db, err := store.Open(w.dbPath, logs.Logger("store"))
		if err != nil {
			return err
		}
		w.db = db
		w.r = reconcile.New(db, w.rcfg)
	}

	result, err := w.r.Run(ctx, records, cfg.DryRun)
	if err != nil {
		return err
	}
	printSummary(result)
	return nil
}

func (w *watchSync) close() {
	if w.db != nil {
		_ = w.db.Close()
	}
}
