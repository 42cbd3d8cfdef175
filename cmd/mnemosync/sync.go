package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mnemosync/mnemosync/internal/reconcile"
	"github.com/mnemosync/mnemosync/internal/source"
	"github.com/mnemosync/mnemosync/internal/store"
	"github.com/mnemosync/mnemosync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Reconcile the source table into the card store",
	Long: `Load the source table and reconcile it into the card store.

For every row:
  - a front that is not in the store is inserted
  - a front whose back differs is updated; tags are merged
  - anything else is left alone

One line per insert or update is printed to stdout ("Inserting <front>",
"Updating <front>"), identically in dry and live runs. Dry run is the
default; pass --dry-run=false to write. Applying from a terminal asks for
confirmation unless --yes is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		yes, _ := cmd.Flags().GetBool("yes")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := runSync(ctx, yes); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			cancel()
			os.Exit(1)
		}
	},
}

func init() {
	addSourceFlags(syncCmd)
	syncCmd.Flags().BoolP("yes", "y", false, "Apply without asking for confirmation")
	rootCmd.AddCommand(syncCmd)
}

func runSync(ctx context.Context, yes bool) error {
	// the table is read before the store is opened so a bad file never
	// touches the database
	records, err := source.Load(cfg.TSV, source.Options{TagSeparator: cfg.TagSeparator})
	if err != nil {
		return err
	}

	db, err := store.Open(store.PathFor(cfg.DataDir), logs.Logger("store"))
	if err != nil {
		return err
	}
	defer db.Close()

	r := reconcile.New(db, reconcile.Config{
		Out:    logs.Audit(os.Stdout),
		Logger: logs.Logger("sync"),
	})

	if cfg.DryRun {
		fmt.Fprintf(os.Stderr, "%s Dry run: nothing will be written (pass --dry-run=false to apply)\n", ui.RenderWarn("⚠"))
	} else if !yes && ui.IsTerminal(os.Stdin) {
		ok, err := confirmApply(ctx, r, records)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Aborted, nothing written")
			return nil
		}
	}

	result, err := r.Run(ctx, records, cfg.DryRun)
	if err != nil {
		return err
	}

	printSummary(result)
	return nil
}

// confirmApply previews the plan and asks before writing it. An empty plan
// needs no confirmation.
func confirmApply(ctx context.Context, r *reconcile.Reconciler, records []reconcile.SourceRecord) (bool, error) {
	plan, err := r.Preview(ctx, records)
	if err != nil {
		return false, err
	}
	preview := &reconcile.Result{Plan: plan}
	changes := preview.Changes()
	if len(changes) == 0 {
		return true, nil
	}

	var lines []string
	for i, m := range changes {
		if i == 10 {
			lines = append(lines, fmt.Sprintf("... and %d more", len(changes)-i))
			break
		}
		lines = append(lines, m.Describe())
	}

	title := fmt.Sprintf("Apply %d inserts and %d updates to %s?",
		preview.Inserted(), preview.Updated(), store.PathFor(cfg.DataDir))
	return ui.Confirm(title, strings.Join(lines, "\n"))
}

func printSummary(result *reconcile.Result) {
	verb := "Synced"
	if result.DryRun {
		verb = "Planned"
	}
	fmt.Fprintf(os.Stderr, "%s %s: %d inserted, %d updated, %d unchanged\n",
		ui.RenderPass("✓"), verb, result.Inserted(), result.Updated(), result.Unchanged())
}
