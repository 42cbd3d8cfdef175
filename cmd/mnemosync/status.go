package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnemosync/mnemosync/internal/store"
	"github.com/mnemosync/mnemosync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "maint",
	Short:   "Show card store status",
	Long: `Display the current state of the card store.

Shows:
  - Store file location and size
  - Number of cards
  - The last committed sync run`,
	Run: func(cmd *cobra.Command, args []string) {
		path := store.PathFor(cfg.DataDir)

		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Printf("\n%s Card store not initialized at %s\n", ui.RenderWarn("⚠"), path)
			fmt.Printf("   Run 'mnemosync sync --dry-run=false' to create it\n\n")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking store: %v\n", err)
			os.Exit(1)
		}

		db, err := store.Open(path, logs.Logger("store"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		ctx := context.Background()
		count, err := db.CardCountContext(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting card count: %v\n", err)
			os.Exit(1)
		}

		last, err := db.LastRun(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading sync history: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n%s Card store\n", ui.RenderAccent("📇"))
		fmt.Printf("   Location: %s\n", path)
		fmt.Printf("   Size: %.2f KB\n", float64(info.Size())/1024)
		fmt.Printf("   Cards: %d\n", count)
		if last == nil {
			fmt.Printf("   Last sync: %s\n\n", ui.RenderMuted("never"))
			return
		}
		fmt.Printf("   Last sync: %s (%d inserted, %d updated)\n\n",
			last.CommittedAt.Local().Format(time.DateTime), last.Inserted, last.Updated)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
