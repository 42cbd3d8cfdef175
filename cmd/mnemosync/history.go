package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/mnemosync/mnemosync/internal/store"
	"github.com/mnemosync/mnemosync/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: "maint",
	Short:   "List committed sync runs",
	Long: `List committed sync runs, newest first.

--since accepts a date (2024-05-01), an RFC 3339 timestamp, or a phrase
such as "yesterday" or "3 days ago".`,
	Run: func(cmd *cobra.Command, args []string) {
		sinceText, _ := cmd.Flags().GetString("since")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.RunFilter{Limit: limit}
		if sinceText != "" {
			since, err := parseSince(sinceText, time.Now())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			filter.Since = since
		}

		path := store.PathFor(cfg.DataDir)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			fmt.Printf("%s No card store at %s\n", ui.RenderWarn("⚠"), path)
			return
		}

		db, err := store.Open(path, logs.Logger("store"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), filter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading sync history: %v\n", err)
			os.Exit(1)
		}

		if len(runs) == 0 {
			fmt.Println(ui.RenderMuted("No sync runs"))
			return
		}
		for _, run := range runs {
			fmt.Printf("%s  %s  %d inserted, %d updated\n",
				ui.RenderMuted(fmt.Sprintf("#%d", run.ID)),
				run.CommittedAt.Local().Format(time.DateTime),
				run.Inserted, run.Updated)
		}
	},
}

func init() {
	historyCmd.Flags().String("since", "", `Only runs committed after this time (e.g. "yesterday")`)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

// parseSince resolves a --since value relative to now. Absolute dates are
// tried first, then English phrases.
func parseSince(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)

	for _, layout := range []string{time.RFC3339, time.DateTime, time.DateOnly} {
		if t, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse --since %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("failed to parse --since %q: not a date or time phrase", text)
	}
	return r.Time, nil
}
