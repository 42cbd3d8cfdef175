package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mnemosync/mnemosync/internal/config"
	"github.com/mnemosync/mnemosync/internal/logging"
	"github.com/mnemosync/mnemosync/internal/ui"
)

var (
	configFile string

	// set by the root PersistentPreRun
	cfg  *config.Config
	logs *logging.Factory
)

var rootCmd = &cobra.Command{
	Use:   "mnemosync",
	Short: "Sync flashcards from a TSV file into a spaced-repetition card store",
	Long: `mnemosync reads a tab-separated table with Front, Back and Tags columns
and reconciles it into a SQLite card store: new fronts are inserted, changed
backs are updated (tags are merged, never removed), and cards that are not in
the table are left alone. Review scheduling state is never touched.

Runs are dry by default; pass --dry-run=false to write.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// cmd.Flags() includes the persistent flags merged in from root
		loader := config.NewLoader()
		if err := loader.BindFlags(cmd.Flags()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		var err error
		cfg, err = loader.Load(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		logs = logging.Setup(logging.Options{File: cfg.LogFile})
		ui.Init(cfg.NoColor)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logs != nil {
			_ = logs.Close()
		}
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "maint", Title: "Maintenance Commands:"},
	)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: mnemosync.{yaml,toml,json} in . or the user config dir)")
	rootCmd.PersistentFlags().String(config.KeyDataDir, config.DefaultDataDir, "Directory holding the card store")
	rootCmd.PersistentFlags().String(config.KeyLogFile, "", "Also write logs to this file (rotated)")
	rootCmd.PersistentFlags().Bool(config.KeyNoColor, false, "Disable colored output")
}

// addSourceFlags registers the flags shared by sync and watch.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String(config.KeyTSV, config.DefaultTSV, "Path to the source table")
	cmd.Flags().Bool(config.KeyDryRun, config.DefaultDryRun, "Print the planned changes without writing them")
	cmd.Flags().String(config.KeyTagSeparator, "", "Split the Tags cell on this separator (default: one tag per row)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
