package main

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mnemosync/mnemosync/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "maint",
	Short:   "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file, MNEMOSYNC_*
environment variables and flags have been applied. The output can be saved
as a config file.`,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")

		if cfg.Source != "" {
			fmt.Fprintf(os.Stderr, "# loaded from %s\n", cfg.Source)
		}
		if err := renderConfig(os.Stdout, cfg, format); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	configShowCmd.Flags().StringP("format", "f", "yaml", "Output format: yaml or toml")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func renderConfig(w io.Writer, c *config.Config, format string) error {
	view := c.Display()

	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case "toml":
		if err := toml.NewEncoder(w).Encode(view); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want yaml or toml)", format)
	}
}
