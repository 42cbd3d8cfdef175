// Package config resolves mnemosync settings.
//
// Precedence, lowest to highest: built-in defaults, the config file,
// MNEMOSYNC_* environment variables (a .env file in the working directory is
// loaded into the environment first), and command-line flags.
//
// The config file is mnemosync.{yaml,toml,json} in the working directory or
// in $XDG_CONFIG_HOME/mnemosync, or any file passed with --config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys double as flag names.
const (
	KeyDataDir       = "data-dir"
	KeyTSV           = "tsv"
	KeyDryRun        = "dry-run"
	KeyTagSeparator  = "tag-separator"
	KeyLogFile       = "log-file"
	KeyNoColor       = "no-color"
	KeyDebounce      = "debounce"
	KeyDashboardPort = "dashboard-port"
)

// EnvPrefix is prepended to every environment variable, e.g. MNEMOSYNC_DATA_DIR.
const EnvPrefix = "MNEMOSYNC"

// Defaults: a ./data store, ./test.tsv input, and dry-run on.
const (
	DefaultDataDir  = "./data"
	DefaultTSV      = "./test.tsv"
	DefaultDryRun   = true
	DefaultDebounce = 500 * time.Millisecond
)

// Config holds the resolved settings.
type Config struct {
	DataDir       string
	TSV           string
	DryRun        bool
	TagSeparator  string
	LogFile       string
	NoColor       bool
	Debounce      time.Duration
	DashboardPort int

	// Source is the config file that was read, empty if none.
	Source string
}

// Display is the config-file shaped view of a Config, keyed like the
// file and the flags.
type Display struct {
	DataDir       string `yaml:"data-dir" toml:"data-dir"`
	TSV           string `yaml:"tsv" toml:"tsv"`
	DryRun        bool   `yaml:"dry-run" toml:"dry-run"`
	TagSeparator  string `yaml:"tag-separator" toml:"tag-separator"`
	LogFile       string `yaml:"log-file" toml:"log-file"`
	NoColor       bool   `yaml:"no-color" toml:"no-color"`
	Debounce      string `yaml:"debounce" toml:"debounce"`
	DashboardPort int    `yaml:"dashboard-port" toml:"dashboard-port"`
}

// Display returns c in the shape of a config file.
func (c *Config) Display() Display {
	return Display{
		DataDir:       c.DataDir,
		TSV:           c.TSV,
		DryRun:        c.DryRun,
		TagSeparator:  c.TagSeparator,
		LogFile:       c.LogFile,
		NoColor:       c.NoColor,
		Debounce:      c.Debounce.String(),
		DashboardPort: c.DashboardPort,
	}
}

// Loader wraps a viper instance with mnemosync's defaults and search paths.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a Loader with defaults and environment binding set up.
func NewLoader() *Loader {
	v := viper.New()

	v.SetDefault(KeyDataDir, DefaultDataDir)
	v.SetDefault(KeyTSV, DefaultTSV)
	v.SetDefault(KeyDryRun, DefaultDryRun)
	v.SetDefault(KeyTagSeparator, "")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyNoColor, false)
	v.SetDefault(KeyDebounce, DefaultDebounce)
	v.SetDefault(KeyDashboardPort, 0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// BindFlags makes explicitly set flags override every other source. Flags
// whose name is not a config key are ignored by Load.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	if err := l.v.BindPFlags(flags); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

// Load reads .env, then the config file, and resolves the final settings.
// configFile may be empty to search the default locations; a missing
// explicit file is an error, a missing default one is not.
func (l *Loader) Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName("mnemosync")
		l.v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(dir, "mnemosync"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		DataDir:       l.v.GetString(KeyDataDir),
		TSV:           l.v.GetString(KeyTSV),
		DryRun:        l.v.GetBool(KeyDryRun),
		TagSeparator:  l.v.GetString(KeyTagSeparator),
		LogFile:       l.v.GetString(KeyLogFile),
		NoColor:       l.v.GetBool(KeyNoColor),
		Debounce:      l.v.GetDuration(KeyDebounce),
		DashboardPort: l.v.GetInt(KeyDashboardPort),
		Source:        l.v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved settings.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%s must not be empty", KeyDataDir)
	}
	if c.TSV == "" {
		return fmt.Errorf("%s must not be empty", KeyTSV)
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("%s must be positive (got %s)", KeyDebounce, c.Debounce)
	}
	if c.DashboardPort < 0 || c.DashboardPort > 65535 {
		return fmt.Errorf("%s must be between 0 and 65535 (got %d)", KeyDashboardPort, c.DashboardPort)
	}
	return nil
}
