package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/destclean/internal/cleaner"
	"github.com/harrison/destclean/internal/logger"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = ".destclean.yaml"

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Debounce is how long the source tree must stay quiet before a rerun
	Debounce time.Duration `yaml:"debounce"`
}

// Config represents destclean configuration options
type Config struct {
	// Destination is the directory to clean
	Destination string `yaml:"destination"`

	// Source is the build source root scanned for outputs
	Source string `yaml:"source"`

	// Extension remaps source extensions to output extensions
	Extension ExtensionValue `yaml:"extension"`

	// Exclude lists destination-relative paths or globs that are never deleted
	Exclude any `yaml:"exclude"`

	// DryRun reports what would be deleted without deleting it
	DryRun bool `yaml:"dry_run"`

	// IncludeDirs emits directory records while scanning the source
	IncludeDirs bool `yaml:"include_dirs"`

	// SkipDirs lists directory names never scanned in the source
	SkipDirs []string `yaml:"skip_dirs"`

	// MaxDepth limits how deep the source is scanned (0 = unlimited, 1 = top level only)
	MaxDepth int `yaml:"max_depth"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir enables per-run log files when non-empty
	LogDir string `yaml:"log_dir"`

	// Report is a path the JSON run report is written to
	Report string `yaml:"report"`

	// HistoryDB is the SQLite run history database ("" disables history)
	HistoryDB string `yaml:"history_db"`

	// Lock serialises concurrent runs against the same destination
	Lock bool `yaml:"lock"`

	// Watch contains watch command configuration
	Watch WatchConfig `yaml:"watch"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Source:    ".",
		SkipDirs:  []string{".git", "node_modules"},
		LogLevel:  "info",
		HistoryDB: DefaultHistoryDB(),
		Lock:      true,
		Watch: WatchConfig{
			Debounce: 250 * time.Millisecond,
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// A missing file yields the defaults; a malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	type yamlConfig struct {
		Destination string         `yaml:"destination"`
		Source      string         `yaml:"source"`
		Extension   ExtensionValue `yaml:"extension"`
		Exclude     any            `yaml:"exclude"`
		DryRun      *bool          `yaml:"dry_run"`
		IncludeDirs *bool          `yaml:"include_dirs"`
		SkipDirs    []string       `yaml:"skip_dirs"`
		MaxDepth    *int           `yaml:"max_depth"`
		LogLevel    string         `yaml:"log_level"`
		LogDir      string         `yaml:"log_dir"`
		Report      string         `yaml:"report"`
		HistoryDB   *string        `yaml:"history_db"`
		Lock        *bool          `yaml:"lock"`
		Watch       struct {
			Debounce string `yaml:"debounce"`
		} `yaml:"watch"`
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if raw.Destination != "" {
		cfg.Destination = raw.Destination
	}
	if raw.Source != "" {
		cfg.Source = raw.Source
	}
	if raw.Extension.IsSet() {
		cfg.Extension = raw.Extension
	}
	if raw.Exclude != nil {
		cfg.Exclude = raw.Exclude
	}
	if raw.DryRun != nil {
		cfg.DryRun = *raw.DryRun
	}
	if raw.IncludeDirs != nil {
		cfg.IncludeDirs = *raw.IncludeDirs
	}
	if raw.SkipDirs != nil {
		cfg.SkipDirs = raw.SkipDirs
	}
	if raw.MaxDepth != nil {
		cfg.MaxDepth = *raw.MaxDepth
	}
	if raw.LogLevel != "" {
		cfg.LogLevel = raw.LogLevel
	}
	if raw.LogDir != "" {
		cfg.LogDir = raw.LogDir
	}
	if raw.Report != "" {
		cfg.Report = raw.Report
	}
	// history_db: "" explicitly disables history
	if raw.HistoryDB != nil {
		cfg.HistoryDB = *raw.HistoryDB
	}
	if raw.Lock != nil {
		cfg.Lock = *raw.Lock
	}
	if raw.Watch.Debounce != "" {
		d, err := time.ParseDuration(raw.Watch.Debounce)
		if err != nil {
			return nil, fmt.Errorf("invalid watch.debounce format %q: %w", raw.Watch.Debounce, err)
		}
		cfg.Watch.Debounce = d
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .destclean.yaml in dir.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, FileName))
}

// Overrides carries CLI flag values; nil fields leave the config untouched.
type Overrides struct {
	Destination *string
	Source      *string
	Extension   *ExtensionValue
	Exclude     []string
	DryRun      *bool
	IncludeDirs *bool
	MaxDepth    *int
	LogLevel    *string
	LogDir      *string
	Report      *string
	HistoryDB   *string
	Lock        *bool
	Debounce    *time.Duration
}

// MergeWithFlags merges CLI flags into the configuration.
// Flags take precedence over config file settings.
func (c *Config) MergeWithFlags(o Overrides) {
	if o.Destination != nil {
		c.Destination = *o.Destination
	}
	if o.Source != nil {
		c.Source = *o.Source
	}
	if o.Extension != nil {
		c.Extension = *o.Extension
	}
	if o.Exclude != nil {
		c.Exclude = o.Exclude
	}
	if o.DryRun != nil {
		c.DryRun = *o.DryRun
	}
	if o.IncludeDirs != nil {
		c.IncludeDirs = *o.IncludeDirs
	}
	if o.MaxDepth != nil {
		c.MaxDepth = *o.MaxDepth
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.LogDir != nil {
		c.LogDir = *o.LogDir
	}
	if o.Report != nil {
		c.Report = *o.Report
	}
	if o.HistoryDB != nil {
		c.HistoryDB = *o.HistoryDB
	}
	if o.Lock != nil {
		c.Lock = *o.Lock
	}
	if o.Debounce != nil {
		c.Watch.Debounce = *o.Debounce
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Destination) == "" {
		return fmt.Errorf("destination is required (set it in %s or pass --dest)", FileName)
	}
	if !logger.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: %s", c.LogLevel, strings.Join(logger.ValidLevels, ", "))
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0, got %v", c.Watch.Debounce)
	}
	if _, err := c.Normalized(); err != nil {
		return err
	}
	return nil
}

// Options converts the configuration into cleaner options.
func (c *Config) Options() cleaner.Options {
	return cleaner.Options{
		Extension: c.Extension.Value(),
		Exclude:   c.Exclude,
		DryRun:    c.DryRun,
	}
}

// Normalized runs the cleaner's normalizer over the configuration.
func (c *Config) Normalized() (*cleaner.NormalizedConfig, error) {
	return cleaner.Normalize(c.Destination, c.Options())
}
