package cmd

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/harrison/destclean/internal/cleaner"
	"github.com/harrison/destclean/internal/config"
	"github.com/harrison/destclean/internal/fileutil"
	"github.com/harrison/destclean/internal/logger"
	"github.com/spf13/cobra"
)

// addRunFlags registers the flags shared by every command that performs or
// previews a cleaning run.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: "+config.FileName+")")
	cmd.Flags().StringP("dest", "d", "", "Destination directory to clean")
	cmd.Flags().StringP("source", "s", "", "Source root whose entries are kept (default: .)")
	cmd.Flags().StringSlice("ext", nil, "Output extension(s) replacing every source extension (e.g. .js or .js,.map)")
	cmd.Flags().StringArray("ext-map", nil, "Extension mapping from=to[,to...] (repeatable, e.g. .coffee=.js,.map)")
	cmd.Flags().StringSlice("exclude", nil, "Destination-relative path or glob never deleted (repeatable)")
	cmd.Flags().Bool("dry-run", false, "Report what would be deleted without deleting anything")
	cmd.Flags().Bool("include-dirs", false, "Treat source directories as entries too")
	cmd.Flags().Int("max-depth", 0, "Limit how deep the source is scanned (0 = unlimited, 1 = top level only)")
	cmd.Flags().Bool("stdin", false, "Read source entries from stdin, one relative path per line")
	cmd.Flags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
	cmd.Flags().String("log-dir", "", "Directory for per-run log files")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress console output")
}

// addRecordFlags registers the flags of commands that actually run a clean.
func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().String("report", "", "Write a JSON run report to this path")
	cmd.Flags().String("history-db", "", "Run history database path")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")
	cmd.Flags().Bool("no-lock", false, "Do not lock the destination against concurrent runs")
}

// loadConfig loads the config file selected by --config (or .destclean.yaml
// in the working directory) and applies every flag the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	overrides, err := overridesFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	cfg.MergeWithFlags(overrides)
	return cfg, nil
}

// loadRunConfig is loadConfig followed by validation.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func overridesFromFlags(cmd *cobra.Command) (config.Overrides, error) {
	flags := cmd.Flags()
	o := config.Overrides{
		Destination: stringFlag(cmd, "dest"),
		Source:      stringFlag(cmd, "source"),
		DryRun:      boolFlag(cmd, "dry-run"),
		IncludeDirs: boolFlag(cmd, "include-dirs"),
		LogLevel:    stringFlag(cmd, "log-level"),
		LogDir:      stringFlag(cmd, "log-dir"),
		Report:      stringFlag(cmd, "report"),
		HistoryDB:   stringFlag(cmd, "history-db"),
	}

	if flags.Changed("ext") || flags.Changed("ext-map") {
		exts, _ := flags.GetStringSlice("ext")
		mappings, _ := flags.GetStringArray("ext-map")
		ext, err := config.ParseExtensionFlags(exts, mappings)
		if err != nil {
			return config.Overrides{}, err
		}
		o.Extension = &ext
	}
	if flags.Changed("max-depth") {
		depth, err := flags.GetInt("max-depth")
		if err != nil {
			return config.Overrides{}, err
		}
		o.MaxDepth = &depth
	}
	if flags.Changed("exclude") {
		o.Exclude, _ = flags.GetStringSlice("exclude")
	}
	if noHistory, _ := flags.GetBool("no-history"); noHistory {
		disabled := ""
		o.HistoryDB = &disabled
	}
	if noLock, _ := flags.GetBool("no-lock"); noLock {
		unlocked := false
		o.Lock = &unlocked
	}
	if flags.Changed("debounce") {
		d, err := flags.GetDuration("debounce")
		if err != nil {
			return config.Overrides{}, err
		}
		o.Debounce = &d
	}
	return o, nil
}

// stringFlag returns a pointer to the flag value only when the user set it.
func stringFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil
	}
	return &v
}

func boolFlag(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return nil
	}
	return &v
}

// newLogger builds the run logger: console output unless --quiet, plus a
// file logger when a log directory is configured. The returned func closes
// any log file.
func newLogger(cmd *cobra.Command, cfg *config.Config) (logger.Logger, func(), error) {
	quiet, _ := cmd.Flags().GetBool("quiet")

	var loggers logger.MultiLogger
	if !quiet {
		loggers = append(loggers, logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel))
	}

	cleanup := func() {}
	if cfg.LogDir != "" {
		fileLogger, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		loggers = append(loggers, fileLogger)
		cleanup = func() { fileLogger.Close() }
	}

	switch len(loggers) {
	case 0:
		return logger.NewNoOpLogger(), cleanup, nil
	case 1:
		return loggers[0], cleanup, nil
	}
	return loggers, cleanup, nil
}

// loadRecords returns the source entries for one run, either read from stdin
// or scanned from the configured source root.
func loadRecords(cmd *cobra.Command, cfg *config.Config) ([]cleaner.FileRecord, error) {
	if fromStdin, _ := cmd.Flags().GetBool("stdin"); fromStdin {
		return fileutil.ReadRecords(cmd.InOrStdin())
	}

	records, err := fileutil.ScanRecords(cfg.Source, fileutil.ScanOptions{
		IncludeDirs: cfg.IncludeDirs,
		ExcludeDirs: cfg.SkipDirs,
		MaxDepth:    cfg.MaxDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan source %s: %w", cfg.Source, err)
	}
	return withoutDestination(records, cfg.Source, cfg.Destination), nil
}

// withoutDestination drops the entries of a destination nested inside the
// source tree; outputs must not protect themselves.
func withoutDestination(records []cleaner.FileRecord, source, dest string) []cleaner.FileRecord {
	rel, ok := nestedPath(source, dest)
	if !ok {
		return records
	}

	kept := make([]cleaner.FileRecord, 0, len(records))
	for _, rec := range records {
		if rec.RelativePath == rel || strings.HasPrefix(rec.RelativePath, rel+"/") {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// nestedPath reports the slash-separated path of dest below source.
func nestedPath(source, dest string) (string, bool) {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return "", false
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absSource, absDest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// protectArtifacts keeps the files destclean itself writes during a run
// (report, history database, log directory) when they lie inside the
// destination.
func protectArtifacts(cfg *config.Config, normalized *cleaner.NormalizedConfig) {
	keep := func(p string, suffixes ...string) {
		rel, ok := nestedPath(cfg.Destination, p)
		if !ok {
			return
		}
		for _, suffix := range suffixes {
			normalized.Excludes = append(normalized.Excludes, path.Join(normalized.Destination, rel)+suffix)
		}
	}

	if cfg.Report != "" {
		keep(cfg.Report, "")
	}
	if cfg.HistoryDB != "" {
		keep(cfg.HistoryDB, "", "-wal", "-shm", "-journal")
	}
	if cfg.LogDir != "" {
		keep(cfg.LogDir, "", "/**")
	}
}
