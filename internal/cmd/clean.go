package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/destclean/internal/cleaner"
	"github.com/harrison/destclean/internal/config"
	"github.com/harrison/destclean/internal/deleter"
	"github.com/harrison/destclean/internal/filelock"
	"github.com/harrison/destclean/internal/fileutil"
	"github.com/harrison/destclean/internal/history"
	"github.com/harrison/destclean/internal/logger"
	"github.com/spf13/cobra"
)

// lockTimeout bounds how long a run waits for another run on the same
// destination to finish.
const lockTimeout = 30 * time.Second

// NewCleanCommand creates the clean command
func NewCleanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete destination files that have no source",
		Long: `Scan the source tree and delete every entry under the destination that
does not correspond to a source entry.

Examples:
  # Remove stale files from lib/ built from src/
  destclean clean --source src --dest lib

  # CoffeeScript sources compiled to .js with source maps
  destclean clean -s src -d lib --ext-map .coffee=.js,.js.map

  # Every source extension becomes .js; keep lib/vendor untouched
  destclean clean -s src -d lib --ext .js --exclude 'vendor/**'

  # Preview without deleting
  destclean clean -s src -d lib --dry-run

  # Take the source listing from another tool
  git ls-files src | sed 's|^src/||' | destclean clean -d lib --stdin`,
		Args: cobra.NoArgs,
		RunE: runClean,
	}

	addRunFlags(cmd)
	addRecordFlags(cmd)

	return cmd
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	records, err := loadRecords(cmd, cfg)
	if err != nil {
		return err
	}

	r := &runner{cfg: cfg, log: log, deleter: deleter.New()}
	_, err = r.cleanOnce(cmd.Context(), records)
	return err
}

// runner performs cleaning runs for one configuration.
type runner struct {
	cfg     *config.Config
	log     logger.Logger
	deleter cleaner.Deleter
}

// cleanOnce streams records through a new stage and deletes what they leave
// unprotected. The run is recorded in history and written as a report when
// those are configured.
func (r *runner) cleanOnce(ctx context.Context, records []cleaner.FileRecord) (*cleaner.Report, error) {
	normalized, err := r.cfg.Normalized()
	if err != nil {
		return nil, err
	}
	protectArtifacts(r.cfg, normalized)

	if r.cfg.Lock {
		unlock, err := r.lock(ctx, normalized.Destination)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	r.log.LogDebug(fmt.Sprintf("cleaning %s against %d source entries", normalized.Destination, len(records)))

	startedAt := time.Now()
	stage := cleaner.NewStage(normalized, r.deleter, r.log)

	stop := make(chan struct{})
	defer close(stop)

	report, runErr := stage.Run(ctx, fileutil.Stream(records, stop), nil)
	if errors.Is(runErr, cleaner.ErrAborted) {
		return nil, runErr
	}
	if runErr != nil {
		r.log.LogError(runErr.Error())
		report = &cleaner.Report{
			RunID:       uuid.NewString(),
			Destination: normalized.Destination,
			DryRun:      normalized.DryRun,
			Patterns:    stage.Patterns(),
			Deleted:     []string{},
			Files:       len(records),
			StartedAt:   startedAt,
			Duration:    time.Since(startedAt),
		}
	}

	r.recordHistory(ctx, report, runErr)
	if runErr != nil {
		return nil, runErr
	}

	if r.cfg.Report != "" {
		if err := writeReport(r.cfg.Report, report); err != nil {
			return report, err
		}
		r.log.LogInfo(fmt.Sprintf("report written to %s", r.cfg.Report))
	}

	return report, nil
}

func (r *runner) lock(ctx context.Context, destination string) (func(), error) {
	lockPath, err := config.LockPath(destination)
	if err != nil {
		return nil, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	lock := filelock.NewFileLock(lockPath)
	if err := lock.TryLock(); err != nil {
		if !errors.Is(err, filelock.ErrLocked) {
			return nil, err
		}
		r.log.LogInfo(fmt.Sprintf("waiting for another run on %s", destination))
		if err := lock.Acquire(lockCtx); err != nil {
			return nil, fmt.Errorf("destination %s is busy: %w", destination, err)
		}
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			r.log.LogWarn(err.Error())
		}
	}, nil
}

// recordHistory stores the run; failures only produce a warning.
func (r *runner) recordHistory(ctx context.Context, report *cleaner.Report, runErr error) {
	if r.cfg.HistoryDB == "" {
		return
	}

	store, err := history.NewStore(r.cfg.HistoryDB)
	if err != nil {
		r.log.LogWarn(fmt.Sprintf("run history unavailable: %v", err))
		return
	}
	defer store.Close()

	if err := store.RecordRun(ctx, history.FromReport(report, r.cfg.Source, runErr)); err != nil {
		r.log.LogWarn(fmt.Sprintf("failed to record run: %v", err))
	}
}

func writeReport(path string, report *cleaner.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := filelock.AtomicWrite(path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
