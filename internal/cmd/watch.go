package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harrison/destclean/internal/cleaner"
	"github.com/harrison/destclean/internal/deleter"
	"github.com/harrison/destclean/internal/watcher"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Clean once, then again whenever the source tree changes",
		Long: `Run a clean, then watch the source tree and repeat the clean each time
it settles after a change. Press Ctrl+C to stop.

Examples:
  destclean watch --source src --dest lib --ext-map .coffee=.js
  destclean watch -s src -d lib --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}

	addRunFlags(cmd)
	addRecordFlags(cmd)
	cmd.Flags().Duration("debounce", 0, "Quiet period after a change before cleaning again (default from config: 250ms)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	if fromStdin, _ := cmd.Flags().GetBool("stdin"); fromStdin {
		return fmt.Errorf("--stdin cannot be used with watch")
	}

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := watcher.Options{Debounce: cfg.Watch.Debounce, SkipNames: cfg.SkipDirs}
	if rel, nested := nestedPath(cfg.Source, cfg.Destination); nested {
		opts.SkipPaths = append(opts.SkipPaths, rel)
	}

	w, err := watcher.New(cfg.Source, opts)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.Source, err)
	}
	defer w.Close()

	r := &runner{cfg: cfg, log: log, deleter: deleter.New()}
	clean := func() {
		records, err := loadRecords(cmd, cfg)
		if err != nil {
			log.LogError(err.Error())
			return
		}
		if _, err := r.cleanOnce(ctx, records); err != nil && !errors.Is(err, cleaner.ErrAborted) {
			log.LogError(err.Error())
		}
	}

	clean()
	log.LogInfo(fmt.Sprintf("watching %s for changes", cfg.Source))

	for {
		select {
		case <-ctx.Done():
			log.LogInfo("watch stopped")
			return nil
		case <-w.Changes():
			clean()
		case err := <-w.Errors():
			log.LogWarn(fmt.Sprintf("watch error: %v", err))
		}
	}
}
