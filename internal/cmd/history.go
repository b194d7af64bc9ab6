package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/destclean/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent cleaning runs",
		Long: `List the most recent cleaning runs recorded in the history database,
newest first. Only runs for the configured destination are shown when one
is set in the config file or passed with --dest.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .destclean.yaml)")
	cmd.Flags().StringP("dest", "d", "", "Only show runs for this destination")
	cmd.Flags().String("history-db", "", "Run history database path")
	cmd.Flags().IntP("limit", "n", history.DefaultLimit, "Maximum number of runs to show")
	cmd.Flags().Bool("paths", false, "List the deleted paths of each run")
	cmd.Flags().Bool("json", false, "Print runs as JSON")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.HistoryDB == "" {
		return fmt.Errorf("run history is disabled (history_db is empty)")
	}

	if _, err := os.Stat(cfg.HistoryDB); os.IsNotExist(err) {
		fmt.Fprintln(output, "No runs recorded yet")
		return nil
	}

	store, err := history.NewStore(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	destination := ""
	if cfg.Destination != "" {
		destination = path.Clean(filepath.ToSlash(cfg.Destination))
	}
	runs, err := store.ListRuns(cmd.Context(), destination, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(output)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(output, "No runs recorded yet")
		return nil
	}

	showPaths, _ := cmd.Flags().GetBool("paths")
	printRuns(output, runs, showPaths)
	return nil
}

// printRuns formats runs, newest first
func printRuns(w io.Writer, runs []*history.Run, showPaths bool) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "\n=== Recent runs (%d) ===\n\n", len(runs))

	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s  ", run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Destination)
		switch {
		case !run.Success:
			red.Fprint(w, "FAILED")
		case run.DryRun:
			yellow.Fprintf(w, "dry run, %d would be deleted", len(run.Deleted))
		default:
			green.Fprintf(w, "%d deleted", len(run.Deleted))
		}
		gray.Fprintf(w, "  (%d files, %s)\n", run.Files, run.Duration.Round(time.Millisecond))

		if run.ErrorMessage != "" {
			fmt.Fprintf(w, "    error: %s\n", run.ErrorMessage)
		}
		if showPaths {
			for _, p := range run.Deleted {
				fmt.Fprintf(w, "    %s\n", p)
			}
		}
	}
	fmt.Fprintln(w)
}
