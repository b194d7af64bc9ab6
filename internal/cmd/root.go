package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for destclean
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destclean",
		Short: "Remove stale build outputs from a destination directory",
		Long: `destclean removes files from a build destination that no longer have a
matching source file.

Every source entry protects its counterpart in the destination (after any
extension remapping, e.g. .coffee -> .js) together with all of its parent
directories. Everything else under the destination is deleted, except paths
listed as excludes.

Configuration is loaded from .destclean.yaml if present.
CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewCleanCommand())
	cmd.AddCommand(NewPatternsCommand())
	cmd.AddCommand(NewWatchCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
