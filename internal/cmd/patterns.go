package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/harrison/destclean/internal/cleaner"
	"github.com/spf13/cobra"
)

// NewPatternsCommand creates the patterns command
func NewPatternsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Print the deletion patterns a clean would use",
		Long: `Scan the source tree and print the ordered deletion pattern list, one
pattern per line, without touching the destination.

Plain patterns select candidates for deletion; patterns starting with "!"
protect paths. The first two entries always select the destination's
contents and protect the destination itself.`,
		Args: cobra.NoArgs,
		RunE: runPatterns,
	}

	addRunFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the patterns as a JSON array")

	return cmd
}

func runPatterns(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	normalized, err := cfg.Normalized()
	if err != nil {
		return err
	}
	protectArtifacts(cfg, normalized)

	records, err := loadRecords(cmd, cfg)
	if err != nil {
		return err
	}

	stage := cleaner.NewStage(normalized, nil, nil)
	for _, rec := range records {
		stage.OnFile(rec)
	}
	patterns := stage.Patterns()

	output := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(output)
		enc.SetIndent("", "  ")
		return enc.Encode(patterns)
	}

	for _, p := range patterns {
		fmt.Fprintln(output, p)
	}
	return nil
}
