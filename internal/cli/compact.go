package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tansive/tablelake/internal/engine"
)

var (
	compactForce           bool
	compactMaxFiles        int
	compactPartitionFilter string
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Run the explicit small-file compaction procedure on a table (COMPACT)",
	Long: `Rewrite a table's small files into target-sized files.

Example:
  tablelakectl compact -t acme -n sales --table orders --force`,
	RunE: runCompact,
}

func runCompact(cmd *cobra.Command, args []string) error {
	if flagTable == "" {
		return fmt.Errorf("--table is required")
	}

	return dispatchAndPrint(cmd, engine.Envelope{
		Operation:       engine.OpCompact,
		TenantID:        flagTenant,
		Namespace:       flagNamespace,
		Table:           flagTable,
		Force:           compactForce,
		MaxFiles:        compactMaxFiles,
		PartitionFilter: compactPartitionFilter,
	})
}

func init() {
	compactCmd.Flags().BoolVar(&compactForce, "force", false, "compact even if fewer small files than min_files_to_compact")
	compactCmd.Flags().IntVar(&compactMaxFiles, "max-files", 0, "cap on files rewritten in one run")
	compactCmd.Flags().StringVar(&compactPartitionFilter, "partition-filter", "", "restrict candidates to a partition prefix")
	rootCmd.AddCommand(compactCmd)
}
