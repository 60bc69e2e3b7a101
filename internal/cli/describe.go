package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tansive/tablelake/internal/engine"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show a table's schema, properties, and current snapshot (DESCRIBE_TABLE)",
	Long: `Example:
  tablelakectl describe -t acme -n sales --table orders`,
	RunE: runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	if flagTable == "" {
		return fmt.Errorf("--table is required")
	}
	return dispatchAndPrint(cmd, engine.Envelope{
		Operation: engine.OpDescribeTable,
		TenantID:  flagTenant,
		Namespace: flagNamespace,
		Table:     flagTable,
	})
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
