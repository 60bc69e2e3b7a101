package cli

import (
	"github.com/spf13/cobra"

	"github.com/tansive/tablelake/internal/engine"
)

var listTablesCmd = &cobra.Command{
	Use:   "list-tables",
	Short: "List tables in a tenant's namespace (LIST_TABLES)",
	Long: `Example:
  tablelakectl list-tables -t acme -n sales`,
	RunE: runListTables,
}

func runListTables(cmd *cobra.Command, args []string) error {
	return dispatchAndPrint(cmd, engine.Envelope{
		Operation: engine.OpListTables,
		TenantID:  flagTenant,
		Namespace: flagNamespace,
	})
}

func init() {
	rootCmd.AddCommand(listTablesCmd)
}
