package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tansive/tablelake/internal/engine"
)

var (
	queryFiltersFile string
	queryLimit       int
	queryOffset      int
	queryIncludeDel  bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a query against a table (QUERY)",
	Long: `Run a query against a table. --filters points to a JSON document
in either the list form or the legacy {field:{op:value}} map form.

Example:
  tablelakectl query -t acme -n sales --table orders --filters filters.json --limit 10`,
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	if flagTable == "" {
		return fmt.Errorf("--table is required")
	}

	env := engine.Envelope{
		Operation:      engine.OpQuery,
		TenantID:       flagTenant,
		Namespace:      flagNamespace,
		Table:          flagTable,
		IncludeDeleted: queryIncludeDel,
	}
	if queryLimit > 0 {
		env.Limit = &queryLimit
	}
	if queryOffset > 0 {
		env.Offset = &queryOffset
	}
	if queryFiltersFile != "" {
		raw, err := readPayload(queryFiltersFile)
		if err != nil {
			return err
		}
		env.Filters = raw
	}

	return dispatchAndPrint(cmd, env)
}

func init() {
	queryCmd.Flags().StringVar(&queryFiltersFile, "filters", "", "path to a JSON filters document, or - for stdin")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "maximum rows to return")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "rows to skip before returning")
	queryCmd.Flags().BoolVar(&queryIncludeDel, "include-deleted", false, "include soft-deleted rows")
	rootCmd.AddCommand(queryCmd)
}
