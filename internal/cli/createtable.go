package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tansive/tablelake/internal/engine"
)

var (
	createTableFile        string
	createTableIfNotExists bool
)

var createTableCmd = &cobra.Command{
	Use:   "create-table",
	Short: "Create a table from a JSON schema document (CREATE_TABLE)",
	Long: `Create a table from a JSON schema document.

Example:
  tablelakectl create-table -t acme -n sales --table orders -f schema.json`,
	RunE: runCreateTable,
}

func runCreateTable(cmd *cobra.Command, args []string) error {
	if flagTable == "" {
		return fmt.Errorf("--table is required")
	}
	schema, err := readPayload(createTableFile)
	if err != nil {
		return err
	}

	return dispatchAndPrint(cmd, engine.Envelope{
		Operation:   engine.OpCreateTable,
		TenantID:    flagTenant,
		Namespace:   flagNamespace,
		Table:       flagTable,
		Schema:      schema,
		IfNotExists: createTableIfNotExists,
	})
}

func init() {
	createTableCmd.Flags().StringVarP(&createTableFile, "file", "f", "", "path to a JSON schema document, or - for stdin")
	createTableCmd.MarkFlagRequired("file")
	createTableCmd.Flags().BoolVar(&createTableIfNotExists, "if-not-exists", false, "do not fail if the table already exists")
	rootCmd.AddCommand(createTableCmd)
}
