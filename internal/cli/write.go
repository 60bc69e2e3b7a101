package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tansive/tablelake/internal/engine"
)

var writeFile string

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Append a batch of rows to a table (WRITE)",
	Long: `Append a batch of rows to a table. The file must contain a JSON
array of row objects.

Example:
  tablelakectl write -t acme -n sales --table orders -f rows.json`,
	RunE: runWrite,
}

func runWrite(cmd *cobra.Command, args []string) error {
	if flagTable == "" {
		return fmt.Errorf("--table is required")
	}
	raw, err := readPayload(writeFile)
	if err != nil {
		return err
	}
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("rows must be a JSON array of objects: %w", err)
	}

	return dispatchAndPrint(cmd, engine.Envelope{
		Operation: engine.OpWrite,
		TenantID:  flagTenant,
		Namespace: flagNamespace,
		Table:     flagTable,
		Rows:      rows,
	})
}

func init() {
	writeCmd.Flags().StringVarP(&writeFile, "file", "f", "", "path to a JSON array of rows, or - for stdin")
	writeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(writeCmd)
}
