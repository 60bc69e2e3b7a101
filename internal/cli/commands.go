// Package cli implements tablelakectl: a cobra-based operator tool that
// drives an in-process internal/engine.Engine directly, the same way
// the teacher's own internal/cli package drives the Tansive server over
// HTTP — here there is no transport in between, since §1 puts the
// request transport out of the engine's scope but an operator still
// needs a way to issue operations by hand. Six operations have a
// subcommand (create-table, write, query, compact, describe,
// list-tables); UPDATE, DELETE and HARD_DELETE have none.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tansive/tablelake/internal/engine"
)

var (
	jsonOutput bool
	configFile string
	profileDir string

	flagTenant    string
	flagNamespace string
	flagTable     string
)

var errAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

var rootCmd = &cobra.Command{
	Use:   "tablelakectl [command] [flags]",
	Short: "tablelakectl drives a tablelake engine instance from the command line",
	Long: `tablelakectl is an operator CLI for the tablelake table engine.
It issues six of the table-engine operations (CREATE_TABLE, WRITE,
QUERY, LIST_TABLES, DESCRIBE_TABLE, COMPACT) against an engine instance
wired from a config file; UPDATE, DELETE and HARD_DELETE have no
subcommand.

Examples:
  tablelakectl create-table -t acme -n sales --table orders -f schema.json
  tablelakectl write -t acme -n sales --table orders -f rows.json
  tablelakectl query -t acme -n sales --table orders --filters filters.json
  tablelakectl compact -t acme -n sales --table orders
  tablelakectl list-tables -t acme -n sales`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "tablelake.conf", "path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&profileDir, "profile-dir", "", "directory of YAML environment profiles")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "print the raw response envelope as JSON")

	rootCmd.PersistentFlags().StringVarP(&flagTenant, "tenant", "t", "", "tenant ID")
	rootCmd.PersistentFlags().StringVarP(&flagNamespace, "namespace", "n", "", "namespace")
	rootCmd.PersistentFlags().StringVar(&flagTable, "table", "", "table name")
}

// NewRootCmd returns the assembled tablelakectl command tree.
func NewRootCmd() *cobra.Command {
	return rootCmd
}

// Execute runs the CLI and exits the process on failure, the way
// cmd/tablelakectl's main.go expects.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errAlreadyHandled) {
			os.Exit(1)
		}
		errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// printResponse renders an engine.Response either as raw JSON
// (--json) or as a short human summary.
func printResponse(resp engine.Response) error {
	if jsonOutput {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if !resp.Success {
		errorLabel.Printf("%s: %s\n", resp.Error.Code, resp.Error.Message)
		return errAlreadyHandled
	}

	okLabel.Printf("ok")
	fmt.Printf(" (%dms, request %s)\n", resp.ExecutionTimeMS, resp.RequestID)
	if resp.Data != nil {
		out, err := json.MarshalIndent(resp.Data, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	if resp.CompactionRecommended != nil && *resp.CompactionRecommended {
		fmt.Printf("compaction recommended: %d small files\n", *resp.SmallFilesCount)
	}
	return nil
}

// dispatchAndPrint wires an engine for this invocation, runs env, and
// prints the result. Every subcommand's RunE ends with this call.
func dispatchAndPrint(cmd *cobra.Command, env engine.Envelope) error {
	eng, closeFn, err := buildEngine(configFile, profileDir)
	if err != nil {
		return err
	}
	defer closeFn()

	resp := eng.Dispatch(cmd.Context(), env)
	return printResponse(resp)
}

// readPayload reads a JSON payload from file, or from stdin when file
// is "-".
func readPayload(file string) (json.RawMessage, error) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return json.RawMessage(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return json.RawMessage(data), nil
}
