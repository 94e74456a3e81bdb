package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "querybench",
	Short:   "Benchmark query endpoints with interchangeable load generators",
	Version: version,
	Long: `Querybench drives GraphQL and query endpoints through a set of load
generation backends (a built-in Go generator, autocannon, k6, wrk2),
normalizes their latency output into one histogram model, and emits
comparable JSON reports.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print help
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	// Add subcommands to root command
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(validateCmd)
	RootCmd.AddCommand(toolsCmd)
}
