package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/querybench/querybench/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file without running anything",
	Long: `Parse and validate a benchmark configuration. Every problem in the
file is reported, not just the first, so one round trip fixes them all.

  querybench validate --config bench.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		configFile, _ := cmd.Flags().GetString("config")

		if configFile == "" {
			fmt.Println("Error: config file is required")
			cmd.Help()
			return
		}

		os.Exit(validateConfig(configFile, os.Stdout, os.Stderr))
	},
}

// validateConfig checks one file and returns the process exit code,
// listing every configuration error on errOut.
func validateConfig(path string, out, errOut io.Writer) int {
	cfg, err := config.DecodeFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "Error loading config: %v\n", err)
		return 1
	}
	if err := applyEnvOverrides(cfg, newEnv()); err != nil {
		fmt.Fprintf(errOut, "Error applying environment overrides: %v\n", err)
		return 1
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		if cfgErrs, ok := err.(*config.ConfigErrors); ok {
			fmt.Fprintf(errOut, "Configuration is invalid (%d errors):\n", len(cfgErrs.Errors))
			for _, e := range cfgErrs.Errors {
				fmt.Fprintf(errOut, "  - %s\n", e.Error())
			}
		} else {
			fmt.Fprintf(errOut, "Configuration is invalid: %v\n", err)
		}
		return 1
	}

	runs := 0
	for _, b := range cfg.Queries {
		if b != nil {
			runs += len(b.Tools)
		}
	}
	fmt.Fprintf(out, "Configuration is valid: %d benchmarks, %d runs\n", len(cfg.Queries), runs)
	return 0
}

func init() {
	validateCmd.Flags().StringP("config", "c", "", "Benchmark configuration file (YAML or JSON)")
}
