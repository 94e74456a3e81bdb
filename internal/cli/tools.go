package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/querybench/querybench/internal/config"
	"github.com/querybench/querybench/internal/loadgen"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List load generation backends and where their binaries resolve",
	Long: `Show every supported backend, whether its binary is available, and
which execution strategies it can drive. Binary locations come from the
optional config file, QUERYBENCH_<TOOL>_BIN variables, or $PATH.

  querybench tools
  querybench tools --config bench.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		configFile, _ := cmd.Flags().GetString("config")

		tools, err := resolveTools(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printTools(os.Stdout, tools)
	},
}

// toolStatus is one row of the tools listing.
type toolStatus struct {
	Name       string
	Binary     string
	Available  bool
	Fidelity   loadgen.Fidelity
	Strategies []string
}

// resolveTools checks each backend's binary. The config file is
// optional here; without one only the environment and $PATH apply.
func resolveTools(configFile string) ([]toolStatus, error) {
	toolsCfg := config.ToolsConfig{}
	if configFile != "" {
		cfg, err := config.DecodeFile(configFile)
		if err != nil {
			return nil, err
		}
		toolsCfg = cfg.Tools
	}
	probe := &config.GlobalConfig{Tools: toolsCfg}
	if err := applyEnvOverrides(probe, newEnv()); err != nil {
		return nil, err
	}
	toolsCfg = probe.Tools

	var out []toolStatus
	for _, info := range loadgen.SupportedTools() {
		status := toolStatus{
			Name:       info.Name,
			Fidelity:   info.Fidelity,
			Strategies: info.Strategies,
		}
		if info.Name == config.ToolBuiltin {
			status.Binary = "(built in)"
			status.Available = true
			out = append(out, status)
			continue
		}
		bin := configuredBinary(toolsCfg, info.Name)
		if path, err := exec.LookPath(bin); err == nil {
			status.Binary = path
			status.Available = true
		} else {
			status.Binary = fmt.Sprintf("%s (not found)", bin)
		}
		out = append(out, status)
	}
	return out, nil
}

// configuredBinary returns the configured path for a backend, or its
// conventional binary name for a $PATH lookup. wrk2 installs as wrk.
func configuredBinary(tools config.ToolsConfig, name string) string {
	switch name {
	case config.ToolAutocannon:
		if tools.AutocannonBin != "" {
			return tools.AutocannonBin
		}
		return "autocannon"
	case config.ToolK6:
		if tools.K6Bin != "" {
			return tools.K6Bin
		}
		return "k6"
	case config.ToolWrk2:
		if tools.Wrk2Bin != "" {
			return tools.Wrk2Bin
		}
		return "wrk"
	}
	return name
}

func fidelityLabel(f loadgen.Fidelity) string {
	if f == loadgen.FidelitySamples {
		return "per-request samples"
	}
	return "percentile distribution"
}

func printTools(w io.Writer, tools []toolStatus) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tSTATUS\tBINARY\tFIDELITY\tSTRATEGIES")
	for _, t := range tools {
		status := "available"
		if !t.Available {
			status = "missing"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			t.Name, status, t.Binary, fidelityLabel(t.Fidelity), strings.Join(t.Strategies, ","))
	}
	tw.Flush()
}

func init() {
	toolsCmd.Flags().StringP("config", "c", "", "Benchmark configuration file (for tool binary paths)")
}
