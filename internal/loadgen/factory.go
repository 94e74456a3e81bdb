package loadgen

import (
	"github.com/pkg/errors"

	"github.com/querybench/querybench/internal/config"
)

// ForTool returns the adapter for a backend name.
func ForTool(name string) (Adapter, error) {
	switch name {
	case config.ToolBuiltin:
		return NewBuiltin(), nil
	case config.ToolAutocannon:
		return NewAutocannon(), nil
	case config.ToolK6:
		return NewK6(), nil
	case config.ToolWrk2:
		return NewWrk2(), nil
	}
	return nil, errors.Errorf("unknown tool %q", name)
}

// ToolInfo describes one backend for listings.
type ToolInfo struct {
	Name       string
	Fidelity   Fidelity
	Strategies []string
}

// SupportedTools lists every backend with the strategies it can drive.
func SupportedTools() []ToolInfo {
	all := []string{
		config.StrategyRequestsPerSecond,
		config.StrategyFixedRequestNumber,
		config.StrategyMaxRequestsInDuration,
		config.StrategyMultiStage,
		config.StrategyCustom,
	}
	return []ToolInfo{
		{Name: config.ToolBuiltin, Fidelity: FidelitySamples, Strategies: all},
		{Name: config.ToolK6, Fidelity: FidelitySamples, Strategies: all},
		{Name: config.ToolAutocannon, Fidelity: FidelityDistribution, Strategies: []string{
			config.StrategyRequestsPerSecond,
			config.StrategyFixedRequestNumber,
			config.StrategyMaxRequestsInDuration,
			config.StrategyCustom,
		}},
		{Name: config.ToolWrk2, Fidelity: FidelityDistribution, Strategies: []string{
			config.StrategyRequestsPerSecond,
			config.StrategyCustom,
		}},
	}
}
