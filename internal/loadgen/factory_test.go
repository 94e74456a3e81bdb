package loadgen

import (
	"testing"

	"github.com/querybench/querybench/internal/config"
)

func TestForTool(t *testing.T) {
	tests := []struct {
		name string
		tool string
	}{
		{"builtin", config.ToolBuiltin},
		{"autocannon", config.ToolAutocannon},
		{"k6", config.ToolK6},
		{"wrk2", config.ToolWrk2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ForTool(tt.tool)
			if err != nil {
				t.Fatalf("ForTool(%s) error = %v", tt.tool, err)
			}
			if a.Name() != tt.tool {
				t.Errorf("Name() = %s, want %s", a.Name(), tt.tool)
			}
		})
	}
}

func TestForToolUnknown(t *testing.T) {
	if _, err := ForTool("vegeta"); err == nil {
		t.Fatal("ForTool(vegeta) error = nil, want unknown tool error")
	}
}

func TestSupportedToolsResolve(t *testing.T) {
	infos := SupportedTools()
	if len(infos) != 4 {
		t.Fatalf("SupportedTools() = %d entries, want 4", len(infos))
	}

	for _, info := range infos {
		a, err := ForTool(info.Name)
		if err != nil {
			t.Fatalf("ForTool(%s) error = %v", info.Name, err)
		}
		if a.Fidelity() != info.Fidelity {
			t.Errorf("%s fidelity = %v, want %v", info.Name, a.Fidelity(), info.Fidelity)
		}
		if len(info.Strategies) == 0 {
			t.Errorf("%s lists no strategies", info.Name)
		}
	}
}
