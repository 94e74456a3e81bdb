package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validBenchmark() *Benchmark {
	return &Benchmark{
		Name:              "simple_query",
		Tools:             []string{ToolBuiltin},
		ExecutionStrategy: StrategyRequestsPerSecond,
		Query:             "query { films { title } }",
		RPS:               100,
		Duration:          "30s",
	}
}

func validConfig() *GlobalConfig {
	return &GlobalConfig{
		URL:     "http://localhost:8080/v1/graphql",
		Queries: []*Benchmark{validBenchmark()},
	}
}

func hasError(err error, kind ErrorKind, field string) bool {
	var cerrs *ConfigErrors
	if !errors.As(err, &cerrs) {
		return false
	}
	for _, e := range cerrs.Errors {
		if e.Kind == kind && strings.HasSuffix(e.Field, field) {
			return true
		}
	}
	return false
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRequiresURL(t *testing.T) {
	cfg := validConfig()
	cfg.URL = ""
	err := cfg.Validate()
	if !hasError(err, KindMissingField, "url") {
		t.Errorf("Validate() = %v, want missing_field on url", err)
	}
}

func TestValidateRequiresBenchmarks(t *testing.T) {
	cfg := validConfig()
	cfg.Queries = nil
	err := cfg.Validate()
	if !hasError(err, KindMissingField, "queries") {
		t.Errorf("Validate() = %v, want missing_field on queries", err)
	}
}

func TestValidateRequestsPerSecond(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Benchmark)
		kind   ErrorKind
		field  string
	}{
		{
			name:   "missing duration",
			mutate: func(b *Benchmark) { b.Duration = "" },
			kind:   KindMissingField,
			field:  "duration",
		},
		{
			name:   "unparseable duration",
			mutate: func(b *Benchmark) { b.Duration = "thirty seconds" },
			kind:   KindInvalidRange,
			field:  "duration",
		},
		{
			name:   "missing rps",
			mutate: func(b *Benchmark) { b.RPS = 0 },
			kind:   KindMissingField,
			field:  "rps",
		},
		{
			name:   "negative rps",
			mutate: func(b *Benchmark) { b.RPS = -10 },
			kind:   KindInvalidRange,
			field:  "rps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg.Queries[0])
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !hasError(err, tt.kind, tt.field) {
				t.Errorf("Validate() = %v, want %s on %s", err, tt.kind, tt.field)
			}
		})
	}
}

func TestValidateFixedRequestNumber(t *testing.T) {
	cfg := validConfig()
	b := cfg.Queries[0]
	b.ExecutionStrategy = StrategyFixedRequestNumber
	b.RPS = 0
	b.Duration = ""
	b.Requests = 0

	err := cfg.Validate()
	if !hasError(err, KindMissingField, "requests") {
		t.Errorf("Validate() = %v, want missing_field on requests", err)
	}

	b.Requests = 10000
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil once requests is set", err)
	}
}

func TestValidateMaxRequestsInDuration(t *testing.T) {
	cfg := validConfig()
	b := cfg.Queries[0]
	b.ExecutionStrategy = StrategyMaxRequestsInDuration
	b.RPS = 0
	b.Duration = ""

	err := cfg.Validate()
	if !hasError(err, KindMissingField, "duration") {
		t.Errorf("Validate() = %v, want missing_field on duration", err)
	}

	b.Duration = "1m"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil once duration is set", err)
	}
}

func TestValidateMultiStage(t *testing.T) {
	cfg := validConfig()
	b := cfg.Queries[0]
	b.ExecutionStrategy = StrategyMultiStage
	b.RPS = 0
	b.Duration = ""

	err := cfg.Validate()
	if !hasError(err, KindMissingField, "stages") {
		t.Errorf("Validate() = %v, want missing_field on stages", err)
	}

	b.Stages = []Stage{{Duration: "10s", Target: 50}, {Duration: "", Target: 100}}
	err = cfg.Validate()
	if !hasError(err, KindMissingField, "stages[1].duration") {
		t.Errorf("Validate() = %v, want missing_field on stages[1].duration", err)
	}

	b.Stages[1].Duration = "20s"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil once stages are complete", err)
	}
}

func TestValidateCustom(t *testing.T) {
	cfg := validConfig()
	b := cfg.Queries[0]
	b.ExecutionStrategy = StrategyCustom
	b.Tools = []string{ToolK6}
	b.RPS = 0
	b.Duration = ""

	err := cfg.Validate()
	if !hasError(err, KindMissingField, "options") {
		t.Errorf("Validate() = %v, want missing_field on options", err)
	}

	// Options for a tool the benchmark does not declare.
	b.Options = map[string]map[string]interface{}{
		ToolWrk2: {"rate": 100},
	}
	err = cfg.Validate()
	if !hasError(err, KindInvalidRange, "options") {
		t.Errorf("Validate() = %v, want invalid_range on options", err)
	}

	b.Options = map[string]map[string]interface{}{
		ToolK6: {"vus": 10, "duration": "30s"},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil for covered options", err)
	}
}

func TestValidateUnknownStrategy(t *testing.T) {
	cfg := validConfig()
	cfg.Queries[0].ExecutionStrategy = "RAMP_FOREVER"

	err := cfg.Validate()
	if !hasError(err, KindUnknownStrategy, "execution_strategy") {
		t.Errorf("Validate() = %v, want unknown_strategy", err)
	}
}

func TestValidateUnknownTool(t *testing.T) {
	cfg := validConfig()
	cfg.Queries[0].Tools = []string{"vegeta"}

	err := cfg.Validate()
	if !hasError(err, KindUnknownTool, "tools[0]") {
		t.Errorf("Validate() = %v, want unknown_tool", err)
	}
}

func TestValidateNamesBenchmark(t *testing.T) {
	cfg := validConfig()
	second := validBenchmark()
	second.Name = "broken_query"
	second.Duration = ""
	cfg.Queries = append(cfg.Queries, second)

	err := cfg.Validate()
	var cerrs *ConfigErrors
	if !errors.As(err, &cerrs) {
		t.Fatalf("Validate() = %v, want *ConfigErrors", err)
	}
	found := false
	for _, e := range cerrs.Errors {
		if e.Benchmark == "broken_query" {
			found = true
		}
		if e.Benchmark == "simple_query" {
			t.Errorf("valid benchmark attributed an error: %v", e)
		}
	}
	if !found {
		t.Error("errors do not name the failing benchmark")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	b := cfg.Queries[0]
	b.Query = ""
	b.Duration = ""
	b.RPS = 0

	err := cfg.Validate()
	var cerrs *ConfigErrors
	if !errors.As(err, &cerrs) {
		t.Fatalf("Validate() = %v, want *ConfigErrors", err)
	}
	if len(cerrs.Errors) < 3 {
		t.Errorf("collected %d errors, want at least 3 (query, rps, duration)", len(cerrs.Errors))
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &GlobalConfig{
		URL:     "http://localhost:8080",
		Queries: []*Benchmark{{Name: "q", ExecutionStrategy: StrategyFixedRequestNumber, Requests: 1, Query: "{}"}},
	}
	cfg.ApplyDefaults()

	if cfg.ExecutionMode != ModeSync {
		t.Errorf("ExecutionMode = %q, want %q", cfg.ExecutionMode, ModeSync)
	}
	if cfg.OnError != OnErrorContinue {
		t.Errorf("OnError = %q, want %q", cfg.OnError, OnErrorContinue)
	}
	if got := cfg.Queries[0].Tools; len(got) != 1 || got[0] != ToolBuiltin {
		t.Errorf("Tools = %v, want [%s]", got, ToolBuiltin)
	}
}

func TestMergedHeaders(t *testing.T) {
	b := &Benchmark{Headers: map[string]string{"Authorization": "Bearer b", "X-Extra": "1"}}
	global := map[string]string{"Authorization": "Bearer g", "Content-Type": "application/json"}

	merged := b.MergedHeaders(global)
	if merged["Authorization"] != "Bearer b" {
		t.Errorf("Authorization = %q, want benchmark override", merged["Authorization"])
	}
	if merged["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q, want global value", merged["Content-Type"])
	}
	if merged["X-Extra"] != "1" {
		t.Errorf("X-Extra = %q, want benchmark value", merged["X-Extra"])
	}
}

func TestTotalDuration(t *testing.T) {
	b := validBenchmark()
	d, err := b.TotalDuration()
	if err != nil {
		t.Fatalf("TotalDuration() error: %v", err)
	}
	if d != 30*time.Second {
		t.Errorf("TotalDuration() = %v, want 30s", d)
	}

	b.ExecutionStrategy = StrategyMultiStage
	b.Stages = []Stage{{Duration: "10s", Target: 10}, {Duration: "1m", Target: 100}}
	d, err = b.TotalDuration()
	if err != nil {
		t.Fatalf("TotalDuration() error: %v", err)
	}
	if d != 70*time.Second {
		t.Errorf("TotalDuration() = %v, want 70s", d)
	}
}
