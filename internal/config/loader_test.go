package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
url: http://localhost:8080/v1/graphql
headers:
  X-Hasura-Admin-Secret: secret
execution_mode: ASYNC
extended_hasura_checks: true
basic_histogram:
  buckets: 20
  outlier_bound: 1s
queries:
  - name: search_films
    tools: [builtin, k6]
    execution_strategy: REQUESTS_PER_SECOND
    rps: 100
    duration: 30s
    query: |
      query { films { title } }
  - name: burst
    tools: [autocannon]
    execution_strategy: FIXED_REQUEST_NUMBER
    requests: 5000
    connections: 20
    query: "query { actors { name } }"
    variables:
      limit: 10
`

func TestParseYAML(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML), "bench.yaml")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if cfg.URL != "http://localhost:8080/v1/graphql" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.ExecutionMode != ModeAsync {
		t.Errorf("ExecutionMode = %q, want ASYNC", cfg.ExecutionMode)
	}
	if cfg.OnError != OnErrorContinue {
		t.Errorf("OnError = %q, want default continue", cfg.OnError)
	}
	if !cfg.ExtendedHasuraChecks {
		t.Error("ExtendedHasuraChecks = false, want true")
	}
	if cfg.BasicHistogram.Buckets != 20 {
		t.Errorf("BasicHistogram.Buckets = %d, want 20", cfg.BasicHistogram.Buckets)
	}
	if got := cfg.BasicHistogram.OutlierBound.Value(0); got != time.Second {
		t.Errorf("BasicHistogram.OutlierBound = %v, want 1s", got)
	}

	if len(cfg.Queries) != 2 {
		t.Fatalf("len(Queries) = %d, want 2", len(cfg.Queries))
	}

	first := cfg.Queries[0]
	if first.Name != "search_films" {
		t.Errorf("Queries[0].Name = %q", first.Name)
	}
	if first.ExecutionStrategy != StrategyRequestsPerSecond {
		t.Errorf("Queries[0].ExecutionStrategy = %q", first.ExecutionStrategy)
	}
	if first.RPS != 100 {
		t.Errorf("Queries[0].RPS = %d, want 100", first.RPS)
	}
	if !strings.Contains(first.Query, "films") {
		t.Errorf("Queries[0].Query = %q, want the GraphQL document", first.Query)
	}
	if len(first.Tools) != 2 || first.Tools[0] != ToolBuiltin || first.Tools[1] != ToolK6 {
		t.Errorf("Queries[0].Tools = %v", first.Tools)
	}

	second := cfg.Queries[1]
	if second.Requests != 5000 {
		t.Errorf("Queries[1].Requests = %d, want 5000", second.Requests)
	}
	if second.Connections != 20 {
		t.Errorf("Queries[1].Connections = %d, want 20", second.Connections)
	}
	if v, ok := second.Variables["limit"]; !ok || v != 10 {
		t.Errorf("Queries[1].Variables[limit] = %v, want 10", v)
	}
}

func TestParseJSON(t *testing.T) {
	data := `{
		"url": "http://localhost:8080/v1/graphql",
		"queries": [
			{
				"name": "q1",
				"tools": ["wrk2"],
				"execution_strategy": "MAX_REQUESTS_IN_DURATION",
				"duration": "10s",
				"query": "query { films { title } }"
			}
		]
	}`

	cfg, err := Parse([]byte(data), "bench.json")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Queries[0].ExecutionStrategy != StrategyMaxRequestsInDuration {
		t.Errorf("ExecutionStrategy = %q", cfg.Queries[0].ExecutionStrategy)
	}
	if cfg.ExecutionMode != ModeSync {
		t.Errorf("ExecutionMode = %q, want default SYNC", cfg.ExecutionMode)
	}
}

func TestParseRejectsInvalidBenchmark(t *testing.T) {
	data := `
url: http://localhost:8080
queries:
  - name: missing_duration
    tools: [builtin]
    execution_strategy: REQUESTS_PER_SECOND
    rps: 100
    query: "query { films { title } }"
`
	_, err := Parse([]byte(data), "")
	if err == nil {
		t.Fatal("Parse() = nil error, want missing duration failure")
	}
	if !hasError(err, KindMissingField, "duration") {
		t.Errorf("Parse() error = %v, want missing_field on duration", err)
	}
}

func TestParseRejectsShapeMismatch(t *testing.T) {
	// rps must be a number, not a string.
	data := `
url: http://localhost:8080
queries:
  - name: q
    tools: [builtin]
    execution_strategy: REQUESTS_PER_SECOND
    rps: "one hundred"
    duration: 30s
    query: "query { films { title } }"
`
	_, err := Parse([]byte(data), "")
	if err == nil {
		t.Fatal("Parse() = nil error, want schema failure")
	}
	if !strings.Contains(err.Error(), "schema") {
		t.Errorf("Parse() error = %v, want schema mismatch", err)
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("url: [unclosed"), ""); err == nil {
		t.Error("Parse() = nil error, want YAML failure")
	}
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Queries) != 2 {
		t.Errorf("len(Queries) = %d, want 2", len(cfg.Queries))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() = nil error, want read failure")
	}
}

func TestParseDurationString(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"1h30m", 90 * time.Minute, false},
		{"500ms", 500 * time.Millisecond, false},
		{"30", 30 * time.Second, false},
		{"", 0, false},
		{"banana", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDurationString(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDurationString(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDurationString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
