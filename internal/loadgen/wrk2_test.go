package loadgen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/querybench/querybench/internal/config"
)

func wrk2Spec(b *config.Benchmark) RunSpec {
	return RunSpec{Benchmark: b, Tool: config.ToolWrk2, URL: "http://localhost:8080/v1/graphql"}
}

const wrk2Fixture = `Running 10s test @ http://localhost:8080/v1/graphql
  2 threads and 10 connections
  Thread calibration: mean lat.: 3.456ms, rate sampling interval: 10ms
  Thread Stats   Avg      Stdev     Max   +/- Stdev
    Latency     3.35ms    1.50ms  12.30ms   68.25%
    Req/Sec    52.31     98.21   333.00     84.21%
  Latency Distribution (HdrHistogram - Recorded Latency)
 50.000%    3.12ms
 75.000%    4.25ms
 90.000%    5.45ms
 99.000%    8.11ms
 99.900%   11.40ms
 99.990%   12.30ms
 99.999%   12.30ms
100.000%   12.30ms

  Detailed Percentile spectrum:
       Value   Percentile   TotalCount 1/(1-Percentile)

       0.921     0.000000            1         1.00
       2.133     0.250000          250         1.33
       3.117     0.500000          500         2.00
       4.247     0.750000          750         4.00
       5.451     0.900000          900        10.00
       8.107     0.990000          990       100.00
      11.399     0.999000          999      1000.00
      12.303     1.000000         1000          inf
#[Mean    =        3.352, StdDeviation   =        1.496]
#[Max     =       12.296, Total count    =         1000]
#[Buckets =           27, SubBuckets     =         2048]
----------------------------------------------------------
  1000 requests in 10.00s, 0.94MB read
  Non-2xx or 3xx responses: 13
Requests/sec:    100.01
Transfer/sec:     96.31KB
`

func TestParseWrk2(t *testing.T) {
	b := &config.Benchmark{Name: "wrk", Query: "query { ok }"}
	events := make(chan SampleEvent, 32)
	collect := drainEvents(events)

	start := time.Now().Add(-10 * time.Second)
	end := time.Now()
	c, err := parseWrk2(context.Background(), wrk2Spec(b), []byte(wrk2Fixture), events, start, end)
	close(events)
	if err != nil {
		t.Fatalf("parseWrk2() error = %v", err)
	}

	if c.Requests != 1000 {
		t.Errorf("Requests = %d, want 1000", c.Requests)
	}
	if c.Failed != 13 {
		t.Errorf("Failed = %d, want 13", c.Failed)
	}
	mb := 0.94
	if want := int64(mb * (1 << 20)); c.TotalBytes != want {
		t.Errorf("TotalBytes = %d, want %d", c.TotalBytes, want)
	}
	if !c.Start.Equal(start) || !c.End.Equal(end) {
		t.Errorf("Start/End = %v/%v, want the run window", c.Start, c.End)
	}

	got := collect()
	var total int64
	var maxLatency time.Duration
	for _, ev := range got {
		if ev.Weight <= 0 {
			t.Fatalf("event weight = %d, want > 0", ev.Weight)
		}
		total += ev.Weight
		if ev.Latency > maxLatency {
			maxLatency = ev.Latency
		}
	}
	if total != 1000 {
		t.Errorf("total replayed weight = %d, want 1000", total)
	}
	if maxLatency != millisToDuration(12.303) {
		t.Errorf("max replayed latency = %v, want 12.303ms", maxLatency)
	}

	// The coarse percentile table above the spectrum must not leak in.
	if len(got) != 8 {
		t.Errorf("distribution rows = %d, want the 8 spectrum rows", len(got))
	}
}

func TestParseWrk2SocketErrors(t *testing.T) {
	out := strings.Replace(wrk2Fixture,
		"  Non-2xx or 3xx responses: 13",
		"  Socket errors: connect 2, read 1, write 0, timeout 4\n  Non-2xx or 3xx responses: 13", 1)

	b := &config.Benchmark{Name: "wrk"}
	events := make(chan SampleEvent, 32)
	collect := drainEvents(events)

	c, err := parseWrk2(context.Background(), wrk2Spec(b), []byte(out), events, time.Now(), time.Now())
	close(events)
	if err != nil {
		t.Fatalf("parseWrk2() error = %v", err)
	}
	collect()

	if c.Errors != 7 {
		t.Errorf("Errors = %d, want 7 summed socket errors", c.Errors)
	}
}

func TestParseWrk2NoSpectrum(t *testing.T) {
	b := &config.Benchmark{Name: "wrk"}
	events := make(chan SampleEvent, 4)
	_, err := parseWrk2(context.Background(), wrk2Spec(b), []byte("wrk: command not found\n"), events, time.Now(), time.Now())
	close(events)

	var te *ToolError
	if !errors.As(err, &te) || te.Kind != ToolBadOutput {
		t.Fatalf("parseWrk2() error = %v, want bad_output ToolError", err)
	}
}

func TestWrk2Args(t *testing.T) {
	b := &config.Benchmark{
		Name:              "wrk",
		ExecutionStrategy: config.StrategyRequestsPerSecond,
		RPS:               200,
		Duration:          "30s",
		Connections:       16,
		Query:             "query { ok }",
	}

	args, err := wrk2Args(wrk2Spec(b), "/tmp/bench.lua")
	if err != nil {
		t.Fatalf("wrk2Args() error = %v", err)
	}

	joined := strings.Join(args, " ")
	for _, want := range []string{"-R 200", "-d 30s", "-c 16", "-t 8", "--latency", "-s /tmp/bench.lua"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if args[len(args)-1] != "http://localhost:8080/v1/graphql" {
		t.Errorf("last arg = %q, want target URL", args[len(args)-1])
	}
}

func TestWrk2ArgsUnsupportedStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
	}{
		{"fixed request number", config.StrategyFixedRequestNumber},
		{"max requests in duration", config.StrategyMaxRequestsInDuration},
		{"multi stage", config.StrategyMultiStage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &config.Benchmark{Name: "wrk", ExecutionStrategy: tt.strategy}
			_, err := wrk2Args(wrk2Spec(b), "/tmp/bench.lua")

			var te *ToolError
			if !errors.As(err, &te) || te.Kind != ToolUnsupported {
				t.Fatalf("wrk2Args(%s) error = %v, want unsupported ToolError", tt.strategy, err)
			}
		})
	}
}

func TestWrk2ArgsCustomNeedsRate(t *testing.T) {
	b := &config.Benchmark{
		Name:              "wrk",
		ExecutionStrategy: config.StrategyCustom,
		Options: map[string]map[string]interface{}{
			"wrk2": {"duration": "10s"},
		},
	}

	_, err := wrk2Args(wrk2Spec(b), "/tmp/bench.lua")
	var te *ToolError
	if !errors.As(err, &te) || te.Kind != ToolUnsupported {
		t.Fatalf("wrk2Args() error = %v, want unsupported ToolError", err)
	}
}

func TestWrk2Script(t *testing.T) {
	b := &config.Benchmark{
		Name:      "wrk",
		Query:     "query { films { title } }",
		Variables: map[string]interface{}{"limit": 5},
	}
	spec := wrk2Spec(b)
	spec.Headers = map[string]string{"X-Hasura-Admin-Secret": "s3cret"}

	script, err := wrk2Script(spec)
	if err != nil {
		t.Fatalf("wrk2Script() error = %v", err)
	}

	text := string(script)
	for _, want := range []string{
		`wrk.method = "POST"`,
		`wrk.headers["Content-Type"] = "application/json"`,
		`wrk.headers["X-Hasura-Admin-Secret"] = "s3cret"`,
		`"query":"query { films { title } }"`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("script missing %q:\n%s", want, text)
		}
	}
}

func TestLuaLongString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `[=[{"a":1}]=]`},
		{"contains level-one close", `x]=]y`, `[==[x]=]y]==]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := luaLongString(tt.in); got != tt.want {
				t.Errorf("luaLongString(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestScaleByteSize(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		unit string
		want int64
	}{
		{"bytes", 512, "B", 512},
		{"kilobytes", 1.5, "KB", 1536},
		{"megabytes", 2, "MB", 2 << 20},
		{"gigabytes", 1, "GB", 1 << 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scaleByteSize(tt.v, tt.unit); got != tt.want {
				t.Errorf("scaleByteSize(%v, %s) = %d, want %d", tt.v, tt.unit, got, tt.want)
			}
		})
	}
}
