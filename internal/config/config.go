// Package config defines the benchmark configuration model: the global
// settings, the discriminated execution-strategy variants, and the
// validation that rejects a malformed benchmark before any load tool is
// invoked.
package config

import (
	"time"
)

// Execution strategies. The strategy tag selects which variant fields a
// benchmark must carry; validation is an exhaustive match over this set.
const (
	StrategyRequestsPerSecond     = "REQUESTS_PER_SECOND"
	StrategyFixedRequestNumber    = "FIXED_REQUEST_NUMBER"
	StrategyMaxRequestsInDuration = "MAX_REQUESTS_IN_DURATION"
	StrategyMultiStage            = "MULTI_STAGE"
	StrategyCustom                = "CUSTOM"
)

// Load generation backends a benchmark may name in `tools`.
const (
	ToolBuiltin    = "builtin"
	ToolAutocannon = "autocannon"
	ToolK6         = "k6"
	ToolWrk2       = "wrk2"
)

// KnownTool reports whether name is a supported backend.
func KnownTool(name string) bool {
	switch name {
	case ToolBuiltin, ToolAutocannon, ToolK6, ToolWrk2:
		return true
	}
	return false
}

// ExecutionMode selects how the benchmark sequence is driven.
type ExecutionMode string

const (
	// ModeAsync runs all benchmarks concurrently as independent tasks.
	ModeAsync ExecutionMode = "ASYNC"

	// ModeSync runs benchmarks strictly one after another. This is the
	// default: concurrent benchmarks share the target's capacity and
	// skew each other's latencies.
	ModeSync ExecutionMode = "SYNC"
)

// ErrorPolicy decides whether a failed benchmark aborts the remaining
// sequence in SYNC mode. ASYNC mode always lets siblings finish.
type ErrorPolicy string

const (
	OnErrorContinue ErrorPolicy = "continue"
	OnErrorAbort    ErrorPolicy = "abort"
)

// GlobalConfig is the root configuration for a benchmark session.
//
// Example YAML:
//
//	url: http://localhost:8080/v1/graphql
//	headers:
//	  X-Hasura-Admin-Secret: secret
//	execution_mode: SYNC
//	queries:
//	  - name: search_films
//	    tools: [builtin, k6]
//	    execution_strategy: REQUESTS_PER_SECOND
//	    rps: 100
//	    duration: 30s
//	    query: |
//	      query { films { title } }
type GlobalConfig struct {
	// URL is the target endpoint every benchmark posts to.
	URL string `json:"url" yaml:"url"`

	// Headers are shared request headers; per-benchmark headers override
	// them key by key.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Queries is the ordered benchmark sequence.
	Queries []*Benchmark `json:"queries" yaml:"queries"`

	// ExecutionMode is ASYNC or SYNC; empty defaults to SYNC.
	ExecutionMode ExecutionMode `json:"execution_mode,omitempty" yaml:"execution_mode,omitempty"`

	// OnError applies in SYNC mode only; empty defaults to continue.
	OnError ErrorPolicy `json:"on_error,omitempty" yaml:"on_error,omitempty"`

	// Debug enables verbose logging, including captured tool output.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`

	// ExtendedHasuraChecks probes the target's RTS allocation and
	// residency counters before and after each run.
	ExtendedHasuraChecks bool `json:"extended_hasura_checks,omitempty" yaml:"extended_hasura_checks,omitempty"`

	// Writer is the optional line-oriented stream sink for incremental
	// results; absent means no streaming output.
	Writer *WriterConfig `json:"writer,omitempty" yaml:"writer,omitempty"`

	// Redis optionally publishes finished reports to a Redis instance.
	Redis *RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`

	// Tools locates the external load generator binaries.
	Tools ToolsConfig `json:"tools,omitempty" yaml:"tools,omitempty"`

	// Histogram bounds the precise latency histogram.
	Histogram HistogramSettings `json:"histogram,omitempty" yaml:"histogram,omitempty"`

	// BasicHistogram controls the bucketed histogram.
	BasicHistogram BasicHistogramSettings `json:"basic_histogram,omitempty" yaml:"basic_histogram,omitempty"`
}

// Benchmark is one entry of the sequence, discriminated by
// ExecutionStrategy. Only the variant's own fields are consulted; stray
// fields from other variants are ignored rather than rejected.
type Benchmark struct {
	// Name identifies the benchmark in reports and errors.
	Name string `json:"name" yaml:"name"`

	// Tools is the non-empty set of backends to run this benchmark on.
	// Each tool produces its own report record.
	Tools []string `json:"tools" yaml:"tools"`

	// ExecutionStrategy is the variant tag.
	ExecutionStrategy string `json:"execution_strategy" yaml:"execution_strategy"`

	// Query is the GraphQL document (or raw request body) to send.
	Query string `json:"query" yaml:"query"`

	// Variables is the optional GraphQL variables object.
	Variables map[string]interface{} `json:"variables,omitempty" yaml:"variables,omitempty"`

	// Headers override the global headers for this benchmark.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Connections is the connection/worker count hint passed to the
	// backend; 0 lets each backend pick its default.
	Connections int `json:"connections,omitempty" yaml:"connections,omitempty"`

	// RPS is the constant request rate (REQUESTS_PER_SECOND).
	RPS int `json:"rps,omitempty" yaml:"rps,omitempty"`

	// Duration bounds the run (REQUESTS_PER_SECOND,
	// MAX_REQUESTS_IN_DURATION).
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`

	// Requests is the total request count (FIXED_REQUEST_NUMBER).
	Requests int `json:"requests,omitempty" yaml:"requests,omitempty"`

	// InitialRPS is the rate the first stage ramps from (MULTI_STAGE).
	InitialRPS int `json:"initial_rps,omitempty" yaml:"initial_rps,omitempty"`

	// Stages is the ordered ramp plan (MULTI_STAGE).
	Stages []Stage `json:"stages,omitempty" yaml:"stages,omitempty"`

	// Options carries tool-specific free-form parameters (CUSTOM),
	// keyed by tool name.
	Options map[string]map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}

// Stage is one step of a MULTI_STAGE ramp: hold or ramp toward Target
// requests per second over Duration.
type Stage struct {
	// Duration of this stage (e.g. "30s", "2m").
	Duration string `json:"duration" yaml:"duration"`

	// Target request rate at the end of this stage.
	Target int `json:"target" yaml:"target"`
}

// WriterConfig names the file the incremental NDJSON stream is appended
// to. "-" selects standard output.
type WriterConfig struct {
	Path string `json:"path" yaml:"path"`
}

// RedisConfig locates the Redis instance finished reports are published
// to.
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	DB        int    `json:"db,omitempty" yaml:"db,omitempty"`
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

// ToolsConfig locates external binaries and the scratch directory for
// generated scripts. Empty binary paths fall back to $PATH lookup.
type ToolsConfig struct {
	AutocannonBin string `json:"autocannon_bin,omitempty" yaml:"autocannon_bin,omitempty"`
	K6Bin         string `json:"k6_bin,omitempty" yaml:"k6_bin,omitempty"`
	Wrk2Bin       string `json:"wrk2_bin,omitempty" yaml:"wrk2_bin,omitempty"`
	WorkDir       string `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
}

// HistogramSettings bounds the precise histogram. Zero values select the
// metrics package defaults (1µs to 1h at 3 significant figures).
type HistogramSettings struct {
	LowestTrackable  Duration `json:"lowest_trackable,omitempty" yaml:"lowest_trackable,omitempty"`
	HighestTrackable Duration `json:"highest_trackable,omitempty" yaml:"highest_trackable,omitempty"`
	SigFigs          int      `json:"sigfigs,omitempty" yaml:"sigfigs,omitempty"`
}

// BasicHistogramSettings controls the bucketed histogram. OutlierBound
// is the explicit cutoff beyond which samples count as outliers; zero
// disables removal and spans buckets to the observed maximum.
type BasicHistogramSettings struct {
	Buckets      int      `json:"buckets,omitempty" yaml:"buckets,omitempty"`
	OutlierBound Duration `json:"outlier_bound,omitempty" yaml:"outlier_bound,omitempty"`
}

// ApplyDefaults fills the implementation-defined defaults into empty
// fields so downstream code never needs to re-derive them.
func (c *GlobalConfig) ApplyDefaults() {
	if c.ExecutionMode == "" {
		c.ExecutionMode = ModeSync
	}
	if c.OnError == "" {
		c.OnError = OnErrorContinue
	}
	for _, b := range c.Queries {
		if b != nil && len(b.Tools) == 0 {
			b.Tools = []string{ToolBuiltin}
		}
	}
}

// MergedHeaders combines the global headers with the benchmark's own,
// the benchmark winning on conflicts. The result is a fresh map.
func (b *Benchmark) MergedHeaders(global map[string]string) map[string]string {
	merged := make(map[string]string, len(global)+len(b.Headers))
	for k, v := range global {
		merged[k] = v
	}
	for k, v := range b.Headers {
		merged[k] = v
	}
	return merged
}

// ParsedDuration parses the benchmark's duration field. Empty yields 0
// with no error; validation decides whether that is acceptable for the
// strategy.
func (b *Benchmark) ParsedDuration() (time.Duration, error) {
	return ParseDurationString(b.Duration)
}

// ParsedDuration parses the stage's duration field.
func (s *Stage) ParsedDuration() (time.Duration, error) {
	return ParseDurationString(s.Duration)
}

// TotalDuration returns the run's time bound: the duration field where
// the strategy has one, or the summed stage durations for MULTI_STAGE.
// Strategies bounded by count, not time, yield 0.
func (b *Benchmark) TotalDuration() (time.Duration, error) {
	switch b.ExecutionStrategy {
	case StrategyMultiStage:
		var total time.Duration
		for _, s := range b.Stages {
			d, err := s.ParsedDuration()
			if err != nil {
				return 0, err
			}
			total += d
		}
		return total, nil
	default:
		return b.ParsedDuration()
	}
}
