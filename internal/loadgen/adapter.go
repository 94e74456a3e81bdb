package loadgen

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/querybench/querybench/internal/config"
)

// SampleEvent is one observed request outcome. Weight above one stands
// for that many identical requests, used when a backend only reports an
// aggregated distribution. Failed marks an error response whose latency
// is still a real measurement.
type SampleEvent struct {
	Timestamp time.Time
	Latency   time.Duration
	Weight    int64
	Bytes     int64
	Failed    bool
}

// Counters are the authoritative totals for a finished run, reported by
// the adapter once the stream ends. Requests counts every attempt;
// Failed the error responses; Errors the transport-level failures that
// produced no latency sample at all.
type Counters struct {
	Requests   int64
	Failed     int64
	Errors     int64
	TotalBytes int64
	Start      time.Time
	End        time.Time
}

// Fidelity states what an adapter's event stream preserves.
type Fidelity int

const (
	// FidelitySamples means one event per request, in arrival order.
	// Prefix drift statistics are meaningful for such streams.
	FidelitySamples Fidelity = iota

	// FidelityDistribution means weighted events replayed from a
	// percentile table; counts and percentiles are exact but arrival
	// order is lost.
	FidelityDistribution
)

// RunSpec carries everything an adapter needs for one benchmark run on
// one backend. Headers are already merged (global plus benchmark) and
// the benchmark is validated; adapters never re-validate.
type RunSpec struct {
	Benchmark *config.Benchmark
	Tool      string
	URL       string
	Headers   map[string]string
	Tools     config.ToolsConfig
	Debug     bool
	Log       *logrus.Entry
}

func (s RunSpec) logger() *logrus.Entry {
	if s.Log != nil {
		return s.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (s RunSpec) benchmarkName() string {
	if s.Benchmark != nil {
		return s.Benchmark.Name
	}
	return ""
}

// Adapter drives one load generation backend for one run.
//
// Run sends events on the channel as they are observed and returns the
// final counters once the stream is complete. The caller owns the
// channel and closes it after Run returns. On failure, events already
// sent remain valid; Run reports what went wrong through a *ToolError
// and still returns whatever counters it collected.
type Adapter interface {
	Name() string
	Fidelity() Fidelity
	Run(ctx context.Context, spec RunSpec, events chan<- SampleEvent) (Counters, error)
}

// graphqlBody builds the POST payload for a benchmark's query document
// and optional variables.
func graphqlBody(b *config.Benchmark) ([]byte, error) {
	payload := struct {
		Query     string                 `json:"query"`
		Variables map[string]interface{} `json:"variables,omitempty"`
	}{Query: b.Query, Variables: b.Variables}
	return json.Marshal(payload)
}
