package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// RecorderConfig assembles the accumulator pair for one benchmark run.
// Ordered marks the stream as arrival-ordered; only then are the prefix
// drift statistics meaningful, backends replaying pre-aggregated
// percentile tables must leave it false.
type RecorderConfig struct {
	Histogram HistogramConfig
	Basic     BasicConfig
	Ordered   bool
}

// Results is the finalized view of one run's sample stream.
type Results struct {
	Histogram *Histogram
	Basic     *BasicHistogram
	Parsed    []ParsedStat
	Summary   Summary

	Succeeded int64
	Failed    int64
	Rejected  int64
	Bytes     int64
}

// Recorder owns the isolated accumulators for a single benchmark run and
// fuses the sample stream into them. It is safe for concurrent
// producers: the histograms sit behind a mutex, counters are atomics.
// Runs never share a recorder, so one benchmark cannot bleed into
// another's percentiles.
type Recorder struct {
	cfg RecorderConfig

	mu      sync.Mutex
	precise *Histogram
	basic   *BasicBuilder

	succeeded atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	bytes     atomic.Int64
}

// NewRecorder creates a recorder with empty accumulators.
func NewRecorder(cfg RecorderConfig) *Recorder {
	return &Recorder{
		cfg:     cfg,
		precise: NewHistogram(cfg.Histogram),
		basic:   NewBasicBuilder(cfg.Basic),
	}
}

// Record fuses one sample into the run. Weight stands for that many
// identical samples, as produced by backends that emit percentile tables
// rather than raw streams. Bytes is the response payload size. Failed
// marks an error response whose latency is still a real measurement.
//
// Negative latencies are rejected with ErrNegativeLatency and tallied;
// they never reach either histogram.
func (r *Recorder) Record(latency time.Duration, weight, bytes int64, failed bool) error {
	if weight <= 0 {
		weight = 1
	}
	if latency < 0 {
		r.rejected.Add(weight)
		return ErrNegativeLatency
	}
	r.mu.Lock()
	err := r.precise.RecordN(latency, weight)
	if err == nil {
		r.basic.Record(latency, weight)
	}
	r.mu.Unlock()
	if err != nil {
		r.rejected.Add(weight)
		return err
	}
	if failed {
		r.failed.Add(weight)
	} else {
		r.succeeded.Add(weight)
	}
	r.bytes.Add(bytes)
	return nil
}

// Results snapshots the finalized view of the stream. Call it after all
// producers have stopped; calling again after further samples reflects
// the grown stream.
func (r *Recorder) Results() *Results {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Results{
		Histogram: r.precise,
		Basic:     r.basic.Finalize(),
		Parsed:    r.precise.ParsedStats(),
		Summary:   computeSummary(r.precise, r.basic.samples, r.cfg.Ordered),
		Succeeded: r.succeeded.Load(),
		Failed:    r.failed.Load(),
		Rejected:  r.rejected.Load(),
		Bytes:     r.bytes.Load(),
	}
}
