package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Default histogram bounds. Latencies are tracked at microsecond
// granularity so sub-millisecond endpoints are not flattened into a
// single bucket; three significant figures keep the relative error of
// any reported percentile under 0.1%.
const (
	DefaultLowestTrackable  = time.Microsecond
	DefaultHighestTrackable = time.Hour
	DefaultSigFigs          = 3
)

var (
	// ErrNegativeLatency reports a producer handing over a latency below
	// zero. The sample is rejected and counted, never silently clamped.
	ErrNegativeLatency = errors.New("metrics: negative latency")

	// ErrUnmergeableConfig reports an attempt to merge histograms that
	// were not created with identical bounds and precision.
	ErrUnmergeableConfig = errors.New("metrics: histogram configurations differ")
)

// HistogramConfig bounds a precise histogram. The zero value selects the
// package defaults.
type HistogramConfig struct {
	LowestTrackable  time.Duration `json:"lowestTrackable" yaml:"lowest_trackable"`
	HighestTrackable time.Duration `json:"highestTrackable" yaml:"highest_trackable"`
	SigFigs          int           `json:"sigFigs" yaml:"sigfigs"`
}

func (c HistogramConfig) withDefaults() HistogramConfig {
	if c.LowestTrackable <= 0 {
		c.LowestTrackable = DefaultLowestTrackable
	}
	if c.HighestTrackable <= c.LowestTrackable {
		c.HighestTrackable = DefaultHighestTrackable
	}
	if c.SigFigs < 1 || c.SigFigs > 5 {
		c.SigFigs = DefaultSigFigs
	}
	return c
}

// Histogram records latency samples with bounded relative error across a
// wide dynamic range. Values beyond the trackable ceiling are clamped to
// it rather than dropped, so tail percentiles stay monotone even when an
// endpoint stalls past the configured range.
//
// Histogram is not safe for concurrent use. Callers either serialize
// Record behind a lock (see Recorder) or keep one Histogram per producer
// and Merge them once the stream ends; for identical configurations the
// merged result equals recording the concatenated stream directly.
type Histogram struct {
	cfg HistogramConfig
	h   *hdrhistogram.Histogram
}

// NewHistogram creates an empty histogram with the given bounds.
func NewHistogram(cfg HistogramConfig) *Histogram {
	cfg = cfg.withDefaults()
	return &Histogram{
		cfg: cfg,
		h:   hdrhistogram.New(cfg.LowestTrackable.Microseconds(), cfg.HighestTrackable.Microseconds(), cfg.SigFigs),
	}
}

// Config returns the bounds the histogram was created with.
func (h *Histogram) Config() HistogramConfig { return h.cfg }

// Record adds a single sample.
func (h *Histogram) Record(latency time.Duration) error {
	return h.RecordN(latency, 1)
}

// RecordN adds a sample with a repeat count. Counts above one are used
// when normalizing tools that report pre-aggregated percentile tables
// instead of raw samples.
func (h *Histogram) RecordN(latency time.Duration, count int64) error {
	if latency < 0 {
		return ErrNegativeLatency
	}
	if count <= 0 {
		count = 1
	}
	us := latency.Microseconds()
	if max := h.cfg.HighestTrackable.Microseconds(); us > max {
		us = max
	}
	return h.h.RecordValues(us, count)
}

// Merge folds other into h. Both histograms must share a configuration;
// merging an empty or nil histogram is a no-op.
func (h *Histogram) Merge(other *Histogram) error {
	if other == nil || other.h.TotalCount() == 0 {
		return nil
	}
	if h.cfg != other.cfg {
		return ErrUnmergeableConfig
	}
	h.h.Merge(other.h)
	return nil
}

// Percentile returns the latency at percentile p for p in (0, 100].
// p=100 yields the recorded maximum within the histogram's error bound.
func (h *Histogram) Percentile(p float64) (time.Duration, error) {
	if p <= 0 || p > 100 {
		return 0, fmt.Errorf("metrics: percentile %v outside (0, 100]", p)
	}
	return time.Duration(h.h.ValueAtQuantile(p)) * time.Microsecond, nil
}

// ValueAtCount returns the latency at or below which count samples fall,
// the inverse view of the cumulative distribution. A count at or beyond
// the total yields the maximum.
func (h *Histogram) ValueAtCount(count int64) time.Duration {
	total := h.h.TotalCount()
	if total == 0 || count <= 0 {
		return 0
	}
	if count > total {
		count = total
	}
	return time.Duration(h.h.ValueAtQuantile(100*float64(count)/float64(total))) * time.Microsecond
}

// TotalCount returns the number of recorded samples, weights included.
func (h *Histogram) TotalCount() int64 { return h.h.TotalCount() }

// Min returns the lowest recorded latency, zero when empty.
func (h *Histogram) Min() time.Duration { return time.Duration(h.h.Min()) * time.Microsecond }

// Max returns the highest recorded latency within the error bound.
func (h *Histogram) Max() time.Duration { return time.Duration(h.h.Max()) * time.Microsecond }

// Mean returns the arithmetic mean latency.
func (h *Histogram) Mean() time.Duration { return time.Duration(h.h.Mean()) * time.Microsecond }

// StdDev returns the standard deviation of the recorded latencies.
func (h *Histogram) StdDev() time.Duration { return time.Duration(h.h.StdDev()) * time.Microsecond }
