// Package report assembles the per-run metrics document: the adapter's
// authoritative counters combined with the recorded latency statistics
// into one immutable BenchmarkMetrics value per benchmark and tool.
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/querybench/querybench/internal/metrics"
)

// TimeWindow is the wall-clock span of one run.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RequestStats summarizes request volume. Average is requests per
// second over the run window. Failed counts error responses that still
// produced a latency; Errors counts transport failures that did not.
type RequestStats struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
	Failed  int64   `json:"failed,omitempty"`
	Errors  int64   `json:"errors,omitempty"`
}

// ResponseStats summarizes response volume.
type ResponseStats struct {
	TotalBytes     int64   `json:"totalBytes"`
	BytesPerSecond float64 `json:"bytesPerSecond"`
}

// HistogramReport carries the precise histogram's two renderings: the
// summary statistics and the full cumulative distribution rows.
type HistogramReport struct {
	Summary     metrics.Summary      `json:"summary"`
	ParsedStats []metrics.ParsedStat `json:"parsedStats"`
}

// BenchmarkMetrics is the report document for one run.
type BenchmarkMetrics struct {
	Name           string                  `json:"name"`
	Tool           string                  `json:"tool"`
	Time           TimeWindow              `json:"time"`
	Requests       RequestStats            `json:"requests"`
	Response       ResponseStats           `json:"response"`
	Histogram      HistogramReport         `json:"histogram"`
	BasicHistogram *metrics.BasicHistogram `json:"basicHistogram,omitempty"`
	HasuraChecks   *HasuraChecks           `json:"extended_hasura_checks,omitempty"`
	Interrupted    bool                    `json:"interrupted,omitempty"`
	Error          string                  `json:"error,omitempty"`
}

// RunOutcome identifies one finished (or failed) run and the totals the
// adapter reported for it.
type RunOutcome struct {
	Name        string
	Tool        string
	Start       time.Time
	End         time.Time
	Requests    int64
	Failed      int64
	Errors      int64
	TotalBytes  int64
	Interrupted bool
	Err         error
}

// Assemble combines a run outcome with its recorded metrics. When the
// adapter could not supply totals, the recorder's own counts stand in.
// A nil results value (run failed before any sample) still yields a
// document carrying the error marker.
func Assemble(outcome RunOutcome, res *metrics.Results) *BenchmarkMetrics {
	m := &BenchmarkMetrics{
		Name:        outcome.Name,
		Tool:        outcome.Tool,
		Time:        TimeWindow{Start: outcome.Start, End: outcome.End},
		Interrupted: outcome.Interrupted,
	}

	count := outcome.Requests
	totalBytes := outcome.TotalBytes
	if res != nil {
		if count == 0 {
			count = res.Summary.TotalCount
		}
		if totalBytes == 0 {
			totalBytes = res.Bytes
		}
		m.Histogram = HistogramReport{Summary: res.Summary, ParsedStats: res.Parsed}
		m.BasicHistogram = res.Basic
	}

	m.Requests = RequestStats{Count: count, Failed: outcome.Failed, Errors: outcome.Errors}
	m.Response = ResponseStats{TotalBytes: totalBytes}
	if window := outcome.End.Sub(outcome.Start).Seconds(); window > 0 {
		m.Requests.Average = float64(count) / window
		m.Response.BytesPerSecond = float64(totalBytes) / window
	}

	if outcome.Err != nil {
		m.Error = outcome.Err.Error()
	}
	return m
}

// WriteJSON writes the report array as indented JSON.
func WriteJSON(w io.Writer, reports []*BenchmarkMetrics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
