package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/querybench/querybench/internal/report"
)

// NDJSON streams run lifecycle events as one JSON object per line,
// the byte-oriented sink behind the writer config. Lines interleave
// whole under concurrent runs; write errors are kept for the caller
// to inspect once the stream is done.
type NDJSON struct {
	mu   sync.Mutex
	enc  *json.Encoder
	fail error
}

type ndjsonEvent struct {
	Event     string                   `json:"event"`
	Time      time.Time                `json:"time"`
	Benchmark string                   `json:"benchmark,omitempty"`
	Tool      string                   `json:"tool,omitempty"`
	Samples   int64                    `json:"samples,omitempty"`
	Report    *report.BenchmarkMetrics `json:"report,omitempty"`
}

// NewNDJSON creates an NDJSON event stream on w.
func NewNDJSON(w io.Writer) *NDJSON {
	return &NDJSON{enc: json.NewEncoder(w)}
}

// RunStarted emits a run_started line.
func (n *NDJSON) RunStarted(benchmark, tool string) {
	n.emit(ndjsonEvent{Event: "run_started", Benchmark: benchmark, Tool: tool})
}

// RunProgress emits a run_progress line with the cumulative sample
// count.
func (n *NDJSON) RunProgress(benchmark, tool string, samples int64) {
	n.emit(ndjsonEvent{Event: "run_progress", Benchmark: benchmark, Tool: tool, Samples: samples})
}

// RunFinished emits a run_finished line, or run_failed when the
// document carries an error, with the full report embedded.
func (n *NDJSON) RunFinished(doc *report.BenchmarkMetrics) {
	if doc == nil {
		return
	}
	event := "run_finished"
	if doc.Error != "" {
		event = "run_failed"
	}
	n.emit(ndjsonEvent{Event: event, Benchmark: doc.Name, Tool: doc.Tool, Report: doc})
}

// Err returns the first write failure, if any.
func (n *NDJSON) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fail
}

func (n *NDJSON) emit(ev ndjsonEvent) {
	ev.Time = time.Now().UTC()
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.enc.Encode(ev); err != nil && n.fail == nil {
		n.fail = err
	}
}

// OpenNDJSON opens the progress sink at path; "-" selects stdout. The
// returned closer is a no-op for stdout.
func OpenNDJSON(path string) (*NDJSON, func() error, error) {
	if path == "" || path == "-" {
		return NewNDJSON(os.Stdout), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "creating progress sink %s", path)
	}
	return NewNDJSON(f), f.Close, nil
}
