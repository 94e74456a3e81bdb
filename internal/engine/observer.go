package engine

import "github.com/querybench/querybench/internal/report"

// Observer receives run lifecycle events. Implementations must be safe
// for concurrent calls: under ASYNC execution every run notifies from
// its own goroutine. A runner with no observers skips notification
// entirely.
type Observer interface {
	// RunStarted fires once per run, before the adapter launches.
	RunStarted(benchmark, tool string)

	// RunProgress fires periodically while samples arrive. Samples is
	// the cumulative weighted count recorded so far.
	RunProgress(benchmark, tool string, samples int64)

	// RunFinished fires once per run with the assembled document,
	// whether the run succeeded, failed, or was interrupted. The
	// document's Error field distinguishes the cases.
	RunFinished(doc *report.BenchmarkMetrics)
}

func (r *Runner) notifyStarted(benchmark, tool string) {
	for _, o := range r.observers {
		o.RunStarted(benchmark, tool)
	}
}

func (r *Runner) notifyProgress(benchmark, tool string, samples int64) {
	for _, o := range r.observers {
		o.RunProgress(benchmark, tool, samples)
	}
}

func (r *Runner) notifyFinished(doc *report.BenchmarkMetrics) {
	for _, o := range r.observers {
		o.RunFinished(doc)
	}
}
