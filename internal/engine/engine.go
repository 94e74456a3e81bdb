// Package engine orchestrates benchmark execution.
//
// It expands the configuration into a run matrix (one run per
// benchmark and tool pair), drives each run through its tool adapter
// while a dedicated recorder consumes the sample stream, and
// assembles the finished runs into metric documents.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/querybench/querybench/internal/config"
	"github.com/querybench/querybench/internal/loadgen"
	"github.com/querybench/querybench/internal/report"
)

const (
	defaultProgressInterval = time.Second
	defaultGraceSlack       = 30 * time.Second
)

// AdapterFactory resolves a tool name to its adapter.
type AdapterFactory func(tool string) (loadgen.Adapter, error)

// Runner executes the benchmark matrix of a validated configuration.
//
// It coordinates:
//   - run matrix expansion (benchmark x tool, in config order)
//   - ASYNC (concurrent) or SYNC (sequential) scheduling
//   - per-run recorders, so no run bleeds into another's percentiles
//   - observer notification for run lifecycle events
//
// A Runner is single-use per Run call; calling Run while another Run
// is in flight returns an error.
type Runner struct {
	cfg       *config.GlobalConfig
	adapters  AdapterFactory
	observers []Observer
	checks    *rtsChecker
	log       *logrus.Entry

	progressInterval time.Duration
	graceSlack       time.Duration

	mu      sync.Mutex
	running bool
}

// Option adjusts a Runner at construction.
type Option func(*Runner)

// WithObservers registers lifecycle observers. Observers are notified
// in registration order.
func WithObservers(obs ...Observer) Option {
	return func(r *Runner) {
		r.observers = append(r.observers, obs...)
	}
}

// WithAdapterFactory replaces the default tool resolution.
func WithAdapterFactory(f AdapterFactory) Option {
	return func(r *Runner) {
		r.adapters = f
	}
}

// WithLogger sets the base logger; per-run entries add benchmark and
// tool fields to it.
func WithLogger(log *logrus.Entry) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// WithProgressInterval overrides how often observers receive progress
// updates.
func WithProgressInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.progressInterval = d
		}
	}
}

// WithGraceSlack overrides the slack added on top of a run's nominal
// duration before the engine forcibly times the run out.
func WithGraceSlack(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.graceSlack = d
		}
	}
}

// NewRunner creates a runner for a configuration that has already
// passed validation and defaulting.
func NewRunner(cfg *config.GlobalConfig, opts ...Option) *Runner {
	r := &Runner{
		cfg:              cfg,
		adapters:         loadgen.ForTool,
		log:              logrus.NewEntry(logrus.StandardLogger()),
		progressInterval: defaultProgressInterval,
		graceSlack:       defaultGraceSlack,
	}
	if cfg.ExtendedHasuraChecks {
		r.checks = newRTSChecker(cfg.URL)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// job is one cell of the run matrix.
type job struct {
	benchmark *config.Benchmark
	tool      string
}

func (r *Runner) matrix() []job {
	var jobs []job
	for _, b := range r.cfg.Queries {
		if b == nil {
			continue
		}
		for _, tool := range b.Tools {
			jobs = append(jobs, job{benchmark: b, tool: tool})
		}
	}
	return jobs
}

// Run executes every run in the matrix and returns their documents in
// matrix order. Under SYNC with on_error abort, runs after the first
// failure are skipped and the returned slice is short.
//
// The returned error is the first run failure in matrix order; the
// documents are returned regardless, each carrying its own error
// string. Cancelling ctx interrupts in-flight runs, which keep the
// samples collected so far and are marked interrupted rather than
// failed.
func (r *Runner) Run(ctx context.Context) ([]*report.BenchmarkMetrics, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, fmt.Errorf("runner is already running")
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	jobs := r.matrix()
	if len(jobs) == 0 {
		return nil, nil
	}

	var docs []*report.BenchmarkMetrics
	if r.cfg.ExecutionMode == config.ModeAsync {
		docs = r.runAsync(ctx, jobs)
	} else {
		docs = r.runSync(ctx, jobs)
	}

	var firstErr error
	for _, doc := range docs {
		if doc.Error != "" && !doc.Interrupted {
			firstErr = fmt.Errorf("benchmark %s (%s): %s", doc.Name, doc.Tool, doc.Error)
			break
		}
	}
	return docs, firstErr
}

// runAsync launches every run concurrently. A failing or timed-out run
// never cancels its siblings; only ctx does that.
func (r *Runner) runAsync(ctx context.Context, jobs []job) []*report.BenchmarkMetrics {
	docs := make([]*report.BenchmarkMetrics, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			docs[i] = r.runOne(ctx, j.benchmark, j.tool)
		}(i, j)
	}
	wg.Wait()
	return docs
}

// runSync executes runs one at a time in config order. on_error abort
// stops scheduling after the first failed run; interruption via ctx
// stops scheduling without marking the remaining runs failed.
func (r *Runner) runSync(ctx context.Context, jobs []job) []*report.BenchmarkMetrics {
	docs := make([]*report.BenchmarkMetrics, 0, len(jobs))
	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		doc := r.runOne(ctx, j.benchmark, j.tool)
		docs = append(docs, doc)
		if doc.Error != "" && r.cfg.OnError == config.OnErrorAbort {
			r.log.WithFields(logrus.Fields{
				"benchmark": doc.Name,
				"tool":      doc.Tool,
			}).Warn("aborting remaining benchmarks after failure")
			break
		}
	}
	return docs
}
