package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/querybench/querybench/internal/config"
	"github.com/querybench/querybench/internal/loadgen"
	"github.com/querybench/querybench/internal/metrics"
	"github.com/querybench/querybench/internal/report"
)

// eventBuffer sizes the sample channel. Large enough that a bursty
// producer rarely blocks on the recorder, small enough to bound memory
// for distribution replays.
const eventBuffer = 1024

func (r *Runner) newRecorder(f loadgen.Fidelity) *metrics.Recorder {
	return metrics.NewRecorder(metrics.RecorderConfig{
		Histogram: metrics.HistogramConfig{
			LowestTrackable:  r.cfg.Histogram.LowestTrackable.Value(0),
			HighestTrackable: r.cfg.Histogram.HighestTrackable.Value(0),
			SigFigs:          r.cfg.Histogram.SigFigs,
		},
		Basic: metrics.BasicConfig{
			Buckets:      r.cfg.BasicHistogram.Buckets,
			OutlierBound: r.cfg.BasicHistogram.OutlierBound.Value(0),
		},
		Ordered: f == loadgen.FidelitySamples,
	})
}

// runDeadline bounds how long the engine waits for a time-bound run.
// Tools enforce their own duration; the deadline only catches a tool
// that hangs past it. Count-bound runs have no deadline.
func (r *Runner) runDeadline(b *config.Benchmark) time.Duration {
	total, err := b.TotalDuration()
	if err != nil || total <= 0 {
		return 0
	}
	return total + r.graceSlack
}

// runOne executes a single benchmark on a single tool and assembles
// its document. It never returns nil: failures yield a document whose
// Error field is set, with whatever samples were collected before the
// failure.
func (r *Runner) runOne(ctx context.Context, b *config.Benchmark, tool string) *report.BenchmarkMetrics {
	log := r.log.WithFields(logrus.Fields{"benchmark": b.Name, "tool": tool})
	r.notifyStarted(b.Name, tool)

	adapter, err := r.adapters(tool)
	if err != nil {
		doc := report.Assemble(report.RunOutcome{
			Name: b.Name,
			Tool: tool,
			Err:  fmt.Errorf("resolving tool: %w", err),
		}, nil)
		r.notifyFinished(doc)
		return doc
	}

	var before *report.RTSSample
	if r.checks != nil {
		before = r.checks.sample(log)
	}

	runCtx := ctx
	if deadline := r.runDeadline(b); deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	rec := r.newRecorder(adapter.Fidelity())
	events := make(chan loadgen.SampleEvent, eventBuffer)
	consumed := make(chan struct{})
	var seen atomic.Int64
	go func() {
		defer close(consumed)
		for ev := range events {
			if err := rec.Record(ev.Latency, ev.Weight, ev.Bytes, ev.Failed); err != nil {
				log.WithError(err).Debug("sample rejected")
				continue
			}
			w := ev.Weight
			if w <= 0 {
				w = 1
			}
			seen.Add(w)
		}
	}()

	// The ticker goroutine is awaited below so that a run's finished
	// notification is always its last event.
	stopTicks := make(chan struct{})
	ticksDone := make(chan struct{})
	if len(r.observers) > 0 {
		go func() {
			defer close(ticksDone)
			ticker := time.NewTicker(r.progressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-stopTicks:
					return
				case <-ticker.C:
					r.notifyProgress(b.Name, tool, seen.Load())
				}
			}
		}()
	} else {
		close(ticksDone)
	}

	log.WithField("strategy", b.ExecutionStrategy).Info("benchmark started")
	wallStart := time.Now()
	counters, runErr := adapter.Run(runCtx, loadgen.RunSpec{
		Benchmark: b,
		Tool:      tool,
		URL:       r.cfg.URL,
		Headers:   b.MergedHeaders(r.cfg.Headers),
		Tools:     r.cfg.Tools,
		Debug:     r.cfg.Debug,
		Log:       log,
	}, events)
	wallEnd := time.Now()
	close(events)
	<-consumed
	close(stopTicks)
	<-ticksDone

	if counters.Start.IsZero() {
		counters.Start = wallStart
	}
	if counters.End.IsZero() {
		counters.End = wallEnd
	}

	// Parent cancellation is an interrupt, not a failure: the partial
	// run keeps its samples and its document is marked accordingly.
	interrupted := ctx.Err() != nil
	if interrupted && errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	outcome := report.RunOutcome{
		Name:        b.Name,
		Tool:        tool,
		Start:       counters.Start,
		End:         counters.End,
		Requests:    counters.Requests,
		Failed:      counters.Failed,
		Errors:      counters.Errors,
		TotalBytes:  counters.TotalBytes,
		Interrupted: interrupted,
		Err:         runErr,
	}
	doc := report.Assemble(outcome, rec.Results())

	if r.checks != nil && before != nil {
		if after := r.checks.sample(log); after != nil {
			doc.HasuraChecks = report.NewHasuraChecks(*before, *after)
		}
	}

	switch {
	case runErr != nil:
		log.WithError(runErr).Error("benchmark failed")
	case interrupted:
		log.WithField("requests", doc.Requests.Count).Warn("benchmark interrupted")
	default:
		log.WithFields(logrus.Fields{
			"requests": doc.Requests.Count,
			"failed":   doc.Requests.Failed,
		}).Info("benchmark finished")
	}

	r.notifyFinished(doc)
	return doc
}
