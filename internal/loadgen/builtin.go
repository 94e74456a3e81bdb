package loadgen

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/querybench/querybench/internal/config"
)

const (
	defaultWorkers = 10
	rampTick       = 100 * time.Millisecond
)

// rampStage is one linear segment of a multi-stage plan: the rate moves
// from from to to over duration.
type rampStage struct {
	from     float64
	to       float64
	duration time.Duration
}

// builtinPlan is a benchmark resolved into concrete work: either a
// paced run at rate (optionally ramped) or a flat-out run, bounded by
// duration, request count, or both.
type builtinPlan struct {
	paced    bool
	rate     float64
	duration time.Duration
	requests int64
	workers  int
	ramp     []rampStage
}

// BuiltinAdapter drives load from inside the process with a bounded
// worker pool over net/http. It supports every execution strategy and
// emits one event per request in arrival order, so prefix statistics
// stay meaningful.
type BuiltinAdapter struct {
	client *http.Client
}

// NewBuiltin returns an adapter with a connection pool sized for
// benchmark concurrency.
func NewBuiltin() *BuiltinAdapter {
	transport := &http.Transport{
		MaxIdleConns:        256,
		MaxIdleConnsPerHost: 256,
		IdleConnTimeout:     90 * time.Second,
	}
	return &BuiltinAdapter{client: &http.Client{Transport: transport}}
}

func (a *BuiltinAdapter) Name() string { return config.ToolBuiltin }

func (a *BuiltinAdapter) Fidelity() Fidelity { return FidelitySamples }

func buildBuiltinPlan(spec RunSpec) (builtinPlan, error) {
	b := spec.Benchmark
	plan := builtinPlan{workers: b.Connections}
	if plan.workers <= 0 {
		plan.workers = defaultWorkers
	}

	switch b.ExecutionStrategy {
	case config.StrategyRequestsPerSecond:
		d, err := b.ParsedDuration()
		if err != nil {
			return plan, errors.Wrap(err, "parsing duration")
		}
		plan.paced = true
		plan.rate = float64(b.RPS)
		plan.duration = d

	case config.StrategyFixedRequestNumber:
		plan.requests = int64(b.Requests)

	case config.StrategyMaxRequestsInDuration:
		d, err := b.ParsedDuration()
		if err != nil {
			return plan, errors.Wrap(err, "parsing duration")
		}
		plan.duration = d

	case config.StrategyMultiStage:
		plan.paced = true
		plan.rate = float64(b.InitialRPS)
		prev := float64(b.InitialRPS)
		for _, st := range b.Stages {
			d, err := st.ParsedDuration()
			if err != nil {
				return plan, errors.Wrap(err, "parsing stage duration")
			}
			plan.ramp = append(plan.ramp, rampStage{from: prev, to: float64(st.Target), duration: d})
			plan.duration += d
			prev = float64(st.Target)
		}

	case config.StrategyCustom:
		return builtinCustomPlan(spec, plan)

	default:
		return plan, spec.toolError(ToolUnsupported, errors.Errorf("strategy %s", b.ExecutionStrategy))
	}
	return plan, nil
}

// builtinCustomPlan maps a CUSTOM options block onto the builtin plan.
// Recognized keys: rps/rate, duration, requests, connections/workers.
func builtinCustomPlan(spec RunSpec, plan builtinPlan) (builtinPlan, error) {
	opts := spec.toolOptions()
	if opts == nil {
		return plan, spec.toolError(ToolUnsupported, errors.New("CUSTOM strategy needs an options block for builtin"))
	}
	if rate, ok := numericOption(opts, "rps", "rate"); ok && rate > 0 {
		plan.paced = true
		plan.rate = rate
	}
	d, ok, err := durationOption(opts, "duration")
	if err != nil {
		return plan, spec.toolError(ToolUnsupported, err)
	}
	if ok {
		plan.duration = d
	}
	if n, ok := numericOption(opts, "requests"); ok {
		plan.requests = int64(n)
	}
	if w, ok := numericOption(opts, "connections", "workers"); ok && w > 0 {
		plan.workers = int(w)
	}
	if plan.requests <= 0 && plan.duration <= 0 {
		return plan, spec.toolError(ToolUnsupported, errors.New("options give no duration or request bound"))
	}
	return plan, nil
}

// Run executes the benchmark with plan.workers concurrent workers. A
// paced plan shares one pacer across the pool so the target rate is
// global, not per worker; a flat-out plan lets each worker issue the
// next request the moment the previous one finishes.
func (a *BuiltinAdapter) Run(ctx context.Context, spec RunSpec, events chan<- SampleEvent) (Counters, error) {
	plan, err := buildBuiltinPlan(spec)
	if err != nil {
		return Counters{}, err
	}
	body, err := graphqlBody(spec.Benchmark)
	if err != nil {
		return Counters{}, errors.Wrap(err, "encoding request body")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if plan.duration > 0 {
		stop := time.AfterFunc(plan.duration, cancel)
		defer stop.Stop()
	}

	var pacer *Pacer
	if plan.paced {
		pacer = NewPacer(plan.rate)
		if len(plan.ramp) > 0 {
			go runRamp(runCtx, pacer, plan.ramp)
		}
	}

	var (
		wg        sync.WaitGroup
		claimed   atomic.Int64
		requests  atomic.Int64
		failed    atomic.Int64
		transport atomic.Int64
		bytesRead atomic.Int64
	)
	counters := Counters{Start: time.Now()}

	for i := 0; i < plan.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if plan.requests > 0 && claimed.Add(1) > plan.requests {
					return
				}
				if pacer != nil {
					if pacer.Wait(runCtx) != nil {
						return
					}
				} else if runCtx.Err() != nil {
					return
				}

				latency, n, isFailed, reqErr := a.doRequest(runCtx, spec, body)
				if reqErr != nil {
					if runCtx.Err() != nil {
						return
					}
					requests.Add(1)
					transport.Add(1)
					spec.logger().WithError(reqErr).Debug("request error")
					continue
				}
				requests.Add(1)
				if isFailed {
					failed.Add(1)
				}
				bytesRead.Add(n)

				select {
				case events <- SampleEvent{Timestamp: time.Now(), Latency: latency, Weight: 1, Bytes: n, Failed: isFailed}:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()

	counters.End = time.Now()
	counters.Requests = requests.Load()
	counters.Failed = failed.Load()
	counters.Errors = transport.Load()
	counters.TotalBytes = bytesRead.Load()

	if ctx.Err() == context.DeadlineExceeded {
		return counters, spec.toolError(ToolTimeout, ctx.Err())
	}
	return counters, ctx.Err()
}

// doRequest posts the benchmark body once. Latency covers request send
// through body drain, the usual time-to-last-byte measurement. The
// response body is always drained so the connection can be reused.
func (a *BuiltinAdapter) doRequest(ctx context.Context, spec RunSpec, body []byte) (time.Duration, int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, spec.URL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, 0, false, err
	}
	n, _ := io.Copy(io.Discard, resp.Body)
	latency := time.Since(start)
	resp.Body.Close()

	return latency, n, resp.StatusCode >= 400, nil
}

// runRamp walks the pacer through each linear stage, updating the rate
// every tick until the stage's duration has elapsed.
func runRamp(ctx context.Context, pacer *Pacer, ramp []rampStage) {
	ticker := time.NewTicker(rampTick)
	defer ticker.Stop()

	stageStart := time.Now()
next:
	for _, st := range ramp {
		if st.duration <= 0 {
			pacer.SetRate(st.to)
			continue
		}
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				elapsed := now.Sub(stageStart)
				if elapsed >= st.duration {
					pacer.SetRate(st.to)
					stageStart = stageStart.Add(st.duration)
					continue next
				}
				frac := float64(elapsed) / float64(st.duration)
				pacer.SetRate(st.from + (st.to-st.from)*frac)
			}
		}
	}
}
