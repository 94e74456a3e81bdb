package loadgen

import (
	"context"
	"time"
)

// distPoint is one row of a cumulative latency distribution: cum
// requests finished at or below value.
type distPoint struct {
	value time.Duration
	cum   int64
}

// emitDistribution replays a cumulative percentile table as weighted
// sample events: each row contributes the requests that arrived since
// the previous row, at that row's latency. Rows must be sorted by
// percentile; out-of-order counts or values are clamped to keep the
// stream monotone. Returns the total weight emitted.
func emitDistribution(ctx context.Context, events chan<- SampleEvent, at time.Time, points []distPoint) int64 {
	var (
		prevCum int64
		prevVal time.Duration
		emitted int64
	)
	for _, pt := range points {
		if pt.cum < prevCum {
			pt.cum = prevCum
		}
		if pt.value < prevVal {
			pt.value = prevVal
		}
		weight := pt.cum - prevCum
		prevCum = pt.cum
		prevVal = pt.value
		if weight <= 0 {
			continue
		}
		select {
		case events <- SampleEvent{Timestamp: at, Latency: pt.value, Weight: weight}:
			emitted += weight
		case <-ctx.Done():
			return emitted
		}
	}
	return emitted
}
