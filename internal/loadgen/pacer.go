package loadgen

import (
	"context"
	"sync"
	"time"
)

// Pacer schedules request start times at a target rate with a leaky
// bucket: rather than counting available tokens it tracks when the next
// request is due, which stays smooth across rate changes during ramps
// and never bursts after a stall.
//
// Pacer is safe for concurrent use; each Next call claims one slot, so
// a worker pool sharing one Pacer divides the target rate between its
// workers automatically.
type Pacer struct {
	mu          sync.Mutex
	rate        float64
	lastDrip    time.Time
	accumulated float64
}

// NewPacer creates a pacer targeting rate requests per second. Rates at
// or below zero are clamped to one.
func NewPacer(rate float64) *Pacer {
	if rate <= 0 {
		rate = 1.0
	}
	return &Pacer{rate: rate, lastDrip: time.Now()}
}

// Next returns when the next request should start. A time in the past
// means the caller is behind schedule and should fire immediately.
func (p *Pacer) Next() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	base := p.lastDrip
	if now.After(base) {
		// Idle time since the last scheduled slot earns credit, capped
		// at one slot so a stall never turns into a burst.
		p.accumulated += now.Sub(base).Seconds() * p.rate
		if p.accumulated > 1.0 {
			p.accumulated = 1.0
		}
		base = now
	}

	if p.accumulated >= 1.0 {
		p.accumulated -= 1.0
		p.lastDrip = base
		return base
	}

	// The slot chains onto the schedule frontier, not onto now, so
	// concurrent claims divide the rate between them instead of each
	// pacing independently.
	wait := (1.0 - p.accumulated) / p.rate
	p.accumulated = 0
	next := base.Add(time.Duration(wait * float64(time.Second)))
	p.lastDrip = next
	return next
}

// Wait blocks until the next slot is due or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	next := p.Next()
	wait := time.Until(next)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetRate switches the target rate. Credit earned at the old rate is
// folded forward first, capped at a single request, so frequent ramp
// ticks neither starve a slow rate nor burst past a fast one.
func (p *Pacer) SetRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rate <= 0 {
		rate = 1.0
	}
	now := time.Now()
	if elapsed := now.Sub(p.lastDrip).Seconds(); elapsed > 0 {
		p.accumulated += elapsed * p.rate
		if p.accumulated > 1.0 {
			p.accumulated = 1.0
		}
		p.lastDrip = now
	}
	p.rate = rate
}

// Rate returns the current target rate in requests per second.
func (p *Pacer) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}
