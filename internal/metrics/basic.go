package metrics

import "time"

// DefaultBasicBuckets is the bucket count used when a benchmark does not
// configure one.
const DefaultBasicBuckets = 30

// BasicConfig controls the bucketed histogram. Buckets is the number of
// equal-width divisions. OutlierBound is the cutoff above which a sample
// is excluded from every bucket and tallied in OutliersRemoved; a zero
// bound disables removal and spans the buckets to the observed maximum
// instead.
type BasicConfig struct {
	Buckets      int           `json:"buckets" yaml:"buckets"`
	OutlierBound time.Duration `json:"outlierBound" yaml:"outlier_bound"`
}

func (c BasicConfig) withDefaults() BasicConfig {
	if c.Buckets <= 0 {
		c.Buckets = DefaultBasicBuckets
	}
	return c
}

// HistBucket is one bucket of the basic histogram. Gte is the inclusive
// lower bound in milliseconds, strictly increasing across the slice.
// Count1stHalf is the portion of Count contributed by the first half of
// the stream in arrival order, used to eyeball warm-up drift without the
// full summary.
type HistBucket struct {
	Gte          float64 `json:"gte"`
	Count        int64   `json:"count"`
	Count1stHalf int64   `json:"count1stHalf"`
}

// BasicHistogram is the finalized bucketed view of one run. The sum of
// all bucket counts plus OutliersRemoved equals the number of samples
// fed to the builder.
type BasicHistogram struct {
	Buckets         []HistBucket `json:"buckets"`
	OutliersRemoved int64        `json:"outliersRemoved"`
}

type weightedSample struct {
	value  time.Duration
	weight int64
}

// BasicBuilder accumulates the sample stream and fixes bucket boundaries
// only at Finalize, once the total count (and therefore the 50% split)
// is known exactly. Samples are buffered in arrival order, so memory
// grows with the run's sample count.
//
// BasicBuilder is not safe for concurrent use; Recorder serializes
// access to it.
type BasicBuilder struct {
	cfg     BasicConfig
	samples []weightedSample
	total   int64
}

// NewBasicBuilder creates an empty builder.
func NewBasicBuilder(cfg BasicConfig) *BasicBuilder {
	return &BasicBuilder{cfg: cfg.withDefaults()}
}

// Record appends a sample in arrival order. A weight above one stands
// for that many identical samples arriving back to back.
func (b *BasicBuilder) Record(value time.Duration, weight int64) {
	if weight <= 0 {
		weight = 1
	}
	b.samples = append(b.samples, weightedSample{value: value, weight: weight})
	b.total += weight
}

// Total returns the number of samples recorded so far, weights included.
func (b *BasicBuilder) Total() int64 { return b.total }

// Finalize derives bucket boundaries and counts from the buffered
// stream. The builder stays usable afterwards; further samples simply
// shift the next Finalize.
func (b *BasicBuilder) Finalize() *BasicHistogram {
	out := &BasicHistogram{Buckets: []HistBucket{}}
	if b.total == 0 {
		return out
	}

	// The configured bound removes outliers; without one the span is the
	// observed maximum and nothing is removed.
	cutoff := b.cfg.OutlierBound
	span := cutoff
	if span <= 0 {
		for _, s := range b.samples {
			if s.value > span {
				span = s.value
			}
		}
	}
	if span <= 0 {
		span = time.Millisecond
	}

	n := b.cfg.Buckets
	width := float64(span) / float64(n)
	buckets := make([]HistBucket, n)
	for i := range buckets {
		buckets[i].Gte = float64(i) * width / float64(time.Millisecond)
	}

	half := b.total / 2
	var pos, outliers int64
	for _, s := range b.samples {
		inFirstHalf := int64(0)
		if pos < half {
			inFirstHalf = s.weight
			if rest := half - pos; rest < inFirstHalf {
				inFirstHalf = rest
			}
		}
		pos += s.weight

		if cutoff > 0 && s.value > cutoff {
			outliers += s.weight
			continue
		}
		idx := int(float64(s.value) / width)
		if idx >= n {
			idx = n - 1
		}
		if idx < 0 {
			idx = 0
		}
		buckets[idx].Count += s.weight
		buckets[idx].Count1stHalf += inFirstHalf
	}

	out.Buckets = buckets
	out.OutliersRemoved = outliers
	return out
}
