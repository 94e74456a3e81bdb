package metrics

import (
	"math"
	"sort"
	"time"
)

// Summary is the fused statistical view of one benchmark run. All
// latency fields are milliseconds. GeoMean is present only when every
// sample is strictly positive; the prefix fields (first half, quarter,
// eighth of the stream in arrival order) are present only when the
// producing backend delivered an ordered sample stream and the prefix is
// non-empty. A shrinking p50 or geometric mean across the prefixes is
// the signature of warm-up effects such as cache fill or JIT settling.
type Summary struct {
	TotalCount   int64   `json:"totalCount"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	StdDeviation float64 `json:"stdDeviation"`

	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P975  float64 `json:"p97_5"`
	P99   float64 `json:"p99"`
	P999  float64 `json:"p99_9"`
	P9999 float64 `json:"p99_99"`

	GeoMean float64 `json:"geoMean,omitempty"`

	P501stHalf    float64 `json:"p501stHalf,omitempty"`
	P501stQuarter float64 `json:"p501stQuarter,omitempty"`
	P501stEighth  float64 `json:"p501stEighth,omitempty"`

	GeoMean1stHalf    float64 `json:"geoMean1stHalf,omitempty"`
	GeoMean1stQuarter float64 `json:"geoMean1stQuarter,omitempty"`
	GeoMean1stEighth  float64 `json:"geoMean1stEighth,omitempty"`
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// computeSummary derives the summary from the precise histogram plus the
// buffered sample stream. The buffer supplies what the histogram cannot:
// the geometric mean and, when ordered, the prefix statistics.
func computeSummary(h *Histogram, samples []weightedSample, ordered bool) Summary {
	s := Summary{TotalCount: h.TotalCount()}
	if s.TotalCount == 0 {
		return s
	}

	s.Min = millis(h.Min())
	s.Max = millis(h.Max())
	s.Mean = millis(h.Mean())
	s.StdDeviation = millis(h.StdDev())

	for _, pc := range []struct {
		p   float64
		dst *float64
	}{
		{50, &s.P50}, {75, &s.P75}, {90, &s.P90}, {95, &s.P95},
		{97.5, &s.P975}, {99, &s.P99}, {99.9, &s.P999}, {99.99, &s.P9999},
	} {
		v, _ := h.Percentile(pc.p)
		*pc.dst = millis(v)
	}

	total := weightedTotal(samples)
	s.GeoMean = geoMean(samples, total)

	if ordered {
		s.P501stHalf, s.GeoMean1stHalf = prefixStats(samples, total/2)
		s.P501stQuarter, s.GeoMean1stQuarter = prefixStats(samples, total/4)
		s.P501stEighth, s.GeoMean1stEighth = prefixStats(samples, total/8)
	}
	return s
}

func weightedTotal(samples []weightedSample) int64 {
	var t int64
	for _, s := range samples {
		t += s.weight
	}
	return t
}

// geoMean computes exp(mean(log(value))) over the weighted samples, in
// milliseconds. It returns 0 when any sample is non-positive, which the
// summary encodes as "absent".
func geoMean(samples []weightedSample, total int64) float64 {
	if total == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		ms := millis(s.value)
		if ms <= 0 {
			return 0
		}
		sum += float64(s.weight) * math.Log(ms)
	}
	return math.Exp(sum / float64(total))
}

// prefixStats computes the lower median and geometric mean over the
// first n arrival-ordered samples. A weight straddling the cut is split
// so that exactly n samples count. Both values are 0 when n is 0.
func prefixStats(samples []weightedSample, n int64) (p50, geo float64) {
	if n <= 0 {
		return 0, 0
	}

	prefix := make([]weightedSample, 0, len(samples))
	var pos int64
	for _, s := range samples {
		if pos >= n {
			break
		}
		w := s.weight
		if rest := n - pos; rest < w {
			w = rest
		}
		prefix = append(prefix, weightedSample{value: s.value, weight: w})
		pos += w
	}
	if pos == 0 {
		return 0, 0
	}

	geo = geoMean(prefix, pos)

	sort.Slice(prefix, func(i, j int) bool { return prefix[i].value < prefix[j].value })
	target := (pos-1)/2 + 1
	var cum int64
	for _, s := range prefix {
		cum += s.weight
		if cum >= target {
			p50 = millis(s.value)
			break
		}
	}
	return p50, geo
}
