package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRecorderConcurrentProducers(t *testing.T) {
	r := NewRecorder(RecorderConfig{Ordered: true})

	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				latency := time.Duration(1+(i%50)) * time.Millisecond
				if err := r.Record(latency, 1, 128, false); err != nil {
					t.Errorf("Record returned error: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	res := r.Results()
	want := int64(producers * perProducer)
	if res.Histogram.TotalCount() != want {
		t.Errorf("TotalCount() = %d, want %d", res.Histogram.TotalCount(), want)
	}
	if res.Succeeded != want {
		t.Errorf("Succeeded = %d, want %d", res.Succeeded, want)
	}
	if res.Bytes != want*128 {
		t.Errorf("Bytes = %d, want %d", res.Bytes, want*128)
	}
	if res.Summary.TotalCount != want {
		t.Errorf("Summary.TotalCount = %d, want %d", res.Summary.TotalCount, want)
	}

	count, _ := sumBuckets(res.Basic)
	if count+res.Basic.OutliersRemoved != want {
		t.Errorf("basic histogram accounts for %d samples, want %d", count+res.Basic.OutliersRemoved, want)
	}
	if len(res.Parsed) == 0 {
		t.Error("Parsed is empty, want distribution rows")
	}
	if last := res.Parsed[len(res.Parsed)-1]; last.TotalCount != want {
		t.Errorf("terminal parsed row TotalCount = %d, want %d", last.TotalCount, want)
	}
}

func TestRecorderRejectsNegative(t *testing.T) {
	r := NewRecorder(RecorderConfig{})

	err := r.Record(-5*time.Millisecond, 1, 0, false)
	if !errors.Is(err, ErrNegativeLatency) {
		t.Fatalf("Record(-5ms) error = %v, want ErrNegativeLatency", err)
	}

	res := r.Results()
	if res.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", res.Rejected)
	}
	if res.Histogram.TotalCount() != 0 {
		t.Errorf("TotalCount() = %d, want 0 after rejection", res.Histogram.TotalCount())
	}
	if res.Succeeded != 0 {
		t.Errorf("Succeeded = %d, want 0", res.Succeeded)
	}
}

func TestRecorderCountsFailures(t *testing.T) {
	r := NewRecorder(RecorderConfig{})

	if err := r.Record(10*time.Millisecond, 1, 64, false); err != nil {
		t.Fatal(err)
	}
	if err := r.Record(200*time.Millisecond, 1, 32, true); err != nil {
		t.Fatal(err)
	}

	res := r.Results()
	if res.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", res.Succeeded)
	}
	if res.Failed != 1 {
		t.Errorf("Failed = %d, want 1", res.Failed)
	}
	// Failed responses still contribute latency samples.
	if res.Histogram.TotalCount() != 2 {
		t.Errorf("TotalCount() = %d, want 2", res.Histogram.TotalCount())
	}
}

func TestRecorderWeightedSamples(t *testing.T) {
	r := NewRecorder(RecorderConfig{})

	if err := r.Record(25*time.Millisecond, 40, 0, false); err != nil {
		t.Fatal(err)
	}
	if err := r.Record(75*time.Millisecond, 10, 0, false); err != nil {
		t.Fatal(err)
	}

	res := r.Results()
	if res.Histogram.TotalCount() != 50 {
		t.Fatalf("TotalCount() = %d, want 50", res.Histogram.TotalCount())
	}
	p50, _ := res.Histogram.Percentile(50)
	if !withinPct(p50, 25*time.Millisecond, 1) {
		t.Errorf("Percentile(50) = %v, want ~25ms", p50)
	}
	p99, _ := res.Histogram.Percentile(99)
	if !withinPct(p99, 75*time.Millisecond, 1) {
		t.Errorf("Percentile(99) = %v, want ~75ms", p99)
	}
}

func TestRecorderUnorderedOmitsPrefixStats(t *testing.T) {
	r := NewRecorder(RecorderConfig{Ordered: false})
	_ = r.Record(10*time.Millisecond, 50, 0, false)
	_ = r.Record(100*time.Millisecond, 50, 0, false)

	s := r.Results().Summary
	if s.P501stHalf != 0 || s.GeoMean1stHalf != 0 {
		t.Errorf("prefix stats = (%v, %v), want (0, 0) for unordered stream", s.P501stHalf, s.GeoMean1stHalf)
	}
	if s.GeoMean == 0 {
		t.Error("GeoMean = 0, want a value for strictly positive samples")
	}
}
