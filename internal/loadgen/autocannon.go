package loadgen

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/querybench/querybench/internal/config"
)

// autocannonPercentiles are the latency keys autocannon's JSON report
// carries, in ascending order. Decimal points become underscores in the
// key names.
var autocannonPercentiles = []struct {
	key string
	q   float64
}{
	{"p0_001", 0.001},
	{"p0_01", 0.01},
	{"p0_1", 0.1},
	{"p1", 1},
	{"p2_5", 2.5},
	{"p10", 10},
	{"p25", 25},
	{"p50", 50},
	{"p75", 75},
	{"p90", 90},
	{"p97_5", 97.5},
	{"p99", 99},
	{"p99_9", 99.9},
	{"p99_99", 99.99},
	{"p99_999", 99.999},
}

// AutocannonAdapter shells out to autocannon and replays its percentile
// table as a weighted distribution. Autocannon reports non-2xx counts
// but not their individual latencies, so events are unmarked and the
// failure count lives in the counters alone.
type AutocannonAdapter struct{}

func NewAutocannon() *AutocannonAdapter { return &AutocannonAdapter{} }

func (a *AutocannonAdapter) Name() string { return config.ToolAutocannon }

func (a *AutocannonAdapter) Fidelity() Fidelity { return FidelityDistribution }

func (a *AutocannonAdapter) Run(ctx context.Context, spec RunSpec, events chan<- SampleEvent) (Counters, error) {
	args, err := autocannonArgs(spec)
	if err != nil {
		return Counters{}, err
	}
	bin := binaryPath(spec.Tools.AutocannonBin, "autocannon")
	stdout, _, err := spec.runTool(ctx, bin, args, "")
	if err != nil {
		return Counters{}, err
	}
	return parseAutocannon(ctx, spec, stdout, events)
}

func autocannonArgs(spec RunSpec) ([]string, error) {
	b := spec.Benchmark
	body, err := graphqlBody(b)
	if err != nil {
		return nil, errors.Wrap(err, "encoding request body")
	}

	args := []string{"--json", "-m", "POST", "-H", "Content-Type: application/json", "-b", string(body)}
	for _, k := range sortedKeys(spec.Headers) {
		args = append(args, "-H", k+": "+spec.Headers[k])
	}
	if b.Connections > 0 {
		args = append(args, "-c", strconv.Itoa(b.Connections))
	}

	switch b.ExecutionStrategy {
	case config.StrategyRequestsPerSecond:
		d, err := b.ParsedDuration()
		if err != nil {
			return nil, errors.Wrap(err, "parsing duration")
		}
		args = append(args, "-R", strconv.Itoa(b.RPS), "-d", strconv.Itoa(wholeSeconds(d)))

	case config.StrategyFixedRequestNumber:
		args = append(args, "-a", strconv.Itoa(b.Requests))

	case config.StrategyMaxRequestsInDuration:
		d, err := b.ParsedDuration()
		if err != nil {
			return nil, errors.Wrap(err, "parsing duration")
		}
		args = append(args, "-d", strconv.Itoa(wholeSeconds(d)))

	case config.StrategyCustom:
		opts := spec.toolOptions()
		if opts == nil {
			return nil, spec.toolError(ToolUnsupported, errors.New("CUSTOM strategy needs an options block for autocannon"))
		}
		if rate, ok := numericOption(opts, "rps", "rate"); ok && rate > 0 {
			args = append(args, "-R", strconv.Itoa(int(rate)))
		}
		if d, ok, err := durationOption(opts, "duration"); err != nil {
			return nil, spec.toolError(ToolUnsupported, err)
		} else if ok {
			args = append(args, "-d", strconv.Itoa(wholeSeconds(d)))
		}
		if n, ok := numericOption(opts, "requests", "amount"); ok && n > 0 {
			args = append(args, "-a", strconv.Itoa(int(n)))
		}
		args = append(args, extraArgs(opts)...)

	default:
		// MULTI_STAGE: autocannon has no ramp scheduler.
		return nil, spec.toolError(ToolUnsupported, errors.Errorf("strategy %s", b.ExecutionStrategy))
	}

	return append(args, spec.URL), nil
}

func parseAutocannon(ctx context.Context, spec RunSpec, out []byte, events chan<- SampleEvent) (Counters, error) {
	res := gjson.ParseBytes(out)
	if !res.Get("requests.total").Exists() {
		return Counters{}, spec.toolError(ToolBadOutput, errors.New("missing requests.total in autocannon report"))
	}

	c := Counters{
		Requests:   res.Get("requests.total").Int(),
		Failed:     res.Get("non2xx").Int(),
		Errors:     res.Get("errors").Int(),
		TotalBytes: res.Get("throughput.total").Int(),
	}
	if t := res.Get("start"); t.Exists() {
		c.Start = t.Time()
	}
	if t := res.Get("finish"); t.Exists() {
		c.End = t.Time()
	}

	latency := res.Get("latency")
	points := make([]distPoint, 0, len(autocannonPercentiles)+1)
	for _, p := range autocannonPercentiles {
		v := latency.Get(p.key)
		if !v.Exists() {
			continue
		}
		// Floor keeps the cumulative count conservative so the final
		// max row always retains at least its own weight.
		points = append(points, distPoint{
			value: millisToDuration(v.Float()),
			cum:   int64(math.Floor(float64(c.Requests) * p.q / 100)),
		})
	}
	if max := latency.Get("max"); max.Exists() {
		points = append(points, distPoint{value: millisToDuration(max.Float()), cum: c.Requests})
	}

	emitDistribution(ctx, events, c.Start, points)
	return c, nil
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// wholeSeconds rounds a duration up to whole seconds for tools whose
// flags only take seconds.
func wholeSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
