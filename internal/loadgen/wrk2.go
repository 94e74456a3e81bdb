package loadgen

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/querybench/querybench/internal/config"
)

// Wrk2Adapter shells out to wrk2 and replays its detailed percentile
// spectrum as a weighted distribution. wrk2 is constant-throughput
// only, so this backend serves REQUESTS_PER_SECOND and CUSTOM runs and
// rejects the rest.
type Wrk2Adapter struct{}

func NewWrk2() *Wrk2Adapter { return &Wrk2Adapter{} }

func (a *Wrk2Adapter) Name() string { return config.ToolWrk2 }

func (a *Wrk2Adapter) Fidelity() Fidelity { return FidelityDistribution }

var (
	// Spectrum rows print fixed-point value, fractional percentile, and
	// a cumulative count: "   1.582     0.100000      1951    1.11".
	wrk2SpectrumRow = regexp.MustCompile(`^\s*(\d+\.\d+)\s+([01]\.\d+)\s+(\d+)`)
	wrk2Totals      = regexp.MustCompile(`(\d+)\s+requests in\s+[0-9.]+\w+,\s+([0-9.]+)(B|KB|MB|GB|TB)\s+read`)
	wrk2NonOK       = regexp.MustCompile(`Non-2xx or 3xx responses:\s+(\d+)`)
	wrk2SocketErrs  = regexp.MustCompile(`Socket errors: connect (\d+), read (\d+), write (\d+), timeout (\d+)`)
)

func (a *Wrk2Adapter) Run(ctx context.Context, spec RunSpec, events chan<- SampleEvent) (Counters, error) {
	script, err := wrk2Script(spec)
	if err != nil {
		return Counters{}, err
	}

	dir, cleanup, err := spec.scriptDir()
	if err != nil {
		return Counters{}, err
	}
	defer cleanup()

	scriptPath, err := writeScript(dir, runFileBase(spec)+".lua", script)
	if err != nil {
		return Counters{}, err
	}

	args, err := wrk2Args(spec, scriptPath)
	if err != nil {
		return Counters{}, err
	}

	start := time.Now()
	bin := binaryPath(spec.Tools.Wrk2Bin, "wrk")
	stdout, _, runErr := spec.runTool(ctx, bin, args, dir)
	if runErr != nil {
		return Counters{Start: start, End: time.Now()}, runErr
	}
	return parseWrk2(ctx, spec, stdout, events, start, time.Now())
}

func wrk2Args(spec RunSpec, scriptPath string) ([]string, error) {
	b := spec.Benchmark
	conns := b.Connections
	if conns <= 0 {
		conns = defaultWorkers
	}
	threads := conns
	if threads > 8 {
		threads = 8
	}

	args := []string{
		"-t", strconv.Itoa(threads),
		"-c", strconv.Itoa(conns),
		"--latency",
		"-s", scriptPath,
	}

	switch b.ExecutionStrategy {
	case config.StrategyRequestsPerSecond:
		d, err := b.ParsedDuration()
		if err != nil {
			return nil, errors.Wrap(err, "parsing duration")
		}
		args = append(args,
			"-d", fmt.Sprintf("%ds", wholeSeconds(d)),
			"-R", strconv.Itoa(b.RPS),
		)

	case config.StrategyCustom:
		opts := spec.toolOptions()
		if opts == nil {
			return nil, spec.toolError(ToolUnsupported, errors.New("CUSTOM strategy needs an options block for wrk2"))
		}
		rate, ok := numericOption(opts, "rps", "rate")
		if !ok || rate <= 0 {
			return nil, spec.toolError(ToolUnsupported, errors.New("wrk2 needs a positive rate"))
		}
		d, ok, err := durationOption(opts, "duration")
		if err != nil {
			return nil, spec.toolError(ToolUnsupported, err)
		}
		if !ok {
			return nil, spec.toolError(ToolUnsupported, errors.New("wrk2 needs a duration"))
		}
		args = append(args,
			"-d", fmt.Sprintf("%ds", wholeSeconds(d)),
			"-R", strconv.Itoa(int(rate)),
		)
		args = append(args, extraArgs(opts)...)

	default:
		// wrk2 paces a fixed -R rate for its whole run; the other
		// strategies have no expressible equivalent.
		return nil, spec.toolError(ToolUnsupported, errors.Errorf("strategy %s", b.ExecutionStrategy))
	}

	return append(args, spec.URL), nil
}

// wrk2Script renders the Lua request setup. The body rides in a Lua
// long string so JSON needs no escaping.
func wrk2Script(spec RunSpec) ([]byte, error) {
	body, err := graphqlBody(spec.Benchmark)
	if err != nil {
		return nil, errors.Wrap(err, "encoding request body")
	}

	var b strings.Builder
	b.WriteString("wrk.method = \"POST\"\n")
	b.WriteString("wrk.body = " + luaLongString(string(body)) + "\n")
	b.WriteString("wrk.headers[\"Content-Type\"] = \"application/json\"\n")
	for _, k := range sortedKeys(spec.Headers) {
		b.WriteString("wrk.headers[" + strconv.Quote(k) + "] = " + strconv.Quote(spec.Headers[k]) + "\n")
	}
	return []byte(b.String()), nil
}

// luaLongString wraps s in long brackets, raising the level until the
// closing bracket cannot occur inside s.
func luaLongString(s string) string {
	for level := 1; ; level++ {
		close := "]" + strings.Repeat("=", level) + "]"
		if !strings.Contains(s, close) {
			return "[" + strings.Repeat("=", level) + "[" + s + close
		}
	}
}

// parseWrk2 walks the text report: spectrum rows between the detailed
// percentile header and the trailing "#[Mean ..." line become
// distribution points, and the summary lines below them become the
// counters.
func parseWrk2(ctx context.Context, spec RunSpec, out []byte, events chan<- SampleEvent, start, end time.Time) (Counters, error) {
	c := Counters{Start: start, End: end}

	var points []distPoint
	inSpectrum := false

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()

		if strings.Contains(line, "Detailed Percentile spectrum") {
			inSpectrum = true
			continue
		}
		if inSpectrum {
			if strings.HasPrefix(strings.TrimSpace(line), "#") {
				inSpectrum = false
				continue
			}
			if m := wrk2SpectrumRow.FindStringSubmatch(line); m != nil {
				value, _ := strconv.ParseFloat(m[1], 64)
				cum, _ := strconv.ParseInt(m[3], 10, 64)
				points = append(points, distPoint{value: millisToDuration(value), cum: cum})
			}
			continue
		}

		if m := wrk2Totals.FindStringSubmatch(line); m != nil {
			c.Requests, _ = strconv.ParseInt(m[1], 10, 64)
			size, _ := strconv.ParseFloat(m[2], 64)
			c.TotalBytes = scaleByteSize(size, m[3])
		}
		if m := wrk2NonOK.FindStringSubmatch(line); m != nil {
			c.Failed, _ = strconv.ParseInt(m[1], 10, 64)
		}
		if m := wrk2SocketErrs.FindStringSubmatch(line); m != nil {
			for _, g := range m[1:] {
				n, _ := strconv.ParseInt(g, 10, 64)
				c.Errors += n
			}
		}
	}

	if len(points) == 0 {
		return c, spec.toolError(ToolBadOutput, errors.New("no percentile spectrum in wrk2 output"))
	}

	emitDistribution(ctx, events, start, points)
	return c, nil
}

// scaleByteSize converts wrk2's formatted byte totals ("0.94MB") back
// to bytes. wrk formats with binary units.
func scaleByteSize(v float64, unit string) int64 {
	scale := float64(1)
	switch unit {
	case "KB":
		scale = 1 << 10
	case "MB":
		scale = 1 << 20
	case "GB":
		scale = 1 << 30
	case "TB":
		scale = 1 << 40
	}
	return int64(v * scale)
}
