package loadgen

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/querybench/querybench/internal/config"
)

// K6Adapter shells out to k6 with a generated scenario script. The JSON
// results stream carries one http_req_duration point per request with a
// nanosecond timestamp, so this backend keeps full sample fidelity.
type K6Adapter struct{}

func NewK6() *K6Adapter { return &K6Adapter{} }

func (a *K6Adapter) Name() string { return config.ToolK6 }

func (a *K6Adapter) Fidelity() Fidelity { return FidelitySamples }

func (a *K6Adapter) Run(ctx context.Context, spec RunSpec, events chan<- SampleEvent) (Counters, error) {
	scenario, err := k6Scenario(spec)
	if err != nil {
		return Counters{}, err
	}
	script, err := k6Script(spec, scenario)
	if err != nil {
		return Counters{}, err
	}

	dir, cleanup, err := spec.scriptDir()
	if err != nil {
		return Counters{}, err
	}
	defer cleanup()

	base := runFileBase(spec)
	scriptPath, err := writeScript(dir, base+".js", script)
	if err != nil {
		return Counters{}, err
	}
	resultsPath := filepath.Join(dir, base+".ndjson")
	summaryPath := filepath.Join(dir, base+".summary.json")

	args := []string{"run", "--quiet", "--no-color", "--out", "json=" + resultsPath, "--summary-export", summaryPath}
	if opts := spec.toolOptions(); opts != nil {
		args = append(args, extraArgs(opts)...)
	}
	args = append(args, scriptPath)

	bin := binaryPath(spec.Tools.K6Bin, "k6")
	_, _, runErr := spec.runTool(ctx, bin, args, dir)

	// Stream whatever made it to disk even after a failed run; partial
	// samples are still a partial report.
	counters, parseErr := collectK6(ctx, spec, resultsPath, summaryPath, events)
	if runErr != nil {
		return counters, runErr
	}
	return counters, parseErr
}

// k6Scenario maps the execution strategy onto a k6 scenario executor.
func k6Scenario(spec RunSpec) (map[string]interface{}, error) {
	b := spec.Benchmark
	vus := b.Connections
	if vus <= 0 {
		vus = defaultWorkers
	}

	switch b.ExecutionStrategy {
	case config.StrategyRequestsPerSecond:
		d, err := b.ParsedDuration()
		if err != nil {
			return nil, errors.Wrap(err, "parsing duration")
		}
		return map[string]interface{}{
			"executor":        "constant-arrival-rate",
			"rate":            b.RPS,
			"timeUnit":        "1s",
			"duration":        d.String(),
			"preAllocatedVUs": vus,
			"maxVUs":          vus * 4,
		}, nil

	case config.StrategyFixedRequestNumber:
		return map[string]interface{}{
			"executor":    "shared-iterations",
			"iterations":  b.Requests,
			"vus":         vus,
			"maxDuration": "1h",
		}, nil

	case config.StrategyMaxRequestsInDuration:
		d, err := b.ParsedDuration()
		if err != nil {
			return nil, errors.Wrap(err, "parsing duration")
		}
		return map[string]interface{}{
			"executor": "constant-vus",
			"vus":      vus,
			"duration": d.String(),
		}, nil

	case config.StrategyMultiStage:
		stages := make([]map[string]interface{}, 0, len(b.Stages))
		for _, st := range b.Stages {
			d, err := st.ParsedDuration()
			if err != nil {
				return nil, errors.Wrap(err, "parsing stage duration")
			}
			stages = append(stages, map[string]interface{}{
				"duration": d.String(),
				"target":   st.Target,
			})
		}
		return map[string]interface{}{
			"executor":        "ramping-arrival-rate",
			"startRate":       b.InitialRPS,
			"timeUnit":        "1s",
			"preAllocatedVUs": vus,
			"maxVUs":          vus * 4,
			"stages":          stages,
		}, nil

	case config.StrategyCustom:
		opts := spec.toolOptions()
		if raw, ok := opts["scenario"].(map[string]interface{}); ok {
			return raw, nil
		}
		return nil, spec.toolError(ToolUnsupported, errors.New("CUSTOM strategy needs a scenario object in the k6 options block"))

	default:
		return nil, spec.toolError(ToolUnsupported, errors.Errorf("strategy %s", b.ExecutionStrategy))
	}
}

// k6Script renders the run script. All dynamic values are embedded as
// JSON, which is valid JS and keeps quoting out of the template.
func k6Script(spec RunSpec, scenario map[string]interface{}) ([]byte, error) {
	body, err := graphqlBody(spec.Benchmark)
	if err != nil {
		return nil, errors.Wrap(err, "encoding request body")
	}

	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range spec.Headers {
		headers[k] = v
	}

	scenarioJSON, err := json.Marshal(scenario)
	if err != nil {
		return nil, errors.Wrap(err, "encoding scenario")
	}
	urlJSON, err := json.Marshal(spec.URL)
	if err != nil {
		return nil, errors.Wrap(err, "encoding url")
	}
	bodyJSON, err := json.Marshal(string(body))
	if err != nil {
		return nil, errors.Wrap(err, "encoding body")
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, errors.Wrap(err, "encoding headers")
	}

	script := fmt.Sprintf(`import http from 'k6/http';

export const options = {
  scenarios: {
    bench: %s,
  },
};

const url = %s;
const payload = %s;
const params = { headers: %s };

export default function () {
  http.post(url, payload, params);
}
`, scenarioJSON, urlJSON, bodyJSON, headersJSON)

	return []byte(script), nil
}

// collectK6 streams the results file as sample events and folds the
// summary export into the counters. Counters fall back to the streamed
// samples when the summary never got written.
func collectK6(ctx context.Context, spec RunSpec, resultsPath, summaryPath string, events chan<- SampleEvent) (Counters, error) {
	var c Counters

	f, err := os.Open(resultsPath)
	if err != nil {
		return c, spec.toolError(ToolBadOutput, errors.Wrap(err, "opening k6 results"))
	}
	defer f.Close()

	var samples, failed int64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		res := gjson.ParseBytes(line)
		if res.Get("type").String() != "Point" || res.Get("metric").String() != "http_req_duration" {
			continue
		}
		data := res.Get("data")
		ts, terr := time.Parse(time.RFC3339Nano, data.Get("time").String())
		if terr != nil {
			ts = time.Now()
		}
		status := data.Get("tags.status").Int()
		isFailed := status >= 400 || status == 0

		select {
		case events <- SampleEvent{
			Timestamp: ts,
			Latency:   millisToDuration(data.Get("value").Float()),
			Weight:    1,
			Failed:    isFailed,
		}:
		case <-ctx.Done():
			return c, ctx.Err()
		}

		samples++
		if isFailed {
			failed++
		}
		if c.Start.IsZero() || ts.Before(c.Start) {
			c.Start = ts
		}
		if ts.After(c.End) {
			c.End = ts
		}
	}
	if err := sc.Err(); err != nil {
		return c, spec.toolError(ToolBadOutput, errors.Wrap(err, "reading k6 results"))
	}

	c.Requests = samples
	c.Failed = failed

	if summary, err := os.ReadFile(summaryPath); err == nil {
		m := gjson.ParseBytes(summary).Get("metrics")
		if v := m.Get("http_reqs.count"); v.Exists() {
			c.Requests = v.Int()
		}
		if v := m.Get("http_req_failed.passes"); v.Exists() {
			c.Failed = v.Int()
		}
		c.TotalBytes = m.Get("data_received.count").Int()
	}
	return c, nil
}
