package loadgen

import (
	"fmt"
	"time"

	"github.com/querybench/querybench/internal/config"
)

// toolOptions returns the CUSTOM option block for this run's tool, nil
// when absent. Options are keyed per tool so one benchmark can carry
// different knobs for each backend it runs on.
func (s RunSpec) toolOptions() map[string]interface{} {
	if s.Benchmark == nil {
		return nil
	}
	return s.Benchmark.Options[s.Tool]
}

// numericOption reads the first present key as a float64. YAML and JSON
// decoding deliver numbers as int or float64 depending on the source,
// so both are accepted.
func numericOption(opts map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := opts[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
	}
	return 0, false
}

// durationOption reads key as a duration: a Go duration string, or a
// bare number of seconds.
func durationOption(opts map[string]interface{}, key string) (time.Duration, bool, error) {
	v, ok := opts[key]
	if !ok {
		return 0, false, nil
	}
	switch d := v.(type) {
	case string:
		parsed, err := config.ParseDurationString(d)
		if err != nil {
			return 0, true, err
		}
		return parsed, true, nil
	case float64:
		return time.Duration(d * float64(time.Second)), true, nil
	case int:
		return time.Duration(d) * time.Second, true, nil
	case int64:
		return time.Duration(d) * time.Second, true, nil
	}
	return 0, true, fmt.Errorf("option %q: unsupported type %T", key, v)
}

// stringOption reads key as a string.
func stringOption(opts map[string]interface{}, key string) (string, bool) {
	v, ok := opts[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// extraArgs reads the free-form "args" list a CUSTOM block may carry,
// appended verbatim to the tool's command line. Non-string entries are
// skipped.
func extraArgs(opts map[string]interface{}) []string {
	raw, ok := opts["args"].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
