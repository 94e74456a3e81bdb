package config

import (
	"fmt"
	"net/url"
)

// Validate checks the whole configuration and returns nil or a
// *ConfigErrors carrying every problem found. Validation is pure; it
// never mutates the configuration (see ApplyDefaults for defaults).
func (c *GlobalConfig) Validate() error {
	errs := &ConfigErrors{}

	if c.URL == "" {
		errs.Add("", "url", KindMissingField, "target url is required")
	} else if _, err := url.Parse(c.URL); err != nil {
		errs.Add("", "url", KindInvalidRange, fmt.Sprintf("invalid url: %v", err))
	}

	switch c.ExecutionMode {
	case "", ModeAsync, ModeSync:
	default:
		errs.Add("", "execution_mode", KindInvalidRange,
			fmt.Sprintf("must be %s or %s, got %q", ModeAsync, ModeSync, c.ExecutionMode))
	}

	switch c.OnError {
	case "", OnErrorContinue, OnErrorAbort:
	default:
		errs.Add("", "on_error", KindInvalidRange,
			fmt.Sprintf("must be %s or %s, got %q", OnErrorContinue, OnErrorAbort, c.OnError))
	}

	if c.Histogram.SigFigs < 0 || c.Histogram.SigFigs > 5 {
		errs.Add("", "histogram.sigfigs", KindInvalidRange, "must be between 1 and 5")
	}
	if c.BasicHistogram.Buckets < 0 {
		errs.Add("", "basic_histogram.buckets", KindInvalidRange, "cannot be negative")
	}
	if c.BasicHistogram.OutlierBound < 0 {
		errs.Add("", "basic_histogram.outlier_bound", KindInvalidRange, "cannot be negative")
	}

	if len(c.Queries) == 0 {
		errs.Add("", "queries", KindMissingField, "at least one benchmark is required")
	}
	for i, b := range c.Queries {
		if b == nil {
			errs.Add("", fmt.Sprintf("queries[%d]", i), KindMissingField, "benchmark entry is empty")
			continue
		}
		validateBenchmark(fmt.Sprintf("queries[%d]", i), b, errs)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// validateBenchmark discriminates on the strategy tag and checks the
// variant's required fields. Every strategy is matched explicitly; an
// unrecognized tag is an error, never a fallthrough.
func validateBenchmark(prefix string, b *Benchmark, errs *ConfigErrors) {
	if b.Name == "" {
		errs.Add(b.Name, prefix+".name", KindMissingField, "benchmark name is required")
	}

	if len(b.Tools) == 0 {
		errs.Add(b.Name, prefix+".tools", KindMissingField, "at least one tool is required")
	}
	for i, tool := range b.Tools {
		if !KnownTool(tool) {
			errs.Add(b.Name, fmt.Sprintf("%s.tools[%d]", prefix, i), KindUnknownTool,
				fmt.Sprintf("unknown tool: %s", tool))
		}
	}

	if b.Query == "" {
		errs.Add(b.Name, prefix+".query", KindMissingField, "query document is required")
	}
	if b.Connections < 0 {
		errs.Add(b.Name, prefix+".connections", KindInvalidRange, "connections cannot be negative")
	}

	switch b.ExecutionStrategy {
	case "":
		errs.Add(b.Name, prefix+".execution_strategy", KindMissingField, "execution_strategy is required")

	case StrategyRequestsPerSecond:
		if b.RPS == 0 {
			errs.Add(b.Name, prefix+".rps", KindMissingField,
				"rps is required for "+StrategyRequestsPerSecond)
		} else if b.RPS < 0 {
			errs.Add(b.Name, prefix+".rps", KindInvalidRange, "rps must be greater than 0")
		}
		requireDuration(prefix, b, errs)

	case StrategyFixedRequestNumber:
		if b.Requests == 0 {
			errs.Add(b.Name, prefix+".requests", KindMissingField,
				"requests is required for "+StrategyFixedRequestNumber)
		} else if b.Requests < 0 {
			errs.Add(b.Name, prefix+".requests", KindInvalidRange, "requests must be greater than 0")
		}

	case StrategyMaxRequestsInDuration:
		requireDuration(prefix, b, errs)

	case StrategyMultiStage:
		if b.InitialRPS < 0 {
			errs.Add(b.Name, prefix+".initial_rps", KindInvalidRange, "initial_rps cannot be negative")
		}
		if len(b.Stages) == 0 {
			errs.Add(b.Name, prefix+".stages", KindMissingField,
				"at least one stage is required for "+StrategyMultiStage)
		}
		for i, stage := range b.Stages {
			stagePrefix := fmt.Sprintf("%s.stages[%d]", prefix, i)
			if stage.Duration == "" {
				errs.Add(b.Name, stagePrefix+".duration", KindMissingField, "stage duration is required")
			} else if _, err := ParseDurationString(stage.Duration); err != nil {
				errs.Add(b.Name, stagePrefix+".duration", KindInvalidRange,
					fmt.Sprintf("invalid duration: %v", err))
			}
			if stage.Target < 0 {
				errs.Add(b.Name, stagePrefix+".target", KindInvalidRange, "target cannot be negative")
			}
		}

	case StrategyCustom:
		if len(b.Options) == 0 {
			errs.Add(b.Name, prefix+".options", KindMissingField,
				"options are required for "+StrategyCustom)
		}
		covered := false
		for tool := range b.Options {
			if !KnownTool(tool) {
				errs.Add(b.Name, prefix+".options."+tool, KindUnknownTool,
					fmt.Sprintf("options reference unknown tool: %s", tool))
				continue
			}
			for _, declared := range b.Tools {
				if tool == declared {
					covered = true
				}
			}
		}
		if len(b.Options) > 0 && !covered {
			errs.Add(b.Name, prefix+".options", KindInvalidRange,
				"options must cover at least one of the benchmark's declared tools")
		}

	default:
		errs.Add(b.Name, prefix+".execution_strategy", KindUnknownStrategy,
			fmt.Sprintf("unknown execution strategy: %s", b.ExecutionStrategy))
	}
}

// requireDuration checks the strategy-mandated duration field.
func requireDuration(prefix string, b *Benchmark, errs *ConfigErrors) {
	if b.Duration == "" {
		errs.Add(b.Name, prefix+".duration", KindMissingField,
			"duration is required for "+b.ExecutionStrategy)
		return
	}
	if d, err := ParseDurationString(b.Duration); err != nil {
		errs.Add(b.Name, prefix+".duration", KindInvalidRange, fmt.Sprintf("invalid duration: %v", err))
	} else if d <= 0 {
		errs.Add(b.Name, prefix+".duration", KindInvalidRange, "duration must be greater than 0")
	}
}
