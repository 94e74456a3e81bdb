package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/querybench/querybench/internal/config"
	"github.com/querybench/querybench/internal/engine"
	"github.com/querybench/querybench/internal/logging"
	"github.com/querybench/querybench/internal/output"
	"github.com/querybench/querybench/internal/probe"
	"github.com/querybench/querybench/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every benchmark in a configuration file",
	Long: `Load a benchmark configuration, execute each benchmark on each of its
tools, and write the collected reports as a JSON array.

  querybench run --config bench.yaml --output report.json

Progress renders on stderr so the report on stdout stays pipeable. An
NDJSON event stream (writer section) and a Redis result store (redis
section or --redis) can be attached for live consumers.`,
	Run: func(cmd *cobra.Command, args []string) {
		var opts runOptions
		opts.configFile, _ = cmd.Flags().GetString("config")
		opts.output, _ = cmd.Flags().GetString("output")
		opts.debug, _ = cmd.Flags().GetBool("debug")
		opts.quiet, _ = cmd.Flags().GetBool("quiet")
		opts.verbose, _ = cmd.Flags().GetBool("verbose")
		opts.noColor, _ = cmd.Flags().GetBool("no-color")
		opts.logFile, _ = cmd.Flags().GetString("log-file")
		opts.redisAddr, _ = cmd.Flags().GetString("redis")

		if opts.configFile == "" {
			fmt.Println("Error: config file is required")
			cmd.Help()
			return
		}

		os.Exit(runBenchmarks(opts))
	},
}

type runOptions struct {
	configFile string
	output     string
	debug      bool
	quiet      bool
	verbose    bool
	noColor    bool
	logFile    string
	redisAddr  string
}

// runBenchmarks executes the whole configuration and returns the
// process exit code. Cleanup runs before returning, so callers can
// os.Exit with the result directly.
func runBenchmarks(opts runOptions) int {
	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	if opts.debug {
		cfg.Debug = true
	}
	if opts.redisAddr != "" {
		if cfg.Redis == nil {
			cfg.Redis = &config.RedisConfig{}
		}
		cfg.Redis.Addr = opts.redisAddr
	}

	log := logging.New(logging.Config{
		Debug:   cfg.Debug,
		NoColor: opts.noColor,
		File:    opts.logFile,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Debug {
		preflight(ctx, cfg, log)
	}

	console := output.NewConsole(os.Stderr,
		output.WithQuiet(opts.quiet),
		output.WithVerbose(opts.verbose),
		output.WithNoColor(opts.noColor),
	)
	observers := []engine.Observer{console}

	var stream *output.NDJSON
	if cfg.Writer != nil {
		nd, closeStream, err := output.OpenNDJSON(cfg.Writer.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening progress sink: %v\n", err)
			return 1
		}
		defer closeStream()
		stream = nd
		observers = append(observers, nd)
	}

	store, err := storage.OpenRedis(ctx, cfg.Redis, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to redis: %v\n", err)
		return 1
	}
	if store != nil {
		defer store.Close()
		observers = append(observers, store)
	}

	runner := engine.NewRunner(cfg,
		engine.WithLogger(log),
		engine.WithObservers(observers...),
	)
	docs, runErr := runner.Run(ctx)

	console.Footer(docs)

	if stream != nil && stream.Err() != nil {
		log.WithError(stream.Err()).Warn("progress sink dropped events")
	}

	if err := output.WriteReportFile(docs, opts.output); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		return 1
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return 1
	}
	return 0
}

// preflight sends one instrumented request to the target before any
// load starts. Failures are logged, not fatal; the benchmarks will
// report the real error with full context.
func preflight(ctx context.Context, cfg *config.GlobalConfig, log *logrus.Entry) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	timings, err := probe.Endpoint(probeCtx, cfg.URL, cfg.Headers)
	if err != nil {
		log.WithError(err).Warn("target preflight failed")
		return
	}
	log.WithFields(timings.Fields()).Debug("target preflight")
}

// loadConfig parses the file, layers environment overrides, fills in
// defaults, and validates the result.
func loadConfig(path string) (*config.GlobalConfig, error) {
	cfg, err := config.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg, newEnv()); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	runCmd.Flags().StringP("config", "c", "", "Benchmark configuration file (YAML or JSON)")
	runCmd.Flags().StringP("output", "o", "", "Report file path (default: stdout)")
	runCmd.Flags().Bool("debug", false, "Enable debug logging")
	runCmd.Flags().BoolP("quiet", "q", false, "Suppress per-run console output, show only the final summary")
	runCmd.Flags().BoolP("verbose", "v", false, "Render latency distributions in the console summary")
	runCmd.Flags().Bool("no-color", false, "Disable colored output")
	runCmd.Flags().String("log-file", "", "Mirror logs to a rotating file")
	runCmd.Flags().String("redis", "", "Redis address for the result store (overrides the config file)")
}
