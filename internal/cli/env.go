package cli

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/querybench/querybench/internal/config"
)

// newEnv builds the environment reader. QUERYBENCH_URL overrides the
// target url, QUERYBENCH_HEADERS_FILE merges a headers file,
// QUERYBENCH_DEBUG raises the log level, and QUERYBENCH_<TOOL>_BIN
// relocates a generator binary.
func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("querybench")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	return v
}

// applyEnvOverrides layers QUERYBENCH_* environment variables over the
// loaded configuration. Environment wins over the file so shared
// configs can point at different targets per machine.
func applyEnvOverrides(cfg *config.GlobalConfig, v *viper.Viper) error {
	if url := v.GetString("url"); url != "" {
		cfg.URL = url
	}
	if v.GetBool("debug") {
		cfg.Debug = true
	}
	if path := v.GetString("headers-file"); path != "" {
		headers, err := loadHeadersFile(path)
		if err != nil {
			return err
		}
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(headers))
		}
		for k, val := range headers {
			cfg.Headers[k] = val
		}
	}
	if bin := v.GetString("autocannon-bin"); bin != "" {
		cfg.Tools.AutocannonBin = bin
	}
	if bin := v.GetString("k6-bin"); bin != "" {
		cfg.Tools.K6Bin = bin
	}
	if bin := v.GetString("wrk2-bin"); bin != "" {
		cfg.Tools.Wrk2Bin = bin
	}
	return nil
}

// loadHeadersFile reads a YAML or JSON map of header name to value.
func loadHeadersFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading headers file %s", path)
	}
	headers := make(map[string]string)
	if err := yaml.Unmarshal(data, &headers); err != nil {
		return nil, errors.Wrapf(err, "parsing headers file %s", path)
	}
	return headers, nil
}
