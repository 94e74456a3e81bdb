package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a configuration file and returns the validated, defaulted
// configuration. The file format is determined by extension:
//
//   - .yaml, .yml -> YAML
//   - .json -> JSON
//
// Anything else is tried as YAML.
func Load(path string) (*GlobalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, path)
}

// DecodeFile reads a configuration file without defaulting or
// validating it, for callers that layer overrides on top before
// validation.
func DecodeFile(path string) (*GlobalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Decode(data, path)
}

// Parse decodes, schema-checks, defaults, and validates configuration
// data. The path argument only selects the format from its extension
// and may be empty for YAML.
func Parse(data []byte, path string) (*GlobalConfig, error) {
	cfg, err := Decode(data, path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode decodes and schema-checks configuration data into the typed
// model, leaving defaults unset and field requirements unchecked.
//
// The embedded JSON schema runs before typed decoding so shape mistakes
// (queries as a mapping, rps as a string) are reported with document
// paths instead of Go unmarshal messages. Field-level requirements are
// the validator's job and surface as *ConfigErrors.
func Decode(data []byte, path string) (*GlobalConfig, error) {
	doc, err := decodeGeneric(data, path)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(doc); err != nil {
		return nil, err
	}

	var cfg GlobalConfig
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	return &cfg, nil
}

// decodeGeneric decodes the document into the generic value shape the
// schema validator expects. YAML documents take a round trip through
// encoding/json so numbers and keys end up with JSON types.
func decodeGeneric(data []byte, path string) (interface{}, error) {
	var doc interface{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
		return doc, nil
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize YAML config: %w", err)
	}
	doc = nil
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to normalize YAML config: %w", err)
	}
	return doc, nil
}
