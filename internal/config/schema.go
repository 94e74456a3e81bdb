package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaCompile  error
)

// checkSchema validates a decoded configuration document against the
// embedded schema. The schema only pins types and document shape;
// required fields and cross-field rules belong to Validate so they
// surface with the ConfigError taxonomy.
func checkSchema(doc interface{}) error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("config.schema.json", strings.NewReader(schemaJSON)); err != nil {
			schemaCompile = err
			return
		}
		compiledSchema, schemaCompile = compiler.Compile("config.schema.json")
	})
	if schemaCompile != nil {
		return fmt.Errorf("embedded schema is invalid: %w", schemaCompile)
	}

	if err := compiledSchema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("config does not match schema: %s", strings.Join(leafMessages(ve), "; "))
		}
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}

// leafMessages flattens a validation error tree into the innermost
// messages, each prefixed with its document location.
func leafMessages(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{fmt.Sprintf("%s: %s", loc, err.Message)}
	}
	var out []string
	for _, cause := range err.Causes {
		out = append(out, leafMessages(cause)...)
	}
	return out
}
