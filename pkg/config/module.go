package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	J "cuelang.org/go/encoding/json"
	"cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaFile string

//go:embed default.yaml
var DEFAULT []byte

// readFile loads one YAML or JSON config file as a cue value, keyed off the
// file extension.
func readFile(ctx *cue.Context, path string) (cue.Value, error) {
	var value cue.Value

	data, err := os.ReadFile(path)
	if err != nil {
		return value, err
	}

	switch filepath.Ext(path) {
	case ".json":
		expr, err := J.Extract(path, data)
		if err != nil {
			return value, err
		}
		value = ctx.BuildExpr(expr)
	case ".yaml":
		file, err := yaml.Extract(path, data)
		if err != nil {
			return value, err
		}
		value = ctx.BuildFile(file)
	default:
		return value, fmt.Errorf("unrecognized config format %q", filepath.Ext(path))
	}

	return value, value.Err()
}

// Process unifies the provided configuration files, in order, with the
// embedded schema. With no files at all the embedded defaults apply.
func Process(configPaths []string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaFile)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("invalid config schema: %w", err)
	}

	if len(configPaths) == 0 {
		defaults, err := yaml.Extract("<default>", DEFAULT)
		if err != nil {
			return nil, err
		}

		schema = schema.Unify(ctx.BuildFile(defaults))
		if err := schema.Err(); err != nil {
			return nil, fmt.Errorf("invalid default config: %w", err)
		}
	}

	for _, path := range configPaths {
		value, err := readFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", path, err)
		}

		schema = schema.Unify(value)
		if err := schema.Validate(); err != nil {
			return nil, fmt.Errorf("config file %s is not valid: %w", path, err)
		}
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}

	data, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("could not aggregate config: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
