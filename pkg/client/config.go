// Package client implements the client façade (spec §4.9/C9): it bootstraps
// every extension-point registry, loads configuration and variables,
// orchestrates manual registration, tool calls and streaming, and tears
// down every protocol on close.
package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"goa.design/utcp/pkg/utcperr"
)

// Config mirrors the configuration document (spec §6): variables, an
// ordered list of variable loaders, the repository/search-strategy kinds,
// an ordered post-processor pipeline, and the manuals to register at
// startup.
type Config struct {
	Variables           map[string]string `json:"variables,omitempty"`
	LoadVariablesFrom   []json.RawMessage `json:"load_variables_from,omitempty"`
	ToolRepository      json.RawMessage   `json:"tool_repository,omitempty"`
	ToolSearchStrategy  json.RawMessage   `json:"tool_search_strategy,omitempty"`
	PostProcessing      []json.RawMessage `json:"post_processing,omitempty"`
	ManualCallTemplates []json.RawMessage `json:"manual_call_templates,omitempty"`
}

// configSchema is a minimal structural validation schema: it only pins
// down the top-level shape (variables must be a string map when present),
// since every nested tagged union has its own decoder that reports its own
// errors with more specific context.
const configSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "variables": {"type": "object", "additionalProperties": {"type": "string"}},
    "load_variables_from": {"type": "array"},
    "tool_repository": {"type": "object"},
    "tool_search_strategy": {"type": "object"},
    "post_processing": {"type": "array"},
    "manual_call_templates": {"type": "array"}
  }
}`

var configSchema = mustCompileConfigSchema()

// mustCompileConfigSchema follows the same compile-once-at-package-init
// shape the teacher uses per-call in its registry payload validation
// (jsonschema.NewCompiler + AddResource + Compile), hoisted here since the
// schema itself is a fixed, embedded document rather than per-request data.
func mustCompileConfigSchema() *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(configSchemaJSON), &doc); err != nil {
		panic(fmt.Sprintf("client: invalid embedded config schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.json", doc); err != nil {
		panic(fmt.Sprintf("client: invalid embedded config schema: %v", err))
	}
	schema, err := compiler.Compile("config.json")
	if err != nil {
		panic(fmt.Sprintf("client: invalid embedded config schema: %v", err))
	}
	return schema
}

// ValidateConfig checks raw configuration JSON against the document shape,
// returning ConfigInvalidError on failure.
func ValidateConfig(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return &utcperr.ConfigInvalidError{Reason: "not valid JSON", Err: err}
	}
	if err := configSchema.Validate(doc); err != nil {
		return &utcperr.ConfigInvalidError{Reason: "failed schema validation", Err: err}
	}
	return nil
}

// DecodeConfig validates and parses raw configuration JSON.
func DecodeConfig(data []byte) (*Config, error) {
	if err := ValidateConfig(data); err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &utcperr.ConfigInvalidError{Reason: "malformed configuration document", Err: err}
	}
	return &cfg, nil
}

// LoadConfigFile reads a configuration document from path. YAML is
// accepted as a convenience (detected by .yaml/.yml extension) and
// converted to JSON before decoding; every other extension is parsed as
// JSON, the document's primary wire format (spec §6).
func LoadConfigFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &utcperr.ConfigInvalidError{Reason: fmt.Sprintf("read config file %s", path), Err: err}
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, &utcperr.ConfigInvalidError{Reason: "invalid YAML", Err: err}
		}
		normalized := normalizeYAML(doc)
		raw, err = json.Marshal(normalized)
		if err != nil {
			return nil, &utcperr.ConfigInvalidError{Reason: "converting YAML to JSON", Err: err}
		}
	}
	return DecodeConfig(raw)
}

// normalizeYAML converts map[string]interface{} (what yaml.v3 actually
// produces for mappings) recursively, so json.Marshal never trips over
// non-string map keys.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}
