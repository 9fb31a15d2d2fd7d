// Package postprocess implements the post-processor pipeline (spec §4.5):
// optional transforms applied, in configured order, to every tool result
// and every stream chunk. The two built-in kinds are filter_dict (key
// inclusion/exclusion) and limit_strings (string truncation), both gated by
// optional tool-name/manual-name allow/deny lists.
package postprocess

import (
	"context"
	"encoding/json"
	"fmt"

	"goa.design/utcp/pkg/kindregistry"
)

// PostProcessor is the contract every post-processor kind must satisfy.
type PostProcessor interface {
	// Process transforms result (a decoded JSON-like value: map[string]any,
	// []any, or a primitive) for the named tool/manual pair.
	Process(ctx context.Context, manualName, toolName string, result any) (any, error)
}

// gating is the tool-name/manual-name allow/deny configuration shared by
// both built-in kinds.
type gating struct {
	ToolNames        []string `json:"tool_names,omitempty"`
	ExcludeToolNames []string `json:"exclude_tool_names,omitempty"`
	ManualNames      []string `json:"manual_names,omitempty"`
	ExcludeManuals   []string `json:"exclude_manual_names,omitempty"`
}

func (g gating) applies(manualName, toolName string) bool {
	if len(g.ExcludeToolNames) > 0 && matchesAny(g.ExcludeToolNames, toolName) {
		return false
	}
	if len(g.ExcludeManuals) > 0 && matchesAny(g.ExcludeManuals, manualName) {
		return false
	}
	if len(g.ToolNames) > 0 && !matchesAny(g.ToolNames, toolName) {
		return false
	}
	if len(g.ManualNames) > 0 && !matchesAny(g.ManualNames, manualName) {
		return false
	}
	return true
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// matchesAny reports whether s matches any of patterns, each interpreted by
// matchGlob. Tool/manual gating lists accept glob patterns (e.g.
// "admin.*", "internal/**") alongside exact names.
func matchesAny(patterns []string, s string) bool {
	for _, p := range patterns {
		if matchGlob(p, s) {
			return true
		}
	}
	return false
}

// matchGlob performs simple glob matching supporting * and ** wildcards.
// * matches any sequence of non-separator characters.
// ** matches any sequence including separators.
func matchGlob(pattern, name string) bool {
	if pattern == name {
		return true
	}
	if pattern == "**" {
		return true
	}
	if len(pattern) > 2 && pattern[len(pattern)-2:] == "/*" {
		prefix := pattern[:len(pattern)-2]
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			rest := name[len(prefix)+1:]
			for i := 0; i < len(rest); i++ {
				if rest[i] == '/' {
					return false
				}
			}
			return true
		}
		return false
	}
	if len(pattern) > 3 && pattern[len(pattern)-3:] == "/**" {
		prefix := pattern[:len(pattern)-3]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}
	if len(pattern) > 1 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}
	return false
}

// Kind string constants.
const (
	KindFilterDict    = "filter_dict"
	KindLimitStrings  = "limit_strings"
)

// FilterDict recursively walks a result, keeping only an inclusion set of
// keys (if non-empty) or dropping an exclusion set of keys otherwise.
// Inclusion wins when both are configured. Sub-structures left empty after
// filtering are pruned.
type FilterDict struct {
	gating
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// Process implements PostProcessor.
func (f *FilterDict) Process(_ context.Context, manualName, toolName string, result any) (any, error) {
	if !f.applies(manualName, toolName) {
		return result, nil
	}
	filtered, _ := f.filter(result)
	return filtered, nil
}

// filter returns the filtered value and whether it is "empty" (and so
// should be pruned from its parent container).
func (f *FilterDict) filter(v any) (any, bool) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if len(f.Include) > 0 {
				if !containsStr(f.Include, k) {
					continue
				}
			} else if len(f.Exclude) > 0 && containsStr(f.Exclude, k) {
				continue
			}
			sub, empty := f.filter(item)
			if empty {
				continue
			}
			out[k] = sub
		}
		return out, len(out) == 0
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			sub, empty := f.filter(item)
			if empty {
				continue
			}
			out = append(out, sub)
		}
		return out, len(out) == 0
	default:
		return v, isEmptyScalar(v)
	}
}

func isEmptyScalar(v any) bool {
	return v == nil
}

// LimitStrings recursively truncates every string value to MaxLength.
type LimitStrings struct {
	gating
	MaxLength int `json:"max_length"`
}

// Process implements PostProcessor.
func (l *LimitStrings) Process(_ context.Context, manualName, toolName string, result any) (any, error) {
	if !l.applies(manualName, toolName) {
		return result, nil
	}
	return l.truncate(result), nil
}

func (l *LimitStrings) truncate(v any) any {
	switch val := v.(type) {
	case string:
		if len(val) > l.MaxLength {
			return val[:l.MaxLength]
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = l.truncate(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = l.truncate(item)
		}
		return out
	default:
		return v
	}
}

// configEnvelope carries only the discriminator; the rest is re-decoded
// into the concrete post-processor struct.
type configEnvelope struct {
	PostProcessingType string `json:"post_processing_type"`
}

// Decode parses one post_processing entry into its concrete PostProcessor.
func Decode(data []byte) (PostProcessor, error) {
	var env configEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode post-processor envelope: %w", err)
	}
	switch env.PostProcessingType {
	case KindFilterDict:
		var p FilterDict
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode filter_dict config: %w", err)
		}
		return &p, nil
	case KindLimitStrings:
		var p LimitStrings
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode limit_strings config: %w", err)
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown post_processing_type %q", env.PostProcessingType)
	}
}

// Factory builds a PostProcessor from raw JSON configuration.
type Factory func(data []byte) (PostProcessor, error)

// Kinds is the registry of post-processor kinds, keyed by
// post_processing_type.
var Kinds = kindregistry.New[Factory]("post_processing")

var bootstrap kindregistry.Guard

// Bootstrap installs the two built-in post-processor kinds.
func Bootstrap() {
	bootstrap.Do(func() {
		Kinds.Register(KindFilterDict, func(data []byte) (PostProcessor, error) {
			return Decode(data)
		}, false)
		Kinds.Register(KindLimitStrings, func(data []byte) (PostProcessor, error) {
			return Decode(data)
		}, false)
	})
}

// Pipeline applies an ordered list of post-processors to a result or chunk.
type Pipeline struct {
	Stages []PostProcessor
}

// Apply runs every stage in order, feeding each stage's output to the next.
func (p *Pipeline) Apply(ctx context.Context, manualName, toolName string, result any) (any, error) {
	var err error
	for _, stage := range p.Stages {
		result, err = stage.Process(ctx, manualName, toolName, result)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
