package utcptypes

import "encoding/json"

// JSONSchema is an inlined JSON Schema document describing a tool's inputs
// or outputs. It is kept as a raw map rather than a typed struct since UTCP
// imposes no constraints on the schema dialect a provider uses.
type JSONSchema map[string]any

// Tool describes one invocable operation discovered from a manual.
type Tool struct {
	// Name is the tool's bare name as declared by its provider. Once
	// registered it is namespaced by its owning manual (see pkg/repository).
	Name string `json:"name"`
	// Description is a human/LLM-facing summary used by search scoring.
	Description string `json:"description,omitempty"`
	// Inputs is the JSON Schema for the tool's call arguments.
	Inputs JSONSchema `json:"inputs,omitempty"`
	// Outputs is the JSON Schema for the tool's result.
	Outputs JSONSchema `json:"outputs,omitempty"`
	// Tags are free-form keywords used by search scoring, weighted higher
	// than description terms.
	Tags []string `json:"tags,omitempty"`
	// AverageResponseSize is an optional hint, in bytes, used by callers to
	// size buffers or decide whether to stream.
	AverageResponseSize int `json:"average_response_size,omitempty"`
	// ToolCallTemplate is this tool's own call template. When absent, a
	// clone of the owning manual's call template, named after the manual, is
	// used.
	ToolCallTemplate CallTemplate `json:"-"`
}

// Clone returns a deep copy of the tool.
func (t *Tool) Clone() *Tool {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Inputs = cloneJSONSchema(t.Inputs)
	cp.Outputs = cloneJSONSchema(t.Outputs)
	cp.Tags = cloneStringSlice(t.Tags)
	if t.ToolCallTemplate != nil {
		cp.ToolCallTemplate = t.ToolCallTemplate.Clone()
	}
	return &cp
}

func cloneJSONSchema(s JSONSchema) JSONSchema {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		cp := make(JSONSchema, len(s))
		for k, v := range s {
			cp[k] = v
		}
		return cp
	}
	var cp JSONSchema
	if err := json.Unmarshal(b, &cp); err != nil {
		return s
	}
	return cp
}

// toolWire is Tool's JSON wire shape: ToolCallTemplate is serialized under
// "tool_call_template" using the tagged-union codec rather than struct tags.
type toolWire struct {
	Name                string          `json:"name"`
	Description         string          `json:"description,omitempty"`
	Inputs              JSONSchema      `json:"inputs,omitempty"`
	Outputs             JSONSchema      `json:"outputs,omitempty"`
	Tags                []string        `json:"tags,omitempty"`
	AverageResponseSize int             `json:"average_response_size,omitempty"`
	ToolCallTemplate    json.RawMessage `json:"tool_call_template,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (t *Tool) MarshalJSON() ([]byte, error) {
	w := toolWire{
		Name:                t.Name,
		Description:         t.Description,
		Inputs:              t.Inputs,
		Outputs:             t.Outputs,
		Tags:                t.Tags,
		AverageResponseSize: t.AverageResponseSize,
	}
	if t.ToolCallTemplate != nil {
		ct, err := EncodeCallTemplate(t.ToolCallTemplate)
		if err != nil {
			return nil, err
		}
		w.ToolCallTemplate = ct
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tool) UnmarshalJSON(data []byte) error {
	var w toolWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.Name = w.Name
	t.Description = w.Description
	t.Inputs = w.Inputs
	t.Outputs = w.Outputs
	t.Tags = w.Tags
	t.AverageResponseSize = w.AverageResponseSize
	if len(w.ToolCallTemplate) > 0 && string(w.ToolCallTemplate) != "null" {
		ct, err := DecodeCallTemplate(w.ToolCallTemplate)
		if err != nil {
			return err
		}
		t.ToolCallTemplate = ct
	}
	return nil
}
