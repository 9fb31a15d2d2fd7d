package utcptypes

import (
	"encoding/json"
	"fmt"
	"time"
)

// CallTemplateType discriminates the CallTemplate tagged union.
type CallTemplateType string

const (
	CallTemplateHTTP           CallTemplateType = "http"
	CallTemplateStreamableHTTP CallTemplateType = "streamable_http"
	CallTemplateSSE            CallTemplateType = "sse"
	CallTemplateMCP            CallTemplateType = "mcp"
	CallTemplateText           CallTemplateType = "text"
	CallTemplateCLI            CallTemplateType = "cli"
	CallTemplateDirect         CallTemplateType = "direct-call"
)

// HTTPMethod enumerates the methods the http call template supports.
type HTTPMethod string

const (
	MethodGET    HTTPMethod = "GET"
	MethodPOST   HTTPMethod = "POST"
	MethodPUT    HTTPMethod = "PUT"
	MethodDELETE HTTPMethod = "DELETE"
	MethodPATCH  HTTPMethod = "PATCH"
)

// CallTemplate is the tagged-union variant describing how to reach a
// provider. Both manuals and individual tools carry one.
type CallTemplate interface {
	// Type returns the call_template_type discriminator.
	Type() CallTemplateType
	// GetName returns the owning manual's name, or "" if unassigned.
	GetName() string
	// SetName assigns the owning manual's name.
	SetName(name string)
	// GetAuth returns the auth configured on this template, if any.
	GetAuth() Auth
	// Clone returns a deep copy so stored/returned templates never alias.
	Clone() CallTemplate
}

type (
	// HTTPCallTemplate describes a single-shot HTTP request/response tool.
	HTTPCallTemplate struct {
		Name        string            `json:"name,omitempty"`
		URL         string            `json:"url"`
		Method      HTTPMethod        `json:"http_method"`
		ContentType string            `json:"content_type,omitempty"`
		Headers     map[string]string `json:"headers,omitempty"`
		BodyField   string            `json:"body_field,omitempty"`
		HeaderFields []string         `json:"header_fields,omitempty"`
		Auth        Auth              `json:"-"`
		AuthTools   Auth              `json:"-"`
	}

	// StreamableHTTPCallTemplate describes an HTTP request whose response body
	// is consumed as a sequence of chunks.
	StreamableHTTPCallTemplate struct {
		Name         string            `json:"name,omitempty"`
		URL          string            `json:"url"`
		Method       HTTPMethod        `json:"http_method"`
		ContentType  string            `json:"content_type,omitempty"`
		ChunkSize    int               `json:"chunk_size,omitempty"`
		Timeout      time.Duration     `json:"timeout,omitempty"`
		Headers      map[string]string `json:"headers,omitempty"`
		BodyField    string            `json:"body_field,omitempty"`
		HeaderFields []string          `json:"header_fields,omitempty"`
		Auth         Auth              `json:"-"`
	}

	// SSECallTemplate describes a Server-Sent Events subscription.
	SSECallTemplate struct {
		Name         string            `json:"name,omitempty"`
		URL          string            `json:"url"`
		EventType    string            `json:"event_type,omitempty"`
		Reconnect    bool              `json:"reconnect,omitempty"`
		RetryTimeout time.Duration     `json:"retry_timeout,omitempty"`
		Headers      map[string]string `json:"headers,omitempty"`
		BodyField    string            `json:"body_field,omitempty"`
		HeaderFields []string          `json:"header_fields,omitempty"`
		Auth         Auth              `json:"-"`
	}

	// MCPTransport discriminates MCP sub-server transports.
	MCPTransport string

	// MCPServerConfig configures one MCP sub-server.
	MCPServerConfig struct {
		Transport MCPTransport      `json:"transport"`
		Command   string            `json:"command,omitempty"`
		Args      []string          `json:"args,omitempty"`
		Env       map[string]string `json:"env,omitempty"`
		Cwd       string            `json:"cwd,omitempty"`
		URL       string            `json:"url,omitempty"`
	}

	// MCPCallTemplate configures one or more named MCP sub-servers.
	MCPCallTemplate struct {
		Name    string                     `json:"name,omitempty"`
		Servers map[string]MCPServerConfig `json:"servers"`
		Auth    Auth                       `json:"-"`
	}

	// TextCallTemplate loads a manual, or a tool's static response, from a
	// local file and/or inline content. Content takes precedence when both
	// are present.
	TextCallTemplate struct {
		Name     string `json:"name,omitempty"`
		FilePath string `json:"file_path,omitempty"`
		Content  string `json:"content,omitempty"`
	}

	// CommandStep is one step of a CLICallTemplate's script.
	CommandStep struct {
		Command             string `json:"command"`
		AppendToFinalOutput *bool  `json:"append_to_final_output,omitempty"`
	}

	// CLICallTemplate composes a multi-step shell script.
	CLICallTemplate struct {
		Name       string            `json:"name,omitempty"`
		Steps      []CommandStep     `json:"commands"`
		Env        map[string]string `json:"env,omitempty"`
		WorkingDir string            `json:"working_dir,omitempty"`
	}

	// DirectCallTemplate refers to a process-local function registered on
	// the direct-call protocol.
	DirectCallTemplate struct {
		Name         string `json:"name,omitempty"`
		CallableName string `json:"callable_name"`
	}
)

const (
	MCPTransportStdio MCPTransport = "stdio"
	MCPTransportHTTP  MCPTransport = "http"
)

func (t *HTTPCallTemplate) Type() CallTemplateType { return CallTemplateHTTP }
func (t *HTTPCallTemplate) GetName() string        { return t.Name }
func (t *HTTPCallTemplate) SetName(n string)        { t.Name = n }
func (t *HTTPCallTemplate) GetAuth() Auth          { return t.Auth }
func (t *HTTPCallTemplate) Clone() CallTemplate {
	cp := *t
	cp.Headers = cloneStringMap(t.Headers)
	cp.HeaderFields = cloneStringSlice(t.HeaderFields)
	if t.Auth != nil {
		cp.Auth = t.Auth.Clone()
	}
	if t.AuthTools != nil {
		cp.AuthTools = t.AuthTools.Clone()
	}
	return &cp
}

func (t *StreamableHTTPCallTemplate) Type() CallTemplateType { return CallTemplateStreamableHTTP }
func (t *StreamableHTTPCallTemplate) GetName() string        { return t.Name }
func (t *StreamableHTTPCallTemplate) SetName(n string)        { t.Name = n }
func (t *StreamableHTTPCallTemplate) GetAuth() Auth          { return t.Auth }
func (t *StreamableHTTPCallTemplate) Clone() CallTemplate {
	cp := *t
	cp.Headers = cloneStringMap(t.Headers)
	cp.HeaderFields = cloneStringSlice(t.HeaderFields)
	if t.Auth != nil {
		cp.Auth = t.Auth.Clone()
	}
	return &cp
}

func (t *SSECallTemplate) Type() CallTemplateType { return CallTemplateSSE }
func (t *SSECallTemplate) GetName() string        { return t.Name }
func (t *SSECallTemplate) SetName(n string)        { t.Name = n }
func (t *SSECallTemplate) GetAuth() Auth          { return t.Auth }
func (t *SSECallTemplate) Clone() CallTemplate {
	cp := *t
	cp.Headers = cloneStringMap(t.Headers)
	cp.HeaderFields = cloneStringSlice(t.HeaderFields)
	if t.Auth != nil {
		cp.Auth = t.Auth.Clone()
	}
	return &cp
}

func (t *MCPCallTemplate) Type() CallTemplateType { return CallTemplateMCP }
func (t *MCPCallTemplate) GetName() string        { return t.Name }
func (t *MCPCallTemplate) SetName(n string)        { t.Name = n }
func (t *MCPCallTemplate) GetAuth() Auth          { return t.Auth }
func (t *MCPCallTemplate) Clone() CallTemplate {
	cp := *t
	cp.Servers = make(map[string]MCPServerConfig, len(t.Servers))
	for k, v := range t.Servers {
		v.Args = cloneStringSlice(v.Args)
		v.Env = cloneStringMap(v.Env)
		cp.Servers[k] = v
	}
	if t.Auth != nil {
		cp.Auth = t.Auth.Clone()
	}
	return &cp
}

func (t *TextCallTemplate) Type() CallTemplateType { return CallTemplateText }
func (t *TextCallTemplate) GetName() string        { return t.Name }
func (t *TextCallTemplate) SetName(n string)        { t.Name = n }
func (t *TextCallTemplate) GetAuth() Auth          { return nil }
func (t *TextCallTemplate) Clone() CallTemplate {
	cp := *t
	return &cp
}

func (t *CLICallTemplate) Type() CallTemplateType { return CallTemplateCLI }
func (t *CLICallTemplate) GetName() string        { return t.Name }
func (t *CLICallTemplate) SetName(n string)        { t.Name = n }
func (t *CLICallTemplate) GetAuth() Auth          { return nil }
func (t *CLICallTemplate) Clone() CallTemplate {
	cp := *t
	cp.Steps = make([]CommandStep, len(t.Steps))
	copy(cp.Steps, t.Steps)
	cp.Env = cloneStringMap(t.Env)
	return &cp
}

func (t *DirectCallTemplate) Type() CallTemplateType { return CallTemplateDirect }
func (t *DirectCallTemplate) GetName() string        { return t.Name }
func (t *DirectCallTemplate) SetName(n string)        { t.Name = n }
func (t *DirectCallTemplate) GetAuth() Auth          { return nil }
func (t *DirectCallTemplate) Clone() CallTemplate {
	cp := *t
	return &cp
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func cloneStringSlice(s []string) []string {
	if s == nil {
		return nil
	}
	cp := make([]string, len(s))
	copy(cp, s)
	return cp
}

// callTemplateEnvelope inspects only the discriminator and auth/name fields
// common across variants; the rest is re-decoded into the concrete struct.
type callTemplateEnvelope struct {
	CallTemplateType CallTemplateType `json:"call_template_type"`
	Name             string           `json:"name,omitempty"`
	Auth             json.RawMessage  `json:"auth,omitempty"`
	AuthTools        json.RawMessage  `json:"auth_tools,omitempty"`
}

// DecodeCallTemplate parses a JSON call template into the concrete variant
// named by its "call_template_type" discriminator. Kind lookup itself is
// delegated to a kindregistry.Registry by the caller in the general case;
// this function implements the decode step for the seven built-in kinds.
func DecodeCallTemplate(data []byte) (CallTemplate, error) {
	var env callTemplateEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode call template envelope: %w", err)
	}
	auth, err := DecodeAuth(env.Auth)
	if err != nil {
		return nil, err
	}
	switch env.CallTemplateType {
	case CallTemplateHTTP:
		var t HTTPCallTemplate
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode http call template: %w", err)
		}
		t.Auth = auth
		if authTools, err := DecodeAuth(env.AuthTools); err != nil {
			return nil, err
		} else {
			t.AuthTools = authTools
		}
		return &t, nil
	case CallTemplateStreamableHTTP:
		var t StreamableHTTPCallTemplate
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode streamable_http call template: %w", err)
		}
		t.Auth = auth
		return &t, nil
	case CallTemplateSSE:
		var t SSECallTemplate
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode sse call template: %w", err)
		}
		t.Auth = auth
		return &t, nil
	case CallTemplateMCP:
		var t MCPCallTemplate
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode mcp call template: %w", err)
		}
		t.Auth = auth
		return &t, nil
	case CallTemplateText:
		var t TextCallTemplate
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode text call template: %w", err)
		}
		return &t, nil
	case CallTemplateCLI:
		var t CLICallTemplate
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode cli call template: %w", err)
		}
		return &t, nil
	case CallTemplateDirect:
		var t DirectCallTemplate
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode direct-call call template: %w", err)
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("unknown call_template_type %q", env.CallTemplateType)
	}
}

// EncodeCallTemplate serializes a CallTemplate variant back to its tagged
// JSON wire form.
func EncodeCallTemplate(t CallTemplate) ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	authJSON, err := EncodeAuth(t.GetAuth())
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	switch v := t.(type) {
	case *HTTPCallTemplate:
		merged, err = toRawMap(v)
		if v.AuthTools != nil {
			atJSON, err2 := EncodeAuth(v.AuthTools)
			if err2 != nil {
				return nil, err2
			}
			merged["auth_tools"] = atJSON
		}
	case *StreamableHTTPCallTemplate:
		merged, err = toRawMap(v)
	case *SSECallTemplate:
		merged, err = toRawMap(v)
	case *MCPCallTemplate:
		merged, err = toRawMap(v)
	case *TextCallTemplate:
		merged, err = toRawMap(v)
	case *CLICallTemplate:
		merged, err = toRawMap(v)
	case *DirectCallTemplate:
		merged, err = toRawMap(v)
	default:
		return nil, fmt.Errorf("unknown call template variant %T", t)
	}
	if err != nil {
		return nil, err
	}
	merged["call_template_type"] = mustMarshal(t.Type())
	if t.GetAuth() != nil {
		merged["auth"] = authJSON
	}
	return json.Marshal(merged)
}

func toRawMap(v any) (map[string]json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func mustMarshal(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
