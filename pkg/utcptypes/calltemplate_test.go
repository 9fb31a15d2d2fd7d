package utcptypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallTemplate_EncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []CallTemplate{
		&HTTPCallTemplate{Name: "demo", URL: "https://api.example.com/v1", Method: MethodGET},
		&StreamableHTTPCallTemplate{Name: "demo", URL: "https://api.example.com/stream", Method: MethodPOST, ChunkSize: 4096},
		&SSECallTemplate{Name: "demo", URL: "https://api.example.com/events", EventType: "message"},
		&MCPCallTemplate{Name: "demo", Servers: map[string]MCPServerConfig{
			"fs": {Transport: MCPTransportStdio, Command: "mcp-fs"},
		}},
		&TextCallTemplate{Name: "demo", Content: `{"utcp_version":"1.0.0","tools":[]}`},
		&CLICallTemplate{Name: "demo", Steps: []CommandStep{{Command: "echo hi"}}},
		&DirectCallTemplate{Name: "demo", CallableName: "native_fn"},
	}
	for _, tmpl := range cases {
		raw, err := EncodeCallTemplate(tmpl)
		require.NoError(t, err)
		decoded, err := DecodeCallTemplate(raw)
		require.NoError(t, err)
		require.Equal(t, tmpl.Type(), decoded.Type())
		require.Equal(t, tmpl.GetName(), decoded.GetName())
	}
}

func TestCallTemplate_EncodeIncludesAuth(t *testing.T) {
	t.Parallel()

	tmpl := &HTTPCallTemplate{
		Name:   "demo",
		URL:    "https://api.example.com",
		Method: MethodGET,
		Auth:   &BasicAuth{Username: "u", Password: "p"},
	}
	raw, err := EncodeCallTemplate(tmpl)
	require.NoError(t, err)
	decoded, err := DecodeCallTemplate(raw)
	require.NoError(t, err)
	http, ok := decoded.(*HTTPCallTemplate)
	require.True(t, ok)
	require.Equal(t, AuthKindBasic, http.Auth.Kind())
}

func TestCallTemplate_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	tmpl := &HTTPCallTemplate{Name: "demo", URL: "https://x", Headers: map[string]string{"A": "1"}}
	cp := tmpl.Clone().(*HTTPCallTemplate)
	cp.Headers["A"] = "2"
	require.Equal(t, "1", tmpl.Headers["A"])
}

func TestCallTemplate_SetNamePropagatesToGetName(t *testing.T) {
	t.Parallel()

	tmpl := &CLICallTemplate{}
	tmpl.SetName("renamed")
	require.Equal(t, "renamed", tmpl.GetName())
}

func TestDecodeCallTemplate_UnknownKindFails(t *testing.T) {
	t.Parallel()

	_, err := DecodeCallTemplate([]byte(`{"call_template_type":"bogus"}`))
	require.Error(t, err)
}
