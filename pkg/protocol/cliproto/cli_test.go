package cliproto

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/utcp/pkg/utcperr"
	"goa.design/utcp/pkg/utcptypes"
)

func TestCLIProtocol_CallTool_RunsScriptAndParsesJSONOutput(t *testing.T) {
	t.Parallel()

	p := NewCLIProtocol(nil)
	tmpl := &utcptypes.CLICallTemplate{
		Name: "demo",
		Steps: []utcptypes.CommandStep{
			{Command: `echo '{"greeting":"hi UTCP_ARG_name_UTCP_END"}'`},
		},
	}
	result, err := p.CallTool(context.Background(), "demo.greet", map[string]any{"name": "widget"}, tmpl)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"greeting": "hi widget"}, result)
}

func TestCLIProtocol_CallTool_PlainTextOutputIsTrimmed(t *testing.T) {
	t.Parallel()

	p := NewCLIProtocol(nil)
	tmpl := &utcptypes.CLICallTemplate{Name: "demo", Steps: []utcptypes.CommandStep{{Command: "echo '  hello  '"}}}
	result, err := p.CallTool(context.Background(), "demo.echo", nil, tmpl)
	require.NoError(t, err)
	require.Equal(t, "hello", result)
}

func TestCLIProtocol_CallTool_LaterStepReferencesEarlierStepsOutput(t *testing.T) {
	t.Parallel()

	p := NewCLIProtocol(nil)
	tmpl := &utcptypes.CLICallTemplate{
		Name: "demo",
		Steps: []utcptypes.CommandStep{
			{Command: "echo built"},
			{Command: "echo stage-${CMD_0_OUTPUT}"},
		},
	}
	result, err := p.CallTool(context.Background(), "demo.pipeline", nil, tmpl)
	require.NoError(t, err)
	require.Equal(t, "stage-built", result)
}

func TestCLIProtocol_CallToolStreaming_Unsupported(t *testing.T) {
	t.Parallel()

	p := NewCLIProtocol(nil)
	_, err := p.CallToolStreaming(context.Background(), "demo.echo", nil, &utcptypes.CLICallTemplate{})
	var unsupported *utcperr.StreamingUnsupportedError
	require.ErrorAs(t, err, &unsupported)
}

func TestCLIProtocol_RegisterManual_ParsesManualJSONFromStdout(t *testing.T) {
	t.Parallel()

	p := NewCLIProtocol(nil)
	tmpl := &utcptypes.CLICallTemplate{
		Name:  "demo",
		Steps: []utcptypes.CommandStep{{Command: `echo '{"utcp_version":"1.0.0","tools":[{"name":"echo"}]}'`}},
	}
	result, err := p.RegisterManual(context.Background(), tmpl)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Manual.Tools, 1)
}

func TestCLIProtocol_RegisterManual_NonJSONOutputFails(t *testing.T) {
	t.Parallel()

	p := NewCLIProtocol(nil)
	tmpl := &utcptypes.CLICallTemplate{Name: "demo", Steps: []utcptypes.CommandStep{{Command: "echo not-json"}}}
	result, err := p.RegisterManual(context.Background(), tmpl)
	require.NoError(t, err)
	require.False(t, result.Success)
}
