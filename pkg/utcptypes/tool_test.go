package utcptypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTool_MarshalUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	tool := &Tool{
		Name:        "echo",
		Description: "echoes input",
		Inputs:      JSONSchema{"type": "object"},
		Tags:        []string{"demo"},
		ToolCallTemplate: &DirectCallTemplate{
			Name:         "demo",
			CallableName: "echo_fn",
		},
	}
	raw, err := json.Marshal(tool)
	require.NoError(t, err)

	var decoded Tool
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, tool.Name, decoded.Name)
	require.Equal(t, tool.Description, decoded.Description)
	require.Equal(t, tool.Tags, decoded.Tags)
	require.NotNil(t, decoded.ToolCallTemplate)
	require.Equal(t, CallTemplateDirect, decoded.ToolCallTemplate.Type())
}

func TestTool_ToolCallTemplateOmittedWhenAbsent(t *testing.T) {
	t.Parallel()

	tool := &Tool{Name: "bare"}
	raw, err := json.Marshal(tool)
	require.NoError(t, err)

	var decoded Tool
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Nil(t, decoded.ToolCallTemplate)
}

func TestTool_CloneDeepCopiesTagsAndTemplate(t *testing.T) {
	t.Parallel()

	tool := &Tool{
		Name: "echo",
		Tags: []string{"a"},
		ToolCallTemplate: &DirectCallTemplate{CallableName: "fn"},
	}
	cp := tool.Clone()
	cp.Tags[0] = "mutated"
	cp.ToolCallTemplate.(*DirectCallTemplate).CallableName = "other"

	require.Equal(t, "a", tool.Tags[0])
	require.Equal(t, "fn", tool.ToolCallTemplate.(*DirectCallTemplate).CallableName)
}
