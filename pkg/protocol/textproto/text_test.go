package textproto

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/utcp/pkg/utcptypes"
)

func TestTextProtocol_RegisterManual_ContentTakesPrecedenceOverFilePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "manual.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"utcp_version":"1.0.0","tools":[{"name":"from_file"}]}`), 0o600))

	p := NewTextProtocol()
	tmpl := &utcptypes.TextCallTemplate{
		Name:     "demo",
		FilePath: path,
		Content:  `{"utcp_version":"1.0.0","tools":[{"name":"from_content"}]}`,
	}
	result, err := p.RegisterManual(context.Background(), tmpl)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "from_content", result.Manual.Tools[0].Name)
}

func TestTextProtocol_RegisterManual_FallsBackToFilePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "manual.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"utcp_version":"1.0.0","tools":[{"name":"from_file"}]}`), 0o600))

	p := NewTextProtocol()
	result, err := p.RegisterManual(context.Background(), &utcptypes.TextCallTemplate{Name: "demo", FilePath: path})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "from_file", result.Manual.Tools[0].Name)
}

func TestTextProtocol_RegisterManual_NeitherContentNorFilePathFails(t *testing.T) {
	t.Parallel()

	p := NewTextProtocol()
	result, err := p.RegisterManual(context.Background(), &utcptypes.TextCallTemplate{Name: "demo"})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
}

func TestTextProtocol_CallTool_ReturnsStaticContent(t *testing.T) {
	t.Parallel()

	p := NewTextProtocol()
	tmpl := &utcptypes.TextCallTemplate{Name: "demo", Content: "static response"}
	result, err := p.CallTool(context.Background(), "demo.echo", map[string]any{"ignored": true}, tmpl)
	require.NoError(t, err)
	require.Equal(t, "static response", result)
}

func TestTextProtocol_CallToolStreaming_YieldsSingleChunk(t *testing.T) {
	t.Parallel()

	p := NewTextProtocol()
	ch, err := p.CallToolStreaming(context.Background(), "demo.echo", nil, &utcptypes.TextCallTemplate{Name: "demo", Content: "value"})
	require.NoError(t, err)
	var count int
	for chunk := range ch {
		require.NoError(t, chunk.Err)
		require.Equal(t, "value", chunk.Data)
		count++
	}
	require.Equal(t, 1, count)
}
