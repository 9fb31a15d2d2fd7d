package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/utcp/pkg/utcptypes"
)

func TestInMemory_SaveAndGetManual(t *testing.T) {
	t.Parallel()

	repo := NewInMemory()
	ctx := context.Background()
	template := &utcptypes.TextCallTemplate{Name: "demo", Content: "{}"}
	manual := &utcptypes.Manual{Name: "demo", Tools: []*utcptypes.Tool{
		{Name: "demo.echo"},
	}}
	require.NoError(t, repo.SaveManual(ctx, template, manual))

	got, err := repo.GetManual(ctx, "demo")
	require.NoError(t, err)
	require.Equal(t, "demo", got.Name)
	require.Len(t, got.Tools, 1)

	tool, err := repo.GetTool(ctx, "demo.echo")
	require.NoError(t, err)
	require.Equal(t, "demo.echo", tool.Name)
}

func TestInMemory_GetReturnsDeepCopies(t *testing.T) {
	t.Parallel()

	repo := NewInMemory()
	ctx := context.Background()
	manual := &utcptypes.Manual{Name: "demo", Tools: []*utcptypes.Tool{
		{Name: "demo.echo", Tags: []string{"a"}},
	}}
	require.NoError(t, repo.SaveManual(ctx, nil, manual))

	got, err := repo.GetManual(ctx, "demo")
	require.NoError(t, err)
	got.Tools[0].Tags[0] = "mutated"

	got2, err := repo.GetManual(ctx, "demo")
	require.NoError(t, err)
	require.Equal(t, "a", got2.Tools[0].Tags[0], "mutating a read copy must not affect stored state")
}

func TestInMemory_SaveManualReplacesPriorToolsOfSameName(t *testing.T) {
	t.Parallel()

	repo := NewInMemory()
	ctx := context.Background()
	require.NoError(t, repo.SaveManual(ctx, nil, &utcptypes.Manual{Name: "demo", Tools: []*utcptypes.Tool{
		{Name: "demo.old"},
	}}))
	require.NoError(t, repo.SaveManual(ctx, nil, &utcptypes.Manual{Name: "demo", Tools: []*utcptypes.Tool{
		{Name: "demo.new"},
	}}))

	_, err := repo.GetTool(ctx, "demo.old")
	require.NoError(t, err)
	old, err := repo.GetTool(ctx, "demo.old")
	require.NoError(t, err)
	require.Nil(t, old)

	n, err := repo.GetTool(ctx, "demo.new")
	require.NoError(t, err)
	require.NotNil(t, n)
}

func TestInMemory_RemoveToolPrunesManualToolList(t *testing.T) {
	t.Parallel()

	repo := NewInMemory()
	ctx := context.Background()
	require.NoError(t, repo.SaveManual(ctx, nil, &utcptypes.Manual{Name: "demo", Tools: []*utcptypes.Tool{
		{Name: "demo.a"}, {Name: "demo.b"},
	}}))

	removed, err := repo.RemoveTool(ctx, "demo.a")
	require.NoError(t, err)
	require.True(t, removed)

	manual, err := repo.GetManual(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, manual.Tools, 1)
	require.Equal(t, "demo.b", manual.Tools[0].Name)
}

func TestInMemory_RemoveManualRemovesItsTools(t *testing.T) {
	t.Parallel()

	repo := NewInMemory()
	ctx := context.Background()
	require.NoError(t, repo.SaveManual(ctx, nil, &utcptypes.Manual{Name: "demo", Tools: []*utcptypes.Tool{
		{Name: "demo.a"},
	}}))

	removed, err := repo.RemoveManual(ctx, "demo")
	require.NoError(t, err)
	require.True(t, removed)

	tool, err := repo.GetTool(ctx, "demo.a")
	require.NoError(t, err)
	require.Nil(t, tool)
}

func TestInMemory_GetToolsReturnsStableInsertionOrderAcrossCalls(t *testing.T) {
	t.Parallel()

	repo := NewInMemory()
	ctx := context.Background()
	require.NoError(t, repo.SaveManual(ctx, nil, &utcptypes.Manual{Name: "zeta", Tools: []*utcptypes.Tool{
		{Name: "zeta.first"},
	}}))
	require.NoError(t, repo.SaveManual(ctx, nil, &utcptypes.Manual{Name: "alpha", Tools: []*utcptypes.Tool{
		{Name: "alpha.second"},
	}}))
	require.NoError(t, repo.SaveManual(ctx, nil, &utcptypes.Manual{Name: "mu", Tools: []*utcptypes.Tool{
		{Name: "mu.third"},
	}}))

	want := []string{"zeta.first", "alpha.second", "mu.third"}
	for i := 0; i < 5; i++ {
		tools, err := repo.GetTools(ctx)
		require.NoError(t, err)
		require.Len(t, tools, 3)
		got := make([]string, len(tools))
		for j, tool := range tools {
			got[j] = tool.Name
		}
		require.Equal(t, want, got, "insertion order must be stable across repeated calls")
	}
}

func TestInMemory_GetToolsOrderSurvivesRemovalAndReinsertion(t *testing.T) {
	t.Parallel()

	repo := NewInMemory()
	ctx := context.Background()
	require.NoError(t, repo.SaveManual(ctx, nil, &utcptypes.Manual{Name: "a", Tools: []*utcptypes.Tool{{Name: "a.one"}}}))
	require.NoError(t, repo.SaveManual(ctx, nil, &utcptypes.Manual{Name: "b", Tools: []*utcptypes.Tool{{Name: "b.two"}}}))
	require.NoError(t, repo.SaveManual(ctx, nil, &utcptypes.Manual{Name: "c", Tools: []*utcptypes.Tool{{Name: "c.three"}}}))

	removed, err := repo.RemoveTool(ctx, "b.two")
	require.NoError(t, err)
	require.True(t, removed)

	// Re-registering "b" appends its tool at the end, as a fresh insertion.
	require.NoError(t, repo.SaveManual(ctx, nil, &utcptypes.Manual{Name: "b", Tools: []*utcptypes.Tool{{Name: "b.two"}}}))

	tools, err := repo.GetTools(ctx)
	require.NoError(t, err)
	got := make([]string, len(tools))
	for i, tool := range tools {
		got[i] = tool.Name
	}
	require.Equal(t, []string{"a.one", "c.three", "b.two"}, got)
}

func TestInMemory_ConcurrentReadsAndWrites(t *testing.T) {
	t.Parallel()

	repo := NewInMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "demo"
			_ = repo.SaveManual(ctx, nil, &utcptypes.Manual{Name: name, Tools: []*utcptypes.Tool{
				{Name: name + ".tool"},
			}})
			_, _ = repo.GetTools(ctx)
		}(i)
	}
	wg.Wait()
}
