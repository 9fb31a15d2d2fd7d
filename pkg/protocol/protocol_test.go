package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/utcp/pkg/utcptypes"
)

type fakeProtocol struct {
	mu        sync.Mutex
	closeErr  error
	closeCall int
}

func (f *fakeProtocol) RegisterManual(context.Context, utcptypes.CallTemplate) (*RegisterManualResult, error) {
	return &RegisterManualResult{Success: true}, nil
}
func (f *fakeProtocol) DeregisterManual(context.Context, utcptypes.CallTemplate) error { return nil }
func (f *fakeProtocol) CallTool(context.Context, string, map[string]any, utcptypes.CallTemplate) (any, error) {
	return nil, nil
}
func (f *fakeProtocol) CallToolStreaming(context.Context, string, map[string]any, utcptypes.CallTemplate) (<-chan StreamChunk, error) {
	return nil, nil
}
func (f *fakeProtocol) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCall++
	return f.closeErr
}

func TestDispatcher_ForConstructsLazilyAndCachesInstance(t *testing.T) {
	t.Parallel()

	var calls int
	var mu sync.Mutex
	Kinds.Register("fake-lazy", func() (Protocol, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return &fakeProtocol{}, nil
	}, false)

	d := NewDispatcher()
	p1, err := d.For("fake-lazy")
	require.NoError(t, err)
	p2, err := d.For("fake-lazy")
	require.NoError(t, err)
	require.Same(t, p1, p2)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
}

func TestDispatcher_ForUnknownKindFails(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	_, err := d.For("does-not-exist")
	require.Error(t, err)
}

func TestDispatcher_CloseAllClosesEveryInstantiatedProtocolAndCollectsErrors(t *testing.T) {
	t.Parallel()

	Kinds.Register("fake-a", func() (Protocol, error) { return &fakeProtocol{}, nil }, false)
	Kinds.Register("fake-b", func() (Protocol, error) { return &fakeProtocol{closeErr: errors.New("boom")}, nil }, false)

	d := NewDispatcher()
	a, err := d.For("fake-a")
	require.NoError(t, err)
	b, err := d.For("fake-b")
	require.NoError(t, err)

	errs := d.CloseAll(context.Background())
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "boom")
	require.Equal(t, 1, a.(*fakeProtocol).closeCall)
	require.Equal(t, 1, b.(*fakeProtocol).closeCall)
}
