package mcpproto

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFrame(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func TestStdioSession_CallRoundTripsOverContentLengthFramedJSONRPC(t *testing.T) {
	t.Parallel()

	clientToServerR, clientToServerW := io.Pipe()
	serverToClientR, serverToClientW := io.Pipe()

	s := &stdioSession{
		stdin:   clientToServerW,
		pending: make(map[uint64]chan callResult),
		closed:  make(chan struct{}),
	}
	go s.readLoop(serverToClientR)

	go func() {
		reader := bufio.NewReader(clientToServerR)
		frame, err := readFrame(reader)
		if err != nil {
			return
		}
		var req rpcRequest
		_ = json.Unmarshal(frame, &req)
		_ = writeFrame(serverToClientW, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: mustMarshal(req.Params)})
	}()

	var result map[string]any
	err := s.call(context.Background(), "echo", map[string]any{"foo": "bar"}, &result)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"foo": "bar"}, result)
}

func TestStdioSession_CallSurfacesRPCError(t *testing.T) {
	t.Parallel()

	clientToServerR, clientToServerW := io.Pipe()
	serverToClientR, serverToClientW := io.Pipe()

	s := &stdioSession{
		stdin:   clientToServerW,
		pending: make(map[uint64]chan callResult),
		closed:  make(chan struct{}),
	}
	go s.readLoop(serverToClientR)

	go func() {
		reader := bufio.NewReader(clientToServerR)
		frame, _ := readFrame(reader)
		var req rpcRequest
		_ = json.Unmarshal(frame, &req)
		_ = writeFrame(serverToClientW, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: 7, Message: "boom"}})
	}()

	err := s.call(context.Background(), "fails", nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestStdioSession_CloseUnblocksPendingCall(t *testing.T) {
	t.Parallel()

	_, clientToServerW := io.Pipe()
	serverToClientR, _ := io.Pipe()

	s := &stdioSession{
		stdin:   clientToServerW,
		pending: make(map[uint64]chan callResult),
		closed:  make(chan struct{}),
	}
	go s.readLoop(serverToClientR)

	done := make(chan error, 1)
	go func() {
		done <- s.call(context.Background(), "never-answered", nil, nil)
	}()

	require.NoError(t, s.close())

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("call did not unblock after close")
	}
}

func TestReadFrame_ParsesContentLengthPrefixedBody(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	go func() {
		_ = writeFrame(w, map[string]string{"hello": "world"})
		_ = w.Close()
	}()
	frame, err := readFrame(bufio.NewReader(r))
	require.NoError(t, err)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(frame, &decoded))
	require.Equal(t, "world", decoded["hello"])
}

func TestReadFrame_MissingContentLengthFails(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	go func() {
		_, _ = io.WriteString(w, "\r\n")
		_ = w.Close()
	}()
	_, err := readFrame(bufio.NewReader(r))
	require.Error(t, err)
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
