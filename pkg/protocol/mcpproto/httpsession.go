package mcpproto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

// httpSession is an MCP sub-server reached over HTTP JSON-RPC (one request
// per call, no persistent connection).
type httpSession struct {
	url    string
	client *http.Client
	nextID uint64
}

func newHTTPSession(url string) *httpSession {
	return &httpSession{url: url, client: &http.Client{}}
}

func (s *httpSession) call(ctx context.Context, method string, params, result any) error {
	id := atomic.AddUint64(&s.nextID, 1)
	req := rpcRequest{JSONRPC: "2.0", Method: method, ID: id, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("decode mcp http response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil && rpcResp.Result != nil {
		return json.Unmarshal(rpcResp.Result, result)
	}
	return nil
}

func (s *httpSession) close() error { return nil }
