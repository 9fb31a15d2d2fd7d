package mcpproto

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"goa.design/utcp/pkg/protocol"
	"goa.design/utcp/pkg/utcperr"
	"goa.design/utcp/pkg/utcptypes"
)

type session interface {
	call(ctx context.Context, method string, params, result any) error
	close() error
}

// MCPProtocol implements protocol.Protocol for the "mcp" call-template
// kind. Each manual may configure multiple named sub-servers; tools are
// exposed under the sub-namespace "<server>.<tool>" inside the manual.
type MCPProtocol struct {
	mu       sync.Mutex
	sessions map[string]session // key: "<manual>/<server>"
}

// NewMCPProtocol constructs an MCPProtocol with no live sessions.
func NewMCPProtocol() *MCPProtocol {
	return &MCPProtocol{sessions: make(map[string]session)}
}

type mcpToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type toolsListResult struct {
	Tools []mcpToolInfo `json:"tools"`
}

func sessionKey(manual, server string) string { return manual + "/" + server }

func (p *MCPProtocol) sessionFor(ctx context.Context, manual, server string, cfg utcptypes.MCPServerConfig) (session, error) {
	key := sessionKey(manual, server)
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[key]; ok {
		return s, nil
	}
	var s session
	var err error
	switch cfg.Transport {
	case utcptypes.MCPTransportStdio:
		s, err = startStdioSession(ctx, cfg.Command, cfg.Args, cfg.Env, cfg.Cwd)
	case utcptypes.MCPTransportHTTP:
		s = newHTTPSession(cfg.URL)
	default:
		return nil, fmt.Errorf("mcpproto: unknown transport %q", cfg.Transport)
	}
	if err != nil {
		return nil, err
	}
	p.sessions[key] = s
	return s, nil
}

// RegisterManual implements protocol.Protocol: every configured sub-server
// is connected and its tools/list result merged into one manual.
func (p *MCPProtocol) RegisterManual(ctx context.Context, template utcptypes.CallTemplate) (*protocol.RegisterManualResult, error) {
	t, ok := template.(*utcptypes.MCPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("mcpproto: expected *MCPCallTemplate, got %T", template)
	}
	manualName := t.GetName()
	manual := &utcptypes.Manual{UTCPVersion: utcptypes.UTCPVersion, ManualVersion: "1.0.0"}
	var errs []string

	for server, cfg := range t.Servers {
		sess, err := p.sessionFor(ctx, manualName, server, cfg)
		if err != nil {
			errs = append(errs, fmt.Sprintf("server %s: %v", server, err))
			continue
		}
		var listed toolsListResult
		if err := sess.call(ctx, "tools/list", map[string]any{}, &listed); err != nil {
			errs = append(errs, fmt.Sprintf("server %s: tools/list: %v", server, err))
			continue
		}
		for _, ti := range listed.Tools {
			manual.Tools = append(manual.Tools, &utcptypes.Tool{
				Name:             server + "." + ti.Name,
				Description:      ti.Description,
				Inputs:           utcptypes.JSONSchema(ti.InputSchema),
				ToolCallTemplate: t,
			})
		}
	}

	if len(errs) > 0 && len(manual.Tools) == 0 {
		return &protocol.RegisterManualResult{
			Template: t,
			Manual:   &utcptypes.Manual{UTCPVersion: utcptypes.UTCPVersion, Tools: []*utcptypes.Tool{}},
			Success:  false,
			Errors:   errs,
		}, nil
	}
	return &protocol.RegisterManualResult{Template: t, Manual: manual, Success: true, Errors: errs}, nil
}

// DeregisterManual implements protocol.Protocol, closing every sub-server
// session belonging to this manual.
func (p *MCPProtocol) DeregisterManual(_ context.Context, template utcptypes.CallTemplate) error {
	t, ok := template.(*utcptypes.MCPCallTemplate)
	if !ok {
		return fmt.Errorf("mcpproto: expected *MCPCallTemplate, got %T", template)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for server := range t.Servers {
		key := sessionKey(t.GetName(), server)
		if s, ok := p.sessions[key]; ok {
			_ = s.close()
			delete(p.sessions, key)
		}
	}
	return nil
}

// splitServerTool strips the "<manual>." prefix from the fully-qualified
// tool name the dispatcher passes and splits the remaining sub-namespaced
// reference "<server>.<tool>".
func splitServerTool(toolName, manualName string) (server, tool string, err error) {
	rest := strings.TrimPrefix(toolName, manualName+".")
	server, tool, found := strings.Cut(rest, ".")
	if !found {
		return "", "", fmt.Errorf("mcpproto: tool name %q is not of the form <server>.<tool>", toolName)
	}
	return server, tool, nil
}

// CallTool implements protocol.Protocol.
func (p *MCPProtocol) CallTool(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (any, error) {
	t, ok := template.(*utcptypes.MCPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("mcpproto: expected *MCPCallTemplate, got %T", template)
	}
	server, tool, err := splitServerTool(toolName, t.GetName())
	if err != nil {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: err}
	}
	cfg, ok := t.Servers[server]
	if !ok {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: fmt.Errorf("unknown mcp server %q", server)}
	}
	sess, err := p.sessionFor(ctx, t.GetName(), server, cfg)
	if err != nil {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: err}
	}
	var result any
	if err := sess.call(ctx, "tools/call", map[string]any{"name": tool, "arguments": args}, &result); err != nil {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: err}
	}
	return result, nil
}

// CallToolStreaming implements protocol.Protocol by yielding the single
// result from CallTool as one chunk; MCP streaming is not part of this
// module's scope.
func (p *MCPProtocol) CallToolStreaming(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (<-chan protocol.StreamChunk, error) {
	ch := make(chan protocol.StreamChunk, 1)
	result, err := p.CallTool(ctx, toolName, args, template)
	if err != nil {
		ch <- protocol.StreamChunk{Err: err}
	} else {
		ch <- protocol.StreamChunk{Data: result}
	}
	close(ch)
	return ch, nil
}

// Close implements protocol.Protocol, closing every live session.
func (p *MCPProtocol) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, s := range p.sessions {
		_ = s.close()
		delete(p.sessions, key)
	}
	return nil
}
