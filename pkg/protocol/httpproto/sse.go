package httpproto

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"goa.design/utcp/pkg/protocol"
	"goa.design/utcp/pkg/utcperr"
	"goa.design/utcp/pkg/utcptypes"
)

// SSEProtocol implements protocol.Protocol for the "sse" call-template
// kind: Server-Sent Events framing, dispatched on blank-line-delimited
// event records and optionally filtered by event_type (spec §4.7).
type SSEProtocol struct {
	client *http.Client
	cache  *tokenCache
}

// NewSSEProtocol constructs an SSEProtocol.
func NewSSEProtocol() *SSEProtocol {
	return &SSEProtocol{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  newTokenCache(),
	}
}

// sseEvent is one parsed SSE record.
type sseEvent struct {
	event string
	data  string
}

// decodeSSE reads blank-line-delimited SSE records from r, yielding one
// sseEvent per record. "event:" lines set the event type (default
// "message"); "data:" lines are joined with newlines per the SSE spec.
func decodeSSE(r *bufio.Reader) (<-chan sseEvent, <-chan error) {
	events := make(chan sseEvent)
	errs := make(chan error, 1)
	go func() {
		defer close(events)
		defer close(errs)
		var eventType string
		var dataLines []string
		flush := func() {
			if len(dataLines) == 0 && eventType == "" {
				return
			}
			et := eventType
			if et == "" {
				et = "message"
			}
			events <- sseEvent{event: et, data: strings.Join(dataLines, "\n")}
			eventType = ""
			dataLines = nil
		}
		for {
			line, err := r.ReadString('\n')
			trimmed := strings.TrimRight(line, "\r\n")
			if trimmed == "" {
				flush()
			} else if rest, ok := strings.CutPrefix(trimmed, "event:"); ok {
				eventType = strings.TrimSpace(rest)
			} else if rest, ok := strings.CutPrefix(trimmed, "data:"); ok {
				dataLines = append(dataLines, strings.TrimPrefix(rest, " "))
			}
			if err != nil {
				flush()
				if err.Error() != "EOF" {
					errs <- err
				}
				return
			}
		}
	}()
	return events, errs
}

func (p *SSEProtocol) request(ctx context.Context, t *utcptypes.SSECallTemplate, args map[string]any) (*http.Response, error) {
	fields, err := fieldsOf(t)
	if err != nil {
		return nil, err
	}
	req, err := buildRequest(ctx, fields, args)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if err := applyAuth(ctx, req, fields.Auth, p.cache); err != nil {
		return nil, err
	}
	return p.client.Do(req)
}

// RegisterManual implements protocol.Protocol: the client collects all
// events into an ordered manual, same as CallTool does for calls.
func (p *SSEProtocol) RegisterManual(ctx context.Context, template utcptypes.CallTemplate) (*protocol.RegisterManualResult, error) {
	t, ok := template.(*utcptypes.SSECallTemplate)
	if !ok {
		return nil, fmt.Errorf("httpproto: expected *SSECallTemplate, got %T", template)
	}
	result, err := p.collect(ctx, "registerManual", t, map[string]any{})
	if err != nil {
		return failedRegistration(t, err), nil
	}
	data, _ := result.(string)
	manual := &utcptypes.Manual{}
	if err := manual.UnmarshalJSON([]byte(data)); err != nil {
		return failedRegistration(t, err), nil
	}
	return &protocol.RegisterManualResult{Template: t, Manual: manual, Success: true}, nil
}

// DeregisterManual implements protocol.Protocol.
func (p *SSEProtocol) DeregisterManual(context.Context, utcptypes.CallTemplate) error { return nil }

func (p *SSEProtocol) collect(ctx context.Context, toolName string, t *utcptypes.SSECallTemplate, args map[string]any) (any, error) {
	chunks, err := p.CallToolStreaming(ctx, toolName, args, t)
	if err != nil {
		return nil, err
	}
	var all []string
	for c := range chunks {
		if c.Err != nil {
			return nil, c.Err
		}
		if s, ok := c.Data.(string); ok {
			all = append(all, s)
		}
	}
	return strings.Join(all, ""), nil
}

// CallTool implements protocol.Protocol by collecting every matching event
// into an ordered list, joined into a single string result.
func (p *SSEProtocol) CallTool(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (any, error) {
	t, ok := template.(*utcptypes.SSECallTemplate)
	if !ok {
		return nil, fmt.Errorf("httpproto: expected *SSECallTemplate, got %T", template)
	}
	return p.collect(ctx, toolName, t, args)
}

// CallToolStreaming implements protocol.Protocol.
func (p *SSEProtocol) CallToolStreaming(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (<-chan protocol.StreamChunk, error) {
	t, ok := template.(*utcptypes.SSECallTemplate)
	if !ok {
		return nil, fmt.Errorf("httpproto: expected *SSECallTemplate, got %T", template)
	}
	resp, err := p.request(ctx, t, args)
	if err != nil {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: err}
	}

	out := make(chan protocol.StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		events, errs := decodeSSE(bufio.NewReader(resp.Body))
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					events = nil
					if errs == nil {
						return
					}
					continue
				}
				if t.EventType != "" && ev.event != t.EventType {
					continue
				}
				out <- protocol.StreamChunk{Data: ev.data}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					if events == nil {
						return
					}
					continue
				}
				if err != nil {
					out <- protocol.StreamChunk{Err: &utcperr.ProtocolCallFailedError{Tool: toolName, Err: err}}
				}
			case <-ctx.Done():
				out <- protocol.StreamChunk{Err: &utcperr.TimeoutError{Scope: "sse call"}}
				return
			}
		}
	}()
	return out, nil
}

// Close implements protocol.Protocol.
func (p *SSEProtocol) Close(context.Context) error {
	p.client.CloseIdleConnections()
	return nil
}
