// Package protocol defines the communication-protocol dispatcher (spec
// §4.6): the common contract every transport plug-in (HTTP family, CLI,
// text, direct-call, MCP) implements, and a kind-keyed registry of live
// protocol instances that the client façade dispatches register/call/
// stream/close operations through.
package protocol

import (
	"context"
	"sync"

	"goa.design/utcp/pkg/kindregistry"
	"goa.design/utcp/pkg/utcptypes"
)

// RegisterManualResult is the outcome of registering one manual.
type RegisterManualResult struct {
	Template utcptypes.CallTemplate
	Manual   *utcptypes.Manual
	Success  bool
	Errors   []string
}

// StreamChunk is one item yielded by CallToolStreaming. Err is set on the
// final chunk of a failed stream; Data is nil when Err is set.
type StreamChunk struct {
	Data any
	Err  error
}

// Protocol is the contract every call-template kind's transport
// implements.
type Protocol interface {
	// RegisterManual issues discovery against template and returns its
	// manual. A false Success leaves the repository unmutated by the
	// caller.
	RegisterManual(ctx context.Context, template utcptypes.CallTemplate) (*RegisterManualResult, error)
	// DeregisterManual releases any resource this protocol holds for
	// template (connections, subprocesses, caches).
	DeregisterManual(ctx context.Context, template utcptypes.CallTemplate) error
	// CallTool invokes toolName with args using template, returning the
	// decoded result.
	CallTool(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (any, error)
	// CallToolStreaming invokes toolName, yielding chunks on the returned
	// channel until it is closed. Protocols that cannot stream return
	// StreamingUnsupportedError instead of a channel.
	CallToolStreaming(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (<-chan StreamChunk, error)
	// Close tears down every resource this protocol instance holds.
	Close(ctx context.Context) error
}

// Factory builds a Protocol instance for one call-template kind.
type Factory func() (Protocol, error)

// Kinds is the registry of communication-protocol kinds, keyed by
// call_template_type.
var Kinds = kindregistry.New[Factory]("call_template_type")

// Dispatcher holds one live Protocol instance per call-template kind,
// constructed lazily from Kinds on first use and shared across calls.
type Dispatcher struct {
	mu        sync.Mutex
	instances map[string]Protocol
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{instances: make(map[string]Protocol)}
}

// For returns the live Protocol instance for kind, constructing it via
// Kinds on first use.
func (d *Dispatcher) For(kind string) (Protocol, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.instances[kind]; ok {
		return p, nil
	}
	factory, err := Kinds.Get(kind)
	if err != nil {
		return nil, err
	}
	p, err := factory()
	if err != nil {
		return nil, err
	}
	d.instances[kind] = p
	return p, nil
}

// CloseAll closes every instantiated protocol concurrently. Individual
// failures are collected but never prevent other protocols from closing.
func (d *Dispatcher) CloseAll(ctx context.Context) []error {
	d.mu.Lock()
	protocols := make([]Protocol, 0, len(d.instances))
	for _, p := range d.instances {
		protocols = append(protocols, p)
	}
	d.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, len(protocols))
	for i, p := range protocols {
		wg.Add(1)
		go func(i int, p Protocol) {
			defer wg.Done()
			errs[i] = p.Close(ctx)
		}(i, p)
	}
	wg.Wait()

	out := make([]error, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}
