package cliproto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"goa.design/utcp/pkg/protocol"
	"goa.design/utcp/pkg/telemetry"
	"goa.design/utcp/pkg/utcperr"
	"goa.design/utcp/pkg/utcptypes"
)

// Per-script timeouts (spec §4.8/§5).
const (
	DiscoveryTimeout = 30 * time.Second
	CallTimeout      = 120 * time.Second
)

// CLIProtocol implements protocol.Protocol for the "cli" call-template
// kind. It has no persistent state between calls: every invocation spawns
// a fresh subprocess (spec §5, "CLI subprocesses: ... no pooling").
type CLIProtocol struct {
	logger telemetry.Logger
}

// NewCLIProtocol constructs a CLIProtocol.
func NewCLIProtocol(logger telemetry.Logger) *CLIProtocol {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &CLIProtocol{logger: logger}
}

func shellCommand(ctx context.Context, script string) *exec.Cmd {
	if isWindows() {
		return exec.CommandContext(ctx, "powershell.exe", "-NoProfile", "-Command", script)
	}
	return exec.CommandContext(ctx, "/bin/bash", "-c", script)
}

// run executes steps against args, enforcing timeout, and returns the
// parsed/trimmed result per spec §4.8's output rules.
func (p *CLIProtocol) run(ctx context.Context, t *utcptypes.CLICallTemplate, args map[string]any, timeout time.Duration) (any, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	warn := func(name string) {
		p.logger.Error(ctx, "cli argument placeholder missing", "name", name)
	}
	script := assembleScript(t.Steps, args, warn)

	cmd := shellCommand(runCtx, script)
	if t.WorkingDir != "" {
		cmd.Dir = t.WorkingDir
	}
	if len(t.Env) > 0 {
		env := os.Environ()
		for k, v := range t.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, &utcperr.TimeoutError{Scope: "cli script"}
	}

	var output string
	if isWindows() {
		if runErr == nil {
			output = stdout.String()
		} else {
			output = stderr.String()
		}
	} else {
		output = stdout.String()
		_ = runErr
	}

	return parseOutput(output), nil
}

func parseOutput(output string) any {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return trimmed
}

// RegisterManual implements protocol.Protocol: the same execution path
// with an empty argument map, parsed as a UTCP manual.
func (p *CLIProtocol) RegisterManual(ctx context.Context, template utcptypes.CallTemplate) (*protocol.RegisterManualResult, error) {
	t, ok := template.(*utcptypes.CLICallTemplate)
	if !ok {
		return nil, fmt.Errorf("cliproto: expected *CLICallTemplate, got %T", template)
	}
	result, err := p.run(ctx, t, map[string]any{}, DiscoveryTimeout)
	if err != nil {
		return failedRegistration(t, err), nil
	}
	text, ok := result.(string)
	if !ok {
		b, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			return failedRegistration(t, marshalErr), nil
		}
		text = string(b)
	}
	manual := &utcptypes.Manual{}
	if err := manual.UnmarshalJSON([]byte(text)); err != nil {
		return failedRegistration(t, err), nil
	}
	return &protocol.RegisterManualResult{Template: t, Manual: manual, Success: true}, nil
}

func failedRegistration(t utcptypes.CallTemplate, err error) *protocol.RegisterManualResult {
	return &protocol.RegisterManualResult{
		Template: t,
		Manual:   &utcptypes.Manual{UTCPVersion: utcptypes.UTCPVersion, Tools: []*utcptypes.Tool{}},
		Success:  false,
		Errors:   []string{err.Error()},
	}
}

// DeregisterManual implements protocol.Protocol. The CLI protocol holds no
// per-manual resource to release.
func (p *CLIProtocol) DeregisterManual(context.Context, utcptypes.CallTemplate) error { return nil }

// CallTool implements protocol.Protocol.
func (p *CLIProtocol) CallTool(ctx context.Context, toolName string, args map[string]any, template utcptypes.CallTemplate) (any, error) {
	t, ok := template.(*utcptypes.CLICallTemplate)
	if !ok {
		return nil, fmt.Errorf("cliproto: expected *CLICallTemplate, got %T", template)
	}
	result, err := p.run(ctx, t, args, CallTimeout)
	if err != nil {
		return nil, &utcperr.ProtocolCallFailedError{Tool: toolName, Err: err}
	}
	return result, nil
}

// CallToolStreaming implements protocol.Protocol by failing fast: the CLI
// protocol does not support streaming (spec §4.8, §9).
func (p *CLIProtocol) CallToolStreaming(context.Context, string, map[string]any, utcptypes.CallTemplate) (<-chan protocol.StreamChunk, error) {
	return nil, &utcperr.StreamingUnsupportedError{Protocol: "cli"}
}

// Close implements protocol.Protocol. There is nothing to release: every
// call's subprocess is already reaped by run.
func (p *CLIProtocol) Close(context.Context) error { return nil }
