package client

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"

	"github.com/google/uuid"

	"goa.design/utcp/pkg/utcperr"
	"goa.design/utcp/pkg/utcptypes"
)

var invalidNameChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// sanitizeManualName replaces every character outside [A-Za-z0-9_] with an
// underscore (spec §4.9), so a manual's name is always safe to use as a
// variable namespace and as a tool-name prefix. An unnamed template is
// assigned a generated name instead of an empty one.
func sanitizeManualName(raw string) string {
	if raw == "" {
		raw = "manual_" + uuid.NewString()
	}
	return invalidNameChars.ReplaceAllString(raw, "_")
}

// substituteTemplate resolves every ${NAME}/$NAME reference in template
// using namespace, round-tripping through the tagged-union JSON codec so
// the substitution engine (which only knows about generic JSON values) can
// walk an arbitrary CallTemplate variant.
func (c *Client) substituteTemplate(template utcptypes.CallTemplate, namespace string) (utcptypes.CallTemplate, error) {
	raw, err := utcptypes.EncodeCallTemplate(template)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	substituted, err := c.substitutor.Substitute(generic, namespace)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(substituted)
	if err != nil {
		return nil, err
	}
	return utcptypes.DecodeCallTemplate(out)
}

// RegisterManual decodes raw as a CallTemplate, assigns it a unique
// sanitized name, substitutes variables under that name's namespace,
// dispatches discovery to the matching protocol, and — on success —
// namespaces every discovered tool's name and saves the manual into the
// repository (spec §4.9).
func (c *Client) RegisterManual(ctx context.Context, raw json.RawMessage) (*utcptypes.Manual, error) {
	template, err := utcptypes.DecodeCallTemplate(raw)
	if err != nil {
		return nil, err
	}
	return c.registerTemplate(ctx, template)
}

func (c *Client) registerTemplate(ctx context.Context, template utcptypes.CallTemplate) (*utcptypes.Manual, error) {
	name := sanitizeManualName(template.GetName())
	if existing, _ := c.repo.GetManual(ctx, name); existing != nil {
		return nil, &utcperr.NameConflictError{Manual: name}
	}
	template.SetName(name)

	resolved, err := c.substituteTemplate(template, name)
	if err != nil {
		return nil, err
	}
	resolved.SetName(name)

	proto, err := c.dispatcher.For(string(resolved.Type()))
	if err != nil {
		return nil, err
	}
	result, err := proto.RegisterManual(ctx, resolved)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, &utcperr.ProtocolRegistrationFailedError{Manual: name, Errors: result.Errors}
	}

	manual := result.Manual
	manual.Name = name
	manual.CallTemplate = resolved
	for _, tool := range manual.Tools {
		bare := tool.Name
		tool.Name = name + "." + bare
		if tool.ToolCallTemplate == nil {
			tool.ToolCallTemplate = template.Clone()
			tool.ToolCallTemplate.SetName(name)
		}
	}

	if err := c.repo.SaveManual(ctx, resolved, manual); err != nil {
		return nil, err
	}
	return manual, nil
}

// registerInitialManuals registers every configured manual concurrently,
// collecting per-manual errors without letting one failure block the rest
// (spec §4.9's "parallel initial manual registration").
func (c *Client) registerInitialManuals(ctx context.Context, entries []json.RawMessage) []error {
	if len(entries) == 0 {
		return nil
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	for _, raw := range entries {
		wg.Add(1)
		go func(raw json.RawMessage) {
			defer wg.Done()
			if _, err := c.RegisterManual(ctx, raw); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(raw)
	}
	wg.Wait()
	return errs
}

// DeregisterManual releases the protocol resources for name's manual and
// removes it, and its tools, from the repository.
func (c *Client) DeregisterManual(ctx context.Context, name string) error {
	template, err := c.repo.GetManualCallTemplate(ctx, name)
	if err != nil {
		return err
	}
	if template == nil {
		return &utcperr.ManualNotFoundError{Manual: name}
	}
	proto, err := c.dispatcher.For(string(template.Type()))
	if err != nil {
		return err
	}
	if err := proto.DeregisterManual(ctx, template); err != nil {
		return err
	}
	_, err = c.repo.RemoveManual(ctx, name)
	return err
}

// manualNameOf returns the manual-name prefix of a namespaced tool name.
func manualNameOf(fqToolName string) string {
	for i := 0; i < len(fqToolName); i++ {
		if fqToolName[i] == '.' {
			return fqToolName[:i]
		}
	}
	return fqToolName
}
