package client

import (
	"context"
	"encoding/json"

	"goa.design/utcp/pkg/protocol"
	"goa.design/utcp/pkg/utcperr"
	"goa.design/utcp/pkg/utcptypes"
	"goa.design/utcp/pkg/variables"
)

// CallTool resolves fqToolName (manual-qualified), re-substitutes its
// template's variables, dispatches the call to the matching protocol, and
// runs the result through the configured post-processor pipeline (spec
// §4.9). Templates are re-resolved on every call rather than once at
// registration, so a credential change via a loader or the process
// environment takes effect on the next call without re-registering.
func (c *Client) CallTool(ctx context.Context, fqToolName string, args map[string]any) (any, error) {
	tool, err := c.getTool(ctx, fqToolName)
	if err != nil {
		return nil, err
	}
	manualName := manualNameOf(fqToolName)

	resolved, err := c.substituteTemplate(tool.ToolCallTemplate, manualName)
	if err != nil {
		return nil, err
	}

	proto, err := c.dispatcher.For(string(resolved.Type()))
	if err != nil {
		return nil, err
	}
	result, err := proto.CallTool(ctx, fqToolName, args, resolved)
	if err != nil {
		return nil, err
	}
	return c.pipeline.Apply(ctx, manualName, fqToolName, result)
}

// CallToolStreaming is CallTool's streaming counterpart: each chunk is
// independently post-processed as it arrives, so a slow consumer sees
// already-filtered/truncated data rather than buffering the whole stream.
func (c *Client) CallToolStreaming(ctx context.Context, fqToolName string, args map[string]any) (<-chan protocol.StreamChunk, error) {
	tool, err := c.getTool(ctx, fqToolName)
	if err != nil {
		return nil, err
	}
	manualName := manualNameOf(fqToolName)

	resolved, err := c.substituteTemplate(tool.ToolCallTemplate, manualName)
	if err != nil {
		return nil, err
	}

	proto, err := c.dispatcher.For(string(resolved.Type()))
	if err != nil {
		return nil, err
	}
	upstream, err := proto.CallToolStreaming(ctx, fqToolName, args, resolved)
	if err != nil {
		return nil, err
	}

	out := make(chan protocol.StreamChunk)
	go func() {
		defer close(out)
		for chunk := range upstream {
			if chunk.Err != nil {
				out <- chunk
				continue
			}
			processed, err := c.pipeline.Apply(ctx, manualName, fqToolName, chunk.Data)
			if err != nil {
				out <- protocol.StreamChunk{Err: err}
				continue
			}
			out <- protocol.StreamChunk{Data: processed}
		}
	}()
	return out, nil
}

// SearchTools runs the configured search strategy over the repository.
func (c *Client) SearchTools(ctx context.Context, query string, limit int, tagFilter []string) ([]*utcptypes.Tool, error) {
	return c.strategy.Search(ctx, c.repo, query, limit, tagFilter)
}

// GetRequiredVariablesForRegisteredTool reports the ordered, duplicate-free
// set of variable keys a call to fqToolName would need resolved, without
// performing the call.
func (c *Client) GetRequiredVariablesForRegisteredTool(ctx context.Context, fqToolName string) ([]string, error) {
	tool, err := c.getTool(ctx, fqToolName)
	if err != nil {
		return nil, err
	}
	return requiredVariablesOf(tool.ToolCallTemplate, manualNameOf(fqToolName))
}

// getTool fetches fqToolName, translating the repository's absent-without-
// error convention into ToolNotFoundError for callers.
func (c *Client) getTool(ctx context.Context, fqToolName string) (*utcptypes.Tool, error) {
	tool, err := c.repo.GetTool(ctx, fqToolName)
	if err != nil {
		return nil, err
	}
	if tool == nil {
		return nil, &utcperr.ToolNotFoundError{Tool: fqToolName}
	}
	return tool, nil
}

// GetRequiredVariablesForManualAndTools reports the variables a not-yet-
// registered manual's call template (and, by extension, every tool it
// would expose with no template of its own) would need resolved.
func (c *Client) GetRequiredVariablesForManualAndTools(raw json.RawMessage) ([]string, error) {
	template, err := utcptypes.DecodeCallTemplate(raw)
	if err != nil {
		return nil, err
	}
	name := sanitizeManualName(template.GetName())
	return requiredVariablesOf(template, name)
}

func requiredVariablesOf(template utcptypes.CallTemplate, namespace string) ([]string, error) {
	raw, err := utcptypes.EncodeCallTemplate(template)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return variables.FindRequiredVariables(generic, namespace)
}
