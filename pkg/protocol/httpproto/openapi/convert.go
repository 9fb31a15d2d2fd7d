// Package openapi converts an OpenAPI document into a UTCP manual (spec
// §4.7 "OpenAPI conversion"): one tool per operation, with inputs/outputs
// assembled from parameters and schemas (resolving $ref with a
// cycle-guarding visited set, per spec §9's "Schema recursion in OpenAPI"
// design note) and a generated http call template per operation.
package openapi

import (
	"fmt"
	"sort"
	"strings"

	"goa.design/utcp/pkg/utcptypes"
)

var httpMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Convert turns doc (a decoded OpenAPI document) into a Manual. baseURL is
// used to resolve relative operation paths; authTools, when non-nil, is the
// caller-supplied live credential consulted while matching security
// schemes (see matchSecurity).
func Convert(doc map[string]any, baseURL string, authTools utcptypes.Auth) (*utcptypes.Manual, error) {
	paths, _ := doc["paths"].(map[string]any)
	components, _ := doc["components"].(map[string]any)
	schemas, _ := components["schemas"].(map[string]any)
	securitySchemes, _ := components["securitySchemes"].(map[string]any)
	globalSecurity, _ := doc["security"].([]any)

	placeholderIndex := 0
	manual := &utcptypes.Manual{
		UTCPVersion:   utcptypes.UTCPVersion,
		ManualVersion: "1.0.0",
	}

	pathKeys := make([]string, 0, len(paths))
	for p := range paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	for _, path := range pathKeys {
		item, _ := paths[path].(map[string]any)
		for _, method := range httpMethods {
			opRaw, ok := item[method]
			if !ok {
				continue
			}
			op, ok := opRaw.(map[string]any)
			if !ok {
				continue
			}
			opID, _ := op["operationId"].(string)
			if opID == "" {
				continue
			}
			tool, err := convertOperation(opID, path, method, item, op, baseURL, schemas, securitySchemes, globalSecurity, authTools, &placeholderIndex)
			if err != nil {
				return nil, fmt.Errorf("convert operation %q: %w", opID, err)
			}
			manual.Tools = append(manual.Tools, tool)
		}
	}
	return manual, nil
}

func convertOperation(
	opID, path, method string,
	pathItem, op map[string]any,
	baseURL string,
	schemas, securitySchemes map[string]any,
	globalSecurity []any,
	authTools utcptypes.Auth,
	placeholderIndex *int,
) (*utcptypes.Tool, error) {
	description, _ := op["description"].(string)
	if description == "" {
		description, _ = op["summary"].(string)
	}
	tags := stringSlice(op["tags"])

	inputSchema := utcptypes.JSONSchema{"type": "object", "properties": map[string]any{}}
	properties := inputSchema["properties"].(map[string]any)
	var required []string
	var headerFields []string
	bodyField := ""

	params := append(asSlice(pathItem["parameters"]), asSlice(op["parameters"])...)
	for _, raw := range params {
		p, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		in, _ := p["in"].(string)
		if name == "" {
			continue
		}
		schema, _ := p["schema"].(map[string]any)
		properties[name] = resolveSchema(schema, schemas, map[string]bool{})
		if req, _ := p["required"].(bool); req || in == "path" {
			required = append(required, name)
		}
		if in == "header" {
			headerFields = append(headerFields, name)
		}
	}

	if rb, ok := op["requestBody"].(map[string]any); ok {
		content, _ := rb["content"].(map[string]any)
		if jsonContent, ok := content["application/json"].(map[string]any); ok {
			schema, _ := jsonContent["schema"].(map[string]any)
			resolved := resolveSchema(schema, schemas, map[string]bool{})
			properties["body"] = resolved
			bodyField = "body"
			if req, _ := rb["required"].(bool); req {
				required = append(required, "body")
			}
		}
	}
	if len(required) > 0 {
		inputSchema["required"] = required
	}

	outputSchema := extractOutputSchema(op, schemas)

	auth, nextIndex := matchSecurity(op["security"], globalSecurity, securitySchemes, authTools, *placeholderIndex)
	*placeholderIndex = nextIndex

	tmpl := &utcptypes.HTTPCallTemplate{
		URL:          baseURL + path,
		Method:       utcptypes.HTTPMethod(strings.ToUpper(method)),
		ContentType:  "application/json",
		BodyField:    bodyField,
		HeaderFields: headerFields,
		Auth:         auth,
	}

	return &utcptypes.Tool{
		Name:             opID,
		Description:      description,
		Inputs:           inputSchema,
		Outputs:          outputSchema,
		Tags:             tags,
		ToolCallTemplate: tmpl,
	}, nil
}

func extractOutputSchema(op map[string]any, schemas map[string]any) utcptypes.JSONSchema {
	responses, _ := op["responses"].(map[string]any)
	for _, code := range []string{"200", "201", "default"} {
		resp, ok := responses[code].(map[string]any)
		if !ok {
			continue
		}
		content, _ := resp["content"].(map[string]any)
		jsonContent, ok := content["application/json"].(map[string]any)
		if !ok {
			continue
		}
		schema, _ := jsonContent["schema"].(map[string]any)
		return resolveSchema(schema, schemas, map[string]bool{})
	}
	return nil
}

// resolveSchema walks schema resolving $ref against components/schemas,
// guarding against reference cycles with a visited set (spec §9).
func resolveSchema(schema map[string]any, schemas map[string]any, visited map[string]bool) map[string]any {
	if schema == nil {
		return map[string]any{}
	}
	if ref, ok := schema["$ref"].(string); ok {
		name := refName(ref)
		if visited[name] {
			return map[string]any{"$ref": ref}
		}
		visited[name] = true
		target, ok := schemas[name].(map[string]any)
		if !ok {
			return map[string]any{}
		}
		return resolveSchema(target, schemas, visited)
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		if k == "properties" {
			props, ok := v.(map[string]any)
			if !ok {
				out[k] = v
				continue
			}
			resolvedProps := make(map[string]any, len(props))
			for pk, pv := range props {
				if pm, ok := pv.(map[string]any); ok {
					resolvedProps[pk] = resolveSchema(pm, schemas, visited)
				} else {
					resolvedProps[pk] = pv
				}
			}
			out[k] = resolvedProps
			continue
		}
		if k == "items" {
			if im, ok := v.(map[string]any); ok {
				out[k] = resolveSchema(im, schemas, visited)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func refName(ref string) string {
	idx := strings.LastIndex(ref, "/")
	if idx < 0 {
		return ref
	}
	return ref[idx+1:]
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asSlice(v any) []any {
	arr, _ := v.([]any)
	return arr
}
