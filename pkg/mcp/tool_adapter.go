package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/tools"
)

// ToolCaller abstracts MCP tool execution for adapters.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// ToolAdapter wraps an MCP tool to satisfy core.Tool.
type ToolAdapter struct {
	tool   mcp.Tool
	caller ToolCaller
}

// NewToolAdapter builds a core.Tool backed by an MCP tool definition and caller.
func NewToolAdapter(tool mcp.Tool, caller ToolCaller) (*ToolAdapter, error) {
	if tool.Name == "" {
		return nil, errors.New(errors.CodeInvalidInput, "mcp tool name is required", nil)
	}
	if caller == nil {
		return nil, errors.New(errors.CodeInvalidInput, "tool caller is required", nil).
			WithContext("tool", tool.Name)
	}
	return &ToolAdapter{tool: tool, caller: caller}, nil
}

// Name returns the MCP tool name.
func (t *ToolAdapter) Name() string {
	return t.tool.Name
}

// Description returns the server-provided description.
func (t *ToolAdapter) Description() string {
	return t.tool.Description
}

// Call invokes the MCP tool with normalized arguments.
func (t *ToolAdapter) Call(ctx context.Context, input any) (any, error) {
	args, err := normalizeToolArgs(input)
	if err != nil {
		return nil, err
	}
	if err := validateRequiredArgs(t.tool, args); err != nil {
		return nil, err
	}
	result, err := t.caller.CallTool(ctx, t.tool.Name, args)
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure, "mcp call failed", err).
			WithContext("tool", t.tool.Name).
			WithRecoverable(true)
	}
	return toolResultToOutput(t.tool.Name, result)
}

// RegisterTools lists the tools behind client and adds each one to reg.
// Only names in allow are registered when allow is non-empty.
func RegisterTools(ctx context.Context, reg *tools.Registry, client *Client, allow ...string) ([]string, error) {
	listed, err := client.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	allowed := map[string]bool{}
	for _, name := range allow {
		allowed[name] = true
	}
	var registered []string
	for _, tool := range listed {
		if len(allowed) > 0 && !allowed[tool.Name] {
			continue
		}
		adapter, err := NewToolAdapter(tool, client)
		if err != nil {
			return registered, err
		}
		if err := reg.RegisterTool(adapter); err != nil {
			return registered, err
		}
		registered = append(registered, tool.Name)
	}
	return registered, nil
}

func normalizeToolArgs(input any) (map[string]any, error) {
	switch value := input.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return value, nil
	case json.RawMessage:
		return decodeArgs(value)
	case []byte:
		return decodeArgs(value)
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return map[string]any{}, nil
		}
		if strings.HasPrefix(trimmed, "{") {
			if decoded, err := decodeArgs([]byte(trimmed)); err == nil {
				return decoded, nil
			}
		}
		return map[string]any{"input": value}, nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, errors.New(errors.CodeInvalidInput, fmt.Sprintf("mcp tool args: unsupported type %T", input), err)
		}
		return decodeArgs(encoded)
	}
}

func decodeArgs(raw []byte) (map[string]any, error) {
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "mcp tool args: invalid JSON", err)
	}
	if decoded == nil {
		decoded = map[string]any{}
	}
	return decoded, nil
}

func validateRequiredArgs(tool mcp.Tool, args map[string]any) error {
	schema := tool.InputSchema
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return errors.New(errors.CodeInvalidInput, fmt.Sprintf("mcp tool args: missing required field %q", key), nil).
				WithContext("tool", tool.Name)
		}
	}
	return nil
}

// toolResultToOutput prefers structured content, then JSON text, then raw text.
func toolResultToOutput(name string, result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, errors.New(errors.CodeToolFailure, "mcp tool result is nil", nil).WithContext("tool", name)
	}
	text := extractTextContent(result.Content)
	if result.IsError {
		return nil, errors.New(errors.CodeToolFailure, "mcp tool returned error: "+text, nil).WithContext("tool", name)
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err == nil {
		return decoded, nil
	}
	if text != "" {
		return text, nil
	}
	return result, nil
}

func extractTextContent(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ core.Tool = (*ToolAdapter)(nil)
