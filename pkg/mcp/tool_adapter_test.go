package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	wrerrors "github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

type stubCaller struct {
	lastName string
	lastArgs map[string]any
	result   *mcp.CallToolResult
	err      error
}

func (s *stubCaller) CallTool(_ context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	s.lastName = name
	s.lastArgs = args
	return s.result, s.err
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}}}
}

func TestToolAdapterMapsStringInput(t *testing.T) {
	tool := mcp.Tool{
		Name:        "echo",
		InputSchema: mcp.ToolInputSchema{Type: "object", Required: []string{"input"}},
	}
	caller := &stubCaller{result: textResult("ok")}

	adapter, err := NewToolAdapter(tool, caller)
	if err != nil {
		t.Fatalf("NewToolAdapter: %v", err)
	}
	output, err := adapter.Call(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if output != "ok" {
		t.Fatalf("expected 'ok', got %v", output)
	}
	if caller.lastName != "echo" || caller.lastArgs["input"] != "hello" {
		t.Fatalf("unexpected call %s %v", caller.lastName, caller.lastArgs)
	}
}

func TestToolAdapterDecodesJSON(t *testing.T) {
	tool := mcp.Tool{
		Name:        "sum",
		InputSchema: mcp.ToolInputSchema{Type: "object", Required: []string{"a", "b"}},
	}
	caller := &stubCaller{result: textResult(`{"total": 3}`)}
	adapter, _ := NewToolAdapter(tool, caller)

	output, err := adapter.Call(context.Background(), `{"a": 1, "b": 2}`)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if m, ok := output.(map[string]any); !ok || m["total"] != float64(3) {
		t.Fatalf("expected decoded JSON, got %#v", output)
	}
	if caller.lastArgs["a"] != float64(1) {
		t.Fatalf("expected decoded args, got %v", caller.lastArgs)
	}
}

func TestToolAdapterErrors(t *testing.T) {
	tool := mcp.Tool{
		Name:        "lookup",
		InputSchema: mcp.ToolInputSchema{Type: "object", Required: []string{"id"}},
	}
	tests := []struct {
		name   string
		caller *stubCaller
		input  any
		code   wrerrors.ErrorCode
	}{
		{"missing required", &stubCaller{result: textResult("x")}, map[string]any{}, wrerrors.CodeInvalidInput},
		{"invalid json bytes", &stubCaller{result: textResult("x")}, []byte("{"), wrerrors.CodeInvalidInput},
		{"tool error", &stubCaller{result: &mcp.CallToolResult{IsError: true, Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "boom"}}}}, map[string]any{"id": "1"}, wrerrors.CodeToolFailure},
		{"transport error", &stubCaller{err: errors.New("eof")}, map[string]any{"id": "1"}, wrerrors.CodeToolFailure},
		{"nil result", &stubCaller{}, map[string]any{"id": "1"}, wrerrors.CodeToolFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := NewToolAdapter(tool, tt.caller)
			if err != nil {
				t.Fatalf("NewToolAdapter: %v", err)
			}
			_, err = adapter.Call(context.Background(), tt.input)
			if wrerrors.CodeOf(err) != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestNewToolAdapterValidation(t *testing.T) {
	if _, err := NewToolAdapter(mcp.Tool{}, &stubCaller{}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := NewToolAdapter(mcp.Tool{Name: "x"}, nil); err == nil {
		t.Fatal("expected error for nil caller")
	}
}

func TestToolAdapterPrefersStructuredContent(t *testing.T) {
	caller := &stubCaller{result: &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.TextContent{Type: "text", Text: "summary"}},
		StructuredContent: map[string]any{"rows": 2},
	}}
	adapter, _ := NewToolAdapter(mcp.Tool{Name: "q"}, caller)
	out, err := adapter.Call(context.Background(), nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if m, ok := out.(map[string]any); !ok || m["rows"] != 2 {
		t.Fatalf("expected structured content, got %#v", out)
	}
}
