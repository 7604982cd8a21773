package core

import "context"

// Tool is a named capability an agent can invoke, typically backed by MCP or
// a scenario fixture.
type Tool interface {
	Name() string
	Call(ctx context.Context, input any) (any, error)
}
