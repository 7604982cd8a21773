// Package tools maps tool names to capabilities and narrates every call as an
// ACTION/OBSERVATION pair on the owning agent's emitter.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	wrerrors "github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

// SummaryLimit bounds the result_summary carried on OBSERVATION events.
const SummaryLimit = 100

// Func executes one tool call. The result should be JSON-serializable.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Registry stores tools by name. Registering an existing name replaces it.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Func
	emitter *core.Emitter
	tracer  trace.Tracer
}

// Option configures a Registry.
type Option func(*Registry)

// WithTracer sets the tracer used for tool spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Registry) {
		if t != nil {
			r.tracer = t
		}
	}
}

// New creates a registry narrating through em.
func New(em *core.Emitter, opts ...Option) *Registry {
	r := &Registry{
		tools:   make(map[string]Func),
		emitter: em,
		tracer:  otel.Tracer("warroom/tools"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces the tool under name.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return wrerrors.New(wrerrors.CodeInvalidInput, "tool name is empty", nil)
	}
	if fn == nil {
		return wrerrors.New(wrerrors.CodeInvalidInput, "tool handler is nil", nil).WithContext("tool", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = fn
	return nil
}

// RegisterTool adds a core.Tool under its own name. Arguments are passed as
// the tool input.
func (r *Registry) RegisterTool(t core.Tool) error {
	if t == nil {
		return wrerrors.New(wrerrors.CodeInvalidInput, "tool is nil", nil)
	}
	return r.Register(t.Name(), func(ctx context.Context, args map[string]any) (any, error) {
		return t.Call(ctx, args)
	})
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Use invokes name with args. An unregistered name fails with a TOOL_NOT_FOUND
// error before any event is emitted. Otherwise an ACTION precedes the call and
// an OBSERVATION follows a successful one; tool errors are returned unchanged.
func (r *Registry) Use(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	fn, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, wrerrors.New(wrerrors.CodeToolNotFound, fmt.Sprintf("tool %q not registered", name), nil).
			WithContext("tool", name)
	}
	if args == nil {
		args = map[string]any{}
	}

	ctx, span := r.tracer.Start(ctx, "tool."+name, trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	// The emitted event must not observe later writes by the tool.
	r.emitter.Act(ctx, "Using tool: "+name, core.ActionPayload{Tool: name, Args: maps.Clone(args)})

	result, err := fn(ctx, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	r.emitter.Observe(ctx, fmt.Sprintf("Tool '%s' returned results", name), core.ObservationPayload{
		Tool:          name,
		ResultSummary: Summarize(result),
	})
	return result, nil
}

// Summarize renders v compactly and truncates it to SummaryLimit runes.
func Summarize(v any) string {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case fmt.Stringer:
		s = val.String()
	default:
		if b, err := json.Marshal(v); err == nil {
			s = string(b)
		} else {
			s = fmt.Sprint(v)
		}
	}
	runes := []rune(s)
	if len(runes) > SummaryLimit {
		return string(runes[:SummaryLimit])
	}
	return s
}
