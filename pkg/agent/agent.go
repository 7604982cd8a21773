// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent provides the capability set every war room agent is built
// from: narrating events, registering and using tools, and asking a reasoning
// backend to think.
package agent

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/llm"
	"github.com/rtai-hli/gtc-hackathon/pkg/telemetry"
	"github.com/rtai-hli/gtc-hackathon/pkg/tools"
)

// Capabilities is what phase drivers need from an agent.
type Capabilities interface {
	Emit(ctx context.Context, content string, payload core.Payload) core.Event
	RegisterTool(name string, fn tools.Func) error
	UseTool(ctx context.Context, name string, args map[string]any) (any, error)
	LLMReason(ctx context.Context, prompt, system string, emitReasoning bool) (string, error)
	HasReasoner() bool
}

// Base implements Capabilities by composing an emitter, a tool registry and
// an optional reasoning backend.
type Base struct {
	*core.Emitter

	tools    *tools.Registry
	backend  llm.Backend
	callOpts []llm.CallOption
	tracer   trace.Tracer
	logger   *slog.Logger
	metrics  *ErrorMetricsIntegration

	mu           sync.Mutex
	conversation []core.ConversationEntry
}

type config struct {
	emitterOpts []core.EmitterOption
	backend     llm.Backend
	callOpts    []llm.CallOption
	tracer      trace.Tracer
	logger      *slog.Logger
	metrics     *ErrorMetricsIntegration
}

// Option configures a Base.
type Option func(*config) error

// WithListeners subscribes listeners in order.
func WithListeners(ls ...core.Listener) Option {
	return func(c *config) error {
		c.emitterOpts = append(c.emitterOpts, core.WithListeners(ls...))
		return nil
	}
}

// WithEmitterOptions passes options through to the agent's emitter.
func WithEmitterOptions(opts ...core.EmitterOption) Option {
	return func(c *config) error {
		c.emitterOpts = append(c.emitterOpts, opts...)
		return nil
	}
}

// WithBackend attaches a reasoning backend. A nil backend leaves the agent
// without a reasoner.
func WithBackend(b llm.Backend) Option {
	return func(c *config) error {
		c.backend = b
		return nil
	}
}

// WithCallOptions sets the per-call options used by LLMReason.
func WithCallOptions(opts ...llm.CallOption) Option {
	return func(c *config) error {
		c.callOpts = append(c.callOpts, opts...)
		return nil
	}
}

// WithTracer sets the tracer for llm and tool spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) error {
		c.tracer = t
		return nil
	}
}

// WithLogger sets the logger for the agent and its emitter.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		c.logger = l
		c.emitterOpts = append(c.emitterOpts, core.WithLogger(l))
		return nil
	}
}

// WithErrorMetrics records reasoning and tool failures.
func WithErrorMetrics(m *ErrorMetricsIntegration) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}

// New creates an agent named name.
func New(name string, opts ...Option) (*Base, error) {
	if strings.TrimSpace(name) == "" {
		return nil, NewInvalidInputError("agent name is required")
	}
	cfg := &config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer("warroom/agent")
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	em := core.NewEmitter(name, cfg.emitterOpts...)
	return &Base{
		Emitter:  em,
		tools:    tools.New(em, tools.WithTracer(cfg.tracer)),
		backend:  cfg.backend,
		callOpts: cfg.callOpts,
		tracer:   cfg.tracer,
		logger:   cfg.logger,
		metrics:  cfg.metrics,
	}, nil
}

// Name returns the agent name.
func (b *Base) Name() string { return b.Agent() }

// Tools returns the agent's tool registry.
func (b *Base) Tools() *tools.Registry { return b.tools }

// Tracer returns the agent's tracer.
func (b *Base) Tracer() trace.Tracer { return b.tracer }

// Logger returns the agent's logger.
func (b *Base) Logger() *slog.Logger { return b.logger }

// Metrics returns the error metrics integration, which may be nil.
func (b *Base) Metrics() *ErrorMetricsIntegration { return b.metrics }

// HasReasoner reports whether a reasoning backend is attached.
func (b *Base) HasReasoner() bool { return b.backend != nil }

// RegisterTool adds or replaces a tool.
func (b *Base) RegisterTool(name string, fn tools.Func) error {
	return b.tools.Register(name, fn)
}

// UseTool invokes a registered tool. Unknown names fail with TOOL_NOT_FOUND
// before any event is emitted; tool failures are returned unchanged.
func (b *Base) UseTool(ctx context.Context, name string, args map[string]any) (any, error) {
	result, err := b.tools.Use(ctx, name, args)
	if err != nil && errors.CodeOf(err) != errors.CodeToolNotFound {
		b.metrics.RecordError(ctx, WrapToolError(err, name), "tool")
	}
	return result, err
}

// Conversation returns a copy of the recorded reasoning exchanges.
func (b *Base) Conversation() []core.ConversationEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.ConversationEntry(nil), b.conversation...)
}

// LLMReason sends system and prompt to the backend and returns the answer.
// With emitReasoning, every reasoning chunk is narrated as a THINKING event
// flagged llm_reasoning. Each successful call appends a ConversationEntry.
func (b *Base) LLMReason(ctx context.Context, prompt, system string, emitReasoning bool) (string, error) {
	if b.backend == nil {
		return "", errors.New(errors.CodeNoReasoner, "no reasoning backend configured", nil).
			WithContext("agent", b.Agent())
	}
	model := b.model()
	messages := llm.Exchange(system, prompt)

	ctx, span := b.tracer.Start(ctx, "llm.think_and_respond",
		trace.WithAttributes(telemetry.LLMAttributes(model, len(messages))...))
	defer span.End()

	fail := func(err error) (string, error) {
		werr := WrapLLMError(err, model)
		span.RecordError(werr)
		span.SetStatus(codes.Error, werr.Error())
		b.metrics.RecordError(ctx, werr, "llm")
		return "", werr
	}

	stream, err := b.backend.ThinkAndRespond(ctx, messages, b.callOpts...)
	if err != nil {
		return fail(err)
	}
	resp, err := llm.Drain(ctx, stream, func(chunk llm.StreamChunk) {
		if emitReasoning && chunk.Kind == llm.ChunkReasoning {
			b.Think(ctx, chunk.Text, core.ThinkingPayload{LLMReasoning: true})
		}
	})
	if err != nil {
		return fail(err)
	}

	span.SetAttributes(telemetry.LLMUsageAttributes(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, len(resp.Reasoning))...)
	span.SetStatus(codes.Ok, "")

	b.mu.Lock()
	b.conversation = append(b.conversation, core.ConversationEntry{
		Prompt:    prompt,
		Reasoning: resp.Reasoning,
		Response:  resp.Content,
		At:        time.Now(),
	})
	b.mu.Unlock()
	return resp.Content, nil
}

func (b *Base) model() string {
	if m, ok := b.backend.(interface{ Model() string }); ok && m.Model() != "" {
		return llm.Options{Model: m.Model()}.Apply(b.callOpts...).Model
	}
	return llm.DefaultOptions().Apply(b.callOpts...).Model
}

var _ Capabilities = (*Base)(nil)
