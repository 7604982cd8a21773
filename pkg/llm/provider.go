// Package llm defines the reasoning backend contract: a streaming chat call that
// separates thinking tokens from answer tokens.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single unit of communication.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChunkKind tags a StreamChunk.
type ChunkKind string

const (
	ChunkReasoning ChunkKind = "reasoning"
	ChunkContent   ChunkKind = "content"
	ChunkDone      ChunkKind = "done"
	ChunkError     ChunkKind = "error"
)

// StreamChunk is one element of a reasoning stream. A stream is a finite,
// ordered sequence of Reasoning and Content chunks terminated by exactly one
// Done or Error chunk, after which the channel is closed.
type StreamChunk struct {
	Kind  ChunkKind
	Text  string
	Model string
	Usage *Usage
	Err   error
}

// ChatResponse is the collected result of one reasoning call.
type ChatResponse struct {
	Model     string
	Reasoning string
	Content   string
	Usage     Usage
}

// Backend streams a reasoning call. Each call to ThinkAndRespond starts a new
// stream; a stream is never restarted.
type Backend interface {
	ThinkAndRespond(ctx context.Context, messages []Message, opts ...CallOption) (<-chan StreamChunk, error)
}

// Chatter is implemented by backends offering a single-response mode.
type Chatter interface {
	Chat(ctx context.Context, messages []Message, opts ...CallOption) (*ChatResponse, error)
}

// Options carries per-call sampling and thinking budget settings.
type Options struct {
	Model             string
	MinThinkingTokens int
	MaxThinkingTokens int
	Temperature       float64
	TopP              float64
	MaxTokens         int
}

// Default values for Options.
const (
	DefaultModel             = "nvidia/llama-3.3-nemotron-super-49b-v1.5"
	DefaultMinThinkingTokens = 512
	DefaultMaxThinkingTokens = 2048
	DefaultTemperature       = 0.6
	DefaultTopP              = 0.95
	DefaultMaxTokens         = 2048
	DefaultThinkingDirective = "/think"
)

// DefaultOptions returns the backend defaults.
func DefaultOptions() Options {
	return Options{
		Model:             DefaultModel,
		MinThinkingTokens: DefaultMinThinkingTokens,
		MaxThinkingTokens: DefaultMaxThinkingTokens,
		Temperature:       DefaultTemperature,
		TopP:              DefaultTopP,
		MaxTokens:         DefaultMaxTokens,
	}
}

// CallOption overrides a setting for one call.
type CallOption func(*Options)

// WithModel overrides the model identifier.
func WithModel(model string) CallOption {
	return func(o *Options) { o.Model = model }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) CallOption {
	return func(o *Options) { o.Temperature = t }
}

// WithTopP overrides nucleus sampling.
func WithTopP(p float64) CallOption {
	return func(o *Options) { o.TopP = p }
}

// WithMaxTokens overrides the response token limit.
func WithMaxTokens(n int) CallOption {
	return func(o *Options) { o.MaxTokens = n }
}

// WithThinkingBudget overrides the thinking token budget.
func WithThinkingBudget(minTokens, maxTokens int) CallOption {
	return func(o *Options) {
		o.MinThinkingTokens = minTokens
		o.MaxThinkingTokens = maxTokens
	}
}

// Apply returns base with opts applied in order.
func (base Options) Apply(opts ...CallOption) Options {
	for _, opt := range opts {
		if opt != nil {
			opt(&base)
		}
	}
	return base
}

// InjectDirective prepends a system message carrying directive when messages
// have no system message yet.
func InjectDirective(messages []Message, directive string) []Message {
	if directive == "" {
		return messages
	}
	for _, m := range messages {
		if m.Role == RoleSystem {
			return messages
		}
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: RoleSystem, Content: directive})
	return append(out, messages...)
}

// Exchange builds the two-message conversation used by single-shot queries.
func Exchange(system, prompt string) []Message {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	return append(msgs, Message{Role: RoleUser, Content: prompt})
}

// ErrStreamTruncated is returned when a stream closes without Done or Error.
var ErrStreamTruncated = errors.New("llm: stream closed before completion")

// Drain consumes a stream, calling onChunk for each reasoning or content chunk,
// and returns the collected response. It stops at the first Error chunk.
func Drain(ctx context.Context, stream <-chan StreamChunk, onChunk func(StreamChunk)) (*ChatResponse, error) {
	var reasoning, content strings.Builder
	resp := &ChatResponse{}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-stream:
			if !ok {
				return nil, ErrStreamTruncated
			}
			if chunk.Model != "" {
				resp.Model = chunk.Model
			}
			switch chunk.Kind {
			case ChunkReasoning:
				reasoning.WriteString(chunk.Text)
			case ChunkContent:
				content.WriteString(chunk.Text)
			case ChunkError:
				return nil, chunk.Err
			case ChunkDone:
				if chunk.Usage != nil {
					resp.Usage = *chunk.Usage
				}
				resp.Reasoning = reasoning.String()
				resp.Content = content.String()
				return resp, nil
			}
			if onChunk != nil && (chunk.Kind == ChunkReasoning || chunk.Kind == ChunkContent) {
				onChunk(chunk)
			}
		}
	}
}

// SimpleQuery drains a stream for prompt and returns only the answer text.
func SimpleQuery(ctx context.Context, b Backend, prompt, system string, opts ...CallOption) (string, error) {
	stream, err := b.ThinkAndRespond(ctx, Exchange(system, prompt), opts...)
	if err != nil {
		return "", err
	}
	resp, err := Drain(ctx, stream, nil)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Send delivers chunk unless ctx is done. Producers use it so an abandoned
// stream does not block its goroutine forever.
func Send(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
