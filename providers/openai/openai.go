// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

// Package openai provides a reasoning backend for OpenAI-compatible endpoints
// that stream reasoning_content, such as NVIDIA's Nemotron models.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	wrerrors "github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/llm"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/respjson"
)

// DefaultBaseURL is NVIDIA's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://integrate.api.nvidia.com/v1"

// reasoningKeys are the delta fields servers use for thinking tokens.
var reasoningKeys = []string{"reasoning_content", "reasoning"}

// Provider implements llm.Backend and llm.Chatter.
type Provider struct {
	client     openai.Client
	defaults   llm.Options
	directive  string
	apiKey     string
	baseURL    string
	maxRetries int
	httpClient *http.Client
}

// Option configures the Provider.
type Option func(*Provider)

// WithAPIKey sets the API key.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) {
		p.apiKey = apiKey
	}
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.defaults.Model = model
	}
}

// WithDefaults replaces the per-call defaults.
func WithDefaults(o llm.Options) Option {
	return func(p *Provider) {
		p.defaults = o
	}
}

// WithThinkingDirective sets the system message injected when a conversation
// has none. An empty directive disables injection.
func WithThinkingDirective(directive string) Option {
	return func(p *Provider) {
		p.directive = directive
	}
}

// WithMaxRetries sets the client retry count for failed requests.
func WithMaxRetries(n int) Option {
	return func(p *Provider) {
		p.maxRetries = n
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// New creates a provider. A missing API key is a configuration error.
func New(opts ...Option) (*Provider, error) {
	p := &Provider{
		defaults:   llm.DefaultOptions(),
		directive:  llm.DefaultThinkingDirective,
		baseURL:    DefaultBaseURL,
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.apiKey == "" {
		return nil, wrerrors.New(wrerrors.CodeConfig, "reasoning backend requires an API key", nil).
			WithContext("base_url", p.baseURL)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(p.apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithMaxRetries(p.maxRetries),
	}
	if p.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(p.httpClient))
	}
	p.client = openai.NewClient(reqOpts...)
	return p, nil
}

// Model returns the default model identifier.
func (p *Provider) Model() string { return p.defaults.Model }

func (p *Provider) params(messages []llm.Message, o llm.Options) openai.ChatCompletionNewParams {
	msgs := llm.InjectDirective(messages, p.directive)
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		converted = append(converted, convertMessage(m))
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.Model),
		Messages:    converted,
		Temperature: openai.Float(o.Temperature),
		TopP:        openai.Float(o.TopP),
	}
	if o.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.MaxTokens))
	}
	return params
}

// budgetOptions carries the thinking budgets as extra body fields.
func budgetOptions(o llm.Options) []option.RequestOption {
	var opts []option.RequestOption
	if o.MinThinkingTokens > 0 {
		opts = append(opts, option.WithJSONSet("min_thinking_tokens", o.MinThinkingTokens))
	}
	if o.MaxThinkingTokens > 0 {
		opts = append(opts, option.WithJSONSet("max_thinking_tokens", o.MaxThinkingTokens))
	}
	return opts
}

// ThinkAndRespond implements llm.Backend.
func (p *Provider) ThinkAndRespond(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (<-chan llm.StreamChunk, error) {
	o := p.defaults.Apply(opts...)
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(messages, o), budgetOptions(o)...)
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, wrapError(err, o.Model)
	}

	chunks := make(chan llm.StreamChunk, 32)
	go func() {
		defer close(chunks)
		defer stream.Close()

		var usage *llm.Usage
		for stream.Next() {
			event := stream.Current()
			if event.Usage.TotalTokens > 0 {
				usage = &llm.Usage{
					PromptTokens:     int(event.Usage.PromptTokens),
					CompletionTokens: int(event.Usage.CompletionTokens),
					TotalTokens:      int(event.Usage.TotalTokens),
				}
			}
			if len(event.Choices) == 0 {
				continue
			}
			delta := event.Choices[0].Delta
			if r := reasoningText(delta.JSON.ExtraFields); r != "" {
				if !llm.Send(ctx, chunks, llm.StreamChunk{Kind: llm.ChunkReasoning, Text: r, Model: o.Model}) {
					return
				}
			}
			if delta.Content != "" {
				if !llm.Send(ctx, chunks, llm.StreamChunk{Kind: llm.ChunkContent, Text: delta.Content, Model: o.Model}) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			llm.Send(ctx, chunks, llm.StreamChunk{Kind: llm.ChunkError, Err: wrapError(err, o.Model), Model: o.Model})
			return
		}
		if err := ctx.Err(); err != nil {
			llm.Send(ctx, chunks, llm.StreamChunk{Kind: llm.ChunkError, Err: wrapError(err, o.Model), Model: o.Model})
			return
		}
		llm.Send(ctx, chunks, llm.StreamChunk{Kind: llm.ChunkDone, Usage: usage, Model: o.Model})
	}()

	return chunks, nil
}

// Chat implements llm.Chatter using a single non-streaming completion.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.ChatResponse, error) {
	o := p.defaults.Apply(opts...)
	completion, err := p.client.Chat.Completions.New(ctx, p.params(messages, o), budgetOptions(o)...)
	if err != nil {
		return nil, wrapError(err, o.Model)
	}
	resp := &llm.ChatResponse{
		Model: o.Model,
		Usage: llm.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	if len(completion.Choices) > 0 {
		msg := completion.Choices[0].Message
		resp.Content = msg.Content
		resp.Reasoning = reasoningText(msg.JSON.ExtraFields)
	}
	return resp, nil
}

func convertMessage(msg llm.Message) openai.ChatCompletionMessageParamUnion {
	switch msg.Role {
	case llm.RoleSystem:
		return openai.SystemMessage(msg.Content)
	case llm.RoleAssistant:
		return openai.AssistantMessage(msg.Content)
	default:
		return openai.UserMessage(msg.Content)
	}
}

// reasoningText extracts thinking tokens from fields the SDK does not model.
func reasoningText(fields map[string]respjson.Field) string {
	for _, key := range reasoningKeys {
		f, ok := fields[key]
		if !ok || !f.Valid() {
			continue
		}
		var s string
		if err := json.Unmarshal([]byte(f.Raw()), &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func wrapError(err error, model string) error {
	we := wrerrors.New(wrerrors.CodeLLMError, "reasoning backend call failed", err).
		WithContext("model", model).
		WithAttribute("llm.model", model)
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		we.WithContext("status_code", apiErr.StatusCode).
			WithAttribute("http.status_code", fmt.Sprint(apiErr.StatusCode)).
			WithRecoverable(apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500)
	}
	return we
}

var (
	_ llm.Backend = (*Provider)(nil)
	_ llm.Chatter = (*Provider)(nil)
)
