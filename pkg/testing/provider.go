// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

// Package testing provides scripted reasoning backends and event recorders
// for tests of agents and investigations.
package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rtai-hli/gtc-hackathon/pkg/llm"
)

// ScenarioBackend is a scripted llm.Backend. Each call consumes the next
// response and records the messages and options it was called with.
type ScenarioBackend struct {
	mu           sync.Mutex
	responses    []ScriptedResponse
	currentIndex int
	requests     []Request
	defaultError error
	onCall       func(req Request) ScriptedResponse
}

// ScriptedResponse defines one streamed answer.
type ScriptedResponse struct {
	Reasoning []string
	Content   string
	// Error fails the call before streaming.
	Error error
	// StreamError is delivered mid-stream after the reasoning chunks.
	StreamError error
	Usage       llm.Usage
}

// Request is one captured call.
type Request struct {
	Messages []llm.Message
	Options  llm.Options
}

// NewScenarioBackend creates an empty scripted backend.
func NewScenarioBackend() *ScenarioBackend {
	return &ScenarioBackend{}
}

// AddResponse queues an answer streamed after the given reasoning chunks.
func (b *ScenarioBackend) AddResponse(content string, reasoning ...string) *ScenarioBackend {
	return b.AddScriptedResponse(ScriptedResponse{Content: content, Reasoning: reasoning})
}

// AddErrorResponse queues a call that fails before streaming.
func (b *ScenarioBackend) AddErrorResponse(err error) *ScenarioBackend {
	return b.AddScriptedResponse(ScriptedResponse{Error: err})
}

// AddScriptedResponse queues a fully configured response.
func (b *ScenarioBackend) AddScriptedResponse(resp ScriptedResponse) *ScenarioBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses = append(b.responses, resp)
	return b
}

// WithDefaultError sets the error returned once the script is exhausted.
func (b *ScenarioBackend) WithDefaultError(err error) *ScenarioBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.defaultError = err
	return b
}

// WithCallFunc answers every call with fn instead of the script.
func (b *ScenarioBackend) WithCallFunc(fn func(req Request) ScriptedResponse) *ScenarioBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onCall = fn
	return b
}

func (b *ScenarioBackend) next(req Request) (ScriptedResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.onCall != nil {
		return b.onCall(req), nil
	}
	if b.currentIndex >= len(b.responses) {
		if b.defaultError != nil {
			return ScriptedResponse{}, b.defaultError
		}
		return ScriptedResponse{}, fmt.Errorf("no more scripted responses (call %d)", b.currentIndex+1)
	}
	resp := b.responses[b.currentIndex]
	b.currentIndex++
	return resp, nil
}

// ThinkAndRespond implements llm.Backend.
func (b *ScenarioBackend) ThinkAndRespond(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (<-chan llm.StreamChunk, error) {
	req := Request{
		Messages: append([]llm.Message(nil), messages...),
		Options:  llm.DefaultOptions().Apply(opts...),
	}
	resp, err := b.next(req)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	model := req.Options.Model
	ch := make(chan llm.StreamChunk, len(resp.Reasoning)+2)
	go func() {
		defer close(ch)
		for _, r := range resp.Reasoning {
			if !llm.Send(ctx, ch, llm.StreamChunk{Kind: llm.ChunkReasoning, Text: r, Model: model}) {
				return
			}
		}
		if resp.StreamError != nil {
			llm.Send(ctx, ch, llm.StreamChunk{Kind: llm.ChunkError, Err: resp.StreamError, Model: model})
			return
		}
		if resp.Content != "" {
			if !llm.Send(ctx, ch, llm.StreamChunk{Kind: llm.ChunkContent, Text: resp.Content, Model: model}) {
				return
			}
		}
		usage := resp.Usage
		llm.Send(ctx, ch, llm.StreamChunk{Kind: llm.ChunkDone, Usage: &usage, Model: model})
	}()
	return ch, nil
}

// Requests returns all captured calls.
func (b *ScenarioBackend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// LastRequest returns the most recent call, or nil.
func (b *ScenarioBackend) LastRequest() *Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return nil
	}
	req := b.requests[len(b.requests)-1]
	return &req
}

// CallCount returns the number of calls made.
func (b *ScenarioBackend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// Reset clears captured calls and rewinds the script.
func (b *ScenarioBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = nil
	b.currentIndex = 0
}

// UserPrompt returns the concatenated user messages of the request.
func (r Request) UserPrompt() string {
	var parts []string
	for _, m := range r.Messages {
		if m.Role == llm.RoleUser {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

var _ llm.Backend = (*ScenarioBackend)(nil)
