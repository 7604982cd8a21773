package llm

import (
	"context"
	"errors"
	"sync"
)

// MockBackend is a testing implementation of Backend. It streams Reasoning
// chunks first, then Content, then Done.
type MockBackend struct {
	Reasoning []string
	Content   []string
	Err       error
	// StreamErr is delivered as an Error chunk after the scripted chunks.
	StreamErr error

	mu    sync.Mutex
	calls [][]Message
}

// NewMockBackend returns a backend answering with content after one reasoning chunk.
func NewMockBackend(reasoning, content string) *MockBackend {
	m := &MockBackend{Content: []string{content}}
	if reasoning != "" {
		m.Reasoning = []string{reasoning}
	}
	return m
}

// ThinkAndRespond implements Backend.
func (m *MockBackend) ThinkAndRespond(ctx context.Context, messages []Message, opts ...CallOption) (<-chan StreamChunk, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]Message(nil), messages...))
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	model := DefaultOptions().Apply(opts...).Model
	ch := make(chan StreamChunk, len(m.Reasoning)+len(m.Content)+1)
	go func() {
		defer close(ch)
		for _, r := range m.Reasoning {
			if !Send(ctx, ch, StreamChunk{Kind: ChunkReasoning, Text: r, Model: model}) {
				return
			}
		}
		for _, c := range m.Content {
			if !Send(ctx, ch, StreamChunk{Kind: ChunkContent, Text: c, Model: model}) {
				return
			}
		}
		if m.StreamErr != nil {
			Send(ctx, ch, StreamChunk{Kind: ChunkError, Err: m.StreamErr, Model: model})
			return
		}
		Send(ctx, ch, StreamChunk{Kind: ChunkDone, Model: model, Usage: &Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20}})
	}()
	return ch, nil
}

// Calls returns the message lists received so far.
func (m *MockBackend) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]Message(nil), m.calls...)
}

// FailingBackend always fails to start a stream.
type FailingBackend struct {
	Err error
}

// ThinkAndRespond implements Backend.
func (f *FailingBackend) ThinkAndRespond(ctx context.Context, messages []Message, opts ...CallOption) (<-chan StreamChunk, error) {
	if f.Err == nil {
		return nil, errors.New("mock error")
	}
	return nil, f.Err
}
