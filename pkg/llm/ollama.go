package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	wrerrors "github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

// OllamaBackend streams from a local Ollama server with thinking enabled.
// Ollama separates deliberation into message.thinking, so no directive is
// injected.
type OllamaBackend struct {
	baseURL  string
	client   *http.Client
	defaults Options
}

// NewOllama creates a backend for baseURL using defaults for every call.
func NewOllama(baseURL string, defaults Options) *OllamaBackend {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if defaults.Model == "" {
		defaults.Model = DefaultModel
	}
	return &OllamaBackend{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 120 * time.Second},
		defaults: defaults,
	}
}

// Model returns the default model identifier.
func (p *OllamaBackend) Model() string { return p.defaults.Model }

type ollamaMessage struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	Thinking string `json:"thinking,omitempty"`
}

type ollamaRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Think    bool                   `json:"think"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ollamaStreamEvent is one NDJSON line, or the whole body when not streaming.
type ollamaStreamEvent struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	Error           string        `json:"error,omitempty"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
}

func (e ollamaStreamEvent) usage() *Usage {
	return &Usage{
		PromptTokens:     e.PromptEvalCount,
		CompletionTokens: e.EvalCount,
		TotalTokens:      e.PromptEvalCount + e.EvalCount,
	}
}

func (p *OllamaBackend) newRequest(ctx context.Context, messages []Message, stream bool, opts []CallOption) (*http.Request, string, error) {
	o := p.defaults.Apply(opts...)
	oReq := ollamaRequest{
		Model:  o.Model,
		Stream: stream,
		Think:  true,
		Options: map[string]interface{}{
			"temperature": o.Temperature,
			"top_p":       o.TopP,
		},
	}
	if o.MaxTokens > 0 {
		oReq.Options["num_predict"] = o.MaxTokens
	}
	for _, m := range messages {
		oReq.Messages = append(oReq.Messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(oReq)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal ollama request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, o.Model, nil
}

func (p *OllamaBackend) do(req *http.Request) (*http.Response, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, wrerrors.New(wrerrors.CodeLLMError, "ollama api call failed", err).WithRecoverable(true)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, wrerrors.New(wrerrors.CodeLLMError,
			fmt.Sprintf("ollama api returned status %d: %s", resp.StatusCode, string(respBody)), nil).
			WithContext("status_code", resp.StatusCode)
	}
	return resp, nil
}

// ThinkAndRespond implements Backend.
func (p *OllamaBackend) ThinkAndRespond(ctx context.Context, messages []Message, opts ...CallOption) (<-chan StreamChunk, error) {
	httpReq, model, err := p.newRequest(ctx, messages, true, opts)
	if err != nil {
		return nil, err
	}
	resp, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}

	chunks := make(chan StreamChunk, 16)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var event ollamaStreamEvent
			if err := json.Unmarshal(line, &event); err != nil {
				continue
			}
			if event.Error != "" {
				Send(ctx, chunks, StreamChunk{Kind: ChunkError, Model: model,
					Err: wrerrors.New(wrerrors.CodeLLMError, "ollama stream error: "+event.Error, nil)})
				return
			}
			if event.Message.Thinking != "" {
				if !Send(ctx, chunks, StreamChunk{Kind: ChunkReasoning, Text: event.Message.Thinking, Model: model}) {
					return
				}
			}
			if event.Message.Content != "" {
				if !Send(ctx, chunks, StreamChunk{Kind: ChunkContent, Text: event.Message.Content, Model: model}) {
					return
				}
			}
			if event.Done {
				Send(ctx, chunks, StreamChunk{Kind: ChunkDone, Model: model, Usage: event.usage()})
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = ErrStreamTruncated
		}
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		Send(ctx, chunks, StreamChunk{Kind: ChunkError, Model: model,
			Err: wrerrors.New(wrerrors.CodeLLMError, "ollama stream interrupted", err)})
	}()

	return chunks, nil
}

// Chat implements Chatter with a single non-streaming request.
func (p *OllamaBackend) Chat(ctx context.Context, messages []Message, opts ...CallOption) (*ChatResponse, error) {
	httpReq, model, err := p.newRequest(ctx, messages, false, opts)
	if err != nil {
		return nil, err
	}
	resp, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var event ollamaStreamEvent
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return nil, wrerrors.New(wrerrors.CodeLLMError, "failed to decode ollama response", err)
	}
	if event.Error != "" {
		return nil, wrerrors.New(wrerrors.CodeLLMError, "ollama error: "+event.Error, nil)
	}
	if event.Model != "" {
		model = event.Model
	}
	return &ChatResponse{
		Model:     model,
		Reasoning: event.Message.Thinking,
		Content:   event.Message.Content,
		Usage:     *event.usage(),
	}, nil
}

var (
	_ Backend = (*OllamaBackend)(nil)
	_ Chatter = (*OllamaBackend)(nil)
)
