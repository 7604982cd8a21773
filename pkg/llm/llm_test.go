package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	wrerrors "github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

func TestInjectDirective(t *testing.T) {
	user := []Message{{Role: RoleUser, Content: "why is p99 high?"}}
	got := InjectDirective(user, "/think")
	if len(got) != 2 || got[0].Role != RoleSystem || got[0].Content != "/think" {
		t.Fatalf("expected directive at head, got %+v", got)
	}
	if len(user) != 1 {
		t.Fatalf("input slice was modified")
	}

	withSystem := []Message{{Role: RoleSystem, Content: "You are an SRE"}, {Role: RoleUser, Content: "x"}}
	if got := InjectDirective(withSystem, "/think"); len(got) != 2 || got[0].Content != "You are an SRE" {
		t.Fatalf("expected existing system message to be kept, got %+v", got)
	}
	if got := InjectDirective(user, ""); len(got) != 1 {
		t.Fatalf("empty directive must not inject")
	}
}

func TestOptionsApply(t *testing.T) {
	o := DefaultOptions().Apply(WithTemperature(0.1), WithTopP(0.5), WithMaxTokens(64), WithThinkingBudget(128, 256), WithModel("m"))
	if o.Temperature != 0.1 || o.TopP != 0.5 || o.MaxTokens != 64 || o.MinThinkingTokens != 128 || o.MaxThinkingTokens != 256 || o.Model != "m" {
		t.Fatalf("unexpected options %+v", o)
	}
	if d := DefaultOptions(); d.MinThinkingTokens != 512 || d.MaxThinkingTokens != 2048 {
		t.Fatalf("unexpected defaults %+v", d)
	}
}

func TestSimpleQueryReturnsContentOnly(t *testing.T) {
	mock := &MockBackend{Reasoning: []string{"checking pool"}, Content: []string{"pool ", "exhaustion"}}
	got, err := SimpleQuery(context.Background(), mock, "what broke?", "You are an SRE")
	if err != nil {
		t.Fatalf("SimpleQuery: %v", err)
	}
	if got != "pool exhaustion" {
		t.Fatalf("expected content only, got %q", got)
	}
	calls := mock.Calls()
	if len(calls) != 1 || len(calls[0]) != 2 || calls[0][0].Role != RoleSystem || calls[0][1].Content != "what broke?" {
		t.Fatalf("unexpected messages %+v", calls)
	}
}

func TestDrainOrderAndErrors(t *testing.T) {
	mock := &MockBackend{Reasoning: []string{"a", "b"}, Content: []string{"c"}}
	stream, err := mock.ThinkAndRespond(context.Background(), nil)
	if err != nil {
		t.Fatalf("ThinkAndRespond: %v", err)
	}
	var kinds []string
	resp, err := Drain(context.Background(), stream, func(c StreamChunk) {
		kinds = append(kinds, string(c.Kind)+":"+c.Text)
	})
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if strings.Join(kinds, ",") != "reasoning:a,reasoning:b,content:c" {
		t.Fatalf("unexpected order %v", kinds)
	}
	if resp.Reasoning != "ab" || resp.Content != "c" || resp.Usage.TotalTokens != 20 {
		t.Fatalf("unexpected response %+v", resp)
	}

	boom := errors.New("connection reset")
	failing := &MockBackend{Content: []string{"partial"}, StreamErr: boom}
	stream, _ = failing.ThinkAndRespond(context.Background(), nil)
	if _, err := Drain(context.Background(), stream, nil); !errors.Is(err, boom) {
		t.Fatalf("expected stream error, got %v", err)
	}

	truncated := make(chan StreamChunk)
	close(truncated)
	if _, err := Drain(context.Background(), truncated, nil); !errors.Is(err, ErrStreamTruncated) {
		t.Fatalf("expected ErrStreamTruncated, got %v", err)
	}
}

func TestFailingBackend(t *testing.T) {
	if _, err := SimpleQuery(context.Background(), &FailingBackend{}, "x", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestOllamaStream(t *testing.T) {
	requests := make(chan ollamaRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		requests <- req
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"model":"qwen3","message":{"role":"assistant","content":"","thinking":"pool is saturated"},"done":false}`)
		fmt.Fprintln(w, `{"model":"qwen3","message":{"role":"assistant","content":"Connection pool exhaustion"},"done":false}`)
		fmt.Fprintln(w, `{"model":"qwen3","message":{"role":"assistant","content":""},"done":true,"prompt_eval_count":12,"eval_count":30}`)
	}))
	defer server.Close()

	backend := NewOllama(server.URL, Options{Model: "qwen3", Temperature: 0.6, TopP: 0.95, MaxTokens: 256})
	stream, err := backend.ThinkAndRespond(context.Background(), Exchange("", "why?"))
	if err != nil {
		t.Fatalf("ThinkAndRespond: %v", err)
	}
	var reasoningChunks int
	resp, err := Drain(context.Background(), stream, func(c StreamChunk) {
		if c.Kind == ChunkReasoning {
			reasoningChunks++
		}
	})
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	got := <-requests
	if !got.Think || !got.Stream || got.Model != "qwen3" {
		t.Fatalf("unexpected request %+v", got)
	}
	if reasoningChunks != 1 || resp.Reasoning != "pool is saturated" || resp.Content != "Connection pool exhaustion" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Usage.TotalTokens != 42 {
		t.Fatalf("expected usage 42, got %d", resp.Usage.TotalTokens)
	}
}

func TestOllamaChatAndStatusErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model == "missing" {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"model":"qwen3","message":{"role":"assistant","content":"answer","thinking":"hmm"},"done":true}`)
	}))
	defer server.Close()

	backend := NewOllama(server.URL, DefaultOptions())
	resp, err := backend.Chat(context.Background(), Exchange("", "q"), WithModel("qwen3"))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "answer" || resp.Reasoning != "hmm" {
		t.Fatalf("unexpected response %+v", resp)
	}

	_, err = backend.ThinkAndRespond(context.Background(), Exchange("", "q"), WithModel("missing"))
	if wrerrors.CodeOf(err) != wrerrors.CodeLLMError {
		t.Fatalf("expected LLM error, got %v", err)
	}
}
