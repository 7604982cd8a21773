// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"testing"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/llm"
)

type recorder struct {
	events []core.Event
}

func (r *recorder) OnEvent(ctx context.Context, ev core.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewRequiresName(t *testing.T) {
	if _, err := New(" "); errors.CodeOf(err) != errors.CodeInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLLMReasonWithoutBackend(t *testing.T) {
	a, err := New("Commander", WithLogger(quiet()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.HasReasoner() {
		t.Fatal("expected no reasoner")
	}
	_, err = a.LLMReason(context.Background(), "why?", "sre", true)
	if !stderrors.Is(err, errors.ErrNoReasoner) {
		t.Fatalf("expected ErrNoReasoner, got %v", err)
	}
}

func TestLLMReasonStreamsThinking(t *testing.T) {
	rec := &recorder{}
	backend := &llm.MockBackend{
		Reasoning: []string{"pool at max. ", "config changed."},
		Content:   []string{"Connection pool ", "exhaustion"},
	}
	a, err := New("Commander", WithListeners(rec), WithBackend(backend), WithLogger(quiet()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := a.LLMReason(context.Background(), "analyze", "You are an SRE", true)
	if err != nil {
		t.Fatalf("LLMReason: %v", err)
	}
	if got != "Connection pool exhaustion" {
		t.Fatalf("unexpected answer %q", got)
	}
	if len(rec.events) != 2 {
		t.Fatalf("expected 2 reasoning events, got %d", len(rec.events))
	}
	for _, ev := range rec.events {
		if ev.Type != core.EventThinking || ev.Metadata()[core.KeyLLMReasoning] != true {
			t.Fatalf("expected llm_reasoning thinking event, got %+v", ev)
		}
	}

	conv := a.Conversation()
	if len(conv) != 1 || conv[0].Reasoning != "pool at max. config changed." || conv[0].Response != got {
		t.Fatalf("unexpected conversation %+v", conv)
	}
	calls := backend.Calls()
	if len(calls) != 1 || calls[0][0].Role != llm.RoleSystem || calls[0][1].Content != "analyze" {
		t.Fatalf("unexpected messages %+v", calls)
	}
}

func TestLLMReasonQuiet(t *testing.T) {
	rec := &recorder{}
	a, _ := New("Commander", WithListeners(rec), WithBackend(llm.NewMockBackend("hmm", "ok")))
	if _, err := a.LLMReason(context.Background(), "p", "", false); err != nil {
		t.Fatalf("LLMReason: %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("expected no events, got %d", len(rec.events))
	}
}

func TestLLMReasonBackendFailure(t *testing.T) {
	a, _ := New("Commander", WithBackend(&llm.FailingBackend{Err: stderrors.New("dial tcp: refused")}))
	_, err := a.LLMReason(context.Background(), "p", "s", true)
	if errors.CodeOf(err) != errors.CodeLLMError {
		t.Fatalf("expected LLM error, got %v", err)
	}
	if len(a.Conversation()) != 0 {
		t.Fatal("failed calls must not be recorded")
	}
}

func TestUseToolThroughBase(t *testing.T) {
	rec := &recorder{}
	a, _ := New("System Investigator", WithListeners(rec))
	if err := a.RegisterTool("query_metrics", func(ctx context.Context, args map[string]any) (any, error) {
		return map[string]any{"p99_ms": 3000}, nil
	}); err != nil {
		t.Fatalf("RegisterTool: %v", err)
	}

	if _, err := a.UseTool(context.Background(), "search_logs", nil); !stderrors.Is(err, errors.ErrToolNotFound) {
		t.Fatalf("expected tool not found, got %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("unknown tool must not emit, got %d", len(rec.events))
	}

	if _, err := a.UseTool(context.Background(), "query_metrics", map[string]any{"service": "user-api"}); err != nil {
		t.Fatalf("UseTool: %v", err)
	}
	if len(rec.events) != 2 || rec.events[0].Type != core.EventAction || rec.events[1].Type != core.EventObservation {
		t.Fatalf("expected ACTION then OBSERVATION, got %+v", rec.events)
	}
}
