package journal

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	wrerrors "github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

func sampleEvents(base time.Time) []core.Event {
	return []core.Event{
		{Agent: "Commander", Type: core.EventThinking, Content: "assessing", RunID: "run-1",
			Payload: core.ThinkingPayload{Severity: "high"}, Timestamp: base},
		{Agent: "Commander", Type: core.EventAction, Content: "delegating", RunID: "run-1",
			Payload: core.ActionPayload{Delegation: &core.Delegation{TaskID: "t-1", Area: "metrics",
				AssignedTo: "System Investigator", Status: core.TaskStatusPending}},
			Timestamp: base.Add(time.Second)},
		{Agent: "System Investigator", Type: core.EventObservation, Content: "pool saturated", RunID: "run-1",
			Payload: core.ObservationPayload{Tool: "query_metrics", TheoryCount: core.Int(2)},
			Timestamp: base.Add(2 * time.Second)},
		{Agent: "Commander", Type: core.EventDecision, Content: "ROOT CAUSE: pool", RunID: "run-2",
			Payload: core.DecisionPayload{Confidence: core.Float(0.5), RootCause: "pool"},
			Timestamp: base.Add(3 * time.Second)},
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 17, 10, 30, 0, 123456000, time.Local)
	events := sampleEvents(base)
	for _, ev := range events {
		if err := store.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	all, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(all))
	}
	for i := range events {
		if all[i].Agent != events[i].Agent || all[i].Type != events[i].Type || all[i].Content != events[i].Content {
			t.Fatalf("event %d: header mismatch %+v", i, all[i])
		}
		if all[i].RunID != events[i].RunID {
			t.Fatalf("event %d: run id %q", i, all[i].RunID)
		}
		if !all[i].Timestamp.Equal(events[i].Timestamp) {
			t.Fatalf("event %d: timestamp %v vs %v", i, all[i].Timestamp, events[i].Timestamp)
		}
		if !reflect.DeepEqual(all[i].Metadata(), events[i].Metadata()) {
			t.Fatalf("event %d: metadata\n got %#v\nwant %#v", i, all[i].Metadata(), events[i].Metadata())
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"run", Filter{RunID: "run-1"}, 3},
		{"agent", Filter{Agent: "Commander"}, 3},
		{"type", Filter{Type: core.EventDecision}, 1},
		{"since", Filter{Since: base.Add(2 * time.Second)}, 2},
		{"combined", Filter{RunID: "run-1", Agent: "Commander"}, 2},
		{"limit", Filter{Limit: 2}, 2},
		{"no match", Filter{Agent: "Code Detective"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("expected %d events, got %d", tt.want, len(got))
			}
		})
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	db, err := sql.Open("sqlite", "file:journal_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	exerciseStore(t, store)
}

func TestNewSQLiteStoreNilDB(t *testing.T) {
	if _, err := NewSQLiteStore(nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestListenerRecordsEmittedEvents(t *testing.T) {
	store := NewMemoryStore()
	em := core.NewEmitter("Commander", core.WithListeners(Listener(store)))
	ctx, runID := core.EnsureRunID(context.Background())

	em.Think(ctx, "a", core.ThinkingPayload{})
	em.Decide(ctx, "b", core.DecisionPayload{RootCause: "x"})

	got, err := store.List(context.Background(), Filter{RunID: runID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[1].Type != core.EventDecision {
		t.Fatalf("unexpected journal %+v", got)
	}
}

func TestOpen(t *testing.T) {
	store, closeFn, err := Open("memory", "")
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
	_ = closeFn()

	store, closeFn, err = Open("sqlite", "file:journal_open_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer closeFn()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}

	if _, _, err := Open("postgres", "x"); wrerrors.CodeOf(err) != wrerrors.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
}
