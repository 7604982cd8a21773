package scenario

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rtai-hli/gtc-hackathon/pkg/agent"
	"github.com/rtai-hli/gtc-hackathon/pkg/commander"
	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/tools"
)

func TestLatencySpikeFixture(t *testing.T) {
	s := LatencySpike()
	if s.Incident.ID != "INC-2024-1029-001" || s.Incident.Service != "user-api" {
		t.Fatalf("unexpected incident %+v", s.Incident)
	}
	want := time.Date(2024, 10, 29, 14, 30, 0, 0, time.UTC)
	if !s.Incident.StartedAt.Equal(want) {
		t.Fatalf("unexpected started_at %v", s.Incident.StartedAt)
	}
	if len(s.Incident.AffectedEndpoints) != 3 {
		t.Fatalf("expected 3 endpoints, got %v", s.Incident.AffectedEndpoints)
	}
	if got := s.Metrics["user-api"]["database_connections"]; len(got) != 5 || got[3].Value != 100 {
		t.Fatalf("unexpected connection series %+v", got)
	}
	if len(s.Logs) != 5 || len(s.GitHistory) != 2 {
		t.Fatalf("unexpected fixture sizes: %d logs, %d commits", len(s.Logs), len(s.GitHistory))
	}
	if !strings.Contains(s.GitHistory[0].Diff, "pool_size: 50") {
		t.Fatalf("expected diff to survive, got %q", s.GitHistory[0].Diff)
	}
	if commander.Classify(s.Incident.Symptom) != commander.BucketLatency {
		t.Fatal("expected the fixture to classify as latency")
	}
}

func TestNamedUnknown(t *testing.T) {
	_, err := Named("disk_full")
	if errors.CodeOf(err) != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if names := Builtin(); len(names) == 0 || names[0] != "latency_spike" {
		t.Fatalf("unexpected builtin scenarios %v", names)
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
	}{
		{"yaml incident only", "inc.yaml", "symptom: HTTP 500 errors\nseverity: critical\nservice: checkout\n", false},
		{"json incident only", "inc.json", `{"symptom":"HTTP 500 errors","severity":"critical","service":"checkout"}`, false},
		{"json wrapped", "wrapped.json", `{"name":"outage","incident":{"symptom":"HTTP 500 errors","severity":"critical","service":"checkout"}}`, false},
		{"missing service", "bad.yaml", "symptom: x\nseverity: low\n", true},
		{"malformed json", "broken.json", `{"symptom":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			s, err := Load(path)
			if tt.wantErr {
				if errors.CodeOf(err) != errors.CodeInvalidInput {
					t.Fatalf("expected invalid input, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if s.Incident.Service != "checkout" || s.Name == "" {
				t.Fatalf("unexpected scenario %+v", s)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	s, err := Resolve("")
	if err != nil || s.Name != DefaultName {
		t.Fatalf("expected default scenario, got %v, %v", s, err)
	}
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("symptom: slow\nseverity: low\nservice: search\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err = Resolve(path)
	if err != nil || s.Name != "custom" {
		t.Fatalf("expected file scenario, got %+v, %v", s, err)
	}
}

func TestMatches(t *testing.T) {
	s := LatencySpike()
	if !s.Matches(commander.FallbackLatencyCause) {
		t.Fatal("expected fallback narrative to match the expected root cause")
	}
	if s.Matches("Unknown - requires deeper investigation") {
		t.Fatal("unexpected match")
	}
}

func TestQueryMetrics(t *testing.T) {
	s := LatencySpike()
	ctx := context.Background()

	all, err := s.QueryMetrics(ctx, nil)
	if err != nil {
		t.Fatalf("QueryMetrics: %v", err)
	}
	if len(all.(map[string][]Sample)) != 4 {
		t.Fatalf("expected 4 series, got %v", all)
	}
	one, err := s.QueryMetrics(ctx, map[string]any{"service": "user-api", "metric": "latency_p99"})
	if err != nil {
		t.Fatalf("QueryMetrics: %v", err)
	}
	if got := one.(map[string][]Sample)["latency_p99"]; got[2].Value != 2800 {
		t.Fatalf("unexpected series %v", got)
	}
	if _, err := s.QueryMetrics(ctx, map[string]any{"service": "billing"}); errors.CodeOf(err) != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.QueryMetrics(ctx, map[string]any{"metric": "cpu"}); errors.CodeOf(err) != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSearchLogs(t *testing.T) {
	s := LatencySpike()
	tests := []struct {
		args map[string]any
		want int
	}{
		{nil, 5},
		{map[string]any{"level": "error"}, 3},
		{map[string]any{"query": "POOL"}, 3},
		{map[string]any{"level": "ERROR", "query": "timeout"}, 2},
	}
	for _, tt := range tests {
		got, err := s.SearchLogs(context.Background(), tt.args)
		if err != nil {
			t.Fatalf("SearchLogs: %v", err)
		}
		if n := len(got.([]LogEntry)); n != tt.want {
			t.Fatalf("args %v: expected %d entries, got %d", tt.args, tt.want, n)
		}
	}
}

func TestHistory(t *testing.T) {
	s := LatencySpike()
	got, err := s.History(context.Background(), map[string]any{"limit": float64(1)})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	commits := got.([]Commit)
	if len(commits) != 1 || commits[0].Commit != "a3f89d2" {
		t.Fatalf("unexpected commits %+v", commits)
	}
	if _, err := s.History(context.Background(), map[string]any{"limit": "two"}); errors.CodeOf(err) != errors.CodeInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCommanderGathersScenarioEvidence(t *testing.T) {
	s := LatencySpike()
	var events []core.Event
	cmd, err := commander.New(
		commander.WithPauses(0, 0),
		commander.WithEvidenceTools(EvidenceTools()),
		commander.WithAgentOptions(agentOptions(&events)...),
	)
	if err != nil {
		t.Fatalf("commander.New: %v", err)
	}
	if err := s.Register(cmd.Tools()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := cmd.Run(context.Background(), s.Incident)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !s.Matches(res.RootCause) {
		t.Fatalf("expected fallback to match the fixture, got %q", res.RootCause)
	}
	observed := map[string]bool{}
	for _, ev := range events {
		if ev.Type == core.EventObservation {
			if tool, ok := ev.Metadata()[core.KeyTool].(string); ok {
				observed[tool] = true
			}
		}
	}
	for _, name := range []string{ToolQueryMetrics, ToolSearchLogs, ToolGitHistory} {
		if !observed[name] {
			t.Fatalf("expected an observation from %s, got %v", name, observed)
		}
	}
	for _, task := range cmd.Snapshot().Tasks {
		if task.Status != core.TaskStatusCompleted || task.Evidence == "" {
			t.Fatalf("expected completed task with evidence, got %+v", task)
		}
	}
}

var _ tools.Func = (&Scenario{}).QueryMetrics

func agentOptions(events *[]core.Event) []agent.Option {
	return []agent.Option{
		agent.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		agent.WithListeners(core.ListenerFunc(func(ctx context.Context, ev core.Event) error {
			*events = append(*events, ev)
			return nil
		})),
	}
}
