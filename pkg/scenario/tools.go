package scenario

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rtai-hli/gtc-hackathon/pkg/commander"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/tools"
)

// Tool names served by a scenario.
const (
	ToolQueryMetrics = "query_metrics"
	ToolSearchLogs   = "search_logs"
	ToolGitHistory   = "git_history"
)

// EvidenceTools maps investigation areas to the scenario tool that covers them.
func EvidenceTools() map[string]string {
	return map[string]string{
		commander.AreaMetrics:       ToolQueryMetrics,
		commander.AreaLogs:          ToolSearchLogs,
		commander.AreaRecentChanges: ToolGitHistory,
		commander.AreaGitHistory:    ToolGitHistory,
	}
}

// Param describes one optional tool argument.
type Param struct {
	Name        string
	Description string
	Number      bool
}

// ToolSpec describes a scenario tool for registries that need metadata.
type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
	Func        tools.Func
}

// Tools returns the scenario's investigation tools.
func (s *Scenario) Tools() []ToolSpec {
	return []ToolSpec{
		{
			Name:        ToolQueryMetrics,
			Description: "Query time-series metrics for a service",
			Params: []Param{
				{Name: "service", Description: "service name, defaults to the incident's service"},
				{Name: "metric", Description: "metric name such as latency_p99; all metrics when empty"},
			},
			Func: s.QueryMetrics,
		},
		{
			Name:        ToolSearchLogs,
			Description: "Search application logs by level and substring",
			Params: []Param{
				{Name: "level", Description: "log level filter such as ERROR"},
				{Name: "query", Description: "case-insensitive substring to match in the message"},
			},
			Func: s.SearchLogs,
		},
		{
			Name:        ToolGitHistory,
			Description: "List recent commits, newest first",
			Params: []Param{
				{Name: "limit", Description: "maximum number of commits", Number: true},
			},
			Func: s.History,
		},
	}
}

// Register adds the scenario tools to a registry.
func (s *Scenario) Register(r *tools.Registry) error {
	for _, spec := range s.Tools() {
		if err := r.Register(spec.Name, spec.Func); err != nil {
			return err
		}
	}
	return nil
}

// QueryMetrics returns the series for a service, or one named metric.
func (s *Scenario) QueryMetrics(_ context.Context, args map[string]any) (any, error) {
	service := stringArg(args, "service")
	if service == "" {
		service = s.Incident.Service
	}
	series, ok := s.Metrics[service]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "no metrics for service", nil).
			WithContext("service", service)
	}
	metric := stringArg(args, "metric")
	if metric == "" {
		return series, nil
	}
	samples, ok := series[metric]
	if !ok {
		names := make([]string, 0, len(series))
		for name := range series {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, errors.New(errors.CodeNotFound, "unknown metric", nil).
			WithContext("metric", metric).
			WithContext("available", names)
	}
	return map[string][]Sample{metric: samples}, nil
}

// SearchLogs returns log entries filtered by level and message substring.
func (s *Scenario) SearchLogs(_ context.Context, args map[string]any) (any, error) {
	level := strings.ToUpper(stringArg(args, "level"))
	query := strings.ToLower(stringArg(args, "query"))
	out := make([]LogEntry, 0, len(s.Logs))
	for _, entry := range s.Logs {
		if level != "" && !strings.EqualFold(entry.Level, level) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(entry.Message), query) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// History returns commits in fixture order, optionally capped by limit.
func (s *Scenario) History(_ context.Context, args map[string]any) (any, error) {
	limit, err := intArg(args, "limit")
	if err != nil {
		return nil, err
	}
	commits := append([]Commit(nil), s.GitHistory...)
	if limit > 0 && limit < len(commits) {
		commits = commits[:limit]
	}
	return commits, nil
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func intArg(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, errors.New(errors.CodeInvalidInput, fmt.Sprintf("argument %q must be a number", key), nil).
		WithContext("value", v)
}
