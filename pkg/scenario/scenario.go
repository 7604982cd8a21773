// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

// Package scenario holds incident fixtures and the simulated investigation
// data behind the demo tools.
package scenario

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rtai-hli/gtc-hackathon/pkg/commander"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

//go:embed fixtures/*.yaml
var fixtures embed.FS

// DefaultName is the scenario used when none is requested.
const DefaultName = "latency_spike"

// Sample is one point of a metric series.
type Sample struct {
	Timestamp string  `json:"timestamp" yaml:"timestamp"`
	Value     float64 `json:"value" yaml:"value"`
}

// LogEntry is one application log line.
type LogEntry struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Level     string `json:"level" yaml:"level"`
	Message   string `json:"message" yaml:"message"`
}

// Commit is one entry of the service's git history.
type Commit struct {
	Commit       string   `json:"commit" yaml:"commit"`
	Timestamp    string   `json:"timestamp" yaml:"timestamp"`
	Author       string   `json:"author" yaml:"author"`
	Message      string   `json:"message" yaml:"message"`
	FilesChanged []string `json:"files_changed" yaml:"files_changed"`
	Diff         string   `json:"diff,omitempty" yaml:"diff,omitempty"`
}

// RootCause is the expected answer, used to validate investigations.
type RootCause struct {
	Description         string   `json:"description" yaml:"description"`
	Trigger             string   `json:"trigger" yaml:"trigger"`
	ContributingFactors []string `json:"contributing_factors" yaml:"contributing_factors"`
	Solution            string   `json:"solution" yaml:"solution"`
}

// Scenario is an incident plus the data the investigation tools serve.
type Scenario struct {
	Name       string                         `json:"name" yaml:"name"`
	Incident   commander.Incident             `json:"incident" yaml:"incident"`
	Metrics    map[string]map[string][]Sample `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Logs       []LogEntry                     `json:"logs,omitempty" yaml:"logs,omitempty"`
	GitHistory []Commit                       `json:"git_history,omitempty" yaml:"git_history,omitempty"`
	RootCause  *RootCause                     `json:"root_cause,omitempty" yaml:"root_cause,omitempty"`
}

// Builtin returns the names of the embedded scenarios.
func Builtin() []string {
	entries, err := fixtures.ReadDir("fixtures")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Named returns an embedded scenario.
func Named(name string) (*Scenario, error) {
	if name == "" {
		name = DefaultName
	}
	data, err := fixtures.ReadFile("fixtures/" + name + ".yaml")
	if err != nil {
		return nil, errors.New(errors.CodeNotFound, "unknown scenario", err).
			WithContext("scenario", name).
			WithContext("available", Builtin())
	}
	return Parse(data, "yaml")
}

// LatencySpike returns the pre-seeded latency spike scenario.
func LatencySpike() *Scenario {
	s, err := Named("latency_spike")
	if err != nil {
		panic(fmt.Sprintf("embedded latency_spike scenario: %v", err))
	}
	return s
}

// Resolve treats ref as a file path when it names an existing file and as an
// embedded scenario name otherwise.
func Resolve(ref string) (*Scenario, error) {
	if ref != "" {
		if _, err := os.Stat(ref); err == nil {
			return Load(ref)
		}
	}
	return Named(ref)
}

// Load reads a scenario from a YAML or JSON file. A file holding only the
// incident fields is accepted as an incident without tool data.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeNotFound, "read scenario file", err).WithContext("path", path)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, err
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes a scenario document in the given format ("yaml" or "json").
func Parse(data []byte, format string) (*Scenario, error) {
	var probe map[string]any
	var s Scenario
	switch format {
	case "json":
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, invalid(err)
		}
		if _, wrapped := probe["incident"]; wrapped {
			if err := json.Unmarshal(data, &s); err != nil {
				return nil, invalid(err)
			}
		} else if err := json.Unmarshal(data, &s.Incident); err != nil {
			return nil, invalid(err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &probe); err != nil {
			return nil, invalid(err)
		}
		var target any = &s
		if _, wrapped := probe["incident"]; !wrapped {
			target = &s.Incident
		}
		if err := yaml.Unmarshal(data, target); err != nil {
			return nil, invalid(err)
		}
	default:
		return nil, errors.New(errors.CodeInvalidInput, "unsupported scenario format", nil).
			WithContext("format", format)
	}
	if err := s.Incident.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func invalid(err error) error {
	return errors.New(errors.CodeInvalidInput, "decode scenario", err)
}

// Matches reports whether rootCause mentions the scenario's expected cause.
// It compares the leading clause, e.g. "Database connection pool exhaustion".
func (s *Scenario) Matches(rootCause string) bool {
	if s.RootCause == nil {
		return false
	}
	want := s.RootCause.Description
	if i := strings.Index(want, " due to "); i > 0 {
		want = want[:i]
	}
	return strings.Contains(strings.ToLower(rootCause), strings.ToLower(want))
}
