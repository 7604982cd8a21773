package commander

import (
	"fmt"
	"strings"
	"time"

	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

// Incident is the context an investigation starts from. Symptom, Severity
// and Service are required.
type Incident struct {
	ID                string    `json:"id,omitempty" yaml:"id,omitempty"`
	Symptom           string    `json:"symptom" yaml:"symptom"`
	Severity          string    `json:"severity" yaml:"severity"`
	Service           string    `json:"service" yaml:"service"`
	Impact            string    `json:"impact,omitempty" yaml:"impact,omitempty"`
	StartedAt         time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	AffectedEndpoints []string  `json:"affected_endpoints,omitempty" yaml:"affected_endpoints,omitempty"`
}

// Validate checks the required fields.
func (i Incident) Validate() error {
	var missing []string
	if strings.TrimSpace(i.Symptom) == "" {
		missing = append(missing, "symptom")
	}
	if strings.TrimSpace(i.Severity) == "" {
		missing = append(missing, "severity")
	}
	if strings.TrimSpace(i.Service) == "" {
		missing = append(missing, "service")
	}
	if len(missing) > 0 {
		return errors.New(errors.CodeInvalidInput, "incident is missing required fields", nil).
			WithContext("missing", missing)
	}
	return nil
}

// startedAtLayouts are tried in order when reading started_at.
var startedAtLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04"}

// IncidentFromMap reads an incident from a loosely typed context. A nested
// "incident" mapping is unwrapped. Only symptom, severity and service can fail
// the call; optional fields that are not strings or do not parse are skipped,
// and unknown keys are ignored.
func IncidentFromMap(m map[string]any) (Incident, error) {
	if nested, ok := m["incident"].(map[string]any); ok {
		m = nested
	}
	var inc Incident
	var err error
	required := func(key string) string {
		v, ok := m[key]
		if !ok || v == nil || err != nil {
			return ""
		}
		s, isString := v.(string)
		if !isString {
			err = errors.New(errors.CodeInvalidInput, fmt.Sprintf("incident field %q must be a string", key), nil).
				WithContext("field", key)
		}
		return s
	}
	optional := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	inc.Symptom = required("symptom")
	inc.Severity = required("severity")
	inc.Service = required("service")
	if err != nil {
		return Incident{}, err
	}
	inc.ID = optional("id")
	inc.Impact = optional("impact")
	if started := optional("started_at"); started != "" {
		for _, layout := range startedAtLayouts {
			if ts, perr := time.Parse(layout, started); perr == nil {
				inc.StartedAt = ts
				break
			}
		}
	}
	switch eps := m["affected_endpoints"].(type) {
	case []any:
		for _, e := range eps {
			if s, ok := e.(string); ok {
				inc.AffectedEndpoints = append(inc.AffectedEndpoints, s)
			}
		}
	case []string:
		inc.AffectedEndpoints = append(inc.AffectedEndpoints, eps...)
	}
	return inc, inc.Validate()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
