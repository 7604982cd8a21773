// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"encoding/json"
	"fmt"
	"math"
)

// Payload is the typed metadata of an event. There is exactly one variant per
// EventType; Metadata projects it onto the open wire mapping.
type Payload interface {
	Kind() EventType
	Metadata() map[string]any
	isPayload()
}

// Metadata keys shared by the payload variants.
const (
	KeyLLMReasoning  = "llm_reasoning"
	KeySeverity      = "severity"
	KeyConfidence    = "confidence"
	KeyPattern       = "pattern"
	KeyTool          = "tool"
	KeyArgs          = "args"
	KeyTask          = "task"
	KeyResultSummary = "result_summary"
	KeyTheoryCount   = "theory_count"
	KeySource        = "source"
	KeyError         = "error"
	KeyTheoryID      = "theory_id"
	KeyEvidence      = "evidence"
	KeyPriority      = "priority"
	KeyRootCause     = "root_cause"
)

// ThinkingPayload accompanies THINKING events.
type ThinkingPayload struct {
	// LLMReasoning marks chunks streamed from a reasoning backend.
	LLMReasoning bool
	Severity     string
	Confidence   *float64
	Pattern      string
	Extra        map[string]any
}

// ActionPayload accompanies ACTION events: a tool call or a delegation.
type ActionPayload struct {
	Tool       string
	Args       map[string]any
	Delegation *Delegation
	Extra      map[string]any
}

// Delegation is the task summary carried by a delegation ACTION. Extra holds
// task keys beyond the four it models.
type Delegation struct {
	TaskID     string
	Area       string
	AssignedTo string
	Status     TaskStatus
	Extra      map[string]any
}

// ObservationPayload accompanies OBSERVATION events.
type ObservationPayload struct {
	Tool          string
	ResultSummary string
	TheoryCount   *int
	Source        string
	Error         string
	Extra         map[string]any
}

// TheoryPayload accompanies THEORY events.
type TheoryPayload struct {
	TheoryID   string
	Confidence *float64
	Evidence   []string
	Extra      map[string]any
}

// ChallengePayload accompanies CHALLENGE events.
type ChallengePayload struct {
	TheoryID string
	Extra    map[string]any
}

// DecisionPayload accompanies DECISION events.
type DecisionPayload struct {
	Priority   []string
	Confidence *float64
	RootCause  string
	Extra      map[string]any
}

func (ThinkingPayload) Kind() EventType    { return EventThinking }
func (ActionPayload) Kind() EventType      { return EventAction }
func (ObservationPayload) Kind() EventType { return EventObservation }
func (TheoryPayload) Kind() EventType      { return EventTheory }
func (ChallengePayload) Kind() EventType   { return EventChallenge }
func (DecisionPayload) Kind() EventType    { return EventDecision }

func (ThinkingPayload) isPayload()    {}
func (ActionPayload) isPayload()      {}
func (ObservationPayload) isPayload() {}
func (TheoryPayload) isPayload()      {}
func (ChallengePayload) isPayload()   {}
func (DecisionPayload) isPayload()    {}

// Float returns a pointer to v for optional payload fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v for optional payload fields.
func Int(v int) *int { return &v }

// Metadata implements Payload.
func (p ThinkingPayload) Metadata() map[string]any {
	m := withExtra(p.Extra)
	if p.LLMReasoning {
		m[KeyLLMReasoning] = true
	}
	if p.Severity != "" {
		m[KeySeverity] = p.Severity
	}
	if p.Confidence != nil {
		m[KeyConfidence] = *p.Confidence
	}
	if p.Pattern != "" {
		m[KeyPattern] = p.Pattern
	}
	return m
}

// Metadata implements Payload.
func (p ActionPayload) Metadata() map[string]any {
	m := withExtra(p.Extra)
	if p.Tool != "" {
		m[KeyTool] = p.Tool
	}
	if p.Args != nil {
		m[KeyArgs] = cloneMap(p.Args)
	}
	if p.Delegation != nil {
		task := withExtra(p.Delegation.Extra)
		for k, v := range map[string]string{
			"id":          p.Delegation.TaskID,
			"area":        p.Delegation.Area,
			"assigned_to": p.Delegation.AssignedTo,
			"status":      string(p.Delegation.Status),
		} {
			if v != "" {
				task[k] = v
			}
		}
		m[KeyTask] = task
	}
	return m
}

// Metadata implements Payload.
func (p ObservationPayload) Metadata() map[string]any {
	m := withExtra(p.Extra)
	if p.Tool != "" {
		m[KeyTool] = p.Tool
	}
	if p.ResultSummary != "" {
		m[KeyResultSummary] = p.ResultSummary
	}
	if p.TheoryCount != nil {
		m[KeyTheoryCount] = *p.TheoryCount
	}
	if p.Source != "" {
		m[KeySource] = p.Source
	}
	if p.Error != "" {
		m[KeyError] = p.Error
	}
	return m
}

// Metadata implements Payload.
func (p TheoryPayload) Metadata() map[string]any {
	m := withExtra(p.Extra)
	if p.TheoryID != "" {
		m[KeyTheoryID] = p.TheoryID
	}
	if p.Confidence != nil {
		m[KeyConfidence] = *p.Confidence
	}
	if len(p.Evidence) > 0 {
		m[KeyEvidence] = append([]string(nil), p.Evidence...)
	}
	return m
}

// Metadata implements Payload.
func (p ChallengePayload) Metadata() map[string]any {
	m := withExtra(p.Extra)
	if p.TheoryID != "" {
		m[KeyTheoryID] = p.TheoryID
	}
	return m
}

// Metadata implements Payload.
func (p DecisionPayload) Metadata() map[string]any {
	m := withExtra(p.Extra)
	if p.Priority != nil {
		m[KeyPriority] = append([]string(nil), p.Priority...)
	}
	if p.Confidence != nil {
		m[KeyConfidence] = *p.Confidence
	}
	if p.RootCause != "" {
		m[KeyRootCause] = p.RootCause
	}
	return m
}

// DecodePayload parses open metadata into the variant for t. Keys the variant
// does not model, and modeled keys whose typed value would not project back
// (false, "", empty lists, nil), are kept in Extra so the projection stays
// lossless.
func DecodePayload(t EventType, md map[string]any) (Payload, error) {
	d := decoder{rest: cloneMap(md)}
	var p Payload
	switch t {
	case EventThinking:
		p = ThinkingPayload{
			LLMReasoning: d.bool(KeyLLMReasoning),
			Severity:     d.string(KeySeverity),
			Confidence:   d.optFloat(KeyConfidence),
			Pattern:      d.string(KeyPattern),
		}
	case EventAction:
		p = ActionPayload{
			Tool:       d.string(KeyTool),
			Args:       d.mapping(KeyArgs),
			Delegation: d.delegation(KeyTask),
		}
	case EventObservation:
		p = ObservationPayload{
			Tool:          d.string(KeyTool),
			ResultSummary: d.string(KeyResultSummary),
			TheoryCount:   d.optInt(KeyTheoryCount),
			Source:        d.string(KeySource),
			Error:         d.string(KeyError),
		}
	case EventTheory:
		p = TheoryPayload{
			TheoryID:   d.string(KeyTheoryID),
			Confidence: d.optFloat(KeyConfidence),
			Evidence:   d.strings(KeyEvidence),
		}
	case EventChallenge:
		p = ChallengePayload{TheoryID: d.string(KeyTheoryID)}
	case EventDecision:
		p = DecisionPayload{
			Priority:   d.strings(KeyPriority),
			Confidence: d.optFloat(KeyConfidence),
			RootCause:  d.string(KeyRootCause),
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if d.err != nil {
		return nil, fmt.Errorf("%s metadata: %w", t, d.err)
	}
	projected := p.Metadata()
	for k, v := range md {
		if _, kept := d.rest[k]; kept {
			continue
		}
		if _, ok := projected[k]; !ok {
			d.rest[k] = v
		}
	}
	return attachExtra(p, d.rest), nil
}

func attachExtra(p Payload, rest map[string]any) Payload {
	if len(rest) == 0 {
		return p
	}
	switch v := p.(type) {
	case ThinkingPayload:
		v.Extra = rest
		return v
	case ActionPayload:
		v.Extra = rest
		return v
	case ObservationPayload:
		v.Extra = rest
		return v
	case TheoryPayload:
		v.Extra = rest
		return v
	case ChallengePayload:
		v.Extra = rest
		return v
	case DecisionPayload:
		v.Extra = rest
		return v
	}
	return p
}

// decoder consumes keys from rest, remembering the first type mismatch.
type decoder struct {
	rest map[string]any
	err  error
}

func (d *decoder) take(key string) (any, bool) {
	v, ok := d.rest[key]
	if ok {
		delete(d.rest, key)
	}
	return v, ok
}

func (d *decoder) fail(key string, v any) {
	if d.err == nil {
		d.err = fmt.Errorf("key %q has unexpected type %T", key, v)
	}
}

func (d *decoder) string(key string) string {
	v, ok := d.take(key)
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(key, v)
	}
	return s
}

func (d *decoder) bool(key string) bool {
	v, ok := d.take(key)
	if !ok || v == nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		d.fail(key, v)
	}
	return b
}

func (d *decoder) optFloat(key string) *float64 {
	v, ok := d.take(key)
	if !ok || v == nil {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		d.fail(key, v)
		return nil
	}
	return &f
}

func (d *decoder) optInt(key string) *int {
	v, ok := d.take(key)
	if !ok || v == nil {
		return nil
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		d.fail(key, v)
		return nil
	}
	n := int(f)
	return &n
}

func (d *decoder) strings(key string) []string {
	v, ok := d.take(key)
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				d.fail(key, item)
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		d.fail(key, v)
		return nil
	}
}

func (d *decoder) mapping(key string) map[string]any {
	v, ok := d.take(key)
	if !ok || v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		d.fail(key, v)
		return nil
	}
	return cloneMap(m)
}

func (d *decoder) delegation(key string) *Delegation {
	m := d.mapping(key)
	if m == nil {
		return nil
	}
	// Known keys are lifted only when they hold a non-empty string; anything
	// else stays in Extra untouched.
	str := func(k string) string {
		s, ok := m[k].(string)
		if !ok || s == "" {
			return ""
		}
		delete(m, k)
		return s
	}
	dl := &Delegation{
		TaskID:     str("id"),
		Area:       str("area"),
		AssignedTo: str("assigned_to"),
		Status:     TaskStatus(str("status")),
	}
	if len(m) > 0 {
		dl.Extra = m
	}
	return dl
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func withExtra(extra map[string]any) map[string]any {
	m := make(map[string]any, len(extra)+4)
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
