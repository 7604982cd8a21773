// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

// Package core holds the observable-agent vocabulary shared by every war room
// component: events, listeners, theories, and investigation tasks.
package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies the kind of reasoning step an agent narrates.
type EventType string

const (
	EventThinking    EventType = "thinking"
	EventAction      EventType = "action"
	EventObservation EventType = "observation"
	EventTheory      EventType = "theory"
	EventChallenge   EventType = "challenge"
	EventDecision    EventType = "decision"
)

// EventTypes lists the closed vocabulary in declaration order.
var EventTypes = []EventType{
	EventThinking,
	EventAction,
	EventObservation,
	EventTheory,
	EventChallenge,
	EventDecision,
}

// Valid reports whether t belongs to the vocabulary.
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseEventType converts a wire name into an EventType.
func ParseEventType(name string) (EventType, error) {
	t := EventType(name)
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type %q", name)
	}
	return t, nil
}

// Icon returns the glyph broadcasters attach to an event type.
func Icon(t EventType) string {
	switch t {
	case EventThinking:
		return "💭"
	case EventAction:
		return "⚡"
	case EventObservation:
		return "👁️"
	case EventTheory:
		return "🔬"
	case EventChallenge:
		return "⚔️"
	case EventDecision:
		return "✅"
	default:
		return "💬"
	}
}

// TimestampLayout is the wire layout of Event timestamps: ISO-8601 local time
// with microseconds and no zone designator.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Event is an immutable record of one reasoning step. Listeners receive it by
// value and must treat Payload as read-only.
type Event struct {
	Agent     string
	Type      EventType
	Content   string
	Payload   Payload
	Timestamp time.Time
	// RunID is attached from the emitting context; it is not part of the wire record.
	RunID string
}

// Metadata projects the typed payload into the open key-value form.
func (e Event) Metadata() map[string]any {
	if e.Payload == nil {
		return map[string]any{}
	}
	return e.Payload.Metadata()
}

// String renders the event the way log lines show it.
func (e Event) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Agent, e.Type, e.Content)
}

// Record is the wire form of an Event: {agent, type, content, metadata, timestamp}.
type Record struct {
	Agent     string         `json:"agent"`
	Type      string         `json:"type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp string         `json:"timestamp"`
}

// ToRecord converts the event to its wire record.
func (e Event) ToRecord() Record {
	return Record{
		Agent:     e.Agent,
		Type:      string(e.Type),
		Content:   e.Content,
		Metadata:  e.Metadata(),
		Timestamp: e.Timestamp.Format(TimestampLayout),
	}
}

// ToMap converts the event to a plain key-value record.
func (e Event) ToMap() map[string]any {
	r := e.ToRecord()
	return map[string]any{
		"agent":     r.Agent,
		"type":      r.Type,
		"content":   r.Content,
		"metadata":  r.Metadata,
		"timestamp": r.Timestamp,
	}
}

// FromRecord rebuilds an Event from its wire record.
func FromRecord(r Record) (Event, error) {
	t, err := ParseEventType(r.Type)
	if err != nil {
		return Event{}, err
	}
	payload, err := DecodePayload(t, r.Metadata)
	if err != nil {
		return Event{}, err
	}
	ts, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Agent:     r.Agent,
		Type:      t,
		Content:   r.Content,
		Payload:   payload,
		Timestamp: ts,
	}, nil
}

// FromMap rebuilds an Event from a plain key-value record.
func FromMap(m map[string]any) (Event, error) {
	r := Record{}
	var ok bool
	if r.Agent, ok = m["agent"].(string); !ok {
		return Event{}, fmt.Errorf("event record: agent must be a string")
	}
	if r.Type, ok = m["type"].(string); !ok {
		return Event{}, fmt.Errorf("event record: type must be a string")
	}
	if r.Content, ok = m["content"].(string); !ok {
		return Event{}, fmt.Errorf("event record: content must be a string")
	}
	if raw, present := m["metadata"]; present && raw != nil {
		if r.Metadata, ok = raw.(map[string]any); !ok {
			return Event{}, fmt.Errorf("event record: metadata must be a mapping")
		}
	}
	if ts, present := m["timestamp"]; present {
		if r.Timestamp, ok = ts.(string); !ok {
			return Event{}, fmt.Errorf("event record: timestamp must be a string")
		}
	}
	return FromRecord(r)
}

// MarshalJSON encodes the wire record.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToRecord())
}

// UnmarshalJSON decodes a wire record.
func (e *Event) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	ev, err := FromRecord(r)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}

// ParseTimestamp accepts the wire layout, its second-precision variant, and RFC 3339.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{TimestampLayout, "2006-01-02T15:04:05", time.RFC3339Nano} {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("event record: invalid timestamp %q", value)
}
