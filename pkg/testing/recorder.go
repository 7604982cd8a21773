// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"context"
	"sync"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
)

// Recorder is a core.Listener that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []core.Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// OnEvent implements core.Listener.
func (r *Recorder) OnEvent(ctx context.Context, ev core.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Event(nil), r.events...)
}

// EventTypes returns the recorded event types in order.
func (r *Recorder) EventTypes() []core.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]core.EventType, len(r.events))
	for i, ev := range r.events {
		types[i] = ev.Type
	}
	return types
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t core.EventType) []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Where returns the recorded events matching fn.
func (r *Recorder) Where(fn func(core.Event) bool) []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Event
	for _, ev := range r.events {
		if fn(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// HasEvent reports whether an event of type t was recorded.
func (r *Recorder) HasEvent(t core.EventType) bool {
	return len(r.OfType(t)) > 0
}

// Count returns the number of recorded events.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset clears the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var _ core.Listener = (*Recorder)(nil)
