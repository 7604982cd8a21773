// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	wrerrors "github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

// Listener receives every event an Emitter produces. Implementations must not
// mutate the event; a returned error is logged and does not stop delivery.
type Listener interface {
	OnEvent(ctx context.Context, ev Event) error
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(ctx context.Context, ev Event) error

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(ctx context.Context, ev Event) error { return f(ctx, ev) }

// ListenerErrorHook is called once per failed listener invocation.
type ListenerErrorHook func(ctx context.Context, ev Event, index int, err error)

// Emitter creates events for one agent and fans them out to its listeners.
type Emitter struct {
	agent     string
	logger    *slog.Logger
	now       func() time.Time
	onFailure ListenerErrorHook

	mu        sync.Mutex
	listeners []Listener
	last      time.Time
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithListeners registers listeners at construction, in order.
func WithListeners(ls ...Listener) EmitterOption {
	return func(e *Emitter) {
		e.listeners = append(e.listeners, ls...)
	}
}

// WithLogger sets the logger used to report listener failures.
func WithLogger(logger *slog.Logger) EmitterOption {
	return func(e *Emitter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EmitterOption {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithListenerErrorHook installs a callback for listener failures.
func WithListenerErrorHook(hook ListenerErrorHook) EmitterOption {
	return func(e *Emitter) {
		e.onFailure = hook
	}
}

// NewEmitter creates an emitter narrating on behalf of agent.
func NewEmitter(agent string, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		agent:  agent,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Agent returns the name events are attributed to.
func (e *Emitter) Agent() string { return e.agent }

// AddListener appends a listener. Registration order is notification order.
func (e *Emitter) AddListener(l Listener) {
	if l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	next := make([]Listener, len(e.listeners), len(e.listeners)+1)
	copy(next, e.listeners)
	e.listeners = append(next, l)
}

// Listeners returns a snapshot of the registered listeners.
func (e *Emitter) Listeners() []Listener {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Listener(nil), e.listeners...)
}

// Emit builds an event from payload and delivers it synchronously to every
// listener before returning it.
func (e *Emitter) Emit(ctx context.Context, content string, payload Payload) Event {
	if ctx == nil {
		ctx = context.Background()
	}
	e.mu.Lock()
	ts := e.now()
	if ts.Before(e.last) {
		ts = e.last
	}
	e.last = ts
	listeners := e.listeners
	e.mu.Unlock()

	ev := Event{
		Agent:     e.agent,
		Type:      payload.Kind(),
		Content:   content,
		Payload:   payload,
		Timestamp: ts,
	}
	if id, ok := RunID(ctx); ok {
		ev.RunID = id
	}
	for i, l := range listeners {
		if err := e.deliver(ctx, l, ev); err != nil {
			e.logger.WarnContext(ctx, "event listener failed",
				"agent", ev.Agent,
				"event_type", string(ev.Type),
				"listener", i,
				"error", err,
			)
			if e.onFailure != nil {
				e.onFailure(ctx, ev, i, err)
			}
		}
	}
	return ev
}

func (e *Emitter) deliver(ctx context.Context, l Listener, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return l.OnEvent(ctx, ev)
}

// Think emits a THINKING event.
func (e *Emitter) Think(ctx context.Context, content string, p ThinkingPayload) Event {
	return e.Emit(ctx, content, p)
}

// Act emits an ACTION event.
func (e *Emitter) Act(ctx context.Context, content string, p ActionPayload) Event {
	return e.Emit(ctx, content, p)
}

// Observe emits an OBSERVATION event.
func (e *Emitter) Observe(ctx context.Context, content string, p ObservationPayload) Event {
	return e.Emit(ctx, content, p)
}

// Decide emits a DECISION event.
func (e *Emitter) Decide(ctx context.Context, content string, p DecisionPayload) Event {
	return e.Emit(ctx, content, p)
}

// ProposeTheory emits a THEORY event for a new hypothesis attributed to this agent.
// Confidence outside [0, 1] fails with ErrInvalidConfidence and emits nothing.
func (e *Emitter) ProposeTheory(ctx context.Context, text string, confidence float64, evidence ...string) (*Theory, Event, error) {
	theory, err := NewTheory(text, confidence, e.agent, evidence...)
	if err != nil {
		return nil, Event{}, err
	}
	ev := e.Emit(ctx, text, TheoryPayload{
		TheoryID:   theory.ID,
		Confidence: Float(confidence),
		Evidence:   theory.Evidence,
	})
	return theory, ev, nil
}

// ChallengeTheory emits a CHALLENGE event against theoryID.
func (e *Emitter) ChallengeTheory(ctx context.Context, theoryID, text string) (Event, error) {
	if strings.TrimSpace(theoryID) == "" {
		return Event{}, wrerrors.New(wrerrors.CodeInvalidInput, "challenge requires a theory id", nil)
	}
	if strings.TrimSpace(text) == "" {
		return Event{}, wrerrors.New(wrerrors.CodeInvalidInput, "challenge requires text", nil).
			WithContext("theory_id", theoryID)
	}
	return e.Emit(ctx, text, ChallengePayload{TheoryID: theoryID}), nil
}
