// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/llm"
)

// Assertions provides assertion helpers that report through t.
type Assertions struct {
	t      testing.TB
	failed bool
}

// NewAssertions creates a new assertions helper.
func NewAssertions(t testing.TB) *Assertions {
	return &Assertions{t: t}
}

// Failed returns true if any assertion has failed.
func (a *Assertions) Failed() bool {
	return a.failed
}

func (a *Assertions) fail(format string, args ...any) {
	a.t.Helper()
	a.t.Errorf(format, args...)
	a.failed = true
}

// AssertEqual asserts that two comparable values are equal.
func (a *Assertions) AssertEqual(expected, actual any, msg string) {
	a.t.Helper()
	if expected != actual {
		a.fail("%s: expected %v, got %v", msg, expected, actual)
	}
}

// AssertTrue asserts that the value is true.
func (a *Assertions) AssertTrue(value bool, msg string) {
	a.t.Helper()
	if !value {
		a.fail("%s: expected true", msg)
	}
}

// AssertContains asserts that the string contains the substring.
func (a *Assertions) AssertContains(s, substr, msg string) {
	a.t.Helper()
	if !strings.Contains(s, substr) {
		a.fail("%s: %q does not contain %q", msg, s, substr)
	}
}

// AssertNoError asserts that the error is nil.
func (a *Assertions) AssertNoError(err error, msg string) {
	a.t.Helper()
	if err != nil {
		a.fail("%s: unexpected error: %v", msg, err)
	}
}

// AssertErrorCode asserts that err carries code.
func (a *Assertions) AssertErrorCode(err error, code errors.ErrorCode, msg string) {
	a.t.Helper()
	if got := errors.CodeOf(err); got != code {
		a.fail("%s: expected error code %s, got %q (%v)", msg, code, got, err)
	}
}

// EventAssertions checks a recorded event stream.
type EventAssertions struct {
	*Assertions
	events []core.Event
}

// AssertEvents starts assertions over the events recorded by rec.
func (a *Assertions) AssertEvents(rec *Recorder) *EventAssertions {
	return &EventAssertions{Assertions: a, events: rec.Events()}
}

// HasSequence asserts that types appear in order, not necessarily adjacent.
func (e *EventAssertions) HasSequence(types ...core.EventType) *EventAssertions {
	e.t.Helper()
	next := 0
	for _, ev := range e.events {
		if next < len(types) && ev.Type == types[next] {
			next++
		}
	}
	if next < len(types) {
		e.fail("expected event sequence %v, matched only %d of it", types, next)
	}
	return e
}

// HasContent asserts that some event of type t contains substr.
func (e *EventAssertions) HasContent(t core.EventType, substr string) *EventAssertions {
	e.t.Helper()
	for _, ev := range e.events {
		if ev.Type == t && strings.Contains(ev.Content, substr) {
			return e
		}
	}
	e.fail("no %s event contains %q", t, substr)
	return e
}

// HasMetadata asserts that some event of type t carries key=value.
func (e *EventAssertions) HasMetadata(t core.EventType, key string, value any) *EventAssertions {
	e.t.Helper()
	for _, ev := range e.events {
		if ev.Type != t {
			continue
		}
		if v, ok := ev.Metadata()[key]; ok && fmt.Sprint(v) == fmt.Sprint(value) {
			return e
		}
	}
	e.fail("no %s event has %s=%v", t, key, value)
	return e
}

// CountOf asserts the number of events of type t.
func (e *EventAssertions) CountOf(t core.EventType, n int) *EventAssertions {
	e.t.Helper()
	got := 0
	for _, ev := range e.events {
		if ev.Type == t {
			got++
		}
	}
	if got != n {
		e.fail("expected %d %s events, got %d", n, t, got)
	}
	return e
}

// RequestAssertions checks a captured backend request.
type RequestAssertions struct {
	*Assertions
	req *Request
}

// AssertRequest starts assertions over req.
func (a *Assertions) AssertRequest(req *Request) *RequestAssertions {
	a.t.Helper()
	if req == nil {
		a.fail("expected a captured request")
		req = &Request{}
	}
	return &RequestAssertions{Assertions: a, req: req}
}

// HasSystemMessage asserts a system message containing substr.
func (r *RequestAssertions) HasSystemMessage(substr string) *RequestAssertions {
	r.t.Helper()
	return r.hasMessage(llm.RoleSystem, substr)
}

// HasUserMessage asserts a user message containing substr.
func (r *RequestAssertions) HasUserMessage(substr string) *RequestAssertions {
	r.t.Helper()
	return r.hasMessage(llm.RoleUser, substr)
}

func (r *RequestAssertions) hasMessage(role llm.Role, substr string) *RequestAssertions {
	r.t.Helper()
	for _, m := range r.req.Messages {
		if m.Role == role && strings.Contains(m.Content, substr) {
			return r
		}
	}
	r.fail("no %s message contains %q", role, substr)
	return r
}

// HasThinkingBudget asserts the requested thinking token budget.
func (r *RequestAssertions) HasThinkingBudget(minTokens, maxTokens int) *RequestAssertions {
	r.t.Helper()
	if r.req.Options.MinThinkingTokens != minTokens || r.req.Options.MaxThinkingTokens != maxTokens {
		r.fail("expected thinking budget %d..%d, got %d..%d", minTokens, maxTokens,
			r.req.Options.MinThinkingTokens, r.req.Options.MaxThinkingTokens)
	}
	return r
}

// RequireNoError stops the test on err.
func RequireNoError(t testing.TB, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}
