// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

// Package commander drives an incident investigation through a fixed set of
// phases and narrates every step as agent events.
package commander

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rtai-hli/gtc-hackathon/pkg/agent"
	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/resilience"
	"github.com/rtai-hli/gtc-hackathon/pkg/telemetry"
)

// Name is the commander's agent name.
const Name = "Commander"

const (
	// StatusResolved is the only status a successful run reports.
	StatusResolved = "resolved"

	// ConfidenceLLM is reported when the reasoning backend produced the root cause.
	ConfidenceLLM = 0.85
	// ConfidenceFallback is reported for rule-based determinations.
	ConfidenceFallback = 0.5

	PathLLM      = "llm"
	PathFallback = "fallback"

	// evidenceLimit bounds tool output kept on a task for the prompt.
	evidenceLimit = 2000
)

// Result is the outcome of a successful run.
type Result struct {
	Status     string
	RootCause  string
	Confidence float64
	Timeline   []Phase
	// Path is "llm" or "fallback".
	Path  string
	RunID string
}

// ToMap renders the result as a plain record.
func (r *Result) ToMap() map[string]any {
	timeline := make([]string, len(r.Timeline))
	for i, p := range r.Timeline {
		timeline[i] = string(p)
	}
	return map[string]any{
		"status":     r.Status,
		"root_cause": r.RootCause,
		"confidence": r.Confidence,
		"timeline":   timeline,
	}
}

// TheorySource supplies theories from investigators during Synthesizing.
type TheorySource interface {
	Theories(ctx context.Context, inc Incident) ([]*core.Theory, error)
}

// TheorySourceFunc adapts a function to TheorySource.
type TheorySourceFunc func(ctx context.Context, inc Incident) ([]*core.Theory, error)

// Theories implements TheorySource.
func (f TheorySourceFunc) Theories(ctx context.Context, inc Incident) ([]*core.Theory, error) {
	return f(ctx, inc)
}

// State is a snapshot of the commander's per-run scratch state.
type State struct {
	Phase    Phase
	Incident Incident
	Priority []string
	Theories []*core.Theory
	Tasks    []*core.Task
	Timeline []Phase
}

// Commander runs investigations. One instance runs one investigation at a
// time; concurrent runs need separate instances.
type Commander struct {
	*agent.Base

	delegationWait time.Duration
	collectionWait time.Duration
	evidenceTools  map[string]string
	theorySource   TheorySource
	breaker        *resilience.CircuitBreaker

	running sync.Mutex
	mu      sync.Mutex
	state   State
}

type options struct {
	agentOpts      []agent.Option
	delegationWait time.Duration
	collectionWait time.Duration
	evidenceTools  map[string]string
	theorySource   TheorySource
	breaker        *resilience.CircuitBreaker
	breakerConfig  *resilience.CircuitBreakerConfig
}

// Option configures a Commander.
type Option func(*options)

// WithAgentOptions configures the underlying agent (listeners, backend, tracer).
func WithAgentOptions(opts ...agent.Option) Option {
	return func(o *options) { o.agentOpts = append(o.agentOpts, opts...) }
}

// WithPauses sets the pauses modeling delegated work and result collection.
func WithPauses(delegation, collection time.Duration) Option {
	return func(o *options) {
		o.delegationWait = delegation
		o.collectionWait = collection
	}
}

// WithEvidenceTools maps evidence areas to registered tool names invoked
// while delegating.
func WithEvidenceTools(m map[string]string) Option {
	return func(o *options) {
		o.evidenceTools = make(map[string]string, len(m))
		for k, v := range m {
			o.evidenceTools[k] = v
		}
	}
}

// WithTheorySource sets where Synthesizing gathers theories.
func WithTheorySource(src TheorySource) Option {
	return func(o *options) { o.theorySource = src }
}

// WithCircuitBreaker guards the reasoning backend with cb.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(o *options) { o.breaker = cb }
}

// WithBreakerConfig builds a breaker for the reasoning backend whose state
// changes are reported to the agent's error metrics.
func WithBreakerConfig(cfg resilience.CircuitBreakerConfig) Option {
	return func(o *options) { o.breakerConfig = &cfg }
}

// New creates a commander. Without a backend in the agent options every run
// takes the fallback path.
func New(opts ...Option) (*Commander, error) {
	o := &options{
		delegationWait: 500 * time.Millisecond,
		collectionWait: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	base, err := agent.New(Name, o.agentOpts...)
	if err != nil {
		return nil, err
	}
	c := &Commander{
		Base:           base,
		delegationWait: o.delegationWait,
		collectionWait: o.collectionWait,
		evidenceTools:  o.evidenceTools,
		theorySource:   o.theorySource,
		breaker:        o.breaker,
		state:          State{Phase: PhaseInitial},
	}
	if c.breaker == nil && o.breakerConfig != nil {
		cfg := *o.breakerConfig
		if cfg.Name == "" {
			cfg.Name = "reasoning_backend"
		}
		user := cfg.OnStateChange
		cfg.OnStateChange = func(name string, from, to resilience.CircuitBreakerState) {
			base.Logger().Warn("reasoning backend breaker changed state",
				"breaker", name, "from", string(from), "to", string(to))
			base.Metrics().RecordCircuitBreakerState(context.Background(), name, to.Gauge())
			if user != nil {
				user(name, from, to)
			}
		}
		c.breaker = resilience.NewCircuitBreaker(cfg)
	}
	return c, nil
}

// Breaker returns the reasoning backend breaker, or nil.
func (c *Commander) Breaker() *resilience.CircuitBreaker { return c.breaker }

// Snapshot returns a copy of the current run state. Tasks and theories are
// copied by value.
func (c *Commander) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Priority = append([]string(nil), s.Priority...)
	s.Theories = make([]*core.Theory, len(c.state.Theories))
	for i, th := range c.state.Theories {
		cp := *th
		cp.Challenges = append([]core.Challenge(nil), th.Challenges...)
		s.Theories[i] = &cp
	}
	s.Tasks = make([]*core.Task, len(c.state.Tasks))
	for i, t := range c.state.Tasks {
		cp := *t
		s.Tasks[i] = &cp
	}
	s.Timeline = append([]Phase(nil), s.Timeline...)
	return s
}

// ReceiveTheory records a theory from an investigator and narrates it.
func (c *Commander) ReceiveTheory(ctx context.Context, th *core.Theory) error {
	if th == nil {
		return errors.New(errors.CodeInvalidInput, "theory is required", nil)
	}
	if err := core.ValidateConfidence(th.Confidence); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Theories = append(c.state.Theories, th)
	c.mu.Unlock()

	source := th.Source
	if source == "" {
		source = "Unknown"
	}
	c.Observe(ctx, "Received theory: "+th.Text, core.ObservationPayload{Source: source})
	return nil
}

// ChallengeTheory narrates a counter-argument against a theory the commander
// holds and attaches it to that theory. Unknown ids emit nothing.
func (c *Commander) ChallengeTheory(ctx context.Context, theoryID, text string) (core.Event, error) {
	c.mu.Lock()
	var held *core.Theory
	for _, th := range c.state.Theories {
		if th.ID == theoryID {
			held = th
			break
		}
	}
	c.mu.Unlock()
	if held == nil {
		return core.Event{}, errors.New(errors.CodeInvalidInput, "no theory with that id", nil).
			WithContext("theory_id", theoryID)
	}

	ev, err := c.Emitter.ChallengeTheory(ctx, theoryID, text)
	if err != nil {
		return core.Event{}, err
	}
	c.mu.Lock()
	held.AddChallenge(c.Agent(), text)
	c.mu.Unlock()
	return ev, nil
}

// RunMap runs an investigation from a loosely typed context and returns the
// result record.
func (c *Commander) RunMap(ctx context.Context, m map[string]any) (map[string]any, error) {
	inc, err := IncidentFromMap(m)
	if err != nil {
		return nil, err
	}
	res, err := c.Run(ctx, inc)
	if err != nil {
		return nil, err
	}
	return res.ToMap(), nil
}

// Run drives the investigation of inc through every phase. Any phase error
// ends the run; there is no partial result.
func (c *Commander) Run(ctx context.Context, inc Incident) (*Result, error) {
	if err := inc.Validate(); err != nil {
		return nil, err
	}
	if !c.running.TryLock() {
		return nil, errors.New(errors.CodeInvalidInput, "commander is already running an investigation", nil)
	}
	defer c.running.Unlock()

	ctx, runID := core.EnsureRunID(ctx)
	ctx, span := c.Tracer().Start(ctx, "commander.run",
		trace.WithAttributes(telemetry.IncidentAttributes(inc.ID, inc.Service, inc.Severity)...))
	defer span.End()

	c.mu.Lock()
	c.state = State{Phase: PhaseInitial, Incident: inc}
	c.mu.Unlock()

	c.Logger().InfoContext(ctx, "investigation started",
		"incident_id", inc.ID, "service", inc.Service, "severity", inc.Severity)

	var det determination
	steps := []struct {
		phase Phase
		run   func(ctx context.Context) error
	}{
		{PhaseAssessing, c.assess},
		{PhaseDelegating, c.delegate},
		{PhaseSynthesizing, c.synthesize},
		{PhaseConcluding, func(ctx context.Context) error {
			var err error
			det, err = c.conclude(ctx)
			return err
		}},
	}
	for _, step := range steps {
		if err := c.runPhase(ctx, step.phase, step.run); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.Logger().ErrorContext(ctx, "investigation failed", "phase", string(step.phase), "error", err)
			return nil, err
		}
	}
	if err := c.enter(PhaseResolved, false); err != nil {
		return nil, err
	}

	span.SetAttributes(telemetry.ResolutionAttributes(det.path, det.confidence)...)
	span.SetStatus(codes.Ok, "")
	snap := c.Snapshot()
	c.Logger().InfoContext(ctx, "investigation resolved",
		"path", det.path, "confidence", det.confidence)
	return &Result{
		Status:     StatusResolved,
		RootCause:  det.rootCause,
		Confidence: det.confidence,
		Timeline:   snap.Timeline,
		Path:       det.path,
		RunID:      runID,
	}, nil
}

func (c *Commander) runPhase(ctx context.Context, phase Phase, fn func(ctx context.Context) error) error {
	if err := c.enter(phase, true); err != nil {
		return err
	}
	ctx, span := c.Tracer().Start(ctx, "commander."+strings.ToLower(string(phase)))
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *Commander) enter(phase Phase, record bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := checkTransition(c.state.Phase, phase); err != nil {
		return err
	}
	c.state.Phase = phase
	if record {
		c.state.Timeline = append(c.state.Timeline, phase)
	}
	return nil
}

func (c *Commander) assess(ctx context.Context) error {
	inc := c.Snapshot().Incident

	c.Think(ctx, "Beginning incident assessment...", core.ThinkingPayload{})
	c.Think(ctx, fmt.Sprintf("Incident: %s on %s", inc.Symptom, inc.Service),
		core.ThinkingPayload{Severity: inc.Severity})

	bucket := Classify(inc.Symptom)
	c.Think(ctx, bucket.Narration(), core.ThinkingPayload{})

	priority := bucket.Priority()
	c.mu.Lock()
	c.state.Priority = priority
	c.mu.Unlock()

	c.Decide(ctx, "Investigation priority: "+strings.Join(priority, " > "),
		core.DecisionPayload{Priority: priority})
	return nil
}

func (c *Commander) delegate(ctx context.Context) error {
	snap := c.Snapshot()
	for _, area := range snap.Priority {
		c.Think(ctx, "Need to investigate: "+area, core.ThinkingPayload{})

		task := core.NewTask(area, SpecialistFor(area))
		c.mu.Lock()
		c.state.Tasks = append(c.state.Tasks, task)
		c.mu.Unlock()

		c.Act(ctx, fmt.Sprintf("Delegating %s investigation to %s", area, task.AssignedTo),
			core.ActionPayload{Delegation: task.Delegation()})

		if err := c.gatherEvidence(ctx, snap.Incident, task); err != nil {
			return err
		}
	}
	return pause(ctx, c.delegationWait)
}

func (c *Commander) gatherEvidence(ctx context.Context, inc Incident, task *core.Task) error {
	tool, ok := c.evidenceTools[task.Area]
	if !ok || !c.Tools().Has(tool) {
		return nil
	}
	c.updateTask(task, func(t *core.Task) { t.Status = core.TaskStatusRunning })
	result, err := c.UseTool(ctx, tool, map[string]any{"service": inc.Service, "area": task.Area})
	if err != nil {
		c.updateTask(task, func(t *core.Task) { t.Status = core.TaskStatusFailed })
		return err
	}
	evidence := evidenceText(result)
	c.updateTask(task, func(t *core.Task) {
		t.Evidence = evidence
		t.Status = core.TaskStatusCompleted
	})
	return nil
}

func (c *Commander) updateTask(task *core.Task, fn func(*core.Task)) {
	c.mu.Lock()
	fn(task)
	c.mu.Unlock()
}

func (c *Commander) synthesize(ctx context.Context) error {
	c.Think(ctx, "Synthesizing findings from investigation teams...", core.ThinkingPayload{})
	if err := pause(ctx, c.collectionWait); err != nil {
		return err
	}
	if c.theorySource != nil {
		theories, err := c.theorySource.Theories(ctx, c.Snapshot().Incident)
		if err != nil {
			return err
		}
		for _, th := range theories {
			if err := c.ReceiveTheory(ctx, th); err != nil {
				return err
			}
		}
	}
	c.Observe(ctx, "Received theories from investigation teams",
		core.ObservationPayload{TheoryCount: core.Int(len(c.Snapshot().Theories))})
	return nil
}

type determination struct {
	rootCause  string
	confidence float64
	path       string
}

func (c *Commander) conclude(ctx context.Context) (determination, error) {
	c.Think(ctx, "Analyzing all evidence to determine root cause...", core.ThinkingPayload{})

	det, err := resilience.WithFallback(ctx, c.reason, resilience.FallbackFunc[determination](c.fallback))
	if err != nil {
		return determination{}, err
	}

	c.Think(ctx, fmt.Sprintf("Root cause analysis complete. Confidence: %.0f%%", det.confidence*100),
		core.ThinkingPayload{Confidence: core.Float(det.confidence)})
	c.Decide(ctx, "ROOT CAUSE: "+det.rootCause, core.DecisionPayload{
		Confidence: core.Float(det.confidence),
		RootCause:  det.rootCause,
	})
	return det, nil
}

func (c *Commander) reason(ctx context.Context) (determination, error) {
	if !c.HasReasoner() {
		return determination{}, errors.ErrNoReasoner
	}
	snap := c.Snapshot()
	prompt := BuildPrompt(snap.Incident, snap.Priority, snap.Tasks, snap.Theories)

	var answer string
	call := func(ctx context.Context) error {
		c.Think(ctx, "Using LLM reasoning to analyze incident...", core.ThinkingPayload{})
		resp, err := c.LLMReason(ctx, prompt, SystemContext, true)
		if err != nil {
			return err
		}
		answer = strings.TrimSpace(resp)
		if answer == "" {
			return errors.New(errors.CodeLLMError, "reasoning backend returned an empty answer", nil)
		}
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Call(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return determination{}, err
	}
	return determination{rootCause: answer, confidence: ConfidenceLLM, path: PathLLM}, nil
}

func (c *Commander) fallback(ctx context.Context, cause error) (determination, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return determination{}, errors.New(errors.CodeContextLost, "investigation canceled while concluding", ctxErr)
	}
	switch {
	case stderrors.Is(cause, errors.ErrNoReasoner):
	case stderrors.Is(cause, errors.ErrCircuitOpen):
		c.Observe(ctx, "Reasoning backend unavailable (circuit open). Falling back to rule-based analysis.",
			core.ObservationPayload{Error: cause.Error()})
		c.Metrics().RecordRecovery(ctx, errors.CodeCircuitOpen)
	default:
		c.Logger().WarnContext(ctx, "reasoning backend failed, using fallback", "error", cause)
		c.Observe(ctx, "LLM reasoning failed. Falling back to rule-based analysis.",
			core.ObservationPayload{Error: cause.Error()})
		c.Metrics().RecordRecovery(ctx, errors.CodeOf(cause))
	}

	rootCause, pattern := FallbackRootCause(c.Snapshot().Incident.Symptom)
	if pattern != "" {
		c.Think(ctx, "Evidence pattern matches: latency spike + recent deploy + database metrics",
			core.ThinkingPayload{Pattern: pattern})
	}
	return determination{rootCause: rootCause, confidence: ConfidenceFallback, path: PathFallback}, nil
}

func pause(ctx context.Context, d time.Duration) error {
	lost := func() error {
		return errors.New(errors.CodeContextLost, "investigation canceled while waiting", ctx.Err())
	}
	if d <= 0 {
		if ctx.Err() != nil {
			return lost()
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return lost()
	case <-timer.C:
		return nil
	}
}

func evidenceText(result any) string {
	var s string
	if str, ok := result.(string); ok {
		s = str
	} else if data, err := json.Marshal(result); err == nil {
		s = string(data)
	} else {
		s = fmt.Sprint(result)
	}
	if r := []rune(s); len(r) > evidenceLimit {
		s = string(r[:evidenceLimit]) + "..."
	}
	return s
}
