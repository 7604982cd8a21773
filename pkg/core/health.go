// SPDX-License-Identifier: Apache-2.0
package core

import (
	"context"
	"sync"
	"time"
)

// HealthStatus is the state of one war room dependency.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "HEALTHY"
	HealthDegraded  HealthStatus = "DEGRADED"
	HealthUnhealthy HealthStatus = "UNHEALTHY"
)

// HealthResult is the outcome of one check.
type HealthResult struct {
	Component string
	Status    HealthStatus
	Message   string
	LastCheck time.Time
	Error     error
}

// HealthChecker checks one component such as the reasoning backend, the
// journal or an MCP server.
type HealthChecker interface {
	Check(ctx context.Context) HealthResult
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) HealthResult

// Check implements HealthChecker.
func (f HealthCheckFunc) Check(ctx context.Context) HealthResult {
	return f(ctx)
}

// Health runs registered checkers in registration order.
type Health struct {
	mu       sync.RWMutex
	names    []string
	checkers map[string]HealthChecker
}

// NewHealth creates an empty set of checks.
func NewHealth() *Health {
	return &Health{checkers: make(map[string]HealthChecker)}
}

// Register adds or replaces the checker for name.
func (h *Health) Register(name string, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.checkers[name]; !ok {
		h.names = append(h.names, name)
	}
	h.checkers[name] = checker
}

// CheckAll runs every checker. The overall status is the worst individual
// status; an empty set is healthy.
func (h *Health) CheckAll(ctx context.Context) ([]HealthResult, HealthStatus) {
	h.mu.RLock()
	names := append([]string(nil), h.names...)
	checkers := make([]HealthChecker, len(names))
	for i, name := range names {
		checkers[i] = h.checkers[name]
	}
	h.mu.RUnlock()

	overall := HealthHealthy
	results := make([]HealthResult, 0, len(names))
	for i, checker := range checkers {
		res := checker.Check(ctx)
		res.Component = names[i]
		if res.LastCheck.IsZero() {
			res.LastCheck = time.Now()
		}
		if res.Status == "" {
			res.Status = HealthHealthy
			if res.Error != nil {
				res.Status = HealthUnhealthy
			}
		}
		switch {
		case res.Status == HealthUnhealthy:
			overall = HealthUnhealthy
		case res.Status == HealthDegraded && overall == HealthHealthy:
			overall = HealthDegraded
		}
		results = append(results, res)
	}
	return results, overall
}
