// SPDX-License-Identifier: Apache-2.0
package resilience

import (
	"context"

	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

// Fallback produces a substitute value after the primary operation failed.
type Fallback[T any] interface {
	Execute(ctx context.Context, primaryErr error) (T, error)
}

// FallbackFunc wraps a function as a Fallback.
type FallbackFunc[T any] func(ctx context.Context, primaryErr error) (T, error)

// Execute implements Fallback.
func (f FallbackFunc[T]) Execute(ctx context.Context, err error) (T, error) {
	return f(ctx, err)
}

// StaticFallback returns a fixed value on failure.
type StaticFallback[T any] struct {
	Value T
}

// Execute implements Fallback.
func (s StaticFallback[T]) Execute(ctx context.Context, primaryErr error) (T, error) {
	return s.Value, nil
}

// ChainedFallback tries fallbacks in order until one succeeds.
type ChainedFallback[T any] struct {
	Fallbacks []Fallback[T]
}

// Execute implements Fallback.
func (c ChainedFallback[T]) Execute(ctx context.Context, primaryErr error) (T, error) {
	lastErr := primaryErr
	for _, fallback := range c.Fallbacks {
		value, err := fallback.Execute(ctx, lastErr)
		if err == nil {
			return value, nil
		}
		lastErr = err
	}
	var zero T
	if lastErr == nil {
		lastErr = errors.New(errors.CodeInternal, "no fallback available", nil)
	}
	return zero, lastErr
}

// WithFallback runs fn and hands its error to fallback.
func WithFallback[T any](ctx context.Context, fn func(ctx context.Context) (T, error), fallback Fallback[T]) (T, error) {
	value, err := fn(ctx)
	if err == nil {
		return value, nil
	}
	return fallback.Execute(ctx, err)
}
