// SPDX-License-Identifier: Apache-2.0
package resilience

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

// WithTimeout runs fn under a deadline of d and maps an exceeded deadline to a
// TIMEOUT error. fn must honor the context it is given. A zero d runs fn as is.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	value, err := fn(ctx)
	if err != nil && stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		var zero T
		return zero, errors.New(errors.CodeTimeout, "operation exceeded timeout", err).
			WithContext("timeout", d.String()).
			WithRecoverable(true)
	}
	return value, err
}
