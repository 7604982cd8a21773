package resilience

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

func fastRetry(attempts int) RetryConfig {
	return DefaultRetryConfig().WithMaxAttempts(attempts).WithInitialDelay(time.Millisecond)
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	var retried []int
	rc := fastRetry(3)
	rc.OnRetry = func(attempt int, err error) { retried = append(retried, attempt) }

	err := rc.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return stderrors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 || len(retried) != 2 {
		t.Fatalf("expected 3 attempts and 2 retries, got %d and %v", attempts, retried)
	}
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	attempts := 0
	err := fastRetry(2).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return stderrors.New("still down")
	})
	if err == nil || err.Error() != "still down" {
		t.Fatalf("expected last error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetrySkipsNonRecoverable(t *testing.T) {
	attempts := 0
	err := fastRetry(5).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New(errors.CodeConfig, "missing key", nil).WithRecoverable(false)
	})
	if errors.CodeOf(err) != errors.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rc := DefaultRetryConfig().WithInitialDelay(time.Hour)
	attempts := 0
	err := rc.Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return stderrors.New("transient")
	})
	if errors.CodeOf(err) != errors.CodeContextLost {
		t.Fatalf("expected context lost, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), fastRetry(3), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", stderrors.New("transient")
		}
		return "resolved", nil
	})
	if err != nil || got != "resolved" {
		t.Fatalf("expected resolved, got %q %v", got, err)
	}
}

func TestIsRecoverableDefault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", stderrors.New("x"), true},
		{"canceled", context.Canceled, false},
		{"typed recoverable", errors.New(errors.CodeLLMError, "503", nil).WithRecoverable(true), true},
		{"typed fatal", errors.New(errors.CodeLLMError, "401", nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRecoverableDefault(tt.err); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCalculateBackoffCapped(t *testing.T) {
	rc := RetryConfig{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2}
	if d := calculateBackoff(1, rc); d != time.Second {
		t.Fatalf("expected 1s, got %v", d)
	}
	if d := calculateBackoff(5, rc); d != 3*time.Second {
		t.Fatalf("expected cap, got %v", d)
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	var transitions []CircuitBreakerState
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		Name:             "reasoning",
		Now:              clock.Now,
		OnStateChange: func(name string, from, to CircuitBreakerState) {
			transitions = append(transitions, to)
		},
	})
	fail := func(ctx context.Context) error { return stderrors.New("503") }
	ok := func(ctx context.Context) error { return nil }

	for i := 0; i < 2; i++ {
		_ = cb.Call(context.Background(), fail)
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	calls := 0
	err := cb.Call(context.Background(), func(ctx context.Context) error { calls++; return nil })
	if !stderrors.Is(err, errors.ErrCircuitOpen) {
		t.Fatalf("expected circuit open, got %v", err)
	}
	if calls != 0 {
		t.Fatal("open breaker must not call through")
	}

	clock.Advance(time.Minute)
	if err := cb.Call(context.Background(), ok); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after probe, got %s", cb.State())
	}

	want := []CircuitBreakerState{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("expected transitions %v, got %v", want, transitions)
		}
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Second, Now: clock.Now})
	_ = cb.Call(context.Background(), func(ctx context.Context) error { return stderrors.New("x") })
	clock.Advance(time.Second)
	_ = cb.Call(context.Background(), func(ctx context.Context) error { return stderrors.New("x") })
	if cb.State() != StateOpen {
		t.Fatalf("expected reopen, got %s", cb.State())
	}
	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after reset")
	}
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	_ = cb.Call(context.Background(), func(ctx context.Context) error { return context.Canceled })
	if cb.State() != StateClosed {
		t.Fatalf("cancellation must not trip the breaker")
	}
}

func TestStateGauge(t *testing.T) {
	if StateOpen.Gauge() != 0 || StateHalfOpen.Gauge() != 1 || StateClosed.Gauge() != 2 {
		t.Fatal("unexpected gauge encoding")
	}
}

func TestWithFallback(t *testing.T) {
	got, err := WithFallback(context.Background(),
		func(ctx context.Context) (string, error) { return "", stderrors.New("llm down") },
		FallbackFunc[string](func(ctx context.Context, err error) (string, error) {
			return "fallback: " + err.Error(), nil
		}),
	)
	if err != nil || got != "fallback: llm down" {
		t.Fatalf("unexpected %q %v", got, err)
	}

	got, _ = WithFallback(context.Background(),
		func(ctx context.Context) (string, error) { return "primary", nil },
		StaticFallback[string]{Value: "static"},
	)
	if got != "primary" {
		t.Fatalf("fallback ran on success")
	}
}

func TestChainedFallback(t *testing.T) {
	chain := ChainedFallback[int]{Fallbacks: []Fallback[int]{
		FallbackFunc[int](func(ctx context.Context, err error) (int, error) { return 0, stderrors.New("cache miss") }),
		StaticFallback[int]{Value: 7},
	}}
	got, err := chain.Execute(context.Background(), stderrors.New("primary"))
	if err != nil || got != 7 {
		t.Fatalf("expected 7, got %d %v", got, err)
	}

	empty := ChainedFallback[int]{}
	if _, err := empty.Execute(context.Background(), stderrors.New("primary")); err == nil || err.Error() != "primary" {
		t.Fatalf("expected primary error, got %v", err)
	}
}

func TestWithTimeout(t *testing.T) {
	_, err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if errors.CodeOf(err) != errors.CodeTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}

	got, err := WithTimeout(context.Background(), 0, func(ctx context.Context) (int, error) { return 3, nil })
	if err != nil || got != 3 {
		t.Fatalf("zero timeout should run directly, got %d %v", got, err)
	}
}
