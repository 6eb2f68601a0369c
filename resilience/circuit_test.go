package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream failed")

func failOp(context.Context) error { return errUpstream }
func okOp(context.Context) error   { return nil }

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
	if cb.config.MaxFailures != 5 {
		t.Errorf("MaxFailures = %d, want 5", cb.config.MaxFailures)
	}
	if cb.config.ResetTimeout != 30*time.Second {
		t.Errorf("ResetTimeout = %v, want 30s", cb.config.ResetTimeout)
	}
	if cb.config.HalfOpenMaxRequests != 1 {
		t.Errorf("HalfOpenMaxRequests = %d, want 1", cb.config.HalfOpenMaxRequests)
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3})
	ctx := context.Background()

	for i := range 2 {
		if err := cb.Execute(ctx, failOp); !errors.Is(err, errUpstream) {
			t.Fatalf("attempt %d: err = %v, want upstream error", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Fatalf("state after 2 failures = %v, want closed", cb.State())
	}

	_ = cb.Execute(ctx, failOp)
	if cb.State() != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", cb.State())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("operation ran while circuit open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2})
	ctx := context.Background()

	_ = cb.Execute(ctx, failOp)
	_ = cb.Execute(ctx, okOp)
	_ = cb.Execute(ctx, failOp)

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
	if got := cb.Metrics().Failures; got != 1 {
		t.Errorf("Failures = %d, want 1", got)
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Minute,
		Now:          clock.Now,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, failOp)
	clock.Advance(59 * time.Second)
	if cb.State() != StateOpen {
		t.Fatalf("state before timeout = %v, want open", cb.State())
	}

	clock.Advance(time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state after timeout = %v, want half-open", cb.State())
	}

	if err := cb.Execute(ctx, okOp); err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state after successful probe = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Second,
		Now:          clock.Now,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, failOp)
	clock.Advance(time.Second)
	_ = cb.Execute(ctx, failOp)

	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
	clock.Advance(500 * time.Millisecond)
	if cb.State() != StateOpen {
		t.Errorf("reopened circuit should wait a full ResetTimeout")
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Second,
		Now:          clock.Now,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, failOp)
	clock.Advance(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := cb.Execute(ctx, okOp); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe err = %v, want ErrCircuitOpen", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first probe err = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_IsFailure(t *testing.T) {
	ignored := errors.New("client error")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return err != nil && !errors.Is(err, ignored) },
	})

	err := cb.Execute(context.Background(), func(context.Context) error { return ignored })
	if !errors.Is(err, ignored) {
		t.Fatalf("err = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("ignored error opened the circuit")
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	clock := newFakeClock()
	var (
		mu      sync.Mutex
		changes []string
		cb      *CircuitBreaker
	)
	cb = NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Second,
		Now:          clock.Now,
		OnStateChange: func(from, to State) {
			// Callbacks run outside the lock, so reading state must not deadlock.
			_ = cb.Metrics()
			mu.Lock()
			changes = append(changes, from.String()+"->"+to.String())
			mu.Unlock()
		},
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, failOp)
	clock.Advance(time.Second)
	_ = cb.Execute(ctx, okOp)

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("changes[%d] = %q, want %q", i, changes[i], want[i])
		}
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	_ = cb.Execute(context.Background(), failOp)

	cb.Reset()

	m := cb.Metrics()
	if m.State != StateClosed || m.Failures != 0 {
		t.Errorf("after Reset metrics = %+v", m)
	}
}

func TestCircuitBreaker_MetricsLastFailure(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{Now: clock.Now})
	_ = cb.Execute(context.Background(), failOp)

	if got := cb.Metrics().LastFailure; !got.Equal(clock.Now()) {
		t.Errorf("LastFailure = %v, want %v", got, clock.Now())
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(99):     "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
