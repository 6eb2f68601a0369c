package resilience

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds one upstream call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Timeout bounds how long an operation may run.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout of d, or DefaultTimeout if d <= 0.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &Timeout{d: d}
}

// Execute runs op with a derived deadline. It returns as soon as the
// deadline passes even if op ignores its context; op keeps running in the
// background until it notices cancellation.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// Duration returns the configured timeout.
func (t *Timeout) Duration() time.Duration {
	return t.d
}

// ExecuteWithTimeout runs op under a one-off timeout.
func ExecuteWithTimeout(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	return NewTimeout(d).Execute(ctx, op)
}
