// Package generator talks to the upstream text generation service.
//
// The service is opaque and untrusted: a Generator returns whatever text the
// model produced, and the caller decides how to interpret it.
package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Response is the raw output of one generation.
type Response struct {
	Text       string
	TokensUsed int
	// Truncated reports that the model stopped at its output token limit.
	Truncated bool
}

// Generator produces text for a prompt.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Generate must honor cancellation and deadlines.
// - Errors: failures wrap one of the sentinels below or are a *StatusError.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Response, error)
	Name() string
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, prompt string) (Response, error)

func (f Func) Generate(ctx context.Context, prompt string) (Response, error) { return f(ctx, prompt) }
func (f Func) Name() string                                                  { return "func" }

var (
	ErrMissingAPIKey = errors.New("generator: api key is not configured")
	ErrRateLimited   = errors.New("generator: rate limited")
	ErrAuth          = errors.New("generator: authentication failed")
	ErrEmptyResponse = errors.New("generator: empty response")
	// ErrTransport covers failures to reach the upstream or to read its reply.
	ErrTransport = errors.New("generator: transport failure")
)

// StatusError is a non-200 reply from the upstream API.
type StatusError struct {
	Code int
	Body string
	// RetryAfter is parsed from the Retry-After header; zero if absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generator: upstream status %d: %s", e.Code, e.Body)
}

// Is maps status codes onto the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Code == http.StatusTooManyRequests
	case ErrAuth:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
	}
	return false
}

// Retryable reports whether err is worth another attempt: rate limiting,
// server side failures and transport failures are, everything else is not.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrTransport) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= http.StatusInternalServerError
	}
	return false
}

// RetryAfter returns the server requested delay carried by err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return se.RetryAfter, true
	}
	return 0, false
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
