package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the service recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the max concurrent probes in half-open state.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called after the state changes, outside the lock.
	OnStateChange func(from, to State)

	// IsFailure determines if an error should count as a failure.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// Now is the clock. Default: time.Now
	Now func() time.Time
}

type transition struct{ from, to State }

// CircuitBreaker implements the circuit breaker pattern.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	lastFailure   time.Time
	halfOpenCount int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &CircuitBreaker{config: config, state: StateClosed}
}

// Execute runs the operation through the circuit breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterRequest(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	state, changes := cb.currentStateLocked()
	cb.mu.Unlock()
	cb.notify(changes)
	return state
}

// Reset forces the circuit closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	var changes []transition
	if cb.state != StateClosed {
		changes = append(changes, transition{cb.state, StateClosed})
	}
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenCount = 0
	cb.mu.Unlock()
	cb.notify(changes)
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	state, changes := cb.currentStateLocked()

	var err error
	switch state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			err = ErrCircuitOpen
		} else {
			cb.halfOpenCount++
		}
	}
	cb.mu.Unlock()

	cb.notify(changes)
	return err
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	isFailure := cb.config.IsFailure(err)
	from := cb.state
	now := cb.config.Now()

	switch cb.state {
	case StateClosed:
		if isFailure {
			cb.failures++
			cb.lastFailure = now
			if cb.failures >= cb.config.MaxFailures {
				cb.state = StateOpen
				cb.openedAt = now
			}
		} else {
			cb.failures = 0
		}

	case StateHalfOpen:
		if cb.halfOpenCount > 0 {
			cb.halfOpenCount--
		}
		if isFailure {
			cb.lastFailure = now
			cb.state = StateOpen
			cb.openedAt = now
		} else {
			cb.state = StateClosed
			cb.failures = 0
		}
	}

	var changes []transition
	if from != cb.state {
		changes = append(changes, transition{from, cb.state})
	}
	cb.mu.Unlock()
	cb.notify(changes)
}

func (cb *CircuitBreaker) currentStateLocked() (State, []transition) {
	if cb.state == StateOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.state = StateHalfOpen
		cb.halfOpenCount = 0
		return cb.state, []transition{{StateOpen, StateHalfOpen}}
	}
	return cb.state, nil
}

func (cb *CircuitBreaker) notify(changes []transition) {
	if cb.config.OnStateChange == nil {
		return
	}
	for _, c := range changes {
		cb.config.OnStateChange(c.from, c.to)
	}
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	state, changes := cb.currentStateLocked()
	m := CircuitBreakerMetrics{
		State:       state,
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
	}
	cb.mu.Unlock()
	cb.notify(changes)
	return m
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State       State
	Failures    int
	LastFailure time.Time
}
