package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrCircuitBreakerOpen    = errors.New("circuit breaker is open")
	ErrCircuitBreakerTimeout = errors.New("circuit breaker operation timeout")
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateHalfOpen
	StateOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateHalfOpen:
		return "HALF_OPEN"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig defines configuration for the circuit breaker
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures int

	// Timeout is how long to wait before transitioning from Open to Half-Open
	Timeout time.Duration

	// MaxConcurrentRequests is the max requests allowed in Half-Open state
	MaxConcurrentRequests int

	// SuccessThreshold is the number of consecutive successes needed in Half-Open to go to Closed
	SuccessThreshold int

	// RequestTimeout bounds a single call. Zero leaves the caller's deadline alone.
	RequestTimeout time.Duration

	// IsFailure decides whether an error counts against the circuit. Errors it
	// rejects are returned to the caller but treated as a healthy response.
	// Defaults to every error except cancellation.
	IsFailure func(error) bool
}

// DefaultCircuitBreakerConfig returns a default configuration
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:           5,
		Timeout:               30 * time.Second,
		MaxConcurrentRequests: 1,
		SuccessThreshold:      3,
		RequestTimeout:        10 * time.Second,
	}
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// CircuitBreaker stops calling a failing dependency for a while and lets a
// limited number of probe calls through before trusting it again.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu        sync.Mutex
	state     CircuitBreakerState
	failures  int
	successes int
	requests  int
	openedAt  time.Time
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 1
	}
	if config.MaxConcurrentRequests <= 0 {
		config.MaxConcurrentRequests = 1
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = defaultIsFailure
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Execute runs fn unless the circuit is open. fn receives a context bounded
// by RequestTimeout and must honour it.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	probe, err := cb.beforeRequest()
	if err != nil {
		return err
	}

	callCtx := ctx
	if cb.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cb.config.RequestTimeout)
		defer cancel()
	}

	err = fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = errors.Mark(err, ErrCircuitBreakerTimeout)
	}
	cb.afterRequest(probe, err)
	return err
}

// beforeRequest checks if the request should be allowed. probe is true
// when the request is one of the limited Half-Open calls.
func (cb *CircuitBreaker) beforeRequest() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.config.Timeout {
			return false, ErrCircuitBreakerOpen
		}
		cb.transitionTo(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.requests >= cb.config.MaxConcurrentRequests {
			return false, ErrCircuitBreakerOpen
		}
		cb.requests++
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) afterRequest(probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe && cb.state == StateHalfOpen && cb.requests > 0 {
		cb.requests--
	}

	if err != nil && cb.config.IsFailure(err) {
		cb.failures++
		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.config.MaxFailures {
				cb.transitionTo(StateOpen)
			}
		case StateHalfOpen:
			cb.transitionTo(StateOpen)
		}
		return
	}

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(StateClosed)
		}
	}
}

// transitionTo must be called with the mutex held.
func (cb *CircuitBreaker) transitionTo(state CircuitBreakerState) {
	cb.state = state
	cb.successes = 0
	cb.requests = 0
	switch state {
	case StateOpen:
		cb.openedAt = cb.now()
	case StateClosed:
		cb.failures = 0
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current failure count
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionTo(StateClosed)
}

// CircuitBreakerStats is a snapshot of the breaker's counters.
type CircuitBreakerStats struct {
	State     CircuitBreakerState
	Failures  int
	Successes int
	Requests  int
}

// Stats returns current statistics
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		State:     cb.state,
		Failures:  cb.failures,
		Successes: cb.successes,
		Requests:  cb.requests,
	}
}
