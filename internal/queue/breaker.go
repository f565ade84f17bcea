package queue

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apperrors "notification-workers/internal/common/errors"
	"notification-workers/internal/common/logger"
	"notification-workers/internal/common/metrics"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
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

// CircuitBreaker guards an unreliable downstream. Closed counts consecutive
// failures; FailMax consecutive failures open the circuit for ResetTimeout,
// during which every call fails fast with CIRCUIT_OPEN. After the timeout a
// single probe call is let through; success closes the circuit, failure
// reopens it for another full timeout.
type CircuitBreaker struct {
	name         string
	failMax      int
	resetTimeout time.Duration
	now          func() time.Time
	logger       logger.Logger

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// BreakerOption configures a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithClock overrides the time source. Tests use this to step through the
// reset timeout without sleeping.
func WithClock(now func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

func NewCircuitBreaker(name string, failMax int, resetTimeout time.Duration, log logger.Logger, opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         name,
		failMax:      failMax,
		resetTimeout: resetTimeout,
		now:          time.Now,
		logger:       log,
		state:        StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	cb.reportState()
	return cb
}

// State returns the current state, accounting for an elapsed reset timeout.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Allow reports whether a call may proceed. In the half-open state only one
// probe is admitted at a time; concurrent callers fail fast until the probe
// resolves.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			return apperrors.NewCircuitOpenError(cb.name)
		}
		cb.state = StateHalfOpen
		cb.probing = true
		cb.reportStateLocked()
		cb.logger.Info("Circuit breaker probing", map[string]interface{}{"breaker": cb.name})
		return nil
	case StateHalfOpen:
		if cb.probing {
			return apperrors.NewCircuitOpenError(cb.name)
		}
		cb.probing = true
		return nil
	}
	return nil
}

// RecordSuccess resets the failure count and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateClosed {
		cb.logger.Info("Circuit breaker closed", map[string]interface{}{"breaker": cb.name})
	}
	cb.state = StateClosed
	cb.failures = 0
	cb.probing = false
	cb.reportStateLocked()
}

// RecordFailure counts a failure. In the closed state the circuit opens
// once FailMax consecutive failures accumulate; a half-open probe failure
// reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.open()
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failMax {
			cb.open()
		}
	}
}

// Call runs fn under the breaker, translating admission into CIRCUIT_OPEN
// and recording the outcome.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.Allow(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.failures = 0
	cb.probing = false
	cb.reportStateLocked()
	cb.logger.Warn("Circuit breaker opened", map[string]interface{}{
		"breaker":       cb.name,
		"reset_timeout": cb.resetTimeout.String(),
	})
}

func (cb *CircuitBreaker) reportState() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reportStateLocked()
}

func (cb *CircuitBreaker) reportStateLocked() {
	metrics.BreakerState.With(prometheus.Labels{"breaker": cb.name}).Set(float64(cb.state))
}
