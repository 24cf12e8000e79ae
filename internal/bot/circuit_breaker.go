package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/autotrader/internal/logger"
	"github.com/yourusername/autotrader/internal/metrics"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// CircuitClosed means cycles are healthy
	CircuitClosed CircuitState = iota
	// CircuitOpen means the failure threshold was reached
	CircuitOpen
)

// String returns string representation of circuit state
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// ShutdownCallback is called when the breaker trips
type ShutdownCallback func(reason string) error

// CircuitBreaker counts consecutive failed cycles and runs its callbacks once
// the threshold is reached. A threshold of zero disables it.
type CircuitBreaker struct {
	maxConsecutiveFailures int

	mu            sync.RWMutex
	state         CircuitState
	failureCount  int
	lastFailure   error
	lastFailureAt time.Time
	openedAt      time.Time
	callbacks     []ShutdownCallback

	logger *logrus.Logger
	audit  *logger.AuditLogger
}

// NewCircuitBreaker creates a circuit breaker
func NewCircuitBreaker(maxConsecutiveFailures int, log *logrus.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		maxConsecutiveFailures: maxConsecutiveFailures,
		state:                  CircuitClosed,
		logger:                 log,
		audit:                  logger.NewAuditLogger(log),
	}
}

// RecordFailure increments the failure count and trips the breaker at the threshold
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailure = err
	cb.lastFailureAt = time.Now()

	cb.logger.WithFields(logrus.Fields{
		"failure_count": cb.failureCount,
		"max_allowed":   cb.maxConsecutiveFailures,
		"error":         err.Error(),
	}).Warn("Cycle failure recorded")

	if cb.maxConsecutiveFailures > 0 && cb.failureCount >= cb.maxConsecutiveFailures {
		cb.tripLocked(fmt.Sprintf(
			"Max consecutive cycle failures reached (%d >= %d): %v",
			cb.failureCount, cb.maxConsecutiveFailures, err,
		))
	}
}

// RecordSuccess resets the failure count
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
}

// IsOpen returns true once the breaker has tripped
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.GetState() == CircuitOpen
}

// GetState returns current circuit state
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return cb.state
}

// FailureCount returns the current consecutive failure count
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return cb.failureCount
}

// Reset manually resets circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = CircuitClosed
	cb.failureCount = 0

	cb.logger.WithFields(logrus.Fields{
		"old_state": oldState.String(),
		"new_state": cb.state.String(),
	}).Info("Circuit breaker manually reset")
}

// RegisterShutdownCallback registers a callback run when the breaker trips
func (cb *CircuitBreaker) RegisterShutdownCallback(callback ShutdownCallback) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.callbacks = append(cb.callbacks, callback)
}

// tripLocked assumes the lock is held
func (cb *CircuitBreaker) tripLocked(reason string) {
	if cb.state == CircuitOpen {
		return
	}

	cb.state = CircuitOpen
	cb.openedAt = time.Now()
	metrics.RecordCircuitBreakerTrip()

	cb.audit.LogCircuitBreakerEvent("trip", reason, map[string]interface{}{
		"failure_count":   cb.failureCount,
		"last_failure_at": cb.lastFailureAt,
	}, "kill_switch")

	for i, callback := range cb.callbacks {
		if err := callback(reason); err != nil {
			cb.logger.WithFields(logrus.Fields{
				"callback_index": i,
				"error":          err.Error(),
			}).Error("Shutdown callback failed")
		}
	}
}
