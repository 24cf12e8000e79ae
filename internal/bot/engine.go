package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/autotrader/internal/metrics"
)

// ErrAlreadyRunning is returned by Start when the loop is active
var ErrAlreadyRunning = errors.New("trading loop is already running")

// MarketClock reports exchange hours
type MarketClock interface {
	IsMarketOpen(ctx context.Context) (bool, error)
}

// CycleRunner performs one evaluation pass over the rules
type CycleRunner interface {
	RunOnce(ctx context.Context) ([]string, error)
}

// LoopStatus is a snapshot of the trading loop
type LoopStatus struct {
	Running             bool   `json:"running"`
	PollInterval        string `json:"poll_interval"`
	CircuitBreakerState string `json:"circuit_breaker_state"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// TradingLoop polls the rules on a fixed interval until stopped
type TradingLoop struct {
	clock    MarketClock
	runner   CycleRunner
	interval time.Duration
	breaker  *CircuitBreaker
	logger   *logrus.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	stopped bool
}

// NewTradingLoop creates a trading loop. breaker may be nil.
func NewTradingLoop(clock MarketClock, runner CycleRunner, interval time.Duration, breaker *CircuitBreaker, logger *logrus.Logger) *TradingLoop {
	return &TradingLoop{
		clock:    clock,
		runner:   runner,
		interval: interval,
		breaker:  breaker,
		logger:   logger,
	}
}

// Start runs cycles until Stop is called or ctx is cancelled. Cancelling ctx
// is routed to Stop: a cycle already in progress runs to completion and the
// loop exits at the next boundary. Each cycle is followed by a sleep of the
// remaining interval; the sleep is cut short by a stop. Cycle errors are
// logged and do not end the loop.
func (l *TradingLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.running = true
	l.stopped = false
	stop := make(chan struct{})
	l.stop = stop
	l.mu.Unlock()

	exited := make(chan struct{})
	defer func() {
		close(exited)
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		l.logger.Info("Trading loop stopped")
	}()

	go func() {
		select {
		case <-ctx.Done():
			l.stopRun(stop)
		case <-exited:
		}
	}()

	l.logger.WithField("poll_interval", l.interval.String()).Info("Trading loop started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stop:
			return nil
		default:
		}

		cycleStart := time.Now()
		if _, err := l.cycle(ctx); err != nil {
			l.logger.WithError(err).Error("Error in trading cycle")
		}

		wait := l.interval - time.Since(cycleStart)
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-stop:
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Stop requests the loop to exit. It is safe to call more than once and
// from any goroutine.
func (l *TradingLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

// stopRun stops the loop only while it is still the run that owns stop
func (l *TradingLoop) stopRun(stop chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop == stop {
		l.stopLocked()
	}
}

func (l *TradingLoop) stopLocked() {
	if !l.running || l.stopped {
		return
	}
	l.stopped = true
	close(l.stop)
	l.logger.Info("Stop requested, will exit after current cycle")
}

// IsRunning reports whether Start is executing
func (l *TradingLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// RunOnce performs a single cycle synchronously. It returns no orders when
// the market is closed.
func (l *TradingLoop) RunOnce(ctx context.Context) ([]string, error) {
	l.logger.Info("Running single evaluation cycle")
	return l.cycle(ctx)
}

// Status returns a snapshot of the loop
func (l *TradingLoop) Status() LoopStatus {
	status := LoopStatus{
		Running:             l.IsRunning(),
		PollInterval:        l.interval.String(),
		CircuitBreakerState: CircuitClosed.String(),
	}
	if l.breaker != nil {
		status.CircuitBreakerState = l.breaker.GetState().String()
		status.ConsecutiveFailures = l.breaker.FailureCount()
	}
	return status
}

// cycle checks market hours and delegates to the runner. Panics are turned
// into cycle errors. The runner gets a context that keeps ctx's values but not
// its cancellation, so an order placed mid-cycle is always recorded and latched.
func (l *TradingLoop) cycle(ctx context.Context) (orderIDs []string, err error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			orderIDs = nil
			err = fmt.Errorf("cycle panic: %v", r)
		}
		metrics.RecordCycle(time.Since(start).Seconds(), err != nil)
		l.recordOutcome(err)
	}()

	open, err := l.clock.IsMarketOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check market hours: %w", err)
	}
	if !open {
		l.logger.Debug("Market closed, skipping cycle")
		return []string{}, nil
	}

	orderIDs, err = l.runner.RunOnce(ctx)
	if len(orderIDs) > 0 {
		l.logger.WithFields(logrus.Fields{
			"orders":    len(orderIDs),
			"order_ids": orderIDs,
		}).Info("Executed orders")
	}
	return orderIDs, err
}

func (l *TradingLoop) recordOutcome(err error) {
	if l.breaker == nil {
		return
	}
	if err != nil {
		l.breaker.RecordFailure(err)
		return
	}
	l.breaker.RecordSuccess()
}
