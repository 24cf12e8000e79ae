// Package metrics provides centralized Prometheus metrics registry for the trading bot.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autotrader"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	CyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Total number of trading cycles run",
	})
	CycleFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycle_failures_total",
		Help:      "Total number of trading cycles that failed",
	})
	OrdersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_placed_total",
		Help:      "Total number of orders placed by side and mode",
	}, []string{"side", "mode"})
	RuleTriggersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rule_triggers_total",
		Help:      "Total number of rule conditions met by symbol",
	}, []string{"symbol"})
	SafetyRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "safety_rejections_total",
		Help:      "Total number of orders rejected by the safety gate",
	})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of circuit breaker trips",
	})
	BrokerRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broker_requests_total",
		Help:      "Total number of broker API requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
	QuoteCacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quote_cache_lookups_total",
		Help:      "Quote cache lookups by result",
	}, []string{"result"})
)

// Gauge metrics
var (
	KillSwitchActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "kill_switch_active",
		Help:      "1 when the kill switch is engaged",
	})
	DailyPnL = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daily_pnl",
		Help:      "Realized profit and loss for the current day",
	})
	ActiveRules = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_rules",
		Help:      "Number of enabled, untriggered rules at the last cycle",
	})
)

// Histogram metrics
var (
	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of trading cycles in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	OrderPlacementLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_placement_latency_seconds",
		Help:      "Latency of order placement operations in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(CyclesTotal)
		registry.MustRegister(CycleFailuresTotal)
		registry.MustRegister(OrdersPlacedTotal)
		registry.MustRegister(RuleTriggersTotal)
		registry.MustRegister(SafetyRejectionsTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)
		registry.MustRegister(BrokerRequestsTotal)
		registry.MustRegister(QuoteCacheLookupsTotal)

		registry.MustRegister(KillSwitchActive)
		registry.MustRegister(DailyPnL)
		registry.MustRegister(ActiveRules)

		registry.MustRegister(CycleDuration)
		registry.MustRegister(OrderPlacementLatency)

		// Register backtest metrics
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestDuration)
		registry.MustRegister(BacktestReturnPct)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordCycle records a completed trading cycle.
func RecordCycle(durationSeconds float64, failed bool) {
	CyclesTotal.Inc()
	CycleDuration.Observe(durationSeconds)
	if failed {
		CycleFailuresTotal.Inc()
	}
}

// RecordOrderPlaced records an order submission. mode is "live" or "dry_run".
func RecordOrderPlaced(side, mode string, latencySeconds float64) {
	OrdersPlacedTotal.WithLabelValues(side, mode).Inc()
	OrderPlacementLatency.Observe(latencySeconds)
}

// RecordRuleTrigger records a rule whose condition was met.
func RecordRuleTrigger(symbol string) {
	RuleTriggersTotal.WithLabelValues(symbol).Inc()
}

// RecordSafetyRejection records an order denied by the safety gate.
func RecordSafetyRejection() {
	SafetyRejectionsTotal.Inc()
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// RecordBrokerRequest records a broker API call outcome.
func RecordBrokerRequest(endpoint, outcome string) {
	BrokerRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RecordQuoteCacheLookup records a quote cache hit or miss.
func RecordQuoteCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	QuoteCacheLookupsTotal.WithLabelValues(result).Inc()
}

// SetKillSwitch updates the kill switch gauge.
func SetKillSwitch(active bool) {
	if active {
		KillSwitchActive.Set(1)
		return
	}
	KillSwitchActive.Set(0)
}

// UpdateDailyPnL updates the daily P&L gauge.
func UpdateDailyPnL(pnl float64) {
	DailyPnL.Set(pnl)
}

// UpdateActiveRules updates the active rules gauge.
func UpdateActiveRules(count int) {
	ActiveRules.Set(float64(count))
}
