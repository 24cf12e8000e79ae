// Package logger provides audit logging.
package logger

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogOrderPlacement logs an order submitted for a triggered rule.
func (al *AuditLogger) LogOrderPlacement(orderID, ruleID, symbol, side string, quantity int, price decimal.Decimal, dryRun bool) {
	al.WithFields(logrus.Fields{
		"order_id": orderID,
		"rule_id":  ruleID,
		"symbol":   symbol,
		"side":     side,
		"quantity": quantity,
		"price":    price.String(),
		"dry_run":  dryRun,
	}).Info("Order placement recorded")
}

// LogRuleTriggered logs a rule whose condition was met.
func (al *AuditLogger) LogRuleTriggered(ruleID, symbol string, price, target decimal.Decimal) {
	al.WithFields(logrus.Fields{
		"rule_id":      ruleID,
		"symbol":       symbol,
		"price":        price.String(),
		"target_price": target.String(),
	}).Info("Rule triggered")
}

// LogSafetyRejection logs an order vetoed by the safety gate.
func (al *AuditLogger) LogSafetyRejection(ruleID, symbol, reason string) {
	al.WithFields(logrus.Fields{
		"rule_id": ruleID,
		"symbol":  symbol,
		"reason":  reason,
	}).Warn("Order rejected by safety gate")
}

// LogKillSwitch logs kill switch activation or reset.
func (al *AuditLogger) LogKillSwitch(active bool, reason string) {
	entry := al.WithFields(logrus.Fields{
		"event_type": "kill_switch",
		"active":     active,
		"reason":     reason,
	})
	if active {
		entry.Warn("KILL SWITCH ACTIVATED - all trading stopped")
		return
	}
	entry.Info("Kill switch reset")
}

// LogCircuitBreakerEvent logs circuit breaker events.
func (al *AuditLogger) LogCircuitBreakerEvent(eventType, reason string, metricsSnapshot map[string]interface{}, actionTaken string) {
	al.WithFields(logrus.Fields{
		"event_type":       eventType,
		"reason":           reason,
		"metrics_snapshot": metricsSnapshot,
		"action_taken":     actionTaken,
	}).Warn("Circuit breaker event recorded")
}
