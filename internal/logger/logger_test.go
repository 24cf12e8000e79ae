package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	log := NewLogger("verbose")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log = NewLogger("debug")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewAddsServiceField(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Level: "info", JSON: true, Service: "autotrader", Output: buf})

	log.WithField("symbol", "AAPL").Info("quote")

	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "autotrader", entry["service"])
	assert.Equal(t, "AAPL", entry["symbol"])
}

func TestNewDebugFiltered(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Level: "warn", JSON: true, Output: buf})

	log.Info("dropped")
	assert.Zero(t, buf.Len())
}

func TestAuditLoggerOrderPlacement(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogOrderPlacement("order-1", "abc12345", "AAPL", "buy", 10, decimal.RequireFromString("169.50"), true)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, "order-1", logEntry["order_id"])
	assert.Equal(t, "169.5", logEntry["price"])
	assert.Equal(t, float64(10), logEntry["quantity"])
	assert.Equal(t, true, logEntry["dry_run"])
}

func TestAuditLoggerSafetyRejection(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogSafetyRejection("abc12345", "TSLA", "Kill switch is active")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "Kill switch is active", logEntry["reason"])
}

func TestAuditLoggerKillSwitch(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogKillSwitch(true, "manual")
	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "kill_switch", logEntry["event_type"])
	assert.Equal(t, true, logEntry["active"])

	buf.Reset()
	auditLogger.LogKillSwitch(false, "manual")
	logEntry = parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "info", logEntry["level"])
}

func TestAuditLoggerRuleTriggered(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogRuleTriggered("abc12345", "AAPL", decimal.NewFromInt(168), decimal.NewFromInt(170))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "168", logEntry["price"])
	assert.Equal(t, "170", logEntry["target_price"])
}

func TestAuditLoggerCircuitBreakerEvent(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogCircuitBreakerEvent(
		"OPENED",
		"max_consecutive_failures",
		map[string]interface{}{"failure_count": 5},
		"KILL_SWITCH",
	)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "OPENED", logEntry["event_type"])
	assert.Equal(t, "KILL_SWITCH", logEntry["action_taken"])
}

func BenchmarkAuditLoggerOrderPlacement(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	auditLogger := NewAuditLogger(log)

	for i := 0; i < b.N; i++ {
		auditLogger.LogOrderPlacement("order-1", "abc12345", "AAPL", "buy", 10, decimal.NewFromInt(170), false)
	}
}
