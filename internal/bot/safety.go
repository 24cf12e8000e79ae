package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/autotrader/internal/config"
	"github.com/yourusername/autotrader/internal/logger"
	"github.com/yourusername/autotrader/internal/metrics"
	"github.com/yourusername/autotrader/internal/models"
)

// SafetyLimits are the hard risk limits checked before every order
type SafetyLimits struct {
	MaxPositionSize  int             `json:"max_position_size"`
	MaxPositionValue decimal.Decimal `json:"max_position_value"`
	MaxDailyLoss     decimal.Decimal `json:"max_daily_loss"`
	MaxDailyTrades   int             `json:"max_daily_trades"`
	MaxOrderValue    decimal.Decimal `json:"max_order_value"`
}

// DefaultSafetyLimits returns the conservative built-in limits
func DefaultSafetyLimits() SafetyLimits {
	return SafetyLimits{
		MaxPositionSize:  100,
		MaxPositionValue: decimal.NewFromInt(10000),
		MaxDailyLoss:     decimal.NewFromInt(500),
		MaxDailyTrades:   50,
		MaxOrderValue:    decimal.NewFromInt(5000),
	}
}

// SafetyLimitsFromConfig converts the configured limits
func SafetyLimitsFromConfig(cfg *config.SafetyConfig) SafetyLimits {
	maxPositionValue, maxDailyLoss, maxOrderValue := cfg.Limits()
	return SafetyLimits{
		MaxPositionSize:  cfg.MaxPositionSize,
		MaxPositionValue: maxPositionValue,
		MaxDailyLoss:     maxDailyLoss,
		MaxDailyTrades:   cfg.MaxDailyTrades,
		MaxOrderValue:    maxOrderValue,
	}
}

// Verdict is the outcome of a safety check. Reason is "OK" when allowed.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

func allow() Verdict {
	return Verdict{Allowed: true, Reason: "OK"}
}

func deny(format string, args ...interface{}) Verdict {
	return Verdict{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// AccountReader is the read-only broker surface the gate consults
type AccountReader interface {
	GetPosition(ctx context.Context, symbol string) (*models.Position, error)
	GetAccount(ctx context.Context) (*models.Account, error)
}

// Ledger reports today's trading activity
type Ledger interface {
	GetTotalTodayPnL(ctx context.Context) (decimal.Decimal, error)
	GetTradeCountToday(ctx context.Context) (int, error)
}

// SafetyStatus is a read-only snapshot of the gate
type SafetyStatus struct {
	KillSwitch        bool            `json:"kill_switch"`
	DailyPnL          decimal.Decimal `json:"daily_pnl"`
	DailyPnLLimit     decimal.Decimal `json:"daily_pnl_limit"`
	DailyPnLRemaining decimal.Decimal `json:"daily_pnl_remaining"`
	TradeCount        int             `json:"trade_count"`
	TradeLimit        int             `json:"trade_limit"`
	TradesRemaining   int             `json:"trades_remaining"`
	CanTrade          bool            `json:"can_trade"`
	Reason            string          `json:"reason"`
}

// SafetyGate vetoes orders that would breach the configured limits. It only
// reads from the broker and the ledger.
type SafetyGate struct {
	broker AccountReader
	ledger Ledger
	limits SafetyLimits
	logger *logrus.Logger
	audit  *logger.AuditLogger

	mu     sync.RWMutex
	killed bool
}

// NewSafetyGate creates a safety gate
func NewSafetyGate(broker AccountReader, ledger Ledger, limits SafetyLimits, log *logrus.Logger) *SafetyGate {
	return &SafetyGate{
		broker: broker,
		ledger: ledger,
		limits: limits,
		logger: log,
		audit:  logger.NewAuditLogger(log),
	}
}

// Limits returns the configured limits
func (g *SafetyGate) Limits() SafetyLimits {
	return g.limits
}

// Kill engages the kill switch. All subsequent checks are denied until Reset.
func (g *SafetyGate) Kill(reason string) {
	g.mu.Lock()
	g.killed = true
	g.mu.Unlock()

	metrics.SetKillSwitch(true)
	g.audit.LogKillSwitch(true, reason)
}

// Reset releases the kill switch
func (g *SafetyGate) Reset() {
	g.mu.Lock()
	g.killed = false
	g.mu.Unlock()

	metrics.SetKillSwitch(false)
	g.audit.LogKillSwitch(false, "manual reset")
}

// IsKilled reports whether the kill switch is engaged
func (g *SafetyGate) IsKilled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.killed
}

// CheckCanTrade checks the kill switch, the daily loss limit and the daily
// trade count, in that order. The first failing check decides the verdict.
func (g *SafetyGate) CheckCanTrade(ctx context.Context) Verdict {
	if g.IsKilled() {
		return deny("Kill switch is active")
	}

	pnl, err := g.ledger.GetTotalTodayPnL(ctx)
	if err != nil {
		g.logger.WithError(err).Error("Failed to read daily P&L")
		return deny("Unable to read daily P&L: %v", err)
	}
	metrics.UpdateDailyPnL(pnl.InexactFloat64())

	if pnl.LessThan(g.limits.MaxDailyLoss.Neg()) {
		g.logger.WithFields(logrus.Fields{
			"daily_pnl": pnl.StringFixed(2),
			"limit":     g.limits.MaxDailyLoss.Neg().StringFixed(2),
		}).Warn("Daily loss limit reached")
		return deny("Daily loss limit reached: $%s", pnl.StringFixed(2))
	}

	count, err := g.ledger.GetTradeCountToday(ctx)
	if err != nil {
		g.logger.WithError(err).Error("Failed to read daily trade count")
		return deny("Unable to read daily trade count: %v", err)
	}

	if count >= g.limits.MaxDailyTrades {
		g.logger.WithFields(logrus.Fields{
			"trade_count": count,
			"limit":       g.limits.MaxDailyTrades,
		}).Warn("Daily trade limit reached")
		return deny("Daily trade limit reached: %d trades", count)
	}

	return allow()
}

// CheckOrder checks whether a specific order may be placed. Position value
// and buying power are only checked for buys.
func (g *SafetyGate) CheckOrder(ctx context.Context, symbol string, quantity int, price decimal.Decimal, isBuy bool) Verdict {
	if v := g.CheckCanTrade(ctx); !v.Allowed {
		return v
	}

	orderValue := price.Mul(decimal.NewFromInt(int64(quantity)))

	if orderValue.GreaterThan(g.limits.MaxOrderValue) {
		return deny("Order value $%s exceeds limit $%s",
			orderValue.StringFixed(2), g.limits.MaxOrderValue.StringFixed(2))
	}

	if quantity > g.limits.MaxPositionSize {
		return deny("Quantity %d exceeds position size limit %d", quantity, g.limits.MaxPositionSize)
	}

	if !isBuy {
		return allow()
	}

	position, err := g.broker.GetPosition(ctx, symbol)
	if err != nil {
		g.logger.WithError(err).WithField("symbol", symbol).Error("Failed to read position")
		return deny("Unable to read position for %s: %v", symbol, err)
	}
	currentValue := decimal.Zero
	if position != nil {
		currentValue = position.MarketValue
	}

	newValue := currentValue.Add(orderValue)
	if newValue.GreaterThan(g.limits.MaxPositionValue) {
		return deny("Position value $%s would exceed limit $%s",
			newValue.StringFixed(2), g.limits.MaxPositionValue.StringFixed(2))
	}

	account, err := g.broker.GetAccount(ctx)
	if err != nil {
		g.logger.WithError(err).Error("Failed to read account")
		return deny("Unable to read account: %v", err)
	}
	if orderValue.GreaterThan(account.BuyingPower) {
		return deny("Insufficient buying power: need $%s, have $%s",
			orderValue.StringFixed(2), account.BuyingPower.StringFixed(2))
	}

	return allow()
}

// Status returns a snapshot of the kill switch and today's usage
func (g *SafetyGate) Status(ctx context.Context) (SafetyStatus, error) {
	pnl, err := g.ledger.GetTotalTodayPnL(ctx)
	if err != nil {
		return SafetyStatus{}, fmt.Errorf("failed to read daily P&L: %w", err)
	}
	count, err := g.ledger.GetTradeCountToday(ctx)
	if err != nil {
		return SafetyStatus{}, fmt.Errorf("failed to read daily trade count: %w", err)
	}

	verdict := g.CheckCanTrade(ctx)
	return SafetyStatus{
		KillSwitch:        g.IsKilled(),
		DailyPnL:          pnl,
		DailyPnLLimit:     g.limits.MaxDailyLoss.Neg(),
		DailyPnLRemaining: g.limits.MaxDailyLoss.Add(pnl),
		TradeCount:        count,
		TradeLimit:        g.limits.MaxDailyTrades,
		TradesRemaining:   g.limits.MaxDailyTrades - count,
		CanTrade:          verdict.Allowed,
		Reason:            verdict.Reason,
	}, nil
}
