package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/autotrader/internal/broker"
	"github.com/yourusername/autotrader/internal/logger"
	"github.com/yourusername/autotrader/internal/metrics"
	"github.com/yourusername/autotrader/internal/models"
)

// dryRunPrefix marks order ids that were never sent to the broker
const dryRunPrefix = "dry-run-"

// RuleStore is the rule persistence the evaluator reads and latches
type RuleStore interface {
	Load(ctx context.Context) ([]*models.Rule, error)
	MarkTriggered(ctx context.Context, id string) (bool, error)
}

// TradeLedger records executed trades and answers the safety gate's queries
type TradeLedger interface {
	Ledger
	Record(ctx context.Context, trade *models.Trade) error
}

// Evaluator runs every active rule once against live prices
type Evaluator struct {
	broker broker.Broker
	rules  RuleStore
	ledger TradeLedger
	gate   *SafetyGate
	dryRun bool
	logger *logrus.Logger
	audit  *logger.AuditLogger
}

// NewEvaluator creates a rule evaluator
func NewEvaluator(b broker.Broker, rules RuleStore, ledger TradeLedger, gate *SafetyGate, dryRun bool, log *logrus.Logger) *Evaluator {
	return &Evaluator{
		broker: b,
		rules:  rules,
		ledger: ledger,
		gate:   gate,
		dryRun: dryRun,
		logger: log,
		audit:  logger.NewAuditLogger(log),
	}
}

// DryRun reports whether orders are simulated
func (e *Evaluator) DryRun() bool {
	return e.dryRun
}

// RunOnce evaluates all active rules in file order and returns the ids of
// orders placed. A failing rule does not stop the others; all rule failures
// are joined into the returned error.
func (e *Evaluator) RunOnce(ctx context.Context) ([]string, error) {
	rules, err := e.rules.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	active := make([]*models.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.IsActive() {
			active = append(active, rule)
		}
	}
	metrics.UpdateActiveRules(len(active))

	if len(active) == 0 {
		e.logger.Debug("No active rules")
		return []string{}, nil
	}
	e.logger.WithField("active_rules", len(active)).Debug("Evaluating rules")

	orderIDs := make([]string, 0)
	var errs []error
	for _, rule := range active {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		orderID, err := e.evaluate(ctx, rule)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"rule_id": rule.ID,
				"symbol":  rule.Symbol,
				"error":   err.Error(),
			}).Error("Rule evaluation failed")
			errs = append(errs, fmt.Errorf("rule %s: %w", rule.ID, err))
			continue
		}
		if orderID != "" {
			orderIDs = append(orderIDs, orderID)
		}
	}

	return orderIDs, errors.Join(errs...)
}

// evaluate returns the order id, or "" when the rule did not fire or was vetoed
func (e *Evaluator) evaluate(ctx context.Context, rule *models.Rule) (string, error) {
	price, err := e.broker.GetQuote(ctx, rule.Symbol)
	if err != nil {
		return "", fmt.Errorf("failed to get quote: %w", err)
	}

	if !rule.Check(price) {
		e.logger.WithFields(logrus.Fields{
			"rule_id": rule.ID,
			"symbol":  rule.Symbol,
			"price":   price.String(),
			"target":  rule.TargetPrice.String(),
		}).Debug("Rule condition not met")
		return "", nil
	}

	metrics.RecordRuleTrigger(rule.Symbol)
	e.audit.LogRuleTriggered(rule.ID, rule.Symbol, price, rule.TargetPrice)

	side := rule.Action.Side()
	verdict := e.gate.CheckOrder(ctx, rule.Symbol, rule.Quantity, price, side == models.OrderSideBuy)
	if !verdict.Allowed {
		metrics.RecordSafetyRejection()
		e.audit.LogSafetyRejection(rule.ID, rule.Symbol, verdict.Reason)
		return "", nil
	}

	if e.dryRun {
		orderID := dryRunPrefix + rule.ID
		metrics.RecordOrderPlaced(string(side), "dry_run", 0)
		e.audit.LogOrderPlacement(orderID, rule.ID, rule.Symbol, string(side), rule.Quantity, price, true)
		return orderID, nil
	}

	realized, err := e.realizedPnL(ctx, rule, price)
	if err != nil {
		return "", err
	}

	start := time.Now()
	order := models.NewMarketOrder(rule.Symbol, side, rule.Quantity).WithClientOrderID(rule.ID)
	orderID, err := e.broker.PlaceOrder(ctx, order)
	if err != nil {
		return "", fmt.Errorf("failed to place order: %w", err)
	}
	metrics.RecordOrderPlaced(string(side), "live", time.Since(start).Seconds())
	e.audit.LogOrderPlacement(orderID, rule.ID, rule.Symbol, string(side), rule.Quantity, price, false)

	// The order is live; bookkeeping must not be cut short by cancellation and
	// its failures are only logged.
	ctx = context.WithoutCancel(ctx)
	trade := &models.Trade{
		OrderID:     orderID,
		RuleID:      rule.ID,
		Symbol:      rule.Symbol,
		Side:        side,
		Quantity:    rule.Quantity,
		Price:       price,
		RealizedPnL: realized,
	}
	if err := e.ledger.Record(ctx, trade); err != nil {
		e.logger.WithError(err).WithField("order_id", orderID).Error("Failed to record trade")
	} else {
		e.logger.WithFields(logrus.Fields{
			"order_id":     orderID,
			"notional":     trade.Notional().StringFixed(2),
			"realized_pnl": realized.StringFixed(2),
		}).Debug("Trade recorded")
	}

	if _, err := e.rules.MarkTriggered(ctx, rule.ID); err != nil {
		e.logger.WithError(err).WithField("rule_id", rule.ID).Error("Failed to mark rule triggered")
	}

	return orderID, nil
}

// realizedPnL prices a sell against the position's average entry. Buys and
// sells without a position realize nothing.
func (e *Evaluator) realizedPnL(ctx context.Context, rule *models.Rule, price decimal.Decimal) (decimal.Decimal, error) {
	if rule.Action != models.RuleActionSell {
		return decimal.Zero, nil
	}

	position, err := e.broker.GetPosition(ctx, rule.Symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read position: %w", err)
	}
	if position == nil || position.Quantity <= 0 {
		return decimal.Zero, nil
	}

	qty := rule.Quantity
	if position.Quantity < qty {
		qty = position.Quantity
	}
	return price.Sub(position.AvgEntryPrice).Mul(decimal.NewFromInt(int64(qty))), nil
}
