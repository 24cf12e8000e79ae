package backtest

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/autotrader/internal/metrics"
	"github.com/yourusername/autotrader/internal/models"
)

// pricePlaces bounds the precision of simulated prices
const pricePlaces = 8

// seedSpread is the half-width of the uniform offset applied to seed prices
const seedSpread = 0.1

var (
	minPrice   = decimal.NewFromInt(1)
	oneDecimal = decimal.NewFromInt(1)
)

// Outcome is a finished simulation with its equity curve
type Outcome struct {
	Result      *models.BacktestResult
	EquityCurve EquityCurve
	FinalPrices map[string]decimal.Decimal
}

// Simulator replays rules against a synthetic random-walk price path
type Simulator struct {
	config BacktestConfig
	rng    *rand.Rand
	now    func() time.Time
	logger *logrus.Logger
}

// NewSimulator creates a simulator. A nil rng is seeded from config.Seed, or
// from the clock when the seed is zero.
func NewSimulator(cfg BacktestConfig, rng *rand.Rand, logger *logrus.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	return &Simulator{
		config: cfg,
		rng:    rng,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Config returns the backtest configuration
func (s *Simulator) Config() BacktestConfig {
	return s.config
}

// Run simulates the rules and returns the summary result
func (s *Simulator) Run(ctx context.Context, rules []*models.Rule) (*models.BacktestResult, error) {
	outcome, err := s.Simulate(ctx, rules)
	if err != nil {
		return nil, err
	}
	return outcome.Result, nil
}

// Simulate runs the configured number of days. Every enabled rule is checked
// each day and may fill repeatedly; rules are never latched here.
func (s *Simulator) Simulate(ctx context.Context, rules []*models.Rule) (*Outcome, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no rules to backtest", models.ErrInvalidInput)
	}

	started := time.Now()
	end := s.now()
	start := end.AddDate(0, 0, -s.config.Days)

	s.logger.WithFields(logrus.Fields{
		"rules":           len(rules),
		"days":            s.config.Days,
		"volatility":      s.config.Volatility,
		"initial_capital": s.config.InitialCapital.String(),
	}).Info("Starting backtest run")

	symbols, prices := s.seedPrices(rules)
	state := NewBacktestState(s.config.InitialCapital, start)

	for day := 0; day < s.config.Days; day++ {
		if err := ctx.Err(); err != nil {
			metrics.RecordBacktestRun("failure", time.Since(started).Seconds())
			return nil, err
		}

		current := start.AddDate(0, 0, day)
		for _, symbol := range symbols {
			prices[symbol] = s.step(prices[symbol])
		}

		for _, rule := range rules {
			if !rule.Enabled {
				continue
			}
			price := prices[rule.Symbol]
			if !rule.ConditionMet(price) {
				continue
			}
			s.fill(state, current, rule, price)
		}

		state.RecordEquityPoint(current, state.Equity(prices))
	}

	result := CalculateResult(state, s.config, start, end)

	metrics.RecordBacktestRun("success", time.Since(started).Seconds())
	metrics.UpdateBacktestReturn(result.TotalReturnPct.Mul(decimal.NewFromInt(100)).InexactFloat64())

	s.logger.WithFields(logrus.Fields{
		"final_capital": result.FinalCapital.StringFixed(2),
		"total_trades":  result.TotalTrades,
		"win_rate":      result.WinRate.StringFixed(4),
		"max_drawdown":  result.MaxDrawdown.StringFixed(4),
	}).Info("Backtest completed")

	return &Outcome{
		Result:      result,
		EquityCurve: state.EquityCurve,
		FinalPrices: prices,
	}, nil
}

// seedPrices starts each symbol near the target of the first rule naming it
func (s *Simulator) seedPrices(rules []*models.Rule) ([]string, map[string]decimal.Decimal) {
	symbols := make([]string, 0)
	prices := make(map[string]decimal.Decimal)
	for _, rule := range rules {
		if _, ok := prices[rule.Symbol]; ok {
			continue
		}
		offset := decimal.NewFromFloat(s.rng.Float64()*2*seedSpread - seedSpread)
		prices[rule.Symbol] = rule.TargetPrice.Mul(oneDecimal.Add(offset)).Round(pricePlaces)
		symbols = append(symbols, rule.Symbol)
	}
	return symbols, prices
}

// step applies one Gaussian daily return, floored at minPrice
func (s *Simulator) step(price decimal.Decimal) decimal.Decimal {
	change := decimal.NewFromFloat(s.rng.NormFloat64() * s.config.Volatility)
	next := price.Mul(oneDecimal.Add(change)).Round(pricePlaces)
	if next.LessThan(minPrice) {
		return minPrice
	}
	return next
}

func (s *Simulator) fill(state *BacktestState, at time.Time, rule *models.Rule, price decimal.Decimal) {
	var filled bool
	switch rule.Action {
	case models.RuleActionBuy:
		filled = state.Buy(at, rule, price)
	case models.RuleActionSell:
		filled = state.Sell(at, rule, price)
	default:
		panic(fmt.Sprintf("backtest: unhandled rule action %q", string(rule.Action)))
	}

	s.logger.WithFields(logrus.Fields{
		"rule_id": rule.ID,
		"symbol":  rule.Symbol,
		"action":  string(rule.Action),
		"price":   price.StringFixed(2),
		"filled":  filled,
	}).Debug("Backtest rule triggered")
}
