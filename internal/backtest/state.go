package backtest

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/autotrader/internal/models"
)

// Holding is a simulated position
type Holding struct {
	Quantity int
	AvgPrice decimal.Decimal
}

// BacktestState tracks cash, holdings and fills during a simulation
type BacktestState struct {
	Cash        decimal.Decimal
	Positions   map[string]*Holding
	Trades      []models.BacktestTrade
	EquityCurve EquityCurve
}

// NewBacktestState initializes backtest state. The equity curve starts with
// the initial capital.
func NewBacktestState(initialCapital decimal.Decimal, start time.Time) *BacktestState {
	state := &BacktestState{
		Cash:      initialCapital,
		Positions: make(map[string]*Holding),
		Trades:    []models.BacktestTrade{},
	}
	state.EquityCurve = state.EquityCurve.Append(start, initialCapital)
	return state
}

// Buy debits cash and merges the fill into the holding at volume-weighted
// average cost. It reports false without changing state when cash is short.
func (s *BacktestState) Buy(at time.Time, rule *models.Rule, price decimal.Decimal) bool {
	cost := rule.Notional(price)
	if s.Cash.LessThan(cost) {
		return false
	}

	s.Cash = s.Cash.Sub(cost)
	if h, ok := s.Positions[rule.Symbol]; ok {
		newQty := h.Quantity + rule.Quantity
		h.AvgPrice = h.AvgPrice.Mul(decimal.NewFromInt(int64(h.Quantity))).
			Add(cost).
			Div(decimal.NewFromInt(int64(newQty)))
		h.Quantity = newQty
	} else {
		s.Positions[rule.Symbol] = &Holding{Quantity: rule.Quantity, AvgPrice: price}
	}

	s.Trades = append(s.Trades, models.BacktestTrade{
		Timestamp: at,
		Symbol:    rule.Symbol,
		Side:      models.OrderSideBuy,
		Quantity:  rule.Quantity,
		Price:     price,
		RuleID:    rule.ID,
	})
	return true
}

// Sell credits cash for up to the held quantity. It reports false when
// nothing is held.
func (s *BacktestState) Sell(at time.Time, rule *models.Rule, price decimal.Decimal) bool {
	h, ok := s.Positions[rule.Symbol]
	if !ok {
		return false
	}

	qty := rule.Quantity
	if h.Quantity < qty {
		qty = h.Quantity
	}
	s.Cash = s.Cash.Add(price.Mul(decimal.NewFromInt(int64(qty))))

	if qty >= h.Quantity {
		delete(s.Positions, rule.Symbol)
	} else {
		h.Quantity -= qty
	}

	s.Trades = append(s.Trades, models.BacktestTrade{
		Timestamp: at,
		Symbol:    rule.Symbol,
		Side:      models.OrderSideSell,
		Quantity:  qty,
		Price:     price,
		RuleID:    rule.ID,
	})
	return true
}

// Equity marks holdings to the given prices and adds cash
func (s *BacktestState) Equity(prices map[string]decimal.Decimal) decimal.Decimal {
	equity := s.Cash
	for symbol, h := range s.Positions {
		equity = equity.Add(prices[symbol].Mul(decimal.NewFromInt(int64(h.Quantity))))
	}
	return equity
}

// RecordEquityPoint appends the day's equity to the curve
func (s *BacktestState) RecordEquityPoint(t time.Time, value decimal.Decimal) {
	s.EquityCurve = s.EquityCurve.Append(t, value)
}
