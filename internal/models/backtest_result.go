package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestTrade is a simulated fill produced during a backtest
type BacktestTrade struct {
	Timestamp time.Time       `json:"timestamp"`
	Symbol    string          `json:"symbol"`
	Side      OrderSide       `json:"side"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	RuleID    string          `json:"rule_id"`
}

// BacktestResult summarizes a completed simulation run
type BacktestResult struct {
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	FinalCapital   decimal.Decimal `json:"final_capital"`
	TotalReturn    decimal.Decimal `json:"total_return"`
	TotalReturnPct decimal.Decimal `json:"total_return_pct"`
	TotalTrades    int             `json:"total_trades"`
	WinningTrades  int             `json:"winning_trades"`
	LosingTrades   int             `json:"losing_trades"`
	WinRate        decimal.Decimal `json:"win_rate"`
	MaxDrawdown    decimal.Decimal `json:"max_drawdown"`
	Trades         []BacktestTrade `json:"trades"`
}

// Profit returns final minus initial capital
func (r *BacktestResult) Profit() decimal.Decimal {
	return r.FinalCapital.Sub(r.InitialCapital)
}
