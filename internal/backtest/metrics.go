package backtest

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/autotrader/internal/models"
)

// MaxDrawdown returns the largest (peak - value) / peak over the series,
// with peak the running maximum
func MaxDrawdown(values []decimal.Decimal) decimal.Decimal {
	maxDD := decimal.Zero
	if len(values) == 0 {
		return maxDD
	}

	peak := values[0]
	for _, v := range values {
		if v.GreaterThan(peak) {
			peak = v
		}
		if !peak.IsPositive() {
			continue
		}
		drawdown := peak.Sub(v).Div(peak)
		if drawdown.GreaterThan(maxDD) {
			maxDD = drawdown
		}
	}
	return maxDD
}

// PairTrades matches each sell with the oldest unmatched buy of the same
// symbol. A pair wins when the sell price is above the buy price. Sells with
// no open buy are ignored.
func PairTrades(trades []models.BacktestTrade) (winning, losing int) {
	openBuys := make(map[string][]decimal.Decimal)
	for _, trade := range trades {
		switch trade.Side {
		case models.OrderSideBuy:
			openBuys[trade.Symbol] = append(openBuys[trade.Symbol], trade.Price)
		case models.OrderSideSell:
			queue := openBuys[trade.Symbol]
			if len(queue) == 0 {
				continue
			}
			buyPrice := queue[0]
			openBuys[trade.Symbol] = queue[1:]
			if trade.Price.GreaterThan(buyPrice) {
				winning++
			} else {
				losing++
			}
		}
	}
	return winning, losing
}

// WinRate returns winning / (winning + losing), or zero with no pairs
func WinRate(winning, losing int) decimal.Decimal {
	total := winning + losing
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(winning)).Div(decimal.NewFromInt(int64(total)))
}

// CalculateResult derives the summary statistics of a finished run
func CalculateResult(state *BacktestState, cfg BacktestConfig, start, end time.Time) *models.BacktestResult {
	result := &models.BacktestResult{
		StartDate:      start,
		EndDate:        end,
		InitialCapital: cfg.InitialCapital,
		FinalCapital:   cfg.InitialCapital,
		Trades:         state.Trades,
		TotalTrades:    len(state.Trades),
	}

	if n := len(state.EquityCurve); n > 0 {
		result.FinalCapital = state.EquityCurve[n-1].Value
	}

	result.TotalReturn = result.FinalCapital.Sub(cfg.InitialCapital)
	result.TotalReturnPct = result.TotalReturn.Div(cfg.InitialCapital)
	result.WinningTrades, result.LosingTrades = PairTrades(state.Trades)
	result.WinRate = WinRate(result.WinningTrades, result.LosingTrades)
	result.MaxDrawdown = MaxDrawdown(state.EquityCurve.Values())
	return result
}
