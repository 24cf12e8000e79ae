package backtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/autotrader/internal/models"
)

func trade(symbol string, side models.OrderSide, price int64) models.BacktestTrade {
	return models.BacktestTrade{Symbol: symbol, Side: side, Quantity: 1, Price: decimal.NewFromInt(price)}
}

func decimals(values ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func TestPairTradesFIFO(t *testing.T) {
	trades := []models.BacktestTrade{
		trade("AAPL", models.OrderSideBuy, 100),
		trade("AAPL", models.OrderSideBuy, 110),
		trade("AAPL", models.OrderSideSell, 105),
		trade("AAPL", models.OrderSideSell, 120),
	}

	winning, losing := PairTrades(trades)
	assert.Equal(t, 2, winning)
	assert.Equal(t, 0, losing)
}

func TestPairTradesPerSymbol(t *testing.T) {
	trades := []models.BacktestTrade{
		trade("AAPL", models.OrderSideBuy, 100),
		trade("MSFT", models.OrderSideBuy, 400),
		trade("MSFT", models.OrderSideSell, 390),
		trade("AAPL", models.OrderSideSell, 100),
		trade("TSLA", models.OrderSideSell, 200),
	}

	winning, losing := PairTrades(trades)
	assert.Equal(t, 0, winning)
	assert.Equal(t, 2, losing)
}

func TestWinRate(t *testing.T) {
	assert.True(t, WinRate(0, 0).IsZero())
	assert.True(t, WinRate(3, 1).Equal(decimal.RequireFromString("0.75")))
	assert.True(t, WinRate(2, 0).Equal(decimal.NewFromInt(1)))
}

func TestMaxDrawdown(t *testing.T) {
	dd := MaxDrawdown(decimals(100000, 110000, 90000, 95000))

	expected := decimal.NewFromInt(20000).Div(decimal.NewFromInt(110000))
	assert.True(t, dd.Equal(expected), "got %s", dd)
	assert.InDelta(t, 0.1818, dd.InexactFloat64(), 0.0001)
}

func TestMaxDrawdownMonotonic(t *testing.T) {
	assert.True(t, MaxDrawdown(decimals(100, 110, 120)).IsZero())
	assert.True(t, MaxDrawdown(nil).IsZero())
}

func TestMaxDrawdownUsesRunningPeak(t *testing.T) {
	// The later, deeper dip off a higher peak dominates.
	dd := MaxDrawdown(decimals(100, 80, 200, 120))
	assert.True(t, dd.Equal(decimal.RequireFromString("0.4")), "got %s", dd)
}

func TestEquityCurveAppendTracksDrawdown(t *testing.T) {
	now := time.Now()
	var curve EquityCurve
	for i, v := range []int64{100, 120, 90} {
		curve = curve.Append(now.AddDate(0, 0, i), decimal.NewFromInt(v))
	}

	require.Len(t, curve, 3)
	assert.True(t, curve[1].Drawdown.IsZero())
	assert.True(t, curve[2].Drawdown.Equal(decimal.RequireFromString("0.25")))
	assert.Len(t, curve.GetReturns(), 2)
	assert.Greater(t, curve.GetVolatility(), 0.0)
	assert.True(t, strings.HasPrefix(curve.ToCSV(), "time,value,drawdown\n"))
}

func TestCalculateResult(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)
	cfg := DefaultBacktestConfig()

	state := NewBacktestState(cfg.InitialCapital, start)
	state.RecordEquityPoint(start.AddDate(0, 0, 1), decimal.NewFromInt(110000))
	state.RecordEquityPoint(start.AddDate(0, 0, 2), decimal.NewFromInt(90000))
	state.RecordEquityPoint(start.AddDate(0, 0, 3), decimal.NewFromInt(105000))
	state.Trades = []models.BacktestTrade{
		trade("AAPL", models.OrderSideBuy, 100),
		trade("AAPL", models.OrderSideSell, 90),
		trade("AAPL", models.OrderSideBuy, 100),
	}

	result := CalculateResult(state, cfg, start, end)

	assert.Equal(t, start, result.StartDate)
	assert.Equal(t, end, result.EndDate)
	assert.True(t, result.FinalCapital.Equal(decimal.NewFromInt(105000)))
	assert.True(t, result.TotalReturn.Equal(decimal.NewFromInt(5000)))
	assert.True(t, result.TotalReturnPct.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 3, result.TotalTrades)
	assert.Equal(t, 0, result.WinningTrades)
	assert.Equal(t, 1, result.LosingTrades)
	assert.True(t, result.WinRate.IsZero())
	assert.InDelta(t, 0.1818, result.MaxDrawdown.InexactFloat64(), 0.0001)
}

func TestGenerateConsoleReport(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := &models.BacktestResult{
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, 30),
		InitialCapital: decimal.NewFromInt(100000),
		FinalCapital:   decimal.NewFromInt(102500),
		TotalReturn:    decimal.NewFromInt(2500),
		TotalReturnPct: decimal.RequireFromString("0.025"),
		TotalTrades:    2,
		WinningTrades:  1,
		WinRate:        decimal.NewFromInt(1),
		MaxDrawdown:    decimal.RequireFromString("0.031"),
		Trades: []models.BacktestTrade{
			{Timestamp: start, Symbol: "AAPL", Side: models.OrderSideBuy, Quantity: 10, Price: decimal.NewFromInt(170), RuleID: "r1"},
			{Timestamp: start.AddDate(0, 0, 5), Symbol: "AAPL", Side: models.OrderSideSell, Quantity: 10, Price: decimal.NewFromInt(180), RuleID: "r2"},
		},
	}

	report := GenerateConsoleReport(result, nil, 1)

	assert.Contains(t, report, "Profit: $2500.00")
	assert.Contains(t, report, "Total Return: 2.50%")
	assert.Contains(t, report, "Win Rate: 100.00%")
	assert.Contains(t, report, "Max Drawdown: 3.10%")
	assert.Contains(t, report, "BUY")
	assert.Contains(t, report, "... and 1 more")
}

func TestGenerateCSVExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "equity.csv")
	curve := EquityCurve{}.Append(time.Now(), decimal.NewFromInt(100000))

	require.NoError(t, GenerateCSVExport(curve, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "100000.00")
}

func TestFromConfigValidation(t *testing.T) {
	_, err := FromConfig(nil)
	assert.Error(t, err)

	cfg := DefaultBacktestConfig()
	cfg.Volatility = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultBacktestConfig()
	cfg.InitialCapital = decimal.Zero
	assert.Error(t, cfg.Validate())
}
