package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourusername/autotrader/internal/models"
)

var hundred = decimal.NewFromInt(100)

// GenerateConsoleReport formats a result for terminal output. maxTrades
// limits the trade listing; zero omits it.
func GenerateConsoleReport(result *models.BacktestResult, curve EquityCurve, maxTrades int) string {
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Period: %s to %s\n",
		result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02")))
	builder.WriteString(fmt.Sprintf("Initial Capital: $%s\n", result.InitialCapital.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Final Capital: $%s\n", result.FinalCapital.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Profit: $%s\n", result.Profit().StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Total Return: %s%%\n", result.TotalReturnPct.Mul(hundred).StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Total Trades: %d\n", result.TotalTrades))
	builder.WriteString(fmt.Sprintf("Winning Trades: %d\n", result.WinningTrades))
	builder.WriteString(fmt.Sprintf("Losing Trades: %d\n", result.LosingTrades))
	builder.WriteString(fmt.Sprintf("Win Rate: %s%%\n", result.WinRate.Mul(hundred).StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %s%%\n", result.MaxDrawdown.Mul(hundred).StringFixed(2)))
	if len(curve) > 1 {
		builder.WriteString(fmt.Sprintf("Daily Volatility: %.2f%%\n", curve.GetVolatility()*100))
	}

	if maxTrades > 0 && len(result.Trades) > 0 {
		builder.WriteString("\nTrades\n------\n")
		for i, trade := range result.Trades {
			if i == maxTrades {
				builder.WriteString(fmt.Sprintf("... and %d more\n", len(result.Trades)-maxTrades))
				break
			}
			builder.WriteString(fmt.Sprintf("%s  %-4s %4d %-6s @ $%s  (rule %s)\n",
				trade.Timestamp.Format("2006-01-02"),
				strings.ToUpper(string(trade.Side)),
				trade.Quantity,
				trade.Symbol,
				trade.Price.StringFixed(2),
				trade.RuleID,
			))
		}
	}
	return builder.String()
}

// GenerateCSVExport writes the equity curve for spreadsheets
func GenerateCSVExport(curve EquityCurve, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte(curve.ToCSV()), 0o644)
}
