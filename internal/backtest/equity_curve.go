package backtest

import (
	"bytes"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint represents a point in the equity curve
type EquityPoint struct {
	Time     time.Time       `json:"time"`
	Value    decimal.Decimal `json:"value"`
	Drawdown decimal.Decimal `json:"drawdown"`
}

// EquityCurve is the append-only series of daily portfolio values
type EquityCurve []EquityPoint

// Append returns the curve with a new point whose drawdown is measured
// against the running peak
func (e EquityCurve) Append(t time.Time, value decimal.Decimal) EquityCurve {
	peak := value
	for _, p := range e {
		if p.Value.GreaterThan(peak) {
			peak = p.Value
		}
	}

	drawdown := decimal.Zero
	if peak.IsPositive() && value.LessThan(peak) {
		drawdown = peak.Sub(value).Div(peak)
	}
	return append(e, EquityPoint{Time: t, Value: value, Drawdown: drawdown})
}

// Values returns the equity samples in order
func (e EquityCurve) Values() []decimal.Decimal {
	values := make([]decimal.Decimal, len(e))
	for i, p := range e {
		values[i] = p.Value
	}
	return values
}

// GetReturns calculates periodic returns from equity curve
func (e EquityCurve) GetReturns() []float64 {
	if len(e) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(e)-1)
	for i := 1; i < len(e); i++ {
		prev := e[i-1].Value
		if prev.IsZero() {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, e[i].Value.Sub(prev).Div(prev).InexactFloat64())
	}
	return returns
}

// GetVolatility calculates standard deviation of returns
func (e EquityCurve) GetVolatility() float64 {
	returns := e.GetReturns()
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// ToCSV exports equity curve to CSV string
func (e EquityCurve) ToCSV() string {
	var buf bytes.Buffer
	buf.WriteString("time,value,drawdown\n")
	for _, point := range e {
		buf.WriteString(point.Time.Format(time.RFC3339))
		buf.WriteString(",")
		buf.WriteString(point.Value.StringFixed(2))
		buf.WriteString(",")
		buf.WriteString(point.Drawdown.StringFixed(6))
		buf.WriteString("\n")
	}
	return buf.String()
}
