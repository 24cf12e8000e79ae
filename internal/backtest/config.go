package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yourusername/autotrader/internal/config"
)

// BacktestConfig holds simulation parameters
type BacktestConfig struct {
	InitialCapital decimal.Decimal
	Days           int
	Volatility     float64
	Seed           int64
}

// DefaultBacktestConfig returns the standard simulation parameters
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		InitialCapital: decimal.NewFromInt(100000),
		Days:           30,
		Volatility:     0.02,
	}
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.BacktestConfig) (BacktestConfig, error) {
	if cfg == nil {
		return BacktestConfig{}, fmt.Errorf("backtest config is required")
	}

	bt := BacktestConfig{
		InitialCapital: decimal.NewFromFloat(cfg.InitialCapital),
		Days:           cfg.Days,
		Volatility:     cfg.Volatility,
		Seed:           cfg.Seed,
	}
	return bt, bt.Validate()
}

// Validate validates backtest config parameters
func (b BacktestConfig) Validate() error {
	if !b.InitialCapital.IsPositive() {
		return fmt.Errorf("initial capital must be positive")
	}
	if b.Days <= 0 {
		return fmt.Errorf("days must be positive")
	}
	if b.Volatility < 0 || b.Volatility >= 1 {
		return fmt.Errorf("volatility must be between 0 and 1")
	}
	return nil
}
