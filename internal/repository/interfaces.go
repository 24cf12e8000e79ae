package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/autotrader/internal/models"
)

// RuleRepository defines persistence for trading rules. Every mutation is a
// full load, modify, save cycle over the backing store.
type RuleRepository interface {
	Load(ctx context.Context) ([]*models.Rule, error)
	Save(ctx context.Context, rule *models.Rule) error
	Delete(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*models.Rule, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (bool, error)
	MarkTriggered(ctx context.Context, id string) (bool, error)
}

// TradeRepository defines the trade ledger
type TradeRepository interface {
	Record(ctx context.Context, trade *models.Trade) error
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Trade, error)
	GetTotalTodayPnL(ctx context.Context) (decimal.Decimal, error)
	GetTradeCountToday(ctx context.Context) (int, error)
}

// dayBounds returns the local-midnight window containing now
func dayBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}
