package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/autotrader/internal/models"
)

// MemoryTradeRepository is a process-local trade ledger
type MemoryTradeRepository struct {
	mu     sync.RWMutex
	trades []*models.Trade
	now    func() time.Time
}

// NewMemoryTradeRepository creates an empty in-memory ledger
func NewMemoryTradeRepository() *MemoryTradeRepository {
	return &MemoryTradeRepository{now: time.Now}
}

// NewMemoryTradeRepositoryWithClock creates an in-memory ledger with a custom clock
func NewMemoryTradeRepositoryWithClock(now func() time.Time) *MemoryTradeRepository {
	return &MemoryTradeRepository{now: now}
}

// Record appends a trade
func (m *MemoryTradeRepository) Record(ctx context.Context, trade *models.Trade) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if trade.ID == uuid.Nil {
		trade.ID = uuid.New()
	}
	if trade.ExecutedAt.IsZero() {
		trade.ExecutedAt = m.now()
	}
	c := *trade
	m.trades = append(m.trades, &c)
	return nil
}

// GetByDateRange returns trades executed in [start, end)
func (m *MemoryTradeRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Trade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Trade
	for _, trade := range m.trades {
		if !trade.ExecutedAt.Before(start) && trade.ExecutedAt.Before(end) {
			c := *trade
			out = append(out, &c)
		}
	}
	return out, nil
}

// GetTotalTodayPnL sums realized P&L for trades executed today
func (m *MemoryTradeRepository) GetTotalTodayPnL(ctx context.Context) (decimal.Decimal, error) {
	trades, err := m.today(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, trade := range trades {
		total = total.Add(trade.RealizedPnL)
	}
	return total, nil
}

// GetTradeCountToday counts trades executed today
func (m *MemoryTradeRepository) GetTradeCountToday(ctx context.Context) (int, error) {
	trades, err := m.today(ctx)
	if err != nil {
		return 0, err
	}
	return len(trades), nil
}

func (m *MemoryTradeRepository) today(ctx context.Context) ([]*models.Trade, error) {
	start, end := dayBounds(m.now())
	return m.GetByDateRange(ctx, start, end)
}
