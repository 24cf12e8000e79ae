package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/autotrader/internal/database"
	"github.com/yourusername/autotrader/internal/models"
)

// PostgresTradeRepository implements TradeRepository for PostgreSQL
type PostgresTradeRepository struct {
	db  *database.DB
	now func() time.Time
}

// NewPostgresTradeRepository creates a new trade ledger
func NewPostgresTradeRepository(db *database.DB) TradeRepository {
	return &PostgresTradeRepository{db: db, now: time.Now}
}

// Record inserts an executed trade
func (p *PostgresTradeRepository) Record(ctx context.Context, trade *models.Trade) error {
	if trade.ID == uuid.Nil {
		trade.ID = uuid.New()
	}
	if trade.ExecutedAt.IsZero() {
		trade.ExecutedAt = p.now()
	}

	query := `
		INSERT INTO trades (id, order_id, rule_id, symbol, side, quantity, price, realized_pnl, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9)
	`

	_, err := p.db.GetPool().Exec(ctx, query,
		trade.ID, trade.OrderID, trade.RuleID, trade.Symbol, string(trade.Side), trade.Quantity,
		trade.Price.String(), trade.RealizedPnL.String(), trade.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record trade: %w", err)
	}

	return nil
}

// GetByDateRange retrieves trades executed in [start, end)
func (p *PostgresTradeRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Trade, error) {
	query := `
		SELECT id, order_id, rule_id, symbol, side, quantity, price::text, realized_pnl::text, executed_at
		FROM trades
		WHERE executed_at >= $1 AND executed_at < $2
		ORDER BY executed_at ASC
	`

	rows, err := p.db.GetPool().Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var (
			trade       models.Trade
			side        string
			price       string
			realizedPnL string
		)
		if err := rows.Scan(
			&trade.ID, &trade.OrderID, &trade.RuleID, &trade.Symbol, &side, &trade.Quantity,
			&price, &realizedPnL, &trade.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trade.Side = models.OrderSide(side)
		if trade.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("failed to parse trade price: %w", err)
		}
		if trade.RealizedPnL, err = decimal.NewFromString(realizedPnL); err != nil {
			return nil, fmt.Errorf("failed to parse trade pnl: %w", err)
		}
		trades = append(trades, &trade)
	}

	return trades, rows.Err()
}

// GetTotalTodayPnL sums realized P&L for trades executed today
func (p *PostgresTradeRepository) GetTotalTodayPnL(ctx context.Context) (decimal.Decimal, error) {
	start, end := dayBounds(p.now())

	var total string
	err := p.db.GetPool().QueryRow(ctx,
		`SELECT COALESCE(SUM(realized_pnl), 0)::text FROM trades WHERE executed_at >= $1 AND executed_at < $2`,
		start, end,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum daily pnl: %w", err)
	}

	pnl, err := decimal.NewFromString(total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse daily pnl: %w", err)
	}
	return pnl, nil
}

// GetTradeCountToday counts trades executed today
func (p *PostgresTradeRepository) GetTradeCountToday(ctx context.Context) (int, error) {
	start, end := dayBounds(p.now())

	var count int
	err := p.db.GetPool().QueryRow(ctx,
		`SELECT COUNT(*) FROM trades WHERE executed_at >= $1 AND executed_at < $2`,
		start, end,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count daily trades: %w", err)
	}
	return count, nil
}
