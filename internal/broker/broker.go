// Package broker provides brokerage access for the trading loop.
package broker

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/yourusername/autotrader/internal/models"
)

// Broker is the brokerage surface the bot depends on
type Broker interface {
	// IsMarketOpen reports whether the exchange is currently trading
	IsMarketOpen(ctx context.Context) (bool, error)
	// GetQuote returns the latest trade price for symbol
	GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
	// GetPosition returns the open position for symbol, or nil when flat
	GetPosition(ctx context.Context, symbol string) (*models.Position, error)
	// GetAccount returns the current account snapshot
	GetAccount(ctx context.Context) (*models.Account, error)
	// PlaceOrder submits an order and returns the broker order id
	PlaceOrder(ctx context.Context, order models.OrderRequest) (string, error)
}
