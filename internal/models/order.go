package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order or fill
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderRequest is a market order submitted to the broker
type OrderRequest struct {
	Symbol        string    `json:"symbol"`
	Side          OrderSide `json:"side"`
	Quantity      int       `json:"qty"`
	Type          string    `json:"type"`
	TimeInForce   string    `json:"time_in_force"`
	ClientOrderID string    `json:"client_order_id,omitempty"`
}

// NewMarketOrder builds a day market order
func NewMarketOrder(symbol string, side OrderSide, quantity int) OrderRequest {
	return OrderRequest{
		Symbol:      symbol,
		Side:        side,
		Quantity:    quantity,
		Type:        "market",
		TimeInForce: "day",
	}
}

// WithClientOrderID returns the order tagged with a fresh client order id
// derived from the rule id. The broker rejects a second order with the same
// id, so retried submissions cannot fill twice.
func (o OrderRequest) WithClientOrderID(ruleID string) OrderRequest {
	o.ClientOrderID = ruleID + "-" + uuid.NewString()
	return o
}

// Position is a broker-reported holding
type Position struct {
	Symbol        string          `json:"symbol"`
	Quantity      int             `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
}

// Account is a broker-reported account snapshot
type Account struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	Cash           decimal.Decimal `json:"cash"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
}

// Trade is a ledger entry for an executed order
type Trade struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	OrderID     string          `db:"order_id" json:"order_id"`
	RuleID      string          `db:"rule_id" json:"rule_id"`
	Symbol      string          `db:"symbol" json:"symbol"`
	Side        OrderSide       `db:"side" json:"side"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
	RealizedPnL decimal.Decimal `db:"realized_pnl" json:"realized_pnl"`
	ExecutedAt  time.Time       `db:"executed_at" json:"executed_at"`
}

// Notional returns quantity × price
func (t *Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(int64(t.Quantity)))
}
