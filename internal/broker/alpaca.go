package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/yourusername/autotrader/internal/config"
	"github.com/yourusername/autotrader/internal/metrics"
	"github.com/yourusername/autotrader/internal/models"
)

const maxResponseBytes = 1 << 20

// AlpacaClient talks to an Alpaca-compatible trading and market data REST API
type AlpacaClient struct {
	baseURL   string
	dataURL   string
	apiKey    string
	apiSecret string
	http      *RateLimitedHTTPClient
	logger    *logrus.Logger
}

// NewAlpacaClient creates a broker client from configuration
func NewAlpacaClient(cfg *config.BrokerConfig, logger *logrus.Logger) *AlpacaClient {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = cfg.Timeout()
	httpCfg.MaxRetries = cfg.MaxRetries
	httpCfg.RateLimit = cfg.RateLimit

	return &AlpacaClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		dataURL:   strings.TrimRight(cfg.DataURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		http:      NewRateLimitedHTTPClient(httpCfg, logger),
		logger:    logger,
	}
}

// IsMarketOpen queries the exchange clock
func (c *AlpacaClient) IsMarketOpen(ctx context.Context) (bool, error) {
	body, _, err := c.get(ctx, "clock", c.baseURL+"/v2/clock")
	if err != nil {
		return false, err
	}

	isOpen := gjson.GetBytes(body, "is_open")
	if !isOpen.Exists() {
		return false, fmt.Errorf("clock response missing is_open")
	}
	return isOpen.Bool(), nil
}

// GetQuote returns the last trade price for symbol
func (c *AlpacaClient) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/v2/stocks/%s/trades/latest", c.dataURL, url.PathEscape(symbol))
	body, _, err := c.get(ctx, "quote", endpoint)
	if err != nil {
		return decimal.Zero, err
	}

	price, err := decimalField(gjson.GetBytes(body, "trade.p"), "trade.p")
	if err != nil {
		return decimal.Zero, fmt.Errorf("quote for %s: %w", symbol, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("quote for %s: non-positive price %s", symbol, price)
	}
	return price, nil
}

// GetPosition returns the open position for symbol, or nil when none is held
func (c *AlpacaClient) GetPosition(ctx context.Context, symbol string) (*models.Position, error) {
	endpoint := fmt.Sprintf("%s/v2/positions/%s", c.baseURL, url.PathEscape(symbol))
	body, status, err := c.get(ctx, "position", endpoint)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	qty, err := decimalField(parsed.Get("qty"), "qty")
	if err != nil {
		return nil, err
	}
	pos := &models.Position{
		Symbol:   parsed.Get("symbol").String(),
		Quantity: int(qty.IntPart()),
	}
	if pos.AvgEntryPrice, err = decimalField(parsed.Get("avg_entry_price"), "avg_entry_price"); err != nil {
		return nil, err
	}
	if pos.CurrentPrice, err = decimalField(parsed.Get("current_price"), "current_price"); err != nil {
		return nil, err
	}
	if pos.MarketValue, err = decimalField(parsed.Get("market_value"), "market_value"); err != nil {
		return nil, err
	}
	return pos, nil
}

// GetAccount returns cash and buying power
func (c *AlpacaClient) GetAccount(ctx context.Context) (*models.Account, error) {
	body, _, err := c.get(ctx, "account", c.baseURL+"/v2/account")
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	account := &models.Account{
		ID:     parsed.Get("id").String(),
		Status: parsed.Get("status").String(),
	}
	if account.Cash, err = decimalField(parsed.Get("cash"), "cash"); err != nil {
		return nil, err
	}
	if account.BuyingPower, err = decimalField(parsed.Get("buying_power"), "buying_power"); err != nil {
		return nil, err
	}
	if account.PortfolioValue, err = decimalField(parsed.Get("portfolio_value"), "portfolio_value"); err != nil {
		return nil, err
	}
	return account, nil
}

// PlaceOrder submits a market order and returns the broker order id. Orders
// without a client order id get one, so a retried POST that the broker
// already accepted resolves to the existing order instead of a second fill.
func (c *AlpacaClient) PlaceOrder(ctx context.Context, order models.OrderRequest) (string, error) {
	if order.ClientOrderID == "" {
		order.ClientOrderID = uuid.NewString()
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("failed to encode order: %w", err)
	}

	resp, err := c.http.Post(ctx, c.baseURL+"/v2/orders", c.authHeader(), bytes.NewReader(payload))
	if err != nil {
		metrics.RecordBrokerRequest("order", "error")
		return "", fmt.Errorf("order request failed: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		metrics.RecordBrokerRequest("order", "error")
		return "", err
	}
	if resp.StatusCode == http.StatusUnprocessableEntity {
		if id, err := c.orderIDByClientID(ctx, order.ClientOrderID); err == nil {
			c.logger.WithFields(logrus.Fields{
				"order_id":        id,
				"client_order_id": order.ClientOrderID,
			}).Warn("Order already accepted, using existing order")
			metrics.RecordBrokerRequest("order", "ok")
			return id, nil
		}
	}
	if resp.StatusCode >= 300 {
		metrics.RecordBrokerRequest("order", "rejected")
		return "", fmt.Errorf("order rejected: status %d: %s", resp.StatusCode, errorMessage(body))
	}

	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		metrics.RecordBrokerRequest("order", "error")
		return "", fmt.Errorf("order response missing id")
	}
	metrics.RecordBrokerRequest("order", "ok")

	c.logger.WithFields(logrus.Fields{
		"order_id": id,
		"symbol":   order.Symbol,
		"side":     order.Side,
		"qty":      order.Quantity,
	}).Info("Order submitted")
	return id, nil
}

// orderIDByClientID looks up an order previously submitted under clientID
func (c *AlpacaClient) orderIDByClientID(ctx context.Context, clientID string) (string, error) {
	target := c.baseURL + "/v2/orders:by_client_order_id?client_order_id=" + url.QueryEscape(clientID)
	body, _, err := c.get(ctx, "order_lookup", target)
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", fmt.Errorf("order lookup response missing id")
	}
	return id, nil
}

// Close releases idle connections
func (c *AlpacaClient) Close() error {
	return c.http.Close()
}

func (c *AlpacaClient) authHeader() http.Header {
	h := http.Header{}
	h.Set("APCA-API-KEY-ID", c.apiKey)
	h.Set("APCA-API-SECRET-KEY", c.apiSecret)
	h.Set("Accept", "application/json")
	return h
}

// get performs a GET and returns the body of a 2xx response. The status code
// is returned alongside any error so callers can special-case it.
func (c *AlpacaClient) get(ctx context.Context, endpoint, target string) ([]byte, int, error) {
	start := time.Now()
	resp, err := c.http.Get(ctx, target, c.authHeader())
	if err != nil {
		metrics.RecordBrokerRequest(endpoint, "error")
		return nil, 0, fmt.Errorf("%s request failed: %w", endpoint, err)
	}

	body, err := readBody(resp)
	if err != nil {
		metrics.RecordBrokerRequest(endpoint, "error")
		return nil, resp.StatusCode, err
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Broker request completed")

	if resp.StatusCode >= 300 {
		metrics.RecordBrokerRequest(endpoint, "rejected")
		return nil, resp.StatusCode, fmt.Errorf("%s request: status %d: %s", endpoint, resp.StatusCode, errorMessage(body))
	}
	metrics.RecordBrokerRequest(endpoint, "ok")
	return body, resp.StatusCode, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func errorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "message"); msg.Exists() {
		return msg.String()
	}
	return strings.TrimSpace(string(body))
}

// decimalField parses a JSON value that may be encoded as string or number
func decimalField(res gjson.Result, name string) (decimal.Decimal, error) {
	if !res.Exists() {
		return decimal.Zero, fmt.Errorf("missing field %s", name)
	}
	d, err := decimal.NewFromString(res.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", name, res.String(), err)
	}
	return d, nil
}
