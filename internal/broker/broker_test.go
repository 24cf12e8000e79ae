package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/autotrader/internal/config"
	"github.com/yourusername/autotrader/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestClient(t *testing.T, handler http.Handler) *AlpacaClient {
	t.Helper()
	return newRetryingTestClient(t, handler, 0)
}

func newRetryingTestClient(t *testing.T, handler http.Handler, retries int) *AlpacaClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.BrokerConfig{
		BaseURL:        server.URL,
		DataURL:        server.URL,
		APIKey:         "key",
		APISecret:      "secret",
		TimeoutSeconds: 5,
		RateLimit:      100,
		MaxRetries:     retries,
	}
	return NewAlpacaClient(cfg, testLogger())
}

func TestAlpacaClientSendsAuthHeaders(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		w.Write([]byte(`{"is_open": true}`))
	}))

	open, err := client.IsMarketOpen(context.Background())
	require.NoError(t, err)
	assert.True(t, open)
}

func TestAlpacaClientMarketClosed(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/clock", r.URL.Path)
		w.Write([]byte(`{"is_open": false, "next_open": "2024-03-18T09:30:00-04:00"}`))
	}))

	open, err := client.IsMarketOpen(context.Background())
	require.NoError(t, err)
	assert.False(t, open)
}

func TestAlpacaClientGetQuote(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/stocks/AAPL/trades/latest", r.URL.Path)
		w.Write([]byte(`{"symbol": "AAPL", "trade": {"p": 171.25, "s": 100}}`))
	}))

	price, err := client.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("171.25")), "got %s", price)
}

func TestAlpacaClientGetPosition(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/positions/AAPL", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol": "AAPL", "qty": "15", "avg_entry_price": "160.50",
			"current_price": "170", "market_value": "2550"}`))
	})
	mux.HandleFunc("/v2/positions/MSFT", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code": 40410000, "message": "position does not exist"}`))
	})
	client := newTestClient(t, mux)

	pos, err := client.GetPosition(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 15, pos.Quantity)
	assert.True(t, pos.AvgEntryPrice.Equal(decimal.RequireFromString("160.50")))
	assert.True(t, pos.MarketValue.Equal(decimal.NewFromInt(2550)))

	pos, err = client.GetPosition(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestAlpacaClientGetAccount(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "acct", "status": "ACTIVE", "cash": "1000.5",
			"buying_power": "2001", "portfolio_value": "5000"}`))
	}))

	account, err := client.GetAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", account.Status)
	assert.True(t, account.BuyingPower.Equal(decimal.NewFromInt(2001)))
	assert.True(t, account.Cash.Equal(decimal.RequireFromString("1000.5")))
}

func TestAlpacaClientPlaceOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/orders", r.URL.Path)

		var order models.OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&order))
		assert.Equal(t, "AAPL", order.Symbol)
		assert.Equal(t, models.OrderSideBuy, order.Side)
		assert.Equal(t, 10, order.Quantity)
		assert.Equal(t, "market", order.Type)
		assert.NotEmpty(t, order.ClientOrderID)

		w.Write([]byte(`{"id": "order-123", "status": "accepted"}`))
	}))

	id, err := client.PlaceOrder(context.Background(), models.NewMarketOrder("AAPL", models.OrderSideBuy, 10))
	require.NoError(t, err)
	assert.Equal(t, "order-123", id)
}

func TestAlpacaClientPlaceOrderRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "insufficient buying power"}`))
	}))

	_, err := client.PlaceOrder(context.Background(), models.NewMarketOrder("AAPL", models.OrderSideBuy, 10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient buying power")
}

func TestAlpacaClientPlaceOrderRetryDoesNotDuplicate(t *testing.T) {
	var (
		mu        sync.Mutex
		posts     int
		clientIDs []string
		accepted  = map[string]string{}
	)
	client := newRetryingTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		switch r.URL.Path {
		case "/v2/orders":
			posts++
			var order models.OrderRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&order))
			clientIDs = append(clientIDs, order.ClientOrderID)

			if _, dup := accepted[order.ClientOrderID]; dup {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(`{"message": "client_order_id must be unique"}`))
				return
			}
			id := fmt.Sprintf("order-%d", len(accepted)+1)
			accepted[order.ClientOrderID] = id
			if posts == 1 {
				// accepted upstream, but the gateway timed out
				w.WriteHeader(http.StatusGatewayTimeout)
				return
			}
			fmt.Fprintf(w, `{"id": %q}`, id)
		case "/v2/orders:by_client_order_id":
			id, ok := accepted[r.URL.Query().Get("client_order_id")]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprintf(w, `{"id": %q}`, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}), 2)

	order := models.NewMarketOrder("AAPL", models.OrderSideBuy, 10).WithClientOrderID("r1")
	id, err := client.PlaceOrder(context.Background(), order)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "order-1", id)
	assert.Equal(t, 2, posts)
	assert.Len(t, accepted, 1)
	require.Len(t, clientIDs, 2)
	assert.Equal(t, order.ClientOrderID, clientIDs[0])
	assert.Equal(t, clientIDs[0], clientIDs[1])
}

func TestAlpacaClientPlaceOrderValidationErrorNotMasked(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/orders" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message": "qty must be > 0"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.PlaceOrder(context.Background(), models.NewMarketOrder("AAPL", models.OrderSideBuy, 10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qty must be > 0")
}

func TestRateLimitedHTTPClientOpensAfterFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:           time.Second,
		MaxRetries:        0,
		RateLimit:         100,
		CircuitBreakerMax: 2,
	}, testLogger())

	for i := 0; i < 2; i++ {
		resp, err := client.Get(context.Background(), server.URL, nil)
		require.NoError(t, err)
		resp.Body.Close()
	}

	_, err := client.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	client.Reset()
	resp, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	resp.Body.Close()
}

type countingBroker struct {
	Broker
	quotes int
}

func (c *countingBroker) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	c.quotes++
	return decimal.NewFromInt(100), nil
}

func (c *countingBroker) PlaceOrder(ctx context.Context, order models.OrderRequest) (string, error) {
	return "id", nil
}

func TestCachedBrokerReusesQuotes(t *testing.T) {
	inner := &countingBroker{}
	b := NewCachedBroker(inner, time.Minute, testLogger())

	for i := 0; i < 3; i++ {
		price, err := b.GetQuote(context.Background(), "aapl")
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(100)))
	}
	assert.Equal(t, 1, inner.quotes)

	_, err := b.PlaceOrder(context.Background(), models.NewMarketOrder("AAPL", models.OrderSideBuy, 1))
	require.NoError(t, err)

	_, err = b.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.quotes)
}

func TestNewCachedBrokerDisabled(t *testing.T) {
	inner := &countingBroker{}
	assert.Same(t, Broker(inner), NewCachedBroker(inner, 0, testLogger()))
}
