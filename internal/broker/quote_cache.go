package broker

import (
	"context"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/autotrader/internal/metrics"
	"github.com/yourusername/autotrader/internal/models"
)

// QuoteCache keeps recent prices so several rules on one symbol share a
// single quote within a cycle
type QuoteCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewQuoteCache creates a quote cache with the given entry lifetime
func NewQuoteCache(ttl time.Duration) *QuoteCache {
	return &QuoteCache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Get returns a cached price
func (q *QuoteCache) Get(symbol string) (decimal.Decimal, bool) {
	if v, found := q.cache.Get(cacheKey(symbol)); found {
		if price, ok := v.(decimal.Decimal); ok {
			metrics.RecordQuoteCacheLookup(true)
			return price, true
		}
	}
	metrics.RecordQuoteCacheLookup(false)
	return decimal.Zero, false
}

// Set stores a price
func (q *QuoteCache) Set(symbol string, price decimal.Decimal) {
	q.cache.Set(cacheKey(symbol), price, q.ttl)
}

// ItemCount returns the number of items in cache
func (q *QuoteCache) ItemCount() int {
	return q.cache.ItemCount()
}

func cacheKey(symbol string) string {
	return strings.ToUpper(symbol)
}

// CachedBroker wraps a Broker with quote caching. All other calls pass through.
type CachedBroker struct {
	Broker
	quotes *QuoteCache
	logger *logrus.Logger
}

// NewCachedBroker returns b unchanged when ttl is zero
func NewCachedBroker(b Broker, ttl time.Duration, logger *logrus.Logger) Broker {
	if ttl <= 0 {
		return b
	}
	return &CachedBroker{
		Broker: b,
		quotes: NewQuoteCache(ttl),
		logger: logger,
	}
}

// GetQuote retrieves a quote with caching
func (c *CachedBroker) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if price, ok := c.quotes.Get(symbol); ok {
		c.logger.WithField("symbol", symbol).Debug("Quote cache hit")
		return price, nil
	}

	price, err := c.Broker.GetQuote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	c.quotes.Set(symbol, price)
	return price, nil
}

// PlaceOrder submits the order and drops the cached quote for its symbol
func (c *CachedBroker) PlaceOrder(ctx context.Context, order models.OrderRequest) (string, error) {
	id, err := c.Broker.PlaceOrder(ctx, order)
	c.quotes.cache.Delete(cacheKey(order.Symbol))
	return id, err
}
