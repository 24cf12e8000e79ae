package bot

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/yourusername/autotrader/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// MockBroker is a mock implementation of broker.Broker
type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) IsMarketOpen(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockBroker) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBroker) GetPosition(ctx context.Context, symbol string) (*models.Position, error) {
	args := m.Called(ctx, symbol)
	pos, _ := args.Get(0).(*models.Position)
	return pos, args.Error(1)
}

func (m *MockBroker) GetAccount(ctx context.Context) (*models.Account, error) {
	args := m.Called(ctx)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

func (m *MockBroker) PlaceOrder(ctx context.Context, order models.OrderRequest) (string, error) {
	args := m.Called(ctx, order)
	return args.String(0), args.Error(1)
}

// MockLedger is a mock implementation of TradeLedger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetTotalTodayPnL(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedger) GetTradeCountToday(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockLedger) Record(ctx context.Context, trade *models.Trade) error {
	args := m.Called(ctx, trade)
	return args.Error(0)
}

// MockRuleStore is a mock implementation of RuleStore
type MockRuleStore struct {
	mock.Mock
}

func (m *MockRuleStore) Load(ctx context.Context) ([]*models.Rule, error) {
	args := m.Called(ctx)
	rules, _ := args.Get(0).([]*models.Rule)
	return rules, args.Error(1)
}

func (m *MockRuleStore) MarkTriggered(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
