package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/autotrader/internal/config"
	"github.com/yourusername/autotrader/internal/models"
)

func newTestStore(t *testing.T) *YAMLRuleRepository {
	t.Helper()
	return NewYAMLRuleRepository(filepath.Join(t.TempDir(), "config", "rules.yaml"))
}

func testRule(t *testing.T, id, symbol string, action models.RuleAction, condition models.RuleCondition, target string) *models.Rule {
	t.Helper()
	rule, err := models.NewRule(symbol, action, condition, decimal.RequireFromString(target), 10,
		models.WithRuleID(id), models.WithDescription("test "+id))
	require.NoError(t, err)
	return rule
}

func TestYAMLRuleRepositoryLoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	rules, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestYAMLRuleRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	buy := testRule(t, "r1", "aapl", models.RuleActionBuy, models.RuleConditionBelow, "170.25")
	sell := testRule(t, "r2", "MSFT", models.RuleActionSell, models.RuleConditionAbove, "420")
	sell.Enabled = false

	require.NoError(t, store.Save(ctx, buy))
	require.NoError(t, store.Save(ctx, sell))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "r1", loaded[0].ID)
	assert.Equal(t, "AAPL", loaded[0].Symbol)
	assert.Equal(t, models.RuleActionBuy, loaded[0].Action)
	assert.Equal(t, models.RuleConditionBelow, loaded[0].Condition)
	assert.True(t, loaded[0].TargetPrice.Equal(decimal.RequireFromString("170.25")))
	assert.Equal(t, 10, loaded[0].Quantity)
	assert.True(t, loaded[0].Enabled)
	assert.False(t, loaded[0].Triggered)
	assert.Equal(t, "test r1", loaded[0].Description)

	assert.Equal(t, "r2", loaded[1].ID)
	assert.False(t, loaded[1].Enabled)
}

func TestYAMLRuleRepositorySaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rule := testRule(t, "r1", "AAPL", models.RuleActionBuy, models.RuleConditionBelow, "170")
	require.NoError(t, store.Save(ctx, rule))
	require.NoError(t, store.Save(ctx, rule))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	rule.TargetPrice = decimal.RequireFromString("165")
	require.NoError(t, store.Save(ctx, rule))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.True(t, loaded[0].TargetPrice.Equal(decimal.RequireFromString("165")))
}

func TestYAMLRuleRepositorySaveRejectsInvalidRule(t *testing.T) {
	store := newTestStore(t)

	rule := testRule(t, "r1", "AAPL", models.RuleActionBuy, models.RuleConditionBelow, "170")
	rule.Quantity = 0

	err := store.Save(context.Background(), rule)
	assert.ErrorIs(t, err, models.ErrInvalidRule)

	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestYAMLRuleRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, testRule(t, "r1", "AAPL", models.RuleActionBuy, models.RuleConditionBelow, "170")))
	require.NoError(t, store.Save(ctx, testRule(t, "r2", "MSFT", models.RuleActionSell, models.RuleConditionAbove, "420")))

	before, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	found, err := store.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	after, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	found, err = store.Delete(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, found)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "r2", loaded[0].ID)
}

func TestYAMLRuleRepositoryGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, testRule(t, "r1", "AAPL", models.RuleActionBuy, models.RuleConditionBelow, "170")))

	rule, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", rule.Symbol)

	_, err = store.Get(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestYAMLRuleRepositorySetEnabledAndMarkTriggered(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, testRule(t, "r1", "AAPL", models.RuleActionBuy, models.RuleConditionBelow, "170")))

	found, err := store.SetEnabled(ctx, "r1", false)
	require.NoError(t, err)
	assert.True(t, found)

	rule, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, rule.Enabled)

	found, err = store.MarkTriggered(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, found)

	rule, err = store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, rule.Triggered)
	assert.False(t, rule.IsActive())

	found, err = store.SetEnabled(ctx, "missing", true)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = store.MarkTriggered(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestYAMLRuleRepositoryLoadDefaults(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o755))

	content := `rules:
  - symbol: tsla
    action: BUY
    condition: below
    target_price: "200.50"
    quantity: 5
`
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o644))

	rules, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)

	assert.NotEmpty(t, rules[0].ID)
	assert.Equal(t, "TSLA", rules[0].Symbol)
	assert.True(t, rules[0].Enabled)
	assert.False(t, rules[0].Triggered)
}

func TestYAMLRuleRepositoryLoadMalformed(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o755))

	require.NoError(t, os.WriteFile(store.Path(), []byte("rules: [ {"), 0o644))
	_, err := store.Load(context.Background())
	assert.Error(t, err)

	invalid := `rules:
  - id: bad
    symbol: AAPL
    action: buy
    condition: below
    target_price: "-1"
    quantity: 5
`
	require.NoError(t, os.WriteFile(store.Path(), []byte(invalid), 0o644))
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, models.ErrInvalidRule)
}

func TestMemoryTradeRepositoryTodayAggregates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	ledger := NewMemoryTradeRepositoryWithClock(func() time.Time { return now })

	require.NoError(t, ledger.Record(ctx, &models.Trade{
		Symbol: "AAPL", Side: models.OrderSideSell, Quantity: 10,
		Price: decimal.NewFromInt(180), RealizedPnL: decimal.NewFromInt(-120),
	}))
	require.NoError(t, ledger.Record(ctx, &models.Trade{
		Symbol: "MSFT", Side: models.OrderSideSell, Quantity: 2,
		Price: decimal.NewFromInt(400), RealizedPnL: decimal.RequireFromString("20.50"),
	}))
	require.NoError(t, ledger.Record(ctx, &models.Trade{
		Symbol: "AAPL", Side: models.OrderSideSell, Quantity: 1,
		Price: decimal.NewFromInt(170), RealizedPnL: decimal.NewFromInt(-1000),
		ExecutedAt: now.AddDate(0, 0, -1),
	}))

	pnl, err := ledger.GetTotalTodayPnL(ctx)
	require.NoError(t, err)
	assert.True(t, pnl.Equal(decimal.RequireFromString("-99.50")), "got %s", pnl)

	count, err := ledger.GetTradeCountToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	start, end := dayBounds(now)
	trades, err := ledger.GetByDateRange(ctx, start.AddDate(0, 0, -1), end)
	require.NoError(t, err)
	assert.Len(t, trades, 3)
}

func TestMemoryTradeRepositoryAssignsIdentity(t *testing.T) {
	ledger := NewMemoryTradeRepository()
	trade := &models.Trade{Symbol: "AAPL", Side: models.OrderSideBuy, Quantity: 1, Price: decimal.NewFromInt(1)}

	require.NoError(t, ledger.Record(context.Background(), trade))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", trade.ID.String())
	assert.False(t, trade.ExecutedAt.IsZero())
}

func TestNewRepositoriesSelectsLedger(t *testing.T) {
	cfg := &config.Config{}
	cfg.Trading.RulesFile = filepath.Join(t.TempDir(), "rules.yaml")
	cfg.Trading.Ledger = config.LedgerMemory

	repos, err := NewRepositories(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryTradeRepository{}, repos.Trade)
	assert.IsType(t, &YAMLRuleRepository{}, repos.Rule)

	cfg.Trading.Ledger = config.LedgerPostgres
	_, err = NewRepositories(cfg, nil)
	assert.Error(t, err)
}
