package repository

import (
	"fmt"

	"github.com/yourusername/autotrader/internal/config"
	"github.com/yourusername/autotrader/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Rule  RuleRepository
	Trade TradeRepository
}

// NewRepositories creates the rule store and the configured trade ledger.
// db may be nil unless the postgres ledger is selected.
func NewRepositories(cfg *config.Config, db *database.DB) (*Repositories, error) {
	repos := &Repositories{
		Rule: NewYAMLRuleRepository(cfg.Trading.RulesFile),
	}

	switch cfg.Trading.Ledger {
	case config.LedgerPostgres:
		if db == nil {
			return nil, fmt.Errorf("database connection is required for the postgres ledger")
		}
		repos.Trade = NewPostgresTradeRepository(db)
	case config.LedgerMemory, "":
		repos.Trade = NewMemoryTradeRepository()
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Trading.Ledger)
	}

	return repos, nil
}
