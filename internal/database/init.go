package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/autotrader/internal/config"
)

const tradesSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id           UUID PRIMARY KEY,
	order_id     TEXT NOT NULL,
	rule_id      TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	side         TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
	quantity     INTEGER NOT NULL CHECK (quantity > 0),
	price        NUMERIC(18, 6) NOT NULL,
	realized_pnl NUMERIC(18, 6) NOT NULL DEFAULT 0,
	executed_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_executed_at_idx ON trades (executed_at);
`

// Initialize creates a database connection pool and ensures the ledger schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db); err != nil {
		if closeErr := db.Close(ctx); closeErr != nil {
			return nil, fmt.Errorf("migration failed and close failed: close=%w, migrate=%w", closeErr, err)
		}
		return nil, err
	}

	return db, nil
}

// Migrate creates the trade ledger table when it does not exist
func Migrate(ctx context.Context, db *DB) error {
	return db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, tradesSchema); err != nil {
			return fmt.Errorf("failed to apply trades schema: %w", err)
		}
		return nil
	})
}
