// Package config provides configuration management for the autotrader application.
package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger backends
const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Broker   BrokerConfig   `mapstructure:"broker" validate:"required"`
	Trading  TradingConfig  `mapstructure:"trading" validate:"required"`
	Safety   SafetyConfig   `mapstructure:"safety" validate:"required"`
	Backtest BacktestConfig `mapstructure:"backtest" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// BrokerConfig represents brokerage REST API configuration
type BrokerConfig struct {
	BaseURL              string  `mapstructure:"base_url" validate:"required,url"`
	DataURL              string  `mapstructure:"data_url" validate:"required,url"`
	APIKey               string  `mapstructure:"api_key"`
	APISecret            string  `mapstructure:"api_secret"`
	TimeoutSeconds       int     `mapstructure:"timeout_seconds" validate:"gt=0"`
	RateLimit            float64 `mapstructure:"rate_limit" validate:"gt=0"`
	MaxRetries           int     `mapstructure:"max_retries" validate:"gte=0"`
	QuoteCacheTTLSeconds int     `mapstructure:"quote_cache_ttl_seconds" validate:"gte=0"`
}

// TradingConfig represents the live trading loop configuration
type TradingConfig struct {
	PollIntervalSeconds    int    `mapstructure:"poll_interval_seconds" validate:"gt=0"`
	DryRun                 bool   `mapstructure:"dry_run"`
	RulesFile              string `mapstructure:"rules_file" validate:"required"`
	Ledger                 string `mapstructure:"ledger" validate:"required,oneof=memory postgres"`
	MaxConsecutiveFailures int    `mapstructure:"max_consecutive_failures" validate:"gte=0"`
}

// SafetyConfig holds the hard risk limits enforced before every order
type SafetyConfig struct {
	MaxPositionSize  int     `mapstructure:"max_position_size" validate:"gte=0"`
	MaxPositionValue float64 `mapstructure:"max_position_value" validate:"gte=0"`
	MaxDailyLoss     float64 `mapstructure:"max_daily_loss" validate:"gte=0"`
	MaxDailyTrades   int     `mapstructure:"max_daily_trades" validate:"gte=0"`
	MaxOrderValue    float64 `mapstructure:"max_order_value" validate:"gte=0"`
}

// BacktestConfig represents simulation defaults
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital" validate:"gt=0"`
	Days           int     `mapstructure:"days" validate:"gt=0"`
	Volatility     float64 `mapstructure:"volatility" validate:"gte=0,lt=1"`
	Seed           int64   `mapstructure:"seed"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
}

// MetricsConfig represents metrics and health endpoint configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// PollInterval returns the trading loop interval
func (t TradingConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalSeconds) * time.Second
}

// Limits converts configured float limits to exact decimals
func (s SafetyConfig) Limits() (maxPositionValue, maxDailyLoss, maxOrderValue decimal.Decimal) {
	return decimal.NewFromFloat(s.MaxPositionValue),
		decimal.NewFromFloat(s.MaxDailyLoss),
		decimal.NewFromFloat(s.MaxOrderValue)
}

// Timeout returns the broker request timeout
func (b BrokerConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// QuoteCacheTTL returns how long quotes are reused
func (b BrokerConfig) QuoteCacheTTL() time.Duration {
	return time.Duration(b.QuoteCacheTTLSeconds) * time.Second
}
