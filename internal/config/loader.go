// Package config provides configuration management for the autotrader application.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigPath is used when no explicit path is given
const DefaultConfigPath = "config/config.yaml"

const envPrefix = "AUTOTRADER"

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	setDefaults(v)

	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return unmarshal(v)
}

// LoadWithDefaults loads configuration with default values for every key.
// A missing file is not an error; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "autotrader")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("broker.base_url", "https://paper-api.alpaca.markets")
	v.SetDefault("broker.data_url", "https://data.alpaca.markets")
	v.SetDefault("broker.api_key", "")
	v.SetDefault("broker.api_secret", "")
	v.SetDefault("broker.timeout_seconds", 30)
	v.SetDefault("broker.rate_limit", 3.0)
	v.SetDefault("broker.max_retries", 3)
	v.SetDefault("broker.quote_cache_ttl_seconds", 5)

	v.SetDefault("trading.poll_interval_seconds", 60)
	v.SetDefault("trading.dry_run", false)
	v.SetDefault("trading.rules_file", "config/rules.yaml")
	v.SetDefault("trading.ledger", LedgerMemory)
	v.SetDefault("trading.max_consecutive_failures", 0)

	v.SetDefault("safety.max_position_size", 100)
	v.SetDefault("safety.max_position_value", 10000.0)
	v.SetDefault("safety.max_daily_loss", 500.0)
	v.SetDefault("safety.max_daily_trades", 50)
	v.SetDefault("safety.max_order_value", 5000.0)

	v.SetDefault("backtest.initial_capital", 100000.0)
	v.SetDefault("backtest.days", 30)
	v.SetDefault("backtest.volatility", 0.02)
	v.SetDefault("backtest.seed", 0)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "autotrader")
	v.SetDefault("database.user", "autotrader")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 5)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
