// Package main provides the autotrader command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/autotrader/internal/bot"
	"github.com/yourusername/autotrader/internal/broker"
	"github.com/yourusername/autotrader/internal/config"
	"github.com/yourusername/autotrader/internal/database"
	"github.com/yourusername/autotrader/internal/health"
	"github.com/yourusername/autotrader/internal/logger"
	"github.com/yourusername/autotrader/internal/metrics"
	"github.com/yourusername/autotrader/internal/repository"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	dryRunFlag bool
	cfg        *config.Config
	appLog     *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:          "autotrader",
	Short:        "Rule-based equity auto-trader",
	Long:         `Evaluates price-threshold rules against a brokerage account, guarded by hard safety limits.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&dryRunFlag, "dry-run", false, "Log orders instead of placing them")

	rootCmd.AddCommand(runCmd, onceCmd, statusCmd, newRulesCmd(), newBacktestCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if dryRunFlag {
		cfg.Trading.DryRun = true
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = logger.New(logger.Options{
		Level:   cfg.App.LogLevel,
		JSON:    cfg.IsProduction(),
		Service: cfg.App.Name,
	})
	return nil
}

// app is the wired trading stack
type app struct {
	db     *database.DB
	repos  *repository.Repositories
	broker broker.Broker
	gate   *bot.SafetyGate
	loop   *bot.TradingLoop
}

func newApp(ctx context.Context) (*app, error) {
	a := &app{}

	if cfg.Trading.Ledger == config.LedgerPostgres {
		db, err := database.Initialize(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db
		appLog.Info("Database connection established")
	}

	repos, err := repository.NewRepositories(cfg, a.db)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}
	a.repos = repos

	a.broker = broker.NewCachedBroker(
		broker.NewAlpacaClient(&cfg.Broker, appLog),
		cfg.Broker.QuoteCacheTTL(),
		appLog,
	)

	a.gate = bot.NewSafetyGate(a.broker, repos.Trade, bot.SafetyLimitsFromConfig(&cfg.Safety), appLog)
	evaluator := bot.NewEvaluator(a.broker, repos.Rule, repos.Trade, a.gate, cfg.Trading.DryRun, appLog)

	breaker := bot.NewCircuitBreaker(cfg.Trading.MaxConsecutiveFailures, appLog)
	breaker.RegisterShutdownCallback(func(reason string) error {
		a.gate.Kill(reason)
		return nil
	})

	if evaluator.DryRun() {
		appLog.Warn("Dry-run mode: orders are logged, not placed")
	}

	a.loop = bot.NewTradingLoop(a.broker, evaluator, cfg.Trading.PollInterval(), breaker, appLog)
	return a, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(context.Background()); err != nil {
		appLog.WithError(err).Error("Failed to close database connection")
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		metrics.InitRegistry()
		if cfg.Metrics.Enabled {
			srv := health.NewServer(health.Config{
				ServiceName: cfg.App.Name,
				Version:     Version,
				Port:        cfg.Metrics.Port,
				MetricsPath: cfg.Metrics.Path,
				Logger:      appLog,
				DB:          pingerOrNil(a.db),
				Safety:      a.gate,
				Loop:        a.loop,
			})
			if err := srv.Start(ctx); err != nil {
				return fmt.Errorf("failed to start health server: %w", err)
			}
			srv.SetReady(true)
		}

		appLog.WithFields(logrus.Fields{
			"version":       Version,
			"commit":        GitCommit,
			"environment":   cfg.App.Environment,
			"dry_run":       cfg.Trading.DryRun,
			"ledger":        cfg.Trading.Ledger,
			"rules_file":    cfg.Trading.RulesFile,
			"poll_interval": cfg.Trading.PollInterval().String(),
		}).Info("Autotrader starting")

		return a.loop.Start(ctx)
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single trading cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		orderIDs, err := a.loop.RunOnce(ctx)
		for _, id := range orderIDs {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		if err != nil {
			return err
		}
		if len(orderIDs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No orders placed")
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show safety limits and today's usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		status, err := a.gate.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to read safety status: %w", err)
		}

		writeSafetyStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

// writeSafetyStatus prints the gate snapshot. DailyPnLLimit is already
// negative.
func writeSafetyStatus(out io.Writer, status bot.SafetyStatus) {
	canTrade := "yes"
	if !status.CanTrade {
		canTrade = "no (" + status.Reason + ")"
	}
	fmt.Fprintf(out, "Kill switch:     %t\n", status.KillSwitch)
	fmt.Fprintf(out, "Daily P&L:       $%s (limit $%s, remaining $%s)\n",
		status.DailyPnL.StringFixed(2), status.DailyPnLLimit.StringFixed(2), status.DailyPnLRemaining.StringFixed(2))
	fmt.Fprintf(out, "Trades today:    %d / %d (%d remaining)\n",
		status.TradeCount, status.TradeLimit, status.TradesRemaining)
	fmt.Fprintf(out, "Can trade:       %s\n", canTrade)
}

// pingerOrNil keeps a nil *DB from becoming a non-nil interface
func pingerOrNil(db *database.DB) health.DatabasePinger {
	if db == nil {
		return nil
	}
	return db
}
