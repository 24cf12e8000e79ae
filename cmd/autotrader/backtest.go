package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/autotrader/internal/backtest"
	"github.com/yourusername/autotrader/internal/metrics"
	"github.com/yourusername/autotrader/internal/models"
)

func newBacktestCmd() *cobra.Command {
	var (
		days       int
		volatility float64
		capital    float64
		seed       int64
		equityCSV  string
		maxTrades  int
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Simulate the enabled rules on a random-walk price path",
		RunE: func(cmd *cobra.Command, args []string) error {
			btCfg, err := backtest.FromConfig(&cfg.Backtest)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("days") {
				btCfg.Days = days
			}
			if flags.Changed("volatility") {
				btCfg.Volatility = volatility
			}
			if flags.Changed("capital") {
				btCfg.InitialCapital = decimal.NewFromFloat(capital)
			}
			if flags.Changed("seed") {
				btCfg.Seed = seed
			}

			all, err := ruleStore().Load(cmd.Context())
			if err != nil {
				return err
			}
			var rules []*models.Rule
			for _, rule := range all {
				if rule.Enabled {
					rules = append(rules, rule)
				}
			}

			metrics.InitRegistry()
			sim, err := backtest.NewSimulator(btCfg, nil, appLog)
			if err != nil {
				return err
			}
			simCfg := sim.Config()
			appLog.WithFields(logrus.Fields{
				"days":       simCfg.Days,
				"volatility": simCfg.Volatility,
				"seed":       simCfg.Seed,
			}).Debug("Backtest configured")

			outcome, err := sim.Simulate(cmd.Context(), rules)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), backtest.GenerateConsoleReport(outcome.Result, outcome.EquityCurve, maxTrades))

			if equityCSV != "" {
				if err := backtest.GenerateCSVExport(outcome.EquityCurve, equityCSV); err != nil {
					return fmt.Errorf("failed to write equity curve: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nEquity curve written to %s\n", equityCSV)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&days, "days", 30, "Number of simulated trading days")
	flags.Float64Var(&volatility, "volatility", 0.02, "Daily return standard deviation")
	flags.Float64Var(&capital, "capital", 100000, "Initial cash")
	flags.Int64Var(&seed, "seed", 0, "Random seed, 0 for time-based")
	flags.StringVar(&equityCSV, "equity-csv", "", "Write the equity curve to this CSV file")
	flags.IntVar(&maxTrades, "max-trades", 20, "Trades listed in the report")
	return cmd
}
