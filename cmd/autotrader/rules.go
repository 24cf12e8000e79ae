package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yourusername/autotrader/internal/models"
	"github.com/yourusername/autotrader/internal/repository"
)

func ruleStore() *repository.YAMLRuleRepository {
	return repository.NewYAMLRuleRepository(cfg.Trading.RulesFile)
}

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage trading rules",
	}
	cmd.AddCommand(rulesListCmd(), rulesAddCmd(), rulesRemoveCmd(),
		rulesToggleCmd("enable", true), rulesToggleCmd("disable", false))
	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := ruleStore().Load(cmd.Context())
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No rules configured")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tRULE\tTRIGGERED\tDESCRIPTION")
			for _, rule := range rules {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", rule.ID, rule.String(), rule.Triggered, rule.Description)
			}
			return w.Flush()
		},
	}
}

func rulesAddCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:     "add SYMBOL ACTION CONDITION PRICE QUANTITY",
		Short:   "Add a rule",
		Example: "  autotrader rules add AAPL buy below 170 10 --description \"buy the dip\"",
		Args:    cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := models.ParseRuleAction(args[1])
			if err != nil {
				return err
			}
			condition, err := models.ParseRuleCondition(args[2])
			if err != nil {
				return err
			}
			price, err := decimal.NewFromString(args[3])
			if err != nil {
				return fmt.Errorf("%w: invalid price %q", models.ErrInvalidRule, args[3])
			}
			quantity, err := strconv.Atoi(args[4])
			if err != nil {
				return fmt.Errorf("%w: invalid quantity %q", models.ErrInvalidRule, args[4])
			}

			rule, err := models.NewRule(args[0], action, condition, price, quantity, models.WithDescription(description))
			if err != nil {
				return err
			}
			if err := ruleStore().Save(cmd.Context(), rule); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", rule.ID, rule.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Free-text note")
	return cmd
}

func rulesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := ruleStore().Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("rule %s: %w", args[0], models.ErrNotFound)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func rulesToggleCmd(verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " ID",
		Short: verb + " a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := ruleStore().SetEnabled(cmd.Context(), args[0], enabled)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("rule %s: %w", args[0], models.ErrNotFound)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule %s %sd\n", args[0], verb)
			return nil
		},
	}
}
