package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleAction is the order side a rule submits when it triggers
type RuleAction string

const (
	RuleActionBuy  RuleAction = "buy"
	RuleActionSell RuleAction = "sell"
)

// RuleCondition is the price relation that triggers a rule
type RuleCondition string

const (
	// RuleConditionBelow triggers when price drops to or below the target
	RuleConditionBelow RuleCondition = "below"
	// RuleConditionAbove triggers when price rises to or above the target
	RuleConditionAbove RuleCondition = "above"
)

// ParseRuleAction converts a case-insensitive string to a RuleAction
func ParseRuleAction(s string) (RuleAction, error) {
	a := RuleAction(strings.ToLower(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidRule, s)
	}
	return a, nil
}

// IsValid reports whether the action is one of the known actions
func (a RuleAction) IsValid() bool {
	switch a {
	case RuleActionBuy, RuleActionSell:
		return true
	}
	return false
}

// Side maps the rule action to the order side submitted to the broker
func (a RuleAction) Side() OrderSide {
	switch a {
	case RuleActionBuy:
		return OrderSideBuy
	case RuleActionSell:
		return OrderSideSell
	}
	panic(fmt.Sprintf("models: unhandled rule action %q", string(a)))
}

// ParseRuleCondition converts a case-insensitive string to a RuleCondition
func ParseRuleCondition(s string) (RuleCondition, error) {
	c := RuleCondition(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: unknown condition %q", ErrInvalidRule, s)
	}
	return c, nil
}

// IsValid reports whether the condition is one of the known conditions
func (c RuleCondition) IsValid() bool {
	switch c {
	case RuleConditionBelow, RuleConditionAbove:
		return true
	}
	return false
}

// Rule is a price-triggered trading instruction.
//
// Buy 10 shares of AAPL when price drops to $170 or lower:
//
//	rule, err := NewRule("aapl", RuleActionBuy, RuleConditionBelow, decimal.NewFromInt(170), 10)
//
// Symbol, action, condition, target price and quantity are fixed at
// construction. Only Enabled and Triggered change over a rule's life.
type Rule struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Action      RuleAction      `json:"action"`
	Condition   RuleCondition   `json:"condition"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Quantity    int             `json:"quantity"`
	Enabled     bool            `json:"enabled"`
	Triggered   bool            `json:"triggered"`
	Description string          `json:"description,omitempty"`
}

// RuleOption customizes a rule during construction
type RuleOption func(*Rule)

// WithRuleID sets an explicit rule identifier
func WithRuleID(id string) RuleOption {
	return func(r *Rule) {
		if id != "" {
			r.ID = id
		}
	}
}

// WithDescription attaches free text to the rule
func WithDescription(description string) RuleOption {
	return func(r *Rule) { r.Description = description }
}

// WithEnabled sets the initial enabled flag
func WithEnabled(enabled bool) RuleOption {
	return func(r *Rule) { r.Enabled = enabled }
}

// WithTriggered sets the initial triggered flag
func WithTriggered(triggered bool) RuleOption {
	return func(r *Rule) { r.Triggered = triggered }
}

// NewRuleID returns a short random rule identifier
func NewRuleID() string {
	return uuid.NewString()[:8]
}

// NewRule builds and validates a rule. The symbol is normalized to upper case.
func NewRule(
	symbol string,
	action RuleAction,
	condition RuleCondition,
	targetPrice decimal.Decimal,
	quantity int,
	opts ...RuleOption,
) (*Rule, error) {
	r := &Rule{
		ID:          NewRuleID(),
		Symbol:      strings.ToUpper(strings.TrimSpace(symbol)),
		Action:      action,
		Condition:   condition,
		TargetPrice: targetPrice,
		Quantity:    quantity,
		Enabled:     true,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the rule invariants
func (r *Rule) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidRule)
	}
	if !r.Action.IsValid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidRule, string(r.Action))
	}
	if !r.Condition.IsValid() {
		return fmt.Errorf("%w: unknown condition %q", ErrInvalidRule, string(r.Condition))
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidRule)
	}
	if !r.TargetPrice.IsPositive() {
		return fmt.Errorf("%w: target price must be positive", ErrInvalidRule)
	}
	return nil
}

// IsActive reports whether the rule is enabled and has not yet triggered
func (r *Rule) IsActive() bool {
	return r.Enabled && !r.Triggered
}

// Check reports whether the rule should fire at the given price.
// It does not change the rule; callers latch Triggered after acting.
func (r *Rule) Check(currentPrice decimal.Decimal) bool {
	if !r.IsActive() {
		return false
	}
	return r.ConditionMet(currentPrice)
}

// ConditionMet evaluates the price condition alone, ignoring the
// enabled and triggered flags. Boundary prices satisfy both conditions.
func (r *Rule) ConditionMet(currentPrice decimal.Decimal) bool {
	switch r.Condition {
	case RuleConditionBelow:
		return currentPrice.LessThanOrEqual(r.TargetPrice)
	case RuleConditionAbove:
		return currentPrice.GreaterThanOrEqual(r.TargetPrice)
	}
	panic(fmt.Sprintf("models: unhandled rule condition %q", string(r.Condition)))
}

// Notional returns quantity × price
func (r *Rule) Notional(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(r.Quantity)))
}

// String returns a human-readable representation
func (r *Rule) String() string {
	status := "✓"
	if !r.Enabled {
		status = "✗"
	}
	cond := "≥"
	if r.Condition == RuleConditionBelow {
		cond = "≤"
	}
	return fmt.Sprintf("[%s] %s %d %s when price %s $%s",
		status, strings.ToUpper(string(r.Action)), r.Quantity, r.Symbol, cond, r.TargetPrice.String())
}
