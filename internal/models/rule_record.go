package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RuleRecord is the persisted form of a Rule. Prices are kept as text so the
// stored value is exactly what the user entered.
type RuleRecord struct {
	ID          string `yaml:"id" json:"id"`
	Symbol      string `yaml:"symbol" json:"symbol"`
	Action      string `yaml:"action" json:"action"`
	Condition   string `yaml:"condition" json:"condition"`
	TargetPrice string `yaml:"target_price" json:"target_price"`
	Quantity    int    `yaml:"quantity" json:"quantity"`
	Enabled     *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Triggered   *bool  `yaml:"triggered,omitempty" json:"triggered,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ToRecord converts the rule to its persisted form
func (r *Rule) ToRecord() RuleRecord {
	enabled := r.Enabled
	triggered := r.Triggered
	return RuleRecord{
		ID:          r.ID,
		Symbol:      r.Symbol,
		Action:      string(r.Action),
		Condition:   string(r.Condition),
		TargetPrice: r.TargetPrice.String(),
		Quantity:    r.Quantity,
		Enabled:     &enabled,
		Triggered:   &triggered,
		Description: r.Description,
	}
}

// ToRule parses and validates a persisted record. A record without an id
// receives a fresh one; missing flags default to enabled and not triggered.
func (rec RuleRecord) ToRule() (*Rule, error) {
	action, err := ParseRuleAction(rec.Action)
	if err != nil {
		return nil, err
	}
	condition, err := ParseRuleCondition(rec.Condition)
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(rec.TargetPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: target price %q: %v", ErrInvalidRule, rec.TargetPrice, err)
	}

	opts := []RuleOption{WithRuleID(rec.ID), WithDescription(rec.Description)}
	if rec.Enabled != nil {
		opts = append(opts, WithEnabled(*rec.Enabled))
	}
	if rec.Triggered != nil {
		opts = append(opts, WithTriggered(*rec.Triggered))
	}

	return NewRule(rec.Symbol, action, condition, price, rec.Quantity, opts...)
}
