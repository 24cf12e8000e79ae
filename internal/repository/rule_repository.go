package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yourusername/autotrader/internal/models"
	"gopkg.in/yaml.v3"
)

// rulesDocument is the on-disk layout of the rules file
type rulesDocument struct {
	Rules []models.RuleRecord `yaml:"rules"`
}

// YAMLRuleRepository implements RuleRepository over a single YAML file.
// Writes go to a temporary file that is renamed over the original.
type YAMLRuleRepository struct {
	path string
	mu   sync.Mutex
}

// NewYAMLRuleRepository creates a rule store backed by path
func NewYAMLRuleRepository(path string) *YAMLRuleRepository {
	return &YAMLRuleRepository{path: path}
}

// Path returns the backing file path
func (r *YAMLRuleRepository) Path() string {
	return r.path
}

// Load returns all rules in file order. A missing file yields no rules.
func (r *YAMLRuleRepository) Load(ctx context.Context) ([]*models.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(ctx)
}

// Save inserts the rule or replaces the stored rule with the same id
func (r *YAMLRuleRepository) Save(ctx context.Context, rule *models.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	_, err := r.update(ctx, func(rules []*models.Rule) ([]*models.Rule, bool) {
		for i, existing := range rules {
			if existing.ID == rule.ID {
				rules[i] = cloneRule(rule)
				return rules, true
			}
		}
		return append(rules, cloneRule(rule)), true
	})
	return err
}

// Delete removes a rule by id and reports whether it existed
func (r *YAMLRuleRepository) Delete(ctx context.Context, id string) (bool, error) {
	return r.update(ctx, func(rules []*models.Rule) ([]*models.Rule, bool) {
		kept := make([]*models.Rule, 0, len(rules))
		for _, rule := range rules {
			if rule.ID != id {
				kept = append(kept, rule)
			}
		}
		return kept, len(kept) != len(rules)
	})
}

// Get returns the rule with the given id or models.ErrNotFound
func (r *YAMLRuleRepository) Get(ctx context.Context, id string) (*models.Rule, error) {
	rules, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, fmt.Errorf("rule %s: %w", id, models.ErrNotFound)
}

// SetEnabled toggles a rule and reports whether it was found
func (r *YAMLRuleRepository) SetEnabled(ctx context.Context, id string, enabled bool) (bool, error) {
	return r.modify(ctx, id, func(rule *models.Rule) { rule.Enabled = enabled })
}

// MarkTriggered latches a rule so it never fires again
func (r *YAMLRuleRepository) MarkTriggered(ctx context.Context, id string) (bool, error) {
	return r.modify(ctx, id, func(rule *models.Rule) { rule.Triggered = true })
}

func (r *YAMLRuleRepository) modify(ctx context.Context, id string, fn func(*models.Rule)) (bool, error) {
	return r.update(ctx, func(rules []*models.Rule) ([]*models.Rule, bool) {
		for _, rule := range rules {
			if rule.ID == id {
				fn(rule)
				return rules, true
			}
		}
		return rules, false
	})
}

// update runs one load, modify, save cycle under the store lock. The file is
// only rewritten when fn reports a change.
func (r *YAMLRuleRepository) update(ctx context.Context, fn func([]*models.Rule) ([]*models.Rule, bool)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rules, err := r.load(ctx)
	if err != nil {
		return false, err
	}

	updated, changed := fn(rules)
	if !changed {
		return false, nil
	}
	if err := r.saveAll(ctx, updated); err != nil {
		return false, err
	}
	return true, nil
}

func (r *YAMLRuleRepository) load(ctx context.Context) ([]*models.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return []*models.Rule{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var doc rulesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", r.path, err)
	}

	rules := make([]*models.Rule, 0, len(doc.Rules))
	for i, rec := range doc.Rules {
		rule, err := rec.ToRule()
		if err != nil {
			return nil, fmt.Errorf("rules file %s entry %d: %w", r.path, i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r *YAMLRuleRepository) saveAll(ctx context.Context, rules []*models.Rule) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := rulesDocument{Rules: make([]models.RuleRecord, 0, len(rules))}
	for _, rule := range rules {
		doc.Rules = append(doc.Rules, rule.ToRecord())
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}

	return writeFileAtomic(r.path, buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".rules-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp rules file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write rules file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync rules file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close rules file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace rules file: %w", err)
	}
	return nil
}

func cloneRule(rule *models.Rule) *models.Rule {
	c := *rule
	return &c
}
