// Package compliance evaluates regulatory threshold rules against a
// company's emissions summary. Rules are JsonLogic expressions shipped as
// YAML configuration, so the thresholds stay data, not code.
package compliance

import (
	"fmt"
	"os"

	"github.com/diegoholiveira/jsonlogic/v3"
	"gopkg.in/yaml.v3"
)

// Rule is one named compliance check. When is a JsonLogic expression
// evaluated against the summary variables; a truthy result triggers the rule.
type Rule struct {
	ID          string         `yaml:"id"`
	Framework   string         `yaml:"framework"`
	Severity    string         `yaml:"severity"`
	Description string         `yaml:"description"`
	When        map[string]any `yaml:"when"`
}

// RulePack is the on-disk YAML document holding the rule set.
type RulePack struct {
	Rules []Rule `yaml:"rules"`
}

// Finding is a triggered rule for a specific evaluation.
type Finding struct {
	RuleID      string `json:"rule_id"`
	Framework   string `json:"framework"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// DefaultRules returns the built-in rule set. Thresholds are illustrative;
// deployments supply their own pack.
func DefaultRules() RulePack {
	return RulePack{Rules: []Rule{
		{
			ID:          "sb253_scope12_disclosure",
			Framework:   "sb253",
			Severity:    "warning",
			Description: "Scope 1 and 2 disclosure required above 10,000 tCO2e total",
			When:        map[string]any{">": []any{map[string]any{"var": "total_tons"}, 10000.0}},
		},
		{
			ID:          "scope3_reporting_gap",
			Framework:   "ghg_protocol",
			Severity:    "info",
			Description: "Scope 3 reported as zero while Scope 1+2 are non-zero; value-chain screening recommended",
			When: map[string]any{"and": []any{
				map[string]any{"==": []any{map[string]any{"var": "scope3_tons"}, 0.0}},
				map[string]any{">": []any{map[string]any{"var": "scope1_tons"}, 0.0}},
			}},
		},
		{
			ID:          "low_data_quality",
			Framework:   "ghg_protocol",
			Severity:    "info",
			Description: "Baseline uses quick-method estimates; upgrade data quality before external reporting",
			When:        map[string]any{"<": []any{map[string]any{"var": "data_quality_score"}, 80.0}},
		},
	}}
}

// LoadRulePack reads a YAML rule pack from path, falling back to the default
// set when the file has no rules.
func LoadRulePack(path string) (RulePack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultRules(), fmt.Errorf("failed to read rule pack: %w", err)
	}

	var pack RulePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return DefaultRules(), fmt.Errorf("failed to parse rule pack: %w", err)
	}

	if len(pack.Rules) == 0 {
		return DefaultRules(), nil
	}

	return pack, nil
}

// Evaluator applies a rule pack to summary variables.
type Evaluator struct {
	pack RulePack
}

// NewEvaluator creates an evaluator over the given pack.
func NewEvaluator(pack RulePack) *Evaluator {
	return &Evaluator{pack: pack}
}

// Evaluate runs every rule against vars and returns the triggered findings.
// A rule whose expression fails to evaluate is skipped with an error joined
// into the returned error; the remaining rules still run.
func (e *Evaluator) Evaluate(vars map[string]any) ([]Finding, error) {
	findings := make([]Finding, 0)
	var firstErr error

	for _, rule := range e.pack.Rules {
		result, err := jsonlogic.ApplyInterface(rule.When, vars)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("rule %q failed to evaluate: %w", rule.ID, err)
			}
			continue
		}

		if truthy(result) {
			findings = append(findings, Finding{
				RuleID:      rule.ID,
				Framework:   rule.Framework,
				Severity:    rule.Severity,
				Description: rule.Description,
			})
		}
	}

	return findings, firstErr
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	default:
		return true
	}
}
