package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateDefaultRules(t *testing.T) {
	eval := NewEvaluator(DefaultRules())

	tests := []struct {
		name    string
		vars    map[string]any
		wantIDs []string
	}{
		{
			name: "large emitter with weak data trips disclosure and quality rules",
			vars: map[string]any{
				"total_tons":         12000.0,
				"scope1_tons":        4000.0,
				"scope2_tons":        5000.0,
				"scope3_tons":        3000.0,
				"data_quality_score": 60.0,
			},
			wantIDs: []string{"sb253_scope12_disclosure", "low_data_quality"},
		},
		{
			name: "missing scope 3 flagged",
			vars: map[string]any{
				"total_tons":         500.0,
				"scope1_tons":        300.0,
				"scope2_tons":        200.0,
				"scope3_tons":        0.0,
				"data_quality_score": 95.0,
			},
			wantIDs: []string{"scope3_reporting_gap"},
		},
		{
			name: "clean detailed baseline triggers nothing",
			vars: map[string]any{
				"total_tons":         800.0,
				"scope1_tons":        100.0,
				"scope2_tons":        200.0,
				"scope3_tons":        500.0,
				"data_quality_score": 95.0,
			},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, err := eval.Evaluate(tt.vars)
			require.NoError(t, err)

			ids := make([]string, 0, len(findings))
			for _, f := range findings {
				ids = append(ids, f.RuleID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestEvaluateCustomRule(t *testing.T) {
	eval := NewEvaluator(RulePack{Rules: []Rule{{
		ID:          "intensity_ceiling",
		Framework:   "internal",
		Severity:    "critical",
		Description: "emissions intensity above internal ceiling",
		When:        map[string]any{">": []any{map[string]any{"var": "intensity"}, 2.5}},
	}}})

	findings, err := eval.Evaluate(map[string]any{"intensity": 3.1})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "critical", findings[0].Severity)

	findings, err = eval.Evaluate(map[string]any{"intensity": 1.0})
	require.NoError(t, err)
	assert.Empty(t, findings)
}
