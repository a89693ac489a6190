package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoStep() *Machine {
	m, err := New([]Step{
		{Name: "first", Rules: []FieldRule{{Name: "email", Required: true}}},
		{Name: "second", Rules: []FieldRule{{Name: "company_name", Required: true}}},
	})
	if err != nil {
		panic(err)
	}
	return m
}

func TestNewRequiresSteps(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestAdvanceValidatesCurrentStep(t *testing.T) {
	m := twoStep()

	err := m.Advance(map[string]string{"email": ""})
	require.Error(t, err)
	assert.Equal(t, 0, m.Current(), "failed validation must not advance")

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Field)
	assert.Equal(t, "required", verr.Rule)

	require.NoError(t, m.Advance(map[string]string{"email": "ops@example.com"}))
	assert.Equal(t, 1, m.Current())
}

func TestRetreatKeepsDataRoundTrip(t *testing.T) {
	m := twoStep()
	require.NoError(t, m.Advance(map[string]string{"email": "ops@example.com"}))

	before := m.StepData(0)

	m.Retreat()
	assert.Equal(t, 0, m.Current())
	assert.Equal(t, before, m.StepData(0), "retreat must not discard step data")

	// Re-advancing with the retained data reproduces the same stepData.
	require.NoError(t, m.Advance(m.StepData(0)))
	assert.Equal(t, 1, m.Current())
	assert.Equal(t, before, m.StepData(0))
}

func TestRetreatAtFirstStepIsNoop(t *testing.T) {
	m := twoStep()
	m.Retreat()
	assert.Equal(t, 0, m.Current())
}

func TestFinalizeUnreachableBeforeLastStep(t *testing.T) {
	m := twoStep()

	err := m.Finalize(context.Background(), map[string]string{"company_name": "Acme"}, nil)
	require.Error(t, err)
	assert.False(t, m.Submitted())
}

func TestFinalizeGatedOnLastStepValidation(t *testing.T) {
	m := twoStep()
	require.NoError(t, m.Advance(map[string]string{"email": "ops@example.com"}))

	err := m.Finalize(context.Background(), map[string]string{}, nil)
	require.Error(t, err)
	assert.False(t, m.Submitted())
	assert.Equal(t, 1, m.Current())

	require.NoError(t, m.Finalize(context.Background(), map[string]string{"company_name": "Acme"}, nil))
	assert.True(t, m.Submitted())
}

func TestFinalizeBundlesAllStepsIntoPayload(t *testing.T) {
	m := twoStep()
	require.NoError(t, m.Advance(map[string]string{"email": "ops@example.com"}))

	var payload map[string]string
	persist := func(_ context.Context, p map[string]string) error {
		payload = p
		return nil
	}

	require.NoError(t, m.Finalize(context.Background(), map[string]string{"company_name": "Acme"}, persist))
	assert.Equal(t, map[string]string{
		"email":        "ops@example.com",
		"company_name": "Acme",
	}, payload)
}

func TestFinalizePersistFailureKeepsState(t *testing.T) {
	m := twoStep()
	require.NoError(t, m.Advance(map[string]string{"email": "ops@example.com"}))

	storeDown := errors.New("store unavailable")
	err := m.Finalize(context.Background(), map[string]string{"company_name": "Acme"}, func(context.Context, map[string]string) error {
		return storeDown
	})
	require.ErrorIs(t, err, storeDown)
	assert.False(t, m.Submitted(), "persist failure must not reach Submitted")
	assert.Equal(t, 1, m.Current())

	// Manual resubmit succeeds once the store is back, data intact.
	require.NoError(t, m.Finalize(context.Background(), m.StepData(1), func(context.Context, map[string]string) error {
		return nil
	}))
	assert.True(t, m.Submitted())
}

func TestSubmittedMachineRejectsFurtherTransitions(t *testing.T) {
	m := twoStep()
	require.NoError(t, m.Advance(map[string]string{"email": "ops@example.com"}))
	require.NoError(t, m.Finalize(context.Background(), map[string]string{"company_name": "Acme"}, nil))

	assert.Error(t, m.Advance(map[string]string{"email": "x@example.com"}))
	assert.Error(t, m.Finalize(context.Background(), map[string]string{"company_name": "Other"}, nil))

	m.Retreat()
	assert.Equal(t, 1, m.Current(), "retreat after submit is a no-op")
}

func TestAdvanceOnLastStepRequiresFinalize(t *testing.T) {
	m := twoStep()
	require.NoError(t, m.Advance(map[string]string{"email": "ops@example.com"}))

	err := m.Advance(map[string]string{"company_name": "Acme"})
	require.Error(t, err)
	assert.Equal(t, 1, m.Current())
}

func TestFieldRules(t *testing.T) {
	steps := []Step{{
		Name: "account",
		Rules: []FieldRule{
			{Name: "password", Required: true, MinLen: 8},
			{Name: "password_confirmation", Required: true, MatchField: "password"},
			{Name: "employee_count", Numeric: true, Min: f(1), Max: f(500000)},
			{Name: "industry", OneOf: []string{"manufacturing", "retail"}},
		},
	}}
	m, err := New(steps)
	require.NoError(t, err)

	tests := []struct {
		name      string
		data      map[string]string
		wantField string
		wantRule  string
	}{
		{
			"short password",
			map[string]string{"password": "short", "password_confirmation": "short"},
			"password", "min_length",
		},
		{
			"confirmation mismatch",
			map[string]string{"password": "longenough", "password_confirmation": "different"},
			"password_confirmation", "match",
		},
		{
			"non-numeric count",
			map[string]string{"password": "longenough", "password_confirmation": "longenough", "employee_count": "many"},
			"employee_count", "numeric",
		},
		{
			"count below range",
			map[string]string{"password": "longenough", "password_confirmation": "longenough", "employee_count": "0"},
			"employee_count", "min",
		},
		{
			"count above range",
			map[string]string{"password": "longenough", "password_confirmation": "longenough", "employee_count": "600000"},
			"employee_count", "max",
		},
		{
			"industry not in set",
			map[string]string{"password": "longenough", "password_confirmation": "longenough", "industry": "aviation"},
			"industry", "one_of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Validate(0, tt.data)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Equal(t, tt.wantRule, verr.Rule)
		})
	}

	// Optional fields left blank pass every non-required rule.
	require.NoError(t, m.Validate(0, map[string]string{
		"password":              "longenough",
		"password_confirmation": "longenough",
	}))
}

func TestFlowSteps(t *testing.T) {
	for _, flow := range []string{"signup", "onboarding", "baseline"} {
		steps, err := FlowSteps(flow)
		require.NoError(t, err, flow)
		require.NotEmpty(t, steps, flow)
	}

	_, err := FlowSteps("checkout")
	require.Error(t, err)
}

func TestBaselineFlowLenientActivityStep(t *testing.T) {
	m, err := New(BaselineSteps())
	require.NoError(t, err)

	require.NoError(t, m.Advance(map[string]string{
		"period_start": "2024-01-01",
		"period_end":   "2024-12-31",
	}))

	// All activity inputs blank: allowed, estimation treats them as zero.
	require.NoError(t, m.Advance(map[string]string{}))

	require.NoError(t, m.Finalize(context.Background(), map[string]string{
		"calculation_method": "quick",
	}, nil))
	assert.True(t, m.Submitted())
}
