package wizard

import "fmt"

func f(v float64) *float64 { return &v }

// SignupSteps defines the account sign-up flow.
func SignupSteps() []Step {
	return []Step{
		{
			Name: "account",
			Rules: []FieldRule{
				{Name: "email", Required: true, MinLen: 3},
				{Name: "password", Required: true, MinLen: 8},
				{Name: "password_confirmation", Required: true, MatchField: "password"},
			},
		},
		{
			Name: "company",
			Rules: []FieldRule{
				{Name: "company_name", Required: true},
				{Name: "industry", Required: true},
			},
		},
		{
			Name: "profile",
			Rules: []FieldRule{
				{Name: "employee_count", Required: true, Numeric: true, Min: f(1)},
				{Name: "annual_revenue", Numeric: true, Min: f(0)},
			},
		},
	}
}

// OnboardingSteps defines the post-signup company onboarding flow.
func OnboardingSteps() []Step {
	return []Step{
		{
			Name: "goals",
			Rules: []FieldRule{
				{Name: "reduction_target_pct", Required: true, Numeric: true, Min: f(0), Max: f(100)},
				{Name: "target_year", Required: true, Numeric: true, Min: f(2024), Max: f(2100)},
			},
		},
		{
			Name: "facilities",
			Rules: []FieldRule{
				{Name: "facility_count", Required: true, Numeric: true, Min: f(1)},
				{Name: "primary_region", Required: true},
			},
		},
		{
			Name: "reporting",
			Rules: []FieldRule{
				{Name: "reporting_framework", Required: true, OneOf: []string{"ghg_protocol", "sb253", "csrd"}},
			},
		},
	}
}

// BaselineSteps defines the baseline-calculator flow. Activity quantities
// are optional: blanks become zero and the estimate degrades instead of
// failing.
func BaselineSteps() []Step {
	return []Step{
		{
			Name: "period",
			Rules: []FieldRule{
				{Name: "period_start", Required: true},
				{Name: "period_end", Required: true},
			},
		},
		{
			Name: "activity",
			Rules: []FieldRule{
				{Name: "natural_gas_m3", Numeric: true, Min: f(0)},
				{Name: "fuel_liters", Numeric: true, Min: f(0)},
				{Name: "electricity_kwh", Numeric: true, Min: f(0)},
				{Name: "annual_spend", Numeric: true, Min: f(0)},
			},
		},
		{
			Name: "method",
			Rules: []FieldRule{
				{Name: "calculation_method", Required: true, OneOf: []string{"quick", "hybrid", "detailed"}},
			},
		},
	}
}

// FlowSteps returns the step definitions for a named flow.
func FlowSteps(flow string) ([]Step, error) {
	switch flow {
	case "signup":
		return SignupSteps(), nil
	case "onboarding":
		return OnboardingSteps(), nil
	case "baseline":
		return BaselineSteps(), nil
	default:
		return nil, fmt.Errorf("unknown wizard flow %q", flow)
	}
}
