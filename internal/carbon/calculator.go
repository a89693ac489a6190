package carbon

import "math"

// SumScopes returns the grand total across the three GHG Protocol scopes.
// Callers that hold optional inputs substitute zero before calling; this
// function itself never fails.
func SumScopes(scope1, scope2, scope3 float64) float64 {
	return scope1 + scope2 + scope3
}

// PercentOf returns the share of component in total as a whole percentage,
// rounded to the nearest integer and clamped to [0,100]. A zero total yields
// 0 rather than NaN or Inf.
func PercentOf(component, total float64) float64 {
	if total == 0 {
		return 0
	}

	pct := math.Round(component / total * 100)

	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}

	return pct
}

// KgToTons converts kilograms CO2e to metric tons CO2e.
func KgToTons(kg float64) float64 {
	return kg / 1000
}
