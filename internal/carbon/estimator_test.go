package carbon

import (
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestEstimatorSpendOnlyScenario(t *testing.T) {
	// Quick method, all activity blank except annual spend of 5,000,000:
	// 5,000,000 × 0.5 kg/unit / 1000 = 2500 tons, all of it scope 3.
	est := NewEstimator(DefaultFactors())

	got := est.Estimate(BaselineInput{
		NaturalGasM3:   ptr(0),
		FuelLiters:     ptr(0),
		ElectricityKWh: ptr(0),
		AnnualSpend:    ptr(5000000),
	}, MethodQuick)

	if got.Scope1Tons != 0 {
		t.Errorf("Scope1Tons = %v, want 0", got.Scope1Tons)
	}
	if got.Scope2Tons != 0 {
		t.Errorf("Scope2Tons = %v, want 0", got.Scope2Tons)
	}
	if got.Scope3Tons != 2500 {
		t.Errorf("Scope3Tons = %v, want 2500", got.Scope3Tons)
	}
	if got.TotalTons != 2500 {
		t.Errorf("TotalTons = %v, want 2500", got.TotalTons)
	}
	if got.DataQualityScore != 60 {
		t.Errorf("DataQualityScore = %v, want 60", got.DataQualityScore)
	}
}

func TestEstimatorBlankInputsNeverFail(t *testing.T) {
	est := NewEstimator(DefaultFactors())

	tests := []struct {
		name      string
		method    CalculationMethod
		wantScore int
	}{
		{"quick", MethodQuick, 60},
		{"hybrid", MethodHybrid, 80},
		{"detailed", MethodDetailed, 95},
		{"unknown falls back to quick", CalculationMethod("guesswork"), 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := est.Estimate(BaselineInput{}, tt.method)
			if got.TotalTons != 0 {
				t.Errorf("TotalTons = %v, want 0 for all-blank input", got.TotalTons)
			}
			if got.DataQualityScore != tt.wantScore {
				t.Errorf("DataQualityScore = %v, want %v", got.DataQualityScore, tt.wantScore)
			}
		})
	}
}

func TestEstimatorSplitsScopes(t *testing.T) {
	est := NewEstimator(FactorPack{
		NaturalGasKgPerM3:   2.0,
		FuelKgPerLiter:      2.5,
		ElectricityKgPerKWh: 0.5,
		SpendKgPerUnit:      0.5,
	})

	got := est.Estimate(BaselineInput{
		NaturalGasM3:   ptr(1000), // 2000 kg
		FuelLiters:     ptr(400),  // 1000 kg
		ElectricityKWh: ptr(8000), // 4000 kg
		AnnualSpend:    ptr(2000), // 1000 kg
	}, MethodDetailed)

	if math.Abs(got.Scope1Tons-3.0) > 1e-9 {
		t.Errorf("Scope1Tons = %v, want 3.0", got.Scope1Tons)
	}
	if math.Abs(got.Scope2Tons-4.0) > 1e-9 {
		t.Errorf("Scope2Tons = %v, want 4.0", got.Scope2Tons)
	}
	if math.Abs(got.Scope3Tons-1.0) > 1e-9 {
		t.Errorf("Scope3Tons = %v, want 1.0", got.Scope3Tons)
	}
	if math.Abs(got.TotalTons-8.0) > 1e-9 {
		t.Errorf("TotalTons = %v, want 8.0", got.TotalTons)
	}
}

func TestMethodValid(t *testing.T) {
	for _, m := range []CalculationMethod{MethodQuick, MethodHybrid, MethodDetailed} {
		if !m.Valid() {
			t.Errorf("%q should be valid", m)
		}
	}
	if CalculationMethod("audit").Valid() {
		t.Error("unknown method should not be valid")
	}
}
