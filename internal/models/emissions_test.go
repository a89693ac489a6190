package models

import (
	"testing"
	"time"
)

func TestEmissionsRecordTotalAndValidate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	rec := EmissionsRecord{
		CompanyID:   1,
		PeriodStart: start,
		PeriodEnd:   end,
		Scope1Tons:  1500.5,
		Scope2Tons:  2300.2,
		Scope3Tons:  3200.8,
	}

	if err := rec.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}
	if got := rec.TotalTons(); got != 7001.5 {
		t.Errorf("TotalTons() = %v, want 7001.5", got)
	}

	neg := rec
	neg.Scope2Tons = -1
	if err := neg.Validate(); err == nil {
		t.Error("negative scope total should fail validation")
	}

	inverted := rec
	inverted.PeriodStart, inverted.PeriodEnd = end, start
	if err := inverted.Validate(); err == nil {
		t.Error("inverted period should fail validation")
	}
}

func TestEmissionSourceValidate(t *testing.T) {
	src := EmissionSource{SourceType: "natural_gas", Scope: 1, AmountTons: 12.5}
	if err := src.Validate(); err != nil {
		t.Fatalf("valid source rejected: %v", err)
	}

	src.Scope = 4
	if err := src.Validate(); err == nil {
		t.Error("scope 4 should fail validation")
	}

	src.Scope = 2
	src.AmountTons = -0.5
	if err := src.Validate(); err == nil {
		t.Error("negative amount should fail validation")
	}
}
