package carbon

import (
	"math"
	"testing"
)

func TestSumScopes(t *testing.T) {
	tests := []struct {
		name       string
		s1, s2, s3 float64
		want       float64
	}{
		{"all zero", 0, 0, 0, 0},
		{"typical", 1500.5, 2300.2, 3200.8, 7001.5},
		{"single scope", 0, 0, 2500, 2500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SumScopes(tt.s1, tt.s2, tt.s3)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SumScopes(%v, %v, %v) = %v, want %v", tt.s1, tt.s2, tt.s3, got, tt.want)
			}
		})
	}
}

func TestPercentOf(t *testing.T) {
	tests := []struct {
		name      string
		component float64
		total     float64
		want      float64
	}{
		{"zero total never divides", 42, 0, 0},
		{"zero component", 0, 100, 0},
		{"half", 50, 100, 50},
		{"rounds up", 1, 3, 33},
		{"rounds to nearest", 2, 3, 67},
		{"full", 100, 100, 100},
		{"clamped above", 150, 100, 100},
		{"clamped below", -10, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentOf(tt.component, tt.total)
			if got != tt.want {
				t.Errorf("PercentOf(%v, %v) = %v, want %v", tt.component, tt.total, got, tt.want)
			}
		})
	}
}

// Rounded scope percentages must sum to ~100 when the total is positive.
func TestPercentOfScopesSumNear100(t *testing.T) {
	cases := [][3]float64{
		{1500.5, 2300.2, 3200.8},
		{1, 1, 1},
		{0.1, 0.1, 99.8},
		{10, 0, 0},
	}

	for _, c := range cases {
		total := SumScopes(c[0], c[1], c[2])
		sum := PercentOf(c[0], total) + PercentOf(c[1], total) + PercentOf(c[2], total)
		if math.Abs(sum-100) > 2 {
			t.Errorf("percentages for %v sum to %v, want within rounding tolerance of 100", c, sum)
		}
	}
}

func TestKgToTons(t *testing.T) {
	if got := KgToTons(2500000); got != 2500 {
		t.Errorf("KgToTons(2500000) = %v, want 2500", got)
	}
	if got := KgToTons(0); got != 0 {
		t.Errorf("KgToTons(0) = %v, want 0", got)
	}
}
