package carbon

// OffsetEquivalency expresses an emissions total in offset terms: credits to
// retire it, cost at a per-ton price, and illustrative equivalents. All
// ratios come from the equivalency pack, never from code.
type OffsetEquivalency struct {
	TotalTons      float64 `json:"total_tons"`
	CreditsNeeded  float64 `json:"credits_needed"`
	RetirementCost float64 `json:"retirement_cost"`
	TreesPlanted   float64 `json:"trees_planted_equivalent"`
	CarMiles       float64 `json:"car_miles_equivalent"`
}

// Equivalency converts tons CO2e into offset terms. pricePerTon ≤ 0 falls
// back to the pack default. Negative tons are treated as zero; an offset
// position cannot be negative.
func (p EquivalencyPack) Equivalency(tons, pricePerTon float64) OffsetEquivalency {
	if tons < 0 {
		tons = 0
	}
	if pricePerTon <= 0 {
		pricePerTon = p.DefaultPricePerTon
	}

	return OffsetEquivalency{
		TotalTons:      tons,
		CreditsNeeded:  tons,
		RetirementCost: tons * pricePerTon,
		TreesPlanted:   tons * p.TreesPerTon,
		CarMiles:       tons * p.CarMilesPerTon,
	}
}
