package carbon

import (
	"encoding/json"
	"fmt"
	"sort"
)

// CategoryAmount is one category→amount pair in input order.
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// RankedEntry is one row of a ranked breakdown. PercentOfTotal is exact
// (unrounded) so that chart consumers keep full precision.
type RankedEntry struct {
	Category       string  `json:"category"`
	Amount         float64 `json:"amount"`
	PercentOfTotal float64 `json:"percent_of_total"`
}

// Rank turns an ordered category→amount sequence into a ranked breakdown:
// entries with amount ≤ 0 are dropped, the rest are sorted by amount
// descending with ties keeping input order, and each entry carries its share
// of the positive total. A zero total yields 0% for every entry.
func Rank(entries []CategoryAmount) []RankedEntry {
	kept := make([]CategoryAmount, 0, len(entries))
	total := 0.0

	for _, e := range entries {
		if e.Amount <= 0 {
			continue
		}
		kept = append(kept, e)
		total += e.Amount
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Amount > kept[j].Amount
	})

	ranked := make([]RankedEntry, 0, len(kept))
	for _, e := range kept {
		pct := 0.0
		if total != 0 {
			pct = e.Amount / total * 100
		}
		ranked = append(ranked, RankedEntry{
			Category:       e.Category,
			Amount:         e.Amount,
			PercentOfTotal: pct,
		})
	}

	return ranked
}

// BreakdownFromMap normalizes a category→amount mapping to the ordered
// sequence Rank expects. Maps carry no order, so categories are sorted by
// name first; this makes tie-breaking deterministic for map-shaped input.
func BreakdownFromMap(m map[string]float64) []CategoryAmount {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]CategoryAmount, 0, len(m))
	for _, name := range names {
		entries = append(entries, CategoryAmount{Category: name, Amount: m[name]})
	}

	return entries
}

// BreakdownFromJSON parses a JSON-encoded category→amount object (the shape
// stored in the scope3_breakdown column) and normalizes it the same way as
// BreakdownFromMap.
func BreakdownFromJSON(data []byte) ([]CategoryAmount, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse breakdown: %w", err)
	}

	return BreakdownFromMap(m), nil
}
