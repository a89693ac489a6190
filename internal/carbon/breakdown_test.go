package carbon

import (
	"math"
	"testing"
)

func TestRankFiltersAndOrders(t *testing.T) {
	// {A:0, B:50, C:30} → A dropped, B then C, 62.5% / 37.5%.
	got := Rank([]CategoryAmount{
		{Category: "A", Amount: 0},
		{Category: "B", Amount: 50},
		{Category: "C", Amount: 30},
	})

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Category != "B" || got[0].Amount != 50 {
		t.Errorf("first = %+v, want B(50)", got[0])
	}
	if math.Abs(got[0].PercentOfTotal-62.5) > 1e-9 {
		t.Errorf("B percent = %v, want 62.5", got[0].PercentOfTotal)
	}
	if got[1].Category != "C" || got[1].Amount != 30 {
		t.Errorf("second = %+v, want C(30)", got[1])
	}
	if math.Abs(got[1].PercentOfTotal-37.5) > 1e-9 {
		t.Errorf("C percent = %v, want 37.5", got[1].PercentOfTotal)
	}
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	got := Rank([]CategoryAmount{
		{Category: "business_travel", Amount: 10},
		{Category: "commuting", Amount: 10},
		{Category: "waste", Amount: 10},
	})

	want := []string{"business_travel", "commuting", "waste"}
	for i, name := range want {
		if got[i].Category != name {
			t.Errorf("entry %d = %q, want %q (ties must keep input order)", i, got[i].Category, name)
		}
	}
}

func TestRankNegativeAmountsDropped(t *testing.T) {
	got := Rank([]CategoryAmount{
		{Category: "credit", Amount: -5},
		{Category: "fuel", Amount: 5},
	})

	if len(got) != 1 || got[0].Category != "fuel" {
		t.Fatalf("got %+v, want only fuel", got)
	}
	if got[0].PercentOfTotal != 100 {
		t.Errorf("percent = %v, want 100", got[0].PercentOfTotal)
	}
}

func TestRankAllZeroYieldsEmpty(t *testing.T) {
	got := Rank([]CategoryAmount{
		{Category: "a", Amount: 0},
		{Category: "b", Amount: 0},
	})
	if len(got) != 0 {
		t.Errorf("got %d entries, want 0", len(got))
	}
}

func TestBreakdownFromMapIsDeterministic(t *testing.T) {
	m := map[string]float64{"waste": 10, "commuting": 10, "travel": 20}

	for i := 0; i < 10; i++ {
		entries := BreakdownFromMap(m)
		if entries[0].Category != "commuting" || entries[1].Category != "travel" || entries[2].Category != "waste" {
			t.Fatalf("iteration %d: order %v not name-ascending", i, entries)
		}
	}

	ranked := Rank(BreakdownFromMap(m))
	if ranked[0].Category != "travel" {
		t.Errorf("top = %q, want travel", ranked[0].Category)
	}
	// Tied categories come out in normalized (name) order.
	if ranked[1].Category != "commuting" || ranked[2].Category != "waste" {
		t.Errorf("tie order = %q,%q, want commuting,waste", ranked[1].Category, ranked[2].Category)
	}
}

func TestBreakdownFromJSON(t *testing.T) {
	entries, err := BreakdownFromJSON([]byte(`{"purchased_goods": 120.5, "business_travel": 30}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}

	if _, err := BreakdownFromJSON([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}

	entries, err = BreakdownFromJSON(nil)
	if err != nil || entries != nil {
		t.Errorf("empty input: got (%v, %v), want (nil, nil)", entries, err)
	}
}

func TestEquivalency(t *testing.T) {
	eq := DefaultEquivalencies()

	got := eq.Equivalency(100, 20)
	if got.CreditsNeeded != 100 {
		t.Errorf("CreditsNeeded = %v, want 100", got.CreditsNeeded)
	}
	if got.RetirementCost != 2000 {
		t.Errorf("RetirementCost = %v, want 2000", got.RetirementCost)
	}
	if got.TreesPlanted != 100*eq.TreesPerTon {
		t.Errorf("TreesPlanted = %v, want %v", got.TreesPlanted, 100*eq.TreesPerTon)
	}

	got = eq.Equivalency(-5, 0)
	if got.TotalTons != 0 || got.RetirementCost != 0 {
		t.Errorf("negative tons should clamp to zero, got %+v", got)
	}

	got = eq.Equivalency(10, 0)
	if got.RetirementCost != 10*eq.DefaultPricePerTon {
		t.Errorf("zero price should use pack default, got %v", got.RetirementCost)
	}
}
