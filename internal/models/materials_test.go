package models

import "testing"

// Boundary exactness at every threshold: lower bounds are inclusive.
func TestClassifyQuality(t *testing.T) {
	tests := []struct {
		score float64
		want  Grade
	}{
		{100, GradeAPlus},
		{95, GradeAPlus},
		{94.9, GradeA},
		{85, GradeA},
		{84.9, GradeB},
		{70, GradeB},
		{69.9, GradeC},
		{55, GradeC},
		{54.9, GradeD},
		{40, GradeD},
		{39.9, GradeF},
		{0, GradeF},
		{-10, GradeF},
		{130, GradeAPlus},
	}

	for _, tt := range tests {
		if got := ClassifyQuality(tt.score); got != tt.want {
			t.Errorf("ClassifyQuality(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestMaterialListingValidate(t *testing.T) {
	valid := MaterialListing{
		MaterialType: "aluminum_scrap",
		Quantity:     120,
		Unit:         "kg",
		QualityScore: 88,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid listing rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*MaterialListing)
		field  string
	}{
		{"missing type", func(m *MaterialListing) { m.MaterialType = "" }, "material_type"},
		{"zero quantity", func(m *MaterialListing) { m.Quantity = 0 }, "quantity"},
		{"negative quantity", func(m *MaterialListing) { m.Quantity = -1 }, "quantity"},
		{"missing unit", func(m *MaterialListing) { m.Unit = "" }, "unit"},
		{"negative price", func(m *MaterialListing) { m.PricePerUnit = -0.01 }, "price_per_unit"},
		{"score above band", func(m *MaterialListing) { m.QualityScore = 101 }, "quality_score"},
		{"score below band", func(m *MaterialListing) { m.QualityScore = -0.1 }, "quality_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)

			err := m.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

// The grade must always track the score, including after updates.
func TestListingGradeRecomputed(t *testing.T) {
	m := MaterialListing{MaterialType: "glass_cullet", Quantity: 10, Unit: "ton", QualityScore: 96}
	if m.Grade() != GradeAPlus {
		t.Errorf("Grade() = %q, want A+", m.Grade())
	}

	m.QualityScore = 42
	if m.Grade() != GradeD {
		t.Errorf("after score change Grade() = %q, want D", m.Grade())
	}

	view := m.View()
	if view.DerivedGrade != GradeD {
		t.Errorf("View().DerivedGrade = %q, want D", view.DerivedGrade)
	}
}
