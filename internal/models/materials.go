package models

import "time"

// Grade is the ordinal quality classification for a traded material.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
)

// ClassifyQuality maps a continuous 0–100 quality score to a grade via fixed
// inclusive-lower-bound thresholds checked highest first. Total over all real
// inputs: out-of-range scores still land on A+ or F.
func ClassifyQuality(score float64) Grade {
	switch {
	case score >= 95:
		return GradeAPlus
	case score >= 85:
		return GradeA
	case score >= 70:
		return GradeB
	case score >= 55:
		return GradeC
	case score >= 40:
		return GradeD
	default:
		return GradeF
	}
}

// MaterialListing is a circular-economy marketplace listing. The grade is a
// pure function of QualityScore and is never stored, so score and grade
// cannot drift apart.
type MaterialListing struct {
	ID           int64     `json:"id" db:"id"`
	CompanyID    int64     `json:"company_id" db:"company_id"`
	MaterialType string    `json:"material_type" db:"material_type"`
	Quantity     float64   `json:"quantity" db:"quantity"`
	Unit         string    `json:"unit" db:"unit"`
	PricePerUnit float64   `json:"price_per_unit" db:"price_per_unit"`
	QualityScore float64   `json:"quality_score" db:"quality_score"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Grade returns the derived grade for the listing's quality score.
func (m *MaterialListing) Grade() Grade {
	return ClassifyQuality(m.QualityScore)
}

// Validate checks listing invariants: positive quantity and a score within
// the 0–100 band.
func (m *MaterialListing) Validate() error {
	if m.MaterialType == "" {
		return &ValidationError{Field: "material_type", Message: "material_type is required"}
	}
	if m.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}
	if m.Unit == "" {
		return &ValidationError{Field: "unit", Message: "unit is required"}
	}
	if m.PricePerUnit < 0 {
		return &ValidationError{Field: "price_per_unit", Message: "price_per_unit must be non-negative"}
	}
	if m.QualityScore < 0 || m.QualityScore > 100 {
		return &ValidationError{Field: "quality_score", Message: "quality_score must be between 0 and 100"}
	}
	return nil
}

// ListingView is the API shape for a listing: the stored row plus the
// recomputed grade.
type ListingView struct {
	MaterialListing
	DerivedGrade Grade `json:"derived_grade"`
}

// View builds the API shape with the grade recomputed from the score.
func (m *MaterialListing) View() ListingView {
	return ListingView{MaterialListing: *m, DerivedGrade: m.Grade()}
}
