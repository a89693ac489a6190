package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Company represents an onboarded reporting organization.
type Company struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Industry      string    `json:"industry" db:"industry"`
	EmployeeCount int       `json:"employee_count" db:"employee_count"`
	AnnualRevenue float64   `json:"annual_revenue" db:"annual_revenue"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// CompanyGoals holds the reduction targets and facility profile captured by
// the onboarding flow. One row per company; re-running the flow replaces it.
type CompanyGoals struct {
	CompanyID          int64     `json:"company_id" db:"company_id"`
	ReductionTargetPct float64   `json:"reduction_target_pct" db:"reduction_target_pct"`
	TargetYear         int       `json:"target_year" db:"target_year"`
	FacilityCount      int       `json:"facility_count" db:"facility_count"`
	PrimaryRegion      string    `json:"primary_region" db:"primary_region"`
	ReportingFramework string    `json:"reporting_framework" db:"reporting_framework"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// EmissionsRecord is a computed or imported emissions figure for one
// reporting period, in metric tons CO2e per scope. Records are immutable
// once written; corrections are new records.
type EmissionsRecord struct {
	ID               int64           `json:"id" db:"id"`
	CompanyID        int64           `json:"company_id" db:"company_id"`
	PeriodStart      time.Time       `json:"period_start" db:"period_start"`
	PeriodEnd        time.Time       `json:"period_end" db:"period_end"`
	Scope1Tons       float64         `json:"scope1_tons" db:"scope1_tons"`
	Scope2Tons       float64         `json:"scope2_tons" db:"scope2_tons"`
	Scope3Tons       float64         `json:"scope3_tons" db:"scope3_tons"`
	Scope3Breakdown  json.RawMessage `json:"scope3_breakdown,omitempty" db:"scope3_breakdown"`
	DataQualityScore int             `json:"data_quality_score" db:"data_quality_score"`
	Method           string          `json:"calculation_method" db:"calculation_method"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// TotalTons returns the grand total across scopes.
func (r *EmissionsRecord) TotalTons() float64 {
	return r.Scope1Tons + r.Scope2Tons + r.Scope3Tons
}

// Validate checks the record invariants: non-negative totals and an ordered
// reporting period.
func (r *EmissionsRecord) Validate() error {
	if r.Scope1Tons < 0 || r.Scope2Tons < 0 || r.Scope3Tons < 0 {
		return &ValidationError{
			Field:   "scope_totals",
			Message: "scope totals must be non-negative",
		}
	}
	if r.PeriodEnd.Before(r.PeriodStart) {
		return &ValidationError{
			Field:   "period_end",
			Message: "period_end must not precede period_start",
		}
	}
	return nil
}

// EmissionSource is a single contributing source within a reporting period.
// Ranking of sources derives from AmountTons descending.
type EmissionSource struct {
	ID          int64     `json:"id" db:"id"`
	CompanyID   int64     `json:"company_id" db:"company_id"`
	SourceType  string    `json:"source_type" db:"source_type"`
	Scope       int       `json:"scope" db:"scope"`
	AmountTons  float64   `json:"amount_tons" db:"amount_tons"`
	PeriodStart time.Time `json:"period_start" db:"period_start"`
	PeriodEnd   time.Time `json:"period_end" db:"period_end"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Validate checks scope membership and the non-negative amount invariant.
func (s *EmissionSource) Validate() error {
	if s.Scope < 1 || s.Scope > 3 {
		return &ValidationError{
			Field:   "scope",
			Value:   fmt.Sprintf("%d", s.Scope),
			Message: "scope must be 1, 2, or 3",
		}
	}
	if s.AmountTons < 0 {
		return &ValidationError{
			Field:   "amount_tons",
			Message: "amount_tons must be non-negative",
		}
	}
	return nil
}

// OffsetProject is a carbon offset project available for credit purchases.
type OffsetProject struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	ProjectType   string    `json:"project_type" db:"project_type"`
	PricePerTon   float64   `json:"price_per_ton" db:"price_per_ton"`
	AvailableTons float64   `json:"available_tons" db:"available_tons"`
	Verified      bool      `json:"verified" db:"verified"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Transaction records a marketplace purchase. Consistency across the listing
// update and the transaction insert is the caller's responsibility; the
// store gives no cross-call atomicity.
type Transaction struct {
	ID             string    `json:"id" db:"id"`
	BuyerCompanyID int64     `json:"buyer_company_id" db:"buyer_company_id"`
	MaterialID     int64     `json:"material_id" db:"material_id"`
	Quantity       float64   `json:"quantity" db:"quantity"`
	TotalAmount    float64   `json:"total_amount" db:"total_amount"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ValidationError is a permanent, locally-recoverable input error naming the
// violated field and rule.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent.
func (e *ValidationError) IsTransient() bool {
	return false
}
