package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"carbon-platform/internal/models"
	"carbon-platform/pkg/database"
	"carbon-platform/pkg/logging"
	"carbon-platform/pkg/metrics"
)

// CarbonRepository provides data access for the sustainability platform.
// It is a direct pass-through to the table store: no call here spans more
// than one statement transactionally unless explicitly batched.
type CarbonRepository interface {
	// Company operations
	CreateCompany(ctx context.Context, company *models.Company) error
	GetCompany(ctx context.Context, id int64) (*models.Company, error)
	UpsertCompanyGoals(ctx context.Context, goals *models.CompanyGoals) error

	// Emissions record operations
	CreateEmissionsRecord(ctx context.Context, rec *models.EmissionsRecord) error
	GetEmissionsRecords(ctx context.Context, filter EmissionsFilter) ([]*models.EmissionsRecord, int, error)
	GetScopeTotals(ctx context.Context, companyID int64, start, end time.Time) (*ScopeTotals, error)

	// Emission source operations
	CreateEmissionSource(ctx context.Context, src *models.EmissionSource) error
	CreateEmissionSourcesBatch(ctx context.Context, sources []*models.EmissionSource) error
	GetSourceTotalsByType(ctx context.Context, companyID int64, start, end time.Time) ([]SourceTotal, error)

	// Marketplace operations
	CreateMaterialListing(ctx context.Context, listing *models.MaterialListing) error
	GetMaterialListing(ctx context.Context, id int64) (*models.MaterialListing, error)
	ListMaterialListings(ctx context.Context, filter ListingFilter) ([]*models.MaterialListing, int, error)
	UpdateMaterialStatus(ctx context.Context, id int64, status string) error
	CreateTransaction(ctx context.Context, tx *models.Transaction) error

	// Offset operations
	ListOffsetProjects(ctx context.Context, verifiedOnly bool) ([]*models.OffsetProject, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// EmissionsFilter defines filters for querying emissions records
type EmissionsFilter struct {
	CompanyID *int64
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// ListingFilter defines filters for querying material listings
type ListingFilter struct {
	CompanyID    *int64
	MaterialType *string
	Status       *string
	Limit        int
	Offset       int
}

// ScopeTotals is the SQL-side aggregation of emissions for a period.
type ScopeTotals struct {
	Scope1Tons      float64 `db:"scope1_tons"`
	Scope2Tons      float64 `db:"scope2_tons"`
	Scope3Tons      float64 `db:"scope3_tons"`
	AvgQualityScore float64 `db:"avg_quality_score"`
	RecordCount     int     `db:"record_count"`
}

// SourceTotal is one source type's summed contribution, ordered by type name
// so downstream ranking sees a deterministic sequence.
type SourceTotal struct {
	SourceType string  `db:"source_type"`
	Scope      int     `db:"scope"`
	AmountTons float64 `db:"amount_tons"`
}

// carbonRepository implements CarbonRepository
type carbonRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewCarbonRepository creates a new carbon repository
func NewCarbonRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) CarbonRepository {
	return &carbonRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CreateCompany inserts a new company
func (r *carbonRepository) CreateCompany(ctx context.Context, company *models.Company) error {
	query := `
		INSERT INTO companies (name, industry, employee_count, annual_revenue, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.DB().QueryRowContext(ctx, query,
		company.Name,
		company.Industry,
		company.EmployeeCount,
		company.AnnualRevenue,
		company.CreatedAt,
	).Scan(&company.ID)

	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_CREATE_COMPANY] Company created", logging.Fields{
		"company_id": company.ID,
		"name":       company.Name,
	})

	return nil
}

// GetCompany retrieves a company by ID
func (r *carbonRepository) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	query := `
		SELECT id, name, industry, employee_count, annual_revenue, created_at
		FROM companies
		WHERE id = $1
	`

	var company models.Company
	err := r.db.GetContext(ctx, "get_company", &company, query, id)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "company",
			ID:       fmt.Sprintf("%d", id),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return &company, nil
}

// UpsertCompanyGoals stores onboarding goals, one row per company
func (r *carbonRepository) UpsertCompanyGoals(ctx context.Context, goals *models.CompanyGoals) error {
	query := `
		INSERT INTO company_goals (
			company_id, reduction_target_pct, target_year,
			facility_count, primary_region, reporting_framework, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (company_id) DO UPDATE SET
			reduction_target_pct = EXCLUDED.reduction_target_pct,
			target_year = EXCLUDED.target_year,
			facility_count = EXCLUDED.facility_count,
			primary_region = EXCLUDED.primary_region,
			reporting_framework = EXCLUDED.reporting_framework,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, "upsert_company_goals", query,
		goals.CompanyID,
		goals.ReductionTargetPct,
		goals.TargetYear,
		goals.FacilityCount,
		goals.PrimaryRegion,
		goals.ReportingFramework,
		goals.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert company goals: %w", err)
	}

	return nil
}

// CreateEmissionsRecord inserts a computed emissions record. Records are
// immutable; there is intentionally no update path.
func (r *carbonRepository) CreateEmissionsRecord(ctx context.Context, rec *models.EmissionsRecord) error {
	query := `
		INSERT INTO carbon_emissions (
			company_id, period_start, period_end,
			scope1_tons, scope2_tons, scope3_tons, scope3_breakdown,
			data_quality_score, calculation_method, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.db.DB().QueryRowContext(ctx, query,
		rec.CompanyID,
		rec.PeriodStart,
		rec.PeriodEnd,
		rec.Scope1Tons,
		rec.Scope2Tons,
		rec.Scope3Tons,
		rec.Scope3Breakdown,
		rec.DataQualityScore,
		rec.Method,
		rec.CreatedAt,
	).Scan(&rec.ID)

	if err != nil {
		return fmt.Errorf("failed to create emissions record: %w", err)
	}

	return nil
}

// GetEmissionsRecords retrieves emissions records with filtering and pagination
func (r *carbonRepository) GetEmissionsRecords(ctx context.Context, filter EmissionsFilter) ([]*models.EmissionsRecord, int, error) {
	query := `
		SELECT id, company_id, period_start, period_end,
		       scope1_tons, scope2_tons, scope3_tons, scope3_breakdown,
		       data_quality_score, calculation_method, created_at
		FROM carbon_emissions
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.CompanyID != nil {
		query += fmt.Sprintf(" AND company_id = $%d", argNum)
		args = append(args, *filter.CompanyID)
		argNum++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND period_start >= $%d", argNum)
		args = append(args, *filter.StartDate)
		argNum++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND period_end <= $%d", argNum)
		args = append(args, *filter.EndDate)
		argNum++
	}

	// Get total count
	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_emissions", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count emissions records: %w", err)
	}

	// Add ordering and pagination
	query += " ORDER BY period_start DESC, id"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var records []*models.EmissionsRecord
	err = r.db.SelectContext(ctx, "get_emissions", &records, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get emissions records: %w", err)
	}

	return records, totalCount, nil
}

// GetScopeTotals aggregates emissions by scope for a company and period
func (r *carbonRepository) GetScopeTotals(ctx context.Context, companyID int64, start, end time.Time) (*ScopeTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(scope1_tons), 0) AS scope1_tons,
			COALESCE(SUM(scope2_tons), 0) AS scope2_tons,
			COALESCE(SUM(scope3_tons), 0) AS scope3_tons,
			COALESCE(AVG(data_quality_score), 0) AS avg_quality_score,
			COUNT(*) AS record_count
		FROM carbon_emissions
		WHERE company_id = $1
		  AND period_start >= $2
		  AND period_end <= $3
	`

	var totals ScopeTotals
	err := r.db.GetContext(ctx, "get_scope_totals", &totals, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate scope totals: %w", err)
	}

	return &totals, nil
}

// CreateEmissionSource inserts a single emission source
func (r *carbonRepository) CreateEmissionSource(ctx context.Context, src *models.EmissionSource) error {
	query := `
		INSERT INTO emission_sources (
			company_id, source_type, scope, amount_tons,
			period_start, period_end, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.DB().QueryRowContext(ctx, query,
		src.CompanyID,
		src.SourceType,
		src.Scope,
		src.AmountTons,
		src.PeriodStart,
		src.PeriodEnd,
		src.CreatedAt,
	).Scan(&src.ID)

	if err != nil {
		return fmt.Errorf("failed to create emission source: %w", err)
	}

	return nil
}

// CreateEmissionSourcesBatch inserts multiple sources in a single transaction
func (r *carbonRepository) CreateEmissionSourcesBatch(ctx context.Context, sources []*models.EmissionSource) error {
	if len(sources) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.ImportBatchSize.Observe(float64(len(sources)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(sources),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO emission_sources (
			company_id, source_type, scope, amount_tons,
			period_start, period_end, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, src := range sources {
		_, err := stmt.ExecContext(ctx,
			src.CompanyID,
			src.SourceType,
			src.Scope,
			src.AmountTons,
			src.PeriodStart,
			src.PeriodEnd,
			src.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert emission source: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.ImportRecordsTotal.Add(float64(len(sources)))

	return nil
}

// GetSourceTotalsByType sums source amounts per type for a company and
// period. Ordered by source type so callers see a stable sequence; ranking
// happens in the service layer.
func (r *carbonRepository) GetSourceTotalsByType(ctx context.Context, companyID int64, start, end time.Time) ([]SourceTotal, error) {
	query := `
		SELECT source_type, MIN(scope) AS scope, COALESCE(SUM(amount_tons), 0) AS amount_tons
		FROM emission_sources
		WHERE company_id = $1
		  AND period_start >= $2
		  AND period_end <= $3
		GROUP BY source_type
		ORDER BY source_type
	`

	var totals []SourceTotal
	err := r.db.SelectContext(ctx, "get_source_totals", &totals, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get source totals: %w", err)
	}

	return totals, nil
}

// CreateMaterialListing inserts a marketplace listing. Only the quality
// score is stored; the grade is derived on read.
func (r *carbonRepository) CreateMaterialListing(ctx context.Context, listing *models.MaterialListing) error {
	query := `
		INSERT INTO waste_materials (
			company_id, material_type, quantity, unit, price_per_unit, quality_score, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.DB().QueryRowContext(ctx, query,
		listing.CompanyID,
		listing.MaterialType,
		listing.Quantity,
		listing.Unit,
		listing.PricePerUnit,
		listing.QualityScore,
		listing.Status,
		listing.CreatedAt,
	).Scan(&listing.ID)

	if err != nil {
		return fmt.Errorf("failed to create material listing: %w", err)
	}

	return nil
}

// GetMaterialListing retrieves a listing by ID
func (r *carbonRepository) GetMaterialListing(ctx context.Context, id int64) (*models.MaterialListing, error) {
	query := `
		SELECT id, company_id, material_type, quantity, unit, price_per_unit, quality_score, status, created_at
		FROM waste_materials
		WHERE id = $1
	`

	var listing models.MaterialListing
	err := r.db.GetContext(ctx, "get_material", &listing, query, id)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "waste_material",
			ID:       fmt.Sprintf("%d", id),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get material listing: %w", err)
	}

	return &listing, nil
}

// ListMaterialListings retrieves listings with filtering and pagination
func (r *carbonRepository) ListMaterialListings(ctx context.Context, filter ListingFilter) ([]*models.MaterialListing, int, error) {
	query := `
		SELECT id, company_id, material_type, quantity, unit, price_per_unit, quality_score, status, created_at
		FROM waste_materials
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.CompanyID != nil {
		query += fmt.Sprintf(" AND company_id = $%d", argNum)
		args = append(args, *filter.CompanyID)
		argNum++
	}

	if filter.MaterialType != nil {
		query += fmt.Sprintf(" AND material_type = $%d", argNum)
		args = append(args, *filter.MaterialType)
		argNum++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filter.Status)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_materials", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count material listings: %w", err)
	}

	query += " ORDER BY created_at DESC, id"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var listings []*models.MaterialListing
	err = r.db.SelectContext(ctx, "list_materials", &listings, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list material listings: %w", err)
	}

	return listings, totalCount, nil
}

// UpdateMaterialStatus patches a listing's status
func (r *carbonRepository) UpdateMaterialStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE waste_materials SET status = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, "update_material_status", query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update material status: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return &NotFoundError{
			Resource: "waste_material",
			ID:       fmt.Sprintf("%d", id),
		}
	}

	return nil
}

// CreateTransaction records a marketplace purchase
func (r *carbonRepository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, buyer_company_id, material_id, quantity, total_amount, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, "create_transaction", query,
		t.ID,
		t.BuyerCompanyID,
		t.MaterialID,
		t.Quantity,
		t.TotalAmount,
		t.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// ListOffsetProjects retrieves offset projects, optionally verified only
func (r *carbonRepository) ListOffsetProjects(ctx context.Context, verifiedOnly bool) ([]*models.OffsetProject, error) {
	query := `
		SELECT id, name, project_type, price_per_ton, available_tons, verified, created_at
		FROM carbon_offset_projects
	`
	args := []interface{}{}

	if verifiedOnly {
		query += " WHERE verified = $1"
		args = append(args, true)
	}

	query += " ORDER BY price_per_ton, id"

	var projects []*models.OffsetProject
	err := r.db.SelectContext(ctx, "list_offset_projects", &projects, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list offset projects: %w", err)
	}

	return projects, nil
}

// HealthCheck performs a repository health check
func (r *carbonRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
