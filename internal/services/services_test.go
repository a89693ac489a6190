package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-platform/internal/carbon"
	"carbon-platform/internal/compliance"
	"carbon-platform/internal/models"
	"carbon-platform/internal/repository"
	"carbon-platform/pkg/logging"
	"carbon-platform/pkg/metrics"
)

// One collector per test binary; prometheus registration is global.
var testMetrics = metrics.NewCollector("carbon_test")

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

// stubRepository is an in-memory CarbonRepository for service tests
type stubRepository struct {
	companies    []*models.Company
	records      []*models.EmissionsRecord
	sources      []*models.EmissionSource
	listings     []*models.MaterialListing
	transactions []*models.Transaction
	projects     []*models.OffsetProject
	goals        map[int64]*models.CompanyGoals

	failCreateCompany bool
}

func (r *stubRepository) CreateCompany(ctx context.Context, c *models.Company) error {
	if r.failCreateCompany {
		return fmt.Errorf("stub: create company failed")
	}
	c.ID = int64(len(r.companies) + 1)
	r.companies = append(r.companies, c)
	return nil
}

func (r *stubRepository) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	for _, c := range r.companies {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, &repository.NotFoundError{Resource: "company", ID: fmt.Sprintf("%d", id)}
}

func (r *stubRepository) UpsertCompanyGoals(ctx context.Context, g *models.CompanyGoals) error {
	if r.goals == nil {
		r.goals = make(map[int64]*models.CompanyGoals)
	}
	r.goals[g.CompanyID] = g
	return nil
}

func (r *stubRepository) CreateEmissionsRecord(ctx context.Context, rec *models.EmissionsRecord) error {
	rec.ID = int64(len(r.records) + 1)
	r.records = append(r.records, rec)
	return nil
}

func (r *stubRepository) GetEmissionsRecords(ctx context.Context, filter repository.EmissionsFilter) ([]*models.EmissionsRecord, int, error) {
	return r.records, len(r.records), nil
}

func (r *stubRepository) GetScopeTotals(ctx context.Context, companyID int64, start, end time.Time) (*repository.ScopeTotals, error) {
	totals := &repository.ScopeTotals{}
	qualitySum := 0.0
	for _, rec := range r.records {
		if rec.CompanyID != companyID {
			continue
		}
		totals.Scope1Tons += rec.Scope1Tons
		totals.Scope2Tons += rec.Scope2Tons
		totals.Scope3Tons += rec.Scope3Tons
		qualitySum += float64(rec.DataQualityScore)
		totals.RecordCount++
	}
	if totals.RecordCount > 0 {
		totals.AvgQualityScore = qualitySum / float64(totals.RecordCount)
	}
	return totals, nil
}

func (r *stubRepository) CreateEmissionSource(ctx context.Context, src *models.EmissionSource) error {
	src.ID = int64(len(r.sources) + 1)
	r.sources = append(r.sources, src)
	return nil
}

func (r *stubRepository) CreateEmissionSourcesBatch(ctx context.Context, sources []*models.EmissionSource) error {
	r.sources = append(r.sources, sources...)
	return nil
}

func (r *stubRepository) GetSourceTotalsByType(ctx context.Context, companyID int64, start, end time.Time) ([]repository.SourceTotal, error) {
	byType := make(map[string]float64)
	for _, src := range r.sources {
		if src.CompanyID == companyID {
			byType[src.SourceType] += src.AmountTons
		}
	}
	entries := carbon.BreakdownFromMap(byType)
	totals := make([]repository.SourceTotal, 0, len(entries))
	for _, e := range entries {
		totals = append(totals, repository.SourceTotal{SourceType: e.Category, AmountTons: e.Amount})
	}
	return totals, nil
}

func (r *stubRepository) CreateMaterialListing(ctx context.Context, l *models.MaterialListing) error {
	l.ID = int64(len(r.listings) + 1)
	r.listings = append(r.listings, l)
	return nil
}

func (r *stubRepository) GetMaterialListing(ctx context.Context, id int64) (*models.MaterialListing, error) {
	for _, l := range r.listings {
		if l.ID == id {
			copied := *l
			return &copied, nil
		}
	}
	return nil, &repository.NotFoundError{Resource: "waste_material", ID: fmt.Sprintf("%d", id)}
}

func (r *stubRepository) ListMaterialListings(ctx context.Context, filter repository.ListingFilter) ([]*models.MaterialListing, int, error) {
	return r.listings, len(r.listings), nil
}

func (r *stubRepository) UpdateMaterialStatus(ctx context.Context, id int64, status string) error {
	for _, l := range r.listings {
		if l.ID == id {
			l.Status = status
			return nil
		}
	}
	return &repository.NotFoundError{Resource: "waste_material", ID: fmt.Sprintf("%d", id)}
}

func (r *stubRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	r.transactions = append(r.transactions, tx)
	return nil
}

func (r *stubRepository) ListOffsetProjects(ctx context.Context, verifiedOnly bool) ([]*models.OffsetProject, error) {
	if !verifiedOnly {
		return r.projects, nil
	}
	out := make([]*models.OffsetProject, 0)
	for _, p := range r.projects {
		if p.Verified {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubRepository) HealthCheck(ctx context.Context) error {
	return nil
}

func newEmissionsService(repo repository.CarbonRepository) *EmissionsService {
	pack := carbon.ConfigPack{
		Factors:       carbon.DefaultFactors(),
		Equivalencies: carbon.DefaultEquivalencies(),
	}
	return NewEmissionsService(repo, pack, compliance.DefaultRules(), testLogger(), testMetrics)
}

func TestGetSummaryPercentages(t *testing.T) {
	repo := &stubRepository{
		records: []*models.EmissionsRecord{
			{CompanyID: 1, Scope1Tons: 250, Scope2Tons: 250, Scope3Tons: 500, DataQualityScore: 95},
		},
	}
	svc := newEmissionsService(repo)

	summary, err := svc.GetSummary(context.Background(), 1, time.Time{}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1000.0, summary.TotalTons)
	assert.Equal(t, 25.0, summary.Scope1Percent)
	assert.Equal(t, 25.0, summary.Scope2Percent)
	assert.Equal(t, 50.0, summary.Scope3Percent)
	assert.Equal(t, models.GradeAPlus, summary.QualityGrade)
}

func TestGetSummaryEmptyPeriod(t *testing.T) {
	svc := newEmissionsService(&stubRepository{})

	summary, err := svc.GetSummary(context.Background(), 1, time.Time{}, time.Now())
	require.NoError(t, err)

	assert.Zero(t, summary.TotalTons)
	assert.Zero(t, summary.Scope1Percent)
	assert.Zero(t, summary.Scope2Percent)
	assert.Zero(t, summary.Scope3Percent)
	assert.Equal(t, models.GradeF, summary.QualityGrade)
}

func TestGetTopSourcesRanksDescending(t *testing.T) {
	repo := &stubRepository{
		sources: []*models.EmissionSource{
			{CompanyID: 1, SourceType: "fleet", Scope: 1, AmountTons: 30},
			{CompanyID: 1, SourceType: "electricity", Scope: 2, AmountTons: 50},
			{CompanyID: 1, SourceType: "retired", Scope: 3, AmountTons: 0},
		},
	}
	svc := newEmissionsService(repo)

	ranked, err := svc.GetTopSources(context.Background(), 1, time.Time{}, time.Now(), 10)
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, "electricity", ranked[0].Category)
	assert.InDelta(t, 62.5, ranked[0].PercentOfTotal, 1e-9)
	assert.Equal(t, "fleet", ranked[1].Category)
	assert.InDelta(t, 37.5, ranked[1].PercentOfTotal, 1e-9)
}

func TestEstimateBaselinePersistsRecord(t *testing.T) {
	repo := &stubRepository{}
	svc := newEmissionsService(repo)

	spend := 5000000.0
	rec, est, err := svc.EstimateBaseline(context.Background(), 1,
		carbon.BaselineInput{AnnualSpend: &spend},
		carbon.MethodQuick,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	assert.Equal(t, 2500.0, est.Scope3Tons)
	assert.Equal(t, 60, est.DataQualityScore)
	require.Len(t, repo.records, 1)
	assert.Equal(t, rec.ID, repo.records[0].ID)
	assert.Equal(t, "quick", repo.records[0].Method)
}

func TestEvaluateComplianceFindings(t *testing.T) {
	repo := &stubRepository{
		records: []*models.EmissionsRecord{
			{CompanyID: 1, Scope1Tons: 12000, Scope2Tons: 3000, Scope3Tons: 0, DataQualityScore: 60},
		},
	}
	svc := newEmissionsService(repo)

	report, err := svc.EvaluateCompliance(context.Background(), 1, time.Time{}, time.Now())
	require.NoError(t, err)

	ids := make([]string, 0, len(report.Findings))
	for _, f := range report.Findings {
		ids = append(ids, f.RuleID)
	}
	assert.Contains(t, ids, "sb253_scope12_disclosure")
	assert.Contains(t, ids, "scope3_reporting_gap")
	assert.Contains(t, ids, "low_data_quality")
}

func TestPurchaseFullQuantityMarksSold(t *testing.T) {
	repo := &stubRepository{
		listings: []*models.MaterialListing{
			{ID: 1, CompanyID: 2, MaterialType: "cardboard", Quantity: 100, Unit: "kg", PricePerUnit: 0.5, QualityScore: 88, Status: "available"},
		},
	}
	svc := NewMarketplaceService(repo, testLogger(), testMetrics)

	tx, err := svc.Purchase(context.Background(), 1, 1, 100)
	require.NoError(t, err)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, 50.0, tx.TotalAmount)
	assert.Equal(t, "sold", repo.listings[0].Status)
}

func TestPurchaseRejectsOverQuantity(t *testing.T) {
	repo := &stubRepository{
		listings: []*models.MaterialListing{
			{ID: 1, CompanyID: 2, MaterialType: "cardboard", Quantity: 10, Unit: "kg", PricePerUnit: 0.5, QualityScore: 88, Status: "available"},
		},
	}
	svc := NewMarketplaceService(repo, testLogger(), testMetrics)

	_, err := svc.Purchase(context.Background(), 1, 1, 11)
	require.Error(t, err)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "quantity", verr.Field)
	assert.Empty(t, repo.transactions)
}

func TestCreateListingDerivesGrade(t *testing.T) {
	repo := &stubRepository{}
	svc := NewMarketplaceService(repo, testLogger(), testMetrics)

	view, err := svc.CreateListing(context.Background(), &models.MaterialListing{
		CompanyID:    1,
		MaterialType: "pallets",
		Quantity:     40,
		Unit:         "units",
		PricePerUnit: 3,
		QualityScore: 72,
	})
	require.NoError(t, err)

	assert.Equal(t, models.GradeB, view.DerivedGrade)
	assert.Equal(t, "available", view.Status)
}

func TestSignupFlowCreatesCompany(t *testing.T) {
	repo := &stubRepository{}
	emissions := newEmissionsService(repo)
	svc := NewOnboardingService(repo, emissions, testLogger(), testMetrics)
	ctx := context.Background()

	state, err := svc.StartSession(ctx, "signup", 0)
	require.NoError(t, err)

	state, err = svc.Advance(ctx, state.SessionID, map[string]string{
		"email":                 "ops@acme.example",
		"password":              "correcthorse",
		"password_confirmation": "correcthorse",
	})
	require.NoError(t, err)
	assert.Equal(t, "company", state.StepName)

	state, err = svc.Advance(ctx, state.SessionID, map[string]string{
		"company_name": "Acme Corp",
		"industry":     "manufacturing",
	})
	require.NoError(t, err)

	state, err = svc.Finalize(ctx, state.SessionID, map[string]string{
		"employee_count": "250",
		"annual_revenue": "12000000",
	})
	require.NoError(t, err)

	assert.True(t, state.Submitted)
	require.Len(t, repo.companies, 1)
	assert.Equal(t, "Acme Corp", repo.companies[0].Name)
	assert.Equal(t, 250, repo.companies[0].EmployeeCount)
}

func TestSignupFlowPersistFailureKeepsSessionOpen(t *testing.T) {
	repo := &stubRepository{failCreateCompany: true}
	emissions := newEmissionsService(repo)
	svc := NewOnboardingService(repo, emissions, testLogger(), testMetrics)
	ctx := context.Background()

	state, err := svc.StartSession(ctx, "signup", 0)
	require.NoError(t, err)

	_, err = svc.Advance(ctx, state.SessionID, map[string]string{
		"email":                 "ops@acme.example",
		"password":              "correcthorse",
		"password_confirmation": "correcthorse",
	})
	require.NoError(t, err)

	_, err = svc.Advance(ctx, state.SessionID, map[string]string{
		"company_name": "Acme Corp",
		"industry":     "manufacturing",
	})
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, state.SessionID, map[string]string{
		"employee_count": "250",
	})
	require.Error(t, err)

	// Session stays at the last step; a later resubmit succeeds.
	repo.failCreateCompany = false
	state, err = svc.Finalize(ctx, state.SessionID, map[string]string{
		"employee_count": "250",
	})
	require.NoError(t, err)
	assert.True(t, state.Submitted)
	require.Len(t, repo.companies, 1)
}

func TestOnboardingFlowPersistsGoals(t *testing.T) {
	repo := &stubRepository{}
	emissions := newEmissionsService(repo)
	svc := NewOnboardingService(repo, emissions, testLogger(), testMetrics)
	ctx := context.Background()

	state, err := svc.StartSession(ctx, "onboarding", 3)
	require.NoError(t, err)

	state, err = svc.Advance(ctx, state.SessionID, map[string]string{
		"reduction_target_pct": "30",
		"target_year":          "2030",
	})
	require.NoError(t, err)

	state, err = svc.Advance(ctx, state.SessionID, map[string]string{
		"facility_count": "4",
		"primary_region": "us-west",
	})
	require.NoError(t, err)

	state, err = svc.Finalize(ctx, state.SessionID, map[string]string{
		"reporting_framework": "sb253",
	})
	require.NoError(t, err)
	assert.True(t, state.Submitted)

	// Every step's fields must survive into storage, not just the last one.
	goals := repo.goals[3]
	require.NotNil(t, goals)
	assert.Equal(t, 30.0, goals.ReductionTargetPct)
	assert.Equal(t, 2030, goals.TargetYear)
	assert.Equal(t, 4, goals.FacilityCount)
	assert.Equal(t, "us-west", goals.PrimaryRegion)
	assert.Equal(t, "sb253", goals.ReportingFramework)
}

func TestConcurrentAdvanceOneWinner(t *testing.T) {
	repo := &stubRepository{}
	emissions := newEmissionsService(repo)
	svc := NewOnboardingService(repo, emissions, testLogger(), testMetrics)
	ctx := context.Background()

	state, err := svc.StartSession(ctx, "signup", 0)
	require.NoError(t, err)

	data := map[string]string{
		"email":                 "ops@acme.example",
		"password":              "correcthorse",
		"password_confirmation": "correcthorse",
	}

	// Simultaneous submissions of the same step must serialize: exactly one
	// advances, the rest fail validation against the next step's rules.
	var wg sync.WaitGroup
	var successes int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Advance(ctx, state.SessionID, data); err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)

	got, err := svc.GetSession(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStep)
	assert.Equal(t, "company", got.StepName)
}

func TestBaselineFlowPersistsEstimate(t *testing.T) {
	repo := &stubRepository{}
	emissions := newEmissionsService(repo)
	svc := NewOnboardingService(repo, emissions, testLogger(), testMetrics)
	ctx := context.Background()

	state, err := svc.StartSession(ctx, "baseline", 7)
	require.NoError(t, err)

	state, err = svc.Advance(ctx, state.SessionID, map[string]string{
		"period_start": "2025-01-01",
		"period_end":   "2025-12-31",
	})
	require.NoError(t, err)

	// Blank activity data is allowed; the estimate degrades instead of failing.
	state, err = svc.Advance(ctx, state.SessionID, map[string]string{
		"electricity_kwh": "100000",
	})
	require.NoError(t, err)

	state, err = svc.Finalize(ctx, state.SessionID, map[string]string{
		"calculation_method": "hybrid",
	})
	require.NoError(t, err)

	assert.True(t, state.Submitted)
	require.Len(t, repo.records, 1)
	rec := repo.records[0]
	assert.Equal(t, int64(7), rec.CompanyID)
	assert.Equal(t, "hybrid", rec.Method)
	assert.Equal(t, 80, rec.DataQualityScore)
	assert.InDelta(t, 40.0, rec.Scope2Tons, 1e-9)
}

func TestImportReaderParsesAndBatches(t *testing.T) {
	repo := &stubRepository{}
	svc := NewImportService(repo, testLogger(), testMetrics)

	csvData := strings.Join([]string{
		"company_id,source_type,scope,amount_tons,period_start,period_end",
		"1,fleet,1,120.5,2025-01-01,2025-12-31",
		"1,electricity,2,340.0,2025-01-01,2025-12-31",
		"1,bad_scope,9,10.0,2025-01-01,2025-12-31",
		"1,bad_amount,1,not_a_number,2025-01-01,2025-12-31",
	}, "\n")

	result, err := svc.ImportReader(context.Background(), strings.NewReader(csvData), 2)
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalRecords)
	assert.Equal(t, 2, result.SuccessfulRecords)
	assert.Equal(t, 2, result.FailedRecords)
	require.Len(t, repo.sources, 2)
	assert.Equal(t, "fleet", repo.sources[0].SourceType)
}
