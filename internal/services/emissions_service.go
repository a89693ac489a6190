package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carbon-platform/internal/carbon"
	"carbon-platform/internal/compliance"
	"carbon-platform/internal/models"
	"carbon-platform/internal/repository"
	"carbon-platform/pkg/logging"
	"carbon-platform/pkg/metrics"
)

// EmissionsService handles emissions reporting, baseline estimation, and
// compliance evaluation.
type EmissionsService struct {
	repo      repository.CarbonRepository
	estimator *carbon.Estimator
	eqPack    carbon.EquivalencyPack
	evaluator *compliance.Evaluator
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewEmissionsService creates a new emissions service
func NewEmissionsService(
	repo repository.CarbonRepository,
	pack carbon.ConfigPack,
	rules compliance.RulePack,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *EmissionsService {
	return &EmissionsService{
		repo:      repo,
		estimator: carbon.NewEstimator(pack.Factors),
		eqPack:    pack.Equivalencies,
		evaluator: compliance.NewEvaluator(rules),
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// GetEmissions retrieves emissions records with filtering
func (s *EmissionsService) GetEmissions(ctx context.Context, filter repository.EmissionsFilter) ([]*models.EmissionsRecord, int, error) {
	return s.repo.GetEmissionsRecords(ctx, filter)
}

// RecordEmissions validates and persists an emissions record
func (s *EmissionsService) RecordEmissions(ctx context.Context, rec *models.EmissionsRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	rec.CreatedAt = time.Now().UTC()

	if err := s.repo.CreateEmissionsRecord(ctx, rec); err != nil {
		return err
	}

	s.logger.Info(ctx, "[EMISSIONS_RECORDED] Emissions record created", logging.Fields{
		"record_id":  rec.ID,
		"company_id": rec.CompanyID,
		"total_tons": rec.TotalTons(),
	})

	return nil
}

// EmissionsSummary is the dashboard aggregation for a company and period.
// Percentages are whole-number shares of the total; a period with no
// emissions reports 0% everywhere rather than dividing by zero.
type EmissionsSummary struct {
	CompanyID       int64        `json:"company_id"`
	PeriodStart     time.Time    `json:"period_start"`
	PeriodEnd       time.Time    `json:"period_end"`
	Scope1Tons      float64      `json:"scope1_tons"`
	Scope2Tons      float64      `json:"scope2_tons"`
	Scope3Tons      float64      `json:"scope3_tons"`
	TotalTons       float64      `json:"total_tons"`
	Scope1Percent   float64      `json:"scope1_percent"`
	Scope2Percent   float64      `json:"scope2_percent"`
	Scope3Percent   float64      `json:"scope3_percent"`
	AvgQualityScore float64      `json:"avg_quality_score"`
	QualityGrade    models.Grade `json:"quality_grade"`
	RecordCount     int          `json:"record_count"`
}

// GetSummary aggregates a company's emissions over a period
func (s *EmissionsService) GetSummary(ctx context.Context, companyID int64, start, end time.Time) (*EmissionsSummary, error) {
	totals, err := s.repo.GetScopeTotals(ctx, companyID, start, end)
	if err != nil {
		return nil, err
	}

	total := carbon.SumScopes(totals.Scope1Tons, totals.Scope2Tons, totals.Scope3Tons)

	summary := &EmissionsSummary{
		CompanyID:       companyID,
		PeriodStart:     start,
		PeriodEnd:       end,
		Scope1Tons:      totals.Scope1Tons,
		Scope2Tons:      totals.Scope2Tons,
		Scope3Tons:      totals.Scope3Tons,
		TotalTons:       total,
		Scope1Percent:   carbon.PercentOf(totals.Scope1Tons, total),
		Scope2Percent:   carbon.PercentOf(totals.Scope2Tons, total),
		Scope3Percent:   carbon.PercentOf(totals.Scope3Tons, total),
		AvgQualityScore: totals.AvgQualityScore,
		QualityGrade:    models.ClassifyQuality(totals.AvgQualityScore),
		RecordCount:     totals.RecordCount,
	}

	return summary, nil
}

// GetTopSources returns the company's emission sources ranked by contribution.
// Sources with non-positive totals are dropped; limit ≤ 0 means no limit.
func (s *EmissionsService) GetTopSources(ctx context.Context, companyID int64, start, end time.Time, limit int) ([]carbon.RankedEntry, error) {
	totals, err := s.repo.GetSourceTotalsByType(ctx, companyID, start, end)
	if err != nil {
		return nil, err
	}

	entries := make([]carbon.CategoryAmount, 0, len(totals))
	for _, t := range totals {
		entries = append(entries, carbon.CategoryAmount{
			Category: t.SourceType,
			Amount:   t.AmountTons,
		})
	}

	ranked := carbon.Rank(entries)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked, nil
}

// EstimateBaseline runs the baseline estimator and persists the result as an
// emissions record. Estimation itself never fails; only persistence can.
func (s *EmissionsService) EstimateBaseline(ctx context.Context, companyID int64, in carbon.BaselineInput, method carbon.CalculationMethod, start, end time.Time) (*models.EmissionsRecord, *carbon.BaselineEstimate, error) {
	timer := s.metrics.NewTimer(s.metrics.EstimationDuration)
	defer timer.ObserveDuration()

	est := s.estimator.Estimate(in, method)

	breakdown, err := json.Marshal(map[string]float64{
		"spend_based": est.Scope3Tons,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode breakdown: %w", err)
	}

	rec := &models.EmissionsRecord{
		CompanyID:        companyID,
		PeriodStart:      start,
		PeriodEnd:        end,
		Scope1Tons:       est.Scope1Tons,
		Scope2Tons:       est.Scope2Tons,
		Scope3Tons:       est.Scope3Tons,
		Scope3Breakdown:  breakdown,
		DataQualityScore: est.DataQualityScore,
		Method:           string(est.Method),
		CreatedAt:        time.Now().UTC(),
	}

	if err := rec.Validate(); err != nil {
		return nil, nil, err
	}

	if err := s.repo.CreateEmissionsRecord(ctx, rec); err != nil {
		return nil, nil, err
	}

	s.metrics.RecordEstimation(string(method), est.TotalTons)

	s.logger.Info(ctx, "[BASELINE_ESTIMATED] Baseline estimate persisted", logging.Fields{
		"record_id":          rec.ID,
		"company_id":         companyID,
		"method":             string(method),
		"total_tons":         est.TotalTons,
		"data_quality_score": est.DataQualityScore,
	})

	return rec, &est, nil
}

// GetScope3Breakdown returns the ranked scope 3 breakdown stored on a record
func (s *EmissionsService) GetScope3Breakdown(ctx context.Context, filter repository.EmissionsFilter) ([]carbon.RankedEntry, error) {
	records, _, err := s.repo.GetEmissionsRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]float64)
	for _, rec := range records {
		entries, err := carbon.BreakdownFromJSON(rec.Scope3Breakdown)
		if err != nil {
			s.logger.Warn(ctx, "[BREAKDOWN_SKIP] Unparseable scope 3 breakdown", logging.Fields{
				"record_id": rec.ID,
			})
			continue
		}
		for _, e := range entries {
			merged[e.Category] += e.Amount
		}
	}

	return carbon.Rank(carbon.BreakdownFromMap(merged)), nil
}

// ComplianceReport bundles the findings from a rule evaluation with the
// summary they were evaluated against.
type ComplianceReport struct {
	Summary  *EmissionsSummary    `json:"summary"`
	Findings []compliance.Finding `json:"findings"`
}

// EvaluateCompliance runs the rule pack against a company's period summary
func (s *EmissionsService) EvaluateCompliance(ctx context.Context, companyID int64, start, end time.Time) (*ComplianceReport, error) {
	summary, err := s.GetSummary(ctx, companyID, start, end)
	if err != nil {
		return nil, err
	}

	vars := map[string]any{
		"scope1_tons":        summary.Scope1Tons,
		"scope2_tons":        summary.Scope2Tons,
		"scope3_tons":        summary.Scope3Tons,
		"total_tons":         summary.TotalTons,
		"data_quality_score": summary.AvgQualityScore,
		"record_count":       float64(summary.RecordCount),
	}

	findings, err := s.evaluator.Evaluate(vars)
	s.metrics.ComplianceEvaluationsTotal.Inc()

	if err != nil {
		s.logger.Warn(ctx, "[COMPLIANCE_PARTIAL] Some rules failed to evaluate", logging.Fields{
			"company_id": companyID,
			"error":      err.Error(),
		})
	}

	for _, f := range findings {
		s.metrics.ComplianceFindingsTotal.WithLabelValues(f.Severity).Inc()
	}

	s.logger.Info(ctx, "[COMPLIANCE_EVALUATED] Compliance rules evaluated", logging.Fields{
		"company_id":    companyID,
		"finding_count": len(findings),
	})

	return &ComplianceReport{Summary: summary, Findings: findings}, nil
}

// ListOffsetProjects retrieves offset projects available for purchase
func (s *EmissionsService) ListOffsetProjects(ctx context.Context, verifiedOnly bool) ([]*models.OffsetProject, error) {
	return s.repo.ListOffsetProjects(ctx, verifiedOnly)
}

// OffsetEquivalency converts a tonnage into offset terms using the
// configured equivalency pack.
func (s *EmissionsService) OffsetEquivalency(tons, pricePerTon float64) carbon.OffsetEquivalency {
	return s.eqPack.Equivalency(tons, pricePerTon)
}
