package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"carbon-platform/internal/carbon"
	"carbon-platform/internal/models"
	"carbon-platform/internal/repository"
	"carbon-platform/internal/wizard"
	"carbon-platform/pkg/logging"
	"carbon-platform/pkg/metrics"
)

// OnboardingService manages in-flight wizard sessions for the sign-up,
// onboarding, and baseline-calculator flows. Sessions are held in memory and
// keyed by an opaque ID; state survives back-navigation but not a restart.
type OnboardingService struct {
	repo      repository.CarbonRepository
	emissions *EmissionsService
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector

	mu       sync.Mutex
	sessions map[string]*wizardSession
}

type wizardSession struct {
	flow      string
	companyID int64
	machine   *wizard.Machine
	createdAt time.Time

	// mu serializes transitions on this session; the machine itself is not
	// goroutine safe and HTTP handlers share sessions across goroutines.
	mu sync.Mutex
}

// SessionState is the API view of a wizard session
type SessionState struct {
	SessionID   string            `json:"session_id"`
	Flow        string            `json:"flow"`
	CurrentStep int               `json:"current_step"`
	StepName    string            `json:"step_name"`
	TotalSteps  int               `json:"total_steps"`
	Submitted   bool              `json:"submitted"`
	StepData    map[string]string `json:"step_data,omitempty"`
}

// NewOnboardingService creates a new onboarding service
func NewOnboardingService(repo repository.CarbonRepository, emissions *EmissionsService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *OnboardingService {
	return &OnboardingService{
		repo:      repo,
		emissions: emissions,
		logger:    logger,
		metrics:   metricsCollector,
		sessions:  make(map[string]*wizardSession),
	}
}

// StartSession creates a new wizard session for the named flow. companyID is
// required for flows that persist against an existing company.
func (s *OnboardingService) StartSession(ctx context.Context, flow string, companyID int64) (*SessionState, error) {
	steps, err := wizard.FlowSteps(flow)
	if err != nil {
		return nil, err
	}

	machine, err := wizard.New(steps)
	if err != nil {
		return nil, err
	}

	session := &wizardSession{
		flow:      flow,
		companyID: companyID,
		machine:   machine,
		createdAt: time.Now().UTC(),
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	s.logger.Info(ctx, "[WIZARD_START] Wizard session started", logging.Fields{
		"session_id": id,
		"flow":       flow,
		"company_id": companyID,
	})

	return s.state(id, session), nil
}

// GetSession returns the current state of a session
func (s *OnboardingService) GetSession(ctx context.Context, sessionID string) (*SessionState, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	return s.state(sessionID, session), nil
}

// Advance validates the current step's data and moves the session forward
func (s *OnboardingService) Advance(ctx context.Context, sessionID string, data map[string]string) (*SessionState, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.machine.Advance(data); err != nil {
		s.recordValidationFailure(session.flow, err)
		return nil, err
	}

	return s.state(sessionID, session), nil
}

// Retreat moves the session back one step, keeping entered data
func (s *OnboardingService) Retreat(ctx context.Context, sessionID string) (*SessionState, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	session.machine.Retreat()
	return s.state(sessionID, session), nil
}

// Finalize validates the last step and persists the flow's outcome. On
// persistence failure the session stays open at the last step; the caller
// resubmits when ready.
func (s *OnboardingService) Finalize(ctx context.Context, sessionID string, data map[string]string) (*SessionState, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	err = session.machine.Finalize(ctx, data, func(ctx context.Context, payload map[string]string) error {
		return s.persistFlow(ctx, session, payload)
	})
	if err != nil {
		s.recordValidationFailure(session.flow, err)
		return nil, err
	}

	s.metrics.WizardCompletionsTotal.WithLabelValues(session.flow).Inc()

	s.logger.Info(ctx, "[WIZARD_COMPLETE] Wizard flow completed", logging.Fields{
		"session_id": sessionID,
		"flow":       session.flow,
		"company_id": session.companyID,
	})

	return s.state(sessionID, session), nil
}

// persistFlow commits the completed flow's payload. Each flow has one
// terminal side effect.
func (s *OnboardingService) persistFlow(ctx context.Context, session *wizardSession, payload map[string]string) error {
	switch session.flow {
	case "signup":
		return s.persistSignup(ctx, session, payload)
	case "baseline":
		return s.persistBaseline(ctx, session, payload)
	case "onboarding":
		return s.persistOnboarding(ctx, session, payload)
	default:
		return fmt.Errorf("no persistence defined for flow %q", session.flow)
	}
}

func (s *OnboardingService) persistSignup(ctx context.Context, session *wizardSession, payload map[string]string) error {
	employeeCount, err := strconv.Atoi(payload["employee_count"])
	if err != nil {
		return fmt.Errorf("invalid employee_count: %w", err)
	}

	revenue := 0.0
	if v := payload["annual_revenue"]; v != "" {
		revenue, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid annual_revenue: %w", err)
		}
	}

	company := &models.Company{
		Name:          payload["company_name"],
		Industry:      payload["industry"],
		EmployeeCount: employeeCount,
		AnnualRevenue: revenue,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.CreateCompany(ctx, company); err != nil {
		return err
	}

	session.companyID = company.ID
	return nil
}

func (s *OnboardingService) persistOnboarding(ctx context.Context, session *wizardSession, payload map[string]string) error {
	target, err := strconv.ParseFloat(payload["reduction_target_pct"], 64)
	if err != nil {
		return fmt.Errorf("invalid reduction_target_pct: %w", err)
	}

	year, err := strconv.Atoi(payload["target_year"])
	if err != nil {
		return fmt.Errorf("invalid target_year: %w", err)
	}

	facilities, err := strconv.Atoi(payload["facility_count"])
	if err != nil {
		return fmt.Errorf("invalid facility_count: %w", err)
	}

	goals := &models.CompanyGoals{
		CompanyID:          session.companyID,
		ReductionTargetPct: target,
		TargetYear:         year,
		FacilityCount:      facilities,
		PrimaryRegion:      payload["primary_region"],
		ReportingFramework: payload["reporting_framework"],
		UpdatedAt:          time.Now().UTC(),
	}

	if err := s.repo.UpsertCompanyGoals(ctx, goals); err != nil {
		return err
	}

	s.logger.Info(ctx, "[ONBOARDING_DONE] Company onboarding preferences stored", logging.Fields{
		"company_id": session.companyID,
		"framework":  goals.ReportingFramework,
	})
	return nil
}

func (s *OnboardingService) persistBaseline(ctx context.Context, session *wizardSession, payload map[string]string) error {
	start, err := time.Parse("2006-01-02", payload["period_start"])
	if err != nil {
		return fmt.Errorf("invalid period_start: %w", err)
	}
	end, err := time.Parse("2006-01-02", payload["period_end"])
	if err != nil {
		return fmt.Errorf("invalid period_end: %w", err)
	}

	input := carbon.BaselineInput{
		NaturalGasM3:   parseOptional(payload["natural_gas_m3"]),
		FuelLiters:     parseOptional(payload["fuel_liters"]),
		ElectricityKWh: parseOptional(payload["electricity_kwh"]),
		AnnualSpend:    parseOptional(payload["annual_spend"]),
	}

	method := carbon.CalculationMethod(payload["calculation_method"])

	_, _, err = s.emissions.EstimateBaseline(ctx, session.companyID, input, method, start, end)
	return err
}

// parseOptional maps a blank or unparseable field to "not provided". The
// wizard already rejected non-numeric values; this keeps blanks as nil so the
// estimator applies its missing-as-zero policy.
func parseOptional(v string) *float64 {
	if v == "" {
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &n
}

func (s *OnboardingService) lookup(sessionID string) (*wizardSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, &repository.NotFoundError{
			Resource: "wizard_session",
			ID:       sessionID,
		}
	}
	return session, nil
}

func (s *OnboardingService) state(id string, session *wizardSession) *SessionState {
	m := session.machine
	return &SessionState{
		SessionID:   id,
		Flow:        session.flow,
		CurrentStep: m.Current(),
		StepName:    m.Steps()[m.Current()].Name,
		TotalSteps:  len(m.Steps()),
		Submitted:   m.Submitted(),
		StepData:    m.StepData(m.Current()),
	}
}

func (s *OnboardingService) recordValidationFailure(flow string, err error) {
	if verr, ok := err.(*wizard.ValidationError); ok {
		s.metrics.WizardValidationFailuresTotal.WithLabelValues(flow, verr.Field).Inc()
	}
}
