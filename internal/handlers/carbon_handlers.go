package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"carbon-platform/internal/carbon"
	"carbon-platform/internal/models"
	"carbon-platform/internal/repository"
	"carbon-platform/internal/services"
	"carbon-platform/pkg/logging"
	"carbon-platform/pkg/metrics"
)

// CarbonHandler handles the sustainability platform API endpoints
type CarbonHandler struct {
	emissionsService   *services.EmissionsService
	marketplaceService *services.MarketplaceService
	onboardingService  *services.OnboardingService
	importService      *services.ImportService
	logger             *logging.StructuredLogger
	metrics            *metrics.Collector
}

// NewCarbonHandler creates a new carbon handler
func NewCarbonHandler(
	emissionsService *services.EmissionsService,
	marketplaceService *services.MarketplaceService,
	onboardingService *services.OnboardingService,
	importService *services.ImportService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *CarbonHandler {
	return &CarbonHandler{
		emissionsService:   emissionsService,
		marketplaceService: marketplaceService,
		onboardingService:  onboardingService,
		importService:      importService,
		logger:             logger,
		metrics:            metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// GetEmissions handles GET /api/emissions
func (h *CarbonHandler) GetEmissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/emissions").Observe(duration.Seconds())
	}()

	page, limit := parsePagination(r)
	filter := repository.EmissionsFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if companyID, ok, err := parseCompanyID(r); err != nil {
		h.sendError(w, r, "invalid company_id", http.StatusBadRequest)
		return
	} else if ok {
		filter.CompanyID = &companyID
	}

	if startDate, ok, err := parseDateParam(r, "start_date"); err != nil {
		h.sendError(w, r, "invalid start_date format, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	} else if ok {
		filter.StartDate = &startDate
	}

	if endDate, ok, err := parseDateParam(r, "end_date"); err != nil {
		h.sendError(w, r, "invalid end_date format, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	} else if ok {
		filter.EndDate = &endDate
	}

	records, total, err := h.emissionsService.GetEmissions(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_EMISSIONS_ERROR] Failed to get emissions", logging.Fields{
			"filter": filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/emissions")
		h.sendError(w, r, "failed to retrieve emissions records", http.StatusInternalServerError)
		return
	}

	totalPages := (total + limit - 1) / limit

	response := PaginatedResponse{
		Data:       records,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}

	h.metrics.RecordAPIRequest("/api/emissions", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// CreateEmissions handles POST /api/emissions
func (h *CarbonHandler) CreateEmissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var rec models.EmissionsRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.emissionsService.RecordEmissions(ctx, &rec); err != nil {
		h.handleServiceError(w, r, "/api/emissions", "failed to record emissions", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/emissions", "POST", "201")
	h.sendJSON(w, rec, http.StatusCreated)
}

// GetSummary handles GET /api/emissions/summary
func (h *CarbonHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/emissions/summary").Observe(duration.Seconds())
	}()

	companyID, start, end, err := parseSummaryParams(r)
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.emissionsService.GetSummary(ctx, companyID, start, end)
	if err != nil {
		h.logger.Error(ctx, "[API_SUMMARY_ERROR] Failed to build summary", logging.Fields{
			"company_id": companyID,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/emissions/summary")
		h.sendError(w, r, "failed to build emissions summary", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/emissions/summary", "GET", "200")
	h.sendJSON(w, summary, http.StatusOK)
}

// GetTopSources handles GET /api/emissions/sources/top
func (h *CarbonHandler) GetTopSources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companyID, start, end, err := parseSummaryParams(r)
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	ranked, err := h.emissionsService.GetTopSources(ctx, companyID, start, end, limit)
	if err != nil {
		h.logger.Error(ctx, "[API_TOP_SOURCES_ERROR] Failed to rank sources", logging.Fields{
			"company_id": companyID,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/emissions/sources/top")
		h.sendError(w, r, "failed to rank emission sources", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/emissions/sources/top", "GET", "200")
	h.sendJSON(w, map[string]interface{}{"data": ranked}, http.StatusOK)
}

// GetScope3Breakdown handles GET /api/emissions/scope3
func (h *CarbonHandler) GetScope3Breakdown(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companyID, start, end, err := parseSummaryParams(r)
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	filter := repository.EmissionsFilter{
		CompanyID: &companyID,
		StartDate: &start,
		EndDate:   &end,
		Limit:     1000,
	}

	ranked, err := h.emissionsService.GetScope3Breakdown(ctx, filter)
	if err != nil {
		h.metrics.RecordAPIError("internal_error", "/api/emissions/scope3")
		h.sendError(w, r, "failed to build scope 3 breakdown", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/emissions/scope3", "GET", "200")
	h.sendJSON(w, map[string]interface{}{"data": ranked}, http.StatusOK)
}

// baselineRequest is the POST /api/emissions/baseline body
type baselineRequest struct {
	CompanyID   int64                `json:"company_id"`
	PeriodStart string               `json:"period_start"`
	PeriodEnd   string               `json:"period_end"`
	Method      string               `json:"method"`
	Inputs      carbon.BaselineInput `json:"inputs"`
}

// EstimateBaseline handles POST /api/emissions/baseline
func (h *CarbonHandler) EstimateBaseline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/emissions/baseline").Observe(duration.Seconds())
	}()

	var req baselineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	method := carbon.CalculationMethod(req.Method)
	if !method.Valid() {
		h.sendError(w, r, "method must be one of: quick, hybrid, detailed", http.StatusBadRequest)
		return
	}

	start, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		h.sendError(w, r, "invalid period_start format, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		h.sendError(w, r, "invalid period_end format, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	rec, est, err := h.emissionsService.EstimateBaseline(ctx, req.CompanyID, req.Inputs, method, start, end)
	if err != nil {
		h.handleServiceError(w, r, "/api/emissions/baseline", "failed to persist baseline estimate", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/emissions/baseline", "POST", "201")
	h.sendJSON(w, map[string]interface{}{
		"record":   rec,
		"estimate": est,
	}, http.StatusCreated)
}

// GetCompliance handles GET /api/compliance
func (h *CarbonHandler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companyID, start, end, err := parseSummaryParams(r)
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.emissionsService.EvaluateCompliance(ctx, companyID, start, end)
	if err != nil {
		h.logger.Error(ctx, "[API_COMPLIANCE_ERROR] Failed to evaluate compliance", logging.Fields{
			"company_id": companyID,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/compliance")
		h.sendError(w, r, "failed to evaluate compliance rules", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/compliance", "GET", "200")
	h.sendJSON(w, report, http.StatusOK)
}

// ListMaterials handles GET /api/materials
func (h *CarbonHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, limit := parsePagination(r)
	filter := repository.ListingFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if companyID, ok, err := parseCompanyID(r); err != nil {
		h.sendError(w, r, "invalid company_id", http.StatusBadRequest)
		return
	} else if ok {
		filter.CompanyID = &companyID
	}

	if v := r.URL.Query().Get("material_type"); v != "" {
		filter.MaterialType = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	listings, total, err := h.marketplaceService.ListListings(ctx, filter)
	if err != nil {
		h.metrics.RecordAPIError("internal_error", "/api/materials")
		h.sendError(w, r, "failed to list materials", http.StatusInternalServerError)
		return
	}

	totalPages := (total + limit - 1) / limit

	response := PaginatedResponse{
		Data:       listings,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}

	h.metrics.RecordAPIRequest("/api/materials", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// CreateMaterial handles POST /api/materials
func (h *CarbonHandler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var listing models.MaterialListing
	if err := json.NewDecoder(r.Body).Decode(&listing); err != nil {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.marketplaceService.CreateListing(ctx, &listing)
	if err != nil {
		h.handleServiceError(w, r, "/api/materials", "failed to create listing", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/materials", "POST", "201")
	h.sendJSON(w, view, http.StatusCreated)
}

// GetMaterial handles GET /api/materials/{id}
func (h *CarbonHandler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.sendError(w, r, "invalid listing id", http.StatusBadRequest)
		return
	}

	view, err := h.marketplaceService.GetListing(ctx, id)
	if err != nil {
		h.handleServiceError(w, r, "/api/materials/{id}", "failed to get listing", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/materials/{id}", "GET", "200")
	h.sendJSON(w, view, http.StatusOK)
}

// purchaseRequest is the POST /api/materials/{id}/purchase body
type purchaseRequest struct {
	BuyerCompanyID int64   `json:"buyer_company_id"`
	Quantity       float64 `json:"quantity"`
}

// PurchaseMaterial handles POST /api/materials/{id}/purchase
func (h *CarbonHandler) PurchaseMaterial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.sendError(w, r, "invalid listing id", http.StatusBadRequest)
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := h.marketplaceService.Purchase(ctx, req.BuyerCompanyID, id, req.Quantity)
	if err != nil {
		h.handleServiceError(w, r, "/api/materials/{id}/purchase", "failed to complete purchase", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/materials/{id}/purchase", "POST", "201")
	h.sendJSON(w, tx, http.StatusCreated)
}

// ListOffsets handles GET /api/offsets
func (h *CarbonHandler) ListOffsets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	verifiedOnly := r.URL.Query().Get("verified") == "true"

	projects, err := h.emissionsService.ListOffsetProjects(ctx, verifiedOnly)
	if err != nil {
		h.metrics.RecordAPIError("internal_error", "/api/offsets")
		h.sendError(w, r, "failed to list offset projects", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/offsets", "GET", "200")
	h.sendJSON(w, map[string]interface{}{"data": projects}, http.StatusOK)
}

// GetOffsetEquivalency handles GET /api/offsets/equivalencies
func (h *CarbonHandler) GetOffsetEquivalency(w http.ResponseWriter, r *http.Request) {
	tons, err := strconv.ParseFloat(r.URL.Query().Get("tons"), 64)
	if err != nil {
		h.sendError(w, r, "tons is required and must be a number", http.StatusBadRequest)
		return
	}

	pricePerTon := 0.0
	if v := r.URL.Query().Get("price_per_ton"); v != "" {
		pricePerTon, err = strconv.ParseFloat(v, 64)
		if err != nil {
			h.sendError(w, r, "invalid price_per_ton", http.StatusBadRequest)
			return
		}
	}

	eq := h.emissionsService.OffsetEquivalency(tons, pricePerTon)

	h.metrics.RecordAPIRequest("/api/offsets/equivalencies", "GET", "200")
	h.sendJSON(w, eq, http.StatusOK)
}

// ImportSources handles POST /api/import, accepting a CSV body
func (h *CarbonHandler) ImportSources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/import").Observe(duration.Seconds())
	}()

	batchSize := 500
	if v := r.URL.Query().Get("batch_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 10000 {
			batchSize = n
		}
	}

	result, err := h.importService.ImportReader(ctx, r.Body, batchSize)
	if err != nil {
		h.logger.Error(ctx, "[API_IMPORT_ERROR] CSV import failed", logging.Fields{}, err)
		h.metrics.RecordAPIError("import_error", "/api/import")
		h.sendError(w, r, "failed to import emission sources", http.StatusBadRequest)
		return
	}

	h.metrics.RecordAPIRequest("/api/import", "POST", "200")
	h.sendJSON(w, result, http.StatusOK)
}

// parsePagination reads page/limit query parameters with defaults
func parsePagination(r *http.Request) (page, limit int) {
	page = 1
	limit = 100

	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	return page, limit
}

// parseCompanyID reads an optional company_id query parameter
func parseCompanyID(r *http.Request) (int64, bool, error) {
	v := r.URL.Query().Get("company_id")
	if v == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// parseDateParam reads an optional YYYY-MM-DD query parameter
func parseDateParam(r *http.Request, name string) (time.Time, bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// parseSummaryParams reads the required company_id plus the period bounds.
// Missing bounds default to a trailing 12-month window.
func parseSummaryParams(r *http.Request) (int64, time.Time, time.Time, error) {
	companyID, ok, err := parseCompanyID(r)
	if err != nil || !ok {
		return 0, time.Time{}, time.Time{}, errors.New("company_id is required")
	}

	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)

	if t, ok, err := parseDateParam(r, "start_date"); err != nil {
		return 0, time.Time{}, time.Time{}, errors.New("invalid start_date format, expected YYYY-MM-DD")
	} else if ok {
		start = t
	}

	if t, ok, err := parseDateParam(r, "end_date"); err != nil {
		return 0, time.Time{}, time.Time{}, errors.New("invalid end_date format, expected YYYY-MM-DD")
	} else if ok {
		end = t
	}

	return companyID, start, end, nil
}

// handleServiceError maps service errors to HTTP responses
func (h *CarbonHandler) handleServiceError(w http.ResponseWriter, r *http.Request, endpoint, fallback string, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		h.metrics.RecordAPIError("validation_error", endpoint)
		h.sendError(w, r, verr.Error(), http.StatusBadRequest)
		return
	}

	var nferr *repository.NotFoundError
	if errors.As(err, &nferr) {
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, r, nferr.Error(), http.StatusNotFound)
		return
	}

	h.logger.Error(r.Context(), "[API_SERVICE_ERROR] Service call failed", logging.Fields{
		"endpoint": endpoint,
	}, err)
	h.metrics.RecordAPIError("internal_error", endpoint)
	h.sendError(w, r, fallback, http.StatusInternalServerError)
}

// HealthCheck handles GET /health
func (h *CarbonHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *CarbonHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *CarbonHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all API routes
func (h *CarbonHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/emissions", h.GetEmissions).Methods("GET")
	router.HandleFunc("/api/emissions", h.CreateEmissions).Methods("POST")
	router.HandleFunc("/api/emissions/summary", h.GetSummary).Methods("GET")
	router.HandleFunc("/api/emissions/sources/top", h.GetTopSources).Methods("GET")
	router.HandleFunc("/api/emissions/scope3", h.GetScope3Breakdown).Methods("GET")
	router.HandleFunc("/api/emissions/baseline", h.EstimateBaseline).Methods("POST")
	router.HandleFunc("/api/compliance", h.GetCompliance).Methods("GET")
	router.HandleFunc("/api/materials", h.ListMaterials).Methods("GET")
	router.HandleFunc("/api/materials", h.CreateMaterial).Methods("POST")
	router.HandleFunc("/api/materials/{id:[0-9]+}", h.GetMaterial).Methods("GET")
	router.HandleFunc("/api/materials/{id:[0-9]+}/purchase", h.PurchaseMaterial).Methods("POST")
	router.HandleFunc("/api/offsets", h.ListOffsets).Methods("GET")
	router.HandleFunc("/api/offsets/equivalencies", h.GetOffsetEquivalency).Methods("GET")
	router.HandleFunc("/api/import", h.ImportSources).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
