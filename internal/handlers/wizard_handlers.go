package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"carbon-platform/internal/repository"
	"carbon-platform/internal/wizard"
)

// startSessionRequest is the POST /api/onboarding/{flow}/start body
type startSessionRequest struct {
	CompanyID int64 `json:"company_id"`
}

// stepRequest is the body for advance and finalize calls
type stepRequest struct {
	Data map[string]string `json:"data"`
}

// StartWizard handles POST /api/onboarding/{flow}/start
func (h *CarbonHandler) StartWizard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flow := mux.Vars(r)["flow"]

	var req startSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.sendError(w, r, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	state, err := h.onboardingService.StartSession(ctx, flow, req.CompanyID)
	if err != nil {
		h.metrics.RecordAPIError("validation_error", "/api/onboarding/{flow}/start")
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	h.metrics.RecordAPIRequest("/api/onboarding/{flow}/start", "POST", "201")
	h.sendJSON(w, state, http.StatusCreated)
}

// GetWizardSession handles GET /api/onboarding/sessions/{id}
func (h *CarbonHandler) GetWizardSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := mux.Vars(r)["id"]

	state, err := h.onboardingService.GetSession(ctx, sessionID)
	if err != nil {
		h.handleWizardError(w, r, "/api/onboarding/sessions/{id}", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/onboarding/sessions/{id}", "GET", "200")
	h.sendJSON(w, state, http.StatusOK)
}

// AdvanceWizard handles POST /api/onboarding/sessions/{id}/advance
func (h *CarbonHandler) AdvanceWizard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := mux.Vars(r)["id"]

	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	state, err := h.onboardingService.Advance(ctx, sessionID, req.Data)
	if err != nil {
		h.handleWizardError(w, r, "/api/onboarding/sessions/{id}/advance", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/onboarding/sessions/{id}/advance", "POST", "200")
	h.sendJSON(w, state, http.StatusOK)
}

// RetreatWizard handles POST /api/onboarding/sessions/{id}/retreat
func (h *CarbonHandler) RetreatWizard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := mux.Vars(r)["id"]

	state, err := h.onboardingService.Retreat(ctx, sessionID)
	if err != nil {
		h.handleWizardError(w, r, "/api/onboarding/sessions/{id}/retreat", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/onboarding/sessions/{id}/retreat", "POST", "200")
	h.sendJSON(w, state, http.StatusOK)
}

// FinalizeWizard handles POST /api/onboarding/sessions/{id}/finalize
func (h *CarbonHandler) FinalizeWizard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := mux.Vars(r)["id"]

	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	state, err := h.onboardingService.Finalize(ctx, sessionID, req.Data)
	if err != nil {
		h.handleWizardError(w, r, "/api/onboarding/sessions/{id}/finalize", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/onboarding/sessions/{id}/finalize", "POST", "200")
	h.sendJSON(w, state, http.StatusOK)
}

// handleWizardError maps wizard errors to HTTP responses. Validation failures
// carry the violated field and rule so clients can highlight the input.
func (h *CarbonHandler) handleWizardError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		h.metrics.RecordAPIError("validation_error", endpoint)
		h.metrics.RecordAPIRequest(r.URL.Path, r.Method, "422")

		h.sendJSON(w, map[string]interface{}{
			"error":   "Unprocessable Entity",
			"code":    http.StatusUnprocessableEntity,
			"message": verr.Message,
			"step":    verr.Step,
			"field":   verr.Field,
			"rule":    verr.Rule,
		}, http.StatusUnprocessableEntity)
		return
	}

	var nferr *repository.NotFoundError
	if errors.As(err, &nferr) {
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, r, nferr.Error(), http.StatusNotFound)
		return
	}

	h.metrics.RecordAPIError("wizard_error", endpoint)
	h.sendError(w, r, err.Error(), http.StatusConflict)
}

// RegisterWizardRoutes registers the multi-step form routes
func (h *CarbonHandler) RegisterWizardRoutes(router *mux.Router) {
	router.HandleFunc("/api/onboarding/{flow}/start", h.StartWizard).Methods("POST")
	router.HandleFunc("/api/onboarding/sessions/{id}", h.GetWizardSession).Methods("GET")
	router.HandleFunc("/api/onboarding/sessions/{id}/advance", h.AdvanceWizard).Methods("POST")
	router.HandleFunc("/api/onboarding/sessions/{id}/retreat", h.RetreatWizard).Methods("POST")
	router.HandleFunc("/api/onboarding/sessions/{id}/finalize", h.FinalizeWizard).Methods("POST")
}
