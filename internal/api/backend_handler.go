package api

import (
	"log/slog"
	"net/http"

	"github.com/vipplay/contentgen/internal/api/shared"
	"github.com/vipplay/contentgen/internal/service"
)

// BackendHandler serves the superadmin backend registry endpoints.
type BackendHandler struct {
	backends *service.BackendService
	logger   *slog.Logger
}

// NewBackendHandler creates a BackendHandler.
func NewBackendHandler(backends *service.BackendService, logger *slog.Logger) *BackendHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackendHandler{
		backends: backends,
		logger:   logger.With("component", "backend_handler"),
	}
}

// List handles GET /admin/backends. Returns 503 when the inference server is
// unreachable.
func (h *BackendHandler) List(w http.ResponseWriter, r *http.Request) {
	backends, err := h.backends.ListBackends(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, backends)
}

// Test handles POST /admin/backends/test. The probe itself never fails the
// request; an unreachable backend is reported inside the result.
func (h *BackendHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req BackendRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	result, err := h.backends.TestBackend(r.Context(), req.BackendID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Pull handles POST /admin/backends/pull.
func (h *BackendHandler) Pull(w http.ResponseWriter, r *http.Request) {
	var req BackendRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.backends.PullModel(r.Context(), req.BackendID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"status": "pulled",
		"model":  req.BackendID,
	})
}
