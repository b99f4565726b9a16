package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vipplay/contentgen/internal/api/shared"
	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/service"
)

// ModelGroupHandler serves the superadmin model group registry endpoints.
type ModelGroupHandler struct {
	groups *service.ModelGroupService
	logger *slog.Logger
}

// NewModelGroupHandler creates a ModelGroupHandler.
func NewModelGroupHandler(groups *service.ModelGroupService, logger *slog.Logger) *ModelGroupHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelGroupHandler{
		groups: groups,
		logger: logger.With("component", "model_group_handler"),
	}
}

// Create handles POST /admin/model-groups.
func (h *ModelGroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateModelGroupRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	group, err := h.groups.Create(r.Context(), req.Name, req.Description,
		req.Models, domain.RoutingStrategy(req.Strategy), req.Weights, isActive)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, group)
}

// Get handles GET /admin/model-groups/{id}.
func (h *ModelGroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid model group ID")
		return
	}

	group, err := h.groups.Get(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, group)
}

// List handles GET /admin/model-groups with an optional active filter.
func (h *ModelGroupHandler) List(w http.ResponseWriter, r *http.Request) {
	var activeOnly *bool
	switch r.URL.Query().Get("active") {
	case "":
	case "true":
		v := true
		activeOnly = &v
	case "false":
		v := false
		activeOnly = &v
	default:
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid active filter")
		return
	}

	groups, err := h.groups.List(r.Context(), activeOnly)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, groups)
}

// Update handles PATCH /admin/model-groups/{id}.
func (h *ModelGroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid model group ID")
		return
	}

	var req UpdateModelGroupRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	patch := domain.ModelGroupPatch{
		Name:        req.Name,
		Description: req.Description,
		Models:      req.Models,
		Weights:     req.Weights,
		IsActive:    req.IsActive,
	}
	if req.Strategy != nil {
		strategy := domain.RoutingStrategy(*req.Strategy)
		patch.Strategy = &strategy
	}

	group, err := h.groups.Update(r.Context(), id, patch)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, group)
}

// Delete handles DELETE /admin/model-groups/{id}.
func (h *ModelGroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid model group ID")
		return
	}

	if err := h.groups.Delete(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
