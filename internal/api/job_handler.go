package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vipplay/contentgen/internal/api/middleware"
	"github.com/vipplay/contentgen/internal/api/shared"
	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/scheduler"
)

// JobHandler serves the generation job endpoints.
type JobHandler struct {
	queue  *scheduler.QueueManager
	logger *slog.Logger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(queue *scheduler.QueueManager, logger *slog.Logger) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{
		queue:  queue,
		logger: logger.With("component", "job_handler"),
	}
}

// Submit handles POST /jobs.
func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SubmitJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	modelGroupID := uuid.Nil
	if req.ModelGroupID != "" {
		var err error
		modelGroupID, err = uuid.Parse(req.ModelGroupID)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid model group ID")
			return
		}
	}

	job, err := h.queue.Submit(r.Context(), ownerID,
		domain.GenerationMode(req.Mode), req.ArticleCount, modelGroupID, req.Params)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, NewJobResponse(job))
}

// Get handles GET /jobs/{id}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.queue.Get(r.Context(), ownerID, jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewJobResponse(job))
}

// List handles GET /jobs with an optional status filter.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var status *domain.JobStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.JobStatus(raw)
		switch s {
		case domain.JobStatusQueued, domain.JobStatusProcessing,
			domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCancelled:
			status = &s
		default:
			shared.RespondWithError(w, r, http.StatusBadRequest,
				fmt.Sprintf("Invalid status filter %q", raw))
			return
		}
	}

	jobs, err := h.queue.List(r.Context(), ownerID, status)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, NewJobResponse(job))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// Cancel handles POST /jobs/{id}/cancel. Queued jobs cancel immediately;
// processing jobs finish their in-flight tasks and finalize as cancelled.
// Cancelling a terminal job returns 409.
func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.queue.Cancel(r.Context(), ownerID, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			shared.RespondWithError(w, r, http.StatusConflict, GetSafeErrorMessage(err))
			return
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewJobResponse(job))
}
