package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/vipplay/contentgen/internal/domain"
)

// SubmitJobRequest is the payload for creating a generation job.
type SubmitJobRequest struct {
	Mode         string           `json:"mode"          validate:"required,oneof=topic keywords trends spin freeform"`
	ArticleCount int              `json:"article_count" validate:"required,min=1,max=50"`
	ModelGroupID string           `json:"model_group_id,omitempty" validate:"omitempty,uuid"`
	Params       domain.JobParams `json:"params"`
}

// JobResponse is the API representation of a generation job.
type JobResponse struct {
	ID             string           `json:"id"`
	Mode           string           `json:"mode"`
	ArticleCount   int              `json:"article_count"`
	ModelGroupID   string           `json:"model_group_id,omitempty"`
	Status         string           `json:"status"`
	QueuePosition  int              `json:"queue_position,omitempty"`
	CompletedCount int              `json:"completed_count"`
	FailedCount    int              `json:"failed_count"`
	Progress       int              `json:"progress"`
	Message        string           `json:"message"`
	Error          string           `json:"error,omitempty"`
	Params         domain.JobParams `json:"params"`
	CreatedAt      time.Time        `json:"created_at"`
	StartedAt      *time.Time       `json:"started_at,omitempty"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
}

// NewJobResponse converts a domain job to its API representation.
func NewJobResponse(job *domain.GenerationJob) JobResponse {
	resp := JobResponse{
		ID:             job.ID.String(),
		Mode:           string(job.Mode),
		ArticleCount:   job.ArticleCount,
		Status:         string(job.Status),
		QueuePosition:  job.QueuePosition,
		CompletedCount: job.CompletedCount,
		FailedCount:    job.FailedCount,
		Progress:       job.Progress,
		Message:        job.Message,
		Error:          job.Error,
		Params:         job.Params,
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	}
	if job.ModelGroupID != uuid.Nil {
		resp.ModelGroupID = job.ModelGroupID.String()
	}
	return resp
}

// CreateModelGroupRequest is the payload for registering a model group.
type CreateModelGroupRequest struct {
	Name        string   `json:"name"        validate:"required"`
	Description string   `json:"description"`
	Models      []string `json:"models"      validate:"required,min=1,dive,required"`
	Strategy    string   `json:"strategy"    validate:"required,oneof=round-robin priority"`
	Weights     []int    `json:"weights,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// UpdateModelGroupRequest is the payload for partially updating a model
// group. Absent fields are left unchanged.
type UpdateModelGroupRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Models      []string `json:"models,omitempty"`
	Strategy    *string  `json:"strategy,omitempty" validate:"omitempty,oneof=round-robin priority"`
	Weights     []int    `json:"weights,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// BackendRequest identifies a single backend for probe and pull operations.
type BackendRequest struct {
	BackendID string `json:"backend_id" validate:"required"`
}
