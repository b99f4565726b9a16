package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

// Possible job status values.
const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// GenerationMode selects how article content is produced for a job.
type GenerationMode string

// Supported generation modes.
const (
	ModeTopic    GenerationMode = "topic"
	ModeKeywords GenerationMode = "keywords"
	ModeTrends   GenerationMode = "trends"
	ModeSpin     GenerationMode = "spin"
	ModeFreeform GenerationMode = "freeform"
)

// MaxArticleCount is the hard upper bound on articles per job. The configured
// limit may be lower but never higher.
const MaxArticleCount = 50

// Common validation errors for GenerationJob.
var (
	ErrEmptyJobID         = errors.New("job ID cannot be empty")
	ErrEmptyJobOwnerID    = errors.New("job owner ID cannot be empty")
	ErrInvalidMode        = errors.New("invalid generation mode")
	ErrInvalidJobStatus   = errors.New("invalid job status")
	ErrArticleCountRange  = errors.New("article count out of range")
	ErrSpinNeedsOriginal  = errors.New("spin mode requires original content")
	ErrCounterOverflow    = errors.New("task counters exceed article count")
	ErrProgressRegression = errors.New("progress cannot decrease")
)

// JobParams carries the mode-specific generation inputs. The scheduler treats
// it as opaque; only the backend prompt builder interprets it.
type JobParams struct {
	Topics          []string `json:"topics,omitempty"`
	WordCount       int      `json:"word_count,omitempty"`
	Tone            string   `json:"tone,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	TrendTopic      string   `json:"trend_topic,omitempty"`
	Region          string   `json:"region,omitempty"`
	OriginalContent string   `json:"original_content,omitempty"`
	SpinAngle       string   `json:"spin_angle,omitempty"`
	SpinIntensity   string   `json:"spin_intensity,omitempty"`
	Prompt          string   `json:"prompt,omitempty"`
}

// GenerationJob is a single submission that expands into ArticleCount
// independently executed generation tasks. Counters and progress are mutated
// only by the execution engine; status and queue position only by the queue
// manager. Once terminal the record is immutable.
type GenerationJob struct {
	ID             uuid.UUID      `json:"id"`
	OwnerID        uuid.UUID      `json:"owner_id"`
	Mode           GenerationMode `json:"mode"`
	ArticleCount   int            `json:"article_count"`
	ModelGroupID   uuid.UUID      `json:"model_group_id,omitempty"`
	Status         JobStatus      `json:"status"`
	QueuePosition  int            `json:"queue_position"`
	CompletedCount int            `json:"completed_count"`
	FailedCount    int            `json:"failed_count"`
	Progress       int            `json:"progress"`
	Message        string         `json:"message"`
	Error          string         `json:"error,omitempty"`
	Params         JobParams      `json:"params"`
	CreatedAt      time.Time      `json:"created_at"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// NewGenerationJob creates a queued job for the given owner. maxArticles is
// the configured per-job limit; values above MaxArticleCount are clamped to it.
// Returns an error if validation fails.
func NewGenerationJob(
	ownerID uuid.UUID,
	mode GenerationMode,
	articleCount int,
	modelGroupID uuid.UUID,
	params JobParams,
	maxArticles int,
) (*GenerationJob, error) {
	if maxArticles <= 0 || maxArticles > MaxArticleCount {
		maxArticles = MaxArticleCount
	}

	job := &GenerationJob{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Mode:         mode,
		ArticleCount: articleCount,
		ModelGroupID: modelGroupID,
		Status:       JobStatusQueued,
		Message:      "Job queued",
		Params:       params,
		CreatedAt:    time.Now().UTC(),
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}
	if articleCount > maxArticles {
		return nil, ErrArticleCountRange
	}

	return job, nil
}

// Validate checks structural invariants of the job.
func (j *GenerationJob) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}
	if j.OwnerID == uuid.Nil {
		return ErrEmptyJobOwnerID
	}
	if !isValidMode(j.Mode) {
		return ErrInvalidMode
	}
	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}
	if j.ArticleCount < 1 || j.ArticleCount > MaxArticleCount {
		return ErrArticleCountRange
	}
	if j.Mode == ModeSpin && j.Params.OriginalContent == "" {
		return ErrSpinNeedsOriginal
	}
	if j.CompletedCount+j.FailedCount > j.ArticleCount {
		return ErrCounterOverflow
	}
	return nil
}

// IsTerminal reports whether the job has reached a final status.
func (j *GenerationJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// allowedTransitions encodes the one-way state machine:
// queued to processing to one of {completed, failed, cancelled}, with a
// direct queued-to-cancelled edge for jobs cancelled before dispatch.
var allowedTransitions = map[JobStatus][]JobStatus{
	JobStatusQueued:     {JobStatusProcessing, JobStatusCancelled},
	JobStatusProcessing: {JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
}

// TransitionTo moves the job to the given status, enforcing the state machine.
// Entering processing stamps StartedAt; entering a terminal status stamps
// CompletedAt. Returns ErrInvalidTransition for any disallowed edge.
func (j *GenerationJob) TransitionTo(status JobStatus) error {
	if !isValidJobStatus(status) {
		return ErrInvalidJobStatus
	}

	allowed := false
	for _, next := range allowedTransitions[j.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	j.Status = status
	switch status {
	case JobStatusProcessing:
		j.StartedAt = &now
		j.QueuePosition = 0
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		j.CompletedAt = &now
		j.QueuePosition = 0
	}
	return nil
}

// RecordTaskOutcome folds one settled task into the job's counters and
// recomputes progress. Progress is floor((completed+failed)/articleCount*100)
// and never decreases. The caller must hold whatever lock guards the job.
func (j *GenerationJob) RecordTaskOutcome(success bool, errMsg string) error {
	if j.CompletedCount+j.FailedCount >= j.ArticleCount {
		return ErrCounterOverflow
	}

	if success {
		j.CompletedCount++
	} else {
		j.FailedCount++
		if errMsg != "" {
			j.Error = errMsg
		}
	}

	settled := j.CompletedCount + j.FailedCount
	progress := settled * 100 / j.ArticleCount
	if progress < j.Progress {
		return ErrProgressRegression
	}
	j.Progress = progress
	return nil
}

// isValidMode checks if the given mode is a recognized GenerationMode.
func isValidMode(mode GenerationMode) bool {
	switch mode {
	case ModeTopic, ModeKeywords, ModeTrends, ModeSpin, ModeFreeform:
		return true
	default:
		return false
	}
}

// isValidJobStatus checks if the given status is a valid JobStatus.
func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}
