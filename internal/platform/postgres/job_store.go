package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/platform/logger"
	"github.com/vipplay/contentgen/internal/store"
)

// jobColumns is the shared select list for job queries.
const jobColumns = `id, owner_id, mode, article_count, model_group_id, status,
	queue_position, completed_count, failed_count, progress, message,
	error_message, params, created_at, started_at, completed_at`

// JobStore implements store.JobStore using PostgreSQL.
type JobStore struct {
	db store.DBTX
}

// NewJobStore creates a new JobStore.
func NewJobStore(db store.DBTX) *JobStore {
	return &JobStore{db: db}
}

// Ensure JobStore implements store.JobStore.
var _ store.JobStore = (*JobStore)(nil)

// WithTx returns a JobStore bound to the given transaction.
func (s *JobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &JobStore{db: tx}
}

// Create persists a new job.
func (s *JobStore) Create(ctx context.Context, job *domain.GenerationJob) error {
	log := logger.FromContext(ctx)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal job params: %w", err)
	}

	query := `
		INSERT INTO generation_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.OwnerID,
		job.Mode,
		job.ArticleCount,
		nullableUUID(job.ModelGroupID),
		job.Status,
		job.QueuePosition,
		job.CompletedCount,
		job.FailedCount,
		job.Progress,
		job.Message,
		nullableString(job.Error),
		params,
		job.CreatedAt,
		job.StartedAt,
		job.CompletedAt,
	)
	if err != nil {
		log.Error("failed to save job", "job_id", job.ID, "error", err)
		return MapError(err)
	}
	return nil
}

// GetByID retrieves a job by its unique ID.
func (s *JobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE id = $1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrJobNotFound
		}
		return nil, MapError(err)
	}
	return job, nil
}

// Update saves changes to an existing job.
func (s *JobStore) Update(ctx context.Context, job *domain.GenerationJob) error {
	log := logger.FromContext(ctx)

	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal job params: %w", err)
	}

	query := `
		UPDATE generation_jobs
		SET status = $1, queue_position = $2, completed_count = $3,
			failed_count = $4, progress = $5, message = $6, error_message = $7,
			params = $8, started_at = $9, completed_at = $10
		WHERE id = $11
	`
	result, err := s.db.ExecContext(ctx, query,
		job.Status,
		job.QueuePosition,
		job.CompletedCount,
		job.FailedCount,
		job.Progress,
		job.Message,
		nullableString(job.Error),
		params,
		job.StartedAt,
		job.CompletedAt,
		job.ID,
	)
	if err != nil {
		log.Error("failed to update job", "job_id", job.ID, "error", err)
		return MapError(err)
	}
	return CheckRowsAffected(result, "job")
}

// UpdateMessage sets only the status message of a job. The executor owns the
// counter columns while a job is processing, so callers that merely annotate
// a job must not write a full row.
func (s *JobStore) UpdateMessage(ctx context.Context, id uuid.UUID, message string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE generation_jobs SET message = $1 WHERE id = $2`,
		message, id,
	)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "job"); err != nil {
		return store.ErrJobNotFound
	}
	return nil
}

// List returns the caller's jobs, newest first, optionally filtered by status.
func (s *JobStore) List(
	ctx context.Context,
	ownerID uuid.UUID,
	status *domain.JobStatus,
) ([]*domain.GenerationJob, error) {
	var rows *sql.Rows
	var err error
	if status != nil {
		query := `SELECT ` + jobColumns + `
			FROM generation_jobs WHERE owner_id = $1 AND status = $2
			ORDER BY created_at DESC`
		rows, err = s.db.QueryContext(ctx, query, ownerID, *status)
	} else {
		query := `SELECT ` + jobColumns + `
			FROM generation_jobs WHERE owner_id = $1
			ORDER BY created_at DESC`
		rows, err = s.db.QueryContext(ctx, query, ownerID)
	}
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return collectJobs(rows)
}

// CountQueued returns the number of jobs currently queued across all owners.
func (s *JobStore) CountQueued(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generation_jobs WHERE status = $1`,
		domain.JobStatusQueued,
	).Scan(&count)
	if err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// NextQueued returns the oldest queued job by creation order.
func (s *JobStore) NextQueued(ctx context.Context) (*domain.GenerationJob, error) {
	query := `SELECT ` + jobColumns + `
		FROM generation_jobs WHERE status = $1
		ORDER BY created_at ASC LIMIT 1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, domain.JobStatusQueued))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrJobNotFound
		}
		return nil, MapError(err)
	}
	return job, nil
}

// ListByStatus returns all jobs in the given status, oldest first.
func (s *JobStore) ListByStatus(
	ctx context.Context,
	status domain.JobStatus,
) ([]*domain.GenerationJob, error) {
	query := `SELECT ` + jobColumns + `
		FROM generation_jobs WHERE status = $1
		ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return collectJobs(rows)
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*domain.GenerationJob, error) {
	var (
		job          domain.GenerationJob
		modelGroupID sql.NullString
		errorMsg     sql.NullString
		params       []byte
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Mode,
		&job.ArticleCount,
		&modelGroupID,
		&job.Status,
		&job.QueuePosition,
		&job.CompletedCount,
		&job.FailedCount,
		&job.Progress,
		&job.Message,
		&errorMsg,
		&params,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if modelGroupID.Valid {
		id, err := uuid.Parse(modelGroupID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid model group ID in job row: %w", err)
		}
		job.ModelGroupID = id
	}
	job.Error = errorMsg.String
	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job params: %w", err)
		}
	}
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		job.CompletedAt = &t
	}
	job.CreatedAt = job.CreatedAt.UTC()

	return &job, nil
}

func collectJobs(rows *sql.Rows) ([]*domain.GenerationJob, error) {
	var jobs []*domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}
	return jobs, nil
}

func nullableUUID(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
