// Package store provides abstractions and implementations for data persistence.
package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/vipplay/contentgen/internal/domain"
)

// DBTX is the subset of database/sql operations shared by *sql.DB and *sql.Tx.
// Store implementations accept it so the same code runs inside and outside
// transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// JobStore defines persistence for generation jobs.
type JobStore interface {
	// Create persists a new job.
	Create(ctx context.Context, job *domain.GenerationJob) error

	// GetByID retrieves a job by its unique ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error)

	// Update saves changes to an existing job.
	Update(ctx context.Context, job *domain.GenerationJob) error

	// UpdateMessage sets only the status message of a job, leaving counters
	// and status untouched. Used when another goroutine owns the job row.
	UpdateMessage(ctx context.Context, id uuid.UUID, message string) error

	// List returns the caller's jobs, newest first, optionally filtered by status.
	List(ctx context.Context, ownerID uuid.UUID, status *domain.JobStatus) ([]*domain.GenerationJob, error)

	// CountQueued returns the number of jobs currently queued across all owners.
	CountQueued(ctx context.Context) (int, error)

	// NextQueued returns the oldest queued job by creation order, or
	// ErrJobNotFound when the queue is empty.
	NextQueued(ctx context.Context) (*domain.GenerationJob, error)

	// ListByStatus returns all jobs in the given status, oldest first,
	// regardless of owner. Used by dispatch recovery.
	ListByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.GenerationJob, error)

	// WithTx returns a JobStore bound to the given transaction.
	WithTx(tx *sql.Tx) JobStore
}

// ModelGroupStore defines persistence for model groups.
type ModelGroupStore interface {
	// Create persists a new model group. Returns ErrGroupNameExists when the
	// name is already taken.
	Create(ctx context.Context, group *domain.ModelGroup) error

	// GetByID retrieves a group by its unique ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ModelGroup, error)

	// GetByName retrieves a group by its unique name.
	GetByName(ctx context.Context, name string) (*domain.ModelGroup, error)

	// Update saves changes to an existing group.
	Update(ctx context.Context, group *domain.ModelGroup) error

	// Delete removes a group by ID.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns all groups ordered by creation time. When activeOnly is
	// set, only groups matching the flag are returned.
	List(ctx context.Context, activeOnly *bool) ([]*domain.ModelGroup, error)

	// Upsert applies a config-import entry. An entry matching an existing
	// group by ID updates it in place, renames included; otherwise the
	// entry merges by name, keeping the existing row's ID.
	Upsert(ctx context.Context, group *domain.ModelGroup) error

	// WithTx returns a ModelGroupStore bound to the given transaction.
	WithTx(tx *sql.Tx) ModelGroupStore

	// DB returns the underlying database handle, for running transactions
	// that span multiple stores.
	DB() *sql.DB
}

// ConfigurationStore defines persistence for named configuration settings.
type ConfigurationStore interface {
	// List returns all configurations ordered by name.
	List(ctx context.Context) ([]domain.Configuration, error)

	// Upsert inserts or replaces a configuration by name.
	Upsert(ctx context.Context, cfg domain.Configuration) error

	// WithTx returns a ConfigurationStore bound to the given transaction.
	WithTx(tx *sql.Tx) ConfigurationStore
}
