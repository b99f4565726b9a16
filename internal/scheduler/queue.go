// Package scheduler owns the generation job queue: submission, cancellation,
// FIFO dispatch, and task execution.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/platform/metrics"
	"github.com/vipplay/contentgen/internal/redact"
	"github.com/vipplay/contentgen/internal/store"
)

// pollInterval bounds how long an idle dispatcher waits before re-checking
// the queue. Submissions nudge the dispatcher immediately; the ticker only
// covers jobs written by another process or missed wakeups.
const pollInterval = 5 * time.Second

// execution tracks one job currently being processed. The cancelled flag is
// the cooperative cancellation signal polled by the executor.
type execution struct {
	cancelled atomic.Bool
}

// QueueManager accepts jobs into a FIFO queue and dispatches them one at a
// time to the Executor. It is the only component that moves jobs between
// statuses; the executor only settles task counters and finalizes.
type QueueManager struct {
	jobs        store.JobStore
	groups      store.ModelGroupStore
	exec        *Executor
	metrics     *metrics.Metrics
	logger      *slog.Logger
	maxArticles int

	mu     sync.Mutex
	active map[uuid.UUID]*execution
	wake   chan struct{}
}

// NewQueueManager creates a QueueManager. maxArticles caps articleCount per
// job; values outside (0, domain.MaxArticleCount] fall back to the domain cap.
func NewQueueManager(
	jobs store.JobStore,
	groups store.ModelGroupStore,
	exec *Executor,
	m *metrics.Metrics,
	maxArticles int,
	logger *slog.Logger,
) *QueueManager {
	if logger == nil {
		logger = slog.Default()
	}
	if maxArticles <= 0 || maxArticles > domain.MaxArticleCount {
		maxArticles = domain.MaxArticleCount
	}
	return &QueueManager{
		jobs:        jobs,
		groups:      groups,
		exec:        exec,
		metrics:     m,
		logger:      logger.With("component", "queue_manager"),
		maxArticles: maxArticles,
		active:      make(map[uuid.UUID]*execution),
		wake:        make(chan struct{}, 1),
	}
}

// Submit validates and enqueues a new job. The queue position is one past the
// number of jobs already waiting.
func (q *QueueManager) Submit(
	ctx context.Context,
	ownerID uuid.UUID,
	mode domain.GenerationMode,
	articleCount int,
	modelGroupID uuid.UUID,
	params domain.JobParams,
) (*domain.GenerationJob, error) {
	if modelGroupID != uuid.Nil {
		group, err := q.groups.GetByID(ctx, modelGroupID)
		if err != nil {
			return nil, err
		}
		if !group.IsActive {
			return nil, fmt.Errorf("%w: model group %q is inactive", domain.ErrValidation, group.Name)
		}
	}

	job, err := domain.NewGenerationJob(ownerID, mode, articleCount, modelGroupID, params, q.maxArticles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// Position assignment and insert run under the manager lock so
	// concurrent submissions get distinct, increasing positions.
	q.mu.Lock()
	queued, err := q.jobs.CountQueued(ctx)
	if err != nil {
		q.mu.Unlock()
		return nil, err
	}
	job.QueuePosition = queued + 1
	if err := q.jobs.Create(ctx, job); err != nil {
		q.mu.Unlock()
		return nil, err
	}
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.JobsSubmitted.Inc()
		q.metrics.QueueDepth.Set(float64(queued + 1))
	}
	q.logger.InfoContext(ctx, "job submitted",
		"job_id", job.ID, "owner_id", job.OwnerID,
		"mode", job.Mode, "article_count", job.ArticleCount,
		"queue_position", job.QueuePosition)

	q.nudge()
	return job, nil
}

// Get returns the owner's job. Jobs belonging to other owners are reported as
// not found so ownership cannot be probed.
func (q *QueueManager) Get(ctx context.Context, ownerID, jobID uuid.UUID) (*domain.GenerationJob, error) {
	job, err := q.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, store.ErrJobNotFound
	}
	return job, nil
}

// List returns the owner's jobs, newest first, optionally filtered by status.
func (q *QueueManager) List(
	ctx context.Context,
	ownerID uuid.UUID,
	status *domain.JobStatus,
) ([]*domain.GenerationJob, error) {
	return q.jobs.List(ctx, ownerID, status)
}

// Cancel cancels the owner's job. Queued jobs are cancelled immediately;
// processing jobs get their cancellation flag raised and finalize as
// cancelled once in-flight tasks drain. Terminal jobs return
// ErrInvalidTransition.
func (q *QueueManager) Cancel(ctx context.Context, ownerID, jobID uuid.UUID) (*domain.GenerationJob, error) {
	job, err := q.Get(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case domain.JobStatusQueued:
		if err := job.TransitionTo(domain.JobStatusCancelled); err != nil {
			return nil, err
		}
		job.Message = "Job cancelled"
		if err := q.jobs.Update(ctx, job); err != nil {
			return nil, err
		}
		if q.metrics != nil {
			q.metrics.JobsFinished.WithLabelValues(string(domain.JobStatusCancelled)).Inc()
		}
		if err := q.resequence(ctx); err != nil {
			q.logger.WarnContext(ctx, "failed to resequence queue after cancel",
				"error", redact.Error(err))
		}
		q.logger.InfoContext(ctx, "queued job cancelled", "job_id", job.ID)
		return job, nil

	case domain.JobStatusProcessing:
		q.mu.Lock()
		exec, live := q.active[job.ID]
		q.mu.Unlock()

		if !live {
			// Orphaned by a crash; no executor will ever see the flag, so
			// cancel directly before the stuck sweep requeues the job.
			if err := job.TransitionTo(domain.JobStatusCancelled); err != nil {
				return nil, err
			}
			job.Message = "Job cancelled"
			if err := q.jobs.Update(ctx, job); err != nil {
				return nil, err
			}
			if q.metrics != nil {
				q.metrics.JobsFinished.WithLabelValues(string(domain.JobStatusCancelled)).Inc()
			}
			q.logger.InfoContext(ctx, "orphaned processing job cancelled", "job_id", job.ID)
			return job, nil
		}

		exec.cancelled.Store(true)
		// The executor owns the job row while it is processing. Writing the
		// snapshot read above would race its counter updates, so only the
		// message is persisted here.
		job.Message = "Cancellation requested"
		if err := q.jobs.UpdateMessage(ctx, job.ID, job.Message); err != nil {
			return nil, err
		}
		q.logger.InfoContext(ctx, "cancellation requested for processing job", "job_id", job.ID)
		return job, nil

	default:
		return nil, fmt.Errorf("%w: job is already %s", domain.ErrInvalidTransition, job.Status)
	}
}

// Run is the dispatcher loop. It pulls the oldest queued job, processes it to
// a terminal status, and repeats; strict job-level FIFO, one job at a time.
// It blocks until ctx is cancelled.
func (q *QueueManager) Run(ctx context.Context) error {
	q.logger.InfoContext(ctx, "dispatcher started")

	if err := q.RecoverStuck(ctx); err != nil {
		q.logger.WarnContext(ctx, "stuck job recovery failed", "error", redact.Error(err))
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		dispatched, err := q.dispatchNext(ctx)
		if err != nil && !errors.Is(err, store.ErrJobNotFound) {
			q.logger.ErrorContext(ctx, "dispatch failed", "error", redact.Error(err))
		}
		if dispatched && ctx.Err() == nil {
			continue
		}

		select {
		case <-ctx.Done():
			q.logger.InfoContext(ctx, "dispatcher stopped")
			return ctx.Err()
		case <-q.wake:
		case <-ticker.C:
		}
	}
}

// dispatchNext processes the oldest queued job, if any. Returns true when a
// job was processed.
func (q *QueueManager) dispatchNext(ctx context.Context) (bool, error) {
	job, err := q.jobs.NextQueued(ctx)
	if err != nil {
		return false, err
	}

	if err := job.TransitionTo(domain.JobStatusProcessing); err != nil {
		return false, err
	}
	job.Message = "Generating articles"
	if err := q.jobs.Update(ctx, job); err != nil {
		return false, err
	}
	if err := q.resequence(ctx); err != nil {
		q.logger.WarnContext(ctx, "failed to resequence queue", "error", redact.Error(err))
	}

	exec := &execution{}
	q.mu.Lock()
	q.active[job.ID] = exec
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		delete(q.active, job.ID)
		q.mu.Unlock()
	}()

	q.logger.InfoContext(ctx, "job dispatched", "job_id", job.ID, "article_count", job.ArticleCount)
	q.exec.Execute(ctx, job, exec.cancelled.Load)
	return true, nil
}

// RecoverStuck requeues processing jobs that have no live execution. These
// are left over from a crash or an earlier process; their counters are kept,
// remaining tasks run when the job is dispatched again. Wired to a periodic
// sweep as well as startup.
func (q *QueueManager) RecoverStuck(ctx context.Context) error {
	jobs, err := q.jobs.ListByStatus(ctx, domain.JobStatusProcessing)
	if err != nil {
		return err
	}

	recovered := 0
	for _, job := range jobs {
		q.mu.Lock()
		_, live := q.active[job.ID]
		q.mu.Unlock()
		if live {
			continue
		}

		// Not a state-machine edge; this undoes a dispatch that never ran
		// to completion.
		job.Status = domain.JobStatusQueued
		job.StartedAt = nil
		job.Message = "Requeued after interrupted processing"
		if err := q.jobs.Update(ctx, job); err != nil {
			q.logger.ErrorContext(ctx, "failed to requeue stuck job",
				"job_id", job.ID, "error", redact.Error(err))
			continue
		}
		recovered++
		q.logger.WarnContext(ctx, "requeued stuck job", "job_id", job.ID)
	}

	if recovered > 0 {
		if err := q.resequence(ctx); err != nil {
			return err
		}
		q.nudge()
	}
	return nil
}

// resequence renumbers queue positions 1..n over the queued jobs in creation
// order and refreshes the queue depth gauge.
func (q *QueueManager) resequence(ctx context.Context) error {
	queued, err := q.jobs.ListByStatus(ctx, domain.JobStatusQueued)
	if err != nil {
		return err
	}

	for i, job := range queued {
		want := i + 1
		if job.QueuePosition == want {
			continue
		}
		job.QueuePosition = want
		if err := q.jobs.Update(ctx, job); err != nil {
			return err
		}
	}

	if q.metrics != nil {
		q.metrics.QueueDepth.Set(float64(len(queued)))
	}
	return nil
}

// nudge wakes the dispatcher without blocking.
func (q *QueueManager) nudge() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
