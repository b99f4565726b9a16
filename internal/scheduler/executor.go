package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/generation"
	"github.com/vipplay/contentgen/internal/platform/logger"
	"github.com/vipplay/contentgen/internal/platform/metrics"
	"github.com/vipplay/contentgen/internal/redact"
	"github.com/vipplay/contentgen/internal/router"
	"github.com/vipplay/contentgen/internal/store"
)

// Executor runs the generation tasks of a single job. A job with N articles
// expands into N independent tasks, at most `concurrency` in flight at once,
// each bounded by `taskTimeout`. Counter updates and persistence are
// serialized through a per-execution mutex; only the executor writes a job
// row while the job is processing.
type Executor struct {
	generator   generation.Generator
	router      *router.Router
	jobs        store.JobStore
	metrics     *metrics.Metrics
	concurrency int
	taskTimeout time.Duration
}

// NewExecutor creates an Executor. Zero or negative concurrency and timeout
// fall back to the defaults (5 tasks, 120s).
func NewExecutor(
	generator generation.Generator,
	r *router.Router,
	jobs store.JobStore,
	m *metrics.Metrics,
	concurrency int,
	taskTimeout time.Duration,
) *Executor {
	if concurrency <= 0 {
		concurrency = 5
	}
	if taskTimeout <= 0 {
		taskTimeout = 120 * time.Second
	}
	return &Executor{
		generator:   generator,
		router:      r,
		jobs:        jobs,
		metrics:     m,
		concurrency: concurrency,
		taskTimeout: taskTimeout,
	}
}

// Execute runs all tasks of the job and drives it to a terminal status. The
// job must already be in processing. cancelled is polled before each task
// start; once it reports true no further tasks begin, in-flight tasks run to
// completion, and the job finalizes as cancelled.
func (e *Executor) Execute(
	ctx context.Context,
	job *domain.GenerationJob,
	cancelled func() bool,
) domain.JobStatus {
	log := logger.FromContext(ctx).With("job_id", job.ID, "mode", job.Mode)

	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < job.ArticleCount; i++ {
		if cancelled() || ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		// Re-check with the slot held: cancellation may have been requested
		// while this iteration was blocked on the semaphore.
		if cancelled() || ctx.Err() != nil {
			<-sem
			break
		}
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			defer func() { <-sem }()

			err := e.runTask(ctx, job, index)

			mu.Lock()
			defer mu.Unlock()
			e.settleTask(ctx, job, index, err, log)
		}(i)
	}

	wg.Wait()
	return e.finalize(ctx, job, cancelled(), log)
}

// runTask resolves a backend and generates one article under the task
// deadline. The content itself is not retained; only the outcome feeds the
// job's counters.
func (e *Executor) runTask(ctx context.Context, job *domain.GenerationJob, index int) error {
	taskCtx, cancel := context.WithTimeout(ctx, e.taskTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.TaskDuration.Observe(time.Since(start).Seconds())
		}
	}()

	backendID, err := e.router.Resolve(taskCtx, job.ModelGroupID)
	if err != nil {
		return err
	}

	_, err = e.generator.Generate(taskCtx, backendID, generation.Request{
		Mode:   job.Mode,
		Params: job.Params,
		Index:  index,
	})
	return err
}

// settleTask folds one task outcome into the job and persists the updated
// counters. Caller holds the execution mutex.
func (e *Executor) settleTask(
	ctx context.Context,
	job *domain.GenerationJob,
	index int,
	taskErr error,
	log *slog.Logger,
) {
	outcome := "completed"
	errMsg := ""
	if taskErr != nil {
		outcome = "failed"
		errMsg = redact.Error(taskErr)
		log.WarnContext(ctx, "generation task failed", "task_index", index, "error", errMsg)
	}

	if err := job.RecordTaskOutcome(taskErr == nil, errMsg); err != nil {
		log.ErrorContext(ctx, "failed to record task outcome", "task_index", index, "error", err)
		return
	}
	if e.metrics != nil {
		e.metrics.TasksSettled.WithLabelValues(outcome).Inc()
	}

	if err := e.jobs.Update(ctx, job); err != nil {
		log.ErrorContext(ctx, "failed to persist task progress", "error", redact.Error(err))
	}
}

// finalize drives the job to its terminal status. Cancellation wins over the
// partial-success rule; otherwise any completed task makes the job completed
// and only a total wipeout makes it failed.
func (e *Executor) finalize(
	ctx context.Context,
	job *domain.GenerationJob,
	wasCancelled bool,
	log *slog.Logger,
) domain.JobStatus {
	var final domain.JobStatus
	switch {
	case wasCancelled:
		final = domain.JobStatusCancelled
		job.Message = "Job cancelled"
	case job.CompletedCount > 0:
		final = domain.JobStatusCompleted
		job.Message = completionMessage(job)
	default:
		final = domain.JobStatusFailed
		job.Message = "All generation tasks failed"
	}

	if err := job.TransitionTo(final); err != nil {
		log.ErrorContext(ctx, "invalid final transition", "target", final, "error", err)
		return job.Status
	}
	if err := e.jobs.Update(ctx, job); err != nil {
		log.ErrorContext(ctx, "failed to persist final job status", "error", redact.Error(err))
	}
	if e.metrics != nil {
		e.metrics.JobsFinished.WithLabelValues(string(final)).Inc()
	}

	log.InfoContext(ctx, "job finished",
		"status", final,
		"completed", job.CompletedCount,
		"failed", job.FailedCount)
	return final
}

func completionMessage(job *domain.GenerationJob) string {
	if job.FailedCount == 0 {
		return "All articles generated"
	}
	return "Completed with partial failures"
}
