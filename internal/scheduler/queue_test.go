package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/router"
	"github.com/vipplay/contentgen/internal/store"
)

func newTestQueue(t *testing.T, gen *fakeGenerator) (*QueueManager, *memJobStore, *memGroupStore) {
	t.Helper()
	group, err := domain.NewModelGroup("default", "",
		[]string{"ollama/llama3.1:8b"}, domain.StrategyRoundRobin, nil, true)
	require.NoError(t, err)

	jobs := newMemJobStore()
	groups := newMemGroupStore(group)
	r := router.New(groups, "default", nil)
	exec := NewExecutor(gen, r, jobs, nil, 5, time.Minute)
	return NewQueueManager(jobs, groups, exec, nil, 50, nil), jobs, groups
}

func submitTopic(t *testing.T, q *QueueManager, ownerID uuid.UUID, topic string) *domain.GenerationJob {
	t.Helper()
	job, err := q.Submit(context.Background(), ownerID, domain.ModeTopic, 1, uuid.Nil,
		domain.JobParams{Topics: []string{topic}})
	require.NoError(t, err)
	return job
}

func TestSubmitAssignsFIFOQueuePositions(t *testing.T) {
	q, _, _ := newTestQueue(t, &fakeGenerator{})
	ownerID := uuid.New()

	first := submitTopic(t, q, ownerID, "one")
	second := submitTopic(t, q, ownerID, "two")
	third := submitTopic(t, q, ownerID, "three")

	assert.Equal(t, 1, first.QueuePosition)
	assert.Equal(t, 2, second.QueuePosition)
	assert.Equal(t, 3, third.QueuePosition)
}

func TestSubmitRejectsInvalidJobs(t *testing.T) {
	q, _, groups := newTestQueue(t, &fakeGenerator{})
	ownerID := uuid.New()
	ctx := context.Background()

	_, err := q.Submit(ctx, ownerID, domain.ModeTopic, 0, uuid.Nil, domain.JobParams{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = q.Submit(ctx, ownerID, domain.ModeTopic, 51, uuid.Nil, domain.JobParams{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = q.Submit(ctx, ownerID, domain.ModeSpin, 1, uuid.Nil, domain.JobParams{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Unknown model group.
	_, err = q.Submit(ctx, ownerID, domain.ModeTopic, 1, uuid.New(), domain.JobParams{Topics: []string{"t"}})
	assert.ErrorIs(t, err, store.ErrModelGroupNotFound)

	// Inactive model group.
	inactive, err := domain.NewModelGroup("off", "", []string{"m"}, domain.StrategyRoundRobin, nil, false)
	require.NoError(t, err)
	require.NoError(t, groups.Create(ctx, inactive))
	_, err = q.Submit(ctx, ownerID, domain.ModeTopic, 1, inactive.ID, domain.JobParams{Topics: []string{"t"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetHidesForeignJobs(t *testing.T) {
	q, _, _ := newTestQueue(t, &fakeGenerator{})
	ownerID := uuid.New()
	job := submitTopic(t, q, ownerID, "mine")

	got, err := q.Get(context.Background(), ownerID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = q.Get(context.Background(), uuid.New(), job.ID)
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}

func TestCancelQueuedJob(t *testing.T) {
	q, jobs, _ := newTestQueue(t, &fakeGenerator{})
	ownerID := uuid.New()
	first := submitTopic(t, q, ownerID, "one")
	second := submitTopic(t, q, ownerID, "two")

	cancelled, err := q.Cancel(context.Background(), ownerID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CompletedAt)

	// The remaining queued job moves up.
	stored, err := jobs.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.QueuePosition)
}

func TestSubmitConcurrentlyAssignsDistinctPositions(t *testing.T) {
	q, _, _ := newTestQueue(t, &fakeGenerator{})
	ownerID := uuid.New()

	const n = 10
	positions := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := q.Submit(context.Background(), ownerID, domain.ModeTopic, 1, uuid.Nil,
				domain.JobParams{Topics: []string{"t"}})
			if err == nil {
				positions <- job.QueuePosition
			}
		}()
	}
	wg.Wait()
	close(positions)

	seen := make(map[int]bool)
	for pos := range positions {
		assert.False(t, seen[pos], "queue position %d assigned twice", pos)
		seen[pos] = true
	}
	require.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		assert.True(t, seen[i], "missing queue position %d", i)
	}
}

func TestCancelProcessingPersistsOnlyMessage(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	mem := newMemJobStore()
	job, err := domain.NewGenerationJob(ownerID, domain.ModeTopic, 4, uuid.Nil,
		domain.JobParams{Topics: []string{"t"}}, 50)
	require.NoError(t, err)
	require.NoError(t, mem.Create(ctx, job))
	require.NoError(t, job.TransitionTo(domain.JobStatusProcessing))
	require.NoError(t, mem.Update(ctx, job))

	// Snapshot before any task settles; Cancel will read this stale copy.
	stale := *job

	// Meanwhile the executor settles two of four tasks.
	require.NoError(t, job.RecordTaskOutcome(true, ""))
	require.NoError(t, job.RecordTaskOutcome(true, ""))
	require.NoError(t, mem.Update(ctx, job))

	jobs := &staleReadJobStore{memJobStore: mem, stale: stale}
	q := NewQueueManager(jobs, newMemGroupStore(), nil, nil, 50, nil)
	exec := &execution{}
	q.active[job.ID] = exec

	got, err := q.Cancel(ctx, ownerID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cancellation requested", got.Message)
	assert.True(t, exec.cancelled.Load())

	// The executor's counters survive; only the message changed.
	stored, err := mem.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, stored.Status)
	assert.Equal(t, 2, stored.CompletedCount)
	assert.Equal(t, 50, stored.Progress)
	assert.Equal(t, "Cancellation requested", stored.Message)
}

func TestCancelOrphanedProcessingJob(t *testing.T) {
	q, jobs, _ := newTestQueue(t, &fakeGenerator{})
	ctx := context.Background()
	ownerID := uuid.New()

	job, err := domain.NewGenerationJob(ownerID, domain.ModeTopic, 2, uuid.Nil,
		domain.JobParams{Topics: []string{"orphan"}}, 50)
	require.NoError(t, err)
	require.NoError(t, jobs.Create(ctx, job))
	require.NoError(t, job.TransitionTo(domain.JobStatusProcessing))
	require.NoError(t, jobs.Update(ctx, job))

	// No live execution owns the job, so the cancel lands immediately.
	cancelled, err := q.Cancel(ctx, ownerID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CompletedAt)

	// The stuck sweep must not resurrect it.
	require.NoError(t, q.RecoverStuck(ctx))
	stored, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, stored.Status)
}

func TestCancelTerminalJobConflicts(t *testing.T) {
	q, jobs, _ := newTestQueue(t, &fakeGenerator{})
	ownerID := uuid.New()
	job := submitTopic(t, q, ownerID, "done")

	stored, err := jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.NoError(t, stored.TransitionTo(domain.JobStatusProcessing))
	require.NoError(t, stored.TransitionTo(domain.JobStatusCompleted))
	require.NoError(t, jobs.Update(context.Background(), stored))

	_, err = q.Cancel(context.Background(), ownerID, job.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCancelForeignJobNotFound(t *testing.T) {
	q, _, _ := newTestQueue(t, &fakeGenerator{})
	job := submitTopic(t, q, uuid.New(), "mine")

	_, err := q.Cancel(context.Background(), uuid.New(), job.ID)
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}

func TestDispatcherProcessesJobsInSubmitOrder(t *testing.T) {
	gen := &fakeGenerator{}
	q, jobs, _ := newTestQueue(t, gen)
	ownerID := uuid.New()

	first := submitTopic(t, q, ownerID, "first")
	second := submitTopic(t, q, ownerID, "second")
	third := submitTopic(t, q, ownerID, "third")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, id := range []uuid.UUID{first.ID, second.ID, third.ID} {
			job, err := jobs.GetByID(context.Background(), id)
			if err != nil || !job.IsTerminal() {
				return false
			}
		}
		return true
	}, 5*time.Second, 5*time.Millisecond)

	gen.mu.Lock()
	defer gen.mu.Unlock()
	require.Len(t, gen.calls, 3)
	assert.Equal(t, []string{"first"}, gen.calls[0].Params.Topics)
	assert.Equal(t, []string{"second"}, gen.calls[1].Params.Topics)
	assert.Equal(t, []string{"third"}, gen.calls[2].Params.Topics)
}

func TestRecoverStuckRequeuesOrphanedProcessing(t *testing.T) {
	q, jobs, _ := newTestQueue(t, &fakeGenerator{})
	ctx := context.Background()

	job, err := domain.NewGenerationJob(uuid.New(), domain.ModeTopic, 2, uuid.Nil,
		domain.JobParams{Topics: []string{"orphan"}}, 50)
	require.NoError(t, err)
	require.NoError(t, jobs.Create(ctx, job))
	require.NoError(t, job.TransitionTo(domain.JobStatusProcessing))
	require.NoError(t, jobs.Update(ctx, job))

	require.NoError(t, q.RecoverStuck(ctx))

	stored, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, stored.Status)
	assert.Nil(t, stored.StartedAt)
	assert.Equal(t, 1, stored.QueuePosition)
}
