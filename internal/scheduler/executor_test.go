package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/router"
)

func testRouterAndGroup(t *testing.T) (*router.Router, *domain.ModelGroup) {
	t.Helper()
	group, err := domain.NewModelGroup("default", "",
		[]string{"ollama/llama3.1:8b"}, domain.StrategyRoundRobin, nil, true)
	require.NoError(t, err)
	return router.New(newMemGroupStore(group), "default", nil), group
}

func processingJob(t *testing.T, jobs *memJobStore, articleCount int) *domain.GenerationJob {
	t.Helper()
	job, err := domain.NewGenerationJob(uuid.New(), domain.ModeTopic, articleCount, uuid.Nil,
		domain.JobParams{Topics: []string{"wind power"}}, 50)
	require.NoError(t, err)
	require.NoError(t, jobs.Create(context.Background(), job))
	require.NoError(t, job.TransitionTo(domain.JobStatusProcessing))
	require.NoError(t, jobs.Update(context.Background(), job))
	return job
}

func never() bool { return false }

func TestExecutePartialSuccess(t *testing.T) {
	jobs := newMemJobStore()
	r, _ := testRouterAndGroup(t)
	gen := &fakeGenerator{failIndex: func(i int) bool { return i%3 == 0 }} // fails 0,3,6,9

	exec := NewExecutor(gen, r, jobs, nil, 5, time.Minute)
	job := processingJob(t, jobs, 10)

	final := exec.Execute(context.Background(), job, never)

	assert.Equal(t, domain.JobStatusCompleted, final)
	assert.Equal(t, 6, job.CompletedCount)
	assert.Equal(t, 4, job.FailedCount)
	assert.Equal(t, 100, job.Progress)
	assert.NotEmpty(t, job.Error)

	stored, err := jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
}

func TestExecuteAllTasksFail(t *testing.T) {
	jobs := newMemJobStore()
	r, _ := testRouterAndGroup(t)
	gen := &fakeGenerator{failIndex: func(int) bool { return true }}

	exec := NewExecutor(gen, r, jobs, nil, 5, time.Minute)
	job := processingJob(t, jobs, 3)

	final := exec.Execute(context.Background(), job, never)

	assert.Equal(t, domain.JobStatusFailed, final)
	assert.Equal(t, 0, job.CompletedCount)
	assert.Equal(t, 3, job.FailedCount)
	assert.Equal(t, 100, job.Progress)
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	jobs := newMemJobStore()
	r, _ := testRouterAndGroup(t)

	block := make(chan struct{})
	var started atomic.Int32
	gen := &fakeGenerator{
		block:  block,
		onCall: func() { started.Add(1) },
	}

	exec := NewExecutor(gen, r, jobs, nil, 2, time.Minute)
	job := processingJob(t, jobs, 6)

	done := make(chan struct{})
	go func() {
		exec.Execute(context.Background(), job, never)
		close(done)
	}()

	// With a bound of 2, only two tasks can be in flight while all block.
	require.Eventually(t, func() bool { return started.Load() == 2 },
		time.Second, time.Millisecond)
	assert.Equal(t, int32(2), started.Load())

	close(block)
	<-done

	assert.Equal(t, 6, job.CompletedCount)
	assert.LessOrEqual(t, gen.maxInflight, 2)
}

func TestExecuteStartsNoTaskAfterCancellation(t *testing.T) {
	jobs := newMemJobStore()
	r, _ := testRouterAndGroup(t)

	var cancelled atomic.Bool
	block := make(chan struct{})
	var started atomic.Int32
	gen := &fakeGenerator{
		block:  block,
		onCall: func() { started.Add(1) },
	}

	exec := NewExecutor(gen, r, jobs, nil, 1, time.Minute)
	job := processingJob(t, jobs, 3)

	done := make(chan struct{})
	go func() {
		exec.Execute(context.Background(), job, cancelled.Load)
		close(done)
	}()

	// Task 0 is in flight and the loop waits on the semaphore when the flag
	// goes up; the slot freed by task 0 must not admit another task.
	require.Eventually(t, func() bool { return started.Load() == 1 },
		time.Second, time.Millisecond)
	cancelled.Store(true)
	close(block)
	<-done

	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, domain.JobStatusCancelled, job.Status)
	assert.Equal(t, 1, job.CompletedCount+job.FailedCount)
}

func TestExecuteCooperativeCancellation(t *testing.T) {
	jobs := newMemJobStore()
	r, _ := testRouterAndGroup(t)

	var cancelled atomic.Bool
	block := make(chan struct{})
	gen := &fakeGenerator{
		block: block,
		onCall: func() {
			// Raise the flag as soon as the first tasks are in flight.
			cancelled.Store(true)
		},
	}

	exec := NewExecutor(gen, r, jobs, nil, 2, time.Minute)
	job := processingJob(t, jobs, 10)

	done := make(chan struct{})
	go func() {
		exec.Execute(context.Background(), job, cancelled.Load)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	close(block)
	<-done

	assert.Equal(t, domain.JobStatusCancelled, job.Status)
	// In-flight tasks ran to completion; the rest never started.
	settled := job.CompletedCount + job.FailedCount
	assert.Equal(t, gen.callCount(), settled)
	assert.Less(t, settled, 10)
	assert.Less(t, job.Progress, 100)
}
