package scheduler

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/generation"
	"github.com/vipplay/contentgen/internal/store"
)

// memJobStore is an in-memory store.JobStore for tests.
type memJobStore struct {
	mu   sync.Mutex
	seq  int
	jobs map[uuid.UUID]*jobRecord
}

type jobRecord struct {
	seq int
	job domain.GenerationJob
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[uuid.UUID]*jobRecord)}
}

func (s *memJobStore) Create(_ context.Context, job *domain.GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.jobs[job.ID] = &jobRecord{seq: s.seq, job: *job}
	return nil
}

func (s *memJobStore) GetByID(_ context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	job := rec.job
	return &job, nil
}

func (s *memJobStore) Update(_ context.Context, job *domain.GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[job.ID]
	if !ok {
		return store.ErrJobNotFound
	}
	rec.job = *job
	return nil
}

func (s *memJobStore) UpdateMessage(_ context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	rec.job.Message = message
	return nil
}

func (s *memJobStore) List(_ context.Context, ownerID uuid.UUID, status *domain.JobStatus) ([]*domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.GenerationJob
	for _, rec := range s.sorted() {
		if rec.job.OwnerID != ownerID {
			continue
		}
		if status != nil && rec.job.Status != *status {
			continue
		}
		job := rec.job
		out = append(out, &job)
	}
	// Newest first for owner listings.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memJobStore) CountQueued(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, rec := range s.jobs {
		if rec.job.Status == domain.JobStatusQueued {
			count++
		}
	}
	return count, nil
}

func (s *memJobStore) NextQueued(_ context.Context) (*domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.sorted() {
		if rec.job.Status == domain.JobStatusQueued {
			job := rec.job
			return &job, nil
		}
	}
	return nil, store.ErrJobNotFound
}

func (s *memJobStore) ListByStatus(_ context.Context, status domain.JobStatus) ([]*domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.GenerationJob
	for _, rec := range s.sorted() {
		if rec.job.Status == status {
			job := rec.job
			out = append(out, &job)
		}
	}
	return out, nil
}

func (s *memJobStore) WithTx(*sql.Tx) store.JobStore { return s }

// sorted returns records oldest first. Callers hold the lock.
func (s *memJobStore) sorted() []*jobRecord {
	recs := make([]*jobRecord, 0, len(s.jobs))
	for _, rec := range s.jobs {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	return recs
}

// staleReadJobStore serves a fixed earlier snapshot from GetByID while
// delegating writes, modelling a reader racing the executor's settles.
type staleReadJobStore struct {
	*memJobStore
	stale domain.GenerationJob
}

func (s *staleReadJobStore) GetByID(context.Context, uuid.UUID) (*domain.GenerationJob, error) {
	job := s.stale
	return &job, nil
}

// memGroupStore is an in-memory store.ModelGroupStore for tests.
type memGroupStore struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*domain.ModelGroup
}

func newMemGroupStore(groups ...*domain.ModelGroup) *memGroupStore {
	s := &memGroupStore{groups: make(map[uuid.UUID]*domain.ModelGroup)}
	for _, g := range groups {
		s.groups[g.ID] = g
	}
	return s
}

func (s *memGroupStore) Create(_ context.Context, group *domain.ModelGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.Name == group.Name {
			return store.ErrGroupNameExists
		}
	}
	s.groups[group.ID] = group
	return nil
}

func (s *memGroupStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ModelGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, store.ErrModelGroupNotFound
	}
	return g, nil
}

func (s *memGroupStore) GetByName(_ context.Context, name string) (*domain.ModelGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.Name == name {
			return g, nil
		}
	}
	return nil, store.ErrModelGroupNotFound
}

func (s *memGroupStore) Update(_ context.Context, group *domain.ModelGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group.ID]; !ok {
		return store.ErrModelGroupNotFound
	}
	s.groups[group.ID] = group
	return nil
}

func (s *memGroupStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return store.ErrModelGroupNotFound
	}
	delete(s.groups, id)
	return nil
}

func (s *memGroupStore) List(_ context.Context, activeOnly *bool) ([]*domain.ModelGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.ModelGroup
	for _, g := range s.groups {
		if activeOnly != nil && g.IsActive != *activeOnly {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *memGroupStore) Upsert(_ context.Context, group *domain.ModelGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.ID] = group
	return nil
}

func (s *memGroupStore) WithTx(*sql.Tx) store.ModelGroupStore { return s }

func (s *memGroupStore) DB() *sql.DB { return nil }

// fakeGenerator produces canned results and tracks call order and peak
// concurrency.
type fakeGenerator struct {
	mu          sync.Mutex
	calls       []generation.Request
	inflight    int
	maxInflight int

	failIndex func(index int) bool
	onCall    func()
	block     chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context, backendID string, req generation.Request) (*generation.Result, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.inflight++
	if g.inflight > g.maxInflight {
		g.maxInflight = g.inflight
	}
	onCall := g.onCall
	g.mu.Unlock()

	if onCall != nil {
		onCall()
	}
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
		}
	}

	g.mu.Lock()
	g.inflight--
	fail := g.failIndex != nil && g.failIndex(req.Index)
	g.mu.Unlock()

	if fail {
		return nil, generation.ErrGenerationFailed
	}
	return &generation.Result{Content: "article body", Backend: backendID}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
