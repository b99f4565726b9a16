package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/store"
)

// fakeGroupStore is an in-memory store.ModelGroupStore for service tests.
type fakeGroupStore struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*domain.ModelGroup
}

func newFakeGroupStore() *fakeGroupStore {
	return &fakeGroupStore{groups: make(map[uuid.UUID]*domain.ModelGroup)}
}

func (s *fakeGroupStore) Create(_ context.Context, group *domain.ModelGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.Name == group.Name {
			return store.ErrGroupNameExists
		}
	}
	copied := *group
	s.groups[group.ID] = &copied
	return nil
}

func (s *fakeGroupStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ModelGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, store.ErrModelGroupNotFound
	}
	copied := *g
	return &copied, nil
}

func (s *fakeGroupStore) GetByName(_ context.Context, name string) (*domain.ModelGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.Name == name {
			copied := *g
			return &copied, nil
		}
	}
	return nil, store.ErrModelGroupNotFound
}

func (s *fakeGroupStore) Update(_ context.Context, group *domain.ModelGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group.ID]; !ok {
		return store.ErrModelGroupNotFound
	}
	for id, g := range s.groups {
		if id != group.ID && g.Name == group.Name {
			return store.ErrGroupNameExists
		}
	}
	copied := *group
	s.groups[group.ID] = &copied
	return nil
}

func (s *fakeGroupStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return store.ErrModelGroupNotFound
	}
	delete(s.groups, id)
	return nil
}

func (s *fakeGroupStore) List(_ context.Context, activeOnly *bool) ([]*domain.ModelGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.ModelGroup
	for _, g := range s.groups {
		if activeOnly != nil && g.IsActive != *activeOnly {
			continue
		}
		copied := *g
		out = append(out, &copied)
	}
	return out, nil
}

func (s *fakeGroupStore) Upsert(_ context.Context, group *domain.ModelGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.groups[group.ID]; ok {
		copied := *group
		copied.CreatedAt = existing.CreatedAt
		s.groups[group.ID] = &copied
		return nil
	}
	for id, g := range s.groups {
		if g.Name == group.Name {
			copied := *group
			copied.ID = id
			copied.CreatedAt = g.CreatedAt
			s.groups[id] = &copied
			return nil
		}
	}
	copied := *group
	s.groups[group.ID] = &copied
	return nil
}

func (s *fakeGroupStore) WithTx(*sql.Tx) store.ModelGroupStore { return s }

func (s *fakeGroupStore) DB() *sql.DB { return nil }

// fakeConfigStore is an in-memory store.ConfigurationStore for service tests.
type fakeConfigStore struct {
	mu      sync.Mutex
	configs map[string]domain.Configuration
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{configs: make(map[string]domain.Configuration)}
}

func (s *fakeConfigStore) List(context.Context) ([]domain.Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Configuration, 0, len(s.configs))
	for _, c := range s.configs {
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeConfigStore) Upsert(_ context.Context, cfg domain.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.Name] = cfg
	return nil
}

func (s *fakeConfigStore) WithTx(*sql.Tx) store.ConfigurationStore { return s }
