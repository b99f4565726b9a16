// Package service implements the application services sitting between the
// HTTP handlers and the stores.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/store"
)

// ModelGroupService owns the model group registry: CRUD over named groups of
// interchangeable backends.
type ModelGroupService struct {
	groups store.ModelGroupStore
	logger *slog.Logger
}

// NewModelGroupService creates a ModelGroupService.
func NewModelGroupService(groups store.ModelGroupStore, logger *slog.Logger) *ModelGroupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelGroupService{
		groups: groups,
		logger: logger.With("component", "model_group_service"),
	}
}

// Create registers a new model group. A name collision returns
// store.ErrGroupNameExists.
func (s *ModelGroupService) Create(
	ctx context.Context,
	name, description string,
	models []string,
	strategy domain.RoutingStrategy,
	weights []int,
	isActive bool,
) (*domain.ModelGroup, error) {
	group, err := domain.NewModelGroup(name, description, models, strategy, weights, isActive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "model group created",
		"group_id", group.ID, "name", group.Name, "strategy", group.Strategy)
	return group, nil
}

// Get returns a group by ID.
func (s *ModelGroupService) Get(ctx context.Context, id uuid.UUID) (*domain.ModelGroup, error) {
	return s.groups.GetByID(ctx, id)
}

// List returns all groups, optionally filtered by active flag.
func (s *ModelGroupService) List(ctx context.Context, activeOnly *bool) ([]*domain.ModelGroup, error) {
	return s.groups.List(ctx, activeOnly)
}

// Update applies a partial update to a group and persists it.
func (s *ModelGroupService) Update(
	ctx context.Context,
	id uuid.UUID,
	patch domain.ModelGroupPatch,
) (*domain.ModelGroup, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := group.Apply(patch); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.groups.Update(ctx, group); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "model group updated", "group_id", group.ID, "name", group.Name)
	return group, nil
}

// Delete removes a group.
func (s *ModelGroupService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.groups.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "model group deleted", "group_id", id)
	return nil
}
