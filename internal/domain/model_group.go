package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RoutingStrategy selects how the router picks a backend within a group.
type RoutingStrategy string

// Recognized routing strategies.
const (
	// StrategyRoundRobin rotates evenly across the group's backends.
	StrategyRoundRobin RoutingStrategy = "round-robin"

	// StrategyPriority draws a backend at random, weighted by the group's
	// configured weights.
	StrategyPriority RoutingStrategy = "priority"
)

// Common validation errors for ModelGroup.
var (
	ErrEmptyGroupID       = errors.New("model group ID cannot be empty")
	ErrEmptyGroupName     = errors.New("model group name cannot be empty")
	ErrEmptyModels        = errors.New("model group must list at least one backend")
	ErrUnknownStrategy    = errors.New("unknown routing strategy")
	ErrWeightsMismatch    = errors.New("weights must parallel the models list")
	ErrNonPositiveWeight  = errors.New("weights must be positive")
	ErrWeightsNotRequired = errors.New("weights are only valid with the priority strategy")
)

// ModelGroup is a named collection of interchangeable model backends sharing
// one routing strategy. The group's data is read-only during routing; the
// round-robin cursor lives in the router, not here.
type ModelGroup struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Models      []string        `json:"models"`
	Strategy    RoutingStrategy `json:"strategy"`
	Weights     []int           `json:"weights,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewModelGroup creates a model group and validates it.
func NewModelGroup(
	name, description string,
	models []string,
	strategy RoutingStrategy,
	weights []int,
	isActive bool,
) (*ModelGroup, error) {
	now := time.Now().UTC()
	group := &ModelGroup{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Models:      models,
		Strategy:    strategy,
		Weights:     weights,
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := group.Validate(); err != nil {
		return nil, err
	}
	return group, nil
}

// Validate checks the group's invariants: a non-empty model list, a known
// strategy, and weights that parallel the models with all values positive
// when the strategy is priority.
func (g *ModelGroup) Validate() error {
	if g.ID == uuid.Nil {
		return ErrEmptyGroupID
	}
	if g.Name == "" {
		return ErrEmptyGroupName
	}
	if len(g.Models) == 0 {
		return ErrEmptyModels
	}

	switch g.Strategy {
	case StrategyRoundRobin:
		if len(g.Weights) != 0 {
			return ErrWeightsNotRequired
		}
	case StrategyPriority:
		if len(g.Weights) != len(g.Models) {
			return ErrWeightsMismatch
		}
		for _, w := range g.Weights {
			if w <= 0 {
				return ErrNonPositiveWeight
			}
		}
	default:
		return ErrUnknownStrategy
	}

	return nil
}

// ModelGroupPatch carries a partial update for a model group. Nil fields are
// left unchanged.
type ModelGroupPatch struct {
	Name        *string
	Description *string
	Models      []string
	Strategy    *RoutingStrategy
	Weights     []int
	IsActive    *bool
}

// Apply merges the patch into the group and revalidates. UpdatedAt is bumped
// only when the patch validates.
func (g *ModelGroup) Apply(patch ModelGroupPatch) error {
	updated := *g
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Models != nil {
		updated.Models = patch.Models
	}
	if patch.Strategy != nil {
		updated.Strategy = *patch.Strategy
	}
	if patch.Weights != nil {
		updated.Weights = patch.Weights
	}
	if patch.IsActive != nil {
		updated.IsActive = *patch.IsActive
	}
	// Switching to round-robin drops weights rather than failing validation.
	if updated.Strategy == StrategyRoundRobin && patch.Weights == nil {
		updated.Weights = nil
	}

	if err := updated.Validate(); err != nil {
		return err
	}

	updated.UpdatedAt = time.Now().UTC()
	*g = updated
	return nil
}
