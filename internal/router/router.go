// Package router selects a concrete model backend for each generation task
// by applying a model group's routing strategy.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/vipplay/contentgen/internal/domain"
)

// Common errors returned by the router.
var (
	// ErrGroupInactive is returned when the resolved group exists but is
	// disabled for routing.
	ErrGroupInactive = errors.New("model group is inactive")

	// ErrNoDefaultGroup is returned when a job carries no explicit group and
	// no default group is configured or present.
	ErrNoDefaultGroup = errors.New("no default model group configured")
)

// GroupReader is the subset of the model group store the router needs.
type GroupReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ModelGroup, error)
	GetByName(ctx context.Context, name string) (*domain.ModelGroup, error)
}

// Router resolves model groups to backend identifiers. Round-robin cursors
// are kept in process; positions restart from the beginning of the list when
// the process restarts or a group's model list changes length.
type Router struct {
	groups       GroupReader
	defaultGroup string
	logger       *slog.Logger

	mu      sync.Mutex
	cursors map[uuid.UUID]*cursor
}

type cursor struct {
	length int
	next   int
}

// New creates a Router. defaultGroup names the group used for jobs that do
// not specify one; it may be empty, in which case such jobs fail to resolve.
func New(groups GroupReader, defaultGroup string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		groups:       groups,
		defaultGroup: defaultGroup,
		logger:       logger.With("component", "router"),
		cursors:      make(map[uuid.UUID]*cursor),
	}
}

// Resolve picks one backend identifier from the given group according to its
// strategy. A nil groupID selects the configured default group.
func (r *Router) Resolve(ctx context.Context, groupID uuid.UUID) (string, error) {
	group, err := r.lookup(ctx, groupID)
	if err != nil {
		return "", err
	}
	if !group.IsActive {
		return "", fmt.Errorf("%w: %s", ErrGroupInactive, group.Name)
	}

	var backendID string
	switch group.Strategy {
	case domain.StrategyPriority:
		backendID = weightedPick(group.Models, group.Weights)
	default:
		backendID = r.roundRobinPick(group)
	}

	r.logger.DebugContext(ctx, "resolved backend",
		"group", group.Name, "strategy", group.Strategy, "backend", backendID)
	return backendID, nil
}

func (r *Router) lookup(ctx context.Context, groupID uuid.UUID) (*domain.ModelGroup, error) {
	if groupID != uuid.Nil {
		return r.groups.GetByID(ctx, groupID)
	}
	if r.defaultGroup == "" {
		return nil, ErrNoDefaultGroup
	}
	group, err := r.groups.GetByName(ctx, r.defaultGroup)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDefaultGroup, err)
	}
	return group, nil
}

// roundRobinPick advances the group's cursor and returns the model at the
// previous position. The cursor resets when the model list length changes,
// since positions into the old list are meaningless against the new one.
func (r *Router) roundRobinPick(group *domain.ModelGroup) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cursors[group.ID]
	if !ok || c.length != len(group.Models) {
		c = &cursor{length: len(group.Models)}
		r.cursors[group.ID] = c
	}

	model := group.Models[c.next]
	c.next = (c.next + 1) % c.length
	return model
}

// weightedPick draws one model with probability proportional to its weight.
func weightedPick(models []string, weights []int) string {
	total := 0
	for _, w := range weights {
		total += w
	}

	n := rand.IntN(total)
	for i, w := range weights {
		n -= w
		if n < 0 {
			return models[i]
		}
	}
	return models[len(models)-1]
}
