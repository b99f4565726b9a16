package router

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/store"
)

// fakeGroupReader serves groups from a map, keyed by ID and name.
type fakeGroupReader struct {
	byID   map[uuid.UUID]*domain.ModelGroup
	byName map[string]*domain.ModelGroup
}

func newFakeGroupReader(groups ...*domain.ModelGroup) *fakeGroupReader {
	f := &fakeGroupReader{
		byID:   make(map[uuid.UUID]*domain.ModelGroup),
		byName: make(map[string]*domain.ModelGroup),
	}
	for _, g := range groups {
		f.byID[g.ID] = g
		f.byName[g.Name] = g
	}
	return f
}

func (f *fakeGroupReader) GetByID(_ context.Context, id uuid.UUID) (*domain.ModelGroup, error) {
	g, ok := f.byID[id]
	if !ok {
		return nil, store.ErrModelGroupNotFound
	}
	return g, nil
}

func (f *fakeGroupReader) GetByName(_ context.Context, name string) (*domain.ModelGroup, error) {
	g, ok := f.byName[name]
	if !ok {
		return nil, store.ErrModelGroupNotFound
	}
	return g, nil
}

func mustGroup(t *testing.T, name string, models []string, strategy domain.RoutingStrategy, weights []int) *domain.ModelGroup {
	t.Helper()
	g, err := domain.NewModelGroup(name, "", models, strategy, weights, true)
	require.NoError(t, err)
	return g
}

func TestResolveRoundRobinOrder(t *testing.T) {
	group := mustGroup(t, "rr", []string{"a", "b", "c"}, domain.StrategyRoundRobin, nil)
	r := New(newFakeGroupReader(group), "", nil)

	var got []string
	for i := 0; i < 6; i++ {
		backend, err := r.Resolve(context.Background(), group.ID)
		require.NoError(t, err)
		got = append(got, backend)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, got)
}

func TestResolveRoundRobinCursorResetOnLengthChange(t *testing.T) {
	group := mustGroup(t, "rr", []string{"a", "b", "c"}, domain.StrategyRoundRobin, nil)
	r := New(newFakeGroupReader(group), "", nil)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := r.Resolve(ctx, group.ID)
		require.NoError(t, err)
	}

	// Shrinking the model list invalidates positions into the old list.
	group.Models = []string{"x", "y"}
	backend, err := r.Resolve(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", backend)
}

func TestResolvePriorityWeighting(t *testing.T) {
	group := mustGroup(t, "prio", []string{"big", "small"}, domain.StrategyPriority, []int{70, 30})
	r := New(newFakeGroupReader(group), "", nil)

	const draws = 10000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		backend, err := r.Resolve(context.Background(), group.ID)
		require.NoError(t, err)
		counts[backend]++
	}

	bigShare := float64(counts["big"]) / draws
	assert.InDelta(t, 0.70, bigShare, 0.05)
	assert.Equal(t, draws, counts["big"]+counts["small"])
}

func TestResolveInactiveGroup(t *testing.T) {
	group := mustGroup(t, "off", []string{"a"}, domain.StrategyRoundRobin, nil)
	group.IsActive = false
	r := New(newFakeGroupReader(group), "", nil)

	_, err := r.Resolve(context.Background(), group.ID)
	assert.ErrorIs(t, err, ErrGroupInactive)
}

func TestResolveUnknownGroup(t *testing.T) {
	r := New(newFakeGroupReader(), "", nil)

	_, err := r.Resolve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrModelGroupNotFound)
}

func TestResolveDefaultGroup(t *testing.T) {
	group := mustGroup(t, "default", []string{"a"}, domain.StrategyRoundRobin, nil)
	r := New(newFakeGroupReader(group), "default", nil)

	backend, err := r.Resolve(context.Background(), uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, "a", backend)
}

func TestResolveNoDefaultConfigured(t *testing.T) {
	r := New(newFakeGroupReader(), "", nil)

	_, err := r.Resolve(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrNoDefaultGroup)
}

func TestResolveDefaultGroupMissing(t *testing.T) {
	r := New(newFakeGroupReader(), "default", nil)

	_, err := r.Resolve(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrNoDefaultGroup)
}
