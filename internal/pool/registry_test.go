package pool

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeResolver struct {
	factories map[string]*fakeFactory
	resolved  map[string]int
	unloaded  []string
	events    []string // "new a", "destroy b", in call order
}

func newFakeResolver(names ...string) *fakeResolver {
	r := &fakeResolver{
		factories: make(map[string]*fakeFactory),
		resolved:  make(map[string]int),
	}
	for _, n := range names {
		f := newFakeFactory()
		f.name = n
		f.events = &r.events
		r.factories[n] = f
	}
	return r
}

func (r *fakeResolver) Resolve(name, _ string) (Factory, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("no prototype named %q", name)
	}
	r.resolved[name]++
	return f, nil
}

func (r *fakeResolver) Unload(name string) {
	r.unloaded = append(r.unloaded, name)
}

func newTestRegistry(t *testing.T, d Defaults, names ...string) (*Registry, *fakeResolver) {
	t.Helper()
	res := newFakeResolver(names...)
	return NewRegistry(res, d, zaptest.NewLogger(t)), res
}

func TestRegistry_InternIsStable(t *testing.T) {
	r, _ := newTestRegistry(t, Defaults{})
	a := r.Intern("wolf")
	b := r.Intern("bat")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, r.Intern("wolf"))
	k, ok := r.KeyOf("bat")
	assert.True(t, ok)
	assert.Equal(t, b, k)
	assert.Equal(t, "wolf", r.NameOf(a))
	_, ok = r.KeyOf("ghost")
	assert.False(t, ok)
}

func TestRegistry_RequestKeepsMaxSize(t *testing.T) {
	// Scenario B
	r, _ := newTestRegistry(t, Defaults{}, "X")
	h1 := r.RequestPool("X", "mobs/x", 5)
	h2 := r.RequestPool("X", "mobs/x", 8)
	assert.Same(t, h1, h2)
	assert.False(t, h1.Ready())

	_, err := h1.Acquire(true)
	assert.ErrorIs(t, err, ErrNotBuilt)

	require.NoError(t, r.Build())
	assert.True(t, h1.Ready())
	assert.Equal(t, 8, h1.Size())

	r.RequestPool("X", "mobs/x", 3)
	require.NoError(t, r.Build())
	assert.Equal(t, 8, h1.Size())
}

func TestRegistry_UnresolvedPrototype(t *testing.T) {
	r, _ := newTestRegistry(t, Defaults{}, "wolf")
	h := r.RequestPool("ghost", "mobs/ghost", 4)
	r.RequestPool("wolf", "mobs/wolf", 2)

	err := r.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.True(t, r.ContainsPool("ghost"))

	_, err = h.Acquire(true)
	assert.ErrorIs(t, err, ErrUnresolved)

	wolf, ok := r.GetHandler("wolf")
	require.True(t, ok)
	assert.True(t, wolf.Ready(), "other pools still build")
}

func TestRegistry_CreatePoolBuildsImmediately(t *testing.T) {
	r, res := newTestRegistry(t, Defaults{}, "wolf")
	h, err := r.CreatePool("wolf", "", 2, false, true)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Size())

	h2, err := r.CreatePool("wolf", "", 4, true, true)
	require.NoError(t, err)
	assert.Same(t, h, h2)
	assert.Equal(t, 4, h.Size())
	assert.Equal(t, 1, res.resolved["wolf"])

	for i := 0; i < 5; i++ {
		_, err := h.Acquire(true)
		require.NoError(t, err, "pool upgraded to growable")
	}
}

func TestRegistry_DeclarePoolKeepsPrototypeFlags(t *testing.T) {
	r, _ := newTestRegistry(t, Defaults{Temporary: true}, "boss", "wolf")
	h := r.DeclarePool("boss", "", 1, true, false)
	r.RequestPool("boss", "", 3)
	r.RequestPool("wolf", "", 2)
	require.NoError(t, r.Build())
	assert.Equal(t, 3, h.Size())

	stats := r.Stats()
	require.Len(t, stats, 2)
	assert.True(t, stats[0].Growable)
	assert.False(t, stats[0].Temporary, "declared flags win over defaults")
	assert.True(t, stats[1].Temporary)

	r.ResetRequests()
	require.NoError(t, r.Rebuild())
	assert.True(t, r.ContainsPool("boss"), "permanent pool survives rebuild")
	assert.False(t, r.ContainsPool("wolf"))
}

func TestRegistry_RebuildDropsUnrequestedTemporaries(t *testing.T) {
	// Scenario D
	r, res := newTestRegistry(t, Defaults{}, "tmp", "keep")
	tmp, err := r.CreatePool("tmp", "", 3, false, true)
	require.NoError(t, err)
	keep, err := r.CreatePool("keep", "", 3, false, false)
	require.NoError(t, err)

	r.ResetRequests()
	require.NoError(t, r.Rebuild())

	assert.False(t, r.ContainsPool("tmp"))
	assert.False(t, tmp.Valid())
	assert.Equal(t, []string{"tmp"}, res.unloaded)
	assert.Len(t, res.factories["tmp"].destroyed, 3)

	assert.True(t, r.ContainsPool("keep"))
	assert.True(t, keep.Ready())
	assert.Equal(t, 3, keep.Size())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RebuildShrinksThenGrows(t *testing.T) {
	r, res := newTestRegistry(t, Defaults{Temporary: true}, "a", "b", "c", "d")
	a := r.RequestPool("a", "", 2)
	b := r.RequestPool("b", "", 6)
	r.RequestPool("d", "", 2)
	require.NoError(t, r.Build())
	res.events = nil

	r.ResetRequests()
	r.RequestPool("a", "", 5)
	r.RequestPool("b", "", 3)
	c := r.RequestPool("c", "", 2)
	require.NoError(t, r.Rebuild())

	assert.Equal(t, 5, a.Size())
	assert.Equal(t, 3, b.Size())
	assert.Equal(t, 2, c.Size())
	assert.False(t, r.ContainsPool("d"))

	firstNew, lastDestroy := -1, -1
	for i, ev := range res.events {
		switch {
		case strings.HasPrefix(ev, "new "):
			if firstNew < 0 {
				firstNew = i
			}
		case strings.HasPrefix(ev, "destroy "):
			lastDestroy = i
		}
	}
	require.GreaterOrEqual(t, firstNew, 0)
	require.GreaterOrEqual(t, lastDestroy, 0)
	assert.Less(t, lastDestroy, firstNew, "every shrink or drop runs before any grow: %v", res.events)
	assert.Len(t, res.events, 3+2+3+2, "b shrinks by 3, d drops 2, a grows by 3, c builds 2")
}

func TestRegistry_RebuildKeepsPersistentPoolWithZeroTarget(t *testing.T) {
	r, res := newTestRegistry(t, Defaults{}, "keep")
	keep, err := r.CreatePool("keep", "", 0, true, false)
	require.NoError(t, err)
	x, err := keep.Acquire(true)
	require.NoError(t, err)
	_, err = keep.Acquire(true)
	require.NoError(t, err)
	require.Equal(t, 2, keep.Size(), "grown past its zero target")

	r.ResetRequests()
	require.NoError(t, r.Rebuild())

	assert.True(t, r.ContainsPool("keep"))
	assert.True(t, keep.Ready())
	assert.Equal(t, 2, keep.Size())
	assert.Empty(t, res.unloaded)
	assert.Empty(t, res.factories["keep"].destroyed)
	require.NoError(t, keep.Release(x))
}

func TestRegistry_RebuildBuildsNewEntries(t *testing.T) {
	r, _ := newTestRegistry(t, Defaults{Temporary: true}, "a")
	require.NoError(t, r.Build())
	h := r.RequestPool("a", "", 2)
	require.NoError(t, r.Rebuild())
	assert.Equal(t, 2, h.Size())
}

func TestRegistry_ResizePool(t *testing.T) {
	r, _ := newTestRegistry(t, Defaults{}, "a")
	assert.ErrorIs(t, r.ResizePool("a", 3), ErrUnknownPool)

	h := r.RequestPool("a", "", 1)
	assert.ErrorIs(t, r.ResizePool("a", 3), ErrNotBuilt)

	require.NoError(t, r.Build())
	require.NoError(t, r.ResizePool("a", 7))
	assert.Equal(t, 7, h.Size())
	require.NoError(t, r.ResizePool("a", 2))
	assert.Equal(t, 2, h.Size())
}

func TestRegistry_Clear(t *testing.T) {
	r, _ := newTestRegistry(t, Defaults{}, "tmp", "keep")
	tmp, _ := r.CreatePool("tmp", "", 1, false, true)
	keep, _ := r.CreatePool("keep", "", 1, false, false)

	r.Clear(false)
	assert.False(t, tmp.Valid())
	assert.True(t, keep.Ready())
	assert.False(t, r.ContainsPool("tmp"))

	r.Clear(true)
	assert.False(t, keep.Valid())
	assert.Equal(t, 0, r.Len())

	_, err := keep.Acquire(true)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestRegistry_ClearInvalidatesUnbuiltHandles(t *testing.T) {
	r, _ := newTestRegistry(t, Defaults{Temporary: true}, "a")
	h := r.RequestPool("a", "", 1)
	r.Clear(false)
	assert.False(t, h.Valid())

	fresh := r.RequestPool("a", "", 1)
	assert.NotSame(t, h, fresh)
	require.NoError(t, r.Build())
	assert.True(t, fresh.Ready())
	assert.False(t, h.Ready())
}

func TestRegistry_ReleaseRoutesByKey(t *testing.T) {
	r, _ := newTestRegistry(t, Defaults{}, "a", "b")
	ha, _ := r.CreatePool("a", "", 1, false, false)
	hb, _ := r.CreatePool("b", "", 1, false, false)

	ia, err := ha.Acquire(true)
	require.NoError(t, err)
	ib, err := hb.Acquire(true)
	require.NoError(t, err)

	require.NoError(t, r.Release(ib))
	require.NoError(t, r.Release(ia))

	for _, s := range r.Stats() {
		assert.Equal(t, 1, s.Free, s.Name)
		assert.Equal(t, 0, s.InUse, s.Name)
		assert.True(t, s.Built)
	}

	assert.ErrorIs(t, r.Release(&Instance{Key: 99}), ErrUnknownPool)
}
