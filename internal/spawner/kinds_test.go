package spawner

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/spawnpool/internal/pool"
)

func TestHomePos_LineAlternatesSides(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 1))
	h := HomePos{Method: SeparationLine, Distance: Range{Min: 2, Max: 2}}

	x, y := h.Displacement(0, r)
	assert.Zero(t, x)
	assert.Zero(t, y)

	want := map[int]float64{1: 2, 2: -4, 3: 4, 4: -6}
	for slot, wx := range want {
		x, y := h.Displacement(slot, r)
		assert.Equal(t, wx, x, "slot %d", slot)
		assert.Zero(t, y)
	}
}

func TestHomePos_SphereDistance(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 1))
	h := HomePos{Method: SeparationSphere, Distance: Range{Min: 3, Max: 3}}
	x, y := h.Displacement(1, r)
	assert.InDelta(t, 9.0, x*x+y*y, 1e-9)
}

func TestRange(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 100; i++ {
		v := IntRange{Min: 2, Max: 4}.Random(r)
		assert.GreaterOrEqual(t, v, 2)
		assert.LessOrEqual(t, v, 4)

		f := Range{Min: 1, Max: 2}.Random(r)
		assert.GreaterOrEqual(t, f, 1.0)
		assert.Less(t, f, 2.0)
	}
	assert.Equal(t, 5, IntRange{Min: 5, Max: 1}.Random(r))
}

func TestRoulette_RotatesPrototypes(t *testing.T) {
	h := newHarness(t, 0)
	kind := &Roulette{Protos: []Proto{{Name: "wolf"}, {Name: "bat"}, {Name: "crow"}}}
	sp := h.spawner(Config{ID: 1}, kind)

	var names []string
	for i := 0; i < 4; i++ {
		h.tick()
		h.tick()
		require.Equal(t, StateAlive, sp.State())
		insts := sp.Instances()
		require.Len(t, insts, 1)
		names = append(names, insts[0].Name)
		killAll(t, sp, false)
	}
	assert.Equal(t, []string{"wolf", "bat", "crow", "wolf"}, names)
}

func TestRoulette_SnapshotKeepsRotation(t *testing.T) {
	h := newHarness(t, 0)
	protos := []Proto{{Name: "wolf"}, {Name: "bat"}, {Name: "crow"}}
	sp := h.spawner(Config{ID: 5}, &Roulette{Protos: protos})
	h.tick()
	h.tick()
	killAll(t, sp, false)
	h.tick()
	h.tick()
	require.Equal(t, "bat", sp.Instances()[0].Name)

	blob, err := sp.Save()
	require.NoError(t, err)
	killAll(t, sp, false)

	kind := &Roulette{Protos: protos}
	restored := h.spawner(Config{ID: 5}, kind)
	require.NoError(t, restored.Load(blob))
	assert.Equal(t, 1, kind.Current())
	restored.Resume()

	h.dir.Unregister(sp)
	h.tick()
	h.tick()
	require.Equal(t, StateAlive, restored.State())
	assert.Equal(t, "crow", restored.Instances()[0].Name, "rotation continues after restore")

	bad := []byte(`{"id":5,"state":"respawning","respawn_at":-1,"rotation":3}`)
	assert.Error(t, New(Config{ID: 5}, &Roulette{Protos: protos}, h.deps()).Load(bad))
}

func TestCluster_Normalize(t *testing.T) {
	k := &Cluster{Entries: []Weighted{
		{Proto: Proto{Name: "big"}, Chance: 3},
		{Proto: Proto{Name: "small"}, Chance: 1},
	}}
	k.Normalize()
	assert.Equal(t, "small", k.Entries[0].Name)
	assert.InDelta(t, 25.0, k.Entries[0].Chance, 1e-9)
	assert.InDelta(t, 75.0, k.Entries[1].Chance, 1e-9)

	even := &Cluster{Entries: []Weighted{{Proto: Proto{Name: "a"}}, {Proto: Proto{Name: "b"}}}}
	even.Normalize()
	assert.InDelta(t, 50.0, even.Entries[0].Chance, 1e-9)
}

func TestCluster_SpawnsRing(t *testing.T) {
	h := newHarness(t, 0)
	kind := &Cluster{
		Entries: []Weighted{
			{Proto: Proto{Name: "wolf"}, Chance: 1},
			{Proto: Proto{Name: "bat"}, Chance: 0},
		},
		Quantity: IntRange{Min: 5, Max: 5},
		Radius:   10,
	}
	sp := h.spawner(Config{ID: 1, X: 100, Y: 100}, kind)
	h.tick()
	h.tick()
	require.Equal(t, StateAlive, sp.State())

	insts := sp.Instances()
	require.Len(t, insts, 5)
	assert.Equal(t, 100.0, insts[0].X)
	assert.Equal(t, 100.0, insts[0].Y)
	for _, inst := range insts {
		assert.Equal(t, "wolf", inst.Name, "zero chance is never drawn")
	}
	for _, inst := range insts[1:] {
		dx, dy := inst.X-100, inst.Y-100
		assert.InDelta(t, 100.0, dx*dx+dy*dy, 1e-6)
	}
}

type railProbe struct{ rail, rails int }

func (p *railProbe) SetRail(rail, rails int) { p.rail, p.rails = rail, rails }

func TestGroup_RailsRoundRobin(t *testing.T) {
	h := newHarness(t, 0)
	h.factory.hook = func(inst *pool.Instance) {
		inst.Attachments = append(inst.Attachments, &railProbe{})
	}
	sp := h.spawner(Config{ID: 1}, &Group{Proto: Proto{Name: "wolf"}, Quantity: IntRange{Min: 3, Max: 3}, Rails: 2})
	h.tick()
	h.tick()

	var rails []int
	for _, inst := range sp.Instances() {
		p := inst.Attachments[0].(*railProbe)
		assert.Equal(t, 2, p.rails)
		rails = append(rails, p.rail)
	}
	assert.Equal(t, []int{0, 1, 0}, rails)
}
