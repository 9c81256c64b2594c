package spawner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_RegisterInitializes(t *testing.T) {
	h := newHarness(t, 0)
	sp := New(Config{ID: 1}, flock(1), h.deps())
	h.dir.Register(sp)
	assert.Equal(t, StateRespawning, sp.State())
	assert.Equal(t, 1, h.dir.Len())

	got, ok := h.dir.Find(1)
	require.True(t, ok)
	assert.Same(t, sp, got)
}

func TestDirectory_DisabledDoesNotTick(t *testing.T) {
	h := newHarness(t, 0)
	sp := h.spawner(Config{ID: 1}, flock(2))
	h.dir.Disable()
	h.tick()
	assert.Equal(t, StateRespawning, sp.State())

	h.dir.Enable()
	h.tick()
	assert.Equal(t, StateActivatingInstances, sp.State())
}

func TestDirectory_DisableDrainsSpawners(t *testing.T) {
	h := newHarness(t, 0)
	a := h.spawner(Config{ID: 1}, flock(2))
	b := h.spawner(Config{ID: 2}, &Group{Proto: Proto{Name: "bat"}, Quantity: IntRange{Min: 3, Max: 3}})
	h.tick()
	h.tick()
	require.Equal(t, StateAlive, a.State())
	require.Equal(t, StateAlive, b.State())

	h.dir.Disable()
	assert.Equal(t, 0, a.Alive())
	assert.Equal(t, 0, b.Alive())
	assert.Empty(t, h.entities.live)
	assert.Equal(t, 2, h.dir.Len(), "disable keeps registrations")
}

func TestDirectory_SelfUnregisterDuringTick(t *testing.T) {
	h := newHarness(t, 0)
	first := h.spawner(Config{ID: 1}, flock(1))
	doomed := h.spawner(Config{
		ID:       2,
		Triggers: Triggers{Deactivation: []Trigger{{Type: TriggerTime, Value: 0}}},
	}, &Group{Proto: Proto{Name: "bat"}, Quantity: IntRange{Min: 1, Max: 1}})
	last := h.spawner(Config{ID: 3}, &Cage{Proto: Proto{Name: "crow"}})

	h.tick()
	assert.True(t, doomed.Retired())
	assert.Equal(t, 2, h.dir.Len())
	assert.Equal(t, StateActivatingInstances, first.State())
	assert.Equal(t, StateAlive, last.State(), "spawner after the removed one still ticks")

	var ids []int64
	h.dir.ForEach(func(sp *Spawner) { ids = append(ids, sp.ID()) })
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestDirectory_UnregisterUnknown(t *testing.T) {
	h := newHarness(t, 0)
	assert.False(t, h.dir.Unregister(New(Config{ID: 9}, flock(1), h.deps())))
}

func TestDirectory_StateCounts(t *testing.T) {
	h := newHarness(t, 0)
	h.spawner(Config{ID: 1}, flock(1))
	h.spawner(Config{ID: 2}, &Cage{Proto: Proto{Name: "crow"}})
	h.tick()

	counts := h.dir.StateCounts()
	assert.Equal(t, 1, counts[StateActivatingInstances])
	assert.Equal(t, 1, counts[StateAlive])
	assert.Equal(t, 0, counts[StateInit])
	assert.Len(t, counts, len(States))
}

func TestBudget(t *testing.T) {
	clk := &fakeClock{}
	b := NewBudget(0)
	b.SetClock(clk.Now)
	clk.Advance(1 << 40)
	assert.False(t, b.Exhausted(), "zero budget is unlimited")

	b = NewBudget(10)
	b.SetClock(clk.Now)
	clk.Advance(9)
	assert.False(t, b.Exhausted())
	clk.Advance(1)
	assert.True(t, b.Exhausted())
	assert.True(t, b.Overrun())
	b.Reset()
	assert.False(t, b.Overrun())
	assert.Zero(t, b.Elapsed())
}

func TestTriggers(t *testing.T) {
	tr := Triggers{
		Activation:   []Trigger{{Type: TriggerXP, Value: 100}, {Type: TriggerTime, Value: 60}},
		Deactivation: []Trigger{{Type: TriggerTime, Value: 300}},
	}
	assert.False(t, tr.IsReadyToSpawn(10, 10))
	assert.True(t, tr.IsReadyToSpawn(10, 100), "any activation trigger is enough")
	assert.True(t, tr.IsReadyToSpawn(60, 0))
	assert.False(t, tr.IsReadyToDisable(299, 1e6))
	assert.True(t, tr.IsReadyToDisable(300, 0))

	assert.True(t, Triggers{}.IsReadyToSpawn(0, 0))
	assert.False(t, Triggers{}.IsReadyToDisable(1e9, 1e9))

	typ, err := ParseTriggerType("XP")
	require.NoError(t, err)
	assert.Equal(t, TriggerXP, typ)
	_, err = ParseTriggerType("kills")
	assert.Error(t, err)
}
