package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/spawnpool/internal/config"
	"github.com/l1jgo/spawnpool/internal/core/ecs"
	"github.com/l1jgo/spawnpool/internal/core/event"
	coresys "github.com/l1jgo/spawnpool/internal/core/system"
	"github.com/l1jgo/spawnpool/internal/data"
	"github.com/l1jgo/spawnpool/internal/level"
	"github.com/l1jgo/spawnpool/internal/persist"
	"github.com/l1jgo/spawnpool/internal/spawner"
)

type countingDir struct{ ticks int }

func (d *countingDir) Tick() { d.ticks++ }

func TestSpawnerSystem_Interval(t *testing.T) {
	dir := &countingDir{}
	s := NewSpawnerSystem(dir, 200*time.Millisecond)

	for i := 0; i < 4; i++ {
		s.Update(100 * time.Millisecond)
	}
	assert.Equal(t, 2, dir.ticks)

	// a long stall runs one step, not a burst
	s.Update(time.Second)
	assert.Equal(t, 3, dir.ticks)
	s.Update(100 * time.Millisecond)
	assert.Equal(t, 3, dir.ticks)
	assert.Equal(t, uint64(3), s.Steps())
}

type overrunCounter struct{ n int }

func (o *overrunCounter) BudgetOverrun() { o.n++ }

func TestBudgetSystem_RecordsOverrun(t *testing.T) {
	now := time.Unix(0, 0)
	b := spawner.NewBudget(time.Millisecond)
	b.SetClock(func() time.Time { return now })
	rec := &overrunCounter{}
	s := NewBudgetSystem(b, rec)

	s.Update(0)
	now = now.Add(2 * time.Millisecond)
	require.True(t, b.Exhausted())

	s.Update(0)
	assert.Equal(t, 1, rec.n)
	assert.False(t, b.Exhausted(), "reset")
	s.Update(0)
	assert.Equal(t, 1, rec.n)
	assert.Equal(t, uint64(1), s.Overruns())
}

func TestEventDispatchSystem(t *testing.T) {
	bus := event.NewBus()
	var got []int64
	event.Subscribe(bus, func(e event.SpawnerRetired) { got = append(got, e.SpawnerID) })
	s := NewEventDispatchSystem(bus)

	event.Emit(bus, event.SpawnerRetired{SpawnerID: 4})
	assert.Empty(t, got)
	s.Update(0)
	assert.Equal(t, []int64{4}, got)
	s.Update(0)
	assert.Equal(t, []int64{4}, got)
}

func TestCleanupSystem(t *testing.T) {
	w := ecs.NewWorld()
	id := w.CreateEntity()
	w.MarkForDestruction(id)
	s := NewCleanupSystem(w)
	s.Update(0)
	assert.False(t, w.Alive(id))
	assert.Equal(t, uint64(1), s.Destroyed())
}

type fakeSaver struct {
	saves int
	err   error
}

func (f *fakeSaver) Save(context.Context, level.SnapshotStore) error {
	f.saves++
	return f.err
}

type nopStore struct{}

func (nopStore) SaveSnapshots(context.Context, string, []persist.Snapshot) error { return nil }
func (nopStore) LoadSnapshots(context.Context, string) ([]persist.Snapshot, error) {
	return nil, nil
}

func TestPersistenceSystem_Interval(t *testing.T) {
	saver := &fakeSaver{}
	s := NewPersistenceSystem(saver, nopStore{}, zaptest.NewLogger(t), 3)
	for i := 0; i < 7; i++ {
		s.Update(0)
	}
	assert.Equal(t, 2, saver.saves)

	saver.err = errors.New("disk full")
	assert.Error(t, s.SaveNow())

	never := NewPersistenceSystem(saver, nopStore{}, zaptest.NewLogger(t), 0)
	never.Update(0)
	assert.Equal(t, 3, saver.saves)
}

type stateSink struct{ last map[spawner.State]int }

func (s *stateSink) ObserveStates(c map[spawner.State]int) { s.last = c }

const simPrototypes = `
prototypes:
  - name: wolf
    hooks: [drift]
`

const simSpawners = `
spawners:
  - id: 1
    prototype: wolf
    x: 0
    y: 0
    quantity: {min: 2, max: 2}
`

func newSimLevel(t *testing.T) *level.Level {
	t.Helper()
	protos, err := data.ParsePrototypeTable([]byte(simPrototypes))
	require.NoError(t, err)
	defs, err := data.ParseSpawnerList([]byte(simSpawners))
	require.NoError(t, err)
	l := level.New(level.Options{
		Name: "sim",
		Pool: config.PoolConfig{DefaultSize: 2, DefaultTemporary: true},
		World: config.WorldConfig{
			Bounds:         config.RectConfig{MinX: -50, MinY: -20, MaxX: 50, MaxY: 20},
			CellSize:       5,
			AOICellSize:    10,
			ActivationMaxW: 200,
			ActivationMaxH: 100,
		},
		ScorePerKill: 1,
	}, level.Deps{Prototypes: protos, Log: zaptest.NewLogger(t)})
	require.NoError(t, l.Load(defs))
	return l
}

func TestRunner_FullTick(t *testing.T) {
	l := newSimLevel(t)
	sink := &stateSink{}

	r := coresys.NewRunner()
	r.Register(NewCleanupSystem(l.World()))
	r.Register(NewMetricsSystem(l.Directory(), sink))
	r.Register(NewEventDispatchSystem(l.Bus()))
	r.Register(NewLevelClockSystem(l.Clock()))
	r.Register(NewBudgetSystem(l.Budget(), nil))
	r.Register(NewSpawnerSystem(l.Directory(), 100*time.Millisecond))

	for i := 0; i < 3; i++ {
		r.Tick(100 * time.Millisecond)
	}
	sp, ok := l.Spawner(1)
	require.True(t, ok)
	assert.Equal(t, spawner.StateAlive, sp.State())
	assert.Equal(t, 2, l.Entities().Count())
	assert.InDelta(t, 0.3, l.Clock().Elapsed(), 1e-9)
	assert.Equal(t, 1, sink.last[spawner.StateAlive])

	hunt := NewHuntSystem(l, 1)
	hunt.Update(100 * time.Millisecond)
	assert.Equal(t, uint64(2), hunt.Kills())
	assert.Equal(t, 0, l.Entities().Count())
	assert.Equal(t, 2.0, l.Clock().Score())
}

func TestCameraSystem_Bounces(t *testing.T) {
	l := newSimLevel(t)
	cam := NewCameraSystem(l, 100)
	x0, _ := cam.Position()
	assert.Equal(t, 50.0, x0, "clamped to the right bound")

	cam.Update(time.Second)
	x, _ := cam.Position()
	assert.Equal(t, 50.0, x, "hits the bound and turns")
	cam.Update(500 * time.Millisecond)
	x, _ = cam.Position()
	assert.Equal(t, 0.0, x)
}

func TestCullSystem_Every(t *testing.T) {
	l := newSimLevel(t)
	r := coresys.NewRunner()
	r.Register(NewBudgetSystem(l.Budget(), nil))
	r.Register(NewSpawnerSystem(l.Directory(), time.Millisecond))
	for i := 0; i < 3; i++ {
		r.Tick(time.Millisecond)
	}
	require.Equal(t, 2, l.Entities().Count())

	for _, inst := range l.Entities().Snapshot() {
		l.Entities().MoveEntity(inst, 1e6, 0)
	}
	cull := NewCullSystem(l, 2)
	cull.Update(0)
	assert.Equal(t, uint64(0), cull.Culled())
	cull.Update(0)
	assert.Equal(t, uint64(2), cull.Culled())
	assert.Equal(t, 0, l.Entities().Count())
}
