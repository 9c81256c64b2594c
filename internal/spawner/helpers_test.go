package spawner

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/spawnpool/internal/core/ecs"
	"github.com/l1jgo/spawnpool/internal/core/event"
	"github.com/l1jgo/spawnpool/internal/pool"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// costFactory advances the clock on every instantiation.
type costFactory struct {
	clock *fakeClock
	cost  time.Duration
	ids   *ecs.EntityPool
	hook  func(inst *pool.Instance)
}

func (f *costFactory) New() (*pool.Instance, error) {
	f.clock.Advance(f.cost)
	inst := &pool.Instance{ID: f.ids.Create()}
	if f.hook != nil {
		f.hook(inst)
	}
	return inst, nil
}

func (f *costFactory) Destroy(inst *pool.Instance) { f.ids.Destroy(inst.ID) }

type resolverMap map[string]pool.Factory

func (m resolverMap) Resolve(name, _ string) (pool.Factory, error) {
	if f, ok := m[name]; ok {
		return f, nil
	}
	return nil, pool.ErrUnresolved
}

type levelClock struct{ t, score float64 }

func (c *levelClock) Elapsed() float64 { return c.t }
func (c *levelClock) Score() float64   { return c.score }

type entityLog struct {
	live         map[*pool.Instance]bool
	registered   int
	unregistered int
}

func newEntityLog() *entityLog { return &entityLog{live: make(map[*pool.Instance]bool)} }

func (e *entityLog) RegisterEntity(inst *pool.Instance) {
	e.live[inst] = true
	e.registered++
}

func (e *entityLog) UnregisterEntity(inst *pool.Instance) {
	delete(e.live, inst)
	e.unregistered++
}

// slowSpawn burns simulated time when its instance is activated.
type slowSpawn struct {
	clock *fakeClock
	cost  time.Duration
	owner *Spawner
}

func (s *slowSpawn) OnSpawn(sp *Spawner) {
	s.clock.Advance(s.cost)
	s.owner = sp
}

type harness struct {
	t        *testing.T
	clock    *fakeClock
	budget   *Budget
	reg      *pool.Registry
	factory  *costFactory
	entities *entityLog
	level    *levelClock
	bus      *event.Bus
	dir      *Directory
}

func newHarness(t *testing.T, budget time.Duration) *harness {
	t.Helper()
	clk := &fakeClock{now: time.Unix(0, 0)}
	f := &costFactory{clock: clk, ids: ecs.NewEntityPool()}
	b := NewBudget(budget)
	b.SetClock(clk.Now)
	log := zaptest.NewLogger(t)
	return &harness{
		t:        t,
		clock:    clk,
		budget:   b,
		reg:      pool.NewRegistry(resolverMap{"wolf": f, "bat": f, "crow": f}, pool.Defaults{}, log),
		factory:  f,
		entities: newEntityLog(),
		level:    &levelClock{},
		bus:      event.NewBus(),
		dir:      NewDirectory(log),
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Registry: h.reg,
		Budget:   h.budget,
		Entities: h.entities,
		Clock:    h.level,
		Bus:      h.bus,
		Rand:     rand.New(rand.NewPCG(1, 2)),
		Log:      zaptest.NewLogger(h.t),
	}
}

// spawner requests pools for kind, builds or grows them and registers a
// spawner. Spawners sharing a prototype share its pool.
func (h *harness) spawner(cfg Config, kind Kind) *Spawner {
	h.t.Helper()
	kind.Request(h.reg, 0)
	require.NoError(h.t, h.reg.Rebuild())
	sp := New(cfg, kind, h.deps())
	h.dir.Register(sp)
	h.dir.Enable()
	return sp
}

func (h *harness) tick() {
	h.budget.Reset()
	h.dir.Tick()
}

func flock(n int) *Group {
	return &Group{Proto: Proto{Name: "wolf"}, Quantity: IntRange{Min: n, Max: n}}
}

func killAll(t *testing.T, sp *Spawner, byPlayer bool) {
	t.Helper()
	for _, inst := range sp.Instances() {
		require.True(t, sp.RemoveEntity(inst, byPlayer))
	}
}
