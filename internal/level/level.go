package level

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/spawnpool/internal/config"
	"github.com/l1jgo/spawnpool/internal/core/ecs"
	"github.com/l1jgo/spawnpool/internal/core/event"
	"github.com/l1jgo/spawnpool/internal/data"
	"github.com/l1jgo/spawnpool/internal/persist"
	"github.com/l1jgo/spawnpool/internal/pool"
	"github.com/l1jgo/spawnpool/internal/spatial"
	"github.com/l1jgo/spawnpool/internal/spawner"
	"github.com/l1jgo/spawnpool/internal/world"
)

var ErrLoaded = errors.New("level already loaded")

// Options are the level-wide settings, taken from the config file.
type Options struct {
	Name            string
	Pool            config.PoolConfig
	World           config.WorldConfig
	SpawningMaxTime time.Duration
	ScorePerKill    float64
	Seed            uint64
}

// Scripts supplies Lua spawn conditions by function name.
type Scripts interface {
	Has(fn string) bool
	Conditions(fn string, spawnerID int64) spawner.Conditions
}

// SnapshotStore is the part of persist.Store the level needs.
type SnapshotStore interface {
	SaveSnapshots(ctx context.Context, level string, snaps []persist.Snapshot) error
	LoadSnapshots(ctx context.Context, level string) ([]persist.Snapshot, error)
}

// Deps are optional collaborators. Prototypes is required.
type Deps struct {
	Prototypes   *data.PrototypeTable
	Scripts      Scripts
	PoolObserver pool.Observer
	WaveObserver spawner.Observer
	Log          *zap.Logger
}

// Level owns everything one running level needs: the pool registry, the
// spawner directory and spatial index, the shared spawn budget, the event
// bus, the live entity directory and the game clock.
type Level struct {
	opts   Options
	deps   Deps
	log    *zap.Logger
	bounds spatial.Rect

	world    *ecs.World
	entities *world.State
	protos   *world.Prototypes
	registry *pool.Registry
	dir      *spawner.Directory
	index    *spatial.Index[*spawner.Spawner]
	budget   *spawner.Budget
	bus      *event.Bus
	clock    *Clock
	viewport *spatial.Viewport
	rng      *rand.Rand

	spawners []*spawner.Spawner
	byID     map[int64]*spawner.Spawner
	loaded   bool
}

func New(opts Options, deps Deps) *Level {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("level", opts.Name))

	w := ecs.NewWorld()
	protos := world.NewPrototypes(deps.Prototypes, w, log)
	RegisterHooks(protos)

	reg := pool.NewRegistry(protos, pool.Defaults{
		Growable:  opts.Pool.DefaultGrowable,
		Temporary: opts.Pool.DefaultTemporary,
	}, log)
	if deps.PoolObserver != nil {
		reg.SetObserver(deps.PoolObserver)
	}

	b := opts.World.Bounds
	bounds := spatial.Rect{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
	vp := &spatial.Viewport{
		Min: spatial.Centered(0, 0, opts.World.ActivationMinW, opts.World.ActivationMinH),
		Max: spatial.Centered(0, 0, opts.World.ActivationMaxW, opts.World.ActivationMaxH),
	}

	l := &Level{
		opts:     opts,
		deps:     deps,
		log:      log,
		bounds:   bounds,
		world:    w,
		entities: world.NewState(opts.World.AOICellSize, log),
		protos:   protos,
		registry: reg,
		dir:      spawner.NewDirectory(log),
		index:    spatial.NewIndex[*spawner.Spawner](),
		budget:   spawner.NewBudget(opts.SpawningMaxTime),
		bus:      event.NewBus(),
		clock:    &Clock{},
		viewport: vp,
		rng:      rand.New(rand.NewPCG(opts.Seed, 0x1e7e1)),
		byID:     make(map[int64]*spawner.Spawner),
	}
	l.MoveCamera(bounds.MinX+vp.Max.Width()/2, (bounds.MinY+bounds.MaxY)/2)
	event.Subscribe(l.bus, func(e event.FlockEaten) {
		l.clock.AddScore(float64(e.Score))
	})
	return l
}

func (l *Level) Name() string                            { return l.opts.Name }
func (l *Level) World() *ecs.World                       { return l.world }
func (l *Level) Entities() *world.State                  { return l.entities }
func (l *Level) Prototypes() *world.Prototypes           { return l.protos }
func (l *Level) Registry() *pool.Registry                { return l.registry }
func (l *Level) Directory() *spawner.Directory           { return l.dir }
func (l *Level) Index() *spatial.Index[*spawner.Spawner] { return l.index }
func (l *Level) Budget() *spawner.Budget                 { return l.budget }
func (l *Level) Bus() *event.Bus                         { return l.bus }
func (l *Level) Clock() *Clock                           { return l.clock }
func (l *Level) Viewport() *spatial.Viewport             { return l.viewport }
func (l *Level) Bounds() spatial.Rect                    { return l.bounds }
func (l *Level) Loaded() bool                            { return l.loaded }
func (l *Level) Spawners() []*spawner.Spawner            { return l.spawners }

// Spawner returns a loaded spawner by id, retired ones included.
func (l *Level) Spawner(id int64) (*spawner.Spawner, bool) {
	sp, ok := l.byID[id]
	return sp, ok
}

// Load creates the spawners of defs, builds their pools and the spatial
// index, then enables the directory. Definitions that fail their
// activation chance are skipped. Bad definitions and unresolvable
// prototypes are reported in the returned error; the rest of the level
// still loads.
func (l *Level) Load(defs []data.SpawnerDef) error {
	if l.loaded {
		return ErrLoaded
	}
	var errs []error
	l.registry.ResetRequests()

	declared := make(map[string]bool)
	for i := range defs {
		d := &defs[i]
		if c := d.ActivationChance; c != nil && l.rng.Float64()*100 >= *c {
			l.log.Debug("spawner skipped by activation chance", zap.Int64("spawner", d.ID), zap.Float64("chance", *c))
			continue
		}
		if _, dup := l.byID[d.ID]; dup {
			errs = append(errs, fmt.Errorf("spawner %d: duplicate id", d.ID))
			continue
		}
		for _, name := range d.PrototypeNames() {
			if !declared[name] {
				l.declare(name)
				declared[name] = true
			}
		}
		sp, err := l.build(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		l.spawners = append(l.spawners, sp)
		l.byID[d.ID] = sp
		l.index.Register(sp)
		l.dir.Register(sp)
	}

	if err := l.registry.Rebuild(); err != nil {
		errs = append(errs, fmt.Errorf("build pools: %w", err))
	}
	if err := l.index.Build(l.bounds, l.opts.World.CellSize); err != nil {
		errs = append(errs, fmt.Errorf("build spawner index: %w", err))
	}
	l.dir.Enable()
	l.loaded = true

	l.log.Info("level loaded",
		zap.Int("spawners", len(l.spawners)),
		zap.Int("definitions", len(defs)),
		zap.Int("pools", l.registry.Len()),
	)
	return errors.Join(errs...)
}

// declare applies the prototype table's own pool settings.
func (l *Level) declare(name string) {
	p := l.deps.Prototypes.Get(name)
	if p == nil {
		return
	}
	temporary := l.opts.Pool.DefaultTemporary
	if p.Temporary != nil {
		temporary = *p.Temporary
	}
	growable := p.Growable || l.opts.Pool.DefaultGrowable
	l.registry.DeclarePool(name, p.Path, p.PoolSize, growable, temporary)
}

func (l *Level) build(d *data.SpawnerDef) (*spawner.Spawner, error) {
	kind, err := kindFor(d, l.deps.Prototypes)
	if err != nil {
		return nil, err
	}
	cfg, err := configOf(d)
	if err != nil {
		return nil, err
	}

	var cond spawner.Conditions
	if d.Script != "" {
		if l.deps.Scripts == nil || !l.deps.Scripts.Has(d.Script) {
			return nil, fmt.Errorf("spawner %d: script function %q not loaded", d.ID, d.Script)
		}
		cond = l.deps.Scripts.Conditions(d.Script, d.ID)
	}

	sp := spawner.New(cfg, kind, spawner.Deps{
		Registry:   l.registry,
		Budget:     l.budget,
		Entities:   l.entities,
		Conditions: cond,
		Visibility: l.viewport,
		Clock:      l.clock,
		Bus:        l.bus,
		Observer:   l.deps.WaveObserver,
		Rand:       rand.New(rand.NewPCG(l.opts.Seed, uint64(d.ID))),
		Log:        l.log,
	})
	kind.Request(l.registry, l.opts.Pool.DefaultSize)
	return sp, nil
}

// Restore loads saved snapshots into the matching spawners and turns any
// wave that was in flight into a pending one. Must run before the first
// tick. Returns how many spawners were restored.
func (l *Level) Restore(ctx context.Context, store SnapshotStore) (int, error) {
	snaps, err := store.LoadSnapshots(ctx, l.opts.Name)
	if err != nil {
		return 0, fmt.Errorf("restore %s: %w", l.opts.Name, err)
	}
	n := 0
	for _, snap := range snaps {
		sp, ok := l.byID[snap.SpawnerID]
		if !ok {
			l.log.Warn("snapshot for unknown spawner", zap.Int64("spawner", snap.SpawnerID))
			continue
		}
		if err := sp.Load(snap.Blob); err != nil {
			l.log.Warn("snapshot rejected", zap.Int64("spawner", snap.SpawnerID), zap.Error(err))
			continue
		}
		sp.Resume()
		if sp.Retired() {
			l.dir.Unregister(sp)
		}
		n++
	}
	l.log.Info("level restored", zap.Int("spawners", n), zap.Int("snapshots", len(snaps)))
	return n, nil
}

// Save writes a snapshot of every spawner, retired ones included.
func (l *Level) Save(ctx context.Context, store SnapshotStore) error {
	snaps := make([]persist.Snapshot, 0, len(l.spawners))
	for _, sp := range l.spawners {
		blob, err := sp.Save()
		if err != nil {
			return err
		}
		snaps = append(snaps, persist.Snapshot{SpawnerID: sp.ID(), Blob: blob})
	}
	if err := store.SaveSnapshots(ctx, l.opts.Name, snaps); err != nil {
		return fmt.Errorf("save %s: %w", l.opts.Name, err)
	}
	return nil
}

// Teardown drains every spawner, forgets them and drops the temporary
// pools. Permanent pools survive for the next Load.
func (l *Level) Teardown() {
	l.dir.Disable()
	l.dir.Clear()
	l.index.Clear()
	l.registry.Clear(false)
	l.world.FlushDestroyQueue()
	l.spawners = nil
	clear(l.byID)
	l.clock.Reset()
	l.loaded = false
	l.log.Info("level torn down", zap.Int("pools", l.registry.Len()))
}

// SpawnerAt returns the spawner whose area covers (x, y).
func (l *Level) SpawnerAt(x, y float64) (*spawner.Spawner, bool) {
	return l.index.Lookup(x, y)
}

// MoveCamera recentres the activation viewport, kept inside the bounds.
func (l *Level) MoveCamera(cx, cy float64) {
	cx, cy = l.bounds.Clamp(cx, cy)
	l.viewport.MoveTo(cx, cy)
}

// Kill removes a live instance as killed by the player and scores it.
func (l *Level) Kill(inst *pool.Instance) bool {
	if inst.Owner == nil || !inst.Owner.RemoveEntity(inst, true) {
		return false
	}
	l.clock.AddScore(l.opts.ScorePerKill)
	return true
}

// Hunt kills each entity inside the viewport with probability chance.
func (l *Level) Hunt(chance float64) int {
	if chance <= 0 {
		return 0
	}
	n := 0
	for _, inst := range l.entities.InRect(l.viewport.Max) {
		if l.rng.Float64() < chance && l.Kill(inst) {
			n++
		}
	}
	return n
}

// Cull removes entities that drifted well outside the viewport. They do not
// count as killed, so their spawner brings them back.
func (l *Level) Cull() int {
	vp := l.viewport.Max
	area := spatial.Centered(
		(vp.MinX+vp.MaxX)/2, (vp.MinY+vp.MaxY)/2,
		vp.Width()*2, vp.Height()*2,
	)
	n := 0
	for _, inst := range l.entities.Snapshot() {
		if area.Contains(inst.X, inst.Y) || inst.Owner == nil {
			continue
		}
		if inst.Owner.RemoveEntity(inst, false) {
			n++
		}
	}
	return n
}

// Drift advances every instance carrying a Drift attachment.
func (l *Level) Drift(dt time.Duration) {
	sec := dt.Seconds()
	for _, inst := range l.entities.Snapshot() {
		d, ok := attachment[*Drift](inst)
		if !ok || (d.VX == 0 && d.VY == 0) {
			continue
		}
		l.entities.MoveEntity(inst, inst.X+d.VX*sec, inst.Y+d.VY*sec)
	}
}
