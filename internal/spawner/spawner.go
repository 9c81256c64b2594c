package spawner

import (
	"errors"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/l1jgo/spawnpool/internal/core/event"
	"github.com/l1jgo/spawnpool/internal/pool"
	"github.com/l1jgo/spawnpool/internal/spatial"
)

// Config is the static part of a spawner, loaded from the spawner table.
type Config struct {
	ID   int64
	X, Y float64
	// Area gates activation against the viewport. Empty means a 2x2 box
	// around the origin.
	Area spatial.Rect
	// SpawnTime is the delay in seconds before the next wave after the
	// player killed a whole wave.
	SpawnTime Range
	// MaxSpawns retires the spawner after that many fully killed waves. 0 is unlimited.
	MaxSpawns  int
	FlockBonus int
	Triggers   Triggers
}

// Deps are the shared collaborators. Registry and Budget are required;
// the rest may be nil.
type Deps struct {
	Registry   *pool.Registry
	Budget     *Budget
	Entities   EntityDirectory
	Conditions Conditions
	Visibility Visibility
	Clock      Clock
	Bus        *event.Bus
	Observer   Observer
	Rand       *rand.Rand
	Log        *zap.Logger
}

// Spawner runs one spawn point through its waves:
//
//	Init -> Respawning -> CreatingInstances -> ActivatingInstances -> Alive -> Respawning
//
// Creation and activation are sliced against the shared Budget. Instances
// report back through RemoveEntity; the wave ends when the last one is gone.
type Spawner struct {
	cfg  Config
	kind Kind
	deps Deps
	dir  *Directory
	log  *zap.Logger

	state     State
	slots     []*pool.Instance
	activated []bool

	toSpawn int
	spawned int
	alive   int
	killed  int

	allKilled      bool
	respawnAt      float64
	respawnCount   int
	readyToDisable bool
	retired        bool
	stalled        bool
}

func New(cfg Config, kind Kind, deps Deps) *Spawner {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(uint64(cfg.ID), 0x5eed))
	}
	if cfg.Area.Empty() {
		cfg.Area = spatial.Centered(cfg.X, cfg.Y, 2, 2)
	}
	n := kind.MaxBatch()
	return &Spawner{
		cfg:       cfg,
		kind:      kind,
		deps:      deps,
		log:       deps.Log.With(zap.Int64("spawner", cfg.ID), zap.String("kind", kind.Name())),
		state:     StateInit,
		slots:     make([]*pool.Instance, n),
		activated: make([]bool, n),
		respawnAt: -1,
	}
}

func (s *Spawner) ID() int64               { return s.cfg.ID }
func (s *Spawner) Kind() Kind              { return s.kind }
func (s *Spawner) State() State            { return s.state }
func (s *Spawner) X() float64              { return s.cfg.X }
func (s *Spawner) Y() float64              { return s.cfg.Y }
func (s *Spawner) Bounds() spatial.Rect    { return s.cfg.Area }
func (s *Spawner) ToSpawn() int            { return s.toSpawn }
func (s *Spawner) Spawned() int            { return s.spawned }
func (s *Spawner) Alive() int              { return s.alive }
func (s *Spawner) Killed() int             { return s.killed }
func (s *Spawner) AllKilledByPlayer() bool { return s.allKilled }
func (s *Spawner) RespawnAt() float64      { return s.respawnAt }
func (s *Spawner) RespawnCount() int       { return s.respawnCount }
func (s *Spawner) ReadyToDisable() bool    { return s.readyToDisable }
func (s *Spawner) Retired() bool           { return s.retired }

// Instances returns the instances currently held by the wave, in slot order.
func (s *Spawner) Instances() []*pool.Instance {
	out := make([]*pool.Instance, 0, s.alive)
	for _, inst := range s.slots {
		if inst != nil {
			out = append(out, inst)
		}
	}
	return out
}

// Initialize resets every counter and enters Respawning. Anything still
// held is force-released first.
func (s *Spawner) Initialize() {
	if s.alive > 0 {
		s.ForceRemoveEntities()
	}
	s.toSpawn, s.spawned, s.alive, s.killed = 0, 0, 0, 0
	s.allKilled = false
	s.respawnAt = -1
	s.respawnCount = 0
	s.readyToDisable = false
	s.retired = false
	s.stalled = false
	s.state = StateRespawning
}

// CanRespawn reports whether Respawn has work to do this tick. A wave in
// progress always does; an idle spawner needs its conditions, an empty
// field, an expired respawn timer and a visible area.
func (s *Spawner) CanRespawn() bool {
	switch s.state {
	case StateCreatingInstances, StateActivatingInstances:
		return true
	case StateRespawning:
	default:
		return false
	}
	if s.retired {
		return false
	}

	now, score := s.progress()
	if s.readyToDisable || s.readyToDisableAt(now, score) {
		s.readyToDisable = true
		if s.alive == 0 {
			s.retire("disabled")
		}
		return false
	}
	if !s.readyToSpawnAt(now, score) {
		return false
	}
	if s.alive != 0 || now <= s.respawnAt {
		return false
	}
	if v := s.deps.Visibility; v != nil && !v.InsideActivationArea(s.cfg.Area) {
		return false
	}
	return true
}

// Respawn advances the wave by one step and reports whether it is alive.
// Leaving Respawning starts creating in the same call. Non-progressive
// kinds run creation and activation to completion.
func (s *Spawner) Respawn() bool {
	if s.state == StateRespawning {
		s.beginWave()
	}
	switch s.state {
	case StateCreatingInstances:
		s.create()
		if !s.kind.Progressive() && s.state == StateActivatingInstances {
			s.activate()
		}
	case StateActivatingInstances:
		s.activate()
	}
	return s.state == StateAlive
}

// RemoveEntity takes inst out of the wave and returns it to its pool.
// It returns false if inst does not belong to this spawner.
func (s *Spawner) RemoveEntity(inst *pool.Instance, killedByPlayer bool) bool {
	slot := s.slotOf(inst)
	if slot < 0 {
		if inst != nil {
			s.log.Warn("remove of unknown instance", zap.Uint64("entity", uint64(inst.ID)))
		}
		return false
	}
	if killedByPlayer {
		s.killed++
	}
	s.alive--
	if s.activated[slot] {
		s.activated[slot] = false
		if s.deps.Entities != nil {
			s.deps.Entities.UnregisterEntity(inst)
		}
	} else if s.state == StateActivatingInstances {
		s.state = StateCreatingInstances
	}
	s.slots[slot] = nil
	s.release(inst)

	if s.alive == 0 && s.toSpawn > 0 && s.spawned == s.toSpawn {
		s.finishWave(inst)
	}
	return true
}

// ForceRemoveEntities releases everything the wave holds, ignoring the
// budget, and returns to Respawning with a fresh wave pending.
func (s *Spawner) ForceRemoveEntities() {
	for i, inst := range s.slots {
		if inst == nil {
			continue
		}
		if s.activated[i] && s.deps.Entities != nil {
			s.deps.Entities.UnregisterEntity(inst)
		}
		s.activated[i] = false
		s.slots[i] = nil
		s.release(inst)
	}
	s.toSpawn, s.spawned, s.alive, s.killed = 0, 0, 0, 0
	s.allKilled = false
	s.respawnAt = -1
	s.state = StateRespawning
}

// ForceReset drains the wave and reinitializes the spawner.
func (s *Spawner) ForceReset() {
	s.ForceRemoveEntities()
	s.Initialize()
}

// ResetSpawnTimer lets the next wave start without waiting.
func (s *Spawner) ResetSpawnTimer() { s.respawnAt = -1 }

func (s *Spawner) beginWave() {
	if s.killed == s.toSpawn {
		s.toSpawn = s.kind.BatchSize(s.deps.Rand)
	} else {
		// survivors left play without being killed; bring back only those
		s.toSpawn -= s.killed
	}
	s.toSpawn = min(max(s.toSpawn, 1), len(s.slots))
	s.spawned, s.alive, s.killed = 0, 0, 0
	s.allKilled = false
	s.respawnAt = -1
	if ws, ok := s.kind.(WaveStarter); ok {
		ws.BeginWave(s.toSpawn, s.deps.Rand)
	}
	s.state = StateCreatingInstances
}

func (s *Spawner) create() {
	progressive := s.kind.Progressive()
	for s.alive < s.toSpawn {
		if progressive && s.budgetExhausted() {
			break
		}
		slot := s.freeSlot()
		h := s.kind.HandleFor(slot)
		if h == nil {
			s.stall("no pool for slot", nil)
			break
		}
		inst, err := h.Acquire(false)
		if err != nil {
			if !errors.Is(err, pool.ErrExhausted) {
				s.stall("acquire failed", err)
			}
			break
		}
		inst.Owner = s
		s.slots[slot] = inst
		s.alive++
	}
	if s.alive == s.toSpawn {
		s.stalled = false
		s.spawned = s.countActivated()
		s.state = StateActivatingInstances
	}
}

func (s *Spawner) activate() {
	progressive := s.kind.Progressive()
	for i := 0; i < s.toSpawn; i++ {
		inst := s.slots[i]
		if inst == nil || s.activated[i] {
			continue
		}
		if progressive && s.budgetExhausted() {
			return
		}
		s.activateSlot(i, inst)
	}
	if s.spawned == s.toSpawn {
		event.Emit(s.deps.Bus, event.BatchRespawned{SpawnerID: s.cfg.ID, Count: s.toSpawn})
		s.state = StateAlive
	}
}

func (s *Spawner) activateSlot(i int, inst *pool.Instance) {
	inst.SetActive(true)
	s.kind.Place(s, i, inst, s.deps.Rand)
	s.activated[i] = true
	s.spawned++

	if s.deps.Entities != nil {
		s.deps.Entities.RegisterEntity(inst)
	}
	for _, a := range inst.Attachments {
		if sp, ok := a.(Spawnable); ok {
			sp.OnSpawn(s)
		}
	}
	event.Emit(s.deps.Bus, event.EntitySpawned{
		SpawnerID: s.cfg.ID,
		EntityID:  inst.ID,
		Prototype: inst.Name,
		X:         inst.X,
		Y:         inst.Y,
	})
}

func (s *Spawner) finishWave(last *pool.Instance) {
	s.allKilled = s.killed == s.toSpawn
	if s.allKilled {
		if s.cfg.FlockBonus > 0 {
			event.Emit(s.deps.Bus, event.FlockEaten{
				SpawnerID: s.cfg.ID,
				X:         last.X,
				Y:         last.Y,
				Score:     s.cfg.FlockBonus * s.killed,
			})
		}
		now, _ := s.progress()
		s.respawnAt = now + s.cfg.SpawnTime.Random(s.deps.Rand)
		if s.cfg.MaxSpawns > 0 {
			s.respawnCount++
		}
	} else {
		s.respawnAt = -1
	}

	if s.deps.Observer != nil {
		s.deps.Observer.WaveFinished(s.kind.Name(), s.allKilled)
	}
	event.Emit(s.deps.Bus, event.BatchRemoved{
		SpawnerID:         s.cfg.ID,
		Count:             s.toSpawn,
		Killed:            s.killed,
		AllKilledByPlayer: s.allKilled,
	})
	s.state = StateRespawning

	switch {
	case s.cfg.MaxSpawns > 0 && s.respawnCount >= s.cfg.MaxSpawns:
		s.retire("max spawns")
	case s.readyToDisable:
		s.retire("disabled")
	}
}

func (s *Spawner) retire(reason string) {
	if s.retired {
		return
	}
	s.retired = true
	if s.dir != nil {
		s.dir.Unregister(s)
	}
	event.Emit(s.deps.Bus, event.SpawnerRetired{SpawnerID: s.cfg.ID, Reason: reason})
	s.log.Info("spawner retired", zap.String("reason", reason), zap.Int("waves", s.respawnCount))
}

func (s *Spawner) release(inst *pool.Instance) {
	inst.Owner = nil
	if err := s.deps.Registry.Release(inst); err != nil {
		s.log.Debug("release to pool", zap.String("prototype", inst.Name), zap.Error(err))
	}
}

func (s *Spawner) stall(msg string, err error) {
	if s.stalled {
		return
	}
	s.stalled = true
	s.log.Warn(msg, zap.Int("alive", s.alive), zap.Int("to_spawn", s.toSpawn), zap.Error(err))
}

func (s *Spawner) progress() (float64, float64) {
	if s.deps.Clock == nil {
		return 0, 0
	}
	return s.deps.Clock.Elapsed(), s.deps.Clock.Score()
}

func (s *Spawner) readyToSpawnAt(now, score float64) bool {
	if !s.cfg.Triggers.IsReadyToSpawn(now, score) {
		return false
	}
	return s.deps.Conditions == nil || s.deps.Conditions.IsReadyToSpawn(now, score)
}

func (s *Spawner) readyToDisableAt(now, score float64) bool {
	if s.cfg.Triggers.IsReadyToDisable(now, score) {
		return true
	}
	return s.deps.Conditions != nil && s.deps.Conditions.IsReadyToDisable(now, score)
}

func (s *Spawner) budgetExhausted() bool {
	return s.deps.Budget != nil && s.deps.Budget.Exhausted()
}

func (s *Spawner) slotOf(inst *pool.Instance) int {
	if inst == nil {
		return -1
	}
	for i, held := range s.slots {
		if held == inst {
			return i
		}
	}
	return -1
}

func (s *Spawner) freeSlot() int {
	for i := 0; i < s.toSpawn; i++ {
		if s.slots[i] == nil {
			return i
		}
	}
	return s.toSpawn
}

func (s *Spawner) countActivated() int {
	n := 0
	for _, a := range s.activated {
		if a {
			n++
		}
	}
	return n
}
