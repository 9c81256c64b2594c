package world

import (
	"sort"

	"go.uber.org/zap"

	"github.com/l1jgo/spawnpool/internal/core/ecs"
	"github.com/l1jgo/spawnpool/internal/pool"
	"github.com/l1jgo/spawnpool/internal/spatial"
)

// State is the directory of activated entities. Spawners register an
// instance when it enters play and unregister it when it leaves.
// Accessed only from the simulation goroutine, no locks needed.
type State struct {
	live   map[ecs.EntityID]*pool.Instance
	list   []*pool.Instance
	aoi    *AOIGrid
	aoiBuf []ecs.EntityID
	log    *zap.Logger

	registered   uint64
	unregistered uint64
}

func NewState(cellSize float64, log *zap.Logger) *State {
	if log == nil {
		log = zap.NewNop()
	}
	return &State{
		live: make(map[ecs.EntityID]*pool.Instance, 256),
		list: make([]*pool.Instance, 0, 256),
		aoi:  NewAOIGrid(cellSize),
		log:  log,
	}
}

// RegisterEntity adds an activated instance. Duplicates are logged and ignored.
func (s *State) RegisterEntity(inst *pool.Instance) {
	if _, ok := s.live[inst.ID]; ok {
		s.log.Warn("entity registered twice", zap.Uint64("entity", uint64(inst.ID)))
		return
	}
	s.live[inst.ID] = inst
	s.list = append(s.list, inst)
	s.aoi.Add(inst.ID, inst.X, inst.Y)
	s.registered++
}

// UnregisterEntity removes an instance. Unknown ones are logged and ignored.
func (s *State) UnregisterEntity(inst *pool.Instance) {
	if _, ok := s.live[inst.ID]; !ok {
		s.log.Warn("unregister of unknown entity", zap.Uint64("entity", uint64(inst.ID)))
		return
	}
	delete(s.live, inst.ID)
	s.aoi.Remove(inst.ID, inst.X, inst.Y)
	// swap-delete, order of list is not meaningful
	for i, cur := range s.list {
		if cur == inst {
			s.list[i] = s.list[len(s.list)-1]
			s.list[len(s.list)-1] = nil
			s.list = s.list[:len(s.list)-1]
			break
		}
	}
	s.unregistered++
}

// MoveEntity updates an entity's position and AOI cell.
// All position changes of live entities MUST go through here.
func (s *State) MoveEntity(inst *pool.Instance, x, y float64) {
	if _, ok := s.live[inst.ID]; !ok {
		inst.X, inst.Y = x, y
		return
	}
	s.aoi.Move(inst.ID, inst.X, inst.Y, x, y)
	inst.X, inst.Y = x, y
}

// Get returns a live entity by ID.
func (s *State) Get(id ecs.EntityID) (*pool.Instance, bool) {
	inst, ok := s.live[id]
	return inst, ok
}

// InRect returns the live entities inside r, ordered by entity ID.
func (s *State) InRect(r spatial.Rect) []*pool.Instance {
	s.aoiBuf = s.aoi.QueryRectInto(r, s.aoiBuf)
	result := make([]*pool.Instance, 0, len(s.aoiBuf))
	for _, id := range s.aoiBuf {
		inst := s.live[id]
		if inst == nil || !r.Contains(inst.X, inst.Y) {
			continue
		}
		result = append(result, inst)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Each visits every live entity. fn must not register or unregister.
func (s *State) Each(fn func(*pool.Instance)) {
	for _, inst := range s.list {
		fn(inst)
	}
}

// Snapshot copies the live list so callers may remove entities while iterating.
func (s *State) Snapshot() []*pool.Instance {
	out := make([]*pool.Instance, len(s.list))
	copy(out, s.list)
	return out
}

// Count returns the number of live entities.
func (s *State) Count() int { return len(s.live) }

// Totals returns lifetime register and unregister counts.
func (s *State) Totals() (registered, unregistered uint64) {
	return s.registered, s.unregistered
}
