package level

import (
	"github.com/l1jgo/spawnpool/internal/pool"
	"github.com/l1jgo/spawnpool/internal/spawner"
	"github.com/l1jgo/spawnpool/internal/world"
)

// Hook names usable in the prototype table.
const (
	HookRail  = "rail"
	HookHome  = "home"
	HookDrift = "drift"
)

// Rail is the lane an instance of a flock travels on.
type Rail struct {
	Lane  int
	Lanes int
}

func (r *Rail) SetRail(rail, rails int) { r.Lane, r.Lanes = rail, rails }

// Home remembers the spawner that placed the instance.
type Home struct {
	SpawnerID int64
	X, Y      float64
}

func (h *Home) OnSpawn(sp *spawner.Spawner) {
	h.SpawnerID = sp.ID()
	h.X, h.Y = sp.X(), sp.Y()
}

// Drift moves an instance toward -x at a speed scaled by its size.
type Drift struct {
	Speed  float64
	VX, VY float64
	inst   *pool.Instance
}

func (d *Drift) OnSpawn(*spawner.Spawner) {
	d.VX = -d.Speed / max(d.inst.Scale, 0.1)
	d.VY = 0
}

// RegisterHooks installs the built-in attachments on a prototype resolver.
func RegisterHooks(p *world.Prototypes) {
	p.RegisterHook(HookRail, func(*pool.Instance) any { return &Rail{} })
	p.RegisterHook(HookHome, func(*pool.Instance) any { return &Home{} })
	p.RegisterHook(HookDrift, func(inst *pool.Instance) any { return &Drift{Speed: 2, inst: inst} })
}

func attachment[T any](inst *pool.Instance) (T, bool) {
	for _, a := range inst.Attachments {
		if v, ok := a.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
