package spawner

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/l1jgo/spawnpool/internal/pool"
)

// Kind is the per-variant strategy the state machine is driven by. One Kind
// value belongs to exactly one spawner.
type Kind interface {
	Name() string
	// Request declares pool demand for every prototype the kind uses and
	// keeps the returned handles. minSize is the level's default pool size.
	Request(reg *pool.Registry, minSize int)
	// MaxBatch is the size of the slot table.
	MaxBatch() int
	// BatchSize draws the size of a fresh wave.
	BatchSize(r *rand.Rand) int
	// HandleFor returns the pool to acquire slot's instance from.
	HandleFor(slot int) *pool.Handle
	// Place positions and scales a freshly activated instance.
	Place(sp *Spawner, slot int, inst *pool.Instance, r *rand.Rand)
	// Progressive kinds are sliced by the shared budget. The others finish
	// a wave's creation and activation in a single call.
	Progressive() bool
}

// WaveStarter kinds are told when a wave of size n begins.
type WaveStarter interface {
	BeginWave(n int, r *rand.Rand)
}

// Rotator kinds carry a position across waves that snapshots keep.
type Rotator interface {
	Rotation() int
	SetRotation(i int) bool
}

// Range is a float interval. Zero-width ranges are constants.
type Range struct {
	Min, Max float64
}

func (rg Range) Random(r *rand.Rand) float64 {
	if rg.Max <= rg.Min {
		return rg.Min
	}
	return rg.Min + r.Float64()*(rg.Max-rg.Min)
}

// IntRange is an inclusive integer interval.
type IntRange struct {
	Min, Max int
}

func (rg IntRange) Random(r *rand.Rand) int {
	if rg.Max <= rg.Min {
		return rg.Min
	}
	return rg.Min + r.IntN(rg.Max-rg.Min+1)
}

// Separation is how group members are spread around the origin.
type Separation int

const (
	SeparationSphere Separation = iota
	SeparationLine
)

func ParseSeparation(s string) (Separation, error) {
	switch s {
	case "", "sphere":
		return SeparationSphere, nil
	case "line":
		return SeparationLine, nil
	}
	return 0, fmt.Errorf("unknown home position method %q", s)
}

// HomePos spreads slot i>0 away from the spawner origin so members do not
// stack on one point. Odd and even slots go to opposite sides.
type HomePos struct {
	Method   Separation
	Distance Range
}

func (h HomePos) Displacement(slot int, r *rand.Rand) (float64, float64) {
	if slot <= 0 {
		return 0, 0
	}
	s := 1
	if slot%2 == 0 {
		s = -1
	}
	step := int(math.Floor(float64(slot*s)/2)) + s
	spread := h.Distance.Max - h.Distance.Min
	mag := float64(step) * (h.Distance.Min + (r.Float64()-0.5)*spread)
	if h.Method == SeparationLine {
		return mag, 0
	}
	a := r.Float64() * 2 * math.Pi
	return math.Cos(a) * mag, math.Sin(a) * mag
}

// Proto names one prototype and its optional resource path.
type Proto struct {
	Name string
	Path string
}

// Group spawns a flock of one prototype.
type Group struct {
	Proto    Proto
	Quantity IntRange
	Scale    Range
	Home     HomePos
	Rails    int

	// Immediate builds the whole wave in one call instead of slicing it.
	Immediate bool

	handle *pool.Handle
	rail   int
}

func (g *Group) Name() string { return "group" }

func (g *Group) Request(reg *pool.Registry, minSize int) {
	g.handle = reg.RequestPool(g.Proto.Name, g.Proto.Path, max(minSize, g.Quantity.Max))
}

func (g *Group) MaxBatch() int              { return max(1, g.Quantity.Max) }
func (g *Group) BatchSize(r *rand.Rand) int { return g.Quantity.Random(r) }
func (g *Group) HandleFor(int) *pool.Handle { return g.handle }
func (g *Group) Progressive() bool          { return !g.Immediate }

func (g *Group) Place(sp *Spawner, slot int, inst *pool.Instance, r *rand.Rand) {
	dx, dy := g.Home.Displacement(slot, r)
	inst.X, inst.Y = sp.X()+dx, sp.Y()+dy
	inst.Scale = scaleOf(g.Scale, r)

	rails := max(1, g.Rails)
	for _, a := range inst.Attachments {
		if rl, ok := a.(Railed); ok {
			rl.SetRail(g.rail, rails)
			g.rail = (g.rail + 1) % rails
		}
	}
}

// Roulette spawns one entity per wave, cycling through its prototypes.
type Roulette struct {
	Protos    []Proto
	Scale     Range
	Immediate bool

	handles []*pool.Handle
	current int
}

func (k *Roulette) Name() string { return "roulette" }

func (k *Roulette) Request(reg *pool.Registry, minSize int) {
	k.handles = k.handles[:0]
	for _, p := range k.Protos {
		k.handles = append(k.handles, reg.RequestPool(p.Name, p.Path, max(minSize, 1)))
	}
	k.current = -1
}

func (k *Roulette) MaxBatch() int            { return 1 }
func (k *Roulette) BatchSize(*rand.Rand) int { return 1 }
func (k *Roulette) Progressive() bool        { return !k.Immediate }

func (k *Roulette) BeginWave(int, *rand.Rand) {
	if len(k.handles) > 0 {
		k.current = (k.current + 1) % len(k.handles)
	}
}

// Current is the index of the prototype used by the running wave.
func (k *Roulette) Current() int { return k.current }

func (k *Roulette) Rotation() int { return k.current }

// SetRotation restores Current. -1 means no wave has started yet.
func (k *Roulette) SetRotation(i int) bool {
	if i < -1 || i >= len(k.Protos) {
		return false
	}
	k.current = i
	return true
}

func (k *Roulette) HandleFor(int) *pool.Handle {
	if k.current < 0 || k.current >= len(k.handles) {
		return nil
	}
	return k.handles[k.current]
}

func (k *Roulette) Place(sp *Spawner, _ int, inst *pool.Instance, r *rand.Rand) {
	inst.X, inst.Y = sp.X(), sp.Y()
	inst.Scale = scaleOf(k.Scale, r)
}

// Weighted is a prototype with a relative spawn chance.
type Weighted struct {
	Proto
	Chance float64
}

// Cluster spawns a star of mixed prototypes: slot 0 at the origin, the rest
// on a ring. Each slot draws its prototype by normalized chance.
type Cluster struct {
	Entries   []Weighted
	Quantity  IntRange
	Scale     Range
	Radius    float64
	Immediate bool

	handles []*pool.Handle
	picks   []int
	batch   int
}

func (k *Cluster) Name() string { return "cluster" }

// Normalize scales chances to sum to 100 and orders entries by ascending
// chance. Zero total chance means equal odds.
func (k *Cluster) Normalize() {
	total := 0.0
	for _, e := range k.Entries {
		total += e.Chance
	}
	for i := range k.Entries {
		if total > 0 {
			k.Entries[i].Chance *= 100 / total
		} else {
			k.Entries[i].Chance = 100 / float64(len(k.Entries))
		}
	}
	sort.SliceStable(k.Entries, func(i, j int) bool { return k.Entries[i].Chance < k.Entries[j].Chance })
}

func (k *Cluster) Request(reg *pool.Registry, minSize int) {
	k.Normalize()
	k.handles = k.handles[:0]
	for _, e := range k.Entries {
		k.handles = append(k.handles, reg.RequestPool(e.Name, e.Path, max(minSize, k.Quantity.Max)))
	}
	k.picks = make([]int, k.MaxBatch())
}

func (k *Cluster) MaxBatch() int              { return max(1, k.Quantity.Max) }
func (k *Cluster) BatchSize(r *rand.Rand) int { return k.Quantity.Random(r) }
func (k *Cluster) Progressive() bool          { return !k.Immediate }

func (k *Cluster) BeginWave(n int, r *rand.Rand) {
	k.batch = n
	for i := range k.picks {
		k.picks[i] = k.pick(r)
	}
}

// Pick returns the entry index drawn for slot.
func (k *Cluster) Pick(slot int) int { return k.picks[slot] }

func (k *Cluster) pick(r *rand.Rand) int {
	roll := r.Float64() * 100
	acc := 0.0
	for i, e := range k.Entries {
		acc += e.Chance
		if roll < acc {
			return i
		}
	}
	return len(k.Entries) - 1
}

func (k *Cluster) HandleFor(slot int) *pool.Handle {
	if len(k.handles) == 0 || slot >= len(k.picks) {
		return nil
	}
	return k.handles[k.picks[slot]]
}

func (k *Cluster) Place(sp *Spawner, slot int, inst *pool.Instance, r *rand.Rand) {
	inst.X, inst.Y = sp.X(), sp.Y()
	if slot > 0 && k.batch > 1 {
		a := 2 * math.Pi * float64(slot-1) / float64(k.batch-1)
		inst.X += math.Cos(a) * k.Radius
		inst.Y += math.Sin(a) * k.Radius
	}
	inst.Scale = scaleOf(k.Scale, r)
}

// Cage holds a single prisoner. It is built in one call so the cage and its
// occupant appear in the same tick.
type Cage struct {
	Proto Proto

	handle *pool.Handle
}

func (k *Cage) Name() string { return "cage" }

func (k *Cage) Request(reg *pool.Registry, minSize int) {
	k.handle = reg.RequestPool(k.Proto.Name, k.Proto.Path, max(minSize, 1))
}

func (k *Cage) MaxBatch() int              { return 1 }
func (k *Cage) BatchSize(*rand.Rand) int   { return 1 }
func (k *Cage) HandleFor(int) *pool.Handle { return k.handle }
func (k *Cage) Progressive() bool          { return false }

func (k *Cage) Place(sp *Spawner, _ int, inst *pool.Instance, _ *rand.Rand) {
	inst.X, inst.Y = sp.X(), sp.Y()
	inst.Scale = 1
}

func scaleOf(rg Range, r *rand.Rand) float64 {
	if rg.Min == 0 && rg.Max == 0 {
		return 1
	}
	return rg.Random(r)
}
