package spawner

import "go.uber.org/zap"

// Directory holds the active spawners of a level and ticks them in
// registration order. Spawners may unregister themselves (or others) while
// being ticked.
type Directory struct {
	spawners  []*Spawner
	enabled   bool
	iterating bool
	dirty     bool
	log       *zap.Logger
}

func NewDirectory(log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{
		spawners: make([]*Spawner, 0, 128),
		log:      log,
	}
}

// Register adds sp and initializes it.
func (d *Directory) Register(sp *Spawner) {
	sp.dir = d
	d.spawners = append(d.spawners, sp)
	sp.Initialize()
}

// Unregister removes sp. Safe to call from inside Tick.
func (d *Directory) Unregister(sp *Spawner) bool {
	for i, cur := range d.spawners {
		if cur != sp {
			continue
		}
		sp.dir = nil
		if d.iterating {
			d.spawners[i] = nil
			d.dirty = true
		} else {
			d.spawners = append(d.spawners[:i], d.spawners[i+1:]...)
		}
		return true
	}
	return false
}

// Tick gives every spawner one CanRespawn/Respawn step. Spawners registered
// during the tick wait for the next one.
func (d *Directory) Tick() {
	if !d.enabled {
		return
	}
	d.iterating = true
	n := len(d.spawners)
	for i := 0; i < n; i++ {
		sp := d.spawners[i]
		if sp == nil {
			continue
		}
		if sp.CanRespawn() {
			sp.Respawn()
		}
	}
	d.iterating = false
	if d.dirty {
		d.compact()
	}
}

// ForEach visits registered spawners in order.
func (d *Directory) ForEach(fn func(*Spawner)) {
	for _, sp := range d.spawners {
		if sp != nil {
			fn(sp)
		}
	}
}

// Find returns the spawner with the given id.
func (d *Directory) Find(id int64) (*Spawner, bool) {
	for _, sp := range d.spawners {
		if sp != nil && sp.ID() == id {
			return sp, true
		}
	}
	return nil, false
}

func (d *Directory) Len() int {
	n := 0
	for _, sp := range d.spawners {
		if sp != nil {
			n++
		}
	}
	return n
}

func (d *Directory) Enabled() bool { return d.enabled }

func (d *Directory) Enable() { d.enabled = true }

// Disable stops ticking and drains every spawner.
func (d *Directory) Disable() {
	d.enabled = false
	d.ForEach(func(sp *Spawner) { sp.ForceRemoveEntities() })
}

// Clear unregisters every spawner.
func (d *Directory) Clear() {
	for _, sp := range d.spawners {
		if sp != nil {
			sp.dir = nil
		}
	}
	d.spawners = d.spawners[:0]
	d.dirty = false
}

// StateCounts returns how many spawners are in each state.
func (d *Directory) StateCounts() map[State]int {
	out := make(map[State]int, len(States))
	for _, st := range States {
		out[st] = 0
	}
	d.ForEach(func(sp *Spawner) { out[sp.State()]++ })
	return out
}

func (d *Directory) compact() {
	kept := d.spawners[:0]
	for _, sp := range d.spawners {
		if sp != nil {
			kept = append(kept, sp)
		}
	}
	for i := len(kept); i < len(d.spawners); i++ {
		d.spawners[i] = nil
	}
	d.spawners = kept
	d.dirty = false
	d.log.Debug("spawner directory compacted", zap.Int("spawners", len(kept)))
}
