package pool

import (
	"fmt"
	"sort"

	"github.com/eapache/queue"
	"go.uber.org/zap"
)

// Key is the interned integer form of a prototype name.
type Key uint32

// Result labels what Acquire did, for metrics.
type Result string

const (
	ResultOK        Result = "ok"
	ResultGrown     Result = "grown"
	ResultExhausted Result = "exhausted"
	ResultInvalid   Result = "invalid"
)

// Observer receives pool level changes. The metrics collector implements it.
type Observer interface {
	PoolChanged(name string, free, inUse int)
	Acquired(name string, result Result)
}

// DropObserver is an optional Observer extension told when the registry
// discards a pool.
type DropObserver interface {
	PoolDropped(name string)
}

// Options are the per-pool behaviour flags.
type Options struct {
	// Growable pools instantiate on demand when the free list is empty.
	Growable bool
	// Temporary pools are dropped or shrunk on level rebuild when no longer requested.
	Temporary bool
	// OwnsContainer means Clear also destroys the container.
	OwnsContainer bool
	// Container overrides the pool's private container.
	Container *Container
	Observer  Observer
}

// ObjectPool holds the free and in-use instances of one prototype.
// An instance belongs to exactly one of the two sets. Free instances are
// handed out oldest-released first.
type ObjectPool struct {
	key     Key
	name    string
	factory Factory
	log     *zap.Logger

	free  *queue.Queue
	inUse map[*Instance]uint64
	seq   uint64

	growable      bool
	temporary     bool
	ownsContainer bool
	container     *Container
	observer      Observer

	handles []*Handle
	cleared bool
}

// New builds a pool and pre-instantiates initial instances.
// If the factory fails part way, the pool keeps what it created and the error is returned.
func New(key Key, name string, factory Factory, initial int, opts Options, log *zap.Logger) (*ObjectPool, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := opts.Container
	owns := opts.OwnsContainer
	if c == nil {
		c = NewContainer(name)
		owns = true
	}
	p := &ObjectPool{
		key:           key,
		name:          name,
		factory:       factory,
		log:           log,
		free:          queue.New(),
		inUse:         make(map[*Instance]uint64),
		growable:      opts.Growable,
		temporary:     opts.Temporary,
		ownsContainer: owns,
		container:     c,
		observer:      opts.Observer,
	}
	if initial < 0 {
		initial = 0
	}
	err := p.grow(initial)
	p.notify()
	return p, err
}

func (p *ObjectPool) Key() Key              { return p.key }
func (p *ObjectPool) Name() string          { return p.name }
func (p *ObjectPool) Growable() bool        { return p.growable }
func (p *ObjectPool) Temporary() bool       { return p.temporary }
func (p *ObjectPool) Container() *Container { return p.container }
func (p *ObjectPool) Free() int             { return p.free.Length() }
func (p *ObjectPool) InUse() int            { return len(p.inUse) }
func (p *ObjectPool) Cleared() bool         { return p.cleared }

// Size is free plus in use.
func (p *ObjectPool) Size() int { return p.free.Length() + len(p.inUse) }

// SetGrowable changes the growth flag. Used when a later request upgrades the pool.
func (p *ObjectPool) SetGrowable(g bool) { p.growable = g }

// Acquire hands out the oldest free instance, growing the pool if allowed.
// The instance is activated only when activate is true.
func (p *ObjectPool) Acquire(activate bool) (*Instance, error) {
	if p.cleared {
		p.report(ResultInvalid)
		return nil, ErrInvalidHandle
	}
	var (
		inst   *Instance
		result = ResultOK
	)
	if p.free.Length() > 0 {
		inst = p.free.Remove().(*Instance)
	} else {
		if !p.growable {
			p.log.Debug("pool exhausted", zap.String("pool", p.name), zap.Int("size", p.Size()))
			p.report(ResultExhausted)
			return nil, ErrExhausted
		}
		var err error
		inst, err = p.instantiate()
		if err != nil {
			p.report(ResultExhausted)
			return nil, err
		}
		result = ResultGrown
	}
	p.seq++
	p.inUse[inst] = p.seq
	inst.SetParent(nil)
	inst.SetActive(activate)
	p.report(result)
	p.notify()
	return inst, nil
}

// Release returns inst to the back of the free list, deactivated and parented
// under the pool container. Instances not in use by this pool are rejected.
func (p *ObjectPool) Release(inst *Instance) error {
	if inst == nil {
		return ErrForeignInstance
	}
	if _, ok := p.inUse[inst]; !ok {
		p.log.Warn("release of instance not in use",
			zap.String("pool", p.name),
			zap.Uint64("entity", uint64(inst.ID)),
		)
		return ErrForeignInstance
	}
	delete(p.inUse, inst)
	p.park(inst)
	p.notify()
	return nil
}

// Resize sets the total size to n (clamped at zero). Shrinking destroys free
// instances first and only force-releases in-use ones, oldest acquisition
// first, when the free list alone cannot cover the shrink. A reclaimed
// instance with an Owner is removed through it so the owner lets go of it.
func (p *ObjectPool) Resize(n int) error {
	if p.cleared {
		return ErrInvalidHandle
	}
	if n < 0 {
		n = 0
	}
	size := p.Size()
	switch {
	case n > size:
		err := p.grow(n - size)
		p.notify()
		return err
	case n < size:
		excess := size - n
		if short := excess - p.free.Length(); short > 0 {
			for _, inst := range p.oldestInUse(short) {
				p.reclaim(inst)
			}
		}
		for i := 0; i < excess; i++ {
			p.factory.Destroy(p.free.Remove().(*Instance))
		}
		p.notify()
	}
	return nil
}

// Clear destroys every instance, free and in use, and invalidates all handles.
// In-use instances are reclaimed through their Owner first.
func (p *ObjectPool) Clear() {
	if p.cleared {
		return
	}
	for _, inst := range p.oldestInUse(len(p.inUse)) {
		p.reclaim(inst)
	}
	for p.free.Length() > 0 {
		p.factory.Destroy(p.free.Remove().(*Instance))
	}
	if p.ownsContainer {
		p.container.Destroy()
	}
	p.cleared = true
	for _, h := range p.handles {
		h.Invalidate()
	}
	p.handles = nil
	p.notify()
}

// Contains reports whether inst is currently in use from this pool.
func (p *ObjectPool) Contains(inst *Instance) bool {
	_, ok := p.inUse[inst]
	return ok
}

func (p *ObjectPool) attach(h *Handle) {
	p.handles = append(p.handles, h)
}

func (p *ObjectPool) grow(n int) error {
	for i := 0; i < n; i++ {
		inst, err := p.instantiate()
		if err != nil {
			return err
		}
		p.free.Add(inst)
	}
	return nil
}

func (p *ObjectPool) instantiate() (*Instance, error) {
	inst, err := p.factory.New()
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", p.name, err)
	}
	inst.Key = p.key
	inst.Name = p.name
	inst.SetActive(false)
	inst.SetParent(p.container)
	return inst, nil
}

// reclaim takes inst back from whoever holds it and parks it on the free list.
func (p *ObjectPool) reclaim(inst *Instance) {
	if owner := inst.Owner; owner != nil {
		owner.RemoveEntity(inst, false)
	}
	if _, held := p.inUse[inst]; held {
		delete(p.inUse, inst)
		p.park(inst)
	}
}

func (p *ObjectPool) park(inst *Instance) {
	inst.SetActive(false)
	inst.Owner = nil
	inst.SetParent(p.container)
	p.free.Add(inst)
}

// oldestInUse returns up to n in-use instances ordered by acquisition.
func (p *ObjectPool) oldestInUse(n int) []*Instance {
	all := make([]*Instance, 0, len(p.inUse))
	for inst := range p.inUse {
		all = append(all, inst)
	}
	sort.Slice(all, func(i, j int) bool { return p.inUse[all[i]] < p.inUse[all[j]] })
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

func (p *ObjectPool) report(r Result) {
	if p.observer != nil {
		p.observer.Acquired(p.name, r)
	}
}

func (p *ObjectPool) notify() {
	if p.observer != nil {
		p.observer.PoolChanged(p.name, p.free.Length(), len(p.inUse))
	}
}
