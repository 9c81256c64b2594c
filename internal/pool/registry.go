package pool

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Defaults are the flags RequestPool uses for new entries.
type Defaults struct {
	Growable  bool
	Temporary bool
}

type entry struct {
	key       Key
	name      string
	path      string
	size      int
	growable  bool
	temporary bool

	factory Factory
	pool    *ObjectPool
	handle  *Handle
}

// Registry maps prototype names to pools. Names are interned to Keys once;
// the per-tick paths (Handler, Release) only touch integer keys.
//
// Pools are built lazily: RequestPool records demand, Build/Rebuild
// materializes it.
type Registry struct {
	resolver Resolver
	defaults Defaults
	observer Observer
	log      *zap.Logger

	keys    map[string]Key
	names   []string
	entries map[Key]*entry
	order   []Key
}

func NewRegistry(resolver Resolver, defaults Defaults, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		resolver: resolver,
		defaults: defaults,
		log:      log,
		keys:     make(map[string]Key, 64),
		entries:  make(map[Key]*entry, 64),
	}
}

// SetObserver attaches an observer to every pool built from now on.
func (r *Registry) SetObserver(o Observer) { r.observer = o }

// Intern returns the key for name, allocating one on first use.
func (r *Registry) Intern(name string) Key {
	if k, ok := r.keys[name]; ok {
		return k
	}
	k := Key(len(r.names))
	r.names = append(r.names, name)
	r.keys[name] = k
	return k
}

// KeyOf looks up an interned name without allocating.
func (r *Registry) KeyOf(name string) (Key, bool) {
	k, ok := r.keys[name]
	return k, ok
}

// NameOf returns the name behind an interned key.
func (r *Registry) NameOf(k Key) string {
	if int(k) >= len(r.names) {
		return ""
	}
	return r.names[k]
}

// RequestPool records demand for size instances of name. Repeated requests
// keep the largest size. The returned handle is shared by every requester and
// becomes usable once the pool is built.
func (r *Registry) RequestPool(name, path string, size int) *Handle {
	e := r.entryFor(name, path, r.defaults.Growable, r.defaults.Temporary)
	if size > e.size {
		e.size = size
	}
	return e.handle
}

// DeclarePool records a prototype's own pool settings without building.
// The flags only take effect for a new entry, except growable which can be
// switched on later.
func (r *Registry) DeclarePool(name, path string, size int, growable, temporary bool) *Handle {
	e := r.entryFor(name, path, growable, temporary)
	if size > e.size {
		e.size = size
	}
	if growable && !e.growable {
		e.growable = true
		if e.pool != nil {
			e.pool.SetGrowable(true)
		}
	}
	return e.handle
}

// CreatePool is RequestPool followed by an immediate build of that entry.
// An already built pool is grown to the requested size if needed.
func (r *Registry) CreatePool(name, path string, size int, growable, temporary bool) (*Handle, error) {
	e := r.entryFor(name, path, growable, temporary)
	if size > e.size {
		e.size = size
	}
	if growable && !e.growable {
		e.growable = true
		if e.pool != nil {
			e.pool.SetGrowable(true)
		}
	}
	if e.pool == nil {
		return e.handle, r.materialize(e)
	}
	if e.size > e.pool.Size() {
		return e.handle, e.pool.Resize(e.size)
	}
	return e.handle, nil
}

// Build materializes every entry whose pool does not exist yet, using the
// accumulated request size. Unresolvable prototypes are logged and reported
// in the joined error; their handles keep failing with ErrUnresolved.
func (r *Registry) Build() error {
	var errs []error
	for _, k := range r.order {
		e := r.entries[k]
		if e.pool != nil {
			continue
		}
		if err := r.materialize(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rebuild reconciles built pools with the current requests. Temporary
// entries are shrunk or removed first, then every entry short of its target
// is grown or built.
func (r *Registry) Rebuild() error {
	kept := r.order[:0]
	for _, k := range r.order {
		e := r.entries[k]
		if !e.temporary {
			kept = append(kept, k)
			continue
		}
		if e.size == 0 {
			r.drop(e)
			continue
		}
		if e.pool != nil && e.pool.Size() > e.size {
			if err := e.pool.Resize(e.size); err != nil {
				r.log.Warn("shrink pool", zap.String("prototype", e.name), zap.Error(err))
			}
		}
		kept = append(kept, k)
	}
	r.order = kept

	var errs []error
	for _, k := range r.order {
		e := r.entries[k]
		if e.pool == nil {
			if err := r.materialize(e); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if e.size > e.pool.Size() {
			if err := e.pool.Resize(e.size); err != nil {
				errs = append(errs, fmt.Errorf("grow pool %s: %w", e.name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// ResetRequests zeroes the requested size of every temporary entry so the
// next round of RequestPool calls followed by Rebuild reflects only the new
// demand. Pools themselves are untouched until Rebuild.
func (r *Registry) ResetRequests() {
	for _, k := range r.order {
		if e := r.entries[k]; e.temporary {
			e.size = 0
		}
	}
}

// ResizePool resizes a built pool directly, bypassing the request cycle.
func (r *Registry) ResizePool(name string, n int) error {
	k, ok := r.keys[name]
	if !ok {
		return fmt.Errorf("resize %s: %w", name, ErrUnknownPool)
	}
	e, ok := r.entries[k]
	if !ok {
		return fmt.Errorf("resize %s: %w", name, ErrUnknownPool)
	}
	if e.pool == nil {
		return fmt.Errorf("resize %s: %w", name, ErrNotBuilt)
	}
	if n < 0 {
		n = 0
	}
	e.size = n
	return e.pool.Resize(n)
}

// Clear tears down temporary entries, or every entry when all is set.
// Their handles are invalidated.
func (r *Registry) Clear(all bool) {
	kept := r.order[:0]
	for _, k := range r.order {
		e := r.entries[k]
		if all || e.temporary {
			r.drop(e)
			continue
		}
		kept = append(kept, k)
	}
	r.order = kept
}

// GetHandler returns the handle for name without creating an entry.
func (r *Registry) GetHandler(name string) (*Handle, bool) {
	k, ok := r.keys[name]
	if !ok {
		return nil, false
	}
	return r.Handler(k)
}

// Handler is GetHandler by interned key.
func (r *Registry) Handler(k Key) (*Handle, bool) {
	e, ok := r.entries[k]
	if !ok {
		return nil, false
	}
	return e.handle, true
}

// ContainsPool reports whether an entry exists for name, built or not.
func (r *Registry) ContainsPool(name string) bool {
	k, ok := r.keys[name]
	if !ok {
		return false
	}
	_, ok = r.entries[k]
	return ok
}

// Release returns inst to the pool it was acquired from.
func (r *Registry) Release(inst *Instance) error {
	e, ok := r.entries[inst.Key]
	if !ok {
		r.log.Warn("release to unknown pool",
			zap.String("prototype", inst.Name),
			zap.Uint64("entity", uint64(inst.ID)),
		)
		return ErrUnknownPool
	}
	return e.handle.Release(inst)
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.order) }

// Stat is a point-in-time view of one entry.
type Stat struct {
	Name      string
	Target    int
	Size      int
	Free      int
	InUse     int
	Growable  bool
	Temporary bool
	Built     bool
}

// Stats lists every entry in creation order.
func (r *Registry) Stats() []Stat {
	out := make([]Stat, 0, len(r.order))
	for _, k := range r.order {
		e := r.entries[k]
		s := Stat{
			Name:      e.name,
			Target:    e.size,
			Growable:  e.growable,
			Temporary: e.temporary,
		}
		if e.pool != nil {
			s.Built = true
			s.Size = e.pool.Size()
			s.Free = e.pool.Free()
			s.InUse = e.pool.InUse()
		}
		out = append(out, s)
	}
	return out
}

func (r *Registry) entryFor(name, path string, growable, temporary bool) *entry {
	k := r.Intern(name)
	if e, ok := r.entries[k]; ok {
		if e.path == "" {
			e.path = path
		}
		return e
	}
	e := &entry{
		key:       k,
		name:      name,
		path:      path,
		growable:  growable,
		temporary: temporary,
		handle:    newHandle(k, name, r.log),
	}
	r.entries[k] = e
	r.order = append(r.order, k)
	return e
}

func (r *Registry) materialize(e *entry) error {
	if e.factory == nil {
		f, err := r.resolver.Resolve(e.name, e.path)
		if err != nil {
			err = fmt.Errorf("%w %q: %w", ErrUnresolved, e.name, err)
			r.log.Error("prototype resolution failed",
				zap.String("prototype", e.name),
				zap.String("path", e.path),
				zap.Error(err),
			)
			e.handle.fail(err)
			return err
		}
		e.factory = f
	}
	p, err := New(e.key, e.name, e.factory, e.size, Options{
		Growable:  e.growable,
		Temporary: e.temporary,
		Observer:  r.observer,
	}, r.log)
	e.pool = p
	e.handle.assign(p)
	if err != nil {
		r.log.Error("pool build incomplete",
			zap.String("prototype", e.name),
			zap.Int("built", p.Size()),
			zap.Int("target", e.size),
			zap.Error(err),
		)
		return fmt.Errorf("build pool %s: %w", e.name, err)
	}
	r.log.Debug("pool built",
		zap.String("prototype", e.name),
		zap.Int("size", e.size),
		zap.Bool("growable", e.growable),
		zap.Bool("temporary", e.temporary),
	)
	return nil
}

func (r *Registry) drop(e *entry) {
	if e.pool != nil {
		e.pool.Clear()
	}
	e.handle.Invalidate()
	delete(r.entries, e.key)
	if u, ok := r.resolver.(Unloader); ok && e.factory != nil {
		u.Unload(e.name)
	}
	if d, ok := r.observer.(DropObserver); ok && e.pool != nil {
		d.PoolDropped(e.name)
	}
}
