package world

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/spawnpool/internal/core/ecs"
	"github.com/l1jgo/spawnpool/internal/data"
	"github.com/l1jgo/spawnpool/internal/pool"
)

// HookFactory builds one attachment for a new instance.
type HookFactory func(inst *pool.Instance) any

// Prototypes resolves prototype names from the prototype table into pool
// factories. Every pooled instance is an ECS entity; its Instance component
// lives in an ecs.Store so a destroyed entity drops it automatically.
type Prototypes struct {
	table    *data.PrototypeTable
	world    *ecs.World
	store    *ecs.Store[pool.Instance]
	hooks    map[string]HookFactory
	resolved map[string]*factory
	log      *zap.Logger
}

func NewPrototypes(table *data.PrototypeTable, w *ecs.World, log *zap.Logger) *Prototypes {
	if log == nil {
		log = zap.NewNop()
	}
	store := ecs.NewStore[pool.Instance]()
	w.Registry().Register(store)
	return &Prototypes{
		table:    table,
		world:    w,
		store:    store,
		hooks:    make(map[string]HookFactory),
		resolved: make(map[string]*factory),
		log:      log,
	}
}

// RegisterHook makes an attachment available to prototypes by name.
func (p *Prototypes) RegisterHook(name string, fn HookFactory) {
	p.hooks[name] = fn
}

// Resolve implements pool.Resolver. A non-empty path must match the table entry.
func (p *Prototypes) Resolve(name, path string) (pool.Factory, error) {
	if f, ok := p.resolved[name]; ok {
		return f, nil
	}
	proto := p.table.Get(name)
	if proto == nil {
		return nil, fmt.Errorf("prototype %q not in table", name)
	}
	if path != "" && proto.Path != "" && path != proto.Path {
		return nil, fmt.Errorf("prototype %q: path %q does not match %q", name, path, proto.Path)
	}
	hooks := make([]HookFactory, 0, len(proto.Hooks))
	for _, h := range proto.Hooks {
		fn, ok := p.hooks[h]
		if !ok {
			return nil, fmt.Errorf("prototype %q: unknown hook %q", name, h)
		}
		hooks = append(hooks, fn)
	}
	f := &factory{owner: p, proto: proto, hooks: hooks}
	p.resolved[name] = f
	p.log.Debug("prototype resolved", zap.String("prototype", name), zap.Int("hooks", len(hooks)))
	return f, nil
}

// Unload forgets a resolved prototype. Called by the registry when its pool is dropped.
func (p *Prototypes) Unload(name string) {
	if _, ok := p.resolved[name]; ok {
		delete(p.resolved, name)
		p.log.Debug("prototype unloaded", zap.String("prototype", name))
	}
}

// Loaded reports whether name is currently resolved.
func (p *Prototypes) Loaded(name string) bool {
	_, ok := p.resolved[name]
	return ok
}

// Lookup returns the instance backing an entity.
func (p *Prototypes) Lookup(id ecs.EntityID) (*pool.Instance, bool) {
	return p.store.Get(id)
}

// Instances returns how many pooled instances currently exist.
func (p *Prototypes) Instances() int { return p.store.Len() }

type factory struct {
	owner *Prototypes
	proto *data.Prototype
	hooks []HookFactory
}

func (f *factory) New() (*pool.Instance, error) {
	id := f.owner.world.CreateEntity()
	inst := &pool.Instance{ID: id, Scale: f.proto.Scale}
	for _, h := range f.hooks {
		inst.Attachments = append(inst.Attachments, h(inst))
	}
	f.owner.store.Set(id, inst)
	return inst, nil
}

// Destroy defers the entity's destruction to the end of the tick.
func (f *factory) Destroy(inst *pool.Instance) {
	f.owner.world.MarkForDestruction(inst.ID)
}
