package pool

import "github.com/l1jgo/spawnpool/internal/core/ecs"

// Remover is whoever currently owns an active instance. Gameplay code calls
// RemoveEntity when the instance dies or leaves play.
type Remover interface {
	RemoveEntity(inst *Instance, killedByPlayer bool) bool
}

// Instance is one pooled entity. Pools track instances by pointer identity;
// ID is the ECS entity backing it and stays the same across reuse.
type Instance struct {
	ID   ecs.EntityID
	Key  Key
	Name string

	X     float64
	Y     float64
	Scale float64

	// Owner is set by the spawner that acquired the instance and cleared on release.
	Owner Remover

	// Attachments are per-instance behaviours built by the prototype factory.
	// Spawners notify the ones that implement their spawn hook.
	Attachments []any

	active bool
	parent *Container
}

func (i *Instance) Active() bool          { return i.active }
func (i *Instance) SetActive(active bool) { i.active = active }
func (i *Instance) Parent() *Container    { return i.parent }

// SetParent moves the instance under c, keeping both containers' counts right.
func (i *Instance) SetParent(c *Container) {
	if i.parent == c {
		return
	}
	if i.parent != nil {
		i.parent.count--
	}
	i.parent = c
	if c != nil {
		c.count++
	}
}

// Container is the scope pooled instances are parented under while free.
type Container struct {
	name      string
	count     int
	destroyed bool
}

func NewContainer(name string) *Container {
	return &Container{name: name}
}

func (c *Container) Name() string    { return c.name }
func (c *Container) Len() int        { return c.count }
func (c *Container) Destroyed() bool { return c.destroyed }
func (c *Container) Destroy()        { c.destroyed = true }

// Factory creates and destroys instances of one resolved prototype.
type Factory interface {
	New() (*Instance, error)
	Destroy(inst *Instance)
}

// Resolver turns a prototype name (and optional resource path) into a Factory.
type Resolver interface {
	Resolve(name, path string) (Factory, error)
}

// Unloader is implemented by resolvers that can release a prototype's
// resources once no pool uses it anymore.
type Unloader interface {
	Unload(name string)
}
