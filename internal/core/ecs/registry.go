package ecs

// Registry tracks every component store so a destroyed entity can be dropped
// from all of them at once.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 8),
	}
}

// Register adds a component store to the registry.
func (r *Registry) Register(store Removable) {
	r.stores = append(r.stores, store)
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}
