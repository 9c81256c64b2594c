package ecs

// Removable is a per-entity store the Registry clears when an entity is destroyed.
type Removable interface {
	Remove(id EntityID)
}

// Store keeps one value per entity. The backing instance of a pooled entity
// lives here so destroying the entity drops it too.
type Store[T any] struct {
	byID map[EntityID]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{byID: make(map[EntityID]*T, 256)}
}

func (s *Store[T]) Set(id EntityID, v *T) { s.byID[id] = v }
func (s *Store[T]) Remove(id EntityID)    { delete(s.byID, id) }
func (s *Store[T]) Len() int              { return len(s.byID) }

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	v, ok := s.byID[id]
	return v, ok
}
