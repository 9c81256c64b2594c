package ecs

// World owns the entity pool, the component registry and a deferred destruction
// queue. Pools hand destroyed instances to MarkForDestruction; CleanupSystem
// flushes the queue at the end of the tick so nothing is freed mid-iteration.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// PendingDestruction returns how many entities are queued for the next flush.
func (w *World) PendingDestruction() int { return len(w.destroyQueue) }

// FlushDestroyQueue destroys all queued entities and drops their components.
// Returns the number of entities actually destroyed (duplicates are skipped).
func (w *World) FlushDestroyQueue() int {
	n := 0
	for _, id := range w.destroyQueue {
		if !w.pool.Alive(id) {
			continue
		}
		w.registry.RemoveAll(id)
		w.pool.Destroy(id)
		n++
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}
