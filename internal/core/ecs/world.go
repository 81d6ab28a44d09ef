package ecs

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and a deferred destruction queue flushed at the end of each frame.
//
// Despawn is always deferred: collision callbacks and drained commands mark
// entities, and the marks are honored by skipping dead entities in later pair
// tests within the same frame. Components are torn down only at the flush.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 32),
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

// MarkForDestruction queues an entity for end-of-frame cleanup and
// immediately retires its handle, so the entity is skipped by every
// subsequent Alive check in the same frame.
func (w *World) MarkForDestruction(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	w.pool.Destroy(id)
	w.destroyQueue = append(w.destroyQueue, id)
}

// PendingDestroy exposes the entities queued for destruction this frame.
// Their components are still intact until FlushDestroyQueue runs.
func (w *World) PendingDestroy() []EntityID {
	return w.destroyQueue
}

// FlushDestroyQueue clears the components of all entities destroyed this
// frame. Called once per frame, after the regular command drain.
func (w *World) FlushDestroyQueue() {
	for _, id := range w.destroyQueue {
		w.registry.RemoveAll(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}
