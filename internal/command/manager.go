package command

// Category names a command queue. Regular commands apply once per frame,
// after all per-frame script callbacks; collision commands apply immediately
// after each collision-rule callback returns.
type Category int

const (
	Regular Category = iota
	Collision
	categoryCount
)

func (c Category) String() string {
	switch c {
	case Regular:
		return "regular"
	case Collision:
		return "collision"
	}
	return "unknown"
}

// Manager owns all command queues. It knows nothing about applying commands;
// that is the frame driver's job.
type Manager struct {
	queues [categoryCount]*Queue
}

func NewManager() *Manager {
	m := &Manager{}
	for i := range m.queues {
		m.queues[i] = NewQueue()
	}
	return m
}

// Push appends a command to the named queue.
func (m *Manager) Push(cat Category, cmd Command) {
	m.queues[cat].Push(cmd)
}

// Drain atomically empties the named queue, preserving insertion order.
func (m *Manager) Drain(cat Category) []Command {
	return m.queues[cat].Drain()
}

// Pending reports the number of queued commands in a category.
func (m *Manager) Pending(cat Category) int {
	return m.queues[cat].Len()
}

// ClearAll discards every pending command without applying it. Used on scene
// teardown so stale mutations never leak into the next scene.
func (m *Manager) ClearAll() {
	for _, q := range m.queues {
		q.Clear()
	}
}
