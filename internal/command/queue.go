package command

// Queue is an ordered, growable buffer of pending commands. Script bindings
// may only append; the frame driver drains. Single-goroutine access.
type Queue struct {
	pending []Command
}

func NewQueue() *Queue {
	return &Queue{pending: make([]Command, 0, 32)}
}

// Push appends a command. Never fails, never blocks.
func (q *Queue) Push(cmd Command) {
	q.pending = append(q.pending, cmd)
}

// Drain atomically empties the queue and returns its contents in insertion
// order. Draining an empty queue returns nil and leaves the queue unchanged.
// The returned slice is owned by the caller; the queue keeps its backing
// capacity for the next frame.
func (q *Queue) Drain() []Command {
	if len(q.pending) == 0 {
		return nil
	}
	drained := q.pending
	q.pending = make([]Command, 0, cap(drained))
	return drained
}

// Len reports the number of pending commands.
func (q *Queue) Len() int {
	return len(q.pending)
}

// Clear discards pending commands without applying them.
func (q *Queue) Clear() {
	q.pending = q.pending[:0]
}
