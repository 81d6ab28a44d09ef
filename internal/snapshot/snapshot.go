// Package snapshot provides the immutable, frame-scoped view of shared
// global state. The cache rebuilds once per frame before any script callback
// runs; every read within the frame observes the same values, even when a
// queued command will change them. The change lands next rebuild.
package snapshot

import "github.com/lunara/engine/internal/world"

// Snapshot is a deep copy of the store's named values and tracked-group
// counts. Never mutated after publication.
type Snapshot struct {
	scalars map[string]float64
	ints    map[string]int64
	strings map[string]string
	flags   map[string]bool
	counts  map[string]int
	frame   uint64
}

// Frame returns the frame number this snapshot was published for.
func (s *Snapshot) Frame() uint64 { return s.frame }

func (s *Snapshot) Scalar(key string) (float64, bool) {
	v, ok := s.scalars[key]
	return v, ok
}

func (s *Snapshot) Int(key string) (int64, bool) {
	v, ok := s.ints[key]
	return v, ok
}

func (s *Snapshot) String(key string) (string, bool) {
	v, ok := s.strings[key]
	return v, ok
}

func (s *Snapshot) Flag(key string) (bool, bool) {
	v, ok := s.flags[key]
	return v, ok
}

// GroupCount returns the tracked membership count for a group. Untracked
// groups report zero.
func (s *Snapshot) GroupCount(group string) int {
	return s.counts[group]
}

// Cache holds the current snapshot and rebuilds it at frame boundaries.
type Cache struct {
	current *Snapshot
	frame   uint64
}

func NewCache() *Cache {
	return &Cache{current: &Snapshot{
		scalars: map[string]float64{},
		ints:    map[string]int64{},
		strings: map[string]string{},
		flags:   map[string]bool{},
		counts:  map[string]int{},
	}}
}

// Rebuild deep-copies the store's named values and tracked-group counts into
// a fresh snapshot and publishes it, replacing the previous one wholesale.
func (c *Cache) Rebuild(src *world.State) {
	c.frame++
	next := &Snapshot{
		scalars: make(map[string]float64, len(src.Scalars)),
		ints:    make(map[string]int64, len(src.Ints)),
		strings: make(map[string]string, len(src.Strings)),
		flags:   make(map[string]bool, len(src.Flags)),
		counts:  make(map[string]int, len(src.TrackedGroups)),
		frame:   c.frame,
	}
	for k, v := range src.Scalars {
		next.scalars[k] = v
	}
	for k, v := range src.Ints {
		next.ints[k] = v
	}
	for k, v := range src.Strings {
		next.strings[k] = v
	}
	for k, v := range src.Flags {
		next.flags[k] = v
	}
	for _, g := range src.TrackedGroups {
		next.counts[g] = src.GroupCount(g)
	}
	c.current = next
}

// Current returns the published snapshot. Valid until the next Rebuild.
func (c *Cache) Current() *Snapshot {
	return c.current
}
