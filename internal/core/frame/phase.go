package frame

// Stage defines execution ordering within a single frame. The bridge's
// correctness arguments lean on this order: every script callback in a frame
// reads the same snapshot, collision commands apply between pair tests, and
// regular commands apply only after all callbacks have run.
type Stage int

const (
	StageSnapshot  Stage = iota // 0: rebuild the frame snapshot, swap events
	StageInput                  // 1: derive digital input edges
	StageScript                 // 2: scene update callback
	StageIntegrate              // 3: movement integration, follow anchoring
	StageCollision              // 4: pair tests + rule dispatch + nested drains
	StagePhase                  // 5: phase updates + transition commits
	StageTimer                  // 6: timers and timed-effect expiry
	StageApply                  // 7: regular command drain
	StageOutput                 // 8: render/audio handoff
	StageCleanup                // 9: destroy queued entities
)

// System is the interface every frame system implements. dt is the frame
// delta in seconds, already clamped by the host loop.
type System interface {
	Stage() Stage
	Update(dt float64)
}

// Func adapts a plain function into a System at a fixed stage.
type Func struct {
	At Stage
	Fn func(dt float64)
}

func (f Func) Stage() Stage      { return f.At }
func (f Func) Update(dt float64) { f.Fn(dt) }
