// Package input derives per-frame digital edges from raw device state
// sampled by the host. The simulation core never polls devices itself.
package input

// Action is a logical input action name ("left", "jump", "fire", ...).
type Action = string

// ActionState holds one action's digital state for the current frame.
type ActionState struct {
	Pressed      bool
	JustPressed  bool
	JustReleased bool
}

// State is the frame-scoped input snapshot handed to the scene update
// callback. Axes are reserved for analog input; the current host only feeds
// digital actions.
type State struct {
	actions map[Action]ActionState
	axes    map[string]float64
}

func NewState() *State {
	return &State{
		actions: make(map[Action]ActionState, 16),
		axes:    make(map[string]float64, 4),
	}
}

// Sample ingests the raw held-down set for this frame and derives edges
// against the previous frame.
func (s *State) Sample(held map[Action]bool) {
	for name, st := range s.actions {
		down := held[name]
		s.actions[name] = ActionState{
			Pressed:      down,
			JustPressed:  down && !st.Pressed,
			JustReleased: !down && st.Pressed,
		}
	}
	for name, down := range held {
		if _, seen := s.actions[name]; !seen {
			s.actions[name] = ActionState{Pressed: down, JustPressed: down}
		}
	}
}

// Action returns the state of a logical action; unknown actions read as idle.
func (s *State) Action(name Action) ActionState {
	return s.actions[name]
}

// SetAxis records an analog axis value for the frame.
func (s *State) SetAxis(name string, value float64) {
	s.axes[name] = value
}

// Axis returns an analog axis value; unknown axes read as zero.
func (s *State) Axis(name string) float64 {
	return s.axes[name]
}

// Each visits every known action. Iteration order is unspecified.
func (s *State) Each(fn func(name Action, st ActionState)) {
	for name, st := range s.actions {
		fn(name, st)
	}
}
