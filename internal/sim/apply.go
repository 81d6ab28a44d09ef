package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/lunara/engine/internal/command"
	"github.com/lunara/engine/internal/component"
	"github.com/lunara/engine/internal/core/event"
	"github.com/lunara/engine/internal/world"
)

func mgl2(x, y float64) mgl64.Vec2 {
	return mgl64.Vec2{x, y}
}

// apply executes drained commands in insertion order. Commands whose target
// handle no longer resolves are silent no-ops. Entities despawn mid-frame
// routinely and a stale handle is expected traffic, not an error.
func (d *Driver) apply(cmds []command.Command) {
	for _, c := range cmds {
		switch cmd := c.(type) {
		case command.SetVelocity:
			if t, ok := d.State.Transforms.Get(cmd.Target); ok && d.State.Alive(cmd.Target) {
				t.Velocity = cmd.Velocity
			}
		case command.SetPosition:
			if t, ok := d.State.Transforms.Get(cmd.Target); ok && d.State.Alive(cmd.Target) {
				t.Position = cmd.Position
			}
		case command.Despawn:
			d.State.Despawn(cmd.Target)
		case command.SetSignal:
			if d.State.Alive(cmd.Target) {
				d.State.SetSignal(cmd.Target, cmd.Key, cmd.Value)
			}
		case command.ClearSignal:
			if d.State.Alive(cmd.Target) {
				d.State.ClearSignal(cmd.Target, cmd.Key)
			}
		case command.AttachFollow:
			if d.State.Alive(cmd.Target) && d.State.Alive(cmd.Anchor) {
				d.State.Follows.Set(cmd.Target, &component.Follow{
					Target: uint64(cmd.Anchor),
					Offset: cmd.Offset,
				})
			}
		case command.DetachFollow:
			d.State.Follows.Remove(cmd.Target)
		case command.AddEffect:
			if d.State.Alive(cmd.Target) {
				d.State.AddEffect(cmd.Target, cmd.Name, cmd.Duration)
			}
		case command.RemoveEffect:
			if d.State.Alive(cmd.Target) {
				d.State.RemoveEffect(cmd.Target, cmd.Name)
			}
		case command.RequestPhase:
			d.Machine.Request(cmd.Target, cmd.State)
		case command.SetValue:
			d.State.Scalars[cmd.Key] = cmd.Value
		case command.SetInt:
			d.State.Ints[cmd.Key] = cmd.Value
		case command.SetString:
			d.State.Strings[cmd.Key] = cmd.Value
		case command.SetFlag:
			d.State.Flags[cmd.Key] = cmd.Value
		case command.Spawn:
			d.spawnFromArchetype(cmd)
		case command.PlaySound:
			event.Emit(d.Bus, event.SoundRequested{Name: cmd.Name})
		case command.StartTimer:
			d.timers[cmd.Name] = &timer{
				remaining: cmd.Seconds,
				interval:  cmd.Seconds,
				repeating: cmd.Repeating,
			}
		case command.CancelTimer:
			delete(d.timers, cmd.Name)
		}
	}
}

// spawnFromArchetype resolves the archetype template, folds in builder
// overrides, instantiates the entity, and attaches its initial phase.
func (d *Driver) spawnFromArchetype(cmd command.Spawn) {
	tpl := d.Archetypes.Get(cmd.Archetype)
	if tpl == nil {
		d.log.Debug("spawn references unknown archetype", zap.String("archetype", cmd.Archetype))
		return
	}

	spec := world.SpawnSpec{
		Group:     tpl.Group,
		Sheet:     tpl.Sheet,
		Animation: tpl.Animation,
	}
	if tpl.HasBox() {
		spec.HasBox = true
		spec.BoxSize = mgl2(tpl.BoxW, tpl.BoxH)
		spec.BoxOffset = mgl2(tpl.BoxOX, tpl.BoxOY)
	}
	if cmd.HasPosition {
		spec.Position = cmd.Position
	}
	if cmd.HasVelocity {
		spec.Velocity = cmd.Velocity
	}
	if len(tpl.Signals) > 0 || len(cmd.Signals) > 0 {
		spec.Signals = make(map[string]float64, len(tpl.Signals)+len(cmd.Signals))
		for k, v := range tpl.Signals {
			spec.Signals[k] = v
		}
		for k, v := range cmd.Signals {
			spec.Signals[k] = v
		}
	}

	id := d.State.Spawn(spec)

	initial := tpl.Phase
	if cmd.Phase != "" {
		initial = cmd.Phase
	}
	if initial != "" {
		d.Machine.Attach(id, initial)
	}
}
