// Package sim owns the frame driver: the single simulation goroutine that
// rebuilds the snapshot, integrates movement, runs collision dispatch, steps
// the phase machine, expires timers and effects, and drains the regular
// command queue, in that order, every frame.
package sim

import (
	"go.uber.org/zap"

	"github.com/lunara/engine/internal/audio"
	"github.com/lunara/engine/internal/collision"
	"github.com/lunara/engine/internal/command"
	"github.com/lunara/engine/internal/component"
	"github.com/lunara/engine/internal/config"
	"github.com/lunara/engine/internal/core/ecs"
	"github.com/lunara/engine/internal/core/event"
	"github.com/lunara/engine/internal/core/frame"
	"github.com/lunara/engine/internal/data"
	"github.com/lunara/engine/internal/input"
	"github.com/lunara/engine/internal/phase"
	"github.com/lunara/engine/internal/scripting"
	"github.com/lunara/engine/internal/snapshot"
	"github.com/lunara/engine/internal/world"
)

// timer is one named script timer. Timers are global to the scene, not
// per-entity; per-entity timing lives in phase time_in and timed effects.
type timer struct {
	remaining float64
	interval  float64
	repeating bool
}

// Driver is the frame driver. It is the only component allowed to mutate the
// entity store, and it does so exclusively by applying drained commands and
// running integration.
type Driver struct {
	State      *world.State
	Manager    *command.Manager
	Cache      *snapshot.Cache
	Rules      *collision.Rules
	Detector   *collision.Detector
	Machine    *phase.Machine
	Engine     *scripting.Engine
	Bus        *event.Bus
	Audio      *audio.Bridge
	Input      *input.State
	Archetypes *data.ArchetypeTable

	timers map[string]*timer
	frame  uint64
	runner *frame.Runner
	held   map[string]bool // raw input for the frame in flight
	log    *zap.Logger
}

// New wires a complete driver from config. The scripting engine is created
// here too so the callback plumbing (detector → engine → queues → driver)
// stays in one place.
func New(cfg *config.Config, archetypes *data.ArchetypeTable, log *zap.Logger) *Driver {
	d := &Driver{
		State:      world.NewState(),
		Manager:    command.NewManager(),
		Cache:      snapshot.NewCache(),
		Rules:      collision.NewRules(),
		Bus:        event.NewBus(),
		Input:      input.NewState(),
		Archetypes: archetypes,
		timers:     make(map[string]*timer, 8),
		log:        log,
	}
	d.Audio = audio.NewBridge(cfg.Audio.CommandBuffer, cfg.Audio.StatusBuffer, log)
	d.Machine = phase.NewMachine(d.State, cfg.Phase.ChainCap, log)
	d.Engine = scripting.NewEngine(scripting.Options{
		Manager: d.Manager,
		Cache:   d.Cache,
		Rules:   d.Rules,
		State:   d.State,
		Input:   d.Input,
		Log:     log,
	})
	d.Engine.SetPhaseMachine(d.Machine)
	d.Machine.SetCallbacks(d.Engine)
	d.Detector = collision.NewDetector(d.State, d.Rules, cfg.Collision.ContactEpsilon,
		d.flushCollision, log)

	event.Subscribe(d.Bus, func(ev event.SoundRequested) {
		d.Audio.Play(ev.Name)
	})
	d.Machine.OnTransition(func(id ecs.EntityID, from, to string) {
		event.Emit(d.Bus, event.PhaseChanged{EntityID: id, From: from, To: to})
	})

	d.runner = frame.NewRunner()
	for _, sys := range []frame.Func{
		{At: frame.StageSnapshot, Fn: d.stageSnapshot},
		{At: frame.StageInput, Fn: func(float64) { d.Input.Sample(d.held) }},
		{At: frame.StageScript, Fn: d.Engine.InvokeSceneUpdate},
		{At: frame.StageIntegrate, Fn: d.integrate},
		{At: frame.StageCollision, Fn: func(float64) { d.Detector.Run() }},
		{At: frame.StagePhase, Fn: d.Machine.Step},
		{At: frame.StageTimer, Fn: d.stageTimers},
		{At: frame.StageApply, Fn: func(float64) { d.apply(d.Manager.Drain(command.Regular)) }},
		{At: frame.StageOutput, Fn: d.stageOutput},
		{At: frame.StageCleanup, Fn: d.stageCleanup},
	} {
		d.runner.Register(sys)
	}
	return d
}

// Frame returns the number of completed frames.
func (d *Driver) Frame() uint64 { return d.frame }

// flushCollision drains the collision queue and applies it. Wired into the
// detector so every rule callback's commands land before the next pair test.
func (d *Driver) flushCollision() {
	d.apply(d.Manager.Drain(command.Collision))
}

// Step advances the simulation by dt seconds. held is the raw digital input
// state sampled by the host for this frame; nil means no input changes.
func (d *Driver) Step(dt float64, held map[string]bool) {
	d.frame++
	d.held = held
	d.runner.Tick(dt)
}

// stageSnapshot is the frame boundary: last frame's events, then a fresh
// immutable snapshot.
func (d *Driver) stageSnapshot(float64) {
	d.Bus.SwapBuffers()
	d.Bus.DispatchAll()
	d.Cache.Rebuild(d.State)
}

func (d *Driver) stageTimers(dt float64) {
	d.tickTimers(dt)
	d.tickEffects(dt)
}

func (d *Driver) stageOutput(float64) {
	for _, st := range d.Audio.Poll() {
		d.log.Debug("audio status", zap.String("name", st.Name), zap.Bool("done", st.Done))
	}
}

func (d *Driver) stageCleanup(float64) {
	for _, id := range d.State.World.PendingDestroy() {
		event.Emit(d.Bus, event.EntityDespawned{EntityID: id, Group: d.State.GroupOf(id)})
	}
	d.State.World.FlushDestroyQueue()
}

// integrate advances positions by velocity and re-anchors followers.
// Movement is deliberately simple; the interesting part is that it runs
// before collision so rules see post-move geometry.
func (d *Driver) integrate(dt float64) {
	d.State.Transforms.Each(func(id ecs.EntityID, t *component.Transform) {
		if !d.State.Alive(id) {
			return
		}
		t.Position = t.Position.Add(t.Velocity.Mul(dt))
	})

	var detach []ecs.EntityID
	ecs.Each2(d.State.Follows, d.State.Transforms,
		func(id ecs.EntityID, f *component.Follow, t *component.Transform) {
			anchor := ecs.EntityID(f.Target)
			if !d.State.Alive(anchor) {
				detach = append(detach, id) // anchor despawned: detach silently
				return
			}
			at, ok := d.State.Transforms.Get(anchor)
			if !ok {
				detach = append(detach, id)
				return
			}
			t.Position = at.Position.Add(f.Offset)
		})
	for _, id := range detach {
		d.State.Follows.Remove(id)
	}
}

// tickTimers counts down named timers and fires expirations. Expired
// one-shots are removed before the callback runs, so a callback restarting
// its own timer behaves as a fresh registration.
func (d *Driver) tickTimers(dt float64) {
	var expired []string
	for name, tm := range d.timers {
		tm.remaining -= dt
		if tm.remaining <= 0 {
			expired = append(expired, name)
		}
	}
	for _, name := range expired {
		tm := d.timers[name]
		if tm.repeating {
			tm.remaining += tm.interval
			if tm.remaining <= 0 {
				tm.remaining = tm.interval
			}
		} else {
			delete(d.timers, name)
		}
		d.Engine.InvokeTimer(name)
	}
}

// tickEffects counts down per-entity timed effects and removes expired ones.
// An effect's same-named signal, if any, is cleared on expiry so scripts can
// key buffs off signal presence.
func (d *Driver) tickEffects(dt float64) {
	d.State.Effects.Each(func(id ecs.EntityID, eff *component.Effects) {
		if !d.State.Alive(id) {
			return
		}
		kept := eff.Active[:0]
		for _, e := range eff.Active {
			e.Remaining -= dt
			if e.Remaining > 0 {
				kept = append(kept, e)
				continue
			}
			d.State.ClearSignal(id, e.Name)
			event.Emit(d.Bus, event.EffectExpired{EntityID: id, Name: e.Name})
		}
		eff.Active = kept
	})
}

// LoadScene instantiates a scene definition: global values, tracked groups,
// and initial spawns. Existing entities and pending commands are torn down
// first so nothing stale leaks into the new scene.
func (d *Driver) LoadScene(scene *data.Scene) {
	d.Teardown()

	for k, v := range scene.Scalars {
		d.State.Scalars[k] = v
	}
	for k, v := range scene.Ints {
		d.State.Ints[k] = v
	}
	for k, v := range scene.Strings {
		d.State.Strings[k] = v
	}
	for k, v := range scene.Flags {
		d.State.Flags[k] = v
	}
	for _, g := range scene.Tracked {
		d.State.TrackGroup(g)
	}

	for _, sp := range scene.Spawns {
		count := sp.Count
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			d.spawnFromArchetype(command.Spawn{
				Archetype:   sp.Archetype,
				Position:    mgl2(sp.X+float64(i)*sp.StepX, sp.Y+float64(i)*sp.StepY),
				HasPosition: true,
				Velocity:    mgl2(sp.VX, sp.VY),
				HasVelocity: sp.VX != 0 || sp.VY != 0,
			})
		}
	}
	d.log.Info("scene loaded", zap.String("scene", scene.Name),
		zap.Int("spawns", len(scene.Spawns)))
}

// Teardown discards pending commands and timers and despawns every entity.
// Collision rules and script registrations survive; they belong to the
// loaded scripts, not the scene instance.
func (d *Driver) Teardown() {
	d.Manager.ClearAll()
	d.timers = make(map[string]*timer, 8)
	d.Audio.StopAll()

	var all []ecs.EntityID
	d.State.Groups.Each(func(id ecs.EntityID, _ *component.Group) {
		all = append(all, id)
	})
	d.State.Transforms.Each(func(id ecs.EntityID, _ *component.Transform) {
		all = append(all, id)
	})
	for _, id := range all {
		d.State.Despawn(id)
	}
	d.State.World.FlushDestroyQueue()
}
