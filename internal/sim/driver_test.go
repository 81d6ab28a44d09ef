package sim

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lunara/engine/internal/command"
	"github.com/lunara/engine/internal/component"
	"github.com/lunara/engine/internal/config"
	"github.com/lunara/engine/internal/core/ecs"
	"github.com/lunara/engine/internal/core/event"
	"github.com/lunara/engine/internal/data"
	"github.com/lunara/engine/internal/world"
)

func testArchetypes() *data.ArchetypeTable {
	return data.NewArchetypeTable([]data.Archetype{
		{Name: "ball", Group: "ball", BoxW: 8, BoxH: 8, Phase: "moving"},
		{Name: "brick", Group: "brick", BoxW: 16, BoxH: 8, Signals: map[string]float64{"hp": 1}},
		{Name: "paddle", Group: "paddle", BoxW: 32, BoxH: 8},
	})
}

func newDriver(t *testing.T) *Driver {
	t.Helper()
	d := New(config.Defaults(), testArchetypes(), zap.NewNop())
	t.Cleanup(d.Engine.Close)
	return d
}

func spawnAt(d *Driver, group string, x, y, w, h float64) ecs.EntityID {
	return d.State.Spawn(world.SpawnSpec{
		Group:    group,
		Position: mgl64.Vec2{x, y},
		HasBox:   true,
		BoxSize:  mgl64.Vec2{w, h},
	})
}

func TestCollisionRuleDespawnsBrickSameFrame(t *testing.T) {
	d := newDriver(t)
	require.NoError(t, d.Engine.DoString(`
		sim.on_collision("ball", "brick", function(ctx)
			assert(ctx.a.group == "ball")
			assert(ctx.b.group == "brick")
			assert(ctx.sides.a.bottom and not ctx.sides.a.top)
			assert(ctx.sides.b.top and not ctx.sides.b.bottom)
			sim.despawn(ctx.b.id)
			sim.set_value("score", (sim.value("score") or 0) + 10)
		end)
	`))

	// ball rect (0,0)-(8,8) just above brick rect (0,6)-(16,14)
	ball := spawnAt(d, "ball", 0, 0, 8, 8)
	brick := spawnAt(d, "brick", 0, 6, 16, 8)

	d.Step(0.016, nil)

	assert.True(t, d.State.Alive(ball))
	assert.False(t, d.State.Alive(brick))
	// collision-scoped commands applied before the frame ended
	assert.Equal(t, 10.0, d.State.Scalars["score"])
	assert.Zero(t, d.Manager.Pending(command.Collision))
}

func TestScriptedSpawnCreatesEntityWithPhase(t *testing.T) {
	d := newDriver(t)
	require.NoError(t, d.Engine.DoString(`
		spawned = false
		sim.on_update(function(dt)
			if not spawned then
				spawned = true
				sim.spawn("ball"):at(120, 40):vel(30, -10):build()
			end
		end)
	`))

	d.Step(0.016, nil)

	require.Equal(t, 1, d.State.GroupCount("ball"))
	var id ecs.EntityID
	d.State.Groups.Each(func(eid ecs.EntityID, g *component.Group) {
		if g.Name == "ball" {
			id = eid
		}
	})

	tr, ok := d.State.Transforms.Get(id)
	require.True(t, ok)
	// one integration step already ran after the spawn applied, so the
	// position is still the requested one; movement starts next frame
	assert.Equal(t, mgl64.Vec2{120, 40}, tr.Position)
	assert.Equal(t, mgl64.Vec2{30, -10}, tr.Velocity)

	p, ok := d.Machine.Get(id)
	require.True(t, ok)
	assert.Equal(t, "moving", p.Current)
}

func TestSpawnUnknownArchetypeIsNoop(t *testing.T) {
	d := newDriver(t)
	d.Manager.Push(command.Regular, command.Spawn{Archetype: "ghost"})
	d.Step(0.016, nil)
	assert.Zero(t, d.State.Transforms.Len())
}

func TestPhaseTransitionAndDespawnThroughDriver(t *testing.T) {
	d := newDriver(t)
	require.NoError(t, d.Engine.DoString(`
		sim.on_phase("moving", {
			update = function(ctx, dt)
				ctx.to("lost")
			end,
		})
		sim.on_phase("lost", {
			enter = function(ctx)
				sim.despawn(ctx.id)
			end,
		})
	`))

	id := spawnAt(d, "ball", 0, 0, 8, 8)
	d.Machine.Attach(id, "moving")

	d.Step(0.016, nil)

	// the transition committed and the enter callback's despawn applied in
	// the same frame's regular drain
	assert.False(t, d.State.Alive(id))
}

func TestOneShotTimerFiresOnce(t *testing.T) {
	d := newDriver(t)
	require.NoError(t, d.Engine.DoString(`
		fires = 0
		sim.timer("restart", 0.05)
		sim.on_timer("restart", function(name)
			fires = fires + 1
			sim.set_flag("restarted", true)
		end)
	`))

	d.Step(0.03, nil) // registers the timer via the regular drain
	assert.Len(t, d.timers, 1)

	d.Step(0.03, nil)
	d.Step(0.03, nil) // expires here: 0.06 elapsed since registration
	d.Step(0.03, nil)

	require.NoError(t, d.Engine.DoString(`assert(fires == 1)`))
	assert.True(t, d.State.Flags["restarted"])
	assert.Empty(t, d.timers)
}

func TestRepeatingTimerKeepsFiring(t *testing.T) {
	d := newDriver(t)
	require.NoError(t, d.Engine.DoString(`
		fires = 0
		sim.timer("pulse", 0.05, true)
		sim.on_timer("pulse", function() fires = fires + 1 end)
	`))

	d.Step(0.016, nil) // registration frame
	for i := 0; i < 10; i++ {
		d.Step(0.016, nil) // 0.16s elapsed, three expirations
	}

	require.NoError(t, d.Engine.DoString(`assert(fires == 3)`))
	assert.Len(t, d.timers, 1) // still armed
}

func TestCancelTimer(t *testing.T) {
	d := newDriver(t)
	require.NoError(t, d.Engine.DoString(`
		fires = 0
		sim.timer("restart", 0.05)
		sim.on_timer("restart", function() fires = fires + 1 end)
	`))
	d.Step(0.016, nil)
	require.NoError(t, d.Engine.DoString(`sim.cancel_timer("restart")`))
	d.Step(0.016, nil) // cancel applies in this frame's drain
	d.Step(0.1, nil)

	require.NoError(t, d.Engine.DoString(`assert(fires == 0)`))
	assert.Empty(t, d.timers)
}

func TestFollowAnchorsAndSilentlyDetaches(t *testing.T) {
	d := newDriver(t)
	anchor := spawnAt(d, "paddle", 100, 200, 32, 8)
	follower := spawnAt(d, "ball", 0, 0, 8, 8)

	d.Manager.Push(command.Regular, command.AttachFollow{
		Target: follower,
		Anchor: anchor,
		Offset: mgl64.Vec2{12, -8},
	})
	d.Step(0.016, nil) // attach applies at end of this frame
	d.Step(0.016, nil) // integration re-anchors here

	tr, ok := d.State.Transforms.Get(follower)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec2{112, 192}, tr.Position)

	d.State.Despawn(anchor)
	d.Step(0.016, nil)

	assert.False(t, d.State.Follows.Has(follower))
	tr, _ = d.State.Transforms.Get(follower)
	assert.Equal(t, mgl64.Vec2{112, 192}, tr.Position) // keeps last anchored spot
}

func TestEffectExpiryEmitsEvent(t *testing.T) {
	d := newDriver(t)
	id := spawnAt(d, "ball", 0, 0, 8, 8)
	d.State.AddEffect(id, "trail", 0.05)
	d.State.SetSignal(id, "trail", 1)

	var expired []string
	event.Subscribe(d.Bus, func(ev event.EffectExpired) {
		assert.Equal(t, id, ev.EntityID)
		expired = append(expired, ev.Name)
	})

	d.Step(0.03, nil)
	assert.Empty(t, expired)

	d.Step(0.03, nil) // expires, event lands in the back buffer
	d.Step(0.016, nil)
	assert.Equal(t, []string{"trail"}, expired)

	eff, ok := d.State.Effects.Get(id)
	require.True(t, ok)
	assert.Empty(t, eff.Active)

	// the effect's same-named signal was cleared with it
	sig, ok := d.State.Signals.Get(id)
	require.True(t, ok)
	_, present := sig.Values["trail"]
	assert.False(t, present)
}

func TestPlaySoundReachesAudioBridge(t *testing.T) {
	d := newDriver(t)
	require.NoError(t, d.Engine.DoString(`
		played = false
		sim.on_update(function(dt)
			if not played then
				played = true
				sim.play_sound("bounce")
			end
		end)
	`))

	d.Step(0.016, nil) // command applies, event queued
	d.Step(0.016, nil) // event dispatched, bridge send

	select {
	case cmd := <-d.Audio.Commands():
		assert.Equal(t, "bounce", cmd.Name)
	default:
		t.Fatal("expected a queued audio command")
	}
}

func TestPhaseChangeEmitsEvent(t *testing.T) {
	d := newDriver(t)
	require.NoError(t, d.Engine.DoString(`
		sim.on_phase("moving", {
			update = function(ctx, dt) ctx.to("lost") end,
		})
	`))

	id := spawnAt(d, "ball", 0, 0, 8, 8)
	d.Machine.Attach(id, "moving")

	var changes []string
	event.Subscribe(d.Bus, func(ev event.PhaseChanged) {
		changes = append(changes, ev.From+"->"+ev.To)
	})

	d.Step(0.016, nil) // transition commits, event queued
	d.Step(0.016, nil) // delivered
	assert.Equal(t, []string{"moving->lost"}, changes)
}

func TestDespawnEmitsEntityDespawned(t *testing.T) {
	d := newDriver(t)
	id := spawnAt(d, "brick", 0, 0, 16, 8)

	var gone []string
	event.Subscribe(d.Bus, func(ev event.EntityDespawned) {
		gone = append(gone, ev.Group)
	})

	d.State.Despawn(id)
	d.Step(0.016, nil) // flush happens here, event queued
	d.Step(0.016, nil) // delivered
	assert.Equal(t, []string{"brick"}, gone)
}

func TestLoadSceneAndTeardown(t *testing.T) {
	d := newDriver(t)
	scene := &data.Scene{
		Name: "test",
		Spawns: []data.SceneSpawn{
			{Archetype: "brick", X: 0, Y: 0, Count: 3, StepX: 20},
			{Archetype: "paddle", X: 100, Y: 230},
		},
		Scalars: map[string]float64{"speed": 140},
		Flags:   map[string]bool{"won": false},
		Tracked: []string{"brick"},
	}

	d.LoadScene(scene)

	assert.Equal(t, 3, d.State.GroupCount("brick"))
	assert.Equal(t, 1, d.State.GroupCount("paddle"))
	assert.Equal(t, 140.0, d.State.Scalars["speed"])
	assert.Equal(t, []string{"brick"}, d.State.TrackedGroups)

	// brick row stepped on x
	xs := map[float64]bool{}
	d.State.Groups.Each(func(id ecs.EntityID, g *component.Group) {
		if g.Name != "brick" {
			return
		}
		if tr, ok := d.State.Transforms.Get(id); ok {
			xs[tr.Position.X()] = true
		}
	})
	assert.Equal(t, map[float64]bool{0: true, 20: true, 40: true}, xs)

	d.Manager.Push(command.Regular, command.SetValue{Key: "stale", Value: 1})
	d.Teardown()
	assert.Zero(t, d.State.GroupCount("brick"))
	assert.Zero(t, d.State.GroupCount("paddle"))
	assert.Zero(t, d.Manager.Pending(command.Regular))
}

func TestSnapshotCountsVisibleToScripts(t *testing.T) {
	d := newDriver(t)
	d.State.TrackGroup("brick")
	spawnAt(d, "brick", 0, 0, 16, 8)
	spawnAt(d, "brick", 20, 0, 16, 8)

	require.NoError(t, d.Engine.DoString(`
		seen = -1
		sim.on_update(function(dt) seen = sim.count("brick") end)
	`))

	d.Step(0.016, nil)
	require.NoError(t, d.Engine.DoString(`assert(seen == 2)`))
}
