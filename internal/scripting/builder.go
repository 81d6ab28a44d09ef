package scripting

import (
	"github.com/go-gl/mathgl/mgl64"
	lua "github.com/yuin/gopher-lua"

	"github.com/lunara/engine/internal/command"
)

const spawnBuilderType = "lunara.spawn_builder"

// spawnBuilder accumulates overrides for one spawn command. sim.spawn
// returns a fresh builder; build() enqueues the command and invalidates the
// builder so a second build cannot double-spawn.
type spawnBuilder struct {
	cmd   command.Spawn
	built bool
}

// newSpawnBuilder is the sim.spawn binding.
func (e *Engine) newSpawnBuilder(L *lua.LState) int {
	b := &spawnBuilder{
		cmd: command.Spawn{Archetype: L.CheckString(1)},
	}
	ud := L.NewUserData()
	ud.Value = b
	L.SetMetatable(ud, L.GetTypeMetatable(spawnBuilderType))
	L.Push(ud)
	return 1
}

// registerSpawnBuilderType installs the builder metatable once at engine
// construction.
func (e *Engine) registerSpawnBuilderType() {
	mt := e.vm.NewTypeMetatable(spawnBuilderType)
	e.vm.SetField(mt, "__index", e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"at":     builderAt,
		"vel":    builderVel,
		"phase":  builderPhase,
		"signal": builderSignal,
		"build":  e.builderBuild,
	}))
}

func checkBuilder(L *lua.LState) *spawnBuilder {
	ud := L.CheckUserData(1)
	if b, ok := ud.Value.(*spawnBuilder); ok {
		return b
	}
	L.ArgError(1, "spawn builder expected")
	return nil
}

func builderAt(L *lua.LState) int {
	b := checkBuilder(L)
	b.cmd.Position = mgl64.Vec2{float64(L.CheckNumber(2)), float64(L.CheckNumber(3))}
	b.cmd.HasPosition = true
	L.Push(L.Get(1))
	return 1
}

func builderVel(L *lua.LState) int {
	b := checkBuilder(L)
	b.cmd.Velocity = mgl64.Vec2{float64(L.CheckNumber(2)), float64(L.CheckNumber(3))}
	b.cmd.HasVelocity = true
	L.Push(L.Get(1))
	return 1
}

func builderPhase(L *lua.LState) int {
	b := checkBuilder(L)
	b.cmd.Phase = L.CheckString(2)
	L.Push(L.Get(1))
	return 1
}

func builderSignal(L *lua.LState) int {
	b := checkBuilder(L)
	if b.cmd.Signals == nil {
		b.cmd.Signals = make(map[string]float64, 4)
	}
	b.cmd.Signals[L.CheckString(2)] = float64(L.CheckNumber(3))
	L.Push(L.Get(1))
	return 1
}

// builderBuild finalizes the builder into a spawn command on the scope's
// queue. The entity handle is not known until the command applies next
// drain, so build returns nothing.
func (e *Engine) builderBuild(L *lua.LState) int {
	b := checkBuilder(L)
	if b.built {
		L.ArgError(1, "spawn builder already built")
		return 0
	}
	b.built = true
	e.mgr.Push(e.category(), b.cmd)
	return 0
}
