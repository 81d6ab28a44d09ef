package scripting

import (
	"github.com/go-gl/mathgl/mgl64"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/lunara/engine/internal/command"
	"github.com/lunara/engine/internal/core/ecs"
)

// Entity handles cross the boundary as Lua numbers. float64 represents
// integers exactly up to 2^53, which covers the packed index+generation
// range for any realistic session.
func checkEntity(L *lua.LState, pos int) ecs.EntityID {
	return ecs.EntityID(uint64(L.CheckNumber(pos)))
}

// installBindings publishes the global sim namespace: snapshot read
// accessors, command appenders, the spawn builder, and callback
// registration. Argument errors raised by the Check* helpers abort the
// script call at the boundary and surface through the protected-call log.
func (e *Engine) installBindings() {
	sim := e.vm.NewTable()
	e.vm.SetGlobal("sim", sim)

	reg := func(name string, fn lua.LGFunction) {
		sim.RawSetString(name, e.vm.NewFunction(fn))
	}

	// --- Snapshot read accessors -------------------------------------

	reg("value", func(L *lua.LState) int {
		if v, ok := e.cache.Current().Scalar(L.CheckString(1)); ok {
			L.Push(lua.LNumber(v))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	})

	reg("int", func(L *lua.LState) int {
		if v, ok := e.cache.Current().Int(L.CheckString(1)); ok {
			L.Push(lua.LNumber(v))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	})

	reg("str", func(L *lua.LState) int {
		if v, ok := e.cache.Current().String(L.CheckString(1)); ok {
			L.Push(lua.LString(v))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	})

	reg("flag", func(L *lua.LState) int {
		if v, ok := e.cache.Current().Flag(L.CheckString(1)); ok {
			L.Push(lbool(v))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	})

	reg("count", func(L *lua.LState) int {
		L.Push(lua.LNumber(e.cache.Current().GroupCount(L.CheckString(1))))
		return 1
	})

	// --- Global value commands ---------------------------------------

	reg("set_value", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.SetValue{
			Key:   L.CheckString(1),
			Value: float64(L.CheckNumber(2)),
		})
		return 0
	})

	reg("set_int", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.SetInt{
			Key:   L.CheckString(1),
			Value: int64(L.CheckNumber(2)),
		})
		return 0
	})

	reg("set_str", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.SetString{
			Key:   L.CheckString(1),
			Value: L.CheckString(2),
		})
		return 0
	})

	reg("set_flag", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.SetFlag{
			Key:   L.CheckString(1),
			Value: L.CheckBool(2),
		})
		return 0
	})

	// --- Entity commands ---------------------------------------------

	reg("set_velocity", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.SetVelocity{
			Target:   checkEntity(L, 1),
			Velocity: mgl64.Vec2{float64(L.CheckNumber(2)), float64(L.CheckNumber(3))},
		})
		return 0
	})

	reg("set_position", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.SetPosition{
			Target:   checkEntity(L, 1),
			Position: mgl64.Vec2{float64(L.CheckNumber(2)), float64(L.CheckNumber(3))},
		})
		return 0
	})

	reg("despawn", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.Despawn{Target: checkEntity(L, 1)})
		return 0
	})

	reg("set_signal", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.SetSignal{
			Target: checkEntity(L, 1),
			Key:    L.CheckString(2),
			Value:  float64(L.CheckNumber(3)),
		})
		return 0
	})

	reg("clear_signal", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.ClearSignal{
			Target: checkEntity(L, 1),
			Key:    L.CheckString(2),
		})
		return 0
	})

	reg("follow", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.AttachFollow{
			Target: checkEntity(L, 1),
			Anchor: checkEntity(L, 2),
			Offset: mgl64.Vec2{float64(L.OptNumber(3, 0)), float64(L.OptNumber(4, 0))},
		})
		return 0
	})

	reg("unfollow", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.DetachFollow{Target: checkEntity(L, 1)})
		return 0
	})

	reg("effect", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.AddEffect{
			Target:   checkEntity(L, 1),
			Name:     L.CheckString(2),
			Duration: float64(L.CheckNumber(3)),
		})
		return 0
	})

	reg("clear_effect", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.RemoveEffect{
			Target: checkEntity(L, 1),
			Name:   L.CheckString(2),
		})
		return 0
	})

	reg("phase_to", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.RequestPhase{
			Target: checkEntity(L, 1),
			State:  L.CheckString(2),
		})
		return 0
	})

	reg("play_sound", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.PlaySound{Name: L.CheckString(1)})
		return 0
	})

	reg("timer", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.StartTimer{
			Name:      L.CheckString(1),
			Seconds:   float64(L.CheckNumber(2)),
			Repeating: L.OptBool(3, false),
		})
		return 0
	})

	reg("cancel_timer", func(L *lua.LState) int {
		e.mgr.Push(e.category(), command.CancelTimer{Name: L.CheckString(1)})
		return 0
	})

	reg("spawn", func(L *lua.LState) int {
		return e.newSpawnBuilder(L)
	})

	// --- Callback registration ---------------------------------------

	reg("on_update", func(L *lua.LState) int {
		e.sceneUpdate = L.CheckFunction(1)
		return 0
	})

	reg("on_collision", func(L *lua.LState) int {
		groupA := L.CheckString(1)
		groupB := L.CheckString(2)
		fn := L.CheckFunction(3)
		e.rules.Register(groupA, groupB, e.CollisionHandler(groupA, groupB, fn))
		return 0
	})

	reg("on_phase", func(L *lua.LState) int {
		state := L.CheckString(1)
		tbl := L.CheckTable(2)
		hooks := &phaseHooks{}
		if fn, ok := tbl.RawGetString("enter").(*lua.LFunction); ok {
			hooks.enter = fn
		}
		if fn, ok := tbl.RawGetString("update").(*lua.LFunction); ok {
			hooks.update = fn
		}
		if fn, ok := tbl.RawGetString("exit").(*lua.LFunction); ok {
			hooks.exit = fn
		}
		e.phases[state] = hooks
		return 0
	})

	reg("on_timer", func(L *lua.LState) int {
		name := L.CheckString(1)
		e.timers[name] = L.CheckFunction(2)
		return 0
	})

	e.log.Debug("sim bindings installed", zap.Int("api_version", 1))
}
