package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/lunara/engine/internal/collision"
	"github.com/lunara/engine/internal/core/ecs"
	"github.com/lunara/engine/internal/input"
)

// contextPool holds the reusable Lua tables passed to script callbacks.
// Every table is repopulated in place before each dispatch, and fields that
// do not apply to the current occupant are explicitly nulled so stale data
// never leaks through. A context is valid only for the duration of the
// callback it was passed to; scripts that hold one across frames read
// overwritten data. That contract is the documented price of allocation-free
// dispatch on the hot path.
type contextPool struct {
	vm *lua.LState

	phaseCtx *lua.LTable
	phaseSig *lua.LTable

	collCtx   *lua.LTable
	sideA     *lua.LTable
	sideB     *lua.LTable
	rectA     *lua.LTable
	rectB     *lua.LTable
	sigA      *lua.LTable
	sigB      *lua.LTable
	sidesTbl  *lua.LTable
	flagsA    *lua.LTable
	flagsB    *lua.LTable

	inputCtx    *lua.LTable
	inputStates map[string]*lua.LTable
}

func newContextPool(vm *lua.LState) *contextPool {
	p := &contextPool{
		vm:          vm,
		phaseCtx:    vm.NewTable(),
		phaseSig:    vm.NewTable(),
		collCtx:     vm.NewTable(),
		sideA:       vm.NewTable(),
		sideB:       vm.NewTable(),
		rectA:       vm.NewTable(),
		rectB:       vm.NewTable(),
		sigA:        vm.NewTable(),
		sigB:        vm.NewTable(),
		sidesTbl:    vm.NewTable(),
		flagsA:      vm.NewTable(),
		flagsB:      vm.NewTable(),
		inputCtx:    vm.NewTable(),
		inputStates: make(map[string]*lua.LTable, 16),
	}
	p.collCtx.RawSetString("a", p.sideA)
	p.collCtx.RawSetString("b", p.sideB)
	p.collCtx.RawSetString("sides", p.sidesTbl)
	p.sidesTbl.RawSetString("a", p.flagsA)
	p.sidesTbl.RawSetString("b", p.flagsB)
	p.sideA.RawSetString("rect", p.rectA)
	p.sideB.RawSetString("rect", p.rectB)
	return p
}

// clearTable removes every key from a pooled table so a previous occupant's
// entries cannot survive into the next population.
func clearTable(t *lua.LTable) {
	var keys []lua.LValue
	t.ForEach(func(k, _ lua.LValue) {
		keys = append(keys, k)
	})
	for _, k := range keys {
		t.RawSet(k, lua.LNil)
	}
}

func lbool(v bool) lua.LValue {
	if v {
		return lua.LTrue
	}
	return lua.LFalse
}

// packCollision fills the pooled two-sided collision context.
func (p *contextPool) packCollision(pair *collision.Pair) *lua.LTable {
	p.packSide(p.sideA, p.rectA, p.sigA, &pair.A)
	p.packSide(p.sideB, p.rectB, p.sigB, &pair.B)
	p.packFlags(p.flagsA, pair.A.Contact)
	p.packFlags(p.flagsB, pair.B.Contact)
	return p.collCtx
}

func (p *contextPool) packSide(tbl, rect, sig *lua.LTable, s *collision.Side) {
	tbl.RawSetString("id", lua.LNumber(s.Entity))
	tbl.RawSetString("group", lua.LString(s.Group))
	tbl.RawSetString("x", lua.LNumber(s.Position.X()))
	tbl.RawSetString("y", lua.LNumber(s.Position.Y()))
	tbl.RawSetString("vx", lua.LNumber(s.Velocity.X()))
	tbl.RawSetString("vy", lua.LNumber(s.Velocity.Y()))
	tbl.RawSetString("speed_sq", lua.LNumber(s.SpeedSq))

	rect.RawSetString("x", lua.LNumber(s.Rect.Min.X()))
	rect.RawSetString("y", lua.LNumber(s.Rect.Min.Y()))
	rect.RawSetString("w", lua.LNumber(s.Rect.Max.X()-s.Rect.Min.X()))
	rect.RawSetString("h", lua.LNumber(s.Rect.Max.Y()-s.Rect.Min.Y()))
	tbl.RawSetString("rect", rect)

	if s.Signals == nil {
		tbl.RawSetString("signals", lua.LNil)
	} else {
		clearTable(sig)
		for k, v := range s.Signals {
			sig.RawSetString(k, lua.LNumber(v))
		}
		tbl.RawSetString("signals", sig)
	}
}

func (p *contextPool) packFlags(tbl *lua.LTable, s collision.Sides) {
	tbl.RawSetString("top", lbool(s.Top))
	tbl.RawSetString("bottom", lbool(s.Bottom))
	tbl.RawSetString("left", lbool(s.Left))
	tbl.RawSetString("right", lbool(s.Right))
}

// packPhase fills the pooled entity context for phase callbacks. Fields the
// entity does not carry (no transform, no sprite, no signals) are nulled.
func (p *contextPool) packPhase(e *Engine, id ecs.EntityID, state, previous, next string, timeIn float64) *lua.LTable {
	ctx := p.phaseCtx
	ctx.RawSetString("id", lua.LNumber(id))
	ctx.RawSetString("state", lua.LString(state))
	ctx.RawSetString("time_in", lua.LNumber(timeIn))

	if previous != "" {
		ctx.RawSetString("prev", lua.LString(previous))
	} else {
		ctx.RawSetString("prev", lua.LNil)
	}
	if next != "" {
		ctx.RawSetString("next", lua.LString(next))
	} else {
		ctx.RawSetString("next", lua.LNil)
	}

	if t, ok := e.state.Transforms.Get(id); ok {
		ctx.RawSetString("x", lua.LNumber(t.Position.X()))
		ctx.RawSetString("y", lua.LNumber(t.Position.Y()))
		ctx.RawSetString("vx", lua.LNumber(t.Velocity.X()))
		ctx.RawSetString("vy", lua.LNumber(t.Velocity.Y()))
		ctx.RawSetString("rotation", lua.LNumber(t.Rotation))
		ctx.RawSetString("scale", lua.LNumber(t.Scale))
	} else {
		ctx.RawSetString("x", lua.LNil)
		ctx.RawSetString("y", lua.LNil)
		ctx.RawSetString("vx", lua.LNil)
		ctx.RawSetString("vy", lua.LNil)
		ctx.RawSetString("rotation", lua.LNil)
		ctx.RawSetString("scale", lua.LNil)
	}

	if g, ok := e.state.Groups.Get(id); ok {
		ctx.RawSetString("group", lua.LString(g.Name))
	} else {
		ctx.RawSetString("group", lua.LNil)
	}

	if sp, ok := e.state.Sprites.Get(id); ok {
		ctx.RawSetString("sheet", lua.LString(sp.Sheet))
		ctx.RawSetString("animation", lua.LString(sp.Animation))
	} else {
		ctx.RawSetString("sheet", lua.LNil)
		ctx.RawSetString("animation", lua.LNil)
	}

	if sig, ok := e.state.Signals.Get(id); ok && sig.Values != nil {
		clearTable(p.phaseSig)
		for k, v := range sig.Values {
			p.phaseSig.RawSetString(k, lua.LNumber(v))
		}
		ctx.RawSetString("signals", p.phaseSig)
	} else {
		ctx.RawSetString("signals", lua.LNil)
	}

	return ctx
}

// bindPhaseTo installs the ctx.to closure once; it routes to the machine's
// pending slot for the entity whose callback is on the stack.
func (p *contextPool) bindPhaseTo(e *Engine) {
	p.phaseCtx.RawSetString("to", p.vm.NewFunction(func(L *lua.LState) int {
		state := L.CheckString(1)
		if e.scope != scopePhase || e.fsm == nil {
			e.log.Warn("ctx.to called outside a phase callback", zap.String("state", state))
			return 0
		}
		e.fsm.Request(e.scopeEntity, state)
		return 0
	}))
}

// packInput fills the pooled input table: one subtable per logical action
// plus an axis accessor.
func (p *contextPool) packInput(in *input.State) *lua.LTable {
	if in == nil {
		return p.inputCtx
	}
	in.Each(func(name string, st input.ActionState) {
		sub, ok := p.inputStates[name]
		if !ok {
			sub = p.vm.NewTable()
			p.inputStates[name] = sub
			p.inputCtx.RawSetString(name, sub)
		}
		sub.RawSetString("pressed", lbool(st.Pressed))
		sub.RawSetString("just_pressed", lbool(st.JustPressed))
		sub.RawSetString("just_released", lbool(st.JustReleased))
	})
	return p.inputCtx
}
