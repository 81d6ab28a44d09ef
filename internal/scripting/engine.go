// Package scripting wraps a single gopher-lua VM and is the only boundary
// between script code and the simulation. Scripts observe state through the
// frame snapshot and pooled contexts, and describe mutations through
// commands; they never hold references into the store.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/lunara/engine/internal/collision"
	"github.com/lunara/engine/internal/command"
	"github.com/lunara/engine/internal/core/ecs"
	"github.com/lunara/engine/internal/input"
	"github.com/lunara/engine/internal/snapshot"
	"github.com/lunara/engine/internal/world"
)

// Transitioner is the phase machine surface the bindings need: a direct
// pending-slot write for same-frame transitions requested inside phase
// callbacks.
type Transitioner interface {
	Request(id ecs.EntityID, state string)
}

// scope tracks which callback kind is currently on the stack, so command
// bindings route to the right queue and ctx.to knows its entity.
type scope int

const (
	scopeNone scope = iota
	scopeScene
	scopeCollision
	scopePhase
	scopeTimer
)

// phaseHooks holds one state's registered enter/update/exit handles.
type phaseHooks struct {
	enter  *lua.LFunction
	update *lua.LFunction
	exit   *lua.LFunction
}

// Engine owns the Lua VM and every script-facing registration table.
// Single-goroutine access only (the simulation loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger

	mgr   *command.Manager
	cache *snapshot.Cache
	rules *collision.Rules
	fsm   Transitioner
	state *world.State
	in    *input.State

	// Handles resolved at registration time; a missing handle at dispatch
	// is a logged no-op.
	sceneUpdate *lua.LFunction
	phases      map[string]*phaseHooks
	timers      map[string]*lua.LFunction

	scope       scope
	scopeEntity ecs.EntityID

	pool *contextPool
}

// Options carries the engine's collaborators, wired by the frame driver.
type Options struct {
	Manager *command.Manager
	Cache   *snapshot.Cache
	Rules   *collision.Rules
	State   *world.State
	Input   *input.State
	Log     *zap.Logger
}

// NewEngine creates the Lua engine and installs the sim namespace. Scripts
// are loaded separately via LoadDir so tests can drive the VM with strings.
func NewEngine(opts Options) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:     vm,
		log:    opts.Log,
		mgr:    opts.Manager,
		cache:  opts.Cache,
		rules:  opts.Rules,
		state:  opts.State,
		in:     opts.Input,
		phases: make(map[string]*phaseHooks, 16),
		timers: make(map[string]*lua.LFunction, 8),
	}
	e.pool = newContextPool(vm)
	e.pool.bindPhaseTo(e)
	e.registerSpawnBuilderType()
	e.installBindings()
	return e
}

// SetPhaseMachine wires the phase machine after construction (the machine
// needs the engine as its callback sink, so the two are tied together by the
// driver).
func (e *Engine) SetPhaseMachine(fsm Transitioner) {
	e.fsm = fsm
}

// LoadDir loads every .lua file in a directory, sorted by name. Missing
// directories are skipped so optional script sets cost nothing.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a script chunk directly. Test and debug entry point.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// InvokeSceneUpdate runs the registered per-frame scene callback with the
// frame dt and the pooled input table. No registration means no-op.
func (e *Engine) InvokeSceneUpdate(dt float64) {
	if e.sceneUpdate == nil {
		return
	}
	prev := e.enterScope(scopeScene, 0)
	defer e.leaveScope(prev)

	inputTbl := e.pool.packInput(e.in)
	e.protectedCall("scene_update", e.sceneUpdate, lua.LNumber(dt), inputTbl)
}

// CollisionHandler adapts a registered Lua rule into the detector's handler
// shape: pack the pooled pair context, call protected, and let the driver's
// flush run afterwards.
func (e *Engine) CollisionHandler(groupA, groupB string, fn *lua.LFunction) collision.Handler {
	name := fmt.Sprintf("collision %s/%s", groupA, groupB)
	return func(p *collision.Pair) {
		prev := e.enterScope(scopeCollision, 0)
		defer e.leaveScope(prev)

		ctx := e.pool.packCollision(p)
		e.protectedCall(name, fn, ctx)
	}
}

// Enter implements the phase machine callback sink.
func (e *Engine) Enter(id ecs.EntityID, state, previous string) {
	hooks := e.phases[state]
	if hooks == nil || hooks.enter == nil {
		return
	}
	prev := e.enterScope(scopePhase, id)
	defer e.leaveScope(prev)

	ctx := e.pool.packPhase(e, id, state, previous, "", 0)
	e.protectedCall("phase enter "+state, hooks.enter, ctx)
}

// Update implements the phase machine callback sink.
func (e *Engine) Update(id ecs.EntityID, state string, timeIn, dt float64) {
	hooks := e.phases[state]
	if hooks == nil || hooks.update == nil {
		return
	}
	prev := e.enterScope(scopePhase, id)
	defer e.leaveScope(prev)

	ctx := e.pool.packPhase(e, id, state, "", "", timeIn)
	e.protectedCall("phase update "+state, hooks.update, ctx, lua.LNumber(dt))
}

// Exit implements the phase machine callback sink.
func (e *Engine) Exit(id ecs.EntityID, state, next string) {
	hooks := e.phases[state]
	if hooks == nil || hooks.exit == nil {
		return
	}
	prev := e.enterScope(scopePhase, id)
	defer e.leaveScope(prev)

	ctx := e.pool.packPhase(e, id, state, "", next, 0)
	e.protectedCall("phase exit "+state, hooks.exit, ctx)
}

// InvokeTimer runs a named timer's registered callback. Commands it issues
// land in the regular queue.
func (e *Engine) InvokeTimer(name string) {
	fn := e.timers[name]
	if fn == nil {
		e.log.Debug("timer expired with no registered callback", zap.String("timer", name))
		return
	}
	prev := e.enterScope(scopeTimer, 0)
	defer e.leaveScope(prev)

	e.protectedCall("timer "+name, fn, lua.LString(name))
}

// ClearRegistrations drops every registered callback handle. Part of scene
// teardown, alongside Manager.ClearAll and Rules.Clear.
func (e *Engine) ClearRegistrations() {
	e.sceneUpdate = nil
	e.phases = make(map[string]*phaseHooks, 16)
	e.timers = make(map[string]*lua.LFunction, 8)
}

// protectedCall invokes a Lua handle, absorbing script runtime errors. A
// failing callback is logged with its name and the frame continues; commands
// it queued before the error still apply (best effort, no rollback).
func (e *Engine) protectedCall(name string, fn *lua.LFunction, args ...lua.LValue) {
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua callback error",
			zap.String("callback", name),
			zap.Uint64("entity", uint64(e.scopeEntity)),
			zap.Error(err))
	}
}

func (e *Engine) enterScope(s scope, id ecs.EntityID) scope {
	prev := e.scope
	e.scope = s
	if s == scopePhase {
		e.scopeEntity = id
	}
	return prev
}

func (e *Engine) leaveScope(prev scope) {
	e.scope = prev
	if e.scope != scopePhase {
		e.scopeEntity = 0
	}
}

// category routes command bindings: collision-scoped calls fill the
// collision queue, everything else the regular queue.
func (e *Engine) category() command.Category {
	if e.scope == scopeCollision {
		return command.Collision
	}
	return command.Regular
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
