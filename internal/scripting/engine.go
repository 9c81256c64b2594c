package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/spawnpool/internal/spawner"
)

// Engine wraps a single gopher-lua VM holding spawn-condition predicates.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm     *lua.LState
	log    *zap.Logger
	loaded []string
}

// NewEngine creates a Lua engine and loads every script in dir.
// A missing directory yields an engine with no functions.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(dir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load spawn scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromString is used by tools and tests that carry scripts inline.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load inline script: %w", err)
	}
	return &Engine{vm: vm, log: log}, nil
}

func (e *Engine) loadDir(dir string) error {
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
		e.loaded = append(e.loaded, path)
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Scripts returns the files loaded at construction.
func (e *Engine) Scripts() []string { return e.loaded }

// Has reports whether a global function with the given name exists.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// Functions lists the global Lua functions, sorted. Used by the check command.
func (e *Engine) Functions() []string {
	var out []string
	e.vm.G.Global.ForEach(func(k, v lua.LValue) {
		f, ok := v.(*lua.LFunction)
		if !ok || f.IsG {
			return
		}
		out = append(out, lua.LVAsString(k))
	})
	sort.Strings(out)
	return out
}

// Conditions binds the Lua function fn to a spawner. The function is called
// as fn(ctx) with ctx = {time, score, spawner, phase} where phase is "spawn"
// or "disable", and must return a boolean. Errors log and fall back to
// "not ready" for both phases.
func (e *Engine) Conditions(fn string, spawnerID int64) spawner.Conditions {
	return &luaConditions{e: e, fn: fn, id: spawnerID}
}

type luaConditions struct {
	e  *Engine
	fn string
	id int64
}

func (c *luaConditions) IsReadyToSpawn(time, score float64) bool {
	return c.e.callPredicate(c.fn, c.id, "spawn", time, score)
}

func (c *luaConditions) IsReadyToDisable(time, score float64) bool {
	return c.e.callPredicate(c.fn, c.id, "disable", time, score)
}

func (e *Engine) callPredicate(name string, id int64, phase string, time, score float64) bool {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		e.log.Error("lua function not found", zap.String("name", name), zap.Int64("spawner", id))
		return false
	}

	ctx := e.vm.NewTable()
	ctx.RawSetString("time", lua.LNumber(time))
	ctx.RawSetString("score", lua.LNumber(score))
	ctx.RawSetString("spawner", lua.LNumber(id))
	ctx.RawSetString("phase", lua.LString(phase))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, ctx); err != nil {
		e.log.Error("lua condition error",
			zap.String("func", name),
			zap.Int64("spawner", id),
			zap.String("phase", phase),
			zap.Error(err),
		)
		return false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return lua.LVAsBool(result)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
