package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/l1jgo/phys/internal/physics"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM bound to the physics servers.
// Single-goroutine access only (tick loop).
//
// Scripts see objects as integer ids. Every id owns one handle count; the
// script gives it up with physics.release(id), and Close releases whatever
// is left.
type Engine struct {
	vm      *lua.LState
	phys    *physics.Servers
	log     *zap.Logger
	objects map[int]*scriptObject
	names   map[string]int
	nextID  int
	closed  bool
}

func NewEngine(phys *physics.Servers, log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:      vm,
		phys:    phys,
		log:     log,
		objects: make(map[int]*scriptObject),
		names:   make(map[string]int),
	}
	e.registerPhysics()
	return e
}

// LoadFile runs a script file. A directory loads every .lua file in it, in
// name order.
func (e *Engine) LoadFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	if info.IsDir() {
		return e.loadDir(path)
	}
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
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

// LoadString runs a chunk of Lua source.
func (e *Engine) LoadString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("run lua chunk: %w", err)
	}
	return nil
}

// OnStep calls the script's on_step(dt) if it defines one. Script errors are
// logged and do not stop the tick.
func (e *Engine) OnStep(dt float64) {
	fn := e.vm.GetGlobal("on_step")
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(dt)); err != nil {
		e.log.Error("lua on_step error", zap.Error(err))
	}
}

// Live returns the number of ids the script still holds.
func (e *Engine) Live() int {
	return len(e.objects)
}

// Close releases every handle the script still holds and shuts down the VM.
// Calling it again does nothing.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	ids := make([]int, 0, len(e.objects))
	for id := range e.objects {
		ids = append(ids, id)
	}
	for _, id := range ids {
		e.release(id)
	}
	e.vm.Close()
}
