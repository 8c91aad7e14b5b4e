// Package luabind publishes an object.Runtime to an embedded Lua
// interpreter.
//
// Every registered class becomes a global table: calling it constructs an
// object (button{ button = 1 }), and its fields hold the class functions
// (button.connect_signal, button.instances, ...). Objects are userdata
// whose metatable routes field reads and writes through the runtime's
// dispatch. When Lua drops the last reference to an object's userdata, the
// Go garbage collector reports it and the next Sweep collects the object.
package luabind

import (
	"github.com/chazu/wmbridge/object"
	"github.com/tliron/commonlog"
	lua "github.com/yuin/gopher-lua"
)

var log = commonlog.GetLogger("wmbridge.luabind")

// Options configures a Binding.
type Options struct {
	Observer object.Observer
}

// Binding couples one Lua state with one object runtime. A Binding must
// only be used from one goroutine at a time; see Worker.
type Binding struct {
	L  *lua.LState
	rt *object.Runtime

	objectMeta *lua.LTable
	classes    map[*object.Class]*lua.LTable
	methods    map[methodKey]*lua.LFunction
	objects    *handleMap
}

type methodKey struct {
	class *object.Class
	name  string
}

// New creates a Lua state with the standard libraries, an object runtime
// bound to it, and the "awesome" global signal table.
func New(opts Options) *Binding {
	b := &Binding{
		L:       lua.NewState(),
		classes: make(map[*object.Class]*lua.LTable),
		methods: make(map[methodKey]*lua.LFunction),
	}
	b.objects = newHandleMap()
	b.rt = object.NewRuntime(&object.Config{Host: b, Observer: opts.Observer})
	b.objectMeta = b.newObjectMeta()
	b.L.SetGlobal("awesome", b.newGlobalTable())
	return b
}

// Close releases the Lua state.
func (b *Binding) Close() {
	b.L.Close()
}

// Runtime returns the object runtime.
func (b *Binding) Runtime() *object.Runtime {
	return b.rt
}

// Register registers a class and publishes it as a Lua global. It fails
// with a registration error if the global name is already bound.
func (b *Binding) Register(spec object.ClassSpec) (*object.Class, error) {
	if b.L.GetGlobal(spec.Name) != lua.LNil {
		return nil, &object.Error{Kind: object.KindRegistration, Op: spec.Name, Msg: "name already defined"}
	}
	cls, err := b.rt.Register(spec)
	if err != nil {
		return nil, err
	}
	b.L.SetGlobal(spec.Name, b.newClassTable(cls))
	return cls, nil
}

// newClassTable builds the global table of cls: its class functions as
// fields and a __call metamethod that constructs objects.
func (b *Binding) newClassTable(cls *object.Class) *lua.LTable {
	L := b.L
	tbl := L.NewTable()
	for _, name := range cls.ClassMethodNames() {
		m, _ := cls.ClassMethod(name)
		L.SetField(tbl, name, L.NewFunction(func(L *lua.LState) int {
			results, err := m(b.rt, cls, b.args(L, 1))
			if err != nil {
				b.raise(L, err)
			}
			return b.pushAll(L, results)
		}))
	}

	meta := L.NewTable()
	L.SetField(meta, "__call", L.NewFunction(func(L *lua.LState) int {
		return b.construct(L, cls)
	}))
	L.SetMetatable(tbl, meta)
	b.classes[cls] = tbl
	return tbl
}

// construct implements ClassName{ field = value, ... }.
func (b *Binding) construct(L *lua.LState, cls *object.Class) int {
	b.Sweep()

	var fields []object.Field
	if L.GetTop() >= 2 {
		args := L.CheckTable(2)
		for k, v := args.Next(lua.LNil); k != lua.LNil; k, v = args.Next(k) {
			name, ok := k.(lua.LString)
			if !ok {
				continue
			}
			fields = append(fields, object.Field{Name: string(name), Value: b.toGo(v)})
		}
	}

	h, err := b.rt.New(cls, fields)
	if err != nil {
		b.raise(L, err)
	}
	L.Push(b.push(h))
	return 1
}

// newGlobalTable builds the "awesome" table giving scripts access to
// runtime-wide signals such as debug::index::miss.
func (b *Binding) newGlobalTable() *lua.LTable {
	L := b.L
	tbl := L.NewTable()
	L.SetField(tbl, "connect_signal", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if err := b.rt.ConnectGlobal(name, b.toGo(L.Get(2))); err != nil {
			b.raise(L, err)
		}
		return 0
	}))
	L.SetField(tbl, "disconnect_signal", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if _, err := b.rt.DisconnectGlobal(name, b.toGo(L.Get(2))); err != nil {
			b.raise(L, err)
		}
		return 0
	}))
	L.SetField(tbl, "emit_signal", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		b.rt.EmitGlobal(name, b.args(L, 2)...)
		return 0
	}))
	return tbl
}

// raise converts err into a Lua error. It does not return.
func (b *Binding) raise(L *lua.LState, err error) {
	L.RaiseError("%s", err.Error())
}
