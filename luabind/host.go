package luabind

import (
	"github.com/chazu/wmbridge/object"
	lua "github.com/yuin/gopher-lua"
)

// Call invokes a Lua or native function in protected mode.
func (b *Binding) Call(fn object.Value, args []object.Value) ([]object.Value, error) {
	switch f := fn.(type) {
	case *object.Func:
		return object.NativeHost{}.Call(f, args)
	case function:
		return b.callLua(f.fn, args)
	}
	return nil, object.TypeError("function", fn)
}

func (b *Binding) callLua(fn *lua.LFunction, args []object.Value) ([]object.Value, error) {
	L := b.L
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = b.toLua(a)
	}

	top := L.GetTop()
	err := L.CallByParam(lua.P{Fn: fn, NRet: lua.MultRet, Protect: true}, largs...)
	if err != nil {
		return nil, &object.Error{Kind: object.KindEval, Msg: err.Error(), Err: err}
	}
	n := L.GetTop() - top
	results := make([]object.Value, n)
	for i := 0; i < n; i++ {
		results[i] = b.toGo(L.Get(top + 1 + i))
	}
	L.Pop(n)
	return results, nil
}

// Callable reports whether v is a Lua or native function.
func (b *Binding) Callable(v object.Value) bool {
	switch f := v.(type) {
	case function:
		return f.fn != nil
	case *object.Func:
		return object.NativeHost{}.Callable(f)
	}
	return false
}

// NewTable returns a fresh Lua table.
func (b *Binding) NewTable() object.Value {
	return table{b: b, t: b.L.NewTable()}
}
