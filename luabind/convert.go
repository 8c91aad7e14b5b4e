package luabind

import (
	"fmt"

	"github.com/chazu/wmbridge/object"
	lua "github.com/yuin/gopher-lua"
)

// function is a Lua function seen from the runtime. It compares equal for
// the same underlying function, which is what disconnect_signal relies on.
type function struct {
	fn *lua.LFunction
}

func (function) TypeName() string { return "function" }

// table is a Lua table seen from the runtime.
type table struct {
	b *Binding
	t *lua.LTable
}

func (t table) Len() int                       { return t.t.Len() }
func (t table) At(i int) object.Value          { return t.b.toGo(t.t.RawGetInt(i + 1)) }
func (t table) Field(name string) object.Value { return t.b.toGo(t.t.RawGetString(name)) }

// Unwrap returns the Lua table.
func (t table) Unwrap() *lua.LTable { return t.t }

// toGo converts a Lua value for the runtime. Numbers become float64;
// object userdata becomes its Handle.
func (b *Binding) toGo(v lua.LValue) object.Value {
	switch x := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case *lua.LFunction:
		return function{fn: x}
	case *lua.LTable:
		return table{b: b, t: x}
	case *lua.LUserData:
		if ref, ok := x.Value.(*objectRef); ok {
			return ref.handle
		}
		return x
	}
	return v
}

// toLua converts a runtime value for Lua.
func (b *Binding) toLua(v object.Value) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case uint16:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	case object.Handle:
		return b.push(x)
	case function:
		return x.fn
	case table:
		return x.t
	case object.List:
		tbl := b.L.NewTable()
		for _, item := range x {
			tbl.Append(b.toLua(item))
		}
		return tbl
	case object.Table:
		tbl := b.L.NewTable()
		for _, k := range x.Keys() {
			tbl.RawSetString(k, b.toLua(x[k]))
		}
		return tbl
	case *object.Func:
		return b.L.NewFunction(func(L *lua.LState) int {
			results, err := x.Fn(b.args(L, 1))
			if err != nil {
				b.raise(L, err)
			}
			return b.pushAll(L, results)
		})
	case lua.LValue:
		return x
	}
	return lua.LString(fmt.Sprint(v))
}

// args converts the stack from index from to the top.
func (b *Binding) args(L *lua.LState, from int) []object.Value {
	top := L.GetTop()
	if top < from {
		return nil
	}
	out := make([]object.Value, 0, top-from+1)
	for i := from; i <= top; i++ {
		out = append(out, b.toGo(L.Get(i)))
	}
	return out
}

func (b *Binding) pushAll(L *lua.LState, values []object.Value) int {
	for _, v := range values {
		L.Push(b.toLua(v))
	}
	return len(values)
}
