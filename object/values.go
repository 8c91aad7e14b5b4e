package object

import (
	"fmt"
	"sort"
)

// Value is any value crossing the script boundary. Numbers arrive as int,
// int64 or float64; functions and tables are host-defined.
type Value = any

// Host is the embedded scripting runtime as seen by the object runtime.
type Host interface {
	// Call invokes fn with args in protected mode. A failure inside fn is
	// returned as an error, never propagated as a panic.
	Call(fn Value, args []Value) ([]Value, error)

	// Callable reports whether v can be passed to Call.
	Callable(v Value) bool

	// NewTable returns a fresh, empty script table used as an object's
	// user data slot.
	NewTable() Value
}

// Sequence is an ordered, 0-indexed view over a script array.
type Sequence interface {
	Len() int
	At(i int) Value
}

// Fielder is a script table that can be read by string key.
type Fielder interface {
	Field(name string) Value
}

// List is a Sequence backed by a Go slice.
type List []Value

func (l List) Len() int       { return len(l) }
func (l List) At(i int) Value { return l[i] }

// Table is the table type created by NativeHost.
type Table map[string]Value

// Field implements Fielder.
func (t Table) Field(name string) Value { return t[name] }

// Keys returns the table keys in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Func is a native function value understood by NativeHost.
type Func struct {
	Name string
	Fn   func(args []Value) ([]Value, error)
}

// NewFunc wraps fn as a callable Value.
func NewFunc(name string, fn func(args []Value) ([]Value, error)) *Func {
	return &Func{Name: name, Fn: fn}
}

func (f *Func) String() string {
	return fmt.Sprintf("function: %s", f.Name)
}

// NativeHost is a Host whose functions are *Func values and whose tables
// are Table values.
type NativeHost struct{}

// Call invokes fn, recovering panics into errors.
func (NativeHost) Call(fn Value, args []Value) (results []Value, err error) {
	f, ok := fn.(*Func)
	if !ok || f == nil || f.Fn == nil {
		return nil, TypeError("function", fn)
	}
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindEval, Op: f.Name, Msg: fmt.Sprint(r)}
		}
	}()
	return f.Fn(args)
}

// Callable reports whether v is a *Func.
func (NativeHost) Callable(v Value) bool {
	f, ok := v.(*Func)
	return ok && f != nil && f.Fn != nil
}

// NewTable returns an empty Table.
func (NativeHost) NewTable() Value {
	return Table{}
}

// TypeName returns the script-facing type name of v.
func TypeName(v Value) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return "number"
	case string:
		return "string"
	case *Func:
		return "function"
	case Handle:
		return "object"
	case Sequence, Fielder:
		return "table"
	case interface{ TypeName() string }:
		return x.TypeName()
	default:
		return "userdata"
	}
}
