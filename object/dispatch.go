package object

import (
	"fmt"
	"strings"
)

// Index reads field from the object behind h.
//
// "valid" works on collected objects and reports false for them. "data"
// returns the object's user data table. Any other name resolves a property
// along the class chain; unknown names go to the class's script miss
// handler if one is set, otherwise to its native miss function.
func (rt *Runtime) Index(h Handle, field string) ([]Value, error) {
	if field == "valid" {
		return []Value{rt.Valid(h)}, nil
	}
	obj, st, err := rt.resolve(h)
	if err != nil {
		return nil, err
	}
	if field == "data" {
		return []Value{st.env.Data}, nil
	}

	cls := obj.class
	if prop := cls.LookupProperty(field); prop != nil {
		if prop.Index == nil {
			return nil, nil
		}
		v, err := prop.Index(rt, obj)
		if err != nil {
			return nil, wrapField(cls, field, err)
		}
		return []Value{v}, nil
	}

	rt.missed(Miss{Class: cls.name, Object: h, Field: field})
	if handler, _ := cls.missHandlers(); handler != nil {
		return rt.host.Call(handler, []Value{h, field})
	}
	if cls.indexMissProp != nil {
		return cls.indexMissProp(rt, obj, field)
	}
	return nil, nil
}

// NewIndex assigns v to field of the object behind h, with the same
// resolution order as Index.
func (rt *Runtime) NewIndex(h Handle, field string, v Value) error {
	obj, err := rt.Object(h)
	if err != nil {
		return err
	}

	cls := obj.class
	if prop := cls.LookupProperty(field); prop != nil {
		if prop.NewIndex == nil {
			return nil
		}
		return wrapField(cls, field, prop.NewIndex(rt, obj, v))
	}

	rt.missed(Miss{Class: cls.name, Object: h, Field: field, Assign: true})
	if _, handler := cls.missHandlers(); handler != nil {
		_, err := rt.host.Call(handler, []Value{h, field, v})
		return err
	}
	if cls.newIndexMissProp != nil {
		return cls.newIndexMissProp(rt, obj, field, v)
	}
	return nil
}

// EmitIndexMiss is the standard native index miss function. It emits
// debug::index::miss on the global signals with the object and field.
func EmitIndexMiss(rt *Runtime, obj *Object, field string) ([]Value, error) {
	rt.EmitGlobal("debug::index::miss", obj.handle, field)
	return nil, nil
}

// EmitNewIndexMiss is the standard native newindex miss function. It emits
// debug::newindex::miss with the object, field and value.
func EmitNewIndexMiss(rt *Runtime, obj *Object, field string, v Value) error {
	rt.EmitGlobal("debug::newindex::miss", obj.handle, field, v)
	return nil
}

func (rt *Runtime) missed(m Miss) {
	if obs := rt.currentObserver(); obs != nil {
		obs.PropertyMissed(m)
	}
}

// SetIndexMissHandler installs fn as the script handler for reads of
// unknown fields of cls. A nil fn removes it.
func (rt *Runtime) SetIndexMissHandler(cls *Class, fn Value) error {
	return rt.setMissHandler(cls, fn, &cls.indexMiss)
}

// SetNewIndexMissHandler installs fn as the script handler for writes of
// unknown fields of cls. A nil fn removes it.
func (rt *Runtime) SetNewIndexMissHandler(cls *Class, fn Value) error {
	return rt.setMissHandler(cls, fn, &cls.newIndexMiss)
}

func (rt *Runtime) setMissHandler(cls *Class, fn Value, slot *Value) error {
	if fn != nil {
		if err := rt.checkFunction(fn); err != nil {
			return err
		}
		if _, err := rt.registry.Retain(fn); err != nil {
			return err
		}
	}
	cls.mu.Lock()
	old := *slot
	*slot = fn
	cls.mu.Unlock()

	if old != nil {
		if _, err := rt.registry.Release(old); err != nil {
			log.Criticalf("%s: %s", cls.name, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Methods
// ---------------------------------------------------------------------------

// CallMethod calls an object method. Methods are looked up on the object's
// own class only.
func (rt *Runtime) CallMethod(h Handle, name string, args ...Value) ([]Value, error) {
	cls, err := rt.ClassOf(h)
	if err != nil {
		return nil, err
	}
	m, ok := cls.Method(name)
	if !ok {
		return nil, &Error{Kind: KindType, Op: cls.name, Msg: fmt.Sprintf("attempt to call a nil value (method '%s')", name)}
	}
	return m(rt, h, args)
}

// CallClassMethod calls a function published on cls.
func (rt *Runtime) CallClassMethod(cls *Class, name string, args ...Value) ([]Value, error) {
	m, ok := cls.ClassMethod(name)
	if !ok {
		return nil, &Error{Kind: KindType, Op: cls.name, Msg: fmt.Sprintf("attempt to call a nil value (field '%s')", name)}
	}
	return m(rt, cls, args)
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// ConnectSignal connects fn to name on the object behind h. The object
// retains fn until it is disconnected or the object is collected.
func (rt *Runtime) ConnectSignal(h Handle, name string, fn Value) error {
	_, st, err := rt.resolve(h)
	if err != nil {
		return err
	}
	if err := rt.checkFunction(fn); err != nil {
		return err
	}
	return st.signals.Connect(name, fn)
}

// DisconnectSignal removes one connection of fn to name on the object and
// returns how many were removed.
func (rt *Runtime) DisconnectSignal(h Handle, name string, fn Value) (int, error) {
	_, st, err := rt.resolve(h)
	if err != nil {
		return 0, err
	}
	if err := rt.checkFunction(fn); err != nil {
		return 0, err
	}
	return st.signals.Disconnect(name, fn)
}

// EmitSignal emits name on the object behind h, then on the first class in
// its chain with handlers for name. Handlers receive the object followed
// by args.
func (rt *Runtime) EmitSignal(h Handle, name string, args ...Value) error {
	obj, st, err := rt.resolve(h)
	if err != nil {
		return err
	}
	if obj.class.checker != nil && !obj.class.checker(obj) {
		return &Error{Kind: KindInvalidObject, Op: name, Msg: "emitting signal on invalid object"}
	}
	full := prepend(h, args)
	rt.emit(st.signals, Emission{Scope: ScopeObject, Class: obj.class.name, Object: h, Signal: name}, full)
	rt.emitOnClass(obj.class, name, h, args)
	return nil
}

// emitOnClass emits name for obj on the first class of cls's chain that
// has handlers for it.
func (rt *Runtime) emitOnClass(cls *Class, name string, obj Handle, args []Value) {
	owner := cls.signalOwner(name)
	if owner == nil {
		return
	}
	full := args
	if !obj.IsZero() {
		full = prepend(obj, args)
	}
	rt.emit(owner.signals, Emission{Scope: ScopeClass, Class: owner.name, Object: obj, Signal: name}, full)
}

// ConnectClassSignal connects fn to name on cls itself.
func (rt *Runtime) ConnectClassSignal(cls *Class, name string, fn Value) error {
	if err := rt.checkFunction(fn); err != nil {
		return err
	}
	return cls.signals.Connect(name, fn)
}

// DisconnectClassSignal removes one connection of fn to name on cls.
func (rt *Runtime) DisconnectClassSignal(cls *Class, name string, fn Value) (int, error) {
	if err := rt.checkFunction(fn); err != nil {
		return 0, err
	}
	return cls.signals.Disconnect(name, fn)
}

// EmitClassSignal emits name on the first class of cls's chain with
// handlers for it.
func (rt *Runtime) EmitClassSignal(cls *Class, name string, args ...Value) {
	rt.emitOnClass(cls, name, Handle{}, args)
}

// ConnectGlobal connects fn to a runtime-wide signal.
func (rt *Runtime) ConnectGlobal(name string, fn Value) error {
	if err := rt.checkFunction(fn); err != nil {
		return err
	}
	return rt.global.Connect(name, fn)
}

// DisconnectGlobal removes one connection of fn to a runtime-wide signal.
func (rt *Runtime) DisconnectGlobal(name string, fn Value) (int, error) {
	if err := rt.checkFunction(fn); err != nil {
		return 0, err
	}
	return rt.global.Disconnect(name, fn)
}

// EmitGlobal emits a runtime-wide signal.
func (rt *Runtime) EmitGlobal(name string, args ...Value) {
	rt.emit(rt.global, Emission{Scope: ScopeGlobal, Signal: name}, args)
}

func prepend(h Handle, args []Value) []Value {
	out := make([]Value, 0, len(args)+1)
	out = append(out, h)
	return append(out, args...)
}

// ---------------------------------------------------------------------------
// tostring
// ---------------------------------------------------------------------------

// ToString renders h as its class chain, ancestors first, followed by the
// handle, e.g. "window/client(xterm): 0x0000000100000003".
func (rt *Runtime) ToString(h Handle) string {
	obj, err := rt.Object(h)
	if err != nil {
		return "invalid object: " + h.String()
	}
	chain := obj.class.Chain()
	parts := make([]string, len(chain))
	for i, c := range chain {
		part := c.name
		if c.tostring != nil {
			part += "(" + c.tostring(rt, obj) + ")"
		}
		parts[len(chain)-1-i] = part
	}
	return strings.Join(parts, "/") + ": " + h.String()
}
