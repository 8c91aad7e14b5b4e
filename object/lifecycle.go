package object

import (
	"fmt"
	"weak"
)

// Object is one live instance. Callbacks receive it; script code only ever
// sees its Handle.
type Object struct {
	handle  Handle
	class   *Class
	Payload any

	// held pins the state until a host detaches it. After that state is the
	// runtime's only link to it.
	held         *State
	state        weak.Pointer[State]
	constructing bool
}

// State is the part of an object that refers to script values: its private
// environment and its object-level signal handlers.
type State struct {
	env     *Env
	signals *SignalTable
}

// Env is an object's private environment: the user data table exposed as
// the "data" field and the references that keep script values alive while
// the object holds them.
type Env struct {
	Data Value
	Refs *RefTable[Value]
}

// Handle returns the object's handle.
func (o *Object) Handle() Handle { return o.handle }

// Class returns the object's class.
func (o *Object) Class() *Class { return o.class }

// Env returns the object's private environment, or nil once its state has
// been reclaimed.
func (o *Object) Env() *Env {
	if st := o.current(); st != nil {
		return st.env
	}
	return nil
}

// Signals returns the object-level signal table, or nil once its state has
// been reclaimed.
func (o *Object) Signals() *SignalTable {
	if st := o.current(); st != nil {
		return st.signals
	}
	return nil
}

func (o *Object) current() *State {
	if o.held != nil {
		return o.held
	}
	return o.state.Value()
}

// Field is one constructor field, kept in caller order.
type Field struct {
	Name  string
	Value Value
}

// New allocates an object of cls, runs the construct callback of every
// field that names a property, and emits "new" with the object.
//
// If a construct callback fails the half-built object is collected and the
// error returned.
func (rt *Runtime) New(cls *Class, fields []Field) (Handle, error) {
	var payload any
	if cls.allocator != nil {
		p, err := cls.allocator(rt)
		if err != nil {
			return Handle{}, err
		}
		payload = p
	}

	refs := NewRefTable[Value]()
	st := &State{
		env:     &Env{Data: rt.host.NewTable(), Refs: refs},
		signals: NewSignalTable(rt.names, refs),
	}
	obj := &Object{
		class:        cls,
		Payload:      payload,
		held:         st,
		state:        weak.Make(st),
		constructing: true,
	}

	rt.mu.Lock()
	obj.handle = rt.objects.alloc(obj)
	rt.mu.Unlock()

	cls.mu.Lock()
	cls.instances++
	cls.mu.Unlock()

	for _, f := range fields {
		prop := cls.LookupProperty(f.Name)
		if prop == nil || prop.New == nil {
			continue
		}
		if err := prop.New(rt, obj, f.Value); err != nil {
			if cerr := rt.Collect(obj.handle); cerr != nil {
				log.Errorf("collecting partially constructed %s: %s", cls.name, cerr)
			}
			return Handle{}, wrapField(cls, f.Name, err)
		}
	}

	rt.emitOnClass(cls, "new", obj.handle, nil)

	rt.mu.Lock()
	obj.constructing = false
	rt.mu.Unlock()
	return obj.handle, nil
}

// Detach hands the state of the object behind h to the caller. From then on
// the runtime keeps only a weak pointer to it, so the state and every
// script value it refers to live exactly as long as the caller's owner
// does. Once the state is reclaimed the object no longer resolves and only
// Collect reaches it.
//
// Detach returns a nil State if the state was already reclaimed. While the
// object is still being constructed the state stays pinned; the caller of
// New detaches it afterwards.
func (rt *Runtime) Detach(h Handle) (*State, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	obj := rt.objects.get(h)
	if obj == nil {
		return nil, invalidObject("detach")
	}
	st := obj.current()
	if !obj.constructing {
		obj.held = nil
	}
	return st, nil
}

// Collect tears down the object behind h: its signals and references are
// released, the instance counter drops, and the collectors of its class and
// every ancestor run, most-derived first. Afterwards h is stale.
func (rt *Runtime) Collect(h Handle) error {
	rt.mu.Lock()
	obj := rt.objects.get(h)
	var st *State
	if obj != nil {
		st = obj.current()
		obj.held = nil
	}
	rt.mu.Unlock()
	if obj == nil {
		return invalidObject("collect")
	}
	cls := obj.class

	// A reclaimed state took its handlers and references with it.
	if st != nil {
		st.signals.Clear()
	}

	var underflow error
	cls.mu.Lock()
	if cls.instances == 0 {
		underflow = internalError("collect", "BUG: %s instance count would go below zero", cls.name)
	} else {
		cls.instances--
	}
	cls.mu.Unlock()
	if underflow != nil {
		log.Criticalf("%s", underflow)
	}

	for cur := cls; cur != nil; cur = cur.parent {
		if cur.collector != nil {
			rt.runCollector(cur, obj)
		}
	}

	if st != nil {
		st.env.Refs.Clear()
	}

	rt.mu.Lock()
	rt.objects.release(h)
	rt.mu.Unlock()
	obj.Payload = nil

	return underflow
}

func (rt *Runtime) runCollector(cls *Class, obj *Object) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("collector of %s panicked: %v", cls.name, r)
		}
	}()
	cls.collector(rt, obj)
}

// Object resolves h to its live object.
func (rt *Runtime) Object(h Handle) (*Object, error) {
	obj, _, err := rt.resolve(h)
	return obj, err
}

// resolve returns the live object behind h with its state. The returned
// state keeps the object resolvable for as long as the caller holds it.
func (rt *Runtime) resolve(h Handle) (*Object, *State, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	obj := rt.objects.get(h)
	if obj == nil {
		return nil, nil, invalidObject("")
	}
	st := obj.current()
	if st == nil {
		return nil, nil, invalidObject("")
	}
	return obj, st, nil
}

// Valid reports the "valid" field of h: false for collected objects,
// otherwise the class checker's verdict.
func (rt *Runtime) Valid(h Handle) bool {
	obj, _, err := rt.resolve(h)
	if err != nil {
		return false
	}
	if obj.class.checker != nil {
		return obj.class.checker(obj)
	}
	return true
}

// ClassOf returns the class tag of the live object behind h.
func (rt *Runtime) ClassOf(h Handle) (*Class, error) {
	obj, err := rt.Object(h)
	if err != nil {
		return nil, err
	}
	return obj.class, nil
}

// Check returns the object behind v if it is a live instance of cls or one
// of its descendants and passes its class checker.
func (rt *Runtime) Check(v Value, cls *Class) (*Object, error) {
	h, ok := v.(Handle)
	if !ok {
		return nil, TypeError(cls.name, v)
	}
	obj, err := rt.Object(h)
	if err != nil {
		return nil, err
	}
	if !obj.class.IsSubclassOf(cls) {
		return nil, &Error{Kind: KindType, Msg: fmt.Sprintf("%s expected, got %s", cls.name, obj.class.name)}
	}
	if obj.class.checker != nil && !obj.class.checker(obj) {
		return nil, &Error{Kind: KindInvalidObject, Msg: fmt.Sprintf("invalid %s", obj.class.name)}
	}
	return obj, nil
}

func wrapField(cls *Class, field string, err error) error {
	if e, ok := err.(*Error); ok && e.Op == "" {
		return &Error{Kind: e.Kind, Op: cls.name + "." + field, Msg: e.Msg, Err: e.Err}
	}
	return err
}
