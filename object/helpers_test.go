package object

import (
	"errors"
	"testing"
)

// recorder collects the arguments of every call to its function.
type recorder struct {
	calls [][]Value
	fn    *Func
}

func newRecorder(name string) *recorder {
	r := &recorder{}
	r.fn = NewFunc(name, func(args []Value) ([]Value, error) {
		cp := make([]Value, len(args))
		copy(cp, args)
		r.calls = append(r.calls, cp)
		return nil, nil
	})
	return r
}

type widget struct {
	size   int
	closed bool
}

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	return NewRuntime(nil)
}

// registerWidget registers a class with a single "size" property.
func registerWidget(t *testing.T, rt *Runtime, name string, parent *Class) *Class {
	t.Helper()
	cls, err := rt.Register(ClassSpec{
		Name:   name,
		Parent: parent,
		Allocator: func(rt *Runtime) (any, error) {
			return &widget{}, nil
		},
		IndexMiss:    EmitIndexMiss,
		NewIndexMiss: EmitNewIndexMiss,
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", name, err)
	}
	return cls
}

func addSize(t *testing.T, cls *Class) {
	t.Helper()
	set := func(rt *Runtime, obj *Object, v Value) error {
		n, err := CheckInteger(v)
		if err != nil {
			return err
		}
		obj.Payload.(*widget).size = n
		return nil
	}
	_, err := cls.AddProperty(Property{
		Name: "size",
		New:  set,
		Index: func(rt *Runtime, obj *Object) (Value, error) {
			return obj.Payload.(*widget).size, nil
		},
		NewIndex: set,
	})
	if err != nil {
		t.Fatalf("AddProperty: %v", err)
	}
}

func mustNew(t *testing.T, rt *Runtime, cls *Class, fields ...Field) Handle {
	t.Helper()
	h, err := rt.New(cls, fields)
	if err != nil {
		t.Fatalf("New(%s): %v", cls.Name(), err)
	}
	return h
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", kind)
	}
	if !errors.Is(err, &Error{Kind: kind}) {
		t.Fatalf("expected %s, got %v (kind %s)", kind, err, KindOf(err))
	}
}
