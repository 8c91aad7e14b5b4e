package entity

import "github.com/chazu/wmbridge/object"

// Tag is the payload of a tag object.
type Tag struct {
	Name      string
	Selected  bool
	Activated bool
}

// RegisterTag registers the "tag" class. Tags render as tag(<name>).
func RegisterTag(r Registrar) (*object.Class, error) {
	cls, err := r.Register(object.ClassSpec{
		Name: "tag",
		Allocator: func(rt *object.Runtime) (any, error) {
			return &Tag{}, nil
		},
		ToString: func(rt *object.Runtime, obj *object.Object) string {
			return obj.Payload.(*Tag).Name
		},
		IndexMiss:    object.EmitIndexMiss,
		NewIndexMiss: object.EmitNewIndexMiss,
	})
	if err != nil {
		return nil, err
	}

	name := func(rt *object.Runtime, obj *object.Object, v object.Value) error {
		s, err := object.CheckString(v)
		if err != nil {
			return err
		}
		obj.Payload.(*Tag).Name = s
		return rt.EmitSignal(obj.Handle(), "property::name")
	}
	mustAdd(cls,
		object.Property{
			Name: "name",
			New:  name,
			Index: func(rt *object.Runtime, obj *object.Object) (object.Value, error) {
				return obj.Payload.(*Tag).Name, nil
			},
			NewIndex: name,
		},
		boolProperty("selected", func(t *Tag) *bool { return &t.Selected }),
		boolProperty("activated", func(t *Tag) *bool { return &t.Activated }),
	)
	return cls, nil
}

// boolProperty declares a boolean tag field that emits property::<name>
// only when the value changes.
func boolProperty(name string, field func(*Tag) *bool) object.Property {
	set := func(rt *object.Runtime, obj *object.Object, v object.Value) error {
		b, err := object.CheckBoolean(v)
		if err != nil {
			return err
		}
		p := field(obj.Payload.(*Tag))
		if *p == b {
			return nil
		}
		*p = b
		return rt.EmitSignal(obj.Handle(), "property::"+name)
	}
	return object.Property{
		Name: name,
		New:  set,
		Index: func(rt *object.Runtime, obj *object.Object) (object.Value, error) {
			return *field(obj.Payload.(*Tag)), nil
		},
		NewIndex: set,
	}
}
