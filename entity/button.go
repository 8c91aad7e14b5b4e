package entity

import "github.com/chazu/wmbridge/object"

// Button is the payload of a button object.
type Button struct {
	Button    int
	Modifiers uint16
}

// RegisterButton registers the "button" class.
func RegisterButton(r Registrar) (*object.Class, error) {
	cls, err := r.Register(object.ClassSpec{
		Name: "button",
		Allocator: func(rt *object.Runtime) (any, error) {
			return &Button{}, nil
		},
		IndexMiss:    object.EmitIndexMiss,
		NewIndexMiss: object.EmitNewIndexMiss,
	})
	if err != nil {
		return nil, err
	}

	mustAdd(cls,
		object.Property{
			Name:     "button",
			New:      setButton,
			Index:    getButton,
			NewIndex: setButton,
		},
		object.Property{
			Name:     "modifiers",
			New:      setModifiers,
			Index:    getModifiers,
			NewIndex: setModifiers,
		},
	)
	return cls, nil
}

// SetButton stores n as the button number and emits property::button.
func SetButton(rt *object.Runtime, obj *object.Object, n int) error {
	obj.Payload.(*Button).Button = n
	return rt.EmitSignal(obj.Handle(), "property::button")
}

// SetModifiers stores mask and emits property::modifiers.
func SetModifiers(rt *object.Runtime, obj *object.Object, mask uint16) error {
	obj.Payload.(*Button).Modifiers = mask
	return rt.EmitSignal(obj.Handle(), "property::modifiers")
}

func setButton(rt *object.Runtime, obj *object.Object, v object.Value) error {
	n, err := object.CheckInteger(v)
	if err != nil {
		return err
	}
	return SetButton(rt, obj, n)
}

func getButton(rt *object.Runtime, obj *object.Object) (object.Value, error) {
	return obj.Payload.(*Button).Button, nil
}

func setModifiers(rt *object.Runtime, obj *object.Object, v object.Value) error {
	seq, err := object.CheckSequence(v)
	if err != nil {
		return err
	}
	mask, err := ParseModifiers(seq)
	if err != nil {
		return err
	}
	return SetModifiers(rt, obj, mask)
}

func getModifiers(rt *object.Runtime, obj *object.Object) (object.Value, error) {
	return ModifierNames(obj.Payload.(*Button).Modifiers), nil
}
