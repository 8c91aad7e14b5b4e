// Package entity declares the button and tag classes. They store their
// fields and announce changes through property:: signals; what a button or
// tag does is up to the scripts that use them.
package entity

import "github.com/chazu/wmbridge/object"

// Registrar creates classes. Both *object.Runtime and the Lua binding
// satisfy it; the binding also publishes the class to scripts.
type Registrar interface {
	Register(spec object.ClassSpec) (*object.Class, error)
}

// Classes holds the classes created by RegisterAll.
type Classes struct {
	Button *object.Class
	Tag    *object.Class
}

// RegisterAll registers every entity class with r.
func RegisterAll(r Registrar) (*Classes, error) {
	button, err := RegisterButton(r)
	if err != nil {
		return nil, err
	}
	tag, err := RegisterTag(r)
	if err != nil {
		return nil, err
	}
	return &Classes{Button: button, Tag: tag}, nil
}

// mustAdd declares props on cls. Names are fixed at compile time, so a
// duplicate is a programming error.
func mustAdd(cls *object.Class, props ...object.Property) {
	for _, p := range props {
		if _, err := cls.AddProperty(p); err != nil {
			panic(err)
		}
	}
}
