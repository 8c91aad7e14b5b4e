// Package inspect captures the classes, objects and signal connections of
// a runtime so they can be dumped for debugging.
package inspect

import "github.com/chazu/wmbridge/object"

// Snapshot is the state of a runtime at one point in time.
type Snapshot struct {
	Classes  []Class  `yaml:"classes" cbor:"1,keyasint"`
	Global   []Signal `yaml:"global_signals,omitempty" cbor:"2,keyasint,omitempty"`
	Objects  []Object `yaml:"objects,omitempty" cbor:"3,keyasint,omitempty"`
	Retained int      `yaml:"retained" cbor:"4,keyasint"`
}

// Class describes a registered class.
type Class struct {
	Name         string     `yaml:"name" cbor:"1,keyasint"`
	Parent       string     `yaml:"parent,omitempty" cbor:"2,keyasint,omitempty"`
	Properties   []Property `yaml:"properties,omitempty" cbor:"3,keyasint,omitempty"`
	Methods      []string   `yaml:"methods,omitempty" cbor:"4,keyasint,omitempty"`
	ClassMethods []string   `yaml:"class_methods,omitempty" cbor:"5,keyasint,omitempty"`
	Signals      []Signal   `yaml:"signals,omitempty" cbor:"6,keyasint,omitempty"`
	Instances    int        `yaml:"instances" cbor:"7,keyasint"`
}

// Property describes which accessors a property declares.
type Property struct {
	Name     string `yaml:"name" cbor:"1,keyasint"`
	New      bool   `yaml:"new,omitempty" cbor:"2,keyasint,omitempty"`
	Index    bool   `yaml:"index,omitempty" cbor:"3,keyasint,omitempty"`
	NewIndex bool   `yaml:"newindex,omitempty" cbor:"4,keyasint,omitempty"`
}

// Signal is a signal name and its handler count.
type Signal struct {
	Name     string `yaml:"name" cbor:"1,keyasint"`
	Handlers int    `yaml:"handlers" cbor:"2,keyasint"`
}

// Object describes a live object.
type Object struct {
	Handle  string   `yaml:"handle" cbor:"1,keyasint"`
	Class   string   `yaml:"class" cbor:"2,keyasint"`
	String  string   `yaml:"string" cbor:"3,keyasint"`
	Signals []Signal `yaml:"signals,omitempty" cbor:"4,keyasint,omitempty"`
}

// Options selects what Take includes.
type Options struct {
	Objects bool // include live objects
}

// Take captures rt. Classes keep registration order; objects keep arena
// order.
func Take(rt *object.Runtime, opts Options) *Snapshot {
	s := &Snapshot{
		Global:   signals(rt.GlobalSignals()),
		Retained: rt.Registry().Len(),
	}
	for _, c := range rt.Classes() {
		s.Classes = append(s.Classes, describeClass(c))
	}
	if !opts.Objects {
		return s
	}
	for _, h := range rt.Objects() {
		obj, err := rt.Object(h)
		if err != nil {
			continue
		}
		s.Objects = append(s.Objects, Object{
			Handle:  h.String(),
			Class:   obj.Class().Name(),
			String:  rt.ToString(h),
			Signals: signals(obj.Signals()),
		})
	}
	return s
}

func describeClass(c *object.Class) Class {
	info := Class{
		Name:         c.Name(),
		Methods:      c.MethodNames(),
		ClassMethods: c.ClassMethodNames(),
		Signals:      signals(c.Signals()),
		Instances:    c.Instances(),
	}
	if p := c.Parent(); p != nil {
		info.Parent = p.Name()
	}
	for _, p := range c.Properties() {
		info.Properties = append(info.Properties, Property{
			Name:     p.Name,
			New:      p.New != nil,
			Index:    p.Index != nil,
			NewIndex: p.NewIndex != nil,
		})
	}
	return info
}

func signals(st *object.SignalTable) []Signal {
	if st == nil {
		return nil
	}
	var out []Signal
	for _, name := range st.Names() {
		if n := st.Count(name); n > 0 {
			out = append(out, Signal{Name: name, Handlers: n})
		}
	}
	return out
}

// Class returns the class named name, or nil.
func (s *Snapshot) Class(name string) *Class {
	for i := range s.Classes {
		if s.Classes[i].Name == name {
			return &s.Classes[i]
		}
	}
	return nil
}
