package object

import (
	"sort"
	"sync"
)

// ClassID is the tag stored with every object. It is the index of the
// class in its Runtime.
type ClassID uint32

// Allocator creates the native payload of a new object.
type Allocator func(rt *Runtime) (any, error)

// Collector releases the native payload of a collected object.
type Collector func(rt *Runtime, obj *Object)

// Checker reports whether an object's payload is still usable.
type Checker func(obj *Object) bool

// Getter reads a property.
type Getter func(rt *Runtime, obj *Object) (Value, error)

// Setter writes a property. It is used both for construction-time fields
// and for assignments.
type Setter func(rt *Runtime, obj *Object, v Value) error

// IndexMissFunc handles reads of unknown fields.
type IndexMissFunc func(rt *Runtime, obj *Object, field string) ([]Value, error)

// NewIndexMissFunc handles writes of unknown fields.
type NewIndexMissFunc func(rt *Runtime, obj *Object, field string, v Value) error

// Method is an object method. self may be stale; methods resolve it with
// Runtime.Object.
type Method func(rt *Runtime, self Handle, args []Value) ([]Value, error)

// ClassMethod is a function published on the class itself.
type ClassMethod func(rt *Runtime, cls *Class, args []Value) ([]Value, error)

// ToStringFunc returns the optional detail printed after a class name.
type ToStringFunc func(rt *Runtime, obj *Object) string

// Property is a named field descriptor.
type Property struct {
	Name     string
	New      Setter
	Index    Getter
	NewIndex Setter

	owner *Class
}

// Owner returns the class the property was declared on.
func (p *Property) Owner() *Class {
	return p.owner
}

// ClassSpec describes a class to Runtime.Register.
type ClassSpec struct {
	Name      string
	Parent    *Class
	Allocator Allocator
	Collector Collector
	Checker   Checker
	ToString  ToStringFunc

	// Native fallbacks used when no script miss handler is set.
	IndexMiss    IndexMissFunc
	NewIndexMiss NewIndexMissFunc

	// Methods are published on the class; Meta methods on its objects.
	Methods map[string]ClassMethod
	Meta    map[string]Method
}

// Class describes a family of objects.
type Class struct {
	id        ClassID
	name      string
	parent    *Class
	allocator Allocator
	collector Collector
	checker   Checker
	tostring  ToStringFunc

	indexMissProp    IndexMissFunc
	newIndexMissProp NewIndexMissFunc
	methods          map[string]ClassMethod
	meta             map[string]Method
	signals          *SignalTable

	// mu guards the fields below.
	mu           sync.Mutex
	props        []*Property
	propIndex    map[string]*Property
	indexMiss    Value
	newIndexMiss Value
	instances    int
}

// ID returns the class tag.
func (c *Class) ID() ClassID { return c.id }

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Parent returns the parent class, or nil.
func (c *Class) Parent() *Class { return c.parent }

// Signals returns the class-level signal table.
func (c *Class) Signals() *SignalTable { return c.signals }

// IsSubclassOf reports whether c is other or descends from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for cur := c; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// Chain returns c and its ancestors, most-derived first.
func (c *Class) Chain() []*Class {
	var chain []*Class
	for cur := c; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	return chain
}

// Instances returns the number of live objects of exactly this class.
func (c *Class) Instances() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instances
}

// AddProperty declares a property on c. A name may shadow an ancestor's
// property but may not repeat within the same class.
func (c *Class) AddProperty(p Property) (*Property, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.propIndex[p.Name]; dup {
		return nil, &Error{
			Kind: KindRegistration,
			Op:   c.name + "." + p.Name,
			Msg:  "property already defined",
		}
	}
	prop := p
	prop.owner = c
	c.props = append(c.props, &prop)
	c.propIndex[p.Name] = &prop
	return &prop, nil
}

// LookupProperty resolves name on c and then its ancestors.
func (c *Class) LookupProperty(name string) *Property {
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		p := cur.propIndex[name]
		cur.mu.Unlock()
		if p != nil {
			return p
		}
	}
	return nil
}

// Properties returns the properties declared on c, in declaration order.
func (c *Class) Properties() []*Property {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Property, len(c.props))
	copy(out, c.props)
	return out
}

// Method returns the object method name of c. Methods are not inherited.
func (c *Class) Method(name string) (Method, bool) {
	m, ok := c.meta[name]
	return m, ok
}

// MethodNames returns the object method names of c, sorted.
func (c *Class) MethodNames() []string {
	return sortedKeys(c.meta)
}

// ClassMethod returns the class method name of c.
func (c *Class) ClassMethod(name string) (ClassMethod, bool) {
	m, ok := c.methods[name]
	return m, ok
}

// ClassMethodNames returns the class method names of c, sorted.
func (c *Class) ClassMethodNames() []string {
	return sortedKeys(c.methods)
}

// signalOwner returns the first class in c's chain with handlers for name.
func (c *Class) signalOwner(name string) *Class {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.signals.Has(name) {
			return cur
		}
	}
	return nil
}

func (c *Class) missHandlers() (index, newIndex Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexMiss, c.newIndexMiss
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
