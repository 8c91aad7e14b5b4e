package object

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("wmbridge.object")

// Scope tells where a signal was emitted.
type Scope int

const (
	ScopeObject Scope = iota
	ScopeClass
	ScopeGlobal
)

func (s Scope) String() string {
	switch s {
	case ScopeObject:
		return "object"
	case ScopeClass:
		return "class"
	default:
		return "global"
	}
}

// Emission describes one signal emission pass.
type Emission struct {
	Scope    Scope
	Class    string // empty for global emissions
	Object   Handle // zero for class and global emissions without an object
	Signal   string
	Handlers int
}

// Miss describes an access to an undeclared field.
type Miss struct {
	Class  string
	Object Handle
	Field  string
	Assign bool
}

// Observer receives runtime events. Implementations must not call back
// into the Runtime.
type Observer interface {
	SignalEmitted(e Emission)
	HandlerFailed(e Emission, err error)
	PropertyMissed(m Miss)
}

// Config holds runtime configuration.
type Config struct {
	Host     Host     // defaults to NativeHost
	Observer Observer // optional
}

// DefaultConfig returns a configuration using NativeHost.
func DefaultConfig() *Config {
	return &Config{Host: NativeHost{}}
}

// Stats is a point-in-time summary of a Runtime.
type Stats struct {
	Classes   int
	Objects   int
	Retained  int
	Instances map[string]int
}

// Runtime owns classes, objects and runtime-wide signals.
type Runtime struct {
	host     Host
	observer Observer
	names    *NameTable
	registry *RefTable[Value]
	global   *SignalTable

	mu      sync.Mutex
	classes []*Class
	byName  map[string]*Class
	objects arena

	errMu     sync.Mutex
	onError   func(error)
	reporting bool
}

// NewRuntime creates a runtime with the given configuration.
func NewRuntime(cfg *Config) *Runtime {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	host := cfg.Host
	if host == nil {
		host = NativeHost{}
	}
	rt := &Runtime{
		host:     host,
		observer: cfg.Observer,
		names:    NewNameTable(),
		registry: NewRefTable[Value](),
		byName:   make(map[string]*Class),
	}
	rt.global = NewSignalTable(rt.names, rt.registry)
	return rt
}

// Host returns the scripting host.
func (rt *Runtime) Host() Host { return rt.host }

// Names returns the signal name table.
func (rt *Runtime) Names() *NameTable { return rt.names }

// Registry returns the table retaining class-level handlers and miss
// handlers.
func (rt *Runtime) Registry() *RefTable[Value] { return rt.registry }

// GlobalSignals returns the runtime-wide signal table.
func (rt *Runtime) GlobalSignals() *SignalTable { return rt.global }

// SetObserver replaces the observer.
func (rt *Runtime) SetObserver(o Observer) {
	rt.errMu.Lock()
	rt.observer = o
	rt.errMu.Unlock()
}

// SetErrorHandler installs fn to receive errors raised by signal handlers.
// The default logs them.
func (rt *Runtime) SetErrorHandler(fn func(error)) {
	rt.errMu.Lock()
	rt.onError = fn
	rt.errMu.Unlock()
}

// Register creates a class. The name must not already be registered.
func (rt *Runtime) Register(spec ClassSpec) (*Class, error) {
	if spec.Name == "" {
		return nil, &Error{Kind: KindRegistration, Msg: "class name is empty"}
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if _, dup := rt.byName[spec.Name]; dup {
		return nil, &Error{Kind: KindRegistration, Op: spec.Name, Msg: "name already defined"}
	}
	if spec.Parent != nil && rt.byName[spec.Parent.name] != spec.Parent {
		return nil, &Error{Kind: KindRegistration, Op: spec.Name, Msg: "parent class belongs to another runtime"}
	}

	c := &Class{
		id:               ClassID(len(rt.classes)),
		name:             spec.Name,
		parent:           spec.Parent,
		allocator:        spec.Allocator,
		collector:        spec.Collector,
		checker:          spec.Checker,
		tostring:         spec.ToString,
		indexMissProp:    spec.IndexMiss,
		newIndexMissProp: spec.NewIndexMiss,
		methods:          make(map[string]ClassMethod),
		meta:             make(map[string]Method),
		signals:          NewSignalTable(rt.names, rt.registry),
		propIndex:        make(map[string]*Property),
	}
	for name, m := range defaultClassMethods {
		c.methods[name] = m
	}
	for name, m := range spec.Methods {
		c.methods[name] = m
	}
	for name, m := range defaultObjectMethods {
		c.meta[name] = m
	}
	for name, m := range spec.Meta {
		c.meta[name] = m
	}

	rt.classes = append(rt.classes, c)
	rt.byName[c.name] = c
	log.Debugf("registered class %s", c.name)
	return c, nil
}

// LookupClass returns the class registered under name.
func (rt *Runtime) LookupClass(name string) *Class {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.byName[name]
}

// Classes returns every class in registration order.
func (rt *Runtime) Classes() []*Class {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]*Class, len(rt.classes))
	copy(out, rt.classes)
	return out
}

// Stats reports class and object counts.
func (rt *Runtime) Stats() Stats {
	classes := rt.Classes()
	rt.mu.Lock()
	live := rt.objects.live
	rt.mu.Unlock()

	s := Stats{
		Classes:   len(classes),
		Objects:   live,
		Retained:  rt.registry.Len(),
		Instances: make(map[string]int, len(classes)),
	}
	for _, c := range classes {
		s.Instances[c.name] = c.Instances()
	}
	return s
}

// Objects returns the handles of every live object, in arena order.
func (rt *Runtime) Objects() []Handle {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	var out []Handle
	rt.objects.each(func(o *Object) {
		out = append(out, o.handle)
	})
	return out
}

// ---------------------------------------------------------------------------
// Handler invocation
// ---------------------------------------------------------------------------

// emit calls every handler of name in st with args. The handler list is
// snapshotted before the first call.
func (rt *Runtime) emit(st *SignalTable, e Emission, args []Value) {
	handlers := st.Snapshot(e.Signal)
	e.Handlers = len(handlers)
	if obs := rt.currentObserver(); obs != nil {
		obs.SignalEmitted(e)
	}
	for _, fn := range handlers {
		if _, err := rt.protectedCall(fn, args); err != nil {
			rt.handlerFailed(e, err)
		}
	}
}

// protectedCall invokes fn through the host, turning panics into errors.
func (rt *Runtime) protectedCall(fn Value, args []Value) (results []Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindEval, Msg: fmt.Sprint(r)}
		}
	}()
	return rt.host.Call(fn, args)
}

func (rt *Runtime) handlerFailed(e Emission, err error) {
	rt.errMu.Lock()
	obs := rt.observer
	onError := rt.onError
	nested := rt.reporting
	rt.reporting = true
	rt.errMu.Unlock()

	if obs != nil {
		obs.HandlerFailed(e, err)
	}
	if onError != nil {
		onError(err)
	} else {
		log.Errorf("error in %s handler for %q: %s", e.Scope, e.Signal, err)
	}
	// A failing debug::error handler must not report itself again.
	if !nested {
		rt.emit(rt.global, Emission{Scope: ScopeGlobal, Signal: "debug::error"}, []Value{err.Error()})
	}

	if !nested {
		rt.errMu.Lock()
		rt.reporting = false
		rt.errMu.Unlock()
	}
}

func (rt *Runtime) currentObserver() Observer {
	rt.errMu.Lock()
	defer rt.errMu.Unlock()
	return rt.observer
}

func (rt *Runtime) checkFunction(v Value) error {
	if !rt.host.Callable(v) {
		return TypeError("function", v)
	}
	return nil
}

// ClassNames returns registered class names, sorted.
func (rt *Runtime) ClassNames() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	names := make([]string, 0, len(rt.byName))
	for n := range rt.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
