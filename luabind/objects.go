package luabind

import (
	"errors"
	"runtime"
	"sync"
	"weak"

	"github.com/chazu/wmbridge/object"
	lua "github.com/yuin/gopher-lua"
)

// objectRef is the Value of every object userdata. It owns the object's
// state, so the data table and handlers are reachable only through the
// userdata and a cycle back to it does not keep the object alive.
type objectRef struct {
	handle object.Handle
	state  *object.State
}

// handleEntry tracks the userdata currently representing a handle. The
// token changes whenever a new userdata is made for the same handle, so a
// cleanup report for an earlier userdata can be told apart.
type handleEntry struct {
	ud    weak.Pointer[lua.LUserData]
	token uint64
}

type cleanup struct {
	handle object.Handle
	token  uint64
}

// handleMap maps live handles to their userdata without keeping the
// userdata reachable, and queues cleanup reports from the Go collector.
type handleMap struct {
	entries map[object.Handle]handleEntry
	next    uint64

	mu      sync.Mutex // guards pending; cleanups run on their own goroutine
	pending []cleanup
}

func newHandleMap() *handleMap {
	return &handleMap{entries: make(map[object.Handle]handleEntry)}
}

func (m *handleMap) enqueue(c cleanup) {
	m.mu.Lock()
	m.pending = append(m.pending, c)
	m.mu.Unlock()
}

func (m *handleMap) drain() []cleanup {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	return out
}

// Pending returns the number of queued cleanup reports.
func (b *Binding) Pending() int {
	b.objects.mu.Lock()
	defer b.objects.mu.Unlock()
	return len(b.objects.pending)
}

// push returns the userdata for h, creating one if h has none or its
// previous userdata was already reclaimed. The userdata takes over the
// object's state.
func (b *Binding) push(h object.Handle) lua.LValue {
	st, err := b.rt.Detach(h)
	if err != nil {
		return lua.LNil
	}
	if e, ok := b.objects.entries[h]; ok {
		if ud := e.ud.Value(); ud != nil {
			return ud
		}
	}
	if st == nil {
		// The state went with the last userdata; the object is already
		// unreachable from Lua.
		delete(b.objects.entries, h)
		if err := b.rt.Collect(h); err != nil {
			log.Errorf("collecting %s: %s", h, err)
		}
		return lua.LNil
	}

	ud := b.L.NewUserData()
	ud.Value = &objectRef{handle: h, state: st}
	b.L.SetMetatable(ud, b.objectMeta)

	b.objects.next++
	token := b.objects.next
	b.objects.entries[h] = handleEntry{ud: weak.Make(ud), token: token}
	runtime.AddCleanup(ud, b.objects.enqueue, cleanup{handle: h, token: token})
	return ud
}

// Sweep collects every object whose userdata has been reclaimed since the
// last sweep and returns how many were collected. It must run on the
// goroutine that owns the Lua state.
func (b *Binding) Sweep() int {
	collected := 0
	for _, c := range b.objects.drain() {
		e, ok := b.objects.entries[c.handle]
		if !ok || e.token != c.token {
			// A newer userdata represents this handle now.
			continue
		}
		delete(b.objects.entries, c.handle)
		if err := b.rt.Collect(c.handle); err != nil {
			if !errors.Is(err, object.ErrInvalidObject) {
				log.Errorf("collecting %s: %s", c.handle, err)
			}
			continue
		}
		collected++
	}
	if collected > 0 {
		log.Debugf("swept %d objects", collected)
	}
	return collected
}

// Collect tears down the object behind ud immediately.
func (b *Binding) Collect(ud *lua.LUserData) error {
	ref, ok := ud.Value.(*objectRef)
	if !ok {
		return object.TypeError("object", ud)
	}
	delete(b.objects.entries, ref.handle)
	return b.rt.Collect(ref.handle)
}

// checkObject returns the handle of the object userdata at idx.
func (b *Binding) checkObject(L *lua.LState, idx int) object.Handle {
	ud := L.CheckUserData(idx)
	ref, ok := ud.Value.(*objectRef)
	if !ok {
		L.ArgError(idx, "object expected")
	}
	return ref.handle
}

// newObjectMeta builds the metatable shared by all object userdata.
func (b *Binding) newObjectMeta() *lua.LTable {
	L := b.L
	meta := L.NewTable()
	L.SetField(meta, "__index", L.NewFunction(b.index))
	L.SetField(meta, "__newindex", L.NewFunction(b.newIndex))
	L.SetField(meta, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(b.rt.ToString(b.checkObject(L, 1))))
		return 1
	}))
	return meta
}

func (b *Binding) index(L *lua.LState) int {
	h := b.checkObject(L, 1)
	field := L.CheckString(2)

	if field == "valid" {
		L.Push(lua.LBool(b.rt.Valid(h)))
		return 1
	}
	cls, err := b.rt.ClassOf(h)
	if err != nil {
		b.raise(L, err)
	}
	if m, ok := cls.Method(field); ok {
		L.Push(b.methodFunc(cls, field, m))
		return 1
	}

	results, err := b.rt.Index(h, field)
	if err != nil {
		b.raise(L, err)
	}
	return b.pushAll(L, results)
}

func (b *Binding) newIndex(L *lua.LState) int {
	h := b.checkObject(L, 1)
	field := L.CheckString(2)
	if err := b.rt.NewIndex(h, field, b.toGo(L.Get(3))); err != nil {
		b.raise(L, err)
	}
	return 0
}

// methodFunc returns the Lua function for an object method, called as
// obj:name(...).
func (b *Binding) methodFunc(cls *object.Class, name string, m object.Method) *lua.LFunction {
	key := methodKey{class: cls, name: name}
	if fn, ok := b.methods[key]; ok {
		return fn
	}
	fn := b.L.NewFunction(func(L *lua.LState) int {
		self := b.checkObject(L, 1)
		results, err := m(b.rt, self, b.args(L, 2))
		if err != nil {
			b.raise(L, err)
		}
		return b.pushAll(L, results)
	})
	b.methods[key] = fn
	return fn
}
