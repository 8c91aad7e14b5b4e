package object

import "fmt"

// Handle addresses an object in a Runtime's arena. A handle whose
// generation no longer matches its slot refers to a collected object; it is
// never resolved to the slot's new occupant.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero Handle, which never refers to an
// object.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

// ID packs the handle into a single integer, unique for the Runtime's
// lifetime.
func (h Handle) ID() uint64 {
	return uint64(h.gen)<<32 | uint64(h.index)
}

func (h Handle) String() string {
	return fmt.Sprintf("0x%016x", h.ID())
}

type slot struct {
	gen uint32
	obj *Object
}

// arena stores live objects. Freed slots are reused with a bumped
// generation.
type arena struct {
	slots []slot
	free  []uint32
	live  int
}

func (a *arena) alloc(obj *Object) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	s := &a.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.obj = obj
	a.live++
	return Handle{index: idx, gen: s.gen}
}

func (a *arena) get(h Handle) *Object {
	if h.gen == 0 || int(h.index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.index]
	if s.gen != h.gen {
		return nil
	}
	return s.obj
}

func (a *arena) release(h Handle) bool {
	if a.get(h) == nil {
		return false
	}
	s := &a.slots[h.index]
	s.obj = nil
	// Bump now so the collected handle is stale even before reuse.
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	a.free = append(a.free, h.index)
	a.live--
	return true
}

func (a *arena) each(fn func(*Object)) {
	for i := range a.slots {
		if obj := a.slots[i].obj; obj != nil {
			fn(obj)
		}
	}
}
