package object

import (
	"reflect"
	"sync"
)

// ---------------------------------------------------------------------------
// RefTable: the reference bridge
// ---------------------------------------------------------------------------

// RefTable counts how many times native state references a script value.
// A value stays in the table, and therefore reachable, until every Retain
// has been matched by a Release.
type RefTable[T comparable] struct {
	mu        sync.Mutex
	counts    map[T]int
	onRelease func(T)
}

// Retained is the handle returned by RefTable.Retain.
type Retained[T comparable] struct {
	table *RefTable[T]
	value T
}

// NewRefTable creates an empty reference table.
func NewRefTable[T comparable]() *RefTable[T] {
	return &RefTable[T]{counts: make(map[T]int)}
}

// OnRelease registers fn to run when a value's count drops to zero.
func (rt *RefTable[T]) OnRelease(fn func(T)) {
	rt.mu.Lock()
	rt.onRelease = fn
	rt.mu.Unlock()
}

// Retain increments the count for v.
func (rt *RefTable[T]) Retain(v T) (Retained[T], error) {
	if t := reflect.TypeOf(v); t != nil && !t.Comparable() {
		return Retained[T]{}, TypeError("reference", v)
	}
	rt.mu.Lock()
	rt.counts[v]++
	rt.mu.Unlock()
	return Retained[T]{table: rt, value: v}, nil
}

// Release decrements the count for v and returns what remains. Releasing a
// value that is not retained is an internal error.
func (rt *RefTable[T]) Release(v T) (int, error) {
	rt.mu.Lock()
	n, ok := rt.counts[v]
	if !ok {
		rt.mu.Unlock()
		return 0, internalError("release", "BUG: reference not found")
	}
	n--
	var hook func(T)
	if n == 0 {
		delete(rt.counts, v)
		hook = rt.onRelease
	} else {
		rt.counts[v] = n
	}
	rt.mu.Unlock()

	if hook != nil {
		hook(v)
	}
	return n, nil
}

// Count returns the current count for v.
func (rt *RefTable[T]) Count(v T) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.counts[v]
}

// Len returns the number of distinct retained values.
func (rt *RefTable[T]) Len() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.counts)
}

// Clear drops every entry and returns how many distinct values were held.
func (rt *RefTable[T]) Clear() int {
	rt.mu.Lock()
	dropped := make([]T, 0, len(rt.counts))
	for v := range rt.counts {
		dropped = append(dropped, v)
	}
	rt.counts = make(map[T]int)
	hook := rt.onRelease
	rt.mu.Unlock()

	if hook != nil {
		for _, v := range dropped {
			hook(v)
		}
	}
	return len(dropped)
}

// Value returns the retained value.
func (r Retained[T]) Value() T {
	return r.value
}

// Valid reports whether r came from a successful Retain.
func (r Retained[T]) Valid() bool {
	return r.table != nil
}

// Release gives back this reference.
func (r Retained[T]) Release() (int, error) {
	if r.table == nil {
		return 0, internalError("release", "BUG: reference not found")
	}
	return r.table.Release(r.value)
}
