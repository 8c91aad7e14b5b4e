package object

import (
	"reflect"
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// SignalTable: named event subscribers
// ---------------------------------------------------------------------------

// SignalTable maps signal names to ordered handler lists. Every stored
// handler holds one reference in the table's RefTable.
type SignalTable struct {
	mu      sync.Mutex
	names   *NameTable
	refs    *RefTable[Value]
	buckets map[SignalID][]Value
}

// NewSignalTable creates a signal table that interns names in names and
// retains handlers in refs.
func NewSignalTable(names *NameTable, refs *RefTable[Value]) *SignalTable {
	return &SignalTable{
		names:   names,
		refs:    refs,
		buckets: make(map[SignalID][]Value),
	}
}

// Connect appends fn to the handlers of name. Connecting the same handler
// twice yields two entries.
func (st *SignalTable) Connect(name string, fn Value) error {
	if _, err := st.refs.Retain(fn); err != nil {
		return err
	}
	id := st.names.Intern(name)

	st.mu.Lock()
	st.buckets[id] = append(st.buckets[id], fn)
	st.mu.Unlock()
	return nil
}

// Disconnect removes the first handler of name identical to fn and returns
// the number of entries removed (0 or 1).
func (st *SignalTable) Disconnect(name string, fn Value) (int, error) {
	id, ok := st.names.Lookup(name)
	if !ok {
		return 0, nil
	}

	st.mu.Lock()
	bucket := st.buckets[id]
	idx := -1
	for i, h := range bucket {
		if sameValue(h, fn) {
			idx = i
			break
		}
	}
	if idx < 0 {
		st.mu.Unlock()
		return 0, nil
	}
	// Build a fresh slice so snapshots taken by in-flight emissions are
	// never written through.
	next := make([]Value, 0, len(bucket)-1)
	next = append(next, bucket[:idx]...)
	next = append(next, bucket[idx+1:]...)
	if len(next) == 0 {
		delete(st.buckets, id)
	} else {
		st.buckets[id] = next
	}
	st.mu.Unlock()

	if _, err := st.refs.Release(fn); err != nil {
		return 1, err
	}
	return 1, nil
}

// Snapshot returns a copy of the handlers currently connected to name.
func (st *SignalTable) Snapshot(name string) []Value {
	id, ok := st.names.Lookup(name)
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	bucket := st.buckets[id]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]Value, len(bucket))
	copy(out, bucket)
	return out
}

// Has reports whether name has at least one handler.
func (st *SignalTable) Has(name string) bool {
	return st.Count(name) > 0
}

// Count returns the number of handlers connected to name.
func (st *SignalTable) Count(name string) int {
	id, ok := st.names.Lookup(name)
	if !ok {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.buckets[id])
}

// Names returns the signal names with handlers, sorted.
func (st *SignalTable) Names() []string {
	st.mu.Lock()
	ids := make([]SignalID, 0, len(st.buckets))
	for id := range st.buckets {
		ids = append(ids, id)
	}
	st.mu.Unlock()

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, st.names.Name(id))
	}
	sort.Strings(names)
	return names
}

// Clear disconnects every handler and releases its reference.
func (st *SignalTable) Clear() {
	st.mu.Lock()
	buckets := st.buckets
	st.buckets = make(map[SignalID][]Value)
	st.mu.Unlock()

	for _, bucket := range buckets {
		for _, fn := range bucket {
			st.refs.Release(fn)
		}
	}
}

func sameValue(a, b Value) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta != nil && !ta.Comparable() {
		return false
	}
	return a == b
}
