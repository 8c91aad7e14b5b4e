package object

import "sync"

// SignalID identifies an interned signal name. IDs are dense and issued in
// order of first use, so two names never share one.
type SignalID uint32

// NameTable interns the signal names of one Runtime. Every signal table of
// the runtime keys its buckets by the same IDs, so "property::button" on an
// object and on its class is the same signal.
type NameTable struct {
	mu    sync.Mutex
	ids   map[string]SignalID
	names []string
}

// NewNameTable creates an empty name table.
func NewNameTable() *NameTable {
	return &NameTable{ids: make(map[string]SignalID)}
}

// Intern returns the ID for name, issuing the next one on first use.
func (nt *NameTable) Intern(name string) SignalID {
	id, _ := nt.id(name, true)
	return id
}

// Lookup returns the ID for name. A name no handler was ever connected to
// has none, and Lookup does not issue one: emitting or disconnecting an
// unknown signal must not grow the table.
func (nt *NameTable) Lookup(name string) (SignalID, bool) {
	return nt.id(name, false)
}

func (nt *NameTable) id(name string, issue bool) (SignalID, bool) {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	if id, ok := nt.ids[name]; ok {
		return id, true
	}
	if !issue {
		return 0, false
	}
	id := SignalID(len(nt.names))
	nt.ids[name] = id
	nt.names = append(nt.names, name)
	return id, true
}

// Name returns the name behind id, or "" for an ID this table never issued.
func (nt *NameTable) Name(id SignalID) string {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	if int(id) < len(nt.names) {
		return nt.names[id]
	}
	return ""
}

// Len returns the number of interned names.
func (nt *NameTable) Len() int {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	return len(nt.names)
}
