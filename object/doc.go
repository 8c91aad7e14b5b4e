// Package object implements the class, object, signal and property runtime
// that backs scriptable window-manager entities.
//
// A Runtime owns every Class descriptor, an arena of live objects addressed
// by generation-checked Handles, the runtime-wide signal table and the
// registry of retained script values. Classes form single-inheritance
// chains; property and signal lookups check the class itself first and then
// walk its ancestors, first match wins.
//
// The package does not know about any particular scripting language. The
// embedding layer supplies a Host that can call script functions and create
// script tables; NativeHost is a pure-Go host used by tests and tools.
//
// All dispatch runs on the goroutine that drives the scripting runtime.
// The locks in this package only guard shared tables against misuse; no
// lock is held while a handler or callback runs.
package object
