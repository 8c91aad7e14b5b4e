package luabind

import (
	"strings"

	"github.com/chazu/wmbridge/object"
	lua "github.com/yuin/gopher-lua"
)

// DefaultLibPaths are the system library patterns added by AddDefaultLibs.
var DefaultLibPaths = []string{
	"/usr/share/awesome/lib/?.lua",
	"/usr/share/awesome/lib/?/init.lua",
}

// LoadAndRun runs the script at path. A file that cannot be read or parsed
// yields a load error carrying the path; a script failure yields an
// evaluation error carrying the Lua message.
func (b *Binding) LoadAndRun(path string) error {
	_, err := b.run(path)
	return err
}

func (b *Binding) run(path string) ([]lua.LValue, error) {
	fn, err := b.L.LoadFile(path)
	if err != nil {
		return nil, &object.Error{Kind: object.KindLoad, Op: path, Msg: loadReason(err), Err: err}
	}
	return b.call(fn, path)
}

// call runs a loaded chunk in protected mode and returns its results.
func (b *Binding) call(fn *lua.LFunction, op string) ([]lua.LValue, error) {
	L := b.L
	top := L.GetTop()
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, &object.Error{Kind: object.KindEval, Op: op, Msg: evalReason(err), Err: err}
	}
	n := L.GetTop() - top
	results := make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		results[i] = L.Get(top + 1 + i)
	}
	L.Pop(n)
	b.Sweep()
	return results, nil
}

// Eval runs a line of source and returns its results rendered with
// tostring. A line that parses as an expression is evaluated as one.
func (b *Binding) Eval(src string) ([]string, error) {
	fn, err := b.L.LoadString("return " + src)
	if err != nil {
		fn, err = b.L.LoadString(src)
	}
	if err != nil {
		return nil, &object.Error{Kind: object.KindLoad, Op: "eval", Msg: loadReason(err), Err: err}
	}
	results, err := b.call(fn, "eval")
	if err != nil {
		return nil, err
	}
	out := make([]string, len(results))
	for i, v := range results {
		out[i] = lua.LVAsString(b.L.ToStringMeta(v))
	}
	return out, nil
}

// LoadLibrary runs the script at path and binds its first result to the
// global name.
func (b *Binding) LoadLibrary(name, path string) error {
	results, err := b.run(path)
	if err != nil {
		return err
	}
	var v lua.LValue = lua.LTrue
	if len(results) > 0 && results[0] != lua.LNil {
		v = results[0]
	}
	b.L.SetGlobal(name, v)
	return nil
}

// AddLibLookupPath appends patterns to package.path.
func (b *Binding) AddLibLookupPath(patterns ...string) {
	if len(patterns) == 0 {
		return
	}
	pkg := b.L.GetGlobal("package")
	cur := lua.LVAsString(b.L.GetField(pkg, "path"))
	parts := []string{}
	if cur != "" {
		parts = append(parts, cur)
	}
	parts = append(parts, patterns...)
	b.L.SetField(pkg, "path", lua.LString(strings.Join(parts, ";")))
}

// AddDefaultLibs appends DefaultLibPaths to package.path.
func (b *Binding) AddDefaultLibs() {
	b.AddLibLookupPath(DefaultLibPaths...)
}

// LibLookupPath returns the current package.path.
func (b *Binding) LibLookupPath() string {
	return lua.LVAsString(b.L.GetField(b.L.GetGlobal("package"), "path"))
}

func loadReason(err error) string {
	if apiErr, ok := err.(*lua.ApiError); ok {
		if apiErr.Cause != nil {
			return apiErr.Cause.Error()
		}
		return lua.LVAsString(apiErr.Object)
	}
	return err.Error()
}

func evalReason(err error) string {
	if apiErr, ok := err.(*lua.ApiError); ok {
		return lua.LVAsString(apiErr.Object)
	}
	return err.Error()
}
