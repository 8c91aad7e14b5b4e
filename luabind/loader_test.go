package luabind

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/wmbridge/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadAndRun(t *testing.T) {
	b := newBinding(t)
	path := writeScript(t, t.TempDir(), "rc.lua", `
		b = button{ button = 2 }
		result = b.button * 10
	`)
	require.NoError(t, b.LoadAndRun(path))
	assert.Equal(t, 20.0, number(t, b, "result"))
}

func TestLoadAndRunMissingFile(t *testing.T) {
	b := newBinding(t)
	path := filepath.Join(t.TempDir(), "missing.lua")

	err := b.LoadAndRun(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, object.ErrLoad))
	assert.Equal(t, object.KindLoad, object.KindOf(err))

	var oe *object.Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, path, oe.Op)
}

func TestLoadAndRunSyntaxError(t *testing.T) {
	b := newBinding(t)
	path := writeScript(t, t.TempDir(), "broken.lua", "local x = = 1\n")

	err := b.LoadAndRun(path)
	require.Error(t, err)
	assert.Equal(t, object.KindLoad, object.KindOf(err))
}

func TestLoadAndRunRuntimeError(t *testing.T) {
	b := newBinding(t)
	path := writeScript(t, t.TempDir(), "fail.lua", `error("configuration is broken")`)

	err := b.LoadAndRun(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, object.ErrEval))
	assert.Contains(t, err.Error(), "configuration is broken")
}

func TestLoadLibrary(t *testing.T) {
	b := newBinding(t)
	dir := t.TempDir()
	lib := writeScript(t, dir, "gears.lua", `
		local gears = {}
		function gears.double(x) return x * 2 end
		return gears
	`)
	bare := writeScript(t, dir, "side.lua", `side_effect = true`)

	require.NoError(t, b.LoadLibrary("gears", lib))
	require.NoError(t, b.LoadLibrary("side", bare))
	run(t, b, `doubled = gears.double(21)`)
	assert.Equal(t, 42.0, number(t, b, "doubled"))
	assert.Equal(t, lua.LTrue, b.L.GetGlobal("side"))
}

func TestLibLookupPath(t *testing.T) {
	b := newBinding(t)
	dir := t.TempDir()
	writeScript(t, dir, "awful/init.lua", `return { name = "awful" }`)

	before := b.LibLookupPath()
	b.AddLibLookupPath()
	assert.Equal(t, before, b.LibLookupPath())

	b.AddLibLookupPath(filepath.Join(dir, "?.lua"), filepath.Join(dir, "?", "init.lua"))
	run(t, b, `name = require("awful").name`)
	assert.Equal(t, "awful", str(b, "name"))

	b.AddDefaultLibs()
	path := b.LibLookupPath()
	for _, p := range DefaultLibPaths {
		assert.True(t, strings.Contains(path, p), "missing %s in %s", p, path)
	}
}

func TestEval(t *testing.T) {
	b := newBinding(t)

	out, err := b.Eval(`1 + 2, "three"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "three"}, out)

	out, err = b.Eval(`x = button{ button = 4 }`)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = b.Eval(`x`)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Regexp(t, `^button: 0x`, out[0])

	_, err = b.Eval(`local = `)
	assert.Equal(t, object.KindLoad, object.KindOf(err))

	_, err = b.Eval(`error("nope")`)
	assert.Equal(t, object.KindEval, object.KindOf(err))
}
