// Package config handles wmbridge.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
)

// FileName is the name of the configuration file.
const FileName = "wmbridge.toml"

// Config represents a wmbridge.toml configuration.
type Config struct {
	Lua   Lua   `toml:"lua"`
	Log   Log   `toml:"log"`
	Debug Debug `toml:"debug"`

	// Dir is the directory containing the wmbridge.toml file (set at load
	// time). Relative paths are resolved against it.
	Dir string `toml:"-"`
}

// Lua configures the scripting runtime.
type Lua struct {
	RC          string    `toml:"rc"`
	LibPaths    []string  `toml:"lib_paths"`
	DefaultLibs bool      `toml:"default_libs"`
	Libraries   []Library `toml:"library"`
}

// Library is a script run at startup whose result is bound to a global.
type Library struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Debug configures diagnostics.
type Debug struct {
	TraceDB       string        `toml:"trace_db"`
	Dump          string        `toml:"dump"`
	SweepInterval time.Duration `toml:"sweep_interval"`
}

// Dump formats.
const (
	DumpYAML = "yaml"
	DumpCBOR = "cbor"
	DumpText = "text"
)

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Lua: Lua{
			RC:          "rc.lua",
			DefaultLibs: true,
		},
		Log: Log{
			Verbosity: 1,
		},
		Debug: Debug{
			SweepInterval: 5 * time.Second,
		},
		Dir: ".",
	}
}

// Load parses a wmbridge.toml file from the given directory. Keys missing
// from the file keep their Default values.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if c.Lua.RC == "" {
		c.Lua.RC = "rc.lua"
	}
	if c.Debug.SweepInterval <= 0 {
		c.Debug.SweepInterval = 5 * time.Second
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a wmbridge.toml file, then
// loads and returns the configuration. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks values that decoding alone cannot.
func (c *Config) Validate() error {
	switch c.Debug.Dump {
	case "", DumpYAML, DumpCBOR, DumpText:
	default:
		return fmt.Errorf("unknown dump format %q", c.Debug.Dump)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("negative log verbosity %d", c.Log.Verbosity)
	}
	seen := make(map[string]bool, len(c.Lua.Libraries))
	for i, lib := range c.Lua.Libraries {
		if lib.Name == "" || lib.Path == "" {
			return fmt.Errorf("library %d: name and path are required", i+1)
		}
		if seen[lib.Name] {
			return fmt.Errorf("library %q listed twice", lib.Name)
		}
		seen[lib.Name] = true
	}
	return nil
}

// Resolve returns path relative to the configuration directory. Absolute
// paths and the empty string are returned unchanged.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// RCPath returns the absolute path of the rc script.
func (c *Config) RCPath() string {
	return c.Resolve(c.Lua.RC)
}

// LibPathPatterns returns the package.path patterns with relative entries
// resolved.
func (c *Config) LibPathPatterns() []string {
	var paths []string
	for _, p := range c.Lua.LibPaths {
		paths = append(paths, c.Resolve(p))
	}
	return paths
}

// LibraryPaths returns the startup libraries with their paths resolved.
func (c *Config) LibraryPaths() []Library {
	libs := make([]Library, len(c.Lua.Libraries))
	for i, lib := range c.Lua.Libraries {
		libs[i] = Library{Name: lib.Name, Path: c.Resolve(lib.Path)}
	}
	return libs
}

// TraceDBPath returns the trace database path, or "" when tracing is off.
func (c *Config) TraceDBPath() string {
	return c.Resolve(c.Debug.TraceDB)
}

// ConfigureLogging applies the log section to commonlog. An empty file
// logs to stderr.
func (c *Config) ConfigureLogging() {
	var path *string
	if c.Log.File != "" {
		file := c.Resolve(c.Log.File)
		path = &file
	}
	commonlog.Configure(c.Log.Verbosity, path)
}
