package main

import (
	"context"
	"fmt"
	"io"

	"github.com/chazu/wmbridge/config"
	"github.com/chazu/wmbridge/entity"
	"github.com/chazu/wmbridge/inspect"
	"github.com/chazu/wmbridge/luabind"
	"github.com/chazu/wmbridge/trace"
)

// app wires a configuration to a Lua binding. After newApp returns, all
// access to the binding goes through the worker.
type app struct {
	cfg      *config.Config
	binding  *luabind.Binding
	classes  *entity.Classes
	recorder *trace.Recorder
	worker   *luabind.Worker
	sweeper  *luabind.Sweeper
}

// newApp creates the binding, registers the entity classes, sets up the
// library search path and loads the configured libraries.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	var opts luabind.Options
	if path := cfg.TraceDBPath(); path != "" {
		rec, err := trace.Open(path)
		if err != nil {
			return nil, fmt.Errorf("trace: %w", err)
		}
		a.recorder = rec
		opts.Observer = rec
		log.Infof("recording session %s to %s", rec.Session(), path)
	}

	a.binding = luabind.New(opts)
	classes, err := entity.RegisterAll(a.binding)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.classes = classes

	a.binding.AddLibLookupPath(cfg.LibPathPatterns()...)
	if cfg.Lua.DefaultLibs {
		a.binding.AddDefaultLibs()
	}
	for _, lib := range cfg.LibraryPaths() {
		if err := a.binding.LoadLibrary(lib.Name, lib.Path); err != nil {
			a.Close()
			return nil, fmt.Errorf("library %s: %w", lib.Name, err)
		}
		log.Debugf("loaded library %s from %s", lib.Name, lib.Path)
	}

	a.worker = luabind.NewWorker(a.binding)
	a.sweeper = luabind.NewSweeper(a.worker, cfg.Debug.SweepInterval, true)
	return a, nil
}

// Run runs the rc script.
func (a *app) Run() error {
	path := a.cfg.RCPath()
	log.Infof("running %s", path)
	_, err := a.worker.Do(func(b *luabind.Binding) (any, error) {
		return nil, b.LoadAndRun(path)
	})
	return err
}

// Eval evaluates one line of Lua.
func (a *app) Eval(src string) ([]string, error) {
	v, err := a.worker.Do(func(b *luabind.Binding) (any, error) {
		return b.Eval(src)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Snapshot captures the runtime.
func (a *app) Snapshot(objects bool) (*inspect.Snapshot, error) {
	v, err := a.worker.Do(func(b *luabind.Binding) (any, error) {
		return inspect.Take(b.Runtime(), inspect.Options{Objects: objects}), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*inspect.Snapshot), nil
}

// Dump writes a snapshot of the runtime to w.
func (a *app) Dump(w io.Writer, format string, objects bool) error {
	s, err := a.Snapshot(objects)
	if err != nil {
		return err
	}
	data, err := inspect.Encode(s, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Wait sweeps collected objects periodically until ctx is done.
func (a *app) Wait(ctx context.Context) {
	a.sweeper.Start()
	<-ctx.Done()
	a.sweeper.Stop()
	if stats := a.sweeper.LastStats(); stats != nil {
		log.Infof("%d sweeps, %d live objects", a.sweeper.SweepCount(), stats.Live)
	}
}

// Close stops the background goroutines and releases the Lua state and
// the trace database.
func (a *app) Close() {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.worker != nil {
		a.worker.Stop()
	}
	if a.binding != nil {
		a.binding.Close()
	}
	if a.recorder != nil {
		if err := a.recorder.Err(); err != nil {
			log.Warningf("trace incomplete: %s", err)
		}
		if err := a.recorder.Close(); err != nil {
			log.Errorf("closing trace: %s", err)
		}
	}
}
