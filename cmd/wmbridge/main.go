// wmbridge - runs window manager configuration scripts against the object
// runtime
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/chazu/wmbridge/config"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("wmbridge")

func main() {
	configDir := flag.String("config", "", "Directory containing wmbridge.toml (default: search upward from the working directory)")
	rc := flag.String("rc", "", "Script to run (overrides lua.rc)")
	dump := flag.String("dump", "", "Dump the registry after the script runs: yaml, cbor or text (overrides debug.dump)")
	dumpObjects := flag.Bool("objects", false, "Include live objects in the dump")
	traceDB := flag.String("trace", "", "Record runtime events to a SQLite database (overrides debug.trace_db)")
	wait := flag.Bool("wait", false, "Keep running and collect unreachable objects until interrupted")
	interactive := flag.Bool("i", false, "Start interactive REPL after the script")
	verbosity := flag.Int("v", -1, "Log verbosity (overrides log.verbosity)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wmbridge [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the configured rc script with the button and tag classes available.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  wmbridge -rc rc.lua -dump yaml     # Run rc.lua, print the registry\n")
		fmt.Fprintf(os.Stderr, "  wmbridge -i                        # Run the configured rc, then a REPL\n")
		fmt.Fprintf(os.Stderr, "  wmbridge -trace trace.db -wait     # Record events until interrupted\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *rc != "" {
		// A script named on the command line is relative to the working
		// directory.
		path, err := filepath.Abs(*rc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.Lua.RC = path
	}
	if *dump != "" {
		cfg.Debug.Dump = *dump
	}
	if *traceDB != "" {
		cfg.Debug.TraceDB = *traceDB
	}
	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg.ConfigureLogging()

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		// The REPL and the sweeper still work after a failed rc.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !*interactive && !*wait {
			a.Close()
			os.Exit(1)
		}
	}

	if cfg.Debug.Dump != "" {
		if err := a.Dump(os.Stdout, cfg.Debug.Dump, *dumpObjects); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	switch {
	case *interactive:
		runREPL(a, os.Stdin, os.Stdout)
	case *wait:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		a.Wait(ctx)
	}
}

// loadConfig loads wmbridge.toml from dir, or searches upward from the
// working directory when dir is empty. Without a file the defaults apply.
func loadConfig(dir string) (*config.Config, error) {
	if dir != "" {
		return config.Load(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
		cfg.Dir = wd
	}
	return cfg, nil
}
