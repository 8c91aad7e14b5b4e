package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// runREPL starts an interactive read-eval-print loop
func runREPL(a *app, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "wmbridge REPL (type 'exit' to quit, ':help' for commands)")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	lineBuffer := strings.Builder{}

	for {
		// Show prompt
		if lineBuffer.Len() == 0 {
			fmt.Fprint(out, ">> ")
		} else {
			fmt.Fprint(out, ".. ")
		}

		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		// Handle exit
		if lineBuffer.Len() == 0 && (line == "exit" || line == "quit") {
			break
		}

		// Handle REPL commands (start with ':')
		if lineBuffer.Len() == 0 && strings.HasPrefix(line, ":") {
			handleREPLCommand(a, line, out)
			continue
		}

		// A trailing backslash continues the input on the next line
		if strings.HasSuffix(line, "\\") {
			lineBuffer.WriteString(strings.TrimSuffix(line, "\\"))
			lineBuffer.WriteString("\n")
			continue
		}
		lineBuffer.WriteString(line)

		input := strings.TrimSpace(lineBuffer.String())
		lineBuffer.Reset()
		if input != "" {
			evalAndPrint(a, input, out)
		}
	}

	fmt.Fprintln(out)
}

// handleREPLCommand handles REPL meta-commands
func handleREPLCommand(a *app, cmd string, out io.Writer) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(out, "  :classes          List classes with instance counts")
		fmt.Fprintln(out, "  :stats            Show object and reference counts")
		fmt.Fprintln(out, "  :sweep            Collect objects Lua no longer references")
		fmt.Fprintln(out, "  :dump             Print the registry as YAML")
		fmt.Fprintln(out, "  exit, quit        Exit REPL")
	case ":classes":
		s, err := a.Snapshot(false)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		for _, c := range s.Classes {
			if c.Parent != "" {
				fmt.Fprintf(out, "%s < %s (%d)\n", c.Name, c.Parent, c.Instances)
			} else {
				fmt.Fprintf(out, "%s (%d)\n", c.Name, c.Instances)
			}
		}
	case ":stats":
		s, err := a.Snapshot(true)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		counts := map[string]int{}
		for _, o := range s.Objects {
			counts[o.Class]++
		}
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(out, "%d live objects, %d retained references\n", len(s.Objects), s.Retained)
		for _, name := range names {
			fmt.Fprintf(out, "  %-12s %d\n", name, counts[name])
		}
	case ":sweep":
		stats, err := a.sweeper.SweepNow()
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "collected %d, %d live\n", stats.Collected, stats.Live)
	case ":dump":
		if err := a.Dump(out, "yaml", true); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// evalAndPrint evaluates a line of Lua, printing its results
func evalAndPrint(a *app, input string, out io.Writer) {
	results, err := a.Eval(input)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	if len(results) > 0 {
		fmt.Fprintln(out, strings.Join(results, "\t"))
	}
}
