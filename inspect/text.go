package inspect

import (
	"fmt"
	"io"
	"strings"
)

// WriteText renders s as indented plain text.
func WriteText(w io.Writer, s *Snapshot) error {
	var b strings.Builder
	for _, c := range s.Classes {
		if c.Parent != "" {
			fmt.Fprintf(&b, "class %s < %s\n", c.Name, c.Parent)
		} else {
			fmt.Fprintf(&b, "class %s\n", c.Name)
		}
		fmt.Fprintf(&b, "  instances: %d\n", c.Instances)
		for _, p := range c.Properties {
			fmt.Fprintf(&b, "  property %s [%s]\n", p.Name, strings.Join(p.accessors(), " "))
		}
		if len(c.Methods) > 0 {
			fmt.Fprintf(&b, "  methods: %s\n", strings.Join(c.Methods, " "))
		}
		if len(c.ClassMethods) > 0 {
			fmt.Fprintf(&b, "  class methods: %s\n", strings.Join(c.ClassMethods, " "))
		}
		writeSignals(&b, "  ", c.Signals)
	}
	writeSignals(&b, "global ", s.Global)
	for _, o := range s.Objects {
		fmt.Fprintf(&b, "object %s\n", o.String)
		writeSignals(&b, "  ", o.Signals)
	}
	fmt.Fprintf(&b, "retained: %d\n", s.Retained)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSignals(b *strings.Builder, prefix string, signals []Signal) {
	for _, sig := range signals {
		fmt.Fprintf(b, "%ssignal %s (%d)\n", prefix, sig.Name, sig.Handlers)
	}
}

func (p Property) accessors() []string {
	var out []string
	if p.New {
		out = append(out, "new")
	}
	if p.Index {
		out = append(out, "index")
	}
	if p.NewIndex {
		out = append(out, "newindex")
	}
	return out
}
