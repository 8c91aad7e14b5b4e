package object

import "testing"

// ---------------------------------------------------------------------------
// Index / NewIndex
// ---------------------------------------------------------------------------

func TestIndexData(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	h := mustNew(t, rt, cls)

	got, err := rt.Index(h, "data")
	if err != nil {
		t.Fatalf("Index(data): %v", err)
	}
	data, ok := got[0].(Table)
	if !ok {
		t.Fatalf("data = %T, want Table", got[0])
	}
	data["k"] = "v"
	again, _ := rt.Index(h, "data")
	if again[0].(Table)["k"] != "v" {
		t.Error("data table is not stable across reads")
	}
}

func TestNewIndexSetsProperty(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	addSize(t, cls)
	h := mustNew(t, rt, cls)

	if err := rt.NewIndex(h, "size", 4.0); err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	got, _ := rt.Index(h, "size")
	if got[0] != 4 {
		t.Errorf("size = %v, want 4", got[0])
	}
	wantKind(t, rt.NewIndex(h, "size", 4.5), KindType)
}

func TestIndexPropertyWithoutGetter(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	cls.AddProperty(Property{Name: "writeonly"})
	miss := newRecorder("miss")
	rt.ConnectGlobal("debug::index::miss", miss.fn)

	h := mustNew(t, rt, cls)
	got, err := rt.Index(h, "writeonly")
	if err != nil || len(got) != 0 {
		t.Errorf("Index = %v, %v; want nothing", got, err)
	}
	if len(miss.calls) != 0 {
		t.Error("declared property must not count as a miss")
	}
}

func TestIndexMissFallback(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	h := mustNew(t, rt, cls)

	miss := newRecorder("miss")
	rt.ConnectGlobal("debug::index::miss", miss.fn)
	got, err := rt.Index(h, "nope")
	if err != nil || len(got) != 0 {
		t.Fatalf("Index = %v, %v", got, err)
	}
	if len(miss.calls) != 1 {
		t.Fatalf("debug::index::miss fired %d times", len(miss.calls))
	}
	if args := miss.calls[0]; args[0] != Value(h) || args[1] != "nope" {
		t.Errorf("miss args = %v", args)
	}

	nmiss := newRecorder("nmiss")
	rt.ConnectGlobal("debug::newindex::miss", nmiss.fn)
	if err := rt.NewIndex(h, "nope", 9); err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if len(nmiss.calls) != 1 || nmiss.calls[0][2] != 9 {
		t.Errorf("debug::newindex::miss calls = %v", nmiss.calls)
	}
}

func TestMissHandlerTakesPriority(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	h := mustNew(t, rt, cls)

	fallback := newRecorder("fallback")
	rt.ConnectGlobal("debug::index::miss", fallback.fn)

	calls := 0
	handler := NewFunc("handler", func(args []Value) ([]Value, error) {
		calls++
		return []Value{"from " + args[1].(string)}, nil
	})
	if _, err := rt.CallClassMethod(cls, "set_index_miss_handler", handler); err != nil {
		t.Fatalf("set_index_miss_handler: %v", err)
	}

	got, err := rt.Index(h, "color")
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if calls != 1 {
		t.Errorf("miss handler ran %d times, want 1", calls)
	}
	if len(fallback.calls) != 0 {
		t.Error("native fallback ran despite a miss handler")
	}
	if len(got) != 1 || got[0] != "from color" {
		t.Errorf("Index = %v", got)
	}
}

func TestNewIndexMissHandler(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	h := mustNew(t, rt, cls)

	handler := newRecorder("handler")
	rt.SetNewIndexMissHandler(cls, handler.fn)
	rt.NewIndex(h, "color", "red")
	if len(handler.calls) != 1 {
		t.Fatalf("handler calls = %d", len(handler.calls))
	}
	if args := handler.calls[0]; args[0] != Value(h) || args[1] != "color" || args[2] != "red" {
		t.Errorf("handler args = %v", args)
	}
}

func TestMissHandlerReplacementReleasesOld(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	first := NewFunc("first", nil)
	second := NewFunc("second", nil)

	rt.SetIndexMissHandler(cls, first)
	rt.SetIndexMissHandler(cls, second)
	if rt.Registry().Count(first) != 0 {
		t.Error("replaced handler still retained")
	}
	if rt.Registry().Count(second) != 1 {
		t.Error("new handler not retained")
	}
	rt.SetIndexMissHandler(cls, nil)
	if rt.Registry().Len() != 0 {
		t.Errorf("registry = %d after clearing", rt.Registry().Len())
	}

	wantKind(t, rt.SetIndexMissHandler(cls, "not a function"), KindType)
}

// ---------------------------------------------------------------------------
// Methods
// ---------------------------------------------------------------------------

func TestMethodsAreNotInherited(t *testing.T) {
	rt := newTestRuntime(t)
	base, _ := rt.Register(ClassSpec{
		Name: "base",
		Meta: map[string]Method{
			"raise": func(rt *Runtime, self Handle, args []Value) ([]Value, error) {
				return []Value{"raised"}, nil
			},
		},
	})
	derived, _ := rt.Register(ClassSpec{Name: "derived", Parent: base})

	hb := mustNew(t, rt, base)
	got, err := rt.CallMethod(hb, "raise")
	if err != nil || got[0] != "raised" {
		t.Fatalf("CallMethod = %v, %v", got, err)
	}

	hd := mustNew(t, rt, derived)
	_, err = rt.CallMethod(hd, "raise")
	wantKind(t, err, KindType)
}

func TestObjectSignalMethods(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	h := mustNew(t, rt, cls)
	rec := newRecorder("rec")

	if _, err := rt.CallMethod(h, "connect_signal", "ping", rec.fn); err != nil {
		t.Fatalf("connect_signal: %v", err)
	}
	if _, err := rt.CallMethod(h, "emit_signal", "ping", 1, 2); err != nil {
		t.Fatalf("emit_signal: %v", err)
	}
	if len(rec.calls) != 1 || len(rec.calls[0]) != 3 {
		t.Fatalf("calls = %v", rec.calls)
	}
	rt.CallMethod(h, "disconnect_signal", "ping", rec.fn)
	rt.CallMethod(h, "emit_signal", "ping")
	if len(rec.calls) != 1 {
		t.Error("handler fired after disconnect_signal")
	}

	_, err := rt.CallMethod(h, "connect_signal", "ping", "not a function")
	wantKind(t, err, KindType)
	_, err = rt.CallMethod(h, "connect_signal", 3, rec.fn)
	wantKind(t, err, KindType)
}

func TestClassSignalMethods(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	rec := newRecorder("rec")

	rt.CallClassMethod(cls, "add_signal", "ping")
	rt.CallClassMethod(cls, "connect_signal", "ping", rec.fn)
	rt.CallClassMethod(cls, "emit_signal", "ping", "x")
	if len(rec.calls) != 1 || rec.calls[0][0] != "x" {
		t.Fatalf("calls = %v", rec.calls)
	}
	rt.CallClassMethod(cls, "disconnect_signal", "ping", rec.fn)
	if cls.Signals().Has("ping") {
		t.Error("disconnect_signal left the handler")
	}
	_, err := rt.CallClassMethod(cls, "nope")
	wantKind(t, err, KindType)
}

// ---------------------------------------------------------------------------
// tostring
// ---------------------------------------------------------------------------

func TestToString(t *testing.T) {
	rt := newTestRuntime(t)
	window, _ := rt.Register(ClassSpec{Name: "window"})
	client, _ := rt.Register(ClassSpec{
		Name:     "client",
		Parent:   window,
		ToString: func(rt *Runtime, obj *Object) string { return "xterm" },
	})
	h := mustNew(t, rt, client)

	if s := rt.ToString(h); s != "window/client(xterm): 0x0000000100000000" {
		t.Errorf("ToString = %q", s)
	}
	rt.Collect(h)
	if s := rt.ToString(h); s != "invalid object: 0x0000000100000000" {
		t.Errorf("ToString of collected object = %q", s)
	}

	// The freed slot comes back under a newer generation.
	again := mustNew(t, rt, client)
	if s := again.String(); s != "0x0000000300000000" {
		t.Errorf("reused handle = %q", s)
	}
}

// ---------------------------------------------------------------------------
// Observer
// ---------------------------------------------------------------------------

type fakeObserver struct {
	emissions []Emission
	failures  int
	misses    []Miss
}

func (f *fakeObserver) SignalEmitted(e Emission)          { f.emissions = append(f.emissions, e) }
func (f *fakeObserver) HandlerFailed(e Emission, _ error) { f.failures++ }
func (f *fakeObserver) PropertyMissed(m Miss)             { f.misses = append(f.misses, m) }

func TestObserver(t *testing.T) {
	obs := &fakeObserver{}
	rt := NewRuntime(&Config{Observer: obs})
	cls := registerWidget(t, rt, "widget", nil)
	rt.SetErrorHandler(func(error) {})
	rt.ConnectClassSignal(cls, "new", NewFunc("f", func([]Value) ([]Value, error) {
		return nil, &Error{Kind: KindEval, Msg: "fail"}
	}))

	h := mustNew(t, rt, cls)
	rt.Index(h, "missing")

	if len(obs.emissions) == 0 || obs.emissions[0].Signal != "new" || obs.emissions[0].Scope != ScopeClass {
		t.Errorf("emissions = %+v", obs.emissions)
	}
	if obs.failures != 1 {
		t.Errorf("failures = %d, want 1", obs.failures)
	}
	if len(obs.misses) != 1 || obs.misses[0].Field != "missing" || obs.misses[0].Assign {
		t.Errorf("misses = %+v", obs.misses)
	}
}
