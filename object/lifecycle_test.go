package object

import (
	"errors"
	"runtime"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewRunsConstructorsInFieldOrder(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)

	var seen []string
	for _, name := range []string{"a", "b"} {
		name := name
		cls.AddProperty(Property{
			Name: name,
			New: func(rt *Runtime, obj *Object, v Value) error {
				seen = append(seen, name)
				return nil
			},
		})
	}

	mustNew(t, rt, cls, Field{"b", 1}, Field{"unknown", 2}, Field{"a", 3})
	if len(seen) != 2 || seen[0] != "b" || seen[1] != "a" {
		t.Errorf("constructor order = %v, want [b a]", seen)
	}
}

func TestNewEmitsNewOnce(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	rec := newRecorder("on_new")
	rt.ConnectClassSignal(cls, "new", rec.fn)

	h := mustNew(t, rt, cls)
	if len(rec.calls) != 1 {
		t.Fatalf("new fired %d times", len(rec.calls))
	}
	if len(rec.calls[0]) != 1 || rec.calls[0][0] != Value(h) {
		t.Errorf("new args = %v, want [object]", rec.calls[0])
	}
}

func TestNewFailingConstructorCollects(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	addSize(t, cls)
	rec := newRecorder("on_new")
	rt.ConnectClassSignal(cls, "new", rec.fn)

	_, err := rt.New(cls, []Field{{"size", "large"}})
	wantKind(t, err, KindType)
	if !strings.Contains(err.Error(), "widget.size") {
		t.Errorf("error %q should name the field", err)
	}
	if cls.Instances() != 0 {
		t.Errorf("Instances = %d after failed construction", cls.Instances())
	}
	if len(rec.calls) != 0 {
		t.Error("new fired for a failed construction")
	}
	if rt.Stats().Objects != 0 {
		t.Error("failed construction left an object behind")
	}
}

func TestNewAllocatorError(t *testing.T) {
	rt := newTestRuntime(t)
	boom := errors.New("no memory")
	cls, _ := rt.Register(ClassSpec{
		Name:      "widget",
		Allocator: func(rt *Runtime) (any, error) { return nil, boom },
	})
	_, err := rt.New(cls, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if cls.Instances() != 0 {
		t.Error("instances incremented for failed allocation")
	}
}

// ---------------------------------------------------------------------------
// Collection
// ---------------------------------------------------------------------------

func TestInstanceCount(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)

	const n, m = 5, 3
	var handles []Handle
	for i := 0; i < n; i++ {
		handles = append(handles, mustNew(t, rt, cls))
	}
	for i := 0; i < m; i++ {
		if err := rt.Collect(handles[i]); err != nil {
			t.Fatalf("Collect: %v", err)
		}
	}
	if got := cls.Instances(); got != n-m {
		t.Errorf("Instances = %d, want %d", got, n-m)
	}
	res, _ := rt.CallClassMethod(cls, "instances")
	if len(res) != 1 || res[0] != n-m {
		t.Errorf("instances() = %v", res)
	}
}

func TestCollectTwiceFails(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	h := mustNew(t, rt, cls)

	if err := rt.Collect(h); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	wantKind(t, rt.Collect(h), KindInvalidObject)
	if cls.Instances() != 0 {
		t.Errorf("Instances = %d", cls.Instances())
	}
}

func TestCollectorsRunMostDerivedFirst(t *testing.T) {
	rt := newTestRuntime(t)
	var order []string
	collector := func(name string) Collector {
		return func(rt *Runtime, obj *Object) { order = append(order, name) }
	}
	a, _ := rt.Register(ClassSpec{Name: "a", Collector: collector("a")})
	b, _ := rt.Register(ClassSpec{Name: "b", Parent: a})
	c, _ := rt.Register(ClassSpec{Name: "c", Parent: b, Collector: collector("c")})

	h := mustNew(t, rt, c)
	rt.Collect(h)
	if len(order) != 2 || order[0] != "c" || order[1] != "a" {
		t.Errorf("collector order = %v, want [c a]", order)
	}
}

func TestCollectReleasesHandlers(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	h := mustNew(t, rt, cls)
	obj, _ := rt.Object(h)
	refs := obj.Env().Refs

	rt.ConnectSignal(h, "ping", NewFunc("f", nil))
	obj.Env().Refs.Retain("related")
	if refs.Len() != 2 {
		t.Fatalf("refs = %d, want 2", refs.Len())
	}
	rt.Collect(h)
	if refs.Len() != 0 {
		t.Errorf("refs = %d after collection", refs.Len())
	}
}

func TestCollectedObjectIsInvalid(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	addSize(t, cls)
	h := mustNew(t, rt, cls, Field{"size", 2})
	rt.Collect(h)

	got, err := rt.Index(h, "valid")
	if err != nil || len(got) != 1 || got[0] != false {
		t.Fatalf("valid = %v, %v; want false", got, err)
	}
	for _, field := range []string{"size", "data", "unknown"} {
		_, err := rt.Index(h, field)
		wantKind(t, err, KindInvalidObject)
	}
	wantKind(t, rt.NewIndex(h, "size", 3), KindInvalidObject)
	wantKind(t, rt.EmitSignal(h, "ping"), KindInvalidObject)
	wantKind(t, rt.ConnectSignal(h, "ping", NewFunc("f", nil)), KindInvalidObject)
	_, err = rt.CallMethod(h, "emit_signal", "ping")
	wantKind(t, err, KindInvalidObject)
}

func TestStaleHandleNotResolvedToReusedSlot(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	old := mustNew(t, rt, cls)
	rt.Collect(old)

	fresh := mustNew(t, rt, cls)
	if fresh == old {
		t.Fatal("reused slot returned an identical handle")
	}
	if rt.Valid(old) {
		t.Error("stale handle resolved after slot reuse")
	}
	if !rt.Valid(fresh) {
		t.Error("fresh handle should be valid")
	}
}

func TestUnderflowIsReported(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	h := mustNew(t, rt, cls)

	cls.mu.Lock()
	cls.instances = 0
	cls.mu.Unlock()

	err := rt.Collect(h)
	wantKind(t, err, KindInternal)
	if cls.Instances() != 0 {
		t.Errorf("Instances = %d, must never go negative", cls.Instances())
	}
	if rt.Valid(h) {
		t.Error("object should still be torn down")
	}
}

// ---------------------------------------------------------------------------
// Checked access
// ---------------------------------------------------------------------------

func TestCheck(t *testing.T) {
	rt := newTestRuntime(t)
	a := registerWidget(t, rt, "a", nil)
	b := registerWidget(t, rt, "b", a)
	other := registerWidget(t, rt, "other", nil)
	h := mustNew(t, rt, b)

	if _, err := rt.Check(h, a); err != nil {
		t.Errorf("Check(b instance, a): %v", err)
	}
	_, err := rt.Check(h, other)
	wantKind(t, err, KindType)
	_, err = rt.Check("not an object", a)
	wantKind(t, err, KindType)

	rt.Collect(h)
	_, err = rt.Check(h, a)
	wantKind(t, err, KindInvalidObject)
}

func TestCheckerControlsValid(t *testing.T) {
	rt := newTestRuntime(t)
	cls, _ := rt.Register(ClassSpec{
		Name:      "widget",
		Allocator: func(rt *Runtime) (any, error) { return &widget{}, nil },
		Checker:   func(obj *Object) bool { return !obj.Payload.(*widget).closed },
	})
	h := mustNew(t, rt, cls)
	obj, _ := rt.Object(h)

	if !rt.Valid(h) {
		t.Fatal("open widget should be valid")
	}
	obj.Payload.(*widget).closed = true
	if rt.Valid(h) {
		t.Error("closed widget should not be valid")
	}
	_, err := rt.Check(h, cls)
	wantKind(t, err, KindInvalidObject)
	wantKind(t, rt.EmitSignal(h, "ping"), KindInvalidObject)
}

// ---------------------------------------------------------------------------
// Detached state
// ---------------------------------------------------------------------------

// reclaim runs the collector until h stops resolving.
func reclaim(t *testing.T, rt *Runtime, h Handle) {
	t.Helper()
	for i := 0; i < 20 && rt.Valid(h); i++ {
		runtime.GC()
	}
	if rt.Valid(h) {
		t.Fatalf("%s still resolves after its state was dropped", h)
	}
}

func TestDetachedStateLivesWithOwner(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	h := mustNew(t, rt, cls)

	st, err := rt.Detach(h)
	if err != nil || st == nil {
		t.Fatalf("Detach = %v, %v", st, err)
	}
	rec := newRecorder("ping")
	if err := rt.ConnectSignal(h, "ping", rec.fn); err != nil {
		t.Fatalf("ConnectSignal: %v", err)
	}
	runtime.GC()
	runtime.GC()

	if err := rt.EmitSignal(h, "ping"); err != nil {
		t.Fatalf("EmitSignal: %v", err)
	}
	if len(rec.calls) != 1 {
		t.Errorf("handler called %d times, want 1", len(rec.calls))
	}
	again, _ := rt.Detach(h)
	if again != st {
		t.Error("second Detach returned a different state")
	}
	runtime.KeepAlive(st)
}

func TestReclaimedStateInvalidatesObject(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	h := mustNew(t, rt, cls)
	if _, err := rt.Detach(h); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	reclaim(t, rt, h)

	_, err := rt.Index(h, "data")
	wantKind(t, err, KindInvalidObject)
	wantKind(t, rt.ConnectSignal(h, "ping", newRecorder("f").fn), KindInvalidObject)
	if st, err := rt.Detach(h); err != nil || st != nil {
		t.Errorf("Detach after reclaim = %v, %v; want nil state", st, err)
	}

	// The slot is still there for Collect to tear down.
	if cls.Instances() != 1 {
		t.Fatalf("instances = %d before collection", cls.Instances())
	}
	if err := rt.Collect(h); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if cls.Instances() != 0 || rt.Stats().Objects != 0 {
		t.Errorf("instances = %d, objects = %d after collection", cls.Instances(), rt.Stats().Objects)
	}
}

func TestDetachDuringConstructionKeepsState(t *testing.T) {
	rt := newTestRuntime(t)
	cls := registerWidget(t, rt, "widget", nil)
	detach := NewFunc("new", func(args []Value) ([]Value, error) {
		_, err := rt.Detach(args[0].(Handle))
		return nil, err
	})
	if err := rt.ConnectClassSignal(cls, "new", detach); err != nil {
		t.Fatalf("ConnectClassSignal: %v", err)
	}

	h := mustNew(t, rt, cls)
	for i := 0; i < 3; i++ {
		runtime.GC()
	}
	if !rt.Valid(h) {
		t.Fatal("state reclaimed while New still owned it")
	}

	if _, err := rt.Detach(h); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	reclaim(t, rt, h)
}
