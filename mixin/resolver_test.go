package mixin

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Test fixtures
// ---------------------------------------------------------------------------

// loggingClass builds a class whose foo/bar/baz methods append their own
// name to log.
func loggingClass(e *Engine, log *[]string) *Class {
	a := e.NewClass("A", nil)
	for _, name := range []string{"foo", "bar", "baz"} {
		sel := name
		a.AddMethod(sel, func(self *Instance, args []Value) Value {
			*log = append(*log, sel)
			return StringValue(sel)
		})
	}
	return a
}

func logEqual(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("log = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("log = %v, want %v", got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Hook ordering
// ---------------------------------------------------------------------------

func TestHooksRunAroundMethod(t *testing.T) {
	e := NewEngine()
	var log []string
	a := loggingClass(e, &log)

	if err := e.AddHook(a, PhaseBefore, "bar", Named("foo")); err != nil {
		t.Fatal(err)
	}
	err := e.AddHook(a, PhaseAfter, "bar", Callable(func(self *Instance, args []Value) Value {
		log = append(log, "baz")
		return NilValue()
	}))
	if err != nil {
		t.Fatal(err)
	}

	inst := e.Construct(a)
	result, err := e.Send(inst, "bar")
	if err != nil {
		t.Fatal(err)
	}
	if result.AsString() != "bar" {
		t.Errorf("result = %q, want %q", result.AsString(), "bar")
	}
	logEqual(t, log, "foo", "bar", "baz")
}

func TestSubclassHooksRunFirst(t *testing.T) {
	e := NewEngine()
	var log []string
	p := e.NewClass("P", nil)
	p.AddMethod("m", func(self *Instance, args []Value) Value {
		log = append(log, "m")
		return NilValue()
	})
	s := e.NewClass("S", p)

	e.AddHook(p, PhaseBefore, "m", Callable(func(self *Instance, args []Value) Value {
		log = append(log, "b2")
		return NilValue()
	}))
	e.AddHook(s, PhaseBefore, "m", Callable(func(self *Instance, args []Value) Value {
		log = append(log, "b1")
		return NilValue()
	}))
	e.AddHook(p, PhaseAfter, "m", Callable(func(self *Instance, args []Value) Value {
		log = append(log, "a2")
		return NilValue()
	}))
	e.AddHook(s, PhaseAfter, "m", Callable(func(self *Instance, args []Value) Value {
		log = append(log, "a1")
		return NilValue()
	}))

	inst := e.Construct(s)
	if _, err := e.Send(inst, "m"); err != nil {
		t.Fatal(err)
	}
	// Most-derived first, before the body; same order after it.
	logEqual(t, log, "b1", "b2", "m", "a1", "a2")
}

func TestRepeatedRegistrationRunsTwice(t *testing.T) {
	e := NewEngine()
	var log []string
	a := loggingClass(e, &log)

	e.AddHook(a, PhaseBefore, "bar", Named("foo"))
	e.AddHook(a, PhaseBefore, "bar", Named("foo"))

	inst := e.Construct(a)
	e.Send(inst, "bar")
	logEqual(t, log, "foo", "foo", "bar")
}

// ---------------------------------------------------------------------------
// Halt propagation
// ---------------------------------------------------------------------------

func TestBeforeHookHaltSkipsBodyAndAfters(t *testing.T) {
	e := NewEngine()
	var log []string
	a := loggingClass(e, &log)

	e.AddHook(a, PhaseBefore, "bar", Callable(func(self *Instance, args []Value) Value {
		return False()
	}))
	e.AddHook(a, PhaseAfter, "bar", Named("baz"))

	inst := e.Construct(a)
	result, err := e.Send(inst, "bar")
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsFalse() {
		t.Errorf("result = %v, want halt sentinel", result)
	}
	if len(log) != 0 {
		t.Errorf("log = %v, want empty", log)
	}
}

func TestAfterHookHaltDiscardsResult(t *testing.T) {
	e := NewEngine()
	var log []string
	a := loggingClass(e, &log)

	e.AddHook(a, PhaseAfter, "bar", Callable(func(self *Instance, args []Value) Value {
		return False()
	}))

	inst := e.Construct(a)
	result, err := e.Send(inst, "bar")
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsFalse() {
		t.Errorf("result = %v, want halt sentinel (body result discarded)", result)
	}
	logEqual(t, log, "bar") // body did run
}

func TestHaltStopsRemainingBeforeHooks(t *testing.T) {
	e := NewEngine()
	var log []string
	a := loggingClass(e, &log)

	e.AddHook(a, PhaseBefore, "bar", Callable(func(self *Instance, args []Value) Value {
		log = append(log, "h1")
		return False()
	}))
	e.AddHook(a, PhaseBefore, "bar", Callable(func(self *Instance, args []Value) Value {
		log = append(log, "h2")
		return NilValue()
	}))

	inst := e.Construct(a)
	e.Send(inst, "bar")
	logEqual(t, log, "h1")
}

// ---------------------------------------------------------------------------
// Fast path and cache
// ---------------------------------------------------------------------------

func TestNoHookFastPathReturnsOriginalEntry(t *testing.T) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	orig := a.AddMethod("foo", func(self *Instance, args []Value) Value {
		return NilValue()
	})

	if got := e.LookupMethod(a, "foo"); got != orig {
		t.Error("hook-free lookup should return the original entry unchanged")
	}
}

func TestWrappingReplacesEntry(t *testing.T) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	orig := a.AddMethod("foo", func(self *Instance, args []Value) Value {
		return NilValue()
	})
	e.AddHook(a, PhaseBefore, "foo", Callable(func(self *Instance, args []Value) Value {
		return NilValue()
	}))

	if got := e.LookupMethod(a, "foo"); got == orig {
		t.Error("hooked lookup should return a wrapped entry")
	}
}

func TestWrappedEntryIsMemoized(t *testing.T) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	a.AddMethod("foo", func(self *Instance, args []Value) Value {
		return NilValue()
	})
	e.AddHook(a, PhaseBefore, "foo", Callable(func(self *Instance, args []Value) Value {
		return NilValue()
	}))

	first := e.LookupMethod(a, "foo")
	second := e.LookupMethod(a, "foo")
	if first != second {
		t.Error("wrapped entry should be memoized across lookups")
	}
	if hits, _ := e.CacheStats(); hits == 0 {
		t.Error("second lookup should hit the cache")
	}
}

func TestAddHookInvalidatesCachedWrapper(t *testing.T) {
	e := NewEngine()
	var log []string
	a := loggingClass(e, &log)
	inst := e.Construct(a)

	e.AddHook(a, PhaseBefore, "bar", Named("foo"))
	e.Send(inst, "bar") // builds and caches the wrapper

	e.AddHook(a, PhaseBefore, "bar", Named("baz"))
	log = nil
	e.Send(inst, "bar")
	logEqual(t, log, "foo", "baz", "bar")
}

func TestAncestorHookInvalidatesSubclassWrapper(t *testing.T) {
	e := NewEngine()
	var log []string
	p := e.NewClass("P", nil)
	p.AddMethod("m", func(self *Instance, args []Value) Value {
		log = append(log, "m")
		return NilValue()
	})
	s := e.NewClass("S", p)
	inst := e.Construct(s)

	e.Send(inst, "m") // caches the hook-free fast path for S.m

	e.AddHook(p, PhaseBefore, "m", Callable(func(self *Instance, args []Value) Value {
		log = append(log, "h")
		return NilValue()
	}))
	log = nil
	e.Send(inst, "m")
	logEqual(t, log, "h", "m")
}

func TestRebindingSelectorBypassesStaleWrapper(t *testing.T) {
	e := NewEngine()
	var log []string
	a := e.NewClass("A", nil)
	a.AddMethod("m", func(self *Instance, args []Value) Value {
		log = append(log, "old")
		return NilValue()
	})
	e.AddHook(a, PhaseBefore, "m", Callable(func(self *Instance, args []Value) Value {
		log = append(log, "h")
		return NilValue()
	}))
	inst := e.Construct(a)
	e.Send(inst, "m")

	a.AddMethod("m", func(self *Instance, args []Value) Value {
		log = append(log, "new")
		return NilValue()
	})
	log = nil
	e.Send(inst, "m")
	logEqual(t, log, "h", "new")
}

// ---------------------------------------------------------------------------
// Raw accessor
// ---------------------------------------------------------------------------

func TestRawSuffixSkipsHooks(t *testing.T) {
	e := NewEngine()
	var log []string
	a := loggingClass(e, &log)
	e.AddHook(a, PhaseBefore, "bar", Named("foo"))

	inst := e.Construct(a)
	result, err := e.Send(inst, "bar"+RawSuffix)
	if err != nil {
		t.Fatal(err)
	}
	if result.AsString() != "bar" {
		t.Errorf("result = %q, want %q", result.AsString(), "bar")
	}
	logEqual(t, log, "bar")
}

// ---------------------------------------------------------------------------
// Failure modes
// ---------------------------------------------------------------------------

func TestSendUnknownSelector(t *testing.T) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	inst := e.Construct(a)

	_, err := e.Send(inst, "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestHookWithUnknownNamedActionSurfacesError(t *testing.T) {
	e := NewEngine()
	var log []string
	a := loggingClass(e, &log)
	e.AddHook(a, PhaseBefore, "bar", Named("missing"))

	inst := e.Construct(a)
	result, err := e.Send(inst, "bar")
	if err != nil {
		t.Fatal(err)
	}
	if result.Type != TypeError {
		t.Errorf("result = %v, want error value", result)
	}
	if len(log) != 0 {
		t.Errorf("body should not run after a failing before hook, log = %v", log)
	}
}

// ---------------------------------------------------------------------------
// Benchmarks
// ---------------------------------------------------------------------------

func BenchmarkSendNoHooks(b *testing.B) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	a.AddMethod("m", func(self *Instance, args []Value) Value {
		return NilValue()
	})
	inst := e.Construct(a)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Send(inst, "m")
	}
}

func BenchmarkSendWithHooks(b *testing.B) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	a.AddMethod("m", func(self *Instance, args []Value) Value {
		return NilValue()
	})
	e.AddHook(a, PhaseBefore, "m", Callable(func(self *Instance, args []Value) Value {
		return NilValue()
	}))
	e.AddHook(a, PhaseAfter, "m", Callable(func(self *Instance, args []Value) Value {
		return NilValue()
	}))
	inst := e.Construct(a)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Send(inst, "m")
	}
}
