package mixin

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

// hiddenFixture builds class A with a foo method and a Hidden state whose
// foo override logs differently.
func hiddenFixture(t *testing.T, log *[]string) (*Engine, *Class) {
	t.Helper()
	e := NewEngine()
	a := e.NewClass("A", nil)
	a.AddMethod("foo", func(self *Instance, args []Value) Value {
		*log = append(*log, "foo")
		return NilValue()
	})
	hidden, err := e.AddState(a, "Hidden", nil)
	if err != nil {
		t.Fatal(err)
	}
	hidden.AddMethod("foo", func(self *Instance, args []Value) Value {
		*log = append(*log, "hidden-foo")
		return NilValue()
	})
	return e, a
}

// ---------------------------------------------------------------------------
// State shadowing
// ---------------------------------------------------------------------------

func TestGotoStateShadowsAndRestores(t *testing.T) {
	var log []string
	e, a := hiddenFixture(t, &log)
	inst := e.Construct(a)

	e.Send(inst, "foo")
	if err := e.GotoState(inst, "Hidden", false); err != nil {
		t.Fatal(err)
	}
	e.Send(inst, "foo")
	if err := e.GotoState(inst, "", false); err != nil {
		t.Fatal(err)
	}
	e.Send(inst, "foo")

	logEqual(t, log, "foo", "hidden-foo", "foo")
}

func TestPushPopShadowing(t *testing.T) {
	var log []string
	e, a := hiddenFixture(t, &log)
	inst := e.Construct(a)

	if err := e.PushState(inst, "Hidden"); err != nil {
		t.Fatal(err)
	}
	e.Send(inst, "foo")
	e.PopState(inst)
	e.Send(inst, "foo")

	logEqual(t, log, "hidden-foo", "foo")
}

func TestStackLookupTopDown(t *testing.T) {
	var log []string
	e, a := hiddenFixture(t, &log)
	ghost, _ := e.AddState(a, "Ghost", nil)
	ghost.AddMethod("foo", func(self *Instance, args []Value) Value {
		log = append(log, "ghost-foo")
		return NilValue()
	})
	inst := e.Construct(a)

	e.PushState(inst, "Hidden")
	e.PushState(inst, "Ghost")
	e.Send(inst, "foo")
	e.PopState(inst)
	e.Send(inst, "foo")

	logEqual(t, log, "ghost-foo", "hidden-foo")
}

// ---------------------------------------------------------------------------
// Duplicate guard and teardown
// ---------------------------------------------------------------------------

func TestDuplicatePushIsNoOp(t *testing.T) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	var pushed int
	hidden, _ := e.AddState(a, "Hidden", nil)
	hidden.AddMethod(PushedStateSelector, func(self *Instance, args []Value) Value {
		pushed++
		return NilValue()
	})
	inst := e.Construct(a)

	e.PushState(inst, "Hidden")
	e.PushState(inst, "Hidden")

	if d := e.StackDepth(inst); d != 1 {
		t.Errorf("depth = %d, want 1", d)
	}
	if pushed != 1 {
		t.Errorf("pushedState fired %d times, want 1", pushed)
	}
}

func TestDuplicateGotoIsNoOp(t *testing.T) {
	var log []string
	e, a := hiddenFixture(t, &log)
	inst := e.Construct(a)

	e.GotoState(inst, "Hidden", false)
	e.GotoState(inst, "Hidden", false)
	if d := e.StackDepth(inst); d != 1 {
		t.Errorf("depth = %d, want 1", d)
	}
}

func TestPopAllStatesIdempotent(t *testing.T) {
	var log []string
	e, a := hiddenFixture(t, &log)
	e.AddState(a, "Ghost", nil)
	inst := e.Construct(a)

	e.PopAllStates(inst) // empty stack: no-op
	if d := e.StackDepth(inst); d != 0 {
		t.Errorf("depth = %d, want 0", d)
	}

	e.PushState(inst, "Hidden")
	e.PushState(inst, "Ghost")
	e.PopAllStates(inst)
	e.PopAllStates(inst)
	if d := e.StackDepth(inst); d != 0 {
		t.Errorf("depth = %d, want 0", d)
	}
}

func TestPopStateOnEmptyStack(t *testing.T) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	e.AddState(a, "Hidden", nil)
	inst := e.Construct(a)

	if d := e.PopState(inst); d != 0 {
		t.Errorf("depth = %d, want 0", d)
	}
}

func TestPopNamedMidStack(t *testing.T) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	e.AddState(a, "Bottom", nil)
	e.AddState(a, "Top", nil)
	e.AddState(a, "Mid", nil)
	var continued int
	a.States().Get("Top").AddMethod(ContinuedStateSelector, func(self *Instance, args []Value) Value {
		continued++
		return NilValue()
	})
	inst := e.Construct(a)

	e.PushState(inst, "Bottom")
	e.PushState(inst, "Mid")
	e.PushState(inst, "Top")

	if d := e.PopState(inst, "Mid"); d != 2 {
		t.Errorf("depth = %d, want 2", d)
	}
	// Removing a non-top entry must not fire continuedState.
	if continued != 0 {
		t.Errorf("continuedState fired %d times, want 0", continued)
	}
	if e.CurrentStateName(inst) != "Top" {
		t.Errorf("current = %q, want Top", e.CurrentStateName(inst))
	}
	if d := e.PopState(inst, "NotThere"); d != 2 {
		t.Errorf("depth = %d, want 2 after popping absent name", d)
	}
}

// ---------------------------------------------------------------------------
// Lifecycle callbacks
// ---------------------------------------------------------------------------

// lifecycleState wires every lifecycle callback on a state to append to log.
func lifecycleState(s *State, log *[]string) {
	for _, sel := range []string{
		EnterStateSelector, ExitStateSelector, PushedStateSelector,
		PoppedStateSelector, PausedStateSelector, ContinuedStateSelector,
	} {
		cb := sel
		s.AddMethod(cb, func(self *Instance, args []Value) Value {
			entry := s.Name + "." + cb
			if len(args) > 0 && !args[0].IsNil() {
				entry += "(" + args[0].AsString() + ")"
			}
			*log = append(*log, entry)
			return NilValue()
		})
	}
}

func TestPushPopCallbackOrder(t *testing.T) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	var log []string
	s1, _ := e.AddState(a, "S1", nil)
	s2, _ := e.AddState(a, "S2", nil)
	lifecycleState(s1, &log)
	lifecycleState(s2, &log)
	inst := e.Construct(a)

	e.PushState(inst, "S1")
	e.PushState(inst, "S2")
	e.PopState(inst)

	logEqual(t, log,
		"S1.pushedState", "S1.enterState",
		"S1.pausedState", "S2.pushedState", "S2.enterState(S1)",
		"S2.exitState(S1)", "S2.poppedState", "S1.continuedState",
	)
}

func TestGotoStateCallbacks(t *testing.T) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	var log []string
	s1, _ := e.AddState(a, "S1", nil)
	s2, _ := e.AddState(a, "S2", nil)
	lifecycleState(s1, &log)
	lifecycleState(s2, &log)
	inst := e.Construct(a)

	e.GotoState(inst, "S1", false)
	e.GotoState(inst, "S2", false)

	logEqual(t, log,
		"S1.enterState",
		"S1.exitState", "S1.poppedState", "S2.enterState(S1)",
	)
}

func TestGotoStateKeepStackReplacesTop(t *testing.T) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	var log []string
	s1, _ := e.AddState(a, "S1", nil)
	s2, _ := e.AddState(a, "S2", nil)
	s3, _ := e.AddState(a, "S3", nil)
	lifecycleState(s1, &log)
	lifecycleState(s2, &log)
	lifecycleState(s3, &log)
	inst := e.Construct(a)

	e.PushState(inst, "S1")
	e.PushState(inst, "S2")
	log = nil

	if err := e.GotoState(inst, "S3", true); err != nil {
		t.Fatal(err)
	}
	if d := e.StackDepth(inst); d != 2 {
		t.Errorf("depth = %d, want 2", d)
	}
	if !e.IsInState(inst, "S1", true) {
		t.Error("S1 should remain on the stack")
	}
	logEqual(t, log, "S2.exitState(S3)", "S3.enterState(S2)")
}

// ---------------------------------------------------------------------------
// Queries and failure modes
// ---------------------------------------------------------------------------

func TestIsInStateAndCurrentName(t *testing.T) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	e.AddState(a, "S1", nil)
	e.AddState(a, "S2", nil)
	inst := e.Construct(a)

	if e.CurrentStateName(inst) != "" {
		t.Errorf("current = %q, want empty", e.CurrentStateName(inst))
	}
	e.PushState(inst, "S1")
	e.PushState(inst, "S2")

	if !e.IsInState(inst, "S2", false) {
		t.Error("top-only check should see S2")
	}
	if e.IsInState(inst, "S1", false) {
		t.Error("top-only check should not see S1")
	}
	if !e.IsInState(inst, "S1", true) {
		t.Error("whole-stack check should see S1")
	}
}

func TestUndefinedStateFails(t *testing.T) {
	e := NewEngine()
	a := e.NewClass("A", nil)
	e.AddState(a, "Hidden", nil)
	inst := e.Construct(a)

	if err := e.PushState(inst, "Nope"); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("PushState err = %v, want ErrStateNotFound", err)
	}
	if err := e.GotoState(inst, "Nope", false); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("GotoState err = %v, want ErrStateNotFound", err)
	}
	if d := e.StackDepth(inst); d != 0 {
		t.Errorf("failed transitions must not touch the stack, depth = %d", d)
	}
}

// ---------------------------------------------------------------------------
// States compose with hooks
// ---------------------------------------------------------------------------

func TestHooksWrapStateSuppliedBody(t *testing.T) {
	var log []string
	e, a := hiddenFixture(t, &log)
	e.AddHook(a, PhaseBefore, "foo", Callable(func(self *Instance, args []Value) Value {
		log = append(log, "before")
		return NilValue()
	}))
	inst := e.Construct(a)

	e.GotoState(inst, "Hidden", false)
	e.Send(inst, "foo")
	logEqual(t, log, "before", "hidden-foo")
}
