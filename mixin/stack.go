package mixin

import "fmt"

// ---------------------------------------------------------------------------
// Per-instance state stack
// ---------------------------------------------------------------------------

// Lifecycle callback selectors, looked up on the state's method chain and
// invoked directly (never hook-wrapped).
const (
	EnterStateSelector     = "enterState"
	ExitStateSelector      = "exitState"
	PushedStateSelector    = "pushedState"
	PoppedStateSelector    = "poppedState"
	PausedStateSelector    = "pausedState"
	ContinuedStateSelector = "continuedState"
)

// invokeStateCallback runs a lifecycle callback on a state if the state (or
// a parent state) defines it.
func (e *Engine) invokeStateCallback(inst *Instance, s *State, selector string, args ...Value) {
	if m := s.Lookup(selector); m != nil {
		m.Impl(inst, args)
	}
}

// currentState returns the top of the instance's state stack, or nil.
func (e *Engine) currentState(inst *Instance) *State {
	if len(inst.stack) == 0 {
		return nil
	}
	return inst.stack[len(inst.stack)-1]
}

// CurrentStateName returns the name of the active state, or "" when the
// stack is empty and resolution falls through to the class table.
func (e *Engine) CurrentStateName(inst *Instance) string {
	if top := e.currentState(inst); top != nil {
		return top.Name
	}
	return ""
}

// StackDepth returns the number of states on the instance's stack.
func (e *Engine) StackDepth(inst *Instance) int {
	return len(inst.stack)
}

// StackNames returns the names of the stacked states, bottom to top.
func (e *Engine) StackNames(inst *Instance) []string {
	names := make([]string, len(inst.stack))
	for i, s := range inst.stack {
		names[i] = s.Name
	}
	return names
}

// IsInState checks whether the instance's active state has the given name.
// With checkWholeStack it scans every stacked state instead of just the top.
func (e *Engine) IsInState(inst *Instance, name string, checkWholeStack bool) bool {
	if checkWholeStack {
		return e.stackContains(inst, name)
	}
	return e.CurrentStateName(inst) == name
}

func (e *Engine) stackContains(inst *Instance, name string) bool {
	for _, s := range inst.stack {
		if s.Name == name {
			return true
		}
	}
	return false
}

// resolveState finds a state by name on the instance's class, failing with
// ErrStateNotFound.
func (e *Engine) resolveState(inst *Instance, name string) (*State, error) {
	if inst.Class.states != nil {
		if s := inst.Class.states.Get(name); s != nil {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%s on %s: %w", name, inst.ClassName, ErrStateNotFound)
}

// stateNameValue converts a state name to a callback argument: the name as
// a string, or nil when there is no state.
func stateNameValue(name string) Value {
	if name == "" {
		return NilValue()
	}
	return StringValue(name)
}

// ---------------------------------------------------------------------------
// Transitions
// ---------------------------------------------------------------------------

// GotoState makes the named state the active override. A no-op if the name
// is already anywhere on the stack. With keepStack false the whole stack is
// popped first (firing exit/popped callbacks from the top down); with
// keepStack true only the current top is exited and replaced in place.
// An empty name clears the active override without pushing anything.
func (e *Engine) GotoState(inst *Instance, name string, keepStack bool) error {
	if name != "" && e.stackContains(inst, name) {
		return nil
	}
	var next *State
	if name != "" {
		var err error
		if next, err = e.resolveState(inst, name); err != nil {
			return err
		}
	}
	prev := e.CurrentStateName(inst)

	if !keepStack {
		e.PopAllStates(inst)
		if next != nil {
			inst.stack = append(inst.stack, next)
			e.invokeStateCallback(inst, next, EnterStateSelector, stateNameValue(prev))
		}
		return nil
	}

	if top := e.currentState(inst); top != nil {
		e.invokeStateCallback(inst, top, ExitStateSelector, stateNameValue(name))
		if next != nil {
			inst.stack[len(inst.stack)-1] = next
		} else {
			inst.stack = inst.stack[:len(inst.stack)-1]
		}
	} else if next != nil {
		inst.stack = append(inst.stack, next)
	}
	if next != nil {
		e.invokeStateCallback(inst, next, EnterStateSelector, stateNameValue(prev))
	}
	return nil
}

// PushState pushes the named state on top of the stack. A no-op if the name
// is already on the stack: depth is unchanged and no callbacks fire. The
// current top is paused, then the new state gets pushedState and enterState.
func (e *Engine) PushState(inst *Instance, name string) error {
	if e.stackContains(inst, name) {
		return nil
	}
	next, err := e.resolveState(inst, name)
	if err != nil {
		return err
	}
	prev := e.CurrentStateName(inst)

	if top := e.currentState(inst); top != nil {
		e.invokeStateCallback(inst, top, PausedStateSelector)
	}
	inst.stack = append(inst.stack, next)
	e.invokeStateCallback(inst, next, PushedStateSelector)
	e.invokeStateCallback(inst, next, EnterStateSelector, stateNameValue(prev))
	return nil
}

// PopState removes a state from the stack and returns the new depth. With
// a name it removes that entry wherever it sits (no-op if absent); without
// one it pops the top (no-op on an empty stack). The removed state gets
// exitState then poppedState; when the removal exposes a new top, that
// state gets continuedState.
func (e *Engine) PopState(inst *Instance, name ...string) int {
	if len(inst.stack) == 0 {
		return 0
	}

	idx := len(inst.stack) - 1
	if len(name) > 0 && name[0] != "" {
		idx = -1
		for i := len(inst.stack) - 1; i >= 0; i-- {
			if inst.stack[i].Name == name[0] {
				idx = i
				break
			}
		}
		if idx < 0 {
			return len(inst.stack)
		}
	}

	removed := inst.stack[idx]
	wasTop := idx == len(inst.stack)-1
	inst.stack = append(inst.stack[:idx], inst.stack[idx+1:]...)

	e.invokeStateCallback(inst, removed, ExitStateSelector, stateNameValue(e.CurrentStateName(inst)))
	e.invokeStateCallback(inst, removed, PoppedStateSelector)

	if wasTop {
		if top := e.currentState(inst); top != nil {
			e.invokeStateCallback(inst, top, ContinuedStateSelector)
		}
	}
	return len(inst.stack)
}

// PopAllStates pops from the top until the stack is empty. Idempotent: on
// an empty stack it is a no-op, and it always ends at depth 0.
func (e *Engine) PopAllStates(inst *Instance) {
	for len(inst.stack) > 0 {
		e.PopState(inst)
	}
}
