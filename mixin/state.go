package mixin

import (
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// States: hierarchical method override tables
// ---------------------------------------------------------------------------

// State is a named table of method overrides owned by a class. States form
// a forest: a state may have a parent state whose methods remain visible
// unless shadowed, both within one class (sub-states) and across the class
// hierarchy (a subclass's state is parented to the superclass's state of
// the same name).
type State struct {
	Name   string
	Owner  *Class
	Parent *State

	mu      sync.RWMutex
	methods map[string]*MethodEntry
}

// AddMethod registers a method override on this state. The table may be
// augmented at any time; instances already in the state see the new method
// on their next dispatch.
func (s *State) AddMethod(selector string, impl MethodFunc) *MethodEntry {
	entry := &MethodEntry{Selector: selector, Impl: impl}
	s.mu.Lock()
	s.methods[selector] = entry
	s.mu.Unlock()
	return entry
}

// Lookup finds a method override, walking the parent state chain.
func (s *State) Lookup(selector string) *MethodEntry {
	for current := s; current != nil; current = current.Parent {
		current.mu.RLock()
		m := current.methods[selector]
		current.mu.RUnlock()
		if m != nil {
			return m
		}
	}
	return nil
}

// Selectors returns the selectors defined directly on this state.
func (s *State) Selectors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]string, 0, len(s.methods))
	for sel := range s.methods {
		result = append(result, sel)
	}
	return result
}

// String implements the Stringer interface.
func (s *State) String() string {
	return s.Owner.Name + "@" + s.Name
}

// ---------------------------------------------------------------------------
// StateSet: the per-class state registry
// ---------------------------------------------------------------------------

// StateSet maps state names to states for one class. Subclasses get a
// derived set: one fresh state per inherited name, parented to the
// superclass's state so super-state overrides stay visible unless shadowed.
type StateSet struct {
	owner *Class

	mu     sync.RWMutex
	states map[string]*State
}

// NewStateSet creates an empty state set for a class.
func NewStateSet(owner *Class) *StateSet {
	return &StateSet{
		owner:  owner,
		states: make(map[string]*State),
	}
}

// Get finds a state by name, or nil.
func (ss *StateSet) Get(name string) *State {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.states[name]
}

// Add creates a state, or returns the existing one of the same name:
// re-adding is a no-op, not an error. A nil parent means root state.
func (ss *StateSet) Add(name string, parent *State) *State {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if existing := ss.states[name]; existing != nil {
		return existing
	}
	s := &State{
		Name:    name,
		Owner:   ss.owner,
		Parent:  parent,
		methods: make(map[string]*MethodEntry),
	}
	ss.states[name] = s
	return s
}

// Names returns the names of all states in the set.
func (ss *StateSet) Names() []string {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	result := make([]string, 0, len(ss.states))
	for name := range ss.states {
		result = append(result, name)
	}
	return result
}

// Len returns the number of states in the set.
func (ss *StateSet) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.states)
}

// deriveFor builds a subclass's state set: every state name known here gets
// a fresh empty state owned by the child and parented to this set's state.
func (ss *StateSet) deriveFor(child *Class) *StateSet {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	derived := NewStateSet(child)
	for name, super := range ss.states {
		derived.states[name] = &State{
			Name:    name,
			Owner:   child,
			Parent:  super,
			methods: make(map[string]*MethodEntry),
		}
	}
	return derived
}

// ---------------------------------------------------------------------------
// Engine-level state registration
// ---------------------------------------------------------------------------

// AddState creates (or returns) a named state on a class. The stateful
// mixin is attached on first use. Passing a parent state nests the new
// state under it; nil parent means root. The state also propagates to
// already-derived subclass sets, keeping the invariant that a subclass has
// one state per superclass-defined name.
func (e *Engine) AddState(class *Class, name string, parent *State) (*State, error) {
	if name == "" {
		return nil, fmt.Errorf("empty state name: %w", ErrStateNotFound)
	}
	if class.states == nil {
		e.attachStateful(class)
	}
	if existing := class.states.Get(name); existing != nil {
		return existing, nil
	}
	s := class.states.Add(name, parent)
	e.propagateStateDown(class, name)
	return s, nil
}

// propagateStateDown gives each already-registered subclass a fresh state
// of the given name, parented to its superclass's state, walking the
// hierarchy parent-first.
func (e *Engine) propagateStateDown(parent *Class, name string) {
	for _, d := range e.classes.All() {
		if d.Superclass != parent || d.states == nil {
			continue
		}
		if d.states.Get(name) == nil {
			d.states.Add(name, parent.states.Get(name))
		}
		e.propagateStateDown(d, name)
	}
}
