package mixin

import (
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// Hook registration
// ---------------------------------------------------------------------------

// Phase names the two interception points around a method body.
type Phase uint8

const (
	PhaseBefore Phase = iota + 1
	PhaseAfter
)

// String implements the Stringer interface.
func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhaseAfter:
		return "after"
	}
	return "invalid"
}

// ParsePhase converts a phase name to a Phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "before":
		return PhaseBefore, nil
	case "after":
		return PhaseAfter, nil
	}
	return 0, fmt.Errorf("phase %q: %w", s, ErrInvalidHook)
}

// HookEntry is one registered before/after action with its bound arguments.
// Entries are immutable once created.
type HookEntry struct {
	Action    MethodRef
	BoundArgs []Value
}

// hookLists holds the ordered phase lists for one (class, method) pair.
// Entries are append-only; registration order is preserved.
type hookLists struct {
	before []HookEntry
	after  []HookEntry
}

// HookTable maps (class, method name) to ordered before/after hook lists.
// Scoped by class lifetime: entries live as long as the owning class is
// reachable, which the engine's class registry guarantees.
type HookTable struct {
	mu      sync.RWMutex
	entries map[*Class]map[string]*hookLists
}

// NewHookTable creates an empty hook table.
func NewHookTable() *HookTable {
	return &HookTable{
		entries: make(map[*Class]map[string]*hookLists),
	}
}

// add appends an entry to the given phase list, creating the lists if absent.
func (ht *HookTable) add(class *Class, phase Phase, method string, entry HookEntry) {
	ht.mu.Lock()
	defer ht.mu.Unlock()

	byMethod := ht.entries[class]
	if byMethod == nil {
		byMethod = make(map[string]*hookLists)
		ht.entries[class] = byMethod
	}
	lists := byMethod[method]
	if lists == nil {
		lists = &hookLists{}
		byMethod[method] = lists
	}
	switch phase {
	case PhaseBefore:
		lists.before = append(lists.before, entry)
	case PhaseAfter:
		lists.after = append(lists.after, entry)
	}
}

// lists returns copies of the phase lists registered directly on one class
// for one method, or nil if none. Copies keep callers safe against
// concurrent appends.
func (ht *HookTable) lists(class *Class, method string) *hookLists {
	ht.mu.RLock()
	defer ht.mu.RUnlock()

	byMethod := ht.entries[class]
	if byMethod == nil {
		return nil
	}
	src := byMethod[method]
	if src == nil {
		return nil
	}
	out := &hookLists{}
	if len(src.before) > 0 {
		out.before = append([]HookEntry(nil), src.before...)
	}
	if len(src.after) > 0 {
		out.after = append([]HookEntry(nil), src.after...)
	}
	return out
}

// Count returns the number of hooks registered directly on a class for a
// method, split by phase.
func (ht *HookTable) Count(class *Class, method string) (before, after int) {
	ht.mu.RLock()
	defer ht.mu.RUnlock()

	if byMethod := ht.entries[class]; byMethod != nil {
		if lists := byMethod[method]; lists != nil {
			return len(lists.before), len(lists.after)
		}
	}
	return 0, 0
}

// Methods returns the method names with hooks registered directly on a class.
func (ht *HookTable) Methods(class *Class) []string {
	ht.mu.RLock()
	defer ht.mu.RUnlock()

	byMethod := ht.entries[class]
	result := make([]string, 0, len(byMethod))
	for name := range byMethod {
		result = append(result, name)
	}
	return result
}

// ---------------------------------------------------------------------------
// Engine-level registration
// ---------------------------------------------------------------------------

// AddHook registers a before or after action for a method on a class.
// Registration appends: the same hook registered twice runs twice.
// Cached wrappers for the pair are dropped for the class and its registered
// descendants; they are rebuilt lazily on the next lookup.
func (e *Engine) AddHook(class *Class, phase Phase, methodName string, action MethodRef, boundArgs ...Value) error {
	if class == nil {
		return fmt.Errorf("nil class: %w", ErrInvalidHook)
	}
	if methodName == "" {
		return fmt.Errorf("empty method name: %w", ErrInvalidHook)
	}
	if phase != PhaseBefore && phase != PhaseAfter {
		return fmt.Errorf("phase %d: %w", phase, ErrInvalidHook)
	}
	if !action.Valid() {
		return fmt.Errorf("action %s: %w", action, ErrInvalidHook)
	}

	e.hooks.add(class, phase, methodName, HookEntry{Action: action, BoundArgs: boundArgs})

	// Precise invalidation: only wrappers whose chain includes this class
	// can be stale, i.e. the class itself and its descendants.
	e.cache.Invalidate(class, methodName)
	for _, d := range e.classes.All() {
		if d != class && d.IsSubclassOf(class) {
			e.cache.Invalidate(d, methodName)
		}
	}
	return nil
}

// Hooks returns the engine's hook table.
func (e *Engine) Hooks() *HookTable {
	return e.hooks
}
