package mixin

import "fmt"

// ---------------------------------------------------------------------------
// Engine: composition root for the mixin machinery
// ---------------------------------------------------------------------------

// Engine owns the class registry and the per-class side tables (hooks,
// wrapped-method cache, state sets, instance registry). All tables are
// dependency-injected through the engine rather than held in package
// globals, so multiple engines can coexist in one process.
type Engine struct {
	classes  *ClassTable
	hooks    *HookTable
	cache    *wrappedCache
	registry *InstanceRegistry
}

// NewEngine creates an empty engine.
func NewEngine() *Engine {
	e := &Engine{
		classes:  NewClassTable(),
		hooks:    NewHookTable(),
		cache:    newWrappedCache(),
		registry: NewInstanceRegistry(),
	}
	e.classes.OnSubclass(e.propagateMixins)
	return e
}

// Classes returns the engine's class registry.
func (e *Engine) Classes() *ClassTable {
	return e.classes
}

// Registry returns the engine's instance registry.
func (e *Engine) Registry() *InstanceRegistry {
	return e.registry
}

// NewClass creates and registers a new class. Pass a nil superclass for a
// root class. Subclass hooks fire when a superclass is given, so mixin
// wiring attached to the parent propagates to the child.
func (e *Engine) NewClass(name string, superclass *Class) *Class {
	c := &Class{
		Name:       name,
		Superclass: superclass,
		Methods:    NewMethodTable(),
	}
	e.classes.Register(c)
	if superclass != nil {
		e.classes.fireSubclass(superclass, c)
	}
	return c
}

// NewClassWithInstVars creates a new class with declared instance variables.
func (e *Engine) NewClassWithInstVars(name string, superclass *Class, instVars []string) *Class {
	c := e.NewClass(name, superclass)
	c.InstanceVars = instVars
	return c
}

// EnableHooks attaches the hook mixin to a class. Attaching twice fails:
// the lifecycle wrapping (construct/destroy interception) must be installed
// exactly once per class.
func (e *Engine) EnableHooks(c *Class) error {
	if c.hooksEnabled {
		return fmt.Errorf("class %s: %w", c.Name, ErrDuplicateNewOverride)
	}
	c.hooksEnabled = true
	return nil
}

// EnableStateful attaches the stateful mixin to a class. Attaching twice
// fails with ErrDuplicateNewOverride.
func (e *Engine) EnableStateful(c *Class) error {
	if c.states != nil {
		return fmt.Errorf("class %s: %w", c.Name, ErrDuplicateNewOverride)
	}
	e.attachStateful(c)
	return nil
}

// attachStateful installs a state set on the class and on any already
// registered descendants, then drops cached wrappers for the subtree: a
// retrofitted state mechanism changes how base methods resolve.
func (e *Engine) attachStateful(c *Class) {
	if c.states == nil {
		c.states = NewStateSet(c)
	}
	for _, d := range e.classes.All() {
		if d != c && d.IsSubclassOf(c) && d.states == nil {
			e.deriveStates(d)
		}
	}
	for _, d := range e.classes.All() {
		if d.IsSubclassOf(c) {
			e.cache.InvalidateClass(d)
		}
	}
}

// deriveStates gives a class a state set derived from its nearest stateful
// ancestor, materializing intermediate ancestors first so parent links are
// in place.
func (e *Engine) deriveStates(c *Class) {
	if c.states != nil || c.Superclass == nil {
		return
	}
	e.deriveStates(c.Superclass)
	if c.Superclass.states != nil {
		c.states = c.Superclass.states.deriveFor(c)
	}
}

// propagateMixins is the engine's subclass hook: newly derived classes
// inherit hook wiring and a derived state set from their parent.
func (e *Engine) propagateMixins(parent, child *Class) {
	if parent.hooksEnabled {
		child.hooksEnabled = true
	}
	if parent.states != nil && child.states == nil {
		child.states = parent.states.deriveFor(child)
	}
}
