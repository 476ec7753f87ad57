package mixin

import "sync"

// ---------------------------------------------------------------------------
// MethodTable: instance and class-side method storage
// ---------------------------------------------------------------------------

// MethodFunc is the signature for native method implementations.
type MethodFunc func(self *Instance, args []Value) Value

// MethodEntry describes a single method. The pointer identity of an entry is
// meaningful: the resolver's no-hook fast path returns the original entry
// unchanged, and callers may compare entries to detect wrapping.
type MethodEntry struct {
	Selector string
	Impl     MethodFunc
}

// MethodTable holds instance and class methods for a class.
type MethodTable struct {
	InstanceMethods map[string]*MethodEntry
	ClassMethods    map[string]*MethodEntry
}

// NewMethodTable creates an empty method table.
func NewMethodTable() *MethodTable {
	return &MethodTable{
		InstanceMethods: make(map[string]*MethodEntry),
		ClassMethods:    make(map[string]*MethodEntry),
	}
}

// LookupInstanceMethod finds an instance method in this table only.
func (mt *MethodTable) LookupInstanceMethod(selector string) *MethodEntry {
	if mt == nil {
		return nil
	}
	return mt.InstanceMethods[selector]
}

// LookupClassMethod finds a class method in this table only.
func (mt *MethodTable) LookupClassMethod(selector string) *MethodEntry {
	if mt == nil {
		return nil
	}
	return mt.ClassMethods[selector]
}

// ---------------------------------------------------------------------------
// Class
// ---------------------------------------------------------------------------

// Class represents a registered class.
type Class struct {
	Name         string
	Superclass   *Class
	Methods      *MethodTable
	InstanceVars []string

	// hooksEnabled is set when the hook mixin is attached; it propagates to
	// subclasses created afterwards.
	hooksEnabled bool

	// states is non-nil when the stateful mixin is attached. Subclasses get
	// a derived StateSet whose states are parented to this class's states.
	states *StateSet

	// defaults backs the indexable mixin: per-class fallback slot values,
	// consulted through the superclass chain when an instance lacks a slot.
	defaults map[string]Value
}

// AddMethod registers an instance method on this class.
func (c *Class) AddMethod(selector string, impl MethodFunc) *MethodEntry {
	entry := &MethodEntry{Selector: selector, Impl: impl}
	c.Methods.InstanceMethods[selector] = entry
	return entry
}

// AddClassMethod registers a class-side method on this class.
func (c *Class) AddClassMethod(selector string, impl MethodFunc) *MethodEntry {
	entry := &MethodEntry{Selector: selector, Impl: impl}
	c.Methods.ClassMethods[selector] = entry
	return entry
}

// LookupMethod finds an instance method, walking the superclass chain.
func (c *Class) LookupMethod(selector string) *MethodEntry {
	for current := c; current != nil; current = current.Superclass {
		if m := current.Methods.LookupInstanceMethod(selector); m != nil {
			return m
		}
	}
	return nil
}

// HasMethod returns true if this class (not superclasses) defines a method.
func (c *Class) HasMethod(selector string) bool {
	return c.Methods.LookupInstanceMethod(selector) != nil
}

// IsSubclassOf returns true if c is a subclass of other (or is the same class).
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Superclass {
		if current == other {
			return true
		}
	}
	return false
}

// Superclasses returns all superclasses from immediate parent to root.
func (c *Class) Superclasses() []*Class {
	var result []*Class
	for current := c.Superclass; current != nil; current = current.Superclass {
		result = append(result, current)
	}
	return result
}

// Selectors returns the selectors defined directly on this class.
func (c *Class) Selectors() []string {
	result := make([]string, 0, len(c.Methods.InstanceMethods))
	for sel := range c.Methods.InstanceMethods {
		result = append(result, sel)
	}
	return result
}

// HooksEnabled reports whether the hook mixin is attached to this class.
func (c *Class) HooksEnabled() bool {
	return c.hooksEnabled
}

// Stateful reports whether the stateful mixin is attached to this class.
func (c *Class) Stateful() bool {
	return c.states != nil
}

// States returns the class's state set, or nil if not stateful.
func (c *Class) States() *StateSet {
	return c.states
}

// String implements the Stringer interface.
func (c *Class) String() string {
	return c.Name
}

// ---------------------------------------------------------------------------
// ClassTable: class registry with subclass hooks
// ---------------------------------------------------------------------------

// SubclassHook is invoked whenever a new subclass is derived, so mixin
// wiring can propagate to classes created after attachment.
type SubclassHook func(parent, child *Class)

// ClassTable manages registered classes by name.
// It's thread-safe for concurrent access.
type ClassTable struct {
	mu      sync.RWMutex
	classes map[string]*Class
	hooks   []SubclassHook
}

// NewClassTable creates a new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*Class),
	}
}

// Register adds a class to the table.
// Returns the previous class with this name, or nil.
func (ct *ClassTable) Register(c *Class) *Class {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	old := ct.classes[c.Name]
	ct.classes[c.Name] = c
	return old
}

// Lookup finds a class by name.
func (ct *ClassTable) Lookup(name string) *Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[name]
}

// Has returns true if a class with this name is registered.
func (ct *ClassTable) Has(name string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	_, ok := ct.classes[name]
	return ok
}

// All returns all registered classes.
func (ct *ClassTable) All() []*Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make([]*Class, 0, len(ct.classes))
	for _, c := range ct.classes {
		result = append(result, c)
	}
	return result
}

// Len returns the number of registered classes.
func (ct *ClassTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.classes)
}

// OnSubclass registers a hook fired whenever a subclass is derived.
func (ct *ClassTable) OnSubclass(hook SubclassHook) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.hooks = append(ct.hooks, hook)
}

// fireSubclass runs registered subclass hooks outside the table lock;
// hooks may re-enter the table.
func (ct *ClassTable) fireSubclass(parent, child *Class) {
	ct.mu.RLock()
	hooks := make([]SubclassHook, len(ct.hooks))
	copy(hooks, ct.hooks)
	ct.mu.RUnlock()

	for _, hook := range hooks {
		hook(parent, child)
	}
}
