package mixin

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Instance
// ---------------------------------------------------------------------------

// Instance represents an object instance.
type Instance struct {
	ID        string
	Class     *Class
	ClassName string
	Vars      map[string]Value
	CreatedAt time.Time

	// stack is the per-instance state stack (nil slice when empty).
	// Bottom is the oldest entry, top is the active override.
	stack []*State

	// Tree bookkeeping for the branchy mixin.
	treeParent   *Instance
	treeChildren []*Instance

	destroyed bool
	mu        sync.RWMutex
}

// GetVar returns an instance variable, or nil value if unset.
func (inst *Instance) GetVar(name string) Value {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	if v, ok := inst.Vars[name]; ok {
		return v
	}
	return NilValue()
}

// SetVar sets an instance variable.
func (inst *Instance) SetVar(name string, value Value) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.Vars[name] = value
}

// Destroyed reports whether Destroy has completed on this instance.
func (inst *Instance) Destroyed() bool {
	return inst.destroyed
}

// String implements the Stringer interface.
func (inst *Instance) String() string {
	return fmt.Sprintf("<%s %s>", inst.ClassName, inst.ID)
}

// ---------------------------------------------------------------------------
// Construction and destruction
// ---------------------------------------------------------------------------

// InitializeSelector is the construction method looked up on the class.
const InitializeSelector = "initialize"

// DestroySelector is the destruction method looked up on the class.
const DestroySelector = "destroy"

// Construct creates a new instance of a class. The instance variables are
// initialized to nil, the instance is enrolled in the registry, the class's
// initialize method (if any) runs with the given arguments, and then any
// after-initialize hooks run.
//
// Before-initialize hooks never fire: the instance does not exist yet to
// receive them. Registering one is allowed but it is dead weight.
func (e *Engine) Construct(class *Class, args ...Value) *Instance {
	inst := &Instance{
		ID:        generateID(class.Name),
		Class:     class,
		ClassName: class.Name,
		Vars:      make(map[string]Value),
		CreatedAt: time.Now(),
	}
	for c := class; c != nil; c = c.Superclass {
		for _, name := range c.InstanceVars {
			if _, ok := inst.Vars[name]; !ok {
				inst.Vars[name] = NilValue()
			}
		}
	}

	e.registry.Add(inst)

	if m := class.LookupMethod(InitializeSelector); m != nil {
		m.Impl(inst, args)
	}

	// After-construction hooks fire once the object is fully initialized.
	// A halting hook stops the remaining hooks but the instance stands.
	chain := e.resolveHooks(class, InitializeSelector)
	for _, h := range chain.after {
		if r := e.invokeHook(inst, h); r.IsFalse() {
			break
		}
	}

	return inst
}

// Destroy tears the instance down: before-destroy hooks, then pop-all-states
// cleanup, the class's destroy method, registry removal, then after-destroy
// hooks. A halting before-hook aborts destruction and the call returns the
// False sentinel.
func (e *Engine) Destroy(inst *Instance) Value {
	body := &MethodEntry{Selector: DestroySelector, Impl: func(self *Instance, args []Value) Value {
		if self.Class.Stateful() {
			e.PopAllStates(self)
		}
		result := NilValue()
		if m := self.Class.LookupMethod(DestroySelector); m != nil {
			result = m.Impl(self, args)
		}
		e.registry.Remove(self)
		self.destroyed = true
		return result
	}}
	wrapped := e.wrapEntry(inst.Class, DestroySelector, body)
	return wrapped.Impl(inst, nil)
}

// generateID produces a unique instance identifier in the form
// classname_uuid.
func generateID(className string) string {
	return strings.ToLower(className) + "_" + uuid.NewString()
}
