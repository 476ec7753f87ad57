package mixin

import (
	"sync"
	"weak"
)

// ---------------------------------------------------------------------------
// InstanceRegistry: per-class weakly-held instance collections
// ---------------------------------------------------------------------------

// InstanceRegistry tracks live instances per class for bulk dispatch.
// References are weak so the registry never keeps an otherwise-unreachable
// instance alive; dead entries are dropped by Sweep or lazily during
// iteration. Construct enrolls instances automatically and Destroy removes
// them.
type InstanceRegistry struct {
	mu      sync.RWMutex
	byClass map[*Class]map[string]weak.Pointer[Instance]
}

// NewInstanceRegistry creates an empty instance registry.
func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{
		byClass: make(map[*Class]map[string]weak.Pointer[Instance]),
	}
}

// Add enrolls an instance under its class.
func (r *InstanceRegistry) Add(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := r.byClass[inst.Class]
	if byID == nil {
		byID = make(map[string]weak.Pointer[Instance])
		r.byClass[inst.Class] = byID
	}
	byID[inst.ID] = weak.Make(inst)
}

// Remove drops an instance from the registry.
func (r *InstanceRegistry) Remove(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if byID := r.byClass[inst.Class]; byID != nil {
		delete(byID, inst.ID)
	}
}

// Instances returns a snapshot of the live instances of a class, including
// instances of its subclasses. The snapshot is safe to mutate against:
// enrolling or destroying instances during iteration does not affect it.
func (r *InstanceRegistry) Instances(class *Class) []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Instance
	for c, byID := range r.byClass {
		if !c.IsSubclassOf(class) {
			continue
		}
		for _, ref := range byID {
			if inst := ref.Value(); inst != nil && !inst.destroyed {
				result = append(result, inst)
			}
		}
	}
	return result
}

// Count returns the number of live instances of a class (and subclasses).
func (r *InstanceRegistry) Count(class *Class) int {
	return len(r.Instances(class))
}

// Sweep removes entries whose instances have been collected and returns how
// many were dropped.
func (r *InstanceRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	swept := 0
	for _, byID := range r.byClass {
		for id, ref := range byID {
			if ref.Value() == nil {
				delete(byID, id)
				swept++
			}
		}
	}
	return swept
}

// ---------------------------------------------------------------------------
// Bulk dispatch
// ---------------------------------------------------------------------------

// EachInstance snapshots the live instances of a class and calls fn for
// each. Mutations performed by fn (constructing or destroying instances)
// do not affect the iteration.
func (e *Engine) EachInstance(class *Class, fn func(*Instance)) {
	for _, inst := range e.registry.Instances(class) {
		fn(inst)
	}
}

// ApplyToAll sends a selector to every live instance of a class and returns
// the number of successful dispatches. Instances that do not understand the
// selector are skipped.
func (e *Engine) ApplyToAll(class *Class, selector string, args ...Value) int {
	count := 0
	for _, inst := range e.registry.Instances(class) {
		if _, err := e.Send(inst, selector, args...); err == nil {
			count++
		}
	}
	return count
}
