package mixin

// ---------------------------------------------------------------------------
// Indexable: dynamic slot fallback through per-class defaults
// ---------------------------------------------------------------------------

// SetDefaultSlot registers a fallback value for a slot on a class. The
// fallback is consulted when an instance of the class (or a subclass) has
// no value of its own for the slot.
func (e *Engine) SetDefaultSlot(class *Class, name string, value Value) {
	if class.defaults == nil {
		class.defaults = make(map[string]Value)
	}
	class.defaults[name] = value
}

// SlotValue reads a slot on an instance with fallback: the instance's own
// variables first, then class defaults walked up the superclass chain, then
// nil.
func (e *Engine) SlotValue(inst *Instance, name string) Value {
	inst.mu.RLock()
	v, ok := inst.Vars[name]
	inst.mu.RUnlock()
	if ok && !v.IsNil() {
		return v
	}
	for c := inst.Class; c != nil; c = c.Superclass {
		if c.defaults != nil {
			if dv, ok := c.defaults[name]; ok {
				return dv
			}
		}
	}
	return NilValue()
}
