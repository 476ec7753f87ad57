package mixin

// ---------------------------------------------------------------------------
// Branchy: parent/child tree bookkeeping for instances
// ---------------------------------------------------------------------------

// SetTreeParent attaches the instance to a parent, detaching it from any
// previous parent first. A nil parent detaches.
func (inst *Instance) SetTreeParent(parent *Instance) {
	if inst.treeParent != nil {
		inst.treeParent.removeChild(inst)
	}
	inst.treeParent = parent
	if parent != nil {
		parent.treeChildren = append(parent.treeChildren, inst)
	}
}

func (inst *Instance) removeChild(child *Instance) {
	for i, c := range inst.treeChildren {
		if c == child {
			inst.treeChildren = append(inst.treeChildren[:i], inst.treeChildren[i+1:]...)
			return
		}
	}
}

// TreeParent returns the instance's parent, or nil.
func (inst *Instance) TreeParent() *Instance {
	return inst.treeParent
}

// Children returns a snapshot of the instance's children.
func (inst *Instance) Children() []*Instance {
	result := make([]*Instance, len(inst.treeChildren))
	copy(result, inst.treeChildren)
	return result
}

// Root walks up the parent chain to the topmost instance.
func (inst *Instance) Root() *Instance {
	current := inst
	for current.treeParent != nil {
		current = current.treeParent
	}
	return current
}

// Ancestors returns the parent chain from immediate parent to root.
func (inst *Instance) Ancestors() []*Instance {
	var result []*Instance
	for current := inst.treeParent; current != nil; current = current.treeParent {
		result = append(result, current)
	}
	return result
}

// WalkDepthFirst visits the instance and its descendants depth first.
// Returning false from fn stops the walk.
func (inst *Instance) WalkDepthFirst(fn func(*Instance) bool) bool {
	if !fn(inst) {
		return false
	}
	for _, child := range inst.treeChildren {
		if !child.WalkDepthFirst(fn) {
			return false
		}
	}
	return true
}
