package mixin

import "fmt"

// ---------------------------------------------------------------------------
// Method references and generic invocation
// ---------------------------------------------------------------------------

// RefKind discriminates the two shapes a method reference can take.
type RefKind uint8

const (
	// RefNamed refers to a method by selector, resolved on the target at
	// call time (through the state stack and class chain).
	RefNamed RefKind = iota + 1
	// RefDirect carries a callable invoked with the target prepended.
	RefDirect
)

// MethodRef is a tagged reference to a method: either a selector name or a
// direct callable. The zero value is invalid.
type MethodRef struct {
	Kind RefKind
	Name string
	Fn   MethodFunc
}

// Named creates a reference that resolves a selector on the target.
func Named(name string) MethodRef {
	return MethodRef{Kind: RefNamed, Name: name}
}

// Callable creates a reference to a direct function.
func Callable(fn MethodFunc) MethodRef {
	return MethodRef{Kind: RefDirect, Fn: fn}
}

// Valid reports whether the reference can be invoked.
func (r MethodRef) Valid() bool {
	switch r.Kind {
	case RefNamed:
		return r.Name != ""
	case RefDirect:
		return r.Fn != nil
	}
	return false
}

// String implements the Stringer interface.
func (r MethodRef) String() string {
	switch r.Kind {
	case RefNamed:
		return "#" + r.Name
	case RefDirect:
		return "<callable>"
	}
	return "<invalid ref>"
}

// Invoke calls a method reference on a target instance. Named references
// resolve through the target's state stack and class chain (and so observe
// hook wrapping); direct callables are invoked with the target prepended.
func (e *Engine) Invoke(target *Instance, ref MethodRef, args ...Value) (Value, error) {
	switch ref.Kind {
	case RefNamed:
		if ref.Name == "" {
			return NilValue(), fmt.Errorf("empty selector: %w", ErrInvalidInvocationTarget)
		}
		return e.Send(target, ref.Name, args...)
	case RefDirect:
		if ref.Fn == nil {
			return NilValue(), fmt.Errorf("nil callable: %w", ErrInvalidInvocationTarget)
		}
		return ref.Fn(target, args), nil
	}
	return NilValue(), fmt.Errorf("ref kind %d: %w", ref.Kind, ErrInvalidInvocationTarget)
}
