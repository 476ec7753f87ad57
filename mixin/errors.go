package mixin

import "errors"

// ---------------------------------------------------------------------------
// Error kinds
// ---------------------------------------------------------------------------

// All of these indicate a defect in how the engine is used. They are
// detected eagerly at registration or call time and returned to the caller;
// there is no retry semantics. The False sentinel is deliberately not an
// error and never maps to any of these.

// ErrInvalidHook indicates malformed hook registration arguments.
var ErrInvalidHook = errors.New("invalid hook")

// ErrStateNotFound indicates a reference to a state name that is not
// defined on the instance's class.
var ErrStateNotFound = errors.New("state not found")

// ErrNotFound indicates a named method absent on the invocation target.
var ErrNotFound = errors.New("method not found")

// ErrInvalidInvocationTarget indicates an invocation action that is neither
// a method name nor a callable.
var ErrInvalidInvocationTarget = errors.New("invalid invocation target")

// ErrDuplicateNewOverride indicates an attempt to install the lifecycle
// wrapping twice on the same class.
var ErrDuplicateNewOverride = errors.New("lifecycle wrapping already installed")

// ErrUnknownClass indicates a reference to a class name that is not
// registered.
var ErrUnknownClass = errors.New("unknown class")
