package mixin

import (
	"fmt"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Callback resolution and method wrapping
// ---------------------------------------------------------------------------

// RawSuffix marks a selector as "skip callbacks": sending "update!" invokes
// the unwrapped update method directly, bypassing all hooks.
const RawSuffix = "!"

// hookChain is the flattened hook ordering for one dispatch: all before
// entries across the ancestor chain, most-derived first, then all after
// entries in the same order.
type hookChain struct {
	before []HookEntry
	after  []HookEntry
}

func (hc hookChain) empty() bool {
	return len(hc.before) == 0 && len(hc.after) == 0
}

// resolveHooks walks from class up through every ancestor and collects the
// before and after lists registered at each level. A subclass's hooks run
// before its superclass's: the more specific behavior goes first, and tests
// depend on that ordering.
func (e *Engine) resolveHooks(class *Class, method string) hookChain {
	var chain hookChain
	for c := class; c != nil; c = c.Superclass {
		if lists := e.hooks.lists(c, method); lists != nil {
			chain.before = append(chain.before, lists.before...)
			chain.after = append(chain.after, lists.after...)
		}
	}
	return chain
}

// invokeHook runs a single hook entry against an instance. Named actions
// resolve through the full dispatch path (and so may themselves be wrapped
// or state-overridden). A resolution failure surfaces as an error value.
func (e *Engine) invokeHook(inst *Instance, h HookEntry) Value {
	result, err := e.Invoke(inst, h.Action, h.BoundArgs...)
	if err != nil {
		return ErrorValue(err.Error())
	}
	return result
}

// wrapEntry composes the hook chain for (class, method) around a base
// method entry. With no hooks anywhere in the chain the base entry is
// returned unchanged, so a hook-free method carries zero wrapping overhead.
func (e *Engine) wrapEntry(class *Class, method string, base *MethodEntry) *MethodEntry {
	chain := e.resolveHooks(class, method)
	if chain.empty() {
		return base
	}
	impl := func(self *Instance, args []Value) Value {
		for _, h := range chain.before {
			r := e.invokeHook(self, h)
			if r.IsFalse() {
				return False()
			}
			if r.Type == TypeError {
				return r
			}
		}
		result := base.Impl(self, args)
		for _, h := range chain.after {
			r := e.invokeHook(self, h)
			if r.IsFalse() {
				// A halting after-hook suppresses the base result.
				return False()
			}
			if r.Type == TypeError {
				return r
			}
		}
		return result
	}
	return &MethodEntry{Selector: method, Impl: impl}
}

// ---------------------------------------------------------------------------
// Wrapped-method cache
// ---------------------------------------------------------------------------

type cacheKey struct {
	class  *Class
	method string
}

// cacheSlot remembers which base entry a wrapper was built around. If the
// class later rebinds the selector to a new entry the slot is stale and the
// wrapper is rebuilt, so the cache is effectively keyed per class per
// original method object.
type cacheSlot struct {
	base    *MethodEntry
	wrapped *MethodEntry
}

// wrappedCache memoizes composed wrappers per (class, method). Entries are
// dropped on hook registration for the pair (or an ancestor's same pair)
// and on stateful retrofit; they are rebuilt lazily on the next lookup.
type wrappedCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheSlot

	// Statistics for profiling.
	hits   uint64
	misses uint64
}

func newWrappedCache() *wrappedCache {
	return &wrappedCache{
		entries: make(map[cacheKey]cacheSlot),
	}
}

func (wc *wrappedCache) get(class *Class, method string, base *MethodEntry) *MethodEntry {
	wc.mu.RLock()
	slot, ok := wc.entries[cacheKey{class, method}]
	wc.mu.RUnlock()

	if ok && slot.base == base {
		wc.mu.Lock()
		wc.hits++
		wc.mu.Unlock()
		return slot.wrapped
	}
	wc.mu.Lock()
	wc.misses++
	wc.mu.Unlock()
	return nil
}

func (wc *wrappedCache) put(class *Class, method string, base, wrapped *MethodEntry) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.entries[cacheKey{class, method}] = cacheSlot{base: base, wrapped: wrapped}
}

// Invalidate drops the cached wrapper for exactly one (class, method) pair.
func (wc *wrappedCache) Invalidate(class *Class, method string) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	delete(wc.entries, cacheKey{class, method})
}

// InvalidateClass drops every cached wrapper for one class.
func (wc *wrappedCache) InvalidateClass(class *Class) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	for key := range wc.entries {
		if key.class == class {
			delete(wc.entries, key)
		}
	}
}

// Stats returns the cache hit and miss counters.
func (wc *wrappedCache) Stats() (hits, misses uint64) {
	wc.mu.RLock()
	defer wc.mu.RUnlock()
	return wc.hits, wc.misses
}

// CacheStats returns the wrapped-method cache counters for profiling.
func (e *Engine) CacheStats() (hits, misses uint64) {
	return e.cache.Stats()
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// LookupMethod resolves a selector for instances of a class, composing the
// hook chain around the class-table method. With no hooks anywhere in the
// ancestor chain the original entry is returned identity-unchanged. The
// composed wrapper is memoized per (class, method).
func (e *Engine) LookupMethod(class *Class, selector string) *MethodEntry {
	base := class.LookupMethod(selector)
	if base == nil {
		return nil
	}
	if wrapped := e.cache.get(class, selector, base); wrapped != nil {
		return wrapped
	}
	wrapped := e.wrapEntry(class, selector, base)
	e.cache.put(class, selector, base, wrapped)
	return wrapped
}

// Send dispatches a selector on an instance.
//
// Resolution order: the state stack top to bottom supplies the base method
// body if any active state (or a parent state) defines the selector;
// otherwise the class method table does. The hook chain for the instance's
// class then wraps around whichever body was found. A selector carrying
// RawSuffix invokes the base body directly with no hooks.
func (e *Engine) Send(inst *Instance, selector string, args ...Value) (Value, error) {
	raw := strings.HasSuffix(selector, RawSuffix)
	name := strings.TrimSuffix(selector, RawSuffix)

	if inst.Class.Stateful() {
		if base := e.stackLookup(inst, name); base != nil {
			if raw {
				return base.Impl(inst, args), nil
			}
			// State-supplied bodies vary with the stack, so the wrapper is
			// composed per call rather than memoized. The ancestor walk is
			// a handful of pointer hops; dispatch stays cheap.
			wrapped := e.wrapEntry(inst.Class, name, base)
			return wrapped.Impl(inst, args), nil
		}
	}

	if raw {
		base := inst.Class.LookupMethod(name)
		if base == nil {
			return NilValue(), fmt.Errorf("%s>>%s: %w", inst.ClassName, name, ErrNotFound)
		}
		return base.Impl(inst, args), nil
	}

	entry := e.LookupMethod(inst.Class, name)
	if entry == nil {
		return NilValue(), fmt.Errorf("%s>>%s: %w", inst.ClassName, name, ErrNotFound)
	}
	return entry.Impl(inst, args), nil
}

// stackLookup scans the instance's state stack from the top down and
// returns the first state defining the selector, following each state's
// parent chain.
func (e *Engine) stackLookup(inst *Instance, selector string) *MethodEntry {
	for i := len(inst.stack) - 1; i >= 0; i-- {
		if m := inst.stack[i].Lookup(selector); m != nil {
			return m
		}
	}
	return nil
}
