// Package adapt implements the port compatibility/adapter layer (spec §4.2,
// C2). The C++ original resolved `compatibility<TO, FROM>::convert` at
// template-instantiation time and memoized one adapter object per
// (source port, destination type) pair, keyed by the conversion function's
// pointer identity. Go generics can't specialize a template per type pair,
// so the registry below is a runtime map keyed by the (FROM, TO) reflect.Type
// pair, populated once via RegisterCompatibility, and looked up by
// Convert/Lookup at adapt-time (still configuration-adjacent — the same
// (FROM, TO) pair is looked up on every adapt call, but never mutated after
// registration).
package adapt

import (
	"reflect"
	"sync"

	"github.com/nilgate/gate/internal/domain"
)

type typePair struct {
	from reflect.Type
	to   reflect.Type
}

// Registry holds every registered FROM->TO conversion function. The zero
// value is not usable; construct with NewRegistry.
type Registry struct {
	mu          sync.RWMutex
	conversions map[typePair]func(any) any
}

// NewRegistry creates an empty conversion registry.
func NewRegistry() *Registry {
	return &Registry{conversions: make(map[typePair]func(any) any)}
}

// RegisterCompatibility registers a conversion from FROM to TO. It is a
// package-level function rather than a method because Go methods cannot
// carry their own type parameters independent of the receiver's.
// Re-registering the same (FROM, TO) pair overwrites the previous
// conversion — callers normally do this once at program init, mirroring how
// the original's trait specializations live at global scope.
func RegisterCompatibility[TO, FROM any](r *Registry, convert func(FROM) TO) {
	from := reflect.TypeOf((*FROM)(nil)).Elem()
	to := reflect.TypeOf((*TO)(nil)).Elem()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversions[typePair{from: from, to: to}] = func(v any) any {
		return convert(v.(FROM))
	}
}

// Lookup returns the registered FROM->TO conversion, if any.
func (r *Registry) Lookup(from, to reflect.Type) (func(any) any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.conversions[typePair{from: from, to: to}]
	return fn, ok
}

// Convert adapts value (of type from) to the destination type. Identity
// conversions (from == to) always succeed without a registry lookup — this
// is the Go equivalent of the original's `compatibility<T, T>` identity
// specialization. Any other pair with no registered conversion is a
// configuration-time error (§7.1): it is always caught when a node or link
// is registered, never discovered mid-commit.
func (r *Registry) Convert(from, to reflect.Type, value any) (any, error) {
	if from == to {
		return value, nil
	}
	fn, ok := r.Lookup(from, to)
	if !ok {
		return nil, domain.NewConfigError(
			"adapter",
			"no compatibility conversion registered from "+from.String()+" to "+to.String(),
			nil,
		)
	}
	return fn(value), nil
}

// CanConvert reports whether a conversion from `from` to `to` exists,
// without performing it. Used by link-time and uniform-API validation to
// fail fast on configuration rather than waiting for a value to flow.
func (r *Registry) CanConvert(from, to reflect.Type) bool {
	if from == to {
		return true
	}
	_, ok := r.Lookup(from, to)
	return ok
}

// Cache memoizes adapted values per destination type for a single source
// port, invalidated whenever the source's value version changes. This
// collapses the original's two adapter flavors (a raw-pointer cache for
// conversions that return a reference, an std::optional cache for
// conversions that return a value) into one shape: Go conversions are
// always plain value-returning functions, so there is only ever a
// value-returning cache here. The zero value is ready to use.
type Cache struct {
	mu      sync.Mutex
	entries map[reflect.Type]*cacheEntry
}

type cacheEntry struct {
	version uint64
	value   any
}

// Get returns the adapted value for destType, recomputing via compute only
// if this is the first request for destType or the source's version has
// advanced since the cached value was produced.
func (c *Cache) Get(destType reflect.Type, sourceVersion uint64, compute func() any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[reflect.Type]*cacheEntry)
	}
	e, ok := c.entries[destType]
	if ok && e.version == sourceVersion {
		return e.value
	}
	v := compute()
	c.entries[destType] = &cacheEntry{version: sourceVersion, value: v}
	return v
}

// Invalidate drops every memoized adapter for this source, forcing
// recomputation on next Get. Called whenever the source port's value
// changes or is unset, since a cached conversion of the old value would be
// stale.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}
