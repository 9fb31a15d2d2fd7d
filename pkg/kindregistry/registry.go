// Package kindregistry implements the plug-in extension-point pattern used
// throughout this module: a mutex-protected table keyed by a string
// discriminator (auth kind, call-template kind, protocol kind, and so on),
// modeled on the registries/registryEntry map pattern in the teacher's
// runtime/registry package. Each extension point in pkg/* declares its own
// Registry[T] instantiation rather than sharing one global table, so a
// lookup failure always names both the missing kind and the point it was
// looked up at.
package kindregistry

import (
	"sync"

	"goa.design/utcp/pkg/utcperr"
)

// Registry holds named factories for one extension point. Registration is
// idempotent by default: re-registering an existing kind without override
// is accepted as a no-op, not an error, and the caller observes the
// rejection through the boolean return value.
type Registry[T any] struct {
	mu      sync.RWMutex
	point   string
	entries map[string]T
}

// New creates an empty registry for the named extension point (used only to
// annotate UnknownKindError; it does not affect lookup behavior).
func New[T any](point string) *Registry[T] {
	return &Registry[T]{
		point:   point,
		entries: make(map[string]T),
	}
}

// Register installs factory under kind. It returns true if the entry was
// installed (either the kind was new, or override was requested), and false
// if an existing entry was left untouched.
func (r *Registry[T]) Register(kind string, factory T, override bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[kind]; exists && !override {
		return false
	}
	r.entries[kind] = factory
	return true
}

// Get looks up the factory registered under kind.
func (r *Registry[T]) Get(kind string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.entries[kind]
	if !ok {
		var zero T
		return zero, &utcperr.UnknownKindError{Kind: kind, Point: r.point}
	}
	return f, nil
}

// Has reports whether kind is registered.
func (r *Registry[T]) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[kind]
	return ok
}

// Kinds returns the currently registered discriminators, in no particular
// order. Intended for diagnostics, not for iteration order guarantees.
func (r *Registry[T]) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	return out
}

// Guard runs a bootstrap function at most once, guarding against reentry.
// Each package that installs built-in kinds keeps its own Guard behind an
// exported Bootstrap function; client.Create calls every one of them, and
// variables.Build also calls its own.
type Guard struct {
	once sync.Once
}

// Do runs f exactly once across the lifetime of the Guard.
func (g *Guard) Do(f func()) {
	g.once.Do(f)
}
