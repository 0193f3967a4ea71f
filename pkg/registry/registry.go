// Package registry implements the process-wide Type Registry and the
// Hydrator that walks a built scope graph bottom-up, replacing each typed
// element's placeholder scope with the entity its registered constructor
// produces.
package registry

import (
	"fmt"
	"sync"

	"github.com/oblinger/alienbio/pkg/scope"
	"github.com/oblinger/alienbio/pkg/specyaml"
)

// Entity is the materialized result of hydrating a typed element. It must
// support dotted member access (so `foo.bar` can resolve into it) and
// report its own type name for diagnostics.
type Entity interface {
	scope.Member
	TypeName() string
}

// Constructor builds an Entity from a typed element's body (already
// reference-resolved; nested typed elements inside it are already
// hydrated, per the bottom-up walk) and its enclosing scope.
type Constructor func(name string, body *specyaml.Node, parent *scope.Scope) (Entity, error)

// Registry maps type names to constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds or replaces the constructor for typeName.
func (r *Registry) Register(typeName string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[typeName] = ctor
}

// Lookup returns the constructor registered for typeName, if any.
func (r *Registry) Lookup(typeName string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.ctors[typeName]
	return c, ok
}

// IsRegisteredType implements scope.TypeChecker.
func (r *Registry) IsRegisteredType(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// HydrationError reports a constructor failure for a specific typed
// element, with enough context to locate it.
type HydrationError struct {
	TypeName string
	ElemName string
	Pos      specyaml.Pos
	Err      error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("%s: hydrating %s.%s: %v", e.Pos, e.TypeName, e.ElemName, e.Err)
}

func (e *HydrationError) Unwrap() error { return e.Err }
