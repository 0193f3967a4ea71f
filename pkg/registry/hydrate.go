package registry

import (
	"github.com/oblinger/alienbio/pkg/scope"
	"github.com/oblinger/alienbio/pkg/specyaml"
)

// Hydrate invokes each typed element's registered constructor in the
// order given — callers pass the bottom-up-ordered list scope.Build
// produces — and rebinds its name in its enclosing scope to the
// constructed Entity, replacing the placeholder Scope that Build left
// there. A constructor invoked for an outer element therefore always
// observes already-hydrated entities for any typed elements nested inside
// its own body (spec §4.5, point 3).
func Hydrate(elements []scope.TypedElement, reg *Registry) error {
	for _, el := range elements {
		ctor, ok := reg.Lookup(el.TypeName)
		if !ok {
			// scope.Build only collects elements whose type was already
			// confirmed registered; this would indicate the registry
			// changed between Build and Hydrate.
			continue
		}
		entity, err := ctor(el.ElemName, el.Body, el.Scope)
		if err != nil {
			return &HydrationError{TypeName: el.TypeName, ElemName: el.ElemName, Pos: el.Body.Pos, Err: err}
		}
		el.Scope.Bind(el.ElemName, entity)
	}
	return nil
}

// BuildAndHydrate combines scope.Build and Hydrate: the common entry
// point for turning a reference-resolved tree into a fully hydrated scope
// graph in one call.
func BuildAndHydrate(n *specyaml.Node, name string, parent *scope.Scope, reg *Registry) (*scope.Scope, error) {
	sc, elements, err := scope.Build(n, name, parent, reg)
	if err != nil {
		return nil, err
	}
	if err := Hydrate(elements, reg); err != nil {
		return nil, err
	}
	return sc, nil
}
