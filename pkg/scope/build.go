package scope

import (
	"fmt"
	"regexp"

	"github.com/oblinger/alienbio/pkg/specyaml"
)

// typedKeyRe recognizes a "T.N" mapping key: T is a bare type name
// (letters/digits/underscore/hyphen, no dots), N is everything after the
// first dot and may itself be dotted (spec §3: "N is a dotted element
// name").
var typedKeyRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_-]*)\.(.+)$`)

// SplitTypedKey splits a mapping key of the form "T.N" into its type and
// element name. ok is false for keys with no dot at all.
func SplitTypedKey(key string) (typeName, elemName string, ok bool) {
	m := typedKeyRe.FindStringSubmatch(key)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// TypeChecker reports whether a type name is registered. Implemented by
// the type registry; kept minimal here so pkg/scope has no import-time
// dependency on pkg/registry.
type TypeChecker interface {
	IsRegisteredType(name string) bool
}

// TypedElement is a typed-element site discovered while building the
// scope graph: its key was "T.N", T was registered, and its (not yet
// hydrated) body has been recursively scope-built with Scope as its
// parent. The Hydrator visits these bottom-up and replaces each
// `Scope.bindings[ElemName]` placeholder with the constructed entity.
type TypedElement struct {
	TypeName string
	ElemName string
	Body     *specyaml.Node
	Scope    *Scope // the enclosing scope the element was declared in
}

// DictMember wraps a plain map so it can serve as the tail of a dotted
// lookup via Member — used for ordinary (non-typed) nested mappings,
// which per spec §3 stay plain dicts rather than becoming scope nodes.
type DictMember map[string]any

func (d DictMember) Member(name string) (any, bool) {
	v, ok := d[name]
	return v, ok
}

// Build constructs the scope graph for a fully reference-resolved tree
// (spec §4.3). It binds every non-typed key as either a converted plain
// Go value (specyaml.Node.ToGo) or, for nested mappings, a DictMember;
// every typed key ("T.N" with T registered) becomes a nested Scope bound
// under N and is additionally returned in elements for bottom-up
// hydration. An "extends: T" key, once present, rewires the scope's
// parent from the lexical enclosing scope to the scope named by the
// dotted name T (which must already be bound — extends targets are
// resolved eagerly, so they must be declared before use).
func Build(n *specyaml.Node, name string, lexicalParent *Scope, types TypeChecker) (*Scope, []TypedElement, error) {
	if n == nil || n.Kind != specyaml.KindMapping {
		return nil, nil, fmt.Errorf("scope.Build: %q is not a mapping", name)
	}

	sc := NewChild(name, lexicalParent)
	var elements []TypedElement

	for _, e := range n.Mapping {
		if e.Key == "extends" {
			target, ok := e.Value.ScalarValue().(string)
			if !ok {
				return nil, nil, fmt.Errorf("scope.Build: %q: extends value must be a dotted name", name)
			}
			parentScope, err := resolveExtends(sc, lexicalParent, target)
			if err != nil {
				return nil, nil, err
			}
			sc.SetParent(parentScope)
			if err := DetectExtendsCycle(sc, (*Scope).Parent); err != nil {
				return nil, nil, err
			}
			continue
		}

		if typeName, elemName, ok := SplitTypedKey(e.Key); ok && types != nil && types.IsRegisteredType(typeName) {
			childScope, childElems, err := Build(e.Value, elemName, sc, types)
			if err != nil {
				return nil, nil, err
			}
			sc.Bind(elemName, childScope)
			elements = append(elements, childElems...)
			elements = append(elements, TypedElement{
				TypeName: typeName,
				ElemName: elemName,
				Body:     e.Value,
				Scope:    sc,
			})
			continue
		}

		if e.Value.Kind == specyaml.KindMapping {
			sc.Bind(e.Key, DictMember(e.Value.ToGo().(map[string]any)))
			continue
		}

		if e.Value.Null {
			sc.Bind(e.Key, Absent)
			continue
		}

		sc.Bind(e.Key, e.Value.ToGo())
	}

	return sc, elements, nil
}

func resolveExtends(sc, lexicalParent *Scope, dotted string) (*Scope, error) {
	var lookupFrom *Scope
	if lexicalParent != nil {
		lookupFrom = lexicalParent
	} else {
		lookupFrom = sc
	}
	v, err := lookupFrom.LookupDotted(dotted)
	if err != nil {
		return nil, fmt.Errorf("scope.Build: extends %q: %w", dotted, err)
	}
	target, ok := v.(*Scope)
	if !ok {
		return nil, fmt.Errorf("scope.Build: extends %q does not name a scope", dotted)
	}
	return target, nil
}
