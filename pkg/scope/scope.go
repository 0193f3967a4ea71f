// Package scope implements the lexical namespace used throughout the spec
// engine: a dict-like node with an optional parent pointer, dotted-name
// lookup that climbs the parent chain then falls back to an external
// resolver (the fetch/module layer), and "extends:"-driven inheritance.
package scope

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotFound is returned when a name cannot be resolved anywhere in the
// scope chain or the fallback resolver.
var ErrNotFound = errors.New("name not found in scope")

// ErrCyclicExtends is reported when an extends: chain contains a cycle.
var ErrCyclicExtends = errors.New("cyclic extends chain")

// absentValue is the sentinel bound to a name explicitly shadowed by `~`.
// Looking it up stops the climb and reports not-found rather than falling
// through to the parent.
type absentValue struct{}

// Absent is the value to Bind when a child scope shadows an inherited key
// with explicit absence (the `~` key in spec YAML).
var Absent = absentValue{}

// Member is implemented by values that support dotted member access —
// typically hydrated entities. A value that doesn't implement Member can
// still be the final segment of a dotted lookup; it just can't be
// dereferenced further.
type Member interface {
	// Member returns the named member and whether it exists.
	Member(name string) (any, bool)
}

// Fallback is consulted when the first segment of a dotted name isn't
// found anywhere in the scope chain. The fetch/module layer implements
// this (spec §4.3: "if not found, delegate to Fetch/Lookup").
type Fallback interface {
	Resolve(dotted string) (any, error)
}

// Scope is a mapping from name to value with an optional parent and an
// optional display name (used in error messages and !ref resolution
// context).
type Scope struct {
	mu       sync.RWMutex
	name     string
	parent   *Scope
	bindings map[string]any
	fallback Fallback
}

// New creates a root scope with no parent.
func New(name string) *Scope {
	return &Scope{name: name, bindings: make(map[string]any)}
}

// NewChild creates a scope whose parent is s.
func NewChild(name string, parent *Scope) *Scope {
	return &Scope{name: name, parent: parent, bindings: make(map[string]any)}
}

// SetFallback installs the module/filesystem resolver consulted when a
// top-level name isn't found in the scope chain. Only meaningful on a root
// scope; a child scope's lookup climbs to the root before ever consulting
// a fallback (see Lookup).
func (s *Scope) SetFallback(f Fallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = f
}

// Name returns the scope's display name.
func (s *Scope) Name() string { return s.name }

// Parent returns the scope's parent, or nil for a root scope.
func (s *Scope) Parent() *Scope { return s.parent }

// SetParent rewires the scope's parent — used when an `extends:` key
// overrides the default lexical-enclosing parent.
func (s *Scope) SetParent(p *Scope) { s.parent = p }

// Member implements the Member interface so a Scope can itself be the
// target of dotted-name dereferencing (a nested typed element's members
// are just its own scope bindings, climbing its own parent chain).
func (s *Scope) Member(name string) (any, bool) { return s.Lookup(name) }

// Bind sets a local binding. Bind(key, Absent) shadows any inherited value
// for key with explicit absence.
func (s *Scope) Bind(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[key] = value
}

// Keys returns the scope's own (non-inherited) binding names.
func (s *Scope) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.bindings))
	for k := range s.bindings {
		keys = append(keys, k)
	}
	return keys
}

// localLookup checks only this scope's own bindings.
func (s *Scope) localLookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.bindings[key]
	return v, ok
}

// Lookup resolves a single (non-dotted) name by climbing the parent chain.
// Absent shadows stop the climb: a found-but-Absent binding is reported as
// not found, the same as if nothing were bound there.
func (s *Scope) Lookup(key string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.localLookup(key); ok {
			if _, isAbsent := v.(absentValue); isAbsent {
				return nil, false
			}
			return v, true
		}
	}
	return nil, false
}

// root walks to the top of the parent chain.
func (s *Scope) root() *Scope {
	cur := s
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// LookupDotted resolves a dotted name "a.b.c": the first segment is
// resolved via Lookup (falling back to the root scope's Fallback if not
// found anywhere in the chain), then each remaining segment is
// dereferenced as member access on the resolved value.
func (s *Scope) LookupDotted(dotted string) (any, error) {
	segments := strings.Split(dotted, ".")
	head := segments[0]

	val, ok := s.Lookup(head)
	if !ok {
		root := s.root()
		root.mu.RLock()
		fb := root.fallback
		root.mu.RUnlock()
		if fb == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dotted)
		}
		resolved, err := fb.Resolve(dotted)
		if err != nil {
			return nil, err
		}
		return resolved, nil
	}

	cur := val
	for _, seg := range segments[1:] {
		m, ok := cur.(Member)
		if !ok {
			return nil, fmt.Errorf("%w: %s: %q has no members (reached at %q)", ErrNotFound, dotted, seg, head)
		}
		next, ok := m.Member(seg)
		if !ok {
			return nil, fmt.Errorf("%w: %s: no member %q", ErrNotFound, dotted, seg)
		}
		cur = next
	}
	return cur, nil
}

// DetectExtendsCycle walks an extends chain starting at start, following
// next for each scope, and reports ErrCyclicExtends if a scope repeats.
// Callers build `next` from whatever side-table tracks extends: links
// before parent pointers are finalized (the final Scope.parent is already
// a tree, so this check is only needed at construction time).
func DetectExtendsCycle(start *Scope, next func(*Scope) *Scope) error {
	seen := make(map[*Scope]bool)
	cur := start
	for cur != nil {
		if seen[cur] {
			return fmt.Errorf("%w: at %q", ErrCyclicExtends, cur.name)
		}
		seen[cur] = true
		cur = next(cur)
	}
	return nil
}
