// Package resolver implements the Reference Resolver: a single recursive,
// left-to-right, depth-first pass over a loaded specyaml.Node tree that
// eliminates the two structural tags (!include, !ref), leaving only
// !ev/!_ deferred nodes and plain scalars/mappings/sequences behind.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oblinger/alienbio/pkg/specyaml"
)

// ErrCyclic is reported when an !include or !ref chain re-enters a source
// it is already in the middle of expanding.
var ErrCyclic = errors.New("cyclic include/ref")

// ErrUnresolved is reported when a !ref dotted name cannot be found in the
// enclosing document.
var ErrUnresolved = errors.New("unresolved reference")

// ResolveError carries the source position of a resolution failure.
type ResolveError struct {
	Pos specyaml.Pos
	Err error
}

func (e *ResolveError) Error() string { return fmt.Sprintf("%s: %v", e.Pos, e.Err) }
func (e *ResolveError) Unwrap() error { return e.Err }

// IncludeLoader loads the file named by path, relative to fromFile (which
// may be absolute, relative, or dotted — the same specifier grammar the
// Fetch layer uses). It returns a canonical path (used for cycle
// bookkeeping and as the new "file" context for nested resolution) and the
// freshly loaded, not-yet-resolved Node tree.
type IncludeLoader func(fromFile, path string) (canonicalPath string, root *specyaml.Node, err error)

// Resolver walks a tree substituting !include and !ref nodes in place.
type Resolver struct {
	loadInclude IncludeLoader
}

// New constructs a Resolver. loadInclude is typically backed by the
// fetch/DAT layer's specifier resolution.
func New(loadInclude IncludeLoader) *Resolver {
	return &Resolver{loadInclude: loadInclude}
}

// Resolve fully expands root (loaded from file) and returns the resolved
// tree. docRoot tracks the enclosing document for !ref dotted lookups: a
// !ref always resolves against the document it lexically appears in, even
// after an !include has spliced in content that originated elsewhere — so
// an !ref encountered inside an included file resolves against that
// included file's own root, not the file that included it.
func (r *Resolver) Resolve(file string, root *specyaml.Node) (*specyaml.Node, error) {
	return r.resolve(file, root, root, make(map[string]bool))
}

func (r *Resolver) resolve(file string, n, docRoot *specyaml.Node, inFlight map[string]bool) (*specyaml.Node, error) {
	if n == nil {
		return nil, nil
	}

	switch n.Kind {
	case specyaml.KindTag:
		switch n.Tag {
		case specyaml.TagInclude:
			return r.resolveInclude(file, n, inFlight)
		case specyaml.TagRef:
			return r.resolveRef(file, n, docRoot, inFlight)
		default:
			// !ev and !_ are deferred to the evaluator; leave untouched.
			return n, nil
		}

	case specyaml.KindMapping:
		out := &specyaml.Node{Kind: specyaml.KindMapping, Pos: n.Pos}
		for _, e := range n.Mapping {
			val, err := r.resolve(file, e.Value, docRoot, inFlight)
			if err != nil {
				return nil, err
			}
			out.Mapping = append(out.Mapping, specyaml.MapEntry{Key: e.Key, Pos: e.Pos, Value: val})
		}
		return out, nil

	case specyaml.KindSequence:
		out := &specyaml.Node{Kind: specyaml.KindSequence, Pos: n.Pos}
		for _, item := range n.Sequence {
			val, err := r.resolve(file, item, docRoot, inFlight)
			if err != nil {
				return nil, err
			}
			out.Sequence = append(out.Sequence, val)
		}
		return out, nil

	default: // KindScalar
		return n, nil
	}
}

func (r *Resolver) resolveInclude(file string, n *specyaml.Node, inFlight map[string]bool) (*specyaml.Node, error) {
	if r.loadInclude == nil {
		return nil, &ResolveError{Pos: n.Pos, Err: fmt.Errorf("%w: no include loader configured", ErrUnresolved)}
	}
	key := "include:" + file + "->" + n.TagSource
	if inFlight[key] {
		return nil, &ResolveError{Pos: n.Pos, Err: fmt.Errorf("%w: %s", ErrCyclic, n.TagSource)}
	}
	canonical, included, err := r.loadInclude(file, n.TagSource)
	if err != nil {
		return nil, &ResolveError{Pos: n.Pos, Err: err}
	}
	inFlight[key] = true
	defer delete(inFlight, key)

	return r.resolve(canonical, included, included, inFlight)
}

func (r *Resolver) resolveRef(file string, n, docRoot *specyaml.Node, inFlight map[string]bool) (*specyaml.Node, error) {
	key := "ref:" + file + ":" + n.TagSource
	if inFlight[key] {
		return nil, &ResolveError{Pos: n.Pos, Err: fmt.Errorf("%w: %s", ErrCyclic, n.TagSource)}
	}
	target, ok := lookupDotted(docRoot, n.TagSource)
	if !ok {
		return nil, &ResolveError{Pos: n.Pos, Err: fmt.Errorf("%w: %s", ErrUnresolved, n.TagSource)}
	}
	inFlight[key] = true
	defer delete(inFlight, key)

	// Deep-copy the target before recursing: a !ref never shares structure
	// with its target, since sibling references to the same name must be
	// independently mutable once template expansion runs over them.
	return r.resolve(file, target.Clone(), docRoot, inFlight)
}

// lookupDotted walks a dotted name ("a.b.c") through nested mapping nodes
// starting at root.
func lookupDotted(root *specyaml.Node, dotted string) (*specyaml.Node, bool) {
	cur := root
	for _, seg := range strings.Split(dotted, ".") {
		if cur == nil || cur.Kind != specyaml.KindMapping {
			return nil, false
		}
		cur = cur.Get(seg)
		if cur == nil {
			return nil, false
		}
	}
	return cur, true
}
