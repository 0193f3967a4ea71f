// Package specyaml parses spec YAML into a recursively typed tree that
// preserves mapping-key order and recognizes the four structural/deferred
// tags (!include, !ref, !ev, !_) described by the spec engine.
package specyaml

import (
	"fmt"
	"strconv"
)

// Pos identifies a source location for diagnosable load/resolution errors.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Kind discriminates the variants of a Node.
type Kind int

const (
	KindScalar Kind = iota
	KindMapping
	KindSequence
	KindTag
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	case KindTag:
		return "tag"
	default:
		return "unknown"
	}
}

// TagKind identifies which of the four spec tags decorates a Node.
type TagKind int

const (
	TagNone TagKind = iota
	TagInclude
	TagRef
	TagEval
	TagQuoted
)

// tagNames maps the YAML tag string to its TagKind.
var tagNames = map[string]TagKind{
	"!include": TagInclude,
	"!ref":     TagRef,
	"!ev":      TagEval,
	"!_":       TagQuoted,
}

func (t TagKind) String() string {
	switch t {
	case TagInclude:
		return "!include"
	case TagRef:
		return "!ref"
	case TagEval:
		return "!ev"
	case TagQuoted:
		return "!_"
	default:
		return "none"
	}
}

// MapEntry is a single ordered key/value pair of a mapping node. Keys are
// always plain strings at this layer — spec YAML never uses structured
// mapping keys.
type MapEntry struct {
	Key   string
	Value *Node
	Pos   Pos
}

// Node is the recursively typed value produced by the loader: a scalar, an
// order-preserving mapping, a sequence, or a tagged value wrapping a scalar
// source string (the raw text following the tag, e.g. the include path or
// the deferred expression source).
type Node struct {
	Kind Kind
	Pos  Pos

	// Populated when Kind == KindScalar.
	Scalar string
	// Null is true when the scalar was written as YAML null (`~`, `null`,
	// or empty) rather than the literal string "~" — distinguishing the
	// two matters for the scope graph's explicit-absence shadowing.
	Null bool

	// Populated when Kind == KindMapping.
	Mapping []MapEntry

	// Populated when Kind == KindSequence.
	Sequence []*Node

	// Populated when Kind == KindTag.
	Tag       TagKind
	TagSource string // raw source text the tag decorates
}

// Get returns the value bound to key in a mapping node, or nil if absent or
// if the node is not a mapping.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != KindMapping {
		return nil
	}
	for _, e := range n.Mapping {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// IsStructuralTag reports whether this node is a !include or !ref tag —
// the two tag kinds the Reference Resolver must eliminate.
func (n *Node) IsStructuralTag() bool {
	return n != nil && n.Kind == KindTag && (n.Tag == TagInclude || n.Tag == TagRef)
}

// ScalarValue coerces a KindScalar node's text into a native Go value
// using ordinary YAML scalar resolution rules (bool, float64, else
// string). Used wherever a plain (non-deferred) value needs to leave the
// Node representation and enter scope bindings or template arguments.
func (n *Node) ScalarValue() any {
	if n == nil || n.Kind != KindScalar {
		return nil
	}
	if n.Null {
		return nil
	}
	switch n.Scalar {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(n.Scalar, 64); err == nil {
		return f
	}
	return n.Scalar
}

// ToGo recursively converts a resolved (no !include/!ref) tree into plain
// Go values: scalars via ScalarValue, sequences into []any, mappings into
// map[string]any. A KindTag node (!ev or !_) is left as *Node, since it
// must not be evaluated here — hydration is purely structural (spec
// §4.5); the caller evaluates it lazily, in scope, when the value is
// actually needed.
func (n *Node) ToGo() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindScalar:
		return n.ScalarValue()
	case KindSequence:
		out := make([]any, len(n.Sequence))
		for i, item := range n.Sequence {
			out[i] = item.ToGo()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(n.Mapping))
		for _, e := range n.Mapping {
			out[e.Key] = e.Value.ToGo()
		}
		return out
	default: // KindTag
		return n
	}
}

// Clone performs a deep copy of the node, used whenever a Reference (!ref)
// target is spliced into another location in the tree — per spec, reference
// resolution substitutes a deep copy, never a shared pointer.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Kind:      n.Kind,
		Pos:       n.Pos,
		Scalar:    n.Scalar,
		Tag:       n.Tag,
		TagSource: n.TagSource,
		Null:      n.Null,
	}
	if n.Mapping != nil {
		out.Mapping = make([]MapEntry, len(n.Mapping))
		for i, e := range n.Mapping {
			out.Mapping[i] = MapEntry{Key: e.Key, Pos: e.Pos, Value: e.Value.Clone()}
		}
	}
	if n.Sequence != nil {
		out.Sequence = make([]*Node, len(n.Sequence))
		for i, s := range n.Sequence {
			out.Sequence[i] = s.Clone()
		}
	}
	return out
}
