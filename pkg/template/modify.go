package template

import (
	"fmt"
	"strings"

	"dario.cat/mergo"

	"github.com/oblinger/alienbio/pkg/specyaml"
)

// modifyOp is one `_append_`/`_set_`/`_merge_` edit targeting a dotted
// path within an already-expanded subtree (spec §4.6 `_modify_:`).
type modifyOp struct {
	path   string
	append *specyaml.Node
	set    *specyaml.Node
	merge  *specyaml.Node
}

// parseModify reads a `_modify_:` mapping node into its ordered list of
// edits. Each top-level key is a dotted path; its value is a mapping that
// may carry any combination of `_append_`/`_set_`/`_merge_`.
func parseModify(n *specyaml.Node) ([]modifyOp, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != specyaml.KindMapping {
		return nil, fmt.Errorf("%w: _modify_ must be a mapping of path -> edit", ErrBadModify)
	}
	ops := make([]modifyOp, 0, len(n.Mapping))
	for _, e := range n.Mapping {
		op := modifyOp{path: e.Key}
		if e.Value.Kind != specyaml.KindMapping {
			return nil, fmt.Errorf("%w: edit for %q must be a mapping", ErrBadModify, e.Key)
		}
		op.append = e.Value.Get("_append_")
		op.set = e.Value.Get("_set_")
		op.merge = e.Value.Get("_merge_")
		if op.append == nil && op.set == nil && op.merge == nil {
			return nil, fmt.Errorf("%w: edit for %q has none of _append_/_set_/_merge_", ErrBadModify, e.Key)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// applyModify runs each edit against root in order, mutating the subtree
// the dotted path resolves to in place.
func applyModify(root *specyaml.Node, ops []modifyOp) error {
	for _, op := range ops {
		parent, key, err := navigateToParent(root, op.path)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBadModify, op.path, err)
		}
		target := parent.Get(key)

		switch {
		case op.append != nil:
			if target == nil {
				target = &specyaml.Node{Kind: specyaml.KindSequence}
				setChild(parent, key, target)
			}
			if target.Kind != specyaml.KindSequence {
				return fmt.Errorf("%w: _append_ at %q: target is not a list", ErrBadModify, op.path)
			}
			target.Sequence = append(target.Sequence, op.append.Clone())

		case op.set != nil:
			setChild(parent, key, op.set.Clone())

		case op.merge != nil:
			if op.merge.Kind != specyaml.KindMapping {
				return fmt.Errorf("%w: _merge_ at %q: value is not a mapping", ErrBadModify, op.path)
			}
			if target == nil {
				setChild(parent, key, op.merge.Clone())
				continue
			}
			if target.Kind != specyaml.KindMapping {
				return fmt.Errorf("%w: _merge_ at %q: target is not a mapping", ErrBadModify, op.path)
			}
			dst := target.ToGo().(map[string]any)
			src := op.merge.ToGo().(map[string]any)
			// dario.cat/mergo performs the deep-merge itself (the teacher's
			// own pkg/config/loader.go dependency, reused here instead of
			// hand-rolling recursive map merging): src wins on conflicts,
			// matching `_merge_`'s "overlay" semantics.
			if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
				return fmt.Errorf("%w: _merge_ at %q: %v", ErrBadModify, op.path, err)
			}
			setChild(parent, key, goValueToNode(dst))
		}
	}
	return nil
}

// navigateToParent walks all but the last segment of a dotted path
// starting at root, returning the mapping node that owns the final
// segment and that segment's key.
func navigateToParent(root *specyaml.Node, dotted string) (*specyaml.Node, string, error) {
	segs := strings.Split(dotted, ".")
	cur := root
	for _, seg := range segs[:len(segs)-1] {
		if cur.Kind != specyaml.KindMapping {
			return nil, "", fmt.Errorf("%q is not a mapping", seg)
		}
		next := cur.Get(seg)
		if next == nil {
			next = &specyaml.Node{Kind: specyaml.KindMapping}
			setChild(cur, seg, next)
		}
		cur = next
	}
	if cur.Kind != specyaml.KindMapping {
		return nil, "", fmt.Errorf("path does not resolve to a mapping")
	}
	return cur, segs[len(segs)-1], nil
}

// setChild binds key to value in a mapping node, replacing any existing
// entry for that key.
func setChild(mapping *specyaml.Node, key string, value *specyaml.Node) {
	for i, e := range mapping.Mapping {
		if e.Key == key {
			mapping.Mapping[i].Value = value
			return
		}
	}
	mapping.Mapping = append(mapping.Mapping, specyaml.MapEntry{Key: key, Value: value})
}

// goValueToNode lifts a plain Go value (as produced by mergo's merge of
// ToGo() maps) back into the Node representation so subsequent expansion
// stages keep operating uniformly on Node trees.
func goValueToNode(v any) *specyaml.Node {
	switch t := v.(type) {
	case *specyaml.Node:
		// ToGo leaves !ev/!_ tags unevaluated as *Node (spec §4.5: hydration
		// is purely structural); preserve that instead of stringifying it.
		return t
	case map[string]any:
		out := &specyaml.Node{Kind: specyaml.KindMapping}
		for k, vv := range t {
			out.Mapping = append(out.Mapping, specyaml.MapEntry{Key: k, Value: goValueToNode(vv)})
		}
		return out
	case []any:
		out := &specyaml.Node{Kind: specyaml.KindSequence}
		for _, vv := range t {
			out.Sequence = append(out.Sequence, goValueToNode(vv))
		}
		return out
	case nil:
		return &specyaml.Node{Kind: specyaml.KindScalar, Null: true}
	case bool:
		if t {
			return &specyaml.Node{Kind: specyaml.KindScalar, Scalar: "true"}
		}
		return &specyaml.Node{Kind: specyaml.KindScalar, Scalar: "false"}
	case string:
		return &specyaml.Node{Kind: specyaml.KindScalar, Scalar: t}
	default:
		return &specyaml.Node{Kind: specyaml.KindScalar, Scalar: fmt.Sprint(t)}
	}
}
