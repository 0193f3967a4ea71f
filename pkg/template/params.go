package template

import (
	"fmt"

	"github.com/oblinger/alienbio/pkg/eval"
	"github.com/oblinger/alienbio/pkg/specyaml"
)

// resolveParams reads a `_params_:` mapping (literal values or !ev
// defaults) and resolves each declared parameter's effective value per
// spec §4.6's override order: inline instantiation args > parent
// override > default.
func resolveParams(paramsNode *specyaml.Node, inlineArgs, parentOverrides map[string]any, scope scopeLookup, seed uint64, path string) (map[string]any, error) {
	out := make(map[string]any)
	if paramsNode == nil {
		return out, nil
	}
	if paramsNode.Kind != specyaml.KindMapping {
		return nil, fmt.Errorf("%w: _params_ must be a mapping", ErrBadModify)
	}
	for _, e := range paramsNode.Mapping {
		name := e.Key
		if v, ok := inlineArgs[name]; ok {
			out[name] = v
			continue
		}
		if v, ok := parentOverrides[name]; ok {
			out[name] = v
			continue
		}
		v, err := defaultParamValue(e.Value, scope, seed, path+".params."+name)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// defaultParamValue evaluates a declared parameter's default: a plain
// literal, or a deferred !ev distribution expression sampled from the
// seed+path-keyed stream (the same determinism contract pkg/eval
// guarantees for every other deferred expression in the engine).
func defaultParamValue(n *specyaml.Node, scope scopeLookup, seed uint64, path string) (any, error) {
	if n.Kind == specyaml.KindTag && n.Tag == specyaml.TagEval {
		return eval.Eval(n.TagSource, eval.Context{Scope: scope, Seed: seed, Path: path})
	}
	return n.ToGo(), nil
}

// paramScope resolves a template instance's own resolved parameters
// first, falling back to the enclosing lexical scope for any other name —
// so `!ev` expressions inside a template body can reference both its own
// parameters and outer scope bindings in the same expression.
type paramScope struct {
	params map[string]any
	parent scopeLookup
}

func (p paramScope) LookupDotted(dotted string) (any, error) {
	if v, ok := p.params[dotted]; ok {
		return v, nil
	}
	if p.parent != nil {
		return p.parent.LookupDotted(dotted)
	}
	return nil, fmt.Errorf("%w: %s", eval.ErrUnresolvedName, dotted)
}
