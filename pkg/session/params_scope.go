package session

import (
	"fmt"
	"strings"

	"github.com/oblinger/alienbio/pkg/eval"
	"github.com/oblinger/alienbio/pkg/specyaml"
)

// paramLookup resolves a submitted action's params first, falling
// through to the scenario scope for anything else a cost/duration
// formula references (e.g. a scenario constant alongside the action's
// own params).
type paramLookup struct {
	params map[string]any
	parent eval.NameResolver
}

func (p paramLookup) LookupDotted(dotted string) (any, error) {
	head, _, hasRest := strings.Cut(dotted, ".")
	if !hasRest {
		if v, ok := p.params[head]; ok {
			return v, nil
		}
	}
	if p.parent != nil {
		if v, err := p.parent.LookupDotted(dotted); err == nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", eval.ErrUnresolvedName, dotted)
}

// resolveNumeric reduces val — a constant float64, or a *specyaml.Node
// carrying a deferred !ev/!_ expression — to a concrete float64,
// evaluating any expression against params (with the scenario scope as
// fallback) under the session's seed.
func resolveNumeric(val any, params map[string]any, parent eval.NameResolver, seed uint64, path string) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case *specyaml.Node:
		if v == nil {
			return 0, fmt.Errorf("%w: nil expression node", eval.ErrType)
		}
		result, err := eval.Eval(v.TagSource, eval.Context{
			Scope: paramLookup{params: params, parent: parent},
			Seed:  seed,
			Path:  path,
		})
		if err != nil {
			return 0, err
		}
		return asFloat(result)
	case nil:
		return 0, fmt.Errorf("%w: no value to resolve", eval.ErrType)
	default:
		return 0, fmt.Errorf("%w: cannot resolve %T as a number", eval.ErrType, val)
	}
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: expected a number, got %T", eval.ErrType, v)
	}
}
