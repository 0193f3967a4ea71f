package template

import (
	"fmt"
	"regexp"

	"github.com/oblinger/alienbio/pkg/specyaml"
)

var asKeyRe = regexp.MustCompile(`^_as_\s+(.+)$`)

// parseAsKey extracts the NAME or NAME{i in RANGE} portion of an
// `_instantiate_:` entry's key.
func parseAsKey(key string) (string, bool) {
	m := asKeyRe.FindStringSubmatch(key)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// removeKey deletes an entry from a mapping node in place.
func removeKey(n *specyaml.Node, key string) {
	if n == nil || n.Kind != specyaml.KindMapping {
		return
	}
	out := n.Mapping[:0]
	for _, e := range n.Mapping {
		if e.Key != key {
			out = append(out, e)
		}
	}
	n.Mapping = out
}

// partitionSite splits an instantiation site's mapping into parameter
// overrides and port bindings: a key matching one of the template's own
// declared port paths is a binding (port_path: producer_path); everything
// else (minus the directive keys named in exclude) is an inline
// instantiation argument (spec §4.6).
func partitionSite(site *specyaml.Node, ports []portDecl, exclude ...string) (overrides map[string]any, bindings map[string]string) {
	isPort := make(map[string]bool, len(ports))
	for _, p := range ports {
		isPort[p.path] = true
	}
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}
	overrides = make(map[string]any)
	bindings = make(map[string]string)
	if site == nil || site.Kind != specyaml.KindMapping {
		return overrides, bindings
	}
	for _, e := range site.Mapping {
		if skip[e.Key] {
			continue
		}
		if isPort[e.Key] {
			if s, ok := e.Value.ScalarValue().(string); ok {
				bindings[e.Key] = s
			}
			continue
		}
		overrides[e.Key] = e.Value.ToGo()
	}
	return overrides, bindings
}

// substituteIndexInOverrides applies the `{i}`/`{i+1}` text substitution
// to every string-valued override, so a loop's per-instance arguments can
// reference the current index (e.g. `name: "glucose{i}"`).
func substituteIndexInOverrides(overrides map[string]any, ivar string, i int) map[string]any {
	out := make(map[string]any, len(overrides))
	for k, v := range overrides {
		if s, ok := v.(string); ok {
			out[k] = substituteIndex(s, ivar, i)
		} else {
			out[k] = v
		}
	}
	return out
}

func substituteIndexInStringMap(m map[string]string, ivar string, i int) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[substituteIndex(k, ivar, i)] = substituteIndex(v, ivar, i)
	}
	return out
}

// parseGuards reads a `_guards_:` mapping — `guard_name: mode` or
// `guard_name: {mode: ..., max_attempts: N}` — into GuardBindings,
// resolving each guard_name against reg.
func parseGuards(n *specyaml.Node, reg *GuardRegistry) ([]GuardBinding, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != specyaml.KindMapping {
		return nil, fmt.Errorf("_guards_ must be a mapping")
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: _guards_ present but no guard registry configured", ErrUnknownGuard)
	}
	out := make([]GuardBinding, 0, len(n.Mapping))
	for _, e := range n.Mapping {
		g, ok := reg.Lookup(e.Key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownGuard, e.Key)
		}
		b := GuardBinding{Guard: g, Mode: FailReject}
		switch e.Value.Kind {
		case specyaml.KindScalar:
			if s, ok := e.Value.ScalarValue().(string); ok && s != "" {
				b.Mode = FailMode(s)
			}
		case specyaml.KindMapping:
			if mode, ok := e.Value.Get("mode").ScalarValue().(string); ok {
				b.Mode = FailMode(mode)
			}
			if ma := e.Value.Get("max_attempts"); ma != nil {
				if f, ok := ma.ScalarValue().(float64); ok {
					b.MaxAttempts = int(f)
				}
			}
		}
		if b.Mode != FailReject && b.Mode != FailRetry && b.Mode != FailPrune {
			return nil, fmt.Errorf("%w: guard %q has invalid mode %q", ErrUnknownGuard, e.Key, b.Mode)
		}
		out = append(out, b)
	}
	return out, nil
}
