package template

import (
	"fmt"
	"strings"

	"github.com/oblinger/alienbio/pkg/specyaml"
)

// portDirection is either side of a typed connection point.
type portDirection string

const (
	PortIn  portDirection = "in"
	PortOut portDirection = "out"
)

// portDecl is one entry of a `_ports_:` mapping: `path: type.direction`.
type portDecl struct {
	path      string
	typeName  string
	direction portDirection
}

func parsePorts(n *specyaml.Node) ([]portDecl, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != specyaml.KindMapping {
		return nil, fmt.Errorf("%w: _ports_ must be a mapping", ErrBadPort)
	}
	out := make([]portDecl, 0, len(n.Mapping))
	for _, e := range n.Mapping {
		spec, ok := e.Value.ScalarValue().(string)
		if !ok {
			return nil, fmt.Errorf("%w: port %q: value must be \"type.direction\"", ErrBadPort, e.Key)
		}
		idx := strings.LastIndex(spec, ".")
		if idx < 0 {
			return nil, fmt.Errorf("%w: port %q: %q is not \"type.direction\"", ErrBadPort, e.Key, spec)
		}
		dir := portDirection(spec[idx+1:])
		if dir != PortIn && dir != PortOut {
			return nil, fmt.Errorf("%w: port %q: direction must be in/out, got %q", ErrBadPort, e.Key, dir)
		}
		out = append(out, portDecl{path: e.Key, typeName: spec[:idx], direction: dir})
	}
	return out, nil
}

// bindPorts applies `port_path: producer_path` bindings supplied at an
// instantiation site: for each declared port, if the instantiation
// supplied a binding, the path inside the expanded instance body is set
// to a Reference node pointing at the producer — a plain scope.Build +
// Reference Resolver pass downstream turns that into an ordinary resolved
// field (spec §4.6: "the binding is recorded as a reference field on the
// consuming reaction/molecule").
func bindPorts(body *specyaml.Node, ports []portDecl, bindings map[string]string) error {
	declared := make(map[string]portDecl, len(ports))
	for _, p := range ports {
		declared[p.path] = p
	}
	for path, producer := range bindings {
		if _, ok := declared[path]; !ok {
			return fmt.Errorf("%w: binding for undeclared port %q", ErrBadPort, path)
		}
		parent, key, err := navigateToParent(body, path)
		if err != nil {
			return fmt.Errorf("%w: port %q: %v", ErrBadPort, path, err)
		}
		setChild(parent, key, &specyaml.Node{Kind: specyaml.KindTag, Tag: specyaml.TagRef, TagSource: producer})
	}
	return nil
}
