package specyaml

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a YAML file at path into a Node tree, preserving
// mapping-key order (required by later template-expansion ordering) and
// resolving the four recognized tags into their TagValue-equivalent Node
// shape. Unknown tags produce a load-time *LoadError with source location.
func Load(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLoadError(path, Pos{File: path}, fmt.Errorf("%w: %v", ErrUnreadable, err))
	}
	return Parse(path, data)
}

// Parse parses raw YAML bytes into a Node tree. file is used only to
// annotate positions in error messages and in the resulting tree.
func Parse(file string, data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewLoadError(file, Pos{File: file}, fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	if len(doc.Content) == 0 {
		// Empty document — represent as an empty mapping.
		return &Node{Kind: KindMapping, Pos: Pos{File: file}}, nil
	}
	return convert(file, doc.Content[0])
}

// convert walks a yaml.Node into our Node representation, recognizing the
// four spec tags on scalar nodes.
func convert(file string, n *yaml.Node) (*Node, error) {
	pos := Pos{File: file, Line: n.Line, Column: n.Column}

	if kind, ok := tagNames[n.Tag]; ok {
		// A recognized spec tag. All four decorate what is syntactically a
		// scalar (a path, a dotted name, or an expression source string).
		if n.Kind != yaml.ScalarNode {
			return nil, NewLoadError(file, pos, fmt.Errorf("%w: %s tag must decorate a scalar", ErrMalformed, n.Tag))
		}
		return &Node{Kind: KindTag, Pos: pos, Tag: kind, TagSource: n.Value}, nil
	}
	if len(n.Tag) > 0 && n.Tag[0] == '!' && n.Tag != "!!str" && n.Tag != "!!int" &&
		n.Tag != "!!float" && n.Tag != "!!bool" && n.Tag != "!!null" &&
		n.Tag != "!!map" && n.Tag != "!!seq" && n.Tag != "!!timestamp" {
		return nil, NewLoadError(file, pos, fmt.Errorf("%w: %s", ErrUnknownTag, n.Tag))
	}

	switch n.Kind {
	case yaml.ScalarNode:
		return &Node{Kind: KindScalar, Pos: pos, Scalar: n.Value, Null: n.Tag == "!!null"}, nil

	case yaml.MappingNode:
		out := &Node{Kind: KindMapping, Pos: pos}
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			valNode := n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, NewLoadError(file, Pos{File: file, Line: keyNode.Line, Column: keyNode.Column}, ErrInvalidKey)
			}
			val, err := convert(file, valNode)
			if err != nil {
				return nil, err
			}
			out.Mapping = append(out.Mapping, MapEntry{
				Key:   keyNode.Value,
				Value: val,
				Pos:   Pos{File: file, Line: keyNode.Line, Column: keyNode.Column},
			})
		}
		return out, nil

	case yaml.SequenceNode:
		out := &Node{Kind: KindSequence, Pos: pos}
		for _, item := range n.Content {
			val, err := convert(file, item)
			if err != nil {
				return nil, err
			}
			out.Sequence = append(out.Sequence, val)
		}
		return out, nil

	case yaml.AliasNode:
		// YAML anchors/aliases are orthogonal to !ref and are resolved by
		// the yaml.v3 decoder itself before we ever see them — by the time
		// we're walking the tree, n.Alias has already been dereferenced by
		// the library into a normal node kind. Guard defensively anyway.
		if n.Alias != nil {
			return convert(file, n.Alias)
		}
		return nil, NewLoadError(file, pos, fmt.Errorf("%w: unresolved alias", ErrMalformed))

	default:
		return nil, NewLoadError(file, pos, fmt.Errorf("%w: unsupported node kind %d", ErrMalformed, n.Kind))
	}
}
