package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oblinger/alienbio/pkg/specyaml"
)

// loopKeyRe recognizes "NAME{i in RANGE}" mapping keys used by _as_ and
// reaction-spec index loops (spec §4.6): a bare name, a loop variable, and
// a range expression that is either "a..b", "a..<b", or a bare list name.
var loopKeyRe = regexp.MustCompile(`^(.*?)\{(\w+)\s+in\s+(.+)\}$`)

// loopRangeRe recognizes the two numeric-range spellings: inclusive
// "a..b" and half-open "a..<b".
var loopRangeRe = regexp.MustCompile(`^(-?\d+)\.\.(<)?(-?\d+)$`)

// loopKey is a parsed "NAME{i in RANGE}" key.
type loopKey struct {
	base  string
	ivar  string
	inner string // raw range/list source
}

// splitLoopKey parses a key; ok is false for an ordinary (non-looping) key.
func splitLoopKey(key string) (loopKey, bool) {
	m := loopKeyRe.FindStringSubmatch(key)
	if m == nil {
		return loopKey{}, false
	}
	return loopKey{base: m[1], ivar: m[2], inner: m[3]}, true
}

// loopIndices resolves a loop's range/list source against a scope so
// `{i in range}`-style bindings and `{i in my_list}` named-list references
// both work; numeric ranges never touch the scope.
func loopIndices(inner string, scope scopeLookup) ([]int, error) {
	inner = strings.TrimSpace(inner)
	if m := loopRangeRe.FindStringSubmatch(inner); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[3])
		halfOpen := m[2] == "<"
		var out []int
		if halfOpen {
			for i := lo; i < hi; i++ {
				out = append(out, i)
			}
		} else {
			for i := lo; i <= hi; i++ {
				out = append(out, i)
			}
		}
		return out, nil
	}
	if scope == nil {
		return nil, fmt.Errorf("%w: %q is not a numeric range and no scope was supplied to resolve it as a list", ErrBadLoop, inner)
	}
	v, err := scope.LookupDotted(inner)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadLoop, inner, err)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q does not name a list", ErrBadLoop, inner)
	}
	out := make([]int, len(list))
	for i := range list {
		out[i] = i
	}
	return out, nil
}

// scopeLookup is the minimal interface loop range resolution needs;
// satisfied by eval.NameResolver / scope.Scope without importing them here.
type scopeLookup interface {
	LookupDotted(dotted string) (any, error)
}

// indexName builds the per-instance namespace prefix for an _as_ loop:
// instance indices concatenate onto the base name without a separator
// (spec §4.6: "indices concatenate without a dot separator; dots are
// reserved for hierarchy").
func indexName(base string, i int, looped bool) string {
	if !looped {
		return base
	}
	return base + strconv.Itoa(i)
}

// substituteIndex replaces "{i}" and "{i+1}" placeholders with the
// concrete loop index, text-level, before any reference resolution runs
// over the generated body (spec §4.6: "substitutions happen before
// reference resolution of the generated body"). Placeholders are plain
// text substitutions, not expressions — `{i}`/`{i+1}` are the only two
// forms the spec names.
func substituteIndex(s string, ivar string, i int) string {
	s = strings.ReplaceAll(s, "{"+ivar+"}", strconv.Itoa(i))
	s = strings.ReplaceAll(s, "{"+ivar+"+1}", strconv.Itoa(i+1))
	return s
}

// substituteIndexInTree walks n, rewriting every scalar and every tag's
// raw source with substituteIndex. Mapping keys are rewritten too, since
// loop bodies commonly reference `{i}` in key position (e.g. reaction
// step names).
func substituteIndexInTree(n *specyaml.Node, ivar string, i int) *specyaml.Node {
	if n == nil {
		return nil
	}
	out := &specyaml.Node{Kind: n.Kind, Pos: n.Pos, Null: n.Null}
	switch n.Kind {
	case specyaml.KindScalar:
		out.Scalar = substituteIndex(n.Scalar, ivar, i)
	case specyaml.KindTag:
		out.Tag = n.Tag
		out.TagSource = substituteIndex(n.TagSource, ivar, i)
	case specyaml.KindSequence:
		out.Sequence = make([]*specyaml.Node, len(n.Sequence))
		for j, item := range n.Sequence {
			out.Sequence[j] = substituteIndexInTree(item, ivar, i)
		}
	case specyaml.KindMapping:
		out.Mapping = make([]specyaml.MapEntry, len(n.Mapping))
		for j, e := range n.Mapping {
			out.Mapping[j] = specyaml.MapEntry{
				Key:   substituteIndex(e.Key, ivar, i),
				Pos:   e.Pos,
				Value: substituteIndexInTree(e.Value, ivar, i),
			}
		}
	}
	return out
}
