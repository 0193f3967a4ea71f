package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_ClimbsParentChain(t *testing.T) {
	root := New("root")
	root.Bind("k_cat", 1.5)
	child := NewChild("child", root)

	v, ok := child.Lookup("k_cat")
	require.True(t, ok)
	assert.Equal(t, 1.5, v)
}

func TestLookup_LocalShadowsParent(t *testing.T) {
	root := New("root")
	root.Bind("x", "outer")
	child := NewChild("child", root)
	child.Bind("x", "inner")

	v, _ := child.Lookup("x")
	assert.Equal(t, "inner", v)
}

func TestLookup_AbsentShadowStopsClimb(t *testing.T) {
	root := New("root")
	root.Bind("x", "outer")
	child := NewChild("child", root)
	child.Bind("x", Absent)

	_, ok := child.Lookup("x")
	assert.False(t, ok)
}

type fakeEntity struct{ members map[string]any }

func (f fakeEntity) Member(name string) (any, bool) {
	v, ok := f.members[name]
	return v, ok
}

func TestLookupDotted_DereferencesMembers(t *testing.T) {
	root := New("root")
	root.Bind("cell", fakeEntity{members: map[string]any{"volume": 42}})

	v, err := root.LookupDotted("cell.volume")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestLookupDotted_MissingMemberFails(t *testing.T) {
	root := New("root")
	root.Bind("cell", fakeEntity{members: map[string]any{}})

	_, err := root.LookupDotted("cell.nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

type stubFallback struct{ val any }

func (s stubFallback) Resolve(dotted string) (any, error) { return s.val, nil }

func TestLookupDotted_FallsBackWhenNotFoundLocally(t *testing.T) {
	root := New("root")
	root.SetFallback(stubFallback{val: "from-fetch"})
	child := NewChild("child", root)

	v, err := child.LookupDotted("somewhere.else")
	require.NoError(t, err)
	assert.Equal(t, "from-fetch", v)
}

func TestLookupDotted_NoFallbackFails(t *testing.T) {
	root := New("root")
	_, err := root.LookupDotted("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDetectExtendsCycle(t *testing.T) {
	a := New("a")
	b := New("b")
	links := map[*Scope]*Scope{a: b, b: a}
	err := DetectExtendsCycle(a, func(s *Scope) *Scope { return links[s] })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCyclicExtends))
}

func TestDetectExtendsCycle_NoCycle(t *testing.T) {
	a := New("a")
	b := New("b")
	links := map[*Scope]*Scope{a: b}
	err := DetectExtendsCycle(a, func(s *Scope) *Scope { return links[s] })
	assert.NoError(t, err)
}
