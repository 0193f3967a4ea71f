package specyaml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PreservesKeyOrder(t *testing.T) {
	src := []byte(`
z_first: 1
a_second: 2
m_third: 3
`)
	n, err := Parse("order.yaml", src)
	require.NoError(t, err)
	require.Equal(t, KindMapping, n.Kind)

	var keys []string
	for _, e := range n.Mapping {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"z_first", "a_second", "m_third"}, keys)
}

func TestParse_RecognizesFourTags(t *testing.T) {
	src := []byte(`
inc: !include ./other.yaml
r: !ref molecules.glucose
e: !ev "normal(0, 1)"
q: !_ "k_cat * [S]"
`)
	n, err := Parse("tags.yaml", src)
	require.NoError(t, err)

	cases := []struct {
		key  string
		tag  TagKind
		want string
	}{
		{"inc", TagInclude, "./other.yaml"},
		{"r", TagRef, "molecules.glucose"},
		{"e", TagEval, "normal(0, 1)"},
		{"q", TagQuoted, "k_cat * [S]"},
	}
	for _, c := range cases {
		v := n.Get(c.key)
		require.NotNil(t, v, c.key)
		assert.Equal(t, KindTag, v.Kind, c.key)
		assert.Equal(t, c.tag, v.Tag, c.key)
		assert.Equal(t, c.want, v.TagSource, c.key)
	}
}

func TestParse_UnknownTagFails(t *testing.T) {
	src := []byte(`x: !bogus foo`)
	_, err := Parse("bad.yaml", src)
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
}

func TestParse_Sequence(t *testing.T) {
	src := []byte(`
items:
  - a
  - b
  - !ref x.y
`)
	n, err := Parse("seq.yaml", src)
	require.NoError(t, err)
	items := n.Get("items")
	require.Equal(t, KindSequence, items.Kind)
	require.Len(t, items.Sequence, 3)
	assert.Equal(t, "a", items.Sequence[0].Scalar)
	assert.Equal(t, TagRef, items.Sequence[2].Tag)
}

func TestParse_NullDistinguishedFromTildeString(t *testing.T) {
	src := []byte(`
a: ~
b: "~"
`)
	n, err := Parse("null.yaml", src)
	require.NoError(t, err)
	assert.True(t, n.Get("a").Null)
	assert.False(t, n.Get("b").Null)
	assert.Equal(t, "~", n.Get("b").Scalar)
}

func TestNode_Clone_DeepCopies(t *testing.T) {
	src := []byte(`a: {b: [1, 2, 3]}`)
	n, err := Parse("clone.yaml", src)
	require.NoError(t, err)

	clone := n.Clone()
	clone.Get("a").Get("b").Sequence[0].Scalar = "mutated"

	orig := n.Get("a").Get("b").Sequence[0].Scalar
	assert.Equal(t, "1", orig, "mutating the clone must not affect the original")
}
