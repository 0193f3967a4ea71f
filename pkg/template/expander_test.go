package template

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblinger/alienbio/pkg/specyaml"
)

func mustParse(t *testing.T, src string) *specyaml.Node {
	t.Helper()
	n, err := specyaml.Parse("doc.yaml", []byte(src))
	require.NoError(t, err)
	return n
}

// fakeLoader resolves a _template_: path against an in-memory set of
// already-parsed bodies, standing in for the fetch layer.
type fakeLoader map[string]*specyaml.Node

func (f fakeLoader) load(path string) (*specyaml.Node, error) {
	n, ok := f[path]
	if !ok {
		return nil, ErrUnknownTemplate
	}
	return n, nil
}

func newExpander(templates fakeLoader) *Expander {
	return &Expander{
		Load:   templates.load,
		Guards: NewGuardRegistry(),
	}
}

func TestExpand_ParamOverrideOrder(t *testing.T) {
	tmpl := mustParse(t, `
_params_:
  conc: 5
  label: default-label
name: "{label}"
`)
	// The resolved parameter is bound as a plain field of the instance, so
	// _instantiate_'s inline arg (9) must win over the template's own
	// declared default (5).
	body := mustParse(t, `
_instantiate_:
  "_as_ glu":
    _template_: molecule
    conc: 9
`)
	x := newExpander(fakeLoader{"molecule": tmpl})

	out, err := x.Expand("root", body, 1, nil, nil, nil)
	require.NoError(t, err)

	glu := out.Get("glu")
	require.NotNil(t, glu)
	assert.Equal(t, float64(9), glu.Get("conc").ScalarValue())
}

func TestExpand_ParamDefaultWhenNoOverride(t *testing.T) {
	tmpl := mustParse(t, `
_params_:
  conc: 5
name: glucose
`)
	body := mustParse(t, `
_instantiate_:
  "_as_ glu":
    _template_: molecule
`)
	x := newExpander(fakeLoader{"molecule": tmpl})

	out, err := x.Expand("root", body, 1, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(5), out.Get("glu").Get("conc").ScalarValue())
}

func TestExpand_IndexLoopNumericRange(t *testing.T) {
	tmpl := mustParse(t, `
name: "cell{i}"
`)
	body := mustParse(t, `
_instantiate_:
  "_as_ cell{i in 0..2}":
    _template_: cell
`)
	x := newExpander(fakeLoader{"cell": tmpl})

	out, err := x.Expand("root", body, 1, nil, nil, nil)
	require.NoError(t, err)

	for i := 0; i <= 2; i++ {
		inst := out.Get(indexName("cell", i, true))
		require.NotNil(t, inst, "missing instance %d", i)
		assert.Equal(t, "cell"+strconv.Itoa(i), inst.Get("name").ScalarValue())
	}
	assert.Nil(t, out.Get("cell3"))
}

func TestExpand_IndexLoopHalfOpenRange(t *testing.T) {
	tmpl := mustParse(t, `leaf: "{i}"`)
	body := mustParse(t, `
_instantiate_:
  "_as_ n{i in 0..<3}":
    _template_: leaf
`)
	x := newExpander(fakeLoader{"leaf": tmpl})

	out, err := x.Expand("root", body, 1, nil, nil, nil)
	require.NoError(t, err)

	assert.NotNil(t, out.Get("n0"))
	assert.NotNil(t, out.Get("n1"))
	assert.NotNil(t, out.Get("n2"))
	assert.Nil(t, out.Get("n3"))
}

func TestExpand_IndexLoopOverListScope(t *testing.T) {
	tmpl := mustParse(t, `leaf: "{i}"`)
	body := mustParse(t, `
species:
  - a
  - b
  - c
_instantiate_:
  "_as_ n{i in species}":
    _template_: leaf
`)
	x := newExpander(fakeLoader{"leaf": tmpl})
	scope := paramScope{params: map[string]any{"species": []any{"a", "b", "c"}}}

	out, err := x.Expand("root", body, 1, nil, scope, nil)
	require.NoError(t, err)

	assert.NotNil(t, out.Get("n0"))
	assert.NotNil(t, out.Get("n1"))
	assert.NotNil(t, out.Get("n2"))
	assert.Nil(t, out.Get("n3"))
}

func TestExpand_ModifyAppend(t *testing.T) {
	body := mustParse(t, `
steps:
  - first
_modify_:
  steps:
    _append_: second
`)
	x := newExpander(nil)

	out, err := x.Expand("root", body, 1, nil, nil, nil)
	require.NoError(t, err)

	steps := out.Get("steps")
	require.Equal(t, 2, len(steps.Sequence))
	assert.Equal(t, "first", steps.Sequence[0].ScalarValue())
	assert.Equal(t, "second", steps.Sequence[1].ScalarValue())
}

func TestExpand_ModifySet(t *testing.T) {
	body := mustParse(t, `
label: old
_modify_:
  label:
    _set_: new
`)
	x := newExpander(nil)

	out, err := x.Expand("root", body, 1, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "new", out.Get("label").ScalarValue())
}

func TestExpand_ModifyMerge(t *testing.T) {
	body := mustParse(t, `
config:
  rate: 1
  mode: steady
_modify_:
  config:
    _merge_:
      rate: 2
      extra: true
`)
	x := newExpander(nil)

	out, err := x.Expand("root", body, 1, nil, nil, nil)
	require.NoError(t, err)

	cfg := out.Get("config")
	require.NotNil(t, cfg)
	assert.Equal(t, float64(2), cfg.Get("rate").ScalarValue())
	assert.Equal(t, "steady", cfg.Get("mode").ScalarValue())
	assert.Equal(t, true, cfg.Get("extra").ScalarValue())
}

func TestExpand_PortBinding(t *testing.T) {
	tmpl := mustParse(t, `
_ports_:
  intake: flow.in
`)
	body := mustParse(t, `
_instantiate_:
  "_as_ pump":
    _template_: reactor
    intake: upstream.outlet
`)
	x := newExpander(fakeLoader{"reactor": tmpl})

	out, err := x.Expand("root", body, 1, nil, nil, nil)
	require.NoError(t, err)

	pump := out.Get("pump")
	require.NotNil(t, pump)
	intake := pump.Get("intake")
	require.NotNil(t, intake)
	assert.Equal(t, specyaml.KindTag, intake.Kind)
	assert.Equal(t, specyaml.TagRef, intake.Tag)
	assert.Equal(t, "upstream.outlet", intake.TagSource)
	// _ports_ itself must not leak into the expanded instance.
	assert.Nil(t, pump.Get("_ports_"))
}

func TestExpand_UnboundPortLeftUntouched(t *testing.T) {
	tmpl := mustParse(t, `
_ports_:
  intake: flow.in
intake: default-source
`)
	body := mustParse(t, `
_instantiate_:
  "_as_ pump":
    _template_: reactor
`)
	x := newExpander(fakeLoader{"reactor": tmpl})

	out, err := x.Expand("root", body, 1, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "default-source", out.Get("pump").Get("intake").ScalarValue())
}

type alwaysRejectGuard struct{}

func (alwaysRejectGuard) Name() string { return "always_reject" }
func (alwaysRejectGuard) Check(content *specyaml.Node, ctx Context) error {
	return assertErr
}

var assertErr = &GuardViolation{GuardName: "always_reject", Err: errTest}

type testError string

func (e testError) Error() string { return string(e) }

var errTest = testError("violation")

func TestExpand_GuardRejectAbortsBuild(t *testing.T) {
	tmpl := mustParse(t, `name: glucose`)
	body := mustParse(t, `
_instantiate_:
  "_as_ glu":
    _template_: molecule
    _guards_:
      always_reject: reject
`)
	reg := NewGuardRegistry()
	reg.Register(alwaysRejectGuard{})
	x := &Expander{Load: fakeLoader{"molecule": tmpl}.load, Guards: reg}

	_, err := x.Expand("root", body, 1, nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errTest)
}

type countingRetryGuard struct {
	attempts *int
	passAt   int
}

func (g countingRetryGuard) Name() string { return "flaky" }
func (g countingRetryGuard) Check(content *specyaml.Node, ctx Context) error {
	*g.attempts++
	if *g.attempts >= g.passAt {
		return nil
	}
	return errTest
}

func TestExpand_GuardRetrySucceedsWithinMaxAttempts(t *testing.T) {
	tmpl := mustParse(t, `name: glucose`)
	body := mustParse(t, `
_instantiate_:
  "_as_ glu":
    _template_: molecule
    _guards_:
      flaky:
        mode: retry
        max_attempts: 5
`)
	attempts := 0
	reg := NewGuardRegistry()
	reg.Register(countingRetryGuard{attempts: &attempts, passAt: 3})
	x := &Expander{Load: fakeLoader{"molecule": tmpl}.load, Guards: reg}

	out, err := x.Expand("root", body, 1, nil, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, out.Get("glu"))
	assert.Equal(t, 3, attempts)
}

func TestExpand_GuardRetryExhaustsMaxAttempts(t *testing.T) {
	tmpl := mustParse(t, `name: glucose`)
	body := mustParse(t, `
_instantiate_:
  "_as_ glu":
    _template_: molecule
    _guards_:
      flaky:
        mode: retry
        max_attempts: 2
`)
	attempts := 0
	reg := NewGuardRegistry()
	reg.Register(countingRetryGuard{attempts: &attempts, passAt: 99})
	x := &Expander{Load: fakeLoader{"molecule": tmpl}.load, Guards: reg}

	_, err := x.Expand("root", body, 1, nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxAttempts)
	assert.Equal(t, 2, attempts)
}

func TestResolveParams_OverrideOrder(t *testing.T) {
	params := mustParse(t, `
a: 1
b: 2
c: 3
`)
	out, err := resolveParams(params,
		map[string]any{"a": 10},
		map[string]any{"a": 20, "b": 20},
		nil, 1, "root")
	require.NoError(t, err)
	assert.Equal(t, 10, out["a"])  // inline wins over parent override and default
	assert.Equal(t, 20, out["b"]) // parent override wins over default
	assert.Equal(t, float64(3), out["c"])
}
