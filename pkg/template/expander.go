// Package template implements the Template Expander (spec §4.6): parametric
// instantiation with index loops, typed port wiring, post-hoc structural
// edits, and guards with reject/retry/prune failure modes, all under a
// deterministic per-path RNG stream shared with pkg/eval.
package template

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oblinger/alienbio/pkg/specyaml"
)

// tracer emits one span per top-level Expand call, namespaced by the
// entity being expanded — the same per-call span shape
// goadesign-goa-ai/runtime/toolregistry/executor uses around its own
// single-purpose operations, with no SDK configured this is otel's
// documented no-op default.
var tracer = otel.Tracer("github.com/oblinger/alienbio/pkg/template")

// TemplateLoader fetches the body of a template referenced by a
// `_template_:` path. Backed by the fetch layer in production; kept as an
// injected function type so this package carries no import-order
// dependency on pkg/fetch — the same decoupling pkg/resolver.IncludeLoader
// uses for `!include`.
type TemplateLoader func(path string) (*specyaml.Node, error)

// ResolveFunc finishes reference resolution on generated content. Template
// expansion performs raw text substitution for index loops before any
// `!ref`/`!include` in the substituted body is resolved (spec §4.6:
// "substitutions happen before reference resolution of the generated
// body"); ResolveFunc is how the Expander hands freshly generated content
// back to the Reference Resolver for that pass.
type ResolveFunc func(file string, root *specyaml.Node) (*specyaml.Node, error)

// Expander drives template expansion.
type Expander struct {
	Load    TemplateLoader
	Resolve ResolveFunc
	Guards  *GuardRegistry
	// Global is consulted as the base guard-binding list every expansion
	// inherits from, representing "guards inherited from ... global
	// configuration" (spec §4.6).
	Global []GuardBinding
}

// Expand expands body — the content of an entity being built — under
// seed, given any parameter overrides supplied at the instantiation site
// and any guard bindings inherited from that site. namespace is a stable
// path identifier (e.g. the entity's own dotted name) used both for RNG
// seeding and for diagnostics.
func (x *Expander) Expand(namespace string, body *specyaml.Node, seed uint64, overrides map[string]any, parentScope scopeLookup, siteGuards []GuardBinding) (*specyaml.Node, error) {
	_, span := tracer.Start(context.Background(), "template.expand", trace.WithAttributes(
		attribute.String("template.namespace", namespace),
	))
	defer span.End()

	bindings := append(append([]GuardBinding{}, x.Global...), siteGuards...)
	result, err := x.expandWithRetry(namespace, body, seed, overrides, parentScope, bindings, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (x *Expander) expandWithRetry(namespace string, body *specyaml.Node, seed uint64, overrides map[string]any, parentScope scopeLookup, bindings []GuardBinding, attempt int) (*specyaml.Node, error) {
	expanded, err := x.expandOnce(namespace, body, seed, overrides, parentScope, attempt)
	if err != nil {
		return nil, err
	}

	ctx := Context{Scope: parentScope, Namespace: namespace, Seed: seed, Attempt: attempt}
	result, err := runGuards(expanded, bindings, ctx)
	if err == nil {
		return result, nil
	}
	if !isRetry(err, bindings) {
		return nil, &ExpandError{Pos: body.Pos, Namespace: namespace, Err: err}
	}

	binding, _ := guardFor(bindings, guardNameOf(err))
	if attempt+1 >= binding.maxAttempts() {
		return nil, &ExpandError{Pos: body.Pos, Namespace: namespace, Err: fmt.Errorf("%w: %s", ErrMaxAttempts, binding.Guard.Name())}
	}
	// "No partial state is carried forward between attempts": re-derive the
	// RNG substream from a fresh sub-seed (attempt folded into the path via
	// eval.NewStream's (seed, path) keying) and re-expand from the
	// untouched original body.
	return x.expandWithRetry(namespace, body, seed, overrides, parentScope, bindings, attempt+1)
}

func guardNameOf(err error) string {
	if v, ok := err.(*GuardViolation); ok {
		return v.GuardName
	}
	return ""
}

// expandOnce performs one full (non-retried) expansion pass: params,
// instantiate, ports, modify — in that order, each reading the output of
// the previous stage.
func (x *Expander) expandOnce(namespace string, body *specyaml.Node, seed uint64, overrides map[string]any, parentScope scopeLookup, attempt int) (*specyaml.Node, error) {
	path := fmt.Sprintf("%s#%d", namespace, attempt)
	out := body.Clone()

	paramsNode := out.Get("_params_")
	resolved, err := resolveParams(paramsNode, overrides, nil, parentScope, seed, path)
	if err != nil {
		return nil, &ExpandError{Pos: body.Pos, Namespace: namespace, Err: err}
	}
	scope := paramScope{params: resolved, parent: parentScope}

	// Bind each resolved parameter as a plain field of the instance's own
	// output, in declaration order, so sibling fields in the same body can
	// reference it by name once the expanded tree reaches scope.Build —
	// _params_ only carries the default/override logic, the resolved value
	// itself is an ordinary member like any other.
	if paramsNode != nil {
		for _, e := range paramsNode.Mapping {
			if v, ok := resolved[e.Key]; ok {
				setChild(out, e.Key, goValueToNode(v))
			}
		}
	}

	if instNode := out.Get("_instantiate_"); instNode != nil {
		if err := x.processInstantiate(out, instNode, namespace, seed, scope, attempt); err != nil {
			return nil, err
		}
		removeKey(out, "_instantiate_")
	}

	if portsNode := out.Get("_ports_"); portsNode != nil {
		removeKey(out, "_ports_")
		_ = portsNode // port declarations are consumed per-instance inside processInstantiate
	}

	if modNode := out.Get("_modify_"); modNode != nil {
		ops, err := parseModify(modNode)
		if err != nil {
			return nil, &ExpandError{Pos: modNode.Pos, Namespace: namespace, Err: err}
		}
		if err := applyModify(out, ops); err != nil {
			return nil, &ExpandError{Pos: modNode.Pos, Namespace: namespace, Err: err}
		}
		removeKey(out, "_modify_")
	}

	removeKey(out, "_params_")

	if x.Resolve != nil {
		resolvedTree, err := x.Resolve(namespace, out)
		if err != nil {
			return nil, &ExpandError{Pos: body.Pos, Namespace: namespace, Err: err}
		}
		out = resolvedTree
	}

	return out, nil
}

// processInstantiate expands each `_as_ NAME` / `_as_ NAME{i in RANGE}`
// entry of an `_instantiate_:` mapping, binding the resulting content into
// parent under NAME (or NAME1, NAME2, … for a loop).
func (x *Expander) processInstantiate(parent *specyaml.Node, instNode *specyaml.Node, namespace string, seed uint64, scope scopeLookup, attempt int) error {
	if instNode.Kind != specyaml.KindMapping {
		return &ExpandError{Pos: instNode.Pos, Namespace: namespace, Err: fmt.Errorf("_instantiate_ must be a mapping")}
	}
	for _, e := range instNode.Mapping {
		asName, ok := parseAsKey(e.Key)
		if !ok {
			return &ExpandError{Pos: e.Pos, Namespace: namespace, Err: fmt.Errorf("%w: %q is not an _as_ key", ErrBadLoop, e.Key)}
		}
		site := e.Value
		if site.Kind != specyaml.KindMapping {
			return &ExpandError{Pos: e.Pos, Namespace: namespace, Err: fmt.Errorf("instantiation site for %q must be a mapping", e.Key)}
		}
		templateNode := site.Get("_template_")
		if templateNode == nil {
			return &ExpandError{Pos: e.Pos, Namespace: namespace, Err: fmt.Errorf("instantiation site for %q is missing _template_", e.Key)}
		}
		templatePath, _ := templateNode.ScalarValue().(string)
		if templatePath == "" {
			return &ExpandError{Pos: e.Pos, Namespace: namespace, Err: fmt.Errorf("_template_ for %q must be a string path", e.Key)}
		}

		siteGuards, err := parseGuards(site.Get("_guards_"), x.Guards)
		if err != nil {
			return &ExpandError{Pos: e.Pos, Namespace: namespace, Err: err}
		}

		// The template's own body declares its _ports_ (spec §4.6); any
		// instantiation-site key matching one of those declared port paths
		// is a port binding (port_path: producer_path), not a parameter
		// override — everything else is an inline instantiation arg.
		probeBody, err := x.Load(templatePath)
		if err != nil {
			return &ExpandError{Pos: e.Pos, Namespace: namespace, Err: fmt.Errorf("%w: %s: %v", ErrUnknownTemplate, templatePath, err)}
		}
		portDecls, err := parsePorts(probeBody.Get("_ports_"))
		if err != nil {
			return &ExpandError{Pos: e.Pos, Namespace: namespace, Err: err}
		}
		overrides, portBindings := partitionSite(site, portDecls, "_template_", "_guards_")

		loop, looped := splitLoopKey(asName)
		indices := []int{0}
		ivar := ""
		base := asName
		if looped {
			base = loop.base
			ivar = loop.ivar
			indices, err = loopIndices(loop.inner, scope)
			if err != nil {
				return &ExpandError{Pos: e.Pos, Namespace: namespace, Err: err}
			}
		}

		for _, i := range indices {
			instName := indexName(base, i, looped)
			instOverrides := overrides
			if looped {
				instOverrides = substituteIndexInOverrides(overrides, ivar, i)
			}

			tmplBody := probeBody.Clone()
			if looped {
				tmplBody = substituteIndexInTree(tmplBody, ivar, i)
			}

			childNamespace := namespace + "." + instName
			instBody, err := x.Expand(childNamespace, tmplBody, seed, instOverrides, scope, siteGuards)
			if err != nil {
				return err
			}

			if len(portDecls) > 0 {
				bindings := portBindings
				if looped {
					bindings = substituteIndexInStringMap(portBindings, ivar, i)
				}
				if err := bindPorts(instBody, portDecls, bindings); err != nil {
					return &ExpandError{Pos: e.Pos, Namespace: childNamespace, Err: err}
				}
			}

			setChild(parent, instName, instBody)
		}
	}
	return nil
}
