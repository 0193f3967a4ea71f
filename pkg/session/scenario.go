package session

import (
	"github.com/oblinger/alienbio/pkg/scope"
)

// Scenario wraps a scenario spec's hydrated root scope, exposing the
// fields the session reads out of it: the agent-facing briefing and
// constitution text, the action/measurement catalog, global-parameter
// overrides, and scoring expressions. The termination expression itself
// lives in the global parameter table (action.limits.termination), not
// here, since it shares that table's scenario-overrides-defaults
// precedence.
//
// Top-level scenario shape (ordinary, non-typed scope bindings):
//
//	briefing: "..."
//	constitution: "..."
//	interface:
//	  actions: {name: {cost, duration, wait}, ...}
//	  measurements: {name: {cost, duration}, ...}
//	params: {action: {timing: {...}, cost: {...}, limits: {...}}}
//	scoring: {name: !_ "expression", ...}
//	passing_score: 0.8
type Scenario struct {
	Scope *scope.Scope
}

// NewScenario wraps sc as a Scenario.
func NewScenario(sc *scope.Scope) *Scenario {
	return &Scenario{Scope: sc}
}

func (s *Scenario) stringField(key string) string {
	v, ok := s.Scope.Lookup(key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// Briefing returns the scenario's agent-facing briefing text.
func (s *Scenario) Briefing() string { return s.stringField("briefing") }

// Constitution returns the scenario's normative constitution text.
func (s *Scenario) Constitution() string { return s.stringField("constitution") }

func (s *Scenario) dictField(key string) scope.DictMember {
	v, ok := s.Scope.Lookup(key)
	if !ok {
		return nil
	}
	d, _ := v.(scope.DictMember)
	return d
}

// Catalog returns every action and measurement declared under
// `interface:`, keyed by name.
func (s *Scenario) Catalog() map[string]ActionSpec {
	out := make(map[string]ActionSpec)
	ifc := s.dictField("interface")
	addSection := func(section string, kind ActionKind) {
		raw, ok := ifc[section]
		if !ok {
			return
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return
		}
		for name, body := range m {
			bd, _ := body.(map[string]any)
			spec := ActionSpec{Name: name, Kind: kind}
			if bd != nil {
				spec.Cost = bd["cost"]
				spec.Duration = bd["duration"]
				if w, ok := bd["wait"].(bool); ok {
					spec.Wait = &w
				}
			}
			out[name] = spec
		}
	}
	addSection("actions", KindAction)
	addSection("measurements", KindMeasurement)
	return out
}

// ParamsOverrides returns the scenario's own `params:` mapping (may be
// nil if the scenario declares none), for GlobalParams to flatten.
func (s *Scenario) ParamsOverrides() map[string]any {
	v, ok := s.Scope.Lookup("params")
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	if m != nil {
		return m
	}
	if d, ok := v.(scope.DictMember); ok {
		return map[string]any(d)
	}
	return nil
}

// ScoringExprs returns the scenario's `scoring:` mapping, name to
// evaluable expression value (typically a *specyaml.Node carrying a
// deferred !_ / !ev tag, left unevaluated by ToGo).
func (s *Scenario) ScoringExprs() map[string]any {
	v, ok := s.Scope.Lookup("scoring")
	if !ok {
		return nil
	}
	if d, ok := v.(scope.DictMember); ok {
		return map[string]any(d)
	}
	m, _ := v.(map[string]any)
	return m
}

// PassingScore returns the scenario's configured passing threshold, and
// whether one was declared at all.
func (s *Scenario) PassingScore() (float64, bool) {
	v, ok := s.Scope.Lookup("passing_score")
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
