package session

import (
	"fmt"
	"strings"

	"github.com/oblinger/alienbio/pkg/eval"
	"github.com/oblinger/alienbio/pkg/timeline"
)

// scoringScope is the eval.NameResolver a scoring or termination
// expression runs against (spec §4.8.4: "a scope that exposes trace,
// population(species), budget_exceeded(), and other registered
// helpers"). Its own bindings are checked first; anything else falls
// through to the scenario's own scope, so an expression can still
// reference ordinary scenario fields and params.
type scoringScope struct {
	helpers map[string]any
	parent  eval.NameResolver
}

func newScoringScope(s *Session) *scoringScope {
	return &scoringScope{
		helpers: map[string]any{
			"trace":           traceValue{tl: s.Timeline},
			"population":      populationHelper{sim: s.Sim},
			"budget_exceeded": budgetExceededHelper{session: s},
		},
		parent: s.Scenario.Scope,
	}
}

func (s *scoringScope) LookupDotted(dotted string) (any, error) {
	head, rest, hasRest := strings.Cut(dotted, ".")
	if v, ok := s.helpers[head]; ok {
		if !hasRest {
			return v, nil
		}
		m, ok := v.(interface{ Member(string) (any, bool) })
		if !ok {
			return nil, fmt.Errorf("%w: %s: %q has no members", eval.ErrUnresolvedName, dotted, head)
		}
		cur := any(v)
		for _, seg := range strings.Split(rest, ".") {
			next, ok := m.Member(seg)
			if !ok {
				return nil, fmt.Errorf("%w: %s: no member %q", eval.ErrUnresolvedName, dotted, seg)
			}
			cur = next
			m, ok = cur.(interface{ Member(string) (any, bool) })
			if !ok {
				break
			}
		}
		return cur, nil
	}
	if s.parent == nil {
		return nil, fmt.Errorf("%w: %s", eval.ErrUnresolvedName, dotted)
	}
	return s.parent.LookupDotted(dotted)
}

// traceValue exposes the timeline to scoring/termination expressions as
// trace.events (a list of plain maps) and trace.total_cost.
type traceValue struct {
	tl *timeline.Timeline
}

func (t traceValue) Member(name string) (any, bool) {
	switch name {
	case "events":
		events := t.tl.All()
		out := make([]any, len(events))
		for i, e := range events {
			out[i] = map[string]any{
				"time":    e.Time,
				"kind":    string(e.Kind),
				"payload": e.Payload,
			}
		}
		return out, true
	case "total_cost":
		return t.tl.TotalCost(), true
	default:
		return nil, false
	}
}

// populationHelper implements eval.Callable for population(species),
// delegating to the simulator when it supports population queries.
type populationHelper struct {
	sim Simulator
}

func (p populationHelper) Call(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("population() takes exactly one argument")
	}
	species, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("population() argument must be a species name")
	}
	pq, ok := p.sim.(PopulationQuerier)
	if !ok {
		return nil, fmt.Errorf("simulator does not support population queries")
	}
	return pq.Population(species)
}

// budgetExceededHelper implements eval.Callable for budget_exceeded().
type budgetExceededHelper struct {
	session *Session
}

func (b budgetExceededHelper) Call(args []any) (any, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("budget_exceeded() takes no arguments")
	}
	limit, ok := b.session.Params.GetOptionalFloat("action.limits.budget")
	if !ok {
		return false, nil
	}
	return b.session.Spent() >= limit, nil
}
