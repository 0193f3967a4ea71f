// Package session implements the Agent/Simulation Session (spec §4.8): a
// deterministic, step-driven loop mediating between an Agent and a
// Simulator, owning the unified event Timeline, scheduling concurrent
// actions with initiation/duration semantics, accounting cost against a
// budget, and enforcing termination.
package session

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oblinger/alienbio/pkg/eval"
	"github.com/oblinger/alienbio/pkg/specyaml"
	"github.com/oblinger/alienbio/pkg/timeline"
)

// tracer emits spans around Act/Observe so a run is visible to whatever
// OpenTelemetry SDK the embedding CLI wires up; with none configured this
// is otel's own documented no-op default (spec's Non-goals exclude
// "network protocols" as a feature, not ambient observability of the
// in-process call sequence — see goadesign-goa-ai/runtime/toolregistry for
// the same per-call span shape this follows).
var tracer = otel.Tracer("github.com/oblinger/alienbio/pkg/session")

// Status is the terminal disposition of a finished session run.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
)

// Session owns a hydrated Scenario, a Simulator handle, a Timeline, a
// step counter, a seed, and a global-parameter resolver (spec §3). Cost
// is never tracked as independent mutable state — Spent() always derives
// it from the Timeline, which is what makes the cost-ledger invariant
// (spec §8) hold by construction rather than by bookkeeping discipline.
type Session struct {
	ID       string
	Scenario *Scenario
	Sim      Simulator
	Timeline *timeline.Timeline
	Seed     uint64
	Params   *GlobalParams

	stepCount  int
	agentDone  bool
	observed   bool
	seqCounter uint64
	pending    pendingQueue
}

// NewSession constructs a Session over a hydrated scenario and a
// simulator instance the caller has already derived for seed.
func NewSession(scenario *Scenario, sim Simulator, seed uint64) *Session {
	s := &Session{
		ID:       uuid.New().String(),
		Scenario: scenario,
		Sim:      sim,
		Timeline: timeline.New(),
		Seed:     seed,
		Params:   NewGlobalParams(scenario.ParamsOverrides()),
	}
	heap.Init(&s.pending)
	return s
}

// StepCount returns the current step counter.
func (s *Session) StepCount() int { return s.stepCount }

// Spent is the agent-visible cost accumulator: the sum of cost fields
// over every result and completed event observed so far (spec §3).
func (s *Session) Spent() float64 {
	return s.Timeline.TotalCost()
}

// Observe returns a snapshot of session state (spec §4.8.1). Briefing is
// only populated on the first call.
func (s *Session) Observe() Observation {
	_, span := tracer.Start(context.Background(), "session.observe")
	defer span.End()

	obs := Observation{
		Constitution: s.Scenario.Constitution(),
		Catalog:      s.Scenario.Catalog(),
		SimState:     s.Sim.ObservableState(),
		Step:         s.stepCount,
		Spent:        s.Spent(),
	}
	if !s.observed {
		obs.Briefing = s.Scenario.Briefing()
		s.observed = true
	}
	if budget, ok := s.Params.GetOptionalFloat("action.limits.budget"); ok {
		b := budget
		obs.Budget = &b
		r := budget - obs.Spent
		obs.Remaining = &r
	}
	return obs
}

// PollSince is the polling primitive an agent uses to discover
// completions in concurrent mode (spec §4.8.1).
func (s *Session) PollSince(from int) ([]timeline.Event, int) {
	return s.Timeline.Since(from)
}

// Act executes one agent-submitted action (spec §4.8.2), wrapped in a span
// so a run's action-by-action timeline is visible to whatever tracing
// backend the embedding CLI configures (spec's core itself stays
// transport-agnostic; it only ever starts spans against
// context.Background(), never a caller-supplied context, since nothing in
// the synchronous core does cross-process I/O of its own).
func (s *Session) Act(action Action) (*ActionResult, error) {
	_, span := tracer.Start(context.Background(), "session.act", trace.WithAttributes(
		attribute.String("action.name", action.Name),
		attribute.String("action.kind", string(action.Kind)),
	))
	defer span.End()

	result, err := s.act(action)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Bool("action.success", result.Success),
			attribute.Float64("action.cost", result.Cost),
		)
		if result.Error != "" {
			span.SetStatus(codes.Error, result.Error)
		}
	}
	return result, err
}

// act is Act's unwrapped body (spec §4.8.2's per-action sequence).
func (s *Session) act(action Action) (*ActionResult, error) {
	if action.Name == "done" {
		s.agentDone = true
		return &ActionResult{Success: true, Completed: true}, nil
	}
	if done, reason := s.IsDone(); done {
		if reason == "budget" {
			return nil, ErrBudgetExceeded
		}
		return nil, ErrSessionDone
	}

	spec, known := s.Scenario.Catalog()[action.Name]
	now := s.Sim.Time()
	s.Timeline.Append(timeline.Event{
		Time: now,
		Kind: timeline.KindAction,
		Payload: map[string]any{
			"name":   action.Name,
			"params": action.Params,
			"wait":   action.Wait,
		},
	})
	initiationTime := s.Params.GetFloat("action.timing.initiation_time", 0.1)
	s.Sim.Advance(initiationTime)
	// Completions that fell due during the advance go on the timeline before
	// any event stamped with the new time, keeping it time-ordered.
	s.drainCompletions()

	if !known {
		errCost := s.Params.GetFloat("action.cost.error", 0.1)
		errMsg := fmt.Sprintf("%s: %s", ErrUnknownAction, action.Name)
		s.Timeline.Append(timeline.Event{
			Time: s.Sim.Time(),
			Kind: timeline.KindResult,
			Payload: map[string]any{
				"success": false,
				"cost":    errCost,
				"error":   errMsg,
			},
		})
		s.drainCompletions()
		return &ActionResult{Success: false, Cost: errCost, Error: errMsg, Completed: true}, nil
	}

	path := fmt.Sprintf("session.%s.%d", action.Name, s.stepCount)
	cost := s.resolveCost(spec, action, path)
	duration := s.resolveDuration(spec, action, path)
	wait := s.resolveWait(spec, action)

	var result *ActionResult
	if wait {
		s.Sim.Advance(duration)
		s.drainCompletions()
		data, execErr := s.Sim.Execute(action)
		success := execErr == nil
		errMsg := ""
		if execErr != nil {
			errMsg = execErr.Error()
		}
		s.Timeline.Append(timeline.Event{
			Time: s.Sim.Time(),
			Kind: timeline.KindResult,
			Payload: map[string]any{
				"success": success,
				"cost":    cost,
				"data":    data,
				"error":   errMsg,
			},
		})
		if spec.Kind == KindAction {
			s.stepCount += int(s.Params.GetFloat("action.timing.steps_per_action", 0))
		}
		s.stepCount++
		result = &ActionResult{Success: success, Cost: cost, Data: data, Error: errMsg, Completed: true}
	} else {
		s.Sim.Schedule(action, duration)
		completionTime := s.Sim.Time() + duration
		s.seqCounter++
		heap.Push(&s.pending, &pendingAction{
			completionTime: completionTime,
			seq:            s.seqCounter,
			action:         action,
			cost:           cost,
		})
		s.Timeline.Append(timeline.Event{
			Time: s.Sim.Time(),
			Kind: timeline.KindInitiated,
			Payload: map[string]any{
				"name":            action.Name,
				"params":          action.Params,
				"completion_time": completionTime,
			},
		})
		s.stepCount++
		result = &ActionResult{Success: true, Completed: false, CompletionTime: completionTime}
	}

	s.drainCompletions()
	return result, nil
}

// drainCompletions fires every pending scheduled action whose completion
// time has already been reached (spec §4.8.2 step 8), in completion-time
// order with FIFO on ties.
func (s *Session) drainCompletions() {
	now := s.Sim.Time()
	for len(s.pending) > 0 && s.pending[0].completionTime <= now {
		item := heap.Pop(&s.pending).(*pendingAction)
		s.completeAction(item)
	}
}

func (s *Session) completeAction(item *pendingAction) {
	data, execErr := s.Sim.Execute(item.action)
	success := execErr == nil
	errMsg := ""
	if execErr != nil {
		errMsg = execErr.Error()
	}
	s.Timeline.Append(timeline.Event{
		Time: item.completionTime,
		Kind: timeline.KindCompleted,
		Payload: map[string]any{
			"name":    item.action.Name,
			"data":    data,
			"cost":    item.cost,
			"success": success,
			"error":   errMsg,
		},
	})
}

// Finalize drains every still-pending scheduled action by advancing the
// simulator to each one's completion time in turn, so the pairing
// invariant (spec §8: every initiated event has exactly one matching
// completed event) holds even for actions whose completion time was
// never reached by an ordinary initiation_time/duration advance before
// the session stopped.
func (s *Session) Finalize() {
	for len(s.pending) > 0 {
		item := heap.Pop(&s.pending).(*pendingAction)
		if gap := item.completionTime - s.Sim.Time(); gap > 0 {
			s.Sim.Advance(gap)
		}
		s.completeAction(item)
	}
}

// IsDone checks termination conditions in spec §4.8.3's stated order;
// the first match wins.
func (s *Session) IsDone() (bool, string) {
	if s.agentDone {
		return true, "agent_done"
	}
	if float64(s.stepCount) >= s.Params.GetFloat("action.limits.max_steps", 100) {
		return true, "max_steps"
	}
	if budget, ok := s.Params.GetOptionalFloat("action.limits.budget"); ok && s.Spent() >= budget {
		return true, "budget"
	}
	if maxSimTime, ok := s.Params.GetOptionalFloat("action.limits.max_sim_time"); ok && s.Sim.Time() >= maxSimTime {
		return true, "max_sim_time"
	}
	if node, ok := s.Params.Get("action.limits.termination").(*specyaml.Node); ok && node != nil {
		result, err := eval.Eval(node.TagSource, eval.Context{Scope: newScoringScope(s), Seed: s.Seed, Path: "termination"})
		if err == nil {
			if b, ok := result.(bool); ok && b {
				return true, "termination_expr"
			}
		}
	}
	if s.Sim.Terminal() {
		return true, "simulator_terminal"
	}
	return false, ""
}

// Score evaluates every registered scoring expression against the trace
// and scenario (spec §4.8.4), returning the per-name score map and
// whether the canonical "score" entry clears passing_score.
func (s *Session) Score() (map[string]float64, bool) {
	scores := make(map[string]float64)
	for name, expr := range s.Scenario.ScoringExprs() {
		node, ok := expr.(*specyaml.Node)
		if !ok || node == nil {
			continue
		}
		result, err := eval.Eval(node.TagSource, eval.Context{Scope: newScoringScope(s), Seed: s.Seed, Path: "scoring." + name})
		if err != nil {
			continue
		}
		f, err := asFloat(result)
		if err != nil {
			continue
		}
		scores[name] = f
	}
	pass := false
	if threshold, ok := s.Scenario.PassingScore(); ok {
		if canonical, ok := scores["score"]; ok {
			pass = canonical >= threshold
		}
	}
	return scores, pass
}

// Resolve looks up a dotted name against the same scope a scoring or
// termination expression runs in (trace, population(), budget_exceeded(),
// and the scenario itself) — used by callers outside this package (the
// experiment runner's configured final-state keys) that need a value out of
// a finished session without reaching into its internals.
func (s *Session) Resolve(dotted string) (any, error) {
	return newScoringScope(s).LookupDotted(dotted)
}

func (s *Session) resolveCost(spec ActionSpec, action Action, path string) float64 {
	if spec.Cost == nil {
		key := "action.cost.default_measurement"
		if spec.Kind == KindAction {
			key = "action.cost.default_action"
		}
		return s.Params.GetFloat(key, 1.0)
	}
	cost, err := resolveNumeric(spec.Cost, action.Params, s.Scenario.Scope, s.Seed, path+".cost")
	if err != nil {
		return s.Params.GetFloat("action.cost.error", 0.1)
	}
	return cost
}

func (s *Session) resolveDuration(spec ActionSpec, action Action, path string) float64 {
	if spec.Duration == nil {
		return s.Params.GetFloat("action.timing.default_duration", 0.1)
	}
	duration, err := resolveNumeric(spec.Duration, action.Params, s.Scenario.Scope, s.Seed, path+".duration")
	if err != nil {
		return s.Params.GetFloat("action.timing.default_duration", 0.1)
	}
	return duration
}

func (s *Session) resolveWait(spec ActionSpec, action Action) bool {
	if action.Wait != nil {
		return *action.Wait
	}
	if spec.Wait != nil {
		return *spec.Wait
	}
	return s.Params.GetBool("action.timing.default_wait", true)
}

// RunResult is the outcome of driving an agent through RunLoop to
// completion.
type RunResult struct {
	Status  Status
	Reason  string
	Results []ActionResult
	Scores  map[string]float64
	Pass    bool
}

// RunLoop drives agent through Observe/Decide/Act until IsDone, enforcing
// the wall-clock timeout as out-of-band infrastructure separate from the
// in-band termination conditions (spec §4.8.3, §7's Incomplete row).
func (s *Session) RunLoop(agent Agent) *RunResult {
	agent.Start()
	defer agent.End()

	timeout := time.Duration(s.Params.GetFloat("action.limits.wall_clock_timeout", 300) * float64(time.Second))
	deadline := time.Now().Add(timeout)

	var results []ActionResult
	for {
		if done, reason := s.IsDone(); done {
			s.Finalize()
			scores, pass := s.Score()
			return &RunResult{Status: StatusCompleted, Reason: reason, Results: results, Scores: scores, Pass: pass}
		}
		if time.Now().After(deadline) {
			return &RunResult{Status: StatusIncomplete, Reason: "timeout", Results: results}
		}

		obs := s.Observe()
		action, err := agent.Decide(obs)
		if err != nil {
			return &RunResult{Status: StatusIncomplete, Reason: "agent_error: " + err.Error(), Results: results}
		}
		result, err := s.Act(action)
		if err != nil {
			return &RunResult{Status: StatusIncomplete, Reason: "act_error: " + err.Error(), Results: results}
		}
		results = append(results, *result)
		agent.ObserveResult(*result)
	}
}
