package session

// Simulator is the abstract capability a Session drives (spec §1, §5):
// the biochemical simulator itself is out of core scope, described here
// only by the interface it exposes.
type Simulator interface {
	// Advance moves simulated time forward by dt, applying whatever
	// continuous dynamics (rate-law integration, population updates) the
	// implementation owns.
	Advance(dt float64)
	// Execute performs action's real effect immediately and returns
	// whatever observation data the action produces.
	Execute(action Action) (data any, err error)
	// Schedule registers action to complete duration sim-time units from
	// now; its real effect fires via the session's completion drain, not
	// inside this call.
	Schedule(action Action, duration float64)
	// ObservableState returns the simulator's current agent-visible state
	// (already skinned/visibility-filtered by the implementation).
	ObservableState() any
	// Time returns the simulator's current simulated time.
	Time() float64
	// Terminal reports a simulator-internal terminal condition (e.g.
	// population extinction) — spec §4.8.3 item 6.
	Terminal() bool
}

// PopulationQuerier is an optional Simulator capability a scoring or
// termination expression's population(species) helper depends on.
// Simulators that have no notion of species population simply don't
// implement it; calling population() against one reports an error.
type PopulationQuerier interface {
	Population(species string) (float64, error)
}

// Agent is the abstract capability on the other side of a Session (spec
// §1): random/oracle/scripted/LLM-backed implementations are all
// out-of-core-scope collaborators satisfying this interface.
type Agent interface {
	Start()
	Decide(obs Observation) (Action, error)
	// ObserveResult is an optional hook for agents that want to see the
	// outcome of their own action before the next Decide call.
	ObserveResult(result ActionResult)
	End()
}
