package session

// ActionKind distinguishes a state-changing action from a read-only
// measurement (spec §4.8.2): measurements are never scheduled and never
// advance simulated time beyond initiation_time.
type ActionKind string

const (
	KindAction      ActionKind = "action"
	KindMeasurement ActionKind = "measurement"
)

// ActionSpec is one entry of the scenario's action/measurement catalog.
// Cost and Duration may be a plain float64 (constant) or a
// *specyaml.Node carrying a deferred !ev/!_ expression evaluated with the
// submitted params in scope — ToGo() leaves those tags unevaluated, so
// this struct stores whatever scope.Build bound without forcing a type.
type ActionSpec struct {
	Name     string
	Kind     ActionKind
	Cost     any
	Duration any
	Wait     *bool // nil: fall through to the interface/global default_wait
}

// Action is what an agent submits to Act(). Wait overrides the effective
// wait resolution (spec §4.8.2 step 5: explicit action.wait beats the
// interface default, which beats the global default) when non-nil.
type Action struct {
	Name   string
	Params map[string]any
	Kind   ActionKind
	Wait   *bool
}

// ActionResult is returned by Act(). For a concurrent (wait=false)
// submission, Completed is false and Data/Error are unset; the caller
// discovers the real outcome later via a "completed" timeline event.
type ActionResult struct {
	Success        bool
	Cost           float64
	Data           any
	Error          string
	Completed      bool
	CompletionTime float64
}

// Observation is the snapshot returned by Session.Observe (spec §4.8.1).
type Observation struct {
	Briefing     string // only meaningful on the first call
	Constitution string
	Catalog      map[string]ActionSpec
	SimState     any
	Step         int
	Budget       *float64 // nil = unlimited
	Spent        float64
	Remaining    *float64 // nil when Budget is nil
}
