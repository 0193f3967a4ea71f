package session

// defaultParams is the built-in innermost layer of the three-level global
// parameter table (spec §6), keyed by its dotted name.
var defaultParams = map[string]any{
	"action.timing.default_wait":       true,
	"action.timing.initiation_time":    0.1,
	"action.timing.default_duration":   0.1,
	"action.timing.steps_per_action":   0.0,
	"action.cost.default_action":       1.0,
	"action.cost.default_measurement":  0.0,
	"action.cost.error":                0.1,
	"action.limits.max_steps":          100.0,
	"action.limits.max_sim_time":       nil,
	"action.limits.budget":             nil,
	"action.limits.wall_clock_timeout": 300.0,
	"action.limits.termination":        nil,
}

// GlobalParams resolves a dotted key against the three-level precedence
// table (spec §6): built-in defaults, overridden by the scenario's own
// `params:` mapping. Per-action overrides are not a third table entry —
// they live as fields directly on ActionSpec/Action, and Session checks
// those ahead of calling Get for anything the action itself specifies.
type GlobalParams struct {
	overrides map[string]any // flattened dotted key -> value
}

// NewGlobalParams flattens a scenario's nested `params:` mapping (e.g.
// {action: {timing: {default_wait: false}}}) into dotted keys.
func NewGlobalParams(scenarioParams map[string]any) *GlobalParams {
	flat := make(map[string]any)
	flattenDotted(scenarioParams, "", flat)
	return &GlobalParams{overrides: flat}
}

func flattenDotted(m map[string]any, prefix string, out map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenDotted(nested, key, out)
			continue
		}
		out[key] = v
	}
}

// Get resolves key, preferring a scenario override over the built-in
// default. Returns nil if key is unknown to the table at all.
func (g *GlobalParams) Get(key string) any {
	if v, ok := g.overrides[key]; ok {
		return v
	}
	if v, ok := defaultParams[key]; ok {
		return v
	}
	return nil
}

// GetFloat resolves key as a float64, defaulting to def if absent or of
// the wrong dynamic type.
func (g *GlobalParams) GetFloat(key string, def float64) float64 {
	v := g.Get(key)
	if f, ok := v.(float64); ok {
		return f
	}
	return def
}

// GetBool resolves key as a bool, defaulting to def if absent or of the
// wrong dynamic type.
func (g *GlobalParams) GetBool(key string, def bool) bool {
	v := g.Get(key)
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// GetOptionalFloat resolves key, returning (value, true) only when it is
// bound to a non-nil float64 — used for the nullable limits
// (max_sim_time, budget) where nil means "unlimited".
func (g *GlobalParams) GetOptionalFloat(key string) (float64, bool) {
	v := g.Get(key)
	if v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
