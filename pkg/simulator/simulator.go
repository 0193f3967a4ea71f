// Package simulator provides a minimal in-memory reference implementation
// of session.Simulator. The biochemical simulator itself — rate-law
// integration, real population dynamics, visibility/skinning semantics —
// is explicitly out of this system's core scope (spec §1/§2: "the session
// depends only on an abstract Simulator capability"); this package exists
// only so pkg/session and pkg/experiment have something real to run
// against in their own tests, not as a stand-in for a production
// simulator.
package simulator

import (
	"fmt"
	"sort"

	"github.com/oblinger/alienbio/pkg/eval"
	"github.com/oblinger/alienbio/pkg/session"
)

// Reference is a toy logistic-growth population simulator. Each species
// grows per Advance(dt) by the logistic equation dP/dt = r·P·(1 - P/K),
// integrated with a single forward-Euler step per call — adequate for
// exercising the session/experiment contract deterministically, not for
// biological accuracy.
type Reference struct {
	time    float64
	species map[string]float64 // internal name -> population
	growth  map[string]float64 // internal name -> intrinsic growth rate r
	capacity map[string]float64 // internal name -> carrying capacity K

	// skin implements the GLOSSARY's "Skinning / Visibility": the
	// transformation from ground-truth internal names to agent-visible
	// opaque names, owned entirely by the simulator.
	skin        map[string]string // internal -> visible
	reverseSkin map[string]string // visible -> internal

	extinctionThreshold float64
	executed            []session.Action
}

// New builds a Reference simulator over the given species and their
// initial populations, deriving one growth rate and carrying capacity per
// species (both tunable via WithGrowth/WithCapacity) and a deterministic
// visible name per species from seed, via the same (seed, path)-keyed
// stream pkg/eval uses for every other deterministic draw in this system.
func New(initial map[string]float64, seed uint64, opts ...Option) *Reference {
	r := &Reference{
		species:             make(map[string]float64, len(initial)),
		growth:              make(map[string]float64, len(initial)),
		capacity:            make(map[string]float64, len(initial)),
		skin:                make(map[string]string, len(initial)),
		reverseSkin:         make(map[string]string, len(initial)),
		extinctionThreshold: 0.5,
	}
	names := make([]string, 0, len(initial))
	for name := range initial {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic skin assignment regardless of map iteration order
	for i, name := range names {
		r.species[name] = initial[name]
		r.growth[name] = 0.1
		r.capacity[name] = initial[name] * 10
		visible := fmt.Sprintf("organism-%d", eval.NewStream(seed, fmt.Sprintf("simulator.skin.%d", i)).IntN(1_000_000))
		r.skin[name] = visible
		r.reverseSkin[visible] = name
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Option configures a Reference at construction time.
type Option func(*Reference)

// WithGrowth overrides the intrinsic growth rate for species.
func WithGrowth(species string, rate float64) Option {
	return func(r *Reference) { r.growth[species] = rate }
}

// WithCapacity overrides the carrying capacity for species.
func WithCapacity(species string, capacity float64) Option {
	return func(r *Reference) { r.capacity[species] = capacity }
}

// WithExtinctionThreshold overrides the population floor Terminal treats
// as extinction (default 0.5).
func WithExtinctionThreshold(threshold float64) Option {
	return func(r *Reference) { r.extinctionThreshold = threshold }
}

// Advance steps every species forward by dt under logistic growth.
func (r *Reference) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	for name, pop := range r.species {
		k := r.capacity[name]
		rate := r.growth[name]
		if k <= 0 {
			continue
		}
		next := pop + rate*pop*(1-pop/k)*dt
		if next < 0 {
			next = 0
		}
		r.species[name] = next
	}
	r.time += dt
}

// Execute runs action against the simulator's state. "add_feedstock"
// raises every species' carrying capacity by action.Params["amount"]
// (default 1.0); every other action is recorded but otherwise a no-op,
// leaving population dynamics to Advance.
func (r *Reference) Execute(action session.Action) (any, error) {
	r.executed = append(r.executed, action)
	if action.Name == "add_feedstock" {
		amount := 1.0
		if v, ok := action.Params["amount"].(float64); ok {
			amount = v
		}
		for name := range r.capacity {
			r.capacity[name] += amount
		}
	}
	return r.ObservableState(), nil
}

// Schedule is a no-op for the Reference simulator: it has no concept of a
// deferred in-simulator effect beyond what the session's own pending
// queue already tracks on its behalf.
func (r *Reference) Schedule(action session.Action, duration float64) {}

// ObservableState returns a snapshot keyed by agent-visible (skinned)
// species names, never the internal ones.
func (r *Reference) ObservableState() any {
	out := make(map[string]float64, len(r.species))
	for name, pop := range r.species {
		out[r.skin[name]] = pop
	}
	return out
}

// Time returns elapsed simulated time.
func (r *Reference) Time() float64 { return r.time }

// Terminal reports true once any species' population has fallen to or
// below the extinction threshold (spec §4.8.3 item 6's example terminal
// condition).
func (r *Reference) Terminal() bool {
	for _, pop := range r.species {
		if pop <= r.extinctionThreshold {
			return true
		}
	}
	return false
}

// Population implements session.PopulationQuerier for the scoring/
// termination helper population(species) (spec §4.8.4). Accepts either
// the agent-visible skinned name or the internal ground-truth name, so a
// scenario author who only ever sees skinned names and test code that
// knows the ground truth can both query it the same way.
func (r *Reference) Population(species string) (float64, error) {
	if pop, ok := r.species[species]; ok {
		return pop, nil
	}
	if internal, ok := r.reverseSkin[species]; ok {
		return r.species[internal], nil
	}
	return 0, fmt.Errorf("simulator: unknown species %q", species)
}

// VisibleName returns the agent-facing opaque name for an internal
// species name, and whether it exists.
func (r *Reference) VisibleName(internal string) (string, bool) {
	v, ok := r.skin[internal]
	return v, ok
}
