// Package experiment implements the Experiment Runner (spec §4.9): axis
// enumeration over a Cartesian product or a random sample of it, per-run
// seed derivation, and ordered result-record aggregation.
package experiment

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/oblinger/alienbio/pkg/eval"
	"github.com/oblinger/alienbio/pkg/session"
)

// Mode selects how an Experiment turns its axes into combinations.
type Mode string

const (
	ModeIterate Mode = "iterate"
	ModeSample  Mode = "sample"
)

// AxisSpec is one named axis and its declared value list, in the order it
// was declared — a slice, not a map, since enumeration order is observable
// (spec §8 scenario 6's expected ordering).
type AxisSpec struct {
	Name   string
	Values []any
}

// SimulatorFactory builds a fresh Simulator for one run, given that run's
// axis values and derived seed.
type SimulatorFactory func(values map[string]any, seed uint64) session.Simulator

// AgentFactory builds a fresh Agent for one run, given that run's axis
// values and derived seed.
type AgentFactory func(values map[string]any, seed uint64) session.Agent

// Experiment owns a Scenario reference, its axes, an exploration mode, and
// the factories needed to construct one Session per combination (spec
// §3's Experiment entity).
type Experiment struct {
	Scenario       *session.Scenario
	Axes           []AxisSpec
	Mode           Mode
	Samples        int
	Seed           uint64
	FinalStateKeys []string
	NewSimulator   SimulatorFactory
	NewAgent       AgentFactory

	// Concurrency bounds how many runs may be in flight at once. 0 or 1
	// means strictly sequential. Safe to raise because independent runs
	// share no mutable state beyond the read-only hydrated scenario and
	// the fetch identity cache (spec §5).
	Concurrency int

	// RunsPerSecond, if positive, throttles how fast new runs are
	// dispatched (e.g. to stay under an embedded agent's own provider
	// rate limit across a whole experiment) independently of Concurrency,
	// which only bounds how many may be in flight at once. Zero means
	// unthrottled.
	RunsPerSecond float64
}

// Combination is one Cartesian-product point: its axis-name→value map and
// its index into the full (unsampled) product, which is what the per-run
// seed is derived from regardless of whether sample mode later selects it.
type Combination struct {
	Index  int
	Values map[string]any
}

// ResultRecord is one combination's outcome (spec §4.9): its axis values,
// per-scoring-name scores, pass/fail, and any configured final-state
// values pulled out of the finished session.
type ResultRecord struct {
	Index      int
	Axes       map[string]any
	Scores     map[string]float64
	Success    bool
	FinalState map[string]any
}

// Combinations enumerates this experiment's axis combinations per Mode.
func (e *Experiment) Combinations() []Combination {
	all := cartesian(e.Axes)
	if e.Mode == ModeSample {
		return sampleWithoutReplacement(all, e.Samples, e.Seed)
	}
	return all
}

// cartesian builds the full Cartesian product in declared axis order: the
// first axis varies slowest (outermost), the last axis fastest
// (innermost) — e.g. axes {agent:[A,B], seed:[0,1]} yields (A,0), (A,1),
// (B,0), (B,1).
func cartesian(axes []AxisSpec) []Combination {
	rows := []map[string]any{{}}
	for _, axis := range axes {
		var next []map[string]any
		for _, base := range rows {
			for _, v := range axis.Values {
				row := make(map[string]any, len(base)+1)
				for k, bv := range base {
					row[k] = bv
				}
				row[axis.Name] = v
				next = append(next, row)
			}
		}
		rows = next
	}
	out := make([]Combination, len(rows))
	for i, row := range rows {
		out[i] = Combination{Index: i, Values: row}
	}
	return out
}

// sampleWithoutReplacement draws up to samples combinations uniformly at
// random from all, without replacement, via a seeded Fisher-Yates partial
// shuffle so the draw is reproducible for a given seed. When samples
// exceeds len(all) it is clamped — "without replacement when feasible"
// (spec §4.9) means the whole product when a full sample isn't.
func sampleWithoutReplacement(all []Combination, samples int, seed uint64) []Combination {
	n := len(all)
	if samples > n {
		samples = n
	}
	if samples <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := eval.NewStream(seed, "experiment.sample")
	for i := 0; i < samples; i++ {
		j := i + rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	out := make([]Combination, samples)
	for i := 0; i < samples; i++ {
		out[i] = all[idx[i]]
	}
	return out
}

// runSeed derives a per-run seed from (experiment_seed, combination_index)
// via the same stable (seed, path)-keyed stream every deferred expression
// in the engine already uses, so two runs of the same experiment draw
// byte-identical per-run seeds.
func runSeed(experimentSeed uint64, combinationIndex int) uint64 {
	return eval.NewStream(experimentSeed, fmt.Sprintf("experiment.run.%d", combinationIndex)).Uint64()
}

// Run executes every combination, sequentially if Concurrency <= 1 or
// across up to Concurrency concurrent runs otherwise, and returns result
// records in combination order regardless of completion order.
func (e *Experiment) Run() []ResultRecord {
	combos := e.Combinations()
	records := make([]ResultRecord, len(combos))

	var limiter *rate.Limiter
	if e.RunsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(e.RunsPerSecond), 1)
	}
	throttle := func() {
		if limiter != nil {
			_ = limiter.Wait(context.Background())
		}
	}

	if e.Concurrency <= 1 {
		for i, c := range combos {
			throttle()
			records[i] = e.runOne(c)
		}
		return records
	}

	sem := make(chan struct{}, e.Concurrency)
	done := make(chan struct{}, len(combos))
	for i, c := range combos {
		i, c := i, c
		throttle()
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; done <- struct{}{} }()
			records[i] = e.runOne(c)
		}()
	}
	for range combos {
		<-done
	}
	return records
}

func (e *Experiment) runOne(c Combination) ResultRecord {
	seed := runSeed(e.Seed, c.Index)
	sim := e.NewSimulator(c.Values, seed)
	sess := session.NewSession(e.Scenario, sim, seed)
	agent := e.NewAgent(c.Values, seed)
	result := sess.RunLoop(agent)

	finalState := make(map[string]any, len(e.FinalStateKeys))
	for _, key := range e.FinalStateKeys {
		if v, err := sess.Resolve(key); err == nil {
			finalState[key] = v
		}
	}

	return ResultRecord{
		Index:      c.Index,
		Axes:       c.Values,
		Scores:     result.Scores,
		Success:    result.Status == session.StatusCompleted && result.Pass,
		FinalState: finalState,
	}
}
