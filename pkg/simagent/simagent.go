// Package simagent provides minimal session.Agent implementations for
// driving a Session without a real LLM-backed agent. Spec §1 treats
// random/oracle/scripted/LLM-backed agents alike as external
// collaborators outside core scope; Scripted and Random are the two that
// need no network or model call to exist, so this module owns them for
// its own tests and as examples for pkg/experiment's AgentFactory.
package simagent

import (
	"fmt"
	"sort"

	"math/rand/v2"

	"github.com/oblinger/alienbio/pkg/eval"
	"github.com/oblinger/alienbio/pkg/session"
)

// Scripted plays back a fixed sequence of actions, then issues "done" —
// or, if Loop is set, starts the sequence over instead of ending.
type Scripted struct {
	Actions []session.Action
	Loop    bool

	pos int
}

// NewScripted builds a Scripted agent over actions, played back in order.
func NewScripted(actions []session.Action, loop bool) *Scripted {
	return &Scripted{Actions: actions, Loop: loop}
}

func (s *Scripted) Start() {}
func (s *Scripted) End()   {}

func (s *Scripted) ObserveResult(session.ActionResult) {}

// Decide returns the next scripted action, or "done" once the script is
// exhausted and Loop is false.
func (s *Scripted) Decide(obs session.Observation) (session.Action, error) {
	if s.pos >= len(s.Actions) {
		if s.Loop && len(s.Actions) > 0 {
			s.pos = 0
		} else {
			return session.Action{Name: "done"}, nil
		}
	}
	action := s.Actions[s.pos]
	s.pos++
	return action, nil
}

// ParamGenerator fills in a random action's parameters given the RNG
// stream this turn draws from.
type ParamGenerator func(rng *rand.Rand) map[string]any

// Random samples a uniformly random action name from the catalog a
// session's Observation exposes, every turn, until MaxTurns is reached
// (then issues "done"). Entirely deterministic for a given Seed: every
// Decide call draws from eval.NewStream(Seed, "simagent.random.<turn>"),
// never from an unseeded global source.
type Random struct {
	Seed      uint64
	MaxTurns  int
	ParamsFor map[string]ParamGenerator // optional, by action name

	turn int
}

// NewRandom builds a Random agent seeded by seed, issuing at most
// maxTurns actions before ending the session itself via "done".
func NewRandom(seed uint64, maxTurns int) *Random {
	return &Random{Seed: seed, MaxTurns: maxTurns, ParamsFor: map[string]ParamGenerator{}}
}

func (r *Random) Start() {}
func (r *Random) End()   {}

func (r *Random) ObserveResult(session.ActionResult) {}

// Decide picks a uniformly random action name from obs.Catalog.
func (r *Random) Decide(obs session.Observation) (session.Action, error) {
	if r.MaxTurns > 0 && r.turn >= r.MaxTurns {
		return session.Action{Name: "done"}, nil
	}
	if len(obs.Catalog) == 0 {
		return session.Action{}, fmt.Errorf("simagent: observation has no catalog to choose from")
	}
	names := make([]string, 0, len(obs.Catalog))
	for name := range obs.Catalog {
		names = append(names, name)
	}
	// Catalog comes off a Go map, so its key order is unstable; sort first
	// so the same seed always indexes the same name regardless of map
	// iteration order.
	sort.Strings(names)

	rng := eval.NewStream(r.Seed, fmt.Sprintf("simagent.random.%d", r.turn))
	r.turn++
	chosen := names[rng.IntN(len(names))]

	params := map[string]any{}
	if gen, ok := r.ParamsFor[chosen]; ok {
		params = gen(rng)
	}
	return session.Action{Name: chosen, Kind: obs.Catalog[chosen].Kind, Params: params}, nil
}
