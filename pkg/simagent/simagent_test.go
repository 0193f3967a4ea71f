package simagent

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblinger/alienbio/pkg/session"
)

func TestScripted_PlaysBackInOrderThenDone(t *testing.T) {
	a := NewScripted([]session.Action{
		{Name: "feed"},
		{Name: "measure"},
	}, false)

	act1, err := a.Decide(session.Observation{})
	require.NoError(t, err)
	assert.Equal(t, "feed", act1.Name)

	act2, err := a.Decide(session.Observation{})
	require.NoError(t, err)
	assert.Equal(t, "measure", act2.Name)

	act3, err := a.Decide(session.Observation{})
	require.NoError(t, err)
	assert.Equal(t, "done", act3.Name)
}

func TestScripted_Loops(t *testing.T) {
	a := NewScripted([]session.Action{{Name: "feed"}}, true)
	for i := 0; i < 5; i++ {
		act, err := a.Decide(session.Observation{})
		require.NoError(t, err)
		assert.Equal(t, "feed", act.Name)
	}
}

func TestRandom_DeterministicForSameSeed(t *testing.T) {
	catalog := map[string]session.ActionSpec{
		"feed":    {Name: "feed", Kind: session.KindAction},
		"measure": {Name: "measure", Kind: session.KindMeasurement},
	}
	obs := session.Observation{Catalog: catalog}

	a := NewRandom(99, 0)
	b := NewRandom(99, 0)

	for i := 0; i < 5; i++ {
		actA, err := a.Decide(obs)
		require.NoError(t, err)
		actB, err := b.Decide(obs)
		require.NoError(t, err)
		assert.Equal(t, actA.Name, actB.Name)
	}
}

func TestRandom_StopsAtMaxTurns(t *testing.T) {
	catalog := map[string]session.ActionSpec{"feed": {Name: "feed"}}
	obs := session.Observation{Catalog: catalog}

	a := NewRandom(1, 2)
	_, err := a.Decide(obs)
	require.NoError(t, err)
	_, err = a.Decide(obs)
	require.NoError(t, err)
	act, err := a.Decide(obs)
	require.NoError(t, err)
	assert.Equal(t, "done", act.Name)
}

func TestRandom_ErrorsOnEmptyCatalog(t *testing.T) {
	a := NewRandom(1, 0)
	_, err := a.Decide(session.Observation{Catalog: map[string]session.ActionSpec{}})
	assert.Error(t, err)
}

func TestRandom_UsesParamGenerator(t *testing.T) {
	catalog := map[string]session.ActionSpec{"feed": {Name: "feed"}}
	obs := session.Observation{Catalog: catalog}

	a := NewRandom(1, 0)
	a.ParamsFor["feed"] = func(rng *rand.Rand) map[string]any {
		return map[string]any{"amount": 1.0}
	}
	act, err := a.Decide(obs)
	require.NoError(t, err)
	assert.Equal(t, 1.0, act.Params["amount"])
}
