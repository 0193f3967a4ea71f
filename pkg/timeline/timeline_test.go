package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeline_AppendAndAll(t *testing.T) {
	tl := New()
	tl.Append(Event{Time: 0, Kind: KindAction, Payload: map[string]any{"name": "add_feedstock"}})
	tl.Append(Event{Time: 0.6, Kind: KindResult, Payload: map[string]any{"success": true, "cost": 1.0}})

	all := tl.All()
	require.Len(t, all, 2)
	assert.Equal(t, KindAction, all[0].Kind)
	assert.Equal(t, KindResult, all[1].Kind)
	assert.Equal(t, 2, tl.Len())
}

func TestTimeline_Since(t *testing.T) {
	tl := New()
	tl.Append(Event{Time: 0, Kind: KindAction})
	events, n := tl.Since(1)
	assert.Empty(t, events)
	assert.Equal(t, 1, n)

	tl.Append(Event{Time: 0.1, Kind: KindInitiated})
	tl.Append(Event{Time: 0.7, Kind: KindCompleted, Payload: map[string]any{"cost": 1.0}})
	events, n = tl.Since(1)
	require.Len(t, events, 2)
	assert.Equal(t, KindInitiated, events[0].Kind)
	assert.Equal(t, KindCompleted, events[1].Kind)
	assert.Equal(t, 3, n)
}

func TestTimeline_TotalCost(t *testing.T) {
	tl := New()
	tl.Append(Event{Time: 0, Kind: KindAction, Payload: map[string]any{"cost": 99.0}})
	tl.Append(Event{Time: 0.6, Kind: KindResult, Payload: map[string]any{"cost": 1.0}})
	tl.Append(Event{Time: 1.2, Kind: KindInitiated, Payload: map[string]any{"cost": 99.0}})
	tl.Append(Event{Time: 2.0, Kind: KindCompleted, Payload: map[string]any{"cost": 1.0}})

	// action and initiated events never charge cost (spec §4.8.2); only
	// result and completed events contribute to the ledger.
	assert.Equal(t, 2.0, tl.TotalCost())
}

func TestTimeline_SinceCopiesDefensively(t *testing.T) {
	tl := New()
	tl.Append(Event{Time: 0, Kind: KindAction})
	events, _ := tl.Since(0)
	events[0].Kind = KindNotification
	all := tl.All()
	assert.Equal(t, KindAction, all[0].Kind)
}
