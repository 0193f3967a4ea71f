// Package timeline implements the session's append-only event log (spec
// §3/§4.8): the sole mutable shared structure a Session drives, serving
// simultaneously as history, a concurrent-completion polling surface, and
// the cost ledger.
package timeline

import "sync"

// Kind discriminates the five event kinds spec §3 names. In turn-based
// mode an action event is immediately followed by a result event; in
// concurrent mode it is followed first by initiated, then later by
// completed at the action's scheduled simulation time.
type Kind string

const (
	KindAction       Kind = "action"
	KindResult       Kind = "result"
	KindInitiated    Kind = "initiated"
	KindCompleted    Kind = "completed"
	KindNotification Kind = "notification"
)

// Event is one entry in the timeline: a simulation time, a kind, and a
// kind-specific payload (e.g. {name, params, wait} for action,
// {success, cost, data, error} for result/completed).
type Event struct {
	Time    float64
	Kind    Kind
	Payload map[string]any
}

// Cost reads the event's "cost" payload field, defaulting to 0 for kinds
// that never carry one (action, initiated, notification).
func (e Event) Cost() float64 {
	v, ok := e.Payload["cost"]
	if !ok {
		return 0
	}
	f, _ := v.(float64)
	return f
}

// Timeline is the append-only, time-ordered event sequence a Session
// owns. Mutated only by the session on the single logical thread that
// drives it (spec §5); the mutex exists so Since/All/TotalCost can be
// polled from an agent loop running on a different goroutine without
// racing the session's own appends.
type Timeline struct {
	mu     sync.RWMutex
	events []Event
}

// New returns an empty Timeline.
func New() *Timeline {
	return &Timeline{}
}

// Append adds ev to the end of the timeline. Callers are responsible for
// the monotonicity invariant (spec §8: "timeline[i].time <=
// timeline[i+1].time") — retroactive insertion of a completed event still
// appends at the tail, since the session drains due completions in
// completion-time order each time it advances the simulator, before it
// appends any event stamped with the new time.
func (t *Timeline) Append(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
}

// Since returns a copy of every event at index >= from, and the new
// length of the timeline — the polling primitive an agent uses to
// discover completions in concurrent mode (spec §4.8.1).
func (t *Timeline) Since(from int) ([]Event, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if from < 0 {
		from = 0
	}
	if from >= len(t.events) {
		return nil, len(t.events)
	}
	out := make([]Event, len(t.events)-from)
	copy(out, t.events[from:])
	return out, len(t.events)
}

// All returns a copy of the full event sequence.
func (t *Timeline) All() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Len reports the current event count.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.events)
}

// TotalCost sums the cost field over every result and completed event
// (spec §8's cost-ledger invariant: spent == sum of those costs).
func (t *Timeline) TotalCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var total float64
	for _, e := range t.events {
		if e.Kind == KindResult || e.Kind == KindCompleted {
			total += e.Cost()
		}
	}
	return total
}
