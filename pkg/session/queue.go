package session

import "container/heap"

// pendingAction is one scheduled-but-not-yet-completed action (spec §5:
// "the simulator owns a priority queue of pending scheduled actions keyed
// by completion time"). seq breaks ties in initiation order (FIFO on
// simultaneous completion, spec §4.8.2 step 8).
type pendingAction struct {
	completionTime float64
	seq            uint64
	action         Action
	cost           float64
}

// pendingQueue is a container/heap priority queue ordered by
// (completionTime, seq).
type pendingQueue []*pendingAction

func (q pendingQueue) Len() int { return len(q) }

func (q pendingQueue) Less(i, j int) bool {
	if q[i].completionTime != q[j].completionTime {
		return q[i].completionTime < q[j].completionTime
	}
	return q[i].seq < q[j].seq
}

func (q pendingQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pendingQueue) Push(x any) {
	*q = append(*q, x.(*pendingAction))
}

func (q *pendingQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

var _ heap.Interface = (*pendingQueue)(nil)
