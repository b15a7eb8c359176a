package engine

import (
	"fmt"

	"github.com/darkswap-labs/batchswap/types"
)

// pendingQueue is the per-pair backlog of request ids: a growable arena with
// a head cursor instead of eager deletion. Entries below head have been
// absorbed into a batch and are never read again. The arena is compacted only
// when the cursor reaches the end, which bounds relative storage growth.
type pendingQueue struct {
	ids  []types.RequestID
	head int
}

// enqueue appends a request id in O(1).
func (q *pendingQueue) enqueue(id types.RequestID) {
	q.ids = append(q.ids, id)
}

// backlog returns a copy of the unconsumed suffix without mutating state.
func (q *pendingQueue) backlog() []types.RequestID {
	out := make([]types.RequestID, len(q.ids)-q.head)
	copy(out, q.ids[q.head:])
	return out
}

// size returns the true backlog length.
func (q *pendingQueue) size() int {
	return len(q.ids) - q.head
}

// consume advances the head cursor by count. count must equal a backlog
// length previously observed under the same lock, never a speculative value.
func (q *pendingQueue) consume(count int) error {
	if count < 0 || q.head+count > len(q.ids) {
		return fmt.Errorf("consume %d overruns backlog of %d", count, q.size())
	}
	q.head += count
	if q.head == len(q.ids) {
		// compaction boundary: drop the consumed prefix entirely
		q.ids = nil
		q.head = 0
	}
	return nil
}
