// Package review implements the process-local pending-review queue (§3,
// §5): a claim the Orchestrator could not confidently resolve is held here
// until an operator submits a decision. Grounded on
// internal/ratelimit/memory.go's MemoryLimiter: a single mutex guarding a
// plain map, stripped of the token-bucket refill math and the TTL-eviction
// goroutine, since entries here have no expiry — they live until a reviewer
// resolves them (§5: "operations are O(1) and non-blocking").
package review

import (
	"sync"

	"github.com/ashita-ai/veritas/internal/model"
)

// Queue holds pending-review records keyed by claim ID.
type Queue struct {
	mu      sync.Mutex
	pending map[string]model.PendingReview
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{pending: make(map[string]model.PendingReview)}
}

// Put stores or overwrites the pending record for claimID.
func (q *Queue) Put(claimID string, record model.PendingReview) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[claimID] = record
}

// Get returns the pending record for claimID, and whether it exists.
func (q *Queue) Get(claimID string) (model.PendingReview, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	record, ok := q.pending[claimID]
	return record, ok
}

// List returns every pending claim ID, in no particular order.
func (q *Queue) List() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	return ids
}

// Resolve accepts a reviewer's decision for claimID and removes it from the
// queue, regardless of what the decision was: a pending entry exists only
// until a human has looked at it. Returns false if claimID was not pending.
func (q *Queue) Resolve(claimID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[claimID]; !ok {
		return false
	}
	delete(q.pending, claimID)
	return true
}

// Delete removes claimID from the queue without applying a decision, used to
// clean up an orphaned entry from an aborted verification (§5).
func (q *Queue) Delete(claimID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, claimID)
}
