/*
Package queue implements the candidate queue (4.A): a deduplicated FIFO of "host:port" strings fed
by providers and drained in batches by the checker. It is a plain mutex-guarded slice, the same
shape the teacher uses for its small shared-state types rather than reaching for a channel - a
channel has no way to express "push this address only if it isn't already queued or in flight",
which is the one property that actually matters here.
*/
package queue

import (
	"fmt"
	"sync"
)

// Queue is a deduplicated FIFO of candidate addresses.
type Queue struct {
	mu    sync.Mutex
	items []string
	seen  map[string]struct{}
}

// New constructs an empty Queue.
func New() *Queue {
	return &Queue{seen: make(map[string]struct{})}
}

// Push appends addr unconditionally, even if already queued. Most callers want PushUnique.
func (q *Queue) Push(addr string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, addr)
	q.seen[addr] = struct{}{}
}

// PushUnique appends addr only if it has never been pushed before (queued, popped, or currently in
// flight all count as "seen" - Forget must be called to allow a retry). Returns true if it was
// actually added.
func (q *Queue) PushUnique(addr string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.seen[addr]; ok {
		return false
	}
	q.items = append(q.items, addr)
	q.seen[addr] = struct{}{}
	return true
}

// Pop removes and returns the oldest queued address. ok is false if the queue is empty.
func (q *Queue) Pop() (addr string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	addr, q.items = q.items[0], q.items[1:]
	return addr, true
}

// PopBatch removes and returns up to n addresses, fewer if the queue holds less.
func (q *Queue) PopBatch(n int) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.items) {
		n = len(q.items)
	}
	batch := make([]string, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]
	return batch
}

// Len reports how many addresses are currently queued (not counting ones already popped).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Forget removes addr from the dedup set so a future PushUnique can re-admit it. Used when a
// checked proxy should become eligible for re-discovery later (e.g. a provider re-lists it).
func (q *Queue) Forget(addr string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.seen, addr)
}

// Name implements reporter.Reporter.
func (q *Queue) Name() string { return "queue" }

// Report implements reporter.Reporter. resetCounters has no effect - queue depth and the dedup set
// size are both current state, not accumulating counters, so there is nothing to reset.
func (q *Queue) Report(resetCounters bool) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return fmt.Sprintf("queue: %d pending, %d seen", len(q.items), len(q.seen))
}
