package viewsync

import (
	"sync"

	"interop-dashboard/internal/metrics"
	"interop-dashboard/internal/model"
)

// Queue is a bounded FIFO of snapshots between a source and the sync loop.
// When full, the oldest pending snapshot is discarded: each snapshot is a whole
// tree, so only the newest one matters.
type Queue struct {
	mu      sync.Mutex
	ch      chan model.Snapshot
	metrics *metrics.Metrics
}

// NewQueue returns a queue holding at most capacity snapshots (at least one).
func NewQueue(capacity int, m *metrics.Metrics) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan model.Snapshot, capacity), metrics: m}
}

// Offer enqueues s without blocking. It reports whether an older snapshot was dropped.
func (q *Queue) Offer(s model.Snapshot) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.metrics.SnapshotReceived()
	dropped := false
	for {
		select {
		case q.ch <- s:
			q.metrics.QueueLength(len(q.ch))
			return dropped
		default:
		}
		select {
		case <-q.ch:
			dropped = true
			q.metrics.SnapshotDropped()
		default:
		}
	}
}

// C is drained by the sync loop.
func (q *Queue) C() <-chan model.Snapshot { return q.ch }

// Len is the number of snapshots waiting.
func (q *Queue) Len() int { return len(q.ch) }
