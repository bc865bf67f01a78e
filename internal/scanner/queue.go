package scanner

import (
	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/nlog"
)

// worldQueueLimit is spec §4.D's WORLD_QUEUE_LIMIT: the maximum number of
// already-aggregated WorldSnapshot targets the scheduler will hold
// pending publish at once. It exists so a burst of freshly-decoded
// region jobs can never grow the in-memory backlog without bound.
const worldQueueLimit = 50000

// queuedSnapshot pairs a WorldSnapshot with the source it came from and
// the trace-id minted for its container group, so publishQueue can stamp
// the right origin_type and trace_id on each Snapshot Event without
// threading either through WorldSnapshot itself (which is also the shape
// the region and offline decode jobs return, with no notion of "source"
// or "trace-id").
type queuedSnapshot struct {
	Source  model.SourceKind
	TraceID string
	Snap    model.WorldSnapshot
}

// snapshotQueue is a plain FIFO of WorldSnapshot targets awaiting
// cooldown-gated publish, bounded by worldQueueLimit. Admission past the
// limit is a partial-completion signal, not an error: excess snapshots
// are dropped and the session degrades to PARTIAL_COMPLETED rather than
// aborting (spec §4.D: "the world snapshot queue backpressures rather
// than blocks").
type snapshotQueue struct {
	items []queuedSnapshot
}

// Offer admits up to the remaining queue capacity of the given items and
// reports how many were actually admitted and whether any were dropped.
func (q *snapshotQueue) Offer(items []queuedSnapshot) (admitted int, dropped bool) {
	if len(items) == 0 {
		return 0, false
	}
	remaining := worldQueueLimit - len(q.items)
	if remaining <= 0 {
		nlog.Warningf("scan_queue_backpressure: queue full at %d, dropping %d snapshots", worldQueueLimit, len(items))
		return 0, true
	}
	admit := len(items)
	if admit > remaining {
		admit = remaining
	}
	q.items = append(q.items, items[:admit]...)
	if admit < len(items) {
		nlog.Warningf("scan_queue_backpressure: admitted %d of %d snapshots, queue at capacity %d", admit, len(items), worldQueueLimit)
		return admit, true
	}
	return admit, false
}

// Pop removes and returns the oldest queued snapshot, if any.
func (q *snapshotQueue) Pop() (queuedSnapshot, bool) {
	if len(q.items) == 0 {
		return queuedSnapshot{}, false
	}
	next := q.items[0]
	q.items = q.items[1:]
	return next, true
}

func (q *snapshotQueue) Len() int { return len(q.items) }
