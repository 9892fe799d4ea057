package fw

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/named-data/ndnd/fw/core"
)

// DefaultCodelTarget and DefaultCodelInterval are the CoDel timing defaults.
const (
	DefaultCodelTarget   = 5 * time.Millisecond
	DefaultCodelInterval = 100 * time.Millisecond
)

// queueItem is one packet sitting in a Queue's FIFO, enqueued at a known time.
type queueItem struct {
	enqueueTime time.Time
	size        int
}

// Queue is a per-egress-link CoDel-style marking AQM queue: instead of
// dropping packets to signal congestion, it raises an "ok-to-mark" signal
// once sojourn time has been persistently over target. Packets are only
// ever dropped on tail overflow. Grounded on spec.md §4.1; faceid is kept
// for the String() identity used in log output.
type Queue struct {
	faceid uint64

	target      time.Duration
	interval    time.Duration
	maxPackets  int
	mtuBytes    int
	clock       func() time.Time

	mu                sync.Mutex
	items             []queueItem
	byteCount         int
	firstAboveTime    time.Time
	firstAboveSet     bool
	dropNext          time.Time
	count             uint32
	inDroppingState   bool
	lastOkToMark      bool
	overLimitSince    time.Time
	overLimitSet      bool
	droppedPackets    uint64
}

// NewQueue constructs a Queue with the given CoDel parameters. clock
// defaults to time.Now but may be overridden for deterministic tests.
func NewQueue(faceid uint64, target, interval time.Duration, maxPackets int, clock func() time.Time) *Queue {
	if clock == nil {
		clock = time.Now
	}
	return &Queue{
		faceid:     faceid,
		target:     target,
		interval:   interval,
		maxPackets: maxPackets,
		mtuBytes:   1500,
		clock:      clock,
	}
}

// String identifies the queue in log output.
func (q *Queue) String() string {
	return fmt.Sprintf("aqm-queue (faceid=%d)", q.faceid)
}

// Enqueue appends a packet of size bytes to the tail of the queue, tail-
// dropping (and counting the drop) if the queue is already at maxPackets.
func (q *Queue) Enqueue(size int) (dropped bool) {
	q.mu.Lock()
	if len(q.items) >= q.maxPackets {
		q.droppedPackets++
		q.mu.Unlock()
		q.logDrop()
		return true
	}
	q.items = append(q.items, queueItem{enqueueTime: q.clock(), size: size})
	q.byteCount += size
	q.updateOverLimitLocked()
	q.mu.Unlock()
	return false
}

// Dequeue pops the oldest packet and runs the CoDel state machine on its
// sojourn time, returning whether this dequeue should be marked congested.
// ok is false if the queue was empty.
func (q *Queue) Dequeue() (sojourn time.Duration, okToMark bool, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return 0, false, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.byteCount -= item.size

	now := q.clock()
	sojourn = now.Sub(item.enqueueTime)

	belowTarget := sojourn < q.target || q.byteCount < q.mtuBytes
	if belowTarget {
		q.firstAboveSet = false
		q.inDroppingState = false
		okToMark = false
	} else {
		if !q.firstAboveSet {
			q.firstAboveTime = now.Add(q.interval)
			q.firstAboveSet = true
			okToMark = false
		} else if !now.Before(q.firstAboveTime) {
			if !q.inDroppingState {
				q.inDroppingState = true
				q.count = 1
				q.dropNext = now
			}
			if q.inDroppingState && !now.Before(q.dropNext) {
				okToMark = true
				q.count++
				q.dropNext = now.Add(time.Duration(float64(q.interval) / math.Sqrt(float64(q.count))))
			}
		}
	}

	q.updateOverLimitLocked()
	q.lastOkToMark = okToMark
	return sojourn, okToMark, true
}

// IsOkToMark reports the congestion state computed at the most recent
// Dequeue, the signal the strategy samples when choosing an egress face.
func (q *Queue) IsOkToMark() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastOkToMark
}

// IsQueueOverLimit reports whether the queue's current occupancy exceeds
// thresholdPct of its capacity.
func (q *Queue) IsQueueOverLimit(thresholdPct float64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.occupancyLocked() > thresholdPct
}

func (q *Queue) occupancyLocked() float64 {
	if q.maxPackets == 0 {
		return 0
	}
	return float64(len(q.items)) / float64(q.maxPackets)
}

// updateOverLimitLocked tracks how long the queue has been continuously
// over the "highly congested" occupancy default of 0.9, the same
// firstAboveTime-style pattern CoDel uses for sojourn.
func (q *Queue) updateOverLimitLocked() {
	const highlyCongestedPct = 0.9
	if q.occupancyLocked() > highlyCongestedPct {
		if !q.overLimitSet {
			q.overLimitSince = q.clock()
			q.overLimitSet = true
		}
	} else {
		q.overLimitSet = false
	}
}

// TimeOverLimit returns how long the queue has been continuously above the
// highly-congested occupancy threshold, or 0 if it isn't currently over.
func (q *Queue) TimeOverLimit() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.overLimitSet {
		return 0
	}
	return q.clock().Sub(q.overLimitSince)
}

// IsHighlyCongested reports whether the queue is "highly congested": its
// occupancy has exceeded thresholdPct, or its time over the occupancy limit
// has exceeded thresholdDelay. Supplements the CoDel mark signal with the
// second threshold the ndnSIM original's isHighlyCongested checks.
func (q *Queue) IsHighlyCongested(thresholdPct float64, thresholdDelay time.Duration) bool {
	q.mu.Lock()
	over := q.occupancyLocked() > thresholdPct
	overSince := q.overLimitSet
	since := q.overLimitSince
	q.mu.Unlock()

	if over {
		return true
	}
	if overSince && q.clock().Sub(since) > thresholdDelay {
		return true
	}
	return false
}

// Len returns the number of packets currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the cumulative count of tail-dropped packets.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.droppedPackets
}

// logDrop reports an overflow event once per occurrence, matching the
// "log once per event" policy for expected-but-noteworthy conditions.
func (q *Queue) logDrop() {
	core.Log.Warn(q, "Queue overflow - tail drop", "dropped", q.droppedPackets)
}
