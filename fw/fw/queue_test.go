package fw

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets a test advance the queue's notion of time deterministically.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestQueueBelowTargetNeverMarks(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	q := NewQueue(1, 5*time.Millisecond, 100*time.Millisecond, 1000, clock.now)

	for range 20 {
		q.Enqueue(100)
		clock.advance(1 * time.Millisecond)
		_, okToMark, ok := q.Dequeue()
		assert.True(t, ok)
		assert.False(t, okToMark)
	}
}

// TestQueueMarksAfterPersistentOverload drives sojourn time persistently
// above target for longer than interval, then checks marking turns on -
// the S6 timing scenario from the marking-queue design.
func TestQueueMarksAfterPersistentOverload(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	target := 5 * time.Millisecond
	interval := 100 * time.Millisecond
	q := NewQueue(1, target, interval, 1000, clock.now)

	// Build up a backlog so each dequeue's sojourn exceeds target.
	for range 50 {
		q.Enqueue(100)
	}
	clock.advance(50 * time.Millisecond)

	sawMark := false
	for range 50 {
		_, okToMark, ok := q.Dequeue()
		if !ok {
			break
		}
		clock.advance(3 * time.Millisecond)
		q.Enqueue(100)
		if okToMark {
			sawMark = true
		}
	}
	assert.True(t, sawMark, "queue should start marking once sojourn has been over target for a full interval")
}

func TestQueueTailDrop(t *testing.T) {
	q := NewQueue(1, DefaultCodelTarget, DefaultCodelInterval, 2, nil)
	assert.False(t, q.Enqueue(10))
	assert.False(t, q.Enqueue(10))
	assert.True(t, q.Enqueue(10))
	assert.Equal(t, uint64(1), q.Dropped())
	assert.Equal(t, 2, q.Len())
}

func TestQueueIsHighlyCongested(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	q := NewQueue(1, DefaultCodelTarget, DefaultCodelInterval, 10, clock.now)
	for range 9 {
		q.Enqueue(10)
	}
	assert.True(t, q.IsHighlyCongested(0.8, time.Second))
	assert.False(t, q.IsHighlyCongested(0.95, time.Second))
}
