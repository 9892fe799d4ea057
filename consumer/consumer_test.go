package consumer

import (
	"testing"
	"time"

	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/face"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/object/congestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoData wires b to answer every Interest it receives with Data of the
// same name, simulating a producer that always has content ready.
func echoData(b *face.MemoryFace) {
	b.OnReceive(func(pkt *defn.Pkt) {
		if pkt.L3.Interest == nil {
			return
		}
		b.SendData(&defn.FwData{NameV: pkt.L3.Interest.NameV})
	})
}

func TestConsumerRunCompletesAfterMaxSeqSatisfied(t *testing.T) {
	a := face.NewMemoryFace(false)
	b := face.NewMemoryFace(false)
	face.Pipe(a, b)
	echoData(b)

	prefix, _ := enc.NameFromStr("/consumer/test")
	window := congestion.NewFixedCongestionWindow(2)
	c := NewConsumer(a, prefix, window, 50*time.Millisecond, 4, 3)

	finished := make(chan struct{})
	c.OnFinish = func() { close(finished) }

	go c.Run()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not finish after all Interests were satisfied")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, uint64(3), c.seq)
	assert.Empty(t, c.pending)
}

// TestConsumerOnTimeoutCountsAsDoneWithoutRetry checks that an unanswered
// Interest still lets the run finish once its RTO fires - this package does
// not itself retransmit on timeout, only backs off and moves on.
func TestConsumerOnTimeoutCountsAsDoneWithoutRetry(t *testing.T) {
	a := face.NewMemoryFace(false) // no peer: every send fails silently

	prefix, _ := enc.NameFromStr("/consumer/timeout")
	window := congestion.NewFixedCongestionWindow(2)
	c := NewConsumer(a, prefix, window, 20*time.Millisecond, 4, 1)

	finished := make(chan struct{})
	c.OnFinish = func() { close(finished) }

	go c.Run()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not finish after its only Interest timed out")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.pending)
}

func TestConsumerStopEndsRun(t *testing.T) {
	a := face.NewMemoryFace(false)
	prefix, _ := enc.NameFromStr("/consumer/stop")
	window := congestion.NewFixedCongestionWindow(0)
	c := NewConsumer(a, prefix, window, 50*time.Millisecond, 4, 0)

	runReturned := make(chan struct{})
	go func() {
		c.Run()
		close(runReturned)
	}()

	time.Sleep(10 * time.Millisecond)
	c.Stop()

	select {
	case <-runReturned:
	case <-time.After(time.Second):
		t.Fatal("Stop did not unblock Run")
	}
}

func TestLastSequenceNum(t *testing.T) {
	name, _ := enc.NameFromStr("/a/b")
	name = name.Append(enc.NewSequenceNumComponent(7))

	seq, ok := lastSequenceNum(name)
	require.True(t, ok)
	assert.Equal(t, uint64(7), seq)
}

func TestLastSequenceNumRejectsNonSequenceComponent(t *testing.T) {
	name, _ := enc.NameFromStr("/a/b")
	_, ok := lastSequenceNum(name)
	assert.False(t, ok)
}
