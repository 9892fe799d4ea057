package fw

import (
	"context"
	"testing"
	"time"

	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/face"
	"github.com/named-data/ndnd/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/types/optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadQueueForReturnsSameQueuePerFace(t *testing.T) {
	thread := NewThread(nil)
	q1 := thread.QueueFor(7)
	q2 := thread.QueueFor(7)
	assert.Same(t, q1, q2)
}

func TestThreadStrategyForFallsBackToDefault(t *testing.T) {
	thread := NewThread(nil)
	thread.SetDefaultStrategy("pcon-strategy")

	name, _ := enc.NameFromStr("/unbound/prefix")
	s := thread.strategyFor(name)
	require.NotNil(t, s)
	assert.Equal(t, "pcon-strategy", s.InstanceName())
}

func TestThreadStrategyForUsesFibBinding(t *testing.T) {
	thread := NewThread(nil)

	prefix, _ := enc.NameFromStr("/bound/prefix")
	table.FibStrategyTable.SetStrategyEnc(prefix, defn.PconStrategyName)
	defer table.FibStrategyTable.UnSetStrategyEnc(prefix)

	s := thread.strategyFor(prefix)
	require.NotNil(t, s)
	assert.Equal(t, "pcon-strategy", s.InstanceName())
}

func TestThreadStrategyForUnboundWithNoDefaultIsNil(t *testing.T) {
	thread := NewThread(nil)
	name, _ := enc.NameFromStr("/nothing/bound/here")
	assert.Nil(t, thread.strategyFor(name))
}

// TestThreadDispatchDeliversQueuedInterestToPeer drives a packet all the way
// from SendInterest through a face's dispatch loop and AQM queue to a peer
// MemoryFace's receive callback.
func TestThreadDispatchDeliversQueuedInterestToPeer(t *testing.T) {
	thread := NewThread(nil)

	a := face.NewMemoryFace(false)
	b := face.NewMemoryFace(false)
	face.Pipe(a, b)

	received := make(chan *defn.Pkt, 1)
	b.OnReceive(func(pkt *defn.Pkt) { received <- pkt })

	idA := thread.AttachFace(a)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	thread.Start(ctx)

	name, _ := enc.NameFromStr("/dispatch/test")
	thread.SendInterest(idA, &defn.FwInterest{
		NameV:  name,
		NonceV: optional.Some(uint32(42)),
	})

	select {
	case pkt := <-received:
		require.NotNil(t, pkt.L3.Interest)
		assert.True(t, name.Equal(pkt.L3.Interest.NameV))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched Interest to reach peer face")
	}
}

func TestThreadStopEndsDispatchLoop(t *testing.T) {
	thread := NewThread(nil)

	a := face.NewMemoryFace(false)
	thread.AttachFace(a)

	ctx := context.Background()
	thread.Start(ctx)
	thread.Stop()

	// A second Stop must not panic or block now that the group has
	// already finished waiting once.
	thread.Stop()
}
