package face

import (
	"sync"

	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/std/ndn"
)

// MemoryFace is an in-process Face with no underlying transport, used to
// drive strategy and consumer tests without a real socket. Two MemoryFaces
// can be wired together with Pipe to simulate a link end to end.
type MemoryFace struct {
	id       defn.FaceId
	isLocal  bool
	metric   int
	peer     *MemoryFace
	mu       sync.Mutex
	onRecv   func(*defn.Pkt)
	closed   bool
}

// NewMemoryFace returns a MemoryFace with no peer wired up yet.
func NewMemoryFace(isLocal bool) *MemoryFace {
	return &MemoryFace{isLocal: isLocal}
}

// Pipe connects a and b so that packets sent on one arrive on the other.
func Pipe(a, b *MemoryFace) {
	a.peer = b
	b.peer = a
}

// ID returns the face's allocated ID (0 until added to a Table).
func (f *MemoryFace) ID() defn.FaceId { return f.id }

// SetID is used by Table.Add to record the allocated ID.
func (f *MemoryFace) SetID(id defn.FaceId) { f.id = id }

// IsLocal reports whether this face represents a local application, as
// opposed to a remote router or consumer.
func (f *MemoryFace) IsLocal() bool { return f.isLocal }

// Metric returns the face's routing cost.
func (f *MemoryFace) Metric() int { return f.metric }

// SetMetric sets the face's routing cost, e.g. defn.DownFaceMetric to
// simulate a downed link in tests.
func (f *MemoryFace) SetMetric(m int) { f.metric = m }

// OnReceive registers the packet callback.
func (f *MemoryFace) OnReceive(cb func(*defn.Pkt)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRecv = cb
}

func (f *MemoryFace) deliver(pkt *defn.Pkt) error {
	if f.peer == nil {
		return ndn.ErrFaceDown
	}
	f.peer.mu.Lock()
	cb := f.peer.onRecv
	closed := f.peer.closed
	f.peer.mu.Unlock()
	if closed {
		return ndn.ErrFaceDown
	}
	if cb != nil {
		cb(pkt)
	}
	return nil
}

// SendInterest delivers interest to the peer face, if any.
func (f *MemoryFace) SendInterest(i *defn.FwInterest) error {
	pkt := &defn.Pkt{Name: i.NameV}
	pkt.L3.Interest = i
	return f.deliver(pkt)
}

// SendData delivers data to the peer face, if any.
func (f *MemoryFace) SendData(d *defn.FwData) error {
	pkt := &defn.Pkt{Name: d.NameV}
	pkt.L3.Data = d
	return f.deliver(pkt)
}

// SendNack delivers a nack to the peer face, if any.
func (f *MemoryFace) SendNack(n *defn.FwNack) error {
	pkt := &defn.Pkt{Name: n.Interest.NameV}
	pkt.L3.Nack = n
	return f.deliver(pkt)
}

// Close marks the face closed; further sends to it fail.
func (f *MemoryFace) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
