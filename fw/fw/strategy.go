package fw

import (
	"math/rand"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/table"
	"github.com/named-data/ndnd/std/types/optional"
)

// Strategy is the per-prefix forwarding policy hooked into the five points
// in an Interest/Data/Nack's lifecycle the forwarding plane calls out to.
// BeforeSatisfyInterest takes the satisfying packet (Data or Nack) so PCON
// can read its congestion tag before forwarding the feedback back upstream.
// inRecordExisted tells AfterReceiveInterest whether pitEntry already had an
// in-record for inFace before this Interest's arrival was recorded - onReceive
// inserts the in-record ahead of the strategy call, so this is the only point
// a strategy can still tell a same-face retransmission from a first request.
type Strategy interface {
	Instantiate(fwThread *Thread)
	InstanceName() string
	InstanceVersion() uint64

	AfterContentStoreHit(packet *defn.Pkt, pitEntry table.PitEntry, inFace defn.FaceId)
	AfterReceiveData(packet *defn.Pkt, pitEntry table.PitEntry, inFace defn.FaceId)
	AfterReceiveInterest(packet *defn.Pkt, pitEntry table.PitEntry, inFace defn.FaceId, nexthops []*table.FibNextHopEntry, inRecordExisted bool)
	BeforeSatisfyInterest(packet *defn.Pkt, pitEntry table.PitEntry, inFace defn.FaceId)
	BeforeExpirePendingInterest(pitEntry table.PitEntry)
}

// strategyInit is the list of constructors for every compiled-in strategy,
// appended to by each strategy's init().
var strategyInit []func() Strategy

// StrategyVersions maps a strategy's short name to the instance versions it
// provides, populated by each strategy's init().
var StrategyVersions = make(map[string][]uint64)

// StrategyBase implements the bookkeeping common to every Strategy
// (identity, the owning Thread, and the Send* helpers that route through
// the thread's per-face dispatch queues) so a concrete strategy only needs
// to implement its decision logic.
type StrategyBase struct {
	thread  *Thread
	name    string
	version uint64
}

// NewStrategyBase wires up the embedding strategy's identity and owning thread.
func (s *StrategyBase) NewStrategyBase(fwThread *Thread, name string, version uint64) {
	s.thread = fwThread
	s.name = name
	s.version = version
}

// InstanceName returns the strategy's short registered name, e.g. "pcon-strategy".
func (s *StrategyBase) InstanceName() string { return s.name }

// InstanceVersion returns the strategy instance's version number.
func (s *StrategyBase) InstanceVersion() uint64 { return s.version }

// String identifies the strategy instance in log output.
func (s *StrategyBase) String() string { return s.name }

// SendInterest forwards packet's Interest out outFace, recording an
// out-record on pitEntry so the in-record side of the PIT entry is used to
// route the eventual Data/Nack back. When wantNewNonce is set, the Interest
// is forwarded with a freshly generated nonce instead of the one it arrived
// with, mirroring pcon-strategy.cpp's sendInterest(pitEntry, outFace,
// wantNewNonce) - used for same-face retransmissions and every probe.
func (s *StrategyBase) SendInterest(packet *defn.Pkt, pitEntry table.PitEntry, outFace defn.FaceId, inFace defn.FaceId, wantNewNonce bool) {
	if outFace == inFace {
		core.Log.Warn(s, "Attempted to send Interest back on incoming face - DROP", "name", packet.Name, "faceid", outFace)
		return
	}
	f, ok := s.thread.Faces.Get(outFace)
	if !ok {
		core.Log.Debug(s, "Attempted to send Interest on unknown face - DROP", "faceid", outFace)
		return
	}

	interest := packet.L3.Interest
	if wantNewNonce {
		fresh := *interest
		fresh.NonceV = optional.Some(rand.Uint32())
		interest = &fresh
	}

	pitEntry.InsertOutRecord(interest, outFace)
	s.thread.SendInterest(outFace, interest)
	_ = f
}

// SendData forwards packet's Data out outFace to satisfy pitEntry. inFace
// (or 0 for a Content Store hit) is accepted but not used.
func (s *StrategyBase) SendData(packet *defn.Pkt, pitEntry table.PitEntry, outFace defn.FaceId, inFace defn.FaceId) {
	if _, ok := s.thread.Faces.Get(outFace); !ok {
		core.Log.Debug(s, "Attempted to send Data on unknown face - DROP", "faceid", outFace)
		return
	}
	s.thread.SendData(outFace, packet.L3.Data)
}

// SendNack forwards packet's Nack out outFace.
func (s *StrategyBase) SendNack(packet *defn.Pkt, outFace defn.FaceId) {
	if _, ok := s.thread.Faces.Get(outFace); !ok {
		core.Log.Debug(s, "Attempted to send Nack on unknown face - DROP", "faceid", outFace)
		return
	}
	s.thread.SendNack(outFace, packet.L3.Nack)
}

// Thread returns the Thread this strategy instance is bound to.
func (s *StrategyBase) Thread() *Thread { return s.thread }
