package fw

import (
	"math/rand"
	"time"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/table"
)

// highCongThresholdPct and highCongThresholdDelay are isHighlyCongested's
// two thresholds (SUPPLEMENTED FEATURES item 1), defaulted from
// str-helper.hpp's thresholdPct/thresholdDelayInMs.
const (
	highCongThresholdPct   = 0.9
	highCongThresholdDelay = 1000 * time.Millisecond
)

func init() {
	strategyInit = append(strategyInit, func() Strategy { return &Pcon{} })
	// Keyed by the strategy name's path component ("pcon-strategy", per
	// defn.PconStrategyName) rather than the short display name, since
	// that's the component strategy-choice and the FIB-bound lookup both
	// parse out of a registered strategy name.
	StrategyVersions["pcon-strategy"] = []uint64{1}
}

// Pcon is the per-prefix weighted multipath strategy: it maintains a
// probability distribution over a prefix's upstream faces, revises it on
// every marked Data packet or marked NACK, and chooses an egress face per
// Interest by weighted random draw. Grounded on the forwarding-strategy
// half of the ndnSIM PCON source (StrHelper and the PCON strategy class).
type Pcon struct {
	StrategyBase

	initShortestPath  bool
	changePerMark     float64
	probingPercentage float64
}

// Instantiate wires the strategy to fwThread and reads its tunables from
// the thread's config, falling back to the package defaults if unset.
func (s *Pcon) Instantiate(fwThread *Thread) {
	// name must match the path component of defn.PconStrategyName, since
	// that's what strategy-choice lookups and Thread.strategyFor resolve
	// against (see StrategyVersions's registration key below).
	s.NewStrategyBase(fwThread, "pcon-strategy", 1)

	s.initShortestPath = true
	s.changePerMark = 0.02
	s.probingPercentage = 0.001
	if fwThread.Config != nil {
		cfg := fwThread.Config.Strategy.Pcon
		s.initShortestPath = cfg.InitShortestPath
		s.changePerMark = cfg.ChangePerMark
		s.probingPercentage = cfg.ProbingPercentage
	}
}

// initializeForwMap seeds a freshly created ForwardingInfo's weights: if any
// next hop is local, or INIT_SHORTEST_PATH is set, the lowest-numbered
// FaceId gets weight 1.0 and every other hop gets 0.0; otherwise weight is
// split uniformly. Grounded on spec.md §4.3's weight-initialization rule
// (StrHelper's use of FaceId as a shortest-path proxy).
func (s *Pcon) initializeForwMap(info *table.ForwardingInfo, nexthops []*table.FibNextHopEntry, faces *faceLookup) {
	hasLocal := false
	for _, nh := range nexthops {
		if f, ok := faces.get(nh.Nexthop); ok && f.IsLocal() {
			hasLocal = true
			break
		}
	}

	if hasLocal || s.initShortestPath {
		lowest := nexthops[0].Nexthop
		for _, nh := range nexthops[1:] {
			if nh.Nexthop < lowest {
				lowest = nh.Nexthop
			}
		}
		for _, nh := range nexthops {
			if nh.Nexthop == lowest {
				info.SetForwPerc(nh.Nexthop, 1.0)
			} else {
				info.SetForwPerc(nh.Nexthop, 0.0)
			}
		}
		return
	}

	uniform := 1.0 / float64(len(nexthops))
	for _, nh := range nexthops {
		info.SetForwPerc(nh.Nexthop, uniform)
	}
}

// faceLookup is a tiny adapter so initializeForwMap can ask whether a
// candidate nexthop is local without importing face.Table directly into
// every call site.
type faceLookup struct {
	thread *Thread
}

func (l *faceLookup) get(id defn.FaceId) (interface{ IsLocal() bool }, bool) {
	return l.thread.Faces.Get(id)
}

// eligible reports whether nexthop n can carry this Interest, which only
// excludes the incoming face. Scope is not checked (NDN scope enforcement is
// an external-collaborator concern per spec.md §6), and down faces
// (metric == DownFaceMetric) are filtered by the caller, not here.
func eligible(n *table.FibNextHopEntry, inFace defn.FaceId) bool {
	if n.Nexthop == inFace {
		return false
	}
	return true
}

// AfterContentStoreHit has no content store to source from in this build
// (content-store replacement is out of scope); kept only so Pcon satisfies
// the Strategy interface, and logs if ever called.
func (s *Pcon) AfterContentStoreHit(packet *defn.Pkt, pitEntry table.PitEntry, inFace defn.FaceId) {
	core.Log.Warn(s, "AfterContentStoreHit invoked with no content store present", "name", packet.Name)
}

// AfterReceiveData forwards the (already mark-merged, see BeforeSatisfyInterest)
// Data to every face with a pending in-record other than the one it arrived on.
func (s *Pcon) AfterReceiveData(packet *defn.Pkt, pitEntry table.PitEntry, inFace defn.FaceId) {
	for faceID := range pitEntry.InRecords() {
		if faceID == inFace {
			continue
		}
		s.SendData(packet, pitEntry, faceID, inFace)
	}
}

// AfterReceiveInterest is the nine-step egress-selection algorithm of
// spec.md §4.3: suppression, eligibility filtering, weighted random
// selection, congestion-mark stamping, and probabilistic probing.
func (s *Pcon) AfterReceiveInterest(
	packet *defn.Pkt,
	pitEntry table.PitEntry,
	inFace defn.FaceId,
	nexthops []*table.FibNextHopEntry,
	inRecordExisted bool,
) {
	if len(nexthops) == 0 {
		core.Log.Debug(s, "No nexthop for Interest - DROP", "name", packet.Name)
		return
	}

	info := s.Thread().Measurements.GetOrCreate(packet.Name)
	if info.FaceCount() == 0 {
		s.initializeForwMap(info, nexthops, &faceLookup{thread: s.Thread()})
	}

	// Suppression mirrors pcon-strategy.cpp's afterReceiveInterest: if this
	// name is already pending (an unexpired out-record exists), a genuine
	// retransmission on the SAME face - its in-record already existed
	// before onReceive inserted/renewed it for this arrival - is forwarded
	// again with a fresh nonce (wantNewNonce). Arrival on a face with no
	// prior in-record is a duplicate of an already-in-flight request and is
	// suppressed; the requester still gets the Data once it returns, via
	// AfterReceiveData's in-record fan-out.
	wantNewNonce := false
	if pitEntry.HasUnexpiredOutRecords() {
		if inRecordExisted {
			wantNewNonce = true
		} else {
			core.Log.Trace(s, "Suppressed Interest", "name", packet.Name)
			return
		}
	}

	// candidateHops excludes only down/incoming faces, and is what probing
	// draws from so a disabled face can still recover. weightedHops further
	// excludes disabled faces from the weighted draw's denominator.
	candidateHops := make([]*table.FibNextHopEntry, 0, len(nexthops))
	for _, n := range nexthops {
		f, ok := s.Thread().Faces.Get(n.Nexthop)
		if !ok || f.Metric() == defn.DownFaceMetric {
			continue
		}
		if !eligible(n, inFace) {
			continue
		}
		candidateHops = append(candidateHops, n)
	}

	if len(candidateHops) == 0 {
		core.Log.Debug(s, "No eligible nexthop for Interest - DROP", "name", packet.Name)
		return
	}

	weightedHops := make([]*table.FibNextHopEntry, 0, len(candidateHops))
	for _, n := range candidateHops {
		if !info.IsDisabled(n.Nexthop) {
			weightedHops = append(weightedHops, n)
		}
	}
	if len(weightedHops) == 0 {
		// Every eligible face is currently disabled - fall back to the full
		// candidate set rather than black-holing the Interest.
		weightedHops = candidateHops
	}

	var chosen *table.FibNextHopEntry
	if len(weightedHops) == 1 {
		chosen = weightedHops[0]
	} else {
		chosen = s.weightedChoice(info, weightedHops)
	}

	egressQueue := s.Thread().QueueFor(chosen.Nexthop)
	if egressQueue.IsOkToMark() {
		pitEntry.SetCongMark(true)
	}
	if egressQueue.IsHighlyCongested(highCongThresholdPct, highCongThresholdDelay) {
		pitEntry.SetHighCongMark(true)
	}

	s.SendInterest(packet, pitEntry, chosen.Nexthop, inFace, wantNewNonce)

	if rand.Float64() < s.probingPercentage {
		for _, n := range candidateHops {
			if n.Nexthop == chosen.Nexthop {
				continue
			}
			core.Log.Trace(s, "Probing", "name", packet.Name, "faceid", n.Nexthop)
			s.SendInterest(packet, pitEntry, n.Nexthop, inFace, true)
		}
	}
}

// weightedChoice draws one of hops by forwarding weight, tolerating minor
// floating-point drift in the accumulated sum (spec.md §4.3's "cum in
// [0, 1.1]" tolerance).
func (s *Pcon) weightedChoice(info *table.ForwardingInfo, hops []*table.FibNextHopEntry) *table.FibNextHopEntry {
	sum := 0.0
	for _, n := range hops {
		sum += info.ForwPerc(n.Nexthop)
	}
	if sum <= 0 {
		core.Log.Fatal(s, "Weighted selection sum is zero - routing misconfiguration")
		return hops[0]
	}

	r := rand.Float64()
	cum := 0.0
	for _, n := range hops {
		cum += info.ForwPerc(n.Nexthop) / sum
		if r < cum {
			return n
		}
	}
	return hops[len(hops)-1]
}

// BeforeSatisfyInterest is the feedback path of spec.md §4.3: it looks up
// the longest-prefix-matching ForwardingInfo for the satisfied name, reads
// the incoming packet's congestion tag, conditionally reduces the incoming
// face's weight, and rewrites the tag with the OR-merged mark before the
// packet is forwarded downstream by AfterReceiveData.
func (s *Pcon) BeforeSatisfyInterest(packet *defn.Pkt, pitEntry table.PitEntry, inFace defn.FaceId) {
	_, info := s.Thread().Measurements.FindLongestPrefixMatch(pitEntry.EncName())
	if info == nil {
		core.Log.Debug(s, "No ForwardingInfo for satisfied Interest", "name", pitEntry.EncName())
		s.mergeTag(packet, inFace, pitEntry)
		return
	}

	congMark, nackType, _ := s.tagFields(packet)

	isLocal := false
	if f, ok := s.Thread().Faces.Get(inFace); ok {
		isLocal = f.IsLocal()
	}

	if info.FaceCount() > 1 && !isLocal {
		shouldUpdate := false
		if congMark {
			shouldUpdate = true
		} else if nackType == defn.NackTypeMark && time.Since(info.LastUpdate()) >= table.TimeBetweenFwUpdate {
			shouldUpdate = true
		}
		if shouldUpdate {
			info.ReduceForwPerc(inFace, s.changePerMark*info.ForwPerc(inFace))
			s.emitTrace(info)
		}
	}

	s.mergeTag(packet, inFace, pitEntry)
}

// tagFields extracts the congestion mark, nack type, and high-congestion
// mark carried by whichever of Data or Nack is satisfying the PIT entry,
// treating an absent tag as all-zero per spec.md §4.3 step 2.
func (s *Pcon) tagFields(packet *defn.Pkt) (congMark bool, nackType defn.NackType, highCongMark bool) {
	switch {
	case packet.L3.Data != nil && packet.L3.Data.CongestionTagV != nil:
		tag := packet.L3.Data.CongestionTagV
		return tag.CongMark != 0, defn.NackType(tag.NackType), tag.HighCongMark
	case packet.L3.Nack != nil && packet.L3.Nack.Tag != nil:
		tag := packet.L3.Nack.Tag
		return tag.CongMark != 0, defn.NackType(tag.NackType), tag.HighCongMark
	}
	return false, defn.NackTypeNone, false
}

// mergeTag OR-merges the queue's own ok-to-mark signal and the PIT entry's
// congestion bit into the satisfying packet's tag before it is relayed
// further downstream, per spec.md §4.3 step 5. It also OR-merges highCongMark
// the same way, and sets highCongMarkLocal directly from this hop's own
// egress queue (SUPPLEMENTED FEATURES item 1) - that bit is never itself
// OR-merged further downstream, since it describes only the hop that set it.
func (s *Pcon) mergeTag(packet *defn.Pkt, inFace defn.FaceId, pitEntry table.PitEntry) {
	congMark, nackType, highCongMark := s.tagFields(packet)

	queue := s.Thread().QueueFor(inFace)
	queueMarked := queue.IsOkToMark()
	highCongLocal := queue.IsHighlyCongested(highCongThresholdPct, highCongThresholdDelay)

	merged := congMark || queueMarked || pitEntry.CongMark()
	mergedHighCong := highCongMark || highCongLocal || pitEntry.HighCongMark()

	tag := &defn.CongestionTag{
		NackType:          nackType,
		CongMark:          boolToInt8(merged),
		HighCongMark:      mergedHighCong,
		HighCongMarkLocal: highCongLocal,
	}

	switch {
	case packet.L3.Data != nil:
		packet.L3.Data.CongestionTagV = tag
	case packet.L3.Nack != nil:
		packet.L3.Nack.Tag = tag
	}
}

func boolToInt8(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

// BeforeExpirePendingInterest reduces the weight of the front out-record's
// face by the unscaled CHANGE_PER_MARK magnitude, per spec.md §4.3's
// explicitly preserved asymmetry with the data-arrival path (see DESIGN.md
// for the Open Question this resolves).
func (s *Pcon) BeforeExpirePendingInterest(pitEntry table.PitEntry) {
	_, info := s.Thread().Measurements.FindLongestPrefixMatch(pitEntry.EncName())
	if info == nil || info.FaceCount() <= 1 {
		return
	}

	var front defn.FaceId
	var earliest time.Time
	set := false
	for faceID, rec := range pitEntry.OutRecords() {
		if !set || rec.LatestTimestamp.Before(earliest) {
			front = faceID
			earliest = rec.LatestTimestamp
			set = true
		}
	}
	if !set {
		return
	}

	if info.ForwPerc(front) > 0 {
		info.ReduceForwPerc(front, s.changePerMark)
		s.emitTrace(info)
	}
}

// emitTrace writes one fwperc row per face currently tracked at info's
// prefix to the thread's trace sink. Grounded on the original's
// printFwPerc call from the same weight-update sites (SUPPLEMENTED
// FEATURES item 3); rate-limiting to TIME_BETWEEN_FW_WRITE happens inside
// the Recorder so a burst of updates across many faces doesn't flood the
// sink.
func (s *Pcon) emitTrace(info *table.ForwardingInfo) {
	prefix := info.Prefix.String()
	for face, weight := range info.ForwPercMap() {
		s.Thread().Trace.RecordForwPerc(prefix, face, weight)
	}
}

