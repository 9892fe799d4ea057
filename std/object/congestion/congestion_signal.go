package congestion

// SignalKind classifies the event a CongestionWindow reacts to.
type SignalKind int

const (
	// SignalData is a successfully arrived Data packet, carrying whatever
	// congestion marking its tag accumulated on the way back.
	SignalData SignalKind = iota
	// SignalTimeout is a PIT/RTO expiry with no Data received.
	SignalTimeout
)

// NackType mirrors fw/defn.NackType's wire values without importing the
// forwarder package from std; only the MARK value is ever compared against.
const NackTypeMark int8 = 23

// CongestionSignal is delivered to CongestionWindow.HandleSignal on every
// Data arrival or timeout a consumer observes.
type CongestionSignal struct {
	Kind SignalKind

	// Seq is the sequence number of the Data/timeout this signal concerns.
	Seq uint64
	// CurrentSeq is the consumer's most recently assigned send sequence
	// number, used to stamp recoveryPoint under conservative decrease.
	CurrentSeq uint64

	// CongMark and NackType mirror the satisfying Data/Nack's tag fields
	// (zero value for a timeout, which carries no tag).
	CongMark bool
	NackType int8
}
