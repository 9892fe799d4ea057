package defn

// NackType mirrors the three states PCON needs on the return path: no NACK
// at all, a NACK that should not itself mark the window, and a NACK that
// should. Grounded on ndn-cxx's CongestionTag, which stores this as a plain
// int8_t rather than a real NDN NACK reason code.
type NackType int8

const (
	NackTypeNone   NackType = -1
	NackTypeNoMark NackType = 17
	NackTypeMark   NackType = 23
)

// CongestionTag rides along on Data and Nack packets on their way back to
// the consumer, carrying the marking state accumulated at every congested
// hop. The forwarding strategy OR-merges it hop by hop rather than
// overwriting it, so the
// consumer sees whether *any* link on the path was congested.
type CongestionTag struct {
	NackType          NackType
	CongMark          int8
	HighCongMark      bool
	HighCongMarkLocal bool
}

// congestionTagWireLen is the wire size of an encoded CongestionTag: one
// byte each for NackType and CongMark, one byte each for the two bools.
const congestionTagWireLen = 4

// NewCongestionTag returns an empty tag equivalent to no congestion seen.
func NewCongestionTag() *CongestionTag {
	return &CongestionTag{NackType: NackTypeNone}
}

// Merge OR-merges other into t: the combination used when a Data packet
// picks up more congestion markings as it is forwarded back downstream.
// HighCongMarkLocal is never propagated past the hop that set it (it
// describes that hop's own egress queue), so it is left untouched here and
// must be set directly by the hop experiencing it.
func (t *CongestionTag) Merge(other *CongestionTag) {
	if other == nil {
		return
	}
	if other.CongMark > t.CongMark {
		t.CongMark = other.CongMark
	}
	t.HighCongMark = t.HighCongMark || other.HighCongMark
	if t.NackType == NackTypeNone {
		t.NackType = other.NackType
	}
}

// Encode serializes the tag into the 4-byte wire format used on the
// congestion-tag TLV: {nackType int8, congMark int8, highCongMark bool,
// highCongMarkLocal bool}.
func (t *CongestionTag) Encode() []byte {
	buf := make([]byte, congestionTagWireLen)
	buf[0] = byte(t.NackType)
	buf[1] = byte(t.CongMark)
	if t.HighCongMark {
		buf[2] = 1
	}
	if t.HighCongMarkLocal {
		buf[3] = 1
	}
	return buf
}

// DecodeCongestionTag parses the 4-byte wire format written by Encode.
func DecodeCongestionTag(buf []byte) (*CongestionTag, bool) {
	if len(buf) != congestionTagWireLen {
		return nil, false
	}
	return &CongestionTag{
		NackType:          NackType(int8(buf[0])),
		CongMark:          int8(buf[1]),
		HighCongMark:      buf[2] != 0,
		HighCongMarkLocal: buf[3] != 0,
	}, true
}
