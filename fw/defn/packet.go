package defn

import (
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/types/optional"
)

// FwInterest is the subset of an Interest's fields the forwarding plane
// needs: enough to make a strategy decision and maintain PIT state, without
// carrying a full NDN packet codec.
type FwInterest struct {
	NameV             enc.Name
	NonceV            optional.Optional[uint32]
	CanBePrefixV      bool
	MustBeFreshV      bool
	InterestLifetimeV optional.Optional[time.Duration]
	ForwardingHintV   enc.Name
	HopLimitV         optional.Optional[uint8]
}

// FwData is the subset of a Data packet's fields the forwarding plane needs.
type FwData struct {
	NameV            enc.Name
	ContentV         []byte
	FreshnessPeriodV optional.Optional[time.Duration]
	CongestionTagV   *CongestionTag
}

// FwNack carries a forwarder-generated or relayed NACK.
type FwNack struct {
	Interest *FwInterest
	Reason   string
	Tag      *CongestionTag
}

// Pkt bundles a decoded name with whichever of the three packet kinds it
// represents, the shape every strategy hook receives.
type Pkt struct {
	Name enc.Name
	L3   struct {
		Interest *FwInterest
		Data     *FwData
		Nack     *FwNack
	}
}
