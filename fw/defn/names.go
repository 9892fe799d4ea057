package defn

import enc "github.com/named-data/ndnd/std/encoding"

// STRATEGY_PREFIX is the namespace forwarding-strategy names live under.
var STRATEGY_PREFIX, _ = enc.NameFromStr("/localhost/nfd/strategy")

// LOCAL_PREFIX is the namespace local management commands live under.
var LOCAL_PREFIX, _ = enc.NameFromStr("/localhost/nfd")

// PconStrategyName is the versioned strategy name the PCON strategy
// registers itself under.
var PconStrategyName, _ = enc.NameFromStr("/localhost/nfd/strategy/pcon-strategy/%FD%01")

// MaxNDNPacketSize is the largest packet this forwarder will accept on a face.
const MaxNDNPacketSize = 8800
