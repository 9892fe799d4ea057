// Package utils holds small helpers shared across the forwarder that don't
// belong to any one subsystem.
package utils

import (
	"encoding/binary"
	"reflect"
	"time"

	"github.com/named-data/ndnd/std/types/optional"
)

// NDNdVersion is reported by the CLI's --version flag.
const NDNdVersion = "0.1.0-pcon"

// IdPtr returns a pointer to v, useful for taking the address of a literal.
func IdPtr[T any](v T) *T {
	return &v
}

// MakeTimestamp converts t to milliseconds since the Unix epoch.
func MakeTimestamp(t time.Time) uint64 {
	return uint64(t.UnixMilli())
}

// ConvertNonce parses a 4-byte big-endian Interest nonce. A nonce of the
// wrong length is reported as unset rather than erroring, since a missing
// nonce is a normal (if discouraged) Interest.
func ConvertNonce(nonce []byte) optional.Optional[uint32] {
	if len(nonce) != 4 {
		return optional.None[uint32]()
	}
	return optional.Some(binary.BigEndian.Uint32(nonce))
}

// HeaderEqual reports whether a and b share the same underlying array,
// length, and capacity — i.e. whether they are the exact same slice header,
// not merely element-wise equal.
func HeaderEqual[T any](a, b []T) bool {
	if len(a) != len(b) || cap(a) != cap(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
