package table

import (
	"sync"
	"time"

	"github.com/named-data/ndnd/fw/defn"
	enc "github.com/named-data/ndnd/std/encoding"
	"golang.org/x/exp/maps"
)

// TimeBetweenFwUpdate is the minimum time since a prefix's last weight
// reduction (LastUpdate) before a NACK-mark reduction is applied there, and
// how long a face must sit at zero weight before it is considered for the
// disabled set. Reductions driven by a congestion mark are not spaced by it.
const TimeBetweenFwUpdate = 110 * time.Millisecond

// ForwardingInfo is the per-prefix measurement PCON attaches to a FIB
// entry: the weighted split of Interest forwarding across that prefix's
// faces. Grounded on MtForwardingInfo in the original ndnSIM PCON source.
type ForwardingInfo struct {
	mu                sync.Mutex
	Prefix            enc.Name
	forwPerc          map[defn.FaceId]float64
	disabledFaces     map[defn.FaceId]struct{}
	disabledSince     map[defn.FaceId]time.Time
	lastFWRatioUpdate time.Time
}

// NewForwardingInfo returns an empty ForwardingInfo for prefix. Weights must
// be initialized separately (see strategy's initializeForwMap) once the set
// of eligible faces at the prefix is known.
func NewForwardingInfo(prefix enc.Name) *ForwardingInfo {
	return &ForwardingInfo{
		Prefix:        prefix,
		forwPerc:      make(map[defn.FaceId]float64),
		disabledFaces: make(map[defn.FaceId]struct{}),
		disabledSince: make(map[defn.FaceId]time.Time),
	}
}

// ForwPerc returns the forwarding weight of face, or 0 if unset.
func (fi *ForwardingInfo) ForwPerc(face defn.FaceId) float64 {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return fi.forwPerc[face]
}

// SetForwPerc sets the forwarding weight of face.
func (fi *ForwardingInfo) SetForwPerc(face defn.FaceId, perc float64) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.forwPerc[face] = perc
}

// IncreaseForwPerc adds changeRate (which may be negative) to face's weight.
func (fi *ForwardingInfo) IncreaseForwPerc(face defn.FaceId, changeRate float64) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.forwPerc[face] += changeRate
}

// FaceCount returns the number of faces with a tracked weight.
func (fi *ForwardingInfo) FaceCount() int {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return len(fi.forwPerc)
}

// ForwPercMap returns a snapshot copy of the weight table.
func (fi *ForwardingInfo) ForwPercMap() map[defn.FaceId]float64 {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return maps.Clone(fi.forwPerc)
}

// Faces returns the faces with a tracked weight, in no particular order.
func (fi *ForwardingInfo) Faces() []defn.FaceId {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return maps.Keys(fi.forwPerc)
}

// LastUpdate returns the time of the last weight reduction applied to any
// face at this prefix, used to enforce TimeBetweenFwUpdate.
func (fi *ForwardingInfo) LastUpdate() time.Time {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return fi.lastFWRatioUpdate
}

// IsDisabled reports whether face has been moved into the disabled set.
func (fi *ForwardingInfo) IsDisabled(face defn.FaceId) bool {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	_, ok := fi.disabledFaces[face]
	return ok
}

// DisabledFaces returns the current disabled set.
func (fi *ForwardingInfo) DisabledFaces() []defn.FaceId {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	out := make([]defn.FaceId, 0, len(fi.disabledFaces))
	for f := range fi.disabledFaces {
		out = append(out, f)
	}
	return out
}

// ReduceForwPerc reduces reducedFace's weight by change (clamped to its
// current weight, never driving it negative) and redistributes the same
// amount evenly across every other tracked face, preserving the invariant
// that weights sum to 1. Grounded on StrHelper::reduceFwPerc.
func (fi *ForwardingInfo) ReduceForwPerc(reducedFace defn.FaceId, change float64) {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	if len(fi.forwPerc) <= 1 {
		return
	}

	changeRate := -min(change, fi.forwPerc[reducedFace])
	fi.forwPerc[reducedFace] += changeRate

	others := 0
	for f := range fi.forwPerc {
		if f != reducedFace {
			others++
		}
	}
	if others > 0 {
		perOther := -changeRate / float64(others)
		for f := range fi.forwPerc {
			if f != reducedFace {
				fi.forwPerc[f] += perOther
			}
		}
	}

	fi.lastFWRatioUpdate = time.Now()
	fi.updateDisabled(reducedFace)
}

// updateDisabled moves a face into/out of the disabled set based on
// whether its weight has sat at (numerically) zero past TimeBetweenFwUpdate.
// Caller must hold fi.mu. Supplements the original's commented-out
// disable/enable bookkeeping in MtForwardingInfo.
func (fi *ForwardingInfo) updateDisabled(face defn.FaceId) {
	const epsilon = 1e-9
	if fi.forwPerc[face] > epsilon {
		delete(fi.disabledFaces, face)
		delete(fi.disabledSince, face)
		return
	}

	since, tracked := fi.disabledSince[face]
	if !tracked {
		fi.disabledSince[face] = time.Now()
		return
	}
	if time.Since(since) > TimeBetweenFwUpdate {
		fi.disabledFaces[face] = struct{}{}
	}
}

// measurementsEntry is a node in the measurements table, holding whatever
// per-prefix state a strategy has accumulated.
type measurementsEntry struct {
	name enc.Name
	info *ForwardingInfo
}

// MeasurementsTable maps name prefixes to PCON's ForwardingInfo, supporting
// the longest-prefix-match lookup the strategy performs on every Interest.
// Keyed by xxhash of each name prefix the same way Name.PrefixHash is
// computed, so a match walks from the full name down to the root in O(depth).
type MeasurementsTable struct {
	mu      sync.RWMutex
	entries map[uint64]*measurementsEntry
}

// NewMeasurementsTable returns an empty measurements table.
func NewMeasurementsTable() *MeasurementsTable {
	return &MeasurementsTable{entries: make(map[uint64]*measurementsEntry)}
}

// GetOrCreate returns the ForwardingInfo at exactly name, creating it (with
// no faces initialized yet) if absent.
func (m *MeasurementsTable) GetOrCreate(name enc.Name) *ForwardingInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := name.Hash()
	e, ok := m.entries[key]
	if !ok {
		e = &measurementsEntry{name: name.Clone(), info: NewForwardingInfo(name.Clone())}
		m.entries[key] = e
	}
	return e.info
}

// FindLongestPrefixMatch walks name's prefixes from longest to shortest and
// returns the first one with a measurements entry, along with that entry's
// ForwardingInfo. Grounded on StrHelper::findPrefixMeasurementsLPM.
func (m *MeasurementsTable) FindLongestPrefixMatch(name enc.Name) (enc.Name, *ForwardingInfo) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hashes := name.PrefixHash()
	for i := len(hashes) - 1; i >= 0; i-- {
		if e, ok := m.entries[hashes[i]]; ok {
			return e.name, e.info
		}
	}
	return nil, nil
}

// Erase removes the measurements entry at exactly name, if present.
func (m *MeasurementsTable) Erase(name enc.Name) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name.Hash())
}
