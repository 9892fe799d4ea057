package table

import (
	"sync"

	"github.com/named-data/ndnd/fw/defn"
	enc "github.com/named-data/ndnd/std/encoding"
)

// FibNextHopEntry is one egress choice for a FIB/strategy entry: a face and
// its routing cost.
type FibNextHopEntry struct {
	Nexthop defn.FaceId
	Cost    uint64
}

// baseFibStrategyEntry is a node in the FIB/strategy name tree: the set of
// nexthops registered at a name, and the forwarding strategy bound there.
type baseFibStrategyEntry struct {
	component enc.Component
	name      enc.Name
	nexthops  []*FibNextHopEntry
	strategy  enc.Name
}

// Name returns the full name this entry is registered at.
func (e *baseFibStrategyEntry) Name() enc.Name {
	return e.name
}

// GetStrategy returns the strategy name bound to this entry.
func (e *baseFibStrategyEntry) GetStrategy() enc.Name {
	return e.strategy
}

// GetNextHops returns the nexthops registered at this entry.
func (e *baseFibStrategyEntry) GetNextHops() []*FibNextHopEntry {
	return e.nexthops
}

// FibStrategyEntry is the interface PCON and management code consume;
// baseFibStrategyEntry is the only implementation.
type FibStrategyEntry interface {
	Name() enc.Name
	GetStrategy() enc.Name
	GetNextHops() []*FibNextHopEntry
}

// fibStrategyTableImpl is a flat, hash-keyed FIB/strategy table. The real
// forwarder this is modeled on keeps a full name trie for longest-prefix
// match; here entries sit in a map keyed by the name hash, exact-name
// lookups hit it directly, and longest-prefix lookups (FindNextHopsLPM,
// GetStrategyLPM) probe it once per prefix hash, the same approach this
// spec's measurements table (see measurements.go) takes.
type fibStrategyTableImpl struct {
	mu      sync.RWMutex
	entries map[uint64]*baseFibStrategyEntry
}

// FibStrategyTable is the process-wide FIB/strategy table.
var FibStrategyTable = &fibStrategyTableImpl{
	entries: make(map[uint64]*baseFibStrategyEntry),
}

func (t *fibStrategyTableImpl) getOrCreate(name enc.Name) *baseFibStrategyEntry {
	key := name.Hash()
	e, ok := t.entries[key]
	if !ok {
		var comp enc.Component
		if len(name) > 0 {
			comp = name[len(name)-1]
		}
		e = &baseFibStrategyEntry{component: comp, name: name.Clone()}
		t.entries[key] = e
	}
	return e
}

// InsertNextHopEnc adds or updates a nexthop for name, set to face with the
// given cost.
func (t *fibStrategyTableImpl) InsertNextHopEnc(name enc.Name, face defn.FaceId, cost uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.getOrCreate(name)
	for _, nh := range e.nexthops {
		if nh.Nexthop == face {
			nh.Cost = cost
			return
		}
	}
	e.nexthops = append(e.nexthops, &FibNextHopEntry{Nexthop: face, Cost: cost})
}

// RemoveNextHopEnc removes face as a nexthop of name, if present.
func (t *fibStrategyTableImpl) RemoveNextHopEnc(name enc.Name, face defn.FaceId) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[name.Hash()]
	if !ok {
		return
	}
	filtered := e.nexthops[:0]
	for _, nh := range e.nexthops {
		if nh.Nexthop != face {
			filtered = append(filtered, nh)
		}
	}
	e.nexthops = filtered
}

// SetStrategyEnc binds strategy as the forwarding strategy for name.
func (t *fibStrategyTableImpl) SetStrategyEnc(name enc.Name, strategy enc.Name) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.getOrCreate(name)
	e.strategy = strategy
}

// UnSetStrategyEnc clears the strategy bound at name, if any.
func (t *fibStrategyTableImpl) UnSetStrategyEnc(name enc.Name) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[name.Hash()]; ok {
		e.strategy = nil
	}
}

// FindNextHopsEnc returns the nexthops registered exactly at name, or nil.
func (t *fibStrategyTableImpl) FindNextHopsEnc(name enc.Name) []*FibNextHopEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e, ok := t.entries[name.Hash()]; ok {
		return e.nexthops
	}
	return nil
}

// FindNextHopsLPM walks name's prefixes from longest to shortest and returns
// the nexthops of the first entry that has any, mirroring the real FIB's
// longest-prefix-match lookup (this spec's flat table trades the trie for a
// per-prefix hash, same tradeoff as MeasurementsTable.FindLongestPrefixMatch).
func (t *fibStrategyTableImpl) FindNextHopsLPM(name enc.Name) []*FibNextHopEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	hashes := name.PrefixHash()
	for i := len(hashes) - 1; i >= 0; i-- {
		if e, ok := t.entries[hashes[i]]; ok && len(e.nexthops) > 0 {
			return e.nexthops
		}
	}
	return nil
}

// GetStrategyLPM walks name's prefixes from longest to shortest and returns
// the strategy name bound at the first match, or nil if none is bound.
func (t *fibStrategyTableImpl) GetStrategyLPM(name enc.Name) enc.Name {
	t.mu.RLock()
	defer t.mu.RUnlock()

	hashes := name.PrefixHash()
	for i := len(hashes) - 1; i >= 0; i-- {
		if e, ok := t.entries[hashes[i]]; ok && e.strategy != nil {
			return e.strategy
		}
	}
	return nil
}

// GetAllFIBEntries returns every entry that has at least one nexthop.
func (t *fibStrategyTableImpl) GetAllFIBEntries() []FibStrategyEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]FibStrategyEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if len(e.nexthops) > 0 {
			out = append(out, e)
		}
	}
	return out
}

// GetAllForwardingStrategies returns every entry that has a strategy bound.
func (t *fibStrategyTableImpl) GetAllForwardingStrategies() []FibStrategyEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]FibStrategyEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if e.strategy != nil {
			out = append(out, e)
		}
	}
	return out
}
