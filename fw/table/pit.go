package table

import (
	"sync"
	"time"

	"github.com/named-data/ndnd/fw/defn"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/types/priority_queue"
)

// PitInRecord tracks one face's most recent incoming copy of an Interest
// pending in the PIT, used to decide where Data must be sent back to and
// to detect retransmissions for suppression.
type PitInRecord struct {
	Face            defn.FaceId
	LatestNonce     uint32
	LatestTimestamp time.Time
	LatestEncInt    *defn.FwInterest
	PitToken        []byte
}

// PitOutRecord tracks one face an Interest has been forwarded out of,
// including when it expires so the strategy can tell a stale attempt from
// a fresh one for suppression and weight-update purposes.
type PitOutRecord struct {
	Face            defn.FaceId
	LatestNonce     uint32
	LatestTimestamp time.Time
	ExpirationTime  time.Time
}

// basePitEntry is one Pending Interest Table entry: a name (with selectors)
// that has outstanding in/out records across one or more faces. Every face's
// dispatch goroutine can reach the same entry concurrently (e.g. two faces
// racing to insert an in-record for the same retransmitted Interest), so
// its mutable fields are guarded by mu the same way ForwardingInfo guards
// its own weight table.
type basePitEntry struct {
	mu sync.Mutex

	key uint64
	tbl *pitTableImpl

	encname           enc.Name
	canBePrefix       bool
	mustBeFresh       bool
	forwardingHintNew enc.Name
	expirationTime    time.Time
	satisfied         bool
	token             uint32
	congMark          bool
	highCongMark      bool
	inRecords         map[uint64]*PitInRecord
	outRecords        map[uint64]*PitOutRecord
}

// PitEntry is the interface strategies and the PIT table consume.
type PitEntry interface {
	EncName() enc.Name
	CanBePrefix() bool
	MustBeFresh() bool
	ForwardingHintNew() enc.Name
	InRecords() map[uint64]*PitInRecord
	OutRecords() map[uint64]*PitOutRecord
	ExpirationTime() time.Time
	Satisfied() bool
	SetSatisfied(bool)
	Token() uint32
	CongMark() bool
	SetCongMark(bool)
	HighCongMark() bool
	SetHighCongMark(bool)
	InsertInRecord(interest *defn.FwInterest, faceID uint64, pitToken []byte) (record *PitInRecord, alreadyExists bool, prevNonce uint32)
	InsertOutRecord(interest *defn.FwInterest, faceID uint64) *PitOutRecord
	HasUnexpiredOutRecords() bool
}

// EncName returns the entry's name.
func (e *basePitEntry) EncName() enc.Name { return e.encname }

// CanBePrefix reports whether the original Interest set CanBePrefix.
func (e *basePitEntry) CanBePrefix() bool { return e.canBePrefix }

// MustBeFresh reports whether the original Interest set MustBeFresh.
func (e *basePitEntry) MustBeFresh() bool { return e.mustBeFresh }

// ForwardingHintNew returns the forwarding hint carried by the Interest, if any.
func (e *basePitEntry) ForwardingHintNew() enc.Name { return e.forwardingHintNew }

// InRecords returns a snapshot copy of the entry's in-records, keyed by face ID.
func (e *basePitEntry) InRecords() map[uint64]*PitInRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[uint64]*PitInRecord, len(e.inRecords))
	for k, v := range e.inRecords {
		out[k] = v
	}
	return out
}

// OutRecords returns a snapshot copy of the entry's out-records, keyed by face ID.
func (e *basePitEntry) OutRecords() map[uint64]*PitOutRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[uint64]*PitOutRecord, len(e.outRecords))
	for k, v := range e.outRecords {
		out[k] = v
	}
	return out
}

// ExpirationTime returns the latest expiration across the entry's records.
func (e *basePitEntry) ExpirationTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expirationTime
}

func (e *basePitEntry) setExpirationTime(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expirationTime = t
}

// Satisfied reports whether this entry has already been satisfied by Data.
func (e *basePitEntry) Satisfied() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.satisfied
}

// SetSatisfied marks the entry satisfied or unsatisfied.
func (e *basePitEntry) SetSatisfied(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.satisfied = v
}

// Token returns the PIT token assigned to this entry.
func (e *basePitEntry) Token() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token
}

// CongMark reports whether this pending Interest carries a congestion mark
// (set by the strategy when the chosen egress queue was ok-to-mark at the
// time the Interest was sent).
func (e *basePitEntry) CongMark() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.congMark
}

// SetCongMark sets the congestion-mark flag.
func (e *basePitEntry) SetCongMark(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.congMark = v
}

// HighCongMark reports whether a highly-congested signal was observed.
func (e *basePitEntry) HighCongMark() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.highCongMark
}

// SetHighCongMark sets the highly-congested flag.
func (e *basePitEntry) SetHighCongMark(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.highCongMark = v
}

// ClearInRecords removes every in-record from the entry.
func (e *basePitEntry) ClearInRecords() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inRecords = make(map[uint64]*PitInRecord)
}

// ClearOutRecords removes every out-record from the entry.
func (e *basePitEntry) ClearOutRecords() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outRecords = make(map[uint64]*PitOutRecord)
}

// InsertInRecord inserts or updates the in-record for interest arriving on
// faceID, returning the record, whether one already existed for that face,
// and (if so) its previous nonce.
func (e *basePitEntry) InsertInRecord(
	interest *defn.FwInterest, faceID uint64, pitToken []byte,
) (record *PitInRecord, alreadyExists bool, prevNonce uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inRecords == nil {
		e.inRecords = make(map[uint64]*PitInRecord)
	}

	nonce, _ := interest.NonceV.Get()

	existing, ok := e.inRecords[faceID]
	if ok {
		prevNonce = existing.LatestNonce
		existing.LatestNonce = nonce
		existing.LatestTimestamp = time.Now()
		existing.LatestEncInt = interest
		existing.PitToken = pitToken
		return existing, true, prevNonce
	}

	record = &PitInRecord{
		Face:            faceID,
		LatestNonce:     nonce,
		LatestTimestamp: time.Now(),
		LatestEncInt:    interest,
		PitToken:        pitToken,
	}
	e.inRecords[faceID] = record
	return record, false, 0
}

// InsertOutRecord inserts or updates the out-record for interest sent out
// faceID, extending the PIT entry's expiration time if the new record's
// lifetime reaches further into the future, and re-indexing the entry in
// the table's expiry queue when it does.
func (e *basePitEntry) InsertOutRecord(interest *defn.FwInterest, faceID uint64) *PitOutRecord {
	e.mu.Lock()

	if e.outRecords == nil {
		e.outRecords = make(map[uint64]*PitOutRecord)
	}

	nonce, _ := interest.NonceV.Get()
	lifetime := interest.InterestLifetimeV.GetOr(4 * time.Second)
	expiration := time.Now().Add(lifetime)

	record, ok := e.outRecords[faceID]
	if !ok {
		record = &PitOutRecord{Face: faceID}
		e.outRecords[faceID] = record
	}
	record.LatestNonce = nonce
	record.LatestTimestamp = time.Now()
	record.ExpirationTime = expiration

	extended := expiration.After(e.expirationTime)
	if extended {
		e.expirationTime = expiration
	}
	key, tbl := e.key, e.tbl
	e.mu.Unlock()

	if extended && tbl != nil {
		tbl.touchExpiry(key, expiration)
	}
	return record
}

// HasUnexpiredOutRecords reports whether any out-record for this entry has
// not yet expired, used to decide whether an Interest is still "pending" at
// a given moment rather than merely present in the table.
func (e *basePitEntry) HasUnexpiredOutRecords() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	for _, r := range e.outRecords {
		if r.ExpirationTime.After(now) {
			return true
		}
	}
	return false
}

// pitTableImpl is the process-wide Pending Interest Table, keyed by name
// hash only; selectors are not part of the lookup key. expiry is a min-heap of
// (key, expiration) scheduling points the expiry sweep drains instead of
// walking every live entry each tick; an entry whose expiration is pushed
// back by a later InsertOutRecord simply gets a fresh, larger-priority
// heap item; popDue skips any popped item that no longer matches its
// entry's current expiration, so stale duplicates left behind by an
// extension are silently dropped rather than acted on twice.
type pitTableImpl struct {
	mu      sync.Mutex
	entries map[uint64]*basePitEntry
	nextTok uint32
	expiry  priority_queue.Queue[uint64, int64]
}

// Pit is the process-wide PIT.
var Pit = &pitTableImpl{
	entries: make(map[uint64]*basePitEntry),
	expiry:  priority_queue.New[uint64, int64](),
}

// FindOrInsert returns the existing PIT entry matching interest's name (its
// selectors are not compared), or creates one, reporting which happened.
func (p *pitTableImpl) FindOrInsert(interest *defn.FwInterest) (entry PitEntry, isNew bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := interest.NameV.Hash()
	if e, ok := p.entries[key]; ok {
		return e, false
	}
	p.nextTok++
	expiration := time.Now().Add(interest.InterestLifetimeV.GetOr(4 * time.Second))
	e := &basePitEntry{
		key:               key,
		tbl:               p,
		encname:           interest.NameV,
		canBePrefix:       interest.CanBePrefixV,
		mustBeFresh:       interest.MustBeFreshV,
		forwardingHintNew: interest.ForwardingHintV,
		expirationTime:    expiration,
		token:             p.nextTok,
		inRecords:         make(map[uint64]*PitInRecord),
		outRecords:        make(map[uint64]*PitOutRecord),
	}
	p.entries[key] = e
	p.expiry.Push(key, expiration.UnixNano())
	return e, true
}

// touchExpiry re-indexes key in the expiry queue after its entry's
// expiration has been pushed further into the future.
func (p *pitTableImpl) touchExpiry(key uint64, expiration time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expiry.Push(key, expiration.UnixNano())
}

// Erase removes a PIT entry. Its expiry queue entry, if any, is left in
// place as a stale item popDue will discard once it surfaces.
func (p *pitTableImpl) Erase(entry PitEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, entry.EncName().Hash())
}

// All returns every PIT entry, in no particular order.
func (p *pitTableImpl) All() []PitEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PitEntry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	return out
}

// PopDue removes and returns every PIT entry whose current expiration is at
// or before now, draining the expiry heap rather than scanning the whole
// table. Stale heap items - left behind by Erase or superseded by a later
// InsertOutRecord extension - are discarded as they surface.
func (p *pitTableImpl) PopDue(now time.Time) []PitEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	var due []PitEntry
	cutoff := now.UnixNano()
	for p.expiry.Len() > 0 && p.expiry.PeekPriority() <= cutoff {
		key := p.expiry.Pop()
		e, ok := p.entries[key]
		if !ok {
			continue
		}
		e.mu.Lock()
		current := e.expirationTime.UnixNano()
		e.mu.Unlock()
		if current > cutoff {
			// A later extension pushed the true expiration past cutoff;
			// this item is a stale duplicate from before the extension,
			// and the entry's real expiry will surface on its own turn.
			continue
		}
		due = append(due, e)
	}
	return due
}
