package fw

import (
	"context"
	"time"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/face"
	"github.com/named-data/ndnd/fw/table"
)

// pitExpirySweepInterval is how often the Thread walks the PIT looking for
// entries whose out-records have all expired.
const pitExpirySweepInterval = 50 * time.Millisecond

// AttachFace registers f in the face table, subscribes it to the packet
// pipeline, and (once Start has run) begins its dispatch loop.
func (t *Thread) AttachFace(f face.Face) defn.FaceId {
	id := t.Faces.Add(f)
	f.OnReceive(func(pkt *defn.Pkt) { t.onReceive(id, pkt) })
	if t.group != nil && t.dispatchCtx != nil {
		t.group.Go(func() error {
			t.runDispatch(t.dispatchCtx, f)
			return nil
		})
	}
	return id
}

// onReceive is the single entry point for a packet arriving on inFace: it
// performs the PIT/FIB lookup and strategy dispatch every Interest, Data,
// and Nack goes through.
func (t *Thread) onReceive(inFace defn.FaceId, pkt *defn.Pkt) {
	switch {
	case pkt.L3.Interest != nil:
		t.onInterest(inFace, pkt)
	case pkt.L3.Data != nil:
		t.onData(inFace, pkt)
	case pkt.L3.Nack != nil:
		t.onNack(inFace, pkt)
	}
}

func (t *Thread) onInterest(inFace defn.FaceId, pkt *defn.Pkt) {
	strategy := t.strategyFor(pkt.Name)
	if strategy == nil {
		core.Log.Warn(t, "No strategy bound for Interest - DROP", "name", pkt.Name)
		return
	}

	entry, _ := table.Pit.FindOrInsert(pkt.L3.Interest)
	_, inRecordExisted, _ := entry.InsertInRecord(pkt.L3.Interest, uint64(inFace), nil)

	nexthops := table.FibStrategyTable.FindNextHopsLPM(pkt.Name)
	strategy.AfterReceiveInterest(pkt, entry, inFace, nexthops, inRecordExisted)
}

func (t *Thread) onData(inFace defn.FaceId, pkt *defn.Pkt) {
	entry, isNew := table.Pit.FindOrInsert(&defn.FwInterest{NameV: pkt.Name})
	if isNew {
		// No pending Interest for this Data: unsolicited, drop.
		table.Pit.Erase(entry)
		core.Log.Debug(t, "Unsolicited Data - DROP", "name", pkt.Name)
		return
	}

	strategy := t.strategyFor(pkt.Name)
	if strategy == nil {
		table.Pit.Erase(entry)
		return
	}

	entry.SetSatisfied(true)
	strategy.BeforeSatisfyInterest(pkt, entry, inFace)
	strategy.AfterReceiveData(pkt, entry, inFace)
	table.Pit.Erase(entry)
}

func (t *Thread) onNack(inFace defn.FaceId, pkt *defn.Pkt) {
	nack := pkt.L3.Nack
	entry, isNew := table.Pit.FindOrInsert(nack.Interest)
	if isNew {
		table.Pit.Erase(entry)
		return
	}

	strategy := t.strategyFor(pkt.Name)
	if strategy == nil {
		table.Pit.Erase(entry)
		return
	}

	strategy.BeforeSatisfyInterest(pkt, entry, inFace)
	table.Pit.Erase(entry)
}

// runExpirySweep periodically walks the PIT for entries whose out-records
// have all expired unsatisfied, giving the bound strategy a chance to react
// (PCON reduces the stalled face's forwarding weight) before the entry is
// erased.
func (t *Thread) runExpirySweep(ctx context.Context) {
	ticker := time.NewTicker(pitExpirySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		now := time.Now()
		for _, entry := range table.Pit.PopDue(now) {
			if entry.Satisfied() || entry.HasUnexpiredOutRecords() {
				continue
			}
			if strategy := t.strategyFor(entry.EncName()); strategy != nil {
				strategy.BeforeExpirePendingInterest(entry)
			}
			table.Pit.Erase(entry)
		}
	}
}
