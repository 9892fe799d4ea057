// Package consumer implements the window-based Interest pacer described in
// spec.md §4.4: it sends Interests at a rate governed by a congestion
// window and reacts to congestion marks carried back on Data/Nack. An
// Interest that is still unanswered when its RTO expires is not retransmitted:
// the RTO is backed off, the window gets a timeout signal, and that sequence
// number counts as finished.
package consumer

import (
	"fmt"
	"sync"
	"time"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/face"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/object/congestion"
	"github.com/named-data/ndnd/std/types/optional"
)

// pendingInterest tracks one outstanding, unsatisfied Interest.
type pendingInterest struct {
	sentAt time.Time
	timer  *time.Timer
}

// Consumer sends a sequence-numbered Interest stream under prefix/ping/N,
// paced by a congestion.CongestionWindow, with each Interest timed out after
// an RttEstimator's RTO (timed-out Interests are not retransmitted), per
// spec.md §4.4's sending discipline and On-Data/On-Timeout rules.
type Consumer struct {
	face   face.Face
	prefix enc.Name
	window congestion.CongestionWindow
	rtt    *RttEstimator

	maxMultiplier uint16

	mu       sync.Mutex
	seq      uint64
	maxSeq   uint64
	inFlight uint32
	pending  map[uint64]*pendingInterest
	init     bool
	done     chan struct{}
	finished bool

	OnFinish func()
}

// NewConsumer constructs a Consumer that will send up to maxSeq Interests
// (0 for unbounded) under prefix, pacing with window and timing each one out
// via an RttEstimator floored at minRto.
func NewConsumer(f face.Face, prefix enc.Name, window congestion.CongestionWindow, minRto time.Duration, maxMultiplier uint16, maxSeq uint64) *Consumer {
	c := &Consumer{
		face:          f,
		prefix:        prefix,
		window:        window,
		rtt:           NewRttEstimator(minRto, maxMultiplier),
		maxMultiplier: maxMultiplier,
		maxSeq:        maxSeq,
		pending:       make(map[uint64]*pendingInterest),
		done:          make(chan struct{}),
	}
	f.OnReceive(c.onReceive)
	return c
}

// String identifies the consumer in log output.
func (c *Consumer) String() string {
	return fmt.Sprintf("consumer (%s)", c.prefix)
}

// Run starts the pacing loop; it returns once maxSeq Interests have all been
// satisfied or timed out, or Stop is called.
func (c *Consumer) Run() {
	if !c.init {
		c.init = true
		c.rtt.SetMaxMultiplier(c.maxMultiplier)
		core.Log.Info(c, "Starting consumer window", "prefix", c.prefix)
	}
	c.scheduleNext()
	<-c.done
}

// Stop ends the pacing loop.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finished {
		c.finished = true
		close(c.done)
	}
}

// scheduleNext implements spec.md §4.4's sending discipline: a cwnd at or
// below zero is a safety valve handled by a short retry timer; otherwise
// Interests are sent back-to-back until inFlight catches up with cwnd.
func (c *Consumer) scheduleNext() {
	c.mu.Lock()
	cwnd := c.window.Size()
	if cwnd <= 0 {
		delay := min(500*time.Millisecond, c.rtt.RetransmitTimeout())
		c.mu.Unlock()
		time.AfterFunc(delay, c.scheduleNext)
		return
	}

	for float64(c.inFlight) < cwnd {
		if c.maxSeq > 0 && c.seq >= c.maxSeq {
			break
		}
		c.seq++
		seq := c.seq
		c.inFlight++
		c.mu.Unlock()
		c.send(seq)
		c.mu.Lock()
	}
	c.mu.Unlock()
}

func (c *Consumer) send(seq uint64) {
	name := c.prefix.Append(enc.NewGenericComponent("ping"), enc.NewSequenceNumComponent(seq))
	interest := &defn.FwInterest{
		NameV:             name,
		InterestLifetimeV: optional.Some(c.rtt.RetransmitTimeout()),
	}

	c.mu.Lock()
	c.pending[seq] = &pendingInterest{
		sentAt: time.Now(),
		timer:  time.AfterFunc(interest.InterestLifetimeV.GetOr(4*time.Second), func() { c.onTimeout(seq) }),
	}
	c.mu.Unlock()

	if err := c.face.SendInterest(interest); err != nil {
		core.Log.Debug(c, "Unable to send Interest", "seq", seq, "err", err)
	}
}

// onReceive dispatches an incoming packet: only Data matching this
// consumer's pending sequence numbers is acted on.
func (c *Consumer) onReceive(pkt *defn.Pkt) {
	if pkt.L3.Data == nil {
		return
	}
	seq, ok := lastSequenceNum(pkt.L3.Data.NameV)
	if !ok {
		return
	}

	c.mu.Lock()
	pi, ok := c.pending[seq]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, seq)
	pi.timer.Stop()
	if c.inFlight > 0 {
		c.inFlight--
	}
	currentSeq := c.seq
	c.mu.Unlock()

	c.rtt.AddMeasurement(time.Since(pi.sentAt))

	congMark, nackType := tagFields(pkt.L3.Data.CongestionTagV)
	c.window.HandleSignal(congestion.CongestionSignal{
		Kind:       congestion.SignalData,
		Seq:        seq,
		CurrentSeq: currentSeq,
		CongMark:   congMark,
		NackType:   nackType,
	})

	c.checkDone()
	c.scheduleNext()
}

func (c *Consumer) onTimeout(seq uint64) {
	c.mu.Lock()
	pi, ok := c.pending[seq]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, seq)
	if c.inFlight > 0 {
		c.inFlight--
	}
	currentSeq := c.seq
	c.mu.Unlock()
	_ = pi

	core.Log.Debug(c, "Interest timed out", "seq", seq, "rto", c.rtt.RetransmitTimeout())
	c.rtt.BackoffRto()

	c.window.HandleSignal(congestion.CongestionSignal{
		Kind:       congestion.SignalTimeout,
		Seq:        seq,
		CurrentSeq: currentSeq,
	})

	c.checkDone()
	c.scheduleNext()
}

func (c *Consumer) checkDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxSeq > 0 && c.seq >= c.maxSeq && len(c.pending) == 0 && !c.finished {
		c.finished = true
		close(c.done)
		if c.OnFinish != nil {
			go c.OnFinish()
		}
	}
}

func tagFields(tag *defn.CongestionTag) (congMark bool, nackType int8) {
	if tag == nil {
		return false, int8(defn.NackTypeNone)
	}
	return tag.CongMark != 0, int8(tag.NackType)
}

func lastSequenceNum(name enc.Name) (uint64, bool) {
	if len(name) == 0 {
		return 0, false
	}
	last := name[len(name)-1]
	if !last.IsSequenceNum() {
		return 0, false
	}
	n, _, err := enc.ParseNat(last.Val)
	if err != nil {
		return 0, false
	}
	return uint64(n), true
}
