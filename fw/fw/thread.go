package fw

import (
	"context"
	"sync"
	"time"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/core/tracestore"
	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/face"
	"github.com/named-data/ndnd/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/types/lockfree"
	"golang.org/x/sync/errgroup"
)

// outJob is one packet queued for transmission on a face.
type outJob struct {
	interest *defn.FwInterest
	data     *defn.FwData
	nack     *defn.FwNack
	size     int
}

// Thread is a forwarding-plane worker: the set of faces and the per-prefix
// state (FIB/strategy table is process-wide, Measurements is per-thread)
// a Strategy operates against, plus the per-face AQM queues and dispatch
// loops that actually drain them onto the wire. Named after, and scoped
// down from, the real forwarder's per-core dispatch thread: this spec has
// no need to shard FIB entries across cores, so one Thread is enough to
// drive the whole strategy.
type Thread struct {
	Faces        *face.Table
	Measurements *table.MeasurementsTable
	Config       *core.Config
	Trace        *tracestore.Recorder

	mu         sync.Mutex
	queues     map[defn.FaceId]*Queue
	outboxes   map[defn.FaceId]*lockfree.YiQueue[outJob]
	strategies map[string]Strategy
	defaultStrategyName string

	group       *errgroup.Group
	cancel      context.CancelFunc
	dispatchCtx context.Context
}

// NewThread constructs a Thread with an empty face table and measurements
// table, and instantiates one instance of every compiled-in strategy
// (strategyInit, populated by each strategy's own init()).
func NewThread(cfg *core.Config) *Thread {
	router := ""
	if cfg != nil {
		router = cfg.Core.RouterName
	}

	t := &Thread{
		Faces:        face.NewTable(),
		Measurements: table.NewMeasurementsTable(),
		Config:       cfg,
		queues:       make(map[defn.FaceId]*Queue),
		outboxes:     make(map[defn.FaceId]*lockfree.YiQueue[outJob]),
		strategies:   make(map[string]Strategy),
	}

	trace, err := tracestore.NewRecorderFromConfig(router, cfg)
	if err != nil {
		core.Log.Error(t, "Unable to start trace sink - tracing disabled", "err", err)
		trace = tracestore.NewRecorder(router, tracestore.NopSink{})
	}
	t.Trace = trace

	for _, ctor := range strategyInit {
		s := ctor()
		s.Instantiate(t)
		t.strategies[s.InstanceName()] = s
	}
	return t
}

// SetDefaultStrategy names the strategy (by its registered short name, e.g.
// "pcon-strategy") applied to Interests under a name with no more specific
// strategy-choice binding.
func (t *Thread) SetDefaultStrategy(name string) {
	t.defaultStrategyName = name
}

// strategyFor resolves the Strategy responsible for name: the longest
// strategy-choice binding in the FIB/strategy table, falling back to the
// thread's default strategy.
func (t *Thread) strategyFor(name enc.Name) Strategy {
	shortName := t.defaultStrategyName
	if bound := table.FibStrategyTable.GetStrategyLPM(name); bound != nil && len(bound) > len(defn.STRATEGY_PREFIX) {
		shortName = bound[len(defn.STRATEGY_PREFIX)].String()
	}
	return t.strategies[shortName]
}

// String identifies the thread in log output.
func (t *Thread) String() string { return "fw-thread" }

// QueueFor returns the AQM queue for face id, creating one sized from
// Config.Queue if it doesn't exist yet.
func (t *Thread) QueueFor(id defn.FaceId) *Queue {
	t.mu.Lock()
	defer t.mu.Unlock()
	if q, ok := t.queues[id]; ok {
		return q
	}
	target := DefaultCodelTarget
	interval := DefaultCodelInterval
	size := 100
	if t.Config != nil {
		if t.Config.Queue.SizePkts > 0 {
			size = t.Config.Queue.SizePkts
		}
	}
	q := NewQueue(id, target, interval, size, nil)
	t.queues[id] = q
	return q
}

func (t *Thread) outboxFor(id defn.FaceId) *lockfree.YiQueue[outJob] {
	t.mu.Lock()
	defer t.mu.Unlock()
	ob, ok := t.outboxes[id]
	if !ok {
		ob = lockfree.NewYiQueue[outJob]()
		t.outboxes[id] = ob
	}
	return ob
}

// Start spins up one dispatch goroutine per currently-registered face plus
// the PIT expiry sweep, all coordinated through an errgroup so Stop can wait
// for clean shutdown. Faces attached after Start via AttachFace get their
// own dispatch goroutine added to the same group.
func (t *Thread) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	group, gctx := errgroup.WithContext(ctx)
	t.group = group
	t.dispatchCtx = gctx

	for _, f := range t.Faces.All() {
		f := f
		group.Go(func() error {
			t.runDispatch(gctx, f)
			return nil
		})
	}
	group.Go(func() error {
		t.runExpirySweep(gctx)
		return nil
	})
}

// Stop cancels all dispatch loops and waits for them to exit.
func (t *Thread) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	if t.group != nil {
		t.group.Wait()
	}
}

// runDispatch drains f's outbox through its AQM queue: each job is enqueued
// immediately on arrival, then dequeued as soon as the dispatch loop is free
// to run, which is where sojourn time (and thus CoDel marking) accumulates
// under load.
func (t *Thread) runDispatch(ctx context.Context, f face.Face) {
	ob := t.outboxFor(f.ID())
	q := t.QueueFor(f.ID())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ob.Notify:
		}
		for {
			job, ok := ob.Pop()
			if !ok {
				break
			}
			q.Enqueue(job.size)
			q.Dequeue()
			t.transmit(f, job)
		}
	}
}

func (t *Thread) transmit(f face.Face, job outJob) {
	var err error
	switch {
	case job.interest != nil:
		err = f.SendInterest(job.interest)
	case job.data != nil:
		err = f.SendData(job.data)
	case job.nack != nil:
		err = f.SendNack(job.nack)
	}
	if err != nil {
		core.Log.Debug(t, "Send failed", "faceid", f.ID(), "err", err)
	}
}

// SendInterest queues an Interest for transmission on face id.
func (t *Thread) SendInterest(id defn.FaceId, i *defn.FwInterest) {
	t.outboxFor(id).Push(outJob{interest: i, size: estimateSize(i.NameV)})
}

// SendData queues Data for transmission on face id.
func (t *Thread) SendData(id defn.FaceId, d *defn.FwData) {
	t.outboxFor(id).Push(outJob{data: d, size: estimateSize(d.NameV) + len(d.ContentV)})
}

// SendNack queues a Nack for transmission on face id.
func (t *Thread) SendNack(id defn.FaceId, n *defn.FwNack) {
	t.outboxFor(id).Push(outJob{nack: n, size: estimateSize(n.Interest.NameV)})
}

func estimateSize(name interface{ EncodingLength() int }) int {
	return name.EncodingLength()
}

// Now returns the current wall-clock time.
func (t *Thread) Now() time.Time {
	return time.Now()
}
