// Package tracestore persists the fwperc trace: one row per prefix-face
// weight emission, written by the PCON strategy whenever it revises a
// ForwardingInfo. Grounded on spec.md §6's persisted-state format and §9's
// redesign note turning the reference's single shared-mutex log sink into a
// Sink interface. FileSink is fed by a bounded channel and writes from its own
// goroutine; BadgerSink writes synchronously in the caller's goroutine.
package tracestore

import (
	"time"

	"github.com/named-data/ndnd/fw/defn"
)

// Row is one fwperc trace line: tab-separated time, node, prefix, faceId,
// type, value, matching the persisted results/fwperc.txt format.
type Row struct {
	Time   time.Time
	Node   string
	Prefix string
	FaceId defn.FaceId
	Type   string
	Value  float64
}

// Sink receives trace rows. FileSink's Emit hands the row to its own writer
// goroutine and does not block on file I/O; BadgerSink's Emit performs the
// database write before returning, so it does block its caller on I/O.
type Sink interface {
	Emit(row Row)
	Close() error
}

// NopSink discards every row. Used when Config.Trace.Enabled is false.
type NopSink struct{}

func (NopSink) Emit(Row)     {}
func (NopSink) Close() error { return nil }

// MultiSink fans a row out to every underlying Sink, so the default
// flat-file writer and an optional Badger store can both be active without
// either displacing the other.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink returns a Sink that emits to every one of sinks in order.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Emit(row Row) {
	for _, s := range m.sinks {
		s.Emit(row)
	}
}

func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
