package tracestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	rows []Row
}

func (f *fakeSink) Emit(row Row) { f.rows = append(f.rows, row) }
func (f *fakeSink) Close() error { return nil }

func TestRecorderRecordForwPercEmitsRow(t *testing.T) {
	sink := &fakeSink{}
	r := NewRecorder("router0", sink)

	r.RecordForwPerc("/a/b", 7, 0.75)

	require.Len(t, sink.rows, 1)
	row := sink.rows[0]
	assert.Equal(t, "router0", row.Node)
	assert.Equal(t, "/a/b", row.Prefix)
	assert.EqualValues(t, 7, row.FaceId)
	assert.Equal(t, "forwperc", row.Type)
	assert.Equal(t, 0.75, row.Value)
}

func TestRecorderThrottlesSamePrefixFaceWithinWriteInterval(t *testing.T) {
	sink := &fakeSink{}
	r := NewRecorder("router0", sink)

	r.RecordForwPerc("/a/b", 7, 0.5)
	r.RecordForwPerc("/a/b", 7, 0.4)
	r.RecordForwPerc("/a/b", 7, 0.3)

	assert.Len(t, sink.rows, 1, "rows within writeInterval of each other must be throttled to one")
}

func TestRecorderDoesNotThrottleDistinctFaces(t *testing.T) {
	sink := &fakeSink{}
	r := NewRecorder("router0", sink)

	r.RecordForwPerc("/a/b", 7, 0.5)
	r.RecordForwPerc("/a/b", 8, 0.5)

	assert.Len(t, sink.rows, 2)
}

func TestNewRecorderFromConfigNilReturnsNopSink(t *testing.T) {
	r, err := NewRecorderFromConfig("router0", nil)
	require.NoError(t, err)

	// A NopSink swallows rows silently; Close must still succeed.
	r.RecordForwPerc("/a/b", 1, 1.0)
	assert.NoError(t, r.Close())
}
