package tracestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerSinkQueryPrefixReturnsEmittedRows(t *testing.T) {
	sink, err := NewBadgerSink(t.TempDir())
	require.NoError(t, err)
	defer sink.Close()

	base := time.Unix(0, time.Now().UnixNano())
	sink.Emit(Row{Time: base, Prefix: "/a/b", FaceId: 1, Type: "forwperc", Value: 0.25})
	sink.Emit(Row{Time: base.Add(time.Millisecond), Prefix: "/a/b", FaceId: 2, Type: "forwperc", Value: 0.75})
	sink.Emit(Row{Time: base, Prefix: "/other", FaceId: 1, Type: "forwperc", Value: 1.0})

	rows, err := sink.QueryPrefix("/a/b")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byFace := map[uint64]float64{}
	for _, r := range rows {
		byFace[uint64(r.FaceId)] = r.Value
	}
	assert.Equal(t, 0.25, byFace[1])
	assert.Equal(t, 0.75, byFace[2])
}
