package tracestore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkWritesTabSeparatedRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fwperc.txt")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	sink.Emit(Row{
		Time:   time.UnixMilli(1000),
		Node:   "router0",
		Prefix: "/a/b",
		FaceId: 7,
		Type:   "forwperc",
		Value:  0.5,
	})
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	fields := strings.Split(scanner.Text(), "\t")
	require.Len(t, fields, 6)
	assert.Equal(t, "router0", fields[1])
	assert.Equal(t, "/a/b", fields[2])
	assert.Equal(t, "7", fields[3])
	assert.Equal(t, "forwperc", fields[4])
	assert.Equal(t, "0.500000", fields[5])
}

func TestFileSinkCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results", "fwperc.txt")
	sink, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
