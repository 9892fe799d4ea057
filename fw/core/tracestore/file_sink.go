package tracestore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/std/utils"
)

// FileSink appends tab-separated fwperc rows to a flat file through a
// single writer goroutine, so a strategy revising many prefixes at once
// never blocks on file I/O - the reference design's per-write mutex
// (spec.md §9) is replaced here by a buffered channel and one consumer.
type FileSink struct {
	rows chan Row
	done chan struct{}
	file *os.File
}

// NewFileSink opens (creating if necessary) the flat file at path in
// append mode and starts its writer goroutine.
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("tracestore: creating trace dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tracestore: opening trace file: %w", err)
	}

	s := &FileSink{
		rows: make(chan Row, 256),
		done: make(chan struct{}),
		file: f,
	}
	go s.run()
	return s, nil
}

func (s *FileSink) run() {
	defer close(s.done)
	w := bufio.NewWriter(s.file)
	for row := range s.rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%f\n",
			utils.MakeTimestamp(row.Time), row.Node, row.Prefix, row.FaceId, row.Type, row.Value)
		w.Flush()
	}
}

// Emit queues row for the writer goroutine, dropping it (with a logged
// warning) rather than blocking the caller if the writer has fallen behind.
func (s *FileSink) Emit(row Row) {
	select {
	case s.rows <- row:
	default:
		core.Log.Warn(s, "trace row dropped - writer backlogged")
	}
}

// Close stops accepting rows, waits for the writer to drain, and closes
// the underlying file.
func (s *FileSink) Close() error {
	close(s.rows)
	<-s.done
	return s.file.Close()
}

// String identifies the sink in log output.
func (s *FileSink) String() string { return "tracestore.FileSink" }
