package tracestore

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/defn"
)

// BadgerSink persists fwperc rows into an embedded Badger key-value store
// so a running forwarder's per-prefix weight history survives a restart and
// can be queried back out by prefix. Grounded on
// std/object/storage/store_badger.go's Open/Update/View usage; an optional
// sink layered alongside the default flat-file FileSink, not a replacement
// for it.
type BadgerSink struct {
	db *badger.DB
}

// NewBadgerSink opens (creating if necessary) a Badger database rooted at
// dir.
func NewBadgerSink(dir string) (*BadgerSink, error) {
	db, err := badger.Open(badger.DefaultOptions(dir))
	if err != nil {
		return nil, fmt.Errorf("tracestore: opening badger store: %w", err)
	}
	return &BadgerSink{db: db}, nil
}

// key lays rows out as prefix\0faceId\0timestamp, so a prefix-scoped
// iterator walks every face's rows for that prefix in time order.
func (s *BadgerSink) key(row Row) []byte {
	key := []byte(row.Prefix + "\x00")
	var suffix [16]byte
	binary.BigEndian.PutUint64(suffix[:8], uint64(row.FaceId))
	binary.BigEndian.PutUint64(suffix[8:], uint64(row.Time.UnixNano()))
	return append(key, suffix[:]...)
}

// Emit stores row under a key ordered for prefix-scoped retrieval. The write
// runs synchronously in the caller's goroutine; there is no writer goroutine
// or buffering. It logs
// (rather than propagating) a write failure: a dropped trace row is not
// fatal to the forwarder it's observing.
func (s *BadgerSink) Emit(row Row) {
	val := []byte(row.Type + "\t" + strconv.FormatFloat(row.Value, 'f', -1, 64))
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(row), val)
	})
	if err != nil {
		core.Log.Warn(s, "badger trace write failed", "err", err)
	}
}

// Close closes the underlying Badger database.
func (s *BadgerSink) Close() error { return s.db.Close() }

// String identifies the sink in log output.
func (s *BadgerSink) String() string { return "tracestore.BadgerSink" }

// QueryPrefix returns every row persisted for prefix, oldest first - the
// "queried by prefix" capability a flat file alone can't offer.
func (s *BadgerSink) QueryPrefix(prefix string) ([]Row, error) {
	var out []Row
	pfx := []byte(prefix + "\x00")

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(pfx); it.ValidForPrefix(pfx); it.Next() {
			item := it.Item()
			key := item.Key()
			if len(key) < len(pfx)+16 {
				continue
			}
			row := Row{
				Prefix: prefix,
				FaceId: defn.FaceId(binary.BigEndian.Uint64(key[len(pfx) : len(pfx)+8])),
				Time:   time.Unix(0, int64(binary.BigEndian.Uint64(key[len(pfx)+8:]))),
			}
			if err := item.Value(func(val []byte) error {
				typ, value, ok := strings.Cut(string(val), "\t")
				if !ok {
					return nil
				}
				row.Type = typ
				row.Value, _ = strconv.ParseFloat(value, 64)
				return nil
			}); err != nil {
				return err
			}
			out = append(out, row)
		}
		return nil
	})

	return out, err
}
