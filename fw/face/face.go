// Package face implements the neighbor-channel abstraction the forwarding
// plane sends Interests, Data, and Nacks through. It is deliberately thin:
// spec.md treats the link layer as an external collaborator, so this
// package gives it exactly one concrete, network-capable shape (a
// WebSocket-backed Face) plus an in-memory Face for tests and simulation.
package face

import (
	"sync"

	"github.com/named-data/ndnd/fw/defn"
)

// Face is a bidirectional channel to one neighbor.
type Face interface {
	ID() defn.FaceId
	IsLocal() bool
	// Metric reports the face's routing cost; a face considered down
	// reports defn.DownFaceMetric so it is excluded from forwarding.
	Metric() int
	SendInterest(*defn.FwInterest) error
	SendData(*defn.FwData) error
	SendNack(*defn.FwNack) error
	Close() error
	// OnReceive registers the callback invoked for each packet the face
	// reads off the wire. A Face only has one reader at a time.
	OnReceive(func(*defn.Pkt))
}

// Table is the process-wide set of active faces.
type Table struct {
	mu    sync.RWMutex
	faces map[defn.FaceId]Face
	next  defn.FaceId
}

// NewTable returns an empty face table.
func NewTable() *Table {
	return &Table{faces: make(map[defn.FaceId]Face)}
}

// idSetter is implemented by Face types that store their own allocated ID
// (MemoryFace, WebSocketFace) so Add can hand it back out of ID().
type idSetter interface {
	SetID(defn.FaceId)
}

// Add registers f under a freshly allocated face ID and returns it.
func (t *Table) Add(f Face) defn.FaceId {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	if s, ok := f.(idSetter); ok {
		s.SetID(t.next)
	}
	t.faces[t.next] = f
	return t.next
}

// Get returns the face registered under id, if any.
func (t *Table) Get(id defn.FaceId) (Face, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.faces[id]
	return f, ok
}

// Remove unregisters a face, e.g. after it closes.
func (t *Table) Remove(id defn.FaceId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.faces, id)
}

// All returns every registered face.
func (t *Table) All() []Face {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Face, 0, len(t.faces))
	for _, f := range t.faces {
		out = append(out, f)
	}
	return out
}
