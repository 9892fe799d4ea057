//go:build !tinygo

package face

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/defn"
)

// wireFrame is the on-the-wire envelope a WebSocketFace exchanges with its
// peer. This spec's concern is congestion control, not an NDN TLV codec, so
// frames are gob-encoded rather than built on the real packet format -
// adequate to drive a strategy and a consumer over a genuine socket.
type wireFrame struct {
	Interest *defn.FwInterest
	Data     *defn.FwData
	Nack     *defn.FwNack
}

// WebSocketFace is the one network-capable Face implementation: a
// gorilla/websocket connection to a neighbor router or consumer. Adapted
// from the send/receive pattern of a WebSocket-based transport, rebuilt
// against the simplified Face interface above.
type WebSocketFace struct {
	id      defn.FaceId
	isLocal bool
	metric  int
	conn    *websocket.Conn

	mu      sync.Mutex
	onRecv  func(*defn.Pkt)
	running atomic.Bool
}

// NewWebSocketFace wraps an established WebSocket connection as a Face.
func NewWebSocketFace(conn *websocket.Conn, isLocal bool) *WebSocketFace {
	f := &WebSocketFace{conn: conn, isLocal: isLocal}
	f.running.Store(true)
	return f
}

// ID returns the face's allocated ID.
func (f *WebSocketFace) ID() defn.FaceId { return f.id }

// SetID records the ID allocated by Table.Add.
func (f *WebSocketFace) SetID(id defn.FaceId) { f.id = id }

// IsLocal reports whether the peer is a local application.
func (f *WebSocketFace) IsLocal() bool { return f.isLocal }

// Metric returns the face's routing cost.
func (f *WebSocketFace) Metric() int { return f.metric }

// SetMetric sets the face's routing cost.
func (f *WebSocketFace) SetMetric(m int) { f.metric = m }

// OnReceive registers the packet callback invoked by Run for each frame.
func (f *WebSocketFace) OnReceive(cb func(*defn.Pkt)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRecv = cb
}

func (f *WebSocketFace) send(frame wireFrame) error {
	if !f.running.Load() {
		return fmt.Errorf("websocket face %d is down", f.id)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(frame); err != nil {
		return err
	}
	if err := f.conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		core.Log.Warn(f, "Unable to send on socket - Face DOWN", "err", err)
		f.Close()
		return err
	}
	return nil
}

// SendInterest writes an Interest frame to the socket.
func (f *WebSocketFace) SendInterest(i *defn.FwInterest) error {
	return f.send(wireFrame{Interest: i})
}

// SendData writes a Data frame to the socket.
func (f *WebSocketFace) SendData(d *defn.FwData) error {
	return f.send(wireFrame{Data: d})
}

// SendNack writes a Nack frame to the socket.
func (f *WebSocketFace) SendNack(n *defn.FwNack) error {
	return f.send(wireFrame{Nack: n})
}

// Run reads frames off the socket until it closes, dispatching each to the
// registered OnReceive callback. Callers start this in its own goroutine.
func (f *WebSocketFace) Run() {
	defer f.Close()

	for {
		mt, message, err := f.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err) {
				// gracefully closed
			} else if websocket.IsUnexpectedCloseError(err) {
				core.Log.Info(f, "WebSocket closed unexpectedly - DROP and Face DOWN", "err", err)
			} else {
				core.Log.Warn(f, "Unable to read from WebSocket - DROP and Face DOWN", "err", err)
			}
			return
		}

		if mt != websocket.BinaryMessage {
			core.Log.Warn(f, "Ignored non-binary message")
			continue
		}
		if len(message) > defn.MaxNDNPacketSize {
			core.Log.Warn(f, "Received too much data without valid TLV block")
			continue
		}

		var frame wireFrame
		if err := gob.NewDecoder(bytes.NewReader(message)).Decode(&frame); err != nil {
			core.Log.Warn(f, "Malformed frame - DROP", "err", err)
			continue
		}

		pkt := &defn.Pkt{}
		switch {
		case frame.Interest != nil:
			pkt.Name = frame.Interest.NameV
			pkt.L3.Interest = frame.Interest
		case frame.Data != nil:
			pkt.Name = frame.Data.NameV
			pkt.L3.Data = frame.Data
		case frame.Nack != nil:
			pkt.Name = frame.Nack.Interest.NameV
			pkt.L3.Nack = frame.Nack
		default:
			continue
		}

		f.mu.Lock()
		cb := f.onRecv
		f.mu.Unlock()
		if cb != nil {
			cb(pkt)
		}
	}
}

// String identifies the face in log output.
func (f *WebSocketFace) String() string {
	return fmt.Sprintf("websocket-face (faceid=%d)", f.id)
}

// Close marks the face down and closes the underlying connection.
func (f *WebSocketFace) Close() error {
	if f.running.CompareAndSwap(true, false) {
		return f.conn.Close()
	}
	return nil
}
