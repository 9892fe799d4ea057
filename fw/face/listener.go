//go:build !tinygo

package face

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/named-data/ndnd/fw/core"
)

// upgrader accepts any origin: faces are trusted neighbors on a private
// overlay, not browser clients, so the usual CSRF-style origin check this
// library defaults to doesn't apply here.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DialWebSocket connects to a forwarder's WebSocket listener at url
// (e.g. "ws://host:6363/") and wraps the connection as a local Face.
func DialWebSocket(url string) (*WebSocketFace, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	f := NewWebSocketFace(conn, true)
	go f.Run()
	return f, nil
}

// ListenAndServeWebSocket starts an HTTP server on addr that upgrades every
// connection to a WebSocketFace, hands it to onAccept (typically
// Thread.AttachFace), and runs its read loop. It blocks until the server
// stops or errors.
func ListenAndServeWebSocket(addr string, onAccept func(*WebSocketFace)) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			core.Log.Warn("face-listener", "WebSocket upgrade failed", "err", err)
			return
		}
		f := NewWebSocketFace(conn, false)
		onAccept(f)
		go f.Run()
	})
	return http.ListenAndServe(addr, mux)
}
