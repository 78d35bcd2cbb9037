package session

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// wsEmitter serializes JSON writes to one WebSocket connection. The
// welcome message and the event loop share the connection, so writes are
// guarded even though the loop itself is sequential.
type wsEmitter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSEmitter(conn *websocket.Conn) *wsEmitter {
	return &wsEmitter{conn: conn}
}

func (w *wsEmitter) Emit(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteJSON(v)
}
