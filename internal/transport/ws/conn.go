package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

// wsConn is one transport session. The (username, room) binding is set once
// by the join handler and cleared by leave/disconnect; both run on the
// connection's read loop, so the binding needs no lock.
type wsConn struct {
	conn     *websocket.Conn
	username string
	room     string

	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   c,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg Message) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}

func (c *wsConn) bound() bool { return c.room != "" }
