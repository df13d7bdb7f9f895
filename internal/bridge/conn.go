package bridge

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn wraps one websocket connection with serialized writes and a
// closed signal. Reads stay single-goroutine (the client's read loop).
type wsConn struct {
	conn *websocket.Conn

	writeMu      sync.Mutex
	writeTimeout time.Duration

	closed    chan struct{}
	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{
		conn:         conn,
		writeTimeout: writeTimeout,
		closed:       make(chan struct{}),
	}
}

// write sends one text frame. gorilla/websocket allows one concurrent
// writer, so writes are locked.
func (c *wsConn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// read blocks for the next frame.
func (c *wsConn) read() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

// close tears the socket down. Safe to call more than once.
func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// done is closed once the connection is torn down.
func (c *wsConn) done() <-chan struct{} {
	return c.closed
}
