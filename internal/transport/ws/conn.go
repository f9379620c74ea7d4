package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrBufferFull is returned when an operator's send buffer is full. The
// directory treats it as a dead channel and removes the operator.
var ErrBufferFull = errors.New("send buffer full")

// ErrConnClosed is returned on sends to a closed connection.
var ErrConnClosed = errors.New("connection closed")

// closeGrace bounds the close-frame write during teardown.
const closeGrace = time.Second

// operatorConn adapts one WebSocket connection into a
// directory.Channel. Sends go through a buffered channel drained by the
// write pump, so a slow peer trips ErrBufferFull instead of blocking
// broadcasts.
type operatorConn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}

	writeMu sync.Mutex
}

func newOperatorConn(ws *websocket.Conn) *operatorConn {
	return &operatorConn{
		id:   uuid.New().String(),
		ws:   ws,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
}

// Send queues a JSON message for the operator.
func (c *operatorConn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnClosed
	case c.send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close tears the connection down. Idempotent. The close frame goes
// out before the socket closes so the peer sees a graceful shutdown.
func (c *operatorConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), closeGrace)
		c.ws.Close()
	})
	return nil
}

func (c *operatorConn) writeMessage(messageType int, data []byte, deadline time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(deadline))
	return c.ws.WriteMessage(messageType, data)
}
