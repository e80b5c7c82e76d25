package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Jasonwill2004/ScribeAI/internal/logger"
	"github.com/Jasonwill2004/ScribeAI/pkg/protocol"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// conn is one websocket client. Only writePump writes data frames.
type conn struct {
	id       string
	ws       *websocket.Conn
	send     chan protocol.Frame
	done     chan struct{}
	lastSeen atomic.Int64
	logger   logger.Logger

	// sessions this connection is bound to, guarded by the server mutex.
	sessions map[string]struct{}

	closeOnce sync.Once
}

func newConn(id string, ws *websocket.Conn, log logger.Logger) *conn {
	c := &conn{
		id:       id,
		ws:       ws,
		send:     make(chan protocol.Frame, sendBuffer),
		done:     make(chan struct{}),
		logger:   log,
		sessions: make(map[string]struct{}),
	}
	c.touch()
	return c
}

func (c *conn) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *conn) silentFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastSeen.Load()))
}

// enqueue hands a frame to the write pump. Frames for a closed connection are
// dropped, as are frames that cannot be queued within writeTimeout.
func (c *conn) enqueue(frame protocol.Frame) {
	select {
	case <-c.done:
		return
	default:
	}

	timer := time.NewTimer(writeTimeout)
	defer timer.Stop()

	select {
	case c.send <- frame:
	case <-c.done:
	case <-timer.C:
		c.logger.Warn(context.Background(), "conn=%s send buffer full, dropping %s frame", c.id, frame.Event)
	}
}

func (c *conn) writePump() {
	for {
		select {
		case frame := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				c.close(websocket.CloseInternalServerErr, "")
				return
			}
			if err := c.ws.WriteJSON(frame); err != nil {
				c.logger.Debug(context.Background(), "conn=%s write failed: %v", c.id, err)
				c.close(websocket.CloseInternalServerErr, "")
				return
			}
		case <-c.done:
			return
		}
	}
}

// close sends a close frame with code and reason, then tears the socket down.
// The read loop observes the closed socket and unregisters the connection.
func (c *conn) close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
		_ = c.ws.Close()
	})
}
