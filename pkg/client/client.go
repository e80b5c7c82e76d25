// Package client is a connection manager for the session websocket.
// A Client is constructed explicitly and owns one connection at a time.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Jasonwill2004/ScribeAI/pkg/protocol"
)

// ErrNotConnected is returned when emitting without a live connection.
var ErrNotConnected = errors.New("client not connected")

// Options tune the connection. Zero values use defaults.
type Options struct {
	Dialer       *websocket.Dialer
	Header       http.Header
	EventBuffer  int
	WriteTimeout time.Duration
}

// Client sends events with acknowledgment correlation and delivers server events.
type Client struct {
	url  string
	opts Options

	events chan protocol.Frame
	nextID atomic.Uint64

	mu      sync.Mutex
	conn    *connection
	pending map[uint64]chan json.RawMessage
}

type connection struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// New creates a Client for the websocket endpoint at url. It does not dial.
func New(url string, opts Options) *Client {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &Client{
		url:     url,
		opts:    opts,
		events:  make(chan protocol.Frame, opts.EventBuffer),
		pending: make(map[uint64]chan json.RawMessage),
	}
}

// Connect dials the server. Calling it while connected is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil && !c.conn.closed() {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	ws, _, err := c.opts.Dialer.DialContext(ctx, c.url, c.opts.Header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	conn := &connection{ws: ws, done: make(chan struct{})}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Close closes the current connection and fails pending emits.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	conn.writeMu.Lock()
	_ = conn.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	conn.writeMu.Unlock()
	conn.shutdown(nil)
	<-conn.done
	return nil
}

// Reconnect drops the current connection, if any, and dials again.
func (c *Client) Reconnect(ctx context.Context) error {
	if err := c.Close(); err != nil {
		return err
	}
	return c.Connect(ctx)
}

// Events delivers server-pushed frames across reconnects.
func (c *Client) Events() <-chan protocol.Frame {
	return c.events
}

// Done is closed when the current connection ends, for any reason.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.conn.done
}

// Err reports why the current connection ended, nil for a clean close.
func (c *Client) Err() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.error()
}

// Emit sends event and waits for its acknowledgment payload.
func (c *Client) Emit(ctx context.Context, event string, data any) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || conn.closed() {
		return nil, ErrNotConnected
	}

	id := c.nextID.Add(1)
	frame, err := protocol.NewRequest(id, event, data)
	if err != nil {
		return nil, err
	}

	ch := make(chan json.RawMessage, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(conn, frame); err != nil {
		return nil, err
	}

	select {
	case ack := <-ch:
		return ack, nil
	case <-conn.done:
		if err := conn.error(); err != nil {
			return nil, fmt.Errorf("%s: connection lost: %w", event, err)
		}
		return nil, fmt.Errorf("%s: %w", event, ErrNotConnected)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// EmitAck emits event and decodes the acknowledgment into an AckPayload.
// A negative acknowledgment is returned as an error carrying the server message.
func (c *Client) EmitAck(ctx context.Context, event string, data any) (protocol.AckPayload, error) {
	raw, err := c.Emit(ctx, event, data)
	if err != nil {
		return protocol.AckPayload{}, err
	}
	var ack protocol.AckPayload
	if err := json.Unmarshal(raw, &ack); err != nil {
		return protocol.AckPayload{}, fmt.Errorf("decode %s ack: %w", event, err)
	}
	if !ack.Success {
		return ack, fmt.Errorf("%s rejected: %s", event, ack.Error)
	}
	return ack, nil
}

// Send emits event without asking for an acknowledgment.
func (c *Client) Send(event string, data any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || conn.closed() {
		return ErrNotConnected
	}

	frame, err := protocol.NewRequest(0, event, data)
	if err != nil {
		return err
	}
	return c.write(conn, frame)
}

func (c *Client) write(conn *connection, frame protocol.Frame) error {
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()

	if err := conn.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return err
	}
	if err := conn.ws.WriteJSON(frame); err != nil {
		conn.shutdown(err)
		return fmt.Errorf("write %s: %w", frame.Event, err)
	}
	return nil
}

func (c *Client) readLoop(conn *connection) {
	for {
		var frame protocol.Frame
		if err := conn.ws.ReadJSON(&frame); err != nil {
			conn.shutdown(err)
			return
		}

		if frame.Ack != nil {
			c.mu.Lock()
			ch, ok := c.pending[*frame.Ack]
			c.mu.Unlock()
			if ok {
				select {
				case ch <- frame.Data:
				default:
				}
			}
			continue
		}

		select {
		case c.events <- frame:
		case <-conn.done:
			return
		}
	}
}

func (conn *connection) shutdown(err error) {
	conn.closeOnce.Do(func() {
		if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			conn.errMu.Lock()
			conn.err = err
			conn.errMu.Unlock()
		}
		_ = conn.ws.Close()
		close(conn.done)
	})
}

func (conn *connection) closed() bool {
	select {
	case <-conn.done:
		return true
	default:
		return false
	}
}

func (conn *connection) error() error {
	conn.errMu.Lock()
	defer conn.errMu.Unlock()
	return conn.err
}
