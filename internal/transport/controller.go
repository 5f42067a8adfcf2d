// Package transport owns the persistent WebSocket channel to the shell
// bridge: connect-on-demand, send, and orderly close. It never interprets
// message contents; everything it learns is surfaced to its Handler as
// lifecycle events. The live connection is private to the controller — no
// other component holds or mutates it.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/termbridge/termbridge/internal/logging"
)

// ErrNotOpen is returned by Send when no live channel exists.
var ErrNotOpen = errors.New("transport: not open")

// Close codes consumers pass to Close without depending on the underlying
// WebSocket library.
const (
	CloseNormal    = websocket.CloseNormalClosure
	CloseGoingAway = websocket.CloseGoingAway
)

// Handler receives transport lifecycle events. HandleOpen, HandleMessage,
// HandleClose and HandleError for a single connection are invoked from one
// goroutine at a time.
type Handler interface {
	HandleOpen()
	HandleMessage(raw []byte)
	HandleClose(code int, reason string)
	HandleError(err error)
}

// Options configures a Controller.
type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// closeRequest records an orderly shutdown so the read pump can echo the
// same code and reason in the Closed event.
type closeRequest struct {
	code   int
	reason string
}

// link is the state of one connection generation. A reconnect creates a
// fresh link; the old pump keeps its own and cannot observe the new one.
type link struct {
	conn *websocket.Conn

	mu       sync.Mutex
	closeReq *closeRequest
}

func (l *link) requestClose(code int, reason string) {
	l.mu.Lock()
	l.closeReq = &closeRequest{code: code, reason: reason}
	l.mu.Unlock()
}

func (l *link) requested() *closeRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeReq
}

// Controller owns at most one live WebSocket connection. A connection is
// replaced wholesale on reconnect, never mutated in place.
type Controller struct {
	opts    Options
	handler Handler
	logger  *logging.Logger

	mu      sync.Mutex
	live    *link
	opening bool
}

// New creates a controller. Events go to handler; nothing fires until Open.
func New(opts Options, handler Handler, logger *logging.Logger) *Controller {
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &Controller{opts: opts, handler: handler, logger: logger}
}

// Open dials the bridge. It is idempotent: a no-op when a connection is
// already live or a dial is in flight. A successful dial emits exactly one
// HandleOpen and starts the read pump.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.live != nil || c.opening {
		c.mu.Unlock()
		return nil
	}
	c.opening = true
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.opts.URL, nil)

	c.mu.Lock()
	c.opening = false
	if err != nil {
		c.mu.Unlock()
		dialErr := fmt.Errorf("dial %s: %w", c.opts.URL, err)
		c.handler.HandleError(dialErr)
		return dialErr
	}
	lk := &link{conn: conn}
	c.live = lk
	c.mu.Unlock()

	c.logger.Debug("transport opened", zap.String("url", c.opts.URL))
	c.handler.HandleOpen()
	go c.readPump(lk)
	return nil
}

// Send transmits one frame. It fails with ErrNotOpen when no live channel
// exists and wraps the underlying error when the write itself fails.
func (c *Controller) Send(raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live == nil {
		return ErrNotOpen
	}
	conn := c.live.conn
	if err := conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return fmt.Errorf("transport send: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("transport send: %w", err)
	}
	return nil
}

// Close requests orderly shutdown. The subsequent HandleClose event carries
// the same code and reason for traceability. A no-op when already closed.
func (c *Controller) Close(code int, reason string) {
	c.mu.Lock()
	lk := c.live
	if lk == nil {
		c.mu.Unlock()
		return
	}
	c.live = nil
	c.mu.Unlock()

	lk.requestClose(code, reason)

	// Best-effort close frame; the peer may already be gone.
	deadline := time.Now().Add(c.opts.WriteTimeout)
	msg := websocket.FormatCloseMessage(code, reason)
	if err := lk.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		c.logger.Debug("close frame not delivered", zap.Error(err))
	}
	if err := lk.conn.Close(); err != nil {
		c.logger.Debug("connection close", zap.Error(err))
	}
}

// IsOpen reports whether a live connection exists.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live != nil
}

// readPump reads frames until the connection dies, then emits the
// appropriate terminal event exactly once.
func (c *Controller) readPump(lk *link) {
	for {
		_, raw, err := lk.conn.ReadMessage()
		if err != nil {
			c.finish(lk, err)
			return
		}
		c.handler.HandleMessage(raw)
	}
}

// finish classifies the pump's exit: a requested close echoes the caller's
// code and reason; a peer-initiated close surfaces the peer's; anything
// else is a transport error followed by an abnormal close.
func (c *Controller) finish(lk *link, err error) {
	c.mu.Lock()
	if c.live == lk {
		c.live = nil
	}
	c.mu.Unlock()

	if req := lk.requested(); req != nil {
		c.handler.HandleClose(req.code, req.reason)
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		c.handler.HandleClose(closeErr.Code, closeErr.Text)
		return
	}

	_ = lk.conn.Close()
	c.handler.HandleError(fmt.Errorf("transport read: %w", err))
	c.handler.HandleClose(websocket.CloseAbnormalClosure, err.Error())
}
