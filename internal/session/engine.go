package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/termbridge/termbridge/internal/buffer"
	"github.com/termbridge/termbridge/internal/config"
	"github.com/termbridge/termbridge/internal/logging"
	"github.com/termbridge/termbridge/internal/monitoring"
	"github.com/termbridge/termbridge/internal/protocol"
	"github.com/termbridge/termbridge/internal/shared/id"
	"github.com/termbridge/termbridge/internal/surface"
	"github.com/termbridge/termbridge/internal/transport"
)

// Transport is the command surface of the transport lifecycle controller.
// The engine never holds the underlying connection.
type Transport interface {
	Open(ctx context.Context) error
	Send(raw []byte) error
	Close(code int, reason string)
	IsOpen() bool
}

// StatusListener observes status transitions, including the transient
// Erroring state. Invoked outside the engine lock.
type StatusListener func(Status)

// Focuser is implemented by surfaces that can take input focus. The engine
// requests focus once the session is established.
type Focuser interface {
	Focus()
}

// Options wires an Engine.
type Options struct {
	Transport Transport
	Surface   surface.Surface
	Prober    *surface.Prober
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
	OnStatus  StatusListener
}

// Engine is the session hub: every protocol message and transport event
// passes through it before affecting buffering or forwarding.
type Engine struct {
	transport Transport
	surf      surface.Surface
	prober    *surface.Prober
	out       *buffer.Output
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	onStatus  StatusListener

	mu             sync.Mutex
	status         Status
	sessionID      string
	connID         id.ConnID
	pendingConnect *protocol.ConnectConfig
}

// New creates an engine in StatusDisconnected.
func New(opts Options) *Engine {
	return &Engine{
		transport: opts.Transport,
		surf:      opts.Surface,
		prober:    opts.Prober,
		out:       buffer.NewOutput(opts.Surface, opts.Logger),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		onStatus:  opts.OnStatus,
	}
}

// SetTransport binds the transport controller after construction; the
// controller needs the engine as its event handler, so the two are wired
// in two steps. Must be called before Start or Connect.
func (e *Engine) SetTransport(t Transport) {
	e.transport = t
}

// Start arms the readiness confirmation: queued output is flushed once the
// surface confirms it can accept writes.
func (e *Engine) Start() {
	e.prober.Confirm(e.surf, e.out.Flush)
}

// Status returns the authoritative session status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SessionID returns the bridge-assigned session id, empty before the
// bridge confirms the session.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// Connect validates the connection parameters and starts a session. A
// validation failure is reported locally and produces no transport
// traffic. The session is not live until the bridge replies connected.
func (e *Engine) Connect(ctx context.Context, cfg protocol.ConnectConfig) error {
	if err := config.ValidateConnect(cfg); err != nil {
		e.logger.Warn("connect rejected", zap.Error(err))
		e.out.Offer(buffer.NoticeChunk("Cannot connect: " + err.Error()))
		return err
	}

	e.mu.Lock()
	if e.status != StatusDisconnected {
		status := e.status
		e.mu.Unlock()
		e.logger.Debug("connect ignored", zap.Stringer("status", status))
		return fmt.Errorf("connect while %s", status)
	}
	e.status = StatusConnecting
	e.connID = id.NewConnID()
	e.pendingConnect = &cfg
	connID := e.connID
	e.mu.Unlock()

	e.metrics.ConnectsTotal.Inc()
	e.notify(StatusConnecting)
	e.out.Offer(buffer.NoticeChunk(
		fmt.Sprintf("Connecting to %s@%s:%d ...", cfg.Username, cfg.Host, cfg.Port)))
	e.logger.Info("connecting",
		zap.String("conn_id", string(connID)),
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("username", cfg.Username),
	)

	if e.transport.IsOpen() {
		e.sendConnect(cfg)
		return nil
	}
	return e.transport.Open(ctx)
}

// Disconnect ends the session on user request: a best-effort disconnect
// message, a traceable transport close, and an immediate transition to
// Disconnected so straggler messages are ignored.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	if e.status != StatusConnected && e.status != StatusConnecting {
		status := e.status
		e.mu.Unlock()
		e.logger.Debug("disconnect ignored", zap.Stringer("status", status))
		return
	}
	connID := e.connID
	e.status = StatusDisconnected
	e.sessionID = ""
	e.pendingConnect = nil
	e.mu.Unlock()

	if raw, err := protocol.Encode(protocol.Disconnect()); err == nil {
		if err := e.transport.Send(raw); err != nil {
			e.logger.Debug("disconnect message not delivered", zap.Error(err))
		} else {
			e.metrics.RecordSent(string(protocol.TypeDisconnect), len(raw))
		}
	}
	e.transport.Close(transport.CloseNormal,
		fmt.Sprintf("user requested disconnect (%s)", connID))

	e.metrics.ConnectionsActive.Set(0)
	e.metrics.DisconnectsTotal.WithLabelValues("user").Inc()
	e.notify(StatusDisconnected)
	e.out.Offer(buffer.NoticeChunk("Disconnected."))
	e.logger.Info("disconnected by user", zap.String("conn_id", string(connID)))
}

// Shutdown puts the engine in its terminal state. Used on client exit; the
// engine will not connect again.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.status == StatusClosed {
		e.mu.Unlock()
		return
	}
	wasLive := e.status == StatusConnected
	e.status = StatusClosed
	e.sessionID = ""
	e.pendingConnect = nil
	e.mu.Unlock()

	if wasLive {
		if raw, err := protocol.Encode(protocol.Disconnect()); err == nil {
			if err := e.transport.Send(raw); err != nil {
				e.logger.Debug("disconnect message not delivered", zap.Error(err))
			}
		}
	}
	e.transport.Close(transport.CloseGoingAway, "client shutdown")
	e.metrics.ConnectionsActive.Set(0)
	e.notify(StatusClosed)
}

// ============================================================================
// Input forwarding — gated on liveness, never an error to the caller
// ============================================================================

// ForwardKeystrokes sends raw input bytes. A no-op unless Connected; the
// discarded attempt is logged, not surfaced — input only arrives while
// visibly connected, so this path is a safety net against races.
func (e *Engine) ForwardKeystrokes(p []byte) {
	if !e.gateInput("keystrokes") {
		return
	}
	e.sendMessage(protocol.Keystrokes(p))
}

// ForwardCommand sends a submitted input line, appending the line
// terminator an interactive shell expects.
func (e *Engine) ForwardCommand(text string) {
	if !e.gateInput("command") {
		return
	}
	e.sendMessage(protocol.Command(text + "\n"))
}

// ForwardResize reports new terminal geometry. A no-op unless Connected.
func (e *Engine) ForwardResize(cols, rows int) {
	if !e.gateInput("resize") {
		return
	}
	e.sendMessage(protocol.Resize(cols, rows))
}

func (e *Engine) gateInput(kind string) bool {
	e.mu.Lock()
	status := e.status
	e.mu.Unlock()

	if status != StatusConnected {
		e.logger.Debug("input discarded",
			zap.String("kind", kind),
			zap.Stringer("status", status),
		)
		e.metrics.DroppedInput.WithLabelValues(kind).Inc()
		return false
	}
	return true
}

func (e *Engine) sendMessage(msg protocol.Message) {
	raw, err := protocol.Encode(msg)
	if err != nil {
		e.logger.Error("encode failed", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}
	if err := e.transport.Send(raw); err != nil {
		// The read pump notices a dead connection on its own; a failed
		// send is surfaced here and never retried.
		e.logger.Warn("send failed", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}
	e.metrics.RecordSent(string(msg.Type), len(raw))
}

func (e *Engine) sendConnect(cfg protocol.ConnectConfig) {
	raw, err := protocol.Encode(protocol.Connect(cfg))
	if err != nil {
		e.logger.Error("encode connect failed", zap.Error(err))
		e.teardown("Connection failed: internal encoding error", "error")
		return
	}
	if err := e.transport.Send(raw); err != nil {
		e.logger.Warn("connect message not delivered", zap.Error(err))
		e.teardown("Connection failed: "+err.Error(), "transport")
		return
	}
	e.metrics.RecordSent(string(protocol.TypeConnect), len(raw))
}

// ============================================================================
// Transport event handlers (transport.Handler)
// ============================================================================

// HandleOpen sends the pending connect message once the channel is up.
func (e *Engine) HandleOpen() {
	e.mu.Lock()
	var cfg *protocol.ConnectConfig
	if e.status == StatusConnecting && e.pendingConnect != nil {
		c := *e.pendingConnect
		cfg = &c
	}
	e.mu.Unlock()

	if cfg == nil {
		e.logger.Debug("transport opened with no pending connect")
		return
	}
	e.sendConnect(*cfg)
}

// HandleMessage decodes and dispatches one inbound frame. Undecodable
// frames are logged, counted, and discarded; the session is untouched.
func (e *Engine) HandleMessage(raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		e.logger.Warn("discarding undecodable frame", zap.Error(err))
		e.metrics.DecodeFailures.Inc()
		return
	}
	e.metrics.RecordReceived(string(msg.Type), len(raw))

	switch msg.Type {
	case protocol.TypeConnected:
		e.handleConnected(msg)
	case protocol.TypeData:
		e.handleData(msg)
	case protocol.TypeError:
		e.handleProtocolError(msg)
	case protocol.TypeDisconnected:
		e.handleRemoteDisconnect()
	default:
		// Client-bound types have no business arriving here.
		e.logger.Debug("ignoring client-bound message", zap.String("type", string(msg.Type)))
	}
}

// HandleClose forces Disconnected on transport close. A close that follows
// an already-reported teardown stays quiet.
func (e *Engine) HandleClose(code int, reason string) {
	e.mu.Lock()
	if e.status == StatusClosed || e.status == StatusDisconnected {
		e.mu.Unlock()
		e.logger.Debug("transport closed",
			zap.Int("code", code), zap.String("reason", reason))
		return
	}
	e.status = StatusDisconnected
	e.sessionID = ""
	e.pendingConnect = nil
	e.mu.Unlock()

	e.logger.Info("transport closed",
		zap.Int("code", code), zap.String("reason", reason))
	e.metrics.ConnectionsActive.Set(0)
	e.metrics.DisconnectsTotal.WithLabelValues("transport").Inc()
	e.notify(StatusDisconnected)
	e.out.Offer(buffer.NoticeChunk(
		fmt.Sprintf("Connection closed (%d): %s", code, reason)))
}

// HandleError reports a transport-level failure and tears the session down
// if one was live or being established.
func (e *Engine) HandleError(err error) {
	e.logger.Error("transport error", zap.Error(err))

	e.mu.Lock()
	active := e.status == StatusConnecting || e.status == StatusConnected
	e.mu.Unlock()

	if active {
		e.teardown("Connection error: "+err.Error(), "transport")
	}
}

// ============================================================================
// Protocol message handlers
// ============================================================================

func (e *Engine) handleConnected(msg protocol.Message) {
	e.mu.Lock()
	if e.status != StatusConnecting {
		status := e.status
		e.mu.Unlock()
		e.logger.Debug("ignoring connected message", zap.Stringer("status", status))
		return
	}
	e.status = StatusConnected
	e.sessionID = msg.SessionID
	e.pendingConnect = nil
	connID := e.connID
	e.mu.Unlock()

	e.metrics.ConnectionsActive.Set(1)
	e.logger.Info("session established",
		zap.String("conn_id", string(connID)),
		zap.String("session_id", msg.SessionID),
	)
	e.notify(StatusConnected)
	e.out.Offer(buffer.NoticeChunk("Session established."))
	e.out.Flush()

	if f, ok := e.surf.(Focuser); ok {
		f.Focus()
	}
}

func (e *Engine) handleData(msg protocol.Message) {
	e.mu.Lock()
	connected := e.status == StatusConnected
	e.mu.Unlock()

	if !connected {
		// A disconnect already happened; stragglers must not re-open
		// buffering.
		e.logger.Debug("ignoring data message while not connected")
		return
	}
	e.out.Offer(buffer.StreamChunk([]byte(msg.Data)))
}

func (e *Engine) handleProtocolError(msg protocol.Message) {
	e.mu.Lock()
	active := e.status == StatusConnecting || e.status == StatusConnected
	e.mu.Unlock()

	if !active {
		e.logger.Debug("ignoring error message while inactive", zap.String("error", msg.Error))
		return
	}

	if classifyProtocolError(msg.Error) == errorAdvisory {
		// A malformed input event must not tear down a healthy session.
		e.logger.Warn("advisory backend error", zap.String("error", msg.Error))
		e.metrics.AdvisoryErrors.Inc()
		e.out.Offer(buffer.NoticeChunk("Warning: " + msg.Error))
		return
	}

	e.logger.Error("fatal backend error", zap.String("error", msg.Error))
	e.teardown("Error: "+msg.Error, "error")
}

func (e *Engine) handleRemoteDisconnect() {
	e.mu.Lock()
	if e.status != StatusConnected {
		status := e.status
		e.mu.Unlock()
		e.logger.Debug("ignoring disconnected message", zap.Stringer("status", status))
		return
	}
	e.status = StatusDisconnected
	e.sessionID = ""
	e.mu.Unlock()

	e.metrics.ConnectionsActive.Set(0)
	e.metrics.DisconnectsTotal.WithLabelValues("remote").Inc()
	e.notify(StatusDisconnected)
	e.out.Offer(buffer.NoticeChunk("Session closed by remote host."))
}

// teardown reports a fatal failure, passing through the transient Erroring
// state before resting at Disconnected.
func (e *Engine) teardown(notice, cause string) {
	e.mu.Lock()
	if e.status == StatusClosed || e.status == StatusDisconnected {
		e.mu.Unlock()
		return
	}
	e.status = StatusErroring
	e.mu.Unlock()
	e.notify(StatusErroring)
	e.out.Offer(buffer.NoticeChunk(notice))

	e.mu.Lock()
	e.status = StatusDisconnected
	e.sessionID = ""
	e.pendingConnect = nil
	e.mu.Unlock()

	e.metrics.ConnectionsActive.Set(0)
	e.metrics.DisconnectsTotal.WithLabelValues(cause).Inc()
	e.notify(StatusDisconnected)
}

func (e *Engine) notify(status Status) {
	if e.onStatus != nil {
		e.onStatus(status)
	}
}
