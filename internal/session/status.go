package session

// Status is the authoritative connection state of the engine. All
// components read this one value; no parallel flags exist.
type Status int

const (
	// StatusDisconnected is the initial state and the resting state after
	// any teardown. Reconnection is a fresh user-initiated connect.
	StatusDisconnected Status = iota
	// StatusConnecting means a connect message is in flight and the
	// bridge has not confirmed the session yet.
	StatusConnecting
	// StatusConnected means the bridge confirmed the session; input
	// forwarding is live.
	StatusConnected
	// StatusErroring is transient: the engine passes through it while
	// reporting a fatal failure and immediately transitions on.
	StatusErroring
	// StatusClosed is terminal: the engine was shut down for good and
	// will not connect again.
	StatusClosed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusErroring:
		return "erroring"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}
