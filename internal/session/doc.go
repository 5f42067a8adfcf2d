// Package session implements the client-side session engine: a single
// authoritative state machine reconciling protocol messages from the shell
// bridge with transport lifecycle events, buffering output against a
// not-yet-ready rendering surface, and gating input forwarding on session
// liveness.
//
// Every inbound message and every transport event passes through the
// Engine before it can affect buffering or forwarding. There is exactly
// one source of truth for connection status — the Engine's Status value —
// and every callback reads it under the same lock, so any interleaving of
// message arrival, readiness confirmation, and user disconnect leaves the
// session and the output buffer consistent.
//
// Failure policy: undecodable frames are logged, counted, and discarded;
// advisory backend errors surface as warnings without ending the session;
// only connection-level failures force Disconnected. No public operation
// panics or returns an error for input discarded by liveness gating.
package session
