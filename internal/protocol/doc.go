// Package protocol defines the tagged message protocol spoken between the
// client engine and the shell bridge.
//
// Every message on the wire is a single JSON record with a required "type"
// tag and a type-dependent payload:
//
// Client → Bridge:
//   - connect: open a remote shell with the given connection config
//   - command: a submitted input line (terminator already appended)
//   - data: raw keystroke bytes
//   - resize: terminal geometry change
//   - disconnect: orderly session teardown
//
// Bridge → Client:
//   - connected: session established, carries the session id
//   - data: raw shell output bytes
//   - error: backend-reported failure, fatal or advisory
//   - disconnected: session ended on the remote side
//
// Decode failures are reported as *DecodeError and are never fatal to the
// session: the engine logs and discards undecodable frames.
package protocol
