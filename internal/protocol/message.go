package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType tags a protocol message.
type MessageType string

const (
	TypeConnect      MessageType = "connect"
	TypeConnected    MessageType = "connected"
	TypeData         MessageType = "data"
	TypeCommand      MessageType = "command"
	TypeResize       MessageType = "resize"
	TypeDisconnect   MessageType = "disconnect"
	TypeError        MessageType = "error"
	TypeDisconnected MessageType = "disconnected"
)

// knownTypes is the set of message types this protocol version understands.
var knownTypes = map[MessageType]bool{
	TypeConnect:      true,
	TypeConnected:    true,
	TypeData:         true,
	TypeCommand:      true,
	TypeResize:       true,
	TypeDisconnect:   true,
	TypeError:        true,
	TypeDisconnected: true,
}

// ConnectConfig carries the connection parameters of a connect message.
type ConnectConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Message is a single protocol record. Only the fields relevant to its Type
// are populated; the rest stay at their zero values and are omitted on the
// wire.
type Message struct {
	Type      MessageType    `json:"type"`
	Config    *ConnectConfig `json:"config,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Data      string         `json:"data,omitempty"`
	Command   string         `json:"command,omitempty"`
	Cols      int            `json:"cols,omitempty"`
	Rows      int            `json:"rows,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// DecodeError reports an inbound frame this codec could not interpret.
type DecodeError struct {
	Reason string
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode message: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("decode message: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Encode serializes a message for transmission.
func Encode(msg Message) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	return raw, nil
}

// Decode parses a wire frame into a message. Malformed JSON, a missing type
// tag, and an unknown type tag all return *DecodeError; callers treat these
// as discardable, never as session-fatal.
func Decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, &DecodeError{Reason: "malformed payload", Cause: err}
	}
	if msg.Type == "" {
		return Message{}, &DecodeError{Reason: "missing type tag"}
	}
	if !knownTypes[msg.Type] {
		return Message{}, &DecodeError{Reason: fmt.Sprintf("unknown type %q", msg.Type)}
	}
	return msg, nil
}

// Connect builds a connect message from validated connection parameters.
func Connect(cfg ConnectConfig) Message {
	return Message{Type: TypeConnect, Config: &cfg}
}

// Keystrokes builds a data message carrying raw input bytes.
func Keystrokes(data []byte) Message {
	return Message{Type: TypeData, Data: string(data)}
}

// Command builds a command message for a submitted input line.
func Command(command string) Message {
	return Message{Type: TypeCommand, Command: command}
}

// Resize builds a resize message for a terminal geometry change.
func Resize(cols, rows int) Message {
	return Message{Type: TypeResize, Cols: cols, Rows: rows}
}

// Disconnect builds a disconnect message.
func Disconnect() Message {
	return Message{Type: TypeDisconnect}
}
