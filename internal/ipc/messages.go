// Package ipc provides message types and utilities for orchestrator-agent communication.
//
// The IPC protocol uses newline-delimited JSON over Unix domain sockets.
// Each message is a single JSON object on one line.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/meow-stack/factory-sim/internal/types"
)

// MessageType identifies the IPC message kind.
type MessageType string

const (
	// Request types (agent → orchestrator)
	MsgGetSnapshot MessageType = "get_snapshot"
	MsgAwaitStatus MessageType = "await_status"
	MsgControl     MessageType = "control"

	// Response types (orchestrator → agent)
	MsgSnapshot MessageType = "snapshot"
	MsgAck      MessageType = "ack"
	MsgError    MessageType = "error"
)

// Valid returns true if this is a recognized message type.
func (t MessageType) Valid() bool {
	return t.IsRequest() || t.IsResponse()
}

// IsRequest returns true if this message type is sent from agent to orchestrator.
func (t MessageType) IsRequest() bool {
	switch t {
	case MsgGetSnapshot, MsgAwaitStatus, MsgControl:
		return true
	}
	return false
}

// IsResponse returns true if this message type is sent from orchestrator to agent.
func (t MessageType) IsResponse() bool {
	switch t {
	case MsgSnapshot, MsgAck, MsgError:
		return true
	}
	return false
}

// --- Request Messages (agent → orchestrator) ---

// GetSnapshotMessage requests the current snapshot.
// Sent by: factorysim status --live
type GetSnapshotMessage struct {
	Type MessageType `json:"type"` // Always "get_snapshot"
}

// AwaitStatusMessage blocks until the snapshot reaches Status.
// Sent by: factorysim agent
//
// Day, when non-zero, additionally requires the snapshot's day index to be
// at least Day. A terminal run status always ends the wait.
type AwaitStatusMessage struct {
	Type    MessageType     `json:"type"` // Always "await_status"
	Status  types.RunStatus `json:"status"`
	Day     int             `json:"day,omitempty"`
	Timeout string          `json:"timeout,omitempty"` // Duration string, e.g., "5m"
}

// ControlMessage delivers a step-mode signal.
// Sent by: factorysim continue / factorysim quit
//
// With Wait set the server holds the request until the orchestrator is
// paused, bounded by Timeout. A non-zero Day only answers the pause that
// follows that day; once the run has moved past it the signal is refused.
type ControlMessage struct {
	Type    MessageType         `json:"type"` // Always "control"
	Signal  types.ControlSignal `json:"signal"`
	Day     int                 `json:"day,omitempty"`
	Wait    bool                `json:"wait,omitempty"`
	Timeout string              `json:"timeout,omitempty"`
}

// --- Response Messages (orchestrator → agent) ---

// SnapshotMessage returns a snapshot.
type SnapshotMessage struct {
	Type     MessageType    `json:"type"` // Always "snapshot"
	Snapshot types.Snapshot `json:"snapshot"`
}

// AckMessage confirms successful operation.
type AckMessage struct {
	Type    MessageType `json:"type"` // Always "ack"
	Success bool        `json:"success"`
}

// ErrorMessage reports an error to the agent.
type ErrorMessage struct {
	Type    MessageType `json:"type"`           // Always "error"
	Code    string      `json:"code,omitempty"` // SimError code when known
	Message string      `json:"message"`
}

// --- Message Interface ---

// Message is the interface implemented by all IPC messages.
type Message interface {
	// MessageType returns the type identifier for this message.
	MessageType() MessageType
}

func (m *GetSnapshotMessage) MessageType() MessageType { return MsgGetSnapshot }
func (m *AwaitStatusMessage) MessageType() MessageType { return MsgAwaitStatus }
func (m *ControlMessage) MessageType() MessageType     { return MsgControl }
func (m *SnapshotMessage) MessageType() MessageType    { return MsgSnapshot }
func (m *AckMessage) MessageType() MessageType         { return MsgAck }
func (m *ErrorMessage) MessageType() MessageType       { return MsgError }

// --- Parsing Helpers ---

// RawMessage is used for initial parsing to determine message type.
type RawMessage struct {
	Type MessageType `json:"type"`
}

// ParseMessage parses a JSON message and returns the appropriate typed message.
// Returns an error if the message type is unknown or JSON is malformed.
func ParseMessage(data []byte) (Message, error) {
	var raw RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var msg Message
	switch raw.Type {
	case MsgGetSnapshot:
		msg = &GetSnapshotMessage{}
	case MsgAwaitStatus:
		msg = &AwaitStatusMessage{}
	case MsgControl:
		msg = &ControlMessage{}
	case MsgSnapshot:
		msg = &SnapshotMessage{}
	case MsgAck:
		msg = &AckMessage{}
	case MsgError:
		msg = &ErrorMessage{}
	default:
		return nil, fmt.Errorf("unknown message type: %q", raw.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("failed to parse %s message: %w", raw.Type, err)
	}

	return msg, nil
}

// Marshal serializes a message to JSON as a single line (no pretty printing).
func Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// NewError builds an ErrorMessage from err, keeping its code if it has one.
func NewError(code string, err error) *ErrorMessage {
	return &ErrorMessage{Type: MsgError, Code: code, Message: err.Error()}
}
