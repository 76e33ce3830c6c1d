package ipc

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/meow-stack/factory-sim/internal/types"
)

func TestMessageType_Valid(t *testing.T) {
	tests := []struct {
		mt   MessageType
		want bool
	}{
		{MsgGetSnapshot, true},
		{MsgAwaitStatus, true},
		{MsgControl, true},
		{MsgSnapshot, true},
		{MsgAck, true},
		{MsgError, true},
		{"step_done", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.mt.Valid(); got != tt.want {
			t.Errorf("MessageType(%q).Valid() = %v, want %v", tt.mt, got, tt.want)
		}
	}
}

func TestMessageType_IsRequest(t *testing.T) {
	requests := []MessageType{MsgGetSnapshot, MsgAwaitStatus, MsgControl}
	responses := []MessageType{MsgSnapshot, MsgAck, MsgError}

	for _, mt := range requests {
		if !mt.IsRequest() || mt.IsResponse() {
			t.Errorf("MessageType(%q) should be a request only", mt)
		}
	}
	for _, mt := range responses {
		if mt.IsRequest() || !mt.IsResponse() {
			t.Errorf("MessageType(%q) should be a response only", mt)
		}
	}
}

func TestControlMessage_Marshal(t *testing.T) {
	msg := ControlMessage{Type: MsgControl, Signal: types.SignalContinue, Wait: true, Timeout: "5s"}

	data, err := Marshal(&msg)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if strings.Contains(string(data), "\n") {
		t.Error("marshaled message should be a single line")
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if decoded["type"] != "control" || decoded["signal"] != "continue" || decoded["wait"] != true {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name string
		data string
		want MessageType
	}{
		{"get_snapshot", `{"type":"get_snapshot"}`, MsgGetSnapshot},
		{"await_status", `{"type":"await_status","status":"day_complete","day":2}`, MsgAwaitStatus},
		{"control", `{"type":"control","signal":"quit"}`, MsgControl},
		{"snapshot", `{"type":"snapshot","snapshot":{"simulation":{"status":"running"}}}`, MsgSnapshot},
		{"ack", `{"type":"ack","success":true}`, MsgAck},
		{"error", `{"type":"error","code":"SYNC_003","message":"nope"}`, MsgError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMessage([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseMessage() error: %v", err)
			}
			if msg.MessageType() != tt.want {
				t.Errorf("MessageType() = %q, want %q", msg.MessageType(), tt.want)
			}
		})
	}
}

func TestParseMessage_Fields(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"await_status","status":"day_complete","day":2,"timeout":"1m"}`))
	if err != nil {
		t.Fatalf("ParseMessage() error: %v", err)
	}
	m := msg.(*AwaitStatusMessage)
	if m.Status != types.RunStatusDayComplete || m.Day != 2 || m.Timeout != "1m" {
		t.Errorf("AwaitStatusMessage = %+v", m)
	}

	msg, err = ParseMessage([]byte(`{"type":"snapshot","snapshot":{"simulation":{"day_number":4,"status":"running"},"operations":{"pending":["restock"]}}}`))
	if err != nil {
		t.Fatalf("ParseMessage() error: %v", err)
	}
	snap := msg.(*SnapshotMessage).Snapshot
	if snap.Simulation.Day != 4 || !snap.IsPending(types.OpRestock) {
		t.Errorf("Snapshot = %+v", snap)
	}
}

func TestParseMessage_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"invalid json", `{not json`, "invalid JSON"},
		{"unknown type", `{"type":"step_done"}`, "unknown message type"},
		{"bad field", `{"type":"await_status","day":"two"}`, "failed to parse await_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.data))
			if err == nil {
				t.Fatal("ParseMessage() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}
