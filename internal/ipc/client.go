package ipc

import (
	"bufio"
	"fmt"
	"net"
	"time"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
	"github.com/meow-stack/factory-sim/internal/types"
)

// waitGrace is added to the connection deadline of requests that block on
// the server so the server-side timeout fires first.
const waitGrace = 5 * time.Second

// Client connects to an IPC server to send messages.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    30 * time.Second,
	}
}

// SetTimeout sets the connection and read/write timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// Send sends a message and waits for a response.
// The response is parsed and returned as the appropriate message type.
func (c *Client) Send(msg any) (Message, error) {
	return c.send(msg, c.timeout)
}

func (c *Client) send(msg any, deadline time.Duration) (Message, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IPC socket %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(deadline)); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	data, err := Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	data = append(data, '\n')

	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	reader := bufio.NewReader(conn)
	responseLine, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	response, err := ParseMessage(responseLine)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return response, nil
}

// GetSnapshot requests the current snapshot.
func (c *Client) GetSnapshot() (types.Snapshot, error) {
	response, err := c.Send(&GetSnapshotMessage{Type: MsgGetSnapshot})
	if err != nil {
		return types.Snapshot{}, err
	}
	return snapshotFrom(response)
}

// AwaitStatus blocks until the run reaches status (on day or later when day
// is non-zero) or a terminal status. A zero timeout waits for as long as the
// client timeout allows.
func (c *Client) AwaitStatus(status types.RunStatus, day int, timeout time.Duration) (types.Snapshot, error) {
	msg := &AwaitStatusMessage{Type: MsgAwaitStatus, Status: status, Day: day}
	deadline := c.timeout
	if timeout > 0 {
		msg.Timeout = timeout.String()
		deadline = timeout + waitGrace
	}
	response, err := c.send(msg, deadline)
	if err != nil {
		return types.Snapshot{}, err
	}
	return snapshotFrom(response)
}

// Control sends a step-mode signal. With wait set, the server holds the
// request until the orchestrator pauses, for at most timeout. A non-zero day
// restricts the signal to the pause after that day.
func (c *Client) Control(sig types.ControlSignal, day int, wait bool, timeout time.Duration) error {
	msg := &ControlMessage{Type: MsgControl, Signal: sig, Day: day, Wait: wait}
	deadline := c.timeout
	if wait && timeout > 0 {
		msg.Timeout = timeout.String()
		deadline = timeout + waitGrace
	}
	response, err := c.send(msg, deadline)
	if err != nil {
		return err
	}
	switch r := response.(type) {
	case *AckMessage:
		if !r.Success {
			return fmt.Errorf("control %s was not accepted", sig)
		}
		return nil
	case *ErrorMessage:
		return remoteError(r)
	default:
		return fmt.Errorf("unexpected response type: %T", response)
	}
}

func snapshotFrom(response Message) (types.Snapshot, error) {
	switch r := response.(type) {
	case *SnapshotMessage:
		return r.Snapshot, nil
	case *ErrorMessage:
		return types.Snapshot{}, remoteError(r)
	default:
		return types.Snapshot{}, fmt.Errorf("unexpected response type: %T", response)
	}
}

// remoteError restores the code of a server-side SimError.
func remoteError(m *ErrorMessage) error {
	if m.Code != "" {
		return simerrors.New(m.Code, m.Message)
	}
	return fmt.Errorf("server error: %s", m.Message)
}
