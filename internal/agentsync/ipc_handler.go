package agentsync

import (
	"context"
	"fmt"
	"time"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
	"github.com/meow-stack/factory-sim/internal/ipc"
	"github.com/meow-stack/factory-sim/internal/types"
)

// IPCHandler serves a Channel over the ipc protocol.
type IPCHandler struct {
	Channel *Channel
}

var _ ipc.Handler = (*IPCHandler)(nil)

func (h *IPCHandler) HandleGetSnapshot(ctx context.Context, msg *ipc.GetSnapshotMessage) any {
	return &ipc.SnapshotMessage{Type: ipc.MsgSnapshot, Snapshot: h.Channel.ReadSnapshot()}
}

func (h *IPCHandler) HandleAwaitStatus(ctx context.Context, msg *ipc.AwaitStatusMessage) any {
	if !msg.Status.Valid() {
		return ipc.NewError(simerrors.CodeSyncControl, fmt.Errorf("unknown status %q", msg.Status))
	}
	ctx, cancel, timeout, err := withTimeout(ctx, msg.Timeout)
	if err != nil {
		return ipc.NewError(simerrors.CodeSyncControl, err)
	}
	defer cancel()

	snap, err := h.Channel.WaitFor(ctx, StatusReached(msg.Status, msg.Day))
	if err != nil {
		return timeoutError(ctx, err, string(msg.Status), timeout)
	}
	return &ipc.SnapshotMessage{Type: ipc.MsgSnapshot, Snapshot: snap}
}

func (h *IPCHandler) HandleControl(ctx context.Context, msg *ipc.ControlMessage) any {
	if msg.Wait {
		ctx, cancel, timeout, err := withTimeout(ctx, msg.Timeout)
		if err != nil {
			return ipc.NewError(simerrors.CodeSyncControl, err)
		}
		defer cancel()
		if msg.Day > 0 {
			err = h.Channel.WaitPause(ctx, msg.Day)
		} else {
			err = h.Channel.WaitAwaiting(ctx)
		}
		if simerrors.HasCode(err, simerrors.CodeSyncNotAwaiting) {
			return ipc.NewError(simerrors.CodeSyncNotAwaiting, err)
		}
		if err != nil {
			return timeoutError(ctx, err, "step pause", timeout)
		}
	}
	if err := h.Channel.SignalAt(msg.Signal, msg.Day); err != nil {
		return ipc.NewError(simerrors.Code(err), err)
	}
	return &ipc.AckMessage{Type: ipc.MsgAck, Success: true}
}

// StatusReached matches a snapshot at status, on or after day when day is
// non-zero. Every terminal status also matches so waiters never outlive the
// run.
func StatusReached(status types.RunStatus, day int) func(types.Snapshot) bool {
	return func(s types.Snapshot) bool {
		if s.Simulation.Status.IsTerminal() {
			return true
		}
		if s.Simulation.Status != status {
			return false
		}
		return day == 0 || s.Simulation.Day >= day
	}
}

func withTimeout(ctx context.Context, raw string) (context.Context, context.CancelFunc, time.Duration, error) {
	if raw == "" {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("invalid timeout %q: %w", raw, err)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, cancel, d, nil
}

func timeoutError(ctx context.Context, err error, waitingFor string, timeout time.Duration) *ipc.ErrorMessage {
	if ctx.Err() == context.DeadlineExceeded {
		e := simerrors.ControlTimeout(waitingFor, timeout.String())
		return ipc.NewError(e.Code, e)
	}
	return ipc.NewError(simerrors.CodeSyncControl, err)
}
