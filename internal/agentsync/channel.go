// Package agentsync connects a running simulation to external agents.
//
// The orchestrator is the only writer. It publishes immutable snapshots that
// any number of readers poll or wait on, and in step mode it blocks in
// AwaitContinue until one reader sends a control signal.
package agentsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
	"github.com/meow-stack/factory-sim/internal/types"
)

// Sink persists published snapshots outside the process.
type Sink interface {
	Name() string
	Write(snap types.Snapshot) error
}

// Channel is the in-process synchronization point between the orchestrator
// and its agents. The zero value is not usable; use New.
type Channel struct {
	current atomic.Pointer[types.Snapshot]
	seq     atomic.Uint64

	mu      sync.Mutex
	changed chan struct{}            // closed and replaced on every change
	waiter  chan types.ControlSignal // non-nil while AwaitContinue blocks
	sinks   []Sink

	now    func() time.Time
	logger *slog.Logger
}

// New creates a channel that also writes every snapshot to sinks.
func New(logger *slog.Logger, sinks ...Sink) *Channel {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Channel{
		changed: make(chan struct{}),
		sinks:   sinks,
		now:     time.Now,
		logger:  logger.With("component", "agentsync"),
	}
}

// ReadSnapshot returns the last published snapshot without blocking. Before
// the first publish it returns NotStartedSnapshot.
func (c *Channel) ReadSnapshot() types.Snapshot {
	if s := c.current.Load(); s != nil {
		return s.Clone()
	}
	return types.NotStartedSnapshot()
}

// Publish stamps snap with the next sequence number and the wall-clock time,
// replaces the current snapshot and wakes every waiter. Sink failures are
// returned joined as SYNC_001 errors; the in-process snapshot is replaced
// regardless.
func (c *Channel) Publish(snap types.Snapshot) error {
	snap.Metadata.Sequence = c.seq.Add(1)
	snap.Metadata.LastUpdate = c.now().UTC()
	if snap.Metadata.Version == "" {
		snap.Metadata.Version = types.SnapshotVersion
	}
	stored := snap.Clone()
	c.current.Store(&stored)

	c.mu.Lock()
	c.notifyLocked()
	sinks := c.sinks
	c.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Write(snap); err != nil {
			errs = append(errs, simerrors.SyncPublish(s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// WaitFor blocks until a published snapshot satisfies pred or ctx is done.
func (c *Channel) WaitFor(ctx context.Context, pred func(types.Snapshot) bool) (types.Snapshot, error) {
	for {
		c.mu.Lock()
		changed := c.changed
		c.mu.Unlock()

		snap := c.ReadSnapshot()
		if pred(snap) {
			return snap, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// AwaitContinue blocks until Signal delivers a control signal or ctx is
// done. At most one call may be outstanding.
func (c *Channel) AwaitContinue(ctx context.Context) (types.ControlSignal, error) {
	c.mu.Lock()
	if c.waiter != nil {
		c.mu.Unlock()
		return "", simerrors.SyncControl(errors.New("AwaitContinue is already outstanding"))
	}
	w := make(chan types.ControlSignal, 1)
	c.waiter = w
	c.notifyLocked()
	c.mu.Unlock()

	c.logger.Debug("awaiting control signal")

	select {
	case sig := <-w:
		return sig, nil
	case <-ctx.Done():
		c.mu.Lock()
		if c.waiter == w {
			c.waiter = nil
			c.notifyLocked()
		}
		c.mu.Unlock()
		// A signal may have raced with cancellation.
		select {
		case sig := <-w:
			return sig, nil
		default:
		}
		return "", ctx.Err()
	}
}

// Awaiting reports whether the orchestrator is blocked in AwaitContinue.
func (c *Channel) Awaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiter != nil
}

// Signal delivers sig to the outstanding AwaitContinue. It fails with
// SYNC_003 when nothing is waiting so a stray signal can never skip a day.
func (c *Channel) Signal(sig types.ControlSignal) error {
	return c.SignalAt(sig, 0)
}

// SignalAt is Signal restricted to the pause after day. Zero matches any.
func (c *Channel) SignalAt(sig types.ControlSignal, day int) error {
	if !sig.Valid() {
		return simerrors.SyncControl(errors.New("invalid control signal " + string(sig)))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waiter == nil || (day > 0 && c.ReadSnapshot().Simulation.Day != day) {
		return simerrors.SyncNotAwaiting(string(sig))
	}
	c.waiter <- sig
	c.waiter = nil
	c.notifyLocked()
	c.logger.Debug("control signal delivered", "signal", sig)
	return nil
}

// Changed returns a channel closed on the next publish or pause change.
func (c *Channel) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// WaitAwaiting blocks until the orchestrator is blocked in AwaitContinue.
func (c *Channel) WaitAwaiting(ctx context.Context) error {
	for {
		c.mu.Lock()
		awaiting := c.waiter != nil
		changed := c.changed
		c.mu.Unlock()
		if awaiting {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitPause blocks until the orchestrator pauses after day. It fails with
// SYNC_003 once the run has moved past day or ended.
func (c *Channel) WaitPause(ctx context.Context, day int) error {
	for {
		c.mu.Lock()
		awaiting := c.waiter != nil
		changed := c.changed
		c.mu.Unlock()

		sim := c.ReadSnapshot().Simulation
		if sim.Day > day || sim.Status.IsTerminal() {
			return simerrors.SyncNotAwaiting(fmt.Sprintf("pause after day %d", day))
		}
		if awaiting && sim.Day == day {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Channel) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}
