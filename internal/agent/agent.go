// Package agent is an example external agent. It follows a running
// simulation over IPC and performs the operations the orchestrator leaves
// pending, through the same handlers the orchestrator would have used.
package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
	"github.com/meow-stack/factory-sim/internal/operations"
	"github.com/meow-stack/factory-sim/internal/schedule"
	"github.com/meow-stack/factory-sim/internal/types"
)

// DefaultWaitTimeout bounds one server-side wait. Waits that time out are
// retried, so this only limits how long a single connection stays open.
const DefaultWaitTimeout = 5 * time.Minute

// Source is the simulation as seen through the synchronization channel.
// ipc.Client implements it.
type Source interface {
	AwaitStatus(status types.RunStatus, day int, timeout time.Duration) (types.Snapshot, error)
	Control(sig types.ControlSignal, day int, wait bool, timeout time.Duration) error
}

// Executor performs one operation as of a simulated timestamp.
type Executor interface {
	Exec(ctx context.Context, op types.Operation, asOf time.Time) (*operations.Result, error)
}

// HandlerExecutor runs the built-in handlers against the stores.
type HandlerExecutor struct {
	Env    *operations.Env
	Stores operations.Stores
}

func (e *HandlerExecutor) Exec(ctx context.Context, op types.Operation, asOf time.Time) (*operations.Result, error) {
	h, ok := operations.Lookup(e.Env, op)
	if !ok {
		return nil, simerrors.HandlerMissing(string(op))
	}
	return h.Run(ctx, asOf, e.Stores)
}

// Agent performs pending operations day by day until the run ends.
type Agent struct {
	Source   Source
	Executor Executor
	Store    *Store

	// Drive sends continue after each completed day of a step-mode run.
	Drive       bool
	WaitTimeout time.Duration

	Out    io.Writer
	Logger *slog.Logger
}

// Report is what one agent session did.
type Report struct {
	Final   types.Snapshot
	Actions []Action
}

// Run follows the simulation until it reaches a terminal status or ctx is
// done. Failed actions are logged and recorded; they do not stop the agent.
func (a *Agent) Run(ctx context.Context) (*Report, error) {
	a.defaults()
	report := &Report{}

	a.say("waiting for simulation to start...")
	snap, err := a.await(ctx, types.RunStatusRunning, 0)
	if err != nil {
		return report, err
	}
	report.Final = snap
	if snap.Simulation.Status.IsTerminal() {
		a.say("simulation already ended (%s)", snap.Simulation.Status)
		return report, nil
	}

	a.say("simulation started at %s", snap.Simulation.DateTime)
	if disabled := snap.Operations.Disabled; len(disabled) > 0 {
		a.say("will handle: %s", strings.Join(types.OperationNames(disabled), ", "))
	} else {
		a.say("no operations disabled, monitoring only")
	}

	for day := snap.Simulation.Day; ; day++ {
		snap, err = a.await(ctx, types.RunStatusRunning, day)
		if err != nil {
			return report, err
		}
		report.Final = snap
		if snap.Simulation.Status.IsTerminal() {
			break
		}
		// A batch run may have moved on while we were busy.
		day = snap.Simulation.Day

		a.say("day %d/%d - %s", day, snap.Simulation.Total, snap.Simulation.Date)
		report.Actions = append(report.Actions, a.perform(ctx, snap)...)

		snap, err = a.await(ctx, types.RunStatusDayComplete, day)
		if err != nil {
			return report, err
		}
		report.Final = snap
		if snap.Simulation.Status.IsTerminal() {
			break
		}
		day = snap.Simulation.Day

		if a.Drive && snap.Simulation.Mode == types.RunModeStep {
			if err := a.Source.Control(types.SignalContinue, day, true, a.WaitTimeout); err != nil {
				// Someone else may have continued this pause first.
				if !simerrors.HasCode(err, simerrors.CodeSyncNotAwaiting) {
					a.Logger.Warn("continue failed", "day", day, "error", err)
				}
			}
		}
	}

	a.say("simulation %s", report.Final.Simulation.Status)
	return report, nil
}

// perform executes the pending operations of a running snapshot.
func (a *Agent) perform(ctx context.Context, snap types.Snapshot) []Action {
	pending := snap.Operations.Pending
	if len(pending) == 0 {
		return nil
	}
	a.say("%d pending operation(s) detected", len(pending))

	date, err := time.Parse(types.DateLayout, snap.Simulation.Date)
	if err != nil {
		a.Logger.Error("snapshot has no usable date", "date", snap.Simulation.Date, "error", err)
		return nil
	}

	var actions []Action
	for _, op := range pending {
		asOf := date.Add(time.Duration(schedule.HourFor(op)) * time.Hour)
		action := Action{
			RunID:     snap.Simulation.RunID,
			Day:       snap.Simulation.Day,
			Operation: op,
			AsOf:      asOf.Format(types.DateTimeLayout),
			At:        time.Now(),
		}

		res, err := a.Executor.Exec(ctx, op, asOf)
		if err != nil {
			action.Error = err.Error()
			a.say("✗ %s failed: %v", op, err)
			a.Logger.Error("pending operation failed", "operation", op, "day", action.Day, "error", err)
		} else {
			action.Result = res
			a.say("✓ %s completed", op)
			a.Logger.Info("pending operation completed", "operation", op, "day", action.Day)
		}

		if a.Store != nil {
			if err := a.Store.Append(ctx, action); err != nil {
				a.Logger.Warn("recording action failed", "error", err)
			}
		}
		actions = append(actions, action)
	}
	return actions
}

// await waits for status on day, retrying server-side timeouts.
func (a *Agent) await(ctx context.Context, status types.RunStatus, day int) (types.Snapshot, error) {
	for {
		if err := ctx.Err(); err != nil {
			return types.Snapshot{}, err
		}
		snap, err := a.Source.AwaitStatus(status, day, a.WaitTimeout)
		if simerrors.HasCode(err, simerrors.CodeControlTimeout) {
			continue
		}
		if err != nil {
			return types.Snapshot{}, fmt.Errorf("waiting for %s: %w", status, err)
		}
		return snap, nil
	}
}

func (a *Agent) defaults() {
	if a.WaitTimeout <= 0 {
		a.WaitTimeout = DefaultWaitTimeout
	}
	if a.Out == nil {
		a.Out = io.Discard
	}
	if a.Logger == nil {
		a.Logger = slog.New(slog.DiscardHandler)
	}
}

func (a *Agent) say(format string, args ...any) {
	fmt.Fprintf(a.Out, "agent: "+format+"\n", args...)
}

// PrintReport writes the action log the way the agent ends a session.
func PrintReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "\nActions taken: %d\n", len(r.Actions))
	for _, act := range r.Actions {
		fmt.Fprintf(w, "  - %s\n", act)
	}
}
