// Package orchestrator drives a simulation day by day.
//
// Each day it evaluates the triggers, invokes the due and enabled handlers
// strictly in order, defers the due but disabled ones to external agents and
// publishes a snapshot before and after. In step mode it then blocks until a
// control signal arrives.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
	"github.com/meow-stack/factory-sim/internal/logging"
	"github.com/meow-stack/factory-sim/internal/metrics"
	"github.com/meow-stack/factory-sim/internal/operations"
	"github.com/meow-stack/factory-sim/internal/schedule"
	"github.com/meow-stack/factory-sim/internal/types"
)

// Initializer resets and seeds the stores for a fresh run.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Publisher receives every snapshot the run produces.
type Publisher interface {
	Publish(snap types.Snapshot) error
}

// Control is the step-mode blocking point.
type Control interface {
	AwaitContinue(ctx context.Context) (types.ControlSignal, error)
}

// TriggerFunc returns the operations due on a day.
type TriggerFunc func(day int, date time.Time) ([]types.Operation, error)

// Config describes one run.
type Config struct {
	Start    time.Time
	Days     int
	Fresh    bool // reinitialize the stores before day 1
	Disabled []types.Operation
	Mode     types.RunMode
}

// Validate checks the run configuration.
func (c Config) Validate() error {
	if c.Start.IsZero() {
		return simerrors.ConfigMissingField("start")
	}
	if c.Days < 1 {
		return simerrors.ConfigInvalidValue("days", c.Days, "must be at least 1")
	}
	if c.Mode != "" && !c.Mode.Valid() {
		return simerrors.ConfigInvalidValue("mode", c.Mode, "must be batch or step")
	}
	for _, op := range c.Disabled {
		if !op.Valid() {
			return simerrors.ConfigUnknownOperation(string(op))
		}
	}
	return nil
}

// Invocation records one handler call.
type Invocation struct {
	Day       int                `json:"day"`
	Operation types.Operation    `json:"operation"`
	AsOf      time.Time          `json:"as_of"`
	Result    *operations.Result `json:"result,omitempty"`
	Duration  time.Duration      `json:"duration"`
}

// Deferral records a due operation left to an external agent.
type Deferral struct {
	Day       int             `json:"day"`
	Operation types.Operation `json:"operation"`
}

// Summary is the outcome of a run.
type Summary struct {
	RunID        string          `json:"run_id"`
	Status       types.RunStatus `json:"status"`
	Mode         types.RunMode   `json:"mode"`
	DayIndex     int             `json:"day_index"`
	TotalDays    int             `json:"total_days"`
	Date         time.Time       `json:"date"`
	Invocations  []Invocation    `json:"invocations"`
	Deferred     []Deferral      `json:"deferred"`
	Failure      *types.Failure  `json:"failure,omitempty"`
	SyncWarnings int             `json:"sync_warnings"`
}

// Orchestrator runs simulations. It never touches business data itself;
// only handlers mutate the stores.
type Orchestrator struct {
	stores   operations.Stores
	handlers []operations.Handler
	logger   *slog.Logger

	initializer Initializer
	publisher   Publisher
	control     Control
	metrics     metrics.Recorder
	tracer      TracerInterface
	triggers    TriggerFunc
	newRunID    func() string

	mu      sync.Mutex
	current *run
	early   int64 // warnings reported before a run started
}

// New creates an Orchestrator over the given stores and handlers.
func New(st operations.Stores, handlers []operations.Handler, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		stores:   st,
		handlers: handlers,
		logger:   logger,
		metrics:  metrics.NoOp{},
		tracer:   &NullTracer{},
		triggers: schedule.DueOperations,
		newRunID: uuid.NewString,
	}
}

// SetInitializer sets the store initializer used by fresh runs.
func (o *Orchestrator) SetInitializer(i Initializer) { o.initializer = i }

// SetPublisher sets the snapshot publisher.
func (o *Orchestrator) SetPublisher(p Publisher) { o.publisher = p }

// SetControl sets the step-mode control source.
func (o *Orchestrator) SetControl(c Control) { o.control = c }

// SetMetrics sets the metrics recorder.
func (o *Orchestrator) SetMetrics(m metrics.Recorder) { o.metrics = m }

// SetTracer sets the run tracer.
func (o *Orchestrator) SetTracer(t TracerInterface) { o.tracer = t }

// SetTriggers replaces the trigger evaluator.
func (o *Orchestrator) SetTriggers(f TriggerFunc) { o.triggers = f }

// SetRunIDFunc replaces the run id generator.
func (o *Orchestrator) SetRunIDFunc(f func() string) { o.newRunID = f }

// run is the state owned by one Run call.
type run struct {
	cfg      Config
	registry *Registry
	clock    *schedule.Clock
	state    types.RunState
	pending  []types.Operation
	summary  *Summary
	logger   *slog.Logger
	warnings atomic.Int64
}

// Run executes cfg to completion, interruption or failure. The summary is
// returned in every case once the run has started; the error is non-nil
// only when the run ends in the error status or cannot start.
//
// Cancelling ctx interrupts the run at the next day boundary. Handlers run
// with a context that is never cancelled so a day is never half applied.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (*Summary, error) {
	if cfg.Mode == "" {
		cfg.Mode = types.RunModeBatch
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == types.RunModeStep && o.control == nil {
		return nil, simerrors.SyncControl(errors.New("step mode requires a control source"))
	}
	registry, err := NewRegistry(o.handlers, cfg.Disabled)
	if err != nil {
		return nil, err
	}
	clock, err := schedule.NewClock(cfg.Start, cfg.Days)
	if err != nil {
		return nil, simerrors.ConfigInvalidValue("start", cfg.Start, err.Error())
	}

	runID := o.newRunID()
	r := &run{
		cfg:      cfg,
		registry: registry,
		clock:    clock,
		state: types.RunState{
			RunID:     runID,
			TotalDays: cfg.Days,
			Date:      clock.Date(),
			Status:    types.RunStatusInitializing,
		},
		pending: []types.Operation{},
		summary: &Summary{
			RunID:       runID,
			Mode:        cfg.Mode,
			TotalDays:   cfg.Days,
			Invocations: []Invocation{},
			Deferred:    []Deferral{},
		},
		logger: o.logger,
	}
	o.attach(r)
	defer o.detach(r)

	r.logger.Info("simulation starting",
		"start", clock.Date().Format(types.DateLayout),
		"days", cfg.Days,
		"mode", cfg.Mode,
		"fresh", cfg.Fresh,
		"disabled", types.OperationNames(registry.Disabled()))
	o.trace(r, TraceEntry{Action: TraceActionStart, Details: map[string]any{
		"days": cfg.Days, "mode": cfg.Mode, "fresh": cfg.Fresh,
		"disabled": types.OperationNames(registry.Disabled()),
	}})
	o.publish(r, clock.Date())

	if cfg.Fresh && o.initializer != nil {
		// A reset is never left half applied.
		if err := o.initializer.Initialize(context.WithoutCancel(ctx)); err != nil {
			return o.fail(r, "", fmt.Errorf("initializing stores: %w", err))
		}
	}

	for {
		if ctx.Err() != nil {
			return o.interrupt(r, "cancelled")
		}

		if err := o.runDay(ctx, r); err != nil {
			return r.finish(), err
		}

		if cfg.Mode == types.RunModeStep {
			sig, err := o.await(ctx, r)
			if err != nil {
				return o.interrupt(r, "cancelled")
			}
			if sig == types.SignalQuit {
				return o.interrupt(r, "quit")
			}
		}

		if !clock.Advance() {
			break
		}
	}

	r.state.Status = types.RunStatusFinished
	r.pending = []types.Operation{}
	o.publish(r, r.at(types.OpPayroll))
	o.trace(r, TraceEntry{Action: TraceActionFinish, Details: map[string]any{"status": r.state.Status}})
	r.logger.Info("simulation finished", "days", r.state.DayIndex)
	return r.finish(), nil
}

// runDay executes one simulated day and publishes running and day_complete.
func (o *Orchestrator) runDay(ctx context.Context, r *run) error {
	day, date := r.clock.Day(), r.clock.Date()
	r.state.DayIndex = day
	r.state.Date = date
	r.pending = []types.Operation{}
	logger := logging.WithDay(r.logger, day, date.Format(types.DateLayout))
	o.metrics.SetDay(day, r.cfg.Days)

	due, err := o.triggers(day, date)
	if err != nil {
		return o.failErr(r, "", err)
	}

	invoke, pending := r.registry.Plan(due)
	r.pending = pending
	for _, op := range pending {
		r.summary.Deferred = append(r.summary.Deferred, Deferral{Day: day, Operation: op})
		o.metrics.ObserveOperation(op, metrics.OutcomeDeferred, 0)
		o.trace(r, TraceEntry{Action: TraceActionDefer, Operation: op})
		logger.Info("operation deferred to agent", "operation", op)
	}
	o.metrics.SetPending(len(pending))

	r.state.Status = types.RunStatusRunning
	o.publish(r, r.at(types.OpGenerate))
	o.trace(r, TraceEntry{Action: TraceActionDay, Details: map[string]any{"due": types.OperationNames(due)}})
	logger.Info("day started", "due", types.OperationNames(due), "pending", types.OperationNames(pending))

	// Handlers finish even if the run is being interrupted.
	hctx := context.WithoutCancel(ctx)
	for _, slot := range invoke {
		asOf := r.clock.At(slot.Op)
		oplog := logging.WithOperation(logger, string(slot.Op))

		started := time.Now()
		res, err := slot.Handler.Run(hctx, asOf, o.stores)
		elapsed := time.Since(started)
		if err != nil {
			o.metrics.ObserveOperation(slot.Op, metrics.OutcomeFailure, elapsed)
			oplog.Error("operation failed", "error", err)
			return o.failErr(r, slot.Op, simerrors.HandlerFailure(string(slot.Op), day, err))
		}
		if res == nil {
			res = &operations.Result{Operation: slot.Op, AsOf: asOf}
		}
		o.metrics.ObserveOperation(slot.Op, metrics.OutcomeSuccess, elapsed)
		r.summary.Invocations = append(r.summary.Invocations, Invocation{
			Day: day, Operation: slot.Op, AsOf: asOf, Result: res, Duration: elapsed,
		})
		o.trace(r, TraceEntry{Action: TraceActionInvoke, Operation: slot.Op, Details: resultDetails(res)})
		oplog.Info("operation completed", "result", res.String(), "duration", elapsed)
	}

	r.state.Status = types.RunStatusDayComplete
	o.publish(r, r.at(types.OpPayroll))
	logger.Debug("day complete")
	return nil
}

// await blocks for a step-mode control signal.
func (o *Orchestrator) await(ctx context.Context, r *run) (types.ControlSignal, error) {
	o.trace(r, TraceEntry{Action: TraceActionPause})
	r.logger.Info("waiting for control signal", "day", r.state.DayIndex)
	sig, err := o.control.AwaitContinue(ctx)
	if err == nil {
		o.trace(r, TraceEntry{Action: TraceActionSignal, Details: map[string]any{"signal": sig}})
		return sig, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	// A broken control channel is surfaced but does not stop the run.
	o.warn(r, simerrors.SyncControl(err))
	return types.SignalContinue, nil
}

func (o *Orchestrator) interrupt(r *run, reason string) (*Summary, error) {
	r.state.Status = types.RunStatusInterrupted
	r.pending = []types.Operation{}
	o.publish(r, r.at(types.OpPayroll))
	o.trace(r, TraceEntry{Action: TraceActionFinish, Details: map[string]any{"status": r.state.Status, "reason": reason}})
	r.logger.Info("simulation interrupted", "day", r.state.DayIndex, "reason", reason)
	return r.finish(), nil
}

// fail ends the run in the error status and returns the summary with err.
func (o *Orchestrator) fail(r *run, op types.Operation, err error) (*Summary, error) {
	err = o.failErr(r, op, err)
	return r.finish(), err
}

func (o *Orchestrator) failErr(r *run, op types.Operation, err error) error {
	r.state.Status = types.RunStatusError
	r.state.Failure = &types.Failure{Operation: op, Day: r.state.DayIndex, Message: failureMessage(err)}
	o.publish(r, r.at(types.OpGenerate))
	o.trace(r, TraceEntry{Action: TraceActionError, Operation: op, Error: err.Error()})
	r.logger.Error("simulation halted", "day", r.state.DayIndex, "operation", op, "error", err)
	return err
}

// publish hands a snapshot of r to the publisher. Failures are warnings.
func (o *Orchestrator) publish(r *run, now time.Time) {
	if o.publisher == nil {
		return
	}
	snap := types.NewSnapshot(r.state, r.cfg.Mode, now, r.registry.Disabled(), r.pending)
	if err := o.publisher.Publish(snap); err != nil {
		o.warn(r, err)
	}
}

// ReportWarning records a synchronization failure raised outside the run
// loop, such as a side service that could not start. It is safe for
// concurrent use and never stops the run.
func (o *Orchestrator) ReportWarning(err error) {
	o.mu.Lock()
	if o.current != nil {
		o.current.warnings.Add(1)
	} else {
		o.early++
	}
	o.mu.Unlock()
	o.metrics.IncSyncWarnings()
	o.logger.Warn("service failed; simulation continues", "error", err, "code", simerrors.Code(err))
}

func (o *Orchestrator) attach(r *run) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = r
	r.warnings.Add(o.early)
	o.early = 0
}

func (o *Orchestrator) detach(r *run) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == r {
		o.current = nil
	}
}

func (o *Orchestrator) warn(r *run, err error) {
	r.warnings.Add(1)
	o.metrics.IncSyncWarnings()
	r.logger.Warn("agent synchronization failed", "error", err, "code", simerrors.Code(err))
}

func (o *Orchestrator) trace(r *run, e TraceEntry) {
	e.RunID = r.state.RunID
	if e.Day == 0 {
		e.Day = r.state.DayIndex
	}
	if e.Date == "" && !r.state.Date.IsZero() {
		e.Date = r.state.Date.Format(types.DateLayout)
	}
	if err := o.tracer.Log(e); err != nil {
		r.logger.Debug("trace write failed", "error", err)
	}
}

// at is the current day's timestamp for op.
func (r *run) at(op types.Operation) time.Time {
	return r.state.Date.Add(time.Duration(schedule.HourFor(op)) * time.Hour)
}

func (r *run) finish() *Summary {
	r.summary.Status = r.state.Status
	r.summary.DayIndex = r.state.DayIndex
	r.summary.Date = r.state.Date
	r.summary.SyncWarnings = int(r.warnings.Load())
	if r.state.Failure != nil {
		f := *r.state.Failure
		r.summary.Failure = &f
	}
	return r.summary
}

// failureMessage prefers the innermost cause so the snapshot shows what
// actually went wrong rather than the wrapping code.
func failureMessage(err error) string {
	var serr *simerrors.SimError
	if errors.As(err, &serr) && serr.Code == simerrors.CodeHandlerFailure && serr.Cause != nil {
		return serr.Cause.Error()
	}
	return err.Error()
}

func resultDetails(res *operations.Result) map[string]any {
	if res == nil {
		return nil
	}
	d := map[string]any{"affected": res.Affected, "amount": res.Amount}
	if res.Skipped > 0 {
		d["skipped"] = res.Skipped
	}
	if res.Advanced > 0 {
		d["advanced"] = res.Advanced
	}
	if res.Noop {
		d["noop"] = true
	}
	return d
}
