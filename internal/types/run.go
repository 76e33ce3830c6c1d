package types

import (
	"fmt"
	"time"
)

// RunStatus represents the lifecycle state of a simulation run.
type RunStatus string

const (
	RunStatusNotStarted   RunStatus = "not_started"  // No snapshot published yet (readers only)
	RunStatusInitializing RunStatus = "initializing" // Run created, stores being prepared
	RunStatusRunning      RunStatus = "running"      // Day in progress, handlers executing
	RunStatusDayComplete  RunStatus = "day_complete" // Every due handler for the day returned
	RunStatusFinished     RunStatus = "finished"     // All days simulated
	RunStatusInterrupted  RunStatus = "interrupted"  // Stopped at a day boundary
	RunStatusError        RunStatus = "error"        // A handler or trigger failure halted the run
)

// Valid returns true if this is a recognized run status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusNotStarted, RunStatusInitializing, RunStatusRunning,
		RunStatusDayComplete, RunStatusFinished, RunStatusInterrupted, RunStatusError:
		return true
	}
	return false
}

// IsTerminal returns true if this status ends the run.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusFinished || s == RunStatusInterrupted || s == RunStatusError
}

// RunMode selects whether the orchestrator pauses at day boundaries.
type RunMode string

const (
	RunModeBatch RunMode = "batch"
	RunModeStep  RunMode = "step"
)

// Valid returns true if this is a recognized run mode.
func (m RunMode) Valid() bool {
	return m == RunModeBatch || m == RunModeStep
}

// ControlSignal is the input accepted while a step-mode run is paused.
type ControlSignal string

const (
	SignalContinue ControlSignal = "continue"
	SignalQuit     ControlSignal = "quit"
)

// Valid returns true if this is a recognized control signal.
func (c ControlSignal) Valid() bool {
	return c == SignalContinue || c == SignalQuit
}

// ParseControlSignal maps console-style input to a signal.
// Empty input means continue.
func ParseControlSignal(s string) (ControlSignal, error) {
	switch s {
	case "", "c", "continue", "next":
		return SignalContinue, nil
	case "q", "quit", "stop":
		return SignalQuit, nil
	}
	return "", fmt.Errorf("unknown control signal %q", s)
}

// Failure describes the operation that halted a run.
type Failure struct {
	Operation Operation `json:"operation,omitempty" yaml:"operation,omitempty"`
	Day       int       `json:"day" yaml:"day"`
	Message   string    `json:"message" yaml:"message"`
}

// RunState is the orchestrator-owned view of run progress.
type RunState struct {
	RunID     string
	DayIndex  int // 1-based; 0 before the first day starts
	TotalDays int
	Date      time.Time
	Status    RunStatus
	Failure   *Failure
}

// Progress returns the completion percentage rounded to one decimal place.
func (s RunState) Progress() float64 {
	if s.TotalDays <= 0 {
		return 0
	}
	pct := float64(s.DayIndex) / float64(s.TotalDays) * 100
	return float64(int(pct*10+0.5)) / 10
}
