package types

import (
	"slices"
	"time"
)

// SnapshotVersion is the format version written to every snapshot.
const SnapshotVersion = "1.0"

// Date and time layouts shared by snapshots, stores and the CLI.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// SimulationStatus is the run-status group of a snapshot.
type SimulationStatus struct {
	RunID    string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Date     string    `json:"date" yaml:"date"`
	Time     string    `json:"time" yaml:"time"`
	DateTime string    `json:"datetime" yaml:"datetime"`
	Day      int       `json:"day_number" yaml:"day_number"`
	Total    int       `json:"total_days" yaml:"total_days"`
	Status   RunStatus `json:"status" yaml:"status"`
	Progress float64   `json:"progress_percent" yaml:"progress_percent"`
	Mode     RunMode   `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// OperationStatus is the operation group of a snapshot.
type OperationStatus struct {
	Disabled []Operation `json:"disabled" yaml:"disabled"`
	Pending  []Operation `json:"pending" yaml:"pending"`
}

// SnapshotMetadata is the publication group of a snapshot.
type SnapshotMetadata struct {
	LastUpdate time.Time `json:"last_update" yaml:"last_update"`
	Version    string    `json:"state_version" yaml:"state_version"`
	Sequence   uint64    `json:"sequence" yaml:"sequence"`
}

// Snapshot is the immutable projection of orchestrator state handed to
// external readers. A published snapshot is never modified; publishers
// replace it wholesale.
type Snapshot struct {
	Simulation SimulationStatus `json:"simulation" yaml:"simulation"`
	Operations OperationStatus  `json:"operations" yaml:"operations"`
	Metadata   SnapshotMetadata `json:"metadata" yaml:"metadata"`
	Error      *Failure         `json:"error,omitempty" yaml:"error,omitempty"`
}

// NotStartedSnapshot is returned to readers before anything was published.
func NotStartedSnapshot() Snapshot {
	return Snapshot{
		Simulation: SimulationStatus{Status: RunStatusNotStarted},
		Operations: OperationStatus{Disabled: []Operation{}, Pending: []Operation{}},
		Metadata:   SnapshotMetadata{Version: SnapshotVersion},
	}
}

// NewSnapshot projects run state, the current time-of-day cursor and the
// operation sets into a snapshot. Slices are copied.
func NewSnapshot(state RunState, mode RunMode, now time.Time, disabled, pending []Operation) Snapshot {
	snap := Snapshot{
		Simulation: SimulationStatus{
			RunID:    state.RunID,
			Day:      state.DayIndex,
			Total:    state.TotalDays,
			Status:   state.Status,
			Progress: state.Progress(),
			Mode:     mode,
		},
		Operations: OperationStatus{
			Disabled: cloneOps(disabled),
			Pending:  cloneOps(pending),
		},
		Metadata: SnapshotMetadata{
			Version: SnapshotVersion,
		},
	}
	if !now.IsZero() {
		snap.Simulation.Date = now.Format(DateLayout)
		snap.Simulation.Time = now.Format(TimeLayout)
		snap.Simulation.DateTime = now.Format(DateTimeLayout)
	}
	if state.Failure != nil {
		f := *state.Failure
		snap.Error = &f
	}
	return snap
}

// Clone returns a deep copy so the caller may modify it freely.
func (s Snapshot) Clone() Snapshot {
	s.Operations.Disabled = cloneOps(s.Operations.Disabled)
	s.Operations.Pending = cloneOps(s.Operations.Pending)
	if s.Error != nil {
		f := *s.Error
		s.Error = &f
	}
	return s
}

// Published reports whether the snapshot came from a publisher.
func (s Snapshot) Published() bool {
	return s.Metadata.Sequence > 0
}

// IsPending reports whether op awaits agent action in this snapshot.
func (s Snapshot) IsPending(op Operation) bool {
	return slices.Contains(s.Operations.Pending, op)
}

// IsDisabled reports whether op is disabled for the run.
func (s Snapshot) IsDisabled(op Operation) bool {
	return slices.Contains(s.Operations.Disabled, op)
}

// AsOf parses the snapshot's simulated date and time.
func (s Snapshot) AsOf() (time.Time, error) {
	return time.Parse(DateTimeLayout, s.Simulation.DateTime)
}

func cloneOps(ops []Operation) []Operation {
	out := make([]Operation, len(ops))
	copy(out, ops)
	return out
}
