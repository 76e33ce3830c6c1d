package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/meow-stack/factory-sim/internal/types"
)

// TraceAction represents the type of action being traced.
type TraceAction string

const (
	TraceActionStart  TraceAction = "start"  // Run created
	TraceActionDay    TraceAction = "day"    // Day started with its due operations
	TraceActionInvoke TraceAction = "invoke" // Handler returned successfully
	TraceActionDefer  TraceAction = "defer"  // Due operation left pending
	TraceActionPause  TraceAction = "pause"  // Step mode waiting for a signal
	TraceActionSignal TraceAction = "signal" // Control signal received
	TraceActionFinish TraceAction = "finish" // Run reached a terminal status
	TraceActionError  TraceAction = "error"  // Error occurred
)

// TraceEntry represents a single trace log entry.
type TraceEntry struct {
	Timestamp time.Time       `json:"ts"`
	Action    TraceAction     `json:"action"`
	RunID     string          `json:"run_id,omitempty"`
	Day       int             `json:"day,omitempty"`
	Date      string          `json:"date,omitempty"`
	Operation types.Operation `json:"operation,omitempty"`
	Details   map[string]any  `json:"details,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// TracerInterface defines the interface for run tracers.
type TracerInterface interface {
	Log(entry TraceEntry) error
	Close() error
}

// Tracer logs run traces to a JSONL file.
type Tracer struct {
	mu    sync.Mutex
	file  *os.File
	path  string
	runID string
	now   func() time.Time
}

// NewTracer creates a tracer appending to <dir>/trace.jsonl.
func NewTracer(dir, runID string) (*Tracer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating trace directory: %w", err)
	}

	path := filepath.Join(dir, "trace.jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}

	return &Tracer{
		file:  file,
		path:  path,
		runID: runID,
		now:   time.Now,
	}, nil
}

// Close closes the trace file.
func (t *Tracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file != nil {
		err := t.file.Close()
		t.file = nil
		return err
	}
	return nil
}

// Path returns the trace file path.
func (t *Tracer) Path() string {
	return t.path
}

// Log writes a trace entry to the file.
func (t *Tracer) Log(entry TraceEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return fmt.Errorf("tracer is closed")
	}
	entry.Timestamp = t.now()
	if entry.RunID == "" {
		entry.RunID = t.runID
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling trace entry: %w", err)
	}

	if _, err := t.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing trace entry: %w", err)
	}

	return nil
}

// ReadTrace loads every entry of a trace file.
func ReadTrace(path string) ([]TraceEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	var out []TraceEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var e TraceEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("parsing trace entry %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Compile-time interface checks
var (
	_ TracerInterface = (*Tracer)(nil)
	_ TracerInterface = (*NullTracer)(nil)
)

// NullTracer is a tracer that discards all entries.
type NullTracer struct{}

func (n *NullTracer) Log(_ TraceEntry) error { return nil }
func (n *NullTracer) Close() error           { return nil }
