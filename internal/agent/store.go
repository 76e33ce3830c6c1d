package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/meow-stack/factory-sim/internal/operations"
	"github.com/meow-stack/factory-sim/internal/types"
)

// Action is one operation the agent performed in place of the orchestrator.
type Action struct {
	RunID     string             `json:"run_id,omitempty"`
	Day       int                `json:"day"`
	Operation types.Operation    `json:"operation"`
	AsOf      string             `json:"as_of"`
	At        time.Time          `json:"at"`
	Result    *operations.Result `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// OK reports whether the action succeeded.
func (a Action) OK() bool { return a.Error == "" }

func (a Action) String() string {
	if !a.OK() {
		return fmt.Sprintf("%s:%s failed: %s", a.Operation, a.AsOf, a.Error)
	}
	return fmt.Sprintf("%s:%s", a.Operation, a.AsOf)
}

// Store persists the agent's action log so it survives the agent process.
type Store struct {
	stateDir string

	mu      sync.RWMutex
	actions []Action
	loaded  bool
}

// NewStore creates a new action store.
// stateDir is typically the simulation data directory.
func NewStore(stateDir string) *Store {
	return &Store{stateDir: stateDir}
}

func (s *Store) path() string {
	return filepath.Join(s.stateDir, "agent_actions.json")
}

// Load reads the action log from disk.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			s.actions = nil
			s.loaded = true
			return nil
		}
		return fmt.Errorf("reading action log: %w", err)
	}

	var actions []Action
	if err := json.Unmarshal(data, &actions); err != nil {
		return fmt.Errorf("parsing action log: %w", err)
	}
	s.actions = actions
	s.loaded = true
	return nil
}

// Reset clears the log, in memory and on disk.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions = nil
	s.loaded = true
	return s.saveLocked()
}

// saveLocked writes the log atomically (caller must hold the lock).
func (s *Store) saveLocked() error {
	if err := os.MkdirAll(s.stateDir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	path := s.path()
	tmpPath := path + ".tmp"

	actions := s.actions
	if actions == nil {
		actions = []Action{}
	}
	data, err := json.MarshalIndent(actions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling actions: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// Append records an action and saves the log.
func (s *Store) Append(ctx context.Context, a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return fmt.Errorf("action store not loaded")
	}

	s.actions = append(s.actions, a)
	return s.saveLocked()
}

// List returns a copy of the log in the order actions were taken.
func (s *Store) List(ctx context.Context) ([]Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, fmt.Errorf("action store not loaded")
	}
	return slices.Clone(s.actions), nil
}
