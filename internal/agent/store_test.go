package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meow-stack/factory-sim/internal/operations"
	"github.com/meow-stack/factory-sim/internal/types"
)

func TestStore_NotLoaded(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	if err := store.Append(ctx, Action{Operation: types.OpRestock}); err == nil {
		t.Error("Append() before Load should fail")
	}
	if _, err := store.List(ctx); err == nil {
		t.Error("List() before Load should fail")
	}
}

func TestStore_AppendPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := NewStore(dir)
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	actions := []Action{
		{Day: 1, Operation: types.OpRestock, AsOf: "2024-01-01 10:00:00", At: time.Now().UTC(),
			Result: &operations.Result{Operation: types.OpRestock, Affected: 12, Amount: 340.5}},
		{Day: 5, Operation: types.OpPayroll, AsOf: "2024-01-05 10:00:00", Error: "no employees"},
	}
	for _, a := range actions {
		if err := store.Append(ctx, a); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "agent_actions.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file should not remain after save")
	}

	reloaded := NewStore(dir)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	got, err := reloaded.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() = %d actions, want 2", len(got))
	}
	if got[0].Result == nil || got[0].Result.Affected != 12 {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].OK() || got[1].Operation != types.OpPayroll {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestStore_Reset(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store := NewStore(dir)
	store.Load(ctx)
	store.Append(ctx, Action{Operation: types.OpProcess})

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "agent_actions.json"))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("file = %q, want []", data)
	}
}

func TestStore_ListIsACopy(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	store.Load(ctx)
	store.Append(ctx, Action{Operation: types.OpProcess})

	got, _ := store.List(ctx)
	got[0].Operation = types.OpPayroll

	again, _ := store.List(ctx)
	if again[0].Operation != types.OpProcess {
		t.Error("List() must not expose internal state")
	}
}
