// Package testutil holds fixtures shared by the package tests: seeded
// sqlite store sets and a capturing logger.
package testutil

import (
	"context"
	"testing"

	"github.com/meow-stack/factory-sim/internal/config"
	"github.com/meow-stack/factory-sim/internal/seed"
	"github.com/meow-stack/factory-sim/internal/stores"
)

// Seed is the seed used by every seeded fixture.
const Seed = 42

// NewTestConfig returns the default config rooted at a temporary directory,
// sized for fast tests.
func NewTestConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.Customers = 50
	cfg.Simulation.Employees = 10
	cfg.Sync.IPC = false
	return cfg, t.TempDir()
}

// NewStoreSet opens empty sqlite stores in a temporary directory. The set is
// closed when the test ends.
func NewStoreSet(t *testing.T) *stores.Set {
	t.Helper()
	set, err := stores.Open(context.Background(), stores.Config{Driver: stores.DialectSQLite, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("opening stores: %v", err)
	}
	t.Cleanup(func() { _ = set.Close() })
	return set
}

// NewSeededSet opens stores holding a small generated company: 50 customers,
// 10 employees, the three BOMs and 100 widgets' worth of stock.
func NewSeededSet(t *testing.T) *stores.Set {
	t.Helper()
	set := NewStoreSet(t)
	opts := seed.Options{Customers: 50, Employees: 10, StockWidgets: 100}
	if _, err := seed.Populate(context.Background(), set, seed.NewRand(Seed), opts); err != nil {
		t.Fatalf("seeding stores: %v", err)
	}
	return set
}
