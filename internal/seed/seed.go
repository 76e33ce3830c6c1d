// Package seed populates freshly reset stores with a deterministic company:
// customers, employees, bills of materials and opening stock.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/meow-stack/factory-sim/internal/stores"
)

// Options sizes the generated company.
type Options struct {
	Customers int
	Employees int
	// StockWidgets is how many of each widget the opening stock can build.
	StockWidgets int
}

// DefaultOptions matches the default simulation config.
func DefaultOptions() Options {
	return Options{Customers: 1000, Employees: 200, StockWidgets: 100}
}

// Report describes what Populate wrote.
type Report struct {
	Customers     int
	Employees     int
	BOMLines      int
	Parts         int
	WeeklyPayroll float64
}

// NewRand returns the generator used for a given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Seeder resets and repopulates a store set. It is the fresh-run initializer.
type Seeder struct {
	Stores  *stores.Set
	Seed    uint64
	Options Options
	Logger  *slog.Logger
}

// Initialize drops all store data and writes a new company.
func (s *Seeder) Initialize(ctx context.Context) error {
	if err := s.Stores.Reset(ctx); err != nil {
		return fmt.Errorf("reset stores: %w", err)
	}
	report, err := Populate(ctx, s.Stores, NewRand(s.Seed), s.Options)
	if err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("stores initialized",
			"seed", s.Seed,
			"customers", report.Customers,
			"employees", report.Employees,
			"bom_lines", report.BOMLines,
			"parts", report.Parts,
			"weekly_payroll", report.WeeklyPayroll,
		)
	}
	return nil
}

// Populate writes a generated company into empty stores.
func Populate(ctx context.Context, set *stores.Set, rng *rand.Rand, opts Options) (*Report, error) {
	customers := GenerateCustomers(rng, opts.Customers)
	if err := set.Orders.InsertCustomers(ctx, customers); err != nil {
		return nil, fmt.Errorf("seed customers: %w", err)
	}

	employees := GenerateEmployees(rng, opts.Employees)
	if err := set.Ledger.InsertEmployees(ctx, employees); err != nil {
		return nil, fmt.Errorf("seed employees: %w", err)
	}

	bom := GenerateBOMs(rng)
	if err := set.Inventory.InsertBOM(ctx, bom); err != nil {
		return nil, fmt.Errorf("seed bom: %w", err)
	}

	stock := InitialInventory(bom, opts.StockWidgets)
	for _, p := range stock {
		if err := set.Inventory.SetLevel(ctx, p.Part, p.Qty); err != nil {
			return nil, fmt.Errorf("seed inventory: %w", err)
		}
	}

	payroll := 0.0
	for _, e := range employees {
		payroll += e.WeeklySalary
	}
	return &Report{
		Customers:     len(customers),
		Employees:     len(employees),
		BOMLines:      len(bom),
		Parts:         len(stock),
		WeeklyPayroll: round2(payroll),
	}, nil
}

// InitialInventory returns enough of every part to build widgets units of
// each widget type, in part name order.
func InitialInventory(bom []stores.BOMLine, widgets int) []stores.PartQty {
	need := make(map[string]int)
	for _, l := range bom {
		need[l.Part] += l.QtyNeeded * widgets
	}
	parts := make([]string, 0, len(need))
	for p := range need {
		parts = append(parts, p)
	}
	slices.Sort(parts)

	out := make([]stores.PartQty, len(parts))
	for i, p := range parts {
		out[i] = stores.PartQty{Part: p, Qty: need[p]}
	}
	return out
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// intn returns a value in [lo, hi].
func intn(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
