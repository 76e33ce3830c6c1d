package status

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meow-stack/factory-sim/internal/operations"
	"github.com/meow-stack/factory-sim/internal/orchestrator"
	"github.com/meow-stack/factory-sim/internal/stores"
	"github.com/meow-stack/factory-sim/internal/types"
)

type fakeSources struct {
	orders    []stores.StatusTotal
	ledger    stores.LedgerTotals
	inventory stores.InventoryStats
	err       error
	calls     []string
}

func (f *fakeSources) StatusTotals(context.Context) ([]stores.StatusTotal, error) {
	f.calls = append(f.calls, "orders")
	return f.orders, f.err
}

func (f *fakeSources) Totals(context.Context) (stores.LedgerTotals, error) {
	f.calls = append(f.calls, "ledger")
	return f.ledger, nil
}

func (f *fakeSources) Stats(context.Context) (stores.InventoryStats, error) {
	f.calls = append(f.calls, "inventory")
	return f.inventory, nil
}

func (f *fakeSources) sources() Sources {
	return Sources{Orders: f, Ledger: f, Inventory: f}
}

func newFakeSources() *fakeSources {
	return &fakeSources{
		orders: []stores.StatusTotal{
			{Status: stores.OrderShipped, Count: 4, Value: 4000},
			{Status: stores.OrderReceived, Count: 2, Value: 1500},
			{Status: stores.OrderProcessing, Count: 3, Value: 2500},
		},
		ledger: stores.LedgerTotals{
			Revenue:        stores.Total{Count: 4, Sum: 4000},
			Consumed:       stores.Total{Count: 7, Sum: 2800},
			Payroll:        stores.Total{Count: 200, Sum: 900},
			StockPurchases: stores.Total{Count: 12, Sum: 600},
		},
		inventory: stores.InventoryStats{Parts: 40, Min: 120, Max: 2600, Avg: 811.6},
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCollect(t *testing.T) {
	src := newFakeSources()

	summary, err := Collect(context.Background(), src.sources())
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	wantOrder := []stores.OrderStatus{stores.OrderReceived, stores.OrderProcessing, stores.OrderShipped}
	for i, want := range wantOrder {
		if summary.Orders[i].Status != want {
			t.Errorf("Orders[%d].Status = %s, want %s", i, summary.Orders[i].Status, want)
		}
	}
	if summary.TotalOrders != 9 {
		t.Errorf("TotalOrders = %d, want 9", summary.TotalOrders)
	}
	if !approx(summary.TotalValue, 8000) {
		t.Errorf("TotalValue = %v, want 8000", summary.TotalValue)
	}
	if summary.Inventory.Max != 2600 {
		t.Errorf("Inventory.Max = %d, want 2600", summary.Inventory.Max)
	}
	if len(src.calls) != 3 {
		t.Errorf("calls = %v, want one per store", src.calls)
	}
}

func TestCollect_Financials(t *testing.T) {
	summary, err := Collect(context.Background(), newFakeSources().sources())
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	f := summary.Financials
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"gross profit", f.GrossProfit, 4000 - 2800},
		{"net profit", f.NetProfit, 4000 - 2800 - 900 - 600},
		{"cash in", f.CashIn, 4000},
		{"cash out", f.CashOut, 900 + 600},
		{"net cash", f.NetCash, 4000 - 900 - 600},
	}
	for _, tt := range tests {
		if !approx(tt.got, tt.want) {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if f.Payroll.Count != 200 {
		t.Errorf("Payroll.Count = %d, want 200", f.Payroll.Count)
	}
}

func TestCollect_Error(t *testing.T) {
	src := newFakeSources()
	src.err = errors.New("database is locked")

	if _, err := Collect(context.Background(), src.sources()); err == nil {
		t.Fatal("Collect() should fail when a store query fails")
	}
	if len(src.calls) != 1 {
		t.Errorf("calls = %v, want to stop after the failing query", src.calls)
	}
}

func TestNewRunSummary(t *testing.T) {
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sum := &orchestrator.Summary{
		RunID:     "run-1",
		Status:    types.RunStatusFinished,
		Mode:      types.RunModeBatch,
		DayIndex:  2,
		TotalDays: 2,
		Date:      monday.AddDate(0, 0, 1),
		Invocations: []orchestrator.Invocation{
			{Day: 1, Operation: types.OpGenerate, Result: &operations.Result{Affected: 5}},
			{Day: 1, Operation: types.OpProcess, Result: &operations.Result{Affected: 3, Amount: -120.5}},
			{Day: 2, Operation: types.OpGenerate, Result: &operations.Result{Affected: 7}},
			{Day: 2, Operation: types.OpProcess},
		},
		Deferred:     []orchestrator.Deferral{{Day: 1, Operation: types.OpRestock}},
		SyncWarnings: 1,
	}

	rs := NewRunSummary(sum)

	if rs.Date != "2024-01-02" {
		t.Errorf("Date = %q, want 2024-01-02", rs.Date)
	}
	if rs.Deferred != 1 {
		t.Errorf("Deferred = %d, want 1", rs.Deferred)
	}
	want := []OperationStats{
		{Operation: types.OpGenerate, Runs: 2, Affected: 12},
		{Operation: types.OpProcess, Runs: 2, Affected: 3, Amount: -120.5},
		{Operation: types.OpRestock, Deferred: 1},
	}
	if len(rs.Operations) != len(want) {
		t.Fatalf("Operations = %+v, want %d entries", rs.Operations, len(want))
	}
	for i := range want {
		if rs.Operations[i] != want[i] {
			t.Errorf("Operations[%d] = %+v, want %+v", i, rs.Operations[i], want[i])
		}
	}
}
