package stores

import (
	"context"
	"strings"
	"testing"
	"time"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
)

func openTestSet(t *testing.T) *Set {
	t.Helper()
	set, err := Open(context.Background(), Config{Driver: DialectSQLite, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = set.Close() })
	return set
}

var asOf = time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

func TestRebind(t *testing.T) {
	pg := &db{dialect: DialectPostgres}
	if got := pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Errorf("rebind = %q", got)
	}
	lite := &db{dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q, want unchanged", got)
	}
}

func TestTableDDL_Postgres(t *testing.T) {
	ddl := financialTransactionsTable.ddl(DialectPostgres)
	for _, want := range []string{"BIGSERIAL PRIMARY KEY", "amount DOUBLE PRECISION"} {
		if !strings.Contains(ddl, want) {
			t.Errorf("postgres DDL missing %q:\n%s", want, ddl)
		}
	}
	if strings.Contains(ddl, "AUTOINCREMENT") {
		t.Errorf("postgres DDL kept AUTOINCREMENT:\n%s", ddl)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	if !simerrors.HasCode(err, simerrors.CodeStoreUnsupport) {
		t.Errorf("Open(oracle) error = %v, want %s", err, simerrors.CodeStoreUnsupport)
	}
}

func TestOrdersStore(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)

	if err := set.Orders.InsertCustomers(ctx, []Customer{
		{Name: "Ada", Street: "1 Main", City: "X", State: "CA", Zip: "90000", Email: "a@x", Phone: "1"},
		{Name: "Bob", Street: "2 Main", City: "Y", State: "NY", Zip: "10000", Email: "b@y", Phone: "2"},
	}); err != nil {
		t.Fatalf("InsertCustomers failed: %v", err)
	}
	if n, err := set.Orders.CustomerCount(ctx); err != nil || n != 2 {
		t.Fatalf("CustomerCount = %d, %v; want 2", n, err)
	}
	c, err := set.Orders.CustomerAt(ctx, 1)
	if err != nil || c.Name != "Bob" {
		t.Fatalf("CustomerAt(1) = %+v, %v; want Bob", c, err)
	}
	if _, err := set.Orders.CustomerAt(ctx, 5); !simerrors.HasCode(err, simerrors.CodeStoreNotFound) {
		t.Errorf("CustomerAt(5) error = %v, want not found", err)
	}

	id, err := set.Orders.CreateOrder(ctx, Order{
		CustomerName:  "Ada",
		Widget:        WidgetPro,
		Quantity:      3,
		UnitPrice:     10.5,
		DateOrdered:   asOf,
		PredictedShip: asOf.AddDate(0, 0, 7),
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	got, err := set.Orders.Order(ctx, id)
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	if got.Status != OrderReceived {
		t.Errorf("Status = %s, want order_received", got.Status)
	}
	if !got.DateOrdered.Equal(asOf) {
		t.Errorf("DateOrdered = %v, want %v", got.DateOrdered, asOf)
	}
	if !got.DateShipped.IsZero() {
		t.Errorf("DateShipped = %v, want zero", got.DateShipped)
	}
	if got.Total() != 31.5 {
		t.Errorf("Total() = %v, want 31.5", got.Total())
	}

	if err := set.Orders.SetStatus(ctx, id, OrderProcessing); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	processing, _ := set.Orders.OrdersByStatus(ctx, OrderProcessing)
	if len(processing) != 1 {
		t.Errorf("OrdersByStatus(processing) = %d orders, want 1", len(processing))
	}

	if err := set.Orders.MarkShipped(ctx, id, asOf); err != nil {
		t.Fatalf("MarkShipped failed: %v", err)
	}
	got, _ = set.Orders.Order(ctx, id)
	if got.Status != OrderShipped || got.DateShipped.Format("2006-01-02") != "2024-01-03" {
		t.Errorf("after ship: status=%s date=%v", got.Status, got.DateShipped)
	}

	if err := set.Orders.SetStatus(ctx, 999, OrderShipped); !simerrors.HasCode(err, simerrors.CodeStoreNotFound) {
		t.Errorf("SetStatus(999) error = %v, want not found", err)
	}

	totals, err := set.Orders.StatusTotals(ctx)
	if err != nil {
		t.Fatalf("StatusTotals failed: %v", err)
	}
	if len(totals) != 1 || totals[0].Status != OrderShipped || totals[0].Count != 1 || totals[0].Value != 31.5 {
		t.Errorf("StatusTotals = %+v", totals)
	}
}

func TestInventoryStore_Deduct(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)
	inv := set.Inventory

	if err := inv.InsertBOM(ctx, []BOMLine{
		{Widget: WidgetBasic, Part: "Bolt", QtyNeeded: 2, UnitCost: 0.5},
		{Widget: WidgetBasic, Part: "Gear", QtyNeeded: 1, UnitCost: 3},
	}); err != nil {
		t.Fatalf("InsertBOM failed: %v", err)
	}
	cost, err := inv.WidgetCost(ctx, WidgetBasic)
	if err != nil || cost != 4 {
		t.Errorf("WidgetCost = %v, %v; want 4", cost, err)
	}
	if cost, _ := inv.WidgetCost(ctx, WidgetPro); cost != 0 {
		t.Errorf("WidgetCost(no bom) = %v, want 0", cost)
	}

	_ = inv.SetLevel(ctx, "Bolt", 10)
	_ = inv.SetLevel(ctx, "Gear", 1)

	// Gear would go negative: nothing changes.
	err = inv.Deduct(ctx, []PartQty{{"Bolt", 4}, {"Gear", 2}})
	if !simerrors.HasCode(err, simerrors.CodeStoreShortage) {
		t.Fatalf("Deduct error = %v, want shortage", err)
	}
	if qty, _, _ := inv.Level(ctx, "Bolt"); qty != 10 {
		t.Errorf("Bolt after failed deduct = %d, want 10 (rolled back)", qty)
	}

	if err := inv.Deduct(ctx, []PartQty{{"Bolt", 4}, {"Gear", 1}}); err != nil {
		t.Fatalf("Deduct failed: %v", err)
	}
	levels, _ := inv.Levels(ctx)
	if levels["Bolt"] != 6 || levels["Gear"] != 0 {
		t.Errorf("Levels = %v, want Bolt=6 Gear=0", levels)
	}

	short, err := inv.Shortages(ctx, []PartQty{{"Bolt", 7}, {"Gear", 0}, {"Nut", 1}})
	if err != nil {
		t.Fatalf("Shortages failed: %v", err)
	}
	if len(short) != 2 || short[0].Part != "Bolt" || short[0].Qty != 1 || short[1].Part != "Nut" {
		t.Errorf("Shortages = %+v", short)
	}

	stats, _ := inv.Stats(ctx)
	if stats.Parts != 2 || stats.Min != 0 || stats.Max != 6 || stats.Avg != 3 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestProductionStore(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)
	prod := set.Production

	if err := prod.StartTracking(ctx, 7, asOf); err != nil {
		t.Fatalf("StartTracking failed: %v", err)
	}
	rows, err := prod.Tracking(ctx, 7)
	if err != nil {
		t.Fatalf("Tracking failed: %v", err)
	}
	if len(rows) != len(Stages) {
		t.Fatalf("Tracking rows = %d, want %d", len(rows), len(Stages))
	}
	for i, r := range rows {
		if r.Stage != Stages[i] {
			t.Errorf("row %d stage = %s, want %s", i, r.Stage, Stages[i])
		}
		if r.Started() != (i == 0) {
			t.Errorf("row %d started = %v", i, r.Started())
		}
	}

	done := asOf.Add(5 * time.Hour)
	if err := prod.CompleteStage(ctx, rows[0].ID, done); err != nil {
		t.Fatalf("CompleteStage failed: %v", err)
	}
	if err := prod.StartStage(ctx, rows[1].ID, done); err != nil {
		t.Fatalf("StartStage failed: %v", err)
	}
	active, _ := prod.ActiveStages(ctx)
	if active[StageTest] != 1 || active[StageAssembly] != 0 {
		t.Errorf("ActiveStages = %v, want test=1", active)
	}
	rows, _ = prod.Tracking(ctx, 7)
	if !rows[0].Completion.Equal(done) {
		t.Errorf("Completion = %v, want %v", rows[0].Completion, done)
	}
	if err := prod.StartStage(ctx, 999, done); !simerrors.HasCode(err, simerrors.CodeStoreNotFound) {
		t.Errorf("StartStage(999) error = %v, want not found", err)
	}
}

func TestLedgerStore(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)
	ledger := set.Ledger

	if err := ledger.InsertEmployees(ctx, []Employee{{Name: "Cy", Title: "Engineer", WeeklySalary: 2000}}); err != nil {
		t.Fatalf("InsertEmployees failed: %v", err)
	}
	emps, _ := ledger.Employees(ctx)
	if len(emps) != 1 || emps[0].WeeklySalary != 2000 {
		t.Errorf("Employees = %+v", emps)
	}

	if err := ledger.AppendAll(ctx, []Transaction{
		{Type: TxnCustomerPayment, Amount: 500, Date: asOf, RelatedID: 1},
		{Type: TxnInventoryPurchase, Amount: -120, Date: asOf, RelatedID: 1},
		{Type: TxnInventoryPurchase, Amount: 300, Date: asOf},
		{Type: TxnEmployeePayment, Amount: -2000, Date: asOf, RelatedID: 1},
		{Type: TxnEmployeePayment, Amount: -1000, Date: asOf, RelatedID: 2},
	}); err != nil {
		t.Fatalf("AppendAll failed: %v", err)
	}

	txns, err := ledger.Transactions(ctx, TxnInventoryPurchase)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(txns) != 2 || txns[1].RelatedID != 0 {
		t.Errorf("Transactions(inventory_purchase) = %+v", txns)
	}

	totals, err := ledger.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	want := LedgerTotals{
		Revenue:        Total{1, 500},
		Consumed:       Total{1, 120},
		Payroll:        Total{2, 3000},
		StockPurchases: Total{1, 300},
	}
	if totals != want {
		t.Errorf("Totals = %+v, want %+v", totals, want)
	}
}

func TestSet_Reset(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)

	_ = set.Inventory.SetLevel(ctx, "Bolt", 1)
	if _, err := set.Ledger.Append(ctx, Transaction{Type: TxnCustomerPayment, Amount: 1, Date: asOf}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := set.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	levels, _ := set.Inventory.Levels(ctx)
	txns, _ := set.Ledger.Transactions(ctx, "")
	if len(levels) != 0 || len(txns) != 0 {
		t.Errorf("after Reset: %d levels, %d transactions; want 0, 0", len(levels), len(txns))
	}
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	set, err := Open(ctx, Config{Driver: DialectSQLite, Dir: dir})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = set.Inventory.SetLevel(ctx, "Bolt", 42)
	_ = set.Close()

	set, err = Open(ctx, Config{Dir: dir})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer set.Close()
	if qty, ok, _ := set.Inventory.Level(ctx, "Bolt"); !ok || qty != 42 {
		t.Errorf("Level after reopen = %d, %v; want 42, true", qty, ok)
	}
}
