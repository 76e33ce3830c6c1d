// Package operations implements the business operations of a simulated day.
// Each handler reads and writes the four stores and keeps them mutually
// consistent: every stock movement and shipment has its ledger entry.
package operations

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/meow-stack/factory-sim/internal/stores"
	"github.com/meow-stack/factory-sim/internal/types"
)

// OrdersStore is the CRM access the handlers need.
type OrdersStore interface {
	CustomerCount(ctx context.Context) (int, error)
	CustomerAt(ctx context.Context, index int) (stores.Customer, error)
	CreateOrder(ctx context.Context, o stores.Order) (int64, error)
	OrdersByStatus(ctx context.Context, status stores.OrderStatus) ([]stores.Order, error)
	SetStatus(ctx context.Context, id int64, status stores.OrderStatus) error
	MarkShipped(ctx context.Context, id int64, date time.Time) error
}

// InventoryStore is the inventory access the handlers need.
type InventoryStore interface {
	BOM(ctx context.Context, widget stores.WidgetType) ([]stores.BOMLine, error)
	AllBOM(ctx context.Context) ([]stores.BOMLine, error)
	WidgetCost(ctx context.Context, widget stores.WidgetType) (float64, error)
	Levels(ctx context.Context) (map[string]int, error)
	Shortages(ctx context.Context, need []stores.PartQty) ([]stores.PartQty, error)
	Deduct(ctx context.Context, parts []stores.PartQty) error
	SetLevel(ctx context.Context, part string, qty int) error
}

// ProductionStore is the manufacturing tracking access the handlers need.
type ProductionStore interface {
	StartTracking(ctx context.Context, orderID int64, start time.Time) error
	Tracking(ctx context.Context, orderID int64) ([]stores.TrackingRow, error)
	StartStage(ctx context.Context, trackingID int64, at time.Time) error
	CompleteStage(ctx context.Context, trackingID int64, at time.Time) error
}

// LedgerStore is the ERP access the handlers need.
type LedgerStore interface {
	Employees(ctx context.Context) ([]stores.Employee, error)
	Append(ctx context.Context, t stores.Transaction) (int64, error)
	AppendAll(ctx context.Context, txns []stores.Transaction) error
}

// Stores bundles the store adapters passed to every handler.
type Stores struct {
	Orders     OrdersStore
	Inventory  InventoryStore
	Production ProductionStore
	Ledger     LedgerStore
}

// FromSet adapts an opened store set.
func FromSet(set *stores.Set) Stores {
	return Stores{
		Orders:     set.Orders,
		Inventory:  set.Inventory,
		Production: set.Production,
		Ledger:     set.Ledger,
	}
}

// Result reports what one handler invocation did.
type Result struct {
	Operation types.Operation `json:"operation"`
	AsOf      time.Time       `json:"as_of"`
	Affected  int             `json:"affected"`           // orders created, processed or shipped; parts restocked; employees paid
	Skipped   int             `json:"skipped,omitempty"`  // orders left for lack of stock
	Advanced  int             `json:"advanced,omitempty"` // stages completed
	Amount    float64         `json:"amount"`             // signed ledger total booked
	Noop      bool            `json:"noop,omitempty"`     // nothing to do on this date
}

// String returns a one-line summary.
func (r *Result) String() string {
	if r.Noop {
		return fmt.Sprintf("%s: nothing to do", r.Operation)
	}
	switch r.Operation {
	case types.OpGenerate:
		return fmt.Sprintf("generate: %d order(s) created", r.Affected)
	case types.OpProcess:
		return fmt.Sprintf("process: %d order(s) processed, %d skipped, inventory used $%.2f", r.Affected, r.Skipped, -r.Amount)
	case types.OpManufacture:
		return fmt.Sprintf("ops: %d stage(s) advanced, %d order(s) shipped, revenue $%.2f", r.Advanced, r.Affected, r.Amount)
	case types.OpRestock:
		return fmt.Sprintf("restock: %d part(s) restocked for $%.2f", r.Affected, r.Amount)
	case types.OpPayroll:
		return fmt.Sprintf("payroll: %d employee(s) paid $%.2f", r.Affected, -r.Amount)
	}
	return string(r.Operation)
}

// Handler runs one business operation as of a simulated timestamp.
type Handler interface {
	Operation() types.Operation
	Run(ctx context.Context, asOf time.Time, st Stores) (*Result, error)
}

// Params holds the business constants.
type Params struct {
	MaxOrdersPerDay  int
	MaxOrderQuantity int
	TargetMargin     float64
	RestockThreshold int
	RestockTarget    int
	StageMin         time.Duration
	StageMax         time.Duration
}

// DefaultParams returns the standard business constants.
func DefaultParams() Params {
	return Params{
		MaxOrdersPerDay:  20,
		MaxOrderQuantity: 20,
		TargetMargin:     0.30,
		RestockThreshold: 10,
		RestockTarget:    100,
		StageMin:         3 * time.Hour,
		StageMax:         72 * time.Hour,
	}
}

// Env is shared by the built-in handlers. Rand is not safe for concurrent
// use; handlers run strictly one at a time.
type Env struct {
	Params Params
	Rand   *rand.Rand
	Logger *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// uniform returns a value in [lo, hi).
func (e *Env) uniform(lo, hi float64) float64 {
	return lo + e.Rand.Float64()*(hi-lo)
}

// variance returns a factor within ±10%.
func (e *Env) variance() float64 {
	return 1 + e.uniform(-0.10, 0.10)
}

// Builtin returns the built-in handlers in execution order.
func Builtin(env *Env) []Handler {
	return []Handler{
		&GenerateOrders{env},
		&ProcessOrders{env},
		&AdvanceManufacturing{env},
		&Restock{env},
		&RunPayroll{env},
	}
}

// Lookup returns the built-in handler for op.
func Lookup(env *Env, op types.Operation) (Handler, bool) {
	for _, h := range Builtin(env) {
		if h.Operation() == op {
			return h, true
		}
	}
	return nil, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
