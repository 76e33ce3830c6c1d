package status

import (
	"context"
	"fmt"
	"slices"

	"github.com/meow-stack/factory-sim/internal/orchestrator"
	"github.com/meow-stack/factory-sim/internal/stores"
	"github.com/meow-stack/factory-sim/internal/types"
)

// OrderTotaler reports order counts and values grouped by status.
type OrderTotaler interface {
	StatusTotals(ctx context.Context) ([]stores.StatusTotal, error)
}

// LedgerTotaler reports ledger totals by category.
type LedgerTotaler interface {
	Totals(ctx context.Context) (stores.LedgerTotals, error)
}

// InventoryStatter reports stock level statistics.
type InventoryStatter interface {
	Stats(ctx context.Context) (stores.InventoryStats, error)
}

// Sources are the store queries a business summary reads.
type Sources struct {
	Orders    OrderTotaler
	Ledger    LedgerTotaler
	Inventory InventoryStatter
}

// FromSet returns the summary sources of a store set.
func FromSet(set *stores.Set) Sources {
	return Sources{Orders: set.Orders, Ledger: set.Ledger, Inventory: set.Inventory}
}

// BusinessSummary is the company's state as read from the stores.
type BusinessSummary struct {
	Orders      []stores.StatusTotal  `json:"orders"`
	TotalOrders int                   `json:"total_orders"`
	TotalValue  float64               `json:"total_value"`
	Financials  Financials            `json:"financials"`
	Inventory   stores.InventoryStats `json:"inventory"`
}

// Financials is derived from the ledger totals. COGS is the cost of parts
// consumed by production; purchases is stock bought by restocking.
type Financials struct {
	Revenue     stores.Total `json:"revenue"`
	COGS        stores.Total `json:"cogs"`
	Payroll     stores.Total `json:"payroll"`
	Purchases   stores.Total `json:"purchases"`
	GrossProfit float64      `json:"gross_profit"`
	NetProfit   float64      `json:"net_profit"`
	CashIn      float64      `json:"cash_in"`
	CashOut     float64      `json:"cash_out"`
	NetCash     float64      `json:"net_cash"`
}

// Collect queries the stores and computes the business summary.
func Collect(ctx context.Context, src Sources) (*BusinessSummary, error) {
	totals, err := src.Orders.StatusTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("order totals: %w", err)
	}
	ledger, err := src.Ledger.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger totals: %w", err)
	}
	inv, err := src.Inventory.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory stats: %w", err)
	}

	summary := &BusinessSummary{
		Orders:     sortOrderTotals(totals),
		Financials: computeFinancials(ledger),
		Inventory:  inv,
	}
	for _, t := range summary.Orders {
		summary.TotalOrders += t.Count
		summary.TotalValue += t.Value
	}
	return summary, nil
}

func computeFinancials(l stores.LedgerTotals) Financials {
	f := Financials{
		Revenue:   l.Revenue,
		COGS:      l.Consumed,
		Payroll:   l.Payroll,
		Purchases: l.StockPurchases,
	}
	f.GrossProfit = f.Revenue.Sum - f.COGS.Sum
	f.NetProfit = f.GrossProfit - f.Payroll.Sum - f.Purchases.Sum
	f.CashIn = f.Revenue.Sum
	f.CashOut = f.Payroll.Sum + f.Purchases.Sum
	f.NetCash = f.CashIn - f.CashOut
	return f
}

// sortOrderTotals puts known statuses in lifecycle order, unknown ones last.
func sortOrderTotals(totals []stores.StatusTotal) []stores.StatusTotal {
	out := slices.Clone(totals)
	rank := func(s stores.OrderStatus) int {
		if i := slices.Index(stores.OrderStatuses, s); i >= 0 {
			return i
		}
		return len(stores.OrderStatuses)
	}
	slices.SortStableFunc(out, func(a, b stores.StatusTotal) int {
		return rank(a.Status) - rank(b.Status)
	})
	return out
}

// RunSummary is a finished run condensed for display.
type RunSummary struct {
	RunID        string           `json:"run_id"`
	Status       types.RunStatus  `json:"status"`
	Mode         types.RunMode    `json:"mode"`
	Day          int              `json:"day"`
	TotalDays    int              `json:"total_days"`
	Date         string           `json:"date,omitempty"`
	Operations   []OperationStats `json:"operations"`
	Deferred     int              `json:"deferred"`
	SyncWarnings int              `json:"sync_warnings,omitempty"`
	Failure      *types.Failure   `json:"failure,omitempty"`
}

// OperationStats tallies one operation over a run.
type OperationStats struct {
	Operation types.Operation `json:"operation"`
	Runs      int             `json:"runs"`
	Deferred  int             `json:"deferred"`
	Affected  int             `json:"affected"`
	Amount    float64         `json:"amount"`
}

// NewRunSummary condenses an orchestrator summary. Operations appear in
// execution order and only when they ran or were deferred at least once.
func NewRunSummary(sum *orchestrator.Summary) *RunSummary {
	rs := &RunSummary{
		RunID:        sum.RunID,
		Status:       sum.Status,
		Mode:         sum.Mode,
		Day:          sum.DayIndex,
		TotalDays:    sum.TotalDays,
		Deferred:     len(sum.Deferred),
		SyncWarnings: sum.SyncWarnings,
		Failure:      sum.Failure,
		Operations:   []OperationStats{},
	}
	if !sum.Date.IsZero() {
		rs.Date = sum.Date.Format(types.DateLayout)
	}

	stats := make(map[types.Operation]*OperationStats)
	get := func(op types.Operation) *OperationStats {
		if s, ok := stats[op]; ok {
			return s
		}
		s := &OperationStats{Operation: op}
		stats[op] = s
		return s
	}
	for _, inv := range sum.Invocations {
		s := get(inv.Operation)
		s.Runs++
		if inv.Result != nil {
			s.Affected += inv.Result.Affected
			s.Amount += inv.Result.Amount
		}
	}
	for _, d := range sum.Deferred {
		get(d.Operation).Deferred++
	}
	for _, op := range types.Operations {
		if s, ok := stats[op]; ok {
			rs.Operations = append(rs.Operations, *s)
		}
	}
	return rs
}
