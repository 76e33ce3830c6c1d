package operations

import (
	"context"
	"fmt"
	"sort"
	"time"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
	"github.com/meow-stack/factory-sim/internal/schedule"
	"github.com/meow-stack/factory-sim/internal/stores"
	"github.com/meow-stack/factory-sim/internal/types"
)

// AdvanceManufacturing moves in-production orders through their stages and
// ships the ones that finish.
type AdvanceManufacturing struct{ *Env }

func (h *AdvanceManufacturing) Operation() types.Operation { return types.OpManufacture }

func (h *AdvanceManufacturing) Run(ctx context.Context, asOf time.Time, st Stores) (*Result, error) {
	res := &Result{Operation: types.OpManufacture, AsOf: asOf}

	orders, err := st.Orders.OrdersByStatus(ctx, stores.OrderProcessing)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		advanced, shipped, err := h.advance(ctx, asOf, st, o)
		if err != nil {
			return nil, err
		}
		res.Advanced += advanced
		if shipped {
			res.Affected++
			res.Amount += o.Total()
		}
	}
	res.Amount = round2(res.Amount)
	return res, nil
}

// stageDuration draws a fresh duration on every call.
func (h *AdvanceManufacturing) stageDuration() time.Duration {
	lo, hi := h.Params.StageMin, h.Params.StageMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(h.Rand.Int64N(int64(hi-lo)))
}

// advance completes at most the current stage of one order.
func (h *AdvanceManufacturing) advance(ctx context.Context, asOf time.Time, st Stores, o stores.Order) (int, bool, error) {
	rows, err := st.Production.Tracking(ctx, o.ID)
	if err != nil {
		return 0, false, err
	}
	byStage := make(map[stores.Stage]stores.TrackingRow, len(rows))
	for _, r := range rows {
		byStage[r.Stage] = r
	}
	if len(byStage) != len(stores.Stages) {
		return 0, false, simerrors.StoreNotFound("production", fmt.Sprintf("tracking rows for order %d", o.ID))
	}

	for i, stage := range stores.Stages {
		row := byStage[stage]
		if row.Completed() {
			continue
		}
		if !row.Started() {
			return 0, false, nil
		}
		done := row.Start.Add(h.stageDuration())
		if done.After(asOf) {
			return 0, false, nil
		}
		if err := st.Production.CompleteStage(ctx, row.ID, done); err != nil {
			return 0, false, err
		}

		if i < len(stores.Stages)-1 {
			next := byStage[stores.Stages[i+1]]
			if err := st.Production.StartStage(ctx, next.ID, asOf); err != nil {
				return 0, false, err
			}
			return 1, false, nil
		}

		if err := st.Orders.MarkShipped(ctx, o.ID, asOf); err != nil {
			return 0, false, err
		}
		if _, err := st.Ledger.Append(ctx, stores.Transaction{
			Type:        stores.TxnCustomerPayment,
			Amount:      o.Total(),
			Date:        asOf,
			Description: fmt.Sprintf("Payment from %s for Order #%d", o.CustomerName, o.ID),
			RelatedID:   o.ID,
		}); err != nil {
			return 0, false, err
		}
		h.logger().Debug("order shipped", "order_id", o.ID, "amount", o.Total())
		return 1, true, nil
	}
	return 0, false, nil
}

// Restock tops up parts that fell below the reorder threshold.
type Restock struct{ *Env }

func (h *Restock) Operation() types.Operation { return types.OpRestock }

type partNeed struct {
	threshold int
	target    int
	lines     []stores.BOMLine
}

func (h *Restock) Run(ctx context.Context, asOf time.Time, st Stores) (*Result, error) {
	res := &Result{Operation: types.OpRestock, AsOf: asOf}

	levels, err := st.Inventory.Levels(ctx)
	if err != nil {
		return nil, err
	}
	bom, err := st.Inventory.AllBOM(ctx)
	if err != nil {
		return nil, err
	}
	needs := make(map[string]*partNeed)
	for _, l := range bom {
		if _, ok := levels[l.Part]; !ok {
			continue
		}
		n := needs[l.Part]
		if n == nil {
			n = &partNeed{}
			needs[l.Part] = n
		}
		n.threshold += l.QtyNeeded * h.Params.RestockThreshold
		n.target += l.QtyNeeded * h.Params.RestockTarget
		n.lines = append(n.lines, l)
	}

	parts := make([]string, 0, len(needs))
	for p := range needs {
		parts = append(parts, p)
	}
	sort.Strings(parts)

	for _, part := range parts {
		n := needs[part]
		current := levels[part]
		if current >= n.threshold {
			continue
		}
		qty := n.target - current
		if qty <= 0 {
			continue
		}
		cost := round2(h.purchasePrice(n.lines) * float64(qty))

		if err := st.Inventory.SetLevel(ctx, part, current+qty); err != nil {
			return nil, err
		}
		if _, err := st.Ledger.Append(ctx, stores.Transaction{
			Type:        stores.TxnInventoryPurchase,
			Amount:      cost,
			Date:        asOf,
			Description: fmt.Sprintf("Restocked %s: %d units", part, qty),
		}); err != nil {
			return nil, err
		}
		h.logger().Debug("part restocked", "part", part, "quantity", qty, "cost", cost)
		res.Affected++
		res.Amount += cost
	}
	res.Amount = round2(res.Amount)
	return res, nil
}

// purchasePrice averages the BOM unit costs of a part weighted by quantity,
// each drawn with ±10% market variance.
func (h *Restock) purchasePrice(lines []stores.BOMLine) float64 {
	total, weight := 0.0, 0
	for _, l := range lines {
		total += l.UnitCost * h.variance() * float64(l.QtyNeeded)
		weight += l.QtyNeeded
	}
	if weight == 0 {
		return 0
	}
	return total / float64(weight)
}

// RunPayroll pays every employee their weekly salary. It only acts on
// payroll days so invoking it manually on another day is harmless.
type RunPayroll struct{ *Env }

func (h *RunPayroll) Operation() types.Operation { return types.OpPayroll }

func (h *RunPayroll) Run(ctx context.Context, asOf time.Time, st Stores) (*Result, error) {
	res := &Result{Operation: types.OpPayroll, AsOf: asOf}
	if !schedule.IsPayrollDay(0, asOf) {
		res.Noop = true
		return res, nil
	}

	employees, err := st.Ledger.Employees(ctx)
	if err != nil {
		return nil, err
	}
	txns := make([]stores.Transaction, len(employees))
	for i, e := range employees {
		txns[i] = stores.Transaction{
			Type:        stores.TxnEmployeePayment,
			Amount:      -e.WeeklySalary,
			Date:        asOf,
			Description: fmt.Sprintf("Weekly salary for %s (%s)", e.Name, e.Title),
			RelatedID:   e.ID,
		}
		res.Amount -= e.WeeklySalary
	}
	if err := st.Ledger.AppendAll(ctx, txns); err != nil {
		return nil, err
	}
	res.Affected = len(employees)
	res.Amount = round2(res.Amount)
	return res, nil
}
