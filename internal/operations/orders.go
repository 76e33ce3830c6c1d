package operations

import (
	"context"
	"fmt"
	"time"

	"github.com/meow-stack/factory-sim/internal/stores"
	"github.com/meow-stack/factory-sim/internal/types"
)

// fallbackWidgetCost prices a widget whose BOM is empty.
const fallbackWidgetCost = 100.0

// GenerateOrders creates a random batch of customer orders.
type GenerateOrders struct{ *Env }

func (h *GenerateOrders) Operation() types.Operation { return types.OpGenerate }

func (h *GenerateOrders) Run(ctx context.Context, asOf time.Time, st Stores) (*Result, error) {
	res := &Result{Operation: types.OpGenerate, AsOf: asOf}

	customers, err := st.Orders.CustomerCount(ctx)
	if err != nil {
		return nil, err
	}
	if customers == 0 {
		return nil, fmt.Errorf("no customers in the orders store; initialize the stores first")
	}

	n := h.Rand.IntN(h.Params.MaxOrdersPerDay + 1)
	for i := 0; i < n; i++ {
		id, err := h.createOrder(ctx, asOf, st, customers)
		if err != nil {
			return nil, err
		}
		h.logger().Debug("order created", "order_id", id)
		res.Affected++
	}
	return res, nil
}

func (h *GenerateOrders) createOrder(ctx context.Context, asOf time.Time, st Stores, customers int) (int64, error) {
	customer, err := st.Orders.CustomerAt(ctx, h.Rand.IntN(customers))
	if err != nil {
		return 0, err
	}
	widget := stores.WidgetTypes[h.Rand.IntN(len(stores.WidgetTypes))]
	quantity := 1 + h.Rand.IntN(h.Params.MaxOrderQuantity)

	cost, err := st.Inventory.WidgetCost(ctx, widget)
	if err != nil {
		return 0, err
	}
	if cost == 0 {
		cost = fallbackWidgetCost
	}
	price := round2(cost / (1 - h.Params.TargetMargin) * h.variance())

	return st.Orders.CreateOrder(ctx, stores.Order{
		CustomerName:  customer.Name,
		Widget:        widget,
		Quantity:      quantity,
		UnitPrice:     price,
		DateOrdered:   asOf,
		Status:        stores.OrderReceived,
		PredictedShip: asOf.AddDate(0, 0, 7+h.Rand.IntN(8)),
	})
}

// ProcessOrders moves received orders into production when the parts for
// them are in stock.
type ProcessOrders struct{ *Env }

func (h *ProcessOrders) Operation() types.Operation { return types.OpProcess }

func (h *ProcessOrders) Run(ctx context.Context, asOf time.Time, st Stores) (*Result, error) {
	res := &Result{Operation: types.OpProcess, AsOf: asOf}

	orders, err := st.Orders.OrdersByStatus(ctx, stores.OrderReceived)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		bom, err := st.Inventory.BOM(ctx, o.Widget)
		if err != nil {
			return nil, err
		}
		need := make([]stores.PartQty, len(bom))
		cost := 0.0
		for i, line := range bom {
			qty := line.QtyNeeded * o.Quantity
			need[i] = stores.PartQty{Part: line.Part, Qty: qty}
			cost += float64(qty) * line.UnitCost
		}

		short, err := st.Inventory.Shortages(ctx, need)
		if err != nil {
			return nil, err
		}
		if len(short) > 0 {
			h.logger().Info("order skipped: insufficient inventory",
				"order_id", o.ID, "widget", o.Widget, "quantity", o.Quantity, "short_parts", len(short))
			res.Skipped++
			continue
		}

		if err := st.Inventory.Deduct(ctx, need); err != nil {
			return nil, err
		}
		if _, err := st.Ledger.Append(ctx, stores.Transaction{
			Type:        stores.TxnInventoryPurchase,
			Amount:      -cost,
			Date:        asOf,
			Description: fmt.Sprintf("Inventory used for Order #%d (%dx %s)", o.ID, o.Quantity, o.Widget),
			RelatedID:   o.ID,
		}); err != nil {
			return nil, err
		}
		if err := st.Orders.SetStatus(ctx, o.ID, stores.OrderProcessing); err != nil {
			return nil, err
		}
		if err := st.Production.StartTracking(ctx, o.ID, asOf); err != nil {
			return nil, err
		}
		res.Affected++
		res.Amount -= cost
	}
	res.Amount = round2(res.Amount)
	return res, nil
}
