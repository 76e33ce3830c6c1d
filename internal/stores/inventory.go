package stores

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
)

// BOMLine is one part requirement of a widget's bill of materials.
type BOMLine struct {
	Widget    WidgetType
	Part      string
	QtyNeeded int
	UnitCost  float64
}

// PartQty is a quantity of one part.
type PartQty struct {
	Part string
	Qty  int
}

// InventoryStats summarizes stock levels.
type InventoryStats struct {
	Parts int     `json:"parts"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	Avg   float64 `json:"avg"`
}

// InventoryStore holds the bills of materials and stock levels.
type InventoryStore struct {
	db *db
}

var inventoryTables = []table{bomTable, inventoryLevelsTable}

// InsertBOM adds bill-of-materials lines in one transaction.
func (s *InventoryStore) InsertBOM(ctx context.Context, lines []BOMLine) error {
	return s.db.inTx(ctx, "insert bom", func(tx *sql.Tx) error {
		for _, l := range lines {
			if _, err := s.db.exec(ctx, tx, "insert bom line",
				`INSERT INTO bom (widget_type, part_name, quantity_needed, unit_cost) VALUES (?, ?, ?, ?)`,
				string(l.Widget), l.Part, l.QtyNeeded, l.UnitCost); err != nil {
				return err
			}
		}
		return nil
	})
}

// BOM returns the bill of materials of a widget, ordered by part name.
func (s *InventoryStore) BOM(ctx context.Context, widget WidgetType) ([]BOMLine, error) {
	rows, err := s.db.query(ctx, s.db.DB, "select bom",
		`SELECT widget_type, part_name, quantity_needed, unit_cost
		FROM bom WHERE widget_type = ? ORDER BY part_name`, string(widget))
	if err != nil {
		return nil, err
	}
	return scanBOM(rows)
}

// AllBOM returns every bill-of-materials line, ordered by part then widget.
func (s *InventoryStore) AllBOM(ctx context.Context) ([]BOMLine, error) {
	rows, err := s.db.query(ctx, s.db.DB, "select bom",
		`SELECT widget_type, part_name, quantity_needed, unit_cost
		FROM bom ORDER BY part_name, widget_type`)
	if err != nil {
		return nil, err
	}
	return scanBOM(rows)
}

// WidgetCost returns the summed part cost of one unit of widget.
// A widget without a BOM costs zero.
func (s *InventoryStore) WidgetCost(ctx context.Context, widget WidgetType) (float64, error) {
	var cost sql.NullFloat64
	err := s.db.queryRow(ctx, s.db.DB,
		`SELECT SUM(quantity_needed * unit_cost) FROM bom WHERE widget_type = ?`, string(widget)).Scan(&cost)
	if err != nil {
		return 0, simerrors.StoreQuery("inventory", "widget cost", err)
	}
	return cost.Float64, nil
}

// SetLevel sets the stock of a part, creating it when missing.
func (s *InventoryStore) SetLevel(ctx context.Context, part string, qty int) error {
	_, err := s.db.exec(ctx, s.db.DB, "set level",
		`INSERT INTO inventory_levels (part_name, quantity_available) VALUES (?, ?)
		ON CONFLICT (part_name) DO UPDATE SET quantity_available = excluded.quantity_available`,
		part, qty)
	return err
}

// Level returns the stock of a part. ok is false when the part is unknown.
func (s *InventoryStore) Level(ctx context.Context, part string) (qty int, ok bool, err error) {
	return s.level(ctx, s.db.DB, part)
}

func (s *InventoryStore) level(ctx context.Context, q queryer, part string) (int, bool, error) {
	var qty int
	err := s.db.queryRow(ctx, q,
		`SELECT quantity_available FROM inventory_levels WHERE part_name = ?`, part).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, simerrors.StoreQuery("inventory", "select level", err)
	}
	return qty, true, nil
}

// Levels returns the stock of every part.
func (s *InventoryStore) Levels(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.query(ctx, s.db.DB, "select levels",
		`SELECT part_name, quantity_available FROM inventory_levels`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	levels := make(map[string]int)
	for rows.Next() {
		var part string
		var qty int
		if err := rows.Scan(&part, &qty); err != nil {
			return nil, simerrors.StoreQuery("inventory", "scan level", err)
		}
		levels[part] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, simerrors.StoreQuery("inventory", "select levels", err)
	}
	return levels, nil
}

// Shortages returns the requirements that the current stock cannot cover.
func (s *InventoryStore) Shortages(ctx context.Context, need []PartQty) ([]PartQty, error) {
	var short []PartQty
	for _, n := range need {
		have, _, err := s.Level(ctx, n.Part)
		if err != nil {
			return nil, err
		}
		if have < n.Qty {
			short = append(short, PartQty{Part: n.Part, Qty: n.Qty - have})
		}
	}
	return short, nil
}

// Deduct removes the given quantities atomically. It fails with a shortage
// error, changing nothing, when any part would go negative.
func (s *InventoryStore) Deduct(ctx context.Context, parts []PartQty) error {
	return s.db.inTx(ctx, "deduct", func(tx *sql.Tx) error {
		for _, p := range parts {
			have, ok, err := s.level(ctx, tx, p.Part)
			if err != nil {
				return err
			}
			if !ok || have < p.Qty {
				return simerrors.StoreShortage(p.Part, p.Qty, have)
			}
			if _, err := s.db.exec(ctx, tx, "deduct",
				`UPDATE inventory_levels SET quantity_available = quantity_available - ? WHERE part_name = ?`,
				p.Qty, p.Part); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats returns min, max and average stock across parts.
func (s *InventoryStore) Stats(ctx context.Context) (InventoryStats, error) {
	levels, err := s.Levels(ctx)
	if err != nil {
		return InventoryStats{}, err
	}
	if len(levels) == 0 {
		return InventoryStats{}, nil
	}
	qtys := make([]int, 0, len(levels))
	total := 0
	for _, q := range levels {
		qtys = append(qtys, q)
		total += q
	}
	sort.Ints(qtys)
	return InventoryStats{
		Parts: len(qtys),
		Min:   qtys[0],
		Max:   qtys[len(qtys)-1],
		Avg:   float64(total) / float64(len(qtys)),
	}, nil
}

func scanBOM(rows *sql.Rows) ([]BOMLine, error) {
	defer func() { _ = rows.Close() }()

	var out []BOMLine
	for rows.Next() {
		var l BOMLine
		var widget string
		if err := rows.Scan(&widget, &l.Part, &l.QtyNeeded, &l.UnitCost); err != nil {
			return nil, simerrors.StoreQuery("inventory", "scan bom", err)
		}
		l.Widget = WidgetType(widget)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, simerrors.StoreQuery("inventory", "scan bom", err)
	}
	return out, nil
}
