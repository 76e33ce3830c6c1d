package stores

import (
	"context"
	"errors"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
)

// Config selects the backing database of a store set.
type Config struct {
	Driver Dialect
	Dir    string // sqlite: directory holding one file per store
	DSN    string // postgres: one database shared by the four stores
}

// Set is the four stores of one simulated company.
type Set struct {
	Orders     *OrdersStore
	Inventory  *InventoryStore
	Production *ProductionStore
	Ledger     *LedgerStore

	members []member
}

type member struct {
	db     *db
	tables []table
}

// storeFiles maps store names to their sqlite files and tables.
var storeFiles = []struct {
	name   string
	file   string
	tables []table
}{
	{"orders", "crm.db", ordersTables},
	{"inventory", "inventory.db", inventoryTables},
	{"production", "mes.db", productionTables},
	{"ledger", "erp.db", ledgerTables},
}

// Open connects the four stores and creates any missing tables.
func Open(ctx context.Context, cfg Config) (*Set, error) {
	set := &Set{}
	for _, f := range storeFiles {
		var (
			d   *db
			err error
		)
		switch cfg.Driver {
		case DialectSQLite, "":
			d, err = openSQLite(f.name, cfg.Dir, f.file)
		case DialectPostgres:
			d, err = openPostgres(ctx, f.name, cfg.DSN)
		default:
			err = simerrors.StoreUnsupportedDriver(string(cfg.Driver))
		}
		if err != nil {
			_ = set.Close()
			return nil, err
		}
		set.members = append(set.members, member{db: d, tables: f.tables})
		if err := d.migrate(ctx, f.tables); err != nil {
			_ = set.Close()
			return nil, err
		}
	}
	set.Orders = &OrdersStore{db: set.members[0].db}
	set.Inventory = &InventoryStore{db: set.members[1].db}
	set.Production = &ProductionStore{db: set.members[2].db}
	set.Ledger = &LedgerStore{db: set.members[3].db}
	return set, nil
}

// Reset drops and recreates every table, leaving the stores empty.
func (s *Set) Reset(ctx context.Context) error {
	for _, m := range s.members {
		if err := m.db.drop(ctx, m.tables); err != nil {
			return err
		}
		if err := m.db.migrate(ctx, m.tables); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every store connection.
func (s *Set) Close() error {
	var errs []error
	for _, m := range s.members {
		if err := m.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.members = nil
	return errors.Join(errs...)
}
