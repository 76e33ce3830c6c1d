package stores

import "strings"

// table holds one table's DDL. Column types are written in sqlite form and
// translated for postgres.
type table struct {
	name    string
	columns string
}

func (t table) ddl(d Dialect) string {
	cols := t.columns
	if d == DialectPostgres {
		cols = strings.NewReplacer(
			"INTEGER PRIMARY KEY AUTOINCREMENT", "BIGSERIAL PRIMARY KEY",
			" REAL", " DOUBLE PRECISION",
		).Replace(cols)
	}
	return "CREATE TABLE IF NOT EXISTS " + t.name + " (" + cols + ")"
}

var customersTable = table{
	name: "customers",
	columns: `
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	street_address TEXT NOT NULL,
	city TEXT NOT NULL,
	state TEXT NOT NULL,
	zip_code TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL`,
}

var ordersTable = table{
	name: "orders",
	columns: `
	order_id INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_name TEXT NOT NULL,
	widget_type TEXT NOT NULL CHECK(widget_type IN ('Widget_Pro', 'Widget', 'Widget_Classic')),
	quantity INTEGER NOT NULL,
	unit_price REAL NOT NULL,
	date_ordered TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('order_received', 'order_processing', 'order_shipped')),
	date_shipped TEXT,
	predicted_ship_date TEXT`,
}

var bomTable = table{
	name: "bom",
	columns: `
	bom_id INTEGER PRIMARY KEY AUTOINCREMENT,
	widget_type TEXT NOT NULL CHECK(widget_type IN ('Widget_Pro', 'Widget', 'Widget_Classic')),
	part_name TEXT NOT NULL,
	quantity_needed INTEGER NOT NULL,
	unit_cost REAL NOT NULL,
	UNIQUE(widget_type, part_name)`,
}

var inventoryLevelsTable = table{
	name: "inventory_levels",
	columns: `
	part_name TEXT PRIMARY KEY,
	quantity_available INTEGER NOT NULL`,
}

var productionTrackingTable = table{
	name: "production_tracking",
	columns: `
	tracking_id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	stage TEXT NOT NULL CHECK(stage IN ('assembly', 'test', 'inspection', 'shipping')),
	start_datetime TEXT,
	completion_datetime TEXT`,
}

var employeesTable = table{
	name: "employees",
	columns: `
	employee_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	title TEXT NOT NULL,
	weekly_salary REAL NOT NULL`,
}

var financialTransactionsTable = table{
	name: "financial_transactions",
	columns: `
	transaction_id INTEGER PRIMARY KEY AUTOINCREMENT,
	transaction_type TEXT NOT NULL CHECK(transaction_type IN ('inventory_purchase', 'employee_payment', 'customer_payment')),
	amount REAL NOT NULL,
	date TEXT NOT NULL,
	description TEXT,
	related_id INTEGER`,
}
