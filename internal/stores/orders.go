package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
)

// WidgetType is a product the company builds.
type WidgetType string

const (
	WidgetPro     WidgetType = "Widget_Pro"
	WidgetBasic   WidgetType = "Widget"
	WidgetClassic WidgetType = "Widget_Classic"
)

// WidgetTypes lists the product line.
var WidgetTypes = []WidgetType{WidgetPro, WidgetBasic, WidgetClassic}

// OrderStatus is the CRM lifecycle of an order.
type OrderStatus string

const (
	OrderReceived   OrderStatus = "order_received"
	OrderProcessing OrderStatus = "order_processing"
	OrderShipped    OrderStatus = "order_shipped"
)

// OrderStatuses lists statuses in lifecycle order.
var OrderStatuses = []OrderStatus{OrderReceived, OrderProcessing, OrderShipped}

// Customer is a row of the customer pool.
type Customer struct {
	ID     int64
	Name   string
	Street string
	City   string
	State  string
	Zip    string
	Email  string
	Phone  string
}

// Order is a customer order.
type Order struct {
	ID            int64
	CustomerName  string
	Widget        WidgetType
	Quantity      int
	UnitPrice     float64
	DateOrdered   time.Time
	Status        OrderStatus
	DateShipped   time.Time // zero until shipped
	PredictedShip time.Time
}

// Total returns quantity times unit price.
func (o Order) Total() float64 { return float64(o.Quantity) * o.UnitPrice }

// StatusTotal aggregates the orders in one status.
type StatusTotal struct {
	Status OrderStatus `json:"status"`
	Count  int         `json:"count"`
	Value  float64     `json:"value"`
}

// OrdersStore is the CRM store: customers and orders.
type OrdersStore struct {
	db *db
}

var ordersTables = []table{customersTable, ordersTable}

const orderColumns = `order_id, customer_name, widget_type, quantity, unit_price,
	date_ordered, status, date_shipped, predicted_ship_date`

// InsertCustomers adds customers in one transaction.
func (s *OrdersStore) InsertCustomers(ctx context.Context, customers []Customer) error {
	return s.db.inTx(ctx, "insert customers", func(tx *sql.Tx) error {
		for _, c := range customers {
			if _, err := s.db.exec(ctx, tx, "insert customer",
				`INSERT INTO customers (name, street_address, city, state, zip_code, email, phone)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				c.Name, c.Street, c.City, c.State, c.Zip, c.Email, c.Phone); err != nil {
				return err
			}
		}
		return nil
	})
}

// CustomerCount returns the size of the customer pool.
func (s *OrdersStore) CustomerCount(ctx context.Context) (int, error) {
	return s.db.count(ctx, "count customers", `SELECT COUNT(*) FROM customers`)
}

// CustomerAt returns the customer at the zero-based position in id order.
func (s *OrdersStore) CustomerAt(ctx context.Context, index int) (Customer, error) {
	var c Customer
	err := s.db.queryRow(ctx, s.db.DB,
		`SELECT id, name, street_address, city, state, zip_code, email, phone
		FROM customers ORDER BY id LIMIT 1 OFFSET ?`, index).
		Scan(&c.ID, &c.Name, &c.Street, &c.City, &c.State, &c.Zip, &c.Email, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, simerrors.StoreNotFound("orders", fmt.Sprintf("customer #%d", index))
	}
	if err != nil {
		return Customer{}, simerrors.StoreQuery("orders", "select customer", err)
	}
	return c, nil
}

// CreateOrder inserts an order and returns its id.
func (s *OrdersStore) CreateOrder(ctx context.Context, o Order) (int64, error) {
	if o.Status == "" {
		o.Status = OrderReceived
	}
	return s.db.insertID(ctx, s.db.DB, "insert order",
		`INSERT INTO orders (customer_name, widget_type, quantity, unit_price,
			date_ordered, status, date_shipped, predicted_ship_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING order_id`,
		o.CustomerName, string(o.Widget), o.Quantity, o.UnitPrice,
		formatDateTime(o.DateOrdered), string(o.Status), nullDate(o.DateShipped), nullDate(o.PredictedShip))
}

// Order returns one order by id.
func (s *OrdersStore) Order(ctx context.Context, id int64) (Order, error) {
	rows, err := s.db.query(ctx, s.db.DB, "select order",
		`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, id)
	if err != nil {
		return Order{}, err
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return Order{}, err
	}
	if len(orders) == 0 {
		return Order{}, simerrors.StoreNotFound("orders", fmt.Sprintf("order %d", id))
	}
	return orders[0], nil
}

// OrdersByStatus returns the orders in a status, in id order.
func (s *OrdersStore) OrdersByStatus(ctx context.Context, status OrderStatus) ([]Order, error) {
	rows, err := s.db.query(ctx, s.db.DB, "select orders",
		`SELECT `+orderColumns+` FROM orders WHERE status = ? ORDER BY order_id`, string(status))
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

// SetStatus moves an order to a new status.
func (s *OrdersStore) SetStatus(ctx context.Context, id int64, status OrderStatus) error {
	res, err := s.db.exec(ctx, s.db.DB, "update order status",
		`UPDATE orders SET status = ? WHERE order_id = ?`, string(status), id)
	if err != nil {
		return err
	}
	return s.requireRow(res, id)
}

// MarkShipped records the ship date and moves the order to shipped.
func (s *OrdersStore) MarkShipped(ctx context.Context, id int64, date time.Time) error {
	res, err := s.db.exec(ctx, s.db.DB, "ship order",
		`UPDATE orders SET status = ?, date_shipped = ? WHERE order_id = ?`,
		string(OrderShipped), formatDate(date), id)
	if err != nil {
		return err
	}
	return s.requireRow(res, id)
}

// StatusTotals returns order counts and values grouped by status.
func (s *OrdersStore) StatusTotals(ctx context.Context) ([]StatusTotal, error) {
	rows, err := s.db.query(ctx, s.db.DB, "order totals",
		`SELECT status, COUNT(*), COALESCE(SUM(quantity * unit_price), 0)
		FROM orders GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []StatusTotal
	for rows.Next() {
		var t StatusTotal
		var status string
		if err := rows.Scan(&status, &t.Count, &t.Value); err != nil {
			return nil, simerrors.StoreQuery("orders", "scan totals", err)
		}
		t.Status = OrderStatus(status)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, simerrors.StoreQuery("orders", "order totals", err)
	}
	return out, nil
}

func (s *OrdersStore) requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return simerrors.StoreQuery("orders", "rows affected", err)
	}
	if n == 0 {
		return simerrors.StoreNotFound("orders", fmt.Sprintf("order %d", id))
	}
	return nil
}

func scanOrders(rows *sql.Rows) ([]Order, error) {
	defer func() { _ = rows.Close() }()

	var out []Order
	for rows.Next() {
		var o Order
		var widget, status string
		var ordered string
		var shipped, predicted sql.NullString
		if err := rows.Scan(&o.ID, &o.CustomerName, &widget, &o.Quantity, &o.UnitPrice,
			&ordered, &status, &shipped, &predicted); err != nil {
			return nil, simerrors.StoreQuery("orders", "scan order", err)
		}
		o.Widget = WidgetType(widget)
		o.Status = OrderStatus(status)
		var err error
		if o.DateOrdered, err = parseTime(sql.NullString{String: ordered, Valid: true}); err != nil {
			return nil, simerrors.StoreQuery("orders", "scan order", err)
		}
		if o.DateShipped, err = parseTime(shipped); err != nil {
			return nil, simerrors.StoreQuery("orders", "scan order", err)
		}
		if o.PredictedShip, err = parseTime(predicted); err != nil {
			return nil, simerrors.StoreQuery("orders", "scan order", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, simerrors.StoreQuery("orders", "scan order", err)
	}
	return out, nil
}
