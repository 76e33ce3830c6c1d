package stores

import (
	"context"
	"database/sql"
	"time"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
)

// TxnType categorizes a ledger entry.
type TxnType string

const (
	TxnInventoryPurchase TxnType = "inventory_purchase"
	TxnEmployeePayment   TxnType = "employee_payment"
	TxnCustomerPayment   TxnType = "customer_payment"
)

// Employee is a payroll record.
type Employee struct {
	ID           int64
	Name         string
	Title        string
	WeeklySalary float64
}

// Transaction is a ledger entry. Amounts are signed: money in is positive.
// Parts consumed by production are booked as negative inventory_purchase
// entries and purchased stock as positive ones.
type Transaction struct {
	ID          int64
	Type        TxnType
	Amount      float64
	Date        time.Time
	Description string
	RelatedID   int64 // 0 when unrelated
}

// LedgerTotals aggregates the ledger the way the business summary reads it.
type LedgerTotals struct {
	Revenue        Total // customer_payment
	Consumed       Total // inventory_purchase < 0, reported positive
	Payroll        Total // employee_payment, reported positive
	StockPurchases Total // inventory_purchase > 0
}

// Total is a count and an absolute sum.
type Total struct {
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
}

// LedgerStore is the ERP store: employees and financial transactions.
type LedgerStore struct {
	db *db
}

var ledgerTables = []table{employeesTable, financialTransactionsTable}

// InsertEmployees adds employees in one transaction.
func (s *LedgerStore) InsertEmployees(ctx context.Context, employees []Employee) error {
	return s.db.inTx(ctx, "insert employees", func(tx *sql.Tx) error {
		for _, e := range employees {
			if _, err := s.db.exec(ctx, tx, "insert employee",
				`INSERT INTO employees (name, title, weekly_salary) VALUES (?, ?, ?)`,
				e.Name, e.Title, e.WeeklySalary); err != nil {
				return err
			}
		}
		return nil
	})
}

// Employees returns every employee in id order.
func (s *LedgerStore) Employees(ctx context.Context) ([]Employee, error) {
	rows, err := s.db.query(ctx, s.db.DB, "select employees",
		`SELECT employee_id, name, title, weekly_salary FROM employees ORDER BY employee_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Title, &e.WeeklySalary); err != nil {
			return nil, simerrors.StoreQuery("ledger", "scan employee", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, simerrors.StoreQuery("ledger", "select employees", err)
	}
	return out, nil
}

// Append records a transaction and returns its id.
func (s *LedgerStore) Append(ctx context.Context, t Transaction) (int64, error) {
	return s.appendTx(ctx, s.db.DB, t)
}

// AppendAll records transactions in one database transaction.
func (s *LedgerStore) AppendAll(ctx context.Context, txns []Transaction) error {
	return s.db.inTx(ctx, "append", func(tx *sql.Tx) error {
		for _, t := range txns {
			if _, err := s.appendTx(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *LedgerStore) appendTx(ctx context.Context, q queryer, t Transaction) (int64, error) {
	related := sql.NullInt64{Int64: t.RelatedID, Valid: t.RelatedID != 0}
	return s.db.insertID(ctx, q, "append",
		`INSERT INTO financial_transactions (transaction_type, amount, date, description, related_id)
		VALUES (?, ?, ?, ?, ?) RETURNING transaction_id`,
		string(t.Type), t.Amount, formatDate(t.Date), t.Description, related)
}

// Transactions returns ledger entries in id order, optionally of one type.
func (s *LedgerStore) Transactions(ctx context.Context, typ TxnType) ([]Transaction, error) {
	query := `SELECT transaction_id, transaction_type, amount, date, description, related_id
		FROM financial_transactions`
	var args []any
	if typ != "" {
		query += ` WHERE transaction_type = ?`
		args = append(args, string(typ))
	}
	query += ` ORDER BY transaction_id`

	rows, err := s.db.query(ctx, s.db.DB, "select transactions", query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var typ, date string
		var desc sql.NullString
		var related sql.NullInt64
		if err := rows.Scan(&t.ID, &typ, &t.Amount, &date, &desc, &related); err != nil {
			return nil, simerrors.StoreQuery("ledger", "scan transaction", err)
		}
		t.Type = TxnType(typ)
		t.Description = desc.String
		t.RelatedID = related.Int64
		if t.Date, err = parseTime(sql.NullString{String: date, Valid: true}); err != nil {
			return nil, simerrors.StoreQuery("ledger", "scan transaction", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, simerrors.StoreQuery("ledger", "select transactions", err)
	}
	return out, nil
}

// Totals aggregates the ledger by category.
func (s *LedgerStore) Totals(ctx context.Context) (LedgerTotals, error) {
	rows, err := s.db.query(ctx, s.db.DB, "ledger totals",
		`SELECT transaction_type, CASE WHEN amount < 0 THEN 1 ELSE 0 END, COUNT(*), SUM(amount)
		FROM financial_transactions
		GROUP BY transaction_type, CASE WHEN amount < 0 THEN 1 ELSE 0 END`)
	if err != nil {
		return LedgerTotals{}, err
	}
	defer func() { _ = rows.Close() }()

	var out LedgerTotals
	for rows.Next() {
		var typ string
		var negative, count int
		var sum float64
		if err := rows.Scan(&typ, &negative, &count, &sum); err != nil {
			return LedgerTotals{}, simerrors.StoreQuery("ledger", "scan totals", err)
		}
		if sum < 0 {
			sum = -sum
		}
		var dst *Total
		switch {
		case TxnType(typ) == TxnCustomerPayment:
			dst = &out.Revenue
		case TxnType(typ) == TxnEmployeePayment:
			dst = &out.Payroll
		case TxnType(typ) == TxnInventoryPurchase && negative == 1:
			dst = &out.Consumed
		case TxnType(typ) == TxnInventoryPurchase:
			dst = &out.StockPurchases
		default:
			continue
		}
		dst.Count += count
		dst.Sum += sum
	}
	if err := rows.Err(); err != nil {
		return LedgerTotals{}, simerrors.StoreQuery("ledger", "ledger totals", err)
	}
	return out, nil
}
