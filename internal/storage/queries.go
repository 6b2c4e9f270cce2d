package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"approvals/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const countEmployees = `SELECT COUNT(*) FROM employees`

func (q *Queries) CountEmployees(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countEmployees).Scan(&n)
	return n, err
}

const insertEmployee = `INSERT INTO employees (id, first_name, last_name) VALUES (?, ?, ?)`

func (q *Queries) InsertEmployee(ctx context.Context, e core.Employee) error {
	_, err := q.db.ExecContext(ctx, insertEmployee, e.ID, e.FirstName, e.LastName)
	return err
}

const listEmployees = `SELECT id, first_name, last_name FROM employees ORDER BY created_at, rowid`

func (q *Queries) ListEmployees(ctx context.Context) ([]core.Employee, error) {
	rows, err := q.db.QueryContext(ctx, listEmployees)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Employee{}
	for rows.Next() {
		var e core.Employee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const insertTransaction = `INSERT INTO transactions (id, employee_id, amount, merchant, date, approved)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		t.ID, t.Employee.ID, t.Amount.String(), t.Merchant, t.Date, t.Approved)
	return err
}

const selectTransaction = `SELECT t.id, t.amount, t.merchant, t.date, t.approved,
       e.id, e.first_name, e.last_name
FROM transactions t
JOIN employees e ON e.id = t.employee_id`

const listTransactionsPage = selectTransaction + `
ORDER BY t.position
LIMIT ? OFFSET ?`

func (q *Queries) ListTransactionsPage(ctx context.Context, limit, offset int) ([]core.Transaction, error) {
	return q.queryTransactions(ctx, listTransactionsPage, limit, offset)
}

const listTransactionsByEmployee = selectTransaction + `
WHERE t.employee_id = ?
ORDER BY t.position`

func (q *Queries) ListTransactionsByEmployee(ctx context.Context, employeeID string) ([]core.Transaction, error) {
	return q.queryTransactions(ctx, listTransactionsByEmployee, employeeID)
}

const setTransactionApproved = `UPDATE transactions
SET approved = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) SetTransactionApproved(ctx context.Context, id string, approved bool) (int64, error) {
	res, err := q.db.ExecContext(ctx, setTransactionApproved, approved, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Transaction{}
	for rows.Next() {
		var (
			t      core.Transaction
			amount string
		)
		if err := rows.Scan(&t.ID, &amount, &t.Merchant, &t.Date, &t.Approved,
			&t.Employee.ID, &t.Employee.FirstName, &t.Employee.LastName); err != nil {
			return nil, err
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount %q: %w", t.ID, amount, err)
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
