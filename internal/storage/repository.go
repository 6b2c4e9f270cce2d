package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"approvals/internal/api"
	"approvals/internal/core"
	applog "approvals/internal/log"
	"approvals/internal/seed"
)

// DefaultPageSize matches the in-memory backend.
const DefaultPageSize = 5

// SQLiteRepository is a persistent api.Backend.
type SQLiteRepository struct {
	db       *sql.DB
	queries  *Queries
	pageSize int
}

var _ api.Backend = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, pageSize int) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := MigrateSchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SQLiteRepository{db: db, queries: New(db), pageSize: pageSize}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SeedIfEmpty loads d when the database has no employees yet. It reports
// whether anything was inserted.
func (r *SQLiteRepository) SeedIfEmpty(ctx context.Context, d *seed.Data) (bool, error) {
	n, err := r.queries.CountEmployees(ctx)
	if err != nil {
		return false, fmt.Errorf("count employees: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := r.queries.WithTx(tx)
	for _, e := range d.Employees {
		if err := q.InsertEmployee(ctx, e); err != nil {
			return false, fmt.Errorf("insert employee %s: %w", e.ID, err)
		}
	}
	for _, t := range d.Transactions {
		if err := q.InsertTransaction(ctx, t); err != nil {
			return false, fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}

	slog.InfoContext(ctx, "Seeded SQLite backend",
		applog.FieldComponent, applog.ComponentStorage,
		"employees", len(d.Employees),
		"transactions", len(d.Transactions))
	return true, nil
}

func (r *SQLiteRepository) Employees(ctx context.Context) ([]core.Employee, error) {
	emps, err := r.queries.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return emps, nil
}

// PaginatedTransactions reads one extra row to decide whether a next page
// exists.
func (r *SQLiteRepository) PaginatedTransactions(ctx context.Context, params core.PaginatedRequestParams) (core.PaginatedResult[core.Transaction], error) {
	page := params.Page
	if page < 0 {
		return core.PaginatedResult[core.Transaction]{}, fmt.Errorf("page %d: %w", page, core.ErrInvalidPage)
	}
	rows, err := r.queries.ListTransactionsPage(ctx, r.pageSize+1, page*r.pageSize)
	if err != nil {
		return core.PaginatedResult[core.Transaction]{}, fmt.Errorf("list page %d: %w", page, err)
	}
	if page > 0 && len(rows) == 0 {
		return core.PaginatedResult[core.Transaction]{}, fmt.Errorf("page %d: %w", page, core.ErrInvalidPage)
	}

	out := core.PaginatedResult[core.Transaction]{Data: rows}
	if len(rows) > r.pageSize {
		out.Data = rows[:r.pageSize]
		out.NextPage = core.NextPageOf(page + 1)
	}
	return out, nil
}

func (r *SQLiteRepository) TransactionsByEmployee(ctx context.Context, params core.RequestByEmployeeParams) ([]core.Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	txs, err := r.queries.ListTransactionsByEmployee(ctx, params.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", params.EmployeeID, err)
	}
	return txs, nil
}

func (r *SQLiteRepository) SetTransactionApproval(ctx context.Context, params core.SetTransactionApprovalParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	n, err := r.queries.SetTransactionApproved(ctx, params.TransactionID, params.Value)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", params.TransactionID, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", params.TransactionID, core.ErrTransactionNotFound)
	}

	slog.InfoContext(ctx, "Transaction approval saved to SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldTransactionID, params.TransactionID,
		applog.FieldApproved, params.Value)
	return nil
}
