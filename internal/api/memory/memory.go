package memory

import (
	"context"
	"fmt"
	"sync"

	"approvals/internal/api"
	"approvals/internal/core"
	"approvals/internal/seed"
)

// DefaultPageSize is the number of transactions served per page.
const DefaultPageSize = 5

// Backend serves employees and transactions from memory.
type Backend struct {
	mu           sync.Mutex
	pageSize     int
	employees    []core.Employee
	transactions []core.Transaction
}

var _ api.Backend = (*Backend)(nil)

// New returns a backend over copies of the given data. A non-positive
// pageSize falls back to DefaultPageSize.
func New(employees []core.Employee, transactions []core.Transaction, pageSize int) *Backend {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Backend{
		pageSize:     pageSize,
		employees:    append([]core.Employee(nil), employees...),
		transactions: core.CloneTransactions(transactions),
	}
}

// NewFromSeed loads the fixture at path (the embedded one when empty).
func NewFromSeed(path string, pageSize int) (*Backend, error) {
	d, err := seed.Load(path)
	if err != nil {
		return nil, err
	}
	return New(d.Employees, d.Transactions, pageSize), nil
}

func (b *Backend) Employees(_ context.Context) ([]core.Employee, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.Employee{}, b.employees...), nil
}

// PaginatedTransactions returns one page. nextPage is page+1 while items
// remain after this page and nil otherwise.
func (b *Backend) PaginatedTransactions(_ context.Context, params core.PaginatedRequestParams) (core.PaginatedResult[core.Transaction], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return paginate(b.transactions, params.Page, b.pageSize)
}

func paginate(all []core.Transaction, page, size int) (core.PaginatedResult[core.Transaction], error) {
	start := page * size
	if page < 0 || (page > 0 && start >= len(all)) {
		return core.PaginatedResult[core.Transaction]{}, fmt.Errorf("page %d: %w", page, core.ErrInvalidPage)
	}
	end := min(start+size, len(all))

	out := core.PaginatedResult[core.Transaction]{
		Data: core.CloneTransactions(all[start:end]),
	}
	if end < len(all) {
		out.NextPage = core.NextPageOf(page + 1)
	}
	return out, nil
}

func (b *Backend) TransactionsByEmployee(_ context.Context, params core.RequestByEmployeeParams) ([]core.Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []core.Transaction{}
	for _, tx := range b.transactions {
		if tx.Employee.ID == params.EmployeeID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (b *Backend) SetTransactionApproval(_ context.Context, params core.SetTransactionApprovalParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.transactions {
		if b.transactions[i].ID == params.TransactionID {
			b.transactions[i].Approved = params.Value
			return nil
		}
	}
	return fmt.Errorf("%s: %w", params.TransactionID, core.ErrTransactionNotFound)
}
