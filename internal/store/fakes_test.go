package store

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"approvals/internal/core"
)

var errBackendDown = errors.New("backend down")

// fakeBackend serves canned data and counts calls. When gate is set,
// calls block until a value is sent on it.
type fakeBackend struct {
	mu        sync.Mutex
	employees []core.Employee
	pages     []core.PaginatedResult[core.Transaction]
	byEmp     map[string][]core.Transaction
	err       error
	gate      chan struct{}
	started   chan struct{}

	employeeCalls int
	pageCalls     []int
	byEmpCalls    []string
}

func (f *fakeBackend) wait(ctx context.Context) error {
	f.mu.Lock()
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBackend) Employees(ctx context.Context) ([]core.Employee, error) {
	f.mu.Lock()
	f.employeeCalls++
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.employees, nil
}

func (f *fakeBackend) PaginatedTransactions(ctx context.Context, p core.PaginatedRequestParams) (core.PaginatedResult[core.Transaction], error) {
	f.mu.Lock()
	f.pageCalls = append(f.pageCalls, p.Page)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return core.PaginatedResult[core.Transaction]{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return core.PaginatedResult[core.Transaction]{}, f.err
	}
	if p.Page < 0 || p.Page >= len(f.pages) {
		return core.PaginatedResult[core.Transaction]{}, core.ErrInvalidPage
	}
	return f.pages[p.Page], nil
}

func (f *fakeBackend) TransactionsByEmployee(ctx context.Context, p core.RequestByEmployeeParams) ([]core.Transaction, error) {
	f.mu.Lock()
	f.byEmpCalls = append(f.byEmpCalls, p.EmployeeID)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.byEmp[p.EmployeeID], nil
}

func (f *fakeBackend) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeBackend) pageCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pageCalls)
}

func (f *fakeBackend) byEmpCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byEmpCalls)
}

func tx(id, employeeID string, approved bool) core.Transaction {
	return core.Transaction{
		ID:       id,
		Amount:   decimal.RequireFromString("10.00"),
		Employee: core.Employee{ID: employeeID},
		Approved: approved,
	}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}
