package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"approvals/internal/api"
	"approvals/internal/approval"
	"approvals/internal/core"
	"approvals/internal/fetch"
	applog "approvals/internal/log"
)

// TransactionsByEmployee holds the complete transaction list of one employee.
// Fetched lists are overlaid with pending approval overrides, which the store
// reads but never owns: local edits are emitted to the sink.
type TransactionsByEmployee struct {
	fetcher   *fetch.Fetcher
	api       api.EmployeeTransactionLister
	overrides approval.Reader
	sink      approval.Sink

	mu         sync.RWMutex
	epoch      uint64
	employeeID string
	data       []core.Transaction
}

func NewTransactionsByEmployee(fetcher *fetch.Fetcher, lister api.EmployeeTransactionLister, overrides approval.Reader, sink approval.Sink) *TransactionsByEmployee {
	return &TransactionsByEmployee{
		fetcher:   fetcher,
		api:       lister,
		overrides: overrides,
		sink:      sink,
	}
}

// FetchByID loads the transactions of employeeID and replaces the stored
// list. The most recently started fetch wins.
func (s *TransactionsByEmployee) FetchByID(ctx context.Context, employeeID string) error {
	if (core.Employee{ID: employeeID}).IsEmpty() {
		return fmt.Errorf("fetch by employee: %w", core.ErrInvalidFilterTarget)
	}

	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	params := core.RequestByEmployeeParams{EmployeeID: employeeID}
	txs, err := fetch.WithCache(ctx, s.fetcher, fetch.EndpointTransactionsByEmployee, params, s.api.TransactionsByEmployee)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		logStale(ctx, fetch.EndpointTransactionsByEmployee, epoch, s.epoch)
		return nil
	}
	data := approval.Apply(txs, s.overrides)
	if data == nil {
		data = []core.Transaction{}
	}
	s.data = data
	s.employeeID = employeeID

	slog.DebugContext(ctx, "Employee transactions loaded",
		applog.FieldComponent, applog.ComponentStore,
		applog.FieldEmployeeID, employeeID,
		applog.FieldCount, len(data))
	return nil
}

// UpdateApprovalStatus records the approval intent and reflects it in the
// loaded list immediately.
func (s *TransactionsByEmployee) UpdateApprovalStatus(transactionID string, approved bool) {
	if s.sink != nil {
		s.sink.Record(approval.Changed{TransactionID: transactionID, Approved: approved})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data {
		if s.data[i].ID == transactionID {
			s.data[i].Approved = approved
			return
		}
	}
}

// Invalidate clears the loaded list. Overrides are kept.
func (s *TransactionsByEmployee) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.data = nil
	s.employeeID = ""
}

// Data returns a copy of the loaded list, or nil when nothing is loaded.
func (s *TransactionsByEmployee) Data() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.CloneTransactions(s.data)
}

// EmployeeID returns the employee whose list is loaded.
func (s *TransactionsByEmployee) EmployeeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.employeeID
}

func (s *TransactionsByEmployee) Loading() bool {
	return s.fetcher.Loading()
}
