package api

import (
	"context"

	"approvals/internal/core"
)

// Ports for the transactions backend.
type (
	EmployeeReader interface {
		Employees(ctx context.Context) ([]core.Employee, error)
	}

	// TransactionPager serves the global listing one page at a time.
	TransactionPager interface {
		PaginatedTransactions(ctx context.Context, params core.PaginatedRequestParams) (core.PaginatedResult[core.Transaction], error)
	}

	// EmployeeTransactionLister serves every transaction of one employee in a single response.
	EmployeeTransactionLister interface {
		TransactionsByEmployee(ctx context.Context, params core.RequestByEmployeeParams) ([]core.Transaction, error)
	}

	ApprovalWriter interface {
		SetTransactionApproval(ctx context.Context, params core.SetTransactionApprovalParams) error
	}

	Backend interface {
		EmployeeReader
		TransactionPager
		EmployeeTransactionLister
		ApprovalWriter
	}
)
