package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	Employee struct {
		ID        string `json:"id" yaml:"id"`
		FirstName string `json:"firstName" yaml:"firstName"`
		LastName  string `json:"lastName" yaml:"lastName"`
	}

	Transaction struct {
		ID       string          `json:"id"`
		Amount   decimal.Decimal `json:"amount"`
		Employee Employee        `json:"employee"`
		Merchant string          `json:"merchant"`
		Date     string          `json:"date"` // YYYY-MM-DD as served by the backend
		Approved bool            `json:"approved"`
	}

	// PaginatedResult is one page of a listing. A nil NextPage means the
	// listing is exhausted.
	PaginatedResult[T any] struct {
		Data     []T  `json:"data"`
		NextPage *int `json:"nextPage"`
	}

	PaginatedRequestParams struct {
		Page int `json:"page"`
	}

	RequestByEmployeeParams struct {
		EmployeeID string `json:"employeeId"`
	}

	SetTransactionApprovalParams struct {
		TransactionID string `json:"transactionId"`
		Value         bool   `json:"value"`
	}
)

func init() {
	// The backend speaks plain JSON numbers for amounts.
	decimal.MarshalJSONWithoutQuotes = true
}

// EmptyEmployee is the "all employees" filter sentinel.
var EmptyEmployee = Employee{ID: "", FirstName: "All", LastName: "Employees"}

var (
	ErrEmptyTransactionID = errors.New("empty transaction id")
	ErrEmptyEmployeeID    = errors.New("employee id cannot be empty")
)

// IsEmpty reports whether e is the "all employees" sentinel.
func (e Employee) IsEmpty() bool {
	return strings.TrimSpace(e.ID) == ""
}

// FullName renders the label shown next to an employee in a selector.
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// HasNextPage reports whether another page can be requested.
func (p PaginatedResult[T]) HasNextPage() bool {
	return p.NextPage != nil
}

// NextPageOf returns a pointer suitable for PaginatedResult.NextPage.
func NextPageOf(page int) *int {
	return &page
}

func (p SetTransactionApprovalParams) Validate() error {
	if strings.TrimSpace(p.TransactionID) == "" {
		return ErrEmptyTransactionID
	}
	return nil
}

func (p RequestByEmployeeParams) Validate() error {
	if strings.TrimSpace(p.EmployeeID) == "" {
		return ErrEmptyEmployeeID
	}
	return nil
}

// CloneTransactions returns a shallow copy so callers can rewrite
// Approved without touching a slice shared with a cache.
func CloneTransactions(in []Transaction) []Transaction {
	if in == nil {
		return nil
	}
	out := make([]Transaction, len(in))
	copy(out, in)
	return out
}
