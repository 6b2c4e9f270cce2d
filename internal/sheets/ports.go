package sheets

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ApprovalEntry is one row of the approval ledger.
type ApprovalEntry struct {
	EventID       string
	TransactionID string
	Approved      bool
	RequestID     string
	RecordedAt    time.Time
}

func (e ApprovalEntry) Validate() error {
	if strings.TrimSpace(e.EventID) == "" {
		return errors.New("ledger entry without event id")
	}
	if strings.TrimSpace(e.TransactionID) == "" {
		return errors.New("ledger entry without transaction id")
	}
	if e.RecordedAt.IsZero() {
		return errors.New("ledger entry without timestamp")
	}
	return nil
}

// Status renders the approval flag as stored in the ledger.
func (e ApprovalEntry) Status() string {
	if e.Approved {
		return "APPROVED"
	}
	return "UNAPPROVED"
}

// Ports for outbound ledger adapters.
type (
	LedgerWriter interface {
		AppendApproval(ctx context.Context, e ApprovalEntry) (rowRef string, err error)
	}

	// LedgerReader lists the entries recorded in a given year.
	LedgerReader interface {
		ListApprovals(ctx context.Context, year int) ([]ApprovalEntry, error)
	}
)
