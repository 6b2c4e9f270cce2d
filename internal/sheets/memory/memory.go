package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	applog "approvals/internal/log"
	"approvals/internal/sheets"
)

// Ledger keeps approval entries in memory and logs each append.
type Ledger struct {
	mu      sync.Mutex
	entries []sheets.ApprovalEntry
}

var (
	_ sheets.LedgerWriter = (*Ledger)(nil)
	_ sheets.LedgerReader = (*Ledger)(nil)
)

func New() *Ledger {
	return &Ledger{}
}

func (l *Ledger) AppendApproval(ctx context.Context, e sheets.ApprovalEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	ref := fmt.Sprintf("mem:%d", len(l.entries))
	l.mu.Unlock()

	slog.InfoContext(ctx, "Approval recorded in ledger",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldTransactionID, e.TransactionID,
		"status", e.Status(),
		"row_ref", ref)
	return ref, nil
}

func (l *Ledger) ListApprovals(_ context.Context, year int) ([]sheets.ApprovalEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []sheets.ApprovalEntry
	for _, e := range l.entries {
		if e.RecordedAt.Year() == year {
			out = append(out, e)
		}
	}
	return out, nil
}
