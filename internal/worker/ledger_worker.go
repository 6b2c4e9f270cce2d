package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"approvals/internal/amqp"
	"approvals/internal/cache"
	applog "approvals/internal/log"
	"approvals/internal/sheets"
)

const (
	seenEventsSize = 10000
	seenEventsTTL  = 24 * time.Hour
)

// LedgerWorker appends approval events to the ledger. Event ids already
// written are remembered so a redelivered message is not recorded twice.
type LedgerWorker struct {
	ledger sheets.LedgerWriter
	reader sheets.LedgerReader
	seen   *cache.LRUCache[string]
	now    func() time.Time
}

// NewLedgerWorker creates a worker. reader may be nil; it is only used to
// prime the seen set at startup.
func NewLedgerWorker(ledger sheets.LedgerWriter, reader sheets.LedgerReader) *LedgerWorker {
	return &LedgerWorker{
		ledger: ledger,
		reader: reader,
		seen:   cache.NewLRUCache[string](seenEventsSize, seenEventsTTL),
		now:    time.Now,
	}
}

// SeenEvents exposes the dedupe cache so it can be registered with a
// cache.Manager for periodic expiry.
func (w *LedgerWorker) SeenEvents() *cache.LRUCache[string] {
	return w.seen
}

// HandleApprovalChanged records one approval event.
func (w *LedgerWorker) HandleApprovalChanged(ctx context.Context, msg *amqp.ApprovalChangedMessage) error {
	eventID := msg.EventID.String()
	if ref, ok := w.seen.Get(eventID); ok {
		slog.InfoContext(ctx, "Skipping duplicate approval event",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldTransactionID, msg.TransactionID,
			"event_id", eventID,
			"row_ref", ref)
		return nil
	}

	at := msg.Timestamp
	if at.IsZero() {
		at = w.now().UTC()
	}
	ref, err := w.ledger.AppendApproval(ctx, sheets.ApprovalEntry{
		EventID:       eventID,
		TransactionID: msg.TransactionID,
		Approved:      msg.Approved,
		RequestID:     msg.RequestID,
		RecordedAt:    at,
	})
	if err != nil {
		return fmt.Errorf("append approval %s: %w", msg.TransactionID, err)
	}
	w.seen.Set(eventID, ref)

	slog.InfoContext(ctx, "Approval event recorded",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpAppend,
		applog.FieldTransactionID, msg.TransactionID,
		applog.FieldApproved, msg.Approved,
		"event_id", eventID,
		"row_ref", ref)
	return nil
}

// StartupCheck loads the current year's ledger rows into the seen set, so
// messages redelivered after a restart are not appended again.
func (w *LedgerWorker) StartupCheck(ctx context.Context) error {
	if w.reader == nil {
		return nil
	}
	entries, err := w.reader.ListApprovals(ctx, w.now().Year())
	if err != nil {
		return fmt.Errorf("list ledger entries: %w", err)
	}
	for _, e := range entries {
		w.seen.Set(e.EventID, "ledger")
	}
	slog.InfoContext(ctx, "Ledger startup check completed",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldCount, len(entries))
	return nil
}
