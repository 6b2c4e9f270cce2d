package store

import (
	"context"
	"log/slog"
	"sync"

	"approvals/internal/api"
	"approvals/internal/core"
	"approvals/internal/fetch"
	applog "approvals/internal/log"
)

// PaginatedTransactions accumulates pages of the global transaction listing.
type PaginatedTransactions struct {
	fetcher *fetch.Fetcher
	api     api.TransactionPager

	mu    sync.RWMutex
	epoch uint64
	// data is nil until the first page arrives. Its Data slice is owned by
	// the store and never aliases a cached response.
	data *core.PaginatedResult[core.Transaction]
}

func NewPaginatedTransactions(fetcher *fetch.Fetcher, pager api.TransactionPager) *PaginatedTransactions {
	return &PaginatedTransactions{fetcher: fetcher, api: pager}
}

// nextCursor returns the page to request next and false once the listing
// is exhausted. Callers hold mu.
func (s *PaginatedTransactions) nextCursor() (int, bool) {
	if s.data == nil {
		return 0, true
	}
	if s.data.NextPage == nil {
		return 0, false
	}
	return *s.data.NextPage, true
}

// FetchAll requests the next page and appends it to the accumulated data.
// Once the backend has reported the last page it does nothing.
func (s *PaginatedTransactions) FetchAll(ctx context.Context) error {
	s.mu.RLock()
	page, more := s.nextCursor()
	epoch := s.epoch
	s.mu.RUnlock()

	if !more {
		slog.DebugContext(ctx, "No further transaction pages",
			applog.FieldComponent, applog.ComponentStore,
			applog.FieldEndpoint, fetch.EndpointPaginatedTransactions)
		return nil
	}

	params := core.PaginatedRequestParams{Page: page}
	result, err := fetch.WithCache(ctx, s.fetcher, fetch.EndpointPaginatedTransactions, params, s.api.PaginatedTransactions)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		logStale(ctx, fetch.EndpointPaginatedTransactions, epoch, s.epoch)
		return nil
	}
	// An overlapping FetchAll for the same page already committed.
	if current, ok := s.nextCursor(); !ok || current != page {
		slog.DebugContext(ctx, "Discarding duplicate page",
			applog.FieldComponent, applog.ComponentStore,
			applog.FieldEndpoint, fetch.EndpointPaginatedTransactions,
			applog.FieldPage, page,
			applog.FieldError, core.ErrStaleResult)
		return nil
	}

	var accumulated []core.Transaction
	if s.data != nil {
		accumulated = s.data.Data
	}
	merged := make([]core.Transaction, 0, len(accumulated)+len(result.Data))
	merged = append(merged, accumulated...)
	merged = append(merged, result.Data...)

	var next *int
	nextLog := any(nil)
	if result.NextPage != nil {
		next = core.NextPageOf(*result.NextPage)
		nextLog = *next
	}
	s.data = &core.PaginatedResult[core.Transaction]{Data: merged, NextPage: next}

	slog.DebugContext(ctx, "Transaction page appended",
		applog.FieldComponent, applog.ComponentStore,
		applog.FieldPage, page,
		applog.FieldNextPage, nextLog,
		applog.FieldCount, len(merged))
	return nil
}

// Invalidate resets the store to "no pages loaded".
func (s *PaginatedTransactions) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.data = nil
}

// Data returns a copy of the accumulated pages, or nil before the first page.
func (s *PaginatedTransactions) Data() *core.PaginatedResult[core.Transaction] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil
	}
	out := &core.PaginatedResult[core.Transaction]{Data: core.CloneTransactions(s.data.Data)}
	if s.data.NextPage != nil {
		out.NextPage = core.NextPageOf(*s.data.NextPage)
	}
	return out
}

func (s *PaginatedTransactions) HasNextPage() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data != nil && s.data.NextPage != nil
}

// SetApproved rewrites the approval flag of an accumulated transaction and
// reports whether it was found. The change lasts until the next Invalidate.
func (s *PaginatedTransactions) SetApproved(transactionID string, approved bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return false
	}
	for i := range s.data.Data {
		if s.data.Data[i].ID == transactionID {
			s.data.Data[i].Approved = approved
			return true
		}
	}
	return false
}

func (s *PaginatedTransactions) Loading() bool {
	return s.fetcher.Loading()
}
