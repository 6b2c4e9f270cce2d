// Package view coordinates the employee roster and the two transaction
// stores behind a single "filter by employee" selector.
//
// The coordinator is the only component that changes the view mode and the
// only writer of the approval override map. Presentation code reads a
// Snapshot and sends intents: SelectEmployee, LoadMore and ToggleApproval.
package view

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"approvals/internal/api"
	"approvals/internal/approval"
	"approvals/internal/core"
	"approvals/internal/fetch"
	applog "approvals/internal/log"
	"approvals/internal/store"
)

type ModeKind int

const (
	ModeAll ModeKind = iota
	ModeFiltered
)

func (k ModeKind) String() string {
	if k == ModeFiltered {
		return "filtered"
	}
	return "all"
}

// Mode is the current view. EmployeeID is set only in ModeFiltered.
type Mode struct {
	Kind       ModeKind
	EmployeeID string
}

func (m Mode) String() string {
	if m.Kind == ModeFiltered {
		return fmt.Sprintf("filtered(%s)", m.EmployeeID)
	}
	return m.Kind.String()
}

// Coordinator owns the stores of one browsing session.
type Coordinator struct {
	backend   api.Backend
	cache     *fetch.Cache
	writes    *fetch.Fetcher
	overrides *approval.Overrides

	employees *store.Employees
	paginated *store.PaginatedTransactions
	filtered  *store.TransactionsByEmployee

	// mu orders mode switches against Snapshot. Store locks nest inside it.
	mu          sync.RWMutex
	mode        Mode
	initialized bool
	loadingAll  int
}

var _ approval.Sink = (*Coordinator)(nil)

// New builds a coordinator over backend. All stores share cache.
func New(backend api.Backend, cache *fetch.Cache) *Coordinator {
	c := &Coordinator{
		backend:   backend,
		cache:     cache,
		writes:    cache.NewFetcher(),
		overrides: approval.NewOverrides(),
	}
	c.employees = store.NewEmployees(cache.NewFetcher(), backend)
	c.paginated = store.NewPaginatedTransactions(cache.NewFetcher(), backend)
	c.filtered = store.NewTransactionsByEmployee(cache.NewFetcher(), backend, c.overrides, c)
	return c
}

// Record applies an approval change to the canonical override map.
func (c *Coordinator) Record(ch approval.Changed) {
	c.overrides.Record(ch)
	slog.Debug("Approval override recorded",
		applog.NewFields().
			WithComponent(applog.ComponentView).
			WithApproval(ch.TransactionID, ch.Approved).
			ToSlice()...)
}

func (c *Coordinator) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Init loads the roster and the first transaction page. It does nothing
// once the ALL view is loaded or while a load is running; after a failed
// load the next call retries.
func (c *Coordinator) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized && !c.needsLoadLocked() {
		c.mu.Unlock()
		return nil
	}
	c.initialized = true
	c.mode = Mode{Kind: ModeAll}
	c.loadingAll++
	c.mu.Unlock()

	slog.InfoContext(ctx, "Loading all transactions",
		applog.FieldComponent, applog.ComponentView,
		applog.FieldOperation, applog.OpStartup)
	return c.loadAll(ctx)
}

// needsLoadLocked reports whether the ALL view is missing data that no
// running load will provide. Callers hold mu.
func (c *Coordinator) needsLoadLocked() bool {
	if c.mode.Kind != ModeAll || c.loadingAll > 0 {
		return false
	}
	return c.employees.Data() == nil || c.paginated.Data() == nil
}

// SelectEmployee switches the view. A nil or empty employee selects all
// employees; selecting all while already showing all does nothing.
func (c *Coordinator) SelectEmployee(ctx context.Context, e *core.Employee) error {
	if e == nil || e.IsEmpty() {
		return c.selectAll(ctx)
	}
	return c.selectEmployee(ctx, e.ID)
}

func (c *Coordinator) selectAll(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized && c.mode.Kind == ModeAll && !c.needsLoadLocked() {
		c.mu.Unlock()
		slog.DebugContext(ctx, "Already showing all employees",
			applog.FieldComponent, applog.ComponentView,
			applog.FieldOperation, applog.OpSelect)
		return nil
	}
	c.filtered.Invalidate()
	cleared := c.overrides.Clear()
	c.initialized = true
	c.mode = Mode{Kind: ModeAll}
	c.loadingAll++
	c.mu.Unlock()

	slog.InfoContext(ctx, "Filter cleared",
		applog.FieldComponent, applog.ComponentView,
		applog.FieldOperation, applog.OpSelect,
		applog.FieldMode, ModeAll.String(),
		"overrides_cleared", cleared)
	return c.loadAll(ctx)
}

func (c *Coordinator) selectEmployee(ctx context.Context, employeeID string) error {
	c.mu.Lock()
	same := c.mode.Kind == ModeFiltered && c.mode.EmployeeID == employeeID
	cleared := 0
	if !same {
		c.paginated.Invalidate()
		c.filtered.Invalidate()
		cleared = c.overrides.Clear()
	}
	c.initialized = true
	c.mode = Mode{Kind: ModeFiltered, EmployeeID: employeeID}
	c.mu.Unlock()

	if !same {
		slog.InfoContext(ctx, "Filter applied",
			applog.FieldComponent, applog.ComponentView,
			applog.FieldOperation, applog.OpSelect,
			applog.FieldMode, ModeFiltered.String(),
			applog.FieldEmployeeID, employeeID,
			"overrides_cleared", cleared)
	}

	g, gctx := errgroup.WithContext(ctx)
	if c.employees.Data() == nil {
		g.Go(func() error { return c.employees.FetchAll(gctx) })
	}
	g.Go(func() error { return c.filtered.FetchByID(gctx, employeeID) })
	return g.Wait()
}

// loadAll fetches the roster and, when no page is loaded yet, the first
// page of the global listing.
func (c *Coordinator) loadAll(ctx context.Context) error {
	defer func() {
		c.mu.Lock()
		c.loadingAll--
		c.mu.Unlock()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.employees.FetchAll(gctx) })
	if c.paginated.Data() == nil {
		g.Go(func() error { return c.paginated.FetchAll(gctx) })
	}
	return g.Wait()
}

// LoadMore fetches the next page of the global listing. It does nothing
// while a filter is applied or once the last page is loaded.
func (c *Coordinator) LoadMore(ctx context.Context) error {
	if c.Mode().Kind != ModeAll {
		slog.DebugContext(ctx, "Load more ignored while filtered",
			applog.FieldComponent, applog.ComponentView,
			applog.FieldOperation, applog.OpLoadMore)
		return nil
	}
	return c.paginated.FetchAll(ctx)
}

// ToggleApproval shows the new approval state at once, then writes it to
// the backend. A failed write is returned and the local state is kept.
func (c *Coordinator) ToggleApproval(ctx context.Context, transactionID string, approved bool) error {
	params := core.SetTransactionApprovalParams{TransactionID: transactionID, Value: approved}
	if err := params.Validate(); err != nil {
		return err
	}

	if c.Mode().Kind == ModeFiltered {
		c.filtered.UpdateApprovalStatus(transactionID, approved)
	} else {
		c.paginated.SetApproved(transactionID, approved)
	}

	_, err := fetch.WithoutCache(ctx, c.writes, fetch.EndpointSetTransactionApproval, params,
		func(ctx context.Context, p core.SetTransactionApprovalParams) (struct{}, error) {
			return struct{}{}, c.backend.SetTransactionApproval(ctx, p)
		})
	if err != nil {
		applog.LogError(ctx, "Approval write failed", err, applog.ComponentView, applog.OpApprove,
			applog.LogFields{applog.FieldTransactionID: transactionID})
		return fmt.Errorf("set approval for %s: %w", transactionID, err)
	}

	c.cache.InvalidateEndpoints(fetch.EndpointPaginatedTransactions, fetch.EndpointTransactionsByEmployee)
	slog.InfoContext(ctx, "Approval saved",
		applog.NewFields().
			WithComponent(applog.ComponentView).
			WithOperation(applog.OpApprove).
			WithApproval(transactionID, approved).
			ToSlice()...)
	return nil
}

// Option is one entry of the employee selector.
type Option struct {
	Employee core.Employee
	Label    string
}

// Snapshot is everything presentation code needs to render the view.
type Snapshot struct {
	Mode                Mode
	Employees           []core.Employee
	EmployeesLoading    bool
	SelectOptions       []Option
	Transactions        []core.Transaction
	TransactionsLoading bool
	// HasNextPage is true when "load more" should be offered.
	HasNextPage bool
	IsFiltered  bool
	Approving   bool
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mode := c.mode
	s := Snapshot{
		Mode:                mode,
		Employees:           c.employees.Data(),
		EmployeesLoading:    c.employees.Loading(),
		TransactionsLoading: c.paginated.Loading() || c.filtered.Loading(),
		IsFiltered:          mode.Kind == ModeFiltered,
		Approving:           c.writes.Loading(),
	}

	if page := c.paginated.Data(); page != nil {
		s.Transactions = page.Data
		s.HasNextPage = page.HasNextPage() && !s.IsFiltered
	} else {
		s.Transactions = c.filtered.Data()
	}

	if s.Employees != nil {
		s.SelectOptions = make([]Option, 0, len(s.Employees)+1)
		s.SelectOptions = append(s.SelectOptions, Option{Employee: core.EmptyEmployee, Label: core.EmptyEmployee.FullName()})
		for _, e := range s.Employees {
			s.SelectOptions = append(s.SelectOptions, Option{Employee: e, Label: e.FullName()})
		}
	}
	return s
}

// PendingOverrides returns the approval edits made in the current filter.
func (c *Coordinator) PendingOverrides() map[string]bool {
	return c.overrides.Snapshot()
}
