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

// Employees holds the full, unpaginated employee roster.
type Employees struct {
	fetcher *fetch.Fetcher
	api     api.EmployeeReader

	mu    sync.RWMutex
	epoch uint64
	data  []core.Employee
}

func NewEmployees(fetcher *fetch.Fetcher, reader api.EmployeeReader) *Employees {
	return &Employees{fetcher: fetcher, api: reader}
}

func (s *Employees) employees(ctx context.Context, _ any) ([]core.Employee, error) {
	return s.api.Employees(ctx)
}

// FetchAll loads the roster. Repeated calls are served by the fetch cache
// until it is invalidated.
func (s *Employees) FetchAll(ctx context.Context) error {
	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()

	employees, err := fetch.WithCache(ctx, s.fetcher, fetch.EndpointEmployees, any(nil), s.employees)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		logStale(ctx, fetch.EndpointEmployees, epoch, s.epoch)
		return nil
	}
	if employees == nil {
		employees = []core.Employee{}
	}
	s.data = append([]core.Employee(nil), employees...)
	return nil
}

// Invalidate forgets the roster; in-flight fetches are discarded.
func (s *Employees) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.data = nil
}

// Data returns a copy of the roster, or nil when it was never loaded.
func (s *Employees) Data() []core.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil
	}
	return append([]core.Employee(nil), s.data...)
}

func (s *Employees) Loading() bool {
	return s.fetcher.Loading()
}

func logStale(ctx context.Context, endpoint string, started, current uint64) {
	slog.DebugContext(ctx, "Discarding stale fetch result",
		applog.FieldComponent, applog.ComponentStore,
		applog.FieldEndpoint, endpoint,
		applog.FieldEpoch, started,
		"current_epoch", current,
		applog.FieldError, core.ErrStaleResult)
}
