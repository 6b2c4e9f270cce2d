package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"approvals/internal/approval"
	"approvals/internal/core"
	"approvals/internal/fetch"
)

func twoPages() []core.PaginatedResult[core.Transaction] {
	return []core.PaginatedResult[core.Transaction]{
		{Data: []core.Transaction{tx("t1", "e1", false), tx("t2", "e2", false)}, NextPage: core.NextPageOf(1)},
		{Data: []core.Transaction{tx("t3", "e3", true)}, NextPage: nil},
	}
}

func TestEmployeesFetchAllIsCached(t *testing.T) {
	be := &fakeBackend{employees: []core.Employee{{ID: "e1"}, {ID: "e2"}}}
	s := NewEmployees(fetch.NewCache(fetch.Options{}).NewFetcher(), be)
	ctx := context.Background()

	if s.Data() != nil {
		t.Fatal("Data() should be nil before the first fetch")
	}
	for i := 0; i < 3; i++ {
		if err := s.FetchAll(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if be.employeeCalls != 1 {
		t.Errorf("employee calls = %d, want 1", be.employeeCalls)
	}
	if got := len(s.Data()); got != 2 {
		t.Errorf("len(Data()) = %d, want 2", got)
	}
	if s.Loading() {
		t.Error("loading should be false")
	}
}

func TestEmployeesFailureKeepsPriorData(t *testing.T) {
	be := &fakeBackend{employees: []core.Employee{{ID: "e1"}}}
	f := fetch.NewCache(fetch.Options{}).NewFetcher()
	s := NewEmployees(f, be)
	ctx := context.Background()

	if err := s.FetchAll(ctx); err != nil {
		t.Fatal(err)
	}
	f.Cache().Invalidate()
	be.setErr(errBackendDown)

	if err := s.FetchAll(ctx); !errors.Is(err, errBackendDown) {
		t.Fatalf("error = %v, want backend down", err)
	}
	if len(s.Data()) != 1 {
		t.Error("prior roster should survive a failed refresh")
	}
}

func TestPaginatedAccumulatesAndStopsAtTerminalPage(t *testing.T) {
	be := &fakeBackend{pages: twoPages()}
	s := NewPaginatedTransactions(fetch.NewCache(fetch.Options{}).NewFetcher(), be)
	ctx := context.Background()

	if s.Data() != nil || s.HasNextPage() {
		t.Fatal("store should start empty")
	}

	if err := s.FetchAll(ctx); err != nil {
		t.Fatal(err)
	}
	if got := ids(s.Data().Data); !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Errorf("after page 0: %v", got)
	}
	if !s.HasNextPage() {
		t.Error("HasNextPage() should be true after page 0")
	}

	if err := s.FetchAll(ctx); err != nil {
		t.Fatal(err)
	}
	if got := ids(s.Data().Data); !reflect.DeepEqual(got, []string{"t1", "t2", "t3"}) {
		t.Errorf("after page 1: %v", got)
	}
	if s.HasNextPage() || s.Data().NextPage != nil {
		t.Error("listing should be exhausted")
	}

	if err := s.FetchAll(ctx); err != nil {
		t.Errorf("terminal FetchAll should be a no-op, got %v", err)
	}
	if n := be.pageCallCount(); n != 2 {
		t.Errorf("page calls = %d, want 2", n)
	}
	if !reflect.DeepEqual(be.pageCalls, []int{0, 1}) {
		t.Errorf("requested pages %v, want [0 1]", be.pageCalls)
	}
}

func TestPaginatedInvalidateRestartsAtFirstPage(t *testing.T) {
	be := &fakeBackend{pages: twoPages()}
	s := NewPaginatedTransactions(fetch.NewCache(fetch.Options{}).NewFetcher(), be)
	ctx := context.Background()

	_ = s.FetchAll(ctx)
	_ = s.FetchAll(ctx)
	s.Invalidate()
	if s.Data() != nil {
		t.Fatal("Invalidate should drop accumulated pages")
	}

	if err := s.FetchAll(ctx); err != nil {
		t.Fatal(err)
	}
	if got := ids(s.Data().Data); !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Errorf("after reload: %v", got)
	}
	// page 0 came from the fetch cache
	if n := be.pageCallCount(); n != 2 {
		t.Errorf("page calls = %d, want 2", n)
	}
}

func TestPaginatedFailureKeepsPages(t *testing.T) {
	be := &fakeBackend{pages: twoPages()}
	s := NewPaginatedTransactions(fetch.NewCache(fetch.Options{}).NewFetcher(), be)
	ctx := context.Background()

	_ = s.FetchAll(ctx)
	be.setErr(errBackendDown)
	if err := s.FetchAll(ctx); !errors.Is(err, errBackendDown) {
		t.Fatalf("error = %v", err)
	}
	if got := ids(s.Data().Data); !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Errorf("pages after failure: %v", got)
	}
	if !s.HasNextPage() {
		t.Error("cursor should stay on page 1 for a retry")
	}
	if s.Loading() {
		t.Error("loading should reset after failure")
	}
}

func TestPaginatedDiscardsResultAfterInvalidate(t *testing.T) {
	be := &fakeBackend{
		pages:   twoPages(),
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
	s := NewPaginatedTransactions(fetch.NewCache(fetch.Options{}).NewFetcher(), be)

	done := make(chan error, 1)
	go func() { done <- s.FetchAll(context.Background()) }()

	<-be.started
	if !s.Loading() {
		t.Error("loading should be true while the page is in flight")
	}
	s.Invalidate()
	be.gate <- struct{}{}

	if err := <-done; err != nil {
		t.Fatalf("stale result must not surface as an error, got %v", err)
	}
	if s.Data() != nil {
		t.Errorf("stale page was applied: %v", ids(s.Data().Data))
	}
}

func TestPaginatedSetApproved(t *testing.T) {
	be := &fakeBackend{pages: twoPages()}
	s := NewPaginatedTransactions(fetch.NewCache(fetch.Options{}).NewFetcher(), be)

	if s.SetApproved("t1", true) {
		t.Error("nothing loaded yet, SetApproved should report false")
	}
	_ = s.FetchAll(context.Background())
	if !s.SetApproved("t1", true) {
		t.Fatal("t1 should be found")
	}
	if !s.Data().Data[0].Approved {
		t.Error("t1 should read approved")
	}
	if be.pages[0].Data[0].Approved {
		t.Error("SetApproved must not write through to the cached response")
	}
	if s.SetApproved("zz", true) {
		t.Error("unknown id should report false")
	}
}

func TestByEmployeeRejectsSentinel(t *testing.T) {
	be := &fakeBackend{}
	s := NewTransactionsByEmployee(fetch.NewCache(fetch.Options{}).NewFetcher(), be, nil, nil)

	for _, id := range []string{core.EmptyEmployee.ID, "  "} {
		if err := s.FetchByID(context.Background(), id); !errors.Is(err, core.ErrInvalidFilterTarget) {
			t.Errorf("FetchByID(%q) error = %v", id, err)
		}
	}
	if n := be.byEmpCallCount(); n != 0 {
		t.Errorf("network calls = %d, want 0", n)
	}
}

func TestByEmployeeReplacesList(t *testing.T) {
	be := &fakeBackend{byEmp: map[string][]core.Transaction{
		"e1": {tx("t1", "e1", false), tx("t2", "e1", false)},
		"e2": {tx("t3", "e2", true)},
	}}
	s := NewTransactionsByEmployee(fetch.NewCache(fetch.Options{}).NewFetcher(), be, nil, nil)
	ctx := context.Background()

	if s.Data() != nil {
		t.Fatal("Data() should be nil before loading")
	}
	if err := s.FetchByID(ctx, "e1"); err != nil {
		t.Fatal(err)
	}
	if err := s.FetchByID(ctx, "e2"); err != nil {
		t.Fatal(err)
	}
	if got := ids(s.Data()); !reflect.DeepEqual(got, []string{"t3"}) {
		t.Errorf("Data() = %v, want [t3]", got)
	}
	if s.EmployeeID() != "e2" {
		t.Errorf("EmployeeID() = %q", s.EmployeeID())
	}
}

func TestByEmployeeOverridesSurviveRefetch(t *testing.T) {
	be := &fakeBackend{byEmp: map[string][]core.Transaction{
		"e1": {tx("t1", "e1", false), tx("t2", "e1", true)},
	}}
	overrides := approval.NewOverrides()
	f := fetch.NewCache(fetch.Options{}).NewFetcher()
	s := NewTransactionsByEmployee(f, be, overrides, overrides)
	ctx := context.Background()

	if err := s.FetchByID(ctx, "e1"); err != nil {
		t.Fatal(err)
	}
	s.UpdateApprovalStatus("t1", true)
	if !s.Data()[0].Approved {
		t.Fatal("toggle should show immediately")
	}
	if v, ok := overrides.Get("t1"); !ok || !v {
		t.Fatal("toggle should reach the sink")
	}

	// The server still reports t1 unapproved.
	s.Invalidate()
	f.Cache().Invalidate()
	if err := s.FetchByID(ctx, "e1"); err != nil {
		t.Fatal(err)
	}
	if !s.Data()[0].Approved {
		t.Error("override lost on refetch")
	}
	if !s.Data()[1].Approved {
		t.Error("server value should be kept without an override")
	}

	// A fresh store over the same overrides sees the same value.
	fresh := NewTransactionsByEmployee(f, be, overrides, overrides)
	if err := fresh.FetchByID(ctx, "e1"); err != nil {
		t.Fatal(err)
	}
	if !fresh.Data()[0].Approved {
		t.Error("override should survive store recreation")
	}
	if be.byEmp["e1"][0].Approved {
		t.Error("overlay must not modify the cached response")
	}
}

func TestByEmployeeDiscardsResultAfterInvalidate(t *testing.T) {
	be := &fakeBackend{
		byEmp:   map[string][]core.Transaction{"e1": {tx("t1", "e1", false)}},
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
	s := NewTransactionsByEmployee(fetch.NewCache(fetch.Options{}).NewFetcher(), be, nil, nil)

	done := make(chan error, 1)
	go func() { done <- s.FetchByID(context.Background(), "e1") }()

	<-be.started
	s.Invalidate()
	be.gate <- struct{}{}

	if err := <-done; err != nil {
		t.Fatalf("error = %v", err)
	}
	if s.Data() != nil {
		t.Errorf("stale list applied: %v", ids(s.Data()))
	}
}

func TestByEmployeeFailureKeepsList(t *testing.T) {
	be := &fakeBackend{byEmp: map[string][]core.Transaction{"e1": {tx("t1", "e1", false)}}}
	s := NewTransactionsByEmployee(fetch.NewCache(fetch.Options{}).NewFetcher(), be, nil, nil)
	ctx := context.Background()

	_ = s.FetchByID(ctx, "e1")
	be.setErr(errBackendDown)
	if err := s.FetchByID(ctx, "e2"); !errors.Is(err, errBackendDown) {
		t.Fatalf("error = %v", err)
	}
	if got := ids(s.Data()); !reflect.DeepEqual(got, []string{"t1"}) {
		t.Errorf("Data() = %v after failure", got)
	}
}
