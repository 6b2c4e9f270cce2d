package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type pageParams struct {
	Page int `json:"page"`
}

type countingCall struct {
	calls atomic.Int32
	err   error
}

func (c *countingCall) do(_ context.Context, p pageParams) ([]string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []string{"item"}, nil
}

func TestWithCacheHitPerformsOneCall(t *testing.T) {
	f := NewCache(Options{}).NewFetcher()
	call := &countingCall{}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := WithCache(ctx, f, EndpointPaginatedTransactions, pageParams{Page: 0}, call.do)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if len(got) != 1 {
			t.Fatalf("call %d: unexpected result %v", i, got)
		}
	}
	if n := call.calls.Load(); n != 1 {
		t.Errorf("network calls = %d, want 1", n)
	}
	if f.Loading() {
		t.Error("loading should be false after the calls return")
	}
}

func TestWithCacheDistinctParamsMiss(t *testing.T) {
	f := NewCache(Options{}).NewFetcher()
	call := &countingCall{}
	ctx := context.Background()

	_, _ = WithCache(ctx, f, EndpointPaginatedTransactions, pageParams{Page: 0}, call.do)
	_, _ = WithCache(ctx, f, EndpointPaginatedTransactions, pageParams{Page: 1}, call.do)
	if n := call.calls.Load(); n != 2 {
		t.Errorf("network calls = %d, want 2", n)
	}
}

func TestKeyIgnoresFieldOrder(t *testing.T) {
	type ab struct {
		A int    `json:"a"`
		B string `json:"b"`
	}
	type ba struct {
		B string `json:"b"`
		A int    `json:"a"`
	}

	k1, err := Key("ep", ab{A: 1, B: "x"})
	if err != nil {
		t.Fatal(err)
	}
	k2, _ := Key("ep", ba{B: "x", A: 1})
	k3, _ := Key("ep", map[string]any{"b": "x", "a": 1})
	if k1 != k2 || k1 != k3 {
		t.Errorf("keys differ: %q %q %q", k1, k2, k3)
	}
	if k1 != `ep@{"a":1,"b":"x"}` {
		t.Errorf("unexpected key %q", k1)
	}

	nilKey, _ := Key(EndpointEmployees, nil)
	if nilKey != "employees@null" {
		t.Errorf("nil params key = %q", nilKey)
	}
}

func TestKeyRejectsUnencodableParams(t *testing.T) {
	if _, err := Key("ep", map[string]any{"f": func() {}}); err == nil {
		t.Error("expected an encoding error")
	}
}

func TestWithCacheFailureIsNotCached(t *testing.T) {
	f := NewCache(Options{}).NewFetcher()
	boom := errors.New("boom")
	call := &countingCall{err: boom}
	ctx := context.Background()

	if _, err := WithCache(ctx, f, EndpointEmployees, pageParams{}, call.do); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if f.Loading() {
		t.Error("loading must return to false after a failure")
	}
	if f.Cache().Size() != 0 {
		t.Error("failure must not populate the cache")
	}

	call.err = nil
	if _, err := WithCache(ctx, f, EndpointEmployees, pageParams{}, call.do); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n := call.calls.Load(); n != 2 {
		t.Errorf("retry should reach the network, calls = %d", n)
	}
}

func TestLoadingIsTrueDuringMissOnly(t *testing.T) {
	f := NewCache(Options{}).NewFetcher()
	ctx := context.Background()

	var sawLoading bool
	call := func(_ context.Context, _ pageParams) (int, error) {
		sawLoading = f.Loading()
		return 1, nil
	}
	if _, err := WithCache(ctx, f, "ep", pageParams{}, call); err != nil {
		t.Fatal(err)
	}
	if !sawLoading {
		t.Error("loading should be true while the call runs")
	}

	sawLoading = false
	if _, err := WithCache(ctx, f, "ep", pageParams{}, call); err != nil {
		t.Fatal(err)
	}
	if sawLoading || f.Loading() {
		t.Error("cache hit must not flip loading")
	}
}

func TestLoadingIsPerFetcher(t *testing.T) {
	c := NewCache(Options{})
	a, b := c.NewFetcher(), c.NewFetcher()

	var bLoading bool
	call := func(_ context.Context, _ pageParams) (int, error) {
		bLoading = b.Loading()
		return 1, nil
	}
	if _, err := WithCache(context.Background(), a, "ep", pageParams{}, call); err != nil {
		t.Fatal(err)
	}
	if bLoading {
		t.Error("a fetch on one fetcher must not mark another as loading")
	}
}

func TestInvalidateClearsEverything(t *testing.T) {
	f := NewCache(Options{}).NewFetcher()
	call := &countingCall{}
	ctx := context.Background()

	_, _ = WithCache(ctx, f, EndpointPaginatedTransactions, pageParams{Page: 0}, call.do)
	_, _ = WithCache(ctx, f, EndpointEmployees, pageParams{}, call.do)
	if n := f.Cache().Invalidate(); n != 2 {
		t.Errorf("Invalidate() = %d, want 2", n)
	}

	_, _ = WithCache(ctx, f, EndpointPaginatedTransactions, pageParams{Page: 0}, call.do)
	if n := call.calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3 after invalidation", n)
	}
}

func TestInvalidateEndpointsKeepsOthers(t *testing.T) {
	f := NewCache(Options{}).NewFetcher()
	call := &countingCall{}
	ctx := context.Background()

	_, _ = WithCache(ctx, f, EndpointPaginatedTransactions, pageParams{Page: 0}, call.do)
	_, _ = WithCache(ctx, f, EndpointTransactionsByEmployee, pageParams{Page: 0}, call.do)
	_, _ = WithCache(ctx, f, EndpointEmployees, pageParams{}, call.do)

	n := f.Cache().InvalidateEndpoints(EndpointPaginatedTransactions, EndpointTransactionsByEmployee)
	if n != 2 {
		t.Errorf("InvalidateEndpoints() = %d, want 2", n)
	}
	if f.Cache().Size() != 1 {
		t.Errorf("employees entry should survive, size = %d", f.Cache().Size())
	}
}

func TestInvalidateDuringCallDoesNotStore(t *testing.T) {
	f := NewCache(Options{}).NewFetcher()
	call := func(_ context.Context, _ pageParams) (int, error) {
		f.Cache().Invalidate()
		return 7, nil
	}

	got, err := WithCache(context.Background(), f, "ep", pageParams{}, call)
	if err != nil || got != 7 {
		t.Fatalf("got %d, %v", got, err)
	}
	if f.Cache().Size() != 0 {
		t.Error("result of a call overtaken by invalidation must not be cached")
	}
}

func TestWithoutCacheNeverStores(t *testing.T) {
	f := NewCache(Options{}).NewFetcher()
	call := &countingCall{}

	for i := 0; i < 2; i++ {
		if _, err := WithoutCache(context.Background(), f, EndpointSetTransactionApproval, pageParams{}, call.do); err != nil {
			t.Fatal(err)
		}
	}
	if n := call.calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
	if f.Cache().Size() != 0 {
		t.Error("uncached call should not populate the cache")
	}
}

func TestMetricsCountHitsAndMisses(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	f := NewCache(Options{Metrics: m}).NewFetcher()
	call := &countingCall{}
	ctx := context.Background()

	_, _ = WithCache(ctx, f, EndpointEmployees, pageParams{}, call.do)
	_, _ = WithCache(ctx, f, EndpointEmployees, pageParams{}, call.do)
	f.Cache().Invalidate()

	if v := testutil.ToFloat64(m.requests.WithLabelValues(EndpointEmployees, "miss")); v != 1 {
		t.Errorf("misses = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.requests.WithLabelValues(EndpointEmployees, "hit")); v != 1 {
		t.Errorf("hits = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.invalidations.WithLabelValues("all")); v != 1 {
		t.Errorf("invalidations = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.inflight); v != 0 {
		t.Errorf("inflight = %v, want 0", v)
	}
}

// gatedCall blocks every call until release is closed.
type gatedCall struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newGatedCall() *gatedCall {
	return &gatedCall{started: make(chan struct{}, 4), release: make(chan struct{})}
}

func (g *gatedCall) do(ctx context.Context, _ pageParams) (int, error) {
	n := g.calls.Add(1)
	g.started <- struct{}{}
	select {
	case <-g.release:
		return int(n), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func TestCancelledCallerDoesNotFailJoinedCaller(t *testing.T) {
	f := NewCache(Options{}).NewFetcher()
	call := newGatedCall()

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := WithCache(first, f, "ep", pageParams{}, call.do)
		firstErr <- err
	}()
	<-call.started

	second := make(chan error, 1)
	go func() {
		_, err := WithCache(context.Background(), f, "ep", pageParams{}, call.do)
		second <- err
	}()

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller error = %v, want context.Canceled", err)
	}
	close(call.release)
	if err := <-second; err != nil {
		t.Fatalf("joined caller failed: %v", err)
	}
	if n := call.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1 shared call", n)
	}
	if f.Cache().Size() != 1 {
		t.Error("shared result should be cached")
	}
}

func TestCallerAfterInvalidateStartsNewCall(t *testing.T) {
	f := NewCache(Options{}).NewFetcher()
	call := newGatedCall()

	results := make(chan int, 2)
	go func() {
		v, _ := WithCache(context.Background(), f, "ep", pageParams{}, call.do)
		results <- v
	}()
	<-call.started

	f.Cache().Invalidate()
	go func() {
		v, _ := WithCache(context.Background(), f, "ep", pageParams{}, call.do)
		results <- v
	}()
	<-call.started

	close(call.release)
	got := map[int]bool{<-results: true, <-results: true}
	if n := call.calls.Load(); n != 2 {
		t.Errorf("calls = %d, want a fresh call after invalidation", n)
	}
	if !got[1] || !got[2] {
		t.Errorf("results = %v, want one from each call", got)
	}
}
