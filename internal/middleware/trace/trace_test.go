package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter(m *Middleware, seen *string) *mux.Router {
	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/employees", func(w http.ResponseWriter, r *http.Request) {
		*seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})
	return r
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	m := NewMiddleware(nil, prometheus.NewRegistry())
	var seen string
	r := newRouter(m, &seen)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/employees", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid", seen)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Error("response should echo the request id")
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("/employees", http.MethodGet, "418")); got != 1 {
		t.Errorf("requests_total = %v, want 1", got)
	}
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	var seen string
	r := newRouter(m, &seen)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/employees", nil)
	req.Header.Set(RequestIDHeader, id)
	r.ServeHTTP(httptest.NewRecorder(), req)
	if seen != id {
		t.Errorf("request id = %q, want %q", seen, id)
	}

	req = httptest.NewRequest(http.MethodGet, "/employees", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not-a-uuid" {
		t.Error("malformed incoming ids should be replaced")
	}
}
