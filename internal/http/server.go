package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"approvals/internal/api"
	applog "approvals/internal/log"
	"approvals/internal/middleware/ratelimit"
	"approvals/internal/middleware/security"
	"approvals/internal/middleware/trace"
)

// Options wires the server to its backend.
type Options struct {
	// Backend serves the read endpoints.
	Backend api.Backend
	// Approvals handles writes; defaults to Backend.
	Approvals api.ApprovalWriter

	Logger             *applog.Logger
	AllowedOrigins     []string
	RateLimitPerMinute int
	// Registry backs /metrics; a fresh one is created when nil.
	Registry *prometheus.Registry
}

type Server struct {
	http.Server
	backend   api.Backend
	approvals api.ApprovalWriter
	logger    *applog.Logger
	limiter   *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	approvals := opts.Approvals
	if approvals == nil {
		approvals = opts.Backend
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		backend:   opts.Backend,
		approvals: approvals,
		logger:    logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Registerer:        reg,
		}),
	}

	tracer := trace.NewMiddleware(security.ExtractClientIP, reg)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r := mux.NewRouter()
	r.Use(
		applog.Middleware(logger),
		tracer.Middleware,
		applog.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) }),
		headers.Middleware,
	)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/employees", s.handleEmployees).Methods(http.MethodGet)
	r.HandleFunc("/paginatedTransactions", s.handlePaginatedTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactionsByEmployee", s.handleTransactionsByEmployee).Methods(http.MethodGet)

	limited := s.limiter.Middleware(security.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})
	r.Handle("/setTransactionApproval", limited(http.HandlerFunc(s.handleSetTransactionApproval))).Methods(http.MethodPost)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.Handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", trace.RequestIDHeader},
		ExposedHeaders: []string{trace.RequestIDHeader},
		MaxAge:         600,
	}).Handler(r)

	return s
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ListenAndServe treats http.ErrServerClosed as a clean exit.
func (s *Server) ListenAndServe() error {
	slog.Info("HTTP server listening",
		applog.FieldComponent, applog.ComponentHTTP,
		"addr", s.Addr)
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
