package http

import (
	"context"
	"net/http"
	"time"

	"approvals/internal/core"
	applog "approvals/internal/log"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the backend can list employees.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.backend.Employees(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "backend unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	emps, err := s.backend.Employees(r.Context())
	if err != nil {
		s.fail(w, r, "list employees", err)
		return
	}
	if emps == nil {
		emps = []core.Employee{}
	}
	writeJSON(w, http.StatusOK, emps)
}

func (s *Server) handlePaginatedTransactions(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePaginatedParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.backend.PaginatedTransactions(r.Context(), params)
	if err != nil {
		s.fail(w, r, "list transactions page", err)
		return
	}
	if page.Data == nil {
		page.Data = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleTransactionsByEmployee(w http.ResponseWriter, r *http.Request) {
	params := ParseByEmployeeParams(r.URL.Query())
	txs, err := s.backend.TransactionsByEmployee(r.Context(), params)
	if err != nil {
		s.fail(w, r, "list transactions by employee", err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleSetTransactionApproval(w http.ResponseWriter, r *http.Request) {
	params, err := DecodeApprovalParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.approvals.SetTransactionApproval(r.Context(), params); err != nil {
		s.fail(w, r, "set transaction approval", err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction approval updated",
		applog.NewFields().WithApproval(params.TransactionID, params.Value).ToSlice()...)
	w.WriteHeader(http.StatusNoContent)
}

// fail maps err to a status and writes it. Server errors are logged and
// their detail is not sent to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, op,
			applog.FieldError, err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
