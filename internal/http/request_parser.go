package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"approvals/internal/core"
)

const maxBodyBytes = 1 << 16

// ParsePaginatedParams reads ?page=N. A missing page means the first page.
func ParsePaginatedParams(query url.Values) (core.PaginatedRequestParams, error) {
	v := strings.TrimSpace(query.Get("page"))
	if v == "" {
		return core.PaginatedRequestParams{}, nil
	}
	page, err := strconv.Atoi(v)
	if err != nil {
		return core.PaginatedRequestParams{}, fmt.Errorf("invalid page %q", v)
	}
	return core.PaginatedRequestParams{Page: page}, nil
}

// ParseByEmployeeParams reads ?employeeId=ID. Validation is left to the
// backend so the error text matches it.
func ParseByEmployeeParams(query url.Values) core.RequestByEmployeeParams {
	return core.RequestByEmployeeParams{EmployeeID: sanitizeInput(query.Get("employeeId"))}
}

type approvalBody struct {
	TransactionID string `json:"transactionId"`
	Value         *bool  `json:"value"`
}

// DecodeApprovalParams decodes the setTransactionApproval body. Both fields
// are required.
func DecodeApprovalParams(r *http.Request) (core.SetTransactionApprovalParams, error) {
	var body approvalBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return core.SetTransactionApprovalParams{}, errors.New("empty request body")
		}
		return core.SetTransactionApprovalParams{}, fmt.Errorf("invalid request body: %w", err)
	}
	if body.Value == nil {
		return core.SetTransactionApprovalParams{}, errors.New("missing value")
	}
	params := core.SetTransactionApprovalParams{
		TransactionID: sanitizeInput(body.TransactionID),
		Value:         *body.Value,
	}
	if err := params.Validate(); err != nil {
		return core.SetTransactionApprovalParams{}, err
	}
	return params, nil
}
