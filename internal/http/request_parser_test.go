package http

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"approvals/internal/core"
)

func TestParsePaginatedParams(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"page=0", 0, false},
		{"page=3", 3, false},
		{"page=%20%202", 2, false},
		{"page=-1", -1, false},
		{"page=two", 0, true},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		got, err := ParsePaginatedParams(q)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v", tt.query, err)
			continue
		}
		if got.Page != tt.want {
			t.Errorf("%q: page = %d, want %d", tt.query, got.Page, tt.want)
		}
	}
}

func TestParseByEmployeeParams(t *testing.T) {
	q := url.Values{"employeeId": {"  e1\x00 "}}
	if got := ParseByEmployeeParams(q); got.EmployeeID != "e1" {
		t.Errorf("employee id = %q", got.EmployeeID)
	}
}

func TestDecodeApprovalParams(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    core.SetTransactionApprovalParams
		wantErr string
	}{
		{name: "approve", body: `{"transactionId":"t1","value":true}`, want: core.SetTransactionApprovalParams{TransactionID: "t1", Value: true}},
		{name: "unapprove", body: `{"transactionId":"t1","value":false}`, want: core.SetTransactionApprovalParams{TransactionID: "t1"}},
		{name: "empty body", body: ``, wantErr: "empty request body"},
		{name: "malformed", body: `{"transactionId":`, wantErr: "invalid request body"},
		{name: "missing value", body: `{"transactionId":"t1"}`, wantErr: "missing value"},
		{name: "blank id", body: `{"transactionId":"  ","value":true}`, wantErr: core.ErrEmptyTransactionID.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/setTransactionApproval", strings.NewReader(tt.body))
			got, err := DecodeApprovalParams(r)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeApprovalParamsBlankIDIsSentinel(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"transactionId":"","value":true}`))
	if _, err := DecodeApprovalParams(r); !errors.Is(err, core.ErrEmptyTransactionID) {
		t.Errorf("err = %v", err)
	}
}
