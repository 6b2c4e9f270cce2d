// Package remote talks to the approvals API over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"approvals/internal/api"
	"approvals/internal/core"
	applog "approvals/internal/log"
)

const maxErrorBody = 4 << 10

// Client implements api.Backend against a running approvals API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

var _ api.Backend = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q must use http or https", baseURL)
	}
	c := &Client{baseURL: u, http: newHTTPClientWithPooling()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for a single API host.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}
}

func (c *Client) Employees(ctx context.Context) ([]core.Employee, error) {
	var out []core.Employee
	if err := c.get(ctx, "/employees", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PaginatedTransactions(ctx context.Context, params core.PaginatedRequestParams) (core.PaginatedResult[core.Transaction], error) {
	var out core.PaginatedResult[core.Transaction]
	q := url.Values{"page": {strconv.Itoa(params.Page)}}
	if err := c.get(ctx, "/paginatedTransactions", q, &out); err != nil {
		return core.PaginatedResult[core.Transaction]{}, err
	}
	return out, nil
}

func (c *Client) TransactionsByEmployee(ctx context.Context, params core.RequestByEmployeeParams) ([]core.Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var out []core.Transaction
	q := url.Values{"employeeId": {params.EmployeeID}}
	if err := c.get(ctx, "/transactionsByEmployee", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetTransactionApproval(ctx context.Context, params core.SetTransactionApprovalParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode approval: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/setTransactionApproval", nil), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, q), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// do sends req and decodes a JSON body into out when out is non-nil.
// Transport, status and decode failures wrap core.ErrNetworkFailure.
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, core.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	slog.DebugContext(req.Context(), "API call completed",
		applog.FieldComponent, applog.ComponentAPI,
		applog.FieldMethod, req.Method,
		applog.FieldPath, req.URL.Path,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w: %s", req.Method, req.URL.Path, core.ErrNetworkFailure, errorMessage(resp))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w: %w", req.Method, req.URL.Path, core.ErrNetworkFailure, err)
	}
	return nil
}

func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, body.Error)
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
