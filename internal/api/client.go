// Package api is the HTTP client for the finance tracker REST backend.
//
// Every call performs exactly one round trip: there are no retries, no
// client-side timeouts beyond the caller's context, and no de-duplication.
// The client owns a cookie jar so a backend session cookie, once obtained,
// is attached to every request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	TransactionsPath = "/transactions"
	BudgetsPath      = "/budgets"
	LoginPath        = "/login"
	RegisterPath     = "/register"
	HealthPath       = "/healthz"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 4 << 20

// Observer receives one call per completed round trip. status is 0 when the
// transport failed.
type Observer func(method, path string, status int, d time.Duration)

// Client talks to one backend base URL.
type Client struct {
	base     *url.URL
	http     *http.Client
	logger   *log.Logger
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. If it has no cookie
// jar, the client uses a copy of hc with its own jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithObserver registers a round-trip observer, typically a metrics hook.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New creates a client for baseURL, e.g. "http://localhost:5000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:   u,
		logger: log.Default(log.ComponentAPIClient),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc := *c.http
		hc.Jar = jar
		c.http = &hc
	}
	return c, nil
}

// Transactions returns the transactions resource.
func (c *Client) Transactions() *Resource[core.Transaction] {
	return &Resource[core.Transaction]{
		client: c,
		path:   TransactionsPath,
		fields: []string{"TransactionID", "Category", "Amount", "Description"},
		idOf:   core.Transaction.ID,
		setID:  func(t *core.Transaction, id core.ID) { t.TransactionID = id },
	}
}

// Budgets returns the budgets resource.
func (c *Client) Budgets() *Resource[core.Budget] {
	return &Resource[core.Budget]{
		client: c,
		path:   BudgetsPath,
		fields: []string{"BudgetID", "Category", "Amount", "StartDate", "EndDate", "Start Date", "End Date"},
		idOf:   core.Budget.ID,
		setID:  func(b *core.Budget, id core.ID) { b.BudgetID = id },
	}
}

// Cookies returns the cookies currently held for the backend origin.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.base)
}

// Login posts credentials; on success the backend's session cookie is kept
// in the jar.
func (c *Client) Login(ctx context.Context, username, password string) error {
	_, err := c.do(ctx, http.MethodPost, LoginPath, map[string]string{
		"username": username,
		"password": password,
	})
	return err
}

// Register creates a backend account.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	_, err := c.do(ctx, http.MethodPost, RegisterPath, map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	return err
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, HealthPath, nil)
	return err
}

// do performs one round trip and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	target := c.base.JoinPath(path).String()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, target, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(method, path, 0, time.Since(start))
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.observe(method, path, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &NetworkError{Method: method, URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.DebugContext(ctx, "Backend request completed",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(method, target, resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) observe(method, path string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer(method, path, status, d)
	}
}

// statusError maps a non-2xx response onto the error taxonomy.
func statusError(method, target string, status int, body []byte) error {
	msg := errorMessage(body)
	switch status {
	case http.StatusNotFound:
		return &NotFoundError{Method: method, URL: target}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &ValidationError{Message: msg, StatusCode: status}
	default:
		return &ServerError{Method: method, URL: target, StatusCode: status, Message: msg}
	}
}

// errorMessage extracts {"error": "..."} from a backend error body, falling
// back to a short excerpt of the raw text.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
