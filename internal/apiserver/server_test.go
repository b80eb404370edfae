package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/api"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type failingRepo struct {
	storage.Repository
}

func (failingRepo) ListTransactions(context.Context) ([]core.Transaction, error) {
	return nil, errors.New("disk on fire")
}

func (failingRepo) Ping(context.Context) error { return errors.New("disk on fire") }

func newTestAPI(t *testing.T, requireLogin bool) (*httptest.Server, *metrics.Collector) {
	return newTestAPIWithRepo(t, storage.NewMemoryRepository(), requireLogin)
}

func newTestAPIWithRepo(t *testing.T, repo storage.Repository, requireLogin bool) (*httptest.Server, *metrics.Collector) {
	t.Helper()
	ledger := services.NewLedgerService(repo,
		services.WithLogger(log.Discard()),
		services.WithBcryptCost(bcrypt.MinCost))
	m := metrics.New("fintrack_api")
	srv := NewServer(ledger, Options{
		RequireLogin: requireLogin,
		Logger:       log.Discard(),
		Metrics:      m,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func newAPIClient(t *testing.T, url string) *api.Client {
	t.Helper()
	c, err := api.New(url, api.WithLogger(log.Discard()))
	require.NoError(t, err)
	return c
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestTransactionsRoundTrip(t *testing.T) {
	ts, _ := newTestAPI(t, false)
	c := newAPIClient(t, ts.URL)
	ctx := context.Background()
	res := c.Transactions()

	list, err := res.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	created, err := res.Create(ctx, core.Transaction{Category: "Food", Amount: core.MustMoney("50"), Description: "groceries"})
	require.NoError(t, err)
	require.NotEmpty(t, created.TransactionID)
	other, err := res.Create(ctx, core.Transaction{Category: "Rent", Amount: core.MustMoney("900")})
	require.NoError(t, err)

	updated, err := res.Update(ctx, created.TransactionID, core.Transaction{Category: "Food", Amount: core.MustMoney("55"), Description: "groceries"})
	require.NoError(t, err)
	assert.Equal(t, "55 USD", updated.Amount.Display())

	list, err = res.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, created.TransactionID, list[0].TransactionID)
	assert.Equal(t, "55 USD", list[0].Amount.Display())

	require.NoError(t, res.Delete(ctx, created.TransactionID))
	list, err = res.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.TransactionID, list[0].TransactionID)

	err = res.Delete(ctx, created.TransactionID)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestBudgetsRoundTrip(t *testing.T) {
	ts, _ := newTestAPI(t, false)
	c := newAPIClient(t, ts.URL)
	ctx := context.Background()

	created, err := c.Budgets().Create(ctx, core.Budget{
		Category:  "Food",
		Amount:    core.MustMoney("50"),
		StartDate: core.NewDate(2024, 1, 1),
		EndDate:   core.NewDate(2024, 1, 31),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.BudgetID)

	list, err := c.Budgets().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Food", list[0].Category)
	assert.Equal(t, "1/31/2024", list[0].EndDate.Display())

	resp, _ := do(t, http.MethodDelete, ts.URL+"/budgets/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBudgetAcceptsSpacedDateKeys(t *testing.T) {
	ts, _ := newTestAPI(t, false)
	resp, body := do(t, http.MethodPost, ts.URL+"/budgets",
		`{"Category":"Food","Amount":"50","Start Date":"01-01-2024","End Date":"01-31-2024"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Contains(t, body, `"StartDate":"2024-01-01"`)
}

func TestValidationErrors(t *testing.T) {
	ts, _ := newTestAPI(t, false)

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		status  int
		message string
	}{
		{"zero amount", http.MethodPost, "/transactions", `{"Category":"Food","Amount":0}`, http.StatusBadRequest, "amount cannot be empty or zero"},
		{"empty category", http.MethodPost, "/transactions", `{"Category":"","Amount":5}`, http.StatusBadRequest, "empty category"},
		{"bad json", http.MethodPost, "/transactions", `{`, http.StatusBadRequest, "Invalid request body"},
		{"unknown id", http.MethodPut, "/transactions/77", `{"Category":"Food","Amount":5}`, http.StatusNotFound, "Transaction not found"},
		{"budget dates", http.MethodPost, "/budgets", `{"Category":"Food","Amount":5,"StartDate":"2024-02-01","EndDate":"2024-01-01"}`, http.StatusBadRequest, "end date must not be before start date"},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound, "Not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			var payload map[string]string
			require.NoError(t, json.Unmarshal([]byte(body), &payload))
			assert.Equal(t, tt.message, payload["error"])
		})
	}
}

func TestAccountsAndRequiredLogin(t *testing.T) {
	ts, _ := newTestAPI(t, true)
	c := newAPIClient(t, ts.URL)
	ctx := context.Background()

	_, err := c.Transactions().Create(ctx, core.Transaction{Category: "Food", Amount: core.MustMoney("5")})
	var se *api.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "Login required", se.Message)

	err = c.Register(ctx, "alice", "", "secret")
	var ve *api.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Missing required fields", ve.Message)

	require.NoError(t, c.Register(ctx, "alice", "alice@example.com", "secret"))
	err = c.Register(ctx, "alice", "alice@example.com", "secret")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Username or email already in use", ve.Message)

	err = c.Login(ctx, "alice", "wrong")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "Invalid credentials", se.Message)

	require.NoError(t, c.Login(ctx, "alice", "secret"))
	created, err := c.Transactions().Create(ctx, core.Transaction{Category: "Food", Amount: core.MustMoney("5")})
	require.NoError(t, err)
	assert.NotEmpty(t, created.TransactionID)

	// Reads stay public.
	resp, _ := do(t, http.MethodGet, ts.URL+"/transactions", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginAcceptsForm(t *testing.T) {
	ts, _ := newTestAPI(t, false)
	c := newAPIClient(t, ts.URL)
	require.NoError(t, c.Register(context.Background(), "bob", "bob@example.com", "pw"))

	resp, err := http.Post(ts.URL+"/login", "application/x-www-form-urlencoded", strings.NewReader("username=bob&password=pw"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var session *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookie {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.NotEmpty(t, session.Value)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/logout", nil)
	req.AddCookie(session)
	out, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	out.Body.Close()
	assert.Equal(t, http.StatusOK, out.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	ts, _ := newTestAPI(t, false)
	c := newAPIClient(t, ts.URL)
	require.NoError(t, c.Ping(context.Background()))

	_, err := c.Transactions().List(context.Background())
	require.NoError(t, err)

	resp, body := do(t, http.MethodGet, ts.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `fintrack_api_http_requests_total{method="GET",route="/transactions",status="200"} 1`)
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
}

func TestStorageFailures(t *testing.T) {
	ts, _ := newTestAPIWithRepo(t, failingRepo{Repository: storage.NewMemoryRepository()}, false)

	resp, body := do(t, http.MethodGet, ts.URL+"/transactions", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "Internal server error")
	assert.NotContains(t, body, "disk on fire")

	resp, _ = do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
