// Package apiserver is the reference JSON backend the web shell talks to.
// It serves the transactions, budgets and account endpoints over a
// gorilla/mux router.
package apiserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/security"
	"fintrack/internal/storage"
)

// SessionCookie carries the login token.
const SessionCookie = "session"

// Ledger is the business logic the handlers call. *services.LedgerService
// implements it.
type Ledger interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id core.ID, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id core.ID) error
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)

	Register(ctx context.Context, username, email, password string) (storage.User, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error)
	Authenticate(ctx context.Context, token string) (storage.User, error)
	Logout(ctx context.Context, token string) error
	Ping(ctx context.Context) error
}

type Options struct {
	Addr string
	// RequireLogin rejects writes without a valid session cookie.
	RequireLogin  bool
	SecureCookies bool

	Logger  *log.Logger
	Metrics *metrics.Collector
}

type Server struct {
	http.Server

	router  *mux.Router
	ledger  Ledger
	logger  *log.Logger
	sl      *log.StructuredLogger
	metrics *metrics.Collector
	opts    Options

	shutdownOnce sync.Once
}

func NewServer(ledger Ledger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentAPIServer)
	}
	logger = logger.WithComponent(log.ComponentAPIServer)
	m := opts.Metrics
	if m == nil {
		m = metrics.New("fintrack_api")
	}

	s := &Server{
		router:  mux.NewRouter(),
		ledger:  ledger,
		logger:  logger,
		sl:      log.NewStructuredLogger(logger),
		metrics: m,
		opts:    opts,
	}
	s.routes()

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           headers.Middleware(s.router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(
		log.Middleware(s.logger),
		log.RequestIDMiddleware(requestID),
		s.metrics.Middleware(routeTemplate),
	)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	r.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	r.Handle("/transactions", s.requireLogin(s.handleCreateTransaction)).Methods(http.MethodPost)
	r.Handle("/transactions/{id}", s.requireLogin(s.handleUpdateTransaction)).Methods(http.MethodPut)
	r.Handle("/transactions/{id}", s.requireLogin(s.handleDeleteTransaction)).Methods(http.MethodDelete)

	r.HandleFunc("/budgets", s.handleListBudgets).Methods(http.MethodGet)
	r.Handle("/budgets", s.requireLogin(s.handleCreateBudget)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.Server.Handler
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// routeTemplate labels metrics with the matched route, e.g.
// "/transactions/{id}".
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return uuid.NewString()
}
