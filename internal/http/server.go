package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/api"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/view"
	appweb "fintrack/web"
)

// AppTitle is shown in the header of every page.
const AppTitle = "TrackIt"

// Options configures the web shell.
type Options struct {
	Addr               string
	BasePath           string
	BackendURL         string
	SessionTTL         time.Duration
	SessionMax         int
	RateLimitPerMinute int
	SecureCookies      bool

	Logger  *log.Logger
	Metrics *metrics.Collector

	// Transport is used for every backend round trip; nil means
	// http.DefaultTransport.
	Transport http.RoundTripper
}

// Server is the browser-facing shell. It owns the sessions and the
// middleware chain; all backend traffic goes through per-session clients.
type Server struct {
	http.Server

	base      string
	logger    *log.Logger
	templates *template.Template
	sessions  *SessionStore
	metrics   *metrics.Collector
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	caches    *cache.Manager
	probe     *api.Client
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New("fintrack")
	}

	base := normalizeBase(opts.BasePath)
	cookiePath := base
	if cookiePath == "" {
		cookiePath = "/"
	}

	probe, err := api.New(opts.BackendURL,
		api.WithHTTPClient(&http.Client{Transport: opts.Transport}),
		api.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	t, err := template.New("").Funcs(templateFuncs(base)).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		base:      base,
		logger:    logger.WithComponent(log.ComponentHTTP),
		templates: t,
		metrics:   m,
		detector:  security.NewDetector(logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		caches:  cache.NewManager(logger),
		probe:   probe,
		started: time.Now(),
	}
	s.sessions = NewSessionStore(SessionConfig{
		BackendURL: opts.BackendURL,
		TTL:        opts.SessionTTL,
		MaxEntries: opts.SessionMax,
		CookiePath: cookiePath,
		Secure:     opts.SecureCookies,
		Transport:  opts.Transport,
	}, logger, m)
	s.caches.Register(s.sessions.Cache())
	s.caches.StartCleanup(time.Minute)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	b := s.base

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix(b+"/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET "+b+"/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET "+b+"/{$}", s.handleLanding)
	if b != "" {
		mux.HandleFunc("GET /{$}", s.redirectTo(b+"/"))
		mux.HandleFunc("GET "+b, s.redirectTo(b+"/"))
	}

	mux.HandleFunc("GET "+b+"/login", s.handleLoginPage)
	mux.HandleFunc("POST "+b+"/login", s.handleLogin)
	mux.HandleFunc("GET "+b+"/registration", s.handleRegistrationPage)
	mux.HandleFunc("POST "+b+"/registration", s.handleRegistration)

	transactions := &resourceHandlers[core.Transaction]{
		srv:    s,
		schema: view.TransactionSchema(),
		viewOf: func(sess *Session) *view.View[core.Transaction] { return sess.Transactions },
		others: func(sess *Session) []unmounter { return []unmounter{sess.Budgets} },
		row:    transactionRow,
	}
	transactions.register(mux)

	budgets := &resourceHandlers[core.Budget]{
		srv:    s,
		schema: view.BudgetSchema(),
		viewOf: func(sess *Session) *view.View[core.Budget] { return sess.Budgets },
		others: func(sess *Session) []unmounter { return []unmounter{sess.Transactions} },
		row:    budgetRow,
	}
	budgets.register(mux)
}

// middleware builds the chain: trace, threat detection, security headers,
// rate limiting of writes, then metrics closest to the mux so the matched
// pattern is visible.
func (s *Server) middleware(mux http.Handler) http.Handler {
	var h http.Handler = mux
	h = s.metrics.Middleware(metrics.PatternRoute)(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware(h)
	return h
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	if isHTMX(r) {
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			TriggerErrorNotification("Too many requests. Please try again later.").
			Write(w)
		return
	}
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

func (s *Server) redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// Sessions exposes the session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// BasePath returns the normalized base path, "" for root.
func (s *Server) BasePath() string {
	return s.base
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		s.sessions.Close()
	})
	return shutdownErr
}

func templateFuncs(base string) template.FuncMap {
	return template.FuncMap{
		"path": func(p string) string { return base + p },
	}
}
