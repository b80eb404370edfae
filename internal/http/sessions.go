package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/api"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/view"
)

// SessionCookie names the browser cookie that selects a Session.
const SessionCookie = "fintrack_session"

// Session is the client state of one browser: its backend client (and so its
// backend cookie), the shared notification channel and both resource views.
type Session struct {
	ID           string
	Client       *api.Client
	Notifier     *view.Notifier
	Transactions *view.View[core.Transaction]
	Budgets      *view.View[core.Budget]
	CreatedAt    time.Time
}

// Close unmounts both views; responses still in flight become stale.
func (s *Session) Close() {
	s.Transactions.Unmount()
	s.Budgets.Unmount()
}

// SessionConfig configures a SessionStore.
type SessionConfig struct {
	BackendURL string
	TTL        time.Duration
	MaxEntries int
	CookiePath string
	Secure     bool
	Transport  http.RoundTripper
}

// SessionStore keeps sessions in an LRU cache with a sliding TTL.
type SessionStore struct {
	cfg     SessionConfig
	entries *cache.LRUCache[*Session]
	logger  *log.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewSessionStore creates a store. Evicted sessions are closed.
func NewSessionStore(cfg SessionConfig, logger *log.Logger, m *metrics.Collector) *SessionStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if logger == nil {
		logger = log.Default(log.ComponentSession)
	}
	st := &SessionStore{
		cfg:     cfg,
		logger:  logger.WithComponent(log.ComponentSession),
		metrics: m,
		now:     time.Now,
	}
	st.entries = cache.NewLRUCache[*Session](cfg.MaxEntries, cfg.TTL,
		cache.WithSlidingTTL[*Session](),
		cache.WithOnEvict[*Session](func(id string, sess *Session) {
			sess.Close()
			st.logger.Debug("Session closed", "session_id", id)
			st.report()
		}),
	)
	return st
}

// Cache exposes the underlying cache for periodic sweeping.
func (st *SessionStore) Cache() *cache.LRUCache[*Session] {
	return st.entries
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	return st.entries.Size()
}

// Lookup returns the session named by the request cookie, if still alive.
func (st *SessionStore) Lookup(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	return st.entries.Get(c.Value)
}

// Resolve returns the request's session, creating one (and setting its
// cookie) when the browser has none or it expired.
func (st *SessionStore) Resolve(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if sess, ok := st.Lookup(r); ok {
		return sess, nil
	}

	sess, err := st.create()
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     st.cfg.CookiePath,
		HttpOnly: true,
		Secure:   st.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	st.logger.InfoContext(r.Context(), "Session started", "session_id", sess.ID)
	return sess, nil
}

// Close drops every session.
func (st *SessionStore) Close() {
	st.entries.Clear()
}

func (st *SessionStore) create() (*Session, error) {
	opts := []api.Option{
		api.WithHTTPClient(&http.Client{Transport: st.cfg.Transport}),
		api.WithLogger(st.logger.WithComponent(log.ComponentAPIClient)),
	}
	var viewOpts []view.Option
	viewOpts = append(viewOpts, view.WithLogger(st.logger.WithComponent(log.ComponentView)))
	if st.metrics != nil {
		opts = append(opts, api.WithObserver(st.metrics.ObserveBackend))
		viewOpts = append(viewOpts, view.WithObserver(st.metrics.ObserveView))
	}

	client, err := api.New(st.cfg.BackendURL, opts...)
	if err != nil {
		return nil, err
	}

	notifier := view.NewNotifier()
	sess := &Session{
		ID:           uuid.NewString(),
		Client:       client,
		Notifier:     notifier,
		Transactions: view.NewTransactions(client.Transactions(), notifier, viewOpts...),
		Budgets:      view.NewBudgets(client.Budgets(), notifier, viewOpts...),
		CreatedAt:    st.now(),
	}
	st.entries.Set(sess.ID, sess)
	st.report()
	return sess, nil
}

func (st *SessionStore) report() {
	if st.metrics != nil {
		st.metrics.SetSessions(st.entries.Size())
	}
}
