package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"fintrack/internal/api"
	"fintrack/internal/log"
	"fintrack/internal/view"
)

// page is the data shared by every full-page template.
type page struct {
	Title        string
	Active       string
	Notification *view.Notification
}

func (s *Server) newPage(sess *Session, active string) page {
	p := page{Title: AppTitle, Active: active}
	if sess != nil {
		if note, ok := sess.Notifier.Take(); ok {
			p.Notification = &note
		}
	}
	return p
}

// render executes a named template into a buffer so that failures never
// leave a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		InternalServerError("Internal error").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// session resolves the browser session or answers 500.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := s.sessions.Resolve(w, r)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to create session", log.FieldError, err)
		InternalServerError("Session unavailable").Write(w)
		return nil, false
	}
	return sess, true
}

// handleLanding renders the home page. Navigating here unmounts both views.
func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Close()
	s.render(w, r, http.StatusOK, "landing", s.newPage(sess, "home"))
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady checks templates and that the backend answers at all. Any
// HTTP response counts as reachable; only transport failures do not.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.probe.Ping(ctx); err != nil && api.Kind(err) == "network" {
		checks["backend"] = "unreachable: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	checks["sessions"] = s.sessions.Len()
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"rejected":       s.limiter.Hits(),
	}
	sec := s.detector.GetMetrics()
	checks["security"] = map[string]any{
		"suspicious_requests": sec.SuspiciousRequests,
		"blocked_requests":    sec.BlockedRequests,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
