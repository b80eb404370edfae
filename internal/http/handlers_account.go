package http

import (
	"errors"
	"net/http"

	"fintrack/internal/api"
	"fintrack/internal/log"
)

const sessionResource = "session"

type accountPage struct {
	page
	Username string
	Email    string
	Error    string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Close()
	s.render(w, r, http.StatusOK, "login", accountPage{page: s.newPage(sess, "login")})
}

// handleLogin forwards credentials to the backend through the session's
// client, whose cookie jar then carries the backend session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	data := accountPage{page: s.newPage(nil, "login"), Username: p.Get("username")}
	password := p.Get("password")

	if data.Username == "" || password == "" {
		data.Error = "Missing required fields"
		s.render(w, r, http.StatusBadRequest, "login", data)
		return
	}

	if err := sess.Client.Login(r.Context(), data.Username, password); err != nil {
		s.logger.WarnContext(r.Context(), "Login failed",
			log.FieldOperation, log.OpLogin,
			log.FieldErrorType, api.Kind(err),
			log.FieldError, err)
		data.Error = userMessage(err, "Invalid credentials")
		s.render(w, r, http.StatusUnauthorized, "login", data)
		return
	}

	s.logger.InfoContext(r.Context(), "Login succeeded", log.FieldOperation, log.OpLogin)
	sess.Notifier.Success(sessionResource, log.OpLogin, "Logged in successfully!")
	s.redirect(w, r, s.base+"/transactions")
}

func (s *Server) handleRegistrationPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Close()
	s.render(w, r, http.StatusOK, "registration", accountPage{page: s.newPage(sess, "registration")})
}

func (s *Server) handleRegistration(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	data := accountPage{
		page:     s.newPage(nil, "registration"),
		Username: p.Get("username"),
		Email:    p.Get("email"),
	}
	password := p.Get("password")

	if data.Username == "" || data.Email == "" || password == "" {
		data.Error = "Missing required fields"
		s.render(w, r, http.StatusBadRequest, "registration", data)
		return
	}

	if err := sess.Client.Register(r.Context(), data.Username, data.Email, password); err != nil {
		s.logger.WarnContext(r.Context(), "Registration failed",
			log.FieldOperation, log.OpRegister,
			log.FieldErrorType, api.Kind(err),
			log.FieldError, err)
		data.Error = userMessage(err, "Registration failed")
		s.render(w, r, http.StatusBadRequest, "registration", data)
		return
	}

	sess.Notifier.Success(sessionResource, log.OpRegister, "User registered successfully")
	s.redirect(w, r, s.base+"/login")
}

// redirect sends the browser to target after a form post.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// userMessage picks the backend's own message where there is one.
func userMessage(err error, fallback string) string {
	var se *api.ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	var ve *api.ValidationError
	if errors.As(err, &ve) && ve.Message != "" {
		return ve.Message
	}
	if errors.Is(err, api.ErrNetwork) {
		return "Could not reach the server. Please try again later."
	}
	return fallback
}
